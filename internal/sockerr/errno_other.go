//go:build !unix

package sockerr

import "syscall"

// These are the errno values we classify or return. On systems without
// golang.org/x/sys/unix support we use the values the Go runtime
// itself returns, which are the ones that net errors wrap.
const (
	EINTR        = syscall.EINTR
	EAGAIN       = syscall.EAGAIN
	EWOULDBLOCK  = syscall.EWOULDBLOCK
	ECONNRESET   = syscall.ECONNRESET
	EPIPE        = syscall.EPIPE
	ECONNREFUSED = syscall.ECONNREFUSED
	ECONNABORTED = syscall.ECONNABORTED
	EHOSTUNREACH = syscall.EHOSTUNREACH
	ENETUNREACH  = syscall.ENETUNREACH
	ETIMEDOUT    = syscall.ETIMEDOUT
	ENOTCONN     = syscall.ENOTCONN
	EBADF        = syscall.EBADF
	EINVAL       = syscall.EINVAL
	EISCONN      = syscall.EISCONN
)
