//go:build unix

package sockerr

import "golang.org/x/sys/unix"

// These are the errno values we classify or return.
const (
	EINTR        = unix.EINTR
	EAGAIN       = unix.EAGAIN
	EWOULDBLOCK  = unix.EWOULDBLOCK
	ECONNRESET   = unix.ECONNRESET
	EPIPE        = unix.EPIPE
	ECONNREFUSED = unix.ECONNREFUSED
	ECONNABORTED = unix.ECONNABORTED
	EHOSTUNREACH = unix.EHOSTUNREACH
	ENETUNREACH  = unix.ENETUNREACH
	ETIMEDOUT    = unix.ETIMEDOUT
	ENOTCONN     = unix.ENOTCONN
	EBADF        = unix.EBADF
	EINVAL       = unix.EINVAL
	EISCONN      = unix.EISCONN
)
