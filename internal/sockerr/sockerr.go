// Package sockerr contains the errno values the transport needs to
// recognize when classifying socket errors, plus helpers for extracting
// them from Go errors.
package sockerr

import (
	"errors"
	"syscall"
)

// Errno returns the syscall.Errno wrapped by err, if any.
func Errno(err error) (syscall.Errno, bool) {
	var errno syscall.Errno
	if err != nil && errors.As(err, &errno) {
		return errno, true
	}
	return 0, false
}

// IsRetryable returns whether err wraps EINTR, EAGAIN, or EWOULDBLOCK.
func IsRetryable(err error) bool {
	errno, ok := Errno(err)
	if !ok {
		return false
	}
	// EAGAIN and EWOULDBLOCK have the same value on most systems, which
	// prevents us from using a switch here.
	return errno == EINTR || errno == EAGAIN || errno == EWOULDBLOCK
}

// IsReset returns whether err wraps ECONNRESET or EPIPE.
func IsReset(err error) bool {
	errno, ok := Errno(err)
	if !ok {
		return false
	}
	return errno == ECONNRESET || errno == EPIPE
}
