// Package runtimex contains runtime extensions for tests and for the
// command line client, where failing fast is the right thing to do.
package runtimex

import (
	"errors"
	"fmt"

	"github.com/devlink/tlstransport/internal/model"
)

// PanicOnError calls panic() if err is not nil. The type passed
// to panic is an error wrapping err.
func PanicOnError(err error, message string) {
	if err != nil {
		panic(fmt.Errorf("%s: %w", message, err))
	}
}

// Assert calls panic if assertion is false. The type passed to
// panic is an error constructed using errors.New(message).
func Assert(assertion bool, message string) {
	if !assertion {
		panic(errors.New(message))
	}
}

// Try0 calls panic(err) if err is not nil.
func Try0(err error) {
	PanicOnError(err, "Try0")
}

// Try1 is like Try0 but supports functions returning one
// value and an error, such as os.ReadFile.
func Try1[T any](v T, err error) T {
	PanicOnError(err, "Try1")
	return v
}

// Try2 is like Try1 but supports functions returning two
// values and an error, such as ed25519.GenerateKey.
func Try2[T1, T2 any](v1 T1, v2 T2, err error) (T1, T2) {
	PanicOnError(err, "Try2")
	return v1, v2
}

// CatchLogAndIgnorePanic is a function that catches and ignores panics. You
// can invoke this function as follows:
//
//	defer runtimex.CatchLogAndIgnorePanic(logger, "prefix")
//
// and rest assured that any panic will not propagate further. This function
// will use the given logger to warn about the caught panic.
func CatchLogAndIgnorePanic(logger model.Logger, prefix string) {
	if r := recover(); r != nil {
		logger.Warnf("%s: caught panic: %+v", prefix, r)
	}
}
