package tlstransport

import (
	"errors"
	"fmt"
)

// Status is the coarse outcome of a transport operation. Every error
// returned by this package carries exactly one Status.
type Status int

const (
	// StatusSuccess indicates that the operation succeeded.
	StatusSuccess = Status(iota)

	// StatusInvalidParameter indicates invalid arguments or a socket
	// option that the socket layer refused.
	StatusInvalidParameter

	// StatusInsufficientMemory indicates that the engine could not
	// prepare a session with its defaults.
	StatusInsufficientMemory

	// StatusInvalidCredentials indicates a malformed or mismatched
	// trust anchor, client certificate, or private key.
	StatusInvalidCredentials

	// StatusConnectFailure indicates that we could not resolve or
	// connect to the server.
	StatusConnectFailure

	// StatusHandshakeFailed indicates a fatal handshake error, including
	// a failed verification of the server and a handshake timeout.
	StatusHandshakeFailed

	// StatusInternalError indicates a failure to create the socket,
	// seed the RNG, or bind the engine to its transport.
	StatusInternalError

	// StatusTransferFailed indicates a fatal Send or Recv error.
	StatusTransferFailed
)

// String implements fmt.Stringer.
func (s Status) String() string {
	switch s {
	case StatusSuccess:
		return "success"
	case StatusInvalidParameter:
		return "invalid_parameter"
	case StatusInsufficientMemory:
		return "insufficient_memory"
	case StatusInvalidCredentials:
		return "invalid_credentials"
	case StatusConnectFailure:
		return "connect_failure"
	case StatusHandshakeFailed:
		return "handshake_failed"
	case StatusInternalError:
		return "internal_error"
	case StatusTransferFailed:
		return "transfer_failed"
	default:
		return fmt.Sprintf("status(%d)", int(s))
	}
}

// These are the operations that may fail.
const (
	// AllocateOperation is Allocate.
	AllocateOperation = "allocate"

	// ValidateOperation is the validation of the Connect arguments.
	ValidateOperation = "validate"

	// SocketOperation is the creation of the socket.
	SocketOperation = "socket"

	// SetsockoptOperation is setting the socket timeouts.
	SetsockoptOperation = "setsockopt"

	// ConnectOperation is resolving and connecting to the server.
	ConnectOperation = "connect"

	// SeedOperation is seeding the RNG.
	SeedOperation = "seed"

	// ConfigDefaultsOperation is preparing the engine defaults.
	ConfigDefaultsOperation = "config_defaults"

	// CredentialsOperation is parsing and binding the credentials.
	CredentialsOperation = "credentials"

	// SetupOperation is binding the engine to the socket.
	SetupOperation = "setup"

	// HandshakeOperation is the TLS handshake.
	HandshakeOperation = "handshake"

	// SendOperation is Send.
	SendOperation = "send"

	// RecvOperation is Recv.
	RecvOperation = "recv"
)

var (
	// ErrNilSocketInterface means Allocate got a nil socket interface.
	ErrNilSocketInterface = errors.New("tlstransport: nil socket interface")

	// ErrNotConnected means the transport has no established session.
	ErrNotConnected = errors.New("tlstransport: not connected")

	// ErrFreed means the transport has been freed.
	ErrFreed = errors.New("tlstransport: transport has been freed")

	// ErrInvalidTrustAnchor means we could not parse the root CA.
	ErrInvalidTrustAnchor = errors.New("tlstransport: invalid trust anchor")

	// ErrInvalidClientCertificate means we could not parse the client certificate.
	ErrInvalidClientCertificate = errors.New("tlstransport: invalid client certificate")

	// ErrInvalidPrivateKey means we could not parse the private key or
	// the key does not match the client certificate.
	ErrInvalidPrivateKey = errors.New("tlstransport: invalid private key")

	// ErrPartialIdentity means that only one of client certificate
	// and private key was provided and Config.RejectPartialIdentity is set.
	ErrPartialIdentity = errors.New("tlstransport: client certificate and private key must be provided together")

	// ErrSocketCreation means the socket layer did not give us a socket.
	ErrSocketCreation = errors.New("tlstransport: cannot create socket")

	// ErrNilEngine means the engine factory returned nil.
	ErrNilEngine = errors.New("tlstransport: cannot allocate engine")

	// ErrHandshakeTimeout means the handshake exceeded Config.HandshakeTimeout.
	ErrHandshakeTimeout = errors.New("tlstransport: TLS handshake timeout")
)

// ErrWrapper is the error returned by this package. Its Failure,
// which is also returned by Error, is a snake_case string identifying
// the failure (e.g., "connection_refused", "ssl_unknown_authority")
// or "unknown_failure: ..." for errors we could not classify.
type ErrWrapper struct {
	// Status is the coarse outcome.
	Status Status

	// Failure is the failure string.
	Failure string

	// Operation is the operation that failed.
	Operation string

	// WrappedErr is the error that we're wrapping.
	WrappedErr error
}

// Error returns the failure string.
func (e *ErrWrapper) Error() string {
	return e.Failure
}

// Unwrap allows to access the underlying error.
func (e *ErrWrapper) Unwrap() error {
	return e.WrappedErr
}

// classifier maps a Go error to a failure string.
type classifier func(err error) string

// newErrWrapper creates a new ErrWrapper. If err is already an ErrWrapper
// we keep its Failure and replace Status and Operation.
//
// This function panics if the classifier is nil, op is empty, or
// err is nil.
func newErrWrapper(status Status, c classifier, op string, err error) *ErrWrapper {
	if c == nil {
		panic("nil classifier")
	}
	if op == "" {
		panic("empty op")
	}
	if err == nil {
		panic("nil err")
	}
	var wrapper *ErrWrapper
	if errors.As(err, &wrapper) {
		return &ErrWrapper{
			Status:     status,
			Failure:    wrapper.Failure,
			Operation:  op,
			WrappedErr: err,
		}
	}
	return &ErrWrapper{
		Status:     status,
		Failure:    c(err),
		Operation:  op,
		WrappedErr: err,
	}
}

// StatusOf returns the Status of an error returned by this package,
// StatusSuccess for nil, and StatusInternalError for foreign errors.
func StatusOf(err error) Status {
	if err == nil {
		return StatusSuccess
	}
	var wrapper *ErrWrapper
	if errors.As(err, &wrapper) {
		return wrapper.Status
	}
	return StatusInternalError
}
