package tlstransport

import (
	"context"
	"crypto/x509"
	"errors"
	"fmt"
	"strings"

	"github.com/devlink/tlstransport/internal/model"
	"github.com/devlink/tlstransport/internal/sockerr"
)

// These are the failure strings we use.
const (
	FailureConnectionAborted       = "connection_aborted"
	FailureConnectionAlreadyClosed = "connection_already_closed"
	FailureConnectionRefused       = "connection_refused"
	FailureConnectionReset         = "connection_reset"
	FailureDNSNXDOMAINError        = "dns_nxdomain_error"
	FailureDNSNoAnswer             = "dns_no_answer"
	FailureDNSServerMisbehaving    = "dns_server_misbehaving"
	FailureEOFError                = "eof_error"
	FailureGenericTimeoutError     = "generic_timeout_error"
	FailureHostUnreachable         = "host_unreachable"
	FailureInterrupted             = "interrupted"
	FailureInvalidCredentials      = "invalid_credentials"
	FailureInvalidParameter        = "invalid_parameter"
	FailureNetworkUnreachable      = "network_unreachable"
	FailureNotConnected            = "not_connected"
	FailureSSLFailedHandshake      = "ssl_failed_handshake"
	FailureSSLInvalidCertificate   = "ssl_invalid_certificate"
	FailureSSLInvalidHostname      = "ssl_invalid_hostname"
	FailureSSLUnknownAuthority     = "ssl_unknown_authority"
)

// We use these strings to string-match errors in the standard library.
const (
	DNSNoSuchHostSuffix        = "no such host"
	DNSServerMisbehavingSuffix = "server misbehaving"
	DNSNoAnswerSuffix          = "no answer from DNS server"
)

// classifyGenericError is the most generic classifier. The more
// specific classifiers call it when they cannot find a mapping.
//
// If the input error is an *ErrWrapper we don't perform the
// classification again and we return its Failure.
func classifyGenericError(err error) string {
	var errwrapper *ErrWrapper
	if errors.As(err, &errwrapper) {
		return errwrapper.Error() // we've already wrapped it
	}

	// Classify system errors first, because their strings
	// differ across operating systems.
	if failure := classifySyscallError(err); failure != "" {
		return failure
	}

	if errors.Is(err, context.Canceled) {
		return FailureInterrupted
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, model.ErrTimeout) {
		return FailureGenericTimeoutError
	}
	if errors.Is(err, model.ErrConnReset) {
		return FailureConnectionReset
	}

	if failure := classifyWithStringSuffix(err); failure != "" {
		return failure
	}

	return fmt.Sprintf("unknown_failure: %s", err.Error())
}

// classifySyscallError maps the errno wrapped by err, if any, to a
// failure string. Returns an empty string if there's no mapping.
func classifySyscallError(err error) string {
	errno, ok := sockerr.Errno(err)
	if !ok {
		return ""
	}
	// We cannot use a switch because EAGAIN and EWOULDBLOCK
	// have the same value on most systems.
	if errno == sockerr.ECONNREFUSED {
		return FailureConnectionRefused
	}
	if errno == sockerr.ECONNRESET || errno == sockerr.EPIPE {
		return FailureConnectionReset
	}
	if errno == sockerr.ECONNABORTED {
		return FailureConnectionAborted
	}
	if errno == sockerr.EHOSTUNREACH {
		return FailureHostUnreachable
	}
	if errno == sockerr.ENETUNREACH {
		return FailureNetworkUnreachable
	}
	if errno == sockerr.ETIMEDOUT || errno == sockerr.EAGAIN || errno == sockerr.EWOULDBLOCK {
		return FailureGenericTimeoutError
	}
	if errno == sockerr.EINTR {
		return FailureInterrupted
	}
	if errno == sockerr.ENOTCONN {
		return FailureNotConnected
	}
	if errno == sockerr.EBADF {
		return FailureConnectionAlreadyClosed
	}
	return ""
}

// classifyWithStringSuffix classifies by looking at error suffixes. This
// function returns an empty string if it cannot classify the error.
func classifyWithStringSuffix(err error) string {
	s := err.Error()
	if strings.HasSuffix(s, "operation was canceled") {
		return FailureInterrupted
	}
	if strings.HasSuffix(s, "EOF") {
		return FailureEOFError
	}
	if strings.HasSuffix(s, "context deadline exceeded") {
		return FailureGenericTimeoutError
	}
	if strings.HasSuffix(s, "i/o timeout") {
		return FailureGenericTimeoutError
	}
	if strings.HasSuffix(s, "TLS handshake timeout") {
		return FailureGenericTimeoutError
	}
	if strings.HasSuffix(s, DNSNoSuchHostSuffix) {
		return FailureDNSNXDOMAINError
	}
	if strings.HasSuffix(s, DNSServerMisbehavingSuffix) {
		return FailureDNSServerMisbehaving
	}
	if strings.HasSuffix(s, DNSNoAnswerSuffix) {
		return FailureDNSNoAnswer
	}
	if strings.HasSuffix(s, "use of closed network connection") {
		return FailureConnectionAlreadyClosed
	}
	return "" // not found
}

// classifyConnectError maps errors occurring while resolving
// and connecting to the server to failure strings.
func classifyConnectError(err error) string {
	return classifyGenericError(err)
}

// classifyTLSHandshakeError maps an error occurred during the TLS
// handshake to a failure string.
//
// If this classifier fails, it calls classifyGenericError and
// returns to the caller its return value.
func classifyTLSHandshakeError(err error) string {
	var errwrapper *ErrWrapper
	if errors.As(err, &errwrapper) {
		return errwrapper.Error() // we've already wrapped it
	}
	var x509HostnameError x509.HostnameError
	if errors.As(err, &x509HostnameError) {
		return FailureSSLInvalidHostname
	}
	var x509UnknownAuthorityError x509.UnknownAuthorityError
	if errors.As(err, &x509UnknownAuthorityError) {
		return FailureSSLUnknownAuthority
	}
	var x509CertificateInvalidError x509.CertificateInvalidError
	if errors.As(err, &x509CertificateInvalidError) {
		return FailureSSLInvalidCertificate
	}
	var profileError *model.ProfileError
	if errors.As(err, &profileError) {
		return FailureSSLInvalidCertificate
	}
	if failure := classifyGenericError(err); !strings.HasPrefix(failure, "unknown_failure") {
		return failure
	}
	// Both the local and the remote alerts of crypto/tls are
	// unexported, so we recognize them by their prefix.
	s := err.Error()
	if strings.HasPrefix(s, "tls: ") || strings.HasPrefix(s, "remote error: tls: ") {
		return FailureSSLFailedHandshake
	}
	return classifyGenericError(err)
}

// classifyParameterError is the classifier for invalid arguments.
func classifyParameterError(err error) string {
	return FailureInvalidParameter
}

// classifyCredentialsError is the classifier for credential errors.
func classifyCredentialsError(err error) string {
	return FailureInvalidCredentials
}
