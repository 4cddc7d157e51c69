package tlstransport

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"io"
	"net"
	"testing"

	"github.com/devlink/tlstransport/internal/model"
	"github.com/devlink/tlstransport/internal/sockerr"
)

func TestClassifyGenericError(t *testing.T) {
	type testcase struct {
		name string
		err  error
		want string
	}

	var testcases = []testcase{{
		name: "for an already wrapped error",
		err:  &ErrWrapper{Failure: FailureConnectionRefused},
		want: FailureConnectionRefused,
	}, {
		name: "for ECONNREFUSED",
		err:  &net.OpError{Op: "dial", Err: sockerr.ECONNREFUSED},
		want: FailureConnectionRefused,
	}, {
		name: "for ECONNRESET",
		err:  sockerr.ECONNRESET,
		want: FailureConnectionReset,
	}, {
		name: "for EPIPE",
		err:  sockerr.EPIPE,
		want: FailureConnectionReset,
	}, {
		name: "for ECONNABORTED",
		err:  sockerr.ECONNABORTED,
		want: FailureConnectionAborted,
	}, {
		name: "for EHOSTUNREACH",
		err:  sockerr.EHOSTUNREACH,
		want: FailureHostUnreachable,
	}, {
		name: "for ENETUNREACH",
		err:  sockerr.ENETUNREACH,
		want: FailureNetworkUnreachable,
	}, {
		name: "for ETIMEDOUT",
		err:  sockerr.ETIMEDOUT,
		want: FailureGenericTimeoutError,
	}, {
		name: "for EAGAIN",
		err:  sockerr.EAGAIN,
		want: FailureGenericTimeoutError,
	}, {
		name: "for EINTR",
		err:  sockerr.EINTR,
		want: FailureInterrupted,
	}, {
		name: "for ENOTCONN",
		err:  sockerr.ENOTCONN,
		want: FailureNotConnected,
	}, {
		name: "for EBADF",
		err:  sockerr.EBADF,
		want: FailureConnectionAlreadyClosed,
	}, {
		name: "for context.Canceled",
		err:  context.Canceled,
		want: FailureInterrupted,
	}, {
		name: "for context.DeadlineExceeded",
		err:  fmt.Errorf("dial: %w", context.DeadlineExceeded),
		want: FailureGenericTimeoutError,
	}, {
		name: "for the engine timeout",
		err:  model.ErrTimeout,
		want: FailureGenericTimeoutError,
	}, {
		name: "for the engine connection reset",
		err:  fmt.Errorf("%w: %w", model.ErrConnReset, errors.New("mocked error")),
		want: FailureConnectionReset,
	}, {
		name: "for operation was canceled",
		err:  errors.New("dial tcp: operation was canceled"),
		want: FailureInterrupted,
	}, {
		name: "for EOF",
		err:  io.EOF,
		want: FailureEOFError,
	}, {
		name: "for i/o timeout",
		err:  errors.New("read tcp: i/o timeout"),
		want: FailureGenericTimeoutError,
	}, {
		name: "for TLS handshake timeout",
		err:  ErrHandshakeTimeout,
		want: FailureGenericTimeoutError,
	}, {
		name: "for no such host",
		err:  &net.DNSError{Err: DNSNoSuchHostSuffix, Name: "x.example"},
		want: FailureDNSNXDOMAINError,
	}, {
		name: "for server misbehaving",
		err:  errors.New("lookup x.example: " + DNSServerMisbehavingSuffix),
		want: FailureDNSServerMisbehaving,
	}, {
		name: "for no answer",
		err:  errors.New("lookup x.example: " + DNSNoAnswerSuffix),
		want: FailureDNSNoAnswer,
	}, {
		name: "for use of closed network connection",
		err:  net.ErrClosed,
		want: FailureConnectionAlreadyClosed,
	}, {
		name: "for an unknown error",
		err:  errors.New("mocked error"),
		want: "unknown_failure: mocked error",
	}}

	for _, tc := range testcases {
		t.Run(tc.name, func(t *testing.T) {
			if got := classifyGenericError(tc.err); got != tc.want {
				t.Fatal("expected", tc.want, "got", got)
			}
		})
	}
}

func TestClassifyTLSHandshakeError(t *testing.T) {
	type testcase struct {
		name string
		err  error
		want string
	}

	var testcases = []testcase{{
		name: "for an already wrapped error",
		err:  &ErrWrapper{Failure: FailureConnectionReset},
		want: FailureConnectionReset,
	}, {
		name: "for x509.HostnameError",
		err:  &tls.CertificateVerificationError{Err: x509.HostnameError{Certificate: testCA.Cert, Host: "x.example"}},
		want: FailureSSLInvalidHostname,
	}, {
		name: "for x509.UnknownAuthorityError",
		err:  x509.UnknownAuthorityError{},
		want: FailureSSLUnknownAuthority,
	}, {
		name: "for x509.CertificateInvalidError",
		err:  x509.CertificateInvalidError{Cert: testCA.Cert, Reason: x509.Expired},
		want: FailureSSLInvalidCertificate,
	}, {
		name: "for a profile violation",
		err:  fmt.Errorf("tls: %w", &model.ProfileError{Cert: testCA.Cert, Reason: "mocked reason"}),
		want: FailureSSLInvalidCertificate,
	}, {
		name: "for a connection reset",
		err:  fmt.Errorf("%w: %w", model.ErrConnReset, sockerr.ECONNRESET),
		want: FailureConnectionReset,
	}, {
		name: "for a remote alert",
		err:  errors.New("remote error: tls: handshake failure"),
		want: FailureSSLFailedHandshake,
	}, {
		name: "for a local alert",
		err:  errors.New("tls: no cipher suite supported by both client and server"),
		want: FailureSSLFailedHandshake,
	}, {
		name: "for an unknown error",
		err:  errors.New("mocked error"),
		want: "unknown_failure: mocked error",
	}}

	for _, tc := range testcases {
		t.Run(tc.name, func(t *testing.T) {
			if got := classifyTLSHandshakeError(tc.err); got != tc.want {
				t.Fatal("expected", tc.want, "got", got)
			}
		})
	}
}

func TestClassifyFixedFailures(t *testing.T) {
	if classifyParameterError(io.EOF) != FailureInvalidParameter {
		t.Fatal("unexpected parameter failure")
	}
	if classifyCredentialsError(io.EOF) != FailureInvalidCredentials {
		t.Fatal("unexpected credentials failure")
	}
	if classifyConnectError(sockerr.ECONNREFUSED) != FailureConnectionRefused {
		t.Fatal("unexpected connect failure")
	}
}
