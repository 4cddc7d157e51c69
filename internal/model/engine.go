package model

//
// TLS engine
//

import (
	"crypto/tls"
	"errors"
)

// These are the signals exchanged between the TLS engine and the BIO
// it uses as its transport. The retry signals (ErrWantRead, ErrWantWrite,
// and ErrTimeout) are returned as is; the fatal ones are wrapped together
// with their cause, so use errors.Is to check for them.
var (
	// ErrWantRead means the operation needs to receive more data and
	// should be retried unchanged. No bytes have been processed.
	ErrWantRead = errors.New("tls: want read")

	// ErrWantWrite means the operation needs to send more data and
	// should be retried unchanged. No bytes have been processed.
	ErrWantWrite = errors.New("tls: want write")

	// ErrTimeout means the engine gave up waiting for the transport.
	ErrTimeout = errors.New("tls: timeout")

	// ErrConnReset means the peer reset the connection.
	ErrConnReset = errors.New("net: connection reset")

	// ErrSendFailed is any other send failure.
	ErrSendFailed = errors.New("net: send failed")

	// ErrRecvFailed is any other receive failure.
	ErrRecvFailed = errors.New("net: recv failed")

	// ErrUnsupported means the engine cannot honour an
	// advisory setting (e.g., the max fragment length).
	ErrUnsupported = errors.New("tls: feature not supported by this engine")
)

// IsRetrySignal returns whether err is one of the non-fatal
// signals meaning "nothing happened, try again".
func IsRetrySignal(err error) bool {
	return errors.Is(err, ErrWantRead) || errors.Is(err, ErrWantWrite) || errors.Is(err, ErrTimeout)
}

// BIO is the transport of the TLS engine. Both methods forward exactly
// one transfer request to the underlying socket and return either the
// number of bytes transferred or one of the engine signals.
type BIO interface {
	Send(buf []byte) (int, error)
	Recv(buf []byte) (int, error)
}

// Engine is the TLS protocol engine driving a single client session.
//
// The transport calls the methods in this order: Defaults, Configure,
// the advisory setters, Setup, Handshake until it stops returning a retry
// signal, then any number of Read and Write, CloseNotify, Free. Free
// MUST be idempotent and safe to call at any point of this sequence,
// including before Defaults.
type Engine interface {
	// Defaults prepares a client-role, stream-oriented session using the
	// engine's default preset. A failure means resource exhaustion.
	Defaults() error

	// Configure installs the mandatory part of the negotiation policy:
	// trust anchors, own certificate, authentication mode, certificate
	// profile, and random number generator.
	Configure(policy *NegotiationPolicy) error

	// SetALPN sets the ALPN protocol list to offer.
	SetALPN(protos []string) error

	// SetServerName sets the name used for SNI and for verifying the
	// server certificate. IP addresses are used only for verification.
	SetServerName(name string) error

	// SetMaxFragmentLength requests a maximum fragment length.
	SetMaxFragmentLength(size int) error

	// Setup binds the BIO. After Setup the configuration is frozen.
	Setup(bio BIO) error

	// Handshake performs a single handshake step. It returns nil once
	// the handshake is complete, ErrWantRead or ErrWantWrite if it must
	// be called again, or a fatal error.
	Handshake() error

	// Read reads application data.
	Read(buf []byte) (int, error)

	// Write writes application data.
	Write(buf []byte) (int, error)

	// CloseNotify sends the close_notify alert. It never retries.
	CloseNotify() error

	// ConnectionState returns the state of the established session.
	ConnectionState() tls.ConnectionState

	// Free releases all the engine resources.
	Free()
}

// EngineFactory creates a fresh Engine for each connection attempt.
type EngineFactory func() Engine
