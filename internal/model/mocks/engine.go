package mocks

import (
	"crypto/tls"

	"github.com/devlink/tlstransport/internal/model"
)

// Engine allows mocking model.Engine.
type Engine struct {
	MockDefaults func() error

	MockConfigure func(policy *model.NegotiationPolicy) error

	MockSetALPN func(protos []string) error

	MockSetServerName func(name string) error

	MockSetMaxFragmentLength func(size int) error

	MockSetup func(bio model.BIO) error

	MockHandshake func() error

	MockRead func(buf []byte) (int, error)

	MockWrite func(buf []byte) (int, error)

	MockCloseNotify func() error

	MockConnectionState func() tls.ConnectionState

	MockFree func()
}

var _ model.Engine = &Engine{}

// Defaults calls MockDefaults.
func (e *Engine) Defaults() error {
	return e.MockDefaults()
}

// Configure calls MockConfigure.
func (e *Engine) Configure(policy *model.NegotiationPolicy) error {
	return e.MockConfigure(policy)
}

// SetALPN calls MockSetALPN.
func (e *Engine) SetALPN(protos []string) error {
	return e.MockSetALPN(protos)
}

// SetServerName calls MockSetServerName.
func (e *Engine) SetServerName(name string) error {
	return e.MockSetServerName(name)
}

// SetMaxFragmentLength calls MockSetMaxFragmentLength.
func (e *Engine) SetMaxFragmentLength(size int) error {
	return e.MockSetMaxFragmentLength(size)
}

// Setup calls MockSetup.
func (e *Engine) Setup(bio model.BIO) error {
	return e.MockSetup(bio)
}

// Handshake calls MockHandshake.
func (e *Engine) Handshake() error {
	return e.MockHandshake()
}

// Read calls MockRead.
func (e *Engine) Read(buf []byte) (int, error) {
	return e.MockRead(buf)
}

// Write calls MockWrite.
func (e *Engine) Write(buf []byte) (int, error) {
	return e.MockWrite(buf)
}

// CloseNotify calls MockCloseNotify.
func (e *Engine) CloseNotify() error {
	return e.MockCloseNotify()
}

// ConnectionState calls MockConnectionState.
func (e *Engine) ConnectionState() tls.ConnectionState {
	return e.MockConnectionState()
}

// Free calls MockFree.
func (e *Engine) Free() {
	e.MockFree()
}

// BIO allows mocking model.BIO.
type BIO struct {
	MockSend func(buf []byte) (int, error)

	MockRecv func(buf []byte) (int, error)
}

var _ model.BIO = &BIO{}

// Send calls MockSend.
func (b *BIO) Send(buf []byte) (int, error) {
	return b.MockSend(buf)
}

// Recv calls MockRecv.
func (b *BIO) Recv(buf []byte) (int, error) {
	return b.MockRecv(buf)
}
