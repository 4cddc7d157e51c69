package mocks

import (
	"context"
	"time"

	"github.com/devlink/tlstransport/internal/model"
)

// SocketInterface allows mocking model.SocketInterface.
type SocketInterface struct {
	MockSocket func(family model.SocketFamily, stype model.SocketType,
		protocol model.SocketProtocol) model.SocketHandle

	MockConnectByName func(ctx context.Context, handle model.SocketHandle, host string, port uint16) error

	MockSend func(handle model.SocketHandle, buf []byte) (int, error)

	MockRecv func(handle model.SocketHandle, buf []byte) (int, error)

	MockSetSockopt func(handle model.SocketHandle, option model.SocketOption, value time.Duration) error

	MockClose func(handle model.SocketHandle) error
}

var _ model.SocketInterface = &SocketInterface{}

// Socket calls MockSocket.
func (s *SocketInterface) Socket(family model.SocketFamily, stype model.SocketType,
	protocol model.SocketProtocol) model.SocketHandle {
	return s.MockSocket(family, stype, protocol)
}

// ConnectByName calls MockConnectByName.
func (s *SocketInterface) ConnectByName(ctx context.Context, handle model.SocketHandle, host string, port uint16) error {
	return s.MockConnectByName(ctx, handle, host, port)
}

// Send calls MockSend.
func (s *SocketInterface) Send(handle model.SocketHandle, buf []byte) (int, error) {
	return s.MockSend(handle, buf)
}

// Recv calls MockRecv.
func (s *SocketInterface) Recv(handle model.SocketHandle, buf []byte) (int, error) {
	return s.MockRecv(handle, buf)
}

// SetSockopt calls MockSetSockopt.
func (s *SocketInterface) SetSockopt(handle model.SocketHandle, option model.SocketOption, value time.Duration) error {
	return s.MockSetSockopt(handle, option, value)
}

// Close calls MockClose.
func (s *SocketInterface) Close(handle model.SocketHandle) error {
	return s.MockClose(handle)
}
