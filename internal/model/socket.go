package model

//
// Abstract socket interface
//

import (
	"context"
	"time"
)

// SocketHandle is the opaque handle of an open socket. A nil
// handle means that the socket could not be created.
type SocketHandle = interface{}

// SocketFamily is the address family passed to SocketInterface.Socket.
type SocketFamily int

const (
	// AFUnspec lets the socket layer pick the address family.
	AFUnspec = SocketFamily(0)

	// AFInet selects IPv4.
	AFInet = SocketFamily(2)

	// AFInet6 selects IPv6.
	AFInet6 = SocketFamily(10)
)

// SocketType is the socket type passed to SocketInterface.Socket.
type SocketType int

// SockStream is a reliable byte stream. It is the only
// socket type the transport ever asks for.
const SockStream = SocketType(1)

// SocketProtocol is the protocol passed to SocketInterface.Socket.
type SocketProtocol int

// IPProtoTCP selects TCP.
const IPProtoTCP = SocketProtocol(6)

// SocketOption is an option understood by SocketInterface.SetSockopt.
type SocketOption int

const (
	// SockoptRecvTimeout bounds every Recv call (SO_RCVTIMEO).
	SockoptRecvTimeout = SocketOption(20)

	// SockoptSendTimeout bounds every Send call (SO_SNDTIMEO).
	SockoptSendTimeout = SocketOption(21)
)

// SocketInterface is the socket layer provided by the platform.
//
// Send and Recv return the number of bytes transferred. On failure they
// return an error from which a syscall.Errno can be extracted using
// errors.As: this is how the transport distinguishes between a retryable
// condition (EINTR, EAGAIN, EWOULDBLOCK), a peer reset (ECONNRESET,
// EPIPE), and any other failure. A timeout configured using SetSockopt
// MUST surface as EAGAIN. Recv returns zero bytes and a nil error when
// the peer has closed the connection.
type SocketInterface interface {
	// Socket creates a new socket or returns nil.
	Socket(family SocketFamily, stype SocketType, protocol SocketProtocol) SocketHandle

	// ConnectByName resolves host and connects the socket to host:port.
	ConnectByName(ctx context.Context, handle SocketHandle, host string, port uint16) error

	// Send sends buf over the socket.
	Send(handle SocketHandle, buf []byte) (int, error)

	// Recv receives into buf from the socket.
	Recv(handle SocketHandle, buf []byte) (int, error)

	// SetSockopt sets the given timeout option. A zero value
	// means that calls block without any timeout.
	SetSockopt(handle SocketHandle, option SocketOption, value time.Duration) error

	// Close closes the socket. The handle is not valid afterwards.
	Close(handle SocketHandle) error
}
