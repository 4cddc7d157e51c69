// Package netsocket implements model.SocketInterface using the
// net package. The CLI and the end-to-end tests use it.
package netsocket

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"strconv"
	"time"

	"github.com/devlink/tlstransport/internal/model"
	"github.com/devlink/tlstransport/internal/sockerr"
)

// Interface is a model.SocketInterface backed by net.Dialer.
//
// Timeouts set with SetSockopt become per-call deadlines and expired
// deadlines surface as EAGAIN, like SO_RCVTIMEO and SO_SNDTIMEO do.
type Interface struct {
	// Logger is the OPTIONAL logger.
	Logger model.Logger
}

var _ model.SocketInterface = &Interface{}

// New creates a new Interface.
func New(logger model.Logger) *Interface {
	return &Interface{Logger: logger}
}

// socket is the model.SocketHandle we return.
type socket struct {
	closed      bool
	conn        net.Conn
	network     string
	recvTimeout time.Duration
	sendTimeout time.Duration
}

// Socket implements model.SocketInterface. We only support TCP stream
// sockets and return nil otherwise.
func (si *Interface) Socket(family model.SocketFamily, stype model.SocketType,
	protocol model.SocketProtocol) model.SocketHandle {
	if stype != model.SockStream || protocol != model.IPProtoTCP {
		return nil
	}
	var network string
	switch family {
	case model.AFInet:
		network = "tcp4"
	case model.AFInet6:
		network = "tcp6"
	case model.AFUnspec:
		network = "tcp"
	default:
		return nil
	}
	return &socket{network: network}
}

// handle converts the handle back to a socket.
func (si *Interface) handle(handle model.SocketHandle) (*socket, error) {
	s, good := handle.(*socket)
	if !good || s == nil || s.closed {
		return nil, fmt.Errorf("netsocket: invalid handle: %w", sockerr.EBADF)
	}
	return s, nil
}

// ConnectByName implements model.SocketInterface.
func (si *Interface) ConnectByName(ctx context.Context, handle model.SocketHandle, host string, port uint16) error {
	s, err := si.handle(handle)
	if err != nil {
		return err
	}
	if s.conn != nil {
		return fmt.Errorf("netsocket: already connected: %w", sockerr.EISCONN)
	}
	address := net.JoinHostPort(host, strconv.Itoa(int(port)))
	logger := model.ValidLoggerOrDefault(si.Logger)
	logger.Debugf("dial %s/%s...", address, s.network)
	start := time.Now()
	dialer := &net.Dialer{}
	conn, err := dialer.DialContext(ctx, s.network, address)
	logger.Debugf("dial %s/%s... %s in %s", address, s.network,
		model.ErrorToStringOrOK(err), time.Since(start))
	if err != nil {
		return err
	}
	s.conn = conn
	return nil
}

// Send implements model.SocketInterface.
func (si *Interface) Send(handle model.SocketHandle, buf []byte) (int, error) {
	s, err := si.connected(handle)
	if err != nil {
		return 0, err
	}
	_ = s.conn.SetWriteDeadline(deadline(s.sendTimeout))
	count, err := s.conn.Write(buf)
	if count > 0 {
		return count, nil
	}
	return 0, mapError(err)
}

// Recv implements model.SocketInterface. We return zero bytes and no
// error when the peer has closed the connection.
func (si *Interface) Recv(handle model.SocketHandle, buf []byte) (int, error) {
	s, err := si.connected(handle)
	if err != nil {
		return 0, err
	}
	_ = s.conn.SetReadDeadline(deadline(s.recvTimeout))
	count, err := s.conn.Read(buf)
	if count > 0 {
		return count, nil
	}
	if errors.Is(err, io.EOF) {
		return 0, nil
	}
	return 0, mapError(err)
}

func (si *Interface) connected(handle model.SocketHandle) (*socket, error) {
	s, err := si.handle(handle)
	if err != nil {
		return nil, err
	}
	if s.conn == nil {
		return nil, fmt.Errorf("netsocket: not connected: %w", sockerr.ENOTCONN)
	}
	return s, nil
}

// mapError converts the errors of net.Conn to errors wrapping an errno.
func mapError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, os.ErrDeadlineExceeded):
		return fmt.Errorf("netsocket: %w: %w", sockerr.EAGAIN, err)
	case errors.Is(err, net.ErrClosed):
		return fmt.Errorf("netsocket: %w: %w", sockerr.EBADF, err)
	default:
		return err
	}
}

// deadline converts a timeout to a deadline. Zero means no deadline.
func deadline(timeout time.Duration) time.Time {
	if timeout <= 0 {
		return time.Time{}
	}
	return time.Now().Add(timeout)
}

// SetSockopt implements model.SocketInterface.
func (si *Interface) SetSockopt(handle model.SocketHandle, option model.SocketOption, value time.Duration) error {
	s, err := si.handle(handle)
	if err != nil {
		return err
	}
	if value < 0 {
		return fmt.Errorf("netsocket: negative timeout: %w", sockerr.EINVAL)
	}
	switch option {
	case model.SockoptRecvTimeout:
		s.recvTimeout = value
	case model.SockoptSendTimeout:
		s.sendTimeout = value
	default:
		return fmt.Errorf("netsocket: unknown option %d: %w", option, sockerr.EINVAL)
	}
	return nil
}

// Close implements model.SocketInterface.
func (si *Interface) Close(handle model.SocketHandle) error {
	s, err := si.handle(handle)
	if err != nil {
		return err
	}
	s.closed = true
	if s.conn == nil {
		return nil
	}
	return s.conn.Close()
}
