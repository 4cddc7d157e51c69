package tlstransport

//
// I/O adapter between the engine and the socket interface
//

import (
	"context"
	"fmt"
	"maps"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/devlink/tlstransport/internal/model"
	"github.com/devlink/tlstransport/internal/sockerr"
)

// ioAdapter is the model.BIO we give to the engine. Each call forwards
// exactly one transfer request to the socket and translates socket
// errors into engine signals.
type ioAdapter struct {
	handle model.SocketHandle
	sock   model.SocketInterface

	// bound is non-nil while handshaking.
	bound *handshakeBound
}

var _ model.BIO = &ioAdapter{}

// handshakeBound caps the socket timeouts to the time left before the
// handshake deadline, so that a stalled peer cannot block a handshake
// step beyond it even when the caller asked for no timeout.
type handshakeBound struct {
	clock    clock.Clock
	ctx      context.Context
	deadline time.Time

	// timeouts are the values the caller asked for.
	timeouts map[model.SocketOption]time.Duration

	// current are the values currently set on the socket.
	current map[model.SocketOption]time.Duration
}

// boundedOptions lists the options handshakeBound manages, in the
// order in which we restore them.
var boundedOptions = []model.SocketOption{model.SockoptRecvTimeout, model.SockoptSendTimeout}

// startHandshake bounds the socket operations by ctx and deadline. The
// recv and send timeouts are those currently set on the socket.
func (a *ioAdapter) startHandshake(ctx context.Context, clk clock.Clock, deadline time.Time,
	recvTimeout, sendTimeout time.Duration) {
	timeouts := map[model.SocketOption]time.Duration{
		model.SockoptRecvTimeout: recvTimeout,
		model.SockoptSendTimeout: sendTimeout,
	}
	a.bound = &handshakeBound{
		clock:    clk,
		ctx:      ctx,
		deadline: deadline,
		timeouts: timeouts,
		current:  maps.Clone(timeouts),
	}
}

// finishHandshake removes the bound and restores the timeouts the
// caller asked for where we changed them.
func (a *ioAdapter) finishHandshake() error {
	b := a.bound
	a.bound = nil
	if b == nil {
		return nil
	}
	for _, option := range boundedOptions {
		if b.current[option] == b.timeouts[option] {
			continue
		}
		if err := a.sock.SetSockopt(a.handle, option, b.timeouts[option]); err != nil {
			return err
		}
	}
	return nil
}

// limit lowers the timeout of option to the time left before the
// deadline. It returns want when there is no time left or the context
// is done, so that the engine yields without touching the socket.
func (a *ioAdapter) limit(option model.SocketOption, want, failure error) error {
	b := a.bound
	if b == nil {
		return nil
	}
	if b.ctx.Err() != nil {
		return want
	}
	left := b.deadline.Sub(b.clock.Now())
	if left <= 0 {
		return want
	}
	value := b.timeouts[option]
	if value <= 0 || value > left {
		value = left
	}
	if value == b.current[option] {
		return nil
	}
	if err := a.sock.SetSockopt(a.handle, option, value); err != nil {
		return fmt.Errorf("%w: %w", failure, err)
	}
	b.current[option] = value
	return nil
}

// Send implements model.BIO.
func (a *ioAdapter) Send(buf []byte) (int, error) {
	if err := a.limit(model.SockoptSendTimeout, model.ErrWantWrite, model.ErrSendFailed); err != nil {
		return 0, err
	}
	count, err := a.sock.Send(a.handle, buf)
	if err != nil {
		return 0, mapSocketError(err, model.ErrWantWrite, model.ErrSendFailed)
	}
	return count, nil
}

// Recv implements model.BIO.
func (a *ioAdapter) Recv(buf []byte) (int, error) {
	if err := a.limit(model.SockoptRecvTimeout, model.ErrWantRead, model.ErrRecvFailed); err != nil {
		return 0, err
	}
	count, err := a.sock.Recv(a.handle, buf)
	if err != nil {
		return 0, mapSocketError(err, model.ErrWantRead, model.ErrRecvFailed)
	}
	return count, nil
}

// mapSocketError maps a socket error to the want signal, to a
// connection reset, or to the generic failure signal.
func mapSocketError(err, want, failure error) error {
	switch {
	case sockerr.IsRetryable(err):
		return want
	case sockerr.IsReset(err):
		return fmt.Errorf("%w: %w", model.ErrConnReset, err)
	default:
		return fmt.Errorf("%w: %w", failure, err)
	}
}
