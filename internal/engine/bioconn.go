package engine

import (
	"errors"
	"io"
	"net"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/devlink/tlstransport/internal/model"
)

// wantError is the net.Error we return to the TLS library when the BIO
// would block outside of the handshake. The library does not treat
// temporary errors as fatal, which allows us to retry the same call.
type wantError struct {
	signal error
}

var _ net.Error = &wantError{}

// Error implements error.
func (e *wantError) Error() string {
	return e.signal.Error()
}

// Unwrap allows to access the engine signal.
func (e *wantError) Unwrap() error {
	return e.signal
}

// Timeout implements net.Error.
func (e *wantError) Timeout() bool {
	return true
}

// Temporary implements net.Error.
func (e *wantError) Temporary() bool {
	return true
}

// bioAddr is the net.Addr of a bioConn.
type bioAddr struct{}

// Network implements net.Addr.
func (bioAddr) Network() string {
	return "bio"
}

// String implements net.Addr.
func (bioAddr) String() string {
	return "bio"
}

// bioConn is a net.Conn over a model.BIO.
//
// While parking is true, a would-block from the BIO sends the signal
// over events and blocks until resume or abort. Only the handshake
// goroutine uses a parking bioConn, and it does so while the owner of
// the conn is blocked reading from events or from the handshake result.
type bioConn struct {
	abort        chan struct{}
	abortOnce    sync.Once
	bio          model.BIO
	clock        clock.Clock
	events       chan error
	noRetry      bool
	parking      bool
	resume       chan struct{}
	writeTimeout time.Duration
}

var _ net.Conn = &bioConn{}

// newBioConn creates a parking bioConn.
func newBioConn(bio model.BIO, clk clock.Clock, writeTimeout time.Duration) *bioConn {
	return &bioConn{
		abort:        make(chan struct{}),
		abortOnce:    sync.Once{},
		bio:          bio,
		clock:        clk,
		events:       make(chan error),
		noRetry:      false,
		parking:      true,
		resume:       make(chan struct{}),
		writeTimeout: writeTimeout,
	}
}

// isWant returns whether err is a want signal from the BIO.
func isWant(err error) bool {
	return errors.Is(err, model.ErrWantRead) || errors.Is(err, model.ErrWantWrite)
}

// Read implements net.Conn.
func (c *bioConn) Read(b []byte) (int, error) {
	for {
		count, err := c.bio.Recv(b)
		if err == nil {
			if count <= 0 {
				return 0, io.EOF
			}
			return count, nil
		}
		if !isWant(err) {
			return 0, err
		}
		if !c.parking {
			return 0, &wantError{signal: model.ErrWantRead}
		}
		if err := c.park(model.ErrWantRead); err != nil {
			return 0, err
		}
	}
}

// Write implements net.Conn.
func (c *bioConn) Write(b []byte) (int, error) {
	var started time.Time
	offset := 0
	for offset < len(b) {
		count, err := c.bio.Send(b[offset:])
		if err == nil && count > 0 {
			offset += count
			continue
		}
		if err != nil && !isWant(err) {
			return offset, err
		}
		switch {
		case c.parking:
			if err := c.park(model.ErrWantWrite); err != nil {
				return offset, err
			}
		case c.noRetry:
			return offset, &wantError{signal: model.ErrWantWrite}
		default:
			if started.IsZero() {
				started = c.clock.Now()
			}
			if c.clock.Since(started) >= c.writeTimeout {
				return offset, &wantError{signal: model.ErrTimeout}
			}
		}
	}
	return offset, nil
}

// park hands the signal to the owner and waits to be resumed.
func (c *bioConn) park(signal error) error {
	select {
	case c.events <- signal:
	case <-c.abort:
		return net.ErrClosed
	}
	select {
	case <-c.resume:
		return nil
	case <-c.abort:
		return net.ErrClosed
	}
}

// Abort wakes up a parked goroutine, which fails with net.ErrClosed.
func (c *bioConn) Abort() {
	c.abortOnce.Do(func() {
		close(c.abort)
	})
}

// Close implements net.Conn. The socket belongs to the transport,
// so we just prevent further parking.
func (c *bioConn) Close() error {
	c.Abort()
	return nil
}

// LocalAddr implements net.Conn.
func (c *bioConn) LocalAddr() net.Addr {
	return bioAddr{}
}

// RemoteAddr implements net.Conn.
func (c *bioConn) RemoteAddr() net.Addr {
	return bioAddr{}
}

// SetDeadline implements net.Conn. The socket timeouts
// bound every BIO call, so deadlines are ignored.
func (c *bioConn) SetDeadline(t time.Time) error {
	return nil
}

// SetReadDeadline implements net.Conn.
func (c *bioConn) SetReadDeadline(t time.Time) error {
	return nil
}

// SetWriteDeadline implements net.Conn.
func (c *bioConn) SetWriteDeadline(t time.Time) error {
	return nil
}
