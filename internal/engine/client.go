package engine

import (
	"crypto/tls"
	"errors"
	"fmt"
	"net"
	"slices"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/devlink/tlstransport/internal/model"
)

// DefaultWriteTimeout is the default value of Options.WriteTimeout.
const DefaultWriteTimeout = 30 * time.Second

// Options contains options for creating engines.
type Options struct {
	// Clock is the OPTIONAL clock measuring the write timeout.
	Clock clock.Clock

	// Logger is the OPTIONAL logger.
	Logger model.Logger

	// WriteTimeout is the OPTIONAL time for which Write retries a
	// would-block before failing. When zero, we use DefaultWriteTimeout.
	WriteTimeout time.Duration
}

var (
	// ErrNotReady means Defaults was not called.
	ErrNotReady = errors.New("engine: Defaults not called")

	// ErrNotConfigured means Configure was not called.
	ErrNotConfigured = errors.New("engine: Configure not called")

	// ErrFrozen means we cannot change the configuration after Setup.
	ErrFrozen = errors.New("engine: configuration frozen after Setup")

	// ErrNotSetup means Setup was not called.
	ErrNotSetup = errors.New("engine: Setup not called")

	// ErrNotEstablished means the handshake is not complete.
	ErrNotEstablished = errors.New("engine: handshake not complete")

	// ErrFreed means the engine has been freed.
	ErrFreed = errors.New("engine: engine has been freed")

	// ErrWriteBroken means a previous Write timed out in the middle
	// of a record, so the session cannot be written anymore.
	ErrWriteBroken = errors.New("engine: session unusable after a write timeout")

	// ErrHandshakePanic means the TLS library panicked during the handshake.
	ErrHandshakePanic = errors.New("engine: handshake panic")

	// ErrNoTrustAnchors means that verification is required but
	// the policy has no trust anchors.
	ErrNoTrustAnchors = errors.New("engine: verification required but no trust anchors")

	// ErrNoRand means the policy has no random number generator.
	ErrNoRand = errors.New("engine: no random number generator")
)

// session is the TLS client session of a specific library.
type session interface {
	Handshake() error
	Read(b []byte) (int, error)
	Write(b []byte) (int, error)
	CloseWrite() error
	ConnectionState() tls.ConnectionState
}

// sessionFactory creates a session of a specific library.
type sessionFactory func(conn net.Conn, policy *model.NegotiationPolicy) (session, error)

// Client is a model.Engine backed by a TLS library.
//
// The zero value is invalid; use NewStdlibEngine or NewUTLSEngine.
type Client struct {
	clock         clock.Clock
	conn          *bioConn
	configured    bool
	done          chan error
	freed         bool
	handshakeDone bool
	handshakeErr  error
	logger        model.Logger
	name          string
	newSession    sessionFactory
	policy        *model.NegotiationPolicy
	ready         bool
	sess          session
	writeBroken   bool
	writeTimeout  time.Duration
}

var _ model.Engine = &Client{}

// newClient creates a Client using the given session factory.
func newClient(opts *Options, name string, factory sessionFactory) *Client {
	if opts == nil {
		opts = &Options{}
	}
	c := &Client{
		clock:        opts.Clock,
		logger:       model.ValidLoggerOrDefault(opts.Logger),
		name:         name,
		newSession:   factory,
		writeTimeout: opts.WriteTimeout,
	}
	if c.clock == nil {
		c.clock = clock.New()
	}
	if c.writeTimeout <= 0 {
		c.writeTimeout = DefaultWriteTimeout
	}
	return c
}

// Defaults implements model.Engine.
func (c *Client) Defaults() error {
	if c.freed {
		return ErrFreed
	}
	if c.conn != nil {
		return ErrFrozen
	}
	c.policy = &model.NegotiationPolicy{}
	c.ready = true
	return nil
}

// Configure implements model.Engine.
func (c *Client) Configure(policy *model.NegotiationPolicy) error {
	if err := c.checkConfigurable(); err != nil {
		return err
	}
	if policy.AuthMode == model.AuthModeRequired && policy.RootCAs == nil {
		return ErrNoTrustAnchors
	}
	if policy.Rand == nil {
		return ErrNoRand
	}
	if policy.AuthMode != model.AuthModeRequired && policy.AuthMode != model.AuthModeNone {
		return fmt.Errorf("engine: unknown auth mode %s", policy.AuthMode)
	}
	c.policy.AuthMode = policy.AuthMode
	c.policy.Certificate = policy.Certificate
	c.policy.Profile = policy.Profile
	c.policy.Rand = policy.Rand
	c.policy.RootCAs = policy.RootCAs
	c.policy.VerifyName = policy.VerifyName
	if c.policy.Profile == nil {
		c.policy.Profile = model.DefaultCertProfile()
	}
	c.configured = true
	return nil
}

// SetALPN implements model.Engine.
func (c *Client) SetALPN(protos []string) error {
	if err := c.checkConfigurable(); err != nil {
		return err
	}
	c.policy.NextProtos = slices.Clone(protos)
	return nil
}

// SetServerName implements model.Engine.
func (c *Client) SetServerName(name string) error {
	if err := c.checkConfigurable(); err != nil {
		return err
	}
	c.policy.ServerName = name
	return nil
}

// SetMaxFragmentLength implements model.Engine. Neither crypto/tls nor
// utls can negotiate the max fragment length extension.
func (c *Client) SetMaxFragmentLength(size int) error {
	if err := c.checkConfigurable(); err != nil {
		return err
	}
	return model.ErrUnsupported
}

func (c *Client) checkConfigurable() error {
	switch {
	case c.freed:
		return ErrFreed
	case !c.ready:
		return ErrNotReady
	case c.conn != nil:
		return ErrFrozen
	default:
		return nil
	}
}

// Setup implements model.Engine.
func (c *Client) Setup(bio model.BIO) error {
	if err := c.checkConfigurable(); err != nil {
		return err
	}
	if !c.configured {
		return ErrNotConfigured
	}
	conn := newBioConn(bio, c.clock, c.writeTimeout)
	sess, err := c.newSession(conn, c.policy)
	if err != nil {
		return err
	}
	c.logger.Debugf("%s: setup {sni=%s verify=%s next=%+v auth=%s}", c.name, c.policy.ServerName,
		c.policy.VerificationName(), c.policy.NextProtos, c.policy.AuthMode)
	c.conn = conn
	c.sess = sess
	return nil
}

// Handshake implements model.Engine.
func (c *Client) Handshake() error {
	switch {
	case c.freed:
		return ErrFreed
	case c.sess == nil:
		return ErrNotSetup
	case c.handshakeDone:
		return c.handshakeErr
	}
	if c.done == nil {
		c.done = make(chan error, 1)
		go c.handshakeLoop(c.done)
	} else {
		c.conn.resume <- struct{}{}
	}
	select {
	case signal := <-c.conn.events:
		return signal
	case err := <-c.done:
		c.handshakeDone = true
		c.handshakeErr = err
		c.conn.parking = false
		return err
	}
}

// handshakeLoop runs the library handshake in the background.
func (c *Client) handshakeLoop(done chan<- error) {
	var err error
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %+v", ErrHandshakePanic, r)
		}
		done <- err
	}()
	err = c.sess.Handshake()
}

// Read implements model.Engine.
func (c *Client) Read(buf []byte) (int, error) {
	if err := c.checkEstablished(); err != nil {
		return 0, err
	}
	count, err := c.sess.Read(buf)
	if err != nil && count <= 0 && errors.Is(err, model.ErrWantRead) {
		return 0, model.ErrWantRead
	}
	return count, err
}

// Write implements model.Engine.
func (c *Client) Write(buf []byte) (int, error) {
	if err := c.checkEstablished(); err != nil {
		return 0, err
	}
	if c.writeBroken {
		return 0, ErrWriteBroken
	}
	count, err := c.sess.Write(buf)
	if err != nil && errors.Is(err, model.ErrTimeout) {
		c.logger.Warnf("%s: write timed out after %s", c.name, c.writeTimeout)
		c.writeBroken = true
		return 0, model.ErrTimeout
	}
	return count, err
}

func (c *Client) checkEstablished() error {
	switch {
	case c.freed:
		return ErrFreed
	case !c.handshakeDone || c.handshakeErr != nil:
		return ErrNotEstablished
	default:
		return nil
	}
}

// CloseNotify implements model.Engine.
func (c *Client) CloseNotify() error {
	if err := c.checkEstablished(); err != nil {
		return err
	}
	c.conn.noRetry = true
	err := c.sess.CloseWrite()
	if err != nil && errors.Is(err, model.ErrWantWrite) {
		return model.ErrWantWrite
	}
	return err
}

// ConnectionState implements model.Engine.
func (c *Client) ConnectionState() tls.ConnectionState {
	if c.checkEstablished() != nil {
		return tls.ConnectionState{}
	}
	return c.sess.ConnectionState()
}

// Free implements model.Engine. If the handshake goroutine is parked,
// we abort it and wait for it to terminate.
func (c *Client) Free() {
	if c.freed {
		return
	}
	c.freed = true
	if c.conn != nil {
		c.conn.Abort()
	}
	if c.done != nil && !c.handshakeDone {
		<-c.done
	}
	c.conn = nil
	c.policy = nil
	c.sess = nil
}
