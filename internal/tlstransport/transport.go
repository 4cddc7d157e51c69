package tlstransport

import (
	"context"
	"crypto/tls"
	"errors"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/devlink/tlstransport/internal/engine"
	"github.com/devlink/tlstransport/internal/entropy"
	"github.com/devlink/tlstransport/internal/model"
	"github.com/google/uuid"
	"go.uber.org/multierr"
)

// DefaultHandshakeTimeout is the default value of Config.HandshakeTimeout.
const DefaultHandshakeTimeout = 60 * time.Second

// Config contains the transport configuration. The zero value is
// valid and every field is OPTIONAL.
type Config struct {
	// Logger is the logger to use. When nil, we don't log.
	Logger model.Logger

	// NewEngine creates the TLS engine. When nil, we use
	// the crypto/tls engine from the engine package.
	NewEngine model.EngineFactory

	// RNG is the random number generator. When nil, we use
	// the process-wide generator returned by entropy.Shared.
	RNG model.RNG

	// Clock is the clock bounding the handshake. When nil,
	// we use the wall clock.
	Clock clock.Clock

	// Observer receives connection statistics.
	Observer model.Observer

	// Family is the address family of the socket. When
	// zero, we use model.AFInet.
	Family model.SocketFamily

	// HandshakeTimeout bounds the handshake. When zero, we
	// use DefaultHandshakeTimeout.
	HandshakeTimeout time.Duration

	// MaxFragmentLength is the maximum fragment length to request
	// (512, 1024, 2048, or 4096). When zero, we don't request it.
	MaxFragmentLength int

	// InsecureSkipVerify disables the verification of the server
	// certificate. Every connection made this way logs a warning.
	InsecureSkipVerify bool

	// CertProfile restricts the server certificate chain. When nil,
	// we use model.DefaultCertProfile.
	CertProfile *model.CertProfile

	// RejectPartialIdentity causes Connect to fail when only one of the
	// client certificate and private key is set. By default we log a
	// warning and authenticate the server only.
	RejectPartialIdentity bool
}

// Transport is a client TLS connection over a model.SocketInterface. A
// Transport is reusable across Connect and Disconnect cycles until Free.
//
// A Transport is not safe for concurrent use.
type Transport struct {
	clock             clock.Clock
	engine            model.Engine
	family            model.SocketFamily
	freed             bool
	handle            model.SocketHandle
	handshakeTimeout  time.Duration
	id                string
	insecure          bool
	logger            model.Logger
	maxFragmentLength int
	newEngine         model.EngineFactory
	observer          model.Observer
	profile           *model.CertProfile
	rejectPartial     bool
	rng               model.RNG
	sock              model.SocketInterface
	state             State
}

// Allocate creates a new Transport using the given socket interface,
// which must outlive the Transport. A nil config is equivalent to an
// empty Config.
func Allocate(sock model.SocketInterface, config *Config) (*Transport, error) {
	if sock == nil {
		return nil, newErrWrapper(StatusInvalidParameter, classifyParameterError,
			AllocateOperation, ErrNilSocketInterface)
	}
	if config == nil {
		config = &Config{}
	}
	id := uuid.New().String()
	t := &Transport{
		clock:             config.Clock,
		engine:            nil,
		family:            config.Family,
		freed:             false,
		handle:            nil,
		handshakeTimeout:  config.HandshakeTimeout,
		id:                id,
		insecure:          config.InsecureSkipVerify,
		logger:            model.NewConnLogger(config.Logger, id),
		maxFragmentLength: config.MaxFragmentLength,
		newEngine:         config.NewEngine,
		observer:          model.ValidObserverOrDefault(config.Observer),
		profile:           config.CertProfile,
		rejectPartial:     config.RejectPartialIdentity,
		rng:               config.RNG,
		sock:              sock,
		state:             StateUnconnected,
	}
	if t.clock == nil {
		t.clock = clock.New()
	}
	if t.family == model.AFUnspec {
		t.family = model.AFInet
	}
	if t.handshakeTimeout <= 0 {
		t.handshakeTimeout = DefaultHandshakeTimeout
	}
	if t.newEngine == nil {
		t.newEngine = func() model.Engine {
			return engine.NewStdlibEngine(&engine.Options{Clock: t.clock, Logger: t.logger})
		}
	}
	if t.profile == nil {
		t.profile = model.DefaultCertProfile()
	}
	if t.rng == nil {
		t.rng = entropy.Shared()
	}
	return t, nil
}

// ID returns the unique ID of this Transport, which we include
// in every log message.
func (t *Transport) ID() string {
	return t.id
}

// State returns the current lifecycle state.
func (t *Transport) State() State {
	return t.state
}

// ConnectionState returns the state of the established session or
// the zero value if the session is not established.
func (t *Transport) ConnectionState() tls.ConnectionState {
	if t.state != StateEstablished || t.engine == nil {
		return tls.ConnectionState{}
	}
	return t.engine.ConnectionState()
}

// Connect establishes a TLS session with host:port. The receive and send
// timeouts bound every socket operation and zero means no timeout. If the
// Transport is already connected, we first close the existing connection.
//
// Connect is all or nothing: on failure, we release everything we have
// acquired and the Transport is unconnected. Use StatusOf to obtain the
// Status of the returned error.
func (t *Transport) Connect(ctx context.Context, host string, port uint16,
	creds *Credentials, recvTimeout, sendTimeout time.Duration) error {
	if t.freed {
		return newErrWrapper(StatusInvalidParameter, classifyParameterError, ValidateOperation, ErrFreed)
	}
	started := t.clock.Now()
	err := t.validate(host, port, creds, recvTimeout, sendTimeout)
	if err == nil {
		t.logger.Debugf("connect %s:%d...", host, port)
		err = t.connect(ctx, host, port, creds, recvTimeout, sendTimeout)
	}
	elapsed := t.clock.Since(started)
	t.observer.OnConnect(StatusOf(err).String(), elapsed)
	if err != nil {
		var wrapper *ErrWrapper
		_ = errors.As(err, &wrapper) // always an *ErrWrapper
		t.logger.Warnf("connect %s:%d... %s during %s (%s)", host, port,
			wrapper.Failure, wrapper.Operation, wrapper.Unwrap())
		return err
	}
	t.logger.Infof("connect %s:%d... ok in %s", host, port, elapsed)
	return nil
}

// validate validates the arguments of Connect without side effects.
func (t *Transport) validate(host string, port uint16, creds *Credentials,
	recvTimeout, sendTimeout time.Duration) error {
	var reason error
	switch {
	case host == "":
		reason = errors.New("tlstransport: empty host")
	case port == 0:
		reason = errors.New("tlstransport: zero port")
	case creds == nil:
		reason = errors.New("tlstransport: nil credentials")
	case len(creds.RootCA) <= 0:
		reason = errors.New("tlstransport: missing root CA")
	case recvTimeout < 0 || sendTimeout < 0:
		reason = errors.New("tlstransport: negative timeout")
	case t.rejectPartial && creds.hasPartialIdentity():
		reason = ErrPartialIdentity
	default:
		return nil
	}
	return newErrWrapper(StatusInvalidParameter, classifyParameterError, ValidateOperation, reason)
}

// connect runs the setup sequence and releases everything on failure.
func (t *Transport) connect(ctx context.Context, host string, port uint16,
	creds *Credentials, recvTimeout, sendTimeout time.Duration) error {
	if t.handle != nil || t.engine != nil {
		t.logger.Debug("reconnect: closing the previous connection")
		t.release()
	}
	err := t.setup(ctx, host, port, creds, recvTimeout, sendTimeout)
	if err != nil {
		t.state = StateClosing
		t.release()
		return err
	}
	t.state = StateEstablished
	return nil
}

func (t *Transport) setup(ctx context.Context, host string, port uint16,
	creds *Credentials, recvTimeout, sendTimeout time.Duration) error {
	t.state = StateSocketOpening
	handle := t.sock.Socket(t.family, model.SockStream, model.IPProtoTCP)
	if handle == nil {
		return newErrWrapper(StatusInternalError, classifyGenericError, SocketOperation, ErrSocketCreation)
	}
	t.handle = handle

	if err := t.sock.SetSockopt(handle, model.SockoptRecvTimeout, recvTimeout); err != nil {
		return newErrWrapper(StatusInvalidParameter, classifyGenericError, SetsockoptOperation, err)
	}
	if err := t.sock.SetSockopt(handle, model.SockoptSendTimeout, sendTimeout); err != nil {
		return newErrWrapper(StatusInvalidParameter, classifyGenericError, SetsockoptOperation, err)
	}

	if err := t.sock.ConnectByName(ctx, handle, host, port); err != nil {
		return newErrWrapper(StatusConnectFailure, classifyConnectError, ConnectOperation, err)
	}
	t.state = StateSocketConnected

	if err := t.rng.Seed(); err != nil {
		return newErrWrapper(StatusInternalError, classifyGenericError, SeedOperation, err)
	}

	eng := t.newEngine()
	if eng == nil {
		return newErrWrapper(StatusInsufficientMemory, classifyGenericError, ConfigDefaultsOperation, ErrNilEngine)
	}
	t.engine = eng
	if err := eng.Defaults(); err != nil {
		return newErrWrapper(StatusInsufficientMemory, classifyGenericError, ConfigDefaultsOperation, err)
	}

	policy, err := t.configureCredentials(eng, host, creds)
	if err != nil {
		return newErrWrapper(StatusInvalidCredentials, classifyCredentialsError, CredentialsOperation, err)
	}
	t.state = StateCredentialsConfigured

	t.configureOptional(eng, policy, host, creds)

	bio := &ioAdapter{handle: handle, sock: t.sock}
	if err := eng.Setup(bio); err != nil {
		return newErrWrapper(StatusInternalError, classifyGenericError, SetupOperation, err)
	}
	t.state = StateHandshaking
	deadline := t.clock.Now().Add(t.handshakeTimeout)
	bio.startHandshake(ctx, t.clock, deadline, recvTimeout, sendTimeout)
	if err := t.handshake(ctx, eng, deadline); err != nil {
		return err
	}
	if err := bio.finishHandshake(); err != nil {
		return newErrWrapper(StatusInvalidParameter, classifyGenericError, SetsockoptOperation, err)
	}
	return nil
}

// configureCredentials loads the credentials and binds them, together
// with the RNG and the certificate profile, to the engine.
func (t *Transport) configureCredentials(
	eng model.Engine, host string, creds *Credentials) (*model.NegotiationPolicy, error) {
	if creds.hasPartialIdentity() {
		t.logger.Warn("client certificate and private key must be provided together: " +
			"ignoring them and authenticating the server only")
	}
	store, err := loadCredentials(creds)
	if err != nil {
		return nil, err
	}
	policy := &model.NegotiationPolicy{
		Profile:     t.profile,
		AuthMode:    model.AuthModeRequired,
		RootCAs:     store.roots,
		Certificate: store.own,
		Rand:        t.rng,
	}
	if !creds.DisableSNI {
		policy.VerifyName = verificationName(host)
	}
	if t.insecure {
		t.logger.Warnf("NOT verifying the certificate of %s", host)
		policy.AuthMode = model.AuthModeNone
	}
	if err := eng.Configure(policy); err != nil {
		return nil, err
	}
	return policy, nil
}

// Disconnect sends close_notify, closes the socket, and frees the
// engine. It is safe to call Disconnect on an unconnected Transport and
// to call it more than once. Teardown always completes; the returned
// error, if any, combines the errors that occurred along the way.
func (t *Transport) Disconnect() error {
	if t.handle == nil && t.engine == nil {
		t.state = StateUnconnected
		return nil
	}
	t.state = StateClosing
	var err error
	if t.engine != nil {
		if cerr := t.engine.CloseNotify(); cerr != nil {
			if model.IsRetrySignal(cerr) {
				t.logger.Debugf("close_notify... %s (ignored)", cerr)
			} else {
				err = multierr.Append(err, cerr)
			}
		}
	}
	err = multierr.Append(err, t.release())
	if err != nil {
		t.logger.Warnf("disconnect... %s", err)
		return err
	}
	t.logger.Info("disconnect... ok")
	return nil
}

// release closes the socket and frees the engine, leaving the
// Transport unconnected. It returns the socket close error, if any.
func (t *Transport) release() error {
	var err error
	if t.handle != nil {
		err = t.sock.Close(t.handle)
		t.handle = nil
	}
	if t.engine != nil {
		t.engine.Free()
		t.engine = nil
	}
	t.state = StateUnconnected
	return err
}

// Free disconnects, if needed, and makes the Transport unusable. It is
// safe to call Free more than once. Free does not touch the RNG, which
// may be shared with other transports.
func (t *Transport) Free() {
	if t.freed {
		return
	}
	_ = t.Disconnect()
	t.freed = true
}
