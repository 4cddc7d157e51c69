package testingx

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"io"
	"net"
	"strconv"
	"sync"
	"time"

	"github.com/apex/log"
	"github.com/devlink/tlstransport/internal/runtimex"
)

// TLSHandler handles TLS connections. A handler should first handle the TLS handshake
// in the GetCertificate method. If GetCertificate did not return an error, and the
// handler implements [TLSConnHandler], its HandleTLSConn method will be called after
// the handshake to handle the lifecycle of the TLS conn itself.
type TLSHandler interface {
	// GetCertificate handles the TLS handshake.
	GetCertificate(ctx context.Context, tcpConn net.Conn, chi *tls.ClientHelloInfo) (*tls.Certificate, error)
}

// TLSConn is the interface assumed by an established TLS conn.
type TLSConn interface {
	ConnectionState() tls.ConnectionState
	net.Conn
}

// TLSConnHandler is the interface implemented by handlers that want to handle
// and manage the established TLS connection after the handshake.
type TLSConnHandler interface {
	HandleTLSConn(conn TLSConn)
}

// TLSClientAuthHandler is the interface implemented by handlers that
// require and verify a client certificate issued by ClientCAs.
type TLSClientAuthHandler interface {
	ClientCAs() *x509.CertPool
}

// TLSServer is a TLS server useful to implement test servers.
type TLSServer struct {
	// cancel unblocks background goroutines blocked on the context contolling their lifecycle.
	cancel context.CancelFunc

	// closeOnce provides "once" semantics when closing.
	closeOnce sync.Once

	// endpoint is the endpoint where we're listening.
	endpoint string

	// handler contains the TLSHandler.
	handler TLSHandler

	// listener is the listening socket controller.
	listener net.Listener

	// wg waits until the listening loop has finished running.
	wg sync.WaitGroup
}

// MustNewTLSServer creates and starts a new TLSServer listening on
// 127.0.0.1 that executes the given handler.
func MustNewTLSServer(handler TLSHandler) *TLSServer {
	listener := runtimex.Try1(net.ListenTCP("tcp", &net.TCPAddr{IP: net.IPv4(127, 0, 0, 1)}))

	// create context for interrupting goroutines blocked in the background
	ctx, cancel := context.WithCancel(context.Background())

	srv := &TLSServer{
		cancel:    cancel,
		closeOnce: sync.Once{},
		endpoint:  listener.Addr().String(),
		handler:   handler,
		listener:  listener,
		wg:        sync.WaitGroup{},
	}

	srv.wg.Add(1)
	go srv.mainloop(ctx)

	return srv
}

// Endpoint returns the endpoint where the server is listening.
func (p *TLSServer) Endpoint() string {
	return p.endpoint
}

// Host returns the host where the server is listening.
func (p *TLSServer) Host() string {
	host, _ := runtimex.Try2(net.SplitHostPort(p.endpoint))
	return host
}

// Port returns the port where the server is listening.
func (p *TLSServer) Port() uint16 {
	_, port := runtimex.Try2(net.SplitHostPort(p.endpoint))
	return uint16(runtimex.Try1(strconv.ParseUint(port, 10, 16)))
}

// Close closes this server as soon as possible.
func (p *TLSServer) Close() (err error) {
	p.closeOnce.Do(func() {
		err = p.listener.Close()
		p.cancel()
		p.wg.Wait()
	})
	return
}

func (p *TLSServer) mainloop(ctx context.Context) {
	defer p.wg.Done()
	for {
		conn, err := p.listener.Accept()
		if errors.Is(err, net.ErrClosed) {
			return
		}
		if err != nil {
			log.Warnf("TLSServer.mainloop: %s", err)
			return
		}
		// one goroutine per connection is reasonable for a testing server
		go p.handle(ctx, conn)
	}
}

func (p *TLSServer) handle(ctx context.Context, tcpConn net.Conn) {
	defer runtimex.CatchLogAndIgnorePanic(log.Log, "TLSServer.handle")
	defer tcpConn.Close()

	tlsConfig := &tls.Config{
		GetCertificate: func(chi *tls.ClientHelloInfo) (*tls.Certificate, error) {
			return p.handler.GetCertificate(ctx, tcpConn, chi)
		},
	}
	if h, good := p.handler.(TLSClientAuthHandler); good {
		tlsConfig.ClientAuth = tls.RequireAndVerifyClientCert
		tlsConfig.ClientCAs = h.ClientCAs()
	}

	tlsConn := tls.Server(tcpConn, tlsConfig)
	if err := tlsConn.Handshake(); err != nil {
		return
	}
	defer tlsConn.Close()

	if h, good := p.handler.(TLSConnHandler); good {
		h.HandleTLSConn(tlsConn)
	}
}

// TLSHandlerEcho returns a [TLSHandler] that completes the handshake using
// the given certificate and echoes back what it reads until EOF.
func TLSHandlerEcho(cert *tls.Certificate) TLSHandler {
	return &tlsHandlerEcho{cert: cert}
}

// TLSHandlerEchoWithClientAuth is like TLSHandlerEcho but requires a
// client certificate issued by one of the given CAs.
func TLSHandlerEchoWithClientAuth(cert *tls.Certificate, clientCAs *x509.CertPool) TLSHandler {
	return &tlsHandlerEchoWithClientAuth{tlsHandlerEcho{cert: cert}, clientCAs}
}

var _ TLSConnHandler = &tlsHandlerEcho{}

type tlsHandlerEcho struct {
	cert *tls.Certificate
}

// GetCertificate implements TLSHandler.
func (thx *tlsHandlerEcho) GetCertificate(
	ctx context.Context, tcpConn net.Conn, chi *tls.ClientHelloInfo) (*tls.Certificate, error) {
	return thx.cert, nil
}

// HandleTLSConn implements TLSConnHandler.
func (thx *tlsHandlerEcho) HandleTLSConn(conn TLSConn) {
	_, _ = io.Copy(conn, conn)
}

var _ TLSClientAuthHandler = &tlsHandlerEchoWithClientAuth{}

type tlsHandlerEchoWithClientAuth struct {
	tlsHandlerEcho
	clientCAs *x509.CertPool
}

// ClientCAs implements TLSClientAuthHandler.
func (thx *tlsHandlerEchoWithClientAuth) ClientCAs() *x509.CertPool {
	return thx.clientCAs
}

// TLSHandlerWriteTextAndWait returns a [TLSHandler] that completes the handshake,
// writes the given text, and then waits for the client to close the connection.
func TLSHandlerWriteTextAndWait(cert *tls.Certificate, text []byte) TLSHandler {
	return &tlsHandlerWriteTextAndWait{tlsHandlerEcho{cert: cert}, text}
}

type tlsHandlerWriteTextAndWait struct {
	tlsHandlerEcho
	text []byte
}

// HandleTLSConn implements TLSConnHandler.
func (thx *tlsHandlerWriteTextAndWait) HandleTLSConn(conn TLSConn) {
	_, _ = conn.Write(thx.text)
	_, _ = io.Copy(io.Discard, conn)
}

// TLSHandlerTimeout returns a [TLSHandler] that reads the ClientHello and
// never answers, eventually causing the client handshake to time out.
func TLSHandlerTimeout() TLSHandler {
	return &tlsHandlerTimeout{
		timeout: 300 * time.Second,
	}
}

type tlsHandlerTimeout struct {
	timeout time.Duration
}

// GetCertificate implements TLSHandler.
func (thx *tlsHandlerTimeout) GetCertificate(
	ctx context.Context, tcpConn net.Conn, chi *tls.ClientHelloInfo) (*tls.Certificate, error) {
	defer tcpConn.Close() // one way or another we want to close the TCP conn in the middle of the handshake
	select {
	case <-time.After(thx.timeout):
		return nil, errors.New("internal error")
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

const (
	// TLSAlertHandshakeFailure is the alert sent when negotiation fails.
	TLSAlertHandshakeFailure = byte(40)

	// TLSAlertInternalError is the alert sent on internal errors.
	TLSAlertInternalError = byte(80)
)

// TLSHandlerSendAlert sends the alert given as argument to the client.
func TLSHandlerSendAlert(alert byte) TLSHandler {
	return &tlsHandlerSendAlert{alert}
}

type tlsHandlerSendAlert struct {
	alert byte
}

// GetCertificate implements TLSHandler.
func (thx *tlsHandlerSendAlert) GetCertificate(
	ctx context.Context, tcpConn net.Conn, chi *tls.ClientHelloInfo) (*tls.Certificate, error) {
	alertdata := []byte{
		21, // alert
		3,  // version[0]
		3,  // version[1]
		0,  // length[0]
		2,  // length[1]
		2,  // fatal
		thx.alert,
	}
	_, _ = tcpConn.Write(alertdata)
	_ = tcpConn.Close() // close connection to avoid the caller trying to send another alert
	return nil, errors.New("internal error")
}

// TLSHandlerEOF closes the connection during the handshake.
func TLSHandlerEOF() TLSHandler {
	return &tlsHandlerEOF{}
}

type tlsHandlerEOF struct{}

// GetCertificate implements TLSHandler.
func (*tlsHandlerEOF) GetCertificate(ctx context.Context, tcpConn net.Conn, chi *tls.ClientHelloInfo) (*tls.Certificate, error) {
	tcpConn.Close() // close the TCP connection to force EOF during the handshake
	return nil, errors.New("internal error")
}

// TLSHandlerReset resets the connection during the handshake.
func TLSHandlerReset() TLSHandler {
	return &tlsHandlerReset{}
}

type tlsHandlerReset struct{}

// GetCertificate implements TLSHandler.
func (*tlsHandlerReset) GetCertificate(ctx context.Context, tcpConn net.Conn, chi *tls.ClientHelloInfo) (*tls.Certificate, error) {
	if setter, good := tcpConn.(interface{ SetLinger(sec int) error }); good {
		_ = setter.SetLinger(0)
	}
	tcpConn.Close() // with linger set to zero, closing sends a RST
	return nil, errors.New("internal error")
}
