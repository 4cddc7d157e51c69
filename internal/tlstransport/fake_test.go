package tlstransport

import (
	"context"
	"crypto/tls"
	"fmt"
	"strings"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/devlink/tlstransport/internal/model"
	"github.com/devlink/tlstransport/internal/model/mocks"
	"github.com/devlink/tlstransport/internal/testingx"
)

// testCA signs the certificates used by the tests of this package.
var testCA = testingx.MustNewCA("tlstransport test CA")

// fakeStack is a socket interface, an engine, an RNG, and an observer
// that record the calls the transport makes in a single list.
type fakeStack struct {
	calls      []string
	clock      *clock.Mock
	configured model.NegotiationPolicy
	engine     *mocks.Engine
	handles    int
	handshakes []string
	logs       []string
	observer   *mocks.Observer
	policy     *model.NegotiationPolicy
	rng        *mocks.RNG
	sock       *mocks.SocketInterface
}

func newFakeStack() *fakeStack {
	fs := &fakeStack{clock: clock.NewMock()}
	fs.sock = &mocks.SocketInterface{
		MockSocket: func(family model.SocketFamily, stype model.SocketType,
			protocol model.SocketProtocol) model.SocketHandle {
			fs.record("socket")
			fs.handles++
			return fs.handles
		},
		MockConnectByName: func(ctx context.Context, handle model.SocketHandle, host string, port uint16) error {
			fs.record("connect")
			return nil
		},
		MockSend: func(handle model.SocketHandle, buf []byte) (int, error) {
			return len(buf), nil
		},
		MockRecv: func(handle model.SocketHandle, buf []byte) (int, error) {
			return 0, nil
		},
		MockSetSockopt: func(handle model.SocketHandle, option model.SocketOption, value time.Duration) error {
			fs.record("setsockopt")
			return nil
		},
		MockClose: func(handle model.SocketHandle) error {
			fs.record(fmt.Sprintf("close#%v", handle))
			return nil
		},
	}
	fs.engine = &mocks.Engine{
		MockDefaults: func() error {
			fs.record("defaults")
			return nil
		},
		MockConfigure: func(policy *model.NegotiationPolicy) error {
			fs.record("configure")
			fs.configured = *policy
			fs.policy = policy
			return nil
		},
		MockSetALPN: func(protos []string) error {
			fs.record("alpn:" + strings.Join(protos, ","))
			return nil
		},
		MockSetServerName: func(name string) error {
			fs.record("sni:" + name)
			return nil
		},
		MockSetMaxFragmentLength: func(size int) error {
			fs.record(fmt.Sprintf("mfl:%d", size))
			return nil
		},
		MockSetup: func(bio model.BIO) error {
			fs.record("setup")
			return nil
		},
		MockHandshake: func() error {
			fs.record("handshake")
			return nil
		},
		MockRead: func(buf []byte) (int, error) {
			return copy(buf, "pong"), nil
		},
		MockWrite: func(buf []byte) (int, error) {
			return len(buf), nil
		},
		MockCloseNotify: func() error {
			fs.record("close_notify")
			return nil
		},
		MockConnectionState: func() tls.ConnectionState {
			return tls.ConnectionState{
				Version:           tls.VersionTLS13,
				CipherSuite:       tls.TLS_AES_128_GCM_SHA256,
				HandshakeComplete: true,
			}
		},
		MockFree: func() {
			fs.record("free")
		},
	}
	fs.rng = &mocks.RNG{
		MockRead: func(p []byte) (int, error) {
			return len(p), nil
		},
		MockSeed: func() error {
			fs.record("seed")
			return nil
		},
	}
	fs.observer = &mocks.Observer{
		MockOnConnect: func(status string, elapsed time.Duration) {
			fs.handshakes = append(fs.handshakes, "connect:"+status)
		},
		MockOnHandshake: func(steps int, err error) {
			fs.handshakes = append(fs.handshakes, fmt.Sprintf("handshake:%d", steps))
		},
		MockOnTransfer: func(operation string, count int) {
			fs.handshakes = append(fs.handshakes, fmt.Sprintf("%s:%d", operation, count))
		},
	}
	return fs
}

func (fs *fakeStack) record(call string) {
	fs.calls = append(fs.calls, call)
}

// logger returns a logger that records every message with its level.
func (fs *fakeStack) logger() model.Logger {
	return &mocks.Logger{
		MockDebug: func(message string) {
			fs.logs = append(fs.logs, "debug: "+message)
		},
		MockDebugf: func(format string, v ...interface{}) {
			fs.logs = append(fs.logs, "debug: "+fmt.Sprintf(format, v...))
		},
		MockInfo: func(message string) {
			fs.logs = append(fs.logs, "info: "+message)
		},
		MockInfof: func(format string, v ...interface{}) {
			fs.logs = append(fs.logs, "info: "+fmt.Sprintf(format, v...))
		},
		MockWarn: func(message string) {
			fs.logs = append(fs.logs, "warn: "+message)
		},
		MockWarnf: func(format string, v ...interface{}) {
			fs.logs = append(fs.logs, "warn: "+fmt.Sprintf(format, v...))
		},
	}
}

// warnings returns the warnings logged so far.
func (fs *fakeStack) warnings() (out []string) {
	for _, line := range fs.logs {
		if strings.HasPrefix(line, "warn: ") {
			out = append(out, line)
		}
	}
	return
}

func (fs *fakeStack) config() *Config {
	return &Config{
		Logger: fs.logger(),
		NewEngine: func() model.Engine {
			fs.record("new_engine")
			return fs.engine
		},
		RNG:      fs.rng,
		Clock:    fs.clock,
		Observer: fs.observer,
	}
}

// transport allocates a transport using the given config, which
// should have been obtained from fs.config.
func (fs *fakeStack) transport(config *Config) *Transport {
	txp, err := Allocate(fs.sock, config)
	if err != nil {
		panic(err)
	}
	return txp
}

// connect connects to example.com:443 using the test CA.
func (fs *fakeStack) connect(txp *Transport) error {
	return txp.Connect(context.Background(), "example.com", 443, newTestCredentials(), 0, 0)
}

func newTestCredentials() *Credentials {
	return &Credentials{RootCA: testCA.CertPEM}
}

// successCalls are the calls of a successful Connect with the first handle.
var successCalls = []string{
	"socket",
	"setsockopt",
	"setsockopt",
	"connect",
	"seed",
	"new_engine",
	"defaults",
	"configure",
	"sni:example.com",
	"setup",
	"handshake",
}
