package mocks

import (
	"crypto/tls"
	"errors"
	"testing"

	"github.com/devlink/tlstransport/internal/model"
)

func TestEngine(t *testing.T) {
	expected := errors.New("mocked error")

	t.Run("Defaults", func(t *testing.T) {
		e := &Engine{MockDefaults: func() error { return expected }}
		if err := e.Defaults(); !errors.Is(err, expected) {
			t.Fatal("unexpected err", err)
		}
	})

	t.Run("Configure", func(t *testing.T) {
		policy := &model.NegotiationPolicy{}
		var got *model.NegotiationPolicy
		e := &Engine{MockConfigure: func(p *model.NegotiationPolicy) error {
			got = p
			return nil
		}}
		if err := e.Configure(policy); err != nil {
			t.Fatal(err)
		}
		if got != policy {
			t.Fatal("unexpected policy")
		}
	})

	t.Run("SetALPN", func(t *testing.T) {
		e := &Engine{MockSetALPN: func(protos []string) error { return expected }}
		if err := e.SetALPN([]string{"h2"}); !errors.Is(err, expected) {
			t.Fatal("unexpected err", err)
		}
	})

	t.Run("SetServerName", func(t *testing.T) {
		e := &Engine{MockSetServerName: func(name string) error { return expected }}
		if err := e.SetServerName("example.com"); !errors.Is(err, expected) {
			t.Fatal("unexpected err", err)
		}
	})

	t.Run("SetMaxFragmentLength", func(t *testing.T) {
		e := &Engine{MockSetMaxFragmentLength: func(size int) error { return expected }}
		if err := e.SetMaxFragmentLength(4096); !errors.Is(err, expected) {
			t.Fatal("unexpected err", err)
		}
	})

	t.Run("Setup", func(t *testing.T) {
		e := &Engine{MockSetup: func(bio model.BIO) error { return expected }}
		if err := e.Setup(&BIO{}); !errors.Is(err, expected) {
			t.Fatal("unexpected err", err)
		}
	})

	t.Run("Handshake", func(t *testing.T) {
		e := &Engine{MockHandshake: func() error { return model.ErrWantRead }}
		if err := e.Handshake(); !errors.Is(err, model.ErrWantRead) {
			t.Fatal("unexpected err", err)
		}
	})

	t.Run("Read", func(t *testing.T) {
		e := &Engine{MockRead: func(buf []byte) (int, error) { return 0, expected }}
		if _, err := e.Read(nil); !errors.Is(err, expected) {
			t.Fatal("unexpected err", err)
		}
	})

	t.Run("Write", func(t *testing.T) {
		e := &Engine{MockWrite: func(buf []byte) (int, error) { return len(buf), nil }}
		count, err := e.Write(make([]byte, 7))
		if err != nil || count != 7 {
			t.Fatal("unexpected result", count, err)
		}
	})

	t.Run("CloseNotify", func(t *testing.T) {
		e := &Engine{MockCloseNotify: func() error { return expected }}
		if err := e.CloseNotify(); !errors.Is(err, expected) {
			t.Fatal("unexpected err", err)
		}
	})

	t.Run("ConnectionState", func(t *testing.T) {
		e := &Engine{MockConnectionState: func() tls.ConnectionState {
			return tls.ConnectionState{Version: tls.VersionTLS13}
		}}
		if e.ConnectionState().Version != tls.VersionTLS13 {
			t.Fatal("unexpected state")
		}
	})

	t.Run("Free", func(t *testing.T) {
		var called bool
		e := &Engine{MockFree: func() { called = true }}
		e.Free()
		if !called {
			t.Fatal("not called")
		}
	})
}

func TestBIO(t *testing.T) {
	b := &BIO{
		MockSend: func(buf []byte) (int, error) { return 0, model.ErrWantWrite },
		MockRecv: func(buf []byte) (int, error) { return 0, model.ErrWantRead },
	}
	if _, err := b.Send(nil); !errors.Is(err, model.ErrWantWrite) {
		t.Fatal("unexpected err", err)
	}
	if _, err := b.Recv(nil); !errors.Is(err, model.ErrWantRead) {
		t.Fatal("unexpected err", err)
	}
}
