package config

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/devlink/tlstransport/internal/engine"
	"github.com/devlink/tlstransport/internal/testingx"
	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
)

func TestReadProfile(t *testing.T) {
	p, err := ReadProfile("testdata/profile.yaml")
	if err != nil {
		t.Fatal(err)
	}
	expect := &Profile{
		Host:              "broker.example.com",
		Port:              8883,
		CAFile:            "ca.pem",
		CertFile:          "device.pem",
		KeyFile:           "device.key",
		ALPN:              []string{"mqtt"},
		RecvTimeout:       5 * time.Second,
		SendTimeout:       5 * time.Second,
		HandshakeTimeout:  30 * time.Second,
		MaxFragmentLength: 2048,
		Engine:            EngineUTLS,
		Fingerprint:       "chrome",
	}
	if diff := cmp.Diff(expect, p, cmpopts.IgnoreUnexported(Profile{})); diff != "" {
		t.Fatal(diff)
	}
	if p.path != "testdata/profile.yaml" {
		t.Fatal("unexpected path", p.path)
	}

	t.Run("with a nonexistent file", func(t *testing.T) {
		if _, err := ReadProfile("testdata/nonexistent.yaml"); !os.IsNotExist(err) {
			t.Fatal("unexpected err", err)
		}
	})
}

func TestParseProfile(t *testing.T) {
	t.Run("we fill the defaults", func(t *testing.T) {
		p, err := ParseProfile([]byte("host: example.com\nca_file: /etc/ca.pem\n"))
		if err != nil {
			t.Fatal(err)
		}
		if p.Port != DefaultPort || p.Engine != EngineStdlib || p.HandshakeTimeout != time.Minute {
			t.Fatal("unexpected defaults", p)
		}
	})

	type testcase struct {
		name    string
		input   string
		wantErr string
	}

	var testcases = []testcase{{
		name:    "with empty input",
		input:   "",
		wantErr: "validating: missing host",
	}, {
		name:    "with invalid yaml",
		input:   "host: [",
		wantErr: "parsing yaml",
	}, {
		name:    "with an unknown field",
		input:   "host: example.com\nca_file: ca.pem\nverify: false\n",
		wantErr: "parsing yaml",
	}, {
		name:    "with a timeout that is not a duration",
		input:   "host: example.com\nca_file: ca.pem\nrecv_timeout: 5\n",
		wantErr: "parsing yaml",
	}, {
		name:    "without ca_file",
		input:   "host: example.com\n",
		wantErr: "validating: missing ca_file",
	}, {
		name:    "with a negative timeout",
		input:   "host: example.com\nca_file: ca.pem\nsend_timeout: -1s\n",
		wantErr: "validating: negative timeout",
	}, {
		name:    "with an invalid max fragment length",
		input:   "host: example.com\nca_file: ca.pem\nmax_fragment_length: 1000\n",
		wantErr: "validating: invalid max_fragment_length: 1000",
	}, {
		name:    "with an unknown engine",
		input:   "host: example.com\nca_file: ca.pem\nengine: boringssl\n",
		wantErr: "validating: unknown engine: boringssl",
	}, {
		name:    "with a fingerprint and the stdlib engine",
		input:   "host: example.com\nca_file: ca.pem\nfingerprint: chrome\n",
		wantErr: "validating: fingerprint requires the utls engine",
	}, {
		name:    "with an unknown fingerprint",
		input:   "host: example.com\nca_file: ca.pem\nengine: utls\nfingerprint: netscape\n",
		wantErr: "validating: unknown fingerprint: netscape",
	}}

	for _, tc := range testcases {
		t.Run(tc.name, func(t *testing.T) {
			p, err := ParseProfile([]byte(tc.input))
			if err == nil || !strings.HasPrefix(err.Error(), tc.wantErr) {
				t.Fatal("unexpected err", err)
			}
			if p != nil {
				t.Fatal("expected nil profile")
			}
		})
	}
}

// writeProfileDir writes the test profile and its credentials
// into a temporary directory and returns the profile path.
func writeProfileDir(t *testing.T) (string, *testingx.CA, *testingx.Leaf) {
	dir := t.TempDir()
	ca := testingx.MustNewCA("config test CA")
	leaf := ca.MustNewLeaf(&testingx.LeafConfig{CommonName: "device", ClientAuth: true})
	files := map[string][]byte{
		"ca.pem":     ca.CertPEM,
		"device.pem": leaf.CertPEM,
		"device.key": leaf.KeyPEM,
	}
	data, err := os.ReadFile("testdata/profile.yaml")
	if err != nil {
		t.Fatal(err)
	}
	files["profile.yaml"] = data
	for name, content := range files {
		if err := os.WriteFile(filepath.Join(dir, name), content, 0600); err != nil {
			t.Fatal(err)
		}
	}
	return filepath.Join(dir, "profile.yaml"), ca, leaf
}

func TestLoadCredentials(t *testing.T) {
	t.Run("with files relative to the profile", func(t *testing.T) {
		path, ca, leaf := writeProfileDir(t)
		p, err := ReadProfile(path)
		if err != nil {
			t.Fatal(err)
		}
		creds, err := p.LoadCredentials()
		if err != nil {
			t.Fatal(err)
		}
		if !bytes.Equal(creds.RootCA, ca.CertPEM) {
			t.Fatal("unexpected RootCA")
		}
		if !bytes.Equal(creds.ClientCert, leaf.CertPEM) || !bytes.Equal(creds.PrivateKey, leaf.KeyPEM) {
			t.Fatal("unexpected identity")
		}
		if diff := cmp.Diff([]string{"mqtt"}, creds.ALPNProtos); diff != "" {
			t.Fatal(diff)
		}
		if creds.PrivateKeyPassword != nil {
			t.Fatal("unexpected password")
		}
	})

	t.Run("without client identity", func(t *testing.T) {
		path, _, _ := writeProfileDir(t)
		p := &Profile{Host: "example.com", CAFile: path, KeyPassword: "secret"}
		creds, err := p.LoadCredentials()
		if err != nil {
			t.Fatal(err)
		}
		if creds.ClientCert != nil || creds.PrivateKey != nil {
			t.Fatal("unexpected identity")
		}
		if string(creds.PrivateKeyPassword) != "secret" {
			t.Fatal("unexpected password")
		}
	})

	t.Run("with a missing file", func(t *testing.T) {
		p := &Profile{Host: "example.com", CAFile: filepath.Join(t.TempDir(), "missing.pem")}
		_, err := p.LoadCredentials()
		if err == nil || !strings.HasPrefix(err.Error(), "reading ca_file") {
			t.Fatal("unexpected err", err)
		}
	})
}

func TestTransportConfig(t *testing.T) {
	p, err := ReadProfile("testdata/profile.yaml")
	if err != nil {
		t.Fatal(err)
	}
	config := p.TransportConfig(nil)
	if config.HandshakeTimeout != 30*time.Second || config.MaxFragmentLength != 2048 {
		t.Fatal("unexpected config", config)
	}
	eng := config.NewEngine()
	if eng == nil {
		t.Fatal("expected an engine")
	}
	defer eng.Free()
	if _, ok := eng.(*engine.Client); !ok {
		t.Fatalf("unexpected engine type %T", eng)
	}

	t.Run("with the stdlib engine", func(t *testing.T) {
		p := &Profile{Engine: EngineStdlib}
		eng := p.NewEngine(nil)()
		if eng == nil {
			t.Fatal("expected an engine")
		}
		eng.Free()
	})
}

func TestWrite(t *testing.T) {
	p, err := ReadProfile("testdata/profile.yaml")
	if err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(t.TempDir(), "saved.yaml")
	if err := p.Write(path); err != nil {
		t.Fatal(err)
	}
	saved, err := ReadProfile(path)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(p, saved, cmpopts.IgnoreUnexported(Profile{})); diff != "" {
		t.Fatal(diff)
	}
	if p.path != path {
		t.Fatal("Write should update the path")
	}
}
