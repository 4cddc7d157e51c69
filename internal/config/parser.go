// Package config contains the YAML connection profile used by the
// command line client.
package config

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"slices"
	"time"

	"github.com/devlink/tlstransport/internal/engine"
	"github.com/devlink/tlstransport/internal/model"
	"github.com/devlink/tlstransport/internal/tlstransport"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// These are the engines a profile may select.
const (
	EngineStdlib = "stdlib"
	EngineUTLS   = "utls"
)

// DefaultPort is the port we use when the profile does not set one.
const DefaultPort = 443

// ReadProfile reads the profile from the given path. Relative file
// names inside the profile are relative to the profile directory.
func ReadProfile(path string) (*Profile, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	p, err := ParseProfile(b)
	if err != nil {
		return nil, errors.Wrap(err, "parsing profile")
	}
	p.path = path
	return p, nil
}

// ParseProfile returns the profile from YAML bytes.
func ParseProfile(b []byte) (*Profile, error) {
	var p Profile
	dec := yaml.NewDecoder(bytes.NewReader(b))
	dec.KnownFields(true)
	if err := dec.Decode(&p); err != nil && !errors.Is(err, io.EOF) {
		return nil, errors.Wrap(err, "parsing yaml")
	}
	p.Default()
	if err := p.Validate(); err != nil {
		return nil, errors.Wrap(err, "validating")
	}
	return &p, nil
}

// Profile describes how to connect to a single server.
type Profile struct {
	Host               string        `yaml:"host"`
	Port               uint16        `yaml:"port"`
	CAFile             string        `yaml:"ca_file"`
	CertFile           string        `yaml:"cert_file,omitempty"`
	KeyFile            string        `yaml:"key_file,omitempty"`
	KeyPassword        string        `yaml:"key_password,omitempty"`
	ALPN               []string      `yaml:"alpn,omitempty"`
	DisableSNI         bool          `yaml:"disable_sni,omitempty"`
	RecvTimeout        time.Duration `yaml:"recv_timeout,omitempty"`
	SendTimeout        time.Duration `yaml:"send_timeout,omitempty"`
	HandshakeTimeout   time.Duration `yaml:"handshake_timeout,omitempty"`
	MaxFragmentLength  int           `yaml:"max_fragment_length,omitempty"`
	InsecureSkipVerify bool          `yaml:"insecure_skip_verify,omitempty"`
	Engine             string        `yaml:"engine,omitempty"`
	Fingerprint        string        `yaml:"fingerprint,omitempty"`

	path string
}

// Default fills the unset fields with their default values.
func (p *Profile) Default() {
	if p.Port == 0 {
		p.Port = DefaultPort
	}
	if p.Engine == "" {
		p.Engine = EngineStdlib
	}
	if p.HandshakeTimeout == 0 {
		p.HandshakeTimeout = tlstransport.DefaultHandshakeTimeout
	}
}

// Validate checks the profile.
func (p *Profile) Validate() error {
	if p.Host == "" {
		return errors.New("missing host")
	}
	if p.CAFile == "" {
		return errors.New("missing ca_file")
	}
	if p.RecvTimeout < 0 || p.SendTimeout < 0 || p.HandshakeTimeout < 0 {
		return errors.New("negative timeout")
	}
	switch p.MaxFragmentLength {
	case 0, 512, 1024, 2048, 4096:
	default:
		return errors.Errorf("invalid max_fragment_length: %d", p.MaxFragmentLength)
	}
	switch p.Engine {
	case EngineStdlib:
		if p.Fingerprint != "" {
			return errors.New("fingerprint requires the utls engine")
		}
	case EngineUTLS:
		if p.Fingerprint != "" && !slices.Contains(engine.Fingerprints(), p.Fingerprint) {
			return errors.Errorf("unknown fingerprint: %s", p.Fingerprint)
		}
	default:
		return errors.Errorf("unknown engine: %s", p.Engine)
	}
	return nil
}

// LoadCredentials reads the files named by the profile.
func (p *Profile) LoadCredentials() (*tlstransport.Credentials, error) {
	creds := &tlstransport.Credentials{
		ALPNProtos: p.ALPN,
		DisableSNI: p.DisableSNI,
	}
	var err error
	if creds.RootCA, err = p.readFile(p.CAFile); err != nil {
		return nil, errors.Wrap(err, "reading ca_file")
	}
	if creds.ClientCert, err = p.readFile(p.CertFile); err != nil {
		return nil, errors.Wrap(err, "reading cert_file")
	}
	if creds.PrivateKey, err = p.readFile(p.KeyFile); err != nil {
		return nil, errors.Wrap(err, "reading key_file")
	}
	if p.KeyPassword != "" {
		creds.PrivateKeyPassword = []byte(p.KeyPassword)
	}
	return creds, nil
}

// readFile reads the given file, if set, resolving it relative
// to the profile directory.
func (p *Profile) readFile(name string) ([]byte, error) {
	if name == "" {
		return nil, nil
	}
	if !filepath.IsAbs(name) && p.path != "" {
		name = filepath.Join(filepath.Dir(p.path), name)
	}
	return os.ReadFile(name)
}

// NewEngine returns the factory for the engine selected by the profile.
func (p *Profile) NewEngine(opts *engine.Options) model.EngineFactory {
	if p.Engine != EngineUTLS {
		return func() model.Engine {
			return engine.NewStdlibEngine(opts)
		}
	}
	return func() model.Engine {
		eng, err := engine.NewUTLSEngine(opts, p.Fingerprint)
		if err != nil {
			return nil // Validate prevents this from happening
		}
		return eng
	}
}

// TransportConfig returns the transport config for this profile. The
// caller is free to set the remaining fields.
func (p *Profile) TransportConfig(logger model.Logger) *tlstransport.Config {
	return &tlstransport.Config{
		Logger:             logger,
		NewEngine:          p.NewEngine(&engine.Options{Logger: logger}),
		HandshakeTimeout:   p.HandshakeTimeout,
		MaxFragmentLength:  p.MaxFragmentLength,
		InsecureSkipVerify: p.InsecureSkipVerify,
	}
}

// Write writes the profile in YAML format to the given path.
func (p *Profile) Write(path string) error {
	data, err := yaml.Marshal(p)
	if err != nil {
		return errors.Wrap(err, "marshalling profile")
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return errors.Wrap(err, "writing profile")
	}
	p.path = path
	return nil
}
