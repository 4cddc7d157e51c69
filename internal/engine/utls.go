package engine

import (
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"net"

	"github.com/devlink/tlstransport/internal/model"
	utls "gitlab.com/yawning/utls.git"
)

// Fingerprints returns the names accepted by NewUTLSEngine.
func Fingerprints() []string {
	return []string{"golang", "chrome", "firefox", "randomized"}
}

// clientHelloID maps a fingerprint name to a utls.ClientHelloID.
func clientHelloID(fingerprint string) (*utls.ClientHelloID, error) {
	switch fingerprint {
	case "golang":
		return &utls.HelloGolang, nil
	case "chrome":
		return &utls.HelloChrome_Auto, nil
	case "firefox":
		return &utls.HelloFirefox_Auto, nil
	case "randomized":
		return &utls.HelloRandomized, nil
	default:
		return nil, fmt.Errorf("engine: unknown fingerprint: %s", fingerprint)
	}
}

// NewUTLSEngine creates an engine using gitlab.com/yawning/utls.git that
// mimics the ClientHello of the given fingerprint (see Fingerprints). An
// empty fingerprint is equivalent to "golang".
func NewUTLSEngine(opts *Options, fingerprint string) (*Client, error) {
	if fingerprint == "" {
		fingerprint = "golang"
	}
	id, err := clientHelloID(fingerprint)
	if err != nil {
		return nil, err
	}
	factory := func(conn net.Conn, policy *model.NegotiationPolicy) (session, error) {
		return &utlsSession{UConn: utls.UClient(conn, newUTLSConfig(policy), *id)}, nil
	}
	return newClient(opts, "utls/"+fingerprint, factory), nil
}

// newUTLSConfig converts the policy to a *utls.Config. This version
// of utls does not have VerifyConnection, so we use VerifyPeerCertificate.
func newUTLSConfig(policy *model.NegotiationPolicy) *utls.Config {
	config := &utls.Config{
		InsecureSkipVerify: true,
		MinVersion:         utls.VersionTLS12,
		NextProtos:         policy.NextProtos,
		Rand:               policy.Rand,
		RootCAs:            policy.RootCAs,
		ServerName:         policy.ServerName,
		VerifyPeerCertificate: func(rawCerts [][]byte, _ [][]*x509.Certificate) error {
			certs := make([]*x509.Certificate, 0, len(rawCerts))
			for _, raw := range rawCerts {
				cert, err := x509.ParseCertificate(raw)
				if err != nil {
					return err
				}
				certs = append(certs, cert)
			}
			return verifyPeer(policy, certs)
		},
	}
	if own := policy.Certificate; own != nil {
		config.Certificates = []utls.Certificate{{
			Certificate: own.Certificate,
			PrivateKey:  own.PrivateKey,
			Leaf:        own.Leaf,
		}}
	}
	return config
}

// utlsSession adapts *utls.UConn to session.
type utlsSession struct {
	*utls.UConn
}

// ConnectionState returns the crypto/tls view of the connection state.
func (s *utlsSession) ConnectionState() tls.ConnectionState {
	state := s.UConn.ConnectionState()
	return tls.ConnectionState{
		Version:            state.Version,
		HandshakeComplete:  state.HandshakeComplete,
		DidResume:          state.DidResume,
		CipherSuite:        state.CipherSuite,
		NegotiatedProtocol: state.NegotiatedProtocol,
		ServerName:         state.ServerName,
		PeerCertificates:   state.PeerCertificates,
		VerifiedChains:     state.VerifiedChains,
	}
}
