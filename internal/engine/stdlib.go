package engine

import (
	"crypto/tls"
	"net"

	"github.com/devlink/tlstransport/internal/model"
)

// NewStdlibEngine creates an engine using crypto/tls.
func NewStdlibEngine(opts *Options) *Client {
	return newClient(opts, "stdlib", newStdlibSession)
}

// newStdlibSession is the sessionFactory for crypto/tls.
func newStdlibSession(conn net.Conn, policy *model.NegotiationPolicy) (session, error) {
	return tls.Client(conn, newStdlibConfig(policy)), nil
}

// newStdlibConfig converts the policy to a *tls.Config. We disable the
// verification of crypto/tls, which is tied to the SNI, and verify the
// peer ourselves in VerifyConnection.
func newStdlibConfig(policy *model.NegotiationPolicy) *tls.Config {
	config := &tls.Config{
		InsecureSkipVerify: true,
		MinVersion:         tls.VersionTLS12,
		NextProtos:         policy.NextProtos,
		Rand:               policy.Rand,
		RootCAs:            policy.RootCAs,
		ServerName:         policy.ServerName,
		VerifyConnection: func(state tls.ConnectionState) error {
			return verifyPeer(policy, state.PeerCertificates)
		},
	}
	if policy.Certificate != nil {
		config.Certificates = []tls.Certificate{*policy.Certificate}
	}
	return config
}
