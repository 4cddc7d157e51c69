package engine

import (
	"crypto/tls"
	"crypto/x509"
	"errors"

	"github.com/devlink/tlstransport/internal/model"
)

// errNoPeerCertificates means the server did not send certificates.
var errNoPeerCertificates = errors.New("engine: server sent no certificates")

// verifyChain verifies the server chain against the roots and, unless
// name is empty, checks that the leaf is valid for name.
func verifyChain(certs []*x509.Certificate, roots *x509.CertPool, name string) ([][]*x509.Certificate, error) {
	if len(certs) <= 0 {
		return nil, errNoPeerCertificates
	}
	opts := x509.VerifyOptions{
		DNSName:       name,
		Roots:         roots,
		Intermediates: x509.NewCertPool(),
		KeyUsages:     []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth},
	}
	for _, cert := range certs[1:] {
		opts.Intermediates.AddCert(cert)
	}
	chains, err := certs[0].Verify(opts)
	if err != nil {
		return nil, &tls.CertificateVerificationError{UnverifiedCertificates: certs, Err: err}
	}
	return chains, nil
}

// checkProfile accepts the verified chains if at least one of them
// satisfies the profile, and otherwise returns the first violation.
func checkProfile(profile *model.CertProfile, chains [][]*x509.Certificate) error {
	var first error
	for _, chain := range chains {
		err := profile.CheckChain(chain)
		if err == nil {
			return nil
		}
		if first == nil {
			first = err
		}
	}
	if first == nil {
		return errNoPeerCertificates
	}
	return first
}

// verifyPeer implements the verification policy given the certificates
// sent by the server. The libraries never verify on their own, since the
// name we verify may differ from the SNI we send.
func verifyPeer(policy *model.NegotiationPolicy, certs []*x509.Certificate) error {
	if policy.AuthMode == model.AuthModeNone {
		return nil
	}
	chains, err := verifyChain(certs, policy.RootCAs, policy.VerificationName())
	if err != nil {
		return err
	}
	return checkProfile(policy.Profile, chains)
}
