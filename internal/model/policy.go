package model

//
// Negotiation policy
//

import (
	"crypto/ecdsa"
	"crypto/ed25519"
	"crypto/rsa"
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"io"
	"slices"
)

// AuthMode is the peer verification mode.
type AuthMode int

const (
	// AuthModeRequired requires the server certificate chain to be valid
	// with respect to the trust anchors. This is the zero value, so a
	// policy cannot lose verification by being left uninitialized.
	AuthModeRequired = AuthMode(0)

	// AuthModeNone disables the verification of the server certificate.
	AuthModeNone = AuthMode(1)
)

// String implements fmt.Stringer.
func (m AuthMode) String() string {
	switch m {
	case AuthModeRequired:
		return "required"
	case AuthModeNone:
		return "none"
	default:
		return fmt.Sprintf("authmode(%d)", int(m))
	}
}

// NegotiationPolicy is the engine-facing configuration of a single
// connection attempt. The transport builds it before the handshake
// and never modifies it afterwards.
type NegotiationPolicy struct {
	// Profile is the certificate security profile.
	Profile *CertProfile

	// AuthMode is the peer verification mode.
	AuthMode AuthMode

	// RootCAs contains the trust anchors.
	RootCAs *x509.CertPool

	// Certificate is the OPTIONAL client certificate and key.
	Certificate *tls.Certificate

	// Rand is the random number generator.
	Rand io.Reader

	// ServerName is the SNI host name. Empty when SNI is disabled or
	// when setting it failed.
	ServerName string

	// VerifyName is the name the server certificate must be valid for.
	// Empty only when SNI is disabled, in which case we verify the chain
	// without checking the name. It does not depend on ServerName, so a
	// failure to set the SNI never disables the name check.
	VerifyName string

	// NextProtos is the ALPN protocol list.
	NextProtos []string

	// MaxFragmentLength is the requested maximum fragment length or zero.
	MaxFragmentLength int
}

// VerificationName returns the name to verify the server certificate
// against: VerifyName, or ServerName for policies that set only the SNI.
func (p *NegotiationPolicy) VerificationName() string {
	if p.VerifyName != "" {
		return p.VerifyName
	}
	return p.ServerName
}

// CertProfile restricts the keys and signature algorithms we accept
// along the server certificate chain.
type CertProfile struct {
	// MinRSABits is the minimum RSA modulus size.
	MinRSABits int

	// MinECDSABits is the minimum size of ECDSA curves.
	MinECDSABits int

	// AllowEd25519 controls whether we accept Ed25519 keys.
	AllowEd25519 bool

	// SignatureAlgorithms lists the acceptable certificate signatures.
	SignatureAlgorithms []x509.SignatureAlgorithm
}

// DefaultCertProfile returns the conservative default profile: RSA keys
// of at least 2048 bits, ECDSA on P-256 or larger, Ed25519, and SHA-2
// based signatures only.
func DefaultCertProfile() *CertProfile {
	return &CertProfile{
		MinRSABits:   2048,
		MinECDSABits: 256,
		AllowEd25519: true,
		SignatureAlgorithms: []x509.SignatureAlgorithm{
			x509.SHA256WithRSA,
			x509.SHA384WithRSA,
			x509.SHA512WithRSA,
			x509.ECDSAWithSHA256,
			x509.ECDSAWithSHA384,
			x509.ECDSAWithSHA512,
			x509.SHA256WithRSAPSS,
			x509.SHA384WithRSAPSS,
			x509.SHA512WithRSAPSS,
			x509.PureEd25519,
		},
	}
}

// ProfileError indicates that a certificate violates the CertProfile.
type ProfileError struct {
	Cert   *x509.Certificate
	Reason string
}

// Error implements error.
func (e *ProfileError) Error() string {
	return fmt.Sprintf("x509: certificate %q rejected by profile: %s", e.Cert.Subject.CommonName, e.Reason)
}

// CheckChain checks every certificate of a verified chain, which starts
// with the leaf and ends with the trust anchor. We check the keys of all
// the certificates and the signatures of all but the trust anchor, whose
// signature we never rely upon.
func (p *CertProfile) CheckChain(chain []*x509.Certificate) error {
	for idx, cert := range chain {
		if err := p.checkKey(cert); err != nil {
			return err
		}
		if idx == len(chain)-1 && idx > 0 {
			break
		}
		if !slices.Contains(p.SignatureAlgorithms, cert.SignatureAlgorithm) {
			return &ProfileError{Cert: cert, Reason: "signature algorithm " + cert.SignatureAlgorithm.String()}
		}
	}
	return nil
}

func (p *CertProfile) checkKey(cert *x509.Certificate) error {
	switch key := cert.PublicKey.(type) {
	case *rsa.PublicKey:
		if bits := key.N.BitLen(); bits < p.MinRSABits {
			return &ProfileError{Cert: cert, Reason: fmt.Sprintf("RSA key too small (%d bits)", bits)}
		}
	case *ecdsa.PublicKey:
		if bits := key.Curve.Params().BitSize; bits < p.MinECDSABits {
			return &ProfileError{Cert: cert, Reason: fmt.Sprintf("ECDSA curve too small (%d bits)", bits)}
		}
	case ed25519.PublicKey:
		if !p.AllowEd25519 {
			return &ProfileError{Cert: cert, Reason: "Ed25519 keys not allowed"}
		}
	default:
		return &ProfileError{Cert: cert, Reason: fmt.Sprintf("unsupported key type %T", key)}
	}
	return nil
}
