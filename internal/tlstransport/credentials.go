package tlstransport

//
// Credential store
//

import (
	"bytes"
	"crypto"
	"crypto/ecdsa"
	"crypto/ed25519"
	"crypto/rsa"
	"crypto/tls"
	"crypto/x509"
	"encoding/pem"
	"fmt"
	"strings"

	"github.com/pkg/errors"
	"golang.org/x/crypto/pkcs12"
)

// Credentials contains the material for a single Connect. We only
// read the buffers while Connect runs and never retain them.
type Credentials struct {
	// RootCA is the MANDATORY set of trust anchors, PEM or DER
	// encoded. It may contain several certificates.
	RootCA []byte

	// ClientCert is the OPTIONAL client certificate chain, PEM or
	// DER encoded, with the leaf first.
	ClientCert []byte

	// PrivateKey is the OPTIONAL private key of the client certificate.
	// We accept PKCS#1, PKCS#8, and SEC1 keys in PEM or DER form. With
	// PrivateKeyPassword set we also accept a legacy encrypted PEM key
	// or a DER PKCS#12 bundle.
	PrivateKey []byte

	// PrivateKeyPassword is the OPTIONAL password of PrivateKey.
	PrivateKeyPassword []byte

	// ALPNProtos is the OPTIONAL list of ALPN protocols to offer.
	ALPNProtos []string

	// DisableSNI prevents sending the server name indication.
	DisableSNI bool
}

// hasClientCert returns whether there's a client certificate.
func (c *Credentials) hasClientCert() bool {
	return len(c.ClientCert) > 0
}

// hasPrivateKey returns whether there's a private key.
func (c *Credentials) hasPrivateKey() bool {
	return len(c.PrivateKey) > 0
}

// hasPartialIdentity returns whether exactly one of the client
// certificate and the private key is present.
func (c *Credentials) hasPartialIdentity() bool {
	return c.hasClientCert() != c.hasPrivateKey()
}

// credentialStore is the parsed form of Credentials.
type credentialStore struct {
	// roots is the pool of trust anchors.
	roots *x509.CertPool

	// own is the client certificate or nil.
	own *tls.Certificate
}

// newCredentialError binds a parse error to one of the credential
// sentinels so that both are reachable using errors.Is and errors.As.
func newCredentialError(kind, cause error) error {
	return errors.WithStack(fmt.Errorf("%w: %w", kind, cause))
}

// loadCredentials parses the credentials. When the identity is partial
// we ignore it and only load the trust anchors.
func loadCredentials(creds *Credentials) (*credentialStore, error) {
	roots, err := parseTrustAnchors(creds.RootCA)
	if err != nil {
		return nil, err
	}
	store := &credentialStore{roots: roots}
	if !creds.hasClientCert() || !creds.hasPrivateKey() {
		return store, nil
	}
	chain, err := parseCertificates(creds.ClientCert)
	if err != nil {
		return nil, newCredentialError(ErrInvalidClientCertificate, err)
	}
	key, err := parsePrivateKey(creds.PrivateKey, creds.PrivateKeyPassword)
	if err != nil {
		return nil, newCredentialError(ErrInvalidPrivateKey, err)
	}
	if err := checkKeyMatchesCertificate(key, chain[0]); err != nil {
		return nil, newCredentialError(ErrInvalidPrivateKey, err)
	}
	own := &tls.Certificate{
		PrivateKey: key,
		Leaf:       chain[0],
	}
	for _, cert := range chain {
		own.Certificate = append(own.Certificate, cert.Raw)
	}
	store.own = own
	return store, nil
}

// parseTrustAnchors parses the trust anchors into a pool.
func parseTrustAnchors(data []byte) (*x509.CertPool, error) {
	certs, err := parseCertificates(data)
	if err != nil {
		return nil, newCredentialError(ErrInvalidTrustAnchor, err)
	}
	pool := x509.NewCertPool()
	for _, cert := range certs {
		pool.AddCert(cert)
	}
	return pool, nil
}

// parseCertificates parses one or more PEM or DER certificates. PEM
// blocks other than CERTIFICATE are skipped.
func parseCertificates(data []byte) ([]*x509.Certificate, error) {
	// PEM buffers from C callers often include the terminating NUL.
	data = bytes.TrimRight(data, "\x00")
	if !isPEM(data) {
		certs, err := x509.ParseCertificates(data)
		if err != nil {
			return nil, errors.Wrap(err, "cannot parse DER certificates")
		}
		if len(certs) <= 0 {
			return nil, errors.New("no certificates found")
		}
		return certs, nil
	}
	var certs []*x509.Certificate
	for idx := 0; ; idx++ {
		var block *pem.Block
		block, data = pem.Decode(data)
		if block == nil {
			break
		}
		if block.Type != "CERTIFICATE" {
			continue
		}
		cert, err := x509.ParseCertificate(block.Bytes)
		if err != nil {
			return nil, errors.Wrapf(err, "cannot parse PEM block #%d", idx)
		}
		certs = append(certs, cert)
	}
	if len(certs) <= 0 {
		return nil, errors.New("no PEM certificates found")
	}
	return certs, nil
}

// parsePrivateKey parses a private key.
func parsePrivateKey(data, password []byte) (crypto.PrivateKey, error) {
	data = bytes.TrimRight(data, "\x00")
	if !isPEM(data) {
		if len(password) > 0 {
			if key, err := parsePKCS12(data, password); err == nil {
				return key, nil
			}
		}
		return parseDERPrivateKey(data)
	}
	for {
		var block *pem.Block
		block, data = pem.Decode(data)
		if block == nil {
			return nil, errors.New("no PEM private key found")
		}
		if !strings.HasSuffix(block.Type, "PRIVATE KEY") {
			continue
		}
		if block.Type == "ENCRYPTED PRIVATE KEY" {
			return nil, errors.New("encrypted PKCS#8 keys are not supported")
		}
		der := block.Bytes
		//lint:ignore SA1019 legacy encrypted PEM keys are still common on devices
		if x509.IsEncryptedPEMBlock(block) {
			if len(password) <= 0 {
				return nil, errors.New("encrypted private key without password")
			}
			var err error
			//lint:ignore SA1019 see above
			der, err = x509.DecryptPEMBlock(block, password)
			if err != nil {
				return nil, errors.Wrap(err, "cannot decrypt private key")
			}
		}
		return parseDERPrivateKey(der)
	}
}

// parseDERPrivateKey tries PKCS#1, PKCS#8, and SEC1 in this order
// like crypto/tls does.
func parseDERPrivateKey(der []byte) (crypto.PrivateKey, error) {
	if key, err := x509.ParsePKCS1PrivateKey(der); err == nil {
		return key, nil
	}
	if key, err := x509.ParsePKCS8PrivateKey(der); err == nil {
		switch key := key.(type) {
		case *rsa.PrivateKey, *ecdsa.PrivateKey, ed25519.PrivateKey:
			return key, nil
		default:
			return nil, errors.Errorf("unsupported PKCS#8 key type %T", key)
		}
	}
	if key, err := x509.ParseECPrivateKey(der); err == nil {
		return key, nil
	}
	return nil, errors.New("cannot parse private key")
}

// parsePKCS12 extracts the private key of a PKCS#12 bundle.
func parsePKCS12(data, password []byte) (crypto.PrivateKey, error) {
	key, _, err := pkcs12.Decode(data, string(password))
	if err != nil {
		return nil, errors.Wrap(err, "cannot decode PKCS#12 bundle")
	}
	return key, nil
}

// checkKeyMatchesCertificate checks that the private key belongs to
// the leaf certificate, like tls.X509KeyPair does.
func checkKeyMatchesCertificate(key crypto.PrivateKey, leaf *x509.Certificate) error {
	signer, ok := key.(crypto.Signer)
	if !ok {
		return errors.Errorf("private key type %T cannot sign", key)
	}
	pub, ok := leaf.PublicKey.(interface{ Equal(crypto.PublicKey) bool })
	if !ok {
		return errors.Errorf("unsupported certificate key type %T", leaf.PublicKey)
	}
	if !pub.Equal(signer.Public()) {
		return errors.New("private key does not match certificate")
	}
	return nil
}

// isPEM returns whether data looks like PEM.
func isPEM(data []byte) bool {
	return bytes.Contains(data, []byte("-----BEGIN "))
}
