package testingx

import (
	"crypto"
	"crypto/ecdsa"
	"crypto/ed25519"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/rsa"
	"crypto/tls"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"math/big"
	"net"
	"time"

	"github.com/devlink/tlstransport/internal/runtimex"
)

// KeyType is the type of key of a test certificate.
type KeyType int

const (
	// KeyECDSAP256 is an ECDSA key on P-256. This is the default.
	KeyECDSAP256 = KeyType(iota)

	// KeyECDSAP224 is an ECDSA key on P-224, which the default
	// certificate profile rejects.
	KeyECDSAP224

	// KeyRSA1024 is a 1024 bit RSA key, which the default
	// certificate profile rejects.
	KeyRSA1024

	// KeyRSA2048 is a 2048 bit RSA key.
	KeyRSA2048

	// KeyEd25519 is an Ed25519 key.
	KeyEd25519
)

// MustNewKey generates a new private key of the given type.
func MustNewKey(kt KeyType) crypto.Signer {
	switch kt {
	case KeyECDSAP224:
		return runtimex.Try1(ecdsa.GenerateKey(elliptic.P224(), rand.Reader))
	case KeyRSA1024:
		return runtimex.Try1(rsa.GenerateKey(rand.Reader, 1024))
	case KeyRSA2048:
		return runtimex.Try1(rsa.GenerateKey(rand.Reader, 2048))
	case KeyEd25519:
		_, key := runtimex.Try2(ed25519.GenerateKey(rand.Reader))
		return key
	default:
		return runtimex.Try1(ecdsa.GenerateKey(elliptic.P256(), rand.Reader))
	}
}

// CA is a certification authority for tests.
type CA struct {
	// Cert is the CA certificate.
	Cert *x509.Certificate

	// CertPEM is the PEM encoding of Cert.
	CertPEM []byte

	// Key is the CA private key.
	Key crypto.Signer
}

// MustNewCA creates a new self-signed CA with an ECDSA P-256 key.
func MustNewCA(commonName string) *CA {
	key := MustNewKey(KeyECDSAP256)
	template := &x509.Certificate{
		SerialNumber:          mustNewSerial(),
		Subject:               pkix.Name{CommonName: commonName, Organization: []string{"tlstransport tests"}},
		NotBefore:             time.Now().Add(-time.Hour),
		NotAfter:              time.Now().Add(24 * time.Hour),
		KeyUsage:              x509.KeyUsageCertSign | x509.KeyUsageDigitalSignature,
		BasicConstraintsValid: true,
		IsCA:                  true,
	}
	der := runtimex.Try1(x509.CreateCertificate(rand.Reader, template, template, key.Public(), key))
	cert := runtimex.Try1(x509.ParseCertificate(der))
	return &CA{
		Cert:    cert,
		CertPEM: pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: der}),
		Key:     key,
	}
}

// CertPool returns a pool containing only the CA certificate.
func (ca *CA) CertPool() *x509.CertPool {
	pool := x509.NewCertPool()
	pool.AddCert(ca.Cert)
	return pool
}

// LeafConfig contains the config of a leaf certificate.
type LeafConfig struct {
	// CommonName is the subject common name.
	CommonName string

	// Names contains DNS names and IP addresses.
	Names []string

	// ClientAuth selects a client certificate rather than a server one.
	ClientAuth bool

	// KeyType is the type of key.
	KeyType KeyType

	// NotAfter is the OPTIONAL expiry time. When zero, the
	// certificate expires in one day.
	NotAfter time.Time
}

// Leaf is a leaf certificate with its private key.
type Leaf struct {
	// Cert is the certificate.
	Cert *x509.Certificate

	// CertPEM is the PEM encoding of Cert.
	CertPEM []byte

	// Key is the private key.
	Key crypto.Signer

	// KeyPEM is the PKCS#8 PEM encoding of Key.
	KeyPEM []byte

	// TLS is the certificate in the format used by crypto/tls.
	TLS tls.Certificate
}

// MustNewLeaf issues a leaf certificate.
func (ca *CA) MustNewLeaf(config *LeafConfig) *Leaf {
	key := MustNewKey(config.KeyType)
	notAfter := config.NotAfter
	if notAfter.IsZero() {
		notAfter = time.Now().Add(24 * time.Hour)
	}
	template := &x509.Certificate{
		SerialNumber: mustNewSerial(),
		Subject:      pkix.Name{CommonName: config.CommonName},
		NotBefore:    time.Now().Add(-time.Hour),
		NotAfter:     notAfter,
		KeyUsage:     x509.KeyUsageDigitalSignature,
		ExtKeyUsage:  []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth},
	}
	if _, isRSA := key.(*rsa.PrivateKey); isRSA {
		template.KeyUsage |= x509.KeyUsageKeyEncipherment
	}
	if config.ClientAuth {
		template.ExtKeyUsage = []x509.ExtKeyUsage{x509.ExtKeyUsageClientAuth}
	}
	for _, name := range config.Names {
		if ip := net.ParseIP(name); ip != nil {
			template.IPAddresses = append(template.IPAddresses, ip)
			continue
		}
		template.DNSNames = append(template.DNSNames, name)
	}
	der := runtimex.Try1(x509.CreateCertificate(rand.Reader, template, ca.Cert, key.Public(), ca.Key))
	cert := runtimex.Try1(x509.ParseCertificate(der))
	keyDER := runtimex.Try1(x509.MarshalPKCS8PrivateKey(key))
	return &Leaf{
		Cert:    cert,
		CertPEM: pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: der}),
		Key:     key,
		KeyPEM:  pem.EncodeToMemory(&pem.Block{Type: "PRIVATE KEY", Bytes: keyDER}),
		TLS: tls.Certificate{
			Certificate: [][]byte{der},
			PrivateKey:  key,
			Leaf:        cert,
		},
	}
}

// MustNewServerLeaf is a shortcut for issuing an ECDSA server
// certificate valid for the given names.
func (ca *CA) MustNewServerLeaf(names ...string) *Leaf {
	return ca.MustNewLeaf(&LeafConfig{
		CommonName: names[0],
		Names:      names,
	})
}

func mustNewSerial() *big.Int {
	limit := new(big.Int).Lsh(big.NewInt(1), 128)
	return runtimex.Try1(rand.Int(rand.Reader, limit))
}
