package tlstransport

import (
	"crypto/tls"
	"fmt"
)

// tlsVersionString returns a TLS version string. If value is zero, we
// return the empty string. If the value is unknown, we return
// `TLS_VERSION_UNKNOWN_ddd` where `ddd` is the numeric value passed
// to this function.
func tlsVersionString(value uint16) string {
	switch value {
	case 0:
		return "" // handle the case of failed handshake
	case tls.VersionTLS10:
		return "TLSv1"
	case tls.VersionTLS11:
		return "TLSv1.1"
	case tls.VersionTLS12:
		return "TLSv1.2"
	case tls.VersionTLS13:
		return "TLSv1.3"
	default:
		return fmt.Sprintf("TLS_VERSION_UNKNOWN_%d", value)
	}
}

// tlsCipherSuiteString returns the TLS cipher suite as a string. If value
// is zero, we return the empty string. If we don't know the mapping from
// the value to a cipher suite name, we return `TLS_CIPHER_SUITE_UNKNOWN_ddd`
// where `ddd` is the numeric value passed to this function.
func tlsCipherSuiteString(value uint16) string {
	if value == 0 {
		return "" // handle the case of failed handshake
	}
	if name := tls.CipherSuiteName(value); name != fmt.Sprintf("0x%04X", value) {
		return name
	}
	return fmt.Sprintf("TLS_CIPHER_SUITE_UNKNOWN_%d", value)
}
