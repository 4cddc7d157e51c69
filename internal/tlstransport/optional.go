package tlstransport

//
// Optional negotiation settings
//

import (
	"errors"
	"fmt"
	"net"
	"strings"

	"github.com/devlink/tlstransport/internal/model"
	"golang.org/x/net/idna"
)

// validateALPN checks the ALPN protocol list against RFC 7301.
func validateALPN(protos []string) error {
	total := 0
	for _, proto := range protos {
		if len(proto) <= 0 || len(proto) > 255 {
			return fmt.Errorf("invalid ALPN protocol length: %d", len(proto))
		}
		total += 1 + len(proto)
	}
	if total > 65535 {
		return errors.New("ALPN protocol list too long")
	}
	return nil
}

// normalizeServerName returns the name to use for SNI and verification,
// converting internationalized names to their ASCII form.
func normalizeServerName(host string) (string, error) {
	host = strings.TrimSuffix(host, ".")
	if net.ParseIP(host) != nil {
		return host, nil
	}
	name, err := idna.Lookup.ToASCII(host)
	if err != nil {
		return "", err
	}
	if len(name) > 255 {
		return "", errors.New("server name too long")
	}
	return name, nil
}

// verificationName returns the name the server certificate must be
// valid for. When the host cannot be normalized, we verify the host as
// given, so that the verification fails rather than being skipped.
func verificationName(host string) string {
	if name, err := normalizeServerName(host); err == nil {
		return name
	}
	return strings.ToLower(strings.TrimSuffix(host, "."))
}

// validateMaxFragmentLength checks the max fragment length against RFC 6066.
func validateMaxFragmentLength(size int) error {
	switch size {
	case 512, 1024, 2048, 4096:
		return nil
	default:
		return fmt.Errorf("invalid max fragment length: %d", size)
	}
}

// configureOptional applies the optional settings. Failures here are
// logged and never abort the connection.
func (t *Transport) configureOptional(
	eng model.Engine, policy *model.NegotiationPolicy, host string, creds *Credentials) {
	if len(creds.ALPNProtos) > 0 {
		err := validateALPN(creds.ALPNProtos)
		if err == nil {
			err = eng.SetALPN(creds.ALPNProtos)
		}
		if err != nil {
			t.logger.Warnf("set ALPN %v... %s", creds.ALPNProtos, err)
		} else {
			policy.NextProtos = creds.ALPNProtos
		}
	}

	if creds.DisableSNI {
		t.logger.Debug("SNI disabled: verifying the chain without the server name")
	} else {
		name, err := normalizeServerName(host)
		if err == nil {
			err = eng.SetServerName(name)
		}
		if err != nil {
			t.logger.Warnf("set server name %s... %s", host, err)
		} else {
			policy.ServerName = name
		}
	}

	if size := t.maxFragmentLength; size != 0 {
		err := validateMaxFragmentLength(size)
		if err == nil {
			err = eng.SetMaxFragmentLength(size)
		}
		if err != nil {
			t.logger.Warnf("set max fragment length %d... %s", size, err)
		} else {
			policy.MaxFragmentLength = size
		}
	}
}
