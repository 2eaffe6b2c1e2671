package ttls

import (
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"strings"

	"github.com/VeduStorm/NovaCore/nova/common"
)

var ErrNoKeyPair = errors.New("tls: empty cert/key")

// Enabled reports whether both cert and key are configured.
func Enabled(cert, key string) bool {
	return strings.TrimSpace(cert) != "" && strings.TrimSpace(key) != ""
}

// LoadServerConfig builds the status server TLS config.
// cert and key are file paths or inline PEM. sniGuard is a comma separated host list
// ("*.example.com,api.example.com"); blank disables it, otherwise the client SNI must
// match the list and be covered by the certificate.
func LoadServerConfig(cert, key, sniGuard string) (*tls.Config, error) {
	if !Enabled(cert, key) {
		return nil, ErrNoKeyPair
	}
	certPEM, err := common.ReadPEMorFile(strings.TrimSpace(cert))
	if err != nil {
		return nil, fmt.Errorf("read cert: %w", err)
	}
	keyPEM, err := common.ReadPEMorFile(strings.TrimSpace(key))
	if err != nil {
		return nil, fmt.Errorf("read key: %w", err)
	}
	pair, err := tls.X509KeyPair(certPEM, keyPEM)
	if err != nil {
		return nil, fmt.Errorf("parse keypair: %w", err)
	}
	if pair.Leaf == nil && len(pair.Certificate) > 0 {
		if leaf, e := x509.ParseCertificate(pair.Certificate[0]); e == nil {
			pair.Leaf = leaf
		}
	}

	guard := common.ParseGuardList(sniGuard)
	return &tls.Config{
		MinVersion:   tls.VersionTLS12,
		Certificates: []tls.Certificate{pair},
		VerifyConnection: func(cs tls.ConnectionState) error {
			return checkSNI(cs.ServerName, guard, pair.Leaf)
		},
	}, nil
}

func checkSNI(serverName string, guard []string, leaf *x509.Certificate) error {
	if len(guard) == 0 {
		return nil
	}
	sni := strings.ToLower(strings.TrimSpace(serverName))
	if sni == "" {
		return errors.New("sni required")
	}
	if !common.MatchAnyHostPattern(sni, guard) {
		return fmt.Errorf("sni not allowed: %s", sni)
	}
	if leaf != nil {
		if err := leaf.VerifyHostname(sni); err != nil {
			return fmt.Errorf("sni not covered by certificate: %w", err)
		}
	}
	return nil
}
