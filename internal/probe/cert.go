package probe

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"net"
	"time"

	"github.com/hamed0406/shameotron/internal/domain"
)

// CertProber dials a connection-report address and reads the leaf
// certificate. Unless Strict is set the chain is not validated; the leaf
// must still match the host name.
type CertProber struct {
	Timeout time.Duration
	Strict  bool
	RootCAs *x509.CertPool // nil means system roots
}

func NewCertProber(timeout time.Duration, strict bool) *CertProber {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &CertProber{Timeout: timeout, Strict: strict}
}

func (p *CertProber) Probe(ctx context.Context, addr string, host domain.Host) domain.CertificateResult {
	if addr == "" {
		return domain.Unavailable(domain.ErrNoCertificateEndpoint)
	}
	name := serverName(host)

	ctx, cancel := context.WithTimeout(ctx, p.Timeout)
	defer cancel()

	var d net.Dialer
	raw, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		if isTimeout(err) {
			return domain.Unavailable(fmt.Errorf("%w: dial %s: %v", domain.ErrNetworkTimeout, addr, err))
		}
		return domain.Unavailable(fmt.Errorf("%w: dial %s: %v", domain.ErrConnectivity, addr, err))
	}

	conn := tls.Client(raw, &tls.Config{
		ServerName:         name,
		RootCAs:            p.RootCAs,
		InsecureSkipVerify: !p.Strict,
	})
	defer conn.Close()

	if err := conn.HandshakeContext(ctx); err != nil {
		return domain.Unavailable(fmt.Errorf("%w: handshake with %s: %v", domain.ErrTLSFailure, addr, err))
	}

	certs := conn.ConnectionState().PeerCertificates
	if len(certs) == 0 {
		return domain.Unavailable(fmt.Errorf("%w: %s sent no certificate", domain.ErrTLSFailure, addr))
	}
	leaf := certs[0]
	if !p.Strict {
		if err := leaf.VerifyHostname(name); err != nil {
			return domain.Unavailable(fmt.Errorf("%w: %v", domain.ErrTLSFailure, err))
		}
	}
	return domain.Expires(leaf.NotAfter)
}

// ExpiryText renders t the way OpenSSL prints notAfter ("Jan  5 12:00:00 2025 GMT").
func ExpiryText(t time.Time) string {
	return t.UTC().Format("Jan _2 15:04:05 2006") + " GMT"
}

func serverName(host domain.Host) string {
	if h, _, err := net.SplitHostPort(string(host)); err == nil {
		return h
	}
	return string(host)
}
