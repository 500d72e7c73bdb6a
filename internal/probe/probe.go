package probe

import (
	"context"
	"errors"
	"net"

	"github.com/hamed0406/shameotron/internal/domain"
)

// VersionChecker asks a federation tester what a host runs. The second
// return value is the first connection-report address, or "" when the
// tester gave none.
type VersionChecker interface {
	Probe(ctx context.Context, host domain.Host) (domain.VersionResult, string)
}

// CertChecker reads the certificate served at addr for host.
type CertChecker interface {
	Probe(ctx context.Context, addr string, host domain.Host) domain.CertificateResult
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}
