package report

import (
	"fmt"
	"math"
	"time"

	"github.com/hamed0406/shameotron/internal/domain"
)

const DefaultWarnDays = 30

// Aggregator merges the two probe outcomes of a host into its status line.
type Aggregator struct {
	Now      func() time.Time
	WarnDays int
}

func NewAggregator(warnDays int) *Aggregator {
	if warnDays <= 0 {
		warnDays = DefaultWarnDays
	}
	return &Aggregator{Now: time.Now, WarnDays: warnDays}
}

func (a *Aggregator) Aggregate(host domain.Host, v domain.VersionResult, c domain.CertificateResult) domain.HostStatus {
	return domain.HostStatus{
		Host:        host,
		Version:     v,
		Certificate: c,
		Warning:     a.warning(c),
	}
}

func (a *Aggregator) warning(c domain.CertificateResult) string {
	if !c.Available() {
		return "(SSL error)"
	}
	if days := DaysUntil(a.Now(), c.Expiry); days < a.WarnDays {
		return fmt.Sprintf("(cert expiry in %d days!)", days)
	}
	return ""
}

// DaysUntil counts whole days from now to t, rounding down, so a certificate
// that expired twelve hours ago is -1 days out.
func DaysUntil(now, t time.Time) int {
	return int(math.Floor(t.Sub(now).Hours() / 24))
}
