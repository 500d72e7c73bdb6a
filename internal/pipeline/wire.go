package pipeline

import (
	"go.uber.org/zap"

	"github.com/hamed0406/shameotron/internal/config"
	"github.com/hamed0406/shameotron/internal/probe"
	"github.com/hamed0406/shameotron/internal/report"
)

// FromConfig builds a Runner backed by the real federation tester and TLS
// probes.
func FromConfig(cfg config.Config, logger *zap.Logger) *Runner {
	return NewRunner(
		logger,
		probe.NewVersionProber(cfg.FederationTester, cfg.VersionTimeout),
		probe.NewCertProber(cfg.CertTimeout, cfg.StrictTLS),
		report.NewAggregator(cfg.ExpiryWarnDays),
		report.Renderer{Template: cfg.FederationTester},
		cfg.DeadServers,
		cfg.RunTimeout,
		cfg.Concurrency,
	)
}
