package pipeline

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/dustin/go-humanize"
	"go.uber.org/zap"

	"github.com/hamed0406/shameotron/internal/domain"
	"github.com/hamed0406/shameotron/internal/probe"
	"github.com/hamed0406/shameotron/internal/report"
	"github.com/hamed0406/shameotron/internal/resolve"
)

// Runner probes every resolved host and builds the report. Hosts fan out
// over at most Concurrency goroutines; inside a host the version probe
// always runs before the certificate probe.
type Runner struct {
	Logger      *zap.Logger
	Versions    probe.VersionChecker
	Certs       probe.CertChecker
	Aggregator  *report.Aggregator
	Renderer    report.Renderer
	DeadServers []string
	Timeout     time.Duration
	Concurrency int
}

func NewRunner(
	logger *zap.Logger,
	versions probe.VersionChecker,
	certs probe.CertChecker,
	agg *report.Aggregator,
	renderer report.Renderer,
	deadServers []string,
	timeout time.Duration,
	concurrency int,
) *Runner {
	if logger == nil {
		logger = zap.NewNop()
	}
	if concurrency < 1 {
		concurrency = 1
	}
	if timeout <= 0 {
		timeout = 2 * time.Minute
	}
	return &Runner{
		Logger:      logger,
		Versions:    versions,
		Certs:       certs,
		Aggregator:  agg,
		Renderer:    renderer,
		DeadServers: deadServers,
		Timeout:     timeout,
		Concurrency: concurrency,
	}
}

// Report resolves the hosts, probes them and renders the result.
func (r *Runner) Report(ctx context.Context, candidate string, group domain.HostGroup) string {
	return r.Renderer.Render(r.Run(ctx, candidate, group))
}

// Run returns one status per resolved host, in resolver order.
func (r *Runner) Run(ctx context.Context, candidate string, group domain.HostGroup) []domain.HostStatus {
	hosts := resolve.Hosts(candidate, group, r.DeadServers)
	r.Logger.Info("probe_run_started", zap.Int("hosts", len(hosts)), zap.String("candidate", candidate))
	start := time.Now()

	ctx, cancel := context.WithTimeout(ctx, r.Timeout)
	defer cancel()

	out := make([]domain.HostStatus, len(hosts))
	sem := make(chan struct{}, r.Concurrency)
	var wg sync.WaitGroup

	for i, host := range hosts {
		select {
		case sem <- struct{}{}:
		case <-ctx.Done():
			out[i] = r.skipped(host, ctx.Err())
			continue
		}
		wg.Add(1)
		go func(i int, host domain.Host) {
			defer func() { <-sem }()
			defer wg.Done()
			out[i] = r.probeHost(ctx, host)
		}(i, host)
	}

	wg.Wait()
	r.Logger.Info("probe_run_finished",
		zap.Int("hosts", len(hosts)),
		zap.Duration("elapsed", time.Since(start)),
	)
	return out
}

func (r *Runner) probeHost(ctx context.Context, host domain.Host) (st domain.HostStatus) {
	defer func() {
		if p := recover(); p != nil {
			err := fmt.Errorf("probe panicked: %v", p)
			r.Logger.Error("probe_panic", zap.String("host", string(host)), zap.Error(err))
			st = r.Aggregator.Aggregate(host, domain.Failed(err), domain.Unavailable(err))
		}
	}()

	if err := ctx.Err(); err != nil {
		return r.skipped(host, err)
	}

	v, addr := r.Versions.Probe(ctx, host)
	c := r.Certs.Probe(ctx, addr, host)
	st = r.Aggregator.Aggregate(host, v, c)

	fields := []zap.Field{
		zap.String("host", string(host)),
		zap.Stringer("version_kind", v.Kind),
		zap.String("version", v.Version),
		zap.String("addr", addr),
		zap.String("warning", st.Warning),
	}
	if v.Err != nil {
		fields = append(fields, zap.NamedError("version_error", v.Err))
	}
	if c.Available() {
		fields = append(fields,
			zap.String("cert_not_after", probe.ExpiryText(c.Expiry)),
			zap.String("cert_expires", humanize.Time(c.Expiry)),
		)
	} else {
		fields = append(fields, zap.NamedError("cert_error", c.Err))
	}
	r.Logger.Info("host_probed", fields...)
	return st
}

// skipped records a host the run deadline never let us probe.
func (r *Runner) skipped(host domain.Host, cause error) domain.HostStatus {
	err := fmt.Errorf("%w: run deadline: %v", domain.ErrNetworkTimeout, cause)
	r.Logger.Warn("host_skipped", zap.String("host", string(host)), zap.Error(err))
	return r.Aggregator.Aggregate(host, domain.Timeout(err), domain.Unavailable(err))
}
