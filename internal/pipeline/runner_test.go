package pipeline

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/hamed0406/shameotron/internal/config"
	"github.com/hamed0406/shameotron/internal/domain"
	"github.com/hamed0406/shameotron/internal/report"
)

const template = "https://tester.example/api/report?server_name={server}"

var now = time.Date(2025, time.March, 1, 12, 0, 0, 0, time.UTC)

// --- fakes ---

type versionReply struct {
	res   domain.VersionResult
	addr  string
	delay time.Duration
	panic bool
}

type fakeVersions struct {
	mu      sync.Mutex
	replies map[domain.Host]versionReply
	calls   []domain.Host
}

func (f *fakeVersions) Probe(ctx context.Context, host domain.Host) (domain.VersionResult, string) {
	f.mu.Lock()
	f.calls = append(f.calls, host)
	rep, ok := f.replies[host]
	f.mu.Unlock()
	if !ok {
		return domain.Failed(errors.New("unknown host")), ""
	}
	if rep.panic {
		panic("tester exploded")
	}
	if rep.delay > 0 {
		select {
		case <-time.After(rep.delay):
		case <-ctx.Done():
			return domain.Timeout(ctx.Err()), ""
		}
	}
	return rep.res, rep.addr
}

type fakeCerts struct {
	expiries map[string]time.Time
}

func (f *fakeCerts) Probe(ctx context.Context, addr string, host domain.Host) domain.CertificateResult {
	if addr == "" {
		return domain.Unavailable(domain.ErrNoCertificateEndpoint)
	}
	exp, ok := f.expiries[addr]
	if !ok {
		return domain.Unavailable(domain.ErrConnectivity)
	}
	return domain.Expires(exp)
}

func newTestRunner(v *fakeVersions, c *fakeCerts, dead []string, concurrency int) *Runner {
	agg := report.NewAggregator(0)
	agg.Now = func() time.Time { return now }
	return NewRunner(zap.NewNop(), v, c, agg, report.Renderer{Template: template}, dead, 5*time.Second, concurrency)
}

func scenario() (*fakeVersions, *fakeCerts) {
	v := &fakeVersions{replies: map[domain.Host]versionReply{
		"a.org": {res: domain.Version("1.90.0"), addr: "10.0.0.1:8448"},
		"b.org": {res: domain.Timeout(domain.ErrNetworkTimeout)},
	}}
	c := &fakeCerts{expiries: map[string]time.Time{
		"10.0.0.1:8448": now.AddDate(0, 0, 5),
	}}
	return v, c
}

// --- tests ---

func TestRunner_EndToEndScenario(t *testing.T) {
	v, c := scenario()
	r := newTestRunner(v, c, nil, 1)

	group := domain.HostGroup{"b.org": {"@b:b.org"}, "a.org": {"@a:a.org"}}
	out := r.Report(context.Background(), "", group)

	want := "#### Homeserver versions\n" +
		"* a.org: [1.90.0 (cert expiry in 5 days!)](https://tester.example/api/report?server_name=a.org)\n" +
		"* b.org: [[TIMEOUT] (SSL error)](https://tester.example/api/report?server_name=b.org)"
	assert.Equal(t, want, out)
}

func TestRunner_Idempotent(t *testing.T) {
	v, c := scenario()
	r := newTestRunner(v, c, nil, 3)
	group := domain.HostGroup{"b.org": nil, "a.org": nil}

	first := r.Report(context.Background(), "", group)
	second := r.Report(context.Background(), "", group)
	assert.Equal(t, first, second)
}

func TestRunner_PreservesResolverOrderUnderConcurrency(t *testing.T) {
	hosts := []domain.Host{"a.org", "b.org", "c.org", "d.org", "e.org", "f.org"}
	v := &fakeVersions{replies: map[domain.Host]versionReply{}}
	group := domain.HostGroup{}
	for i, h := range hosts {
		// earlier hosts finish last
		v.replies[h] = versionReply{
			res:   domain.Version("1.0"),
			delay: time.Duration(len(hosts)-i) * 10 * time.Millisecond,
		}
		group[h] = nil
	}
	r := newTestRunner(v, &fakeCerts{}, nil, 4)

	got := r.Run(context.Background(), "", group)
	require.Len(t, got, len(hosts))
	for i, st := range got {
		assert.Equal(t, hosts[i], st.Host)
	}
}

func TestRunner_DeadServersAndCandidate(t *testing.T) {
	v, c := scenario()
	r := newTestRunner(v, c, []string{"b.org"}, 2)
	group := domain.HostGroup{"a.org": nil, "b.org": nil}

	got := r.Run(context.Background(), "", group)
	require.Len(t, got, 1)
	assert.Equal(t, domain.Host("a.org"), got[0].Host)

	got = r.Run(context.Background(), "b.org", group)
	require.Len(t, got, 1)
	assert.Equal(t, domain.Host("b.org"), got[0].Host)
	assert.Equal(t, domain.VersionTimeout, got[0].Version.Kind)
}

func TestRunner_RecoversPanickingHost(t *testing.T) {
	v := &fakeVersions{replies: map[domain.Host]versionReply{
		"a.org": {panic: true},
		"b.org": {res: domain.Version("1.2.3")},
	}}
	r := newTestRunner(v, &fakeCerts{}, nil, 2)

	got := r.Run(context.Background(), "", domain.HostGroup{"a.org": nil, "b.org": nil})
	require.Len(t, got, 2)
	assert.Equal(t, domain.VersionError, got[0].Version.Kind)
	assert.Equal(t, "(SSL error)", got[0].Warning)
	assert.Equal(t, "1.2.3", got[1].Version.Version)
}

func TestRunner_DeadlineStillListsEveryHost(t *testing.T) {
	v := &fakeVersions{replies: map[domain.Host]versionReply{
		"a.org": {res: domain.Version("1"), delay: time.Second},
		"b.org": {res: domain.Version("2"), delay: time.Second},
		"c.org": {res: domain.Version("3"), delay: time.Second},
	}}
	r := newTestRunner(v, &fakeCerts{}, nil, 1)
	r.Timeout = 50 * time.Millisecond

	out := r.Report(context.Background(), "", domain.HostGroup{"a.org": nil, "b.org": nil, "c.org": nil})
	lines := strings.Split(out, "\n")
	require.Len(t, lines, 4)
	for i, h := range []string{"a.org", "b.org", "c.org"} {
		assert.True(t, strings.HasPrefix(lines[i+1], "* "+h+": [[TIMEOUT] (SSL error)]"), lines[i+1])
	}
}

func TestRunner_VersionBeforeCertificate(t *testing.T) {
	v, c := scenario()
	r := newTestRunner(v, c, nil, 1)

	got := r.Run(context.Background(), "a.org", nil)
	require.Len(t, got, 1)
	// the certificate probe only learns its address from the version probe
	assert.True(t, got[0].Certificate.Available())
	assert.Equal(t, []domain.Host{"a.org"}, v.calls)
}

func TestFromConfig(t *testing.T) {
	cfg := config.FromEnv()
	cfg.FederationTester = template
	cfg.DeadServers = []string{"dead.org"}
	cfg.Concurrency = 3

	r := FromConfig(cfg, nil)
	assert.Equal(t, 3, r.Concurrency)
	assert.Equal(t, []string{"dead.org"}, r.DeadServers)
	assert.Equal(t, template, r.Renderer.Template)
	assert.Equal(t, report.DefaultWarnDays, r.Aggregator.WarnDays)
	assert.NotNil(t, r.Logger)
}
