package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromEnv_ParsesAndDefaults(t *testing.T) {
	t.Setenv("API_ADDR", ":9090")
	t.Setenv("LOG_DIR", "./_testlogs")
	t.Setenv("FEDERATION_TESTER", "https://tester.local/report?s={server}")
	t.Setenv("DEAD_SERVERS", "dead.org, gone.net,")
	t.Setenv("VERSION_TIMEOUT_MS", "1234")
	t.Setenv("MAX_CONCURRENT_CHECKS", "7")
	t.Setenv("STRICT_TLS", "true")
	t.Setenv("PUBLIC_API_KEYS", "pub_a,pub_b")
	t.Setenv("ALLOWED_ORIGINS", "https://a.example, https://b.example")
	t.Setenv("SHAME_RATE_PER_MIN", "0")
	t.Setenv("SHAME_RATE_BURST", "9")

	cfg := FromEnv()

	if cfg.Addr != ":9090" || cfg.LogDir != "./_testlogs" {
		t.Fatalf("addr/logdir wrong: %+v", cfg)
	}
	assert.Equal(t, []string{"dead.org", "gone.net"}, cfg.DeadServers)
	assert.Equal(t, 1234*time.Millisecond, cfg.VersionTimeout)
	assert.Equal(t, 10*time.Second, cfg.CertTimeout)
	assert.Equal(t, 7, cfg.Concurrency)
	assert.Equal(t, 30, cfg.ExpiryWarnDays)
	assert.True(t, cfg.StrictTLS)
	assert.Len(t, cfg.PublicAPIKeys, 2)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.AllowedOrigins)
	assert.Equal(t, 0, cfg.RatePerMin, "zero disables rate limiting")
	assert.Equal(t, 9, cfg.RateBurst)

	// ensure defaults don’t crash if missing env
	os.Unsetenv("API_ADDR")
	os.Unsetenv("FEDERATION_TESTER")
	os.Unsetenv("SHAME_RATE_PER_MIN")
	os.Unsetenv("ALLOWED_ORIGINS")
	def := FromEnv()
	assert.Equal(t, 30, def.RatePerMin)
	assert.Empty(t, def.AllowedOrigins)
	assert.Equal(t, "127.0.0.1:8080", def.Addr)
	assert.Equal(t, DefaultFederationTester, def.FederationTester)
}

func TestLoad_YAMLOverlaysEnv(t *testing.T) {
	t.Setenv("DEAD_SERVERS", "env.org")
	t.Setenv("MAX_CONCURRENT_CHECKS", "2")

	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
federation_tester: https://federationtester.example/api/report?server_name={server}
dead_servers:
  - dead.example
  - gone.example
expiry_warn_days: 14
`), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "https://federationtester.example/api/report?server_name={server}", cfg.FederationTester)
	assert.Equal(t, []string{"dead.example", "gone.example"}, cfg.DeadServers)
	assert.Equal(t, 14, cfg.ExpiryWarnDays)
	assert.Equal(t, 2, cfg.Concurrency, "unset file keys keep env values")
}

func TestLoad_MissingFileUsesEnv(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, DefaultFederationTester, cfg.FederationTester)
}

func TestLoad_BadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("dead_servers: [unclosed"), 0o600))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestValidate_RequiresPlaceholder(t *testing.T) {
	cfg := FromEnv()
	cfg.FederationTester = "https://tester.example/report"
	assert.Error(t, cfg.Validate())

	cfg.FederationTester = DefaultFederationTester
	assert.NoError(t, cfg.Validate())

	cfg.Concurrency = 0
	assert.Error(t, cfg.Validate())
}
