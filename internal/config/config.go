package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const DefaultFederationTester = "https://federationtester.matrix.org/api/report?server_name={server}"

type Config struct {
	Addr             string        // API bind address, e.g. "127.0.0.1:8080" or ":8080" (Docker)
	LogDir           string        // logs directory
	FederationTester string        // URL template with a {server} placeholder
	DeadServers      []string      // hosts never probed when resolving from a room
	VersionTimeout   time.Duration // federation tester request timeout
	CertTimeout      time.Duration // TLS dial + handshake timeout
	RunTimeout       time.Duration // cap on a whole probe run
	Concurrency      int           // hosts probed at once; 1 is strictly sequential
	ExpiryWarnDays   int           // warn when a certificate expires sooner than this
	StrictTLS        bool          // validate the full chain, not just the host name
	PublicAPIKeys    []string
	AllowedOrigins   []string // CORS origins; empty allows any
	RatePerMin       int      // /api/shame requests per client IP per minute; 0 disables
	RateBurst        int
	NotifyWebhooks   []string
}

// fileConfig mirrors the optional YAML file. Pointer fields let a file
// leave environment values alone.
type fileConfig struct {
	FederationTester *string  `yaml:"federation_tester"`
	DeadServers      []string `yaml:"dead_servers"`
	VersionTimeoutMS *int     `yaml:"version_timeout_ms"`
	CertTimeoutMS    *int     `yaml:"cert_timeout_ms"`
	RunTimeoutMS     *int     `yaml:"run_timeout_ms"`
	Concurrency      *int     `yaml:"max_concurrent_checks"`
	ExpiryWarnDays   *int     `yaml:"expiry_warn_days"`
	StrictTLS        *bool    `yaml:"strict_tls"`
}

func FromEnv() Config {
	// Bind address (Windows-friendly default)
	addr := os.Getenv("API_ADDR")
	if addr == "" {
		addr = "127.0.0.1:8080"
	}

	logDir := os.Getenv("LOG_DIR")
	if logDir == "" {
		logDir = "logs"
	}

	tester := os.Getenv("FEDERATION_TESTER")
	if tester == "" {
		tester = DefaultFederationTester
	}

	return Config{
		Addr:             addr,
		LogDir:           logDir,
		FederationTester: tester,
		DeadServers:      splitList(os.Getenv("DEAD_SERVERS")),
		VersionTimeout:   envMillis("VERSION_TIMEOUT_MS", 10*time.Second),
		CertTimeout:      envMillis("CERT_TIMEOUT_MS", 10*time.Second),
		RunTimeout:       envMillis("RUN_TIMEOUT_MS", 2*time.Minute),
		Concurrency:      envInt("MAX_CONCURRENT_CHECKS", 4),
		ExpiryWarnDays:   envInt("EXPIRY_WARN_DAYS", 30),
		StrictTLS:        envBool("STRICT_TLS", false),
		PublicAPIKeys:    splitList(os.Getenv("PUBLIC_API_KEYS")),
		AllowedOrigins:   splitList(os.Getenv("ALLOWED_ORIGINS")),
		RatePerMin:       envNonNegInt("SHAME_RATE_PER_MIN", 30),
		RateBurst:        envInt("SHAME_RATE_BURST", 5),
		NotifyWebhooks:   splitList(os.Getenv("NOTIFY_WEBHOOK")),
	}
}

// Load reads the environment, then overlays the YAML file named by path (or
// CONFIG_FILE when path is empty). A missing file is not an error.
func Load(path string) (Config, error) {
	cfg := FromEnv()
	if path == "" {
		path = os.Getenv("CONFIG_FILE")
	}
	if path != "" {
		if err := cfg.overlayFile(path); err != nil {
			return Config{}, err
		}
	}
	return cfg, cfg.Validate()
}

func (c *Config) overlayFile(path string) error {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}

	var f fileConfig
	if err := yaml.Unmarshal(data, &f); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}

	if f.FederationTester != nil {
		c.FederationTester = strings.TrimSpace(*f.FederationTester)
	}
	if f.DeadServers != nil {
		c.DeadServers = f.DeadServers
	}
	if f.VersionTimeoutMS != nil {
		c.VersionTimeout = time.Duration(*f.VersionTimeoutMS) * time.Millisecond
	}
	if f.CertTimeoutMS != nil {
		c.CertTimeout = time.Duration(*f.CertTimeoutMS) * time.Millisecond
	}
	if f.RunTimeoutMS != nil {
		c.RunTimeout = time.Duration(*f.RunTimeoutMS) * time.Millisecond
	}
	if f.Concurrency != nil {
		c.Concurrency = *f.Concurrency
	}
	if f.ExpiryWarnDays != nil {
		c.ExpiryWarnDays = *f.ExpiryWarnDays
	}
	if f.StrictTLS != nil {
		c.StrictTLS = *f.StrictTLS
	}
	return nil
}

func (c Config) Validate() error {
	if !strings.Contains(c.FederationTester, "{server}") {
		return fmt.Errorf("federation_tester %q has no {server} placeholder", c.FederationTester)
	}
	if c.VersionTimeout <= 0 || c.CertTimeout <= 0 || c.RunTimeout <= 0 {
		return errors.New("timeouts must be positive")
	}
	if c.Concurrency < 1 {
		return fmt.Errorf("max_concurrent_checks must be at least 1, got %d", c.Concurrency)
	}
	return nil
}

func splitList(v string) []string {
	var out []string
	for _, s := range strings.Split(v, ",") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func envInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return n
		}
	}
	return def
}

func envNonNegInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			return n
		}
	}
	return def
}

func envMillis(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if ms, err := strconv.Atoi(v); err == nil && ms > 0 {
			return time.Duration(ms) * time.Millisecond
		}
	}
	return def
}

func envBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return def
}
