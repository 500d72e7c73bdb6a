// cmd/preflight/main.go
package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"

	"github.com/hamed0406/shameotron/internal/config"
)

func main() {
	fail := func(msg string) {
		fmt.Fprintln(os.Stderr, "✖", msg)
		os.Exit(1)
	}
	warn := func(msg string) { fmt.Fprintln(os.Stderr, "⚠", msg) }
	ok := func(msg string) { fmt.Println("✔", msg) }

	if err := godotenv.Load(); err != nil {
		warn(".env not loaded: " + err.Error())
	}

	cfg, err := config.Load("")
	if err != nil {
		fail(err.Error())
	}
	ok("federation_tester=" + cfg.FederationTester)

	if !strings.HasPrefix(cfg.FederationTester, "https://") {
		warn("federation_tester is not https; reports will link to a plain-http page.")
	}

	if len(cfg.DeadServers) == 0 {
		warn("no dead_servers configured; every room server will be probed.")
	} else {
		ok(fmt.Sprintf("dead_servers: %s", strings.Join(cfg.DeadServers, ",")))
	}

	if len(cfg.PublicAPIKeys) == 0 {
		warn("PUBLIC_API_KEYS is empty; /api/shame is open to anyone who can reach it.")
	}
	for _, k := range cfg.PublicAPIKeys {
		if strings.Contains(k, " ") {
			warn("PUBLIC_API_KEYS contains spaces; use comma-separated with no spaces, e.g. key1,key2")
			break
		}
	}

	if cfg.RatePerMin == 0 {
		warn("SHAME_RATE_PER_MIN=0; /api/shame is not rate limited.")
	} else {
		ok(fmt.Sprintf("rate limit: %d/min per client, burst %d", cfg.RatePerMin, cfg.RateBurst))
	}

	if len(cfg.AllowedOrigins) == 0 {
		warn("ALLOWED_ORIGINS empty; any origin may call the API from a browser.")
	}

	if cfg.StrictTLS {
		ok("strict TLS: certificate chains are validated")
	} else {
		warn("relaxed TLS: only the certificate host name is checked (set STRICT_TLS=true to validate chains)")
	}

	ok(fmt.Sprintf("concurrency=%d run_timeout=%s", cfg.Concurrency, cfg.RunTimeout))
	ok("preflight passed")
}
