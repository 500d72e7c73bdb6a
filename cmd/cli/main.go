package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	flag "github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/hamed0406/shameotron/internal/config"
	"github.com/hamed0406/shameotron/internal/domain"
	"github.com/hamed0406/shameotron/internal/logging"
	"github.com/hamed0406/shameotron/internal/notify"
	"github.com/hamed0406/shameotron/internal/pipeline"
)

func main() {
	_ = godotenv.Load()

	var (
		configPath  string
		members     []string
		membersFile string
		notifyURLs  []string
		verbose     bool
	)
	flag.StringVarP(&configPath, "config", "c", "", "YAML config file (default $CONFIG_FILE)")
	flag.StringSliceVarP(&members, "members", "m", nil, "room member IDs, e.g. @alice:example.org")
	flag.StringVarP(&membersFile, "members-file", "f", "", "file with one member ID per line (- for stdin)")
	flag.StringSliceVar(&notifyURLs, "notify", nil, "webhook URLs to post the report to (default $NOTIFY_WEBHOOK)")
	flag.BoolVarP(&verbose, "verbose", "v", false, "log every probe to stderr")
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "usage: %s [flags] [candidate]\n\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()

	cfg, err := config.Load(configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		os.Exit(2)
	}
	logger := logging.NewConsoleLogger(verbose)
	defer logger.Sync()

	candidate := strings.Join(flag.Args(), " ")

	if membersFile != "" {
		more, err := readMembers(membersFile)
		if err != nil {
			fmt.Fprintln(os.Stderr, "members:", err)
			os.Exit(1)
		}
		members = append(members, more...)
	}
	if candidate == "" && len(members) == 0 {
		flag.Usage()
		os.Exit(2)
	}

	group, invalid := domain.GroupMembers(members)
	if len(invalid) > 0 {
		logger.Warn("invalid_members", zap.Strings("members", invalid))
	}

	ctx := context.Background()
	text := pipeline.FromConfig(cfg, logger).Report(ctx, candidate, group)
	fmt.Println(text)

	if len(notifyURLs) == 0 {
		notifyURLs = cfg.NotifyWebhooks
	}
	if n := notify.FromURLs(notifyURLs); n != nil {
		if err := n.Send(ctx, "Shame-o-Tron", text); err != nil {
			fmt.Fprintln(os.Stderr, "notify:", err)
			os.Exit(1)
		}
	}
}

func readMembers(path string) ([]string, error) {
	f := os.Stdin
	if path != "-" {
		var err error
		if f, err = os.Open(path); err != nil {
			return nil, err
		}
		defer f.Close()
	}

	var out []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		if line := strings.TrimSpace(sc.Text()); line != "" && !strings.HasPrefix(line, "#") {
			out = append(out, line)
		}
	}
	return out, sc.Err()
}
