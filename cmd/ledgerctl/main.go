package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/dairy-erp/ledger/cmd/ledgerctl/cli"
	"github.com/dairy-erp/ledger/internal/app"
	"github.com/dairy-erp/ledger/internal/platform/db"
	"github.com/dairy-erp/ledger/jobs"
)

const usage = `usage: ledgerctl <command> [args]

commands:
  migrate up|down|version   apply or inspect the schema
  jobs trigger <name>       enqueue a job (%s, %s)
  jobs stats                show default queue depth
`

func main() {
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), usage, jobs.TaskLedgerIntegrity, jobs.TaskIdempotencyCleanup)
	}
	flag.Parse()
	if flag.NArg() < 2 {
		flag.Usage()
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}
	logger := app.NewLogger(cfg)

	if err := run(ctx, cfg, logger, flag.Args()); err != nil {
		logger.Error("ledgerctl", slog.Any("error", err))
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *app.Config, logger *slog.Logger, args []string) error {
	switch args[0] {
	case "migrate":
		m, err := db.NewMigrator(cfg.PGDSN, logger)
		if err != nil {
			return err
		}
		return cli.Migrate(m, args[1], os.Stdout)
	case "jobs":
		c, err := cli.NewJobsCLI(cfg.RedisAddr)
		if err != nil {
			return err
		}
		defer func() { _ = c.Close() }()
		switch args[1] {
		case "trigger":
			if len(args) < 3 {
				return fmt.Errorf("jobs trigger: job name required")
			}
			info, err := c.Trigger(ctx, args[2])
			if err != nil {
				return err
			}
			fmt.Printf("enqueued %s id=%s queue=%s\n", info.Type, info.ID, info.Queue)
			return nil
		case "stats":
			stats, err := c.InspectQueue(ctx)
			if err != nil {
				return err
			}
			fmt.Printf("queue=%s pending=%d active=%d scheduled=%d retry=%d archived=%d\n",
				stats.Queue, stats.Pending, stats.Active, stats.Scheduled, stats.Retry, stats.Archived)
			return nil
		}
		return fmt.Errorf("jobs: unknown subcommand %q", args[1])
	}
	return fmt.Errorf("unknown command %q", args[0])
}
