package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/monzobean/monzobean/beancount"
	"github.com/monzobean/monzobean/config"
	"github.com/monzobean/monzobean/monzo"
	"github.com/monzobean/monzobean/storage"
	"github.com/monzobean/monzobean/syncer"
)

const dateLayout = "2006-01-02"

const usage = "usage: monzobean <auth|update|beancount|balances|reset> [flags]"

func main() {
	if err := run(context.Background(), os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, "monzobean:", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return errors.New(usage)
	}

	cfg, err := config.ParseEnv(ctx)
	if err != nil {
		return fmt.Errorf("parse environment: %w", err)
	}

	logger, err := newLogger(cfg.Debug)
	if err != nil {
		return fmt.Errorf("build logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	switch args[0] {
	case "auth":
		return runAuth(ctx, cfg, logger)
	case "update":
		return runUpdate(ctx, cfg, logger, args[1:])
	case "beancount":
		return runBeancount(ctx, cfg, logger, args[1:])
	case "balances":
		return runBalances(ctx, cfg, logger)
	case "reset":
		return runReset(ctx, cfg, logger)
	default:
		return fmt.Errorf("unknown command %q\n%s", args[0], usage)
	}
}

func newLogger(debug bool) (*zap.Logger, error) {
	if debug {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

// runAuth runs the OAuth login flow and confirms the stored token works.
func runAuth(ctx context.Context, cfg config.Config, logger *zap.Logger) error {
	if err := monzo.Authorize(ctx, cfg.Monzo, logger); err != nil {
		return err
	}

	client, err := monzo.NewClient(cfg.Monzo, logger)
	if err != nil {
		return err
	}
	identity, err := client.WhoAmI(ctx)
	if err != nil {
		return fmt.Errorf("verify token: %w", err)
	}
	if !identity.Authenticated {
		return errors.New("verify token: not authenticated")
	}

	fmt.Printf("Authenticated as %s\n", identity.UserID)
	return nil
}

// runUpdate syncs accounts, pots and transactions into storage.
func runUpdate(ctx context.Context, cfg config.Config, logger *zap.Logger, args []string) error {
	settings, err := beancount.LoadSettings(cfg.LedgerConfig)
	if err != nil {
		return err
	}

	since, before, err := parseRange(args, "update", settings.Start)
	if err != nil {
		return err
	}

	store, err := storage.Open(cfg.Storage, logger)
	if err != nil {
		return err
	}
	defer store.Close()

	client, err := monzo.NewClient(cfg.Monzo, logger)
	if err != nil {
		return err
	}

	s := syncer.New(cfg.Syncer, client, store, settings.CustomCategories, logger)
	return s.Sync(ctx, since, before)
}

// runBeancount regenerates the ledger file from storage.
func runBeancount(ctx context.Context, cfg config.Config, logger *zap.Logger, args []string) error {
	settings, err := beancount.LoadSettings(cfg.LedgerConfig)
	if err != nil {
		return err
	}

	since, before, err := parseRange(args, "beancount", settings.Start)
	if err != nil {
		return err
	}

	store, err := storage.Open(cfg.Storage, logger)
	if err != nil {
		return err
	}
	defer store.Close()

	builder := beancount.NewBuilder(settings, store, logger)
	return builder.Export(ctx, since, before)
}

func runReset(ctx context.Context, cfg config.Config, logger *zap.Logger) error {
	store, err := storage.Open(cfg.Storage, logger)
	if err != nil {
		return err
	}
	defer store.Close()

	return store.Reset(ctx)
}

// parseRange reads --since/--before flags, defaulting to the configured
// ledger start date and now.
func parseRange(args []string, command string, start time.Time) (time.Time, time.Time, error) {
	fs := flag.NewFlagSet(command, flag.ContinueOnError)
	sinceFlag := fs.String("since", "", "start of the range, YYYY-MM-DD (default: ledger start date)")
	beforeFlag := fs.String("before", "", "end of the range, YYYY-MM-DD (default: now)")
	if err := fs.Parse(args); err != nil {
		return time.Time{}, time.Time{}, err
	}

	since := start
	if *sinceFlag != "" {
		t, err := time.Parse(dateLayout, *sinceFlag)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("parse --since: %w", err)
		}
		since = t
	}

	before := time.Now().UTC()
	if *beforeFlag != "" {
		t, err := time.Parse(dateLayout, *beforeFlag)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("parse --before: %w", err)
		}
		before = t
	}

	if before.Before(since) {
		return time.Time{}, time.Time{}, fmt.Errorf("--before %s precedes --since %s", before.Format(dateLayout), since.Format(dateLayout))
	}
	return since, before, nil
}
