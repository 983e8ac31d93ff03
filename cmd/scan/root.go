package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"FiftySentinel/internal/collector"
	"FiftySentinel/internal/config"
	"FiftySentinel/internal/model"
	"FiftySentinel/internal/notifier"
	"FiftySentinel/internal/scanner"
	"FiftySentinel/internal/scheduler"
	"FiftySentinel/internal/tickers"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

type options struct {
	tickerFile  string
	configPath  string
	variant     string
	granularity []string
	watch       bool
}

func newRootCmd() *cobra.Command {
	opts := &options{}
	cmd := &cobra.Command{
		Use:   "fiftyscan",
		Short: "Scan tickers for the fifty-percent rule",
		Long: `fiftyscan evaluates the fifty-percent rule for every ticker in a list.

The level is the midpoint of the previous week's or month's range. The signal check
flags tickers whose current period broke a previous extreme while trading on the
other side of the level; the direction check walks the current period's daily bars
and reports up or down once the break is followed by a recross of the level.`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd.Context(), cmd.OutOrStdout(), opts)
		},
	}

	f := cmd.Flags()
	f.StringVarP(&opts.tickerFile, "ticker-file", "f", "", "CSV file with a Symbol column, or a list with one ticker per line")
	f.StringVarP(&opts.configPath, "config", "c", defaultConfigPath(), "path to the YAML config")
	f.StringVar(&opts.variant, "variant", "", "evaluate only this variant (signal|direction); overrides scan.checks")
	f.StringSliceVar(&opts.granularity, "granularity", nil, "granularities for --variant (daily,weekly,monthly)")
	f.BoolVar(&opts.watch, "watch", false, "keep running and repeat the scan on schedule.cron")
	_ = cmd.MarkFlagRequired("ticker-file")
	return cmd
}

func defaultConfigPath() string {
	if v := os.Getenv("CONFIG_PATH"); v != "" {
		return v
	}
	return "configs/config.yaml"
}

func run(ctx context.Context, out io.Writer, opts *options) error {
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("config validation: %w", err)
	}
	setupLogging(cfg)

	checks, err := selectChecks(cfg, opts)
	if err != nil {
		return err
	}
	symbols, err := tickers.ReadFile(opts.tickerFile)
	if err != nil {
		return err
	}
	log.Info().Str("file", opts.tickerFile).Int("tickers", len(symbols)).Msg("ticker list loaded")

	fetcher, err := newFetcher(cfg)
	if err != nil {
		return err
	}
	scan := scanner.New(fetcher, scanner.Options{
		Concurrency: cfg.Scan.Concurrency,
		Lookback:    cfg.Lookback(),
	})

	var tg *notifier.TelegramNotifier
	if cfg.TelegramEnabled() {
		tg = notifier.NewTelegramNotifier(cfg.Telegram.BotToken, cfg.Telegram.ChatID, cfg.Proxy)
	}

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if opts.watch {
		return watch(ctx, cfg, scan, symbols, checks, out, tg)
	}

	report, err := scan.Run(ctx, symbols, checks)
	if err != nil {
		return err
	}
	fmt.Fprintln(out, notifier.FormatReport(report))
	if tg != nil {
		if err := tg.SendWithRetry(ctx, notifier.FormatTelegramReport(report), 3); err != nil {
			log.Error().Err(err).Msg("send report")
		}
	}
	return nil
}

func watch(ctx context.Context, cfg *config.Config, scan *scanner.Scanner, symbols []string, checks []model.Check, out io.Writer, tg *notifier.TelegramNotifier) error {
	var sender scheduler.Sender
	if tg != nil {
		sender = tg
	}
	sched := scheduler.NewScheduler(ctx, scan, symbols, checks, out, sender)
	if err := sched.Register(cfg.Schedule.Cron); err != nil {
		return err
	}
	sched.Start()
	defer sched.Stop()

	if tg != nil {
		go tg.StartPolling(ctx, sched.HandleCommand)
		log.Info().Msg("telegram polling started")
	}
	if os.Getenv("RUN_ON_START") == "true" {
		log.Info().Msg("RUN_ON_START enabled, scanning now")
		go sched.RunNow()
	}

	log.Info().Str("cron", cfg.Schedule.Cron).Msg("watching; press Ctrl+C to stop")
	<-ctx.Done()
	log.Info().Msg("shutdown signal received, stopping")
	return nil
}

// selectChecks applies --variant/--granularity over the configured checks.
func selectChecks(cfg *config.Config, opts *options) ([]model.Check, error) {
	if opts.variant == "" {
		if len(opts.granularity) > 0 {
			return nil, fmt.Errorf("--granularity requires --variant")
		}
		return cfg.ParseChecks()
	}
	v, err := model.ParseVariant(opts.variant)
	if err != nil {
		return nil, err
	}
	grans := opts.granularity
	if len(grans) == 0 {
		grans = []string{string(model.Weekly), string(model.Monthly)}
	}
	checks := make([]model.Check, 0, len(grans))
	for _, g := range grans {
		gran, err := model.ParseGranularity(g)
		if err != nil {
			return nil, err
		}
		c := model.Check{Variant: v, Granularity: gran}
		if err := c.Validate(); err != nil {
			return nil, err
		}
		checks = append(checks, c)
	}
	return checks, nil
}

func newFetcher(cfg *config.Config) (collector.Fetcher, error) {
	var base collector.Fetcher
	switch cfg.DataSource.Provider {
	case "rest":
		base = collector.NewRESTFetcher(cfg.DataSource.BaseURL, cfg.DataSource.APIKey, cfg.Proxy, cfg.Timeout())
	case "yahoo":
		yf := collector.NewYahooFetcher(cfg.Proxy, cfg.Timeout())
		if cfg.DataSource.BaseURL != "" {
			yf.BaseURL = cfg.DataSource.BaseURL
		}
		base = yf
	default:
		return nil, fmt.Errorf("unknown data provider %q", cfg.DataSource.Provider)
	}
	log.Info().Str("provider", base.Name()).Msg("data source selected")

	return collector.NewGuard(base, collector.GuardOptions{
		Timeout:         cfg.Timeout(),
		RequestsPerSec:  cfg.DataSource.RequestsPerSecond,
		Burst:           cfg.Scan.Concurrency,
		MaxRetries:      *cfg.DataSource.MaxRetries,
		BreakerFailures: cfg.Breaker.ConsecutiveFailures,
		BreakerOpen:     cfg.BreakerOpen(),
	}), nil
}

func setupLogging(cfg *config.Config) {
	level, err := zerolog.ParseLevel(cfg.Log.Level)
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
	if cfg.Log.Format == "json" {
		log.Logger = zerolog.New(os.Stderr).With().Timestamp().Logger()
	} else {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.DateTime})
	}
}
