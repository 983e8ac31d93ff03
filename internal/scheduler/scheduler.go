package scheduler

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
	"sync/atomic"

	"FiftySentinel/internal/model"
	"FiftySentinel/internal/notifier"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Runner executes one batch. *scanner.Scanner satisfies it.
type Runner interface {
	Run(ctx context.Context, symbols []string, checks []model.Check) (*model.Report, error)
}

// Sender delivers a formatted report. *notifier.TelegramNotifier satisfies it.
type Sender interface {
	SendWithRetry(ctx context.Context, text string, maxRetries int) error
}

// Scheduler repeats whole batch runs on a cron schedule. Runs never overlap.
type Scheduler struct {
	Cron    *cron.Cron
	Runner  Runner
	Symbols []string
	Checks  []model.Check
	Out     io.Writer // console report; nil disables
	Sender  Sender    // nil disables delivery
	Ctx     context.Context

	running atomic.Bool
	mu      sync.Mutex
	last    *model.Report
	entry   cron.EntryID
	logger  zerolog.Logger
}

// NewScheduler creates a new Scheduler. Cron specs carry a leading seconds field.
func NewScheduler(ctx context.Context, runner Runner, symbols []string, checks []model.Check, out io.Writer, sender Sender) *Scheduler {
	logger := log.With().Str("component", "scheduler").Logger()
	cl := cronLogger{logger}
	return &Scheduler{
		Cron:    cron.New(cron.WithSeconds(), cron.WithLogger(cl), cron.WithChain(cron.Recover(cl))),
		Runner:  runner,
		Symbols: symbols,
		Checks:  checks,
		Out:     out,
		Sender:  sender,
		Ctx:     ctx,
		logger:  logger,
	}
}

// Register schedules the batch on spec.
func (s *Scheduler) Register(spec string) error {
	id, err := s.Cron.AddFunc(spec, func() { s.RunNow() })
	if err != nil {
		return fmt.Errorf("register scan task %q: %w", spec, err)
	}
	s.entry = id
	return nil
}

// Start starts the cron scheduler.
func (s *Scheduler) Start() {
	s.Cron.Start()
	s.logger.Info().Str("next", s.Cron.Entry(s.entry).Next.String()).Msg("scheduler started")
}

// Stop stops the cron scheduler and waits for a running batch to finish.
func (s *Scheduler) Stop() {
	<-s.Cron.Stop().Done()
	s.logger.Info().Msg("scheduler stopped")
}

// RunNow executes one batch immediately. It reports false when a batch was already running.
func (s *Scheduler) RunNow() bool {
	if !s.running.CompareAndSwap(false, true) {
		s.logger.Warn().Msg("previous scan still running, skipping")
		return false
	}
	defer s.running.Store(false)

	report, err := s.Runner.Run(s.Ctx, s.Symbols, s.Checks)
	if err != nil {
		s.logger.Error().Err(err).Msg("scan failed")
		s.trySend(fmt.Sprintf("❌ Scan failed: %v", err))
		return true
	}

	s.mu.Lock()
	s.last = report
	s.mu.Unlock()

	if s.Out != nil {
		fmt.Fprintln(s.Out, notifier.FormatReport(report))
	}
	s.trySend(notifier.FormatTelegramReport(report))
	return true
}

// Last returns the most recent finished report, or nil.
func (s *Scheduler) Last() *model.Report {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.last
}

// HandleCommand processes a chat command and returns a reply.
func (s *Scheduler) HandleCommand(_ context.Context, command string) string {
	name := ""
	if fields := strings.Fields(command); len(fields) > 0 {
		name = strings.ToLower(fields[0])
	}
	switch name {
	case "/scan":
		if s.running.Load() {
			return "A scan is already running."
		}
		go s.RunNow()
		return fmt.Sprintf("Scan started for %d tickers.", len(s.Symbols))
	case "/last":
		if r := s.Last(); r != nil {
			return notifier.FormatTelegramReport(r)
		}
		return "No scan has finished yet."
	case "/status":
		checks := make([]string, len(s.Checks))
		for i, c := range s.Checks {
			checks[i] = c.String()
		}
		status := "idle"
		if s.running.Load() {
			status = "running"
		}
		msg := fmt.Sprintf("Tickers: %d\nChecks: %s\nState: %s", len(s.Symbols), strings.Join(checks, ", "), status)
		if e := s.Cron.Entry(s.entry); e.Valid() {
			msg += "\nNext run: " + e.Next.Format("2006-01-02 15:04 MST")
		}
		return msg
	default:
		return "Commands:\n/scan - run a scan now\n/last - show the last report\n/status - show watch status"
	}
}

func (s *Scheduler) trySend(text string) {
	if s.Sender == nil {
		return
	}
	if err := s.Sender.SendWithRetry(s.Ctx, text, 3); err != nil {
		s.logger.Error().Err(err).Msg("send notification")
	}
}

// cronLogger adapts zerolog to cron.Logger.
type cronLogger struct{ l zerolog.Logger }

func (c cronLogger) Info(msg string, keysAndValues ...interface{}) {
	c.l.Debug().Fields(keysAndValues).Msg(msg)
}

func (c cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	c.l.Error().Err(err).Fields(keysAndValues).Msg(msg)
}
