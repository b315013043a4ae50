// Package maintenance runs the periodic housekeeping jobs of the API process.
package maintenance

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"libraryapi/internal/loan"
)

const jobTimeout = 30 * time.Second

// TokenPurger deletes expired refresh tokens.
type TokenPurger interface {
	CleanupExpired(ctx context.Context) (int64, error)
}

// OverdueLister reports active loans past their due date.
type OverdueLister interface {
	ListOverdue(ctx context.Context, asOf time.Time) ([]loan.Loan, error)
	Today() time.Time
}

type Scheduler struct {
	cron    *cron.Cron
	tokens  TokenPurger
	loans   OverdueLister
	logger  *slog.Logger
	timeout time.Duration
}

func NewScheduler(tokens TokenPurger, loans OverdueLister, logger *slog.Logger) *Scheduler {
	return &Scheduler{
		cron:    cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger))),
		tokens:  tokens,
		loans:   loans,
		logger:  logger,
		timeout: jobTimeout,
	}
}

// Start registers both jobs on schedule and starts the cron loop. schedule
// accepts standard five-field cron expressions and descriptors like "@every 1h".
func (s *Scheduler) Start(schedule string) error {
	jobs := map[string]func(context.Context) error{
		"purge_expired_tokens": s.PurgeExpiredTokens,
		"report_overdue_loans": s.ReportOverdue,
	}
	for name, job := range jobs {
		if _, err := s.cron.AddFunc(schedule, s.wrap(name, job)); err != nil {
			return fmt.Errorf("schedule %s (%q): %w", name, schedule, err)
		}
	}
	s.cron.Start()
	s.logger.Info("maintenance scheduler started", "schedule", schedule)
	return nil
}

// Stop stops scheduling and waits for running jobs or ctx, whichever ends first.
func (s *Scheduler) Stop(ctx context.Context) {
	select {
	case <-s.cron.Stop().Done():
	case <-ctx.Done():
		s.logger.Warn("maintenance jobs still running at shutdown")
	}
}

func (s *Scheduler) wrap(name string, job func(context.Context) error) func() {
	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
		defer cancel()

		defer func() {
			if rec := recover(); rec != nil {
				s.logger.Error("maintenance job panicked", "job", name, "panic", rec)
			}
		}()

		start := time.Now()
		if err := job(ctx); err != nil {
			s.logger.Error("maintenance job failed", "job", name, "error", err)
			return
		}
		s.logger.Debug("maintenance job done", "job", name, "duration_ms", time.Since(start).Milliseconds())
	}
}

// PurgeExpiredTokens removes refresh tokens past their expiry.
func (s *Scheduler) PurgeExpiredTokens(ctx context.Context) error {
	n, err := s.tokens.CleanupExpired(ctx)
	if err != nil {
		return fmt.Errorf("purge expired tokens: %w", err)
	}
	if n > 0 {
		s.logger.Info("expired refresh tokens purged", "count", n)
	}
	return nil
}

// ReportOverdue logs one line per overdue loan and a summary. It never
// modifies loans.
func (s *Scheduler) ReportOverdue(ctx context.Context) error {
	asOf := s.loans.Today()
	loans, err := s.loans.ListOverdue(ctx, asOf)
	if err != nil {
		return fmt.Errorf("list overdue loans: %w", err)
	}
	for _, l := range loans {
		s.logger.Warn("loan overdue",
			"loan_id", l.ID,
			"user_id", l.UserID,
			"book_id", l.BookID,
			"due_date", l.DueDate.String(),
			"days_overdue", int(asOf.Sub(l.DueDate.Time).Hours()/24),
		)
	}
	s.logger.Info("overdue report", "as_of", asOf.Format(time.DateOnly), "count", len(loans))
	return nil
}
