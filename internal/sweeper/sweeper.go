// Package sweeper closes diary sessions that were abandoned without a
// finish keyword, so the next message starts a fresh conversation.
package sweeper

import (
	"context"
	"log/slog"

	"github.com/robfig/cron/v3"
)

// Runs nightly, after the quietest hour, so an evening conversation is
// never cut off mid-day.
const schedule = "0 3 * * *"

type sessionCloser interface {
	CloseStale(ctx context.Context) (int, error)
}

type Sweeper struct {
	cron     *cron.Cron
	sessions sessionCloser
	logger   *slog.Logger
}

func NewSweeper(sessions sessionCloser, logger *slog.Logger) *Sweeper {
	return &Sweeper{
		cron:     cron.New(),
		sessions: sessions,
		logger:   logger.With(slog.String("service", "sweeper")),
	}
}

func (s *Sweeper) Start() error {
	_, err := s.cron.AddFunc(schedule, s.sweep)
	if err != nil {
		return err
	}
	s.cron.Start()
	s.logger.Info("session sweeper scheduled", slog.String("schedule", schedule))
	return nil
}

func (s *Sweeper) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
}

func (s *Sweeper) sweep() {
	closed, err := s.sessions.CloseStale(context.Background())
	if err != nil {
		s.logger.Error("stale session sweep failed", slog.String("error", err.Error()))
		return
	}
	if closed > 0 {
		s.logger.Info("stale sessions closed", slog.Int("count", closed))
	}
}
