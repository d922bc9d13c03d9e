// Package jobs runs periodic housekeeping.
package jobs

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
)

// DefaultSchedule runs housekeeping every 15 minutes.
const DefaultSchedule = "*/15 * * * *"

// AuthSessions deletes expired login sessions.
type AuthSessions interface {
	CleanupExpiredSessions() (int, error)
}

// QuizSessions evicts quiz sessions idle for longer than maxAge.
type QuizSessions interface {
	EvictIdle(ctx context.Context, maxAge time.Duration) (int, error)
}

// Housekeeper removes expired auth sessions and idle quiz sessions.
type Housekeeper struct {
	auth    AuthSessions
	quiz    QuizSessions
	maxIdle time.Duration
}

func NewHousekeeper(auth AuthSessions, quiz QuizSessions, maxIdle time.Duration) *Housekeeper {
	return &Housekeeper{auth: auth, quiz: quiz, maxIdle: maxIdle}
}

// Run performs one pass. Both steps run even if the first fails.
func (h *Housekeeper) Run(ctx context.Context) error {
	var firstErr error
	expired, err := h.auth.CleanupExpiredSessions()
	if err != nil {
		slog.Error("cleanup auth sessions", "error", err)
		firstErr = fmt.Errorf("cleanup auth sessions: %w", err)
	}
	idle, err := h.quiz.EvictIdle(ctx, h.maxIdle)
	if err != nil {
		slog.Error("evict idle quiz sessions", "error", err)
		if firstErr == nil {
			firstErr = fmt.Errorf("evict idle quiz sessions: %w", err)
		}
	}
	if expired > 0 || idle > 0 {
		slog.Info("housekeeping", "expired_auth_sessions", expired, "idle_quiz_sessions", idle)
	}
	return firstErr
}

// Schedule registers h on a new cron scheduler and starts it. Stop the
// returned scheduler on shutdown.
func Schedule(ctx context.Context, spec string, h *Housekeeper) (*cron.Cron, error) {
	c := cron.New()
	if _, err := c.AddFunc(spec, func() { _ = h.Run(ctx) }); err != nil {
		return nil, fmt.Errorf("schedule housekeeping %q: %w", spec, err)
	}
	c.Start()
	slog.Info("housekeeping scheduled", "schedule", spec, "session_idle", h.maxIdle)
	return c, nil
}
