package worker

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// StaleInvitationExpirer closes invitations whose acceptance window lapsed.
type StaleInvitationExpirer interface {
	ExpireStaleInvitations(ctx context.Context, now time.Time) (int64, error)
}

type SweeperConfig struct {
	Invitations  StaleInvitationExpirer
	PollInterval time.Duration
}

// Sweeper periodically expires stale invitations. It is used when no
// Temporal worker owns invitation timers.
type Sweeper struct {
	cfg    SweeperConfig
	logger zerolog.Logger
	now    func() time.Time
}

func NewSweeper(cfg SweeperConfig, logger zerolog.Logger) *Sweeper {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 5 * time.Minute
	}
	return &Sweeper{
		cfg:    cfg,
		logger: logger.With().Str("component", "invitation_sweeper").Logger(),
		now:    time.Now,
	}
}

// Start blocks until ctx is cancelled.
func (s *Sweeper) Start(ctx context.Context) error {
	s.logger.Info().Dur("interval", s.cfg.PollInterval).Msg("Sweeper started")
	ticker := time.NewTicker(s.cfg.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info().Msg("Sweeper stopped")
			return ctx.Err()
		case <-ticker.C:
			if _, err := s.Sweep(ctx); err != nil {
				s.logger.Error().Err(err).Msg("error expiring invitations")
			}
		}
	}
}

// Sweep runs a single pass and returns the number of invitations expired.
func (s *Sweeper) Sweep(ctx context.Context) (int64, error) {
	n, err := s.cfg.Invitations.ExpireStaleInvitations(ctx, s.now())
	if err != nil {
		return 0, err
	}
	if n > 0 {
		s.logger.Info().Int64("expired", n).Msg("expired stale invitations")
	}
	return n, nil
}
