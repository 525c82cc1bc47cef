// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package manager

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/ManuGH/qrattend/internal/domain/session/store"
	xlog "github.com/ManuGH/qrattend/internal/log"
	"github.com/ManuGH/qrattend/internal/metrics"
)

// Sweeper periodically removes sessions that expired and were never redeemed.
// Entries younger than retention past their expiry are kept so a late redemption
// still reports expiry instead of an unknown session.
type Sweeper struct {
	store     store.Store
	interval  time.Duration
	retention time.Duration
	now       func() time.Time
	logger    zerolog.Logger
}

// NewSweeper creates a sweeper. A non-positive interval disables Run.
func NewSweeper(st store.Store, interval, retention time.Duration) *Sweeper {
	return &Sweeper{
		store:     st,
		interval:  interval,
		retention: retention,
		now:       time.Now,
		logger:    xlog.WithComponent("sweeper"),
	}
}

// SweepOnce removes entries that expired before now minus retention.
func (s *Sweeper) SweepOnce(ctx context.Context) (int, error) {
	n, err := s.store.Sweep(ctx, s.now().Add(-s.retention))
	if err != nil {
		return n, err
	}
	metrics.RecordSwept(n)
	if n > 0 {
		s.logger.Debug().Str(xlog.FieldEvent, "session.swept").Int("count", n).Msg("expired sessions removed")
	}
	return n, nil
}

// Run sweeps on every tick until ctx is cancelled.
func (s *Sweeper) Run(ctx context.Context) error {
	if s.interval <= 0 {
		return nil
	}
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if _, err := s.SweepOnce(ctx); err != nil && ctx.Err() == nil {
				s.logger.Warn().Err(err).Msg("session sweep failed")
			}
		}
	}
}
