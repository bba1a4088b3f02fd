package service

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
)

const (
	portStateRetention = 24 * time.Hour
	alertRetention     = 7 * 24 * time.Hour
)

// RunRetentionSweep drops port rows with no activity for a day and purges
// alerts older than a week, archiving them first when an archiver is
// configured. Counters are never touched. Each step is best-effort; a
// failing step is logged and the sweep moves on.
func (s *Service) RunRetentionSweep(ctx context.Context) {
	ctx, cancel := s.opCtx(ctx)
	defer cancel()

	now := s.now()

	if n, err := s.store.DeleteStalePortStates(ctx, now.Add(-portStateRetention)); err != nil {
		log.Error().Err(err).Msg("stale port state purge failed")
	} else if n > 0 {
		log.Info().Int64("rows", n).Msg("purged stale port state")
	}

	cutoff := now.Add(-alertRetention)
	old, err := s.store.ListAlertsBefore(ctx, cutoff)
	if err != nil {
		log.Error().Err(err).Msg("old alert listing failed")
		return
	}
	if len(old) == 0 {
		return
	}
	if s.archiver != nil {
		key := "alerts/" + cutoff.Format("2006-01-02") + ".json"
		if err := s.archiver.ArchiveAlerts(ctx, key, old); err != nil {
			// Keep the rows; the next sweep retries the archive.
			log.Error().Err(err).Msg("alert archive failed, skipping purge")
			return
		}
	}
	if n, err := s.store.DeleteAlertsBefore(ctx, cutoff); err != nil {
		log.Error().Err(err).Msg("alert purge failed")
	} else {
		log.Info().Int64("rows", n).Msg("purged old alerts")
	}
}

// RunSweeper blocks, running the retention sweep on a fixed cadence until
// the context is cancelled.
func (s *Service) RunSweeper(ctx context.Context, every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.RunRetentionSweep(ctx)
		}
	}
}

// ResetDaily deletes today's daily counters on operator request. Monthly
// totals are deliberately unaffected; they accumulate independently.
func (s *Service) ResetDaily(ctx context.Context) error {
	ctx, cancel := s.opCtx(ctx)
	defer cancel()
	return s.store.DeleteDailyCountersForDate(ctx, s.now().Format("2006-01-02"))
}

// SetRate updates the electricity rate. Historical cost is never
// recomputed; the new rate applies from the next ingested sample on.
func (s *Service) SetRate(ctx context.Context, rate float64) error {
	ctx, cancel := s.opCtx(ctx)
	defer cancel()
	return s.registry.SetRate(ctx, rate)
}
