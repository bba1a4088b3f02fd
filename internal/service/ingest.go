package service

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/asifrahman/smart-multiplug-system/internal/domain"
)

// IngestResult is what the transport layer broadcasts verbatim after a
// telemetry push: the fully reconciled state plus whatever alerts the
// sample generated.
type IngestResult struct {
	Type      string           `json:"type"`
	State     domain.PortState `json:"state"`
	Alerts    []domain.Alert   `json:"alerts,omitempty"`
	Timestamp time.Time        `json:"timestamp"`
}

// IngestSample runs one telemetry sample through the pipeline: reconcile
// (preserve mode), fold energy/cost into the daily and monthly counters,
// track peak-hour usage, then evaluate alerts against the freshly-updated
// daily cost. The whole sequence holds the port's lock so concurrent
// samples for the same port apply first-come-first-applied.
func (s *Service) IngestSample(ctx context.Context, sample domain.TelemetrySample) (*IngestResult, error) {
	if err := s.ValidatePort(sample.Port); err != nil {
		return nil, err
	}

	unlock := s.locks.lock(sample.Port)
	defer unlock()

	ctx, cancel := s.opCtx(ctx)
	defer cancel()

	state, err := s.reconcilePreserve(ctx, sample)
	if err != nil {
		return nil, err
	}

	// Date and month come from the server clock at processing time;
	// client clocks are untrusted.
	now := s.now()
	date := now.Format("2006-01-02")

	rate := s.registry.Rate(ctx)
	agg := computeAggregate(sample.Power, s.interval, rate)

	if err := s.store.AddToDailyCounter(ctx, date, sample.Port, agg.EnergyKwh, agg.CostBdt, agg.RuntimeMinutes, sample.Power); err != nil {
		return nil, err
	}
	if err := s.store.AddToMonthlyCounter(ctx, now.Year(), int(now.Month()), sample.Port, agg.EnergyKwh, agg.CostBdt); err != nil {
		return nil, err
	}

	th := s.registry.Thresholds(ctx)
	if inPeakWindow(now.Hour(), th.PeakStartHour, th.PeakEndHour) {
		if err := s.store.UpsertPeakUsage(ctx, date, sample.Port, sample.Power, now); err != nil {
			return nil, err
		}
	}

	daily, err := s.store.GetDailyCounter(ctx, date, sample.Port)
	if err != nil {
		return nil, err
	}
	dailyCost := agg.CostBdt
	if daily != nil {
		dailyCost = daily.CostBdt
	}

	candidates := EvaluateAlerts(AlertInput{
		Port:         sample.Port,
		PowerWatts:   sample.Power,
		DailyCostBdt: dailyCost,
		Hour:         now.Hour(),
		At:           now,
		Thresholds:   th,
	})

	result := &IngestResult{Type: "data_update", State: state, Timestamp: now}
	for i := range candidates {
		// A failed insert degrades that one alert only; the rest of the
		// batch and the triggering request proceed.
		if err := s.store.AppendAlert(ctx, &candidates[i]); err != nil {
			log.Error().Err(err).Int("port", sample.Port).
				Str("type", string(candidates[i].Type)).Msg("alert insert failed")
			continue
		}
		result.Alerts = append(result.Alerts, candidates[i])
		s.notifyCritical(candidates[i])
	}

	s.publish(result)
	return result, nil
}

func (s *Service) notifyCritical(alert domain.Alert) {
	if s.notifier == nil || alert.Severity != domain.SeverityCritical {
		return
	}
	if err := s.notifier.NotifyAlert(alert); err != nil {
		log.Error().Err(err).Str("type", string(alert.Type)).Msg("alert notification failed")
	}
}
