package service

import (
	"context"
	"fmt"
	"strconv"

	"github.com/asifrahman/smart-multiplug-system/internal/domain"
)

// ControlState is what a polling embedded node receives: the desired
// relay state per controllable port plus the master-enable flag. When the
// master flag is off every relay reads OFF regardless of per-port intent.
type ControlState struct {
	Relays        map[string]domain.RelayState `json:"relays"`
	MasterEnabled bool                         `json:"master_enabled"`
}

// ControlState reads relay intent for all ports. Ports with no stored row
// default to OFF; the server holds no per-node session, so this is a plain
// snapshot read.
func (s *Service) ControlState(ctx context.Context) (*ControlState, error) {
	ctx, cancel := s.opCtx(ctx)
	defer cancel()

	states, err := s.store.ListPortStates(ctx)
	if err != nil {
		return nil, err
	}
	master := s.registry.MasterEnabled(ctx)

	out := &ControlState{
		Relays:        make(map[string]domain.RelayState, s.ports),
		MasterEnabled: master,
	}
	for port := 1; port <= s.ports; port++ {
		out.Relays[strconv.Itoa(port)] = domain.RelayOff
	}
	if master {
		for _, st := range states {
			if st.Port >= 1 && st.Port <= s.ports {
				out.Relays[strconv.Itoa(st.Port)] = st.RelayState
			}
		}
	}
	return out, nil
}

// SafetyLimits returns the per-port ceilings a node enforces locally. The
// core only distributes them; it never enforces them itself.
func (s *Service) SafetyLimits(ctx context.Context) domain.SafetyLimits {
	ctx, cancel := s.opCtx(ctx)
	defer cancel()
	return s.registry.Limits(ctx)
}

// RecordEmergency stores a node's safety-cutoff report as a CRITICAL
// alert. The reason string is stored verbatim. The server does not touch
// its own relay intent here: the node's physical cutoff surfaces through
// its next telemetry push, never through inference.
func (s *Service) RecordEmergency(ctx context.Context, report domain.EmergencyReport) (*domain.Alert, error) {
	if err := s.ValidatePort(report.Port); err != nil {
		return nil, err
	}

	ctx, cancel := s.opCtx(ctx)
	defer cancel()

	port := report.Port
	alert := domain.Alert{
		Type:     domain.AlertEmergency,
		Severity: domain.SeverityCritical,
		Port:     &port,
		Message: fmt.Sprintf("Emergency cutoff on port %d: %s (%.1fV %.2fA %.0fW)",
			report.Port, report.Reason, report.Voltage, report.Current, report.Power),
		CreatedAt: s.now(),
	}
	if err := s.store.AppendAlert(ctx, &alert); err != nil {
		return nil, err
	}
	s.notifyCritical(alert)
	s.publish(alert)
	return &alert, nil
}

// UnacknowledgedAlerts lists pending alerts, newest first.
func (s *Service) UnacknowledgedAlerts(ctx context.Context, limit int) ([]domain.Alert, error) {
	if limit <= 0 {
		limit = 50
	}
	ctx, cancel := s.opCtx(ctx)
	defer cancel()
	return s.store.ListUnacknowledgedAlerts(ctx, limit)
}

// AcknowledgeAlert marks one alert as seen. Alerts are never
// auto-acknowledged.
func (s *Service) AcknowledgeAlert(ctx context.Context, id int64) error {
	ctx, cancel := s.opCtx(ctx)
	defer cancel()
	return s.store.AcknowledgeAlert(ctx, id)
}
