package service

import (
	"context"
	"time"

	"github.com/asifrahman/smart-multiplug-system/internal/domain"
)

// RelayChange is broadcast after a successful toggle so dashboards see
// operator actions without waiting for the next telemetry push.
type RelayChange struct {
	Type      string            `json:"type"`
	Port      int               `json:"port"`
	State     domain.RelayState `json:"state"`
	Timestamp time.Time         `json:"timestamp"`
}

// ToggleRelay atomically reads the port's relay command state, flips it,
// persists it through the reconciler's command mode and returns the new
// state. There is deliberately no set-to-X operation; this mirrors the
// physical toggle switch the system emulates, and callers wanting
// idempotent semantics compare-and-skip themselves.
func (s *Service) ToggleRelay(ctx context.Context, port int) (domain.RelayState, error) {
	if err := s.ValidatePort(port); err != nil {
		return "", err
	}

	unlock := s.locks.lock(port)
	defer unlock()

	ctx, cancel := s.opCtx(ctx)
	defer cancel()

	next, err := s.reconcileCommand(ctx, port)
	if err != nil {
		return "", err
	}
	s.publish(RelayChange{Type: "relay_update", Port: port, State: next, Timestamp: s.now()})
	return next, nil
}
