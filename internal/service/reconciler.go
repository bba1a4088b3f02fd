package service

import (
	"context"

	"github.com/asifrahman/smart-multiplug-system/internal/domain"
)

// The reconciler is the single writer of current port state. It has two
// modes: preserve (telemetry ingest, relay state carried over untouched)
// and command (relay toggle, sensor values carried over untouched). The
// split keeps a sensor update from ever flipping a switch and a switch
// flip from ever zeroing sensors.

// reconcilePreserve writes a sample back with whatever relay state is
// already stored for the port, or OFF when the port has no prior row.
// Callers must hold the port's lock.
func (s *Service) reconcilePreserve(ctx context.Context, sample domain.TelemetrySample) (domain.PortState, error) {
	prev, err := s.store.GetPortState(ctx, sample.Port)
	if err != nil {
		return domain.PortState{}, err
	}
	relay := domain.RelayOff
	if prev != nil {
		relay = prev.RelayState
	}
	if err := s.store.UpsertPortState(ctx, sample, relay); err != nil {
		return domain.PortState{}, err
	}
	return domain.PortState{
		Port:        sample.Port,
		Voltage:     sample.Voltage,
		Current:     sample.Current,
		Power:       sample.Power,
		Status:      sample.Status(),
		RelayState:  relay,
		LastUpdated: s.now(),
	}, nil
}

// reconcileCommand flips the stored relay state, keeping the last-known
// sensor values. A toggle on a port with no prior row creates one with
// zeroed sensors, offline, and the new relay state. Callers must hold the
// port's lock.
func (s *Service) reconcileCommand(ctx context.Context, port int) (domain.RelayState, error) {
	prev, err := s.store.GetPortState(ctx, port)
	if err != nil {
		return "", err
	}
	relay := domain.RelayOff
	sample := domain.TelemetrySample{Port: port}
	if prev != nil {
		relay = prev.RelayState
		sample.Voltage = prev.Voltage
		sample.Current = prev.Current
		sample.Power = prev.Power
	}
	next := relay.Toggled()
	if err := s.store.UpsertPortState(ctx, sample, next); err != nil {
		return "", err
	}
	return next, nil
}
