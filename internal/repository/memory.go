package repository

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/asifrahman/smart-multiplug-system/internal/domain"
)

// Memory is an in-memory Store with the same upsert semantics as the
// Postgres implementation. It backs tests and local development without a
// database.
type Memory struct {
	mu       sync.Mutex
	ports    map[int]domain.PortState
	daily    map[string]domain.DailyCounter
	monthly  map[string]domain.MonthlyCounter
	peaks    map[string]domain.PeakUsageRecord
	alerts   []domain.Alert
	settings map[string]string
	nextID   int64

	// Now stamps last_updated on port-state writes. Tests point it at
	// their fake clock so retention cutoffs line up.
	Now func() time.Time
}

var _ Store = (*Memory)(nil)

func NewMemory() *Memory {
	return &Memory{
		ports:    make(map[int]domain.PortState),
		daily:    make(map[string]domain.DailyCounter),
		monthly:  make(map[string]domain.MonthlyCounter),
		peaks:    make(map[string]domain.PeakUsageRecord),
		settings: make(map[string]string),
		Now:      time.Now,
	}
}

func dayKey(date string, port int) string { return fmt.Sprintf("%s|%d", date, port) }
func monthKey(y, m, port int) string      { return fmt.Sprintf("%04d-%02d|%d", y, m, port) }

func (s *Memory) GetPortState(_ context.Context, port int) (*domain.PortState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.ports[port]
	if !ok {
		return nil, nil
	}
	return &st, nil
}

func (s *Memory) UpsertPortState(_ context.Context, sample domain.TelemetrySample, relay domain.RelayState) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ports[sample.Port] = domain.PortState{
		Port:        sample.Port,
		Voltage:     sample.Voltage,
		Current:     sample.Current,
		Power:       sample.Power,
		Status:      sample.Status(),
		RelayState:  relay,
		LastUpdated: s.Now(),
	}
	return nil
}

func (s *Memory) ListPortStates(_ context.Context) ([]domain.PortState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.PortState, 0, len(s.ports))
	for _, st := range s.ports {
		out = append(out, st)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Port < out[j].Port })
	return out, nil
}

func (s *Memory) DeleteStalePortStates(_ context.Context, cutoff time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for port, st := range s.ports {
		if st.LastUpdated.Before(cutoff) {
			delete(s.ports, port)
			n++
		}
	}
	return n, nil
}

func (s *Memory) GetDailyCounter(_ context.Context, date string, port int) (*domain.DailyCounter, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.daily[dayKey(date, port)]
	if !ok {
		return nil, nil
	}
	return &d, nil
}

func (s *Memory) AddToDailyCounter(_ context.Context, date string, port int, deltaEnergy, deltaCost float64, runtimeMinutes int, instPower float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := dayKey(date, port)
	d, ok := s.daily[key]
	if !ok {
		d = domain.DailyCounter{Date: date, Port: port}
	}
	d.EnergyKwh += deltaEnergy
	d.CostBdt += deltaCost
	d.RuntimeMinutes += runtimeMinutes
	if instPower > d.PeakUsageWatts {
		d.PeakUsageWatts = instPower
	}
	s.daily[key] = d
	return nil
}

func (s *Memory) ListDailyCounters(_ context.Context, date string) ([]domain.DailyCounter, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.DailyCounter
	for _, d := range s.daily {
		if d.Date == date {
			out = append(out, d)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Port < out[j].Port })
	return out, nil
}

func (s *Memory) DeleteDailyCountersForDate(_ context.Context, date string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for key, d := range s.daily {
		if d.Date == date {
			delete(s.daily, key)
		}
	}
	return nil
}

func (s *Memory) GetMonthlyCounter(_ context.Context, year, month, port int) (*domain.MonthlyCounter, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.monthly[monthKey(year, month, port)]
	if !ok {
		return nil, nil
	}
	return &m, nil
}

func (s *Memory) AddToMonthlyCounter(_ context.Context, year, month, port int, deltaEnergy, deltaCost float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := monthKey(year, month, port)
	m, ok := s.monthly[key]
	if !ok {
		m = domain.MonthlyCounter{Year: year, Month: month, Port: port}
	}
	m.EnergyKwh += deltaEnergy
	m.CostBdt += deltaCost
	s.monthly[key] = m
	return nil
}

func (s *Memory) ListMonthlyCounters(_ context.Context, year, month int) ([]domain.MonthlyCounter, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.MonthlyCounter
	for _, m := range s.monthly {
		if m.Year == year && m.Month == month {
			out = append(out, m)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Port < out[j].Port })
	return out, nil
}

func (s *Memory) GetPeakUsage(_ context.Context, date string, port int) (*domain.PeakUsageRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.peaks[dayKey(date, port)]
	if !ok {
		return nil, nil
	}
	return &p, nil
}

func (s *Memory) UpsertPeakUsage(_ context.Context, date string, port int, power float64, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := dayKey(date, port)
	p, ok := s.peaks[key]
	if !ok {
		s.peaks[key] = domain.PeakUsageRecord{
			Date: date, Port: port,
			PeakPowerWatts: power, PeakTime: at, DurationMinutes: 1,
		}
		return nil
	}
	p.DurationMinutes++
	if power > p.PeakPowerWatts {
		p.PeakPowerWatts = power
		p.PeakTime = at
	}
	s.peaks[key] = p
	return nil
}

func (s *Memory) AppendAlert(_ context.Context, alert *domain.Alert) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	alert.ID = s.nextID
	s.alerts = append(s.alerts, *alert)
	return nil
}

func (s *Memory) ListUnacknowledgedAlerts(_ context.Context, limit int) ([]domain.Alert, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.Alert
	for _, a := range s.alerts {
		if !a.Acknowledged {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *Memory) AcknowledgeAlert(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.alerts {
		if s.alerts[i].ID == id {
			s.alerts[i].Acknowledged = true
			return nil
		}
	}
	return sql.ErrNoRows
}

func (s *Memory) ListAlertsBefore(_ context.Context, cutoff time.Time) ([]domain.Alert, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.Alert
	for _, a := range s.alerts {
		if a.CreatedAt.Before(cutoff) {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (s *Memory) DeleteAlertsBefore(_ context.Context, cutoff time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var kept []domain.Alert
	var n int64
	for _, a := range s.alerts {
		if a.CreatedAt.Before(cutoff) {
			n++
			continue
		}
		kept = append(kept, a)
	}
	s.alerts = kept
	return n, nil
}

func (s *Memory) GetSetting(_ context.Context, key string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.settings[key]
	return v, ok, nil
}

func (s *Memory) SetSetting(_ context.Context, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.settings[key] = value
	return nil
}
