package service

import (
	"context"
	"fmt"

	"github.com/asifrahman/smart-multiplug-system/internal/domain"
)

// DashboardData is the aggregate view served to operators: latest state
// for every port (zeroed rows for ports never seen), today's counters and
// the running month, with grand totals.
type DashboardData struct {
	Realtime   []domain.PortState      `json:"realtime"`
	Today      []domain.DailyCounter   `json:"today"`
	TodayTotal DayTotals               `json:"today_total"`
	Month      []domain.MonthlyCounter `json:"monthly"`
	MonthTotal Totals                  `json:"monthly_total"`
	Rate       float64                 `json:"electricity_rate"`
}

type Totals struct {
	EnergyKwh float64 `json:"energy_kwh"`
	CostBdt   float64 `json:"cost_bdt"`
}

// DayTotals adds runtime, which only daily counters track; monthly rows
// carry energy and cost alone.
type DayTotals struct {
	Totals
	RuntimeMinutes int    `json:"runtime_minutes"`
	Runtime        string `json:"runtime"`
}

// FormatRuntime renders minutes as "3h 25m".
func FormatRuntime(minutes int) string {
	return fmt.Sprintf("%dh %dm", minutes/60, minutes%60)
}

func (s *Service) Dashboard(ctx context.Context) (*DashboardData, error) {
	ctx, cancel := s.opCtx(ctx)
	defer cancel()

	now := s.now()
	date := now.Format("2006-01-02")

	states, err := s.store.ListPortStates(ctx)
	if err != nil {
		return nil, err
	}
	daily, err := s.store.ListDailyCounters(ctx, date)
	if err != nil {
		return nil, err
	}
	monthly, err := s.store.ListMonthlyCounters(ctx, now.Year(), int(now.Month()))
	if err != nil {
		return nil, err
	}

	byPort := make(map[int]domain.PortState, len(states))
	for _, st := range states {
		byPort[st.Port] = st
	}
	dailyByPort := make(map[int]domain.DailyCounter, len(daily))
	for _, d := range daily {
		dailyByPort[d.Port] = d
	}
	monthlyByPort := make(map[int]domain.MonthlyCounter, len(monthly))
	for _, m := range monthly {
		monthlyByPort[m.Port] = m
	}

	out := &DashboardData{Rate: s.registry.Rate(ctx)}
	for port := 1; port <= s.ports; port++ {
		st, ok := byPort[port]
		if !ok {
			st = domain.PortState{Port: port, Status: domain.StatusOffline, RelayState: domain.RelayOff}
		}
		out.Realtime = append(out.Realtime, st)

		d, ok := dailyByPort[port]
		if !ok {
			d = domain.DailyCounter{Date: date, Port: port}
		}
		out.Today = append(out.Today, d)
		out.TodayTotal.EnergyKwh += d.EnergyKwh
		out.TodayTotal.CostBdt += d.CostBdt
		out.TodayTotal.RuntimeMinutes += d.RuntimeMinutes

		m, ok := monthlyByPort[port]
		if !ok {
			m = domain.MonthlyCounter{Year: now.Year(), Month: int(now.Month()), Port: port}
		}
		out.Month = append(out.Month, m)
		out.MonthTotal.EnergyKwh += m.EnergyKwh
		out.MonthTotal.CostBdt += m.CostBdt
	}
	out.TodayTotal.Runtime = FormatRuntime(out.TodayTotal.RuntimeMinutes)
	return out, nil
}
