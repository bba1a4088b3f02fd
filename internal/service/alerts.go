package service

import (
	"fmt"
	"time"

	"github.com/asifrahman/smart-multiplug-system/internal/domain"
	"github.com/asifrahman/smart-multiplug-system/internal/settings"
)

// AlertInput is everything the evaluator looks at for one sample. The
// daily cost is the value after the sample's own delta was folded in.
type AlertInput struct {
	Port         int
	PowerWatts   float64
	DailyCostBdt float64
	Hour         int
	At           time.Time
	Thresholds   settings.Thresholds
}

// EvaluateAlerts is a pure rule set: each rule fires independently, a
// single sample can produce all three types, and repeated breaches
// produce repeated rows. Deduplication is deliberately absent so alert
// frequency stays visible to operators.
func EvaluateAlerts(in AlertInput) []domain.Alert {
	port := in.Port
	var out []domain.Alert

	if in.PowerWatts > in.Thresholds.HighUsageWatts {
		out = append(out, domain.Alert{
			Type:     domain.AlertHighUsage,
			Severity: domain.SeverityWarning,
			Port:     &port,
			Message: fmt.Sprintf("Port %d drawing %.0fW, above the %.0fW usage threshold",
				port, in.PowerWatts, in.Thresholds.HighUsageWatts),
			CreatedAt: in.At,
		})
	}

	if in.DailyCostBdt > in.Thresholds.DailyCostBDT {
		out = append(out, domain.Alert{
			Type:     domain.AlertHighCost,
			Severity: domain.SeverityCritical,
			Port:     &port,
			Message: fmt.Sprintf("Port %d daily cost %.2f BDT exceeds the %.2f BDT limit",
				port, in.DailyCostBdt, in.Thresholds.DailyCostBDT),
			CreatedAt: in.At,
		})
	}

	if inPeakWindow(in.Hour, in.Thresholds.PeakStartHour, in.Thresholds.PeakEndHour) &&
		in.PowerWatts > in.Thresholds.PeakFloorWatts {
		out = append(out, domain.Alert{
			Type:     domain.AlertPeakUsage,
			Severity: domain.SeverityInfo,
			Port:     &port,
			Message: fmt.Sprintf("Port %d drawing %.0fW during peak hours",
				port, in.PowerWatts),
			CreatedAt: in.At,
		})
	}

	return out
}
