package usecase

import (
	"fmt"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"alertaid-backend/internal/domain"
)

const quakeTimeLayout = "Jan 2, 2006 3:04 PM MST"

// EvaluateEarthquake returns the earthquake alert for ev, if any. A nil
// event never triggers. loc is used to render the event time.
func EvaluateEarthquake(ev *domain.Earthquake, rules Rules, now time.Time, loc *time.Location) (string, bool) {
	if ev == nil {
		return "", false
	}
	place := strings.TrimSpace(ev.Place)
	if place == "" || ev.Magnitude < rules.MagnitudeThreshold {
		return "", false
	}

	magnitude := strings.TrimSpace(ev.MagnitudeText)
	if magnitude == "" {
		magnitude = formatNumber(ev.Magnitude)
	}

	msg := fmt.Sprintf("Earthquake Alert: Magnitude %s near %s.", magnitude, place)
	if !ev.OccurredAt.IsZero() {
		if loc == nil {
			loc = time.UTC
		}
		msg += fmt.Sprintf(" Occurred %s (%s).",
			humanize.RelTime(ev.OccurredAt, now, "ago", "from now"),
			ev.OccurredAt.In(loc).Format(quakeTimeLayout))
	}
	return msg, true
}
