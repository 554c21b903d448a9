package pricing

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/Temutjin2k/ride-dispatch/internal/domain/models"
)

// Window is a half-open [Start, End) range of local time of day.
// A window whose End is before its Start wraps past midnight.
type Window struct {
	Start time.Duration
	End   time.Duration
}

// Contains reports whether the time of day of t is inside the window.
func (w Window) Contains(t time.Time) bool {
	h, m, s := t.Clock()
	tod := time.Duration(h)*time.Hour + time.Duration(m)*time.Minute + time.Duration(s)*time.Second

	if w.Start <= w.End {
		return tod >= w.Start && tod < w.End
	}
	return tod >= w.Start || tod < w.End
}

func (w Window) String() string {
	return fmt.Sprintf("%s-%s", formatClock(w.Start), formatClock(w.End))
}

// ParsePeakWindows parses a comma separated list such as "07:00-09:00,17:00-19:00".
// An empty string yields no windows.
func ParsePeakWindows(s string) ([]Window, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}

	var windows []Window
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		from, to, ok := strings.Cut(part, "-")
		if !ok {
			return nil, fmt.Errorf("peak window %q: expected HH:MM-HH:MM", part)
		}

		start, err := parseClock(from)
		if err != nil {
			return nil, fmt.Errorf("peak window %q: %w", part, err)
		}
		end, err := parseClock(to)
		if err != nil {
			return nil, fmt.Errorf("peak window %q: %w", part, err)
		}
		if start == end {
			return nil, fmt.Errorf("peak window %q: empty range", part)
		}

		windows = append(windows, Window{Start: start, End: end})
	}

	return windows, nil
}

func parseClock(s string) (time.Duration, error) {
	hh, mm, ok := strings.Cut(strings.TrimSpace(s), ":")
	if !ok {
		return 0, fmt.Errorf("invalid clock %q", s)
	}
	h, err := strconv.Atoi(hh)
	if err != nil || h < 0 || h > 24 {
		return 0, fmt.Errorf("invalid hour in %q", s)
	}
	m, err := strconv.Atoi(mm)
	if err != nil || m < 0 || m > 59 || (h == 24 && m != 0) {
		return 0, fmt.Errorf("invalid minute in %q", s)
	}
	return time.Duration(h)*time.Hour + time.Duration(m)*time.Minute, nil
}

func formatClock(d time.Duration) string {
	return fmt.Sprintf("%02d:%02d", int(d/time.Hour), int(d%time.Hour/time.Minute))
}

// SurgeRules configures the surge multiplier.
type SurgeRules struct {
	PeakWindows      []Window
	Location         *time.Location
	PeakFactor       float64
	WeekendFactor    float64
	BadWeatherFactor float64
	HighDemandFactor float64
}

// DefaultSurgeRules returns the reference rules evaluated in loc.
func DefaultSurgeRules(loc *time.Location) SurgeRules {
	if loc == nil {
		loc = time.UTC
	}
	return SurgeRules{
		PeakWindows: []Window{
			{Start: 7 * time.Hour, End: 9 * time.Hour},
			{Start: 17 * time.Hour, End: 19 * time.Hour},
		},
		Location:         loc,
		PeakFactor:       1.5,
		WeekendFactor:    1.1,
		BadWeatherFactor: 1.3,
		HighDemandFactor: 1.5,
	}
}

// Multiplier composes every applicable factor and rounds to 2 decimals.
func (r SurgeRules) Multiplier(now time.Time, flags models.SurgeFlags) float64 {
	loc := r.Location
	if loc == nil {
		loc = time.UTC
	}
	local := now.In(loc)

	m := 1.0
	for _, w := range r.PeakWindows {
		if w.Contains(local) {
			m *= factor(r.PeakFactor)
			break
		}
	}
	if wd := local.Weekday(); wd == time.Saturday || wd == time.Sunday {
		m *= factor(r.WeekendFactor)
	}
	if flags.BadWeather {
		m *= factor(r.BadWeatherFactor)
	}
	if flags.HighDemand {
		m *= factor(r.HighDemandFactor)
	}

	return round2(m)
}

// factor ignores unset or discounting factors; surge never lowers a fare.
func factor(f float64) float64 {
	if f < 1 {
		return 1
	}
	return f
}
