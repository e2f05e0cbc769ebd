package helpers

import (
	"fmt"
	"time"
)

// FormatRelative renders t relative to now, e.g. "3 minutes ago" or "2 days from now".
func FormatRelative(t, now time.Time) string {
	if t.IsZero() {
		return "-"
	}
	elapsed := now.Sub(t)
	if elapsed < 0 {
		return FormatDuration(-elapsed) + " from now"
	}
	if elapsed < time.Second {
		return "just now"
	}
	return FormatDuration(elapsed) + " ago"
}

// FormatElapsed is the time between start and finish, or "running" while the
// deployment has no finish time.
func FormatElapsed(start time.Time, finish *time.Time) string {
	if finish == nil {
		return "running"
	}
	if finish.Before(start) {
		return "-"
	}
	return FormatDuration(finish.Sub(start))
}

// FormatDuration uses the largest whole unit that fits.
func FormatDuration(d time.Duration) string {
	switch {
	case d < time.Minute:
		return plural(int(d.Seconds()), "second")
	case d < time.Hour:
		return plural(int(d.Minutes()), "minute")
	case d < 24*time.Hour:
		return plural(int(d.Hours()), "hour")
	case d < 30*24*time.Hour:
		return plural(int(d.Hours()/24), "day")
	case d < 365*24*time.Hour:
		return plural(int(d.Hours()/(24*30)), "month")
	default:
		return plural(int(d.Hours()/(24*365)), "year")
	}
}

func plural(n int, unit string) string {
	if n <= 1 {
		return "1 " + unit
	}
	return fmt.Sprintf("%d %ss", n, unit)
}
