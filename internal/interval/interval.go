// Package interval converts between Postgres interval strings and
// time.Duration. SLA and hold-time arithmetic runs on top of it, so
// parsing is total: malformed input yields a zero duration, never an
// error.
package interval

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Parse interprets interval representations such as "04:00:00",
// "2 days", "1 day 02:30:00", "4 hours" or "45 minutes". Unrecognized
// input degrades to zero.
func Parse(s string) time.Duration {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0
	}

	var total time.Duration
	rest := s

	if idx := dayFieldEnd(rest); idx > 0 {
		days, ok := leadingInt(rest)
		if !ok {
			return 0
		}
		total += time.Duration(days) * 24 * time.Hour
		rest = strings.TrimSpace(rest[idx:])
		if rest == "" {
			return total
		}
	}

	if strings.Contains(rest, ":") {
		parts := strings.Split(rest, ":")
		if len(parts) != 3 {
			return 0
		}
		h, err1 := strconv.Atoi(parts[0])
		m, err2 := strconv.Atoi(parts[1])
		sec, err3 := parseSeconds(parts[2])
		if err1 != nil || err2 != nil || err3 != nil {
			return 0
		}
		return total + time.Duration(h)*time.Hour + time.Duration(m)*time.Minute + sec
	}

	val, ok := leadingInt(rest)
	if !ok {
		return 0
	}
	switch {
	case strings.Contains(rest, "day"):
		return total + time.Duration(val)*24*time.Hour
	case strings.Contains(rest, "hour"):
		return total + time.Duration(val)*time.Hour
	case strings.Contains(rest, "minute"):
		return total + time.Duration(val)*time.Minute
	case strings.Contains(rest, "second"):
		return total + time.Duration(val)*time.Second
	}
	return 0
}

// Format renders a duration as a Postgres-compatible interval string,
// using "N days HH:MM:SS" when the duration spans full days.
func Format(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	days := int(d / (24 * time.Hour))
	d -= time.Duration(days) * 24 * time.Hour
	h := int(d / time.Hour)
	m := int(d % time.Hour / time.Minute)
	s := int(d % time.Minute / time.Second)

	clock := fmt.Sprintf("%02d:%02d:%02d", h, m, s)
	switch days {
	case 0:
		return clock
	case 1:
		return "1 day " + clock
	default:
		return fmt.Sprintf("%d days %s", days, clock)
	}
}

// dayFieldEnd returns the index just past a leading "N day(s)" field, or
// 0 when the string does not start with one.
func dayFieldEnd(s string) int {
	fields := strings.SplitN(s, " ", 3)
	if len(fields) < 2 {
		return 0
	}
	unit := strings.TrimSuffix(fields[1], "s")
	if unit != "day" {
		return 0
	}
	if _, err := strconv.Atoi(fields[0]); err != nil {
		return 0
	}
	return len(fields[0]) + 1 + len(fields[1])
}

func leadingInt(s string) (int, bool) {
	fields := strings.Fields(s)
	if len(fields) == 0 {
		return 0, false
	}
	val, err := strconv.Atoi(fields[0])
	if err != nil {
		return 0, false
	}
	return val, true
}

func parseSeconds(s string) (time.Duration, error) {
	// Postgres may emit fractional seconds.
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, err
	}
	return time.Duration(f * float64(time.Second)), nil
}
