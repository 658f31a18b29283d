package event

import "time"

const secondsPerDay = 86400

// FilterByDays keeps events no older than days before now.
func FilterByDays(events []Event, days int) []Event {
	return FilterSince(events, Cutoff(time.Now(), days))
}

// Cutoff returns the unix second a days-long window ending at now starts at.
func Cutoff(now time.Time, days int) int64 {
	return now.Unix() - int64(days)*secondsPerDay
}

// FilterSince keeps events with Timestamp >= cutoff, preserving order.
func FilterSince(events []Event, cutoff int64) []Event {
	out := make([]Event, 0, len(events))
	for _, e := range events {
		if e.Timestamp >= cutoff {
			out = append(out, e)
		}
	}
	return out
}

// Between keeps events in [from, to]. A zero bound is open.
func Between(events []Event, from, to time.Time) []Event {
	out := make([]Event, 0, len(events))
	for _, e := range events {
		if !from.IsZero() && e.Timestamp < from.Unix() {
			continue
		}
		if !to.IsZero() && e.Timestamp > to.Unix() {
			continue
		}
		out = append(out, e)
	}
	return out
}

// Last returns the final n events. n <= 0 returns everything.
func Last(events []Event, n int) []Event {
	if n <= 0 || n >= len(events) {
		return events
	}
	return events[len(events)-n:]
}
