package device

import (
	"fmt"
	"time"
)

// ParseDeviceTime parses a terminal timestamp. Formats without a zone offset
// are read in loc.
func ParseDeviceTime(s string, loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.Local
	}

	formats := []string{
		"2006-01-02 15:04:05", // pyzkaccess default
		"2006-01-02T15:04:05",
		time.RFC3339,
	}

	var lastErr error
	for _, format := range formats {
		t, err := time.ParseInLocation(format, s, loc)
		if err == nil {
			if t.Unix() < 0 {
				return time.Time{}, fmt.Errorf("timestamp '%s' is before the unix epoch", s)
			}
			return t, nil
		}
		lastErr = err
	}

	return time.Time{}, fmt.Errorf("failed to parse timestamp '%s': %w", s, lastErr)
}

// LoadLocation resolves a timezone name. "" and "Local" mean the host zone.
func LoadLocation(name string) (*time.Location, error) {
	if name == "" || name == "Local" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, fmt.Errorf("unknown device timezone %q: %w", name, err)
	}
	return loc, nil
}
