package device

import (
	"testing"
	"time"
)

func TestParseDeviceTime_Default(t *testing.T) {
	loc := time.FixedZone("UTC+7", 7*3600)

	result, err := ParseDeviceTime("2025-12-29 10:30:45", loc)
	if err != nil {
		t.Fatalf("Failed to parse timestamp: %v", err)
	}

	expected := time.Date(2025, 12, 29, 3, 30, 45, 0, time.UTC)
	if !result.Equal(expected) {
		t.Errorf("Expected %v, got %v", expected, result)
	}
}

func TestParseDeviceTime_RFC3339(t *testing.T) {
	result, err := ParseDeviceTime("2025-12-29T10:30:45Z", time.Local)
	if err != nil {
		t.Fatalf("Failed to parse timestamp: %v", err)
	}

	expected := time.Date(2025, 12, 29, 10, 30, 45, 0, time.UTC)
	if !result.Equal(expected) {
		t.Errorf("Expected %v, got %v", expected, result)
	}
}

func TestParseDeviceTime_Invalid(t *testing.T) {
	if _, err := ParseDeviceTime("invalid-date-string", time.UTC); err == nil {
		t.Error("Expected error for invalid timestamp")
	}
}

func TestParseDeviceTime_BeforeEpoch(t *testing.T) {
	if _, err := ParseDeviceTime("1969-12-31 23:59:59", time.UTC); err == nil {
		t.Error("Expected error for pre-epoch timestamp")
	}
}

func TestLoadLocation(t *testing.T) {
	loc, err := LoadLocation("")
	if err != nil || loc != time.Local {
		t.Errorf("Expected local zone, got %v, %v", loc, err)
	}
	if _, err := LoadLocation("UTC"); err != nil {
		t.Errorf("Expected UTC to load, got %v", err)
	}
	if _, err := LoadLocation("Mars/Olympus"); err == nil {
		t.Error("Expected error for unknown zone")
	}
}
