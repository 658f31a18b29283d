// Package pipeline turns per-device transaction rows into one ordered event sequence.
package pipeline

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/septivank/attendance-sync-worker/internal/config"
	"github.com/septivank/attendance-sync-worker/internal/device"
	"github.com/septivank/attendance-sync-worker/internal/event"
	"github.com/septivank/attendance-sync-worker/internal/logging"
	"go.uber.org/zap"
)

// DeviceRows holds the rows read from one device and that device's origin tag.
type DeviceRows struct {
	OriginID int
	Rows     []device.Row
}

// Build drops cardless rows and rows without a valid time, tags each
// remaining row with its device's origin and sorts by timestamp. Equal
// timestamps keep input order.
func Build(batches []DeviceRows) []event.Event {
	events := make([]event.Event, 0)
	for _, batch := range batches {
		for _, row := range batch.Rows {
			card := strings.TrimSpace(row.Card)
			if card == "" || !validTime(row.Time) {
				continue
			}
			events = append(events, event.Event{
				Card:      card,
				Timestamp: row.Time.Unix(),
				OriginID:  batch.OriginID,
			})
		}
	}

	sort.SliceStable(events, func(i, j int) bool {
		return events[i].Timestamp < events[j].Timestamp
	})
	return events
}

// validTime rejects zero and pre-1970 times, which have no unix-seconds form.
func validTime(t time.Time) bool {
	return !t.IsZero() && t.Unix() >= 0
}

// Collector polls device targets one after another.
type Collector struct {
	driver device.Driver
	opts   device.Options
	logger *zap.Logger
}

// NewCollector creates a new collector
func NewCollector(driver device.Driver, opts device.Options, logger *zap.Logger) *Collector {
	return &Collector{
		driver: driver,
		opts:   opts,
		logger: logger,
	}
}

// Result is the outcome of one collection pass.
type Result struct {
	Devices int
	Rows    int
	Events  []event.Event
}

// Collect reads every target in order and builds the event sequence.
// The first device failure aborts the pass.
func (c *Collector) Collect(ctx context.Context, targets []config.DeviceTarget, unreadOnly bool) (*Result, error) {
	opts := c.opts
	opts.UnreadOnly = unreadOnly

	batches := make([]DeviceRows, 0, len(targets))
	result := &Result{}

	for _, target := range targets {
		devLogger := logging.WithDevice(c.logger, target.Address, target.OriginID)
		devLogger.Info("reading device transactions", zap.Bool("unread_only", unreadOnly))

		batch := DeviceRows{OriginID: target.OriginID}
		err := device.Collect(ctx, c.driver, target.Address, opts, func(row device.Row) error {
			batch.Rows = append(batch.Rows, row)
			return nil
		})
		if err != nil {
			devLogger.Error("failed to read device", zap.Error(err))
			return nil, err
		}

		devLogger.Info("device transactions read", zap.Int("rows", len(batch.Rows)))
		batches = append(batches, batch)
		result.Devices++
		result.Rows += len(batch.Rows)
	}

	result.Events = Build(batches)
	return result, nil
}
