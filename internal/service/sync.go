package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/septivank/attendance-sync-worker/internal/config"
	"github.com/septivank/attendance-sync-worker/internal/db"
	"github.com/septivank/attendance-sync-worker/internal/erp"
	"github.com/septivank/attendance-sync-worker/internal/event"
	"github.com/septivank/attendance-sync-worker/internal/logging"
	"github.com/septivank/attendance-sync-worker/internal/mq"
	"github.com/septivank/attendance-sync-worker/internal/pipeline"
	"github.com/septivank/attendance-sync-worker/internal/roster"
	"go.uber.org/zap"
)

// ErrWindowRequired is returned when no positive day window was given.
var ErrWindowRequired = errors.New("upload window in days is required: pass --days or set SYNC_DAYS")

// Trigger sources recorded in the journal
const (
	TriggerCLI   = "cli"
	TriggerQueue = "queue"
)

// EventSource collects events from device targets
type EventSource interface {
	Collect(ctx context.Context, targets []config.DeviceTarget, unreadOnly bool) (*pipeline.Result, error)
}

// Uploader is the ERP session
type Uploader interface {
	Authenticated() bool
	Login(ctx context.Context) error
	UploadEvents(ctx context.Context, employees []erp.Employee, events []event.Event) (map[string]any, error)
}

// Journal records sync runs
type Journal interface {
	StartRun(ctx context.Context, run *db.SyncRun) error
	FinishRun(ctx context.Context, run *db.SyncRun) error
}

// BatchPublisher announces uploaded batches
type BatchPublisher interface {
	PublishBatch(ctx context.Context, msg mq.BatchUploaded) error
}

// NopJournal is used when no database is configured
type NopJournal struct{}

func (NopJournal) StartRun(context.Context, *db.SyncRun) error { return nil }
func (NopJournal) FinishRun(context.Context, *db.SyncRun) error { return nil }

// NopPublisher is used when no RabbitMQ connection is configured
type NopPublisher struct{}

func (NopPublisher) PublishBatch(context.Context, mq.BatchUploaded) error { return nil }

// Request describes one sync run. Zero Days and nil UnreadOnly fall back to configuration.
type Request struct {
	RequestID  string
	Trigger    string
	Days       int
	UnreadOnly *bool
}

// Outcome summarizes a completed run
type Outcome struct {
	RunID           uuid.UUID
	Devices         int
	RowsRead        int
	EventsCollected int
	EventsUploaded  int
	Response        map[string]any
}

// SyncService collects events from every device and uploads the recent ones
type SyncService struct {
	source    EventSource
	uploader  Uploader
	journal   Journal
	publisher BatchPublisher
	cfg       *config.Config
	logger    *zap.Logger
	now       func() time.Time
}

// NewSyncService creates a new sync service
func NewSyncService(
	source EventSource,
	uploader Uploader,
	journal Journal,
	publisher BatchPublisher,
	cfg *config.Config,
	logger *zap.Logger,
) *SyncService {
	return &SyncService{
		source:    source,
		uploader:  uploader,
		journal:   journal,
		publisher: publisher,
		cfg:       cfg,
		logger:    logger,
		now:       time.Now,
	}
}

// Run performs one collect, filter and upload pass. Any device, login or
// upload failure aborts the run and is returned unchanged.
func (s *SyncService) Run(ctx context.Context, req Request) (*Outcome, error) {
	days := req.Days
	if days == 0 {
		days = s.cfg.Sync.Days
	}
	if days <= 0 {
		return nil, ErrWindowRequired
	}

	unreadOnly := s.cfg.Device.UnreadOnly
	if req.UnreadOnly != nil {
		unreadOnly = *req.UnreadOnly
	}

	trigger := req.Trigger
	if trigger == "" {
		trigger = TriggerCLI
	}

	run := &db.SyncRun{
		ID:         uuid.New(),
		Trigger:    trigger,
		RequestID:  req.RequestID,
		WindowDays: days,
		UnreadOnly: unreadOnly,
		StartedAt:  s.now(),
		Status:     db.RunStatusRunning,
	}
	runLogger := logging.WithRunID(s.logger, run.ID.String())
	runLogger.Info("starting sync run",
		zap.String("trigger", trigger),
		zap.Int("devices", len(s.cfg.Device.Targets)),
		zap.Int("window_days", days),
		zap.Bool("unread_only", unreadOnly))

	if err := s.journal.StartRun(ctx, run); err != nil {
		runLogger.Warn("failed to record run start", zap.Error(err))
	}

	outcome, err := s.run(ctx, run, runLogger)
	s.finish(ctx, run, err, runLogger)
	if err != nil {
		return nil, err
	}

	runLogger.Info("sync run completed",
		zap.Int("events_collected", outcome.EventsCollected),
		zap.Int("events_uploaded", outcome.EventsUploaded))
	return outcome, nil
}

func (s *SyncService) run(ctx context.Context, run *db.SyncRun, logger *zap.Logger) (*Outcome, error) {
	employees, err := roster.Load(s.cfg.ERP.EmployeesFile)
	if err != nil {
		return nil, err
	}

	result, err := s.source.Collect(ctx, s.cfg.Device.Targets, run.UnreadOnly)
	if err != nil {
		return nil, fmt.Errorf("failed to collect events: %w", err)
	}
	run.Devices = result.Devices
	run.RowsRead = result.Rows
	run.EventsCollected = len(result.Events)

	events := event.FilterSince(result.Events, event.Cutoff(s.now(), run.WindowDays))
	logger.Info("events collected",
		zap.Int("rows", result.Rows),
		zap.Int("events", len(result.Events)),
		zap.Int("in_window", len(events)))

	if !s.uploader.Authenticated() {
		if err := s.uploader.Login(ctx); err != nil {
			return nil, err
		}
	}

	response, err := s.uploader.UploadEvents(ctx, employees, events)
	if err != nil {
		return nil, err
	}
	run.EventsUploaded = len(events)

	msg := mq.BatchUploaded{
		RunID:      run.ID.String(),
		UploadedAt: s.now().UTC(),
		WindowDays: run.WindowDays,
		Events:     events,
		Response:   response,
	}
	if err := s.publisher.PublishBatch(ctx, msg); err != nil {
		logger.Error("failed to publish uploaded batch", zap.Error(err))
	}

	return &Outcome{
		RunID:           run.ID,
		Devices:         result.Devices,
		RowsRead:        result.Rows,
		EventsCollected: len(result.Events),
		EventsUploaded:  len(events),
		Response:        response,
	}, nil
}

func (s *SyncService) finish(ctx context.Context, run *db.SyncRun, runErr error, logger *zap.Logger) {
	finishedAt := s.now()
	run.FinishedAt = &finishedAt
	run.Status = db.RunStatusSucceeded
	if runErr != nil {
		msg := runErr.Error()
		run.Status = db.RunStatusFailed
		run.ErrorMessage = &msg
		logger.Error("sync run failed", zap.Error(runErr))
	}

	if err := s.journal.FinishRun(ctx, run); err != nil {
		logger.Warn("failed to record run result", zap.Error(err))
	}
}

// HandleSyncRequest runs a sync for a queue trigger
func (s *SyncService) HandleSyncRequest(ctx context.Context, req mq.SyncRequest) error {
	_, err := s.Run(ctx, Request{
		RequestID:  req.RequestID,
		Trigger:    TriggerQueue,
		Days:       req.Days,
		UnreadOnly: req.UnreadOnly,
	})
	return err
}
