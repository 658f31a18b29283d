package main

import (
	"github.com/septivank/attendance-sync-worker/internal/config"
	"github.com/septivank/attendance-sync-worker/internal/db"
	"github.com/septivank/attendance-sync-worker/internal/device"
	"github.com/septivank/attendance-sync-worker/internal/erp"
	"github.com/septivank/attendance-sync-worker/internal/mq"
	"github.com/septivank/attendance-sync-worker/internal/pipeline"
	"github.com/septivank/attendance-sync-worker/internal/repository"
	"github.com/septivank/attendance-sync-worker/internal/service"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

func newApp(opts ...fx.Option) *fx.App {
	return fx.New(
		fx.WithLogger(newFxLogger),
		fx.Provide(
			config.Load,
			newLogger,
			ProvideDriver,
			ProvideCollector,
			ProvideSession,
			ProvideRepository,
			ProvideJournal,
			ProvideMQConnection,
			ProvidePublisher,
			ProvideSyncService,
		),
		fx.Options(opts...),
	)
}

// ProvideDriver creates the command line device driver
func ProvideDriver(cfg *config.Config, logger *zap.Logger) (device.Driver, error) {
	loc, err := device.LoadLocation(cfg.Device.Timezone)
	if err != nil {
		return nil, err
	}
	return &device.CommandDriver{
		Command:  cfg.Device.Command,
		Model:    cfg.Device.Model,
		Timeout:  cfg.Device.CommandTimeout,
		Location: loc,
		Logger:   logger,
	}, nil
}

// ProvideCollector creates the device collector
func ProvideCollector(driver device.Driver, cfg *config.Config, logger *zap.Logger) *pipeline.Collector {
	if err := cfg.ValidateDevices(); err != nil {
		logger.Warn("no device targets configured, batches will be empty", zap.Error(err))
	}
	return pipeline.NewCollector(driver, device.Options{
		Password: cfg.Device.Password,
		Port:     cfg.Device.Port,
		Timeout:  cfg.Device.Timeout,
	}, logger)
}

// ProvideSession creates an unauthenticated ERP session
func ProvideSession(cfg *config.Config, logger *zap.Logger) (*erp.Session, error) {
	if err := cfg.ValidateERP(); err != nil {
		return nil, err
	}
	return erp.NewSession(erp.SessionConfig{
		BaseURL:  cfg.ERP.BaseURL,
		Email:    cfg.ERP.Login,
		Password: cfg.ERP.Password,
		Timeout:  cfg.ERP.Timeout,
	}, logger), nil
}

// ProvideRepository opens the run journal. It returns nil when DATABASE_URL is unset.
func ProvideRepository(lc fx.Lifecycle, logger *zap.Logger, cfg *config.Config) (*repository.Repository, error) {
	if cfg.Database.URL == "" {
		return nil, nil
	}

	pool, err := db.NewPool(lc, logger, cfg.Database)
	if err != nil {
		return nil, err
	}
	return repository.NewRepository(pool), nil
}

// ProvideJournal selects the journal implementation
func ProvideJournal(repo *repository.Repository, logger *zap.Logger) service.Journal {
	if repo == nil {
		logger.Debug("DATABASE_URL not set, run journal disabled")
		return service.NopJournal{}
	}
	return repo
}

// ProvideMQConnection dials RabbitMQ. It returns nil when RABBITMQ_URL is unset.
func ProvideMQConnection(lc fx.Lifecycle, logger *zap.Logger, cfg *config.Config) (*mq.Connection, error) {
	if cfg.RabbitMQ.URL == "" {
		return nil, nil
	}
	return mq.NewConnection(lc, logger, cfg.RabbitMQ)
}

// ProvidePublisher creates the uploaded-batch publisher
func ProvidePublisher(lc fx.Lifecycle, conn *mq.Connection, cfg *config.Config, logger *zap.Logger) (service.BatchPublisher, error) {
	if conn == nil {
		logger.Debug("RABBITMQ_URL not set, batch publishing disabled")
		return service.NopPublisher{}, nil
	}

	publisher, err := mq.NewPublisher(conn, cfg.RabbitMQ.EventsExchange, cfg.RabbitMQ.EventsRoutingKey, logger)
	if err != nil {
		return nil, err
	}
	lc.Append(fx.StopHook(publisher.Close))
	return publisher, nil
}

// ProvideSyncService creates the sync service
func ProvideSyncService(
	collector *pipeline.Collector,
	session *erp.Session,
	journal service.Journal,
	publisher service.BatchPublisher,
	cfg *config.Config,
	logger *zap.Logger,
) *service.SyncService {
	return service.NewSyncService(collector, session, journal, publisher, cfg, logger)
}
