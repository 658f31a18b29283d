package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	ServiceName string
	LogLevel    string
	Device      DeviceConfig
	ERP         ERPConfig
	Sync        SyncConfig
	Database    DatabaseConfig
	RabbitMQ    RabbitMQConfig
}

// DeviceConfig holds access-control terminal settings shared by every target
type DeviceConfig struct {
	Targets        []DeviceTarget
	Password       string
	Port           int
	Timeout        time.Duration
	Model          string
	Command        string
	CommandTimeout time.Duration
	Timezone       string
	UnreadOnly     bool
}

// ERPConfig holds the upload endpoint and its credentials
type ERPConfig struct {
	BaseURL       string
	Login         string
	Password      string
	Timeout       time.Duration
	EmployeesFile string
}

// SyncConfig holds the upload window. Days has no default.
type SyncConfig struct {
	Days int
}

// DatabaseConfig holds the optional run journal connection
type DatabaseConfig struct {
	URL string
}

// RabbitMQConfig holds the optional RabbitMQ connection and queue settings
type RabbitMQConfig struct {
	URL              string
	SyncExchange     string
	SyncQueue        string
	SyncRoutingKey   string
	DLQQueue         string
	EventsExchange   string
	EventsRoutingKey string
	PrefetchCount    int
}

// Viper keys. Each one is read from the environment variable of the same name.
const (
	KeyServiceName      = "SERVICE_NAME"
	KeyLogLevel         = "LOG_LEVEL"
	KeyIPCodes          = "IP_CODES"
	KeyDevicePassword   = "PASSWORD"
	KeyDevicePort       = "DEVICE_PORT"
	KeyDeviceTimeoutMS  = "DEVICE_TIMEOUT_MS"
	KeyDeviceModel      = "DEVICE_MODEL"
	KeyDeviceCommand    = "DEVICE_COMMAND"
	KeyDeviceCmdTimeout = "DEVICE_COMMAND_TIMEOUT_SECONDS"
	KeyDeviceTimezone   = "DEVICE_TIMEZONE"
	KeyDeviceUnreadOnly = "DEVICE_UNREAD_ONLY"
	KeyERPBaseURL       = "ERP_BASE_URL"
	KeyERPLogin         = "ERP_LOGIN"
	KeyERPPassword      = "ERP_PASSWORD"
	KeyERPTimeout       = "ERP_TIMEOUT_SECONDS"
	KeyERPEmployeesFile = "ERP_EMPLOYEES_FILE"
	KeySyncDays         = "SYNC_DAYS"
	KeyDatabaseURL      = "DATABASE_URL"
	KeyRabbitURL        = "RABBITMQ_URL"
	KeySyncExchange     = "RABBITMQ_SYNC_EXCHANGE"
	KeySyncQueue        = "RABBITMQ_SYNC_QUEUE"
	KeySyncRoutingKey   = "RABBITMQ_SYNC_ROUTING_KEY"
	KeyDLQQueue         = "RABBITMQ_DLQ_QUEUE"
	KeyEventsExchange   = "RABBITMQ_EVENTS_EXCHANGE"
	KeyEventsRoutingKey = "RABBITMQ_EVENTS_ROUTING_KEY"
	KeyPrefetch         = "RABBITMQ_PREFETCH"
)

// SetDefaults registers fallback values on v
func SetDefaults(v *viper.Viper) {
	v.SetDefault(KeyServiceName, "attendance-sync-worker")
	v.SetDefault(KeyLogLevel, "info")
	v.SetDefault(KeyDevicePort, 4370)
	v.SetDefault(KeyDeviceTimeoutMS, 4000)
	v.SetDefault(KeyDeviceModel, "ZK100")
	v.SetDefault(KeyDeviceCommand, "pyzkaccess")
	v.SetDefault(KeyDeviceCmdTimeout, 120)
	v.SetDefault(KeyDeviceTimezone, "Local")
	v.SetDefault(KeyDeviceUnreadOnly, false)
	v.SetDefault(KeyERPTimeout, 30)
	v.SetDefault(KeySyncExchange, "attendance.sync.exchange")
	v.SetDefault(KeySyncQueue, "attendance.sync.queue")
	v.SetDefault(KeySyncRoutingKey, "attendance.sync.requested")
	v.SetDefault(KeyDLQQueue, "attendance.sync.dlq")
	v.SetDefault(KeyEventsExchange, "attendance.events.exchange")
	v.SetDefault(KeyEventsRoutingKey, "attendance.batch.uploaded")
	v.SetDefault(KeyPrefetch, 1)
}

// Load loads configuration from the process-wide viper instance
func Load() (*Config, error) {
	v := viper.GetViper()
	v.AutomaticEnv()
	SetDefaults(v)
	return FromViper(v)
}

// FromViper builds a Config from v. Device and ERP settings are checked
// later by the commands that need them.
func FromViper(v *viper.Viper) (*Config, error) {
	cfg := &Config{
		ServiceName: v.GetString(KeyServiceName),
		LogLevel:    v.GetString(KeyLogLevel),
		Device: DeviceConfig{
			Targets:        ParseDeviceTargets(v.GetString(KeyIPCodes)),
			Password:       v.GetString(KeyDevicePassword),
			Port:           v.GetInt(KeyDevicePort),
			Timeout:        time.Duration(v.GetInt(KeyDeviceTimeoutMS)) * time.Millisecond,
			Model:          v.GetString(KeyDeviceModel),
			Command:        v.GetString(KeyDeviceCommand),
			CommandTimeout: time.Duration(v.GetInt(KeyDeviceCmdTimeout)) * time.Second,
			Timezone:       v.GetString(KeyDeviceTimezone),
			UnreadOnly:     v.GetBool(KeyDeviceUnreadOnly),
		},
		ERP: ERPConfig{
			BaseURL:       strings.TrimRight(v.GetString(KeyERPBaseURL), "/"),
			Login:         v.GetString(KeyERPLogin),
			Password:      v.GetString(KeyERPPassword),
			Timeout:       time.Duration(v.GetInt(KeyERPTimeout)) * time.Second,
			EmployeesFile: v.GetString(KeyERPEmployeesFile),
		},
		Sync: SyncConfig{
			Days: v.GetInt(KeySyncDays),
		},
		Database: DatabaseConfig{
			URL: v.GetString(KeyDatabaseURL),
		},
		RabbitMQ: RabbitMQConfig{
			URL:              v.GetString(KeyRabbitURL),
			SyncExchange:     v.GetString(KeySyncExchange),
			SyncQueue:        v.GetString(KeySyncQueue),
			SyncRoutingKey:   v.GetString(KeySyncRoutingKey),
			DLQQueue:         v.GetString(KeyDLQQueue),
			EventsExchange:   v.GetString(KeyEventsExchange),
			EventsRoutingKey: v.GetString(KeyEventsRoutingKey),
			PrefetchCount:    v.GetInt(KeyPrefetch),
		},
	}

	if cfg.Device.Port <= 0 {
		return nil, fmt.Errorf("%s must be positive, got %d", KeyDevicePort, cfg.Device.Port)
	}
	if cfg.Device.Timeout <= 0 {
		return nil, fmt.Errorf("%s must be positive", KeyDeviceTimeoutMS)
	}
	if cfg.ERP.Timeout <= 0 {
		return nil, fmt.Errorf("%s must be positive", KeyERPTimeout)
	}

	return cfg, nil
}

// ValidateDevices reports whether at least one device target is configured
func (c *Config) ValidateDevices() error {
	if len(c.Device.Targets) == 0 {
		return fmt.Errorf("%s is required but no valid ip:code pairs were found", KeyIPCodes)
	}
	return nil
}

// ValidateERP reports whether the upload endpoint is fully configured
func (c *Config) ValidateERP() error {
	if c.ERP.BaseURL == "" {
		return fmt.Errorf("%s is required but not set in environment variables", KeyERPBaseURL)
	}
	if c.ERP.Login == "" {
		return fmt.Errorf("%s is required but not set in environment variables", KeyERPLogin)
	}
	if c.ERP.Password == "" {
		return fmt.Errorf("%s is required but not set in environment variables", KeyERPPassword)
	}
	return nil
}
