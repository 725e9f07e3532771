package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

var (
	errNoKafkaBrokers = errors.New("at least one kafka broker is required")
	errNoRedisAddr    = errors.New("redis address is required")
	errNoDBPath       = errors.New("db_path is required")
)

// Duration wraps time.Duration for JSON unmarshaling from either a numeric
// nanosecond count or a time.ParseDuration string.
type Duration time.Duration

func (d *Duration) UnmarshalJSON(b []byte) error {
	var v interface{}
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}

	switch value := v.(type) {
	case float64:
		// parse numeric as nanoseconds
		*d = Duration(time.Duration(value))
		return nil
	case string:
		dur, err := time.ParseDuration(value)
		if err != nil {
			return fmt.Errorf("invalid duration: %w", err)
		}

		*d = Duration(dur)

		return nil
	default:
		return errInvalidDuration
	}
}

// KafkaConfig points a component at the bus.
type KafkaConfig struct {
	Brokers  []string `json:"brokers"`   // e.g. ["localhost:9092"]
	ClientID string   `json:"client_id"` // e.g. "driftwatch-scheduler"
}

func (k *KafkaConfig) Validate() error {
	if len(k.Brokers) == 0 {
		return errNoKafkaBrokers
	}

	return nil
}

// RedisConfig points a component at the shared expiring cache.
type RedisConfig struct {
	Addr     string `json:"addr"` // e.g. "localhost:6379"
	Password string `json:"password,omitempty"`
	DB       int    `json:"db,omitempty"`
}

func (r *RedisConfig) Validate() error {
	if r.Addr == "" {
		return errNoRedisAddr
	}

	return nil
}

// SchedulerConfig configures the scheduler / monitoring pipeline process.
type SchedulerConfig struct {
	ListenAddr        string      `json:"listen_addr"` // gRPC health, e.g. :50061
	HTTPAddr          string      `json:"http_addr"`   // admin API + /metrics
	DBPath            string      `json:"db_path"`
	Kafka             KafkaConfig `json:"kafka"`
	Redis             RedisConfig `json:"redis"`
	RateLimitInterval Duration    `json:"rate_limit_interval,omitempty"` // default 5m
	HealthInterval    Duration    `json:"health_interval,omitempty"`     // default 1m
	MetricsInterval   Duration    `json:"metrics_interval,omitempty"`    // default 5m
	ReloadInterval    Duration    `json:"reload_interval,omitempty"`     // default 1h
	CleanupInterval   Duration    `json:"cleanup_interval,omitempty"`    // default 24h
	RetentionPeriod   Duration    `json:"retention_period,omitempty"`    // default 90 days
}

func (c *SchedulerConfig) Validate() error {
	if c.DBPath == "" {
		return errNoDBPath
	}

	if err := c.Kafka.Validate(); err != nil {
		return err
	}

	return c.Redis.Validate()
}

// DetectorConfig configures the change detector process.
type DetectorConfig struct {
	ListenAddr string      `json:"listen_addr"`
	DBPath     string      `json:"db_path"`
	Kafka      KafkaConfig `json:"kafka"`
	Redis      RedisConfig `json:"redis"`
}

func (c *DetectorConfig) Validate() error {
	if c.DBPath == "" {
		return errNoDBPath
	}

	if err := c.Kafka.Validate(); err != nil {
		return err
	}

	return c.Redis.Validate()
}

// SMTPDefaults are merged under each email channel's own settings.
type SMTPDefaults struct {
	Host        string `json:"smtp_host,omitempty"`
	Port        int    `json:"smtp_port,omitempty"`
	Username    string `json:"smtp_username,omitempty"`
	Password    string `json:"smtp_password,omitempty"`
	UseTLS      bool   `json:"use_tls,omitempty"`
	FromAddress string `json:"from_address,omitempty"`
}

// AlerterConfig configures the alert engine process.
type AlerterConfig struct {
	ListenAddr    string        `json:"listen_addr"`
	DBPath        string        `json:"db_path"`
	Kafka         KafkaConfig   `json:"kafka"`
	Redis         RedisConfig   `json:"redis"`
	SMTP          *SMTPDefaults `json:"smtp,omitempty"`
	DispatchRate  float64       `json:"dispatch_rate,omitempty"`  // sends/sec, default 10
	DispatchBurst int           `json:"dispatch_burst,omitempty"` // default 20
}

func (c *AlerterConfig) Validate() error {
	if c.DBPath == "" {
		return errNoDBPath
	}

	if err := c.Kafka.Validate(); err != nil {
		return err
	}

	return c.Redis.Validate()
}

// GatewayConfig configures the real-time gateway process.
type GatewayConfig struct {
	ListenAddr string      `json:"listen_addr"`
	HTTPAddr   string      `json:"http_addr"` // websocket endpoint + /metrics
	Kafka      KafkaConfig `json:"kafka"`
	Redis      RedisConfig `json:"redis"`
}

func (c *GatewayConfig) Validate() error {
	if err := c.Kafka.Validate(); err != nil {
		return err
	}

	return c.Redis.Validate()
}
