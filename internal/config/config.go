// Package config loads runtime configuration for the pipeline workers from
// the environment, applying defaults and accumulating validation errors so
// misconfiguration is reported in one pass.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Config captures all runtime configuration for the order pipeline.
type Config struct {
	App     AppConfig
	Kafka   KafkaConfig
	Topics  TopicConfig
	Groups  ConsumerGroupConfig
	Retry   RetryConfig
	Pricing PricingConfig
	Storage StorageConfig
	Metrics MetricsConfig
}

// AppConfig contains generic application level settings.
type AppConfig struct {
	Env      string
	LogLevel string
}

// KafkaConfig defines broker information.
type KafkaConfig struct {
	Brokers []string
}

// TopicConfig enumerates the pipeline's topics: the task queue, its failure
// queue and the downstream notification channel.
type TopicConfig struct {
	Task         string
	TaskDLQ      string
	Notification string
}

// ConsumerGroupConfig provides the consumer group name per worker.
type ConsumerGroupConfig struct {
	Task string
	DLQ  string
}

// RetryConfig controls worker retry and backoff behaviour.
type RetryConfig struct {
	MaxAttempts         int
	BaseBackoffSeconds  int
	MaxBackoffSeconds   int
	WorkerConcurrency   int
	CommitOnSuccessOnly bool
}

// PricingConfig selects the pricing policy applied to orders.
type PricingConfig struct {
	Policy string
}

// StorageConfig holds persistence settings for invoices and status records.
// The invoice bucket and orders table are logical names resolved through the
// params package, not carried here.
type StorageConfig struct {
	RedisAddr string
	MSSQLConn string
}

// MetricsConfig controls the Prometheus listener.
type MetricsConfig struct {
	Addr string
}

// Load reads environment variables, applies defaults, validates required
// values and returns a populated Config instance.
func Load() (*Config, error) {
	_ = godotenv.Load()

	ldr := &envLoader{}

	cfg := &Config{}
	cfg.App.Env = ldr.getString("APP_ENV", "development", false)
	cfg.App.LogLevel = ldr.getString("LOG_LEVEL", "info", false)

	cfg.Kafka.Brokers = ldr.getStringSlice("KAFKA_BROKERS", true)

	cfg.Topics.Task = ldr.getString("KAFKA_TASK_TOPIC", "", true)
	cfg.Topics.TaskDLQ = ldr.getString("KAFKA_TASK_DLQ_TOPIC", "", true)
	cfg.Topics.Notification = ldr.getString("KAFKA_NOTIFICATION_TOPIC", "", true)

	cfg.Groups.Task = ldr.getString("TASK_CONSUMER_GROUP", "", true)
	cfg.Groups.DLQ = ldr.getString("DLQ_CONSUMER_GROUP", "", true)

	cfg.Retry.MaxAttempts = ldr.getInt("MAX_ATTEMPTS", 3, false)
	cfg.Retry.BaseBackoffSeconds = ldr.getInt("BASE_BACKOFF_SECONDS", 5, false)
	cfg.Retry.MaxBackoffSeconds = ldr.getInt("MAX_BACKOFF_SECONDS", 60, false)
	cfg.Retry.WorkerConcurrency = ldr.getInt("WORKER_CONCURRENCY", 10, false)
	cfg.Retry.CommitOnSuccessOnly = ldr.getBool("COMMIT_ON_SUCCESS_ONLY", true, false)

	cfg.Pricing.Policy = ldr.getString("PRICING_POLICY", "promo", false)

	cfg.Storage.RedisAddr = ldr.getString("REDIS_ADDR", "localhost:6379", false)
	cfg.Storage.MSSQLConn = ldr.getString("MSSQL_CONN", "", true)

	cfg.Metrics.Addr = ldr.getString("METRICS_ADDR", ":2112", false)

	if cfg.Pricing.Policy != "promo" && cfg.Pricing.Policy != "volume" {
		ldr.addError("PRICING_POLICY must be one of: promo, volume")
	}

	if err := ldr.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

type envLoader struct {
	errs []string
}

func (l *envLoader) validate() error {
	if len(l.errs) == 0 {
		return nil
	}
	return fmt.Errorf("config validation failed: %s", strings.Join(l.errs, "; "))
}

func (l *envLoader) getString(key, def string, required bool) string {
	if val, ok := os.LookupEnv(key); ok {
		val = strings.TrimSpace(val)
		if val == "" {
			if required {
				l.addError(fmt.Sprintf("%s is required", key))
			}
			return def
		}
		return val
	}
	if required {
		l.addError(fmt.Sprintf("%s is required", key))
	}
	return def
}

func (l *envLoader) getInt(key string, def int, required bool) int {
	if val, ok := os.LookupEnv(key); ok {
		val = strings.TrimSpace(val)
		if val == "" {
			if required {
				l.addError(fmt.Sprintf("%s is required", key))
			}
			return def
		}
		i, err := strconv.Atoi(val)
		if err != nil {
			l.addError(fmt.Sprintf("%s must be a valid integer", key))
			return def
		}
		return i
	}
	if required {
		l.addError(fmt.Sprintf("%s is required", key))
	}
	return def
}

func (l *envLoader) getBool(key string, def bool, required bool) bool {
	if val, ok := os.LookupEnv(key); ok {
		val = strings.TrimSpace(val)
		if val == "" {
			if required {
				l.addError(fmt.Sprintf("%s is required", key))
			}
			return def
		}
		parsed, err := strconv.ParseBool(val)
		if err != nil {
			l.addError(fmt.Sprintf("%s must be a valid boolean", key))
			return def
		}
		return parsed
	}
	if required {
		l.addError(fmt.Sprintf("%s is required", key))
	}
	return def
}

func (l *envLoader) getStringSlice(key string, required bool) []string {
	raw := l.getString(key, "", required)
	if raw == "" {
		if required {
			return nil
		}
		return []string{}
	}
	parts := strings.Split(raw, ",")
	var out []string
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	if required && len(out) == 0 {
		l.addError(fmt.Sprintf("%s must contain at least one entry", key))
	}
	return out
}

func (l *envLoader) addError(err string) {
	l.errs = append(l.errs, err)
}
