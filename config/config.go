package config

import (
	"log/slog"
	"net"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
	"github.com/spf13/viper"
)

const (
	EnvDev     = "dev"
	EnvStaging = "staging"
	EnvProd    = "prod"
)

const (
	LogLevelDebug = "debug"
	LogLevelInfo  = "info"
	LogLevelWarn  = "warn"
	LogLevelError = "error"
)

const (
	StoreMemory = "memory"
	StoreRedis  = "redis"
)

// BreakerNames is the fixed catalog of protected operation categories.
var BreakerNames = []string{
	"availability_check",
	"reservation_creation",
	"payment_processing",
	"price_calculation",
	"cancellation",
	"notification",
}

type ServerConfig struct {
	Address     string `mapstructure:"address"`
	Environment string `mapstructure:"environment"`
}

type LoggingConfig struct {
	Level string `mapstructure:"level"`
}

type RedisConfig struct {
	Addr      string `mapstructure:"addr"`
	Password  string `mapstructure:"password"`
	DB        int    `mapstructure:"db"`
	KeyPrefix string `mapstructure:"key_prefix"`
}

type StoreConfig struct {
	Backend string      `mapstructure:"backend"`
	TTL     string      `mapstructure:"ttl"`
	Redis   RedisConfig `mapstructure:"redis"`
}

type BreakerConfig struct {
	FailureThreshold int    `mapstructure:"failure_threshold"`
	RecoveryTimeout  string `mapstructure:"recovery_timeout"`
	SingleTrial      bool   `mapstructure:"single_trial"`
}

type FallbackConfig struct {
	DefaultPrice float64 `mapstructure:"default_price"`
	Currency     string  `mapstructure:"currency"`
}

type MonitorConfig struct {
	Interval string `mapstructure:"interval"`
}

type MetricsConfig struct {
	BufferSize int `mapstructure:"buffer_size"`
}

type Config struct {
	Server    ServerConfig             `mapstructure:"server"`
	Logging   LoggingConfig            `mapstructure:"logging"`
	Store     StoreConfig              `mapstructure:"store"`
	Breakers  map[string]BreakerConfig `mapstructure:"breakers"`
	Fallbacks FallbackConfig           `mapstructure:"fallbacks"`
	Monitor   MonitorConfig            `mapstructure:"monitor"`
	Metrics   MetricsConfig            `mapstructure:"metrics"`
}

func Load() (*Config, error) {
	viper.SetDefault("server.environment", EnvDev)
	viper.SetDefault("server.address", ":8080")
	viper.SetDefault("logging.level", LogLevelInfo)
	viper.SetDefault("store.backend", StoreMemory)
	viper.SetDefault("store.ttl", "1h")
	viper.SetDefault("store.redis.addr", "localhost:6379")
	viper.SetDefault("store.redis.key_prefix", "breaker:")
	viper.SetDefault("fallbacks.default_price", 25.00)
	viper.SetDefault("fallbacks.currency", "EUR")
	viper.SetDefault("monitor.interval", "5s")
	viper.SetDefault("metrics.buffer_size", 1024)

	// Per-operation breaker tuning. Operations with the highest blast
	// radius trip fast and stay protective longer.
	viper.SetDefault("breakers.availability_check.failure_threshold", 3)
	viper.SetDefault("breakers.availability_check.recovery_timeout", "15s")
	viper.SetDefault("breakers.reservation_creation.failure_threshold", 5)
	viper.SetDefault("breakers.reservation_creation.recovery_timeout", "30s")
	viper.SetDefault("breakers.payment_processing.failure_threshold", 3)
	viper.SetDefault("breakers.payment_processing.recovery_timeout", "60s")
	viper.SetDefault("breakers.price_calculation.failure_threshold", 7)
	viper.SetDefault("breakers.price_calculation.recovery_timeout", "20s")
	viper.SetDefault("breakers.cancellation.failure_threshold", 4)
	viper.SetDefault("breakers.cancellation.recovery_timeout", "25s")
	viper.SetDefault("breakers.notification.failure_threshold", 10)
	viper.SetDefault("breakers.notification.recovery_timeout", "45s")

	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath("./config")
	viper.AddConfigPath(".")

	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			slog.Error("failed to read config file", slog.String("error", err.Error()))
			return nil, err
		}
		slog.Info("config file not found, using defaults and environment variables")
	} else {
		slog.Info("loaded config file", slog.String("file", viper.ConfigFileUsed()))
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		slog.Error("failed to unmarshal config", slog.String("error", err.Error()))
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		slog.Error("invalid configuration", slog.String("error", err.Error()))
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Server,
			validation.Required,
			validation.By(func(value interface{}) error {
				sc, ok := value.(ServerConfig)
				if !ok {
					return validation.NewError("validation_invalid_type", "must be a ServerConfig")
				}
				return validation.ValidateStruct(&sc,
					validation.Field(&sc.Environment,
						validation.Required,
						validation.In(EnvDev, EnvStaging, EnvProd),
					),
					validation.Field(&sc.Address,
						validation.Required,
						validation.By(validateHostPort),
					),
				)
			}),
		),
		validation.Field(&c.Logging,
			validation.Required,
			validation.By(func(value interface{}) error {
				lc, ok := value.(LoggingConfig)
				if !ok {
					return validation.NewError("validation_invalid_type", "must be a LoggingConfig")
				}
				return validation.ValidateStruct(&lc,
					validation.Field(&lc.Level,
						validation.Required,
						validation.In(LogLevelDebug, LogLevelInfo, LogLevelWarn, LogLevelError),
					),
				)
			}),
		),
		validation.Field(&c.Store,
			validation.Required,
			validation.By(validateStoreConfig),
		),
		validation.Field(&c.Breakers,
			validation.Required,
			validation.By(validateBreakers),
		),
		validation.Field(&c.Fallbacks,
			validation.By(func(value interface{}) error {
				fc, ok := value.(FallbackConfig)
				if !ok {
					return validation.NewError("validation_invalid_type", "must be a FallbackConfig")
				}
				return validation.ValidateStruct(&fc,
					validation.Field(&fc.DefaultPrice, validation.Min(0.0)),
				)
			}),
		),
		validation.Field(&c.Monitor,
			validation.Required,
			validation.By(func(value interface{}) error {
				mc, ok := value.(MonitorConfig)
				if !ok {
					return validation.NewError("validation_invalid_type", "must be a MonitorConfig")
				}
				return validation.ValidateStruct(&mc,
					validation.Field(&mc.Interval,
						validation.Required,
						validation.By(validateDuration),
					),
				)
			}),
		),
	)
}

func validateStoreConfig(value interface{}) error {
	sc, ok := value.(StoreConfig)
	if !ok {
		return validation.NewError("validation_invalid_type", "must be a StoreConfig")
	}

	err := validation.ValidateStruct(&sc,
		validation.Field(&sc.Backend,
			validation.Required,
			validation.In(StoreMemory, StoreRedis),
		),
		validation.Field(&sc.TTL,
			validation.Required,
			validation.By(validateDuration),
		),
	)
	if err != nil {
		return err
	}

	if sc.Backend == StoreRedis {
		if err := validateHostPort(sc.Redis.Addr); err != nil {
			return validation.NewError("validation_invalid_redis_addr", "redis addr must be in host:port format")
		}
	}

	return nil
}

func validateBreakers(value interface{}) error {
	breakers, ok := value.(map[string]BreakerConfig)
	if !ok {
		return validation.NewError("validation_invalid_type", "must be a breaker config map")
	}

	known := make(map[string]bool, len(BreakerNames))
	for _, name := range BreakerNames {
		known[name] = true
	}

	for name, bc := range breakers {
		if !known[name] {
			return validation.NewError("validation_unknown_breaker", "unknown breaker name: "+name)
		}
		if bc.FailureThreshold < 1 {
			return validation.NewError("validation_invalid_threshold", "failure threshold must be at least 1")
		}
		if err := validateDuration(bc.RecoveryTimeout); err != nil {
			return err
		}
	}

	return nil
}

func validateHostPort(value interface{}) error {
	addr, ok := value.(string)
	if !ok {
		return validation.NewError("validation_invalid_type", "must be a string")
	}

	host, port, err := net.SplitHostPort(addr)
	if err != nil {
		return validation.NewError("validation_invalid_hostport", "must be in host:port format")
	}

	if port == "" {
		return validation.NewError("validation_invalid_port", "port cannot be empty")
	}

	if host != "" {
		if err := is.Host.Validate(host); err != nil {
			return validation.NewError("validation_invalid_host", "invalid host")
		}
	}

	return nil
}

func validateDuration(value interface{}) error {
	durationStr, ok := value.(string)
	if !ok {
		return validation.NewError("validation_invalid_type", "must be a string")
	}

	if _, err := time.ParseDuration(durationStr); err != nil {
		return validation.NewError("validation_invalid_duration", "must be a valid duration (e.g., 2s, 5m, 1h)")
	}

	return nil
}
