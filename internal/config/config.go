package config

import (
	"errors"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const envPrefix = "FEELEDGER"

type Config struct {
	AppName     string
	Version     string
	Environment string
	HTTPAddr    string

	Database  DatabaseConfig
	Fees      FeesConfig
	Scheduler SchedulerConfig
	Tracing   TracingConfig
}

type DatabaseConfig struct {
	Driver       string
	DSN          string
	MaxOpenConns int
	MaxIdleConns int
	AutoMigrate  bool
}

type FeesConfig struct {
	// CarryForwardWindow bounds the idempotency guard lookback.
	CarryForwardWindow time.Duration
	StructureCacheTTL  time.Duration
	DefaultFeeCategory string
	PromotionActionURL string
	ReminderActionURL  string
}

type SchedulerConfig struct {
	Enabled            bool
	PollInterval       time.Duration
	BatchSize          int
	ReminderDaysBefore int
}

type TracingConfig struct {
	Enabled          bool
	ExporterEndpoint string
	ExporterProtocol string
	SamplingRatio    float64
}

func (c Config) IsProduction() bool {
	return strings.EqualFold(c.Environment, "production")
}

// Load reads an optional dotenv file and then the FEELEDGER_* environment.
func Load() (Config, error) {
	envFile := os.Getenv(envPrefix + "_ENV_FILE")
	if envFile == "" {
		envFile = ".env"
	}
	if _, err := os.Stat(envFile); err == nil {
		if err := godotenv.Load(envFile); err != nil {
			return Config{}, err
		}
	} else if !errors.Is(err, os.ErrNotExist) {
		return Config{}, err
	}

	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	return fromViper(v)
}

func setDefaults(v *viper.Viper) {
	v.SetTypeByDefaultValue(true)
	v.SetDefault("app_name", "feeledger")
	v.SetDefault("version", "dev")
	v.SetDefault("environment", "development")
	v.SetDefault("http_addr", ":8080")

	v.SetDefault("database.driver", "postgres")
	v.SetDefault("database.dsn", "host=localhost port=5432 user=postgres dbname=feeledger sslmode=disable")
	v.SetDefault("database.max_open_conns", 25)
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.auto_migrate", false)

	v.SetDefault("fees.carry_forward_window", 24*time.Hour)
	v.SetDefault("fees.structure_cache_ttl", time.Duration(0))
	v.SetDefault("fees.default_fee_category", "General Fee")
	v.SetDefault("fees.promotion_action_url", "/fees/dues")
	v.SetDefault("fees.reminder_action_url", "/fees/pay")

	v.SetDefault("scheduler.enabled", false)
	v.SetDefault("scheduler.poll_interval", time.Hour)
	v.SetDefault("scheduler.batch_size", 200)
	v.SetDefault("scheduler.reminder_days_before", 3)

	v.SetDefault("tracing.enabled", false)
	v.SetDefault("tracing.exporter_endpoint", "")
	v.SetDefault("tracing.exporter_protocol", "grpc")
	v.SetDefault("tracing.sampling_ratio", 0.1)
}

func fromViper(v *viper.Viper) (Config, error) {
	cfg := Config{
		AppName:     v.GetString("app_name"),
		Version:     v.GetString("version"),
		Environment: v.GetString("environment"),
		HTTPAddr:    v.GetString("http_addr"),
		Database: DatabaseConfig{
			Driver:       strings.ToLower(strings.TrimSpace(v.GetString("database.driver"))),
			DSN:          v.GetString("database.dsn"),
			MaxOpenConns: v.GetInt("database.max_open_conns"),
			MaxIdleConns: v.GetInt("database.max_idle_conns"),
			AutoMigrate:  v.GetBool("database.auto_migrate"),
		},
		Fees: FeesConfig{
			CarryForwardWindow: v.GetDuration("fees.carry_forward_window"),
			StructureCacheTTL:  v.GetDuration("fees.structure_cache_ttl"),
			DefaultFeeCategory: v.GetString("fees.default_fee_category"),
			PromotionActionURL: v.GetString("fees.promotion_action_url"),
			ReminderActionURL:  v.GetString("fees.reminder_action_url"),
		},
		Scheduler: SchedulerConfig{
			Enabled:            v.GetBool("scheduler.enabled"),
			PollInterval:       v.GetDuration("scheduler.poll_interval"),
			BatchSize:          v.GetInt("scheduler.batch_size"),
			ReminderDaysBefore: v.GetInt("scheduler.reminder_days_before"),
		},
		Tracing: TracingConfig{
			Enabled:          v.GetBool("tracing.enabled"),
			ExporterEndpoint: v.GetString("tracing.exporter_endpoint"),
			ExporterProtocol: v.GetString("tracing.exporter_protocol"),
			SamplingRatio:    v.GetFloat64("tracing.sampling_ratio"),
		},
	}

	switch cfg.Database.Driver {
	case "postgres", "sqlite":
	default:
		return Config{}, errors.New("invalid_database_driver")
	}
	if strings.TrimSpace(cfg.Database.DSN) == "" {
		return Config{}, errors.New("missing_database_dsn")
	}
	if cfg.Fees.CarryForwardWindow <= 0 {
		return Config{}, errors.New("invalid_carry_forward_window")
	}
	return cfg, nil
}
