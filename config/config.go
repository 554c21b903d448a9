package config

import (
	"errors"
	"flag"
	"fmt"
	"time"
	_ "time/tzdata"

	"github.com/Temutjin2k/ride-dispatch/internal/domain/types"
	"github.com/Temutjin2k/ride-dispatch/internal/service/pricing"
	"github.com/Temutjin2k/ride-dispatch/pkg/configparser"
	"github.com/Temutjin2k/ride-dispatch/pkg/logger"
)

// Flags
var (
	modeFlag = flag.String("mode", "", "application mode: ride-service, realtime-service or settlement-worker")
)

// Errors
var (
	ErrModeNotProvided = errors.New("mode flag not provided")
	ErrInvalidMode     = errors.New("invalid mode")
)

// Config contains all configuration variables of the application
type (
	Config struct {
		Mode     types.ServiceMode
		LogLevel string `env:"LOG_LEVEL" default:"INFO"`

		Database   DatabaseConfig
		RabbitMQ   RabbitMQConfig
		Redis      RedisConfig
		Services   ServicesConfig
		Auth       Auth
		Pricing    PricingConfig
		Dispatch   DispatchConfig
		Settlement SettlementConfig
	}

	DatabaseConfig struct {
		Host     string `env:"DATABASE_HOST" default:"localhost"`
		Port     string `env:"DATABASE_PORT" default:"5432"`
		User     string `env:"DATABASE_USER" default:"ride_user"`
		Password string `env:"DATABASE_PASSWORD" default:"ride_pass"`
		Database string `env:"DATABASE_DATABASE" default:"ride_db"`

		MaxConns        int32         `env:"DATABASE_MAXCONNS" default:"20"`
		MinConns        int32         `env:"DATABASE_MINCONNS" default:"2"`
		MaxConnLifetime time.Duration `env:"DATABASE_MAXCONNLIFETIME" default:"30m"`
		MaxConnIdleTime time.Duration `env:"DATABASE_MAXCONNIDLETIME" default:"5m"`
	}

	RabbitMQConfig struct {
		Host     string `env:"RABBITMQ_HOST" default:"localhost"`
		Port     string `env:"RABBITMQ_PORT" default:"5672"`
		User     string `env:"RABBITMQ_USER" default:"guest"`
		Password string `env:"RABBITMQ_PASSWORD" default:"guest"`
	}

	RedisConfig struct {
		Addr        string        `env:"REDIS_ADDR" default:"localhost:6379"`
		Password    string        `env:"REDIS_PASSWORD"`
		DB          int           `env:"REDIS_DB" default:"0"`
		LocationTTL time.Duration `env:"REDIS_LOCATION_TTL" default:"24h"`
	}

	ServicesConfig struct {
		RideService      string `env:"SERVICES_RIDE_SERVICE" default:"3000"`
		RealtimeService  string `env:"SERVICES_REALTIME_SERVICE" default:"3001"`
		SettlementWorker string `env:"SERVICES_SETTLEMENT_WORKER" default:"3002"`
	}

	Auth struct {
		JWTSecret string `env:"AUTH_JWT_SECRET" default:"supersecretkey"`
	}

	PricingConfig struct {
		Timezone         string  `env:"PRICING_TIMEZONE" default:"Asia/Dhaka"`
		PeakWindows      string  `env:"PRICING_PEAK_WINDOWS" default:"07:00-09:00,17:00-19:00"`
		PeakFactor       float64 `env:"PRICING_PEAK_FACTOR" default:"1.5"`
		WeekendFactor    float64 `env:"PRICING_WEEKEND_FACTOR" default:"1.1"`
		BadWeatherFactor float64 `env:"PRICING_BAD_WEATHER_FACTOR" default:"1.3"`
		HighDemandFactor float64 `env:"PRICING_HIGH_DEMAND_FACTOR" default:"1.5"`
	}

	DispatchConfig struct {
		DefaultRadiusKm float64 `env:"DISPATCH_DEFAULT_RADIUS_KM" default:"5"`
		MaxRadiusKm     float64 `env:"DISPATCH_MAX_RADIUS_KM" default:"50"`
	}

	SettlementConfig struct {
		CommissionRate float64       `env:"SETTLEMENT_COMMISSION_RATE" default:"0.15"`
		SweepInterval  time.Duration `env:"SETTLEMENT_SWEEP_INTERVAL" default:"1m"`
	}
)

func (c DatabaseConfig) GetDSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%s/%s?sslmode=disable",
		c.User,
		c.Password,
		c.Host,
		c.Port,
		c.Database,
	)
}

func (c DatabaseConfig) PoolLimits() (maxConns, minConns int32, maxLifetime, maxIdle time.Duration) {
	return c.MaxConns, c.MinConns, c.MaxConnLifetime, c.MaxConnIdleTime
}

func (c RabbitMQConfig) GetDSN() string {
	return fmt.Sprintf("amqp://%s:%s@%s:%s/",
		c.User,
		c.Password,
		c.Host,
		c.Port,
	)
}

func (c RedisConfig) GetAddr() string     { return c.Addr }
func (c RedisConfig) GetPassword() string { return c.Password }
func (c RedisConfig) GetDB() int          { return c.DB }

// SurgeRules builds the pricing rules from the configured windows and factors.
func (c PricingConfig) SurgeRules() (pricing.SurgeRules, error) {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return pricing.SurgeRules{}, fmt.Errorf("pricing timezone %q: %w", c.Timezone, err)
	}

	windows, err := pricing.ParsePeakWindows(c.PeakWindows)
	if err != nil {
		return pricing.SurgeRules{}, err
	}

	return pricing.SurgeRules{
		PeakWindows:      windows,
		Location:         loc,
		PeakFactor:       c.PeakFactor,
		WeekendFactor:    c.WeekendFactor,
		BadWeatherFactor: c.BadWeatherFactor,
		HighDemandFactor: c.HighDemandFactor,
	}, nil
}

// Port returns the HTTP port of the configured mode.
func (c Config) Port() string {
	switch c.Mode {
	case types.RideService:
		return c.Services.RideService
	case types.RealtimeService:
		return c.Services.RealtimeService
	case types.SettlementWorker:
		return c.Services.SettlementWorker
	default:
		return ""
	}
}

func NewConfig(filepath string) (*Config, error) {
	cfg := &Config{}

	// Loading enviromental variables and parsing to config struct.
	if err := configparser.LoadAndParseYaml(filepath, cfg); err != nil {
		return nil, fmt.Errorf("failed to load and parse config: %w", err)
	}

	// Parsing flags
	if err := parseFlags(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse flags: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func parseFlags(cfg *Config) error {
	if modeFlag == nil || *modeFlag == "" {
		return ErrModeNotProvided
	}

	cfg.Mode = types.ServiceMode(*modeFlag)

	return nil
}

func (c *Config) validate() error {
	switch c.Mode {
	case types.RideService, types.RealtimeService, types.SettlementWorker:
	default:
		return fmt.Errorf("%w: %s", ErrInvalidMode, c.Mode)
	}

	if !logger.ValidateLogLevel(c.LogLevel) {
		return fmt.Errorf("invalid log level: %s", c.LogLevel)
	}
	if c.Auth.JWTSecret == "" {
		return errors.New("auth jwt secret must not be empty")
	}
	if c.Dispatch.DefaultRadiusKm <= 0 || c.Dispatch.MaxRadiusKm < c.Dispatch.DefaultRadiusKm {
		return fmt.Errorf("invalid dispatch radius: default %v, max %v", c.Dispatch.DefaultRadiusKm, c.Dispatch.MaxRadiusKm)
	}
	if c.Settlement.CommissionRate < 0 || c.Settlement.CommissionRate > 1 {
		return fmt.Errorf("settlement commission rate must be within [0, 1], got %v", c.Settlement.CommissionRate)
	}
	if c.Settlement.SweepInterval <= 0 {
		return errors.New("settlement sweep interval must be positive")
	}
	return nil
}
