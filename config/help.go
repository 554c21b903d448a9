package config

import (
	"flag"
	"fmt"
	"strings"
)

const HelpMessage = `
Ride dispatch core

Usage:
  ride --mode=<mode> [--config-path=config.yaml]
  ride --help

Modes:
  ride-service        HTTP API for rides, fares, dispatch, tracking and payments
  realtime-service    WebSocket gateway for ride channels (GET /ws/rides/{ride_id})
  settlement-worker   settlement retry consumer and periodic sweep

Options:
  --mode          application mode (required)
  --config-path   path to the config yaml file, default config.yaml
  --help          show this message

Every option in the yaml file may be overridden by an env var, e.g. DATABASE_HOST
or SETTLEMENT_COMMISSION_RATE.
`

func PrintHelp() {
	if HelpMessage != "" {
		fmt.Printf("%s", HelpMessage)
	} else {
		flag.Usage()
	}
}

// PrintConfig prints the effective configuration with secrets masked.
func PrintConfig(cfg *Config) {
	var b strings.Builder

	fmt.Fprintf(&b, "mode: %s\n", cfg.Mode)
	fmt.Fprintf(&b, "log_level: %s\n", cfg.LogLevel)
	fmt.Fprintf(&b, "database: %s@%s:%s/%s (password %s, conns %d..%d)\n",
		cfg.Database.User, cfg.Database.Host, cfg.Database.Port, cfg.Database.Database,
		mask(cfg.Database.Password), cfg.Database.MinConns, cfg.Database.MaxConns)
	fmt.Fprintf(&b, "rabbitmq: %s@%s:%s (password %s)\n",
		cfg.RabbitMQ.User, cfg.RabbitMQ.Host, cfg.RabbitMQ.Port, mask(cfg.RabbitMQ.Password))
	fmt.Fprintf(&b, "redis: %s db=%d ttl=%s (password %s)\n",
		cfg.Redis.Addr, cfg.Redis.DB, cfg.Redis.LocationTTL, mask(cfg.Redis.Password))
	fmt.Fprintf(&b, "services: ride=%s realtime=%s settlement=%s\n",
		cfg.Services.RideService, cfg.Services.RealtimeService, cfg.Services.SettlementWorker)
	fmt.Fprintf(&b, "auth: jwt_secret=%s\n", mask(cfg.Auth.JWTSecret))
	fmt.Fprintf(&b, "pricing: tz=%s peak=%s factors peak=%v weekend=%v weather=%v demand=%v\n",
		cfg.Pricing.Timezone, cfg.Pricing.PeakWindows, cfg.Pricing.PeakFactor,
		cfg.Pricing.WeekendFactor, cfg.Pricing.BadWeatherFactor, cfg.Pricing.HighDemandFactor)
	fmt.Fprintf(&b, "dispatch: default_radius_km=%v max_radius_km=%v\n",
		cfg.Dispatch.DefaultRadiusKm, cfg.Dispatch.MaxRadiusKm)
	fmt.Fprintf(&b, "settlement: commission_rate=%v sweep_interval=%s\n",
		cfg.Settlement.CommissionRate, cfg.Settlement.SweepInterval)

	fmt.Print(b.String())
}

func mask(secret string) string {
	if secret == "" {
		return "<empty>"
	}
	return "****"
}
