package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds runtime configuration for the router, battle, and
// matchmaking processes. Values come from the environment only; see
// spec.md §6 ("Environment variables / configuration. Out of scope for
// this core; provided externally.").
type Config struct {
	AppEnv      string
	AppName     string
	LogLevel    string
	MetricsPort string

	// RouterListenAddr is the WebSocket listen address for cmd/router,
	// e.g. ":8181".
	RouterListenAddr string
	// RouterRealms is the set of realm URIs to pre-create at startup.
	RouterRealms []string

	// ReconnectDelay is the peer layer's first wait between reconnect
	// attempts; later waits grow exponentially (§5).
	ReconnectDelay time.Duration
	// ReconnectMaxFailures is the number of consecutive reconnect
	// failures that opens the reconnect circuit breaker; while it is open,
	// attempts fail at once until ReconnectDelay has passed. The reconnect
	// loop itself keeps trying (§5).
	ReconnectMaxFailures int

	// MatchmakingTickInterval is the background tick period for each
	// proposed battle manager (§4.7); spec.md fixes this at one second,
	// but it is configurable for tests.
	MatchmakingTickInterval time.Duration
	// ProposalMaxTimeout caps the requested proposal deadline (§4.7,
	// §8 Boundary behaviors): "capped at 5 minutes regardless of the
	// requested timeout."
	ProposalMaxTimeout time.Duration

	RedisAddr     string
	RedisPassword string
	RedisDB       int
}

// Load reads configuration from the environment, applying a fixed
// default to every unset variable (none is required) and failing only on
// malformed numeric/duration values.
func Load() (*Config, error) {
	cfg := &Config{
		AppEnv:           os.Getenv("APP_ENV"),
		AppName:          os.Getenv("APP_NAME"),
		LogLevel:         os.Getenv("LOG_LEVEL"),
		MetricsPort:      os.Getenv("METRICS_PORT"),
		RouterListenAddr: os.Getenv("ROUTER_LISTEN_ADDR"),
		RedisAddr:        os.Getenv("REDIS_ADDR"),
		RedisPassword:    os.Getenv("REDIS_PASSWORD"),
	}

	if cfg.AppEnv == "" {
		cfg.AppEnv = "development"
	}
	if cfg.AppName == "" {
		cfg.AppName = "battlerealm"
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}
	if cfg.RouterListenAddr == "" {
		cfg.RouterListenAddr = ":8181"
	}
	if cfg.RedisAddr == "" {
		cfg.RedisAddr = "localhost:6379"
	}

	if v := os.Getenv("ROUTER_REALMS"); v != "" {
		for _, realm := range strings.Split(v, ",") {
			realm = strings.TrimSpace(realm)
			if realm != "" {
				cfg.RouterRealms = append(cfg.RouterRealms, realm)
			}
		}
	} else {
		cfg.RouterRealms = []string{"com.battlerealm.realm"}
	}

	var err error
	cfg.ReconnectDelay, err = parseDurationEnv("RECONNECT_DELAY", 5*time.Second)
	if err != nil {
		return nil, err
	}
	cfg.MatchmakingTickInterval, err = parseDurationEnv("MATCHMAKING_TICK_INTERVAL", time.Second)
	if err != nil {
		return nil, err
	}
	cfg.ProposalMaxTimeout, err = parseDurationEnv("PROPOSAL_MAX_TIMEOUT", 5*time.Minute)
	if err != nil {
		return nil, err
	}

	cfg.ReconnectMaxFailures = 3
	if v := os.Getenv("RECONNECT_MAX_FAILURES"); v != "" {
		cfg.ReconnectMaxFailures, err = strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("invalid RECONNECT_MAX_FAILURES: %w", err)
		}
	}

	if v := os.Getenv("REDIS_DB"); v != "" {
		cfg.RedisDB, err = strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
		}
	}

	return cfg, nil
}

func parseDurationEnv(name string, def time.Duration) (time.Duration, error) {
	v := os.Getenv(name)
	if v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", name, err)
	}
	return d, nil
}
