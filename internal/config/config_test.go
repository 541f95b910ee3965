package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		"APP_ENV", "APP_NAME", "LOG_LEVEL", "METRICS_PORT", "ROUTER_LISTEN_ADDR",
		"ROUTER_REALMS", "RECONNECT_DELAY", "RECONNECT_MAX_FAILURES",
		"MATCHMAKING_TICK_INTERVAL", "PROPOSAL_MAX_TIMEOUT",
		"REDIS_ADDR", "REDIS_PASSWORD", "REDIS_DB",
	} {
		os.Unsetenv(k)
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "development", cfg.AppEnv)
	assert.Equal(t, "battlerealm", cfg.AppName)
	assert.Equal(t, ":8181", cfg.RouterListenAddr)
	assert.Equal(t, []string{"com.battlerealm.realm"}, cfg.RouterRealms)
	assert.Equal(t, 5*time.Second, cfg.ReconnectDelay)
	assert.Equal(t, 3, cfg.ReconnectMaxFailures)
	assert.Equal(t, time.Second, cfg.MatchmakingTickInterval)
	assert.Equal(t, 5*time.Minute, cfg.ProposalMaxTimeout)
}

func TestLoadOverrides(t *testing.T) {
	clearEnv(t)
	os.Setenv("ROUTER_REALMS", "com.a.realm, com.b.realm")
	os.Setenv("RECONNECT_DELAY", "2s")
	os.Setenv("PROPOSAL_MAX_TIMEOUT", "10s")
	defer clearEnv(t)

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, []string{"com.a.realm", "com.b.realm"}, cfg.RouterRealms)
	assert.Equal(t, 2*time.Second, cfg.ReconnectDelay)
	assert.Equal(t, 10*time.Second, cfg.ProposalMaxTimeout)
}

func TestLoadInvalidDuration(t *testing.T) {
	clearEnv(t)
	os.Setenv("RECONNECT_DELAY", "not-a-duration")
	defer clearEnv(t)

	_, err := Load()
	assert.Error(t, err)
}
