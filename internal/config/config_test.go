package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDefaults(t *testing.T) {
	t.Setenv(EnvBotToken, "")
	t.Setenv(EnvLocalRxAddr, "")
	t.Setenv(EnvTargetRxAddr, "")

	cfg, err := Parse([]byte("discord:\n  bot_token: abc\n"))
	require.NoError(t, err)

	assert.Equal(t, "abc", cfg.Discord.BotToken)
	assert.Equal(t, "127.0.0.1:34001", cfg.USRP.LocalRxAddr)
	assert.Equal(t, "127.0.0.1:32001", cfg.USRP.RemoteTxAddr)
	assert.Equal(t, 10, cfg.Bridge.HangoverTicks)
	assert.Equal(t, 500*time.Millisecond, cfg.Bridge.RadioKeyTimeout)
	assert.Equal(t, 1, cfg.Bridge.MaxConcurrentBridges)
	assert.Equal(t, 5, cfg.Bridge.PlaybackBufferFrames)
	assert.Equal(t, 10*time.Minute, cfg.Bridge.IdentityCacheTTL)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Empty(t, cfg.Metrics.ListenAddr)
}

func TestParseFile(t *testing.T) {
	t.Setenv(EnvBotToken, "")
	t.Setenv(EnvLocalRxAddr, "")
	t.Setenv(EnvTargetRxAddr, "")

	data := `
log_level: debug
discord:
  bot_token: file-token
  application_id: 123456789
  guild_ids: ["1", "2"]
usrp:
  local_rx_addr: 0.0.0.0:34001
  remote_tx_addr: 10.0.0.5:32001
bridge:
  hangover_ticks: 15
  identity_cache_ttl: 90s
  max_concurrent_bridges: 2
metrics:
  listen_addr: ":9464"
`
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(data), 0o600))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	require.NotNil(t, cfg.Discord.ApplicationID)
	assert.Equal(t, "123456789", cfg.Discord.ApplicationID.String())
	assert.Equal(t, []string{"1", "2"}, cfg.Discord.GuildIDs)
	assert.Equal(t, "10.0.0.5:32001", cfg.USRP.RemoteTxAddr)
	assert.Equal(t, 15, cfg.Bridge.HangoverTicks)
	assert.Equal(t, 90*time.Second, cfg.Bridge.IdentityCacheTTL)
	assert.Equal(t, 2, cfg.Bridge.MaxConcurrentBridges)
	assert.Equal(t, ":9464", cfg.Metrics.ListenAddr)
	assert.Equal(t, "debug", cfg.LogLevel)
}

func TestParseEnvOverrides(t *testing.T) {
	t.Setenv(EnvBotToken, "env-token")
	t.Setenv(EnvLocalRxAddr, "127.0.0.1:40001")
	t.Setenv(EnvTargetRxAddr, "192.0.2.1:40002")

	cfg, err := Parse([]byte("discord:\n  bot_token: file-token\nusrp:\n  local_rx_addr: 127.0.0.1:1\n"))
	require.NoError(t, err)

	assert.Equal(t, "env-token", cfg.Discord.BotToken)
	assert.Equal(t, "127.0.0.1:40001", cfg.USRP.LocalRxAddr)
	assert.Equal(t, "192.0.2.1:40002", cfg.USRP.RemoteTxAddr)
}

func TestParseInvalid(t *testing.T) {
	t.Setenv(EnvBotToken, "")
	t.Setenv(EnvLocalRxAddr, "")
	t.Setenv(EnvTargetRxAddr, "")

	tests := map[string]struct {
		yaml string
		want string
	}{
		"bad yaml":         {yaml: "usrp: [", want: "failed to parse config"},
		"bad address":      {yaml: "usrp:\n  local_rx_addr: nowhere\n", want: "usrp.local_rx_addr"},
		"negative ticks":   {yaml: "bridge:\n  hangover_ticks: -1\n", want: "hangover_ticks"},
		"unknown level":    {yaml: "log_level: loud\n", want: "log_level"},
		"negative bridges": {yaml: "bridge:\n  max_concurrent_bridges: -2\n", want: "max_concurrent_bridges"},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := Parse([]byte(tt.yaml))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestLoadConfigMissingFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}
