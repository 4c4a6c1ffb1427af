package config

import (
	"errors"
	"fmt"
	"net"
	"os"
	"time"

	"github.com/diamondburned/arikawa/v3/discord"
	"gopkg.in/yaml.v3"
)

// Environment variables that override the file.
const (
	EnvBotToken     = "BOT_TOKEN"
	EnvLocalRxAddr  = "LOCAL_RX_ADDR"
	EnvTargetRxAddr = "TARGET_RX_ADDR"
)

// DiscordConfig stores Discord specific configurations.
type DiscordConfig struct {
	BotToken      string             `yaml:"bot_token"`
	ApplicationID *discord.Snowflake `yaml:"application_id"`
	GuildIDs      []string           `yaml:"guild_ids"`
}

// USRPConfig stores the radio network endpoints.
type USRPConfig struct {
	// LocalRxAddr is where the gateway sends radio audio to us.
	LocalRxAddr string `yaml:"local_rx_addr"`
	// RemoteTxAddr is where we send Discord audio.
	RemoteTxAddr string `yaml:"remote_tx_addr"`
}

// BridgeConfig tunes the voice bridge.
type BridgeConfig struct {
	HangoverTicks        int           `yaml:"hangover_ticks"`
	RadioKeyTimeout      time.Duration `yaml:"radio_key_timeout"`
	MaxConcurrentBridges int           `yaml:"max_concurrent_bridges"`
	PlaybackBufferFrames int           `yaml:"playback_buffer_frames"`
	OpusBitrate          int           `yaml:"opus_bitrate"`
	DecoderPoolSize      int           `yaml:"decoder_pool_size"`
	IdentityCacheSize    int           `yaml:"identity_cache_size"`
	IdentityCacheTTL     time.Duration `yaml:"identity_cache_ttl"`
}

// MetricsConfig controls the Prometheus endpoint.
type MetricsConfig struct {
	// ListenAddr is empty to disable the endpoint.
	ListenAddr string `yaml:"listen_addr"`
}

// Config stores the application configuration.
type Config struct {
	Discord  DiscordConfig `yaml:"discord"`
	USRP     USRPConfig    `yaml:"usrp"`
	Bridge   BridgeConfig  `yaml:"bridge"`
	Metrics  MetricsConfig `yaml:"metrics"`
	LogLevel string        `yaml:"log_level"`
}

// LoadConfig loads the configuration from the given file path, applies
// environment overrides and defaults, and validates the result.
func LoadConfig(filePath string) (*Config, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, err
	}

	return Parse(data)
}

// Parse decodes YAML configuration and finishes it like LoadConfig.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.applyEnv()
	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) applyEnv() {
	if v, ok := os.LookupEnv(EnvBotToken); ok && v != "" {
		c.Discord.BotToken = v
	}
	if v, ok := os.LookupEnv(EnvLocalRxAddr); ok && v != "" {
		c.USRP.LocalRxAddr = v
	}
	if v, ok := os.LookupEnv(EnvTargetRxAddr); ok && v != "" {
		c.USRP.RemoteTxAddr = v
	}
}

func (c *Config) applyDefaults() {
	if c.USRP.LocalRxAddr == "" {
		c.USRP.LocalRxAddr = "127.0.0.1:34001"
	}
	if c.USRP.RemoteTxAddr == "" {
		c.USRP.RemoteTxAddr = "127.0.0.1:32001"
	}

	b := &c.Bridge
	if b.HangoverTicks == 0 {
		b.HangoverTicks = 10
	}
	if b.RadioKeyTimeout == 0 {
		b.RadioKeyTimeout = 500 * time.Millisecond
	}
	if b.MaxConcurrentBridges == 0 {
		b.MaxConcurrentBridges = 1
	}
	if b.PlaybackBufferFrames == 0 {
		b.PlaybackBufferFrames = 5
	}
	if b.OpusBitrate == 0 {
		b.OpusBitrate = 64000
	}
	if b.DecoderPoolSize == 0 {
		b.DecoderPoolSize = 64
	}
	if b.IdentityCacheSize == 0 {
		b.IdentityCacheSize = 256
	}
	if b.IdentityCacheTTL == 0 {
		b.IdentityCacheTTL = 10 * time.Minute
	}

	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
}

// Validate reports every invalid setting at once.
func (c *Config) Validate() error {
	var errs []error

	for name, addr := range map[string]string{
		"usrp.local_rx_addr":  c.USRP.LocalRxAddr,
		"usrp.remote_tx_addr": c.USRP.RemoteTxAddr,
	} {
		if _, _, err := net.SplitHostPort(addr); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", name, err))
		}
	}

	b := c.Bridge
	if b.HangoverTicks < 1 {
		errs = append(errs, fmt.Errorf("bridge.hangover_ticks must be positive, got %d", b.HangoverTicks))
	}
	if b.RadioKeyTimeout < 0 {
		errs = append(errs, fmt.Errorf("bridge.radio_key_timeout must not be negative, got %s", b.RadioKeyTimeout))
	}
	if b.MaxConcurrentBridges < 1 {
		errs = append(errs, fmt.Errorf("bridge.max_concurrent_bridges must be positive, got %d", b.MaxConcurrentBridges))
	}
	if b.PlaybackBufferFrames < 1 {
		errs = append(errs, fmt.Errorf("bridge.playback_buffer_frames must be positive, got %d", b.PlaybackBufferFrames))
	}
	if b.DecoderPoolSize < 1 {
		errs = append(errs, fmt.Errorf("bridge.decoder_pool_size must be positive, got %d", b.DecoderPoolSize))
	}
	if b.IdentityCacheSize < 1 {
		errs = append(errs, fmt.Errorf("bridge.identity_cache_size must be positive, got %d", b.IdentityCacheSize))
	}

	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, fmt.Errorf("log_level %q is not one of debug, info, warn, error", c.LogLevel))
	}

	return errors.Join(errs...)
}
