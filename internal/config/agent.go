package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/bitpeek/dompulse/internal/track"
)

// AgentConfig holds configuration for the telemetry agent.
type AgentConfig struct {
	// CDP connection settings
	CDPAddress string
	CDPPort    int

	// Tab matching
	TabURLFilter string

	// Self-launch behavior
	LaunchBrowser bool
	StartURL      string
	ProfileDir    string

	// Delivery settings
	Mode            string
	Endpoint        string
	SiteKey         string
	BufferCapacity  int
	FlushIntervalMS int
	MaxTextBytes    int

	// Consent and diagnostics. Consent for the CLI agent comes from the
	// environment; library embedders inject their own predicate.
	Consent bool
	Debug   bool
	LogFile string
}

// LoadAgent reads agent configuration from environment variables and an
// optional .env file.
func LoadAgent() (*AgentConfig, error) {
	loadDotenv()

	cfg := &AgentConfig{
		CDPAddress:      getEnvOrDefault("DOMPULSE_CDP_ADDRESS", "127.0.0.1"),
		CDPPort:         getEnvIntOrDefault("DOMPULSE_CDP_PORT", 9222),
		TabURLFilter:    getEnvOrDefault("DOMPULSE_TAB_URL_FILTER", ""),
		LaunchBrowser:   getEnvBoolOrDefault("DOMPULSE_LAUNCH_BROWSER", false),
		StartURL:        getEnvOrDefault("DOMPULSE_START_URL", ""),
		ProfileDir:      getEnvOrDefault("DOMPULSE_PROFILE_DIR", "./browser_profile"),
		Mode:            strings.ToLower(getEnvOrDefault("DOMPULSE_MODE", "local")),
		Endpoint:        getEnvOrDefault("DOMPULSE_ENDPOINT", ""),
		SiteKey:         getEnvOrDefault("DOMPULSE_SITE_KEY", ""),
		BufferCapacity:  getEnvIntOrDefault("DOMPULSE_BUFFER_CAPACITY", 10),
		FlushIntervalMS: getEnvIntOrDefault("DOMPULSE_FLUSH_INTERVAL_MS", 10000),
		MaxTextBytes:    getEnvIntOrDefault("DOMPULSE_MAX_TEXT_BYTES", 2048),
		Consent:         getEnvBoolOrDefault("DOMPULSE_CONSENT", false),
		Debug:           getEnvBoolOrDefault("DOMPULSE_DEBUG", false),
		LogFile:         getEnvOrDefault("DOMPULSE_LOG_FILE", "logs/agent.log"),
	}

	switch track.Mode(cfg.Mode) {
	case track.ModeLocal, track.ModeDirect, track.ModeHosted:
	default:
		return nil, fmt.Errorf("unknown mode %q (expected local, direct or hosted)", cfg.Mode)
	}

	return cfg, nil
}

// CDPURL returns the CDP HTTP endpoint used by the remote allocator.
func (c *AgentConfig) CDPURL() string {
	return fmt.Sprintf("http://%s:%d", c.CDPAddress, c.CDPPort)
}

// TrackOptions maps the agent config onto tracker options. Validation of
// capacity and interval happens in track.New.
func (c *AgentConfig) TrackOptions() track.Options {
	consent := c.Consent
	return track.Options{
		Mode:           track.Mode(c.Mode),
		Endpoint:       c.Endpoint,
		SiteKey:        c.SiteKey,
		Debug:          c.Debug,
		BufferCapacity: c.BufferCapacity,
		FlushInterval:  time.Duration(c.FlushIntervalMS) * time.Millisecond,
		MaxTextBytes:   c.MaxTextBytes,
		ConsentCheck:   func() bool { return consent },
	}
}
