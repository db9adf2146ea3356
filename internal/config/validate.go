package config

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Validate ensures the configuration is usable. Missing required values are
// reported with ErrMissing so the CLI can exit with the configuration status.
func (c *Config) Validate() error {
	if err := c.validateRequired(); err != nil {
		return err
	}
	if err := c.validateSchedule(); err != nil {
		return err
	}
	if err := c.validateHealth(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateRequired() error {
	required := []struct {
		key   string
		value string
	}{
		{"base_dir (LIVESTREAM_BASE_DIR)", c.Paths.BaseDir},
		{"google.client_secrets (LIVESTREAM_CLIENT_SECRETS)", c.Google.ClientSecrets},
		{"google.token_file (LIVESTREAM_TOKEN_FILE)", c.Google.TokenFile},
		{"source.rtsp_url (LIVESTREAM_RTSP_URL)", c.Source.RTSPURL},
		{"ingest.rtmp_base (LIVESTREAM_RTMP_INGEST)", c.Ingest.RTMPBase},
		{"ingest.stream_key_file (LIVESTREAM_STREAM_KEY_FILE)", c.Ingest.StreamKeyFile},
		{"schedule.timezone (LIVESTREAM_TZ)", c.Schedule.Timezone},
	}
	for _, entry := range required {
		if strings.TrimSpace(entry.value) == "" {
			return fmt.Errorf("%w: %s", ErrMissing, entry.key)
		}
	}
	return nil
}

func (c *Config) validateSchedule() error {
	if _, err := time.LoadLocation(c.Schedule.Timezone); err != nil {
		return fmt.Errorf("schedule.timezone: %w", err)
	}
	if c.Schedule.RotationHours <= 0 {
		return errors.New("schedule.rotation_hours must be positive")
	}
	if c.Schedule.PrerollSeconds < 0 {
		return errors.New("schedule.preroll_seconds must not be negative")
	}
	if c.Schedule.LiveLeadSeconds < 0 {
		return errors.New("schedule.live_lead_seconds must not be negative")
	}
	if _, err := c.FixedHours(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateHealth() error {
	if c.Health.IntervalSeconds <= 0 {
		return errors.New("health.interval_seconds must be positive")
	}
	if c.Health.ExitRetryDelaySeconds < 0 {
		return errors.New("health.exit_retry_delay_seconds must not be negative")
	}
	if c.Health.MaxConsecutiveErrors <= 0 {
		return errors.New("health.max_consecutive_errors must be positive")
	}
	if c.Health.InactiveRestartSeconds <= 0 {
		return errors.New("health.inactive_restart_seconds must be positive")
	}
	if c.Health.MaxLiveRecoveries <= 0 {
		return errors.New("health.max_live_recoveries must be positive")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "", "console", "json":
	default:
		return fmt.Errorf("logging.format: unsupported value %q", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level: unsupported value %q", c.Logging.Level)
	}
	return nil
}
