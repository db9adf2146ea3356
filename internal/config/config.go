package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"
)

// ErrMissing marks a required configuration value that was not provided.
// The CLI maps it to a distinct process exit status.
var ErrMissing = errors.New("missing required configuration")

// Paths contains state directory configuration.
type Paths struct {
	BaseDir string `toml:"base_dir"`
	LogDir  string `toml:"log_dir"`
}

// Google contains OAuth credential locations for the broadcast platform.
type Google struct {
	ClientSecrets string `toml:"client_secrets"`
	TokenFile     string `toml:"token_file"`
}

// Source contains the camera input and transcode settings.
type Source struct {
	RTSPURL         string `toml:"rtsp_url"`
	Width           int    `toml:"width"`
	Height          int    `toml:"height"`
	FPS             int    `toml:"fps"`
	VideoBitrate    string `toml:"video_bitrate"`
	KeyInt          int    `toml:"keyint"`
	AudioSampleRate int    `toml:"audio_sample_rate"`
	AudioBitrate    string `toml:"audio_bitrate"`
}

// Ingest contains the RTMP destination settings.
type Ingest struct {
	RTMPBase      string `toml:"rtmp_base"`
	StreamKeyFile string `toml:"stream_key_file"`
	StreamID      string `toml:"stream_id"`
}

// Schedule contains slot planning settings. FixedStartHours is a CSV of
// local clock hours; when empty the planner runs in rolling mode.
type Schedule struct {
	Timezone        string `toml:"timezone"`
	RotationHours   int    `toml:"rotation_hours"`
	FixedStartHours string `toml:"fixed_start_hours"`
	PrerollSeconds  int    `toml:"preroll_seconds"`
	LiveLeadSeconds int    `toml:"live_lead_seconds"`
}

// Health contains health-loop tuning.
type Health struct {
	IntervalSeconds        int `toml:"interval_seconds"`
	ExitRetryDelaySeconds  int `toml:"exit_retry_delay_seconds"`
	MaxConsecutiveErrors   int `toml:"max_consecutive_errors"`
	InactiveRestartSeconds int `toml:"inactive_restart_seconds"`
	MaxLiveRecoveries      int `toml:"max_live_recoveries"`
}

// Broadcast contains broadcast metadata settings.
type Broadcast struct {
	TitlePrefix string `toml:"title_prefix"`
	Privacy     string `toml:"privacy"`
}

// Logging contains application log output settings. This is separate from
// the transcoder log sink, which lives under Paths.LogDir.
type Logging struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

// API contains the read-only status server settings. An empty bind address
// disables the server.
type API struct {
	Bind string `toml:"bind"`
}

// Config encapsulates every knob the orchestrator and CLI need. It is built
// once at startup and passed explicitly into component constructors; no core
// logic performs ambient environment lookups.
type Config struct {
	Paths     Paths     `toml:"paths"`
	Google    Google    `toml:"google"`
	Source    Source    `toml:"source"`
	Ingest    Ingest    `toml:"ingest"`
	Schedule  Schedule  `toml:"schedule"`
	Health    Health    `toml:"health"`
	Broadcast Broadcast `toml:"broadcast"`
	Logging   Logging   `toml:"logging"`
	API       API       `toml:"api"`
}

// DefaultConfigPath returns the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/livestream/config.toml")
}

// Load builds the effective configuration: repository defaults, then an
// optional TOML file, then environment overrides (a .env file in the working
// directory is honoured when present). The returned config has all path
// fields expanded and has passed validation.
func Load(path string) (*Config, string, bool, error) {
	_ = godotenv.Load()

	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	cfg.applyEnv()

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		if _, err := os.Stat(expanded); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}
	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	return defaultPath, false, nil
}

func (c *Config) normalize() error {
	var err error
	if c.Paths.BaseDir, err = expandPath(c.Paths.BaseDir); err != nil {
		return err
	}
	if strings.TrimSpace(c.Paths.LogDir) != "" {
		if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
			return err
		}
	} else if c.Paths.BaseDir != "" {
		c.Paths.LogDir = filepath.Join(c.Paths.BaseDir, "logs")
	}
	for _, field := range []*string{&c.Google.ClientSecrets, &c.Google.TokenFile, &c.Ingest.StreamKeyFile} {
		if strings.TrimSpace(*field) == "" {
			continue
		}
		if *field, err = expandPath(*field); err != nil {
			return err
		}
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	c.Broadcast.Privacy = strings.ToLower(strings.TrimSpace(c.Broadcast.Privacy))
	return nil
}

// EnsureDirectories creates the state directories the orchestrator writes to.
func (c *Config) EnsureDirectories() error {
	dirs := []string{c.Paths.BaseDir, c.RunDir()}
	if strings.TrimSpace(c.Paths.LogDir) != "" {
		dirs = append(dirs, c.Paths.LogDir)
	}
	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// RunDir returns the directory holding runtime state (lock file).
func (c *Config) RunDir() string {
	return filepath.Join(c.Paths.BaseDir, "run")
}

// LockPath returns the singleton lock file location.
func (c *Config) LockPath() string {
	return filepath.Join(c.RunDir(), "orchestrator.lock")
}

// JournalPath returns the cycle journal database location.
func (c *Config) JournalPath() string {
	return filepath.Join(c.Paths.BaseDir, "journal.db")
}

// Location loads the configured IANA timezone.
func (c *Config) Location() (*time.Location, error) {
	return time.LoadLocation(c.Schedule.Timezone)
}

// FixedHours parses the fixed-start-hours CSV into a sorted, deduplicated
// slice. An empty result means rolling mode.
func (c *Config) FixedHours() ([]int, error) {
	raw := strings.TrimSpace(c.Schedule.FixedStartHours)
	if raw == "" {
		return nil, nil
	}
	seen := make(map[int]struct{})
	var hours []int
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		hour, err := strconv.Atoi(part)
		if err != nil {
			return nil, fmt.Errorf("fixed start hours: %q is not an hour", part)
		}
		if hour < 0 || hour > 23 {
			return nil, fmt.Errorf("fixed start hours: %d outside 0-23", hour)
		}
		if _, ok := seen[hour]; ok {
			continue
		}
		seen[hour] = struct{}{}
		hours = append(hours, hour)
	}
	sort.Ints(hours)
	return hours, nil
}

// Rotation returns the rolling-mode window duration.
func (c *Config) Rotation() time.Duration {
	return time.Duration(c.Schedule.RotationHours) * time.Hour
}

// HealthInterval returns the health-loop tick duration.
func (c *Config) HealthInterval() time.Duration {
	return time.Duration(c.Health.IntervalSeconds) * time.Second
}

// ExitRetryDelay returns the pause before restarting an exited transcoder.
func (c *Config) ExitRetryDelay() time.Duration {
	return time.Duration(c.Health.ExitRetryDelaySeconds) * time.Second
}

// InactiveRestartThreshold returns the accumulated ingest-inactive duration
// that triggers a recovery restart.
func (c *Config) InactiveRestartThreshold() time.Duration {
	return time.Duration(c.Health.InactiveRestartSeconds) * time.Second
}

// Preroll returns how long before activation the transcoder starts.
func (c *Config) Preroll() time.Duration {
	return time.Duration(c.Schedule.PrerollSeconds) * time.Second
}

// LiveLead returns how long before activation the broadcast may go live.
func (c *Config) LiveLead() time.Duration {
	return time.Duration(c.Schedule.LiveLeadSeconds) * time.Second
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	pathValue = os.ExpandEnv(pathValue)
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && pathValue[1] == '/' {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}
