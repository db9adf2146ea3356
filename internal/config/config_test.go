package config_test

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/lolovespi/reolink-livestream-youtube/internal/config"
)

func setRequiredEnv(t *testing.T) {
	t.Helper()
	t.Setenv("LIVESTREAM_CLIENT_SECRETS", "/tmp/client_secret.json")
	t.Setenv("LIVESTREAM_TOKEN_FILE", "/tmp/token.json")
	t.Setenv("LIVESTREAM_RTSP_URL", "rtsp://cam.local/h264")
	t.Setenv("LIVESTREAM_RTMP_INGEST", "rtmp://a.rtmp.youtube.com/live2")
	t.Setenv("LIVESTREAM_STREAM_KEY_FILE", "/tmp/stream_key")
	t.Setenv("LIVESTREAM_TZ", "UTC")
}

func TestLoadDefaultsWithEnvOverrides(t *testing.T) {
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)
	setRequiredEnv(t)
	t.Setenv("LIVESTREAM_ROTATION_HOURS", "6")
	t.Setenv("LIVESTREAM_FIXED_START_HOURS", "0,12")

	cfg, resolved, exists, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if resolved == "" {
		t.Fatal("expected resolved path")
	}
	if exists {
		t.Fatal("expected config file to be absent in temp HOME")
	}

	wantBase := filepath.Join(tempHome, ".local", "share", "livestream")
	if cfg.Paths.BaseDir != wantBase {
		t.Fatalf("unexpected base dir: got %q want %q", cfg.Paths.BaseDir, wantBase)
	}
	if cfg.Paths.LogDir != filepath.Join(wantBase, "logs") {
		t.Fatalf("unexpected log dir: %q", cfg.Paths.LogDir)
	}
	if cfg.Schedule.RotationHours != 6 {
		t.Fatalf("expected rotation hours from env, got %d", cfg.Schedule.RotationHours)
	}
	if cfg.Health.IntervalSeconds != 10 {
		t.Fatalf("unexpected health interval: %d", cfg.Health.IntervalSeconds)
	}
	if cfg.Health.MaxConsecutiveErrors != 20 {
		t.Fatalf("unexpected error ceiling: %d", cfg.Health.MaxConsecutiveErrors)
	}
	if cfg.Broadcast.TitlePrefix != "weather stream" {
		t.Fatalf("unexpected title prefix: %q", cfg.Broadcast.TitlePrefix)
	}

	hours, err := cfg.FixedHours()
	if err != nil {
		t.Fatalf("FixedHours: %v", err)
	}
	if len(hours) != 2 || hours[0] != 0 || hours[1] != 12 {
		t.Fatalf("unexpected fixed hours: %v", hours)
	}

	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories failed: %v", err)
	}
	for _, dir := range []string{cfg.Paths.BaseDir, cfg.RunDir(), cfg.Paths.LogDir} {
		info, err := os.Stat(dir)
		if err != nil {
			t.Fatalf("expected directory %q to exist: %v", dir, err)
		}
		if !info.IsDir() {
			t.Fatalf("expected %q to be a directory", dir)
		}
	}
}

func TestLoadMissingRequiredReportsErrMissing(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	setRequiredEnv(t)
	t.Setenv("LIVESTREAM_RTSP_URL", "")

	_, _, _, err := config.Load("")
	if err == nil {
		t.Fatal("expected error for missing rtsp url")
	}
	if !errors.Is(err, config.ErrMissing) {
		t.Fatalf("expected ErrMissing, got %v", err)
	}
	if !strings.Contains(err.Error(), "LIVESTREAM_RTSP_URL") {
		t.Fatalf("error should name the env key: %v", err)
	}
}

func TestLoadReadsTOMLFileWithEnvWinning(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	setRequiredEnv(t)
	t.Setenv("LIVESTREAM_TITLE_PREFIX", "env wins")

	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	body := strings.Join([]string{
		"[schedule]",
		`fixed_start_hours = "0,6,18"`,
		"[broadcast]",
		`title_prefix = "file value"`,
	}, "\n")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, resolved, exists, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !exists {
		t.Fatal("expected config file to exist")
	}
	if resolved != path {
		t.Fatalf("unexpected resolved path: %q", resolved)
	}
	if cfg.Broadcast.TitlePrefix != "env wins" {
		t.Fatalf("environment should override file: %q", cfg.Broadcast.TitlePrefix)
	}
	hours, err := cfg.FixedHours()
	if err != nil {
		t.Fatalf("FixedHours: %v", err)
	}
	if len(hours) != 3 || hours[2] != 18 {
		t.Fatalf("unexpected fixed hours: %v", hours)
	}
}

func TestFixedHoursRejectsOutOfRange(t *testing.T) {
	cfg := config.Default()
	cfg.Schedule.FixedStartHours = "0,24"
	if _, err := cfg.FixedHours(); err == nil {
		t.Fatal("expected error for hour 24")
	}
	cfg.Schedule.FixedStartHours = "twelve"
	if _, err := cfg.FixedHours(); err == nil {
		t.Fatal("expected error for non-numeric hour")
	}
}

func TestCreateSampleRoundTrips(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	setRequiredEnv(t)

	path := filepath.Join(t.TempDir(), "nested", "config.toml")
	if err := config.CreateSample(path); err != nil {
		t.Fatalf("CreateSample: %v", err)
	}
	if _, _, exists, err := config.Load(path); err != nil {
		t.Fatalf("Load sample: %v", err)
	} else if !exists {
		t.Fatal("expected sample file to be found")
	}
}
