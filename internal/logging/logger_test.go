package logging_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/lolovespi/reolink-livestream-youtube/internal/logging"
)

func TestNewConsoleLoggerWritesComponentPrefix(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "app.log")

	logger, err := logging.New(logging.Options{
		Level:       "info",
		Format:      "console",
		OutputPaths: []string{path},
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	component := logging.NewComponentLogger(logger, "healthloop")
	component.Info("transcoder restarted", logging.Int("pid", 42))

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	line := string(data)
	if !strings.Contains(line, "INFO healthloop: transcoder restarted") {
		t.Fatalf("unexpected line: %q", line)
	}
	if !strings.Contains(line, "pid=42") {
		t.Fatalf("expected pid attr in %q", line)
	}
}

func TestNewRejectsUnknownFormat(t *testing.T) {
	if _, err := logging.New(logging.Options{Format: "xml"}); err == nil {
		t.Fatal("expected error for unknown format")
	}
}

func TestDebugSuppressedAtInfoLevel(t *testing.T) {
	path := filepath.Join(t.TempDir(), "app.log")
	logger, err := logging.New(logging.Options{Level: "info", OutputPaths: []string{path}})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	logger.Debug("hidden")
	logger.Info("shown")

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	if strings.Contains(string(data), "hidden") {
		t.Fatal("debug line should be suppressed")
	}
	if !strings.Contains(string(data), "shown") {
		t.Fatal("info line missing")
	}
}
