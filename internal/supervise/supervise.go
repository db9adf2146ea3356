package supervise

import (
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"time"

	"github.com/lolovespi/reolink-livestream-youtube/internal/logging"
)

// stopGrace is how long Stop waits after the termination signal before
// escalating to a kill signal.
const stopGrace = 10 * time.Second

// State is the result of a non-blocking liveness poll.
type State struct {
	Running  bool
	ExitCode int
}

// Supervisor launches transcoder subprocesses in their own process group and
// routes their merged output to timestamped log files.
type Supervisor struct {
	logDir string
	prefix string
	logger *slog.Logger
}

// New constructs a Supervisor. An empty logDir discards subprocess output.
func New(logDir, prefix string, logger *slog.Logger) *Supervisor {
	return &Supervisor{
		logDir: logDir,
		prefix: prefix,
		logger: logging.NewComponentLogger(logger, "supervise"),
	}
}

// Handle owns one running subprocess and its process group. Exactly one
// live handle exists per cycle; a replacement is created on restart.
type Handle struct {
	cmd     *exec.Cmd
	logFile *os.File
	done    chan struct{}
	stopped bool
}

// Start launches argv in a new process group with stdout and stderr merged
// into an append-mode log file (or discarded when logging is disabled).
func (s *Supervisor) Start(argv []string) (*Handle, error) {
	if len(argv) == 0 {
		return nil, fmt.Errorf("start: empty command")
	}

	cmd := exec.Command(argv[0], argv[1:]...)
	configureProcessGroup(cmd)

	var logFile *os.File
	if s.logDir != "" {
		if err := os.MkdirAll(s.logDir, 0o755); err != nil {
			return nil, fmt.Errorf("create log directory: %w", err)
		}
		path := filepath.Join(s.logDir, fmt.Sprintf("%s-%s.log", s.prefix, time.Now().Format("20060102-150405")))
		file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, fmt.Errorf("open log sink: %w", err)
		}
		logFile = file
		cmd.Stdout = file
		cmd.Stderr = file
	}

	if err := cmd.Start(); err != nil {
		if logFile != nil {
			_ = logFile.Close()
		}
		return nil, fmt.Errorf("start %s: %w", argv[0], err)
	}

	handle := &Handle{cmd: cmd, logFile: logFile, done: make(chan struct{})}
	go func() {
		_ = cmd.Wait()
		if handle.logFile != nil {
			_ = handle.logFile.Close()
		}
		close(handle.done)
	}()

	s.logger.Info("subprocess started",
		logging.Int(logging.FieldPID, cmd.Process.Pid),
		logging.String("command", argv[0]))
	return handle, nil
}

// PID returns the subprocess pid, or zero for a nil handle.
func (h *Handle) PID() int {
	if h == nil || h.cmd == nil || h.cmd.Process == nil {
		return 0
	}
	return h.cmd.Process.Pid
}

// Poll reports the subprocess state without blocking.
func (h *Handle) Poll() State {
	if h == nil || h.cmd == nil {
		return State{Running: false}
	}
	select {
	case <-h.done:
		code := -1
		if state := h.cmd.ProcessState; state != nil {
			code = state.ExitCode()
		}
		return State{Running: false, ExitCode: code}
	default:
		return State{Running: true}
	}
}

// Stop terminates the whole process group: graceful signal first, then a
// bounded wait, then a kill signal. Signal errors are swallowed (the group
// may already be gone) but the wait is always attempted. Safe to call on a
// nil or already-stopped handle.
func (h *Handle) Stop() {
	if h == nil || h.cmd == nil || h.stopped {
		return
	}
	h.stopped = true

	signalGroupTerm(h.cmd)
	select {
	case <-h.done:
		return
	case <-time.After(stopGrace):
	}
	signalGroupKill(h.cmd)
	<-h.done
}
