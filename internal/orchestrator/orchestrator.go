package orchestrator

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/lolovespi/reolink-livestream-youtube/internal/broadcast"
	"github.com/lolovespi/reolink-livestream-youtube/internal/config"
	"github.com/lolovespi/reolink-livestream-youtube/internal/journal"
	"github.com/lolovespi/reolink-livestream-youtube/internal/logging"
	"github.com/lolovespi/reolink-livestream-youtube/internal/schedule"
	"github.com/lolovespi/reolink-livestream-youtube/internal/supervise"
)

// ErrRecoveryCeiling reports that repeated ingest-inactivity recoveries did
// not restore the stream. The process exits non-zero so the OS service
// manager can perform a clean full restart.
var ErrRecoveryCeiling = errors.New("live recovery ceiling exceeded")

const (
	// sleepChunk bounds every wait so shutdown signals are observed promptly.
	sleepChunk = 10 * time.Second

	ingestWaitFixed    = 180 * time.Second
	ingestWaitRolling  = 120 * time.Second
	ingestPollInterval = 3 * time.Second

	testingConfirmWait = 30 * time.Second
	testingConfirmPoll = 2 * time.Second
	testingRetryDelay  = 5 * time.Second
	liveRetryDelay     = 8 * time.Second

	createFailureDelay = 15 * time.Second
	cycleRestartDelay  = 5 * time.Second
	rotationGapDelay   = 5 * time.Second
)

// Process is the transcoder subprocess handle the orchestrator supervises.
// supervise.Handle satisfies it; tests substitute fakes.
type Process interface {
	PID() int
	Poll() supervise.State
	Stop()
}

// Starter launches a transcoder subprocess for the given argv.
type Starter func(argv []string) (Process, error)

// Options configures an Orchestrator.
type Options struct {
	Config    *config.Config
	Service   broadcast.Service
	Planner   *schedule.Planner
	Start     Starter
	Argv      []string
	StreamKey string
	Location  *time.Location
	Journal   *journal.Store
	Logger    *slog.Logger

	// Now and Sleep override the clock; nil selects the real one.
	Now   func() time.Time
	Sleep func(ctx context.Context, d time.Duration)
}

// Orchestrator runs the top-level cycle loop: plan a slot, reconcile the
// remote broadcast, supervise the transcoder through the health loop, then
// rotate. It is single-threaded; the subprocess is the only concurrent
// entity.
type Orchestrator struct {
	cfg       *config.Config
	service   broadcast.Service
	planner   *schedule.Planner
	start     Starter
	argv      []string
	streamKey string
	loc       *time.Location
	journal   *journal.Store
	logger    *slog.Logger

	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration)

	mu   sync.Mutex
	snap Snapshot
}

// New constructs an Orchestrator from options.
func New(opts Options) *Orchestrator {
	logger := opts.Logger
	if logger == nil {
		logger = logging.NewNop()
	}
	loc := opts.Location
	if loc == nil {
		loc = time.Local
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	sleep := opts.Sleep
	if sleep == nil {
		sleep = sleepWithContext
	}
	return &Orchestrator{
		cfg:       opts.Config,
		service:   opts.Service,
		planner:   opts.Planner,
		start:     opts.Start,
		argv:      opts.Argv,
		streamKey: opts.StreamKey,
		loc:       loc,
		journal:   opts.Journal,
		logger:    logging.NewComponentLogger(logger, "orchestrator"),
		now:       now,
		sleep:     sleep,
		snap:      Snapshot{Phase: PhaseIdle, StartedAt: now()},
	}
}

func sleepWithContext(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}

// sleepFor waits for d in bounded chunks, returning false once ctx is done.
func (o *Orchestrator) sleepFor(ctx context.Context, d time.Duration) bool {
	for remaining := d; remaining > 0; {
		if ctx.Err() != nil {
			return false
		}
		step := remaining
		if step > sleepChunk {
			step = sleepChunk
		}
		o.sleep(ctx, step)
		remaining -= step
	}
	return ctx.Err() == nil
}

// sleepUntil waits until the target instant, re-reading the clock each wake.
func (o *Orchestrator) sleepUntil(ctx context.Context, target time.Time) bool {
	for {
		if ctx.Err() != nil {
			return false
		}
		remaining := target.Sub(o.now())
		if remaining <= 0 {
			return true
		}
		if remaining > sleepChunk {
			remaining = sleepChunk
		}
		o.sleep(ctx, remaining)
	}
}

// HealthCounters are the per-cycle mutable counters the health loop drives.
// They reset at cycle start and on any observed healthy tick.
type HealthCounters struct {
	ConsecutiveExits int
	InactiveFor      time.Duration
	Recoveries       int
}

// cycle owns the per-iteration state: one broadcast, one ingest, one
// subprocess handle, one rotation deadline. Never persisted; a process
// restart recovers by re-querying the platform.
type cycle struct {
	id          string
	slot        schedule.Slot
	ingestID    string
	broadcastID string
	lifecycle   broadcast.Lifecycle
	title       string
	proc        Process
	restarts    int
	counters    HealthCounters
}

func (c *cycle) running() bool {
	return c.proc != nil && c.proc.Poll().Running
}

func (c *cycle) stopProcess() {
	if c.proc != nil {
		c.proc.Stop()
		c.proc = nil
	}
}

// Orchestrator phases surfaced through the status API.
const (
	PhaseIdle        = "idle"
	PhaseWaiting     = "waiting"
	PhaseReconciling = "reconciling"
	PhaseStreaming   = "streaming"
	PhaseStopped     = "stopped"
)

// Snapshot is a point-in-time view of orchestrator state for the status
// server. Counter fields are monotonic totals across cycles.
type Snapshot struct {
	Phase           string    `json:"phase"`
	CycleID         string    `json:"cycle_id,omitempty"`
	BroadcastID     string    `json:"broadcast_id,omitempty"`
	IngestID        string    `json:"ingest_id,omitempty"`
	Lifecycle       string    `json:"lifecycle,omitempty"`
	IngestActive    bool      `json:"ingest_active"`
	PID             int       `json:"pid,omitempty"`
	Activation      time.Time `json:"activation"`
	Deadline        time.Time `json:"deadline"`
	CyclesStarted   int64     `json:"cycles_started"`
	CyclesCompleted int64     `json:"cycles_completed"`
	Restarts        int64     `json:"restarts"`
	Recoveries      int64     `json:"recoveries"`
	StartedAt       time.Time `json:"started_at"`
}

// Snapshot returns the current status view.
func (o *Orchestrator) Snapshot() Snapshot {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.snap
}

func (o *Orchestrator) updateSnapshot(update func(*Snapshot)) {
	o.mu.Lock()
	defer o.mu.Unlock()
	update(&o.snap)
}
