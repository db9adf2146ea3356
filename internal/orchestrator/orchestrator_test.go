package orchestrator_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/lolovespi/reolink-livestream-youtube/internal/broadcast"
	"github.com/lolovespi/reolink-livestream-youtube/internal/config"
	"github.com/lolovespi/reolink-livestream-youtube/internal/journal"
	"github.com/lolovespi/reolink-livestream-youtube/internal/orchestrator"
	"github.com/lolovespi/reolink-livestream-youtube/internal/schedule"
	"github.com/lolovespi/reolink-livestream-youtube/internal/supervise"
	"github.com/lolovespi/reolink-livestream-youtube/internal/testsupport"
)

type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	return c.now
}

func (c *fakeClock) Sleep(_ context.Context, d time.Duration) {
	c.now = c.now.Add(d)
}

type fakeProcess struct {
	pid   int
	alive bool
	code  int
	stops int

	// livePolls > 0 makes the process exit after that many alive polls.
	livePolls int
}

func (p *fakeProcess) PID() int { return p.pid }

func (p *fakeProcess) Poll() supervise.State {
	state := supervise.State{Running: p.alive, ExitCode: p.code}
	if p.alive && p.livePolls > 0 {
		p.livePolls--
		if p.livePolls == 0 {
			p.alive = false
		}
	}
	return state
}

func (p *fakeProcess) Stop() {
	p.stops++
	p.alive = false
}

type transitionRecord struct {
	target broadcast.Lifecycle
	at     time.Time
}

type fakeService struct {
	clock *fakeClock

	reusable  *broadcast.Reusable
	key       string
	lifecycle broadcast.Lifecycle

	// status maps the zero-based call number to a stream status; nil
	// means always active.
	status      func(call int) broadcast.IngestStatus
	statusCalls int

	// transitionFails holds remaining forced failures per target.
	transitionFails map[broadcast.Lifecycle]int
	transitions     []transitionRecord
	onTransition    func(target broadcast.Lifecycle)

	created int
	updated int
	bound   [][2]string
}

func (s *fakeService) EnsureIngest(_ context.Context, id string) (string, error) {
	if id != "" {
		return id, nil
	}
	return "ingest-1", nil
}

func (s *fakeService) CreateBroadcast(_ context.Context, _, _ string) (string, error) {
	s.created++
	return "bcast-new", nil
}

func (s *fakeService) BindBroadcast(_ context.Context, broadcastID, ingestID string) error {
	s.bound = append(s.bound, [2]string{broadcastID, ingestID})
	return nil
}

func (s *fakeService) TransitionBroadcast(_ context.Context, broadcastID string, target broadcast.Lifecycle) error {
	if remaining := s.transitionFails[target]; remaining > 0 {
		s.transitionFails[target] = remaining - 1
		return errors.New("remote refused transition")
	}
	s.transitions = append(s.transitions, transitionRecord{target: target, at: s.clock.Now()})
	if s.onTransition != nil {
		s.onTransition(target)
	}
	return nil
}

func (s *fakeService) IngestStatus(_ context.Context, _ string) (broadcast.IngestStatus, broadcast.IngestHealth, error) {
	call := s.statusCalls
	s.statusCalls++
	if s.status == nil {
		return broadcast.IngestActive, broadcast.HealthGood, nil
	}
	return s.status(call), broadcast.HealthGood, nil
}

func (s *fakeService) BroadcastLifecycle(_ context.Context, _ string) (broadcast.Lifecycle, error) {
	if s.lifecycle == "" {
		return broadcast.LifecycleTesting, nil
	}
	return s.lifecycle, nil
}

func (s *fakeService) FindReusableBroadcast(_ context.Context, _ string) (*broadcast.Reusable, error) {
	return s.reusable, nil
}

func (s *fakeService) IngestKey(_ context.Context, _ string) (string, error) {
	if s.key == "" {
		return "configured-key", nil
	}
	return s.key, nil
}

func (s *fakeService) FindIngestByKey(_ context.Context, _ string) (string, error) {
	return "ingest-by-key", nil
}

func (s *fakeService) UpdateBroadcastSchedule(_ context.Context, _, _, _ string) error {
	s.updated++
	return nil
}

type harness struct {
	orch          *orchestrator.Orchestrator
	svc           *fakeService
	clock         *fakeClock
	cancel        context.CancelFunc
	ctx           context.Context
	starts        []*fakeProcess
	startAt       []time.Time
	statusAtStart []int

	// livePolls is copied onto every started process.
	livePolls int
}

func newHarness(t *testing.T, cfg *config.Config, planner *schedule.Planner, svc *fakeService, startAlive bool) *harness {
	t.Helper()
	clock := svc.clock
	h := &harness{svc: svc, clock: clock}
	h.ctx, h.cancel = context.WithCancel(context.Background())
	t.Cleanup(h.cancel)

	starter := func(_ []string) (orchestrator.Process, error) {
		proc := &fakeProcess{pid: 100 + len(h.starts), alive: startAlive, livePolls: h.livePolls}
		h.starts = append(h.starts, proc)
		h.startAt = append(h.startAt, clock.Now())
		h.statusAtStart = append(h.statusAtStart, svc.statusCalls)
		return proc, nil
	}

	h.orch = orchestrator.New(orchestrator.Options{
		Config:    cfg,
		Service:   svc,
		Planner:   planner,
		Start:     starter,
		Argv:      []string{"ffmpeg", "-i", "rtsp://cam"},
		StreamKey: "configured-key",
		Location:  time.UTC,
		Now:       clock.Now,
		Sleep:     clock.Sleep,
	})
	return h
}

// cancelOnComplete stops the driver loop once the first cycle finishes.
func cancelOnComplete(h *harness) {
	h.svc.onTransition = func(target broadcast.Lifecycle) {
		if target == broadcast.LifecycleComplete {
			h.cancel()
		}
	}
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	return testsupport.NewConfig(t)
}

func rollingPlanner(t *testing.T, rotation time.Duration) *schedule.Planner {
	t.Helper()
	planner, err := schedule.NewRolling(rotation)
	if err != nil {
		t.Fatalf("NewRolling: %v", err)
	}
	return planner
}

func TestReusedTestingBroadcastGoesDirectlyLive(t *testing.T) {
	clock := &fakeClock{now: time.Date(2025, time.March, 3, 8, 0, 0, 0, time.UTC)}
	svc := &fakeService{
		clock:    clock,
		reusable: &broadcast.Reusable{ID: "bcast-1", Lifecycle: broadcast.LifecycleTesting},
	}
	h := newHarness(t, testConfig(t), rollingPlanner(t, time.Hour), svc, true)
	cancelOnComplete(h)

	err := h.orch.Run(h.ctx)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("Run = %v, want context.Canceled", err)
	}

	if svc.created != 0 {
		t.Errorf("created %d broadcasts, want 0 (reuse)", svc.created)
	}
	var targets []broadcast.Lifecycle
	for _, tr := range svc.transitions {
		targets = append(targets, tr.target)
	}
	want := []broadcast.Lifecycle{broadcast.LifecycleLive, broadcast.LifecycleComplete}
	if len(targets) != len(want) {
		t.Fatalf("transitions = %v, want %v", targets, want)
	}
	for i := range want {
		if targets[i] != want[i] {
			t.Fatalf("transitions = %v, want %v", targets, want)
		}
	}
}

func TestConsecutiveExitCeilingForcesRotation(t *testing.T) {
	clock := &fakeClock{now: time.Date(2025, time.March, 3, 8, 0, 0, 0, time.UTC)}
	svc := &fakeService{clock: clock}
	cfg := testConfig(t)
	// Deadline far enough out that only the exit ceiling can end the loop.
	h := newHarness(t, cfg, rollingPlanner(t, 24*time.Hour), svc, false)
	cancelOnComplete(h)

	err := h.orch.Run(h.ctx)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("Run = %v, want context.Canceled", err)
	}

	if got := len(h.starts); got != cfg.Health.MaxConsecutiveErrors {
		t.Errorf("transcoder starts = %d, want %d", got, cfg.Health.MaxConsecutiveErrors)
	}
	last := svc.transitions[len(svc.transitions)-1]
	if last.target != broadcast.LifecycleComplete {
		t.Errorf("final transition = %s, want complete", last.target)
	}
	deadline := h.startAt[0].Add(24 * time.Hour)
	if !last.at.Before(deadline) {
		t.Errorf("rotation at %v not before deadline %v", last.at, deadline)
	}
}

func TestAliveTickResetsConsecutiveExitCounter(t *testing.T) {
	clock := &fakeClock{now: time.Date(2025, time.March, 3, 8, 0, 0, 0, time.UTC)}
	svc := &fakeService{clock: clock}
	// First status call confirms ingest during reconcile; the loop then sees
	// an inactive ingest while the transcoder flaps on every other tick.
	svc.status = func(call int) broadcast.IngestStatus {
		if call == 0 {
			return broadcast.IngestActive
		}
		return broadcast.IngestInactive
	}
	cfg := testConfig(t)
	cfg.Health.MaxConsecutiveErrors = 3
	// Keep the inactivity recovery out of the picture.
	cfg.Health.InactiveRestartSeconds = 1000000
	h := newHarness(t, cfg, rollingPlanner(t, time.Hour), svc, true)
	h.livePolls = 1
	cancelOnComplete(h)

	err := h.orch.Run(h.ctx)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("Run = %v, want context.Canceled", err)
	}

	// Every exit is separated by an alive tick, so the streak never exceeds
	// one and the cycle runs to its rotation deadline.
	if got := len(h.starts); got <= cfg.Health.MaxConsecutiveErrors {
		t.Errorf("transcoder starts = %d, want more than the ceiling of %d", got, cfg.Health.MaxConsecutiveErrors)
	}
	last := svc.transitions[len(svc.transitions)-1]
	if last.target != broadcast.LifecycleComplete {
		t.Fatalf("final transition = %s, want complete", last.target)
	}
	deadline := h.startAt[0].Add(time.Hour)
	if last.at.Before(deadline) {
		t.Errorf("rotated at %v, before deadline %v", last.at, deadline)
	}
	if got := h.orch.Snapshot().CyclesCompleted; got != 1 {
		t.Errorf("cycles completed = %d, want 1", got)
	}
}

func TestInactivityRecoveryTriggersOnSixthTick(t *testing.T) {
	clock := &fakeClock{now: time.Date(2025, time.March, 3, 8, 0, 0, 0, time.UTC)}
	svc := &fakeService{clock: clock}
	// First status call confirms ingest during reconcile; everything after
	// reports inactive.
	svc.status = func(call int) broadcast.IngestStatus {
		if call == 0 {
			return broadcast.IngestActive
		}
		return broadcast.IngestInactive
	}
	h := newHarness(t, testConfig(t), rollingPlanner(t, 24*time.Hour), svc, true)

	err := h.orch.Run(h.ctx)
	if !errors.Is(err, orchestrator.ErrRecoveryCeiling) {
		t.Fatalf("Run = %v, want ErrRecoveryCeiling", err)
	}

	// 60s threshold at 10s ticks: the first recovery restart lands after
	// exactly six inactive polls, not seven. One status poll belongs to
	// the reconcile confirmation.
	if len(h.starts) < 2 {
		t.Fatalf("expected a recovery restart, starts = %d", len(h.starts))
	}
	if got := h.statusAtStart[1]; got != 7 {
		t.Errorf("recovery restart after %d status polls, want 7 (1 reconcile + 6 ticks)", got)
	}

	// Ceiling of 3 recoveries: initial start plus three recovery restarts,
	// the fourth breach terminates instead of restarting.
	if len(h.starts) != 4 {
		t.Errorf("transcoder starts = %d, want 4", len(h.starts))
	}
	for i, proc := range h.starts {
		if proc.stops == 0 {
			t.Errorf("process %d never stopped", i)
		}
	}
}

func TestActiveTickResetsInactivityAccumulator(t *testing.T) {
	clock := &fakeClock{now: time.Date(2025, time.March, 3, 8, 0, 0, 0, time.UTC)}
	svc := &fakeService{clock: clock}
	h := newHarness(t, testConfig(t), rollingPlanner(t, 24*time.Hour), svc, true)

	// Five inactive ticks, one active tick, five inactive ticks: the
	// accumulator never reaches the 60s threshold.
	svc.status = func(call int) broadcast.IngestStatus {
		switch {
		case call == 0:
			return broadcast.IngestActive
		case call <= 5:
			return broadcast.IngestInactive
		case call == 6:
			return broadcast.IngestActive
		case call <= 11:
			return broadcast.IngestInactive
		default:
			h.cancel()
			return broadcast.IngestActive
		}
	}

	err := h.orch.Run(h.ctx)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("Run = %v, want context.Canceled", err)
	}
	if len(h.starts) != 1 {
		t.Errorf("transcoder starts = %d, want 1 (no recovery restart)", len(h.starts))
	}
}

func TestIngestTimeoutAbandonsCycle(t *testing.T) {
	clock := &fakeClock{now: time.Date(2025, time.March, 3, 8, 0, 0, 0, time.UTC)}
	svc := &fakeService{clock: clock}
	// The whole first reconcile window reports inactive; the second cycle
	// confirms immediately.
	svc.status = func(call int) broadcast.IngestStatus {
		if call < 50 {
			return broadcast.IngestInactive
		}
		return broadcast.IngestActive
	}
	h := newHarness(t, testConfig(t), rollingPlanner(t, time.Hour), svc, true)
	cancelOnComplete(h)

	err := h.orch.Run(h.ctx)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("Run = %v, want context.Canceled", err)
	}

	if len(h.starts) != 2 {
		t.Fatalf("transcoder starts = %d, want 2 (one per cycle)", len(h.starts))
	}
	if h.starts[0].stops == 0 {
		t.Error("abandoned cycle left its transcoder running")
	}
	// No lifecycle transition may happen without confirmed ingest.
	if svc.transitions[0].at.Before(h.startAt[1]) {
		t.Errorf("transition at %v predates second cycle start %v",
			svc.transitions[0].at, h.startAt[1])
	}
}

func TestIngestTimeoutJournalsTimedOutCycle(t *testing.T) {
	clock := &fakeClock{now: time.Date(2025, time.March, 3, 8, 0, 0, 0, time.UTC)}
	svc := &fakeService{clock: clock}
	// The whole first reconcile window reports inactive; the second cycle
	// confirms immediately.
	svc.status = func(call int) broadcast.IngestStatus {
		if call < 50 {
			return broadcast.IngestInactive
		}
		return broadcast.IngestActive
	}
	cfg := testConfig(t)
	store := testsupport.MustOpenJournal(t, cfg)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	svc.onTransition = func(target broadcast.Lifecycle) {
		if target == broadcast.LifecycleComplete {
			cancel()
		}
	}
	var starts []*fakeProcess
	orch := orchestrator.New(orchestrator.Options{
		Config:  cfg,
		Service: svc,
		Planner: rollingPlanner(t, time.Hour),
		Start: func(_ []string) (orchestrator.Process, error) {
			proc := &fakeProcess{pid: 100 + len(starts), alive: true}
			starts = append(starts, proc)
			return proc, nil
		},
		Argv:      []string{"ffmpeg", "-i", "rtsp://cam"},
		StreamKey: "configured-key",
		Location:  time.UTC,
		Journal:   store,
		Now:       clock.Now,
		Sleep:     clock.Sleep,
	})

	if err := orch.Run(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("Run = %v, want context.Canceled", err)
	}

	cycles, err := store.Recent(context.Background(), 10)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	var timedOut *journal.Cycle
	for _, c := range cycles {
		if c.Outcome == journal.OutcomeTimedOut {
			timedOut = c
		}
	}
	if timedOut == nil {
		t.Fatalf("no timed_out cycle journaled, got %d rows", len(cycles))
	}
	if timedOut.EndedAt == nil {
		t.Error("timed_out cycle has no end timestamp")
	}
	if timedOut.Error == "" {
		t.Error("timed_out cycle has no error message")
	}
}

func TestTestingTransitionRetriesExactlyOnce(t *testing.T) {
	clock := &fakeClock{now: time.Date(2025, time.March, 3, 8, 0, 0, 0, time.UTC)}
	svc := &fakeService{
		clock:           clock,
		transitionFails: map[broadcast.Lifecycle]int{broadcast.LifecycleTesting: 1},
	}
	h := newHarness(t, testConfig(t), rollingPlanner(t, time.Hour), svc, true)
	cancelOnComplete(h)

	err := h.orch.Run(h.ctx)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("Run = %v, want context.Canceled", err)
	}

	var targets []broadcast.Lifecycle
	for _, tr := range svc.transitions {
		targets = append(targets, tr.target)
	}
	want := []broadcast.Lifecycle{broadcast.LifecycleTesting, broadcast.LifecycleLive, broadcast.LifecycleComplete}
	if len(targets) != len(want) {
		t.Fatalf("transitions = %v, want %v", targets, want)
	}
	for i := range want {
		if targets[i] != want[i] {
			t.Fatalf("transitions = %v, want %v", targets, want)
		}
	}
}

func TestTestingDoubleFailureAbandonsCycle(t *testing.T) {
	clock := &fakeClock{now: time.Date(2025, time.March, 3, 8, 0, 0, 0, time.UTC)}
	svc := &fakeService{
		clock: clock,
		// Two failures on the first cycle; the second cycle succeeds.
		transitionFails: map[broadcast.Lifecycle]int{broadcast.LifecycleTesting: 2},
	}
	h := newHarness(t, testConfig(t), rollingPlanner(t, time.Hour), svc, true)
	cancelOnComplete(h)

	err := h.orch.Run(h.ctx)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("Run = %v, want context.Canceled", err)
	}

	if len(h.starts) != 2 {
		t.Fatalf("transcoder starts = %d, want 2", len(h.starts))
	}
	if h.starts[0].stops == 0 {
		t.Error("abandoned cycle left its transcoder running")
	}
	if svc.transitions[0].target != broadcast.LifecycleTesting {
		t.Errorf("first recorded transition = %s, want testing (second cycle)", svc.transitions[0].target)
	}
}

func TestFixedModeHonorsPrerollAndLiveLead(t *testing.T) {
	loc := time.UTC
	clock := &fakeClock{now: time.Date(2025, time.March, 3, 13, 0, 0, 0, loc)}
	svc := &fakeService{clock: clock, lifecycle: broadcast.LifecycleTesting}
	planner, err := schedule.NewFixed([]int{0, 12}, loc)
	if err != nil {
		t.Fatalf("NewFixed: %v", err)
	}
	cfg := testConfig(t)
	h := newHarness(t, cfg, planner, svc, true)
	cancelOnComplete(h)

	runErr := h.orch.Run(h.ctx)
	if !errors.Is(runErr, context.Canceled) {
		t.Fatalf("Run = %v, want context.Canceled", runErr)
	}

	activation := time.Date(2025, time.March, 4, 0, 0, 0, 0, loc)
	preroll := activation.Add(-time.Duration(cfg.Schedule.PrerollSeconds) * time.Second)
	if h.startAt[0].Before(preroll) {
		t.Errorf("transcoder started %v, before preroll point %v", h.startAt[0], preroll)
	}
	if !h.startAt[0].Before(activation) {
		t.Errorf("transcoder started %v, after activation %v", h.startAt[0], activation)
	}

	liveLead := activation.Add(-time.Duration(cfg.Schedule.LiveLeadSeconds) * time.Second)
	var liveAt time.Time
	for _, tr := range svc.transitions {
		if tr.target == broadcast.LifecycleLive {
			liveAt = tr.at
			break
		}
	}
	if liveAt.IsZero() {
		t.Fatal("no live transition recorded")
	}
	if liveAt.Before(liveLead) {
		t.Errorf("live at %v, before live-lead point %v", liveAt, liveLead)
	}
}

func TestKeyMismatchRebindsToMatchedIngest(t *testing.T) {
	clock := &fakeClock{now: time.Date(2025, time.March, 3, 8, 0, 0, 0, time.UTC)}
	svc := &fakeService{
		clock:    clock,
		key:      "stale-key",
		reusable: &broadcast.Reusable{ID: "bcast-1", Lifecycle: broadcast.LifecycleReady},
	}
	h := newHarness(t, testConfig(t), rollingPlanner(t, time.Hour), svc, true)
	cancelOnComplete(h)

	err := h.orch.Run(h.ctx)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("Run = %v, want context.Canceled", err)
	}

	var rebound bool
	for _, pair := range svc.bound {
		if pair[0] == "bcast-1" && pair[1] == "ingest-by-key" {
			rebound = true
		}
	}
	if !rebound {
		t.Errorf("expected rebind to key-matched ingest, bound = %v", svc.bound)
	}
}
