package orchestrator

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/lolovespi/reolink-livestream-youtube/internal/broadcast"
	"github.com/lolovespi/reolink-livestream-youtube/internal/journal"
	"github.com/lolovespi/reolink-livestream-youtube/internal/logging"
	"github.com/lolovespi/reolink-livestream-youtube/internal/schedule"
)

// Run executes the top-level cycle loop until ctx is cancelled or the
// health loop's recovery ceiling forces a process exit. It never returns
// nil on its own.
func (o *Orchestrator) Run(ctx context.Context) error {
	for {
		if ctx.Err() != nil {
			o.updateSnapshot(func(s *Snapshot) { s.Phase = PhaseStopped })
			return ctx.Err()
		}
		delay, err := o.runCycle(ctx)
		if err != nil {
			if errors.Is(err, ErrRecoveryCeiling) {
				o.updateSnapshot(func(s *Snapshot) { s.Phase = PhaseStopped })
				return err
			}
			if ctx.Err() != nil {
				o.updateSnapshot(func(s *Snapshot) { s.Phase = PhaseStopped })
				return ctx.Err()
			}
			// Abandoned cycle: wait, then restart from the top.
		}
		if delay > 0 && !o.sleepFor(ctx, delay) {
			o.updateSnapshot(func(s *Snapshot) { s.Phase = PhaseStopped })
			return ctx.Err()
		}
	}
}

// runCycle executes one schedule → reconcile → supervise → rotate pass and
// returns the delay before the next cycle starts.
func (o *Orchestrator) runCycle(ctx context.Context) (time.Duration, error) {
	slot := o.planner.Next(o.now())
	c := &cycle{id: uuid.NewString(), slot: slot}

	o.updateSnapshot(func(s *Snapshot) {
		s.Phase = PhaseWaiting
		s.CycleID = c.id
		s.BroadcastID = ""
		s.IngestID = ""
		s.Lifecycle = ""
		s.IngestActive = false
		s.PID = 0
		s.Activation = slot.Activation
		s.Deadline = slot.Deadline
		s.CyclesStarted++
	})
	o.logger.Info("cycle planned",
		logging.String(logging.FieldCycleID, c.id),
		logging.Time(logging.FieldActivation, slot.Activation),
		logging.Time(logging.FieldDeadline, slot.Deadline))

	if o.planner.Mode() == schedule.ModeFixed {
		target := slot.Activation.Add(-o.cfg.Preroll())
		if o.now().Before(target) {
			o.logger.Info("sleeping until preroll", logging.Time("preroll_at", target))
			if !o.sleepUntil(ctx, target) {
				return 0, ctx.Err()
			}
		}
	}

	o.updateSnapshot(func(s *Snapshot) { s.Phase = PhaseReconciling })
	delay, err := o.reconcile(ctx, c)
	if err != nil {
		return delay, err
	}
	o.updateSnapshot(func(s *Snapshot) {
		s.Phase = PhaseStreaming
		s.BroadcastID = c.broadcastID
		s.IngestID = c.ingestID
		s.Lifecycle = string(c.lifecycle)
	})

	journalID := o.recordCycleStart(ctx, c)

	reason, loopErr := o.healthLoop(ctx, c)
	c.stopProcess()
	o.updateSnapshot(func(s *Snapshot) {
		s.PID = 0
		s.IngestActive = false
	})

	o.completeBroadcast(ctx, c)
	if loopErr == nil && reason == reasonDeadline {
		o.updateSnapshot(func(s *Snapshot) { s.CyclesCompleted++ })
	}
	o.recordCycleEnd(ctx, c, journalID, reason, loopErr)

	if loopErr != nil {
		return 0, loopErr
	}
	return rotationGapDelay, nil
}

// completeBroadcast transitions the broadcast toward complete. Best-effort;
// a failure is logged and the rotation proceeds.
func (o *Orchestrator) completeBroadcast(ctx context.Context, c *cycle) {
	if c.broadcastID == "" {
		return
	}
	if err := o.service.TransitionBroadcast(ctx, c.broadcastID, broadcast.LifecycleComplete); err != nil {
		o.logger.Warn("transition to complete failed",
			logging.String(logging.FieldBroadcastID, c.broadcastID),
			logging.Error(err))
		return
	}
	o.logger.Info("broadcast completed",
		logging.String(logging.FieldBroadcastID, c.broadcastID))
}

func (o *Orchestrator) recordCycleStart(ctx context.Context, c *cycle) string {
	if o.journal == nil {
		return ""
	}
	id, err := o.journal.RecordStart(ctx, journal.Cycle{
		ID:          c.id,
		BroadcastID: c.broadcastID,
		IngestID:    c.ingestID,
		Mode:        string(o.planner.Mode()),
		Title:       c.title,
		Activation:  c.slot.Activation,
		Deadline:    c.slot.Deadline,
	})
	if err != nil {
		o.logger.Warn("journal write failed", logging.Error(err))
		return ""
	}
	return id
}

// recordTimedOut journals a cycle abandoned before the health loop because
// its ingest confirmation window elapsed.
func (o *Orchestrator) recordTimedOut(ctx context.Context, c *cycle) {
	if o.journal == nil {
		return
	}
	id := o.recordCycleStart(ctx, c)
	if id == "" {
		return
	}
	if err := o.journal.RecordEnd(ctx, id, journal.OutcomeTimedOut, c.restarts, c.counters.Recoveries, "ingest never became active"); err != nil {
		o.logger.Warn("journal close failed", logging.Error(err))
	}
}

func (o *Orchestrator) recordCycleEnd(ctx context.Context, c *cycle, journalID string, reason stopReason, loopErr error) {
	if o.journal == nil || journalID == "" {
		return
	}
	outcome := journal.OutcomeInterrupted
	message := ""
	switch {
	case errors.Is(loopErr, ErrRecoveryCeiling):
		outcome = journal.OutcomeFailed
		message = loopErr.Error()
	case loopErr != nil:
		outcome = journal.OutcomeInterrupted
	case reason == reasonErrorCeiling:
		outcome = journal.OutcomeFailed
		message = "consecutive exit ceiling reached"
	case reason == reasonDeadline:
		outcome = journal.OutcomeCompleted
	}
	if err := o.journal.RecordEnd(ctx, journalID, outcome, c.restarts, c.counters.Recoveries, message); err != nil {
		o.logger.Warn("journal close failed", logging.Error(err))
	}
}
