package orchestrator

import (
	"context"
	"errors"
	"time"

	"github.com/lolovespi/reolink-livestream-youtube/internal/broadcast"
	"github.com/lolovespi/reolink-livestream-youtube/internal/logging"
	"github.com/lolovespi/reolink-livestream-youtube/internal/schedule"
	"github.com/lolovespi/reolink-livestream-youtube/internal/titles"
)

// errAbandonCycle marks a reconcile failure that degrades to "wait and
// restart the cycle"; it never propagates past the driver loop.
var errAbandonCycle = errors.New("cycle abandoned")

// reconcile brings the remote broadcast to live (or as close as the
// platform allows) with a confirmed-active ingest and a running transcoder.
// On failure it stops whatever it started and returns errAbandonCycle with
// the delay the driver should wait before the next attempt. Remote errors
// never escape; each is logged and degraded at the call site.
func (o *Orchestrator) reconcile(ctx context.Context, c *cycle) (time.Duration, error) {
	if err := o.acquireBroadcast(ctx, c); err != nil {
		return createFailureDelay, err
	}
	o.refreshMetadata(ctx, c)
	o.verifyBinding(ctx, c)

	if err := o.startTranscoder(c); err != nil {
		o.logger.Error("transcoder start failed", logging.Error(err))
		return cycleRestartDelay, errAbandonCycle
	}
	if !o.awaitIngestActive(ctx, c) {
		if ctx.Err() != nil {
			c.stopProcess()
			return 0, ctx.Err()
		}
		o.logger.Warn("ingest never became active, abandoning cycle",
			logging.String(logging.FieldIngestID, c.ingestID))
		c.stopProcess()
		o.recordTimedOut(ctx, c)
		return cycleRestartDelay, errAbandonCycle
	}

	if err := o.transitionToLive(ctx, c); err != nil {
		if ctx.Err() != nil {
			c.stopProcess()
			return 0, ctx.Err()
		}
		c.stopProcess()
		return cycleRestartDelay, errAbandonCycle
	}
	return 0, nil
}

// acquireBroadcast reuses the best existing broadcast bound to the current
// ingest endpoint, or creates and binds a fresh one scheduled at the slot
// activation.
func (o *Orchestrator) acquireBroadcast(ctx context.Context, c *cycle) error {
	ingestID, err := o.service.EnsureIngest(ctx, o.cfg.Ingest.StreamID)
	if err != nil {
		o.logger.Error("ensure ingest failed", logging.Error(err))
		return errAbandonCycle
	}
	c.ingestID = ingestID

	reusable, err := o.service.FindReusableBroadcast(ctx, ingestID)
	if err != nil {
		o.logger.Warn("broadcast lookup failed, will create fresh", logging.Error(err))
	}
	if reusable != nil {
		c.broadcastID = reusable.ID
		c.lifecycle = reusable.Lifecycle
		o.logger.Info("reusing broadcast",
			logging.String(logging.FieldBroadcastID, c.broadcastID),
			logging.String(logging.FieldLifecycle, string(c.lifecycle)))
		return nil
	}

	c.title = titles.Make(o.cfg.Broadcast.TitlePrefix, c.slot.Activation.In(o.loc))
	broadcastID, err := o.service.CreateBroadcast(ctx, c.title, c.slot.Activation.Format(time.RFC3339))
	if err != nil {
		o.logger.Error("broadcast create failed", logging.Error(err))
		return errAbandonCycle
	}
	c.broadcastID = broadcastID
	c.lifecycle = broadcast.LifecycleCreated

	if err := o.service.BindBroadcast(ctx, broadcastID, ingestID); err != nil {
		o.logger.Error("broadcast bind failed",
			logging.String(logging.FieldBroadcastID, broadcastID),
			logging.Error(err))
		return errAbandonCycle
	}
	o.logger.Info("created broadcast",
		logging.String(logging.FieldBroadcastID, broadcastID),
		logging.String("title", c.title),
		logging.Time(logging.FieldActivation, c.slot.Activation))
	return nil
}

// refreshMetadata updates a reused broadcast's title and scheduled start to
// the current slot. Fixed mode only, and skipped once the broadcast is
// already testing or live so an in-progress transition is not disturbed.
func (o *Orchestrator) refreshMetadata(ctx context.Context, c *cycle) {
	if o.planner.Mode() != schedule.ModeFixed || c.title != "" {
		return
	}
	if c.lifecycle == broadcast.LifecycleTesting || c.lifecycle == broadcast.LifecycleLive {
		return
	}
	c.title = titles.Make(o.cfg.Broadcast.TitlePrefix, c.slot.Activation.In(o.loc))
	if err := o.service.UpdateBroadcastSchedule(ctx, c.broadcastID, c.title, c.slot.Activation.Format(time.RFC3339)); err != nil {
		o.logger.Warn("broadcast metadata refresh failed",
			logging.String(logging.FieldBroadcastID, c.broadcastID),
			logging.Error(err))
	}
}

// verifyBinding makes the configured stream key the source of truth: when
// the current ingest endpoint's registered key differs, it finds the
// endpoint that actually carries the key and rebinds the broadcast to it.
// Stale or duplicate ingest endpoints otherwise receive no traffic silently.
func (o *Orchestrator) verifyBinding(ctx context.Context, c *cycle) {
	registered, err := o.service.IngestKey(ctx, c.ingestID)
	if err != nil {
		o.logger.Warn("ingest key lookup failed", logging.Error(err))
		return
	}
	if registered == "" || registered == o.streamKey {
		return
	}

	o.logger.Warn("configured stream key does not match ingest endpoint, searching by key",
		logging.String(logging.FieldIngestID, c.ingestID))
	matched, err := o.service.FindIngestByKey(ctx, o.streamKey)
	if err != nil || matched == "" {
		o.logger.Error("no ingest endpoint carries the configured stream key", logging.Error(err))
		return
	}
	c.ingestID = matched
	if err := o.service.BindBroadcast(ctx, c.broadcastID, matched); err != nil {
		o.logger.Error("rebind to matched ingest failed",
			logging.String(logging.FieldIngestID, matched),
			logging.Error(err))
		return
	}
	o.logger.Info("rebound broadcast to key-matched ingest",
		logging.String(logging.FieldBroadcastID, c.broadcastID),
		logging.String(logging.FieldIngestID, matched))
}

func (o *Orchestrator) startTranscoder(c *cycle) error {
	proc, err := o.start(o.argv)
	if err != nil {
		return err
	}
	c.proc = proc
	o.updateSnapshot(func(s *Snapshot) { s.PID = proc.PID() })
	return nil
}

// awaitIngestActive polls remote ingest status until active or a bounded
// mode-dependent timeout elapses. Poll errors count as non-active ticks.
func (o *Orchestrator) awaitIngestActive(ctx context.Context, c *cycle) bool {
	wait := ingestWaitRolling
	if o.planner.Mode() == schedule.ModeFixed {
		wait = ingestWaitFixed
	}
	deadline := o.now().Add(wait)
	for {
		if ctx.Err() != nil {
			return false
		}
		status, health, err := o.service.IngestStatus(ctx, c.ingestID)
		if err != nil {
			o.logger.Warn("ingest status poll failed", logging.Error(err))
		} else if status == broadcast.IngestActive {
			o.updateSnapshot(func(s *Snapshot) { s.IngestActive = true })
			o.logger.Info("ingest active",
				logging.String(logging.FieldIngestID, c.ingestID),
				logging.String(logging.FieldHealth, string(health)))
			return true
		}
		if !o.now().Add(ingestPollInterval).Before(deadline) {
			return false
		}
		o.sleep(ctx, ingestPollInterval)
	}
}

// transitionToLive drives the lifecycle forward given confirmed-active
// ingest: live is a no-op, testing goes straight to live, anything else
// passes through testing first. Each transition retries exactly once.
func (o *Orchestrator) transitionToLive(ctx context.Context, c *cycle) error {
	switch c.lifecycle {
	case broadcast.LifecycleLive:
		o.logger.Info("broadcast already live",
			logging.String(logging.FieldBroadcastID, c.broadcastID))
		return nil
	case broadcast.LifecycleTesting:
	default:
		if err := o.transitionWithRetry(ctx, c, broadcast.LifecycleTesting, testingRetryDelay); err != nil {
			o.logger.Error("transition to testing failed twice, abandoning cycle",
				logging.String(logging.FieldBroadcastID, c.broadcastID),
				logging.Error(err))
			return errAbandonCycle
		}
		o.confirmTesting(ctx, c)
	}

	if o.planner.Mode() == schedule.ModeFixed {
		target := c.slot.Activation.Add(-o.cfg.LiveLead())
		if o.now().Before(target) {
			o.logger.Info("waiting for live lead",
				logging.Time(logging.FieldActivation, c.slot.Activation))
			if !o.sleepUntil(ctx, target) {
				return ctx.Err()
			}
		}
	}

	if err := o.transitionWithRetry(ctx, c, broadcast.LifecycleLive, liveRetryDelay); err != nil {
		// The transcoder transmits regardless; the health loop still runs.
		o.logger.Error("transition to live failed twice, continuing anyway",
			logging.String(logging.FieldBroadcastID, c.broadcastID),
			logging.Error(err))
		return nil
	}
	c.lifecycle = broadcast.LifecycleLive
	o.updateSnapshot(func(s *Snapshot) { s.Lifecycle = string(broadcast.LifecycleLive) })
	o.logger.Info("broadcast live", logging.String(logging.FieldBroadcastID, c.broadcastID))
	return nil
}

func (o *Orchestrator) transitionWithRetry(ctx context.Context, c *cycle, target broadcast.Lifecycle, retryDelay time.Duration) error {
	err := o.service.TransitionBroadcast(ctx, c.broadcastID, target)
	if err == nil {
		if target != broadcast.LifecycleLive {
			c.lifecycle = target
		}
		return nil
	}
	o.logger.Warn("lifecycle transition failed, retrying once",
		logging.String(logging.FieldBroadcastID, c.broadcastID),
		logging.String(logging.FieldLifecycle, string(target)),
		logging.Error(err))
	if !o.sleepFor(ctx, retryDelay) {
		return ctx.Err()
	}
	if err := o.service.TransitionBroadcast(ctx, c.broadcastID, target); err != nil {
		return err
	}
	if target != broadcast.LifecycleLive {
		c.lifecycle = target
	}
	return nil
}

// confirmTesting polls the lifecycle for a bounded window until the platform
// reports testing. Best-effort; the cycle proceeds either way.
func (o *Orchestrator) confirmTesting(ctx context.Context, c *cycle) {
	deadline := o.now().Add(testingConfirmWait)
	for o.now().Before(deadline) {
		if ctx.Err() != nil {
			return
		}
		lifecycle, err := o.service.BroadcastLifecycle(ctx, c.broadcastID)
		if err == nil && lifecycle == broadcast.LifecycleTesting {
			c.lifecycle = broadcast.LifecycleTesting
			return
		}
		o.sleep(ctx, testingConfirmPoll)
	}
	o.logger.Warn("testing lifecycle not confirmed in time, proceeding",
		logging.String(logging.FieldBroadcastID, c.broadcastID))
}
