package orchestrator

import (
	"context"

	"github.com/lolovespi/reolink-livestream-youtube/internal/broadcast"
	"github.com/lolovespi/reolink-livestream-youtube/internal/logging"
)

// stopReason explains why the health loop returned.
type stopReason int

const (
	reasonDeadline stopReason = iota
	reasonErrorCeiling
	reasonInterrupted
)

// healthLoop is the steady-state control loop: each tick it polls the
// subprocess, then remote ingest, restarting the transcoder as needed. It
// runs until the rotation deadline, an early break on the consecutive-exit
// ceiling, or ErrRecoveryCeiling when repeated recoveries fail.
func (o *Orchestrator) healthLoop(ctx context.Context, c *cycle) (stopReason, error) {
	interval := o.cfg.HealthInterval()
	threshold := o.cfg.InactiveRestartThreshold()

	for {
		if ctx.Err() != nil {
			return reasonInterrupted, ctx.Err()
		}
		if !o.now().Before(c.slot.Deadline) {
			o.logger.Info("rotation deadline reached",
				logging.Time(logging.FieldDeadline, c.slot.Deadline))
			return reasonDeadline, nil
		}

		if !c.running() {
			c.counters.ConsecutiveExits++
			o.logExit(c)
			if c.counters.ConsecutiveExits >= o.cfg.Health.MaxConsecutiveErrors {
				o.logger.Error("consecutive exit ceiling reached, forcing rotation",
					logging.Int("exits", c.counters.ConsecutiveExits))
				return reasonErrorCeiling, nil
			}
			if !o.sleepFor(ctx, o.cfg.ExitRetryDelay()) {
				return reasonInterrupted, ctx.Err()
			}
			o.restartTranscoder(c)
			continue
		}

		c.counters.ConsecutiveExits = 0

		status, health, err := o.service.IngestStatus(ctx, c.ingestID)
		if err != nil {
			o.logger.Warn("ingest status poll failed", logging.Error(err))
			status = broadcast.IngestUnknown
		}

		if status == broadcast.IngestActive {
			c.counters.InactiveFor = 0
			o.updateSnapshot(func(s *Snapshot) { s.IngestActive = true })
		} else {
			c.counters.InactiveFor += interval
			o.updateSnapshot(func(s *Snapshot) { s.IngestActive = false })
			o.logger.Warn("ingest not active",
				logging.String(logging.FieldIngest, string(status)),
				logging.String(logging.FieldHealth, string(health)),
				logging.Duration("inactive_for", c.counters.InactiveFor))

			if c.counters.InactiveFor >= threshold {
				c.counters.InactiveFor = 0
				c.counters.Recoveries++
				o.updateSnapshot(func(s *Snapshot) { s.Recoveries++ })
				if c.counters.Recoveries > o.cfg.Health.MaxLiveRecoveries {
					o.logger.Error("recovery ceiling exceeded, terminating for external restart",
						logging.Int("recoveries", c.counters.Recoveries))
					c.stopProcess()
					return reasonInterrupted, ErrRecoveryCeiling
				}
				o.logger.Warn("ingest inactive past threshold, recovery restart",
					logging.Int("recoveries", c.counters.Recoveries))
				c.stopProcess()
				o.restartTranscoder(c)
			}
		}

		if !o.sleepFor(ctx, interval) {
			return reasonInterrupted, ctx.Err()
		}
	}
}

func (o *Orchestrator) logExit(c *cycle) {
	code := -1
	if c.proc != nil {
		code = c.proc.Poll().ExitCode
	}
	o.logger.Warn("transcoder exited",
		logging.Int(logging.FieldExitCode, code),
		logging.Int("consecutive", c.counters.ConsecutiveExits))
}

// restartTranscoder replaces the cycle's subprocess handle. Start failures
// leave the handle empty; the next tick observes it as an exit.
func (o *Orchestrator) restartTranscoder(c *cycle) {
	c.stopProcess()
	proc, err := o.start(o.argv)
	if err != nil {
		o.logger.Error("transcoder restart failed", logging.Error(err))
		return
	}
	c.proc = proc
	c.restarts++
	o.updateSnapshot(func(s *Snapshot) {
		s.PID = proc.PID()
		s.Restarts++
	})
	o.logger.Info("transcoder restarted", logging.Int(logging.FieldPID, proc.PID()))
}
