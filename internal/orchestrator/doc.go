// Package orchestrator contains the control core: it plans broadcast
// slots, reconciles remote broadcast lifecycle against confirmed ingest,
// supervises the transcoder through a steady-state health loop, and
// rotates broadcasts on schedule, indefinitely.
package orchestrator
