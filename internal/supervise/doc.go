// Package supervise owns the transcoder subprocess lifecycle: start in a
// dedicated process group, non-blocking liveness polling, and graceful
// stop with bounded escalation to a kill signal.
//
// Each start creates a fresh timestamped log file with stdout and stderr
// merged, so one transcoder run maps to one log file. The process-group
// signaling is implemented per platform.
package supervise
