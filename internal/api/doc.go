// Package api serves read-only orchestrator state over HTTP: a liveness
// probe, a JSON status snapshot, and Prometheus metrics on a private
// registry.
package api
