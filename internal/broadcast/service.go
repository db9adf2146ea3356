package broadcast

import "context"

// Service is the remote broadcast-platform contract the orchestrator
// consumes. All calls are synchronous; any call may fail with a generic
// remote error, which callers recover from locally.
type Service interface {
	// EnsureIngest returns the ingest (stream) id to use. When id is
	// non-empty it is returned as-is; otherwise a new reusable ingest
	// endpoint is created on the platform.
	EnsureIngest(ctx context.Context, id string) (string, error)

	// CreateBroadcast schedules a new broadcast and returns its id.
	// startTime is RFC 3339.
	CreateBroadcast(ctx context.Context, title, startTime string) (string, error)

	// BindBroadcast binds a broadcast to an ingest endpoint.
	BindBroadcast(ctx context.Context, broadcastID, ingestID string) error

	// TransitionBroadcast advances a broadcast's lifecycle. Target must be
	// testing, live, or complete; the platform rejects backward moves.
	TransitionBroadcast(ctx context.Context, broadcastID string, target Lifecycle) error

	// IngestStatus reports the ingest endpoint's stream status and health.
	IngestStatus(ctx context.Context, ingestID string) (IngestStatus, IngestHealth, error)

	// BroadcastLifecycle reports a broadcast's current lifecycle.
	BroadcastLifecycle(ctx context.Context, broadcastID string) (Lifecycle, error)

	// FindReusableBroadcast returns the best existing broadcast bound to
	// ingestID, preferring live > testing > ready > created and ignoring
	// terminal lifecycles. Returns nil when none qualifies.
	FindReusableBroadcast(ctx context.Context, ingestID string) (*Reusable, error)

	// IngestKey returns the stream key registered for an ingest endpoint,
	// or empty when the endpoint does not exist.
	IngestKey(ctx context.Context, ingestID string) (string, error)

	// FindIngestByKey returns the id of the ingest endpoint whose
	// registered key matches, or empty when no endpoint matches.
	FindIngestByKey(ctx context.Context, key string) (string, error)

	// UpdateBroadcastSchedule rewrites a broadcast's title and scheduled
	// start time. startTime is RFC 3339.
	UpdateBroadcastSchedule(ctx context.Context, broadcastID, title, startTime string) error
}
