package broadcast

import "strings"

// Lifecycle represents a broadcast's forward-only lifecycle state.
type Lifecycle string

const (
	LifecycleCreated  Lifecycle = "created"
	LifecycleReady    Lifecycle = "ready"
	LifecycleTesting  Lifecycle = "testing"
	LifecycleLive     Lifecycle = "live"
	LifecycleComplete Lifecycle = "complete"
	LifecycleRevoked  Lifecycle = "revoked"
	// LifecycleUnknown covers remote values this version does not recognize.
	LifecycleUnknown Lifecycle = "unknown"
)

var lifecycleSet = map[Lifecycle]struct{}{
	LifecycleCreated:  {},
	LifecycleReady:    {},
	LifecycleTesting:  {},
	LifecycleLive:     {},
	LifecycleComplete: {},
	LifecycleRevoked:  {},
}

// ParseLifecycle maps a remote lifecycle string onto the closed enumeration.
// Unrecognized or empty values map to LifecycleUnknown.
func ParseLifecycle(value string) Lifecycle {
	lc := Lifecycle(strings.ToLower(strings.TrimSpace(value)))
	if _, ok := lifecycleSet[lc]; ok {
		return lc
	}
	return LifecycleUnknown
}

// reuseRank orders lifecycles for broadcast reuse. Zero means not reusable;
// complete and revoked broadcasts are never reused.
var reuseRank = map[Lifecycle]int{
	LifecycleLive:    4,
	LifecycleTesting: 3,
	LifecycleReady:   2,
	LifecycleCreated: 1,
}

// ReuseRank returns the reuse preference for a lifecycle, highest first.
// A rank of zero marks the broadcast as not reusable.
func ReuseRank(lc Lifecycle) int {
	return reuseRank[lc]
}

// Terminal reports whether a broadcast in this lifecycle can never
// return to serving a stream.
func (lc Lifecycle) Terminal() bool {
	return lc == LifecycleComplete || lc == LifecycleRevoked
}

// IngestStatus represents the remote ingest endpoint's stream status.
type IngestStatus string

const (
	IngestActive   IngestStatus = "active"
	IngestInactive IngestStatus = "inactive"
	IngestError    IngestStatus = "error"
	IngestUnknown  IngestStatus = "unknown"
)

// ParseIngestStatus maps a remote stream status string onto the closed
// enumeration. Unrecognized or missing values map to IngestUnknown.
func ParseIngestStatus(value string) IngestStatus {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "active":
		return IngestActive
	case "inactive":
		return IngestInactive
	case "error":
		return IngestError
	default:
		return IngestUnknown
	}
}

// IngestHealth is the remote platform's qualitative ingest health.
type IngestHealth string

const (
	HealthGood    IngestHealth = "good"
	HealthOK      IngestHealth = "ok"
	HealthBad     IngestHealth = "bad"
	HealthUnknown IngestHealth = "unknown"
)

// ParseIngestHealth maps a remote health string onto the closed enumeration.
func ParseIngestHealth(value string) IngestHealth {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "good":
		return HealthGood
	case "ok":
		return HealthOK
	case "bad":
		return HealthBad
	default:
		return HealthUnknown
	}
}

// Reusable describes an existing broadcast bound to an ingest endpoint that
// a new cycle may adopt instead of creating a fresh one.
type Reusable struct {
	ID        string
	Lifecycle Lifecycle
}
