package logging

// Standardized attribute keys used across the orchestrator.
const (
	FieldComponent   = "component"
	FieldCycleID     = "cycle_id"
	FieldBroadcastID = "broadcast_id"
	FieldIngestID    = "ingest_id"
	FieldLifecycle   = "lifecycle"
	FieldIngest      = "ingest_status"
	FieldHealth      = "ingest_health"
	FieldPID         = "pid"
	FieldExitCode    = "exit_code"
	FieldActivation  = "activation"
	FieldDeadline    = "deadline"
)
