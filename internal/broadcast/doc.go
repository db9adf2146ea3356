// Package broadcast defines the domain model for the remote streaming
// platform: closed lifecycle and ingest-status enumerations with an explicit
// unknown variant, and the Service contract the orchestrator drives.
//
// Remote state arrives as free-form strings; the Parse helpers are the only
// place those strings are interpreted, so the core never branches on raw
// platform values.
package broadcast
