// Package youtube implements the broadcast service against the
// YouTube Live Streaming API: OAuth credential handling, ingest and
// broadcast CRUD, lifecycle transitions, and stream key lookup.
package youtube
