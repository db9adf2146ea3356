// Package lockfile enforces single-instance execution against a state
// directory using a non-blocking exclusive file lock.
package lockfile
