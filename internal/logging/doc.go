// Package logging builds the slog logger used by the orchestrator and CLI.
//
// Two output formats are supported: a console handler producing
// "TIME LEVEL component: message key=value" lines for interactive use and
// journald, and a JSON handler for log shippers. The attrs facade keeps
// call sites on one import and the Field constants keep attribute names
// consistent across components.
package logging
