// Package logging provides a tiny abstraction over slog so downstream code can
// depend on a minimal interface (Logger) while allowing users to plug any
// structured logger. All engine components accept a Logger and fall back to
// NoOpLogger when none is configured.
package logging
