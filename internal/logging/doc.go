// Package logging builds the slog loggers used by the command-line tool and
// carries them through a context.Context.
package logging
