package utils

import (
	"time"

	"github.com/rs/zerolog"
)

// Track starts timing operation and returns the function that stops it.
// Stopping logs the duration at debug level, or at warn level once it
// exceeds slow, and returns it.
//
// Usage:
//
//	defer utils.Track("universe_build", 30*time.Second, log)()
func Track(operation string, slow time.Duration, log zerolog.Logger) func() time.Duration {
	start := time.Now()
	return func() time.Duration {
		d := time.Since(start)
		event := log.Debug()
		if slow > 0 && d > slow {
			event = log.Warn()
		}
		event.
			Str("operation", operation).
			Dur("duration", d).
			Msg("Operation completed")
		return d
	}
}
