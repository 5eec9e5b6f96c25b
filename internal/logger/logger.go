package logger

import (
	"os"
	"sync"

	"github.com/rs/zerolog"
)

var (
	defaultLogger zerolog.Logger
	once          sync.Once
)

// Init initializes the default logger writing human-readable lines to stderr.
// It ensures that the logger is initialized only once.
func Init() {
	once.Do(func() {
		defaultLogger = zerolog.New(zerolog.ConsoleWriter{
			Out:        os.Stderr,
			TimeFormat: "2006-01-02 15:04:05",
		}).Level(zerolog.InfoLevel).With().Timestamp().Logger()
	})
}

// Get returns the initialized default logger.
// It calls Init() to ensure the logger is ready before returning it.
func Get() zerolog.Logger {
	Init()
	return defaultLogger
}

// SetDebug switches the default logger to debug level.
func SetDebug() {
	Init()
	defaultLogger = defaultLogger.Level(zerolog.DebugLevel)
}

// Nop returns a disabled logger, handy for tests that inject a logger into
// component constructors.
func Nop() zerolog.Logger {
	return zerolog.Nop()
}

// For derives a component-scoped logger from the default one.
func For(component string) zerolog.Logger {
	return Get().With().Str("component", component).Logger()
}
