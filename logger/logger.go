package logger

// Logger provides a standardized logging interface for the kevwatch
// checker. It defines methods for different log levels (Debug, Info,
// Warn, Error) to enable consistent logging throughout the library.
// This interface allows users to plug in their preferred logging
// implementation (e.g., zap, logrus, standard log) or use the provided
// Noop logger to disable logging entirely.
//
// The logger is used throughout the checker for:
// - NVD request/response debugging
// - Retry attempt tracking
// - Throttle state transitions
// - Connection and transport issues
//
// Usage Example:
//
//	// Using with a custom logger implementation
//	checker := kevwatch.New(kevwatch.WithLogger(myLogger))
//
//	// Disable logging entirely
//	checker := kevwatch.New(kevwatch.WithLogger(&logger.Noop{}))
type Logger interface {
	Debugf(format string, args ...any)
	Infof(format string, args ...any)
	Warnf(format string, args ...any)
	Errorf(format string, args ...any)
}
