package eventrouter

// Logger defines the interface the router uses to report diagnostic
// information: contract violations before they panic, and non-fatal
// conditions such as a failed Observer notification.
//
// The variadic key-value signature mirrors the convention used throughout
// the modular application family this router was extracted from, so any
// slog, zap, or logrus adapter already written for that convention works
// here unchanged.
//
// Example implementation using Go's standard log/slog:
//
//	type SlogLogger struct{ logger *slog.Logger }
//
//	func (l *SlogLogger) Error(msg string, args ...any) { l.logger.Error(msg, args...) }
type Logger interface {
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
	Debug(msg string, args ...any)
}

// noopLogger discards everything. Installed when a router is constructed
// with a nil Logger so call sites never need a nil check.
type noopLogger struct{}

func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}
func (noopLogger) Debug(string, ...any) {}
