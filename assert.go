package eventrouter

import "fmt"

// assertf treats a contract violation as a programmer error: fatal, never
// recoverable in-library. Callers that can still usefully return an error
// to a caller (e.g. the config loader) should not use this; assertf is for
// the core dispatch
// path, where the only sane response to a violated invariant is to stop
// immediately, after telling the logger why.
func assertf(logger Logger, cond bool, err error, format string, args ...any) {
	if cond {
		return
	}
	if logger == nil {
		logger = noopLogger{}
	}
	logger.Error(fmt.Sprintf(format, args...), "error", err)
	panic(err)
}
