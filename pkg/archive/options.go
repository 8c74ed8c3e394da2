package archive

import "go.uber.org/zap"

// Option is a functor to tune the extraction
type Option func(*extractor)

// Logger specifies a logger for the extraction
func Logger(logger *zap.Logger) Option {
	return func(x *extractor) {
		if logger != nil {
			x.l = logger
		}
	}
}

// Progress registers a callback, invoked after each extracted entry with the running totals
func Progress(fn func(Stats)) Option {
	return func(x *extractor) {
		x.progress = fn
	}
}

// PreserveTimes restores the modification time recorded in the archive on extracted files.
// This is the default.
func PreserveTimes(enabled bool) Option {
	return func(x *extractor) {
		x.preserveTimes = enabled
	}
}
