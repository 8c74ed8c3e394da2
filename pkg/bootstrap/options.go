package bootstrap

import "go.uber.org/zap"

// Option is a functor to configure the bootstrapper
type Option func(*Bootstrapper)

// FailFast stops at the first failing step. Steps which did not start are reported as not run.
// In parallel mode, the first failure cancels the context of the other steps.
func FailFast(enabled bool) Option {
	return func(b *Bootstrapper) {
		b.failFast = enabled
	}
}

// Parallel runs all steps concurrently
func Parallel(enabled bool) Option {
	return func(b *Bootstrapper) {
		b.parallel = enabled
	}
}

// Skip disables the steps with the given names. They are reported as skipped.
func Skip(names ...string) Option {
	return func(b *Bootstrapper) {
		for _, name := range names {
			b.skip[name] = struct{}{}
		}
	}
}

// Logger specifies a logger for the bootstrapper
func Logger(logger *zap.Logger) Option {
	return func(b *Bootstrapper) {
		if logger != nil {
			b.l = logger
		}
	}
}
