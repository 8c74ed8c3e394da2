package gcs

import (
	"go.uber.org/zap"
	"google.golang.org/api/option"
)

// Option is a functor to pass optional parameters to the gcs store
type Option func(*gcs)

// Logger specifies a logger for this store
func Logger(logger *zap.Logger) Option {
	return func(g *gcs) {
		if logger != nil {
			g.l = logger
		}
	}
}

// CredentialsFile sets a service account key file to authenticate with.
// When empty, application default credentials are used.
func CredentialsFile(path string) Option {
	return func(g *gcs) {
		if path != "" {
			g.clientOptions = append(g.clientOptions, option.WithCredentialsFile(path))
		}
	}
}

// ClientOptions appends raw options to the google API client
func ClientOptions(opts ...option.ClientOption) Option {
	return func(g *gcs) {
		g.clientOptions = append(g.clientOptions, opts...)
	}
}
