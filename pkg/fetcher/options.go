package fetcher

import (
	"io"
	"net/http"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/oneconcern/envboot/pkg/storage"
	"github.com/spf13/afero"
	"go.uber.org/zap"
)

// DefaultProgressInterval is the default period between two download progress reports
const DefaultProgressInterval = 5 * time.Second

// Option is a functor to configure the fetcher
type Option func(*Fetcher)

// FS sets the file system holding the staging and destination directories. Defaults to the OS file system.
func FS(fs afero.Fs) Option {
	return func(f *Fetcher) {
		if fs != nil {
			f.fs = fs
		}
	}
}

// Source bypasses the resolution of the download URL and reads the archive from store, under key
func Source(store storage.Store, key string) Option {
	return func(f *Fetcher) {
		f.source = store
		f.sourceKey = key
	}
}

// HTTPClient sets the client used for http and https URLs
func HTTPClient(client *http.Client) Option {
	return func(f *Fetcher) {
		f.sources.HTTPClient = client
	}
}

// GCSCredentials sets a service account key file used for gs:// URLs
func GCSCredentials(path string) Option {
	return func(f *Fetcher) {
		f.sources.GCSCredentials = path
	}
}

// AWSConfig sets the AWS configuration used for s3:// URLs
func AWSConfig(cfg *aws.Config) Option {
	return func(f *Fetcher) {
		f.sources.AWSConfig = cfg
	}
}

// Output sets where the skip message is printed. Defaults to os.Stdout.
func Output(w io.Writer) Option {
	return func(f *Fetcher) {
		if w != nil {
			f.out = w
		}
	}
}

// Logger specifies a logger for the fetcher
func Logger(logger *zap.Logger) Option {
	return func(f *Fetcher) {
		if logger != nil {
			f.l = logger
		}
	}
}

// ProgressInterval sets the period between two download progress reports. Zero disables reports.
func ProgressInterval(d time.Duration) Option {
	return func(f *Fetcher) {
		f.progressInterval = d
	}
}
