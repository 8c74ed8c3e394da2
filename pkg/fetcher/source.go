package fetcher

import (
	"context"
	"net/http"
	"net/url"
	"path"
	"strings"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/oneconcern/envboot/pkg/storage"
	"github.com/oneconcern/envboot/pkg/storage/gcs"
	"github.com/oneconcern/envboot/pkg/storage/httpstore"
	"github.com/oneconcern/envboot/pkg/storage/sthree"
	"go.uber.org/zap"
)

// SourceConfig holds the settings of the supported source backends
type SourceConfig struct {
	HTTPClient     *http.Client
	GCSCredentials string
	AWSConfig      *aws.Config
}

// ArchiveName derives the name of the archive file from the download URL
func ArchiveName(rawURL string) (string, error) {
	u, err := parseSourceURL(rawURL)
	if err != nil {
		return "", err
	}
	return path.Base(u.Path), nil
}

func parseSourceURL(rawURL string) (*url.URL, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, ErrInvalidSource.Wrap(err)
	}
	switch u.Scheme {
	case "http", "https", "gs", "s3":
	default:
		return nil, ErrInvalidSource.Wrapf("unsupported scheme %q in %q", u.Scheme, rawURL)
	}
	if u.Host == "" {
		return nil, ErrInvalidSource.Wrapf("missing host or bucket in %q", rawURL)
	}
	if base := path.Base(u.Path); base == "." || base == "/" || strings.HasSuffix(u.Path, "/") {
		return nil, ErrInvalidSource.Wrapf("no archive file name in %q", rawURL)
	}
	return u, nil
}

// OpenSource builds a read-only store for the download URL, and returns the key of the archive in this store.
//
// Supported schemes are http, https, gs (Google Cloud Storage) and s3 (AWS S3).
// No network call is made at this stage.
func OpenSource(ctx context.Context, rawURL string, cfg SourceConfig, logger *zap.Logger) (storage.Store, string, error) {
	u, err := parseSourceURL(rawURL)
	if err != nil {
		return nil, "", err
	}

	var (
		store storage.Store
		key   string
	)
	switch u.Scheme {
	case "gs":
		key = strings.TrimPrefix(u.Path, "/")
		store, err = gcs.New(ctx, u.Host, gcs.CredentialsFile(cfg.GCSCredentials), gcs.Logger(logger))
	case "s3":
		key = strings.TrimPrefix(u.Path, "/")
		opts := []sthree.Option{sthree.Logger(logger)}
		if cfg.AWSConfig != nil {
			opts = append(opts, sthree.AWSConfig(cfg.AWSConfig))
		}
		store, err = sthree.New(u.Host, opts...)
	default:
		dir, file := path.Split(u.Path)
		key = file
		if u.RawQuery != "" {
			key += "?" + u.RawQuery
		}
		base := url.URL{Scheme: u.Scheme, User: u.User, Host: u.Host, Path: dir}
		store, err = httpstore.New(base.String(), httpstore.HTTPClient(cfg.HTTPClient), httpstore.Logger(logger))
	}
	if err != nil {
		return nil, "", ErrInvalidSource.Wrap(err)
	}
	return store, key, nil
}
