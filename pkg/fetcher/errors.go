package fetcher

import "github.com/oneconcern/envboot/pkg/errors"

var (
	// ErrDownload indicates a network failure while downloading the archive
	ErrDownload = errors.New("download failed")

	// ErrExtract indicates a corrupt or incomplete archive
	ErrExtract = errors.New("extraction failed")

	// ErrStaging indicates that the staging directory is missing
	ErrStaging = errors.New("staging directory unavailable")

	// ErrFilesystem indicates a failure on the local file system (permission denied, disk full...)
	ErrFilesystem = errors.New("filesystem error")

	// ErrInvalidSource indicates a malformed or unsupported download URL
	ErrInvalidSource = errors.New("invalid dataset source")
)
