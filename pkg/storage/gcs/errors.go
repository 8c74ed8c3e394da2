package gcs

import (
	"fmt"
	"net"
	"net/http"

	gcsStorage "cloud.google.com/go/storage"
	"github.com/oneconcern/envboot/pkg/errors"
	"github.com/oneconcern/envboot/pkg/storage/status"
	"google.golang.org/api/googleapi"
)

// readError tags an error raised while reading location (a gs:// URL)
// with the matching sentinel from the status package.
func readError(location string, err error) error {
	if err == nil {
		return nil
	}
	sentinel := classify(err)
	if sentinel == nil {
		return fmt.Errorf("%s: %w", location, err)
	}
	return sentinel.Wrapf("%s: %w", location, err)
}

func classify(err error) *errors.Error {
	if errors.Is(err, gcsStorage.ErrObjectNotExist) || errors.Is(err, gcsStorage.ErrBucketNotExist) {
		return status.ErrNotExists
	}
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		return byStatusCode(apiErr.Code)
	}
	// DNS, dial and TLS failures, as well as *url.Error from the transport
	var netErr net.Error
	if errors.As(err, &netErr) {
		return status.ErrUnreachable
	}
	return nil
}

func byStatusCode(code int) *errors.Error {
	switch {
	case code == http.StatusNotFound, code == http.StatusGone:
		return status.ErrNotExists
	case code == http.StatusUnauthorized:
		return status.ErrUnauthorized
	case code == http.StatusForbidden:
		// also returned for requester-pays buckets, which an anonymous reader cannot bill
		return status.ErrForbidden
	case code == http.StatusBadRequest:
		return status.ErrInvalidResource
	case code == http.StatusTooManyRequests, code >= http.StatusInternalServerError:
		return status.ErrUnreachable
	default:
		return status.ErrStorageAPI
	}
}
