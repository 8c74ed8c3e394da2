package httpstore

import (
	"fmt"
	"net/http"

	"github.com/oneconcern/envboot/pkg/storage/status"
)

func toSentinelErrors(resp *http.Response) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}
	err := fmt.Errorf("%s %s: %s", resp.Request.Method, resp.Request.URL, resp.Status)
	switch resp.StatusCode {
	case http.StatusNotFound, http.StatusGone:
		return status.ErrNotExists.Wrap(err)
	case http.StatusUnauthorized:
		return status.ErrUnauthorized.Wrap(err)
	case http.StatusForbidden:
		return status.ErrForbidden.Wrap(err)
	case http.StatusBadRequest:
		return status.ErrInvalidResource.Wrap(err)
	default:
		return status.ErrStorageAPI.Wrap(err)
	}
}
