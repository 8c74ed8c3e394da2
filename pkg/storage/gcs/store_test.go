package gcs

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"testing"

	gcsStorage "cloud.google.com/go/storage"
	"github.com/oneconcern/envboot/pkg/storage/status"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
)

func TestNew(t *testing.T) {
	_, err := New(context.Background(), "")
	require.Error(t, err)
	assert.True(t, errors.Is(err, status.ErrInvalidResource))

	store, err := New(context.Background(), "places365", ClientOptions(option.WithoutAuthentication()))
	require.NoError(t, err)
	assert.Equal(t, "gs://places365", store.String())

	ctx := context.Background()
	assert.True(t, errors.Is(store.Put(ctx, "k", nil), status.ErrNotSupported))
	assert.True(t, errors.Is(store.Delete(ctx, "k"), status.ErrNotSupported))
}

func TestReadError(t *testing.T) {
	const location = "gs://places365/places365standard_easyformat.tar"
	require.NoError(t, readError(location, nil))

	for _, toPin := range []struct {
		name     string
		err      error
		expected error
	}{
		{name: "object", err: gcsStorage.ErrObjectNotExist, expected: status.ErrNotExists},
		{name: "bucket", err: fmt.Errorf("wrapped: %w", gcsStorage.ErrBucketNotExist), expected: status.ErrNotExists},
		{name: "gone", err: &googleapi.Error{Code: 410}, expected: status.ErrNotExists},
		{name: "unauthorized", err: &googleapi.Error{Code: 401}, expected: status.ErrUnauthorized},
		{name: "requester pays", err: &googleapi.Error{Code: 403, Message: "Bucket is a requester pays bucket"}, expected: status.ErrForbidden},
		{name: "bad bucket name", err: &googleapi.Error{Code: 400}, expected: status.ErrInvalidResource},
		{name: "rate limited", err: &googleapi.Error{Code: 429}, expected: status.ErrUnreachable},
		{name: "backend", err: &googleapi.Error{Code: 503}, expected: status.ErrUnreachable},
		{name: "conflict", err: &googleapi.Error{Code: 409}, expected: status.ErrStorageAPI},
		{name: "transport", err: &url.Error{Op: "Get", URL: "https://storage.googleapis.com", Err: errors.New("connection refused")}, expected: status.ErrUnreachable},
	} {
		fixture := toPin
		t.Run(fixture.name, func(t *testing.T) {
			err := readError(location, fixture.err)
			require.Error(t, err)
			assert.True(t, errors.Is(err, fixture.expected))
			assert.True(t, errors.Is(err, fixture.err))
			assert.Contains(t, err.Error(), location)
		})
	}

	plain := errors.New("plain")
	err := readError(location, plain)
	assert.True(t, errors.Is(err, plain))
	assert.False(t, errors.Is(err, status.ErrStorageAPI))
	assert.Equal(t, location+": plain", err.Error())
}
