package sthree

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/oneconcern/envboot/pkg/storage"
	"github.com/oneconcern/envboot/pkg/storage/status"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const payload = "some archive bytes"

func fakeS3(t testing.TB) *httptest.Server {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/datasets/places.tar":
			w.Header().Set("Content-Length", "18")
			if r.Method == http.MethodGet {
				_, _ = io.WriteString(w, payload)
			}
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func testStore(t testing.TB, endpoint string) storage.Store {
	cfg := aws.NewConfig().
		WithEndpoint(endpoint).
		WithRegion("us-east-1").
		WithS3ForcePathStyle(true).
		WithMaxRetries(0).
		WithCredentials(credentials.NewStaticCredentials("id", "secret", ""))

	store, err := New("datasets", AWSConfig(cfg))
	require.NoError(t, err)
	return store
}

func TestGet(t *testing.T) {
	srv := fakeS3(t)
	store := testStore(t, srv.URL)
	ctx := context.Background()

	assert.Equal(t, "s3://datasets", store.String())

	rdr, err := store.Get(ctx, "places.tar")
	require.NoError(t, err)
	b, err := io.ReadAll(rdr)
	require.NoError(t, err)
	require.NoError(t, rdr.Close())
	assert.Equal(t, payload, string(b))

	has, err := store.Has(ctx, "places.tar")
	require.NoError(t, err)
	assert.True(t, has)

	has, err = store.Has(ctx, "missing.tar")
	require.NoError(t, err)
	assert.False(t, has)

	size, err := store.(storage.Sizer).Size(ctx, "places.tar")
	require.NoError(t, err)
	assert.EqualValues(t, len(payload), size)
}

func TestReadOnly(t *testing.T) {
	store := testStore(t, "http://127.0.0.1:1")
	ctx := context.Background()

	assert.True(t, errors.Is(store.Put(ctx, "k", nil), status.ErrNotSupported))
	assert.True(t, errors.Is(store.Delete(ctx, "k"), status.ErrNotSupported))

	_, err := New("")
	assert.True(t, errors.Is(err, status.ErrInvalidResource))
}
