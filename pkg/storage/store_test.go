package storage_test

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/oneconcern/envboot/pkg/storage"
	"github.com/oneconcern/envboot/pkg/storage/localfs"
	"github.com/oneconcern/envboot/pkg/storage/status"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestCopy(t *testing.T) {
	ctx := context.Background()
	source := localfs.New(afero.NewMemMapFs())
	destination := localfs.New(afero.NewMemMapFs())
	payload := strings.Repeat("0123456789", 1000)
	require.NoError(t, source.Put(ctx, "in/archive.tar", strings.NewReader(payload)))

	var wrapped int
	n, err := storage.Copy(ctx, source, "in/archive.tar", destination, "archive.tar", func(r io.Reader) io.Reader {
		wrapped++
		return r
	})
	require.NoError(t, err)
	assert.EqualValues(t, len(payload), n)
	assert.Equal(t, 1, wrapped)

	rdr, err := destination.Get(ctx, "archive.tar")
	require.NoError(t, err)
	defer rdr.Close()
	var buf bytes.Buffer
	_, err = io.Copy(&buf, rdr)
	require.NoError(t, err)
	assert.Equal(t, payload, buf.String())

	_, err = storage.Copy(ctx, source, "missing", destination, "other")
	require.Error(t, err)
	assert.True(t, storage.IsNotExist(err))
}

func TestInstrument(t *testing.T) {
	ctx := context.Background()
	core, logs := observer.New(zapcore.DebugLevel)
	store := storage.Instrument(zap.New(core), localfs.New(afero.NewMemMapFs()))

	require.NoError(t, store.Put(ctx, "a", strings.NewReader("abc")))
	has, err := store.Has(ctx, "a")
	require.NoError(t, err)
	assert.True(t, has)

	sizer, ok := store.(storage.Sizer)
	require.True(t, ok)
	size, err := sizer.Size(ctx, "a")
	require.NoError(t, err)
	assert.EqualValues(t, 3, size)

	_, err = store.Get(ctx, "b")
	assert.True(t, errors.Is(err, status.ErrNotExists))
	require.NoError(t, store.Delete(ctx, "a"))

	keys, err := store.Keys(ctx)
	require.NoError(t, err)
	assert.Empty(t, keys)

	assert.Equal(t, 1, logs.FilterMessage("storage put").Len())
	assert.Equal(t, 1, logs.FilterMessage("storage has").Len())
	assert.Equal(t, 1, logs.FilterMessage("storage delete").Len())
	failed := logs.FilterMessage("storage get").All()
	require.Len(t, failed, 1)
	assert.Contains(t, failed[0].ContextMap(), "error")
	assert.Equal(t, "localfs", store.String())
}
