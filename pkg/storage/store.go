// Copyright © 2018 One Concern

package storage

import (
	"context"
	"io"

	"github.com/oneconcern/envboot/pkg/errors"
	"github.com/oneconcern/envboot/pkg/storage/status"
)

// Store implementations know how to read and write objects identified by a key.
//
// Typically this is something file system-like. Examples are S3, GCS, a web server or the local FS.
// Read-only implementations return status.ErrNotSupported on Put and Delete.
type Store interface {
	String() string
	Has(context.Context, string) (bool, error)
	Get(context.Context, string) (io.ReadCloser, error)
	Put(context.Context, string, io.Reader) error
	Delete(context.Context, string) error
	Keys(context.Context) ([]string, error)
}

// Sizer is implemented by stores which are able to tell the size of an object
// before reading it. It returns -1 when the size is unknown.
type Sizer interface {
	Size(context.Context, string) (int64, error)
}

// Copy streams the object at source from sStore to the destination key in dStore.
//
// The object is never fully loaded in memory. Copy returns the number of bytes read from the source.
func Copy(ctx context.Context, sStore Store, source string, dStore Store, destination string, wrappers ...func(io.Reader) io.Reader) (int64, error) {
	reader, err := sStore.Get(ctx, source)
	if err != nil {
		return 0, err
	}
	defer func() {
		_ = reader.Close()
	}()

	counter := &countingReader{reader: reader}
	var rdr io.Reader = counter
	for _, wrap := range wrappers {
		rdr = wrap(rdr)
	}
	err = dStore.Put(ctx, destination, rdr)
	return counter.n, err
}

type countingReader struct {
	reader io.Reader
	n      int64
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.reader.Read(p)
	c.n += int64(n)
	return n, err
}

// IsNotExist tells if the error indicates a missing object
func IsNotExist(err error) bool {
	return errors.Is(err, status.ErrNotExists)
}
