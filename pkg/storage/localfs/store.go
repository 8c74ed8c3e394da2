// Copyright © 2018 One Concern

// Package localfs implements a storage.Store on top of an afero file system.
//
// It is used as the staging area for downloaded archives.
package localfs

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/oneconcern/envboot/pkg/storage"
	"github.com/oneconcern/envboot/pkg/storage/status"
	"github.com/spf13/afero"
)

// partSuffix marks objects being written. Such objects are never listed.
const partSuffix = ".part"

// New creates a new local file system backed store.
//
// Objects written with Put are first staged under a temporary name, then renamed into place:
// a reader never sees a partially written object under its final key.
func New(fs afero.Fs) storage.Store {
	if fs == nil {
		fs = afero.NewOsFs()
	}
	return &localFS{
		fs: fs,
	}
}

type localFS struct {
	fs afero.Fs
}

func (l *localFS) Has(_ context.Context, key string) (bool, error) {
	fi, err := l.fs.Stat(key)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, err
	}

	return !fi.IsDir(), nil
}

func (l *localFS) Size(_ context.Context, key string) (int64, error) {
	fi, err := l.fs.Stat(key)
	if err != nil {
		if os.IsNotExist(err) {
			return -1, status.ErrNotExists.Wrap(err)
		}
		return -1, err
	}
	return fi.Size(), nil
}

func (l *localFS) Get(ctx context.Context, key string) (io.ReadCloser, error) {
	has, err := l.Has(ctx, key)
	if err != nil {
		return nil, err
	}
	if !has {
		return nil, status.ErrNotExists.Wrapf("key %q", key)
	}
	return l.fs.Open(key)
}

func (l *localFS) Put(ctx context.Context, key string, source io.Reader) error {
	if strings.HasSuffix(key, partSuffix) {
		return status.ErrInvalidResource.Wrapf("key %q conflicts with the staging suffix %q", key, partSuffix)
	}
	if dir := filepath.Dir(key); dir != "." {
		if err := l.fs.MkdirAll(dir, 0700); err != nil {
			return fmt.Errorf("ensuring directories for %q: %w", key, err)
		}
	}

	part := key + partSuffix
	target, err := l.fs.OpenFile(part, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return fmt.Errorf("create record for %q: %w", key, err)
	}

	if _, err = io.Copy(target, &ctxReader{ctx: ctx, reader: source}); err != nil {
		_ = target.Close()
		_ = l.fs.Remove(part)
		return fmt.Errorf("write record for %q: %w", key, err)
	}
	if err = target.Close(); err != nil {
		_ = l.fs.Remove(part)
		return fmt.Errorf("close record for %q: %w", key, err)
	}

	return l.fs.Rename(part, key)
}

func (l *localFS) Delete(_ context.Context, key string) error {
	if err := l.fs.Remove(key); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("removing %q: %w", key, err)
	}
	return nil
}

func (l *localFS) Keys(_ context.Context) ([]string, error) {
	const root = "."
	var res []string
	e := afero.Walk(l.fs, root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if path == root || info.IsDir() || strings.HasSuffix(path, partSuffix) {
			return nil
		}
		res = append(res, path)
		return nil
	})
	if e != nil {
		return nil, e
	}
	return res, nil
}

func (l *localFS) String() string {
	const localfs = "localfs"
	switch fs := l.fs.(type) {
	case *afero.BasePathFs:
		pp, err := fs.RealPath("")
		if err != nil {
			return localfs
		}
		return localfs + "@" + pp
	default:
		return localfs
	}
}

// ctxReader stops reading as soon as the context is done
type ctxReader struct {
	ctx    context.Context
	reader io.Reader
}

func (r *ctxReader) Read(p []byte) (int, error) {
	if err := r.ctx.Err(); err != nil {
		return 0, err
	}
	return r.reader.Read(p)
}
