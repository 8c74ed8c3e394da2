// Copyright © 2018 One Concern

package storage

import (
	"context"
	"io"
	"time"

	"go.uber.org/zap"
)

// Instrument decorates a store with debug logging of every call
func Instrument(logger *zap.Logger, store Store) Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &instrumentedStore{
		store: store,
		l:     logger.With(zap.String("store", store.String())),
	}
}

type instrumentedStore struct {
	store Store
	l     *zap.Logger
}

func (i *instrumentedStore) done(op, key string, start time.Time, err error) {
	fields := []zap.Field{zap.String("key", key), zap.Duration("elapsed", time.Since(start))}
	if err != nil {
		fields = append(fields, zap.Error(err))
	}
	i.l.Debug("storage "+op, fields...)
}

func (i *instrumentedStore) Has(ctx context.Context, key string) (bool, error) {
	start := time.Now()
	has, err := i.store.Has(ctx, key)
	i.done("has", key, start, err)
	return has, err
}

func (i *instrumentedStore) Get(ctx context.Context, key string) (io.ReadCloser, error) {
	start := time.Now()
	rdr, err := i.store.Get(ctx, key)
	i.done("get", key, start, err)
	return rdr, err
}

func (i *instrumentedStore) Put(ctx context.Context, key string, source io.Reader) error {
	start := time.Now()
	err := i.store.Put(ctx, key, source)
	i.done("put", key, start, err)
	return err
}

func (i *instrumentedStore) Delete(ctx context.Context, key string) error {
	start := time.Now()
	err := i.store.Delete(ctx, key)
	i.done("delete", key, start, err)
	return err
}

func (i *instrumentedStore) Keys(ctx context.Context) ([]string, error) {
	start := time.Now()
	keys, err := i.store.Keys(ctx)
	i.done("keys", "", start, err)
	return keys, err
}

// Size delegates to the decorated store when it knows object sizes
func (i *instrumentedStore) Size(ctx context.Context, key string) (int64, error) {
	sizer, ok := i.store.(Sizer)
	if !ok {
		return -1, nil
	}
	return sizer.Size(ctx, key)
}

func (i *instrumentedStore) String() string {
	return i.store.String()
}
