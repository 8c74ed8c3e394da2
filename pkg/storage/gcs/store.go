// Copyright © 2018 One Concern

// Package gcs implements a read-only storage.Store on a Google Cloud Storage bucket.
package gcs

import (
	"context"
	"errors"
	"io"

	gcsStorage "cloud.google.com/go/storage"
	"github.com/oneconcern/envboot/pkg/storage"
	"github.com/oneconcern/envboot/pkg/storage/status"
	"go.uber.org/zap"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"
)

type gcs struct {
	readOnlyClient *gcsStorage.Client
	bucket         string
	clientOptions  []option.ClientOption
	l              *zap.Logger
}

// New builds a read-only store for a bucket
func New(ctx context.Context, bucket string, opts ...Option) (storage.Store, error) {
	if bucket == "" {
		return nil, status.ErrInvalidResource.Wrapf("empty bucket name")
	}
	googleStore := &gcs{
		bucket: bucket,
		l:      zap.NewNop(),
	}
	for _, apply := range opts {
		apply(googleStore)
	}

	var err error
	clientOptions := append([]option.ClientOption{option.WithScopes(gcsStorage.ScopeReadOnly)}, googleStore.clientOptions...)
	googleStore.readOnlyClient, err = gcsStorage.NewClient(ctx, clientOptions...)
	if err != nil {
		return nil, readError(googleStore.String(), err)
	}
	return googleStore, nil
}

func (g *gcs) String() string {
	return "gs://" + g.bucket
}

func (g *gcs) location(objectName string) string {
	return g.String() + "/" + objectName
}

func (g *gcs) Has(ctx context.Context, objectName string) (bool, error) {
	_, err := g.readOnlyClient.Bucket(g.bucket).Object(objectName).Attrs(ctx)
	if err != nil {
		if errors.Is(err, gcsStorage.ErrObjectNotExist) {
			return false, nil
		}
		return false, readError(g.location(objectName), err)
	}
	return true, nil
}

func (g *gcs) Size(ctx context.Context, objectName string) (int64, error) {
	attrs, err := g.readOnlyClient.Bucket(g.bucket).Object(objectName).Attrs(ctx)
	if err != nil {
		return -1, readError(g.location(objectName), err)
	}
	return attrs.Size, nil
}

func (g *gcs) Get(ctx context.Context, objectName string) (io.ReadCloser, error) {
	g.l.Debug("gcs get", zap.String("bucket", g.bucket), zap.String("object", objectName))
	objectReader, err := g.readOnlyClient.Bucket(g.bucket).Object(objectName).NewReader(ctx)
	if err != nil {
		return nil, readError(g.location(objectName), err)
	}
	return objectReader, nil
}

func (g *gcs) Put(context.Context, string, io.Reader) error {
	return status.ErrNotSupported.Wrapf("put on read-only store %s", g)
}

func (g *gcs) Delete(context.Context, string) error {
	return status.ErrNotSupported.Wrapf("delete on read-only store %s", g)
}

func (g *gcs) Keys(ctx context.Context) ([]string, error) {
	var keys []string
	objectsIterator := g.readOnlyClient.Bucket(g.bucket).Objects(ctx, nil)
	for {
		attrs, err := objectsIterator.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, readError(g.String(), err)
		}
		keys = append(keys, attrs.Name)
	}
	return keys, nil
}
