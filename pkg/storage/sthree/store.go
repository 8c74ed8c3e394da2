// Package sthree implements a read-only storage.Store on an AWS S3 bucket.
package sthree

import (
	"context"
	"io"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/oneconcern/envboot/pkg/storage"
	"github.com/oneconcern/envboot/pkg/storage/status"
	"go.uber.org/zap"
)

// Option is a functor to pass optional parameters to the s3 store
type Option func(*s3FS)

// AWSConfig overrides the default session configuration (region, endpoint, credentials...)
func AWSConfig(cfg *aws.Config) Option {
	return func(fs *s3FS) {
		fs.awsConfig = cfg
	}
}

// Logger specifies a logger for this store
func Logger(logger *zap.Logger) Option {
	return func(fs *s3FS) {
		if logger != nil {
			fs.l = logger
		}
	}
}

// New builds a read-only store for a bucket
func New(bucket string, options ...Option) (storage.Store, error) {
	if bucket == "" {
		return nil, status.ErrInvalidResource.Wrapf("empty bucket name")
	}
	fs := &s3FS{
		bucket:    bucket,
		awsConfig: aws.NewConfig(),
		l:         zap.NewNop(),
	}
	for _, apply := range options {
		apply(fs)
	}

	sess, err := session.NewSession(fs.awsConfig)
	if err != nil {
		return nil, status.ErrStorageAPI.Wrap(err)
	}
	fs.s3 = s3.New(sess)
	return fs, nil
}

type s3FS struct {
	bucket    string
	awsConfig *aws.Config
	s3        *s3.S3
	l         *zap.Logger
}

func (s *s3FS) String() string {
	return "s3://" + s.bucket
}

func (s *s3FS) head(ctx context.Context, key string) (*s3.HeadObjectOutput, error) {
	out, err := s.s3.HeadObjectWithContext(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, toSentinelErrors(err)
	}
	return out, nil
}

func (s *s3FS) Has(ctx context.Context, key string) (bool, error) {
	_, err := s.head(ctx, key)
	if err != nil {
		if storage.IsNotExist(err) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func (s *s3FS) Size(ctx context.Context, key string) (int64, error) {
	out, err := s.head(ctx, key)
	if err != nil {
		return -1, err
	}
	if out.ContentLength == nil {
		return -1, nil
	}
	return aws.Int64Value(out.ContentLength), nil
}

func (s *s3FS) Get(ctx context.Context, key string) (io.ReadCloser, error) {
	s.l.Debug("s3 get", zap.String("bucket", s.bucket), zap.String("key", key))
	obj, err := s.s3.GetObjectWithContext(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, toSentinelErrors(err)
	}
	return obj.Body, nil
}

func (s *s3FS) Put(context.Context, string, io.Reader) error {
	return status.ErrNotSupported.Wrapf("put on read-only store %s", s)
}

func (s *s3FS) Delete(context.Context, string) error {
	return status.ErrNotSupported.Wrapf("delete on read-only store %s", s)
}

func (s *s3FS) Keys(ctx context.Context) ([]string, error) {
	var keys []string
	eachPage := func(page *s3.ListObjectsV2Output, more bool) bool {
		for _, obj := range page.Contents {
			if key := aws.StringValue(obj.Key); key != "" {
				keys = append(keys, key)
			}
		}
		return more
	}
	params := &s3.ListObjectsV2Input{Bucket: aws.String(s.bucket)}

	if err := s.s3.ListObjectsV2PagesWithContext(ctx, params, eachPage); err != nil {
		return nil, toSentinelErrors(err)
	}
	return keys, nil
}
