// Copyright © 2018 One Concern

// Package fetcher implements the dataset fetch step.
//
// The dataset root directory acts as a completion marker: when it exists, nothing is downloaded.
// Otherwise the archive is downloaded to the staging directory, extracted to the destination
// directory, then deleted.
package fetcher

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/oneconcern/envboot/pkg/archive"
	"github.com/oneconcern/envboot/pkg/errors"
	"github.com/oneconcern/envboot/pkg/storage"
	"github.com/oneconcern/envboot/pkg/storage/localfs"
	"github.com/spf13/afero"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

// Config of the dataset fetch step
type Config struct {
	// URL of the archive
	URL string

	// DataDir is the directory the archive is extracted to
	DataDir string

	// DatasetName is the top-level directory carried by the archive. DataDir/DatasetName is the dataset root.
	DatasetName string

	// StagingDir holds the archive while it is extracted. It must exist beforehand.
	StagingDir string

	// KeepArchiveOnFailure keeps the archive on disk when extraction fails.
	// By default the archive is deleted whatever the outcome of the extraction.
	KeepArchiveOnFailure bool
}

// Result of a fetch
type Result struct {
	// Skipped is true when the dataset root already existed
	Skipped         bool
	DatasetRoot     string
	Archive         string
	BytesDownloaded int64
	Extracted       archive.Stats
	ArchiveKept     bool
	Elapsed         time.Duration
}

// Fetcher runs the dataset fetch step
type Fetcher struct {
	cfg              Config
	archiveName      string
	fs               afero.Fs
	source           storage.Store
	sourceKey        string
	sources          SourceConfig
	out              io.Writer
	progressInterval time.Duration
	l                *zap.Logger
	last             Result
}

// New fetcher
func New(cfg Config, opts ...Option) (*Fetcher, error) {
	if cfg.DataDir == "" || cfg.DatasetName == "" || cfg.StagingDir == "" {
		return nil, ErrInvalidSource.Wrapf("data dir, dataset name and staging dir are required")
	}
	archiveName, err := ArchiveName(cfg.URL)
	if err != nil {
		return nil, err
	}

	f := &Fetcher{
		cfg:              cfg,
		archiveName:      archiveName,
		fs:               afero.NewOsFs(),
		out:              os.Stdout,
		progressInterval: DefaultProgressInterval,
		l:                zap.NewNop(),
	}
	for _, apply := range opts {
		apply(f)
	}
	return f, nil
}

// DatasetRoot is the directory which existence marks the dataset as fetched
func (f *Fetcher) DatasetRoot() string {
	return filepath.Join(f.cfg.DataDir, f.cfg.DatasetName)
}

// ArchivePath is the location of the archive in the staging directory
func (f *Fetcher) ArchivePath() string {
	return filepath.Join(f.cfg.StagingDir, f.archiveName)
}

// Name of the step
func (f *Fetcher) Name() string {
	return "fetch"
}

// Run the step
func (f *Fetcher) Run(ctx context.Context) error {
	res, err := f.Fetch(ctx)
	f.last = res
	return err
}

// LastResult returns the result of the latest call to Run
func (f *Fetcher) LastResult() Result {
	return f.last
}

// Fetch downloads and extracts the dataset, unless the dataset root already exists.
func (f *Fetcher) Fetch(ctx context.Context) (Result, error) {
	start := time.Now()
	res := Result{
		DatasetRoot: f.DatasetRoot(),
		Archive:     f.ArchivePath(),
	}
	logger := f.l.With(zap.String("dataset", res.DatasetRoot))

	exists, err := afero.DirExists(f.fs, res.DatasetRoot)
	if err != nil {
		return res, ErrFilesystem.Wrap(err)
	}
	if exists {
		logger.Info("dataset already present, skipping download")
		_, _ = fmt.Fprintf(f.out, "%s already exists, skipping download\n", res.DatasetRoot)
		res.Skipped = true
		res.Elapsed = time.Since(start)
		return res, nil
	}

	staging, err := f.stagingStore()
	if err != nil {
		return res, err
	}

	source, key, err := f.openSource(ctx)
	if err != nil {
		return res, err
	}

	logger.Info("downloading dataset archive", zap.String("source", source.String()), zap.String("key", key), zap.String("archive", res.Archive))
	res.BytesDownloaded, err = f.download(ctx, source, key, staging)
	if err != nil {
		// the staging store never leaves a partial archive behind
		return res, err
	}

	res.Extracted, err = f.extract(ctx, staging)
	if err != nil && f.cfg.KeepArchiveOnFailure {
		logger.Warn("extraction failed, keeping archive", zap.String("archive", res.Archive), zap.Error(err))
		res.ArchiveKept = true
		res.Elapsed = time.Since(start)
		return res, err
	}

	if derr := staging.Delete(context.Background(), f.archiveName); derr != nil {
		err = multierr.Append(err, ErrFilesystem.Wrap(derr))
	}
	res.Elapsed = time.Since(start)
	if err != nil {
		return res, err
	}

	switch created, err := afero.DirExists(f.fs, res.DatasetRoot); {
	case err != nil:
		logger.Warn("cannot check the dataset root after extraction", zap.Error(err))
	case !created:
		logger.Warn("archive did not create the dataset root: the next run will download it again")
	}
	logger.Info("dataset ready",
		zap.Int("files", res.Extracted.Files),
		zap.String("size", humanSize(res.Extracted.Bytes)),
		zap.Duration("elapsed", res.Elapsed),
	)
	return res, nil
}

func (f *Fetcher) stagingStore() (storage.Store, error) {
	ok, err := afero.DirExists(f.fs, f.cfg.StagingDir)
	if err != nil {
		return nil, ErrStaging.Wrap(err)
	}
	if !ok {
		return nil, ErrStaging.Wrapf("directory %q does not exist", f.cfg.StagingDir)
	}
	return storage.Instrument(f.l, localfs.New(afero.NewBasePathFs(f.fs, f.cfg.StagingDir))), nil
}

func (f *Fetcher) openSource(ctx context.Context) (storage.Store, string, error) {
	if f.source != nil {
		return storage.Instrument(f.l, f.source), f.sourceKey, nil
	}
	source, key, err := OpenSource(ctx, f.cfg.URL, f.sources, f.l)
	if err != nil {
		return nil, "", err
	}
	return storage.Instrument(f.l, source), key, nil
}

func (f *Fetcher) download(ctx context.Context, source storage.Store, key string, staging storage.Store) (int64, error) {
	total := int64(-1)
	if sizer, ok := source.(storage.Sizer); ok {
		if size, err := sizer.Size(ctx, key); err == nil {
			total = size
		}
	}

	tracker := &readTracker{}
	progress := newProgressReporter(f.l, total, f.progressInterval)
	n, err := storage.Copy(ctx, source, key, staging, f.archiveName, tracker.wrap, progress.wrap)
	progress.done(n)

	switch {
	case err == nil:
		return n, nil
	case ctx.Err() != nil:
		return n, ctx.Err()
	case tracker.reader != nil && tracker.err == nil:
		// the source was opened and read fine: writing to the staging directory failed
		return n, ErrFilesystem.Wrap(err)
	default:
		return n, ErrDownload.Wrap(err)
	}
}

func (f *Fetcher) extract(ctx context.Context, staging storage.Store) (archive.Stats, error) {
	rdr, err := staging.Get(ctx, f.archiveName)
	if err != nil {
		return archive.Stats{}, ErrFilesystem.Wrap(err)
	}
	defer func() {
		_ = rdr.Close()
	}()

	f.l.Info("extracting dataset archive", zap.String("archive", f.ArchivePath()), zap.String("destination", f.cfg.DataDir))
	stats, err := archive.Extract(ctx, f.fs, rdr, f.cfg.DataDir, archive.Logger(f.l))
	switch {
	case err == nil:
		return stats, nil
	case ctx.Err() != nil:
		return stats, ctx.Err()
	case errors.Is(err, archive.ErrWrite):
		return stats, ErrFilesystem.Wrap(err)
	default:
		return stats, ErrExtract.Wrap(err)
	}
}

// readTracker records errors raised while reading the source
type readTracker struct {
	reader io.Reader
	err    error
}

func (r *readTracker) wrap(rdr io.Reader) io.Reader {
	r.reader = rdr
	return r
}

func (r *readTracker) Read(p []byte) (int, error) {
	n, err := r.reader.Read(p)
	if err != nil && err != io.EOF {
		r.err = err
	}
	return n, err
}
