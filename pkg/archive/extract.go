package archive

import (
	"archive/tar"
	"bufio"
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"github.com/oneconcern/envboot/pkg/errors"
	"github.com/spf13/afero"
	"go.uber.org/zap"
)

// Stats sums up what an extraction produced
type Stats struct {
	Files    int
	Dirs     int
	Symlinks int
	Links    int
	Skipped  int
	Bytes    int64
}

// Entries is the number of entries processed
func (s Stats) Entries() int {
	return s.Files + s.Dirs + s.Symlinks + s.Links + s.Skipped
}

// Compression of a tar stream
type Compression string

// Supported compressions
const (
	None Compression = "none"
	Gzip Compression = "gzip"
	Zstd Compression = "zstd"
)

var (
	gzipMagic = []byte{0x1f, 0x8b}
	zstdMagic = []byte{0x28, 0xb5, 0x2f, 0xfd}
)

// typeRegA is the legacy flag for regular files, still found in old archives
const typeRegA = '\x00'

type extractor struct {
	fs            afero.Fs
	dest          string
	l             *zap.Logger
	progress      func(Stats)
	preserveTimes bool
	stats         Stats
}

// Extract unpacks the tar stream read from src into the dest directory of fs.
//
// The destination directory is created when missing.
// Extraction stops at the first error: entries already written are left in place.
func Extract(ctx context.Context, fs afero.Fs, src io.Reader, dest string, opts ...Option) (Stats, error) {
	x := &extractor{
		fs:            fs,
		dest:          filepath.Clean(dest),
		l:             zap.NewNop(),
		preserveTimes: true,
	}
	for _, apply := range opts {
		apply(x)
	}

	rdr, compression, closer, err := decompress(src)
	if err != nil {
		return x.stats, err
	}
	defer closer()
	x.l.Debug("extracting archive", zap.String("destination", x.dest), zap.String("compression", string(compression)))

	if err = x.fs.MkdirAll(x.dest, 0755); err != nil {
		return x.stats, ErrWrite.Wrap(err)
	}

	tr := tar.NewReader(&ctxReader{ctx: ctx, reader: rdr})
	for {
		if err = ctx.Err(); err != nil {
			return x.stats, err
		}

		hdr, err := tr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return x.stats, x.readError(ctx, err)
		}

		if err = x.entry(ctx, tr, hdr); err != nil {
			return x.stats, err
		}
		if x.progress != nil {
			x.progress(x.stats)
		}
	}

	if x.stats.Entries() == 0 {
		return x.stats, ErrCorruptArchive.Wrapf("archive contains no entry")
	}
	return x.stats, nil
}

// DetectCompression tells how the stream starting with header is compressed
func DetectCompression(header []byte) Compression {
	switch {
	case bytes.HasPrefix(header, gzipMagic):
		return Gzip
	case bytes.HasPrefix(header, zstdMagic):
		return Zstd
	default:
		return None
	}
}

func decompress(src io.Reader) (io.Reader, Compression, func(), error) {
	buffered := bufio.NewReader(src)
	header, err := buffered.Peek(len(zstdMagic))
	if err != nil && err != io.EOF {
		return nil, None, nil, ErrCorruptArchive.Wrap(err)
	}

	compression := DetectCompression(header)
	switch compression {
	case Gzip:
		zr, err := gzip.NewReader(buffered)
		if err != nil {
			return nil, compression, nil, ErrCorruptArchive.Wrap(err)
		}
		return zr, compression, func() { _ = zr.Close() }, nil
	case Zstd:
		zr, err := zstd.NewReader(buffered)
		if err != nil {
			return nil, compression, nil, ErrCorruptArchive.Wrap(err)
		}
		return zr, compression, zr.Close, nil
	default:
		return buffered, compression, func() {}, nil
	}
}

func (x *extractor) readError(ctx context.Context, err error) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}
	return ErrCorruptArchive.Wrap(err)
}

// target resolves the path of an entry, which must remain under the destination
func (x *extractor) target(name string) (string, error) {
	// like tar, leading slashes are dropped
	clean := filepath.Clean(strings.TrimLeft(filepath.FromSlash(name), string(filepath.Separator)))
	if clean == ".." || strings.HasPrefix(clean, ".."+string(filepath.Separator)) {
		return "", ErrUnsafePath.Wrapf("entry %q", name)
	}
	return filepath.Join(x.dest, clean), nil
}

func (x *extractor) entry(ctx context.Context, tr *tar.Reader, hdr *tar.Header) error {
	target, err := x.target(hdr.Name)
	if err != nil {
		return err
	}

	switch hdr.Typeflag {
	case tar.TypeDir:
		if err := x.fs.MkdirAll(target, hdr.FileInfo().Mode().Perm()|0700); err != nil {
			return ErrWrite.Wrap(err)
		}
		x.stats.Dirs++

	case tar.TypeReg, typeRegA:
		n, err := x.writeFile(ctx, target, tr, hdr.FileInfo().Mode().Perm())
		if err != nil {
			return err
		}
		x.chtimes(target, hdr)
		x.stats.Files++
		x.stats.Bytes += n

	case tar.TypeSymlink:
		return x.symlink(target, hdr)

	case tar.TypeLink:
		return x.hardlink(ctx, target, hdr)

	default:
		x.l.Debug("skipping unsupported archive entry", zap.String("name", hdr.Name), zap.Int("type", int(hdr.Typeflag)))
		x.stats.Skipped++
	}
	return nil
}

func (x *extractor) writeFile(ctx context.Context, target string, src io.Reader, perm os.FileMode) (int64, error) {
	if err := x.fs.MkdirAll(filepath.Dir(target), 0755); err != nil {
		return 0, ErrWrite.Wrap(err)
	}
	f, err := x.fs.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, perm)
	if err != nil {
		return 0, ErrWrite.Wrap(err)
	}

	w := &trackedWriter{writer: f}
	n, err := io.Copy(w, src)
	if err != nil {
		_ = f.Close()
		switch {
		case ctx.Err() != nil:
			return n, ctx.Err()
		case w.err != nil:
			return n, ErrWrite.Wrap(w.err)
		default:
			return n, ErrCorruptArchive.Wrap(err)
		}
	}
	if err = f.Close(); err != nil {
		return n, ErrWrite.Wrap(err)
	}
	return n, nil
}

func (x *extractor) chtimes(target string, hdr *tar.Header) {
	if !x.preserveTimes || hdr.ModTime.IsZero() {
		return
	}
	atime := hdr.AccessTime
	if atime.IsZero() {
		atime = hdr.ModTime
	}
	if err := x.fs.Chtimes(target, atime, hdr.ModTime); err != nil {
		x.l.Debug("cannot restore modification time", zap.String("name", hdr.Name), zap.Error(err))
	}
}

func (x *extractor) symlink(target string, hdr *tar.Header) error {
	linkTarget := hdr.Linkname
	resolved := linkTarget
	if !filepath.IsAbs(resolved) {
		resolved = filepath.Join(filepath.Dir(target), resolved)
	}
	if !x.within(resolved) {
		return ErrUnsafePath.Wrapf("symlink %q points to %q", hdr.Name, linkTarget)
	}

	linker, ok := x.fs.(afero.Linker)
	if !ok {
		x.l.Warn("file system does not support symlinks, skipping entry", zap.String("name", hdr.Name))
		x.stats.Skipped++
		return nil
	}
	if err := x.fs.MkdirAll(filepath.Dir(target), 0755); err != nil {
		return ErrWrite.Wrap(err)
	}
	_ = x.fs.Remove(target)
	if err := linker.SymlinkIfPossible(linkTarget, target); err != nil {
		if errors.Is(err, afero.ErrNoSymlink) {
			x.l.Warn("file system does not support symlinks, skipping entry", zap.String("name", hdr.Name))
			x.stats.Skipped++
			return nil
		}
		return ErrWrite.Wrap(err)
	}
	x.stats.Symlinks++
	return nil
}

// hardlink entries are materialized as copies of an already extracted file
func (x *extractor) hardlink(ctx context.Context, target string, hdr *tar.Header) error {
	source, err := x.target(hdr.Linkname)
	if err != nil {
		return err
	}
	src, err := x.fs.Open(source)
	if err != nil {
		return ErrCorruptArchive.Wrapf("hard link %q to missing entry %q", hdr.Name, hdr.Linkname)
	}
	defer func() {
		_ = src.Close()
	}()

	info, err := src.Stat()
	if err != nil {
		return ErrWrite.Wrap(err)
	}
	n, err := x.writeFile(ctx, target, src, info.Mode().Perm())
	if err != nil {
		return err
	}
	x.stats.Links++
	x.stats.Bytes += n
	return nil
}

func (x *extractor) within(path string) bool {
	rel, err := filepath.Rel(x.dest, filepath.Clean(path))
	if err != nil {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

// trackedWriter tells apart failures on the destination from failures reading the archive
type trackedWriter struct {
	writer io.Writer
	err    error
}

func (t *trackedWriter) Write(p []byte) (int, error) {
	n, err := t.writer.Write(p)
	if err != nil {
		t.err = err
	}
	return n, err
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
