package archive

import "github.com/oneconcern/envboot/pkg/errors"

var (
	// ErrCorruptArchive indicates a truncated, empty or otherwise unreadable archive
	ErrCorruptArchive = errors.New("corrupt archive")

	// ErrUnsafePath indicates an archive entry pointing outside of the destination directory
	ErrUnsafePath = errors.New("unsafe path in archive")

	// ErrWrite indicates a failure to write an extracted entry to the destination file system
	ErrWrite = errors.New("cannot write extracted entry")
)
