// Copyright © 2018 One Concern

/*
Package archive extracts tar archives onto an afero file system.

Plain, gzip and zstd compressed tarballs are supported; the compression is
detected from the first bytes of the stream, not from the file name.

Entries which would land outside of the destination directory are rejected.
*/
package archive
