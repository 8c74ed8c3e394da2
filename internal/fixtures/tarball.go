// Package fixtures builds archives used by tests.
package fixtures

import (
	"archive/tar"
	"bytes"
	"fmt"
	"path"
	"testing"
	"time"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"github.com/stretchr/testify/require"
)

// Entry of a test tarball
type Entry struct {
	Name     string
	Body     []byte
	Mode     int64
	Type     byte
	Linkname string
}

// Dir entry
func Dir(name string) Entry {
	return Entry{Name: name, Type: tar.TypeDir, Mode: 0755}
}

// File entry
func File(name string, body []byte) Entry {
	return Entry{Name: name, Body: body, Type: tar.TypeReg, Mode: 0644}
}

// Symlink entry
func Symlink(name, target string) Entry {
	return Entry{Name: name, Type: tar.TypeSymlink, Linkname: target, Mode: 0777}
}

// Hardlink entry
func Hardlink(name, target string) Entry {
	return Entry{Name: name, Type: tar.TypeLink, Linkname: target, Mode: 0644}
}

// Compression applied to a test tarball
type Compression int

// Supported compressions
const (
	Plain Compression = iota
	Gzip
	Zstd
)

// ModTime is the modification time recorded for every entry
var ModTime = time.Date(2019, 10, 15, 12, 0, 0, 0, time.UTC)

// Tarball packs entries in a tar stream
func Tarball(t testing.TB, compression Compression, entries ...Entry) []byte {
	t.Helper()

	var raw bytes.Buffer
	tw := tar.NewWriter(&raw)
	for _, e := range entries {
		hdr := &tar.Header{
			Name:     e.Name,
			Typeflag: e.Type,
			Mode:     e.Mode,
			Linkname: e.Linkname,
			ModTime:  ModTime,
		}
		if e.Type == tar.TypeReg {
			hdr.Size = int64(len(e.Body))
		}
		require.NoError(t, tw.WriteHeader(hdr))
		if e.Type == tar.TypeReg {
			_, err := tw.Write(e.Body)
			require.NoError(t, err)
		}
	}
	require.NoError(t, tw.Close())

	switch compression {
	case Gzip:
		var buf bytes.Buffer
		zw := gzip.NewWriter(&buf)
		_, err := zw.Write(raw.Bytes())
		require.NoError(t, err)
		require.NoError(t, zw.Close())
		return buf.Bytes()
	case Zstd:
		var buf bytes.Buffer
		zw, err := zstd.NewWriter(&buf)
		require.NoError(t, err)
		_, err = zw.Write(raw.Bytes())
		require.NoError(t, err)
		require.NoError(t, zw.Close())
		return buf.Bytes()
	default:
		return raw.Bytes()
	}
}

// DatasetTree lays out an image classification dataset named root, with train and val splits
// holding one subdirectory per class, each with perClass random "images" of size bytes.
func DatasetTree(root string, classes, perClass, size int) []Entry {
	entries := []Entry{Dir(root + "/")}
	for _, split := range []string{"train", "val"} {
		entries = append(entries, Dir(path.Join(root, split)+"/"))
		for c := 0; c < classes; c++ {
			class := path.Join(root, split, fmt.Sprintf("class_%03d", c))
			entries = append(entries, Dir(class+"/"))
			for i := 0; i < perClass; i++ {
				entries = append(entries, File(path.Join(class, fmt.Sprintf("%08d.jpg", i)), Bytes(size)))
			}
		}
	}
	return entries
}
