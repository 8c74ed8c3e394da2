package cmd

import (
	"context"
	"errors"
	"io"
	"os/exec"
	"testing"

	"github.com/oneconcern/envboot/pkg/archive"
	"github.com/oneconcern/envboot/pkg/fetcher"
	"github.com/oneconcern/envboot/pkg/installer"
	"github.com/stretchr/testify/assert"
)

func TestExitCode(t *testing.T) {
	for _, toPin := range []struct {
		name     string
		err      error
		expected int
	}{
		{name: "no error", err: nil, expected: exitOK},
		{name: "config", err: errInvalidConfig.Wrapf("package.path is required"), expected: exitInvalidConfig},
		{name: "source", err: fetcher.ErrInvalidSource.Wrapf("unsupported scheme"), expected: exitInvalidConfig},
		{name: "command", err: installer.ErrInvalidCommand.Wrapf("empty"), expected: exitInvalidConfig},
		{name: "pip missing", err: installer.ErrPackageManagerUnavailable.Wrap(exec.ErrNotFound), expected: exitInstall},
		{name: "pip failed", err: installer.ErrInstallFailed.Wrap(errors.New("exit status 1")), expected: exitInstall},
		{name: "network", err: fetcher.ErrDownload.Wrap(io.ErrUnexpectedEOF), expected: exitNetwork},
		{name: "extract", err: fetcher.ErrExtract.Wrap(archive.ErrCorruptArchive.Wrap(io.ErrUnexpectedEOF)), expected: exitExtract},
		{name: "staging", err: fetcher.ErrStaging.Wrapf("missing"), expected: exitFilesystem},
		{name: "filesystem", err: fetcher.ErrFilesystem.Wrap(archive.ErrWrite), expected: exitFilesystem},
		{name: "interrupted", err: context.Canceled, expected: exitGeneral},
		{name: "deadline", err: context.DeadlineExceeded, expected: exitGeneral},
	} {
		fixture := toPin
		t.Run(fixture.name, func(t *testing.T) {
			assert.Equal(t, fixture.expected, exitCode(fixture.err))
		})
	}
}
