package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/oneconcern/envboot/pkg/errors"
	"github.com/oneconcern/envboot/pkg/fetcher"
	"github.com/oneconcern/envboot/pkg/installer"
)

// Exit codes
const (
	exitOK = iota
	exitGeneral
	exitInvalidConfig
	exitInstall
	exitNetwork
	exitExtract
	exitFilesystem
)

var errInvalidConfig = errors.New("invalid configuration")

// used to patch over calls to os.Exit() during test
var osExit = os.Exit

// exitCode maps an error to the exit code of the process
func exitCode(err error) int {
	switch {
	case err == nil:
		return exitOK
	case errors.Is(err, errInvalidConfig),
		errors.Is(err, fetcher.ErrInvalidSource),
		errors.Is(err, installer.ErrInvalidCommand):
		return exitInvalidConfig
	case errors.Is(err, installer.ErrPackageManagerUnavailable),
		errors.Is(err, installer.ErrInstallFailed):
		return exitInstall
	case errors.Is(err, fetcher.ErrDownload):
		return exitNetwork
	case errors.Is(err, fetcher.ErrExtract):
		return exitExtract
	case errors.Is(err, fetcher.ErrStaging),
		errors.Is(err, fetcher.ErrFilesystem):
		return exitFilesystem
	case errors.Is(err, context.Canceled),
		errors.Is(err, context.DeadlineExceeded):
		// interrupted runs never report success
		return exitGeneral
	default:
		return exitGeneral
	}
}

func (app *cli) fatal(err error) {
	app.fatalWithCode(exitCode(err), "%v", err)
}

func (app *cli) fatalWithCode(code int, format string, args ...interface{}) {
	_, _ = fmt.Fprintf(app.stderr, format+"\n", args...)
	app.exit(code)
}
