package installer

import (
	"os/exec"

	"github.com/oneconcern/envboot/pkg/errors"
)

var (
	// ErrPackageManagerUnavailable indicates the package manager executable could not be found
	ErrPackageManagerUnavailable = errors.New("package manager unavailable")

	// ErrInstallFailed indicates the package manager ran but reported a failure
	ErrInstallFailed = errors.New("package install failed")

	// ErrInvalidCommand indicates an empty or malformed package manager command
	ErrInvalidCommand = errors.New("invalid package manager command")
)

// ExitCode returns the exit code of the package manager carried by err, or -1 if there is none
func ExitCode(err error) int {
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.ExitCode()
	}
	return -1
}
