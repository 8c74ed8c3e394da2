// Copyright © 2018 One Concern

// Package installer installs a local package project in editable (development) mode,
// by running the host package manager.
//
// The output of the package manager is streamed as is: no pre-flight validation of the
// package definition is carried out, the package manager reports its own diagnostics.
package installer

import (
	"context"
	"io"
	"os"
	"os/exec"
	"strings"
	"time"

	"go.uber.org/zap"
)

// DefaultCommand installs a python project in development mode. The package path is appended as last argument.
var DefaultCommand = []string{"pip", "install", "-e"}

// waitDelay bounds the time spent waiting for output pipes after the package manager has been killed
const waitDelay = 5 * time.Second

// Installer runs the package install step
type Installer struct {
	path    string
	command []string
	dir     string
	env     []string
	stdout  io.Writer
	stderr  io.Writer
	l       *zap.Logger
}

// Option is a functor to configure the installer
type Option func(*Installer)

// Command sets the package manager command. The package path is appended to args.
func Command(args ...string) Option {
	return func(i *Installer) {
		if len(args) > 0 {
			i.command = args
		}
	}
}

// WorkDir runs the package manager from dir. Defaults to the current working directory.
func WorkDir(dir string) Option {
	return func(i *Installer) {
		i.dir = dir
	}
}

// Env appends KEY=value pairs to the environment inherited by the package manager
func Env(env ...string) Option {
	return func(i *Installer) {
		i.env = append(i.env, env...)
	}
}

// Output redirects the output of the package manager. Defaults to os.Stdout and os.Stderr.
func Output(stdout, stderr io.Writer) Option {
	return func(i *Installer) {
		if stdout != nil {
			i.stdout = stdout
		}
		if stderr != nil {
			i.stderr = stderr
		}
	}
}

// Logger specifies a logger for the installer
func Logger(logger *zap.Logger) Option {
	return func(i *Installer) {
		if logger != nil {
			i.l = logger
		}
	}
}

// New installer for the package project located at path
func New(path string, opts ...Option) *Installer {
	i := &Installer{
		path:    path,
		command: DefaultCommand,
		stdout:  os.Stdout,
		stderr:  os.Stderr,
		l:       zap.NewNop(),
	}
	for _, apply := range opts {
		apply(i)
	}
	return i
}

// Name of the step
func (i *Installer) Name() string {
	return "install"
}

// Run the step
func (i *Installer) Run(ctx context.Context) error {
	return i.Install(ctx)
}

// CommandLine returns the full command run by the installer
func (i *Installer) CommandLine() []string {
	args := make([]string, 0, len(i.command)+1)
	args = append(args, i.command...)
	return append(args, i.path)
}

// Install runs the package manager. It blocks until the package manager exits.
//
// Cancelling the context kills the package manager.
func (i *Installer) Install(ctx context.Context) error {
	if len(i.command) == 0 || strings.TrimSpace(i.command[0]) == "" {
		return ErrInvalidCommand.Wrapf("no package manager specified")
	}
	if i.path == "" {
		return ErrInvalidCommand.Wrapf("no package path specified")
	}

	exe, err := exec.LookPath(i.command[0])
	if err != nil {
		return ErrPackageManagerUnavailable.Wrap(err)
	}

	cmdLine := i.CommandLine()
	logger := i.l.With(zap.String("package", i.path))
	logger.Info("installing package in editable mode", zap.Strings("command", cmdLine))

	cmd := exec.CommandContext(ctx, exe, cmdLine[1:]...)
	cmd.Dir = i.dir
	cmd.Stdout = i.stdout
	cmd.Stderr = i.stderr
	cmd.WaitDelay = waitDelay
	if len(i.env) > 0 {
		cmd.Env = append(os.Environ(), i.env...)
	}

	start := time.Now()
	err = cmd.Run()
	if ctxErr := ctx.Err(); ctxErr != nil {
		logger.Warn("package install interrupted", zap.Error(ctxErr))
		return ctxErr
	}
	if err != nil {
		logger.Error("package install failed", zap.Int("exit_code", ExitCode(err)), zap.Error(err))
		return ErrInstallFailed.Wrap(err)
	}

	logger.Info("package installed", zap.Duration("elapsed", time.Since(start)))
	return nil
}
