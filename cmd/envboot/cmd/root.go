// Copyright © 2018 One Concern

package cmd

import (
	"context"
	"io"
	"os"

	"github.com/mattn/go-isatty"
	"github.com/oneconcern/envboot/pkg/dlogger"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// stepAnnotation tells which step a subcommand runs
const stepAnnotation = "envboot/step"

// cli holds the state shared by all commands during one execution
type cli struct {
	v      *viper.Viper
	config Config
	logger *zap.Logger
	fs     afero.Fs
	stderr io.Writer
	exit   func(int)
}

func newCLI() *cli {
	return &cli{
		fs:     afero.NewOsFs(),
		stderr: os.Stderr,
		exit:   osExit,
		logger: zap.NewNop(),
	}
}

// newRootCmd builds the envboot command tree
func newRootCmd(app *cli) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "envboot",
		Short: "envboot prepares a research environment",
		Long: `envboot prepares a research environment in two independent steps:

  * install: installs a local package project in editable mode (pip install -e <path>)
  * fetch: downloads and extracts a dataset archive, unless the dataset directory already exists

Without a subcommand, both steps are run: one after the other, and the fetch step runs even when
the install step fails. Use --fail-fast to stop at the first failure, --parallel to run both steps
concurrently.

Exit codes:
  0  success
  1  general failure
  2  invalid arguments or configuration
  3  package install failure
  4  network failure while downloading the dataset
  5  extraction failure (corrupt or incomplete archive)
  6  filesystem failure (missing staging directory, permission denied, disk full)
`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			app.stderr = cmd.ErrOrStderr()
			return app.init(cmd)
		},
		Run: func(cmd *cobra.Command, args []string) {
			app.bootstrap(cmd, app.config.Run.SkipInstall, app.config.Run.SkipFetch)
		},
	}

	addPackageFlags(rootCmd)
	addDatasetFlags(rootCmd)
	addRunFlags(rootCmd)
	addLogLevelFlag(rootCmd)

	rootCmd.AddCommand(
		newInstallCmd(app),
		newFetchCmd(app),
		newConfigCmd(app),
		newVersionCmd(),
	)
	return rootCmd
}

// init resolves the configuration and builds the logger
func (app *cli) init(cmd *cobra.Command) error {
	v, config, err := loadConfig(cmd.Flags())
	if err != nil {
		return err
	}
	app.v = v
	app.config = config

	install, fetch := !config.Run.SkipInstall, !config.Run.SkipFetch
	switch cmd.Annotations[stepAnnotation] {
	case "install":
		install, fetch = true, false
	case "fetch":
		install, fetch = false, true
	}
	if err = config.validate(install, fetch); err != nil {
		return err
	}

	encoding := dlogger.EncodingJSON
	if isatty.IsTerminal(os.Stderr.Fd()) || isatty.IsCygwinTerminal(os.Stderr.Fd()) {
		encoding = dlogger.EncodingConsole
	}
	logger, err := dlogger.GetLoggerWithEncoding(config.LogLevel, encoding)
	if err != nil {
		return errInvalidConfig.Wrap(err)
	}
	app.logger = logger
	if used := v.ConfigFileUsed(); used != "" {
		logger.Debug("using config file", zap.String("config", used))
	}
	return nil
}

// Execute builds the command tree and runs it against the command line arguments.
// This is called by main.main().
func Execute() {
	app := newCLI()
	rootCmd := newRootCmd(app)

	ctx, cancel := signalContext(context.Background(), func() *zap.Logger { return app.logger })
	defer cancel()

	app.execute(ctx, rootCmd)
	_ = app.logger.Sync()
}

// execute runs the command tree. Commands exit on their own failures: errors returned here
// come from the command line or the configuration.
func (app *cli) execute(ctx context.Context, rootCmd *cobra.Command) {
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		app.fatalWithCode(exitInvalidConfig, "%v\nRun '%s --help' for usage.", err, rootCmd.CommandPath())
	}
}
