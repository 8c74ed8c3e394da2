package cmd

import (
	"context"
	"fmt"

	"github.com/oneconcern/envboot/pkg/bootstrap"
	"github.com/oneconcern/envboot/pkg/fetcher"
	"github.com/oneconcern/envboot/pkg/installer"
	"github.com/spf13/cobra"
)

func (app *cli) installer(cmd *cobra.Command) *installer.Installer {
	return installer.New(app.config.Package.Path,
		installer.Command(app.config.Package.Command...),
		installer.Output(cmd.OutOrStdout(), cmd.ErrOrStderr()),
		installer.Logger(app.logger),
	)
}

func (app *cli) fetcher(cmd *cobra.Command) (*fetcher.Fetcher, error) {
	return fetcher.New(fetcher.Config{
		URL:                  app.config.Dataset.URL,
		DataDir:              app.config.Dataset.Dir,
		DatasetName:          app.config.Dataset.Name,
		StagingDir:           app.config.Dataset.Staging,
		KeepArchiveOnFailure: app.config.Dataset.KeepArchiveOnFailure,
	},
		fetcher.FS(app.fs),
		fetcher.GCSCredentials(app.config.Credential),
		fetcher.Output(cmd.OutOrStdout()),
		fetcher.Logger(app.logger),
	)
}

// skippedStep stands for a step disabled by configuration
type skippedStep string

func (s skippedStep) Name() string { return string(s) }

func (s skippedStep) Run(context.Context) error { return nil }

// bootstrap runs the install and fetch steps, prints a summary, then exits on failure
func (app *cli) bootstrap(cmd *cobra.Command, skipInstall, skipFetch bool) {
	install := app.installer(cmd)
	steps := []bootstrap.Step{install}

	var fetched func() fetcher.Result
	fetch, err := app.fetcher(cmd)
	switch {
	case err == nil:
		steps = append(steps, fetch)
		fetched = fetch.LastResult
	case skipFetch:
		// the dataset settings are irrelevant
		steps = append(steps, skippedStep("fetch"))
		fetched = func() fetcher.Result { return fetcher.Result{} }
	default:
		app.fatal(err)
		return
	}

	var skip []string
	if skipInstall {
		skip = append(skip, install.Name())
	}
	if skipFetch {
		skip = append(skip, steps[1].Name())
	}

	runner := bootstrap.New(steps,
		bootstrap.FailFast(app.config.Run.FailFast),
		bootstrap.Parallel(app.config.Run.Parallel),
		bootstrap.Skip(skip...),
		bootstrap.Logger(app.logger),
	)
	report, err := runner.Run(cmd.Context())
	printSummary(cmd.OutOrStdout(), report, fetched())
	if err == nil {
		return
	}

	failures := report.Failures()
	for _, failure := range failures {
		_, _ = fmt.Fprintf(app.stderr, "%s: %v\n", failure.Step, failure.Err)
	}
	if len(failures) > 0 {
		app.exit(exitCode(failures[0].Err))
		return
	}
	// interrupted before any step failed
	_, _ = fmt.Fprintf(app.stderr, "interrupted: %v\n", report.Interrupted)
	app.exit(exitCode(report.Interrupted))
}
