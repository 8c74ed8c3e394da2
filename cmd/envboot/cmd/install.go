package cmd

import (
	"github.com/spf13/cobra"
)

func newInstallCmd(app *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "install",
		Short: "Installs the package project in editable mode",
		Long: `Installs the package project located at --package-path in editable (development) mode,
with the package manager command set by --package-command (default: pip install -e).

The output of the package manager is displayed as is.`,
		Args:        cobra.NoArgs,
		Annotations: map[string]string{stepAnnotation: "install"},
		Run: func(cmd *cobra.Command, args []string) {
			if err := app.installer(cmd).Install(cmd.Context()); err != nil {
				app.fatal(err)
			}
		},
	}
}
