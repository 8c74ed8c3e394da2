// Copyright © 2018 One Concern

package cmd

import (
	"strings"

	"github.com/oneconcern/envboot/pkg/dlogger"
	"github.com/oneconcern/envboot/pkg/installer"
	"github.com/spf13/cobra"
)

// configFlags maps config keys to the flags overriding them
var configFlags = map[string]string{
	"package.path":                    "package-path",
	"package.command":                 "package-command",
	"dataset.url":                     "dataset-url",
	"dataset.dir":                     "dataset-dir",
	"dataset.name":                    "dataset-name",
	"dataset.staging":                 "staging-dir",
	"dataset.keep-archive-on-failure": "keep-archive-on-failure",
	"run.fail-fast":                   "fail-fast",
	"run.parallel":                    "parallel",
	"run.skip-install":                "skip-install",
	"run.skip-fetch":                  "skip-fetch",
	"loglevel":                        "loglevel",
	"credential":                      "credential",
}

// Flag values are never read directly: they are resolved through viper, see loadConfig.

func addPackageFlags(cmd *cobra.Command) {
	flags := cmd.PersistentFlags()
	flags.String("package-path", defaultPkg, "The path to the package project to install in editable mode")
	// a plain string: repeating the flag replaces the command instead of appending to it
	flags.String("package-command", strings.Join(installer.DefaultCommand, " "),
		"The package manager command, split on spaces. The package path is appended as last argument")
}

func addDatasetFlags(cmd *cobra.Command) {
	flags := cmd.PersistentFlags()
	flags.String("dataset-url", defaultURL, "The URL of the dataset archive (http, https, gs or s3)")
	flags.String("dataset-dir", defaultDir, "The directory the dataset archive is extracted to")
	flags.String("dataset-name", defaultName, "The top-level directory of the dataset. When it exists, the download is skipped")
	flags.String("staging-dir", defaultDir, "The directory holding the downloaded archive. It must exist")
	flags.Bool("keep-archive-on-failure", false, "Keep the downloaded archive when its extraction fails")
	flags.String("credential", "", "The path to a service account key file, for gs:// dataset URLs")
}

func addRunFlags(cmd *cobra.Command) {
	flags := cmd.PersistentFlags()
	flags.Bool("fail-fast", false, "Stop at the first failing step")
	flags.Bool("parallel", false, "Run the install and fetch steps concurrently")
	flags.Bool("skip-install", false, "Skip the package install step")
	flags.Bool("skip-fetch", false, "Skip the dataset fetch step")
}

func addLogLevelFlag(cmd *cobra.Command) {
	cmd.PersistentFlags().String("loglevel", dlogger.LogLevelInfo, "The logging level: debug, info, warn, error or none")
}
