// Copyright © 2018 One Concern

package cmd

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/oneconcern/envboot/pkg/dlogger"
	"github.com/oneconcern/envboot/pkg/fetcher"
	"github.com/oneconcern/envboot/pkg/installer"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v2"
)

const (
	configEnv    = "ENVBOOT_CONFIG"
	configName   = "envboot"
	envPrefix    = "envboot"
	defaultURL   = "http://data.csail.mit.edu/places/places365/places365standard_easyformat.tar"
	defaultPkg   = "dmcontrol-generalization-benchmark/src/env/dm_control"
	defaultDir   = "datasets"
	defaultName  = "places365_standard"
	defaultLevel = dlogger.LogLevelInfo
)

// Config describes the effective configuration of envboot, after merging
// defaults, the config file, environment variables and flags.
type Config struct {
	Package    PackageConfig `yaml:"package"`
	Dataset    DatasetConfig `yaml:"dataset"`
	Run        RunConfig     `yaml:"run"`
	LogLevel   string        `yaml:"loglevel"`
	Credential string        `yaml:"credential,omitempty"` // service account key for gs:// sources
}

// PackageConfig configures the package install step
type PackageConfig struct {
	Path    string   `yaml:"path"`
	Command []string `yaml:"command,flow"`
}

// DatasetConfig configures the dataset fetch step
type DatasetConfig struct {
	URL                  string `yaml:"url"`
	Dir                  string `yaml:"dir"`
	Name                 string `yaml:"name"`
	Staging              string `yaml:"staging"`
	KeepArchiveOnFailure bool   `yaml:"keep-archive-on-failure"`
}

// RunConfig configures how steps are sequenced
type RunConfig struct {
	FailFast    bool `yaml:"fail-fast"`
	Parallel    bool `yaml:"parallel"`
	SkipInstall bool `yaml:"skip-install"`
	SkipFetch   bool `yaml:"skip-fetch"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("package.path", defaultPkg)
	v.SetDefault("package.command", installer.DefaultCommand)
	v.SetDefault("dataset.url", defaultURL)
	v.SetDefault("dataset.dir", defaultDir)
	v.SetDefault("dataset.name", defaultName)
	v.SetDefault("dataset.staging", defaultDir)
	v.SetDefault("dataset.keep-archive-on-failure", false)
	v.SetDefault("run.fail-fast", false)
	v.SetDefault("run.parallel", false)
	v.SetDefault("run.skip-install", false)
	v.SetDefault("run.skip-fetch", false)
	v.SetDefault("loglevel", defaultLevel)
	v.SetDefault("credential", "")
}

// loadConfig reads in config file and ENV variables if set, then applies flags.
func loadConfig(flags *pflag.FlagSet) (*viper.Viper, Config, error) {
	v := viper.New()
	setDefaults(v)

	if file := os.Getenv(configEnv); file != "" {
		v.SetConfigFile(file)
	} else {
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.envboot")
		v.AddConfigPath("/etc/envboot")
		v.SetConfigName(configName)
	}

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, Config{}, errInvalidConfig.Wrap(err)
		}
	}

	for key, name := range configFlags {
		if flag := flags.Lookup(name); flag != nil {
			if err := v.BindPFlag(key, flag); err != nil {
				return nil, Config{}, errInvalidConfig.Wrap(err)
			}
		}
	}

	return v, newConfig(v), nil
}

func newConfig(v *viper.Viper) Config {
	return Config{
		Package: PackageConfig{
			Path:    v.GetString("package.path"),
			Command: v.GetStringSlice("package.command"),
		},
		Dataset: DatasetConfig{
			URL:                  v.GetString("dataset.url"),
			Dir:                  v.GetString("dataset.dir"),
			Name:                 v.GetString("dataset.name"),
			Staging:              v.GetString("dataset.staging"),
			KeepArchiveOnFailure: v.GetBool("dataset.keep-archive-on-failure"),
		},
		Run: RunConfig{
			FailFast:    v.GetBool("run.fail-fast"),
			Parallel:    v.GetBool("run.parallel"),
			SkipInstall: v.GetBool("run.skip-install"),
			SkipFetch:   v.GetBool("run.skip-fetch"),
		},
		LogLevel:   strings.ToLower(v.GetString("loglevel")),
		Credential: v.GetString("credential"),
	}
}

// validate the settings of the steps about to run
func (c Config) validate(install, fetch bool) error {
	if install {
		if c.Package.Path == "" {
			return errInvalidConfig.Wrapf("package.path is required")
		}
		if len(c.Package.Command) == 0 {
			return errInvalidConfig.Wrapf("package.command is required")
		}
	}
	if fetch {
		if _, err := fetcher.ArchiveName(c.Dataset.URL); err != nil {
			return errInvalidConfig.Wrap(err)
		}
		if c.Dataset.Dir == "" || c.Dataset.Name == "" || c.Dataset.Staging == "" {
			return errInvalidConfig.Wrapf("dataset.dir, dataset.name and dataset.staging are required")
		}
	}
	if _, err := dlogger.GetLogger(c.LogLevel); err != nil {
		return errInvalidConfig.Wrapf("invalid log level %q: %v", c.LogLevel, err)
	}
	return nil
}

func newConfigCmd(app *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Prints the effective configuration",
		Long: `Prints the effective configuration of envboot, as YAML.

Configuration is resolved from, by increasing order of precedence:
  * built-in defaults
  * a config file: $ENVBOOT_CONFIG, or envboot.yaml in ., $HOME/.envboot or /etc/envboot
  * environment variables, e.g. ENVBOOT_DATASET_URL, ENVBOOT_RUN_FAIL_FAST
  * command line flags

The output may be used as a config file.`,
		Args: cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			o, err := yaml.Marshal(app.config)
			if err != nil {
				app.fatal(errInvalidConfig.Wrap(err))
				return
			}
			if used := app.v.ConfigFileUsed(); used != "" {
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "# config file: %s\n", used)
			}
			_, _ = cmd.OutOrStdout().Write(o)
		},
	}
}
