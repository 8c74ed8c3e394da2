package cmd

import (
	"fmt"
	"time"

	"github.com/docker/go-units"
	"github.com/spf13/cobra"
)

func newFetchCmd(app *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "fetch",
		Short: "Downloads and extracts the dataset, unless already present",
		Long: `Downloads the dataset archive into the staging directory, extracts it into the dataset directory,
then deletes the archive.

Nothing is downloaded when <dataset-dir>/<dataset-name> exists, whatever its content.
The staging directory must exist beforehand.

The archive may be a plain, gzip or zstd compressed tarball, served over http(s), or stored
on GCS (gs://bucket/key) or S3 (s3://bucket/key).`,
		Args:        cobra.NoArgs,
		Annotations: map[string]string{stepAnnotation: "fetch"},
		Run: func(cmd *cobra.Command, args []string) {
			fetch, err := app.fetcher(cmd)
			if err != nil {
				app.fatal(err)
				return
			}
			res, err := fetch.Fetch(cmd.Context())
			if err != nil {
				app.fatal(err)
				return
			}
			if !res.Skipped {
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%s: %d files, %s extracted in %s\n",
					res.DatasetRoot, res.Extracted.Files, units.HumanSize(float64(res.Extracted.Bytes)), res.Elapsed.Round(time.Millisecond))
			}
		},
	}
}
