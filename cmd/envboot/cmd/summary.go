package cmd

import (
	"fmt"
	"io"
	"time"

	"github.com/docker/go-units"
	"github.com/fatih/color"
	"github.com/gosuri/uitable"
	"github.com/oneconcern/envboot/pkg/bootstrap"
	"github.com/oneconcern/envboot/pkg/fetcher"
)

var statusColors = map[bootstrap.Status]*color.Color{
	bootstrap.Succeeded: color.New(color.FgGreen),
	bootstrap.Failed:    color.New(color.FgRed, color.Bold),
	bootstrap.Skipped:   color.New(color.FgYellow),
	bootstrap.NotRun:    color.New(color.FgYellow),
	bootstrap.Cancelled: color.New(color.FgYellow),
}

// printSummary renders one row per step
func printSummary(out io.Writer, report bootstrap.Report, fetched fetcher.Result) {
	table := uitable.New()
	table.MaxColWidth = 80
	table.Wrap = true

	for _, outcome := range report.Outcomes {
		status := string(outcome.Status)
		if c, ok := statusColors[outcome.Status]; ok {
			status = c.Sprint(status)
		}

		var elapsed, details string
		if outcome.Elapsed > 0 {
			elapsed = outcome.Elapsed.Round(time.Millisecond).String()
		}
		if outcome.Step == "fetch" && outcome.Status == bootstrap.Succeeded {
			if fetched.Skipped {
				details = "dataset already present"
			} else {
				details = fmt.Sprintf("%d files, %s extracted", fetched.Extracted.Files, units.HumanSize(float64(fetched.Extracted.Bytes)))
			}
		}
		table.AddRow(outcome.Step, status, elapsed, details)
	}
	_, _ = fmt.Fprintln(out, table)
}
