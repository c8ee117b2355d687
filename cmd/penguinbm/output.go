package main

import (
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/fatih/color"

	"github.com/whhaicheng/PenguinBM/internal/domain/execution"
	"github.com/whhaicheng/PenguinBM/internal/domain/report"
)

func stateColor(state execution.RunState) *color.Color {
	switch state {
	case execution.StateCompleted:
		return color.New(color.FgGreen)
	case execution.StateFailed, execution.StateTimeout:
		return color.New(color.FgRed)
	case execution.StateCancelled:
		return color.New(color.FgYellow)
	default:
		return color.New(color.FgCyan)
	}
}

// printRun writes the run header and one row per query summary.
func printRun(w io.Writer, run *execution.Run, summaries []execution.Summary) {
	fmt.Fprintf(w, "\nRun %s (%s) ", run.ID, run.Kind)
	stateColor(run.State).Fprintln(w, run.State)
	fmt.Fprintf(w, "Data source: %s\n", run.DataSource)
	fmt.Fprintf(w, "Tables:      %s, %s\n", run.Observation, run.LocationMap)
	if run.Kind != execution.KindImport {
		fmt.Fprintf(w, "Load:        %.3f ms, %.1f MB\n", run.LoadMs, run.LoadMemoryMB)
	}
	if run.ErrorMessage != "" {
		fmt.Fprintf(w, "Error:       %s\n", run.ErrorMessage)
	}
	if len(summaries) == 0 {
		return
	}

	fmt.Fprintln(w)
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "QUERY\tTEMPORAL\tSPATIAL\tN\tMEAN MS\tP95 MS\tMAX MB\tROWS")
	for _, s := range summaries {
		fmt.Fprintf(tw, "%s\t%d\t%s\t%d\t%.3f\t%.3f\t%.1f\t%d\n",
			s.Query, s.TemporalRange, s.SpatialRange, s.Elapsed.N,
			s.Elapsed.Mean, s.Elapsed.P95, s.Memory.Max, s.Rows)
	}
	tw.Flush()
}

// printRuns lists runs one per line.
func printRuns(w io.Writer, runs []*execution.Run) {
	if len(runs) == 0 {
		fmt.Fprintln(w, "No runs found.")
		return
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tKIND\tSTATE\tCREATED\tLOAD MS\tTABLES")
	for _, r := range runs {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%.3f\t%s,%s\n",
			r.ID, r.Kind, stateColor(r.State).Sprint(r.State),
			r.CreatedAt.Local().Format(time.DateTime), r.LoadMs, r.Observation, r.LocationMap)
	}
	tw.Flush()
}

func (a *app) reportConfig(format report.ReportFormat) *report.ReportConfig {
	rc := report.DefaultConfig(format)
	rc.IncludeCharts = a.cfg.Reports.IncludeCharts
	rc.ChartWidth = a.cfg.Reports.ChartWidth
	rc.ChartHeight = a.cfg.Reports.ChartHeight
	return rc
}
