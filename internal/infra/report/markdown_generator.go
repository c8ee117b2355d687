package report

import (
	"fmt"
	"strings"
	"time"

	"github.com/whhaicheng/PenguinBM/internal/domain/report"
)

// MarkdownGenerator generates Markdown format reports.
type MarkdownGenerator struct {
	chartGen *ChartGenerator
}

// NewMarkdownGenerator creates a new Markdown generator.
func NewMarkdownGenerator() *MarkdownGenerator {
	return &MarkdownGenerator{
		chartGen: NewChartGenerator(),
	}
}

// Generate generates a Markdown report.
func (g *MarkdownGenerator) Generate(data *report.GenerateContext) (*report.Report, error) {
	if err := data.Validate(); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}

	var sb strings.Builder

	g.writeTitle(&sb, data)
	g.writeSummary(&sb, data)
	g.writeResults(&sb, data)

	if data.Config.IncludeCharts {
		g.writeCharts(&sb, data)
	}

	g.writeTrials(&sb, data)
	g.writeFooter(&sb)

	return &report.Report{
		Format:      report.FormatMarkdown,
		Content:     []byte(sb.String()),
		GeneratedAt: time.Now(),
		RunID:       data.Run.ID,
	}, nil
}

// Format returns the format this generator produces.
func (g *MarkdownGenerator) Format() report.ReportFormat {
	return report.FormatMarkdown
}

func (g *MarkdownGenerator) writeTitle(sb *strings.Builder, data *report.GenerateContext) {
	title := data.Config.Title
	if title == "" {
		title = fmt.Sprintf("Benchmark Report - %s", data.Run.ID)
	}
	sb.WriteString("# ")
	sb.WriteString(title)
	sb.WriteString("\n\n")
}

func (g *MarkdownGenerator) writeSummary(sb *strings.Builder, data *report.GenerateContext) {
	run := data.Run
	sb.WriteString("## Summary\n\n")

	status := "✅ " + string(run.State)
	if data.IsFailed() {
		status = "❌ " + string(run.State)
	}
	fmt.Fprintf(sb, "- **Status**: %s\n", status)
	fmt.Fprintf(sb, "- **Kind**: %s\n", run.Kind)
	fmt.Fprintf(sb, "- **Data source**: %s\n", run.DataSource)
	fmt.Fprintf(sb, "- **Tables**: %s, %s\n", run.Observation, run.LocationMap)
	fmt.Fprintf(sb, "- **Load**: %.3f ms, %.3f MB\n", run.LoadMs, run.LoadMemoryMB)
	fmt.Fprintf(sb, "- **Duration**: %s\n", data.GetDuration())
	fmt.Fprintf(sb, "- **Started**: %s\n", report.GetTimestamp(run.StartedAt))
	fmt.Fprintf(sb, "- **Completed**: %s\n", report.GetTimestamp(run.CompletedAt))
	if run.ErrorMessage != "" {
		fmt.Fprintf(sb, "- **Error**: %s\n", run.ErrorMessage)
	}
	sb.WriteString("\n")
}

func (g *MarkdownGenerator) writeResults(sb *strings.Builder, data *report.GenerateContext) {
	sb.WriteString("## Results\n\n")

	if len(data.Summaries) == 0 {
		sb.WriteString("*No trials recorded*\n\n")
		return
	}

	sb.WriteString("| Query | Temporal | Spatial | N | Avg (ms) | P50 (ms) | P95 (ms) | Min (ms) | Max (ms) | Memory max (MB) | Rows |\n")
	sb.WriteString("|-------|----------|---------|---|----------|----------|----------|----------|----------|-----------------|------|\n")
	for _, s := range data.Summaries {
		fmt.Fprintf(sb, "| %s | %d | %s | %d | %.3f | %.3f | %.3f | %.3f | %.3f | %.3f | %d |\n",
			s.Query, s.TemporalRange, s.SpatialRange, s.Elapsed.N,
			s.Elapsed.Mean, s.Elapsed.P50, s.Elapsed.P95, s.Elapsed.Min, s.Elapsed.Max,
			s.Memory.Max, s.Rows,
		)
	}
	sb.WriteString("\n")
}

func (g *MarkdownGenerator) writeCharts(sb *strings.Builder, data *report.GenerateContext) {
	width := data.Config.ChartWidth
	height := data.Config.ChartHeight

	var charts strings.Builder
	for _, query := range data.Queries() {
		labels, elapsed, memory := data.Series(query)
		if len(elapsed) < 2 {
			continue
		}
		fmt.Fprintf(&charts, "### %s over temporal range\n\n", query)
		fmt.Fprintf(&charts, "Points: %s\n\n", strings.Join(labels, ", "))
		writeBlock(&charts, g.chartGen.GenerateSeries(elapsed, width, height, "Time (ms)"))
		writeBlock(&charts, g.chartGen.GenerateSeries(memory, width, height, "Memory (MB)"))
	}

	if len(data.Values) > 0 {
		charts.WriteString("### BT distribution\n\n")
		writeBlock(&charts, g.chartGen.GenerateHistogram(data.Values, 20, width))
	}

	if charts.Len() == 0 {
		return
	}
	sb.WriteString("## Charts\n\n")
	sb.WriteString(charts.String())
}

func (g *MarkdownGenerator) writeTrials(sb *strings.Builder, data *report.GenerateContext) {
	trials := data.Run.Trials
	if len(trials) == 0 {
		return
	}

	sb.WriteString("## Trials\n\n")
	sb.WriteString("| # | Query | Temporal | Spatial | Iteration | Time (ms) | Memory (MB) | Rows |\n")
	sb.WriteString("|---|-------|----------|---------|-----------|-----------|-------------|------|\n")
	for _, t := range trials {
		fmt.Fprintf(sb, "| %d | %s | %d | %s | %d | %.3f | %.3f | %d |\n",
			t.Seq, t.Query, t.TemporalRange, t.SpatialLabel(), t.Iteration, t.ElapsedMs, t.MemoryMB, t.Rows)
	}
	sb.WriteString("\n")

	if !data.Config.IncludeSQL {
		return
	}
	sb.WriteString("### Statements\n\n")
	for _, t := range trials {
		if t.SQL == "" {
			continue
		}
		fmt.Fprintf(sb, "%d. `%s`\n", t.Seq, t.SQL)
	}
	sb.WriteString("\n")
}

func (g *MarkdownGenerator) writeFooter(sb *strings.Builder) {
	sb.WriteString("---\n\n")
	fmt.Fprintf(sb, "*Generated by PenguinBM at %s*\n", time.Now().Format(time.RFC1123))
}

func writeBlock(sb *strings.Builder, chart string) {
	if chart == "" {
		return
	}
	sb.WriteString("```\n")
	sb.WriteString(chart)
	sb.WriteString("```\n\n")
}
