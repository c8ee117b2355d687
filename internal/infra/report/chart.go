// Package report renders benchmark runs as Markdown or JSON with text charts.
package report

import (
	"fmt"
	"math"
	"strings"
)

// ChartGenerator generates text-based charts for reports.
type ChartGenerator struct{}

// NewChartGenerator creates a new chart generator.
func NewChartGenerator() *ChartGenerator {
	return &ChartGenerator{}
}

// GenerateSeries plots values left to right, one marker per point, with a
// labelled y axis. Used for elapsed time and memory over temporal range.
func (g *ChartGenerator) GenerateSeries(values []float64, width, height int, label string) string {
	if len(values) == 0 || width < 2 || height < 2 {
		return ""
	}

	min, max := g.minMax(values)
	rangeVal := max - min
	if rangeVal == 0 {
		rangeVal = 1
	}

	sampled := g.downsample(values, width)

	grid := make([][]rune, height)
	for i := range grid {
		grid[i] = []rune(strings.Repeat(" ", width))
	}

	for i, val := range sampled {
		x := 0
		if len(sampled) > 1 {
			x = i * (width - 1) / (len(sampled) - 1)
		}
		normalized := (val - min) / rangeVal
		y := height - 1 - int(math.Round(normalized*float64(height-1)))
		y = clamp(y, 0, height-1)
		grid[y][x] = '█'
	}

	var sb strings.Builder
	sb.WriteString(label)
	sb.WriteString("\n")
	for i, row := range grid {
		labelVal := max - (float64(i)/float64(height-1))*(max-min)
		fmt.Fprintf(&sb, "%10.2f │%s\n", labelVal, strings.TrimRight(string(row), " "))
	}
	return sb.String()
}

// GenerateHistogram buckets values into bins and draws one bar per bin.
// Used for the distribution of returned BT values.
func (g *ChartGenerator) GenerateHistogram(values []float64, bins, width int) string {
	if len(values) == 0 || bins < 1 {
		return ""
	}

	histogram := g.createHistogram(values, bins)

	peak := 0
	for _, count := range histogram {
		if count > peak {
			peak = count
		}
	}

	barWidth := width - 25
	if barWidth < 10 {
		barWidth = 10
	}

	var sb strings.Builder
	for i, count := range histogram {
		barLength := 0
		if peak > 0 {
			barLength = int(float64(count) / float64(peak) * float64(barWidth))
		}
		fmt.Fprintf(&sb, "%15s │%s %d\n", g.formatBinLabel(i, bins, values), strings.Repeat("█", barLength), count)
	}
	return sb.String()
}

// GenerateBarChart generates a simple horizontal bar chart.
func (g *ChartGenerator) GenerateBarChart(labels []string, values []float64, width int) string {
	if len(labels) != len(values) || len(labels) == 0 {
		return ""
	}

	max := 0.0
	for _, v := range values {
		if v > max {
			max = v
		}
	}
	if max == 0 {
		max = 1
	}

	maxLabelLen := 0
	for _, l := range labels {
		if len(l) > maxLabelLen {
			maxLabelLen = len(l)
		}
	}

	barWidth := width - maxLabelLen - 10
	if barWidth < 10 {
		barWidth = 10
	}

	var sb strings.Builder
	for i, label := range labels {
		barLength := int(values[i] / max * float64(barWidth))
		fmt.Fprintf(&sb, "%*s │%-*s %.2f\n", maxLabelLen, label, barWidth, strings.Repeat("█", barLength), values[i])
	}
	return sb.String()
}

// downsample reduces the number of data points to fit the width.
func (g *ChartGenerator) downsample(values []float64, width int) []float64 {
	if len(values) <= width {
		return values
	}

	step := float64(len(values)-1) / float64(width-1)
	result := make([]float64, width)
	for i := 0; i < width; i++ {
		pos := int(float64(i) * step)
		if pos >= len(values) {
			pos = len(values) - 1
		}
		result[i] = values[pos]
	}
	return result
}

// minMax finds the minimum and maximum values in a slice.
func (g *ChartGenerator) minMax(values []float64) (float64, float64) {
	min := math.Inf(1)
	max := math.Inf(-1)
	for _, v := range values {
		if v < min {
			min = v
		}
		if v > max {
			max = v
		}
	}
	if math.IsInf(min, 1) || math.IsInf(max, -1) {
		return 0, 1
	}
	return min, max
}

// createHistogram counts values per equal-width bin.
func (g *ChartGenerator) createHistogram(values []float64, bins int) []int {
	histogram := make([]int, bins)
	if len(values) == 0 {
		return histogram
	}

	min, max := g.minMax(values)
	rangeVal := max - min
	if rangeVal == 0 {
		rangeVal = 1
	}

	for _, v := range values {
		bin := clamp(int((v-min)/rangeVal*float64(bins)), 0, bins-1)
		histogram[bin]++
	}
	return histogram
}

// formatBinLabel formats a histogram bin label.
func (g *ChartGenerator) formatBinLabel(index, bins int, values []float64) string {
	min, max := g.minMax(values)
	binMin := min + (max-min)/float64(bins)*float64(index)
	binMax := min + (max-min)/float64(bins)*float64(index+1)

	if bins == 1 {
		return fmt.Sprintf("%.1f-%.1f", min, max)
	}
	if index == 0 {
		return fmt.Sprintf("<%.1f", binMax)
	}
	if index == bins-1 {
		return fmt.Sprintf("≥%.1f", binMin)
	}
	return fmt.Sprintf("%.1f-%.1f", binMin, binMax)
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
