package main

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/joshuapare/hmalloc/alloc"
	"github.com/joshuapare/hmalloc/internal/format"
)

var (
	// Color palette
	primaryColor = lipgloss.Color("#7D56F4")
	successColor = lipgloss.Color("#04B575")
	errorColor   = lipgloss.Color("#FF4B4B")
	mutedColor   = lipgloss.Color("#666666")

	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(primaryColor)

	labelStyle = lipgloss.NewStyle().
			Foreground(mutedColor)

	okStyle = lipgloss.NewStyle().
		Foreground(successColor).
		Bold(true)

	failStyle = lipgloss.NewStyle().
			Foreground(errorColor).
			Bold(true)

	boxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(primaryColor).
			Padding(0, 1)
)

// style returns s, or a plain style under --no-color.
func style(s lipgloss.Style) lipgloss.Style {
	if noColor {
		return lipgloss.NewStyle()
	}
	return s
}

var numbers = message.NewPrinter(language.English)

func formatNumber(n int64) string {
	return numbers.Sprintf("%d", n)
}

func formatBytes(bytes int64) string {
	const unit = 1024
	if bytes < unit {
		return fmt.Sprintf("%d B", bytes)
	}
	div, exp := int64(unit), 0
	for n := bytes / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(bytes)/float64(div), "KMGTPE"[exp])
}

// renderTable lays out rows under headers with padded columns.
func renderTable(headers []string, rows [][]string) string {
	widths := make([]int, len(headers))
	for i, h := range headers {
		widths[i] = lipgloss.Width(h)
	}
	for _, row := range rows {
		for i, cell := range row {
			widths[i] = max(widths[i], lipgloss.Width(cell))
		}
	}

	line := func(cells []string, s lipgloss.Style) string {
		parts := make([]string, len(cells))
		for i, c := range cells {
			parts[i] = s.Render(c + strings.Repeat(" ", widths[i]-lipgloss.Width(c)))
		}
		return strings.TrimRight(strings.Join(parts, "  "), " ")
	}

	var sb strings.Builder
	sb.WriteString(line(headers, style(titleStyle)))
	sb.WriteByte('\n')
	for _, row := range rows {
		sb.WriteString(line(row, lipgloss.NewStyle()))
		sb.WriteByte('\n')
	}
	return sb.String()
}

// renderStats formats the allocator counters as a boxed block.
func renderStats(s alloc.Stats) string {
	label := style(labelStyle)
	rows := []struct {
		name  string
		value int64
	}{
		{"Pages mapped", s.PagesMapped},
		{"Pages unmapped", s.PagesUnmapped},
		{"Pages held", s.PagesHeld()},
		{"Allocs", s.Allocs},
		{"Frees", s.Frees},
		{"Live", s.Live()},
		{"Free length", s.FreeLength},
	}

	var sb strings.Builder
	for i, r := range rows {
		if i > 0 {
			sb.WriteByte('\n')
		}
		fmt.Fprintf(&sb, "%s %s", label.Render(fmt.Sprintf("%-15s", r.name+":")), formatNumber(r.value))
	}
	fmt.Fprintf(&sb, "\n%s %s", label.Render(fmt.Sprintf("%-15s", "Memory held:")),
		formatBytes(s.PagesHeld()*format.PageUnit))
	return style(boxStyle).Render(sb.String())
}
