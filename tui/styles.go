package tui

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/lukemcguire/synthlinks/result"
)

var (
	titleStyle       = lipgloss.NewStyle().Bold(true)
	successStyle     = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("10"))
	errorStyle       = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("9"))
	headerStyle      = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	categoryStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("11"))
	dimStyle         = lipgloss.NewStyle().Faint(true)
	urlStyle         = lipgloss.NewStyle()
	statusErrorStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
)

// categoryOrder defines the display order for error categories (most to least actionable).
var categoryOrder = []result.ErrorCategory{
	result.CategoryIncorrectStatusCode,
	result.CategoryTimeout,
	result.CategoryDNSFailure,
	result.CategoryConnectionRefused,
	result.CategoryUnknown,
}

// RenderSummary produces a Lip Gloss styled summary of a scan.
func RenderSummary(res *result.SyntheticResult) string {
	if res == nil {
		return errorStyle.Render("No results available.")
	}

	report := res.BrokenLinksResult
	elapsed := res.EndTime.Sub(res.StartTime).Round(time.Millisecond)
	var builder strings.Builder

	if report.Passed() {
		builder.WriteString(successStyle.Render(fmt.Sprintf("All %d links passed!", report.LinkCount)))
		builder.WriteString("\n")
		builder.WriteString(dimStyle.Render(fmt.Sprintf("%s in %s", bucketLine(report.Stats), elapsed)))
		builder.WriteString("\n")
		return builder.String()
	}

	grouped := make(map[result.ErrorCategory][]result.LinkResult)
	for _, link := range failing(report) {
		cat := link.ErrorType
		if cat == "" {
			cat = result.CategoryUnknown
		}
		grouped[cat] = append(grouped[cat], link)
	}

	for _, cat := range categoryOrder {
		links, exists := grouped[cat]
		if !exists || len(links) == 0 {
			continue
		}

		builder.WriteString(categoryStyle.Render(fmt.Sprintf("## %s (%d)", result.FormatCategory(cat), len(links))))
		builder.WriteString("\n")

		rows := make([][]string, 0, len(links))
		for _, link := range links {
			rows = append(rows, []string{link.TargetURI, statusText(link), link.ExpectedStatusCode.String(), foundOn(link)})
		}

		catTable := table.New().
			Border(lipgloss.RoundedBorder()).
			Headers("URL", "Status", "Expected", "Found On").
			StyleFunc(func(row, col int) lipgloss.Style {
				if row == table.HeaderRow {
					return headerStyle
				}
				if col == 1 {
					return statusErrorStyle
				}
				return urlStyle
			}).
			Rows(rows...)

		builder.WriteString(catTable.Render())
		builder.WriteString("\n\n")
	}

	builder.WriteString(titleStyle.Render(fmt.Sprintf(
		"Found %d failing links out of %d checked (%s)",
		report.FailingLinkCount,
		report.LinkCount,
		elapsed,
	)))
	builder.WriteString("\n")
	builder.WriteString(dimStyle.Render(bucketLine(report.Stats)))
	builder.WriteString("\n")

	return builder.String()
}

// failing returns the failing results, origin first.
func failing(report result.Report) []result.LinkResult {
	var out []result.LinkResult
	if o := report.OriginLinkResult; o != nil && !o.LinkPassed {
		out = append(out, *o)
	}
	for _, link := range report.FollowedLinkResults {
		if !link.LinkPassed {
			out = append(out, link)
		}
	}
	return out
}

func statusText(link result.LinkResult) string {
	if link.StatusCode != nil {
		return strconv.Itoa(*link.StatusCode)
	}
	if link.ErrorMessage != "" {
		return link.ErrorMessage
	}
	return "no response"
}

func foundOn(link result.LinkResult) string {
	if link.IsOrigin {
		return "(origin)"
	}
	return link.SourceURI
}

func bucketLine(s result.Stats) string {
	return fmt.Sprintf("2xx %d, 3xx %d, 4xx %d, 5xx %d, unreachable %d",
		s.Status2xxCount, s.Status3xxCount, s.Status4xxCount, s.Status5xxCount, s.UnreachableCount)
}
