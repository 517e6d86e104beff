package result

import (
	"fmt"
	"io"

	"github.com/rodaine/table"
)

// PrintResults writes a plain-text table of every checked link and a summary
// line to w.
func PrintResults(w io.Writer, res SyntheticResult) {
	writef := func(format string, a ...any) { _, _ = fmt.Fprintf(w, format, a...) }
	report := res.BrokenLinksResult

	if report.LinkCount == 0 {
		writef("No links checked\n")
		return
	}

	tbl := table.New("Link", "Status", "Expected", "Result", "Found On").WithWriter(w)
	if report.OriginLinkResult != nil {
		addRow(tbl, *report.OriginLinkResult)
	}
	for _, link := range report.FollowedLinkResults {
		addRow(tbl, link)
	}
	tbl.Print()

	writef("\nChecked %d links: %d passing, %d failing, %d unreachable (%s)\n",
		report.LinkCount,
		report.PassingLinkCount,
		report.FailingLinkCount,
		report.UnreachableCount,
		res.EndTime.Sub(res.StartTime).Round(1_000_000),
	)
}

func addRow(tbl table.Table, link LinkResult) {
	statusText := statusCodeStr(link.StatusCode)
	if statusText == "" {
		statusText = string(link.ErrorType)
	}
	verdict := "FAIL"
	if link.LinkPassed {
		verdict = "ok"
	}
	source := link.SourceURI
	if link.IsOrigin {
		source = "(origin)"
	}
	tbl.AddRow(link.TargetURI, statusText, link.ExpectedStatusCode.String(), verdict, source)
}
