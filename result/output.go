package result

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/gocarina/gocsv"
)

// WriteJSON writes the envelope as indented JSON.
func WriteJSON(w io.Writer, res SyntheticResult) error {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(res); err != nil {
		return fmt.Errorf("write json output: %w", err)
	}
	return nil
}

// linkRow is the flat CSV shape of a LinkResult.
type linkRow struct {
	TargetURI        string `csv:"target_uri"`
	SourceURI        string `csv:"source_uri"`
	IsOrigin         bool   `csv:"is_origin"`
	LinkPassed       bool   `csv:"link_passed"`
	StatusCode       string `csv:"status_code"`
	Expected         string `csv:"expected_status_code"`
	ErrorType        string `csv:"error_type"`
	ErrorMessage     string `csv:"error_message"`
	AnchorText       string `csv:"anchor_text"`
	HTMLElement      string `csv:"html_element"`
	LinkStartTime    string `csv:"link_start_time"`
	LinkEndTime      string `csv:"link_end_time"`
	RetriesRemaining int    `csv:"retries_remaining"`
}

// WriteCSV writes one row per link, origin first. The header row is always
// written, even for an empty report.
func WriteCSV(w io.Writer, report Report) error {
	rows := make([]linkRow, 0, len(report.FollowedLinkResults)+1)
	if report.OriginLinkResult != nil {
		rows = append(rows, toRow(*report.OriginLinkResult))
	}
	for _, link := range report.FollowedLinkResults {
		rows = append(rows, toRow(link))
	}

	if err := gocsv.Marshal(&rows, w); err != nil {
		return fmt.Errorf("write csv output: %w", err)
	}
	return nil
}

func toRow(link LinkResult) linkRow {
	return linkRow{
		TargetURI:        link.TargetURI,
		SourceURI:        link.SourceURI,
		IsOrigin:         link.IsOrigin,
		LinkPassed:       link.LinkPassed,
		StatusCode:       statusCodeStr(link.StatusCode),
		Expected:         link.ExpectedStatusCode.String(),
		ErrorType:        string(link.ErrorType),
		ErrorMessage:     link.ErrorMessage,
		AnchorText:       link.AnchorText,
		HTMLElement:      link.HTMLElement,
		LinkStartTime:    formatTime(link.LinkStartTime),
		LinkEndTime:      formatTime(link.LinkEndTime),
		RetriesRemaining: link.RetriesRemaining,
	}
}

// statusCodeStr returns an empty string when there was no response.
func statusCodeStr(code *int) string {
	if code == nil {
		return ""
	}
	return strconv.Itoa(*code)
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339Nano)
}
