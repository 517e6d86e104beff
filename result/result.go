// Package result holds the link check data model: extracted links, per-link
// results, the aggregate report and the envelope handed to a monitoring
// backend, plus the writers that render them.
package result

import (
	"time"

	"github.com/lukemcguire/synthlinks/status"
)

// Link is one candidate link extracted from the origin page.
type Link struct {
	TargetURI   string `json:"target_uri"`   // Absolute URL the link points at
	AnchorText  string `json:"anchor_text"`  // Trimmed text content of the element
	HTMLElement string `json:"html_element"` // Lower-case tag name, e.g. "a"
}

// LinkResult is the outcome of fully evaluating one link, origin or followed.
type LinkResult struct {
	LinkPassed         bool               `json:"link_passed"`
	ExpectedStatusCode status.Expectation `json:"expected_status_code"`
	SourceURI          string             `json:"source_uri"`
	TargetURI          string             `json:"target_uri"`
	HTMLElement        string             `json:"html_element"`
	AnchorText         string             `json:"anchor_text"`
	StatusCode         *int               `json:"status_code"` // nil when no response was received
	ErrorType          ErrorCategory      `json:"error_type,omitempty"`
	ErrorMessage       string             `json:"error_message,omitempty"`
	LinkStartTime      time.Time          `json:"link_start_time"`
	LinkEndTime        time.Time          `json:"link_end_time"`
	IsOrigin           bool               `json:"is_origin"`
	RetriesRemaining   int                `json:"retries_remaining"`
}

// Stats are the summary counters of a report.
type Stats struct {
	LinkCount        int `json:"link_count"`
	PassingLinkCount int `json:"passing_link_count"`
	FailingLinkCount int `json:"failing_link_count"`
	UnreachableCount int `json:"unreachable_count"`
	Status2xxCount   int `json:"status2xx_count"`
	Status3xxCount   int `json:"status3xx_count"`
	Status4xxCount   int `json:"status4xx_count"`
	Status5xxCount   int `json:"status5xx_count"`
}

// Report is the aggregate of one scan.
type Report struct {
	Stats
	Options             Options      `json:"options"`
	OriginLinkResult    *LinkResult  `json:"origin_link_result"` // nil when no origin result was aggregated
	FollowedLinkResults []LinkResult `json:"followed_link_results"`
}

// Passed reports whether every aggregated link passed.
func (r Report) Passed() bool {
	return r.FailingLinkCount == 0
}

// SyntheticResult is the envelope consumed by the monitoring backend.
type SyntheticResult struct {
	StartTime         time.Time         `json:"start_time"`
	EndTime           time.Time         `json:"end_time"`
	RuntimeMetadata   map[string]string `json:"runtime_metadata"`
	BrokenLinksResult Report            `json:"synthetic_broken_links_result_v1"`
}
