package result

import (
	"errors"
	"fmt"
	"maps"
	"time"
)

// ErrMultipleOrigins is returned by Aggregate when more than one result is
// flagged as the origin.
var ErrMultipleOrigins = errors.New("more than one origin link result")

// Add returns s with r counted. Every result lands in exactly one of the
// 2xx..5xx buckets or in UnreachableCount.
func (s Stats) Add(r LinkResult) Stats {
	s.LinkCount++
	if r.LinkPassed {
		s.PassingLinkCount++
	} else {
		s.FailingLinkCount++
	}

	if r.StatusCode == nil {
		s.UnreachableCount++
		return s
	}
	switch *r.StatusCode / 100 {
	case 2:
		s.Status2xxCount++
	case 3:
		s.Status3xxCount++
	case 4:
		s.Status4xxCount++
	case 5:
		s.Status5xxCount++
	default:
		// 1xx and out-of-range codes have no bucket of their own.
		s.UnreachableCount++
	}
	return s
}

// Aggregate folds link results into a report. Followed results keep their
// input order. A result set without an origin yields a nil
// OriginLinkResult; more than one origin is an error.
func Aggregate(opts Options, results []LinkResult) (Report, error) {
	report := Report{
		Options:             opts,
		FollowedLinkResults: make([]LinkResult, 0, len(results)),
	}

	for i, r := range results {
		if r.IsOrigin {
			if report.OriginLinkResult != nil {
				return Report{}, fmt.Errorf("aggregate result %d (%s): %w", i, r.TargetURI, ErrMultipleOrigins)
			}
			origin := r
			report.OriginLinkResult = &origin
		} else {
			report.FollowedLinkResults = append(report.FollowedLinkResults, r)
		}
		report.Stats = report.Stats.Add(r)
	}

	return report, nil
}

// NewSyntheticResult wraps a report in the backend envelope. The end time is
// stamped now.
func NewSyntheticResult(report Report, start time.Time, metadata map[string]string) SyntheticResult {
	md := make(map[string]string, len(metadata))
	maps.Copy(md, metadata)
	return SyntheticResult{
		StartTime:         start.UTC(),
		EndTime:           time.Now().UTC(),
		RuntimeMetadata:   md,
		BrokenLinksResult: report,
	}
}
