package checker

import "github.com/lukemcguire/synthlinks/result"

// CheckEvent reports progress after each link is evaluated.
type CheckEvent struct {
	URL           string
	StatusCode    int // 0 when no response was received
	Passed        bool
	IsOrigin      bool
	Error         string
	ErrorCategory result.ErrorCategory
	Checked       int // links evaluated so far, origin included
	Failing       int // failing links so far
	Total         int // links that will be evaluated, 0 until selection is done
}
