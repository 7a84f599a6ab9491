// Package doctor runs diagnostic checks against a chat deployment.
package doctor

import (
	"context"
	"time"
)

// Status represents the result status of a check item.
type Status int

const (
	StatusPass Status = iota
	StatusWarn
	StatusFail
)

func (s Status) String() string {
	switch s {
	case StatusPass:
		return "pass"
	case StatusWarn:
		return "warn"
	case StatusFail:
		return "fail"
	default:
		return "unknown"
	}
}

// CheckItem is a single line within a check result.
type CheckItem struct {
	Label  string `json:"label"`
	Status Status `json:"-"`
	Detail string `json:"detail,omitempty"`

	// For JSON output
	StatusStr string `json:"status"`
}

// Result is the outcome of one check.
type Result struct {
	Name     string        `json:"name"`
	Items    []CheckItem   `json:"items"`
	Duration time.Duration `json:"duration_ns"`
}

// Check defines the interface for a doctor check.
type Check interface {
	Name() string
	Run(ctx context.Context) Result
}

// RunAll executes all checks in order, bounding each by timeout.
func RunAll(ctx context.Context, timeout time.Duration, checks []Check) []Result {
	results := make([]Result, 0, len(checks))
	for _, check := range checks {
		start := time.Now()

		checkCtx, cancel := context.WithTimeout(ctx, timeout)
		result := check.Run(checkCtx)
		cancel()

		result.Duration = time.Since(start)
		for i := range result.Items {
			result.Items[i].StatusStr = result.Items[i].Status.String()
		}
		results = append(results, result)
	}
	return results
}

// Summary returns counts of passed, warned, and failed items across all results.
func Summary(results []Result) (passed, warned, failed int) {
	for _, r := range results {
		for _, item := range r.Items {
			switch item.Status {
			case StatusPass:
				passed++
			case StatusWarn:
				warned++
			case StatusFail:
				failed++
			}
		}
	}
	return
}

func pass(label, detail string) CheckItem {
	return CheckItem{Label: label, Status: StatusPass, Detail: detail}
}

func warn(label, detail string) CheckItem {
	return CheckItem{Label: label, Status: StatusWarn, Detail: detail}
}

func fail(label string, err error) CheckItem {
	return CheckItem{Label: label, Status: StatusFail, Detail: err.Error()}
}
