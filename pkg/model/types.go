package model

import "fmt"

// Endpoint is one candidate mirror, identified by its base URL.
// The region tag is informational only.
type Endpoint struct {
	URL    string
	Region string
}

// ProbeStatus is the terminal classification of a single probe attempt.
type ProbeStatus int

const (
	StatusUnreachable ProbeStatus = iota
	StatusIncompleteTransfer
	StatusHTTPError
	StatusSuccess
)

func (s ProbeStatus) String() string {
	switch s {
	case StatusUnreachable:
		return "UNREACHABLE"
	case StatusIncompleteTransfer:
		return "INCOMPLETE"
	case StatusHTTPError:
		return "HTTP_ERROR"
	case StatusSuccess:
		return "OK"
	default:
		return "UNKNOWN"
	}
}

// ProbeOutcome is the result of probing one Endpoint exactly once.
// It is created by the prober and never mutated afterwards.
type ProbeOutcome struct {
	Endpoint Endpoint
	Status   ProbeStatus

	// Set on Success (StatusCode also on HTTPError).
	StatusCode       int
	BytesTransferred int64
	ElapsedSeconds   float64
	SpeedBps         float64 // canonical unit: bytes per second

	// Set on any non-success status.
	Reason string
}

// Success reports whether the probe completed a valid timed transfer.
func (o ProbeOutcome) Success() bool {
	return o.Status == StatusSuccess
}

// SpeedMbps converts the canonical bytes/sec speed to megabits per second
// for display and threshold comparison.
func (o ProbeOutcome) SpeedMbps() float64 {
	return o.SpeedBps * 8 / 1e6
}

// Describe renders a short one-line result for progress output and logs.
func (o ProbeOutcome) Describe() string {
	if o.Success() {
		return fmt.Sprintf("OK %.2f Mbps (%.2fs, %d bytes)", o.SpeedMbps(), o.ElapsedSeconds, o.BytesTransferred)
	}
	if o.Status == StatusHTTPError {
		return fmt.Sprintf("%s %d: %s", o.Status, o.StatusCode, o.Reason)
	}
	return fmt.Sprintf("%s: %s", o.Status, o.Reason)
}

// RunSummary aggregates all outcomes of one benchmark run.
type RunSummary struct {
	Probed    int
	Succeeded int
	Failed    int
	BestBps   float64
	MeanBps   float64
	Quality   string // Slow / Moderate / Good, "" when nothing succeeded
	// ParallelHint is the recommended parallel download count for the
	// downstream package manager.
	ParallelHint int
}

// BestMbps returns the best observed speed in megabits per second.
func (s RunSummary) BestMbps() float64 { return s.BestBps * 8 / 1e6 }

// MeanMbps returns the mean speed over successful probes in megabits per second.
func (s RunSummary) MeanMbps() float64 { return s.MeanBps * 8 / 1e6 }
