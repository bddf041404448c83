package model

import "time"

// Summary is emitted once per aggregation cycle for notification
// subscribers. It is never awaited by the aggregation caller.
type Summary struct {
	// CycleID correlates the summary with the cycle's log lines.
	CycleID string `json:"cycleId"`

	Total          int                   `json:"total"`
	PerSourceCount map[SourceName]int    `json:"perSourceCount"`
	PerSourceError map[SourceName]bool   `json:"perSourceErrorFlags"`
	ErrorMessages  map[SourceName]string `json:"errorMessages,omitempty"`
	CompletedAt    time.Time             `json:"completedAt"`
}

// Failed reports whether the named source failed in this cycle.
func (s Summary) Failed(name SourceName) bool {
	return s.PerSourceError[name]
}
