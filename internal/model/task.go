package model

import (
	"fmt"
	"time"
)

// SourceName identifies the origin system of a task.
type SourceName string

const (
	SourceGroupware SourceName = "groupware"
	SourceMail      SourceName = "mail"
	SourceTracker   SourceName = "project-tracker"
)

// AllSources lists every known source in registration order.
var AllSources = []SourceName{SourceGroupware, SourceMail, SourceTracker}

// ParseSourceName maps a user supplied name onto a known source.
func ParseSourceName(s string) (SourceName, error) {
	for _, name := range AllSources {
		if string(name) == s {
			return name, nil
		}
	}
	return "", fmt.Errorf("unknown source name %q", s)
}

// Status is the normalized lifecycle state of a task.
type Status string

const (
	StatusOpen       Status = "open"
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
)

// Priority is the normalized priority level (higher number = more urgent).
type Priority int

const (
	PriorityLow    Priority = 1
	PriorityMedium Priority = 2
	PriorityHigh   Priority = 3
)

// DefaultAssignee is used when a source does not name an assignee.
const DefaultAssignee = "me"

// Task is the unified representation of a work item from any source.
type Task struct {
	// ID is "<sourceName>_<sourceLocalId>" and unique within one result.
	ID string `json:"id"`

	// Title is the human-readable summary of the task.
	Title string `json:"title"`

	// Description is the body text; may be empty.
	Description string `json:"description"`

	// DueDate is absent for sources without a due-date concept.
	DueDate *time.Time `json:"dueDate,omitempty"`

	Priority Priority `json:"priority"`
	Status   Status   `json:"status"`

	// Assignee defaults to DefaultAssignee.
	Assignee string `json:"assignee,omitempty"`

	CreatedDate *time.Time `json:"createdDate,omitempty"`
	UpdatedDate *time.Time `json:"updatedDate,omitempty"`

	// URL is the deep link back to the item in its source system.
	URL string `json:"url,omitempty"`

	// SourceName is set by the aggregator at merge time.
	SourceName SourceName `json:"sourceName"`
}

// SourceError reports one source that failed during an aggregation cycle.
type SourceError struct {
	SourceName   SourceName `json:"sourceName"`
	ErrorMessage string     `json:"errorMessage"`
}

// AggregationResult is the envelope handed to the presentation layer.
type AggregationResult struct {
	Tasks []Task `json:"tasks"`

	// Errors is nil when every source succeeded.
	Errors      []SourceError `json:"errors"`
	TotalCount  int           `json:"totalCount"`
	LastUpdated time.Time     `json:"lastUpdated"`
}

// ProbeResult is the outcome of a connectivity check against one source.
type ProbeResult struct {
	SourceName SourceName `json:"sourceName"`
	Connected  bool       `json:"connected"`
	Message    string     `json:"message,omitempty"`
	Error      string     `json:"error,omitempty"`
}
