// Package normalize maps raw source records onto the unified Task.
// Every function here is pure: the same record always yields the same
// Task, and nothing reads the clock or the network.
package normalize

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	_ "github.com/emersion/go-message/charset"
	"github.com/emersion/go-message/mail"

	"github.com/git-tkc/self-assistant/internal/model"
	"github.com/git-tkc/self-assistant/internal/source"
)

// Fallback text for records without a usable title.
const (
	UntitledTask   = "Untitled"
	NoSubject      = "No Subject"
	UnknownSender  = "Unknown"
	defaultGeneric = model.PriorityLow
)

// Policy defaults for sources without a priority concept of their own.
// These differ from the generic default on purpose.
const (
	GroupwarePriority      = model.PriorityMedium
	MailPriority           = model.PriorityMedium
	TrackerDefaultPriority = model.PriorityMedium
)

// Task maps one record to a Task. The ID is the record's local id;
// the aggregator qualifies it with the source name.
func Task(rec source.Record) model.Task {
	switch r := rec.(type) {
	case source.GroupwareRecord:
		return groupwareTask(r)
	case source.MailRecord:
		return mailTask(r)
	case source.TrackerRecord:
		return trackerTask(r)
	case source.GenericRecord:
		return genericTask(r)
	default:
		return model.Task{
			ID:       rec.LocalID(),
			Title:    UntitledTask,
			Priority: defaultGeneric,
			Status:   model.StatusOpen,
			Assignee: model.DefaultAssignee,
		}
	}
}

// Priority maps a named or numeric level onto the 1..3 scale. Anything
// else, including an empty value, yields fallback.
func Priority(raw string, fallback model.Priority) model.Priority {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "high", "3":
		return model.PriorityHigh
	case "medium", "2":
		return model.PriorityMedium
	case "low", "1":
		return model.PriorityLow
	default:
		return fallback
	}
}

// Status maps a raw status onto the three normalized states. Anything
// unrecognized is open.
func Status(raw string) model.Status {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "in_progress":
		return model.StatusInProgress
	case "completed", "done", "closed":
		return model.StatusCompleted
	default:
		return model.StatusOpen
	}
}

func genericTask(r source.GenericRecord) model.Task {
	return model.Task{
		ID:          r.ID,
		Title:       firstNonEmpty(UntitledTask, r.Title, r.Subject, r.Name),
		Description: firstNonEmpty("", r.Description, r.Body, r.Notes),
		DueDate:     ParseTime(r.DueDate),
		Priority:    Priority(r.Priority, defaultGeneric),
		Status:      Status(r.Status),
		Assignee:    firstNonEmpty(model.DefaultAssignee, r.Assignee),
		CreatedDate: ParseTime(r.CreatedDate),
		UpdatedDate: ParseTime(r.UpdatedDate),
		URL:         r.URL,
	}
}

func groupwareTask(r source.GroupwareRecord) model.Task {
	seen := groupwareDate(r.Date, r.FetchedAt)
	return model.Task{
		ID:          r.LocalID(),
		Title:       firstNonEmpty(UntitledTask, r.Title),
		Priority:    GroupwarePriority,
		Status:      model.StatusOpen,
		Assignee:    model.DefaultAssignee,
		CreatedDate: seen,
		UpdatedDate: seen,
		URL:         r.URL,
	}
}

func mailTask(r source.MailRecord) model.Task {
	var h mail.Header
	h.Set("Subject", r.Subject)
	h.Set("From", r.From)
	h.Set("Date", r.Date)

	subject, err := h.Subject()
	if err != nil {
		subject = r.Subject
	}
	from, err := h.Text("From")
	if err != nil {
		from = r.From
	}

	var sent *time.Time
	if t, err := h.Date(); err == nil && !t.IsZero() {
		sent = &t
	}

	return model.Task{
		ID:          r.ID,
		Title:       firstNonEmpty(NoSubject, subject),
		Description: "From: " + firstNonEmpty(UnknownSender, from),
		Priority:    MailPriority,
		Status:      model.StatusOpen,
		Assignee:    model.DefaultAssignee,
		CreatedDate: sent,
		UpdatedDate: sent,
		URL:         r.URL,
	}
}

func trackerTask(r source.TrackerRecord) model.Task {
	status := model.StatusOpen
	if r.Completed {
		status = model.StatusCompleted
	}

	due := ParseTime(r.DueAt)
	if due == nil {
		due = ParseTime(r.DueOn)
	}

	return model.Task{
		ID:          r.GID,
		Title:       firstNonEmpty(UntitledTask, r.Name),
		Description: r.Notes,
		DueDate:     due,
		Priority:    Priority(r.Priority, TrackerDefaultPriority),
		Status:      status,
		Assignee:    firstNonEmpty(model.DefaultAssignee, r.AssigneeName),
		CreatedDate: ParseTime(r.CreatedAt),
		UpdatedDate: ParseTime(r.ModifiedAt),
		URL:         r.PermalinkURL,
	}
}

// timeLayouts are tried in order by ParseTime.
var timeLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05.000-0700",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
	time.RFC1123Z,
	time.RFC1123,
}

// ParseTime coerces a source timestamp into a time. It returns nil for
// empty or unparseable input.
func ParseTime(s string) *time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return &t
		}
	}
	return nil
}

// groupwareLayouts cover the portal's full date display forms.
var groupwareLayouts = []string{
	"2006/01/02 15:04",
	"2006/1/2 15:04",
	"2006/01/02",
	"2006/1/2",
}

// groupwareDate reads a displayed portal date. Short forms such as
// "1/2(木) 10:30" borrow the year from fetchedAt. Unparseable text falls
// back to fetchedAt itself.
func groupwareDate(display string, fetchedAt time.Time) *time.Time {
	loc := fetchedAt.Location()
	text := stripWeekday(strings.TrimSpace(display))

	if text != "" {
		for _, layout := range groupwareLayouts {
			if t, err := time.ParseInLocation(layout, text, loc); err == nil {
				return &t
			}
		}
		if t, ok := shortDate(text, fetchedAt); ok {
			return &t
		}
	}

	if fetchedAt.IsZero() {
		return nil
	}
	t := fetchedAt
	return &t
}

// weekdayPattern matches a parenthesized weekday such as "(木)" or "(Thu)".
var weekdayPattern = regexp.MustCompile(`[(（][^)）]*[)）]`)

func stripWeekday(s string) string {
	return strings.Join(strings.Fields(weekdayPattern.ReplaceAllString(s, " ")), " ")
}

// shortDate parses "M/D" or "M/D HH:MM" in the year of ref.
func shortDate(s string, ref time.Time) (time.Time, bool) {
	datePart, clock, _ := strings.Cut(s, " ")
	month, day, ok := strings.Cut(datePart, "/")
	if !ok {
		return time.Time{}, false
	}
	m, err1 := strconv.Atoi(month)
	d, err2 := strconv.Atoi(day)
	if err1 != nil || err2 != nil || m < 1 || m > 12 || d < 1 || d > 31 {
		return time.Time{}, false
	}

	hour, minute := 0, 0
	if clock != "" {
		c, err := time.Parse("15:04", clock)
		if err != nil {
			return time.Time{}, false
		}
		hour, minute = c.Hour(), c.Minute()
	}
	return time.Date(ref.Year(), time.Month(m), d, hour, minute, 0, 0, ref.Location()), true
}

func firstNonEmpty(fallback string, candidates ...string) string {
	for _, c := range candidates {
		if strings.TrimSpace(c) != "" {
			return c
		}
	}
	return fallback
}
