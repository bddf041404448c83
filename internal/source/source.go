package source

import (
	"context"
	"strconv"
	"time"

	"github.com/git-tkc/self-assistant/internal/credential"
	"github.com/git-tkc/self-assistant/internal/model"
)

// Adapter defines the contract that every external integration implements.
type Adapter interface {
	// Name returns the source this adapter fetches from.
	Name() model.SourceName

	// Fetch returns the current open or unread items in the source's
	// native shape. Implementations cap the number of records and
	// return *Error values for failures.
	Fetch(ctx context.Context, creds credential.Set) ([]Record, error)

	// Probe attempts a minimal authenticated call for diagnostics.
	Probe(ctx context.Context, creds credential.Set) model.ProbeResult
}

// Record is one raw item in the shape of the source that produced it.
// The concrete types below are the only implementations.
type Record interface {
	// Origin is the source that produced the record.
	Origin() model.SourceName

	// LocalID is the identifier of the item within its source.
	LocalID() string

	isRecord()
}

// GroupwareRecord is one notification row scraped from the portal.
type GroupwareRecord struct {
	Index int
	Title string

	// Date is the row's date text as displayed, possibly empty.
	Date string

	// URL is already absolute.
	URL string

	// FetchedAt is when the listing page was read.
	FetchedAt time.Time
}

// MailRecord is one unread message's metadata.
type MailRecord struct {
	ID string

	// Subject, From and Date hold raw header values.
	Subject string
	From    string
	Date    string

	// URL is the web link to the message, empty for IMAP mailboxes.
	URL string
}

// TrackerRecord is one incomplete task assigned to the user.
type TrackerRecord struct {
	GID       string
	Name      string
	Notes     string
	DueOn     string
	DueAt     string
	Completed bool

	// Priority is the enum value of a "Priority" custom field, if any.
	Priority string

	AssigneeName string
	CreatedAt    string
	ModifiedAt   string
	PermalinkURL string
}

// GenericRecord carries loosely shaped items for sources without a
// dedicated variant. Candidate fields are resolved in a fixed order.
type GenericRecord struct {
	Source model.SourceName
	ID     string

	Title   string
	Subject string
	Name    string

	Description string
	Body        string
	Notes       string

	DueDate  string
	Priority string
	Status   string
	Assignee string

	CreatedDate string
	UpdatedDate string
	URL         string
}

func (GroupwareRecord) Origin() model.SourceName { return model.SourceGroupware }
func (MailRecord) Origin() model.SourceName      { return model.SourceMail }
func (TrackerRecord) Origin() model.SourceName   { return model.SourceTracker }
func (g GenericRecord) Origin() model.SourceName { return g.Source }

func (g GroupwareRecord) LocalID() string { return "notification_" + strconv.Itoa(g.Index) }
func (m MailRecord) LocalID() string      { return m.ID }
func (t TrackerRecord) LocalID() string   { return t.GID }
func (g GenericRecord) LocalID() string   { return g.ID }

func (GroupwareRecord) isRecord() {}
func (MailRecord) isRecord()      {}
func (TrackerRecord) isRecord()   {}
func (GenericRecord) isRecord()   {}
