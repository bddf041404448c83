package tracker

// envelope wraps every successful response body.
type envelope[T any] struct {
	Data T `json:"data"`
}

// Workspace is a top-level tracker workspace.
type Workspace struct {
	GID  string `json:"gid"`
	Name string `json:"name"`
}

// User is the authenticated account returned by /users/me.
type User struct {
	GID        string      `json:"gid"`
	Name       string      `json:"name"`
	Email      string      `json:"email"`
	Workspaces []Workspace `json:"workspaces"`
}

// EnumValue is the selected option of an enum custom field.
type EnumValue struct {
	GID  string `json:"gid"`
	Name string `json:"name"`
}

// CustomField is one custom field value attached to a task.
type CustomField struct {
	GID          string     `json:"gid"`
	Name         string     `json:"name"`
	EnumValue    *EnumValue `json:"enum_value"`
	DisplayValue string     `json:"display_value"`
}

// Assignee is the compact user attached to a task.
type Assignee struct {
	GID  string `json:"gid"`
	Name string `json:"name"`
}

// Task is one task as serialized by the REST API.
type Task struct {
	GID          string        `json:"gid"`
	Name         string        `json:"name"`
	Notes        string        `json:"notes"`
	DueOn        string        `json:"due_on"`
	DueAt        string        `json:"due_at"`
	Completed    bool          `json:"completed"`
	Assignee     *Assignee     `json:"assignee"`
	CreatedAt    string        `json:"created_at"`
	ModifiedAt   string        `json:"modified_at"`
	PermalinkURL string        `json:"permalink_url"`
	CustomFields []CustomField `json:"custom_fields"`
}

// ErrorResponse is the body of a failed request.
type ErrorResponse struct {
	Errors []struct {
		Message string `json:"message"`
		Help    string `json:"help,omitempty"`
	} `json:"errors"`
}

// Message joins the error messages in the response.
func (e *ErrorResponse) Message() string {
	if e == nil || len(e.Errors) == 0 {
		return ""
	}
	msg := e.Errors[0].Message
	for _, item := range e.Errors[1:] {
		msg += "; " + item.Message
	}
	return msg
}

// taskFields are the fields requested for every listed task.
const taskFields = "gid,name,notes,due_on,due_at,completed,assignee.name," +
	"created_at,modified_at,permalink_url," +
	"custom_fields.name,custom_fields.enum_value.name,custom_fields.display_value"
