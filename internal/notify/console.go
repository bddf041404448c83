package notify

import (
	"context"
	"fmt"
	"io"
	"slices"
	"strings"

	"github.com/git-tkc/self-assistant/internal/model"
	"github.com/git-tkc/self-assistant/internal/theme"
)

// Console prints each summary as a bordered box.
type Console struct {
	w io.Writer
}

// NewConsole writes summaries to w.
func NewConsole(w io.Writer) *Console {
	return &Console{w: w}
}

// Notify renders summary to the console writer.
func (c *Console) Notify(_ context.Context, summary model.Summary) error {
	_, err := fmt.Fprintln(c.w, RenderSummary(summary))
	return err
}

// RenderSummary formats a summary as a bordered box listing the total
// and one line per source, with failed sources marked.
func RenderSummary(summary model.Summary) string {
	lines := []string{theme.HeaderStyle.Render(fmt.Sprintf("Tasks refreshed: %d", summary.Total))}
	for _, name := range summarySources(summary) {
		if summary.Failed(name) {
			lines = append(lines, fmt.Sprintf("%s: %s", name, theme.ErrorStyle.Render("✗")))
			continue
		}
		lines = append(lines, fmt.Sprintf("%s: %d", name, summary.PerSourceCount[name]))
	}
	return theme.BoxStyle.Render(strings.Join(lines, "\n"))
}

// summarySources lists the sources mentioned in summary, known sources
// first in registration order.
func summarySources(summary model.Summary) []model.SourceName {
	present := make(map[model.SourceName]bool)
	for name := range summary.PerSourceCount {
		present[name] = true
	}
	for name := range summary.PerSourceError {
		present[name] = true
	}

	var names []model.SourceName
	for _, name := range model.AllSources {
		if present[name] {
			names = append(names, name)
			delete(present, name)
		}
	}
	var extra []model.SourceName
	for name := range present {
		extra = append(extra, name)
	}
	slices.Sort(extra)
	return append(names, extra...)
}

// Describe returns a one-line summary suitable for the journal.
func Describe(summary model.Summary) string {
	parts := make([]string, 0, len(summary.PerSourceError))
	for _, name := range summarySources(summary) {
		if summary.Failed(name) {
			parts = append(parts, fmt.Sprintf("%s failed", name))
		} else {
			parts = append(parts, fmt.Sprintf("%s %d", name, summary.PerSourceCount[name]))
		}
	}
	if len(parts) == 0 {
		return fmt.Sprintf("Refreshed %d tasks", summary.Total)
	}
	return fmt.Sprintf("Refreshed %d tasks (%s)", summary.Total, strings.Join(parts, ", "))
}
