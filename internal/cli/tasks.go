package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"github.com/git-tkc/self-assistant/internal/model"
	"github.com/git-tkc/self-assistant/internal/theme"
)

func newTasksCmd(rt *runtime) *cobra.Command {
	var (
		sourceName string
		asJSON     bool
	)
	cmd := &cobra.Command{
		Use:   "tasks",
		Short: "Run one aggregation cycle and print the merged task list",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := rt.openApp(cmd)
			if err != nil {
				return err
			}
			defer closeApp(a, cmd.ErrOrStderr())

			var result model.AggregationResult
			if sourceName != "" {
				result, err = a.Aggregator.AggregateSource(cmd.Context(), sourceName)
				if err != nil {
					return err
				}
			} else {
				result = a.Aggregator.Aggregate(cmd.Context())
			}

			if asJSON {
				return writeJSON(cmd.OutOrStdout(), result)
			}
			return writeTable(cmd.OutOrStdout(), result)
		},
	}
	cmd.Flags().StringVar(&sourceName, "source", "", "restrict the cycle to one source")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the result as JSON")
	return cmd
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encoding result: %w", err)
	}
	return nil
}

func priorityLabel(p model.Priority) string {
	switch p {
	case model.PriorityHigh:
		return "high"
	case model.PriorityMedium:
		return "medium"
	case model.PriorityLow:
		return "low"
	default:
		return strconv.Itoa(int(p))
	}
}

func writeTable(w io.Writer, result model.AggregationResult) error {
	tasks := result.Tasks
	t := table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(theme.ColorBorder)).
		Headers("SOURCE", "PRIORITY", "STATUS", "DUE", "TITLE").
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return theme.HeaderStyle.Padding(0, 1)
			}
			if row < 0 || row >= len(tasks) {
				return theme.CellStyle
			}
			task := tasks[row]
			switch col {
			case 0:
				return theme.SourceStyle(task.SourceName)
			case 1:
				return theme.PriorityStyle(task.Priority)
			case 2:
				return theme.StatusStyle(task.Status)
			default:
				return theme.CellStyle
			}
		})
	for _, task := range tasks {
		due := "-"
		if task.DueDate != nil {
			due = task.DueDate.Format("2006-01-02")
		}
		t.Row(string(task.SourceName), priorityLabel(task.Priority), string(task.Status), due, task.Title)
	}

	if _, err := fmt.Fprintln(w, t.Render()); err != nil {
		return err
	}
	fmt.Fprintf(w, "%d tasks, updated %s\n", result.TotalCount, result.LastUpdated.Format("15:04:05"))
	for _, e := range result.Errors {
		fmt.Fprintln(w, theme.ErrorStyle.Render(fmt.Sprintf("%s: %s", e.SourceName, e.ErrorMessage)))
	}
	return nil
}
