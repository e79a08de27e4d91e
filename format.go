package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/lithammer/dedent"

	isync "github.com/osmoscraft/osmosync/internal/sync"
)

var (
	colorOK      = color.New(color.FgGreen, color.Bold)
	colorSkipped = color.New(color.FgYellow)
	colorError   = color.New(color.FgRed, color.Bold)
	colorHeading = color.New(color.FgCyan, color.Bold)
)

// statusf prints a status message to stderr unless quiet mode is set.
func statusf(quiet bool, format string, args ...any) {
	if !quiet {
		fmt.Fprintf(os.Stderr, format, args...)
	}
}

// examples trims the common indentation from a cobra Example block.
func examples(s string) string {
	return strings.Trim(dedent.Dedent(s), "\n")
}

// statusColor returns the color used for a result status.
func statusColor(s isync.Status) *color.Color {
	switch s {
	case isync.StatusOK:
		return colorOK
	case isync.StatusSkipped:
		return colorSkipped
	default:
		return colorError
	}
}

// formatCounts renders counts as "1 imported, 2 created, 0 updated, 0 removed".
func formatCounts(c isync.Counts) string {
	return fmt.Sprintf("%d imported, %d created, %d updated, %d removed",
		c.Imported, c.Created, c.Updated, c.Removed)
}

// printResult writes a one-line human summary of res.
func printResult(w io.Writer, res isync.Result) {
	label := statusColor(res.Status).Sprint(strings.ToUpper(string(res.Status)))

	msg := res.Message
	if msg == "" {
		msg = formatCounts(res.Counts)
	} else if !res.Counts.Zero() {
		msg += " (" + formatCounts(res.Counts) + ")"
	}

	fmt.Fprintf(w, "%s  %s\n", label, msg)
}

// printJSON writes v as indented JSON.
func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")

	return enc.Encode(v)
}

// formatTime returns a compact timestamp for display.
func formatTime(t time.Time) string {
	now := time.Now()

	if t.Year() == now.Year() {
		return t.Format("Jan _2 15:04")
	}

	return t.Format("Jan _2  2006")
}

// printTable writes aligned columns to the given writer.
// headers and each row must have the same length.
func printTable(w io.Writer, headers []string, rows [][]string) {
	widths := make([]int, len(headers))
	for i, h := range headers {
		widths[i] = len(h)
	}

	for _, row := range rows {
		for i, cell := range row {
			if len(cell) > widths[i] {
				widths[i] = len(cell)
			}
		}
	}

	printRow(w, headers, widths)

	for _, row := range rows {
		printRow(w, row, widths)
	}
}

// printRow writes a single padded row.
func printRow(w io.Writer, cells []string, widths []int) {
	parts := make([]string, len(cells))
	for i, cell := range cells {
		parts[i] = fmt.Sprintf("%-*s", widths[i], cell)
	}

	fmt.Fprintln(w, strings.TrimRight(strings.Join(parts, "  "), " "))
}

// planAction is one line of a sync preview.
type planAction struct {
	Action string `json:"action"`
	Title  string `json:"title"`
	URL    string `json:"url"`
}

// Preview action labels, in the order a sync applies them.
const (
	actionImport = "import"
	actionCreate = "create"
	actionRename = "rename"
	actionRemove = "remove"
)

func planActions(p isync.Plan) []planAction {
	actions := make([]planAction, 0,
		len(p.Import)+len(p.Projection.Create)+len(p.Projection.Update)+len(p.Projection.Remove))

	for _, e := range p.Import {
		actions = append(actions, planAction{actionImport, e.Title, e.Href})
	}

	for _, e := range p.Projection.Create {
		actions = append(actions, planAction{actionCreate, e.Title, e.Href})
	}

	for _, u := range p.Projection.Update {
		actions = append(actions, planAction{actionRename, u.Title, u.Href})
	}

	for _, b := range p.Projection.Remove {
		actions = append(actions, planAction{actionRemove, b.Title, b.URL})
	}

	return actions
}

// printPlan lists preview actions as a table.
func printPlan(w io.Writer, actions []planAction) {
	if len(actions) == 0 {
		fmt.Fprintln(w, isync.MsgInSync)

		return
	}

	rows := make([][]string, len(actions))
	for i, a := range actions {
		rows[i] = []string{a.Action, a.Title, a.URL}
	}

	printTable(w, []string{"ACTION", "TITLE", "URL"}, rows)
}
