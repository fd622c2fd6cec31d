package doctor

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Output writes the human-readable doctor report
type Output struct {
	w      io.Writer
	styles map[Status]lipgloss.Style
	title  lipgloss.Style
	hint   lipgloss.Style
	color  bool
}

var statusIcons = map[Status]string{
	StatusOK:      "✓",
	StatusWarning: "!",
	StatusError:   "✗",
	StatusSkipped: "-",
}

// NewOutput creates an Output writing to w. Styles render only when
// useColors is set.
func NewOutput(w io.Writer, useColors bool) *Output {
	if w == nil {
		w = os.Stdout
	}
	r := lipgloss.NewRenderer(w)
	return &Output{
		w:     w,
		color: useColors,
		styles: map[Status]lipgloss.Style{
			StatusOK:      r.NewStyle().Foreground(lipgloss.Color("#10B981")),
			StatusWarning: r.NewStyle().Foreground(lipgloss.Color("#F59E0B")),
			StatusError:   r.NewStyle().Foreground(lipgloss.Color("#EF4444")),
			StatusSkipped: r.NewStyle().Faint(true),
		},
		title: r.NewStyle().Bold(true),
		hint:  r.NewStyle().Faint(true),
	}
}

func (o *Output) render(s lipgloss.Style, text string) string {
	if !o.color {
		return text
	}
	return s.Render(text)
}

// Header prints the report title
func (o *Output) Header() {
	const title = "vestake doctor"
	fmt.Fprintf(o.w, "\n%s\n%s\n\n", o.render(o.title, title), strings.Repeat("=", len(title)))
}

// CheckStart announces check index of total
func (o *Output) CheckStart(index, total int, name string) {
	fmt.Fprintf(o.w, "[%d/%d] Checking %s...\n", index, total, name)
}

// CheckResult prints one result with its details and fix hint
func (o *Output) CheckResult(result CheckResult) {
	icon := o.render(o.styles[result.Status], statusIcons[result.Status])
	fmt.Fprintf(o.w, "  %s %s\n", icon, result.Message)
	if result.Details != "" {
		fmt.Fprintf(o.w, "    %s\n", o.render(o.hint, result.Details))
	}
	if result.Status == StatusError && result.FixCommand != "" {
		fmt.Fprintf(o.w, "    Fix: %s\n", result.FixCommand)
	}
}

// Summary prints the totals line
func (o *Output) Summary(s Summary) {
	parts := []string{
		o.render(o.styles[StatusOK], fmt.Sprintf("%d passed", s.Passed)),
		fmt.Sprintf("%d failed", s.Failed),
	}
	if s.Failed > 0 {
		parts[1] = o.render(o.styles[StatusError], parts[1])
	}
	if s.Warned > 0 {
		parts = append(parts, o.render(o.styles[StatusWarning], fmt.Sprintf("%d warnings", s.Warned)))
	}
	if s.Skipped > 0 {
		parts = append(parts, o.render(o.styles[StatusSkipped], fmt.Sprintf("%d skipped", s.Skipped)))
	}
	fmt.Fprintf(o.w, "\nSummary: %s\n", strings.Join(parts, ", "))
}
