package commands

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/huh/spinner"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
)

// StatusBox renders a titled box of label/value rows.
//
//	StatusBox("Wallet", [][2]string{{"Account", "0xabc..."}, {"Chain ID", "31337"}})
func StatusBox(title string, fields [][2]string) string {
	if !isTTY() {
		var sb strings.Builder
		fmt.Fprintf(&sb, "%s\n%s\n", title, strings.Repeat("=", len(title)))
		for _, f := range fields {
			fmt.Fprintf(&sb, "%-16s %s\n", f[0]+":", f[1])
		}
		return sb.String()
	}

	lines := []string{StyleHeader.Render(title)}
	for _, f := range fields {
		lines = append(lines, StyleLabel.Render(f[0])+StyleValue.Render(f[1]))
	}
	return StyleBox.Render(lipgloss.JoinVertical(lipgloss.Left, lines...))
}

// RenderTable renders rows under headers. Without a terminal the table is
// drawn as markdown so it stays readable in logs and pipes.
func RenderTable(headers []string, rows [][]string) string {
	t := table.New().Headers(headers...).Rows(rows...)

	if !isTTY() {
		return t.Border(lipgloss.MarkdownBorder()).
			BorderTop(false).
			BorderBottom(false).
			String()
	}

	return t.Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(ColorDim)).
		StyleFunc(func(row, col int) lipgloss.Style {
			switch {
			case row == table.HeaderRow:
				return StyleTableHeader
			case row%2 == 0:
				return StyleTableRow
			}
			return StyleTableRowAlt
		}).
		String()
}

type noticeKind int

const (
	noticeSuccess noticeKind = iota
	noticeError
	noticeWarning
	noticeInfo
)

var notices = map[noticeKind]struct {
	tag   string
	style *lipgloss.Style
}{
	noticeSuccess: {"[OK]", &StyleSuccess},
	noticeError:   {"[ERROR]", &StyleError},
	noticeWarning: {"[WARN]", &StyleWarning},
	noticeInfo:    {"[INFO]", &StyleInfo},
}

func notice(kind noticeKind, msg string) {
	n := notices[kind]
	if !isTTY() {
		fmt.Println(n.tag + " " + msg)
		return
	}
	fmt.Println(n.style.Render("  " + msg))
}

// Success prints a confirmation line
func Success(msg string) { notice(noticeSuccess, msg) }

// Error prints an error line
func Error(msg string) { notice(noticeError, msg) }

// Warning prints a warning line
func Warning(msg string) { notice(noticeWarning, msg) }

// Info prints an informational line
func Info(msg string) { notice(noticeInfo, msg) }

// WithSpinner runs fn behind a spinner titled msg while it waits on the
// chain, and returns fn's error.
func WithSpinner(msg string, fn func() error) error {
	if !isTTY() {
		fmt.Printf("%s...\n", msg)
		return fn()
	}

	var fnErr error
	if err := spinner.New().Title(msg).Action(func() { fnErr = fn() }).Run(); err != nil {
		return err
	}
	return fnErr
}

// abbreviate keeps head and tail characters of s around an ellipsis
func abbreviate(s string, head, tail int) string {
	if len(s) <= head+tail+2 {
		return s
	}
	return s[:head] + "..." + s[len(s)-tail:]
}

// FormatAddress shortens an account address for prompts
func FormatAddress(addr string) string { return abbreviate(addr, 6, 4) }

// FormatHash shortens a transaction hash
func FormatHash(hash string) string { return abbreviate(hash, 10, 6) }

// SectionHeader renders a section title
func SectionHeader(title string) string {
	if !isTTY() {
		return "\n" + title + "\n" + strings.Repeat("-", len(title))
	}
	return "\n" + StyleSubheader.Render(title)
}

// KeyValue renders one aligned label/value line
func KeyValue(key, value string) string {
	if !isTTY() {
		return fmt.Sprintf("  %-16s %s", key+":", value)
	}
	return "  " + StyleLabel.Render(key) + StyleValue.Render(value)
}

// Hint renders a dim suggestion
func Hint(msg string) string {
	if !isTTY() {
		return "  " + msg
	}
	return "  " + StyleDim.Render(msg)
}
