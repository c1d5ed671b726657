package cli

import (
	"os"

	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"
)

// stdoutIsTerminal reports whether stdout is attached to a terminal.
// Styling is disabled for piped output.
var stdoutIsTerminal = term.IsTerminal(int(os.Stdout.Fd()))

var (
	moduleNameStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	subModuleStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("14"))
	dimStyle        = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	confidenceStyle = map[string]lipgloss.Style{
		"high":   lipgloss.NewStyle().Foreground(lipgloss.Color("10")),
		"medium": lipgloss.NewStyle().Foreground(lipgloss.Color("11")),
		"low":    lipgloss.NewStyle().Foreground(lipgloss.Color("9")),
	}
)

// styled renders text with the given style when stdout is a terminal,
// otherwise returns it unchanged.
func styled(style lipgloss.Style, text string) string {
	if !stdoutIsTerminal {
		return text
	}
	return style.Render(text)
}

// styledConfidence renders a confidence grade with its colour.
func styledConfidence(grade string) string {
	style, ok := confidenceStyle[grade]
	if !ok {
		return grade
	}
	return styled(style, grade)
}
