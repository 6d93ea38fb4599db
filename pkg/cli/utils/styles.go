package utils

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"
)

// Styles
var (
	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF6B6B")).
			Bold(true)

	successStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#00D4AA")).
			Bold(true)

	hintStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#888888"))
)

// Success prints a highlighted success line.
func (rt *Runtime) Success(format string, args ...interface{}) {
	fmt.Fprintln(rt.Out, "✅ "+successStyle.Render(fmt.Sprintf(format, args...)))
}
