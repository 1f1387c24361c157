package commands

import (
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-isatty"
	"golang.org/x/term"
)

var (
	colorSuccess = lipgloss.Color("#9ece6a")
	colorWarning = lipgloss.Color("#f7768e")
	colorMuted   = lipgloss.Color("#7aa2f7")

	noticeStyle  = lipgloss.NewStyle().Foreground(colorSuccess)
	warningStyle = lipgloss.NewStyle().Foreground(colorWarning)
	promptStyle  = lipgloss.NewStyle().Foreground(colorMuted).Bold(true)
)

// getTerminalWidth returns the terminal width or a default value
func getTerminalWidth() int {
	width, _, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil || width <= 0 {
		return 80
	}
	return min(width, 120)
}

// isStdoutTTY returns true if stdout is connected to a terminal
func isStdoutTTY() bool {
	return isatty.IsTerminal(os.Stdout.Fd())
}
