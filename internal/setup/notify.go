package setup

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"
)

var (
	successStyle = lipgloss.NewStyle().
			Foreground(lipgloss.AdaptiveColor{Light: "#43BF6D", Dark: "#73F59F"}).
			Bold(true)
	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.AdaptiveColor{Light: "#D94A4A", Dark: "#FF6B6B"}).
			Bold(true)
)

// ConsoleNotifier renders purchase outcomes to the terminal. It stands
// in for the toast layer of a browser frontend.
type ConsoleNotifier struct{}

func (ConsoleNotifier) Success(msg string) {
	fmt.Println(successStyle.Render("✔ " + msg))
}

func (ConsoleNotifier) Error(msg string) {
	fmt.Println(errorStyle.Render("✘ " + msg))
}
