package checker

import "github.com/charmbracelet/lipgloss"

// Severity represents how much a finding threatens re-runnability.
type Severity int

const (
	// Safe indicates no finding.
	Safe Severity = iota
	// Low indicates a statement that fails on re-run but is easy to spot.
	Low
	// Medium indicates a CREATE that fails on re-run and has a mechanical guard.
	Medium
)

// String returns the uppercase label for the severity level.
func (s Severity) String() string {
	switch s {
	case Safe:
		return "SAFE"
	case Low:
		return "LOW"
	case Medium:
		return "MEDIUM"
	default:
		return "UNKNOWN"
	}
}

// Color returns the terminal color used to render the severity.
func (s Severity) Color() lipgloss.Color {
	switch s {
	case Safe:
		return lipgloss.Color("2") // green
	case Low:
		return lipgloss.Color("6") // cyan
	case Medium:
		return lipgloss.Color("3") // yellow
	default:
		return lipgloss.Color("7")
	}
}
