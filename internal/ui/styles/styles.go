// Package styles contains Lip Gloss style definitions.
package styles

import "github.com/charmbracelet/lipgloss"

var (
	// Semantic color names - Text hierarchy
	TextPrimaryColor   = lipgloss.AdaptiveColor{Light: "#1F1F1F", Dark: "#CCCCCC"}
	TextSecondaryColor = lipgloss.AdaptiveColor{Light: "#555555", Dark: "#BBBBBB"} // ids, secondary info
	TextMutedColor     = lipgloss.AdaptiveColor{Light: "#999999", Dark: "#696969"} // hints, help text, footers

	BorderDefaultColor = lipgloss.AdaptiveColor{Light: "#D9DCCF", Dark: "#696969"}
	HighlightColor     = lipgloss.AdaptiveColor{Light: "#1E66F5", Dark: "#54A0FF"}

	// Semantic color names - Status
	StatusSuccessColor = lipgloss.AdaptiveColor{Light: "#43BF6D", Dark: "#73F59F"}
	StatusWarningColor = lipgloss.AdaptiveColor{Light: "#DF8E1D", Dark: "#FECA57"}
	StatusErrorColor   = lipgloss.AdaptiveColor{Light: "#FF6B6B", Dark: "#FF8787"}

	// Task status colors
	TaskTodoColor       = lipgloss.AdaptiveColor{Light: "#43BF6D", Dark: "#73F59F"}
	TaskInProgressColor = lipgloss.AdaptiveColor{Light: "#54A0FF", Dark: "#54A0FF"}
	TaskDoneColor       = lipgloss.AdaptiveColor{Light: "#AAAAAA", Dark: "#BBBBBB"}

	// Task priority colors
	PriorityHighColor   = lipgloss.AdaptiveColor{Light: "#FF6B6B", Dark: "#FF8787"}
	PriorityMediumColor = lipgloss.AdaptiveColor{Light: "#DF8E1D", Dark: "#FECA57"}
	PriorityLowColor    = lipgloss.AdaptiveColor{Light: "#666666", Dark: "#999999"}

	PriorityHighStyle   = lipgloss.NewStyle().Foreground(PriorityHighColor).Bold(true)
	PriorityMediumStyle = lipgloss.NewStyle().Foreground(PriorityMediumColor)
	PriorityLowStyle    = lipgloss.NewStyle().Foreground(PriorityLowColor)

	TaskTodoStyle       = lipgloss.NewStyle().Foreground(TaskTodoColor)
	TaskInProgressStyle = lipgloss.NewStyle().Foreground(TaskInProgressColor)
	TaskDoneStyle       = lipgloss.NewStyle().Foreground(TaskDoneColor)

	TitleStyle = lipgloss.NewStyle().Bold(true).Foreground(HighlightColor)
	MutedStyle = lipgloss.NewStyle().Foreground(TextMutedColor)
	LabelStyle = lipgloss.NewStyle().Foreground(TextSecondaryColor)

	// Status bar
	StatusBarStyle = lipgloss.NewStyle().
			Foreground(TextSecondaryColor).
			Padding(0, 1)

	SuccessStyle = lipgloss.NewStyle().Foreground(StatusSuccessColor)
	WarningStyle = lipgloss.NewStyle().Foreground(StatusWarningColor)

	// Error display
	ErrorStyle = lipgloss.NewStyle().
			Foreground(StatusErrorColor).
			Bold(true).
			Padding(1, 2)

	// Table header used by CLI output
	HeaderStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(TextPrimaryColor).
			BorderStyle(lipgloss.NormalBorder()).
			BorderBottom(true).
			BorderForeground(BorderDefaultColor)

	// Loading spinner color
	SpinnerColor = lipgloss.AdaptiveColor{Light: "#874BFD", Dark: "#FFF"}
	SpinnerStyle = lipgloss.NewStyle().Foreground(SpinnerColor)
)
