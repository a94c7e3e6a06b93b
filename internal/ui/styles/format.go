package styles

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"
)

const ellipsis = "…"

// TruncateString truncates s to maxWidth cells, ending with an ellipsis
// when cut. ANSI sequences are preserved.
func TruncateString(s string, maxWidth int) string {
	if maxWidth < 1 {
		return ""
	}
	if lipgloss.Width(s) <= maxWidth {
		return s
	}
	return ansi.Truncate(s, maxWidth, ellipsis)
}

// FormatStatus renders a task status with its color.
func FormatStatus(status string) string {
	switch status {
	case "todo":
		return TaskTodoStyle.Render("todo")
	case "in_progress":
		return TaskInProgressStyle.Render("in progress")
	case "done":
		return TaskDoneStyle.Render("done")
	case "":
		return MutedStyle.Render("-")
	default:
		return status
	}
}

// FormatPriority renders a task priority with its color.
func FormatPriority(priority string) string {
	switch priority {
	case "high":
		return PriorityHighStyle.Render("high")
	case "medium":
		return PriorityMediumStyle.Render("medium")
	case "low":
		return PriorityLowStyle.Render("low")
	case "":
		return MutedStyle.Render("-")
	default:
		return priority
	}
}

// FormatPagination renders "Page p/N · total T". The total is prefixed with
// "≈" when approximate is set.
func FormatPagination(page, totalPages, total int, approximate bool) string {
	if totalPages < 1 {
		totalPages = 1
	}
	count := fmt.Sprintf("%d", total)
	if approximate {
		count = "≈" + count
	}
	return fmt.Sprintf("Page %d/%d · total %s", page, totalPages, count)
}

// FormatFilter renders a filter value, or "all" when unset.
func FormatFilter(name, value string) string {
	if value == "" {
		value = "all"
	}
	return LabelStyle.Render(name+":") + " " + strings.ReplaceAll(value, "_", " ")
}

// FormatDate trims a server timestamp to its date part.
func FormatDate(s string) string {
	if len(s) >= 10 && s[4] == '-' && s[7] == '-' {
		return s[:10]
	}
	return s
}
