package styles

import (
	"testing"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"
	"github.com/stretchr/testify/require"
)

func TestTruncateString(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		maxWidth int
		expected string
	}{
		{"fits", "Write report", 20, "Write report"},
		{"exact", "abcde", 5, "abcde"},
		{"cut", "Quarterly planning review", 10, "Quarterly…"},
		{"zero width", "abc", 0, ""},
		{"wide runes", "日本語のタスク", 5, "日本…"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := TruncateString(tt.input, tt.maxWidth)
			require.Equal(t, tt.expected, got)
			require.LessOrEqual(t, lipgloss.Width(got), tt.maxWidth)
		})
	}
}

func TestTruncateString_KeepsStyling(t *testing.T) {
	styled := "\x1b[1m" + "a very long bold title" + "\x1b[0m"
	got := TruncateString(styled, 8)
	require.Equal(t, 8, lipgloss.Width(got))
	require.Equal(t, "a very …", ansi.Strip(got))
}

func TestFormatPagination(t *testing.T) {
	require.Equal(t, "Page 2/5 · total 48", FormatPagination(2, 5, 48, false))
	require.Equal(t, "Page 1/1 · total ≈9", FormatPagination(1, 1, 9, true))
	require.Equal(t, "Page 1/1 · total 0", FormatPagination(1, 0, 0, false))
}

func TestFormatStatusAndPriority(t *testing.T) {
	require.Equal(t, "in progress", ansi.Strip(FormatStatus("in_progress")))
	require.Equal(t, "-", ansi.Strip(FormatStatus("")))
	require.Equal(t, "blocked", FormatStatus("blocked"))
	require.Equal(t, "high", ansi.Strip(FormatPriority("high")))
	require.Equal(t, "-", ansi.Strip(FormatPriority("")))
}

func TestFormatFilter(t *testing.T) {
	require.Equal(t, "status: all", ansi.Strip(FormatFilter("status", "")))
	require.Equal(t, "status: in progress", ansi.Strip(FormatFilter("status", "in_progress")))
}

func TestFormatDate(t *testing.T) {
	require.Equal(t, "2025-01-31", FormatDate("2025-01-31T12:00:00Z"))
	require.Equal(t, "2025-01-31", FormatDate("2025-01-31"))
	require.Equal(t, "soon", FormatDate("soon"))
}
