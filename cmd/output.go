package cmd

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/zjrosen/taskdeck/internal/apierr"
	"github.com/zjrosen/taskdeck/internal/ui/styles"
)

// titleWidth is the widest title printed by list commands.
const titleWidth = 40

// printTable renders rows under headers with a plain border.
func printTable(w io.Writer, headers []string, rows [][]string) {
	t := table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(styles.BorderDefaultColor)).
		StyleFunc(func(row, _ int) lipgloss.Style {
			if row == table.HeaderRow {
				return lipgloss.NewStyle().Bold(true).Padding(0, 1)
			}
			return lipgloss.NewStyle().Padding(0, 1)
		}).
		Headers(headers...).
		Rows(rows...)
	_, _ = fmt.Fprintln(w, t.Render())
}

func printSuccess(w io.Writer, format string, args ...any) {
	_, _ = fmt.Fprintln(w, styles.SuccessStyle.Render(fmt.Sprintf(format, args...)))
}

func printMuted(w io.Writer, format string, args ...any) {
	_, _ = fmt.Fprintln(w, styles.MutedStyle.Render(fmt.Sprintf(format, args...)))
}

// userError turns an API failure into the message the server gave, or
// fallback. Other errors pass through.
func userError(err error, fallback string) error {
	if err == nil {
		return nil
	}
	var apiErr *apierr.Error
	if errors.As(err, &apiErr) {
		return errors.New(apierr.Message(err, fallback))
	}
	return err
}

// readSecret returns flagValue, or the first line of r when it is empty.
func readSecret(r io.Reader, flagValue string) (string, error) {
	if flagValue != "" {
		return flagValue, nil
	}
	line, err := bufio.NewReader(r).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("reading password: %w", err)
	}
	line = strings.TrimRight(line, "\r\n")
	if line == "" {
		return "", errors.New("a password is required (--password or on stdin)")
	}
	return line, nil
}

func dash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
