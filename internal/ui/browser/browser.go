// Package browser implements the interactive task browser. It observes a
// task View through its event stream and never writes to the cache
// directly: paging, filtering and deletion go through the View and the
// mutation engine.
package browser

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/zjrosen/taskdeck/internal/apierr"
	"github.com/zjrosen/taskdeck/internal/collection"
	"github.com/zjrosen/taskdeck/internal/keys"
	"github.com/zjrosen/taskdeck/internal/log"
	"github.com/zjrosen/taskdeck/internal/pubsub"
	"github.com/zjrosen/taskdeck/internal/query"
	"github.com/zjrosen/taskdeck/internal/tasks"
	"github.com/zjrosen/taskdeck/internal/ui/styles"
	"github.com/zjrosen/taskdeck/internal/ui/toaster"
)

// TaskView is the part of collection.View the browser drives.
type TaskView interface {
	Snapshot() collection.State[tasks.Task]
	Subscribe(ctx context.Context) <-chan pubsub.Event[collection.State[tasks.Task]]
	SetFilters(ctx context.Context, p query.Patch) (query.Query, error)
	SetPage(ctx context.Context, n int) (query.Query, error)
	Refresh(ctx context.Context) (collection.State[tasks.Task], error)
}

// Remover deletes a task and drops it from the view.
type Remover interface {
	Remove(ctx context.Context, key string) (bool, error)
}

// opDoneMsg reports the outcome of a fetch or mutation started by a key.
type opDoneMsg struct {
	op  string
	key string
	err error
}

const (
	opFetch  = "fetch"
	opDelete = "delete"
)

// chrome is the number of lines used around the table, toast included.
const chrome = 9

// Model is the task browser state.
type Model struct {
	ctx      context.Context
	view     TaskView
	remover  Remover
	listener *pubsub.ContinuousListener[collection.State[tasks.Task]]

	keys    keys.KeyMap
	table   table.Model
	spinner spinner.Model
	help    help.Model

	state      collection.State[tasks.Task]
	toast      toaster.Model
	showCounts bool
	width      int
	height     int
}

// New creates a browser over view. The subscription lives as long as ctx.
func New(ctx context.Context, view TaskView, remover Remover, showCounts bool) Model {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = styles.SpinnerStyle

	t := table.New(
		table.WithColumns(columns(80)),
		table.WithFocused(true),
		table.WithHeight(10),
	)

	m := Model{
		ctx:        ctx,
		view:       view,
		remover:    remover,
		listener:   pubsub.NewContinuousListener[collection.State[tasks.Task]](ctx, view),
		keys:       keys.Browser,
		table:      t,
		spinner:    s,
		help:       help.New(),
		toast:      toaster.New(),
		showCounts: showCounts,
		width:      80,
	}
	return m.withState(view.Snapshot())
}

// Init starts listening and loads the first page.
func (m Model) Init() tea.Cmd {
	return tea.Batch(m.listener.ListenLatest(), m.spinner.Tick, m.fetch(func(ctx context.Context) error {
		_, err := m.view.Refresh(ctx)
		return err
	}))
}

// State returns the last observed view state.
func (m Model) State() collection.State[tasks.Task] { return m.state }

// Update handles messages.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.table.SetColumns(columns(msg.Width))
		m.table.SetHeight(max(3, msg.Height-chrome))
		m.help.Width = msg.Width
		return m, nil

	case pubsub.Event[collection.State[tasks.Task]]:
		m = m.withState(msg.Payload)
		return m, m.listener.ListenLatest()

	case opDoneMsg:
		return m.handleOpDone(msg)

	case toaster.DismissMsg:
		m.toast = m.toast.Update(msg)
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case tea.KeyMsg:
		return m.handleKey(msg)
	}
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	q := m.state.Query
	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit

	case key.Matches(msg, m.keys.Help):
		m.help.ShowAll = !m.help.ShowAll
		return m, nil

	case key.Matches(msg, m.keys.PrevPage):
		if q.Page <= 1 {
			return m, nil
		}
		return m, m.fetch(func(ctx context.Context) error {
			_, err := m.view.SetPage(ctx, q.Page-1)
			return err
		})

	case key.Matches(msg, m.keys.NextPage):
		if q.Page >= m.state.Pagination.TotalPages {
			return m, nil
		}
		return m, m.fetch(func(ctx context.Context) error {
			_, err := m.view.SetPage(ctx, q.Page+1)
			return err
		})

	case key.Matches(msg, m.keys.Status):
		return m, m.setFilters(query.Patch{}.WithStatus(tasks.Next(tasks.Statuses, q.Status)))

	case key.Matches(msg, m.keys.Priority):
		return m, m.setFilters(query.Patch{}.WithPriority(tasks.Next(tasks.Priorities, q.Priority)))

	case key.Matches(msg, m.keys.Order):
		return m, m.setFilters(query.Patch{}.WithSort(q.Sort.Toggle()))

	case key.Matches(msg, m.keys.Refresh):
		return m, m.fetch(func(ctx context.Context) error {
			_, err := m.view.Refresh(ctx)
			return err
		})

	case key.Matches(msg, m.keys.Delete):
		task, ok := m.selected()
		if !ok {
			return m, nil
		}
		m.toast = m.toast.Show("Deleting "+task.Title+"…", toaster.StyleInfo)
		return m, m.remove(task.ID)
	}

	var cmd tea.Cmd
	m.table, cmd = m.table.Update(msg)
	return m, cmd
}

func (m Model) handleOpDone(msg opDoneMsg) (tea.Model, tea.Cmd) {
	switch {
	case errors.Is(msg.err, collection.ErrSuperseded):
		return m, nil
	case msg.err != nil && msg.op == opFetch:
		// The failed state already carries the error banner.
		return m, nil
	case msg.err != nil:
		log.Debug(log.CatUI, "operation failed", "op", msg.op, "error", msg.err)
		m.toast = m.toast.Show(apierr.Message(msg.err, ""), toaster.StyleError)
		return m, m.toast.ScheduleDismiss(toaster.DefaultDuration)
	case msg.op == opDelete:
		m.toast = m.toast.Show("Deleted task "+msg.key, toaster.StyleSuccess)
		return m, m.toast.ScheduleDismiss(toaster.DefaultDuration)
	}
	return m, nil
}

func (m Model) setFilters(p query.Patch) tea.Cmd {
	return m.fetch(func(ctx context.Context) error {
		_, err := m.view.SetFilters(ctx, p)
		return err
	})
}

func (m Model) fetch(fn func(context.Context) error) tea.Cmd {
	ctx := m.ctx
	return func() tea.Msg {
		return opDoneMsg{op: opFetch, err: fn(ctx)}
	}
}

func (m Model) remove(id string) tea.Cmd {
	ctx, remover := m.ctx, m.remover
	return func() tea.Msg {
		_, err := remover.Remove(ctx, id)
		return opDoneMsg{op: opDelete, key: id, err: err}
	}
}

func (m Model) selected() (tasks.Task, bool) {
	i := m.table.Cursor()
	if i < 0 || i >= len(m.state.Items) {
		return tasks.Task{}, false
	}
	return m.state.Items[i], true
}

func (m Model) withState(s collection.State[tasks.Task]) Model {
	m.state = s
	m.table.SetRows(rows(s.Items, m.width))
	if c := m.table.Cursor(); c >= len(s.Items) && len(s.Items) > 0 {
		m.table.SetCursor(len(s.Items) - 1)
	}
	return m
}

// View renders the browser.
func (m Model) View() string {
	var b strings.Builder

	q := m.state.Query
	header := styles.TitleStyle.Render("Tasks") + "  " + strings.Join([]string{
		styles.FormatFilter("status", q.Status),
		styles.FormatFilter("priority", q.Priority),
		styles.FormatFilter("sort", string(q.Sort)),
	}, "  ")
	b.WriteString(header)
	b.WriteString("\n\n")

	switch {
	case m.state.Status == collection.StatusFailed:
		b.WriteString(styles.ErrorStyle.Render("Failed to load tasks: " + apierr.Message(m.state.Err, "")))
	case m.state.Status == collection.StatusLoading && len(m.state.Items) == 0:
		b.WriteString(m.spinner.View() + " Loading tasks…")
	case len(m.state.Items) == 0 && m.state.Status == collection.StatusSucceeded:
		b.WriteString(styles.MutedStyle.Render("No tasks match these filters."))
	default:
		b.WriteString(m.table.View())
	}
	b.WriteString("\n")

	footer := ""
	if m.showCounts {
		footer = styles.FormatPagination(q.Page, m.state.Pagination.TotalPages,
			m.state.Pagination.TotalItems, m.state.Approximate)
	}
	if m.state.Status == collection.StatusLoading && len(m.state.Items) > 0 {
		footer = strings.TrimSpace(footer + " " + m.spinner.View())
	}
	b.WriteString(styles.StatusBarStyle.Render(footer))
	b.WriteString("\n")

	if toast := m.toast.View(); toast != "" {
		b.WriteString(toast)
		b.WriteString("\n")
	}
	b.WriteString(m.help.View(m.keys))
	return b.String()
}

func columns(width int) []table.Column {
	fixed := 12 + 9 + 11 + 5
	title := max(10, width-fixed-10)
	return []table.Column{
		{Title: "Title", Width: title},
		{Title: "Status", Width: 12},
		{Title: "Priority", Width: 9},
		{Title: "Due", Width: 11},
		{Title: "Docs", Width: 5},
	}
}

func rows(items []tasks.Task, width int) []table.Row {
	titleWidth := columns(width)[0].Width
	out := make([]table.Row, 0, len(items))
	for _, t := range items {
		out = append(out, table.Row{
			styles.TruncateString(t.Title, titleWidth),
			strings.ReplaceAll(t.Status, "_", " "),
			t.Priority,
			styles.FormatDate(t.DueDate),
			docsCount(len(t.Documents)),
		})
	}
	return out
}

func docsCount(n int) string {
	if n == 0 {
		return ""
	}
	return fmt.Sprintf("%d", n)
}
