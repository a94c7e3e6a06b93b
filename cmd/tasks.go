package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/zjrosen/taskdeck/internal/app"
	"github.com/zjrosen/taskdeck/internal/query"
	"github.com/zjrosen/taskdeck/internal/tasks"
	"github.com/zjrosen/taskdeck/internal/ui/browser"
	"github.com/zjrosen/taskdeck/internal/ui/styles"
)

// taskFlags holds the task field flags shared by list, create and update.
type taskFlags struct {
	title       string
	description string
	status      string
	priority    string
	due         string
	assignedTo  string
	sort        string
	page        int
	limit       int
	documents   []string
	output      string
}

var tf taskFlags

var tasksCmd = &cobra.Command{
	Use:     "tasks",
	Aliases: []string{"task", "t"},
	Short:   "List and manage tasks",
}

var tasksListCmd = &cobra.Command{
	Use:   "list",
	Short: "List one page of tasks",
	Long: `List one page of tasks. Filters left unset match everything; changing a
filter always starts from page 1 unless --page is given.

Examples:
  taskdeck tasks list --status todo --priority high
  taskdeck tasks list --sort due_date --page 2
  taskdeck tasks list --due-before 2026-12-31`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return withApp(cmd, func(ctx context.Context, a *app.App) error {
			if err := a.RequireAuth(); err != nil {
				return err
			}
			q, err := listQuery(cmd.Flags(), a.Tasks.Query())
			if err != nil {
				return err
			}
			state, err := a.Tasks.Fetch(ctx, q)
			if err != nil {
				return userError(err, "")
			}

			out := cmd.OutOrStdout()
			if len(state.Items) == 0 {
				printMuted(out, "No tasks found.")
			} else {
				rows := make([][]string, 0, len(state.Items))
				for _, t := range state.Items {
					rows = append(rows, []string{
						t.ID,
						styles.TruncateString(t.Title, titleWidth),
						styles.FormatStatus(t.Status),
						styles.FormatPriority(t.Priority),
						dash(styles.FormatDate(t.DueDate)),
						strconv.Itoa(len(t.Documents)),
					})
				}
				printTable(out, []string{"ID", "Title", "Status", "Priority", "Due", "Docs"}, rows)
			}
			printMuted(out, "%s", styles.FormatPagination(state.Query.Page, state.Pagination.TotalPages,
				state.Pagination.TotalItems, state.Approximate))
			return nil
		})
	},
}

// listQuery applies the changed filter flags to base.
func listQuery(flags *pflag.FlagSet, base query.Query) (query.Query, error) {
	var p query.Patch
	if flags.Changed("status") {
		p = p.WithStatus(tf.status)
	}
	if flags.Changed("priority") {
		p = p.WithPriority(tf.priority)
	}
	if flags.Changed("sort") {
		s, err := query.ParseSort(tf.sort)
		if err != nil {
			return query.Query{}, err
		}
		p = p.WithSort(s)
	}
	if flags.Changed("limit") {
		p = p.WithLimit(tf.limit)
	}
	if flags.Changed("due-before") {
		p = p.WithDueBefore(tf.due)
	}
	if flags.Changed("assigned-to") {
		p = p.WithAssignedTo(tf.assignedTo)
	}
	q := base.WithFilters(p)
	if flags.Changed("page") {
		q = q.WithPage(tf.page)
	}
	if err := q.Validate(); err != nil {
		return query.Query{}, err
	}
	return q, nil
}

var tasksCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a task, optionally with up to 3 PDF documents",
	Long: `Create a task. Documents are uploaded with the task and must be PDFs.

Examples:
  taskdeck tasks create --title "Quarterly report" --priority high --due 2026-11-30
  taskdeck tasks create --title "Contract review" --doc contract.pdf --doc annex.pdf`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		n := tasks.NewTask{
			Title:       tf.title,
			Description: tf.description,
			Status:      tf.status,
			Priority:    tf.priority,
			DueDate:     tf.due,
			AssignedTo:  tf.assignedTo,
		}
		for _, path := range tf.documents {
			f, err := os.Open(path) //nolint:gosec // G304: user-chosen upload
			if err != nil {
				return fmt.Errorf("opening document: %w", err)
			}
			defer func() { _ = f.Close() }()
			n.Documents = append(n.Documents, tasks.Attachment{Name: filepath.Base(path), Content: f})
		}
		if err := n.Validate(); err != nil {
			return err
		}
		return withApp(cmd, func(ctx context.Context, a *app.App) error {
			if err := a.RequireAuth(); err != nil {
				return err
			}
			created, err := a.TaskAPI.Create(ctx, n)
			if err != nil {
				return userError(err, "")
			}
			printSuccess(cmd.OutOrStdout(), "Created task %s", created.ID)
			return nil
		})
	},
}

var tasksUpdateCmd = &cobra.Command{
	Use:   "update <id>",
	Short: "Update fields of a task",
	Long: `Update the given fields of a task. Only flags that are set are sent.

Examples:
  taskdeck tasks update 65f0c0ffee --status done
  taskdeck tasks update 65f0c0ffee --due ""`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		p := taskPatch(cmd.Flags())
		if p.Empty() {
			return errors.New("nothing to update, set at least one field flag")
		}
		if err := p.Validate(); err != nil {
			return err
		}
		return withApp(cmd, func(ctx context.Context, a *app.App) error {
			if err := a.RequireAuth(); err != nil {
				return err
			}
			if err := a.TaskAPI.Update(ctx, args[0], p); err != nil {
				return userError(err, "")
			}
			printSuccess(cmd.OutOrStdout(), "Updated task %s", args[0])
			return nil
		})
	},
}

func taskPatch(flags *pflag.FlagSet) tasks.Patch {
	var p tasks.Patch
	set := func(name string, dst **string, value string) {
		if flags.Changed(name) {
			v := value
			*dst = &v
		}
	}
	set("title", &p.Title, tf.title)
	set("description", &p.Description, tf.description)
	set("status", &p.Status, tf.status)
	set("priority", &p.Priority, tf.priority)
	set("due", &p.DueDate, tf.due)
	set("assigned-to", &p.AssignedTo, tf.assignedTo)
	return p
}

var tasksDeleteCmd = &cobra.Command{
	Use:     "delete <id>",
	Aliases: []string{"rm"},
	Short:   "Delete a task",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, func(ctx context.Context, a *app.App) error {
			if err := a.RequireAuth(); err != nil {
				return err
			}
			if err := a.TaskAPI.Delete(ctx, args[0]); err != nil {
				return userError(err, "")
			}
			printSuccess(cmd.OutOrStdout(), "Deleted task %s", args[0])
			return nil
		})
	},
}

var tasksDownloadCmd = &cobra.Command{
	Use:   "download <id> <stored-name>",
	Short: "Download a task document",
	Long: `Download a document attached to a task. The file is written to
--output, or to the stored name in the current directory. Use "-" for stdout.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, func(ctx context.Context, a *app.App) error {
			if err := a.RequireAuth(); err != nil {
				return err
			}
			data, err := a.Documents.Download(ctx, args[0], args[1])
			if err != nil {
				return userError(err, "")
			}
			dest := tf.output
			if dest == "" {
				dest = filepath.Base(args[1])
			}
			if dest == "-" {
				_, err := cmd.OutOrStdout().Write(data)
				return err
			}
			if err := os.WriteFile(dest, data, 0o600); err != nil {
				return fmt.Errorf("writing document: %w", err)
			}
			printSuccess(cmd.OutOrStdout(), "Saved %s (%d bytes)", dest, len(data))
			return nil
		})
	},
}

var tasksBrowseCmd = &cobra.Command{
	Use:   "browse",
	Short: "Browse tasks interactively",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return withApp(cmd, func(ctx context.Context, a *app.App) error {
			if err := a.RequireAuth(); err != nil {
				return err
			}
			ctx, cancel := context.WithCancel(ctx)
			defer cancel()

			model := browser.New(ctx, a.Tasks, a.TaskEngine, a.Config.UI.ShowCounts)
			p := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx))
			if _, err := p.Run(); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
				return fmt.Errorf("running browser: %w", err)
			}
			return nil
		})
	},
}

func init() {
	for _, c := range []*cobra.Command{tasksCreateCmd, tasksUpdateCmd} {
		c.Flags().StringVar(&tf.title, "title", "", "task title")
		c.Flags().StringVar(&tf.description, "description", "", "task description")
		c.Flags().StringVar(&tf.due, "due", "", "due date (YYYY-MM-DD)")
	}
	for _, c := range []*cobra.Command{tasksListCmd, tasksCreateCmd, tasksUpdateCmd} {
		c.Flags().StringVarP(&tf.status, "status", "s", "", "todo, in_progress or done")
		c.Flags().StringVarP(&tf.priority, "priority", "p", "", "low, medium or high")
		c.Flags().StringVar(&tf.assignedTo, "assigned-to", "", "assignee user id")
	}
	_ = tasksCreateCmd.MarkFlagRequired("title")
	tasksCreateCmd.Flags().StringArrayVar(&tf.documents, "doc", nil, "PDF document to attach (repeatable, at most 3)")

	tasksListCmd.Flags().StringVar(&tf.sort, "sort", "", "sort fields, '-' prefix for descending (e.g. -due_date)")
	tasksListCmd.Flags().IntVar(&tf.page, "page", 1, "page number")
	tasksListCmd.Flags().IntVar(&tf.limit, "limit", query.DefaultLimit, "page size")
	tasksListCmd.Flags().StringVar(&tf.due, "due-before", "", "only tasks due on or before this date (YYYY-MM-DD)")

	tasksDownloadCmd.Flags().StringVarP(&tf.output, "output", "o", "", "destination file, '-' for stdout")

	tasksCmd.AddCommand(tasksListCmd, tasksCreateCmd, tasksUpdateCmd, tasksDeleteCmd, tasksDownloadCmd, tasksBrowseCmd)
	rootCmd.AddCommand(tasksCmd)
}
