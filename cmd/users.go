package cmd

import (
	"context"
	"errors"

	"github.com/spf13/cobra"

	"github.com/zjrosen/taskdeck/internal/app"
	"github.com/zjrosen/taskdeck/internal/ui/styles"
	"github.com/zjrosen/taskdeck/internal/users"
)

var (
	userPage     int
	userEmail    string
	userRole     string
	userPassword string
)

var usersCmd = &cobra.Command{
	Use:   "users",
	Short: "Manage user accounts (admin only)",
}

var usersListCmd = &cobra.Command{
	Use:   "list",
	Short: "List user accounts",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return withApp(cmd, func(ctx context.Context, a *app.App) error {
			if err := a.RequireAdmin(); err != nil {
				return err
			}
			state, err := a.Users.Fetch(ctx, a.Users.Query().WithPage(userPage))
			if err != nil {
				return userError(err, "")
			}
			out := cmd.OutOrStdout()
			if len(state.Items) == 0 {
				printMuted(out, "No users found.")
			} else {
				rows := make([][]string, 0, len(state.Items))
				for _, u := range state.Items {
					rows = append(rows, []string{u.ID, u.Email, u.Role, dash(styles.FormatDate(u.CreatedAt))})
				}
				printTable(out, []string{"ID", "Email", "Role", "Created"}, rows)
			}
			printMuted(out, "%s", styles.FormatPagination(state.Query.Page, state.Pagination.TotalPages,
				state.Pagination.TotalItems, state.Approximate))
			return nil
		})
	},
}

var usersUpdateCmd = &cobra.Command{
	Use:   "update <id>",
	Short: "Change a user's email, role or password",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var p users.Patch
		if cmd.Flags().Changed("email") {
			p.Email = &userEmail
		}
		if cmd.Flags().Changed("role") {
			p.Role = &userRole
		}
		if cmd.Flags().Changed("password") {
			p.Password = &userPassword
		}
		if p.Empty() {
			return errors.New("nothing to update, set --email, --role or --password")
		}
		if err := p.Validate(); err != nil {
			return err
		}
		return withApp(cmd, func(ctx context.Context, a *app.App) error {
			if err := a.RequireAdmin(); err != nil {
				return err
			}
			if err := a.UserAPI.Update(ctx, args[0], p); err != nil {
				return userError(err, "")
			}
			printSuccess(cmd.OutOrStdout(), "Updated user %s", args[0])
			return nil
		})
	},
}

var usersDeleteCmd = &cobra.Command{
	Use:     "delete <id>",
	Aliases: []string{"rm"},
	Short:   "Delete a user account",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, func(ctx context.Context, a *app.App) error {
			if err := a.RequireAdmin(); err != nil {
				return err
			}
			if err := a.UserAPI.Delete(ctx, args[0]); err != nil {
				return userError(err, "")
			}
			printSuccess(cmd.OutOrStdout(), "Deleted user %s", args[0])
			return nil
		})
	},
}

func init() {
	usersListCmd.Flags().IntVar(&userPage, "page", 1, "page number")
	usersUpdateCmd.Flags().StringVar(&userEmail, "email", "", "new email")
	usersUpdateCmd.Flags().StringVar(&userRole, "role", "", "user or admin")
	usersUpdateCmd.Flags().StringVar(&userPassword, "password", "", "new password")

	usersCmd.AddCommand(usersListCmd, usersUpdateCmd, usersDeleteCmd)
	rootCmd.AddCommand(usersCmd)
}
