package cmd

import (
	"context"
	"errors"

	"github.com/spf13/cobra"

	"github.com/zjrosen/taskdeck/internal/app"
	"github.com/zjrosen/taskdeck/internal/session"
)

var (
	authEmail    string
	authPassword string
)

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Log in and store the session",
	Long: `Log in with email and password. The password is read from --password
or, when omitted, from the first line of stdin.

Examples:
  taskdeck login --email ada@example.com --password s3cret
  echo s3cret | taskdeck login --email ada@example.com`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		password, err := readSecret(cmd.InOrStdin(), authPassword)
		if err != nil {
			return err
		}
		return withApp(cmd, func(ctx context.Context, a *app.App) error {
			sess, err := a.Session.Login(ctx, session.Credentials{Email: authEmail, Password: password})
			if err != nil {
				return userError(err, sess.LastError)
			}
			printSuccess(cmd.OutOrStdout(), "Logged in as %s (%s)", dash(sess.Identity), dash(string(sess.Role)))
			return nil
		})
	},
}

var registerCmd = &cobra.Command{
	Use:   "register",
	Short: "Create an account and store the session",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		password, err := readSecret(cmd.InOrStdin(), authPassword)
		if err != nil {
			return err
		}
		return withApp(cmd, func(ctx context.Context, a *app.App) error {
			sess, err := a.Session.Register(ctx, session.Registration{Email: authEmail, Password: password})
			if err != nil {
				return userError(err, sess.LastError)
			}
			if !sess.Authenticated() {
				printSuccess(cmd.OutOrStdout(), "Registered. Run 'taskdeck login' to sign in")
				return nil
			}
			printSuccess(cmd.OutOrStdout(), "Registered and logged in as %s", dash(sess.Identity))
			return nil
		})
	},
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Revoke the credential and clear the stored session",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return withApp(cmd, func(ctx context.Context, a *app.App) error {
			if err := a.Session.Logout(ctx); err != nil {
				return err
			}
			printSuccess(cmd.OutOrStdout(), "Logged out")
			return nil
		})
	},
}

var whoamiCmd = &cobra.Command{
	Use:   "whoami",
	Short: "Show the stored session",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return withApp(cmd, func(_ context.Context, a *app.App) error {
			out := cmd.OutOrStdout()
			if err := a.RequireAuth(); err != nil {
				if errors.Is(err, app.ErrNotAuthenticated) {
					sess := a.Store.Snapshot()
					printMuted(out, "Not logged in")
					if sess.LastError != "" {
						printMuted(out, "Last error: %s", sess.LastError)
					}
					return nil
				}
				return err
			}
			sess := a.Store.Snapshot()
			rows := [][]string{
				{"identity", dash(sess.Identity)},
				{"role", dash(string(sess.Role))},
				{"api", a.Transport.BaseURL()},
			}
			if !sess.ExpiresAt.IsZero() {
				rows = append(rows, []string{"expires", sess.ExpiresAt.Local().Format("2006-01-02 15:04")})
			}
			printTable(out, []string{"Field", "Value"}, rows)
			return nil
		})
	},
}

func init() {
	for _, c := range []*cobra.Command{loginCmd, registerCmd} {
		c.Flags().StringVarP(&authEmail, "email", "e", "", "account email")
		c.Flags().StringVarP(&authPassword, "password", "P", "", "account password (default: read from stdin)")
		_ = c.MarkFlagRequired("email")
	}
	rootCmd.AddCommand(loginCmd, registerCmd, logoutCmd, whoamiCmd)
}
