package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/zjrosen/taskdeck/internal/app"
	"github.com/zjrosen/taskdeck/internal/config"
	"github.com/zjrosen/taskdeck/internal/log"
)

func init() {
	// Force lipgloss/termenv to query terminal background color BEFORE
	// any Bubble Tea program starts. This prevents the terminal's OSC 11
	// response from racing with Bubble Tea's input loop.
	//
	// See: https://github.com/charmbracelet/bubbletea/issues/1036
	_ = lipgloss.HasDarkBackground()
}

const defaultLogPath = "taskdeck-debug.log"

var (
	version   = "dev"
	cfgFile   string
	apiURL    string
	debug     bool
	ephemeral bool

	cfg     config.Config
	cfgPath string

	// appOptions is passed to app.New; tests swap in an HTTP client.
	appOptions app.Options

	logCleanup func()
)

var rootCmd = &cobra.Command{
	Use:   "taskdeck",
	Short: "A terminal client for a task management API",
	Long: `taskdeck talks to a task management API: log in, browse and filter
your tasks, create them with PDF attachments, and manage users as an admin.

The session is kept in a local store so later invocations stay logged in.`,
	Version:           version,
	SilenceUsage:      true,
	PersistentPreRunE: initConfig,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "",
		"config file (default: ./.taskdeck/config.yaml or ~/.config/taskdeck/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&apiURL, "api-url", "",
		"API base URL, overrides api.base_url")
	rootCmd.PersistentFlags().BoolVarP(&debug, "debug", "d", false,
		"write debug logs (to log_path or "+defaultLogPath+")")
	rootCmd.PersistentFlags().BoolVar(&ephemeral, "ephemeral", false,
		"keep the session in memory only")
}

func initConfig(cmd *cobra.Command, _ []string) error {
	loaded, used, err := config.Load(viper.New(), cfgFile, cfgFile == "")
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("api-url") {
		loaded.API.BaseURL = apiURL
	}
	cfg, cfgPath = loaded, used

	if (cfg.Debug || debug) && logCleanup == nil {
		path := cfg.LogPath
		if path == "" {
			path = defaultLogPath
		}
		cleanup, err := log.InitWithTeaLog(path, "taskdeck")
		if err != nil {
			return fmt.Errorf("initializing debug log: %w", err)
		}
		logCleanup = cleanup
		log.Info(log.CatConfig, "taskdeck starting", "version", version, "config", cfgPath)
	}
	return nil
}

// withApp builds the application for one command and closes it afterwards.
func withApp(cmd *cobra.Command, fn func(ctx context.Context, a *app.App) error) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	opts := appOptions
	opts.Ephemeral = opts.Ephemeral || ephemeral

	a, err := app.New(ctx, cfg, opts)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := a.Close(context.WithoutCancel(ctx)); closeErr != nil {
			log.ErrorErr(log.CatSession, "closing app", closeErr)
		}
	}()
	return fn(ctx, a)
}

// Execute runs the root command until it finishes or an interrupt arrives.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	defer func() {
		if logCleanup != nil {
			logCleanup()
			logCleanup = nil
		}
	}()
	return rootCmd.ExecuteContext(ctx)
}

// SetVersion sets the version string (called from main with ldflags)
func SetVersion(v string) {
	version = v
	rootCmd.Version = v
}
