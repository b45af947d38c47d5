package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/go-resty/resty/v2"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/bakadesk/bakadesk/internal/auth"
	"github.com/bakadesk/bakadesk/internal/bakalari"
	"github.com/bakadesk/bakadesk/internal/config"
	"github.com/bakadesk/bakadesk/internal/session"
	"github.com/bakadesk/bakadesk/internal/ui"
)

type contextKey string

// RestyClientKey carries a *resty.Client in the command context. Tests use it
// to route Bakalari requests through a mock transport.
const RestyClientKey contextKey = "resty-client"

var (
	// Global configuration state
	v   *viper.Viper
	cfg *config.Config

	logFile *os.File
	version = "0.1.0" // This will be set during build
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "bakadesk",
	Short: "Bakadesk - a terminal client for the Bakalari school information system",
	Long: `Bakadesk logs in to your school's Bakalari server and opens a menu of
Komens messages, absence, marks, semester info, timetable and homework.

Credentials can be remembered between runs; they are stored in the per-user
configuration directory (see 'bakadesk auth status').`,
	SilenceUsage:       true,
	PersistentPreRunE:  rootPersistentPreRunE,
	PersistentPostRunE: rootPersistentPostRunE,
	RunE:               runShell,
}

func rootPersistentPreRunE(cmd *cobra.Command, args []string) error {
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return fmt.Errorf("failed to read config file: %w", err)
		}
	}

	c, err := config.Load(v)
	if err != nil {
		return err
	}
	cfg = c

	// The terminal UI owns stdout and stderr, so it only logs to a file.
	var logOut io.Writer = cmd.ErrOrStderr()
	if cmd == cmd.Root() {
		logOut = io.Discard
	}
	if cfg.LogFile != "" {
		f, err := os.OpenFile(cfg.LogFile, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0600)
		if err != nil {
			return fmt.Errorf("failed to open log file %s: %w", cfg.LogFile, err)
		}
		logFile = f
		logOut = f
	}
	slog.SetDefault(config.NewLogger(logOut, cfg.LogLevel))

	slog.Debug("Application initialized", "logLevel", cfg.LogLevel, "configDir", cfg.ConfigDir, "configFile", v.ConfigFileUsed())
	return nil
}

func rootPersistentPostRunE(cmd *cobra.Command, args []string) error {
	if logFile != nil {
		err := logFile.Close()
		logFile = nil
		return err
	}
	return nil
}

// runShell starts the terminal UI
func runShell(cmd *cobra.Command, args []string) error {
	boot := session.New(credentialStore(), authenticator(cmd.Context()))
	m := ui.New(boot,
		ui.WithTimeout(cfg.Timeout),
		ui.WithNoColor(cfg.NoColor),
		ui.WithOutput(cmd.OutOrStdout()),
	)
	return ui.Run(cmd.Context(), m, tea.WithInput(cmd.InOrStdin()), tea.WithOutput(cmd.OutOrStdout()))
}

// credentialStore returns the store in --config-dir, or in the OS config
// directory when the flag is not set.
func credentialStore() *auth.Store {
	if cfg != nil && cfg.ConfigDir != "" {
		return auth.NewStore(auth.Dir(cfg.ConfigDir))
	}
	return auth.NewStore(auth.OSPaths{})
}

// authenticator returns the Bakalari login client, using the resty client
// from ctx when one is present.
func authenticator(ctx context.Context) session.Authenticator {
	client := bakalari.NewClient()
	if ctx != nil {
		if rc, ok := ctx.Value(RestyClientKey).(*resty.Client); ok && rc != nil {
			client = bakalari.NewWithClient(rc)
		}
	}
	return session.AuthenticatorFunc(func(ctx context.Context, server, username, password string) (session.Session, error) {
		sess, err := client.Authenticate(ctx, server, username, password)
		if err != nil {
			return nil, err
		}
		return sess, nil
	})
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().String(config.KeyConfigDir, "", "Directory holding credentials.json (default: OS config directory)")
	rootCmd.PersistentFlags().StringP(config.KeyLogLevel, "l", config.DefaultLogLevel, fmt.Sprintf("Log level (%s)", strings.Join(config.ValidLogLevels(), "|")))
	rootCmd.PersistentFlags().String(config.KeyLogFile, "", "Append logs to this file")
	rootCmd.PersistentFlags().Duration(config.KeyTimeout, config.DefaultTimeout, "Maximum time to wait for a login")
	rootCmd.PersistentFlags().Bool(config.KeyNoColor, false, "Disable colours in the terminal UI")

	var searchPaths []string
	searchPaths = append(searchPaths, ".")
	if dir, err := (auth.OSPaths{}).ConfigDir(); err == nil {
		searchPaths = append(searchPaths, dir)
	}
	v = config.NewViper(searchPaths...)
	for _, key := range []string{config.KeyConfigDir, config.KeyLogLevel, config.KeyLogFile, config.KeyTimeout, config.KeyNoColor} {
		if err := v.BindPFlag(key, rootCmd.PersistentFlags().Lookup(key)); err != nil {
			slog.Error("unable to bind flag", "flag", key, "error", err)
		}
	}

	// Add version command
	versionCmd := &cobra.Command{
		Use:   "version",
		Short: "Print the version number of Bakadesk",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "Bakadesk v%s\n", version)
		},
	}

	rootCmd.AddCommand(versionCmd)
}
