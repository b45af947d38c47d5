package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"
	"golang.org/x/term"
	"gopkg.in/yaml.v3"

	"github.com/bakadesk/bakadesk/internal/auth"
	"github.com/bakadesk/bakadesk/internal/session"
)

var (
	authServer   string
	authUsername string
	authPassword string
	authRemember bool
	statusOutput string
)

// authCmd represents the auth command
var authCmd = &cobra.Command{
	Use:   "auth",
	Short: "Manage Bakalari login credentials",
	Long: `Log in to a Bakalari server from the command line and inspect the
remembered credentials.

Examples:
  # Interactive login
  bakadesk auth login

  # Non-interactive login that remembers the credentials
  bakadesk auth login --server skola.example.cz/bakaweb --username novak --password ... --remember

  # Show the remembered credentials
  bakadesk auth status`,
}

var authLoginCmd = &cobra.Command{
	Use:   "login",
	Short: "Log in to a Bakalari server",
	Long: `Log in to a Bakalari server. Interactive by default when run in a terminal.

Non-interactive flags:
  --server URL       School server (https:// is assumed when omitted)
  --username NAME    Username
  --password SECRET  Password
  --remember         Remember the credentials after a successful login

Values not given as flags are taken from the remembered credentials.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runAuthLogin(cmd)
	},
}

var authStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the remembered credentials",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runAuthStatus(cmd.OutOrStdout())
	},
}

// statusReport is what 'auth status' prints; the password is always masked.
type statusReport struct {
	Path        string `json:"path" yaml:"path"`
	Stored      bool   `json:"stored" yaml:"stored"`
	Server      string `json:"server,omitempty" yaml:"server,omitempty"`
	Username    string `json:"username,omitempty" yaml:"username,omitempty"`
	Password    string `json:"password,omitempty" yaml:"password,omitempty"`
	Remember    bool   `json:"remember" yaml:"remember"`
	Unavailable string `json:"error,omitempty" yaml:"error,omitempty"`
}

func runAuthLogin(cmd *cobra.Command) error {
	store := credentialStore()
	stored := store.Load()

	flags := cmd.Flags()
	interactive := isInteractive() &&
		!flags.Changed("server") && !flags.Changed("username") &&
		!flags.Changed("password") && !flags.Changed("remember")

	var creds auth.Credentials
	if interactive {
		var err error
		creds, err = interactiveLogin(stored)
		if err != nil {
			return err
		}
	} else {
		creds = stored
		if flags.Changed("server") {
			creds.Server = authServer
		}
		if flags.Changed("username") {
			creds.Username = authUsername
		}
		if flags.Changed("password") {
			creds.Password = authPassword
		}
		if flags.Changed("remember") {
			creds.Remember = authRemember
		}
		if err := requireCredentials(creds); err != nil {
			return err
		}
	}

	out := cmd.OutOrStdout()
	boot := session.New(store, authenticator(cmd.Context()))

	ctx, cancel := context.WithTimeout(cmd.Context(), cfg.Timeout)
	defer cancel()

	fmt.Fprintf(out, "Logging in to %s as %s...\n", creds.Server, creds.Username)
	if _, err := boot.Login(ctx, creds); err != nil {
		return fmt.Errorf("login failed: %w", err)
	}
	fmt.Fprintln(out, "Login successful")

	if !creds.Remember {
		return nil
	}
	if err := boot.SaveError(); err != nil {
		fmt.Fprintf(cmd.ErrOrStderr(), "Warning: credentials were not saved: %v\n", err)
		return nil
	}
	if path, err := store.Path(); err == nil {
		fmt.Fprintf(out, "Credentials saved to %s\n", path)
	}
	return nil
}

func requireCredentials(creds auth.Credentials) error {
	switch {
	case strings.TrimSpace(creds.Server) == "":
		return errors.New("--server is required in non-interactive mode")
	case strings.TrimSpace(creds.Username) == "":
		return errors.New("--username is required in non-interactive mode")
	case creds.Password == "":
		return errors.New("--password is required in non-interactive mode")
	}
	return nil
}

func interactiveLogin(stored auth.Credentials) (auth.Credentials, error) {
	creds := stored
	required := func(name string) func(string) error {
		return func(s string) error {
			if strings.TrimSpace(s) == "" {
				return fmt.Errorf("%s cannot be empty", name)
			}
			return nil
		}
	}

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("School server").
				Placeholder("skola.example.cz/bakaweb").
				Value(&creds.Server).
				Validate(required("server")),
			huh.NewInput().
				Title("Username").
				Value(&creds.Username).
				Validate(required("username")),
			huh.NewInput().
				Title("Password").
				EchoMode(huh.EchoModePassword).
				Value(&creds.Password).
				Validate(required("password")),
			huh.NewConfirm().
				Title("Remember credentials?").
				Value(&creds.Remember),
		),
	)
	if err := form.Run(); err != nil {
		return auth.Credentials{}, fmt.Errorf("prompt login: %w", err)
	}

	creds.Server = strings.TrimSpace(creds.Server)
	creds.Username = strings.TrimSpace(creds.Username)
	return creds, nil
}

func runAuthStatus(out io.Writer) error {
	store := credentialStore()
	report := statusReport{}

	path, err := store.Path()
	if err != nil {
		report.Unavailable = err.Error()
	} else {
		report.Path = path
	}

	if creds := store.Load(); !creds.IsZero() {
		masked := creds.Masked()
		report.Stored = true
		report.Server = masked.Server
		report.Username = masked.Username
		report.Password = masked.Password
		report.Remember = masked.Remember
	}

	if statusOutput != "text" && statusOutput != "" {
		return printOutput(out, report, statusOutput)
	}

	if report.Unavailable != "" {
		fmt.Fprintf(out, "Credentials location unavailable: %s\n", report.Unavailable)
		return nil
	}
	if !report.Stored {
		fmt.Fprintf(out, "No remembered credentials (%s)\n", report.Path)
		return nil
	}
	fmt.Fprintf(out, "Remembered credentials (%s)\n", report.Path)
	fmt.Fprintf(out, "  Server: %s\n", report.Server)
	fmt.Fprintf(out, "  Username: %s\n", report.Username)
	fmt.Fprintf(out, "  Password: %s\n", report.Password)
	fmt.Fprintf(out, "  Remember: %t\n", report.Remember)
	return nil
}

// printOutput prints the output in the specified format
func printOutput(out io.Writer, data interface{}, format string) error {
	switch format {
	case "json":
		encoder := json.NewEncoder(out)
		encoder.SetIndent("", "  ")
		return encoder.Encode(data)
	case "yaml":
		encoder := yaml.NewEncoder(out)
		encoder.SetIndent(2)
		if err := encoder.Encode(data); err != nil {
			return fmt.Errorf("failed to format output: %w", err)
		}
		return encoder.Close()
	default:
		return fmt.Errorf("unsupported output format: %s", format)
	}
}

var isInteractive = func() bool {
	return term.IsTerminal(int(os.Stdin.Fd()))
}

func init() {
	authLoginCmd.Flags().StringVar(&authServer, "server", "", "School server URL")
	authLoginCmd.Flags().StringVar(&authUsername, "username", "", "Username")
	authLoginCmd.Flags().StringVar(&authPassword, "password", "", "Password")
	authLoginCmd.Flags().BoolVar(&authRemember, "remember", false, "Remember the credentials after a successful login")

	authStatusCmd.Flags().StringVarP(&statusOutput, "output", "o", "text", "Output format (text, json, yaml)")

	authCmd.AddCommand(authLoginCmd, authStatusCmd)
	rootCmd.AddCommand(authCmd)
}
