package auth

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
)

// Application identity used to derive the per-user configuration directory.
const (
	Qualifier    = "com"
	Organization = "Bakadesk"
	Application  = "Bakadesk"
)

// PathProvider resolves the directory the credentials file lives in.
type PathProvider interface {
	ConfigDir() (string, error)
}

// OSPaths resolves the operating system's per-user configuration directory
// for the application.
type OSPaths struct{}

// ConfigDir returns the application config directory for the current OS.
func (OSPaths) ConfigDir() (string, error) {
	return osConfigDir(runtime.GOOS, os.Getenv, os.UserHomeDir)
}

func osConfigDir(goos string, getenv func(string) string, homeDir func() (string, error)) (string, error) {
	switch goos {
	case "windows":
		appData := getenv("APPDATA")
		if appData == "" {
			return "", errors.New("%APPDATA% is not set")
		}
		return filepath.Join(appData, Organization, Application, "config"), nil
	case "darwin", "ios":
		home, err := homeDir()
		if err != nil {
			return "", fmt.Errorf("failed to determine home directory: %w", err)
		}
		bundle := fmt.Sprintf("%s.%s.%s", Qualifier, Organization, Application)
		return filepath.Join(home, "Library", "Application Support", bundle), nil
	default:
		base := getenv("XDG_CONFIG_HOME")
		if base == "" || !filepath.IsAbs(base) {
			home, err := homeDir()
			if err != nil {
				return "", fmt.Errorf("failed to determine home directory: %w", err)
			}
			base = filepath.Join(home, ".config")
		}
		return filepath.Join(base, dirName(Application)), nil
	}
}

// dirName lowercases and strips whitespace the way XDG application
// directories are usually spelled.
func dirName(app string) string {
	out := make([]rune, 0, len(app))
	for _, r := range app {
		switch {
		case r == ' ' || r == '\t':
			continue
		case r >= 'A' && r <= 'Z':
			out = append(out, r+('a'-'A'))
		default:
			out = append(out, r)
		}
	}
	return string(out)
}

// Dir is a fixed configuration directory, used by --config-dir and tests.
type Dir string

// ConfigDir returns the directory itself.
func (d Dir) ConfigDir() (string, error) {
	if d == "" {
		return "", errors.New("config directory is empty")
	}
	return string(d), nil
}
