// Package testutils holds helpers shared by package tests.
package testutils

import (
	"os"
	"testing"
)

// SetEnv sets the given environment variables and returns a function that
// restores their previous values.
func SetEnv(t *testing.T, env map[string]string) func() {
	t.Helper()

	type saved struct {
		value string
		ok    bool
	}
	previous := make(map[string]saved, len(env))
	for key, value := range env {
		v, ok := os.LookupEnv(key)
		previous[key] = saved{value: v, ok: ok}
		if err := os.Setenv(key, value); err != nil {
			t.Fatalf("set %s: %v", key, err)
		}
	}

	return func() {
		for key, p := range previous {
			if p.ok {
				_ = os.Setenv(key, p.value)
			} else {
				_ = os.Unsetenv(key)
			}
		}
	}
}

// UnsetEnv removes the given variables for the duration of the test so it
// does not inherit values from the host environment.
func UnsetEnv(t *testing.T, keys ...string) {
	t.Helper()
	for _, key := range keys {
		if orig, ok := os.LookupEnv(key); ok {
			t.Cleanup(func() { _ = os.Setenv(key, orig) })
		} else {
			t.Cleanup(func() { _ = os.Unsetenv(key) })
		}
		_ = os.Unsetenv(key)
	}
}

// ConfigEnvKeys lists every BAKADESK_ variable the application reads.
var ConfigEnvKeys = []string{
	"BAKADESK_CONFIG_DIR",
	"BAKADESK_LOG_LEVEL",
	"BAKADESK_LOG_FILE",
	"BAKADESK_TIMEOUT",
	"BAKADESK_NO_COLOR",
}
