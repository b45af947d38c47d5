package auth

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/natefinch/atomic"
	"github.com/santhosh-tekuri/jsonschema/v6"
)

// credentialsFile is the JSON file name for stored credentials
const credentialsFile = "credentials.json"

const schemaURL = "https://bakadesk.app/schemas/credentials.json"

//go:embed credentials.schema.json
var schemaDoc []byte

var credentialsSchema = sync.OnceValues(func() (*jsonschema.Schema, error) {
	doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(schemaDoc))
	if err != nil {
		return nil, fmt.Errorf("failed to parse credentials schema: %w", err)
	}
	c := jsonschema.NewCompiler()
	if err := c.AddResource(schemaURL, doc); err != nil {
		return nil, fmt.Errorf("failed to add credentials schema: %w", err)
	}
	return c.Compile(schemaURL)
})

// Store persists one Credentials record in the application config directory.
type Store struct {
	paths PathProvider
}

// NewStore creates a store rooted at the directory resolved by paths.
func NewStore(paths PathProvider) *Store {
	if paths == nil {
		paths = OSPaths{}
	}
	return &Store{paths: paths}
}

// Path returns the location of the credentials file.
func (s *Store) Path() (string, error) {
	dir, err := s.paths.ConfigDir()
	if err != nil {
		return "", fmt.Errorf("failed to resolve config directory: %w", err)
	}
	return filepath.Join(dir, credentialsFile), nil
}

// Load returns the stored credentials. Any failure (unresolvable directory,
// missing or unreadable file, malformed content) yields the zero record.
func (s *Store) Load() Credentials {
	creds, err := s.read()
	if err != nil {
		slog.Debug("using default credentials", "reason", err)
		return Credentials{}
	}
	return creds
}

func (s *Store) read() (Credentials, error) {
	path, err := s.Path()
	if err != nil {
		return Credentials{}, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return Credentials{}, err
	}

	creds, err := Decode(data)
	if err != nil {
		return Credentials{}, fmt.Errorf("failed to parse credentials from %s: %w", path, err)
	}
	return creds, nil
}

// Save writes creds to the credentials file, replacing any previous content.
// The directory is created if needed.
func (s *Store) Save(creds Credentials) error {
	path, err := s.Path()
	if err != nil {
		return err
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", dir, err)
	}

	data, err := json.MarshalIndent(creds, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal credentials: %w", err)
	}

	if err := atomic.WriteFile(path, bytes.NewReader(data)); err != nil {
		return fmt.Errorf("failed to write credentials to %s: %w", path, err)
	}

	slog.Debug("credentials saved", "path", path)
	return nil
}

// Decode parses a stored credentials document. All four fields must be
// present with the right types; unknown fields are ignored.
func Decode(data []byte) (Credentials, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return Credentials{}, errors.New("empty document")
	}

	schema, err := credentialsSchema()
	if err != nil {
		return Credentials{}, err
	}

	inst, err := jsonschema.UnmarshalJSON(bytes.NewReader(data))
	if err != nil {
		return Credentials{}, err
	}
	if err := schema.Validate(inst); err != nil {
		return Credentials{}, err
	}

	var creds Credentials
	if err := json.Unmarshal(data, &creds); err != nil {
		return Credentials{}, err
	}
	return creds, nil
}
