// Package credentials persists coreremotingctl's connection contexts: the
// channel address to dial and the credential list to present during the
// auth phase of the handshake (spec §4.7 step 3), modeled on the teacher's
// internal/cli/credentials store but shaped around CoreRemoting's
// name/value credential list (protocol.Credential) instead of an
// OAuth-style access/refresh token pair, since the wire protocol has no
// notion of a server-issued session token to refresh.
package credentials

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

const (
	// DefaultConfigDir is the default directory for coreremotingctl's
	// cached connection contexts.
	DefaultConfigDir = "coreremotingctl"
	// ConfigFileName is the name of the context file.
	ConfigFileName = "contexts.json"
	// FilePermissions for the context file (read/write for owner only,
	// since it carries credential values).
	FilePermissions = 0600
	// DirPermissions for the context directory.
	DirPermissions = 0700
)

var (
	// ErrNoCurrentContext indicates no context is currently set.
	ErrNoCurrentContext = errors.New("no current context set")
	// ErrContextNotFound indicates the requested context doesn't exist.
	ErrContextNotFound = errors.New("context not found")
	// ErrNotLoggedIn indicates no credentials are cached for the current
	// context.
	ErrNotLoggedIn = errors.New("not logged in - run 'coreremotingctl login' first")
)

// Credential is one name/value pair presented during the auth phase
// (spec §3/§6's AuthMessage.Credentials).
type Credential struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// Context represents one cached channel to dial plus the credentials to
// authenticate with.
type Context struct {
	Address     string       `json:"address"`
	ChannelName string       `json:"channel_name,omitempty"`
	Credentials []Credential `json:"credentials,omitempty"`
}

// HasCredentials reports whether this context has a cached credential list.
func (c *Context) HasCredentials() bool {
	return len(c.Credentials) > 0
}

// Config is the on-disk shape of the context file.
type Config struct {
	CurrentContext string              `json:"current_context"`
	Contexts       map[string]*Context `json:"contexts"`
}

// Store manages connection-context storage and retrieval.
type Store struct {
	configPath string
	config     *Config
}

// NewStore creates a new credential store, loading any existing contexts
// from disk.
func NewStore() (*Store, error) {
	configPath, err := getConfigPath()
	if err != nil {
		return nil, err
	}

	store := &Store{configPath: configPath}

	if err := store.load(); err != nil {
		if os.IsNotExist(err) {
			store.config = &Config{Contexts: make(map[string]*Context)}
		} else {
			return nil, err
		}
	}

	return store, nil
}

func getConfigPath() (string, error) {
	configHome := os.Getenv("XDG_CONFIG_HOME")
	if configHome == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("cannot determine home directory: %w", err)
		}
		configHome = filepath.Join(home, ".config")
	}

	return filepath.Join(configHome, DefaultConfigDir, ConfigFileName), nil
}

func (s *Store) load() error {
	data, err := os.ReadFile(s.configPath)
	if err != nil {
		return err
	}

	s.config = &Config{}
	return json.Unmarshal(data, s.config)
}

func (s *Store) save() error {
	dir := filepath.Dir(s.configPath)
	if err := os.MkdirAll(dir, DirPermissions); err != nil {
		return fmt.Errorf("cannot create config directory: %w", err)
	}

	data, err := json.MarshalIndent(s.config, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(s.configPath, data, FilePermissions)
}

// GetCurrentContext returns the current context.
func (s *Store) GetCurrentContext() (*Context, error) {
	if s.config.CurrentContext == "" {
		return nil, ErrNoCurrentContext
	}

	ctx, ok := s.config.Contexts[s.config.CurrentContext]
	if !ok {
		return nil, ErrContextNotFound
	}

	return ctx, nil
}

// GetCurrentContextName returns the name of the current context.
func (s *Store) GetCurrentContextName() string {
	return s.config.CurrentContext
}

// SetContext creates or updates a context and saves it to disk.
func (s *Store) SetContext(name string, ctx *Context) error {
	if s.config.Contexts == nil {
		s.config.Contexts = make(map[string]*Context)
	}
	s.config.Contexts[name] = ctx
	return s.save()
}

// UseContext switches to a different context.
func (s *Store) UseContext(name string) error {
	if _, ok := s.config.Contexts[name]; !ok {
		return ErrContextNotFound
	}
	s.config.CurrentContext = name
	return s.save()
}

// ClearCurrentContext clears cached credentials from the current context
// (logout), keeping the address so a later login can reuse it.
func (s *Store) ClearCurrentContext() error {
	ctx, err := s.GetCurrentContext()
	if err != nil {
		return err
	}

	ctx.Credentials = nil
	return s.save()
}

// ConfigPath returns the path to the context file.
func (s *Store) ConfigPath() string {
	return s.configPath
}

// DefaultContextName is used when no context name has been chosen yet.
const DefaultContextName = "default"
