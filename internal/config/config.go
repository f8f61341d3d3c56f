// Package config handles the XDG configuration directory, its file paths and
// the optional config.hcl settings file.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclsyntax"
)

const (
	// AppName is the application directory name.
	AppName = "tasklist"

	// OAuthClientFile is the OAuth client credentials filename.
	OAuthClientFile = "oauth_client.json"

	// TokenFile is the stored OAuth token filename.
	TokenFile = "token.json"

	// SettingsFile is the optional HCL settings filename.
	SettingsFile = "config.hcl"

	// DataDir is the default file store directory inside the config directory.
	DataDir = "data"

	// DSNEnv overrides the mysql store DSN.
	DSNEnv = "TASKLIST_STORE_DSN"
)

// Store backend types.
const (
	StoreFile   = "file"
	StoreSQLite = "sqlite"
	StoreMySQL  = "mysql"
	StoreGoogle = "google"
)

// Config holds configuration paths and settings.
type Config struct {
	// Dir is the configuration directory path.
	Dir string

	// Debug enables debug logging.
	Debug bool

	// Quiet suppresses informational output.
	Quiet bool

	// Key is the store key the task collection is saved under.
	Key string

	// SaveTimeout bounds each store write. Zero uses the manager default.
	SaveTimeout time.Duration

	// Store selects and configures the durable store backend.
	Store Store
}

// Store configures the durable store backend.
type Store struct {
	// Type is one of StoreFile, StoreSQLite, StoreMySQL, StoreGoogle.
	Type string

	// Path is the directory (file) or database file (sqlite).
	Path string

	// DSN is the mysql data source name.
	DSN string

	// List is the Google Tasks list title (google).
	List string
}

// settings is the schema of config.hcl.
type settings struct {
	Key         string         `hcl:"key,optional"`
	SaveTimeout string         `hcl:"save_timeout,optional"`
	Store       *storeSettings `hcl:"store,block"`
}

type storeSettings struct {
	Type string `hcl:"type,label"`
	Path string `hcl:"path,optional"`
	DSN  string `hcl:"dsn,optional"`
	List string `hcl:"list,optional"`
}

// New creates a new Config with the default or specified config directory.
// If configDir is empty, uses XDG_CONFIG_HOME/tasklist or $HOME/.config/tasklist.
// Settings from config.hcl in that directory are applied if the file exists.
func New(configDir string) (*Config, error) {
	dir := configDir
	if dir == "" {
		dir = DefaultConfigDir()
	}
	cfg := &Config{
		Dir:   dir,
		Store: Store{Type: StoreFile},
	}
	if err := cfg.loadSettings(); err != nil {
		return nil, err
	}
	cfg.applyDefaults()
	return cfg, nil
}

// DefaultConfigDir returns the default configuration directory.
// Uses XDG_CONFIG_HOME if set, otherwise $HOME/.config.
func DefaultConfigDir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, AppName)
	}
	home, err := os.UserHomeDir()
	if err != nil {
		// Fallback to current directory if home can't be determined
		return AppName
	}
	return filepath.Join(home, ".config", AppName)
}

func (c *Config) loadSettings() error {
	path := c.SettingsPath()
	src, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("reading config: %w", err)
	}
	file, diags := hclsyntax.ParseConfig(src, path, hcl.Pos{Line: 1, Column: 1})
	if diags.HasErrors() {
		return fmt.Errorf("parsing config: %s", diags.Error())
	}
	var s settings
	diags = gohcl.DecodeBody(file.Body, nil, &s)
	if diags.HasErrors() {
		return fmt.Errorf("decoding config: %s", diags.Error())
	}

	c.Key = s.Key
	if s.SaveTimeout != "" {
		d, err := time.ParseDuration(s.SaveTimeout)
		if err != nil || d <= 0 {
			return fmt.Errorf("decoding config: invalid save_timeout: %q", s.SaveTimeout)
		}
		c.SaveTimeout = d
	}
	if s.Store != nil {
		switch s.Store.Type {
		case StoreFile, StoreSQLite, StoreMySQL, StoreGoogle:
		default:
			return fmt.Errorf("decoding config: unknown store type: %q", s.Store.Type)
		}
		c.Store = Store{
			Type: s.Store.Type,
			Path: s.Store.Path,
			DSN:  s.Store.DSN,
			List: s.Store.List,
		}
	}
	return nil
}

func (c *Config) applyDefaults() {
	if c.Key == "" {
		c.Key = "tasks"
	}
	switch c.Store.Type {
	case StoreFile:
		if c.Store.Path == "" {
			c.Store.Path = filepath.Join(c.Dir, DataDir)
		}
	case StoreSQLite:
		if c.Store.Path == "" {
			c.Store.Path = filepath.Join(c.Dir, "tasks.db")
		}
	case StoreMySQL:
		if dsn := os.Getenv(DSNEnv); dsn != "" {
			c.Store.DSN = dsn
		}
	}
}

// SettingsPath returns the path to the HCL settings file.
func (c *Config) SettingsPath() string {
	return filepath.Join(c.Dir, SettingsFile)
}

// OAuthClientPath returns the path to the OAuth client credentials file.
func (c *Config) OAuthClientPath() string {
	return filepath.Join(c.Dir, OAuthClientFile)
}

// TokenPath returns the path to the stored OAuth token file.
func (c *Config) TokenPath() string {
	return filepath.Join(c.Dir, TokenFile)
}

// EnsureDir creates the config directory if it doesn't exist.
// Directory is created with mode 0700.
func (c *Config) EnsureDir() error {
	return os.MkdirAll(c.Dir, 0700)
}

// HasOAuthClient checks if the OAuth client credentials file exists.
func (c *Config) HasOAuthClient() bool {
	_, err := os.Stat(c.OAuthClientPath())
	return err == nil
}

// HasToken checks if the token file exists.
func (c *Config) HasToken() bool {
	_, err := os.Stat(c.TokenPath())
	return err == nil
}

// RemoveToken deletes the token file.
func (c *Config) RemoveToken() error {
	return os.Remove(c.TokenPath())
}
