// Package config provides configuration loading for the instance store and its CLI.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/stacklok/osb-git-store/internal/git"
	"github.com/stacklok/osb-git-store/internal/telemetry"
)

// PasswordEnvVar is consulted when no password file is configured
const PasswordEnvVar = "OSB_GIT_STORE_GIT_PASSWORD"

// Option defines the interface for configuration options
type Option func(*loaderConfig) error

// loaderConfig defines the configuration for loading a configuration
type loaderConfig struct {
	path string
}

// WithConfigPath loads configuration from a YAML file
func WithConfigPath(path string) Option {
	return func(cfg *loaderConfig) error {
		if path == "" {
			return fmt.Errorf("path is required")
		}

		// Resolve symlinks; this also cleans the path.
		realPath, err := filepath.EvalSymlinks(path)
		if err != nil {
			return fmt.Errorf("failed to evaluate symlinks: %w", err)
		}

		if !filepath.IsAbs(realPath) && !filepath.IsLocal(realPath) {
			return fmt.Errorf("path is not local or contains invalid traversal: %s", path)
		}

		cfg.path = realPath
		return nil
	}
}

// Config represents the root configuration structure
type Config struct {
	Repository RepositoryConfig `yaml:"repository"`

	// CommitMessagePrefix starts every commit message written by the store.
	// Defaults to "OSB API".
	CommitMessagePrefix string `yaml:"commitMessagePrefix,omitempty"`

	Telemetry *telemetry.Config `yaml:"telemetry,omitempty"`
}

// RepositoryConfig defines the working copy and its remote
type RepositoryConfig struct {
	// LocalPath is the directory of the working copy
	LocalPath string `yaml:"localPath"`

	// Remote is the URL of the shared repository. Empty means local-only.
	Remote string `yaml:"remote,omitempty"`

	// RemoteName defaults to origin
	RemoteName string `yaml:"remoteName,omitempty"`

	// Branch defaults to the branch currently checked out in the working copy
	Branch string `yaml:"branch,omitempty"`

	// Timeout bounds each network call (e.g. "30s"); defaults to 60s
	Timeout string `yaml:"timeout,omitempty"`

	Auth   *AuthConfig   `yaml:"auth,omitempty"`
	Author *AuthorConfig `yaml:"author,omitempty"`
}

// AuthConfig defines credentials for the remote
type AuthConfig struct {
	// Username enables HTTP basic authentication
	Username string `yaml:"username,omitempty"`

	// PasswordFile is the path to a file containing the password or access token.
	// The file should contain only the password with optional trailing whitespace.
	PasswordFile string `yaml:"passwordFile,omitempty"`

	// SSHKeyFile enables public key authentication; mutually exclusive with Username
	SSHKeyFile string `yaml:"sshKeyFile,omitempty"`
}

// AuthorConfig is the signature of commits created by the store
type AuthorConfig struct {
	Name  string `yaml:"name,omitempty"`
	Email string `yaml:"email,omitempty"`
}

// GetPassword returns the remote password using the following priority:
// 1. Read from PasswordFile if specified
// 2. Read from the OSB_GIT_STORE_GIT_PASSWORD environment variable
//
// The password from file will have leading/trailing whitespace trimmed.
func (a *AuthConfig) GetPassword() (string, error) {
	if a.PasswordFile != "" {
		cleanPath := filepath.Clean(a.PasswordFile)

		data, err := os.ReadFile(cleanPath)
		if err != nil {
			return "", fmt.Errorf("failed to read password from file %s: %w", a.PasswordFile, err)
		}
		return strings.TrimSpace(string(data)), nil
	}

	if envPassword := os.Getenv(PasswordEnvVar); envPassword != "" {
		return envPassword, nil
	}

	return "", fmt.Errorf("no git password configured: set passwordFile or %s environment variable", PasswordEnvVar)
}

// LoadConfig loads and parses configuration from a YAML file
func LoadConfig(opts ...Option) (*Config, error) {
	loaderCfg := &loaderConfig{}
	for _, opt := range opts {
		if err := opt(loaderCfg); err != nil {
			return nil, err
		}
	}

	if loaderCfg.path == "" {
		return nil, fmt.Errorf("path is required")
	}

	data, err := os.ReadFile(loaderCfg.path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse YAML config: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// Validate performs validation on the configuration
func (c *Config) Validate() error {
	if c == nil {
		return fmt.Errorf("config cannot be nil")
	}

	repo := &c.Repository
	if repo.LocalPath == "" {
		return fmt.Errorf("repository.localPath is required")
	}

	if repo.Timeout != "" {
		d, err := time.ParseDuration(repo.Timeout)
		if err != nil {
			return fmt.Errorf("repository.timeout must be a valid duration (e.g., '30s', '2m'): %w", err)
		}
		if d <= 0 {
			return fmt.Errorf("repository.timeout must be positive, got %s", repo.Timeout)
		}
	}

	if auth := repo.Auth; auth != nil {
		if auth.Username != "" && auth.SSHKeyFile != "" {
			return fmt.Errorf("repository.auth: only one of username or sshKeyFile may be specified")
		}
		if auth.PasswordFile != "" && auth.Username == "" {
			return fmt.Errorf("repository.auth: passwordFile requires username")
		}
		if (auth.Username != "" || auth.SSHKeyFile != "") && repo.Remote == "" {
			return fmt.Errorf("repository.auth: credentials require repository.remote")
		}
	}

	if c.Telemetry != nil {
		if err := c.Telemetry.Validate(); err != nil {
			return fmt.Errorf("telemetry: %w", err)
		}
	}

	return nil
}

// GitConfig converts the repository settings into a git.Config, resolving
// the password for HTTP basic authentication
func (c *Config) GitConfig() (*git.Config, error) {
	repo := &c.Repository

	cfg := &git.Config{
		LocalPath:  repo.LocalPath,
		RemoteURL:  repo.Remote,
		RemoteName: repo.RemoteName,
		Branch:     repo.Branch,
	}

	if repo.Timeout != "" {
		d, err := time.ParseDuration(repo.Timeout)
		if err != nil {
			return nil, fmt.Errorf("invalid repository.timeout: %w", err)
		}
		cfg.Timeout = d
	}

	if repo.Author != nil {
		cfg.Author = git.Signature{Name: repo.Author.Name, Email: repo.Author.Email}
	}

	if auth := repo.Auth; auth != nil {
		switch {
		case auth.SSHKeyFile != "":
			cfg.Auth = &git.AuthConfig{SSHKeyFile: auth.SSHKeyFile}
		case auth.Username != "":
			password, err := auth.GetPassword()
			if err != nil {
				return nil, err
			}
			cfg.Auth = &git.AuthConfig{Username: auth.Username, Password: password}
		}
	}

	return cfg, nil
}
