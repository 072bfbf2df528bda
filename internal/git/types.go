package git

import (
	"time"

	"github.com/go-git/go-git/v5/plumbing/object"
)

const (
	// DefaultRemoteName is the remote used when Config.RemoteName is empty
	DefaultRemoteName = "origin"

	// DefaultTimeout bounds each network call when Config.Timeout is zero
	DefaultTimeout = 60 * time.Second

	// LockFileName is created inside the .git directory of the working copy
	LockFileName = "osb-git-store.lock"

	// ScratchDirName is a directory inside .git for files that must never be committed
	ScratchDirName = "osb-git-store"
)

// Config contains configuration for opening a synchronized working copy
type Config struct {
	// LocalPath is the directory of the working copy
	LocalPath string

	// RemoteURL is the shared remote repository. Empty means local-only:
	// pull and push become no-ops.
	RemoteURL string

	// RemoteName is the name of the remote (defaults to origin)
	RemoteName string

	// Branch is the branch to synchronize. Defaults to the branch HEAD points at.
	Branch string

	// Auth holds optional credentials for the remote
	Auth *AuthConfig

	// Author is the signature of commits created by the store
	Author Signature

	// Timeout bounds every individual network call (fetch, pull, push)
	Timeout time.Duration
}

// AuthConfig contains authentication settings for the remote
type AuthConfig struct {
	// Username and Password enable HTTP basic authentication
	Username string
	Password string

	// SSHKeyFile enables public key authentication for ssh remotes
	SSHKeyFile string

	// SSHKeyPassphrase decrypts SSHKeyFile if it is encrypted
	SSHKeyPassphrase string
}

// Signature identifies the author of commits
type Signature struct {
	Name  string
	Email string
}

func (s Signature) toObject() *object.Signature {
	name, email := s.Name, s.Email
	if name == "" {
		name = "OSB Git Store"
	}
	if email == "" {
		email = "osb-git-store@localhost"
	}
	return &object.Signature{
		Name:  name,
		Email: email,
		When:  time.Now(),
	}
}

func (c *Config) remoteName() string {
	if c.RemoteName == "" {
		return DefaultRemoteName
	}
	return c.RemoteName
}

func (c *Config) timeout() time.Duration {
	if c.Timeout <= 0 {
		return DefaultTimeout
	}
	return c.Timeout
}
