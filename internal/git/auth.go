package git

import (
	"fmt"

	"github.com/go-git/go-git/v5/plumbing/transport"
	githttp "github.com/go-git/go-git/v5/plumbing/transport/http"
	"github.com/go-git/go-git/v5/plumbing/transport/ssh"
)

// authMethod builds the go-git authentication method for the configured credentials
func (a *AuthConfig) authMethod() (transport.AuthMethod, error) {
	switch {
	case a == nil:
		return nil, nil
	case a.SSHKeyFile != "":
		keys, err := ssh.NewPublicKeysFromFile("git", a.SSHKeyFile, a.SSHKeyPassphrase)
		if err != nil {
			return nil, fmt.Errorf("failed to load ssh key %s: %w", a.SSHKeyFile, err)
		}
		return keys, nil
	case a.Username != "":
		return &githttp.BasicAuth{
			Username: a.Username,
			Password: a.Password,
		}, nil
	}
	return nil, nil
}
