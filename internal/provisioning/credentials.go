package provisioning

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/zicongmei/gke-byo-node/internal/config"
)

// CredentialsStep decodes the bundled credentials and places them at their
// fixed paths, owner-read-only for the private key.
type CredentialsStep struct{}

// Name implements Step.
func (s *CredentialsStep) Name() string { return "credentials" }

// Check implements Step. Credentials are rewritten in place on every run;
// writing the same bytes again is a no-op in effect.
func (s *CredentialsStep) Check(_ *Context) (bool, error) { return false, nil }

// Apply implements Step.
func (s *CredentialsStep) Apply(c *Context) error {
	ca, key, cert, err := c.Credentials()
	if err != nil {
		return &CredentialWriteError{Target: "bundle", Err: err}
	}

	writes := []struct {
		path string
		data []byte
		mode os.FileMode
	}{
		{c.Path(config.CACertPath), ca, 0o644},
		{c.Path(config.NodeCertPath), cert, 0o644},
		{c.Path(config.NodeKeyPath), key, 0o600},
	}

	for _, w := range writes {
		if err := os.MkdirAll(filepath.Dir(w.path), 0o755); err != nil {
			return &CredentialWriteError{Target: w.path, Err: err}
		}
		if err := os.WriteFile(w.path, w.data, w.mode); err != nil {
			return &CredentialWriteError{Target: w.path, Err: err}
		}
		// WriteFile does not change the mode of a pre-existing file.
		if err := os.Chmod(w.path, w.mode); err != nil {
			return &CredentialWriteError{Target: w.path, Err: err}
		}
	}

	return nil
}

// Verify implements Step.
func (s *CredentialsStep) Verify(c *Context) error {
	for _, path := range []string{
		c.Path(config.CACertPath),
		c.Path(config.NodeCertPath),
	} {
		if _, err := os.Stat(path); err != nil {
			return &CredentialWriteError{Target: path, Err: err}
		}
	}

	keyPath := c.Path(config.NodeKeyPath)
	info, err := os.Stat(keyPath)
	if err != nil {
		return &CredentialWriteError{Target: keyPath, Err: err}
	}
	if perm := info.Mode().Perm(); perm != 0o600 {
		return &CredentialWriteError{Target: keyPath, Err: fmt.Errorf("private key mode is %04o, want 0600", perm)}
	}

	return nil
}
