package provisioning

import (
	"context"
	"encoding/base64"
	"fmt"
	"path/filepath"

	"github.com/zicongmei/gke-byo-node/internal/config"
	"github.com/zicongmei/gke-byo-node/internal/platform/host"
)

// Context carries the enrollment bundle values and the host seams into each
// provisioning step.
type Context struct {
	Ctx context.Context

	// Bundle invocation parameters.
	NodeName     string
	APIServerURL string
	CACertB64    string
	NodeKeyB64   string
	NodeCertB64  string
	DNSAddress   string
	Versions     config.Versions

	Runner  host.Runner
	Fetcher host.Fetcher

	// Root prefixes every filesystem path the steps touch. Empty in
	// production; a temp directory in tests.
	Root string
}

// Path maps a canonical node path under the context root.
func (c *Context) Path(p string) string {
	if c.Root == "" {
		return p
	}
	return filepath.Join(c.Root, p)
}

// Credentials decodes the base64 bundle values into the CA bundle, private
// key, and signed certificate.
func (c *Context) Credentials() (ca, key, cert []byte, err error) {
	if ca, err = base64.StdEncoding.DecodeString(c.CACertB64); err != nil {
		return nil, nil, nil, fmt.Errorf("decoding CA bundle: %w", err)
	}
	if key, err = base64.StdEncoding.DecodeString(c.NodeKeyB64); err != nil {
		return nil, nil, nil, fmt.Errorf("decoding private key: %w", err)
	}
	if cert, err = base64.StdEncoding.DecodeString(c.NodeCertB64); err != nil {
		return nil, nil, nil, fmt.Errorf("decoding signed certificate: %w", err)
	}
	return ca, key, cert, nil
}
