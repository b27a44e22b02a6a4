package handlers

import (
	"context"
	"fmt"

	"github.com/zicongmei/gke-byo-node/internal/config"
	"github.com/zicongmei/gke-byo-node/internal/platform/host"
	"github.com/zicongmei/gke-byo-node/internal/provisioning"
)

// Seams for tests.
var (
	newRunner  = func() host.Runner { return host.ExecRunner{} }
	newFetcher = func() host.Fetcher { return host.NewHTTPFetcher() }
)

// ProvisionOptions carries the provision command inputs: the enrollment
// bundle parameters.
type ProvisionOptions struct {
	NodeName          string
	APIServerURL      string
	CACertB64         string
	NodeKeyB64        string
	NodeCertB64       string
	DNSAddress        string
	KubernetesVersion string
	ContainerdVersion string
	CNIVersion        string

	// Root prefixes every path the pipeline touches. Empty in production.
	Root string
}

// Provision runs the node-side provisioning pipeline to completion.
func Provision(ctx context.Context, opts ProvisionOptions) error {
	identity := config.NodeIdentity{Name: opts.NodeName}
	if err := identity.Validate(); err != nil {
		return err
	}

	versions, err := config.Versions{
		Kubernetes: opts.KubernetesVersion,
		Containerd: opts.ContainerdVersion,
		CNIPlugins: opts.CNIVersion,
	}.Normalize()
	if err != nil {
		return err
	}

	required := []struct {
		name  string
		value string
	}{
		{"api-server", opts.APIServerURL},
		{"ca-cert", opts.CACertB64},
		{"node-key", opts.NodeKeyB64},
		{"node-cert", opts.NodeCertB64},
		{"dns-address", opts.DNSAddress},
	}
	for _, p := range required {
		if p.value == "" {
			return fmt.Errorf("missing required parameter --%s", p.name)
		}
	}

	pctx := &provisioning.Context{
		Ctx:          ctx,
		NodeName:     opts.NodeName,
		APIServerURL: opts.APIServerURL,
		CACertB64:    opts.CACertB64,
		NodeKeyB64:   opts.NodeKeyB64,
		NodeCertB64:  opts.NodeCertB64,
		DNSAddress:   opts.DNSAddress,
		Versions:     versions,
		Runner:       newRunner(),
		Fetcher:      newFetcher(),
		Root:         opts.Root,
	}

	return provisioning.Run(pctx, provisioning.Steps())
}
