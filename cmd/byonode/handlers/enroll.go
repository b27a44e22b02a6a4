// Package handlers implements the byonode command logic. Commands in the
// commands package delegate here after flag binding, keeping the handlers
// testable with injected collaborators.
package handlers

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"k8s.io/client-go/kubernetes"
	"k8s.io/client-go/tools/clientcmd"
	"k8s.io/klog/v2"

	"github.com/zicongmei/gke-byo-node/internal/bundle"
	"github.com/zicongmei/gke-byo-node/internal/cluster"
	"github.com/zicongmei/gke-byo-node/internal/config"
	"github.com/zicongmei/gke-byo-node/internal/keygen"
	"github.com/zicongmei/gke-byo-node/internal/signing"
)

// Seams for tests.
var (
	discoverFacts        = cluster.Discover
	newCredentialRequest = keygen.NewNodeCredentialRequest
	newKubeClient        = buildKubeClient
	signCertificate      = runSigning
)

// EnrollOptions carries the enroll command inputs.
type EnrollOptions struct {
	NodeName          string
	KubeconfigPath    string
	KubernetesVersion string
	ContainerdVersion string
	CNIVersion        string
	StrictDNS         bool
	PollInterval      time.Duration
	PollAttempts      int

	// Out receives the provision invocation. Defaults to stdout.
	Out io.Writer
}

// Enroll runs the control-plane side of node enrollment and prints the
// provision invocation for the target node.
func Enroll(ctx context.Context, opts EnrollOptions) error {
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

	// Facts come first: a missing CA bundle fails the run before any key
	// material is generated.
	facts, err := discoverFacts(ctx, opts.KubeconfigPath, opts.StrictDNS)
	if err != nil {
		return err
	}
	klog.Infof("Discovered cluster endpoint %s (DNS %s)", facts.APIServerURL, facts.DNSAddress)

	req, err := newCredentialRequest(opts.NodeName)
	if err != nil {
		return err
	}

	client, err := newKubeClient(opts.KubeconfigPath)
	if err != nil {
		return err
	}

	cert, err := signCertificate(ctx, client, opts, req.CSRPEM)
	if err != nil {
		return err
	}

	b := &bundle.Bundle{
		NodeName:     opts.NodeName,
		APIServerURL: facts.APIServerURL,
		CABundle:     facts.CABundle,
		PrivateKey:   req.PrivateKeyPEM,
		Certificate:  cert,
		DNSAddress:   facts.DNSAddress,
		Versions:     versions,
	}
	if err := b.Validate(); err != nil {
		return err
	}

	out := opts.Out
	if out == nil {
		out = os.Stdout
	}
	fmt.Fprintln(out, b.Command())

	return nil
}

// buildKubeClient creates a cluster client from the same kubeconfig the
// facts were discovered from.
func buildKubeClient(kubeconfigPath string) (kubernetes.Interface, error) {
	rules := clientcmd.NewDefaultClientConfigLoadingRules()
	if kubeconfigPath != "" {
		rules.ExplicitPath = kubeconfigPath
	}

	cfg, err := clientcmd.NewNonInteractiveDeferredLoadingClientConfig(rules, &clientcmd.ConfigOverrides{}).ClientConfig()
	if err != nil {
		return nil, fmt.Errorf("building cluster client: %w", err)
	}

	client, err := kubernetes.NewForConfig(cfg)
	if err != nil {
		return nil, fmt.Errorf("building cluster client: %w", err)
	}
	return client, nil
}

// runSigning drives the signing coordinator with the configured poll bounds.
func runSigning(ctx context.Context, client kubernetes.Interface, opts EnrollOptions, csrPEM []byte) ([]byte, error) {
	var copts []signing.Option
	if opts.PollInterval > 0 {
		copts = append(copts, signing.WithPollInterval(opts.PollInterval))
	}
	if opts.PollAttempts > 0 {
		copts = append(copts, signing.WithMaxAttempts(opts.PollAttempts))
	}

	return signing.NewCoordinator(client, copts...).Sign(ctx, opts.NodeName, csrPEM)
}
