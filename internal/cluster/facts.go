// Package cluster discovers the connection facts a node needs to join the
// cluster: the API server endpoint, the CA trust bundle, and the in-cluster
// DNS resolver address. Facts are read once per coordinator run from the
// active kubeconfig context and never persisted.
package cluster

import (
	"context"
	"fmt"
	"os"

	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/client-go/kubernetes"
	"k8s.io/client-go/tools/clientcmd"
	clientcmdapi "k8s.io/client-go/tools/clientcmd/api"
	"k8s.io/klog/v2"

	"github.com/zicongmei/gke-byo-node/internal/config"
)

// Facts are the cluster connection facts handed to the node provisioner.
// Immutable once discovered.
type Facts struct {
	// APIServerURL is the endpoint of the cluster API server.
	APIServerURL string

	// CABundle is the PEM-encoded cluster CA trust bundle.
	CABundle []byte

	// DNSAddress is the in-cluster DNS resolver address, or the conventional
	// default when the resolver service could not be queried.
	DNSAddress string
}

// DiscoveryError reports a missing or unreadable cluster fact. Discovery
// errors are fatal; there is no retry path.
type DiscoveryError struct {
	// Field names the fact that could not be discovered.
	Field string
	Err   error
}

func (e *DiscoveryError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("cluster discovery: %s: %v", e.Field, e.Err)
	}
	return fmt.Sprintf("cluster discovery: missing %s", e.Field)
}

func (e *DiscoveryError) Unwrap() error { return e.Err }

// Discover reads the active context of the given kubeconfig (or the default
// loading rules when the path is empty) and returns the cluster facts.
//
// The CA bundle may be inline (certificate-authority-data) or a file path
// (certificate-authority); if neither is present discovery fails rather than
// proceeding with an empty trust bundle. DNS discovery is best-effort unless
// strictDNS is set: a failed lookup falls back to config.DefaultClusterDNS
// with a warning.
func Discover(ctx context.Context, kubeconfigPath string, strictDNS bool) (*Facts, error) {
	loader := newConfigLoader(kubeconfigPath)

	raw, err := loader.RawConfig()
	if err != nil {
		return nil, &DiscoveryError{Field: "kubeconfig", Err: err}
	}

	facts, err := factsFrom(raw)
	if err != nil {
		return nil, err
	}

	restCfg, err := loader.ClientConfig()
	if err != nil {
		return nil, &DiscoveryError{Field: "client configuration", Err: err}
	}
	client, err := kubernetes.NewForConfig(restCfg)
	if err != nil {
		return nil, &DiscoveryError{Field: "client configuration", Err: err}
	}

	dns, err := lookupClusterDNS(ctx, client)
	if err != nil {
		if strictDNS {
			return nil, &DiscoveryError{Field: "DNS address", Err: err}
		}
		klog.Warningf("Could not query the cluster DNS service, using default %s: %v", config.DefaultClusterDNS, err)
		dns = config.DefaultClusterDNS
	}
	facts.DNSAddress = dns

	return facts, nil
}

// newConfigLoader builds kubeconfig loading rules honoring an explicit path.
func newConfigLoader(kubeconfigPath string) clientcmd.ClientConfig {
	rules := clientcmd.NewDefaultClientConfigLoadingRules()
	if kubeconfigPath != "" {
		rules.ExplicitPath = kubeconfigPath
	}
	return clientcmd.NewNonInteractiveDeferredLoadingClientConfig(rules, &clientcmd.ConfigOverrides{})
}

// factsFrom extracts the endpoint and CA bundle from the active context of a
// raw kubeconfig.
func factsFrom(raw clientcmdapi.Config) (*Facts, error) {
	kubeCtx, ok := raw.Contexts[raw.CurrentContext]
	if !ok || kubeCtx == nil {
		return nil, &DiscoveryError{Field: "current context"}
	}

	clusterCfg, ok := raw.Clusters[kubeCtx.Cluster]
	if !ok || clusterCfg == nil {
		return nil, &DiscoveryError{Field: fmt.Sprintf("cluster %q", kubeCtx.Cluster)}
	}

	if clusterCfg.Server == "" {
		return nil, &DiscoveryError{Field: "API server endpoint"}
	}

	ca := clusterCfg.CertificateAuthorityData
	if len(ca) == 0 && clusterCfg.CertificateAuthority != "" {
		data, err := os.ReadFile(clusterCfg.CertificateAuthority)
		if err != nil {
			return nil, &DiscoveryError{Field: "CA data", Err: err}
		}
		ca = data
	}
	if len(ca) == 0 {
		return nil, &DiscoveryError{Field: "CA data"}
	}

	return &Facts{APIServerURL: clusterCfg.Server, CABundle: ca}, nil
}

// lookupClusterDNS returns the ClusterIP of the kube-dns service.
func lookupClusterDNS(ctx context.Context, client kubernetes.Interface) (string, error) {
	svc, err := client.CoreV1().Services("kube-system").Get(ctx, "kube-dns", metav1.GetOptions{})
	if err != nil {
		return "", fmt.Errorf("looking up kube-system/kube-dns: %w", err)
	}
	if svc.Spec.ClusterIP == "" {
		return "", fmt.Errorf("kube-system/kube-dns has no cluster IP")
	}
	return svc.Spec.ClusterIP, nil
}
