package provisioning

import (
	"fmt"
	"os"
	"path/filepath"

	"k8s.io/client-go/tools/clientcmd"
	clientcmdapi "k8s.io/client-go/tools/clientcmd/api"

	"github.com/zicongmei/gke-byo-node/internal/config"
	"github.com/zicongmei/gke-byo-node/internal/keygen"
)

// KubeconfigStep renders the client configurations for the node agent and
// the network proxy. Both embed the same node identity.
type KubeconfigStep struct{}

// Name implements Step.
func (s *KubeconfigStep) Name() string { return "kubeconfigs" }

// Check implements Step.
func (s *KubeconfigStep) Check(_ *Context) (bool, error) { return false, nil }

// Apply implements Step.
func (s *KubeconfigStep) Apply(c *Context) error {
	ca, key, cert, err := c.Credentials()
	if err != nil {
		return fmt.Errorf("reading bundled credentials: %w", err)
	}

	user := keygen.NodeUserPrefix + c.NodeName
	cfg := clientcmdapi.Config{
		Clusters: map[string]*clientcmdapi.Cluster{
			"default-cluster": {
				Server:                   c.APIServerURL,
				CertificateAuthorityData: ca,
			},
		},
		AuthInfos: map[string]*clientcmdapi.AuthInfo{
			user: {
				ClientCertificateData: cert,
				ClientKeyData:         key,
			},
		},
		Contexts: map[string]*clientcmdapi.Context{
			"default": {
				Cluster:  "default-cluster",
				AuthInfo: user,
			},
		},
		CurrentContext: "default",
	}

	data, err := clientcmd.Write(cfg)
	if err != nil {
		return fmt.Errorf("serializing kubeconfig: %w", err)
	}

	for _, path := range []string{
		c.Path(config.KubeletKubeconfigPath),
		c.Path(config.KubeProxyKubeconfigPath),
	} {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return fmt.Errorf("creating %s: %w", filepath.Dir(path), err)
		}
		if err := os.WriteFile(path, data, 0o600); err != nil {
			return fmt.Errorf("writing %s: %w", path, err)
		}
	}

	return nil
}

// Verify implements Step. Both files must parse and reference the same
// identity.
func (s *KubeconfigStep) Verify(c *Context) error {
	user := keygen.NodeUserPrefix + c.NodeName

	for _, path := range []string{
		c.Path(config.KubeletKubeconfigPath),
		c.Path(config.KubeProxyKubeconfigPath),
	} {
		loaded, err := clientcmd.LoadFromFile(path)
		if err != nil {
			return fmt.Errorf("verifying %s: %w", path, err)
		}
		kubeCtx, ok := loaded.Contexts[loaded.CurrentContext]
		if !ok || kubeCtx == nil {
			return fmt.Errorf("verifying %s: no current context", path)
		}
		if kubeCtx.AuthInfo != user {
			return fmt.Errorf("verifying %s: identity is %q, want %q", path, kubeCtx.AuthInfo, user)
		}
	}

	return nil
}
