package provisioning

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"text/template"

	"sigs.k8s.io/yaml"

	"github.com/zicongmei/gke-byo-node/internal/config"
)

// kubeletConfiguration mirrors the subset of the upstream KubeletConfiguration
// the provisioner renders. Field names follow the upstream API.
type kubeletConfiguration struct {
	APIVersion               string               `json:"apiVersion"`
	Kind                     string               `json:"kind"`
	Authentication           kubeletAuth          `json:"authentication"`
	Authorization            kubeletAuthorization `json:"authorization"`
	CgroupDriver             string               `json:"cgroupDriver"`
	ClusterDNS               []string             `json:"clusterDNS"`
	ClusterDomain            string               `json:"clusterDomain"`
	ContainerRuntimeEndpoint string               `json:"containerRuntimeEndpoint"`
}

type kubeletAuth struct {
	Anonymous kubeletToggle `json:"anonymous"`
	Webhook   kubeletToggle `json:"webhook"`
	X509      kubeletAuthCA `json:"x509"`
}

type kubeletToggle struct {
	Enabled bool `json:"enabled"`
}

type kubeletAuthCA struct {
	ClientCAFile string `json:"clientCAFile"`
}

type kubeletAuthorization struct {
	Mode string `json:"mode"`
}

var kubeletUnitTemplate = template.Must(template.New("kubelet.service").Parse(`[Unit]
Description=kubelet: The Kubernetes Node Agent
Documentation=https://kubernetes.io/docs/
After=containerd.service
Requires=containerd.service

[Service]
ExecStart={{.BinPath}} --config={{.ConfigPath}} --kubeconfig={{.KubeconfigPath}} --hostname-override={{.NodeName}}
Restart=always
RestartSec=10

[Install]
WantedBy=multi-user.target
`))

// AgentConfigStep renders the kubelet's declarative configuration and its
// systemd unit. The rendered files reference the canonical node paths, not
// the test root.
type AgentConfigStep struct{}

// Name implements Step.
func (s *AgentConfigStep) Name() string { return "agent-config" }

// Check implements Step.
func (s *AgentConfigStep) Check(_ *Context) (bool, error) { return false, nil }

// Apply implements Step.
func (s *AgentConfigStep) Apply(c *Context) error {
	kubeletCfg := kubeletConfiguration{
		APIVersion: "kubelet.config.k8s.io/v1beta1",
		Kind:       "KubeletConfiguration",
		Authentication: kubeletAuth{
			Anonymous: kubeletToggle{Enabled: false},
			Webhook:   kubeletToggle{Enabled: true},
			X509:      kubeletAuthCA{ClientCAFile: config.CACertPath},
		},
		Authorization:            kubeletAuthorization{Mode: "Webhook"},
		CgroupDriver:             "systemd",
		ClusterDNS:               []string{c.DNSAddress},
		ClusterDomain:            "cluster.local",
		ContainerRuntimeEndpoint: "unix:///run/containerd/containerd.sock",
	}

	data, err := yaml.Marshal(kubeletCfg)
	if err != nil {
		return fmt.Errorf("serializing kubelet configuration: %w", err)
	}

	configPath := c.Path(config.KubeletConfigPath)
	if err := os.MkdirAll(filepath.Dir(configPath), 0o755); err != nil {
		return fmt.Errorf("creating %s: %w", filepath.Dir(configPath), err)
	}
	if err := os.WriteFile(configPath, data, 0o644); err != nil {
		return fmt.Errorf("writing kubelet configuration: %w", err)
	}

	var unit bytes.Buffer
	err = kubeletUnitTemplate.Execute(&unit, map[string]string{
		"BinPath":        filepath.Join(config.BinDir, "kubelet"),
		"ConfigPath":     config.KubeletConfigPath,
		"KubeconfigPath": config.KubeletKubeconfigPath,
		"NodeName":       c.NodeName,
	})
	if err != nil {
		return fmt.Errorf("rendering kubelet unit: %w", err)
	}

	unitPath := c.Path(config.KubeletUnitPath)
	if err := os.MkdirAll(filepath.Dir(unitPath), 0o755); err != nil {
		return fmt.Errorf("creating %s: %w", filepath.Dir(unitPath), err)
	}
	if err := os.WriteFile(unitPath, unit.Bytes(), 0o644); err != nil {
		return fmt.Errorf("writing kubelet unit: %w", err)
	}

	return nil
}

// Verify implements Step.
func (s *AgentConfigStep) Verify(c *Context) error {
	data, err := os.ReadFile(c.Path(config.KubeletConfigPath))
	if err != nil {
		return fmt.Errorf("kubelet configuration missing: %w", err)
	}
	var cfg kubeletConfiguration
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return fmt.Errorf("kubelet configuration does not parse: %w", err)
	}
	if len(cfg.ClusterDNS) == 0 {
		return fmt.Errorf("kubelet configuration has no cluster DNS address")
	}

	if _, err := os.Stat(c.Path(config.KubeletUnitPath)); err != nil {
		return fmt.Errorf("kubelet unit missing: %w", err)
	}

	return nil
}
