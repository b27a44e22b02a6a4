package provisioning

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/zicongmei/gke-byo-node/internal/config"
)

const containerdVersionStamp = ".containerd-version"

// containerdConfig pins the runtime to the systemd cgroup driver. The host's
// service supervisor is systemd; leaving the driver to the installer default
// (cgroupfs) makes pods fail to start with no useful error.
const containerdConfig = `version = 2

[plugins."io.containerd.grpc.v1.cri"]
  sandbox_image = "registry.k8s.io/pause:3.9"

  [plugins."io.containerd.grpc.v1.cri".containerd.runtimes.runc]
    runtime_type = "io.containerd.runc.v2"

    [plugins."io.containerd.grpc.v1.cri".containerd.runtimes.runc.options]
      SystemdCgroup = true
`

const containerdUnit = `[Unit]
Description=containerd container runtime
Documentation=https://containerd.io
After=network.target

[Service]
ExecStart=/usr/local/bin/containerd
Restart=always
RestartSec=5
Delegate=yes
KillMode=process
OOMScoreAdjust=-999
LimitNOFILE=1048576
LimitNPROC=infinity
LimitCORE=infinity

[Install]
WantedBy=multi-user.target
`

// RuntimeStep installs the pinned containerd release, writes its
// configuration, and (re)starts the runtime service.
type RuntimeStep struct{}

// Name implements Step.
func (s *RuntimeStep) Name() string { return "container-runtime" }

// Check implements Step. The version stamp alone is not enough: the service
// must also be running.
func (s *RuntimeStep) Check(c *Context) (bool, error) {
	data, err := os.ReadFile(filepath.Join(filepath.Dir(c.Path(config.ContainerdConfigPath)), containerdVersionStamp))
	if err != nil || strings.TrimSpace(string(data)) != c.Versions.Containerd {
		return false, nil
	}
	out, err := c.Runner.Run(c.Ctx, "systemctl", "is-active", "containerd")
	return err == nil && strings.TrimSpace(out) == "active", nil
}

// Apply implements Step.
func (s *RuntimeStep) Apply(c *Context) error {
	version := c.Versions.Containerd

	if err := c.Fetcher.GetTar(c.Ctx, containerdDownloadURL(version), c.Path(config.RuntimeInstallDir)); err != nil {
		return fmt.Errorf("installing containerd %s: %w", version, err)
	}

	configPath := c.Path(config.ContainerdConfigPath)
	if err := os.MkdirAll(filepath.Dir(configPath), 0o755); err != nil {
		return fmt.Errorf("creating containerd config directory: %w", err)
	}
	if err := os.WriteFile(configPath, []byte(containerdConfig), 0o644); err != nil {
		return fmt.Errorf("writing containerd config: %w", err)
	}

	unitPath := c.Path(config.ContainerdUnitPath)
	if err := os.MkdirAll(filepath.Dir(unitPath), 0o755); err != nil {
		return fmt.Errorf("creating systemd unit directory: %w", err)
	}
	if err := os.WriteFile(unitPath, []byte(containerdUnit), 0o644); err != nil {
		return fmt.Errorf("writing containerd unit: %w", err)
	}

	for _, args := range [][]string{
		{"daemon-reload"},
		{"enable", "containerd"},
		{"restart", "containerd"},
	} {
		if _, err := c.Runner.Run(c.Ctx, "systemctl", args...); err != nil {
			return fmt.Errorf("starting containerd: %w", err)
		}
	}

	stamp := filepath.Join(filepath.Dir(configPath), containerdVersionStamp)
	if err := os.WriteFile(stamp, []byte(version+"\n"), 0o644); err != nil {
		return fmt.Errorf("stamping containerd version: %w", err)
	}

	return nil
}

// Verify implements Step.
func (s *RuntimeStep) Verify(c *Context) error {
	out, err := c.Runner.Run(c.Ctx, "systemctl", "is-active", "containerd")
	if err != nil {
		return fmt.Errorf("containerd did not reach a running state: %w", err)
	}
	if state := strings.TrimSpace(out); state != "active" {
		return fmt.Errorf("containerd did not reach a running state: %q", state)
	}
	return nil
}

func containerdDownloadURL(version string) string {
	return fmt.Sprintf("https://github.com/containerd/containerd/releases/download/v%s/containerd-%s-linux-%s.tar.gz",
		version, version, runtime.GOARCH)
}
