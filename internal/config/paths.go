package config

// Fixed filesystem layout on the node. Re-running the provisioner overwrites
// these paths in place; it never appends or relocates them.
const (
	// CACertPath is where the cluster CA trust bundle is placed.
	CACertPath = "/etc/kubernetes/pki/ca.crt"

	// NodeKeyPath is the node's private client key. Written owner-read-only.
	NodeKeyPath = "/var/lib/kubelet/pki/kubelet-client.key"

	// NodeCertPath is the node's signed client certificate.
	NodeCertPath = "/var/lib/kubelet/pki/kubelet-client.crt"

	// KubeletKubeconfigPath is the kubelet's client configuration.
	KubeletKubeconfigPath = "/etc/kubernetes/kubelet.conf"

	// KubeProxyKubeconfigPath is the network proxy's client configuration.
	KubeProxyKubeconfigPath = "/etc/kubernetes/kube-proxy.conf"

	// KubeletConfigPath is the kubelet's declarative configuration file.
	KubeletConfigPath = "/var/lib/kubelet/config.yaml"

	// KubeletUnitPath is the kubelet systemd service unit.
	KubeletUnitPath = "/etc/systemd/system/kubelet.service"

	// ContainerdConfigPath is the containerd daemon configuration.
	ContainerdConfigPath = "/etc/containerd/config.toml"

	// ContainerdUnitPath is the containerd systemd service unit.
	ContainerdUnitPath = "/etc/systemd/system/containerd.service"

	// CNIBinDir is where the network plugin binaries are unpacked.
	CNIBinDir = "/opt/cni/bin"

	// BinDir is where kubelet and kubectl are installed.
	BinDir = "/usr/local/bin"

	// RuntimeInstallDir is the prefix the containerd release tarball is
	// unpacked under (the tarball carries a bin/ directory).
	RuntimeInstallDir = "/usr/local"
)

// DefaultClusterDNS is the conventional in-cluster resolver address used when
// the kube-dns service cannot be queried during fact discovery.
const DefaultClusterDNS = "10.96.0.10"
