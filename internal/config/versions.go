package config

import (
	"fmt"
	"strings"
)

// Default versions for components the operator usually does not pin
// explicitly. These are tested together with current Kubernetes releases.
const (
	// DefaultContainerdVersion is the containerd release installed when no
	// runtime version is requested.
	DefaultContainerdVersion = "1.7.22"

	// DefaultCNIPluginsVersion is the CNI plugins release installed when no
	// network plugin version is requested.
	DefaultCNIPluginsVersion = "1.5.1"
)

// Versions pins the component versions installed on the node. All values are
// stored without a leading "v" prefix.
type Versions struct {
	// Kubernetes is the kubelet/kubectl release. Required.
	Kubernetes string

	// Containerd is the container runtime release. Defaults to
	// DefaultContainerdVersion.
	Containerd string

	// CNIPlugins is the network plugin bundle release. Defaults to
	// DefaultCNIPluginsVersion.
	CNIPlugins string
}

// Normalize strips a single leading "v" from each version and applies
// defaults for the optional components. Normalizing an already normalized
// value is a no-op, so the operation is idempotent.
func (v Versions) Normalize() (Versions, error) {
	out := Versions{
		Kubernetes: strings.TrimPrefix(v.Kubernetes, "v"),
		Containerd: strings.TrimPrefix(v.Containerd, "v"),
		CNIPlugins: strings.TrimPrefix(v.CNIPlugins, "v"),
	}

	if out.Kubernetes == "" {
		return Versions{}, fmt.Errorf("kubernetes version is required")
	}
	if out.Containerd == "" {
		out.Containerd = DefaultContainerdVersion
	}
	if out.CNIPlugins == "" {
		out.CNIPlugins = DefaultCNIPluginsVersion
	}

	return out, nil
}
