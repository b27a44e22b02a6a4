// Package config holds the node identity, component version pins, and the
// fixed filesystem layout shared by the enrollment coordinator and the node
// provisioner.
package config

import (
	"fmt"
	"regexp"
)

// nodeNameRE matches a DNS-label-like token: lowercase alphanumerics and
// hyphens, no leading or trailing hyphen, at most 63 characters.
var nodeNameRE = regexp.MustCompile(`^[a-z0-9]([a-z0-9-]{0,61}[a-z0-9])?$`)

// NodeIdentity identifies the node being enrolled and the component versions
// requested for it.
type NodeIdentity struct {
	// Name is the operator-supplied node name. It becomes the certificate
	// common name suffix and the node's registered name in the cluster.
	Name string

	// Versions are the requested component versions, normalized via
	// Versions.Normalize before use.
	Versions Versions
}

// Validate checks that the node name is a valid DNS label.
func (id NodeIdentity) Validate() error {
	if id.Name == "" {
		return fmt.Errorf("node name is required")
	}
	if !nodeNameRE.MatchString(id.Name) {
		return fmt.Errorf("node name %q is not a valid DNS label (lowercase alphanumerics and '-', max 63 chars)", id.Name)
	}
	return nil
}
