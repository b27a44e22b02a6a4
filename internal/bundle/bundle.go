// Package bundle assembles the self-contained enrollment bundle handed from
// the coordinator to the node provisioner.
//
// The bundle is rendered as a single copy-pasteable `byonode provision`
// invocation. Executing it on the target node is sufficient to complete
// provisioning; it performs no further queries against the coordinator's
// cluster.
package bundle

import (
	"encoding/base64"
	"fmt"
	"strings"

	"github.com/zicongmei/gke-byo-node/internal/config"
)

// Bundle is the full closure of facts and credentials the node needs.
// Ownership of the private key and certificate transfers to the node when
// the rendered command is handed off; the coordinator keeps no durable copy.
type Bundle struct {
	NodeName     string
	APIServerURL string
	CABundle     []byte
	PrivateKey   []byte
	Certificate  []byte
	DNSAddress   string
	Versions     config.Versions
}

// Validate checks that every mandatory field is present.
func (b *Bundle) Validate() error {
	missing := func(field string) error {
		return fmt.Errorf("enrollment bundle is missing %s", field)
	}
	switch {
	case b.NodeName == "":
		return missing("the node name")
	case b.APIServerURL == "":
		return missing("the API server URL")
	case len(b.CABundle) == 0:
		return missing("the CA bundle")
	case len(b.PrivateKey) == 0:
		return missing("the private key")
	case len(b.Certificate) == 0:
		return missing("the signed certificate")
	case b.DNSAddress == "":
		return missing("the DNS address")
	case b.Versions.Kubernetes == "":
		return missing("the kubernetes version")
	}
	return nil
}

// Command renders the provision invocation. Binary values are base64 encoded
// and string values are quoted for a POSIX shell.
func (b *Bundle) Command() string {
	args := []string{
		"byonode", "provision",
		"--node-name=" + shellQuote(b.NodeName),
		"--api-server=" + shellQuote(b.APIServerURL),
		"--ca-cert=" + base64.StdEncoding.EncodeToString(b.CABundle),
		"--node-key=" + base64.StdEncoding.EncodeToString(b.PrivateKey),
		"--node-cert=" + base64.StdEncoding.EncodeToString(b.Certificate),
		"--dns-address=" + shellQuote(b.DNSAddress),
		"--kubernetes-version=" + shellQuote(b.Versions.Kubernetes),
		"--containerd-version=" + shellQuote(b.Versions.Containerd),
		"--cni-version=" + shellQuote(b.Versions.CNIPlugins),
	}
	return strings.Join(args, " ")
}

// shellQuote single-quotes a value unless it is already safe to paste
// unquoted into a POSIX shell.
func shellQuote(s string) string {
	if s != "" && !strings.ContainsAny(s, " \t\n\"'\\$`&|;<>()*?[]#~") {
		return s
	}
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}
