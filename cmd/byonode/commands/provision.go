package commands

import (
	"github.com/spf13/cobra"

	"github.com/zicongmei/gke-byo-node/cmd/byonode/handlers"
)

// Provision returns the command that runs the node-side provisioning
// pipeline. It is normally invoked by pasting the line printed by
// `byonode enroll`; all flags except the version pins are mandatory.
func Provision() *cobra.Command {
	opts := handlers.ProvisionOptions{}

	cmd := &cobra.Command{
		Use:   "provision",
		Short: "Provision this machine as a cluster node",
		Long: `Provision the local machine as a cluster node using the enrollment
bundle printed by 'byonode enroll'.

The pipeline is idempotent: re-running it after a partial failure resumes
from the first unsatisfied step. It exits zero only once the kubelet
service is running.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return handlers.Provision(cmd.Context(), opts)
		},
	}

	cmd.Flags().StringVar(&opts.NodeName, "node-name", "", "Name the node registers under (required)")
	cmd.Flags().StringVar(&opts.APIServerURL, "api-server", "", "Cluster API server URL (required)")
	cmd.Flags().StringVar(&opts.CACertB64, "ca-cert", "", "Base64-encoded cluster CA bundle (required)")
	cmd.Flags().StringVar(&opts.NodeKeyB64, "node-key", "", "Base64-encoded node private key (required)")
	cmd.Flags().StringVar(&opts.NodeCertB64, "node-cert", "", "Base64-encoded signed node certificate (required)")
	cmd.Flags().StringVar(&opts.DNSAddress, "dns-address", "", "In-cluster DNS resolver address (required)")
	cmd.Flags().StringVar(&opts.KubernetesVersion, "kubernetes-version", "", "Kubernetes version to install (required)")
	cmd.Flags().StringVar(&opts.ContainerdVersion, "containerd-version", "", "containerd version to install")
	cmd.Flags().StringVar(&opts.CNIVersion, "cni-version", "", "CNI plugins version to install")

	for _, flag := range []string{
		"node-name", "api-server", "ca-cert", "node-key", "node-cert",
		"dns-address", "kubernetes-version",
	} {
		_ = cmd.MarkFlagRequired(flag)
	}

	return cmd
}
