package commands

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/zicongmei/gke-byo-node/cmd/byonode/handlers"
	"github.com/zicongmei/gke-byo-node/internal/config"
)

// Enroll returns the command that runs the control-plane side of node
// enrollment.
//
// It discovers the cluster connection facts from the active kubeconfig
// context, generates the node's key pair and signing request, drives the
// request to a signed certificate, and prints one copy-pasteable
// `byonode provision` invocation for the target node.
//
// Required flags:
//
//	--node-name: name the node registers under (a DNS label)
//	--kubernetes-version: kubelet/kubectl version to pin
//
// The coordinator's identity needs create, delete, get, and approve
// permissions on certificatesigningrequests.
func Enroll() *cobra.Command {
	opts := handlers.EnrollOptions{}

	cmd := &cobra.Command{
		Use:   "enroll",
		Short: "Enroll a node and print its provision command",
		Long: `Enroll a new node into the cluster of the active kubeconfig context.

On success, exactly one provision invocation is printed. Run it on the
target node to complete the join; it needs no further cluster access.

Examples:
  # Enroll a node pinned to Kubernetes 1.28.0
  byonode enroll --node-name=ubuntu-worker-01 --kubernetes-version=1.28.0

  # Pin the runtime and network plugin versions explicitly
  byonode enroll --node-name=ubuntu-worker-01 --kubernetes-version=1.28.0 \
    --containerd-version=1.7.22 --cni-version=1.5.1`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return handlers.Enroll(cmd.Context(), opts)
		},
	}

	cmd.Flags().StringVar(&opts.NodeName, "node-name", "", "Name the node registers under (required)")
	cmd.Flags().StringVar(&opts.KubeconfigPath, "kubeconfig", "", "Path to the kubeconfig file (default: standard loading rules)")
	cmd.Flags().StringVar(&opts.KubernetesVersion, "kubernetes-version", "", "Kubernetes version to pin (required)")
	cmd.Flags().StringVar(&opts.ContainerdVersion, "containerd-version", "", "containerd version to pin (default "+config.DefaultContainerdVersion+")")
	cmd.Flags().StringVar(&opts.CNIVersion, "cni-version", "", "CNI plugins version to pin (default "+config.DefaultCNIPluginsVersion+")")
	cmd.Flags().BoolVar(&opts.StrictDNS, "strict-dns", false, "Fail instead of falling back to the default cluster DNS address")
	cmd.Flags().DurationVar(&opts.PollInterval, "poll-interval", time.Second, "Delay between signing request polls")
	cmd.Flags().IntVar(&opts.PollAttempts, "poll-attempts", 10, "Bounded number of signing request polls")

	_ = cmd.MarkFlagRequired("node-name")
	_ = cmd.MarkFlagRequired("kubernetes-version")

	return cmd
}
