// Package main is the entry point for the byonode CLI.
//
// byonode enrolls bring-your-own compute nodes into an existing Kubernetes
// cluster. The `enroll` command runs against the control plane: it discovers
// cluster connection facts, mints node credentials, drives the signing
// request to a signed certificate, and prints a single self-contained
// `provision` invocation. The `provision` command runs on the target node
// and executes the idempotent installation pipeline up to a running,
// registered kubelet.
//
// For detailed usage information, run:
//
//	byonode --help
package main

import (
	"fmt"
	"os"

	"github.com/zicongmei/gke-byo-node/cmd/byonode/commands"
)

// Version information set by goreleaser at build time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	commands.SetVersionInfo(version, commit, date)
	if err := commands.Root().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
