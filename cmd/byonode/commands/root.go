// Package commands defines the CLI command structure and flag bindings.
//
// This package contains cobra command definitions that handle argument
// parsing, flag binding, and validation. Command execution is delegated to
// handler functions in the handlers package.
package commands

import "github.com/spf13/cobra"

// Root returns the root command for the byonode CLI.
func Root() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "byonode",
		Short: "Enroll bring-your-own nodes into an existing Kubernetes cluster",

		// Failures surface as exactly one diagnostic line, printed by main.
		SilenceErrors: true,
		SilenceUsage:  true,
	}

	cmd.AddCommand(Enroll())
	cmd.AddCommand(Provision())
	cmd.AddCommand(Version())

	return cmd
}
