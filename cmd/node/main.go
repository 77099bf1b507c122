// Command node runs a single personal-AI-node process: the v1/v2 HTTP API,
// the gRPC inter-node dispatch endpoint, and the in-process job engine.
// Grounded on example/cmd/assistant's main-plus-subcommand layout and
// registry/cmd/registry's run()-returns-error pattern, using
// github.com/spf13/cobra for the command tree (SPEC_FULL.md's CLI
// commitment) rather than the teacher's own flag/env-only registry
// command, since this node needs more than one operator-facing verb
// (serve, issue a registration code, rotate the node's name).
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "node",
		Short: "Run and administer a personal AI node",
	}
	root.PersistentFlags().String("secret-file", "node-secret.json", "path to the node's identity/key secret file")
	root.PersistentFlags().String("store-path", "node-store.db", "path to the node's bbolt data file")
	root.PersistentFlags().String("node-name", "", "node name to initialize under on first run")

	root.AddCommand(serveCmd())
	root.AddCommand(registrationCmd())
	root.AddCommand(rotateNameCmd())
	return root
}
