package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/nodecore/node/internal/registration"
)

// rotateNameCmd implements the operator-facing half of spec.md §4.7 node-
// name rotation: the operator has already republished a directory record
// for newName pointing at this node's existing keys; this command verifies
// that and, on success, terminates the process so a supervisor restarts it
// under the new identity.
func rotateNameCmd() *cobra.Command {
	var newName string

	cmd := &cobra.Command{
		Use:   "rotate-name",
		Short: "Rotate this node's public name after republishing its directory record",
		RunE: func(cmd *cobra.Command, args []string) error {
			if newName == "" {
				return fmt.Errorf("--new-name is required")
			}
			secretPath, _ := cmd.Flags().GetString("secret-file")
			storePath, _ := cmd.Flags().GetString("store-path")
			nodeName, _ := cmd.Flags().GetString("node-name")

			n, err := newNode(secretPath, storePath, nodeName)
			if err != nil {
				return fmt.Errorf("wire node: %w", err)
			}
			defer n.close()

			return registration.RotateName(cmd.Context(), n.resolver, n.secret, processTerminator{}, newName, n.encKeyPair.Public, n.sigKeyPair.Public)
		},
	}
	cmd.Flags().StringVar(&newName, "new-name", "", "the new node name already published to the directory")
	return cmd
}
