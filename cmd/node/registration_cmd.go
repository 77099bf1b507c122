package main

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/nodecore/node/internal/identity"
)

// registrationCmd groups the operator-facing registration-code verbs
// (spec.md §4.7: a device or second profile joins the node by redeeming a
// one-time code the node operator issued out of band).
func registrationCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "registration",
		Short: "Manage registration codes for new devices and profiles",
	}
	cmd.AddCommand(createCodeCmd())
	return cmd
}

func createCodeCmd() *cobra.Command {
	var permission string
	var forProfile string

	cmd := &cobra.Command{
		Use:   "create-code",
		Short: "Issue a fresh one-time registration code",
		RunE: func(cmd *cobra.Command, args []string) error {
			secretPath, _ := cmd.Flags().GetString("secret-file")
			storePath, _ := cmd.Flags().GetString("store-path")
			nodeName, _ := cmd.Flags().GetString("node-name")

			n, err := newNode(secretPath, storePath, nodeName)
			if err != nil {
				return fmt.Errorf("wire node: %w", err)
			}
			defer n.close()

			perm := identity.Permission(permission)
			switch perm {
			case identity.PermissionStandard, identity.PermissionAdmin:
			default:
				return fmt.Errorf("invalid --permission %q (want %q or %q)", permission, identity.PermissionStandard, identity.PermissionAdmin)
			}

			code, err := randomCode()
			if err != nil {
				return fmt.Errorf("generate code: %w", err)
			}
			if err := n.regStore.CreateCode(cmd.Context(), code, perm, forProfile); err != nil {
				return fmt.Errorf("create code: %w", err)
			}
			fmt.Println(code)
			return nil
		},
	}
	cmd.Flags().StringVar(&permission, "permission", string(identity.PermissionStandard), "permission to grant the redeeming identity (standard|admin)")
	cmd.Flags().StringVar(&forProfile, "for-profile", "", "profile name the code registers a device under (empty creates a new profile)")
	return cmd
}

func randomCode() (string, error) {
	raw := make([]byte, 16)
	if _, err := rand.Read(raw); err != nil {
		return "", err
	}
	return hex.EncodeToString(raw), nil
}
