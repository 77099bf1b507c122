package registration

import (
	"context"

	"github.com/rs/zerolog/log"

	"github.com/nodecore/node/internal/crypto"
	"github.com/nodecore/node/internal/identity"
	"github.com/nodecore/node/internal/nodeerr"
)

// SecretFile persists the node's identity name and long-lived keypairs to
// disk, the single-file "node secret" spec.md §6 describes. Concrete disk
// I/O is intentionally out of this package's scope — callers supply their
// own SecretFile so tests never touch the filesystem.
type SecretFile interface {
	// UpdateNodeName atomically rewrites the persisted node name, leaving
	// the keypairs untouched.
	UpdateNodeName(ctx context.Context, newName string) error
}

// Terminator self-terminates the process after a successful rotation so a
// supervisor restarts it under the new identity (spec.md §4.7: "the design
// explicitly chooses crash-restart over live swap").
type Terminator interface {
	Terminate()
}

// RotateName implements spec.md §4.7's node-name rotation: the requester
// presents the intended new node name; the node asks its identity resolver
// whether that name resolves to these exact node keys; if not, Forbidden;
// on success the name is persisted and the process self-terminates.
func RotateName(ctx context.Context, resolver identity.Resolver, secret SecretFile, term Terminator, newName string, encPK [crypto.KeySize]byte, sigPK []byte) error {
	ok, err := resolver.ResolvesToKeys(ctx, newName, encPK, sigPK)
	if err != nil {
		return err
	}
	if !ok {
		return nodeerr.Errorf(nodeerr.Forbidden, "node name %q does not resolve to this node's keys", newName)
	}
	if err := secret.UpdateNodeName(ctx, newName); err != nil {
		return nodeerr.Wrap(nodeerr.Fatal, "persist rotated node name", err)
	}
	log.Info().Str("new_node_name", newName).Msg("node name rotated, terminating for supervisor restart")
	term.Terminate()
	return nil
}
