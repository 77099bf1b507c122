package inbox

import (
	"context"

	"github.com/nodecore/node/internal/identity"
	"github.com/nodecore/node/internal/store"
)

// HasPermission reports whether identityFullName holds at least level on
// inboxName. Participants named in a regular inbox's name get implicit
// Write access (spec.md §4.2: "participants ... are the only identities
// with creation access"); node-wide Admin identities get Admin on every
// inbox. Job inboxes carry no implicit participant access from their name
// alone (the name only encodes the job id) — the job registry grants the
// creating profile an explicit Admin tuple at job-creation time instead.
func (s *Store) HasPermission(ctx context.Context, inboxName, identityFullName string, nodeWidePermission identity.Permission, level Permission) (bool, error) {
	if nodeWidePermission == identity.PermissionAdmin {
		return true, nil
	}
	parsed, err := ParseName(inboxName)
	if err != nil {
		return false, err
	}
	if parsed.Kind == KindRegular && parsed.isParticipant(identityFullName) {
		if PermissionWrite.AtLeast(level) {
			return true, nil
		}
	}
	raw, err := s.backend.Get(ctx, cfPermissions, permissionKey(inboxName, identityFullName))
	if err != nil {
		if err == store.ErrNotFound {
			return false, nil
		}
		return false, wrapStoreErr(err)
	}
	return Permission(raw).AtLeast(level), nil
}

// GrantPermission records an explicit permission tuple (inboxName,
// identityFullName, level). Callers must have already verified the actor
// holds Admin on inboxName (spec.md §4.2); this method performs no
// authorization check itself.
func (s *Store) GrantPermission(ctx context.Context, inboxName, identityFullName string, level Permission) error {
	ops := []store.WriteOp{
		{ColumnFamily: cfPermissions, Key: permissionKey(inboxName, identityFullName), Value: []byte(level)},
		{ColumnFamily: cfDirectory, Key: []byte(inboxHash(inboxName)), Value: []byte(inboxName)},
	}
	if err := s.backend.Batch(ctx, ops); err != nil {
		return wrapStoreErr(err)
	}
	return nil
}

// RevokePermission removes identityFullName's explicit permission tuple on
// inboxName, leaving only whatever implicit access applies.
func (s *Store) RevokePermission(ctx context.Context, inboxName, identityFullName string) error {
	if err := s.backend.Delete(ctx, cfPermissions, permissionKey(inboxName, identityFullName)); err != nil {
		return wrapStoreErr(err)
	}
	return nil
}
