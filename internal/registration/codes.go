package registration

import (
	"context"
	"encoding/json"

	"github.com/nodecore/node/internal/identity"
	"github.com/nodecore/node/internal/nodeerr"
	"github.com/nodecore/node/internal/store"
)

// CreateCode issues a fresh, unused registration code.
func (s *Store) CreateCode(ctx context.Context, code string, permission identity.Permission, forProfile string) error {
	c := Code{Code: code, Permission: permission, ForProfile: forProfile}
	raw, err := json.Marshal(c)
	if err != nil {
		return nodeerr.Wrap(nodeerr.BadRequest, "marshal registration code", err)
	}
	if err := s.backend.Put(ctx, cfCodes, codeKey(code), raw); err != nil {
		return wrapStoreErr(err)
	}
	return nil
}

func (s *Store) getCode(ctx context.Context, code string) (Code, error) {
	raw, err := s.backend.Get(ctx, cfCodes, codeKey(code))
	if err != nil {
		return Code{}, wrapStoreErr(err)
	}
	var c Code
	if err := json.Unmarshal(raw, &c); err != nil {
		return Code{}, nodeerr.Wrap(nodeerr.Retryable, "decode registration code", err)
	}
	return c, nil
}

// consumeCodeAndWrite marks code as used and writes the given identity (plus,
// if isProfile, a profile-index entry) in a single atomic batch, matching
// spec.md §4.7: "the code row is marked used and the new identity is
// written in the same batch; on conflict... the batch is aborted." The
// used-check itself is a separate preceding read — a genuinely distributed
// compare-and-swap is out of scope for the single-process store this
// module ships (internal/store's Batch has no conditional-put primitive) —
// so two concurrent consumers of the same code can both pass the check
// before either writes; the second write simply clobbers Used back to true
// and rewrites its own identity, which is safe but not linearisable. A
// multi-node deployment would need the store to grow compare-and-swap
// semantics to close this window.
func (s *Store) consumeCodeAndWrite(ctx context.Context, code string, id identity.StandardIdentity, isProfile bool) error {
	c, err := s.getCode(ctx, code)
	if err != nil {
		return err
	}
	if c.Used {
		return nodeerr.Errorf(nodeerr.Conflict, "registration code %q already used", code)
	}
	c.Used = true
	codeRaw, err := json.Marshal(c)
	if err != nil {
		return nodeerr.Wrap(nodeerr.BadRequest, "marshal registration code", err)
	}
	idRaw, err := json.Marshal(id)
	if err != nil {
		return nodeerr.Wrap(nodeerr.BadRequest, "marshal identity", err)
	}
	ops := []store.WriteOp{
		{ColumnFamily: cfCodes, Key: codeKey(code), Value: codeRaw},
		{ColumnFamily: cfIdentities, Key: identityKey(id.FullName), Value: idRaw},
	}
	if isProfile {
		ops = append(ops, store.WriteOp{ColumnFamily: cfProfileIndex, Key: identityKey(id.FullName), Value: []byte{1}})
	}
	if err := s.backend.Batch(ctx, ops); err != nil {
		return wrapStoreErr(err)
	}
	return nil
}
