// Package registration implements registration-code issuance/consumption,
// device/profile attachment, and node-name rotation (C10, spec.md §4.7).
// Grounded on the same store-batch/column-family discipline as
// internal/inbox and internal/job — the teacher has no onboarding-flow
// analog of its own, so the atomicity contract ("code marked used and
// identity written in the same batch") is original logic built on
// internal/store's WriteOp batch primitive.
package registration

import (
	"context"
	"encoding/json"

	"github.com/nodecore/node/internal/identity"
	"github.com/nodecore/node/internal/nodeerr"
	"github.com/nodecore/node/internal/store"
)

const (
	cfCodes        = "registration_codes"
	cfIdentities   = "registration_identities"
	cfProfileIndex = "registration_profile_index"
)

// Code is a registration code row (spec.md §4.7).
type Code struct {
	Code       string
	Permission identity.Permission
	ForProfile string // profile this code attaches a device to; empty means "create a new profile"
	Used       bool
}

// Store is the C10 registration store. It also serves as the api package's
// IdentityLookup, since registration is what populates local sub-identity
// records.
type Store struct {
	backend store.Store
}

// NewStore constructs a registration Store over backend.
func NewStore(backend store.Store) *Store {
	return &Store{backend: backend}
}

func codeKey(code string) []byte {
	return []byte(code)
}

func identityKey(fullName string) []byte {
	return []byte(fullName)
}

func wrapStoreErr(err error) error {
	if err == nil {
		return nil
	}
	if err == store.ErrNotFound {
		return nodeerr.Wrap(nodeerr.NotFound, "", err)
	}
	return nodeerr.Wrap(nodeerr.Retryable, "registration store operation failed", err)
}

// Lookup implements api.IdentityLookup: resolve a local sub-identity by its
// full name.
func (s *Store) Lookup(ctx context.Context, fullName string) (identity.StandardIdentity, error) {
	raw, err := s.backend.Get(ctx, cfIdentities, identityKey(fullName))
	if err != nil {
		return identity.StandardIdentity{}, wrapStoreErr(err)
	}
	var id identity.StandardIdentity
	if err := json.Unmarshal(raw, &id); err != nil {
		return identity.StandardIdentity{}, nodeerr.Wrap(nodeerr.Retryable, "decode identity", err)
	}
	return id, nil
}

// putDevice writes a device identity record. It is called only in
// RegisterDevice's new-profile branch, after the code's authorization was
// already spent creating the profile, so it is not batched with a code
// consumption; a second, unconditional write here cannot violate the
// code's single-use contract. The existing-profile branch writes its device
// record through consumeCodeAndWrite instead.
func (s *Store) putDevice(ctx context.Context, device identity.DeviceIdentity) error {
	raw, err := json.Marshal(device)
	if err != nil {
		return nodeerr.Wrap(nodeerr.BadRequest, "marshal device identity", err)
	}
	if err := s.backend.Put(ctx, cfIdentities, identityKey(device.FullName), raw); err != nil {
		return wrapStoreErr(err)
	}
	return nil
}

// HasMainProfile reports whether any profile identity has been registered
// yet, used to gate the "first device needs no code" onboarding path
// (spec.md §4.7).
func (s *Store) HasMainProfile(ctx context.Context) (bool, error) {
	entries, err := s.backend.PrefixScan(ctx, cfProfileIndex, []byte(""))
	if err != nil {
		return false, wrapStoreErr(err)
	}
	return len(entries) > 0, nil
}
