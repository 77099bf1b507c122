package identity

import "github.com/nodecore/node/internal/crypto"

// Kind classifies a standard identity (spec.md §3).
type Kind string

const (
	KindGlobal  Kind = "global"
	KindProfile Kind = "profile"
	KindAgent   Kind = "agent"
)

// Permission is the node-wide permission level attached to an identity
// (distinct from per-inbox permission tuples, spec.md §3 and §4.2).
type Permission string

const (
	PermissionNone     Permission = "none"
	PermissionStandard Permission = "standard"
	PermissionAdmin    Permission = "admin"
)

// rank orders Permission so node-wide Admin identities can be recognized by
// comparison, mirroring the inbox permission total order in §4.2.
var rank = map[Permission]int{
	PermissionNone:     0,
	PermissionStandard: 1,
	PermissionAdmin:    2,
}

// AtLeast reports whether p grants at least the given permission level.
func (p Permission) AtLeast(min Permission) bool {
	return rank[p] >= rank[min]
}

type (
	// StandardIdentity is a profile- or node-level identity (spec.md §3).
	StandardIdentity struct {
		FullName             string
		NetworkAddress       string
		NodeEncryptionPK     [crypto.KeySize]byte
		NodeSignaturePK      []byte
		ProfileEncryptionPK  *[crypto.KeySize]byte
		ProfileSignaturePK   []byte
		Kind                 Kind
		Permission           Permission
	}

	// DeviceIdentity extends a StandardIdentity with an additional device
	// keypair (spec.md §3).
	DeviceIdentity struct {
		StandardIdentity
		DeviceEncryptionPK [crypto.KeySize]byte
		DeviceSignaturePK  []byte
	}
)
