package api

import (
	"context"

	"github.com/nodecore/node/internal/identity"
	"github.com/nodecore/node/internal/nodeerr"
	"github.com/nodecore/node/internal/wire"
)

// ValidatePermissioned runs Validate and additionally asserts that the
// authenticated sender's profile matches requestedProfile or holds
// node-wide Admin (spec.md §4.6: "A permission-checked variant additionally
// asserts that the sender's profile matches the requested profile or holds
// Admin").
func (v *Validator) ValidatePermissioned(ctx context.Context, env wire.Envelope, expectedSchema wire.InnerSchema, requestedProfile string) (Validated, error) {
	result, err := v.Validate(ctx, env, expectedSchema)
	if err != nil {
		return Validated{}, err
	}
	if result.Sender.Permission.AtLeast(identity.PermissionAdmin) {
		return result, nil
	}
	senderName, err := identity.ParseName(result.SenderFullName)
	if err != nil {
		return Validated{}, nodeerr.Wrap(nodeerr.BadRequest, "parse sender full name", err)
	}
	if senderName.Profile != requestedProfile {
		return Validated{}, nodeerr.Errorf(nodeerr.Forbidden, "sender profile %q may not act as %q", senderName.Profile, requestedProfile)
	}
	return result, nil
}
