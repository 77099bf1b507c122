package registration

import (
	"context"

	"github.com/google/uuid"

	"github.com/nodecore/node/internal/crypto"
	"github.com/nodecore/node/internal/identity"
	"github.com/nodecore/node/internal/nodeerr"
)

// ProviderRegistrar registers an LLM provider under a profile. Implemented
// by the tool/model registry once it exists; the onboarding flow (spec.md
// §4.7's "any initial_llm_providers list is iterated") depends only on this
// narrow seam.
type ProviderRegistrar interface {
	RegisterProvider(ctx context.Context, profileFullName, providerID string) error
}

// DeviceRegistrationRequest carries everything spec.md §4.7 needs to attach
// a device (and, if necessary, create its owning profile).
type DeviceRegistrationRequest struct {
	Code                string
	NodeName            string
	ProfileName         string
	DeviceName          string
	DeviceEncryptionPK  [crypto.KeySize]byte
	DeviceSignaturePK   []byte
	InitialLLMProviders []string
}

// Registrar drives the onboarding flow on top of a Store.
type Registrar struct {
	store *Store
	// FirstDeviceNeedsCode gates the unauthenticated first-device path
	// (spec.md §4.7): when false and no main profile exists yet, the first
	// concurrent registration attempt is implicitly authenticated.
	FirstDeviceNeedsCode bool
	providers            ProviderRegistrar
}

// NewRegistrar constructs a Registrar. providers may be nil; initial LLM
// provider registration is then skipped (documented no-op, not an error).
func NewRegistrar(store *Store, firstDeviceNeedsCode bool, providers ProviderRegistrar) *Registrar {
	return &Registrar{store: store, FirstDeviceNeedsCode: firstDeviceNeedsCode, providers: providers}
}

// RegisterDevice implements spec.md §4.7's device-registration flow end to
// end: resolve or auto-generate the consuming code, ensure the owning
// profile exists, attach the device, and on a genuine first registration
// iterate InitialLLMProviders.
func (r *Registrar) RegisterDevice(ctx context.Context, req DeviceRegistrationRequest) (identity.DeviceIdentity, error) {
	hadMainProfile, err := r.store.HasMainProfile(ctx)
	if err != nil {
		return identity.DeviceIdentity{}, err
	}

	code := req.Code
	if code == "" {
		if hadMainProfile || r.FirstDeviceNeedsCode {
			return identity.DeviceIdentity{}, nodeerr.New(nodeerr.Forbidden, "registration code required")
		}
		code = uuid.NewString()
		if err := r.store.CreateCode(ctx, code, identity.PermissionAdmin, req.ProfileName); err != nil {
			return identity.DeviceIdentity{}, err
		}
	}

	profileFullName := "@@" + req.NodeName + "/" + req.ProfileName
	deviceFullName := profileFullName + "/device/" + req.DeviceName

	existingProfile, err := r.store.Lookup(ctx, profileFullName)
	profileExists := err == nil
	if err != nil && !nodeerr.Is(err, nodeerr.NotFound) {
		return identity.DeviceIdentity{}, err
	}

	var profile identity.StandardIdentity
	if profileExists {
		// Device registration attaches under the profile's existing keys
		// (spec.md §4.7), not the newly presented device keys.
		profile = existingProfile
		device := identity.DeviceIdentity{
			StandardIdentity:   profile,
			DeviceEncryptionPK: req.DeviceEncryptionPK,
			DeviceSignaturePK:  req.DeviceSignaturePK,
		}
		device.FullName = deviceFullName
		// The profile already exists, so the code only authorizes
		// attaching this device; its write is what the batch protects.
		if err := r.store.consumeCodeAndWrite(ctx, code, device.StandardIdentity, false); err != nil {
			return identity.DeviceIdentity{}, err
		}
		return finishRegistration(ctx, r, req, profileFullName, device, hadMainProfile)
	}

	profile = identity.StandardIdentity{
		FullName:            profileFullName,
		Kind:                identity.KindProfile,
		Permission:          identity.PermissionAdmin,
		ProfileEncryptionPK: &req.DeviceEncryptionPK,
		ProfileSignaturePK:  req.DeviceSignaturePK,
	}
	if err := r.store.consumeCodeAndWrite(ctx, code, profile, true); err != nil {
		return identity.DeviceIdentity{}, err
	}
	device := identity.DeviceIdentity{
		StandardIdentity:   profile,
		DeviceEncryptionPK: req.DeviceEncryptionPK,
		DeviceSignaturePK:  req.DeviceSignaturePK,
	}
	device.FullName = deviceFullName
	if err := r.store.putDevice(ctx, device); err != nil {
		return identity.DeviceIdentity{}, err
	}

	return finishRegistration(ctx, r, req, profileFullName, device, hadMainProfile)
}

// finishRegistration implements spec.md §4.7's tail step: "After a first
// device is attached and no main profile previously existed, any
// initial_llm_providers list is iterated and each provider is registered
// under the new profile."
func finishRegistration(ctx context.Context, r *Registrar, req DeviceRegistrationRequest, profileFullName string, device identity.DeviceIdentity, hadMainProfile bool) (identity.DeviceIdentity, error) {
	if !hadMainProfile && r.providers != nil {
		for _, providerID := range req.InitialLLMProviders {
			if err := r.providers.RegisterProvider(ctx, profileFullName, providerID); err != nil {
				return identity.DeviceIdentity{}, err
			}
		}
	}
	return device, nil
}
