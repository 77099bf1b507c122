package registration_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/nodecore/node/internal/crypto"
	"github.com/nodecore/node/internal/identity"
	"github.com/nodecore/node/internal/nodeerr"
	"github.com/nodecore/node/internal/registration"
	"github.com/nodecore/node/internal/store"
)

type fakeProviders struct{ registered []string }

func (f *fakeProviders) RegisterProvider(_ context.Context, profileFullName, providerID string) error {
	f.registered = append(f.registered, profileFullName+":"+providerID)
	return nil
}

func newRegistrar(t *testing.T, firstDeviceNeedsCode bool, providers registration.ProviderRegistrar) (*registration.Registrar, *registration.Store) {
	t.Helper()
	backend := store.NewMemStore()
	s := registration.NewStore(backend)
	return registration.NewRegistrar(s, firstDeviceNeedsCode, providers), s
}

func TestRegisterDeviceFirstDeviceNoCode(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	providers := &fakeProviders{}
	reg, s := newRegistrar(t, false, providers)

	device, err := reg.RegisterDevice(ctx, registration.DeviceRegistrationRequest{
		NodeName:            "node1",
		ProfileName:         "main",
		DeviceName:          "laptop",
		DeviceEncryptionPK:  [crypto.KeySize]byte{1},
		DeviceSignaturePK:   []byte{2},
		InitialLLMProviders: []string{"openai:gpt-4"},
	})
	require.NoError(t, err)
	require.Equal(t, "@@node1/main/device/laptop", device.FullName)

	profile, err := s.Lookup(ctx, "@@node1/main")
	require.NoError(t, err)
	require.Equal(t, identity.PermissionAdmin, profile.Permission)
	require.Equal(t, []string{"@@node1/main:openai:gpt-4"}, providers.registered)

	has, err := s.HasMainProfile(ctx)
	require.NoError(t, err)
	require.True(t, has)
}

func TestRegisterDeviceRequiresCodeWhenConfigured(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	reg, _ := newRegistrar(t, true, nil)

	_, err := reg.RegisterDevice(ctx, registration.DeviceRegistrationRequest{
		NodeName:    "node1",
		ProfileName: "main",
		DeviceName:  "laptop",
	})
	require.Error(t, err)
	require.Equal(t, nodeerr.Forbidden, nodeerr.KindOf(err))
}

func TestRegisterDeviceSecondDeviceNeedsValidCode(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	reg, s := newRegistrar(t, false, nil)

	_, err := reg.RegisterDevice(ctx, registration.DeviceRegistrationRequest{
		NodeName: "node1", ProfileName: "main", DeviceName: "laptop",
	})
	require.NoError(t, err)

	// Second device attempt with no code and a main profile already
	// present must be rejected outright.
	_, err = reg.RegisterDevice(ctx, registration.DeviceRegistrationRequest{
		NodeName: "node1", ProfileName: "main", DeviceName: "phone",
	})
	require.Error(t, err)
	require.Equal(t, nodeerr.Forbidden, nodeerr.KindOf(err))

	require.NoError(t, s.CreateCode(ctx, "code-2", identity.PermissionStandard, "main"))
	device, err := reg.RegisterDevice(ctx, registration.DeviceRegistrationRequest{
		Code: "code-2", NodeName: "node1", ProfileName: "main", DeviceName: "phone",
	})
	require.NoError(t, err)
	require.Equal(t, "@@node1/main/device/phone", device.FullName)

	// Reusing the same code a second time must fail with Conflict.
	_, err = reg.RegisterDevice(ctx, registration.DeviceRegistrationRequest{
		Code: "code-2", NodeName: "node1", ProfileName: "main", DeviceName: "tablet",
	})
	require.Error(t, err)
	require.Equal(t, nodeerr.Conflict, nodeerr.KindOf(err))
}

type fakeResolver struct {
	resolvesTo map[string]bool
}

func (f fakeResolver) Resolve(context.Context, string) (identity.NodeRecord, error) {
	return identity.NodeRecord{}, nodeerr.New(nodeerr.NotFound, "unused in this test")
}

func (f fakeResolver) ResolvesToKeys(_ context.Context, nodeName string, _ [crypto.KeySize]byte, _ []byte) (bool, error) {
	return f.resolvesTo[nodeName], nil
}

type fakeSecretFile struct{ name string }

func (f *fakeSecretFile) UpdateNodeName(_ context.Context, newName string) error {
	f.name = newName
	return nil
}

type fakeTerminator struct{ called bool }

func (f *fakeTerminator) Terminate() { f.called = true }

func TestRotateNameSucceedsWhenKeysMatch(t *testing.T) {
	t.Parallel()
	resolver := fakeResolver{resolvesTo: map[string]bool{"new-name": true}}
	secret := &fakeSecretFile{}
	term := &fakeTerminator{}

	err := registration.RotateName(context.Background(), resolver, secret, term, "new-name", [crypto.KeySize]byte{1}, []byte{2})
	require.NoError(t, err)
	require.Equal(t, "new-name", secret.name)
	require.True(t, term.called)
}

func TestRotateNameRejectsMismatchedKeys(t *testing.T) {
	t.Parallel()
	resolver := fakeResolver{resolvesTo: map[string]bool{}}
	secret := &fakeSecretFile{}
	term := &fakeTerminator{}

	err := registration.RotateName(context.Background(), resolver, secret, term, "new-name", [crypto.KeySize]byte{1}, []byte{2})
	require.Error(t, err)
	require.Equal(t, nodeerr.Forbidden, nodeerr.KindOf(err))
	require.Empty(t, secret.name)
	require.False(t, term.called)
}
