package api_test

import (
	"context"
	"crypto/ed25519"
	"encoding/hex"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/nodecore/node/internal/api"
	"github.com/nodecore/node/internal/crypto"
	"github.com/nodecore/node/internal/identity"
	"github.com/nodecore/node/internal/nodeerr"
	"github.com/nodecore/node/internal/wire"
)

type fakeIdentities struct {
	byName map[string]identity.StandardIdentity
}

func (f fakeIdentities) Lookup(_ context.Context, fullName string) (identity.StandardIdentity, error) {
	id, ok := f.byName[fullName]
	if !ok {
		return identity.StandardIdentity{}, nodeerr.New(nodeerr.NotFound, "unknown sub-identity")
	}
	return id, nil
}

func signedEnvelope(t *testing.T, nodeName, subidentity, content string, sigKey ed25519.PrivateKey, schema wire.InnerSchema) wire.Envelope {
	t.Helper()
	body := wire.PlainBody{MessageRawContent: content}
	inner := wire.InnerMetadata{Schema: schema, SenderSubidentity: subidentity}
	sig := crypto.Sign(sigKey, api.InnerSigningBytes(content, schema))
	inner.InnerSignatureHex = hex.EncodeToString(sig)
	innerBytes, err := json.Marshal(inner)
	require.NoError(t, err)
	body.InternalMetadata = innerBytes
	plainBytes, err := json.Marshal(body)
	require.NoError(t, err)
	return wire.Envelope{
		Body:             plainBytes,
		EncryptionMethod: wire.EncryptionNone,
		InnerSchema:      schema,
		ExternalMetadata: wire.ExternalMetadata{SenderNode: nodeName, RecipientNode: nodeName},
	}
}

func TestValidateAcceptsWellFormedEnvelope(t *testing.T) {
	t.Parallel()
	sigPub, sigPriv, err := ed25519.GenerateKey(nil)
	require.NoError(t, err)
	identities := fakeIdentities{byName: map[string]identity.StandardIdentity{
		"@@node1/alice": {FullName: "@@node1/alice", ProfileSignaturePK: sigPub, Permission: identity.PermissionStandard},
	}}
	v := api.NewValidator("node1", crypto.EncryptionKeyPair{}, identities)
	env := signedEnvelope(t, "node1", "alice", "hello", sigPriv, wire.SchemaTextContent)

	result, err := v.Validate(context.Background(), env, wire.SchemaTextContent)
	require.NoError(t, err)
	require.Equal(t, "@@node1/alice", result.SenderFullName)
	require.Equal(t, "hello", result.Body.MessageRawContent)
}

func TestValidateRejectsWrongSchema(t *testing.T) {
	t.Parallel()
	sigPub, sigPriv, err := ed25519.GenerateKey(nil)
	require.NoError(t, err)
	identities := fakeIdentities{byName: map[string]identity.StandardIdentity{
		"@@node1/alice": {FullName: "@@node1/alice", ProfileSignaturePK: sigPub},
	}}
	v := api.NewValidator("node1", crypto.EncryptionKeyPair{}, identities)
	env := signedEnvelope(t, "node1", "alice", "hello", sigPriv, wire.SchemaTextContent)

	_, err = v.Validate(context.Background(), env, wire.SchemaJobMessage)
	require.Error(t, err)
	require.Equal(t, nodeerr.BadRequest, nodeerr.KindOf(err))
}

func TestValidateRejectsForeignSenderNode(t *testing.T) {
	t.Parallel()
	_, sigPriv, err := ed25519.GenerateKey(nil)
	require.NoError(t, err)
	v := api.NewValidator("node1", crypto.EncryptionKeyPair{}, fakeIdentities{byName: map[string]identity.StandardIdentity{}})
	env := signedEnvelope(t, "other-node", "alice", "hello", sigPriv, wire.SchemaTextContent)

	_, err = v.Validate(context.Background(), env, wire.SchemaTextContent)
	require.Error(t, err)
	require.Equal(t, nodeerr.BadRequest, nodeerr.KindOf(err))
}

func TestValidateRejectsUnknownSubidentity(t *testing.T) {
	t.Parallel()
	_, sigPriv, err := ed25519.GenerateKey(nil)
	require.NoError(t, err)
	v := api.NewValidator("node1", crypto.EncryptionKeyPair{}, fakeIdentities{byName: map[string]identity.StandardIdentity{}})
	env := signedEnvelope(t, "node1", "ghost", "hello", sigPriv, wire.SchemaTextContent)

	_, err = v.Validate(context.Background(), env, wire.SchemaTextContent)
	require.Error(t, err)
	require.Equal(t, nodeerr.NotFound, nodeerr.KindOf(err))
}

func TestValidateRejectsBadSignature(t *testing.T) {
	t.Parallel()
	sigPub, _, err := ed25519.GenerateKey(nil)
	require.NoError(t, err)
	_, otherPriv, err := ed25519.GenerateKey(nil)
	require.NoError(t, err)
	identities := fakeIdentities{byName: map[string]identity.StandardIdentity{
		"@@node1/alice": {FullName: "@@node1/alice", ProfileSignaturePK: sigPub},
	}}
	v := api.NewValidator("node1", crypto.EncryptionKeyPair{}, identities)
	env := signedEnvelope(t, "node1", "alice", "hello", otherPriv, wire.SchemaTextContent)

	_, err = v.Validate(context.Background(), env, wire.SchemaTextContent)
	require.Error(t, err)
	require.Equal(t, nodeerr.Unauthorized, nodeerr.KindOf(err))
}

func TestValidatePermissionedAllowsAdminImpersonation(t *testing.T) {
	t.Parallel()
	sigPub, sigPriv, err := ed25519.GenerateKey(nil)
	require.NoError(t, err)
	identities := fakeIdentities{byName: map[string]identity.StandardIdentity{
		"@@node1/admin": {FullName: "@@node1/admin", ProfileSignaturePK: sigPub, Permission: identity.PermissionAdmin},
	}}
	v := api.NewValidator("node1", crypto.EncryptionKeyPair{}, identities)
	env := signedEnvelope(t, "node1", "admin", "hello", sigPriv, wire.SchemaTextContent)

	_, err = v.ValidatePermissioned(context.Background(), env, wire.SchemaTextContent, "someoneelse")
	require.NoError(t, err)
}

func TestValidatePermissionedRejectsNonMatchingProfile(t *testing.T) {
	t.Parallel()
	sigPub, sigPriv, err := ed25519.GenerateKey(nil)
	require.NoError(t, err)
	identities := fakeIdentities{byName: map[string]identity.StandardIdentity{
		"@@node1/alice": {FullName: "@@node1/alice", ProfileSignaturePK: sigPub, Permission: identity.PermissionStandard},
	}}
	v := api.NewValidator("node1", crypto.EncryptionKeyPair{}, identities)
	env := signedEnvelope(t, "node1", "alice", "hello", sigPriv, wire.SchemaTextContent)

	_, err = v.ValidatePermissioned(context.Background(), env, wire.SchemaTextContent, "bob")
	require.Error(t, err)
	require.Equal(t, nodeerr.Forbidden, nodeerr.KindOf(err))
}
