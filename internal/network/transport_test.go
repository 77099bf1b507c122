package network_test

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/nodecore/node/internal/crypto"
	"github.com/nodecore/node/internal/identity"
	"github.com/nodecore/node/internal/network"
	"github.com/nodecore/node/internal/wire"
)

type capturingTransport struct {
	address string
	env     wire.Envelope
}

func (c *capturingTransport) Send(_ context.Context, address string, env wire.Envelope) error {
	c.address = address
	c.env = env
	return nil
}

type fakeInbound struct {
	received wire.Envelope
	called   bool
}

func (f *fakeInbound) HandleInbound(_ context.Context, env wire.Envelope) error {
	f.received = env
	f.called = true
	return nil
}

func TestSendSameNodeShortCircuitsTransport(t *testing.T) {
	t.Parallel()
	local := &fakeInbound{}
	transport := &capturingTransport{}
	nodeEnc, err := crypto.GenerateEncryptionKeyPair()
	require.NoError(t, err)
	nodeSig, err := crypto.GenerateSignatureKeyPair()
	require.NoError(t, err)

	d := network.NewDispatcher("node1", nodeEnc, nodeSig, identity.NewInMemoryResolver(), transport, local)
	err = d.Send(context.Background(), "node1", []byte("hello"), nil)
	require.NoError(t, err)
	require.True(t, local.called)
	require.Equal(t, []byte("hello"), local.received.Body)
	require.Equal(t, wire.EncryptionNone, local.received.EncryptionMethod)
	require.Empty(t, transport.address)
}

func TestSendEncryptsAndSignsOuterLayer(t *testing.T) {
	t.Parallel()
	local := &fakeInbound{}
	transport := &capturingTransport{}

	localEnc, err := crypto.GenerateEncryptionKeyPair()
	require.NoError(t, err)
	localSig, err := crypto.GenerateSignatureKeyPair()
	require.NoError(t, err)
	remoteEnc, err := crypto.GenerateEncryptionKeyPair()
	require.NoError(t, err)

	resolver := identity.NewInMemoryResolver()
	resolver.Put(identity.NodeRecord{
		NodeName:         "node2",
		NetworkAddress:   "node2.example:9000",
		NodeEncryptionPK: remoteEnc.Public,
		NodeSignaturePK:  localSig.Public, // unused by Resolve itself; kept for ResolvesToKeys symmetry
	})

	d := network.NewDispatcher("node1", localEnc, localSig, resolver, transport, local)
	err = d.Send(context.Background(), "node2", []byte(`{"hello":"world"}`), nil)
	require.NoError(t, err)
	require.False(t, local.called)
	require.Equal(t, "node2.example:9000", transport.address)
	require.Equal(t, wire.EncryptionX25519ChaCha20Poly1305, transport.env.EncryptionMethod)
	require.Equal(t, "node1", transport.env.ExternalMetadata.SenderNode)
	require.NotEmpty(t, transport.env.ExternalMetadata.OuterSignatureHex)

	ephemeralPK, err := hex.DecodeString(transport.env.ExternalMetadata.SenderEphemeralPKHex)
	require.NoError(t, err)
	var remotePK [crypto.KeySize]byte
	copy(remotePK[:], ephemeralPK)
	sharedKey, err := crypto.SharedSecret(remoteEnc.Private, remotePK)
	require.NoError(t, err)
	plain, err := crypto.Open(sharedKey, transport.env.Body, nil)
	require.NoError(t, err)
	require.JSONEq(t, `{"hello":"world"}`, string(plain))

	sigBytes, err := hex.DecodeString(transport.env.ExternalMetadata.OuterSignatureHex)
	require.NoError(t, err)
	require.True(t, crypto.Verify(localSig.Public, transport.env.CanonicalSigningBytes(), sigBytes))
}

func TestSendToProxyUsesProxyAddress(t *testing.T) {
	t.Parallel()
	local := &fakeInbound{}
	transport := &capturingTransport{}

	localEnc, err := crypto.GenerateEncryptionKeyPair()
	require.NoError(t, err)
	localSig, err := crypto.GenerateSignatureKeyPair()
	require.NoError(t, err)
	remoteEnc, err := crypto.GenerateEncryptionKeyPair()
	require.NoError(t, err)

	resolver := identity.NewInMemoryResolver()
	resolver.Put(identity.NodeRecord{NodeName: "node2", NetworkAddress: "direct.example:9000", NodeEncryptionPK: remoteEnc.Public})

	d := network.NewDispatcher("node1", localEnc, localSig, resolver, transport, local)
	err = d.Send(context.Background(), "node2", []byte("x"), &network.ProxyInfo{ProxyNodeName: "proxy1", ProxyAddress: "proxy.example:9001"})
	require.NoError(t, err)
	require.Equal(t, "proxy.example:9001", transport.address)
}

func TestDispatchInvoiceRequesterSendsRequestAndReturnsID(t *testing.T) {
	t.Parallel()
	local := &fakeInbound{}
	transport := &capturingTransport{}
	localEnc, err := crypto.GenerateEncryptionKeyPair()
	require.NoError(t, err)
	localSig, err := crypto.GenerateSignatureKeyPair()
	require.NoError(t, err)
	remoteEnc, err := crypto.GenerateEncryptionKeyPair()
	require.NoError(t, err)

	resolver := identity.NewInMemoryResolver()
	resolver.Put(identity.NodeRecord{NodeName: "provider1", NetworkAddress: "provider1.example:9000", NodeEncryptionPK: remoteEnc.Public})

	d := network.NewDispatcher("node1", localEnc, localSig, resolver, transport, local)
	requester := network.NewDispatchInvoiceRequester(d)

	uniqueID, err := requester.RequestInvoice(context.Background(), "provider1", "gpt-4-call", "1.5")
	require.NoError(t, err)
	require.NotEmpty(t, uniqueID)

	sharedKey, err := crypto.SharedSecret(remoteEnc.Private, func() [crypto.KeySize]byte {
		b, _ := hex.DecodeString(transport.env.ExternalMetadata.SenderEphemeralPKHex)
		var pk [crypto.KeySize]byte
		copy(pk[:], b)
		return pk
	}())
	require.NoError(t, err)
	plain, err := crypto.Open(sharedKey, transport.env.Body, nil)
	require.NoError(t, err)
	var req struct {
		UniqueID string `json:"unique_id"`
		Usage    string `json:"usage"`
		Amount   string `json:"amount"`
	}
	require.NoError(t, json.Unmarshal(plain, &req))
	require.Equal(t, uniqueID, req.UniqueID)
	require.Equal(t, "gpt-4-call", req.Usage)
}
