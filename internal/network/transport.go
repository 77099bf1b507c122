package network

import (
	"context"
	"encoding/hex"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/nodecore/node/internal/crypto"
	"github.com/nodecore/node/internal/identity"
	"github.com/nodecore/node/internal/nodeerr"
	"github.com/nodecore/node/internal/wire"
)

// Transport performs the raw wire delivery of an already-sealed envelope to
// a network address.
type Transport interface {
	Send(ctx context.Context, address string, env wire.Envelope) error
}

// GRPCTransport is the default Transport, built directly on
// google.golang.org/grpc (see service.go/codec.go for why no protobuf
// codegen is involved).
type GRPCTransport struct{}

// NewGRPCTransport constructs a GRPCTransport. Each Send dials fresh rather
// than pooling connections, matching the node's small-scale, mostly-local
// deployment model; a production build would add a connection cache.
func NewGRPCTransport() *GRPCTransport {
	return &GRPCTransport{}
}

func (t *GRPCTransport) Send(ctx context.Context, address string, env wire.Envelope) error {
	conn, err := grpc.NewClient(address,
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithDefaultCallOptions(grpc.CallContentSubtype(codecName)),
	)
	if err != nil {
		return nodeerr.Wrap(nodeerr.Retryable, "dial peer node", err)
	}
	defer conn.Close()

	var resp sendResponse
	if err := conn.Invoke(ctx, fullSendPath, &sendRequest{Envelope: env}, &resp); err != nil {
		return nodeerr.Wrap(nodeerr.Retryable, "invoke peer dispatch", err)
	}
	return nil
}

// ProxyInfo routes an outbound envelope through an intermediate proxy node
// rather than dialing the destination directly (spec.md §4.8).
type ProxyInfo struct {
	ProxyNodeName string
	ProxyAddress  string
}

// Dispatcher implements the C11 outbound send contract.
type Dispatcher struct {
	localNodeName string
	nodeEncKey    crypto.EncryptionKeyPair
	nodeSigKey    crypto.SignatureKeyPair
	resolver      identity.Resolver
	transport     Transport
	local         InboundHandler // same-node short-circuit target
}

// NewDispatcher constructs a Dispatcher for localNodeName.
func NewDispatcher(localNodeName string, nodeEncKey crypto.EncryptionKeyPair, nodeSigKey crypto.SignatureKeyPair, resolver identity.Resolver, transport Transport, local InboundHandler) *Dispatcher {
	return &Dispatcher{
		localNodeName: localNodeName,
		nodeEncKey:    nodeEncKey,
		nodeSigKey:    nodeSigKey,
		resolver:      resolver,
		transport:     transport,
		local:         local,
	}
}

// Send implements spec.md §4.8's outbound send(msg, dest_node, proxy_info?):
// look up address and keys for dest_node; encrypt the outer layer with a DH
// shared secret; re-sign the outer layer with the node signature key (so
// the receiver authenticates the node, not the originating profile);
// transmit directly, or via proxy when proxyInfo is supplied. When
// destNode is this node, the inbox write happens locally and the outbound
// hop is skipped entirely (same-node short-circuit).
func (d *Dispatcher) Send(ctx context.Context, destNode string, plainBody []byte, proxyInfo *ProxyInfo) error {
	if destNode == d.localNodeName {
		return d.local.HandleInbound(ctx, wire.Envelope{
			Body:             plainBody,
			EncryptionMethod: wire.EncryptionNone,
			ExternalMetadata: wire.ExternalMetadata{SenderNode: d.localNodeName, RecipientNode: destNode},
		})
	}

	rec, err := d.resolver.Resolve(ctx, destNode)
	if err != nil {
		return err
	}

	sharedKey, err := crypto.SharedSecret(d.nodeEncKey.Private, rec.NodeEncryptionPK)
	if err != nil {
		return nodeerr.Wrap(nodeerr.Unauthorized, "derive outbound shared secret", err)
	}
	sealed, err := crypto.Seal(sharedKey, plainBody, nil)
	if err != nil {
		return nodeerr.Wrap(nodeerr.Retryable, "seal outer envelope", err)
	}

	env := wire.Envelope{
		Body:             sealed,
		EncryptionMethod: wire.EncryptionX25519ChaCha20Poly1305,
		ExternalMetadata: wire.ExternalMetadata{
			SenderNode:           d.localNodeName,
			RecipientNode:        destNode,
			SenderEphemeralPKHex: hex.EncodeToString(d.nodeEncKey.Public[:]),
		},
	}
	sig := crypto.Sign(d.nodeSigKey.Private, env.CanonicalSigningBytes())
	env.ExternalMetadata.OuterSignatureHex = hex.EncodeToString(sig)

	address := rec.NetworkAddress
	if proxyInfo != nil {
		address = proxyInfo.ProxyAddress
	}
	return d.transport.Send(ctx, address, env)
}
