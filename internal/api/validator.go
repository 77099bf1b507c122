// Package api implements the inbound validation pipeline (C9, spec.md
// §4.6): decrypt → schema check → sender-node check → sub-identity lookup
// → signature verify, plus a permission-checked variant and the v1/v2 HTTP
// route families. Grounded on the "validate → permission check → internal
// operation → encode response" handler shape spec.md §4.6 itself
// describes; no teacher file implements an equivalent pipeline directly, so
// the stage sequencing is original logic built on internal/crypto,
// internal/identity, and internal/wire.
package api

import (
	"context"
	"encoding/hex"
	"encoding/json"

	"github.com/nodecore/node/internal/crypto"
	"github.com/nodecore/node/internal/identity"
	"github.com/nodecore/node/internal/nodeerr"
	"github.com/nodecore/node/internal/wire"
)

// IdentityLookup resolves a local sub-identity (profile or device) by its
// full name, the C9 dependency on the node's own identity state (distinct
// from C1's Resolver, which resolves *other* nodes).
type IdentityLookup interface {
	Lookup(ctx context.Context, fullName string) (identity.StandardIdentity, error)
}

// Validated is the result of a successful validation pass: the decrypted
// plain body plus the authenticated sender identity.
type Validated struct {
	Body           wire.PlainBody
	InnerMetadata  wire.InnerMetadata
	SenderFullName string
	Sender         identity.StandardIdentity
}

// Validator implements the C9 pipeline for one node.
type Validator struct {
	nodeName   string
	nodeEncKey crypto.EncryptionKeyPair
	identities IdentityLookup
}

// NewValidator constructs a Validator bound to this node's own identity.
func NewValidator(nodeName string, nodeEncKey crypto.EncryptionKeyPair, identities IdentityLookup) *Validator {
	return &Validator{nodeName: nodeName, nodeEncKey: nodeEncKey, identities: identities}
}

// Validate runs the five-step pipeline from spec.md §4.6 against an inbound
// envelope. expectedSchema, if non-empty, must match the decoded inner
// schema tag (step 2).
func (v *Validator) Validate(ctx context.Context, env wire.Envelope, expectedSchema wire.InnerSchema) (Validated, error) {
	plainBytes, err := v.decryptOuter(env)
	if err != nil {
		return Validated{}, err
	}

	var body wire.PlainBody
	if err := json.Unmarshal(plainBytes, &body); err != nil {
		return Validated{}, nodeerr.Wrap(nodeerr.BadRequest, "decode plain body", err)
	}

	var inner wire.InnerMetadata
	if len(body.InternalMetadata) > 0 {
		if err := json.Unmarshal(body.InternalMetadata, &inner); err != nil {
			return Validated{}, nodeerr.Wrap(nodeerr.BadRequest, "decode inner metadata", err)
		}
	} else {
		inner = wire.InnerMetadata{Schema: env.InnerSchema}
	}

	// Step 2: schema tag check.
	if expectedSchema != "" && inner.Schema != expectedSchema {
		return Validated{}, nodeerr.Errorf(nodeerr.BadRequest, "expected schema %q, got %q", expectedSchema, inner.Schema)
	}

	// Step 3: the sender's claimed node must be this node; the validator
	// never proxies external→external traffic (spec.md §4.6 step 3).
	if env.ExternalMetadata.SenderNode != v.nodeName {
		return Validated{}, nodeerr.Errorf(nodeerr.BadRequest, "sender node %q is not this node", env.ExternalMetadata.SenderNode)
	}
	senderFullName := "@@" + v.nodeName + "/" + inner.SenderSubidentity

	// Step 4: sub-identity lookup.
	sender, err := v.identities.Lookup(ctx, senderFullName)
	if err != nil {
		return Validated{}, err
	}

	// Step 5: inner signature verification. The signature covers the raw
	// content and schema tag only — never the inner metadata blob itself,
	// since that blob carries the signature and would make the contract
	// circular.
	sigBytes, err := decodeHex(inner.InnerSignatureHex)
	if err != nil {
		return Validated{}, nodeerr.Wrap(nodeerr.BadRequest, "decode inner signature", err)
	}
	signingBytes := InnerSigningBytes(body.MessageRawContent, inner.Schema)
	sigKey := sender.ProfileSignaturePK
	if sigKey == nil {
		sigKey = sender.NodeSignaturePK
	}
	if !crypto.Verify(sigKey, signingBytes, sigBytes) {
		return Validated{}, nodeerr.New(nodeerr.Unauthorized, "inner signature verification failed")
	}

	return Validated{Body: body, InnerMetadata: inner, SenderFullName: senderFullName, Sender: sender}, nil
}

// decryptOuter implements step 1: if the envelope is encrypted, decrypt
// with the recipient node's secret key and the sender's declared ephemeral
// public key; otherwise the body already carries the plain JSON payload.
func (v *Validator) decryptOuter(env wire.Envelope) ([]byte, error) {
	if env.EncryptionMethod == wire.EncryptionNone {
		return env.Body, nil
	}
	ephemeralPK, err := decodeHex(env.ExternalMetadata.SenderEphemeralPKHex)
	if err != nil {
		return nil, nodeerr.Wrap(nodeerr.BadRequest, "decode sender ephemeral pk", err)
	}
	var remotePK [crypto.KeySize]byte
	copy(remotePK[:], ephemeralPK)
	sharedKey, err := crypto.SharedSecret(v.nodeEncKey.Private, remotePK)
	if err != nil {
		return nil, nodeerr.Wrap(nodeerr.Unauthorized, "derive shared secret", err)
	}
	plain, err := crypto.Open(sharedKey, env.Body, nil)
	if err != nil {
		return nil, nodeerr.Wrap(nodeerr.Unauthorized, "open outer envelope", err)
	}
	return plain, nil
}

func decodeHex(s string) ([]byte, error) {
	return hex.DecodeString(s)
}

// InnerSigningBytes returns the deterministic byte sequence an inner
// signature covers: the raw message content and the declared schema tag.
// Exported so callers constructing outbound envelopes (C11) sign the exact
// bytes this validator will later verify.
func InnerSigningBytes(messageRawContent string, schema wire.InnerSchema) []byte {
	buf := make([]byte, 0, len(messageRawContent)+len(schema)+1)
	buf = append(buf, []byte(messageRawContent)...)
	buf = append(buf, '|')
	buf = append(buf, []byte(schema)...)
	return buf
}
