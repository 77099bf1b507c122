// Package wire defines the inter-node envelope wire format (spec.md §3, §6):
// the signed, optionally double-encrypted unit exchanged between nodes and
// between local clients and the node. The shape mirrors the teacher's
// toolregistry.ToolCallMessage (typed envelope + metadata + signature
// fields travelling together over one wire struct).
package wire

import (
	"encoding/json"
)

// EncryptionMethod identifies how Body is encrypted, if at all.
type EncryptionMethod string

const (
	// EncryptionNone indicates Body carries a plain Content.
	EncryptionNone EncryptionMethod = "none"
	// EncryptionX25519ChaCha20Poly1305 indicates Body is sealed with an
	// X25519-derived AEAD key. The node implements the AEAD step with
	// AES-256-GCM (see internal/crypto); the wire tag is kept as named in
	// spec.md §6 for protocol compatibility.
	EncryptionX25519ChaCha20Poly1305 EncryptionMethod = "x25519-chacha20poly1305"
)

// InnerSchema is the closed tag enumerating every inner message shape the
// node recognizes (spec.md §6).
type InnerSchema string

const (
	SchemaTextContent                     InnerSchema = "TextContent"
	SchemaJobCreation                      InnerSchema = "JobCreation"
	SchemaJobMessage                       InnerSchema = "JobMessage"
	SchemaCreateRegistrationCode           InnerSchema = "CreateRegistrationCode"
	SchemaAPIGetMessagesFromInboxRequest   InnerSchema = "APIGetMessagesFromInboxRequest"
	SchemaAPIReadUpToTimeRequest           InnerSchema = "APIReadUpToTimeRequest"
	SchemaAPIAddAgentRequest               InnerSchema = "APIAddAgentRequest"
	SchemaAPIModifyAgentRequest            InnerSchema = "APIModifyAgentRequest"
	SchemaAPIRemoveAgentRequest            InnerSchema = "APIRemoveAgentRequest"
	SchemaChangeJobAgentRequest            InnerSchema = "ChangeJobAgentRequest"
	SchemaAPIFinishJob                     InnerSchema = "APIFinishJob"
	SchemaChangeNodesName                  InnerSchema = "ChangeNodesName"
	SchemaAPIScanOllamaModels              InnerSchema = "APIScanOllamaModels"
	SchemaAPIAddOllamaModels               InnerSchema = "APIAddOllamaModels"
	SchemaAPIAddToolkit                    InnerSchema = "APIAddToolkit"
	SchemaAPIRemoveToolkit                 InnerSchema = "APIRemoveToolkit"
	SchemaAPIListToolkits                  InnerSchema = "APIListToolkits"
	SchemaSymmetricKeyExchange             InnerSchema = "SymmetricKeyExchange"
	SchemaGetProcessingPreference          InnerSchema = "GetProcessingPreference"
	SchemaUpdateLocalProcessingPreference  InnerSchema = "UpdateLocalProcessingPreference"
	SchemaSearchWorkflows                  InnerSchema = "SearchWorkflows"
	SchemaAddWorkflow                      InnerSchema = "AddWorkflow"
	SchemaRemoveWorkflow                   InnerSchema = "RemoveWorkflow"
	SchemaGetWorkflow                      InnerSchema = "GetWorkflow"
	SchemaListWorkflows                    InnerSchema = "ListWorkflows"
	SchemaUpdateDefaultEmbeddingModel      InnerSchema = "UpdateDefaultEmbeddingModel"
	SchemaUpdateSupportedEmbeddingModels   InnerSchema = "UpdateSupportedEmbeddingModels"
	SchemaEmpty                            InnerSchema = "Empty"
)

type (
	// ExternalMetadata travels alongside the (possibly encrypted) body and is
	// never itself encrypted, matching spec.md §3.
	ExternalMetadata struct {
		SenderNode          string `json:"sender_node"`
		RecipientNode       string `json:"recipient_node"`
		ScheduledTime       string `json:"scheduled_time,omitempty"`
		IntraSender         string `json:"intra_sender,omitempty"`
		SenderEphemeralPKHex string `json:"sender_ephemeral_pk_string,omitempty"`
		OuterSignatureHex   string `json:"outer_signature"`
	}

	// PlainBody is the inner payload when EncryptionMethod is EncryptionNone.
	PlainBody struct {
		MessageRawContent string          `json:"message_raw_content"`
		InternalMetadata  json.RawMessage `json:"internal_metadata,omitempty"`
	}

	// InnerMetadata carries the profile-level signature and schema tag; it is
	// encrypted along with PlainBody under the inner layer when the sender
	// requests intra-node confidentiality.
	InnerMetadata struct {
		Schema          InnerSchema `json:"schema"`
		SenderSubidentity string    `json:"sender_subidentity"`
		InnerSignatureHex string    `json:"inner_signature"`
	}

	// Envelope is the wire unit exchanged between nodes and between local
	// clients and the node (spec.md §3, §6).
	Envelope struct {
		// Body is either sealed ciphertext (when EncryptionMethod !=
		// EncryptionNone) or a JSON-encoded PlainBody.
		Body             []byte           `json:"body"`
		ExternalMetadata ExternalMetadata `json:"external_metadata"`
		EncryptionMethod EncryptionMethod `json:"encryption_method"`
		// InnerSchema tags the expected decoded inner schema so recipients
		// can validate without guessing (spec.md §4.6 step 2).
		InnerSchema InnerSchema `json:"inner_schema,omitempty"`
	}
)

// CanonicalSigningBytes returns the deterministic byte sequence the outer
// layer signature covers: sender, recipient, scheduled time, and body,
// joined by '|',
// matching the "node key signs the outer layer" contract in spec.md §4.8.
func (e Envelope) CanonicalSigningBytes() []byte {
	buf := make([]byte, 0, len(e.Body)+64)
	buf = append(buf, []byte(e.ExternalMetadata.SenderNode)...)
	buf = append(buf, '|')
	buf = append(buf, []byte(e.ExternalMetadata.RecipientNode)...)
	buf = append(buf, '|')
	buf = append(buf, []byte(e.ExternalMetadata.ScheduledTime)...)
	buf = append(buf, '|')
	buf = append(buf, e.Body...)
	return buf
}
