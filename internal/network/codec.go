// Package network implements the outbound/inbound node-to-node transport
// (C11, spec.md §4.8): envelope encryption/re-signing, same-node
// short-circuit, and direct-or-proxied delivery over gRPC. Grounded on
// cuemby-warren's and the teacher's shared use of google.golang.org/grpc;
// since this build produces no protoc-generated stubs, the service is
// registered by hand against a JSON codec rather than the protobuf wire
// format — the connection, stream, and service-dispatch machinery are
// still genuinely grpc's.
package network

import (
	"encoding/json"

	"google.golang.org/grpc/encoding"
)

const codecName = "json"

// jsonCodec implements grpc/encoding.Codec so grpc.ClientConn/grpc.Server
// can exchange arbitrary Go structs without a protobuf code generation
// step.
type jsonCodec struct{}

func (jsonCodec) Marshal(v any) ([]byte, error) { return json.Marshal(v) }

func (jsonCodec) Unmarshal(data []byte, v any) error { return json.Unmarshal(data, v) }

func (jsonCodec) Name() string { return codecName }

func init() {
	encoding.RegisterCodec(jsonCodec{})
}
