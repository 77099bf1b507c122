package identity

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"

	"github.com/nodecore/node/internal/crypto"
	"github.com/nodecore/node/internal/nodeerr"
)

// NodeRecord is what the identity directory (C1) resolves a node name to:
// its network address and its two long-lived node keys.
type NodeRecord struct {
	NodeName         string
	NetworkAddress   string
	NodeEncryptionPK [crypto.KeySize]byte
	NodeSignaturePK  []byte
}

// Resolver resolves "<node>" to {network address, node keys} and verifies
// signatures against a resolved key (spec.md §4.1 / C1). It is an external
// collaborator boundary: the node trusts whatever Resolver implementation
// is wired in (spec.md §1, "external identity directory oracle").
type Resolver interface {
	// Resolve looks up a node name (e.g. "@@alice") and returns its record.
	Resolve(ctx context.Context, nodeName string) (NodeRecord, error)
	// ResolvesToKeys reports whether nodeName currently resolves to exactly
	// the given node keys. Used by node-name rotation (C10) to verify a
	// candidate name before committing to it.
	ResolvesToKeys(ctx context.Context, nodeName string, encPK [crypto.KeySize]byte, sigPK []byte) (bool, error)
}

// InMemoryResolver is a test/dev directory backed by a plain map, grounded
// on the teacher's in-memory registry client test doubles.
type InMemoryResolver struct {
	mu      sync.RWMutex
	records map[string]NodeRecord
}

// NewInMemoryResolver constructs an empty in-memory directory.
func NewInMemoryResolver() *InMemoryResolver {
	return &InMemoryResolver{records: make(map[string]NodeRecord)}
}

// Put registers or replaces a node record, as if the node had published an
// updated directory entry.
func (r *InMemoryResolver) Put(rec NodeRecord) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.records[rec.NodeName] = rec
}

// Resolve implements Resolver.
func (r *InMemoryResolver) Resolve(_ context.Context, nodeName string) (NodeRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rec, ok := r.records[nodeName]
	if !ok {
		return NodeRecord{}, nodeerr.Errorf(nodeerr.NotFound, "node %q not found in directory", nodeName)
	}
	return rec, nil
}

// ResolvesToKeys implements Resolver.
func (r *InMemoryResolver) ResolvesToKeys(ctx context.Context, nodeName string, encPK [crypto.KeySize]byte, sigPK []byte) (bool, error) {
	rec, err := r.Resolve(ctx, nodeName)
	if err != nil {
		if nodeerr.Is(err, nodeerr.NotFound) {
			return false, nil
		}
		return false, err
	}
	return rec.NodeEncryptionPK == encPK && equalBytes(rec.NodeSignaturePK, sigPK), nil
}

func equalBytes(a, b []byte) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// HTTPResolver resolves node records against a remote identity directory
// service over plain HTTP, the way the v2 bearer-token API (spec.md §6)
// re-derives identity from a simple JSON shape.
type HTTPResolver struct {
	BaseURL string
	Client  *http.Client
}

// NewHTTPResolver constructs an HTTPResolver against baseURL.
func NewHTTPResolver(baseURL string, client *http.Client) *HTTPResolver {
	if client == nil {
		client = http.DefaultClient
	}
	return &HTTPResolver{BaseURL: baseURL, Client: client}
}

type directoryRecordWire struct {
	NodeName         string `json:"node_name"`
	NetworkAddress   string `json:"network_address"`
	NodeEncryptionPK string `json:"node_encryption_pk"`
	NodeSignaturePK  string `json:"node_signature_pk"`
}

// Resolve implements Resolver over HTTP GET {BaseURL}/resolve/{nodeName}.
func (h *HTTPResolver) Resolve(ctx context.Context, nodeName string) (NodeRecord, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fmt.Sprintf("%s/resolve/%s", h.BaseURL, nodeName), nil)
	if err != nil {
		return NodeRecord{}, nodeerr.Wrap(nodeerr.Retryable, "build directory request", err)
	}
	resp, err := h.Client.Do(req)
	if err != nil {
		return NodeRecord{}, nodeerr.Wrap(nodeerr.Retryable, "directory request failed", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusNotFound {
		return NodeRecord{}, nodeerr.Errorf(nodeerr.NotFound, "node %q not found in directory", nodeName)
	}
	if resp.StatusCode != http.StatusOK {
		return NodeRecord{}, nodeerr.Errorf(nodeerr.Retryable, "directory returned status %d", resp.StatusCode)
	}
	var wireRec directoryRecordWire
	if err := json.NewDecoder(resp.Body).Decode(&wireRec); err != nil {
		return NodeRecord{}, nodeerr.Wrap(nodeerr.BadRequest, "decode directory response", err)
	}
	return decodeRecord(wireRec)
}

// ResolvesToKeys implements Resolver.
func (h *HTTPResolver) ResolvesToKeys(ctx context.Context, nodeName string, encPK [crypto.KeySize]byte, sigPK []byte) (bool, error) {
	rec, err := h.Resolve(ctx, nodeName)
	if err != nil {
		if nodeerr.Is(err, nodeerr.NotFound) {
			return false, nil
		}
		return false, err
	}
	return rec.NodeEncryptionPK == encPK && equalBytes(rec.NodeSignaturePK, sigPK), nil
}

func decodeRecord(w directoryRecordWire) (NodeRecord, error) {
	var rec NodeRecord
	rec.NodeName = w.NodeName
	rec.NetworkAddress = w.NetworkAddress
	encPK, err := decodeHexKey(w.NodeEncryptionPK, crypto.KeySize)
	if err != nil {
		return NodeRecord{}, nodeerr.Wrap(nodeerr.BadRequest, "decode node encryption pk", err)
	}
	copy(rec.NodeEncryptionPK[:], encPK)
	sigPK, err := decodeHexKey(w.NodeSignaturePK, 0)
	if err != nil {
		return NodeRecord{}, nodeerr.Wrap(nodeerr.BadRequest, "decode node signature pk", err)
	}
	rec.NodeSignaturePK = sigPK
	return rec, nil
}
