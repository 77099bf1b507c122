// Package inbox implements the conversation/message threading store (C4,
// spec.md §4.2): a DAG of content-addressed messages per inbox, pagination
// by hash anchor, read/unread watermarks, smart display names, and the
// inbox permission-tuple model. Grounded on the teacher's store-backed
// registry packages (registry/store.Store as the persistence contract) with
// the DAG/branching logic original to this component, since no example repo
// in the pack implements threaded messaging directly.
package inbox

import (
	"encoding/hex"
	"fmt"
	"time"

	"github.com/nodecore/node/internal/crypto"
	"github.com/nodecore/node/internal/nodeerr"
	"github.com/nodecore/node/internal/store"
	"github.com/nodecore/node/internal/wire"
)

const (
	cfMessages    = "inbox_messages"
	cfByHash      = "inbox_messages_by_hash"
	cfChildren    = "inbox_children"
	cfReadMarks   = "inbox_read_marks"
	cfSmartNames  = "inbox_smart_names"
	cfPermissions = "inbox_permissions"
)

// Permission is the per-inbox permission level (spec.md §4.2), a total order
// distinct from the node-wide identity.Permission scale.
type Permission string

const (
	PermissionNone  Permission = "none"
	PermissionRead  Permission = "read"
	PermissionWrite Permission = "write"
	PermissionAdmin Permission = "admin"
)

var permRank = map[Permission]int{
	PermissionNone:  0,
	PermissionRead:  1,
	PermissionWrite: 2,
	PermissionAdmin: 3,
}

// AtLeast reports whether p grants at least the given permission level.
func (p Permission) AtLeast(min Permission) bool {
	return permRank[p] >= permRank[min]
}

// Message is one content-addressed node in an inbox's message DAG.
type Message struct {
	Hash           string // hex content hash, the pagination cursor unit
	ParentHash     string // empty for a root message
	Inbox          string
	SenderFullName string
	Envelope       wire.Envelope
	Timestamp      time.Time
}

// Store implements the inbox contract over a store.Store.
type Store struct {
	backend store.Store
}

// NewStore constructs an inbox Store over the given persistent backend.
func NewStore(backend store.Store) *Store {
	return &Store{backend: backend}
}

func inboxHash(inboxName string) string {
	return hex.EncodeToString(crypto.TruncatedHash([]byte(inboxName), 16))
}

// timeKey renders t as a fixed-width, lexicographically-sortable key
// component (nanoseconds since epoch, zero-padded), matching the
// "all_jobs_time_keyed_..." padding convention in spec.md §4.1.
func timeKey(t time.Time) string {
	return fmt.Sprintf("%020d", t.UnixNano())
}

func messageKey(inbox string, ts time.Time, hash string) []byte {
	return []byte(fmt.Sprintf("%s_message_%s_%s", inboxHash(inbox), timeKey(ts), hash))
}

func byHashKey(inbox, hash string) []byte {
	return []byte(fmt.Sprintf("%s_byhash_%s", inboxHash(inbox), hash))
}

func childrenKey(inbox, parentHash, childHash string) []byte {
	return []byte(fmt.Sprintf("%s_children_%s_%s", inboxHash(inbox), parentHash, childHash))
}

func readMarkKey(inbox string) []byte {
	return []byte(inboxHash(inbox))
}

func smartNameKey(inbox string) []byte {
	return []byte(inboxHash(inbox))
}

func permissionKey(inbox, identityFullName string) []byte {
	return []byte(fmt.Sprintf("%s_%s", inboxHash(inbox), identityFullName))
}

// wrapStoreErr turns a raw store.Store error into the closed nodeerr
// taxonomy: NotFound passes through unchanged, everything else is
// Retryable per spec.md §4.2 ("store errors bubble up as Retryable").
func wrapStoreErr(err error) error {
	if err == nil {
		return nil
	}
	if err == store.ErrNotFound {
		return nodeerr.Wrap(nodeerr.NotFound, "", err)
	}
	return nodeerr.Wrap(nodeerr.Retryable, "inbox store operation failed", err)
}
