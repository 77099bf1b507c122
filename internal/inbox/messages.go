package inbox

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"sort"
	"time"

	"github.com/nodecore/node/internal/crypto"
	"github.com/nodecore/node/internal/nodeerr"
	"github.com/nodecore/node/internal/store"
	"github.com/nodecore/node/internal/wire"
)

const cfDirectory = "inbox_directory"

// InsertMessage appends a message to inbox, optionally chaining it off
// parentHash (empty string means a root message), and returns its content
// hash (spec.md §3: "content-addressed by BLAKE3 of a canonical
// serialization"; this node substitutes BLAKE2b, see internal/crypto).
func (s *Store) InsertMessage(ctx context.Context, inboxName, senderFullName string, env wire.Envelope, parentHash string, ts time.Time) (string, error) {
	body, err := json.Marshal(env)
	if err != nil {
		return "", nodeerr.Wrap(nodeerr.BadRequest, "marshal message envelope", err)
	}
	hashInput := append(append([]byte(parentHash), []byte(timeKey(ts))...), body...)
	hash := hex.EncodeToString(crypto.ContentHash(hashInput)[:])

	msg := Message{
		Hash:           hash,
		ParentHash:     parentHash,
		Inbox:          inboxName,
		SenderFullName: senderFullName,
		Envelope:       env,
		Timestamp:      ts,
	}
	record, err := json.Marshal(msg)
	if err != nil {
		return "", nodeerr.Wrap(nodeerr.BadRequest, "marshal message record", err)
	}

	primaryKey := messageKey(inboxName, ts, hash)
	ops := []store.WriteOp{
		{ColumnFamily: cfMessages, Key: primaryKey, Value: record},
		{ColumnFamily: cfByHash, Key: byHashKey(inboxName, hash), Value: primaryKey},
		{ColumnFamily: cfDirectory, Key: []byte(inboxHash(inboxName)), Value: []byte(inboxName)},
	}
	if parentHash != "" {
		ops = append(ops, store.WriteOp{
			ColumnFamily: cfChildren,
			Key:          childrenKey(inboxName, parentHash, hash),
			Value:        []byte{1},
		})
	}
	if err := s.backend.Batch(ctx, ops); err != nil {
		return "", wrapStoreErr(err)
	}
	return hash, nil
}

func (s *Store) loadAll(ctx context.Context, inboxName string) ([]Message, error) {
	prefix := []byte(inboxHash(inboxName) + "_message_")
	entries, err := s.backend.PrefixScan(ctx, cfMessages, prefix)
	if err != nil {
		return nil, wrapStoreErr(err)
	}
	msgs := make([]Message, 0, len(entries))
	for _, e := range entries {
		var m Message
		if err := json.Unmarshal(e.Value, &m); err != nil {
			return nil, nodeerr.Wrap(nodeerr.Retryable, "decode stored message", err)
		}
		msgs = append(msgs, m)
	}
	// entries arrive in ascending key order (oldest first); reverse for
	// newest-first as spec.md §4.2 requires.
	sort.Slice(msgs, func(i, j int) bool { return msgs[i].Timestamp.After(msgs[j].Timestamp) })
	return msgs, nil
}

func (s *Store) anchorTime(ctx context.Context, inboxName, offsetHash string) (time.Time, bool, error) {
	if offsetHash == "" {
		return time.Time{}, false, nil
	}
	primaryKey, err := s.backend.Get(ctx, cfByHash, byHashKey(inboxName, offsetHash))
	if err != nil {
		if err == store.ErrNotFound {
			return time.Time{}, false, nodeerr.Errorf(nodeerr.NotFound, "pagination anchor %q not found in inbox %q", offsetHash, inboxName)
		}
		return time.Time{}, false, wrapStoreErr(err)
	}
	record, err := s.backend.Get(ctx, cfMessages, primaryKey)
	if err != nil {
		return time.Time{}, false, wrapStoreErr(err)
	}
	var m Message
	if err := json.Unmarshal(record, &m); err != nil {
		return time.Time{}, false, nodeerr.Wrap(nodeerr.Retryable, "decode anchor message", err)
	}
	return m.Timestamp, true, nil
}

// branches groups a newest-first, already-windowed message slice into
// leaf-to-anchor paths: each branch is a maximal chain of messages linked by
// ParentHash within the given set (spec.md §4.2: "all branches are returned
// as parallel paths").
func branches(msgs []Message) [][]Message {
	byHash := make(map[string]Message, len(msgs))
	hasChild := make(map[string]bool, len(msgs))
	for _, m := range msgs {
		byHash[m.Hash] = m
		if m.ParentHash != "" {
			hasChild[m.ParentHash] = true
		}
	}
	var result [][]Message
	for _, m := range msgs {
		if hasChild[m.Hash] {
			continue // not a leaf; it will appear inside another branch
		}
		branch := []Message{m}
		cur := m
		for cur.ParentHash != "" {
			parent, ok := byHash[cur.ParentHash]
			if !ok {
				break
			}
			branch = append(branch, parent)
			cur = parent
		}
		result = append(result, branch)
	}
	return result
}

func windowMessages(msgs []Message, n int, anchor time.Time, haveAnchor bool) []Message {
	var out []Message
	for _, m := range msgs {
		if haveAnchor && !m.Timestamp.Before(anchor) {
			continue
		}
		out = append(out, m)
		if len(out) == n {
			break
		}
	}
	return out
}

// LastMessages returns up to n messages strictly older than the message
// identified by offsetHash (or the newest n if offsetHash is empty),
// grouped into parallel branch paths (spec.md §4.2).
func (s *Store) LastMessages(ctx context.Context, inboxName string, n int, offsetHash string) ([][]Message, error) {
	all, err := s.loadAll(ctx, inboxName)
	if err != nil {
		return nil, err
	}
	anchor, haveAnchor, err := s.anchorTime(ctx, inboxName, offsetHash)
	if err != nil {
		return nil, err
	}
	return branches(windowMessages(all, n, anchor, haveAnchor)), nil
}

// LastUnread returns up to n unread messages (strictly newer than the
// inbox's read watermark) older than offsetHash, grouped into branches the
// same way as LastMessages.
func (s *Store) LastUnread(ctx context.Context, inboxName string, n int, offsetHash string) ([][]Message, error) {
	all, err := s.loadAll(ctx, inboxName)
	if err != nil {
		return nil, err
	}
	watermark, haveWatermark, err := s.readWatermark(ctx, inboxName)
	if err != nil {
		return nil, err
	}
	anchor, haveAnchor, err := s.anchorTime(ctx, inboxName, offsetHash)
	if err != nil {
		return nil, err
	}
	unread := all
	if haveWatermark {
		unread = nil
		for _, m := range all {
			if m.Timestamp.After(watermark) {
				unread = append(unread, m)
			}
		}
	}
	return branches(windowMessages(unread, n, anchor, haveAnchor)), nil
}

func (s *Store) readWatermark(ctx context.Context, inboxName string) (time.Time, bool, error) {
	raw, err := s.backend.Get(ctx, cfReadMarks, readMarkKey(inboxName))
	if err != nil {
		if err == store.ErrNotFound {
			return time.Time{}, false, nil
		}
		return time.Time{}, false, wrapStoreErr(err)
	}
	ns, err := decodeInt64(raw)
	if err != nil {
		return time.Time{}, false, nodeerr.Wrap(nodeerr.Retryable, "decode read watermark", err)
	}
	return time.Unix(0, ns), true, nil
}

// MarkReadUpTo advances inbox's read watermark to ts. Messages timestamped
// at or before ts are considered read.
func (s *Store) MarkReadUpTo(ctx context.Context, inboxName string, ts time.Time) error {
	if err := s.backend.Put(ctx, cfReadMarks, readMarkKey(inboxName), encodeInt64(ts.UnixNano())); err != nil {
		return wrapStoreErr(err)
	}
	return nil
}

// SetSmartName sets the human display name for inboxName. Callers must have
// already verified Admin permission on the inbox (spec.md §4.2).
func (s *Store) SetSmartName(ctx context.Context, inboxName, name string) error {
	if err := s.backend.Put(ctx, cfSmartNames, smartNameKey(inboxName), []byte(name)); err != nil {
		return wrapStoreErr(err)
	}
	return nil
}

// SmartName returns the human display name for inboxName, or "" if unset.
func (s *Store) SmartName(ctx context.Context, inboxName string) (string, error) {
	raw, err := s.backend.Get(ctx, cfSmartNames, smartNameKey(inboxName))
	if err != nil {
		if err == store.ErrNotFound {
			return "", nil
		}
		return "", wrapStoreErr(err)
	}
	return string(raw), nil
}

// ListProfileInboxes returns every inbox name profileFullName can access,
// either implicitly (named participant of a regular inbox) or via an
// explicit permission tuple.
func (s *Store) ListProfileInboxes(ctx context.Context, profileFullName string) ([]string, error) {
	entries, err := s.backend.PrefixScan(ctx, cfDirectory, nil)
	if err != nil {
		return nil, wrapStoreErr(err)
	}
	var out []string
	seen := make(map[string]bool)
	for _, e := range entries {
		name := string(e.Value)
		if seen[name] {
			continue
		}
		parsed, err := ParseName(name)
		if err != nil {
			continue
		}
		if parsed.Kind == KindRegular && parsed.isParticipant(profileFullName) {
			out = append(out, name)
			seen[name] = true
			continue
		}
		_, err = s.backend.Get(ctx, cfPermissions, permissionKey(name, profileFullName))
		if err == nil {
			out = append(out, name)
			seen[name] = true
		} else if err != store.ErrNotFound {
			return nil, wrapStoreErr(err)
		}
	}
	return out, nil
}
