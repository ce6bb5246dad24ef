package audit

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"finrep.org/internal/authz"
	"finrep.org/internal/obs"
)

var (
	ErrInvalidInput = errors.New("audit: invalid input")
	ErrUnavailable  = errors.New("audit: store unavailable")
)

// MaxRecentLimit caps how many entries a single read may return.
const MaxRecentLimit = 50

// Store appends and reads immutable audit rows. Application code never
// updates or deletes them.
type Store interface {
	Append(ctx context.Context, entry *Entry) error
	Recent(ctx context.Context, limit int) ([]Entry, error)
	Count(ctx context.Context) (int64, error)
}

// Recorder is the append-only audit trail. Every permission-gated mutation
// and every denied privileged attempt passes through it. A failed append is
// fatal to the triggering operation: an unrecorded privileged action is a
// compliance gap, so callers abort rather than proceed.
type Recorder struct {
	store Store
}

func NewRecorder(store Store) (*Recorder, error) {
	if store == nil {
		return nil, errors.New("audit: store is required")
	}
	return &Recorder{store: store}, nil
}

// Record persists a standalone entry and mirrors it to the structured log.
// Used for actions whose mutation (if any) is not part of a store
// transaction, e.g. denial records.
func (r *Recorder) Record(ctx context.Context, action, entityType, entityID string, actor authz.Actor, details string) (Entry, error) {
	if action == "" {
		return Entry{}, fmt.Errorf("%w: action is required", ErrInvalidInput)
	}
	entry := NewEntry(ctx, action, entityType, entityID, actor, details)
	if err := r.store.Append(ctx, &entry); err != nil {
		return Entry{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	r.Emit(entry)
	return entry, nil
}

// RecordDenied persists a DENIED entry for a refused attempt. The attempted
// action and the denial cause go into the details field.
func (r *Recorder) RecordDenied(ctx context.Context, attempted, entityType, entityID string, actor authz.Actor, deny *authz.DeniedError) (Entry, error) {
	details := fmt.Sprintf("attempted %s: %s", attempted, deny.Error())
	return r.Record(ctx, ActionDenied, entityType, entityID, actor, details)
}

// Recent returns up to limit entries, newest first. The limit is clamped to
// MaxRecentLimit regardless of caller input.
func (r *Recorder) Recent(ctx context.Context, limit int) ([]Entry, error) {
	if limit <= 0 || limit > MaxRecentLimit {
		limit = MaxRecentLimit
	}
	entries, err := r.store.Recent(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return entries, nil
}

// Count returns the total number of recorded entries.
func (r *Recorder) Count(ctx context.Context) (int64, error) {
	n, err := r.store.Count(ctx)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return n, nil
}

// Emit mirrors an entry as a JSON audit line. Called directly by services for
// entries that were written inside a store transaction.
func (r *Recorder) Emit(entry Entry) {
	line := map[string]any{
		"ts":          entry.OccurredAt.Format(time.RFC3339Nano),
		"type":        "audit",
		"action":      entry.Action,
		"entity_type": entry.EntityType,
		"entity_id":   entry.EntityID,
		"actor_email": entry.ActorEmail,
	}
	if entry.ActorID != "" {
		line["actor_id"] = entry.ActorID
	}
	if entry.ClientIP != "" {
		line["client_ip"] = entry.ClientIP
	}
	if entry.Details != "" {
		line["details"] = entry.Details
	}
	data, err := json.Marshal(line)
	if err != nil {
		return
	}
	obs.Logger().Println(string(data))
}
