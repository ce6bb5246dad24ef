package audit

import (
	"context"
	"time"

	"finrep.org/internal/authz"
	"finrep.org/internal/ids"
)

// ActionDenied marks entries recording a refused privileged attempt.
const ActionDenied = "DENIED"

// Entry is an immutable record of a privileged action, granted or denied.
// ActorID is cleared by the store when the user row is later deleted
// (set-null, not cascade); ActorEmail is a snapshot taken at write time and
// survives any later profile edit.
type Entry struct {
	ID         string    `json:"id"`
	OccurredAt time.Time `json:"occurred_at"`
	ActorID    string    `json:"actor_id,omitempty"`
	ActorEmail string    `json:"actor_email"`
	Action     string    `json:"action"`
	EntityType string    `json:"entity_type"`
	EntityID   string    `json:"entity_id"`
	Details    string    `json:"details,omitempty"`
	ClientIP   string    `json:"client_ip,omitempty"`
}

// NewEntry builds an entry for the given action with a fresh id and
// timestamp, pulling the client IP from the context when present.
func NewEntry(ctx context.Context, action, entityType, entityID string, actor authz.Actor, details string) Entry {
	return Entry{
		ID:         ids.New(),
		OccurredAt: time.Now().UTC(),
		ActorID:    actor.ID,
		ActorEmail: actor.Email,
		Action:     action,
		EntityType: entityType,
		EntityID:   entityID,
		Details:    details,
		ClientIP:   ClientIPFromContext(ctx),
	}
}
