package report

import (
	"context"

	"finrep.org/internal/audit"
)

// Store describes the persistence the workflow needs. Mutating methods take
// the audit entry for the action and must write it in the same transaction
// as the report change: a status change is never observable without its
// audit record, and vice versa.
type Store interface {
	Find(ctx context.Context, id string) (*Report, error)
	ListByCompanies(ctx context.Context, companyIDs []string) ([]Report, error)

	// CreateDraft inserts a new draft plus its audit entry. A second
	// non-rejected report for the same (company, year, month, type) fails
	// with ErrDuplicatePeriod.
	CreateDraft(ctx context.Context, rep *Report, entry *audit.Entry) error

	// Transition persists updated after re-checking, under a row lock, that
	// the stored status still equals from. A concurrent transition that got
	// there first surfaces as *InvalidTransitionError; the row is unchanged.
	Transition(ctx context.Context, updated *Report, from Status, entry *audit.Entry) error

	AddComment(ctx context.Context, c *Comment, entry *audit.Entry) error
	ListComments(ctx context.Context, reportID string) ([]Comment, error)
}
