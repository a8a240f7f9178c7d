package report

import "context"

// Repository port for the primary (authoritative) store.
// Every read and write is scoped to an owner.
type Repository interface {
	// Create assigns the ID and CreatedAt of the new record.
	Create(ctx context.Context, ownerID, title, summary string, result Payload) (*Report, error)
	ListByOwner(ctx context.Context, ownerID string, limit int) ([]*Report, error)
	Get(ctx context.Context, ownerID string, id ID) (*Report, error)
	UpdateTitle(ctx context.Context, ownerID string, id ID, title string) error
	Delete(ctx context.Context, ownerID string, id ID) error
}
