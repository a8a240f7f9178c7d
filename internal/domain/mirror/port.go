package mirror

import (
	"context"
	"errors"
)

// ErrUnavailable is wrapped by stores when the backend cannot be reached.
// The coordinator turns it into a skip instead of a failure.
var ErrUnavailable = errors.New("mirror store unavailable")

// Store port for the secondary document store
type Store interface {
	// UpsertProfile merges p into the document at p.OwnerID.
	UpsertProfile(ctx context.Context, p Profile) error
	// PutReport creates or overwrites the document at r.Key().
	PutReport(ctx context.Context, r Report) error
}
