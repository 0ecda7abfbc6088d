package assoc

import "context"

// Store is the persistence contract the Engine runs against.
//
// Every method is a single synchronous round trip and is atomic at the single
// record level. Backend failures are marked errors.ErrStorageUnavailable.
// Reverse queries return records in creation order.
type Store interface {
	// Insert appends a record. No uniqueness is enforced.
	Insert(ctx context.Context, a *Association) error

	// InsertUnique appends a record unless a unique-mode record with the same
	// (source, destination, namespace, type) already exists. The check is done
	// by the backend, not by the caller.
	InsertUnique(ctx context.Context, a *Association) (inserted bool, err error)

	// FindOne returns any record matching the full tuple, or nil when none exists.
	FindOne(ctx context.Context, src, dst, ns, typ string) (*Association, error)

	// FindAll returns every record for the pair within ns, any type.
	FindAll(ctx context.Context, src, dst, ns string) ([]*Association, error)

	// FindAllByDestination is the reverse fan-out. limit <= 0 means unbounded.
	FindAllByDestination(ctx context.Context, dst, ns, typ string, limit int) ([]*Association, error)

	// FindAllByDestinationNamespace returns every record pointing at dst within ns, any type.
	FindAllByDestinationNamespace(ctx context.Context, dst, ns string) ([]*Association, error)

	// FindAllBySourceAndDestinations returns records from src to any of dsts within
	// ns in a single query.
	FindAllBySourceAndDestinations(ctx context.Context, src string, dsts []string, ns string) ([]*Association, error)

	// Count is the reverse cardinality for (dst, ns, typ).
	Count(ctx context.Context, dst, ns, typ string) (int, error)

	// CountByType groups the reverse cardinality for (dst, ns) by type.
	CountByType(ctx context.Context, dst, ns string) (map[string]int, error)

	// Delete removes the record with a.ID. Returns false if it was already gone.
	Delete(ctx context.Context, a *Association) (deleted bool, err error)
}
