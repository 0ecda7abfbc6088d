package assoc

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/teranos/uniassoc/errors"
	"github.com/teranos/uniassoc/logger"
)

// Engine enforces uniqueness and removal semantics on top of a Store.
// It never touches entity counters; that is the job of package capability.
//
// Engine holds no locks and keeps no state besides its collaborators, so it is
// safe for concurrent use as long as the Store is.
type Engine struct {
	store  Store
	logger *zap.SugaredLogger
	now    func() time.Time
}

// Option configures an Engine.
type Option func(*Engine)

// WithClock overrides the timestamp source for new records.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		if now != nil {
			e.now = now
		}
	}
}

// NewEngine creates an engine over store. logger may be nil.
func NewEngine(store Store, log *zap.SugaredLogger, opts ...Option) *Engine {
	e := &Engine{
		store:  store,
		logger: logger.OrNop(log),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// CreateAssociation records src -[ns/typ]-> dst.
//
// With unique=true the call is idempotent: if a matching edge exists it returns
// false and writes nothing. The backend also rejects a duplicate that slips in
// between the lookup and the insert, which is likewise reported as false.
// With unique=false it always inserts and returns true.
func (e *Engine) CreateAssociation(ctx context.Context, src, dst, ns, typ string, unique bool) (bool, error) {
	if err := validateTuple(src, dst, ns, typ); err != nil {
		return false, err
	}
	log := logger.FromContext(ctx, e.logger).With(
		logger.FieldSource, src,
		logger.FieldDestination, dst,
		logger.FieldNamespace, ns,
		logger.FieldType, typ,
		logger.FieldUnique, unique,
	)

	rec := New(src, dst, ns, typ, e.now())

	if !unique {
		if err := e.store.Insert(ctx, rec); err != nil {
			return false, errors.Wrap(err, "create association")
		}
		log.Debugw("Association created", logger.FieldAssocID, rec.ID)
		return true, nil
	}

	existing, err := e.store.FindOne(ctx, src, dst, ns, typ)
	if err != nil {
		return false, errors.Wrap(err, "create association: lookup")
	}
	if existing != nil {
		log.Debugw("Association already exists", logger.FieldAssocID, existing.ID)
		return false, nil
	}

	inserted, err := e.store.InsertUnique(ctx, rec)
	if err != nil {
		return false, errors.Wrap(err, "create association")
	}
	if !inserted {
		log.Debugw("Association rejected by unique guard")
		return false, nil
	}

	log.Debugw("Association created", logger.FieldAssocID, rec.ID)
	return true, nil
}

// RemoveAssociation deletes one record matching the tuple. If several exist
// (non-unique mode) an arbitrary one is removed. Returns false when none matched.
func (e *Engine) RemoveAssociation(ctx context.Context, src, dst, ns, typ string) (bool, error) {
	if err := validateTuple(src, dst, ns, typ); err != nil {
		return false, err
	}

	rec, err := e.store.FindOne(ctx, src, dst, ns, typ)
	if err != nil {
		return false, errors.Wrap(err, "remove association: lookup")
	}
	if rec == nil {
		return false, nil
	}

	deleted, err := e.store.Delete(ctx, rec)
	if err != nil {
		return false, errors.Wrap(err, "remove association")
	}
	if deleted {
		logger.FromContext(ctx, e.logger).Debugw("Association removed",
			logger.FieldAssocID, rec.ID,
			logger.FieldNamespace, ns,
			logger.FieldType, typ,
		)
	}
	return deleted, nil
}

// RemoveAllAssociations deletes every record for the pair within ns and returns
// the type of each record it removed, one entry per record.
//
// The deletion is not atomic as a whole. On failure it returns the types removed
// before the failure together with the error, so callers can still reconcile
// counters for what actually went away.
func (e *Engine) RemoveAllAssociations(ctx context.Context, src, dst, ns string) ([]string, error) {
	if err := validatePair(src, dst, ns); err != nil {
		return nil, err
	}

	records, err := e.store.FindAll(ctx, src, dst, ns)
	if err != nil {
		return nil, errors.Wrap(err, "remove all associations: lookup")
	}

	removed := make([]string, 0, len(records))
	for _, rec := range records {
		deleted, err := e.store.Delete(ctx, rec)
		if err != nil {
			logger.FromContext(ctx, e.logger).Warnw("Remove-all interrupted",
				logger.FieldSource, src,
				logger.FieldDestination, dst,
				logger.FieldNamespace, ns,
				logger.FieldRemoved, removed,
				logger.FieldError, err,
			)
			return removed, errors.Wrapf(err, "remove all associations: %d of %d removed", len(removed), len(records))
		}
		// A concurrent remover got there first; its caller owns that decrement.
		if deleted {
			removed = append(removed, rec.Type)
		}
	}

	if len(removed) > 0 {
		logger.FromContext(ctx, e.logger).Debugw("Associations removed",
			logger.FieldSource, src,
			logger.FieldDestination, dst,
			logger.FieldNamespace, ns,
			logger.FieldRemoved, removed,
		)
	}
	return removed, nil
}

// HasAssociation reports whether src -[ns/typ]-> dst exists.
func (e *Engine) HasAssociation(ctx context.Context, src, dst, ns, typ string) (bool, error) {
	if err := validateTuple(src, dst, ns, typ); err != nil {
		return false, err
	}
	rec, err := e.store.FindOne(ctx, src, dst, ns, typ)
	if err != nil {
		return false, errors.Wrap(err, "has association")
	}
	return rec != nil, nil
}

// Associations lists every record for the pair within ns, any type.
func (e *Engine) Associations(ctx context.Context, src, dst, ns string) ([]*Association, error) {
	if err := validatePair(src, dst, ns); err != nil {
		return nil, err
	}
	records, err := e.store.FindAll(ctx, src, dst, ns)
	if err != nil {
		return nil, errors.Wrap(err, "list associations")
	}
	return records, nil
}

// ReverseCount returns how many records point at dst with (ns, typ).
func (e *Engine) ReverseCount(ctx context.Context, dst, ns, typ string) (int, error) {
	if err := validateReverse(dst, ns, typ); err != nil {
		return 0, err
	}
	n, err := e.store.Count(ctx, dst, ns, typ)
	if err != nil {
		return 0, errors.Wrap(err, "reverse count")
	}
	return n, nil
}

// ReverseCountsByType returns the reverse cardinality for (dst, ns) per type.
// Types with no records are absent from the map.
func (e *Engine) ReverseCountsByType(ctx context.Context, dst, ns string) (map[string]int, error) {
	if dst == "" || ns == "" {
		return nil, errors.NewInvalidRequestError("destination and namespace are required")
	}
	counts, err := e.store.CountByType(ctx, dst, ns)
	if err != nil {
		return nil, errors.Wrap(err, "reverse counts by type")
	}
	return counts, nil
}

// ReverseAssociations returns the source ids of records pointing at dst with
// (ns, typ), oldest first. limit <= 0 means unbounded.
func (e *Engine) ReverseAssociations(ctx context.Context, dst, ns, typ string, limit int) ([]string, error) {
	if err := validateReverse(dst, ns, typ); err != nil {
		return nil, err
	}
	records, err := e.store.FindAllByDestination(ctx, dst, ns, typ, limit)
	if err != nil {
		return nil, errors.Wrap(err, "reverse associations")
	}
	return Sources(records), nil
}

// AssociatedSources returns every distinct source with any record pointing at
// dst within ns, in order of first association.
func (e *Engine) AssociatedSources(ctx context.Context, dst, ns string) ([]string, error) {
	if dst == "" || ns == "" {
		return nil, errors.NewInvalidRequestError("destination and namespace are required")
	}
	records, err := e.store.FindAllByDestinationNamespace(ctx, dst, ns)
	if err != nil {
		return nil, errors.Wrap(err, "associated sources")
	}

	seen := make(map[string]struct{}, len(records))
	ids := make([]string, 0, len(records))
	for _, r := range records {
		if _, ok := seen[r.SourceID]; ok {
			continue
		}
		seen[r.SourceID] = struct{}{}
		ids = append(ids, r.SourceID)
	}
	return ids, nil
}

// BatchUserAssociations returns every record from src to any of dsts within ns,
// in one store round trip.
func (e *Engine) BatchUserAssociations(ctx context.Context, src string, dsts []string, ns string) ([]*Association, error) {
	if src == "" || ns == "" {
		return nil, errors.NewInvalidRequestError("source and namespace are required")
	}
	dsts = dedupe(dsts)
	if len(dsts) == 0 {
		return nil, nil
	}

	records, err := e.store.FindAllBySourceAndDestinations(ctx, src, dsts, ns)
	if err != nil {
		return nil, errors.Wrap(err, "batch user associations")
	}
	e.logger.Debugw("Batch lookup",
		logger.FieldSource, src,
		logger.FieldNamespace, ns,
		logger.FieldBatchLen, len(dsts),
		logger.FieldCount, len(records),
	)
	return records, nil
}

// UserAssociationMap builds destination -> {type: 1} for src over dsts.
// Every requested destination gets an entry, empty when src has no record on it.
func (e *Engine) UserAssociationMap(ctx context.Context, src string, dsts []string, ns string) (map[string]map[string]int, error) {
	records, err := e.BatchUserAssociations(ctx, src, dsts, ns)
	if err != nil {
		return nil, err
	}

	out := make(map[string]map[string]int, len(dsts))
	for _, d := range dsts {
		out[d] = map[string]int{}
	}
	for _, r := range records {
		m, ok := out[r.DestinationID]
		if !ok {
			m = map[string]int{}
			out[r.DestinationID] = m
		}
		m[r.Type] = 1
	}
	return out, nil
}

func dedupe(ids []string) []string {
	if len(ids) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
