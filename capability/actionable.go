package capability

import (
	"context"
	"sort"

	"go.uber.org/zap"

	"github.com/teranos/uniassoc/assoc"
	"github.com/teranos/uniassoc/errors"
	"github.com/teranos/uniassoc/logger"
	"github.com/teranos/uniassoc/sym"
)

// Option configures an Actionable and the behaviors built on it.
type Option func(*Actionable)

// WithNamespace replaces the association namespace.
func WithNamespace(ns string) Option {
	return func(a *Actionable) {
		if ns != "" {
			a.ns = ns
		}
	}
}

// WithCounterWriter persists counters after every change. Without one,
// counters are only changed in memory and the caller saves the entity.
func WithCounterWriter(w CounterWriter) Option {
	return func(a *Actionable) {
		a.counters = w
	}
}

// WithLogger sets the logger.
func WithLogger(l *zap.SugaredLogger) Option {
	return func(a *Actionable) {
		if l != nil {
			a.logger = l
		}
	}
}

// Actionable records named actions taken by users on entities and keeps
// e.ActionCounters(ns)[action] equal to the number of such edges.
type Actionable struct {
	engine   *assoc.Engine
	ns       string
	counters CounterWriter
	logger   *zap.SugaredLogger
}

// NewActionable returns an Actionable in namespace "action" unless overridden.
func NewActionable(engine *assoc.Engine, opts ...Option) *Actionable {
	a := &Actionable{
		engine: engine,
		ns:     assoc.NamespaceAction,
		logger: logger.ComponentLogger("capability"),
	}
	for _, opt := range opts {
		opt(a)
	}
	a.logger = a.logger.With(logger.FieldNamespace, a.ns, logger.FieldSymbol, sym.ForNamespace(a.ns))
	return a
}

// Namespace returns the namespace this behavior writes to.
func (a *Actionable) Namespace() string {
	return a.ns
}

// RegisterAction creates the unique edge user -> e and increments the counter
// only when the edge is new. Repeating it is a no-op returning false.
//
// If the edge is written but persisting the counters fails, it returns true
// with the error; RecomputeCounters restores consistency.
func (a *Actionable) RegisterAction(ctx context.Context, e HasActionCounters, user, action string) (bool, error) {
	created, err := a.engine.CreateAssociation(ctx, user, e.EntityID(), a.ns, action, true)
	if err != nil {
		return false, errors.Wrapf(err, "register action %q", action)
	}
	if !created {
		return false, nil
	}

	increment(e.ActionCounters(a.ns), action)
	a.logger.Debugw("Action registered",
		logger.FieldUserID, user,
		logger.FieldEntityID, e.EntityID(),
		logger.FieldType, action,
	)
	return true, a.persist(ctx, e)
}

// UndoAction removes the edge and decrements the counter (floor 0) only when
// something was removed.
func (a *Actionable) UndoAction(ctx context.Context, e HasActionCounters, user, action string) (bool, error) {
	removed, err := a.engine.RemoveAssociation(ctx, user, e.EntityID(), a.ns, action)
	if err != nil {
		return false, errors.Wrapf(err, "undo action %q", action)
	}
	if !removed {
		return false, nil
	}

	decrement(e.ActionCounters(a.ns), action)
	a.logger.Debugw("Action undone",
		logger.FieldUserID, user,
		logger.FieldEntityID, e.EntityID(),
		logger.FieldType, action,
	)
	return true, a.persist(ctx, e)
}

// UndoAllActions removes every edge from user to e in this namespace and
// returns the undone action names. When the store fails part way, counters
// are still decremented for what was removed and that list is returned with
// the error.
func (a *Actionable) UndoAllActions(ctx context.Context, e HasActionCounters, user string) ([]string, error) {
	removed, removeErr := a.engine.RemoveAllAssociations(ctx, user, e.EntityID(), a.ns)

	counters := e.ActionCounters(a.ns)
	for _, action := range removed {
		decrement(counters, action)
	}

	var persistErr error
	if len(removed) > 0 {
		persistErr = a.persist(ctx, e)
	}
	if removeErr != nil {
		return removed, errors.CombineErrors(errors.Wrap(removeErr, "undo all actions"), persistErr)
	}
	return removed, persistErr
}

// UserHasTakenAction reports whether user -[action]-> e exists.
func (a *Actionable) UserHasTakenAction(ctx context.Context, e Identifiable, user, action string) (bool, error) {
	return a.engine.HasAssociation(ctx, user, e.EntityID(), a.ns, action)
}

// ActionTakers lists users who took action on e, oldest first. limit <= 0 is unbounded.
func (a *Actionable) ActionTakers(ctx context.Context, e Identifiable, action string, limit int) ([]string, error) {
	return a.engine.ReverseAssociations(ctx, e.EntityID(), a.ns, action, limit)
}

// ActionCount reads the cached counter; it never touches storage.
func (a *Actionable) ActionCount(e HasActionCounters, action string) int {
	n := e.ActionCounters(a.ns)[action]
	if n < 0 {
		return 0
	}
	return n
}

// AllActionTakers lists every user with any action on e in this namespace.
func (a *Actionable) AllActionTakers(ctx context.Context, e Identifiable) ([]string, error) {
	return a.engine.AssociatedSources(ctx, e.EntityID(), a.ns)
}

// SetActionsForUser annotates every entity with the user's action map using a
// single batched lookup. Entities the user never acted on get an empty map.
func (a *Actionable) SetActionsForUser(ctx context.Context, user string, entities []ActionAnnotated) error {
	if len(entities) == 0 {
		return nil
	}
	ids := make([]string, 0, len(entities))
	for _, e := range entities {
		ids = append(ids, e.EntityID())
	}

	byDest, err := a.engine.UserAssociationMap(ctx, user, ids, a.ns)
	if err != nil {
		return errors.Wrap(err, "set actions for user")
	}
	for _, e := range entities {
		m := byDest[e.EntityID()]
		if m == nil {
			m = map[string]int{}
		}
		e.SetUserActionMap(m)
	}
	return nil
}

func (a *Actionable) persist(ctx context.Context, e HasActionCounters) error {
	if a.counters == nil {
		return nil
	}
	if err := a.counters.SaveCounters(ctx, e.EntityID(), a.ns, e.ActionCounters(a.ns)); err != nil {
		return errors.Wrapf(err, "persist counters for %s", e.EntityID())
	}
	return nil
}

// increment treats a negative counter as zero.
func increment(counters map[string]int, key string) {
	n := counters[key]
	if n < 0 {
		n = 0
	}
	counters[key] = n + 1
}

// decrement floors at zero and keeps the key.
func decrement(counters map[string]int, key string) {
	n := counters[key] - 1
	if n < 0 {
		n = 0
	}
	counters[key] = n
}

// firstKey returns the smallest key, or "" for an empty map.
func firstKey(m map[string]int) string {
	if len(m) == 0 {
		return ""
	}
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys[0]
}
