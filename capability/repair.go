package capability

import (
	"context"
	"sort"

	"github.com/teranos/uniassoc/errors"
	"github.com/teranos/uniassoc/logger"
	"github.com/teranos/uniassoc/sym"
)

// Drift is one cached value that disagreed with the store.
type Drift struct {
	EntityID  string `json:"entity_id" yaml:"entity_id"`
	Namespace string `json:"namespace" yaml:"namespace"`
	Type      string `json:"type" yaml:"type"`
	Cached    int    `json:"cached" yaml:"cached"`
	Actual    int    `json:"actual" yaml:"actual"`
}

// RecomputeCounters rewrites e's counters in this namespace from the live
// edges. Keys with no edges are reset to zero, not dropped, so seeded
// defaults survive. Other namespaces are left alone. Returns the corrected
// entries sorted by type.
func (a *Actionable) RecomputeCounters(ctx context.Context, e HasActionCounters) ([]Drift, error) {
	actual, err := a.engine.ReverseCountsByType(ctx, e.EntityID(), a.ns)
	if err != nil {
		return nil, errors.Wrapf(err, "recompute %s counters for %s", a.ns, e.EntityID())
	}

	counters := e.ActionCounters(a.ns)
	var drift []Drift
	check := func(typ string, want int) {
		have, ok := counters[typ]
		if ok && have == want {
			return
		}
		if ok || want != 0 {
			drift = append(drift, Drift{
				EntityID:  e.EntityID(),
				Namespace: a.ns,
				Type:      typ,
				Cached:    have,
				Actual:    want,
			})
		}
		counters[typ] = want
	}
	for typ, n := range actual {
		check(typ, n)
	}
	for typ := range counters {
		if _, ok := actual[typ]; !ok {
			check(typ, 0)
		}
	}

	if len(drift) == 0 {
		return nil, nil
	}

	sort.Slice(drift, func(i, j int) bool { return drift[i].Type < drift[j].Type })
	for _, d := range drift {
		a.logger.Warnw("Counter drift repaired",
			logger.FieldEntityID, d.EntityID,
			logger.FieldType, d.Type,
			logger.FieldCached, d.Cached,
			logger.FieldActual, d.Actual,
			logger.FieldSymbol, sym.Repair,
		)
	}
	return drift, a.persist(ctx, e)
}
