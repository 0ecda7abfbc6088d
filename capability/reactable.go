package capability

import (
	"context"
	"sort"

	"github.com/teranos/uniassoc/assoc"
)

// Reaction is one entry of a rendered reaction list.
type Reaction struct {
	Name  string `json:"name" yaml:"name"`
	Count int    `json:"count" yaml:"count"`
}

// Reactable is Actionable in namespace "reaction" with a fixed set of default
// reactions that always render, even at zero.
type Reactable struct {
	*Actionable
	defaults []string
}

// NewReactable creates a Reactable. defaults are copied.
func NewReactable(engine *assoc.Engine, defaults []string, opts ...Option) *Reactable {
	opts = append([]Option{WithNamespace(assoc.NamespaceReaction)}, opts...)
	return &Reactable{
		Actionable: NewActionable(engine, opts...),
		defaults:   append([]string(nil), defaults...),
	}
}

// DefaultReactions returns a copy of the default reaction names.
func (r *Reactable) DefaultReactions() []string {
	return append([]string(nil), r.defaults...)
}

// UserReactions renders e's reactions: every default plus every reaction with
// a nonzero count, sorted by count descending, then name descending.
// Missing defaults are seeded into e's counters as a side effect.
func (r *Reactable) UserReactions(e HasActionCounters) []Reaction {
	r.SeedReactions(e, r.defaults)

	isDefault := make(map[string]bool, len(r.defaults))
	for _, d := range r.defaults {
		isDefault[d] = true
	}

	counters := e.ActionCounters(r.ns)
	out := make([]Reaction, 0, len(counters))
	for name, n := range counters {
		if n < 0 {
			n = 0
		}
		if n == 0 && !isDefault[name] {
			continue
		}
		out = append(out, Reaction{Name: name, Count: n})
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Name > out[j].Name
	})
	return out
}

// SeedReactions adds a zero reaction counter for each name e does not have yet.
// Nothing is written to storage.
func (r *Reactable) SeedReactions(e HasActionCounters, names []string) {
	counters := e.ActionCounters(r.ns)
	for _, name := range names {
		if _, ok := counters[name]; !ok {
			counters[name] = 0
		}
	}
}

// SetUserReaction annotates each entity with the user's reaction. Entities
// already carrying a user action map are not queried again. When a user has
// several reactions on one entity the lexicographically smallest is chosen.
func (r *Reactable) SetUserReaction(ctx context.Context, user string, entities []ReactionAnnotated) error {
	if len(entities) == 0 {
		return nil
	}

	if entities[0].UserActionMap() == nil {
		annotated := make([]ActionAnnotated, 0, len(entities))
		for _, e := range entities {
			annotated = append(annotated, e)
		}
		if err := r.SetActionsForUser(ctx, user, annotated); err != nil {
			return err
		}
	}

	for _, e := range entities {
		if reaction := firstKey(e.UserActionMap()); reaction != "" {
			e.SetUserReaction(reaction)
		}
	}
	return nil
}
