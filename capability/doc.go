// Package capability layers relationship behaviors onto arbitrary entity types.
//
// Entities opt in by implementing small interfaces (HasActionCounters,
// HasVoteCount, ...); the behaviors are values that hold an assoc.Engine and a
// namespace and operate on any entity passed to them:
//
//	Actionable  named actions with per-entity counters ("action")
//	Reactable   ranked reactions with defaults ("reaction")
//	Voteable    mutually exclusive up/down votes with a cached score ("vote")
//	Followable  follow edges, no counters ("follow")
//
// Each namespace keeps its own counters on the entity, so a "like" reaction
// and a "like" action never share a count.
//
// Counters are maintained incrementally: a counter only moves when the engine
// reports that the edge justifying it was written or deleted. A crash between
// the two leaves drift that RecomputeCounters repairs from the store.
package capability
