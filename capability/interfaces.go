package capability

import "context"

// Identifiable is anything with a stable id usable as an association endpoint.
type Identifiable interface {
	EntityID() string
}

// HasActionCounters exposes the mutable, persisted counters, one map per
// namespace. ActionCounters must return the same non-nil map for a given
// namespace on every call, and never a map shared with another namespace.
type HasActionCounters interface {
	Identifiable
	ActionCounters(ns string) map[string]int
}

// HasVoteCount adds the cached vote score.
type HasVoteCount interface {
	HasActionCounters
	VoteCount() int
	SetVoteCount(int)
}

// CounterWriter persists the counters of one namespace of an entity, leaving
// the other namespaces as stored.
type CounterWriter interface {
	SaveCounters(ctx context.Context, id, ns string, counters map[string]int) error
}

// VoteCountWriter persists the vote score without rewriting the entity.
type VoteCountWriter interface {
	UpdateVoteCount(ctx context.Context, id string, count int) error
}

// ActionAnnotated receives the per-user action map from SetActionsForUser.
// UserActionMap returns nil until the entity has been annotated.
type ActionAnnotated interface {
	Identifiable
	SetUserActionMap(map[string]int)
	UserActionMap() map[string]int
}

// ReactionAnnotated receives the user's chosen reaction.
type ReactionAnnotated interface {
	ActionAnnotated
	SetUserReaction(string)
}

// VoteAnnotated receives the user's vote direction, or "".
type VoteAnnotated interface {
	ActionAnnotated
	SetUserVote(string)
}
