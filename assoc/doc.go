// Package assoc provides a directed, typed edge store ("associations") between
// opaque entity identifiers, and the engine every higher-level capability uses
// to touch those edges.
//
// # Overview
//
// An association is the four-tuple
//
//	[Source] [Namespace] [Type] [Destination] at [CreatedAt]
//
// For example:
//   - user-1 action/like post-9
//   - user-1 vote/voteup option-3
//   - user-2 follow/follow user-1
//
// Namespaces partition independent relationship spaces on the same pair so that,
// for instance, a "like" action and a "like" reaction never collide.
//
// # Access paths
//
// Backends must serve two indexed paths:
//   - forward (source, destination, namespace, type): point lookups and uniqueness checks
//   - reverse (destination, namespace, type): "who has this relationship with X"
//
// # Uniqueness
//
// Uniqueness is chosen per call. CreateAssociation with unique=true is idempotent:
// a second call for the same tuple returns false. Backends additionally reject a
// duplicate unique-mode insert themselves (Store.InsertUnique), so two racing
// callers cannot both create the edge. With unique=false every call inserts.
//
// # Records
//
// Records are immutable. They are inserted and deleted, never updated.
// Counters derived from them live on the associated entities and are owned by
// package capability, not by this package.
package assoc
