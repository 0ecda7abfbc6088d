package capability

import (
	"context"

	"github.com/teranos/uniassoc/assoc"
)

// FollowType is the association type of a follow edge.
const FollowType = "follow"

// Followable manages follow edges directly through the engine.
// It keeps no counters; use FollowerCount.
type Followable struct {
	engine *assoc.Engine
}

// NewFollowable creates a Followable.
func NewFollowable(engine *assoc.Engine) *Followable {
	return &Followable{engine: engine}
}

// AddFollower makes user follow e. Returns false if already following.
func (f *Followable) AddFollower(ctx context.Context, e Identifiable, user string) (bool, error) {
	return f.engine.CreateAssociation(ctx, user, e.EntityID(), assoc.NamespaceFollow, FollowType, true)
}

// RemoveFollower returns false if user was not following e.
func (f *Followable) RemoveFollower(ctx context.Context, e Identifiable, user string) (bool, error) {
	return f.engine.RemoveAssociation(ctx, user, e.EntityID(), assoc.NamespaceFollow, FollowType)
}

// Followers lists followers of e, oldest first. limit <= 0 is unbounded.
func (f *Followable) Followers(ctx context.Context, e Identifiable, limit int) ([]string, error) {
	return f.engine.ReverseAssociations(ctx, e.EntityID(), assoc.NamespaceFollow, FollowType, limit)
}

func (f *Followable) IsFollowing(ctx context.Context, e Identifiable, user string) (bool, error) {
	return f.engine.HasAssociation(ctx, user, e.EntityID(), assoc.NamespaceFollow, FollowType)
}

func (f *Followable) FollowerCount(ctx context.Context, e Identifiable) (int, error) {
	return f.engine.ReverseCount(ctx, e.EntityID(), assoc.NamespaceFollow, FollowType)
}

// ID adapts a bare identifier to Identifiable.
type ID string

func (id ID) EntityID() string { return string(id) }
