package capability

import (
	"context"

	"github.com/teranos/uniassoc/assoc"
	"github.com/teranos/uniassoc/errors"
	"github.com/teranos/uniassoc/logger"
)

// Vote directions.
const (
	VoteUp   = "voteup"
	VoteDown = "votedown"
)

// Voteable is Actionable in namespace "vote" where a user holds at most one
// direction per entity, and the entity caches up minus down.
type Voteable struct {
	*Actionable
	writer VoteCountWriter
}

// NewVoteable creates a Voteable. writer persists the vote score; nil keeps
// the score in memory only.
func NewVoteable(engine *assoc.Engine, writer VoteCountWriter, opts ...Option) *Voteable {
	opts = append([]Option{WithNamespace(assoc.NamespaceVote)}, opts...)
	return &Voteable{
		Actionable: NewActionable(engine, opts...),
		writer:     writer,
	}
}

// Vote clears any prior vote by user, records an upvote and refreshes the score.
func (v *Voteable) Vote(ctx context.Context, e HasVoteCount, user string) error {
	return v.switchTo(ctx, e, user, VoteUp)
}

// Downvote clears any prior vote by user, records a downvote and refreshes the score.
func (v *Voteable) Downvote(ctx context.Context, e HasVoteCount, user string) error {
	return v.switchTo(ctx, e, user, VoteDown)
}

// Unvote removes only an upvote.
func (v *Voteable) Unvote(ctx context.Context, e HasVoteCount, user string) (bool, error) {
	return v.undo(ctx, e, user, VoteUp)
}

// UnDownvote removes only a downvote.
func (v *Voteable) UnDownvote(ctx context.Context, e HasVoteCount, user string) (bool, error) {
	return v.undo(ctx, e, user, VoteDown)
}

func (v *Voteable) switchTo(ctx context.Context, e HasVoteCount, user, direction string) error {
	if _, err := v.UndoAllActions(ctx, e, user); err != nil {
		// Keep the score in line with whatever was removed.
		return errors.CombineErrors(err, v.SetVoteCount(ctx, e))
	}
	if _, err := v.RegisterAction(ctx, e, user, direction); err != nil {
		return errors.CombineErrors(err, v.SetVoteCount(ctx, e))
	}
	return v.SetVoteCount(ctx, e)
}

func (v *Voteable) undo(ctx context.Context, e HasVoteCount, user, direction string) (bool, error) {
	removed, err := v.UndoAction(ctx, e, user, direction)
	if err != nil {
		return removed, err
	}
	return removed, v.SetVoteCount(ctx, e)
}

// SetVoteCount derives the score from the counters and persists that single field.
func (v *Voteable) SetVoteCount(ctx context.Context, e HasVoteCount) error {
	count := v.ActionCount(e, VoteUp) - v.ActionCount(e, VoteDown)
	e.SetVoteCount(count)

	if v.writer == nil {
		return nil
	}
	if err := v.writer.UpdateVoteCount(ctx, e.EntityID(), count); err != nil {
		return errors.Wrapf(err, "persist vote count for %s", e.EntityID())
	}
	v.logger.Debugw("Vote count updated",
		logger.FieldEntityID, e.EntityID(),
		logger.FieldCount, count,
	)
	return nil
}

// SetUserVote annotates each entity with the user's vote direction, or "" when
// the user has not voted on it.
func (v *Voteable) SetUserVote(ctx context.Context, user string, entities []VoteAnnotated) error {
	annotated := make([]ActionAnnotated, 0, len(entities))
	for _, e := range entities {
		annotated = append(annotated, e)
	}
	if err := v.SetActionsForUser(ctx, user, annotated); err != nil {
		return err
	}
	for _, e := range entities {
		e.SetUserVote(firstKey(e.UserActionMap()))
	}
	return nil
}

// RecomputeVoteCount repairs the vote counters from storage, then refreshes
// and persists the score.
func (v *Voteable) RecomputeVoteCount(ctx context.Context, e HasVoteCount) ([]Drift, error) {
	drift, err := v.RecomputeCounters(ctx, e)
	if err != nil {
		return nil, err
	}
	before := e.VoteCount()
	if err := v.SetVoteCount(ctx, e); err != nil {
		return drift, err
	}
	if after := e.VoteCount(); after != before {
		drift = append(drift, Drift{
			EntityID:  e.EntityID(),
			Namespace: v.Namespace(),
			Type:      "vote_count",
			Cached:    before,
			Actual:    after,
		})
	}
	return drift, nil
}
