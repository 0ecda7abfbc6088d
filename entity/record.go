// Package entity is a concrete, persisted entity type carrying the counters
// the capability behaviors maintain.
package entity

import (
	"sort"
	"time"

	"github.com/teranos/uniassoc/capability"
)

// Counters maps namespace -> type -> count.
type Counters map[string]map[string]int

// Record is a generic entity: a post, an option, a user. Kind is free-form.
//
// Counters and Votes are persisted. The user* fields are per-request
// annotations filled by the batch helpers and never stored.
type Record struct {
	ID        string    `json:"id" yaml:"id"`
	Kind      string    `json:"kind" yaml:"kind"`
	Counters  Counters  `json:"action_counters" yaml:"action_counters"`
	Votes     int       `json:"vote_count" yaml:"vote_count"`
	CreatedAt time.Time `json:"created_at" yaml:"created_at"`
	UpdatedAt time.Time `json:"updated_at" yaml:"updated_at"`

	userActionMap map[string]int
	userReaction  string
	userVote      string
}

var (
	_ capability.HasVoteCount      = (*Record)(nil)
	_ capability.ReactionAnnotated = (*Record)(nil)
	_ capability.VoteAnnotated     = (*Record)(nil)
)

// New returns an empty record stamped at now (UTC).
func New(id, kind string, now time.Time) *Record {
	now = now.UTC()
	return &Record{
		ID:        id,
		Kind:      kind,
		Counters:  Counters{},
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func (r *Record) EntityID() string { return r.ID }

// ActionCounters returns the counters of namespace ns, allocating them on
// first use so callers can always write.
func (r *Record) ActionCounters(ns string) map[string]int {
	if r.Counters == nil {
		r.Counters = Counters{}
	}
	m := r.Counters[ns]
	if m == nil {
		m = map[string]int{}
		r.Counters[ns] = m
	}
	return m
}

// Namespaces lists the namespaces holding counters, sorted.
func (r *Record) Namespaces() []string {
	out := make([]string, 0, len(r.Counters))
	for ns := range r.Counters {
		out = append(out, ns)
	}
	sort.Strings(out)
	return out
}

func (r *Record) VoteCount() int         { return r.Votes }
func (r *Record) SetVoteCount(count int) { r.Votes = count }

func (r *Record) SetUserActionMap(m map[string]int) { r.userActionMap = m }
func (r *Record) UserActionMap() map[string]int     { return r.userActionMap }
func (r *Record) SetUserReaction(name string)       { r.userReaction = name }
func (r *Record) UserReaction() string              { return r.userReaction }
func (r *Record) SetUserVote(direction string)      { r.userVote = direction }
func (r *Record) UserVote() string                  { return r.userVote }
