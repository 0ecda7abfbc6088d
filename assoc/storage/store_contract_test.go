package storage

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/teranos/uniassoc/assoc"
	"github.com/teranos/uniassoc/assoc/storage/testutil"
)

type storeFactory func(t *testing.T) assoc.Store

func backends() map[string]storeFactory {
	return map[string]storeFactory{
		BackendSQLite: func(t *testing.T) assoc.Store {
			return NewSQLStore(testutil.SetupTestDB(t), zaptest.NewLogger(t).Sugar())
		},
		BackendBadger: func(t *testing.T) assoc.Store {
			// badger logs from its own goroutines; keep it off the test logger.
			s, err := OpenBadgerStore("", true, nil)
			require.NoError(t, err)
			t.Cleanup(func() { s.Close() })
			return s
		},
	}
}

var base = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

func rec(src, dst, ns, typ string, offset int) *assoc.Association {
	return assoc.New(src, dst, ns, typ, base.Add(time.Duration(offset)*time.Second))
}

func TestStoreContract(t *testing.T) {
	for name, factory := range backends() {
		factory := factory
		t.Run(name, func(t *testing.T) {
			t.Run("insert and find one", func(t *testing.T) {
				s := factory(t)
				ctx := context.Background()

				a := rec("u1", "p1", assoc.NamespaceAction, "like", 0)
				require.NoError(t, s.Insert(ctx, a))

				got, err := s.FindOne(ctx, "u1", "p1", assoc.NamespaceAction, "like")
				require.NoError(t, err)
				require.NotNil(t, got)
				assert.Equal(t, a.ID, got.ID)
				assert.Equal(t, "u1", got.SourceID)
				assert.Equal(t, "p1", got.DestinationID)
				assert.True(t, a.CreatedAt.Equal(got.CreatedAt))
				assert.Equal(t, time.UTC, got.CreatedAt.Location())
			})

			t.Run("find one returns nil when absent", func(t *testing.T) {
				s := factory(t)
				got, err := s.FindOne(context.Background(), "u1", "p1", assoc.NamespaceAction, "like")
				require.NoError(t, err)
				assert.Nil(t, got)
			})

			t.Run("namespaces do not collide", func(t *testing.T) {
				s := factory(t)
				ctx := context.Background()
				require.NoError(t, s.Insert(ctx, rec("u1", "p1", assoc.NamespaceAction, "like", 0)))

				got, err := s.FindOne(ctx, "u1", "p1", assoc.NamespaceReaction, "like")
				require.NoError(t, err)
				assert.Nil(t, got)

				n, err := s.Count(ctx, "p1", assoc.NamespaceReaction, "like")
				require.NoError(t, err)
				assert.Equal(t, 0, n)
			})

			t.Run("insert unique rejects duplicate tuple", func(t *testing.T) {
				s := factory(t)
				ctx := context.Background()

				ok, err := s.InsertUnique(ctx, rec("u1", "p1", assoc.NamespaceAction, "like", 0))
				require.NoError(t, err)
				assert.True(t, ok)

				ok, err = s.InsertUnique(ctx, rec("u1", "p1", assoc.NamespaceAction, "like", 1))
				require.NoError(t, err)
				assert.False(t, ok)

				n, err := s.Count(ctx, "p1", assoc.NamespaceAction, "like")
				require.NoError(t, err)
				assert.Equal(t, 1, n)
			})

			t.Run("unique guard separates ids containing separators", func(t *testing.T) {
				s := factory(t)
				ctx := context.Background()

				ok, err := s.InsertUnique(ctx, rec("a\x1fb", "c", assoc.NamespaceAction, "like", 0))
				require.NoError(t, err)
				require.True(t, ok)

				ok, err = s.InsertUnique(ctx, rec("a", "b\x1fc", assoc.NamespaceAction, "like", 1))
				require.NoError(t, err)
				assert.True(t, ok)

				got, err := s.FindOne(ctx, "a", "b\x1fc", assoc.NamespaceAction, "like")
				require.NoError(t, err)
				assert.NotNil(t, got)
			})

			t.Run("unique guard is released on delete", func(t *testing.T) {
				s := factory(t)
				ctx := context.Background()

				a := rec("u1", "p1", assoc.NamespaceVote, "voteup", 0)
				ok, err := s.InsertUnique(ctx, a)
				require.NoError(t, err)
				require.True(t, ok)

				deleted, err := s.Delete(ctx, a)
				require.NoError(t, err)
				require.True(t, deleted)

				ok, err = s.InsertUnique(ctx, rec("u1", "p1", assoc.NamespaceVote, "voteup", 1))
				require.NoError(t, err)
				assert.True(t, ok)
			})

			t.Run("plain inserts coexist with the unique guard", func(t *testing.T) {
				s := factory(t)
				ctx := context.Background()

				ok, err := s.InsertUnique(ctx, rec("u1", "poll", assoc.NamespaceVote, "opt", 0))
				require.NoError(t, err)
				require.True(t, ok)
				require.NoError(t, s.Insert(ctx, rec("u1", "poll", assoc.NamespaceVote, "opt", 1)))
				require.NoError(t, s.Insert(ctx, rec("u1", "poll", assoc.NamespaceVote, "opt", 2)))

				n, err := s.Count(ctx, "poll", assoc.NamespaceVote, "opt")
				require.NoError(t, err)
				assert.Equal(t, 3, n)
			})

			t.Run("concurrent unique inserts produce one record", func(t *testing.T) {
				s := factory(t)
				ctx := context.Background()

				const workers = 8
				var wg sync.WaitGroup
				results := make(chan bool, workers)
				for i := 0; i < workers; i++ {
					wg.Add(1)
					go func(i int) {
						defer wg.Done()
						ok, err := s.InsertUnique(ctx, rec("u1", "p1", assoc.NamespaceAction, "like", i))
						assert.NoError(t, err)
						results <- ok
					}(i)
				}
				wg.Wait()
				close(results)

				inserted := 0
				for ok := range results {
					if ok {
						inserted++
					}
				}
				assert.Equal(t, 1, inserted)

				n, err := s.Count(ctx, "p1", assoc.NamespaceAction, "like")
				require.NoError(t, err)
				assert.Equal(t, 1, n)
			})

			t.Run("find all returns every type for the pair", func(t *testing.T) {
				s := factory(t)
				ctx := context.Background()
				require.NoError(t, s.Insert(ctx, rec("u1", "p1", assoc.NamespaceAction, "share", 2)))
				require.NoError(t, s.Insert(ctx, rec("u1", "p1", assoc.NamespaceAction, "like", 1)))
				require.NoError(t, s.Insert(ctx, rec("u1", "p2", assoc.NamespaceAction, "like", 0)))
				require.NoError(t, s.Insert(ctx, rec("u2", "p1", assoc.NamespaceAction, "like", 0)))
				require.NoError(t, s.Insert(ctx, rec("u1", "p1", assoc.NamespaceVote, "voteup", 0)))

				all, err := s.FindAll(ctx, "u1", "p1", assoc.NamespaceAction)
				require.NoError(t, err)
				require.Len(t, all, 2)
				assert.Equal(t, "like", all[0].Type)
				assert.Equal(t, "share", all[1].Type)
			})

			t.Run("reverse fan-out in creation order with limit", func(t *testing.T) {
				s := factory(t)
				ctx := context.Background()
				for i, u := range []string{"u3", "u1", "u2"} {
					require.NoError(t, s.Insert(ctx, rec(u, "p1", assoc.NamespaceAction, "like", i)))
				}
				require.NoError(t, s.Insert(ctx, rec("u9", "p1", assoc.NamespaceAction, "share", 0)))

				all, err := s.FindAllByDestination(ctx, "p1", assoc.NamespaceAction, "like", 0)
				require.NoError(t, err)
				assert.Equal(t, []string{"u3", "u1", "u2"}, assoc.Sources(all))

				capped, err := s.FindAllByDestination(ctx, "p1", assoc.NamespaceAction, "like", 2)
				require.NoError(t, err)
				assert.Equal(t, []string{"u3", "u1"}, assoc.Sources(capped))
			})

			t.Run("same timestamp keeps insertion order", func(t *testing.T) {
				s := factory(t)
				ctx := context.Background()
				for _, u := range []string{"b", "a", "c"} {
					require.NoError(t, s.Insert(ctx, rec(u, "p1", assoc.NamespaceFollow, "follow", 0)))
				}

				all, err := s.FindAllByDestination(ctx, "p1", assoc.NamespaceFollow, "follow", 0)
				require.NoError(t, err)
				assert.Equal(t, []string{"b", "a", "c"}, assoc.Sources(all))
			})

			t.Run("find by destination namespace spans types", func(t *testing.T) {
				s := factory(t)
				ctx := context.Background()
				require.NoError(t, s.Insert(ctx, rec("u1", "p1", assoc.NamespaceAction, "like", 0)))
				require.NoError(t, s.Insert(ctx, rec("u2", "p1", assoc.NamespaceAction, "share", 1)))
				require.NoError(t, s.Insert(ctx, rec("u3", "p1", assoc.NamespaceAction, "like", 2)))
				require.NoError(t, s.Insert(ctx, rec("u4", "p1", assoc.NamespaceVote, "voteup", 3)))

				all, err := s.FindAllByDestinationNamespace(ctx, "p1", assoc.NamespaceAction)
				require.NoError(t, err)
				assert.Equal(t, []string{"u1", "u2", "u3"}, assoc.Sources(all))
			})

			t.Run("batch lookup across destinations", func(t *testing.T) {
				s := factory(t)
				ctx := context.Background()
				require.NoError(t, s.Insert(ctx, rec("u1", "A", assoc.NamespaceAction, "like", 0)))
				require.NoError(t, s.Insert(ctx, rec("u1", "C", assoc.NamespaceAction, "like", 1)))
				require.NoError(t, s.Insert(ctx, rec("u2", "B", assoc.NamespaceAction, "like", 2)))
				require.NoError(t, s.Insert(ctx, rec("u1", "B", assoc.NamespaceVote, "voteup", 3)))

				got, err := s.FindAllBySourceAndDestinations(ctx, "u1", []string{"A", "B", "C"}, assoc.NamespaceAction)
				require.NoError(t, err)
				require.Len(t, got, 2)
				assert.Equal(t, "A", got[0].DestinationID)
				assert.Equal(t, "C", got[1].DestinationID)
			})

			t.Run("count by type", func(t *testing.T) {
				s := factory(t)
				ctx := context.Background()
				require.NoError(t, s.Insert(ctx, rec("u1", "p1", assoc.NamespaceReaction, "heart", 0)))
				require.NoError(t, s.Insert(ctx, rec("u2", "p1", assoc.NamespaceReaction, "heart", 1)))
				require.NoError(t, s.Insert(ctx, rec("u3", "p1", assoc.NamespaceReaction, "wow", 2)))
				require.NoError(t, s.Insert(ctx, rec("u3", "p2", assoc.NamespaceReaction, "wow", 2)))

				counts, err := s.CountByType(ctx, "p1", assoc.NamespaceReaction)
				require.NoError(t, err)
				assert.Equal(t, map[string]int{"heart": 2, "wow": 1}, counts)
			})

			t.Run("delete reports whether a record went away", func(t *testing.T) {
				s := factory(t)
				ctx := context.Background()
				a := rec("u1", "p1", assoc.NamespaceAction, "like", 0)
				require.NoError(t, s.Insert(ctx, a))

				deleted, err := s.Delete(ctx, a)
				require.NoError(t, err)
				assert.True(t, deleted)

				deleted, err = s.Delete(ctx, a)
				require.NoError(t, err)
				assert.False(t, deleted)

				n, err := s.Count(ctx, "p1", assoc.NamespaceAction, "like")
				require.NoError(t, err)
				assert.Equal(t, 0, n)

				all, err := s.FindAll(ctx, "u1", "p1", assoc.NamespaceAction)
				require.NoError(t, err)
				assert.Empty(t, all)
			})

			t.Run("stats", func(t *testing.T) {
				s := factory(t)
				ctx := context.Background()
				require.NoError(t, s.Insert(ctx, rec("u1", "p1", assoc.NamespaceAction, "like", 0)))
				require.NoError(t, s.Insert(ctx, rec("u1", "p1", assoc.NamespaceFollow, "follow", 0)))
				require.NoError(t, s.Insert(ctx, rec("u2", "p1", assoc.NamespaceFollow, "follow", 0)))

				reporter, ok := s.(StatsReporter)
				require.True(t, ok)
				stats, err := reporter.Stats(ctx)
				require.NoError(t, err)
				assert.Equal(t, name, stats.Backend)
				assert.Equal(t, 3, stats.Total)
				assert.Equal(t, map[string]int{"action": 1, "follow": 2}, stats.ByNamespace)
			})

			t.Run("rejects incomplete records", func(t *testing.T) {
				s := factory(t)
				err := s.Insert(context.Background(), &assoc.Association{ID: "x", SourceID: "u1"})
				assert.Error(t, err)
			})
		})
	}
}

func TestSQLStore_LargeBatchIsChunked(t *testing.T) {
	s := NewSQLStore(testutil.SetupTestDB(t), nil)
	ctx := context.Background()

	dsts := make([]string, 0, maxBatchParams+50)
	for i := 0; i < maxBatchParams+50; i++ {
		dsts = append(dsts, fmt.Sprintf("p%04d", i))
	}
	require.NoError(t, s.Insert(ctx, rec("u1", dsts[0], assoc.NamespaceAction, "like", 0)))
	require.NoError(t, s.Insert(ctx, rec("u1", dsts[len(dsts)-1], assoc.NamespaceAction, "like", 1)))

	got, err := s.FindAllBySourceAndDestinations(ctx, "u1", dsts, assoc.NamespaceAction)
	require.NoError(t, err)
	assert.Len(t, got, 2)
}
