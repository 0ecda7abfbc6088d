package storage

import (
	"context"
	"database/sql"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teranos/uniassoc/assoc"
	"github.com/teranos/uniassoc/errors"
)

func newMockStore(t *testing.T) (*SQLStore, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewSQLStore(db, nil), mock
}

func TestSQLStore_InsertMarksStorageUnavailable(t *testing.T) {
	store, mock := newMockStore(t)
	a := rec("u1", "p1", assoc.NamespaceAction, "like", 0)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO associations")).
		WithArgs(a.ID, "u1", "p1", "action", "like", a.CreatedAt).
		WillReturnError(sql.ErrConnDone)

	err := store.Insert(context.Background(), a)
	require.Error(t, err)
	assert.True(t, errors.IsStorageUnavailableError(err))
	assert.True(t, errors.Is(err, sql.ErrConnDone), "driver cause should stay inspectable")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLStore_InsertUniqueUsesRowsAffected(t *testing.T) {
	store, mock := newMockStore(t)
	a := rec("u1", "p1", assoc.NamespaceAction, "like", 0)

	mock.ExpectExec(regexp.QuoteMeta("ON CONFLICT(unique_key) DO NOTHING")).
		WithArgs(a.ID, "u1", "p1", "action", "like", a.UniqueKey(), a.CreatedAt).
		WillReturnResult(sqlmock.NewResult(0, 0))

	ok, err := store.InsertUnique(context.Background(), a)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLStore_FindOneScansRecord(t *testing.T) {
	store, mock := newMockStore(t)

	rows := sqlmock.NewRows([]string{"id", "source_id", "destination_id", "namespace", "type", "created_at"}).
		AddRow("id-1", "u1", "p1", "action", "like", base)
	mock.ExpectQuery(regexp.QuoteMeta("FROM associations")).
		WithArgs("u1", "p1", "action", "like").
		WillReturnRows(rows)

	got, err := store.FindOne(context.Background(), "u1", "p1", "action", "like")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "id-1", got.ID)
	assert.True(t, base.Equal(got.CreatedAt))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLStore_QueryFailures(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name string
		run  func(s *SQLStore) error
	}{
		{"find one", func(s *SQLStore) error {
			_, err := s.FindOne(ctx, "u1", "p1", "action", "like")
			return err
		}},
		{"find all", func(s *SQLStore) error {
			_, err := s.FindAll(ctx, "u1", "p1", "action")
			return err
		}},
		{"find by destination", func(s *SQLStore) error {
			_, err := s.FindAllByDestination(ctx, "p1", "action", "like", 10)
			return err
		}},
		{"batch", func(s *SQLStore) error {
			_, err := s.FindAllBySourceAndDestinations(ctx, "u1", []string{"a", "b"}, "action")
			return err
		}},
		{"count", func(s *SQLStore) error {
			_, err := s.Count(ctx, "p1", "action", "like")
			return err
		}},
		{"count by type", func(s *SQLStore) error {
			_, err := s.CountByType(ctx, "p1", "action")
			return err
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store, mock := newMockStore(t)
			mock.ExpectQuery(".*").WillReturnError(sql.ErrConnDone)

			err := tt.run(store)
			require.Error(t, err)
			assert.True(t, errors.IsStorageUnavailableError(err))
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestSQLStore_BatchBuildsSingleInQuery(t *testing.T) {
	store, mock := newMockStore(t)

	rows := sqlmock.NewRows([]string{"id", "source_id", "destination_id", "namespace", "type", "created_at"}).
		AddRow("id-1", "u1", "A", "action", "like", base).
		AddRow("id-2", "u1", "C", "action", "like", base)
	mock.ExpectQuery(regexp.QuoteMeta("destination_id IN (?,?,?)")).
		WithArgs("u1", "action", "A", "B", "C").
		WillReturnRows(rows)

	got, err := store.FindAllBySourceAndDestinations(context.Background(), "u1", []string{"A", "B", "C"}, "action")
	require.NoError(t, err)
	assert.Len(t, got, 2)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLStore_DeleteFailure(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM associations")).
		WithArgs("id-1").
		WillReturnError(sql.ErrConnDone)

	ok, err := store.Delete(context.Background(), &assoc.Association{ID: "id-1"})
	require.Error(t, err)
	assert.False(t, ok)
	assert.True(t, errors.IsStorageUnavailableError(err))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLStore_DeleteRequiresID(t *testing.T) {
	store, _ := newMockStore(t)

	_, err := store.Delete(context.Background(), &assoc.Association{})
	assert.True(t, errors.IsInvalidRequestError(err))
}
