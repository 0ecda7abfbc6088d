package entity

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"go.uber.org/zap"

	"github.com/teranos/uniassoc/errors"
	"github.com/teranos/uniassoc/logger"
)

const (
	entityInsertQuery = `
		INSERT INTO entities (id, kind, action_counters, vote_count, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING`

	entitySelectQuery = `
		SELECT id, kind, action_counters, vote_count, created_at, updated_at
		FROM entities`

	entityTouchQuery = `
		UPDATE entities SET updated_at = ? WHERE id = ?`

	entityCountersQuery = `
		SELECT action_counters FROM entities WHERE id = ?`

	entitySaveCountersQuery = `
		UPDATE entities SET action_counters = ? WHERE id = ?`

	entityUpdateVoteCountQuery = `
		UPDATE entities SET vote_count = ?, updated_at = ? WHERE id = ?`
)

// SQLStore persists Records in the entities table.
type SQLStore struct {
	db     *sql.DB
	logger *zap.SugaredLogger
	now    func() time.Time
}

// NewSQLStore creates an entity store over db.
func NewSQLStore(db *sql.DB, log *zap.SugaredLogger) *SQLStore {
	return &SQLStore{
		db:     db,
		logger: logger.OrNop(log),
		now:    time.Now,
	}
}

// Create inserts r. An existing id yields an errors.ErrConflict error.
func (s *SQLStore) Create(ctx context.Context, r *Record) error {
	if r == nil || r.ID == "" {
		return errors.NewInvalidRequestError("entity id is empty")
	}
	if r.Counters == nil {
		r.Counters = Counters{}
	}
	counters, err := json.Marshal(r.Counters)
	if err != nil {
		return errors.Wrap(err, "marshal action counters")
	}

	res, err := s.db.ExecContext(ctx, entityInsertQuery,
		r.ID, r.Kind, string(counters), r.Votes, r.CreatedAt.UTC(), r.UpdatedAt.UTC())
	if err != nil {
		return errors.Unavailable(err, "failed to insert entity")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return errors.Unavailable(err, "failed to read rows affected")
	}
	if n == 0 {
		return errors.Wrapf(errors.ErrConflict, "entity %s already exists", r.ID)
	}

	s.logger.Debugw("Entity created", logger.FieldEntityID, r.ID, logger.FieldKind, r.Kind)
	return nil
}

// Get loads one record. A missing id yields an errors.ErrNotFound error.
func (s *SQLStore) Get(ctx context.Context, id string) (*Record, error) {
	row := s.db.QueryRowContext(ctx, entitySelectQuery+" WHERE id = ?", id)
	r, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, errors.NewNotFoundError("entity %s", id)
	}
	if err != nil {
		return nil, errors.Unavailable(err, "failed to load entity")
	}
	return r, nil
}

// GetOrCreate loads id, creating an empty record of kind when it is missing.
func (s *SQLStore) GetOrCreate(ctx context.Context, id, kind string) (*Record, error) {
	r, err := s.Get(ctx, id)
	if err == nil {
		return r, nil
	}
	if !errors.IsNotFoundError(err) {
		return nil, err
	}

	r = New(id, kind, s.now())
	err = s.Create(ctx, r)
	switch {
	case err == nil:
		return r, nil
	case errors.Is(err, errors.ErrConflict):
		// Lost a race with another creator.
		return s.Get(ctx, id)
	default:
		return nil, err
	}
}

// List returns records ordered by creation. An empty kind lists everything.
func (s *SQLStore) List(ctx context.Context, kind string) ([]*Record, error) {
	query := entitySelectQuery + " ORDER BY created_at ASC, id ASC"
	args := []interface{}{}
	if kind != "" {
		query = entitySelectQuery + " WHERE kind = ? ORDER BY created_at ASC, id ASC"
		args = append(args, kind)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Unavailable(err, "failed to list entities")
	}
	defer rows.Close()

	var out []*Record
	for rows.Next() {
		r, err := scanRecord(rows)
		if err != nil {
			return nil, errors.Unavailable(err, "failed to scan entity")
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Unavailable(err, "failed to iterate entities")
	}
	return out, nil
}

// SaveCounters replaces the counters of namespace ns and leaves every other
// namespace as stored. The row is locked by the first write so concurrent
// savers of other namespaces do not overwrite each other.
func (s *SQLStore) SaveCounters(ctx context.Context, id, ns string, counters map[string]int) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.Unavailable(err, "failed to begin transaction")
	}
	defer tx.Rollback() // Rollback if not committed

	res, err := tx.ExecContext(ctx, entityTouchQuery, s.now().UTC(), id)
	if err != nil {
		return errors.Unavailable(err, "failed to save counters")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return errors.Unavailable(err, "failed to read rows affected")
	}
	if n == 0 {
		return errors.NewNotFoundError("entity %s", id)
	}

	var raw string
	if err := tx.QueryRowContext(ctx, entityCountersQuery, id).Scan(&raw); err != nil {
		return errors.Unavailable(err, "failed to load counters")
	}
	stored, err := decodeCounters(id, raw)
	if err != nil {
		return err
	}
	stored[ns] = counters

	data, err := json.Marshal(stored)
	if err != nil {
		return errors.Wrap(err, "marshal action counters")
	}
	if _, err := tx.ExecContext(ctx, entitySaveCountersQuery, string(data), id); err != nil {
		return errors.Unavailable(err, "failed to save counters")
	}
	if err := tx.Commit(); err != nil {
		return errors.Unavailable(err, "failed to commit counters")
	}
	return nil
}

// UpdateVoteCount writes only the vote_count column.
func (s *SQLStore) UpdateVoteCount(ctx context.Context, id string, count int) error {
	return s.update(ctx, "update vote count", entityUpdateVoteCountQuery, id, count)
}

func (s *SQLStore) update(ctx context.Context, op, query, id string, value interface{}) error {
	res, err := s.db.ExecContext(ctx, query, value, s.now().UTC(), id)
	if err != nil {
		return errors.Unavailable(err, "failed to "+op)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return errors.Unavailable(err, "failed to read rows affected")
	}
	if n == 0 {
		return errors.NewNotFoundError("entity %s", id)
	}
	return nil
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanRecord(row scanner) (*Record, error) {
	var (
		r        Record
		counters string
	)
	if err := row.Scan(&r.ID, &r.Kind, &counters, &r.Votes, &r.CreatedAt, &r.UpdatedAt); err != nil {
		return nil, err
	}
	decoded, err := decodeCounters(r.ID, counters)
	if err != nil {
		return nil, err
	}
	r.Counters = decoded
	r.CreatedAt = r.CreatedAt.UTC()
	r.UpdatedAt = r.UpdatedAt.UTC()
	return &r, nil
}

func decodeCounters(id, raw string) (Counters, error) {
	out := Counters{}
	if raw == "" {
		return out, nil
	}
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		return nil, errors.Wrapf(err, "decode action counters of %s", id)
	}
	if out == nil {
		out = Counters{}
	}
	return out, nil
}
