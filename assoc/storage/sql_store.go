// Package storage provides the persistence backends behind assoc.Store.
// SQLStore keeps associations in a single SQLite table with forward and reverse
// composite indexes; BadgerStore keeps them in an embedded key-value store with
// the same two access paths laid out as key prefixes.
package storage

import (
	"context"
	"database/sql"
	"strings"

	"go.uber.org/zap"

	"github.com/teranos/uniassoc/assoc"
	"github.com/teranos/uniassoc/errors"
	"github.com/teranos/uniassoc/logger"
)

// maxBatchParams keeps IN (...) lists under SQLite's default host parameter
// limit once the two fixed parameters are added.
const maxBatchParams = 900

// Query constants
const (
	AssociationInsertQuery = `
		INSERT INTO associations (id, source_id, destination_id, namespace, type, unique_key, created_at)
		VALUES (?, ?, ?, ?, ?, NULL, ?)`

	AssociationInsertUniqueQuery = `
		INSERT INTO associations (id, source_id, destination_id, namespace, type, unique_key, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(unique_key) DO NOTHING`

	AssociationSelectColumns = `id, source_id, destination_id, namespace, type, created_at`

	AssociationFindOneQuery = `
		SELECT ` + AssociationSelectColumns + `
		FROM associations
		WHERE source_id = ? AND destination_id = ? AND namespace = ? AND type = ?
		LIMIT 1`

	AssociationFindAllQuery = `
		SELECT ` + AssociationSelectColumns + `
		FROM associations
		WHERE source_id = ? AND destination_id = ? AND namespace = ?
		ORDER BY created_at ASC, rowid ASC`

	AssociationFindByDestinationQuery = `
		SELECT ` + AssociationSelectColumns + `
		FROM associations
		WHERE destination_id = ? AND namespace = ? AND type = ?
		ORDER BY created_at ASC, rowid ASC`

	AssociationFindByDestinationNamespaceQuery = `
		SELECT ` + AssociationSelectColumns + `
		FROM associations
		WHERE destination_id = ? AND namespace = ?
		ORDER BY created_at ASC, rowid ASC`

	AssociationCountQuery = `
		SELECT COUNT(*) FROM associations
		WHERE destination_id = ? AND namespace = ? AND type = ?`

	AssociationCountByTypeQuery = `
		SELECT type, COUNT(*) FROM associations
		WHERE destination_id = ? AND namespace = ?
		GROUP BY type`

	AssociationDeleteQuery = `
		DELETE FROM associations WHERE id = ?`

	AssociationTotalQuery = `
		SELECT COUNT(*) FROM associations`

	AssociationNamespaceStatsQuery = `
		SELECT namespace, COUNT(*) FROM associations
		GROUP BY namespace`
)

// SQLStore implements assoc.Store on SQLite.
// It does not own db; callers close it.
type SQLStore struct {
	db     *sql.DB
	logger *zap.SugaredLogger
}

var _ assoc.Store = (*SQLStore)(nil)

// NewSQLStore creates a SQL-backed association store.
func NewSQLStore(db *sql.DB, log *zap.SugaredLogger) *SQLStore {
	return &SQLStore{
		db:     db,
		logger: logger.OrNop(log),
	}
}

// Insert appends a non-unique record. unique_key stays NULL so repeatable
// edges never collide with the guard index.
func (s *SQLStore) Insert(ctx context.Context, a *assoc.Association) error {
	if err := a.Validate(); err != nil {
		return err
	}
	_, err := s.db.ExecContext(ctx, AssociationInsertQuery,
		a.ID, a.SourceID, a.DestinationID, a.Namespace, a.Type, a.CreatedAt.UTC())
	if err != nil {
		return errors.Unavailable(err, "failed to insert association")
	}
	return nil
}

// InsertUnique appends a record carrying its unique key. A conflicting key
// leaves the table untouched and reports inserted=false.
func (s *SQLStore) InsertUnique(ctx context.Context, a *assoc.Association) (bool, error) {
	if err := a.Validate(); err != nil {
		return false, err
	}
	res, err := s.db.ExecContext(ctx, AssociationInsertUniqueQuery,
		a.ID, a.SourceID, a.DestinationID, a.Namespace, a.Type, a.UniqueKey(), a.CreatedAt.UTC())
	if err != nil {
		return false, errors.Unavailable(err, "failed to insert unique association")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, errors.Unavailable(err, "failed to read rows affected")
	}
	return n > 0, nil
}

// FindOne returns nil, nil when no record matches.
func (s *SQLStore) FindOne(ctx context.Context, src, dst, ns, typ string) (*assoc.Association, error) {
	row := s.db.QueryRowContext(ctx, AssociationFindOneQuery, src, dst, ns, typ)

	var a assoc.Association
	err := row.Scan(&a.ID, &a.SourceID, &a.DestinationID, &a.Namespace, &a.Type, &a.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Unavailable(err, "failed to query association")
	}
	a.CreatedAt = a.CreatedAt.UTC()
	return &a, nil
}

func (s *SQLStore) FindAll(ctx context.Context, src, dst, ns string) ([]*assoc.Association, error) {
	return s.query(ctx, "find all", AssociationFindAllQuery, src, dst, ns)
}

func (s *SQLStore) FindAllByDestination(ctx context.Context, dst, ns, typ string, limit int) ([]*assoc.Association, error) {
	if limit > 0 {
		return s.query(ctx, "find by destination", AssociationFindByDestinationQuery+"\n\t\tLIMIT ?", dst, ns, typ, limit)
	}
	return s.query(ctx, "find by destination", AssociationFindByDestinationQuery, dst, ns, typ)
}

func (s *SQLStore) FindAllByDestinationNamespace(ctx context.Context, dst, ns string) ([]*assoc.Association, error) {
	return s.query(ctx, "find by destination namespace", AssociationFindByDestinationNamespaceQuery, dst, ns)
}

// FindAllBySourceAndDestinations resolves the whole batch with one IN query.
// Batches larger than maxBatchParams are split into consecutive queries.
func (s *SQLStore) FindAllBySourceAndDestinations(ctx context.Context, src string, dsts []string, ns string) ([]*assoc.Association, error) {
	var out []*assoc.Association
	for start := 0; start < len(dsts); start += maxBatchParams {
		end := start + maxBatchParams
		if end > len(dsts) {
			end = len(dsts)
		}
		chunk := dsts[start:end]

		query, args := buildBatchQuery(src, chunk, ns)
		records, err := s.query(ctx, "batch find", query, args...)
		if err != nil {
			return nil, err
		}
		out = append(out, records...)
	}
	return out, nil
}

func buildBatchQuery(src string, dsts []string, ns string) (string, []interface{}) {
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(dsts)), ",")
	query := `
		SELECT ` + AssociationSelectColumns + `
		FROM associations
		WHERE source_id = ? AND namespace = ? AND destination_id IN (` + placeholders + `)
		ORDER BY created_at ASC, rowid ASC`

	args := make([]interface{}, 0, len(dsts)+2)
	args = append(args, src, ns)
	for _, d := range dsts {
		args = append(args, d)
	}
	return query, args
}

func (s *SQLStore) Count(ctx context.Context, dst, ns, typ string) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, AssociationCountQuery, dst, ns, typ).Scan(&n); err != nil {
		return 0, errors.Unavailable(err, "failed to count associations")
	}
	return n, nil
}

func (s *SQLStore) CountByType(ctx context.Context, dst, ns string) (map[string]int, error) {
	rows, err := s.db.QueryContext(ctx, AssociationCountByTypeQuery, dst, ns)
	if err != nil {
		return nil, errors.Unavailable(err, "failed to count associations by type")
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var typ string
		var n int
		if err := rows.Scan(&typ, &n); err != nil {
			return nil, errors.Unavailable(err, "failed to scan type count")
		}
		counts[typ] = n
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Unavailable(err, "failed to iterate type counts")
	}
	return counts, nil
}

// Delete removes the record by ID; the unique key goes with the row.
func (s *SQLStore) Delete(ctx context.Context, a *assoc.Association) (bool, error) {
	if a == nil || a.ID == "" {
		return false, errors.NewInvalidRequestError("association id is empty")
	}
	res, err := s.db.ExecContext(ctx, AssociationDeleteQuery, a.ID)
	if err != nil {
		return false, errors.Unavailable(err, "failed to delete association")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, errors.Unavailable(err, "failed to read rows affected")
	}
	return n > 0, nil
}

// Stats reports the total record count and the count per namespace.
func (s *SQLStore) Stats(ctx context.Context) (*Stats, error) {
	stats := &Stats{Backend: BackendSQLite, ByNamespace: make(map[string]int)}

	if err := s.db.QueryRowContext(ctx, AssociationTotalQuery).Scan(&stats.Total); err != nil {
		return nil, errors.Unavailable(err, "failed to count associations")
	}

	rows, err := s.db.QueryContext(ctx, AssociationNamespaceStatsQuery)
	if err != nil {
		return nil, errors.Unavailable(err, "failed to count namespaces")
	}
	defer rows.Close()
	for rows.Next() {
		var ns string
		var n int
		if err := rows.Scan(&ns, &n); err != nil {
			return nil, errors.Unavailable(err, "failed to scan namespace count")
		}
		stats.ByNamespace[ns] = n
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Unavailable(err, "failed to iterate namespace counts")
	}
	return stats, nil
}

func (s *SQLStore) query(ctx context.Context, op, query string, args ...interface{}) ([]*assoc.Association, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Unavailable(err, "failed to "+op)
	}
	defer rows.Close()

	records, err := scanAssociations(rows)
	if err != nil {
		return nil, errors.Unavailable(err, "failed to "+op)
	}
	s.logger.Debugw("Association query",
		logger.FieldOperation, op,
		logger.FieldBackend, BackendSQLite,
		logger.FieldCount, len(records),
	)
	return records, nil
}

func scanAssociations(rows *sql.Rows) ([]*assoc.Association, error) {
	var out []*assoc.Association
	for rows.Next() {
		var a assoc.Association
		if err := rows.Scan(&a.ID, &a.SourceID, &a.DestinationID, &a.Namespace, &a.Type, &a.CreatedAt); err != nil {
			return nil, errors.Wrap(err, "scan association")
		}
		a.CreatedAt = a.CreatedAt.UTC()
		out = append(out, &a)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "iterate associations")
	}
	return out, nil
}
