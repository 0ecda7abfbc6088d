package storage

import (
	"context"
	"fmt"
	"os"
	"sort"

	"github.com/dgraph-io/badger/v4"
	"go.uber.org/zap"

	"github.com/teranos/uniassoc/assoc"
	"github.com/teranos/uniassoc/errors"
	"github.com/teranos/uniassoc/logger"
)

// conflictRetries bounds how often a write transaction is replayed after
// badger reports a serialization conflict with a concurrent writer.
const conflictRetries = 5

// BadgerStore implements assoc.Store on an embedded badger database.
//
// Layout: one record per association plus a forward and a reverse index key,
// and a guard key for unique-mode records. All keys of one association are
// written and deleted in a single transaction.
type BadgerStore struct {
	db     *badger.DB
	seq    *badger.Sequence
	logger *zap.SugaredLogger
}

var _ assoc.Store = (*BadgerStore)(nil)

// OpenBadgerStore opens (or creates) a store in dir. With inMemory set, dir is
// ignored and nothing touches disk.
func OpenBadgerStore(dir string, inMemory bool, log *zap.SugaredLogger) (*BadgerStore, error) {
	log = logger.OrNop(log)

	var opts badger.Options
	if inMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if dir == "" {
			return nil, errors.NewInvalidRequestError("badger directory is required for a persistent store")
		}
		if err := os.MkdirAll(dir, 0750); err != nil {
			return nil, errors.Wrapf(err, "create badger directory %s", dir)
		}
		opts = badger.DefaultOptions(dir)
	}
	opts = opts.WithLogger(&badgerLogger{logger: log.Named("badger")})

	db, err := badger.Open(opts)
	if err != nil {
		return nil, errors.Unavailable(err, "open badger database")
	}
	return NewBadgerStore(db, log)
}

// NewBadgerStore wraps an already opened database. The store takes ownership
// of db and closes it in Close.
func NewBadgerStore(db *badger.DB, log *zap.SugaredLogger) (*BadgerStore, error) {
	seq, err := db.GetSequence([]byte(keySequence), 256)
	if err != nil {
		return nil, errors.Unavailable(err, "open badger sequence")
	}
	return &BadgerStore{
		db:     db,
		seq:    seq,
		logger: logger.OrNop(log),
	}, nil
}

// Close releases the sequence lease and closes the database.
func (s *BadgerStore) Close() error {
	var errs error
	if err := s.seq.Release(); err != nil {
		errs = errors.CombineErrors(errs, errors.Wrap(err, "release sequence"))
	}
	if err := s.db.Close(); err != nil {
		errs = errors.CombineErrors(errs, errors.Wrap(err, "close badger database"))
	}
	return errs
}

func (s *BadgerStore) Insert(ctx context.Context, a *assoc.Association) error {
	if err := s.validate(a); err != nil {
		return err
	}
	_, err := s.write(ctx, "insert", func(txn *badger.Txn, seq uint64) (bool, error) {
		return true, putAssociation(txn, &storedAssociation{Assoc: a, Seq: seq})
	})
	return err
}

// InsertUnique checks and writes the guard key in the same transaction, so
// two racing inserts cannot both commit.
func (s *BadgerStore) InsertUnique(ctx context.Context, a *assoc.Association) (bool, error) {
	if err := s.validate(a); err != nil {
		return false, err
	}
	return s.write(ctx, "insert unique", func(txn *badger.Txn, seq uint64) (bool, error) {
		_, err := txn.Get(uniqueKey(a))
		if err == nil {
			return false, nil
		}
		if !errors.Is(err, badger.ErrKeyNotFound) {
			return false, err
		}
		if err := txn.Set(uniqueKey(a), []byte(a.ID)); err != nil {
			return false, err
		}
		return true, putAssociation(txn, &storedAssociation{Assoc: a, Seq: seq, Unique: true})
	})
}

func (s *BadgerStore) FindOne(ctx context.Context, src, dst, ns, typ string) (*assoc.Association, error) {
	var found *assoc.Association
	err := s.db.View(func(txn *badger.Txn) error {
		prefix := forwardPrefix(src, dst, ns, typ)
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = prefix
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			rec, err := getStored(txn, idFromForwardKey(it.Item().Key()))
			if err != nil {
				return err
			}
			if rec != nil {
				found = rec.Assoc
				return nil
			}
		}
		return nil
	})
	if err != nil {
		return nil, errors.Unavailable(err, "failed to query association")
	}
	return found, nil
}

func (s *BadgerStore) FindAll(ctx context.Context, src, dst, ns string) ([]*assoc.Association, error) {
	var records []*storedAssociation
	err := s.db.View(func(txn *badger.Txn) error {
		var err error
		records, err = scanForward(txn, forwardPrefix(src, dst, ns))
		return err
	})
	if err != nil {
		return nil, errors.Unavailable(err, "failed to find all")
	}
	return unwrapSorted(records), nil
}

// FindAllByDestination walks the reverse index, which is already in creation
// order, and stops after limit records when limit > 0.
func (s *BadgerStore) FindAllByDestination(ctx context.Context, dst, ns, typ string, limit int) ([]*assoc.Association, error) {
	var out []*assoc.Association
	err := s.db.View(func(txn *badger.Txn) error {
		prefix := reversePrefix(dst, ns, typ)
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = prefix
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			rec, err := getStored(txn, idFromReverseKey(it.Item().Key(), len(prefix)))
			if err != nil {
				return err
			}
			if rec == nil {
				continue
			}
			out = append(out, rec.Assoc)
			if limit > 0 && len(out) >= limit {
				return nil
			}
		}
		return nil
	})
	if err != nil {
		return nil, errors.Unavailable(err, "failed to find by destination")
	}
	return out, nil
}

func (s *BadgerStore) FindAllByDestinationNamespace(ctx context.Context, dst, ns string) ([]*assoc.Association, error) {
	var records []*storedAssociation
	err := s.db.View(func(txn *badger.Txn) error {
		prefix := reversePrefix(dst, ns)
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = prefix
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			key := it.Item().Key()
			typ := typeFromReverseKey(key, len(prefix))
			rec, err := getStored(txn, idFromReverseKey(key, len(prefix)+len(typ)+1))
			if err != nil {
				return err
			}
			if rec != nil {
				records = append(records, rec)
			}
		}
		return nil
	})
	if err != nil {
		return nil, errors.Unavailable(err, "failed to find by destination namespace")
	}
	return unwrapSorted(records), nil
}

// FindAllBySourceAndDestinations reads every destination inside one read
// transaction, giving the batch a single consistent snapshot.
func (s *BadgerStore) FindAllBySourceAndDestinations(ctx context.Context, src string, dsts []string, ns string) ([]*assoc.Association, error) {
	var records []*storedAssociation
	err := s.db.View(func(txn *badger.Txn) error {
		for _, dst := range dsts {
			if err := ctx.Err(); err != nil {
				return err
			}
			found, err := scanForward(txn, forwardPrefix(src, dst, ns))
			if err != nil {
				return err
			}
			records = append(records, found...)
		}
		return nil
	})
	if err != nil {
		return nil, errors.Unavailable(err, "failed to batch find")
	}
	return unwrapSorted(records), nil
}

func (s *BadgerStore) Count(ctx context.Context, dst, ns, typ string) (int, error) {
	n := 0
	err := s.db.View(func(txn *badger.Txn) error {
		prefix := reversePrefix(dst, ns, typ)
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = prefix
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			n++
		}
		return nil
	})
	if err != nil {
		return 0, errors.Unavailable(err, "failed to count associations")
	}
	return n, nil
}

func (s *BadgerStore) CountByType(ctx context.Context, dst, ns string) (map[string]int, error) {
	counts := make(map[string]int)
	err := s.db.View(func(txn *badger.Txn) error {
		prefix := reversePrefix(dst, ns)
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = prefix
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			if typ := typeFromReverseKey(it.Item().Key(), len(prefix)); typ != "" {
				counts[typ]++
			}
		}
		return nil
	})
	if err != nil {
		return nil, errors.Unavailable(err, "failed to count associations by type")
	}
	return counts, nil
}

func (s *BadgerStore) Delete(ctx context.Context, a *assoc.Association) (bool, error) {
	if a == nil || a.ID == "" {
		return false, errors.NewInvalidRequestError("association id is empty")
	}
	return s.write(ctx, "delete", func(txn *badger.Txn, _ uint64) (bool, error) {
		rec, err := getStored(txn, a.ID)
		if err != nil || rec == nil {
			return false, err
		}
		keys := [][]byte{recordKey(a.ID), forwardKey(rec.Assoc), reverseKey(rec.Assoc, rec.Seq)}
		if rec.Unique {
			keys = append(keys, uniqueKey(rec.Assoc))
		}
		for _, k := range keys {
			if err := txn.Delete(k); err != nil {
				return false, err
			}
		}
		return true, nil
	})
}

// Stats scans the record prefix once.
func (s *BadgerStore) Stats(ctx context.Context) (*Stats, error) {
	stats := &Stats{Backend: BackendBadger, ByNamespace: make(map[string]int)}
	err := s.db.View(func(txn *badger.Txn) error {
		prefix := []byte{prefixRecord}
		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefix
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			var rec *storedAssociation
			err := it.Item().Value(func(val []byte) error {
				var err error
				rec, err = decodeStored(val)
				return err
			})
			if err != nil {
				return err
			}
			stats.Total++
			stats.ByNamespace[rec.Assoc.Namespace]++
		}
		return nil
	})
	if err != nil {
		return nil, errors.Unavailable(err, "failed to collect stats")
	}
	return stats, nil
}

func (s *BadgerStore) validate(a *assoc.Association) error {
	if err := a.Validate(); err != nil {
		return err
	}
	if a.ID == "" {
		return errors.NewInvalidRequestError("association id is empty")
	}
	if containsSeparator(a.ID, a.SourceID, a.DestinationID, a.Namespace, a.Type) {
		return errors.NewInvalidRequestError("association fields must not contain NUL bytes")
	}
	return nil
}

// write runs fn in an update transaction, replaying it on badger.ErrConflict.
// A fresh sequence number is drawn per attempt.
func (s *BadgerStore) write(ctx context.Context, op string, fn func(txn *badger.Txn, seq uint64) (bool, error)) (bool, error) {
	for attempt := 0; ; attempt++ {
		if err := ctx.Err(); err != nil {
			return false, errors.Unavailable(err, "failed to "+op)
		}
		seq, err := s.seq.Next()
		if err != nil {
			return false, errors.Unavailable(err, "failed to allocate sequence")
		}

		var result bool
		err = s.db.Update(func(txn *badger.Txn) error {
			var err error
			result, err = fn(txn, seq)
			return err
		})
		if errors.Is(err, badger.ErrConflict) && attempt < conflictRetries {
			s.logger.Debugw("Badger transaction conflict, retrying",
				logger.FieldOperation, op,
				"attempt", attempt+1,
			)
			continue
		}
		if err != nil {
			return false, errors.Unavailable(err, "failed to "+op)
		}
		return result, nil
	}
}

func putAssociation(txn *badger.Txn, rec *storedAssociation) error {
	data, err := encodeStored(rec)
	if err != nil {
		return errors.Wrap(err, "encode association")
	}
	if err := txn.Set(recordKey(rec.Assoc.ID), data); err != nil {
		return err
	}
	if err := txn.Set(forwardKey(rec.Assoc), nil); err != nil {
		return err
	}
	return txn.Set(reverseKey(rec.Assoc, rec.Seq), nil)
}

// getStored returns nil, nil when the record is gone.
func getStored(txn *badger.Txn, id string) (*storedAssociation, error) {
	item, err := txn.Get(recordKey(id))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var rec *storedAssociation
	err = item.Value(func(val []byte) error {
		var err error
		rec, err = decodeStored(val)
		return err
	})
	if err != nil {
		return nil, errors.Wrapf(err, "decode association %s", id)
	}
	return rec, nil
}

func scanForward(txn *badger.Txn, prefix []byte) ([]*storedAssociation, error) {
	opts := badger.DefaultIteratorOptions
	opts.PrefetchValues = false
	opts.Prefix = prefix
	it := txn.NewIterator(opts)
	defer it.Close()

	var out []*storedAssociation
	for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
		rec, err := getStored(txn, idFromForwardKey(it.Item().Key()))
		if err != nil {
			return nil, err
		}
		if rec != nil {
			out = append(out, rec)
		}
	}
	return out, nil
}

func unwrapSorted(records []*storedAssociation) []*assoc.Association {
	sort.SliceStable(records, func(i, j int) bool {
		a, b := records[i], records[j]
		if !a.Assoc.CreatedAt.Equal(b.Assoc.CreatedAt) {
			return a.Assoc.CreatedAt.Before(b.Assoc.CreatedAt)
		}
		return a.Seq < b.Seq
	})
	out := make([]*assoc.Association, 0, len(records))
	for _, r := range records {
		out = append(out, r.Assoc)
	}
	return out
}

// badgerLogger routes badger's internal logging into zap.
type badgerLogger struct {
	logger *zap.SugaredLogger
}

func (l *badgerLogger) Errorf(format string, args ...interface{}) {
	l.logger.Error(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Warningf(format string, args ...interface{}) {
	l.logger.Warn(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Infof(format string, args ...interface{}) {
	l.logger.Debug(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Debugf(format string, args ...interface{}) {
	l.logger.Debug(fmt.Sprintf(format, args...))
}
