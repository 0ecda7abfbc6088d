package commands

import (
	"context"
	"database/sql"
	"fmt"
	"io"

	"github.com/teranos/uniassoc/am"
	"github.com/teranos/uniassoc/assoc"
	"github.com/teranos/uniassoc/assoc/storage"
	"github.com/teranos/uniassoc/capability"
	"github.com/teranos/uniassoc/db"
	"github.com/teranos/uniassoc/entity"
	"github.com/teranos/uniassoc/errors"
	"github.com/teranos/uniassoc/logger"
)

// backend bundles everything a command needs to touch storage.
// Entities always live in SQLite; associations follow database.backend.
type backend struct {
	cfg      *am.Config
	db       *sql.DB
	store    assoc.Store
	closer   io.Closer
	engine   *assoc.Engine
	entities *entity.SQLStore
}

// openDatabase opens and migrates the SQLite database at dbPath.
func openDatabase(dbPath string) (*sql.DB, error) {
	database, err := db.OpenWithMigrations(dbPath, logger.Logger)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open database at %s", dbPath)
	}
	return database, nil
}

func openBackend() (*backend, error) {
	cfg, err := am.Load()
	if err != nil {
		return nil, errors.Wrap(err, "failed to load configuration")
	}

	database, err := openDatabase(cfg.GetDatabasePath())
	if err != nil {
		return nil, err
	}

	b := &backend{
		cfg:      cfg,
		db:       database,
		entities: entity.NewSQLStore(database, logger.Logger.Named("entity")),
	}

	switch cfg.GetBackend() {
	case am.BackendBadger:
		bs, err := storage.OpenBadgerStore(cfg.Database.BadgerDir, cfg.Database.BadgerInMemory, logger.Logger.Named("badger"))
		if err != nil {
			database.Close()
			return nil, errors.Wrap(err, "failed to open badger store")
		}
		b.store, b.closer = bs, bs
	default:
		b.store = storage.NewSQLStore(database, logger.Logger.Named("assoc"))
	}

	b.engine = assoc.NewEngine(b.store, logger.Logger.Named("engine"))
	return b, nil
}

func (b *backend) Close() error {
	var err error
	if b.closer != nil {
		err = b.closer.Close()
	}
	return errors.CombineErrors(err, b.db.Close())
}

func (b *backend) actionable(ns string) *capability.Actionable {
	return capability.NewActionable(b.engine,
		capability.WithNamespace(ns),
		capability.WithCounterWriter(b.entities),
		capability.WithLogger(logger.Logger.Named("actionable")),
	)
}

func (b *backend) reactable() *capability.Reactable {
	return capability.NewReactable(b.engine, b.cfg.Reactions.Defaults,
		capability.WithCounterWriter(b.entities),
		capability.WithLogger(logger.Logger.Named("reactable")),
	)
}

func (b *backend) voteable() *capability.Voteable {
	return capability.NewVoteable(b.engine, b.entities,
		capability.WithCounterWriter(b.entities),
		capability.WithLogger(logger.Logger.Named("voteable")),
	)
}

func (b *backend) followable() *capability.Followable {
	return capability.NewFollowable(b.engine)
}

// entity loads a record, pointing at `entity create` when it is missing.
func (b *backend) entity(ctx context.Context, id string) (*entity.Record, error) {
	r, err := b.entities.Get(ctx, id)
	if errors.IsNotFoundError(err) {
		return nil, errors.WithHint(err, fmt.Sprintf("create it first: uniassoc entity create %s", id))
	}
	return r, err
}

// limit returns the --limit flag value, or the configured default when unset.
func (b *backend) limit(flag int, changed bool) int {
	if changed {
		return flag
	}
	return b.cfg.Assoc.DefaultLimit
}

// withBackend opens the backend for the duration of fn.
func withBackend(fn func(b *backend) error) (err error) {
	b, err := openBackend()
	if err != nil {
		return err
	}
	defer func() {
		err = errors.CombineErrors(err, b.Close())
	}()
	return fn(b)
}
