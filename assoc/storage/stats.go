package storage

import "context"

// Backend names, as used by the database.backend config key.
const (
	BackendSQLite = "sqlite"
	BackendBadger = "badger"
)

// Stats summarizes what a backend currently holds.
type Stats struct {
	Backend     string         `json:"backend" yaml:"backend"`
	Total       int            `json:"total" yaml:"total"`
	ByNamespace map[string]int `json:"by_namespace" yaml:"by_namespace"`
}

// StatsReporter is implemented by every backend in this package.
type StatsReporter interface {
	Stats(ctx context.Context) (*Stats, error)
}
