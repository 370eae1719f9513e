package store

import (
	"context"
	"database/sql"
)

// Driver is an interface for store driver.
// It contains all methods that store database driver should implement.
type Driver interface {
	GetDB() *sql.DB
	Close() error

	// Migrate brings the schema up to date. Called once on startup.
	Migrate(ctx context.Context) error

	// Run model related methods.
	CreateRun(ctx context.Context, create *Run) (*Run, error)
	UpdateRun(ctx context.Context, update *UpdateRun) error
	ListRuns(ctx context.Context, find *FindRun) ([]*Run, error)

	// ComparisonRecord model related methods.
	CreateComparison(ctx context.Context, create *ComparisonRecord) (*ComparisonRecord, error)
	ListComparisons(ctx context.Context, find *FindComparison) ([]*ComparisonRecord, error)
	DeleteComparisons(ctx context.Context, delete *DeleteComparison) error
}
