package store

import (
	"context"

	"github.com/datagora/openhours/internal/profile"
)

// Store provides database access to all raw objects.
type Store struct {
	profile *profile.Profile
	driver  Driver
}

// New creates a new instance of Store.
func New(driver Driver, profile *profile.Profile) *Store {
	return &Store{
		driver:  driver,
		profile: profile,
	}
}

func (s *Store) GetDriver() Driver {
	return s.driver
}

func (s *Store) Migrate(ctx context.Context) error {
	return s.driver.Migrate(ctx)
}

func (s *Store) Close() error {
	return s.driver.Close()
}

func (s *Store) CreateRun(ctx context.Context, create *Run) (*Run, error) {
	return s.driver.CreateRun(ctx, create)
}

func (s *Store) UpdateRun(ctx context.Context, update *UpdateRun) error {
	return s.driver.UpdateRun(ctx, update)
}

func (s *Store) ListRuns(ctx context.Context, find *FindRun) ([]*Run, error) {
	return s.driver.ListRuns(ctx, find)
}

// GetLatestRun returns the most recent run, or nil when the store is empty.
func (s *Store) GetLatestRun(ctx context.Context) (*Run, error) {
	limit := 1
	runs, err := s.driver.ListRuns(ctx, &FindRun{Limit: &limit})
	if err != nil {
		return nil, err
	}
	if len(runs) == 0 {
		return nil, nil
	}
	return runs[0], nil
}

func (s *Store) CreateComparison(ctx context.Context, create *ComparisonRecord) (*ComparisonRecord, error) {
	return s.driver.CreateComparison(ctx, create)
}

func (s *Store) ListComparisons(ctx context.Context, find *FindComparison) ([]*ComparisonRecord, error) {
	return s.driver.ListComparisons(ctx, find)
}

func (s *Store) DeleteComparisons(ctx context.Context, delete *DeleteComparison) error {
	return s.driver.DeleteComparisons(ctx, delete)
}
