package postgres

import (
	"context"
	"database/sql"
	"strconv"

	"github.com/pkg/errors"

	// postgres driver.
	_ "github.com/lib/pq"

	"github.com/datagora/openhours/internal/profile"
	"github.com/datagora/openhours/store"
)

type DB struct {
	db      *sql.DB
	profile *profile.Profile
}

// NewDB opens a db with the postgres driver.
func NewDB(profile *profile.Profile) (store.Driver, error) {
	if profile == nil {
		return nil, errors.New("profile is nil")
	}
	if profile.DSN == "" {
		return nil, errors.New("dsn required")
	}

	db, err := sql.Open("postgres", profile.DSN)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open db with dsn: %s", profile.DSN)
	}
	return &DB{db: db, profile: profile}, nil
}

func (d *DB) GetDB() *sql.DB {
	return d.db
}

func (d *DB) Close() error {
	return d.db.Close()
}

const schema = `
CREATE TABLE IF NOT EXISTS run (
	id TEXT PRIMARY KEY,
	started_ts BIGINT NOT NULL,
	finished_ts BIGINT NOT NULL DEFAULT 0,
	total INTEGER NOT NULL DEFAULT 0,
	identical INTEGER NOT NULL DEFAULT 0,
	different INTEGER NOT NULL DEFAULT 0,
	not_comparable INTEGER NOT NULL DEFAULT 0,
	failed INTEGER NOT NULL DEFAULT 0,
	notes TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS comparison (
	uid TEXT PRIMARY KEY,
	run_id TEXT NOT NULL,
	facility_id TEXT NOT NULL,
	name TEXT NOT NULL DEFAULT '',
	facility_type TEXT NOT NULL DEFAULT '',
	url TEXT NOT NULL DEFAULT '',
	fetch_status TEXT NOT NULL DEFAULT '',
	markdown TEXT NOT NULL DEFAULT '',
	extracted_json TEXT NOT NULL DEFAULT '',
	encoded_osm TEXT NOT NULL DEFAULT '',
	reference_osm TEXT NOT NULL DEFAULT '',
	verdict TEXT NOT NULL DEFAULT '',
	diff_json TEXT NOT NULL DEFAULT '',
	error TEXT NOT NULL DEFAULT '',
	created_ts BIGINT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_comparison_run_id ON comparison (run_id);
CREATE INDEX IF NOT EXISTS idx_comparison_facility_id ON comparison (facility_id);
`

func (d *DB) Migrate(ctx context.Context) error {
	if _, err := d.db.ExecContext(ctx, schema); err != nil {
		return errors.Wrap(err, "failed to apply schema")
	}
	return nil
}

// placeholders builds the $1..$n list postgres expects.
type placeholders struct {
	n int
}

func (p *placeholders) next() string {
	p.n++
	return "$" + strconv.Itoa(p.n)
}
