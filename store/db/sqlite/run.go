package sqlite

import (
	"context"
	"strings"

	"github.com/pkg/errors"

	"github.com/datagora/openhours/store"
)

func (d *DB) CreateRun(ctx context.Context, create *store.Run) (*store.Run, error) {
	stmt := `
		INSERT INTO run (id, started_ts, finished_ts, total, identical, different, not_comparable, failed, notes)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	if _, err := d.db.ExecContext(ctx, stmt,
		create.ID,
		create.StartedTs,
		create.FinishedTs,
		create.Total,
		create.Identical,
		create.Different,
		create.NotComparable,
		create.Failed,
		create.Notes,
	); err != nil {
		return nil, errors.Wrap(err, "failed to create run")
	}
	return create, nil
}

func (d *DB) UpdateRun(ctx context.Context, update *store.UpdateRun) error {
	set, args := []string{}, []any{}
	if v := update.FinishedTs; v != nil {
		set, args = append(set, "finished_ts = ?"), append(args, *v)
	}
	if v := update.Total; v != nil {
		set, args = append(set, "total = ?"), append(args, *v)
	}
	if v := update.Identical; v != nil {
		set, args = append(set, "identical = ?"), append(args, *v)
	}
	if v := update.Different; v != nil {
		set, args = append(set, "different = ?"), append(args, *v)
	}
	if v := update.NotComparable; v != nil {
		set, args = append(set, "not_comparable = ?"), append(args, *v)
	}
	if v := update.Failed; v != nil {
		set, args = append(set, "failed = ?"), append(args, *v)
	}
	if v := update.Notes; v != nil {
		set, args = append(set, "notes = ?"), append(args, *v)
	}
	if len(set) == 0 {
		return nil
	}
	args = append(args, update.ID)

	stmt := "UPDATE run SET " + strings.Join(set, ", ") + " WHERE id = ?"
	if _, err := d.db.ExecContext(ctx, stmt, args...); err != nil {
		return errors.Wrap(err, "failed to update run")
	}
	return nil
}

func (d *DB) ListRuns(ctx context.Context, find *store.FindRun) ([]*store.Run, error) {
	where, args := []string{"1 = 1"}, []any{}
	if v := find.ID; v != nil {
		where, args = append(where, "id = ?"), append(args, *v)
	}

	query := `
		SELECT id, started_ts, finished_ts, total, identical, different, not_comparable, failed, notes
		FROM run
		WHERE ` + strings.Join(where, " AND ") + `
		ORDER BY started_ts DESC`
	if v := find.Limit; v != nil {
		query += " LIMIT ?"
		args = append(args, *v)
	}

	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list runs")
	}
	defer rows.Close()

	list := []*store.Run{}
	for rows.Next() {
		run := &store.Run{}
		if err := rows.Scan(
			&run.ID,
			&run.StartedTs,
			&run.FinishedTs,
			&run.Total,
			&run.Identical,
			&run.Different,
			&run.NotComparable,
			&run.Failed,
			&run.Notes,
		); err != nil {
			return nil, errors.Wrap(err, "failed to scan run")
		}
		list = append(list, run)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "failed to iterate runs")
	}
	return list, nil
}
