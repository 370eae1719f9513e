package sqlite

import (
	"context"
	"strings"

	"github.com/pkg/errors"

	"github.com/datagora/openhours/store"
)

func (d *DB) CreateComparison(ctx context.Context, create *store.ComparisonRecord) (*store.ComparisonRecord, error) {
	stmt := `
		INSERT INTO comparison (
			uid, run_id, facility_id, name, facility_type, url,
			fetch_status, markdown, extracted_json, encoded_osm, reference_osm,
			verdict, diff_json, error, created_ts
		)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	if _, err := d.db.ExecContext(ctx, stmt,
		create.UID,
		create.RunID,
		create.FacilityID,
		create.Name,
		create.FacilityType,
		create.URL,
		create.FetchStatus,
		create.Markdown,
		create.ExtractedJSON,
		create.EncodedOSM,
		create.ReferenceOSM,
		create.Verdict,
		create.DiffJSON,
		create.Error,
		create.CreatedTs,
	); err != nil {
		return nil, errors.Wrap(err, "failed to create comparison")
	}
	return create, nil
}

func (d *DB) ListComparisons(ctx context.Context, find *store.FindComparison) ([]*store.ComparisonRecord, error) {
	where, args := []string{"1 = 1"}, []any{}
	if v := find.UID; v != nil {
		where, args = append(where, "uid = ?"), append(args, *v)
	}
	if v := find.RunID; v != nil {
		where, args = append(where, "run_id = ?"), append(args, *v)
	}
	if v := find.FacilityID; v != nil {
		where, args = append(where, "facility_id = ?"), append(args, *v)
	}
	if v := find.FacilityType; v != nil {
		where, args = append(where, "facility_type = ?"), append(args, *v)
	}
	if v := find.Verdict; v != nil {
		where, args = append(where, "verdict = ?"), append(args, *v)
	}

	query := `
		SELECT
			uid, run_id, facility_id, name, facility_type, url,
			fetch_status, markdown, extracted_json, encoded_osm, reference_osm,
			verdict, diff_json, error, created_ts
		FROM comparison
		WHERE ` + strings.Join(where, " AND ") + `
		ORDER BY created_ts DESC, uid`
	if v := find.Limit; v != nil {
		query += " LIMIT ?"
		args = append(args, *v)
	}

	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list comparisons")
	}
	defer rows.Close()

	list := []*store.ComparisonRecord{}
	for rows.Next() {
		record := &store.ComparisonRecord{}
		if err := rows.Scan(
			&record.UID,
			&record.RunID,
			&record.FacilityID,
			&record.Name,
			&record.FacilityType,
			&record.URL,
			&record.FetchStatus,
			&record.Markdown,
			&record.ExtractedJSON,
			&record.EncodedOSM,
			&record.ReferenceOSM,
			&record.Verdict,
			&record.DiffJSON,
			&record.Error,
			&record.CreatedTs,
		); err != nil {
			return nil, errors.Wrap(err, "failed to scan comparison")
		}
		list = append(list, record)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "failed to iterate comparisons")
	}
	return list, nil
}

func (d *DB) DeleteComparisons(ctx context.Context, delete *store.DeleteComparison) error {
	where, args := []string{"1 = 1"}, []any{}
	if v := delete.RunID; v != nil {
		where, args = append(where, "run_id = ?"), append(args, *v)
	}
	if v := delete.BeforeTs; v != nil {
		where, args = append(where, "created_ts < ?"), append(args, *v)
	}
	stmt := "DELETE FROM comparison WHERE " + strings.Join(where, " AND ")
	if _, err := d.db.ExecContext(ctx, stmt, args...); err != nil {
		return errors.Wrap(err, "failed to delete comparisons")
	}
	return nil
}
