package store

import (
	"context"
	"database/sql"
	"errors"

	"scada-recon/internal/sources"
)

// LoadCommissioning reads the manually recorded field-verification outcomes
// from the test_results table.
func LoadCommissioning(ctx context.Context, db *sql.DB) ([]sources.CommissioningRow, error) {
	if db == nil {
		return nil, errors.New("store: nil db")
	}
	rows, err := db.QueryContext(ctx, `
SELECT testset, test_date, username, control_address, test_name, result,
	comments, rtu_name, voltage_group, test_area, alias
FROM test_results
ORDER BY testset, control_address, test_name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []sources.CommissioningRow
	for rows.Next() {
		var r sources.CommissioningRow
		var comments, voltage, area, alias sql.NullString
		if err := rows.Scan(&r.Testset, &r.TestDate, &r.User, &r.ControlAddress,
			&r.TestName, &r.Result, &comments, &r.RTUName, &voltage, &area, &alias); err != nil {
			return nil, err
		}
		r.Comments = comments.String
		r.VoltageGroup = voltage.String
		r.TestArea = area.String
		r.Alias = alias.String
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// EnsureCommissioningSchema creates the test_results table when it does not
// exist yet.
func EnsureCommissioningSchema(ctx context.Context, db *sql.DB) error {
	if db == nil {
		return errors.New("store: nil db")
	}
	_, err := db.ExecContext(ctx, `
CREATE TABLE IF NOT EXISTS test_results (
	testset         text NOT NULL,
	test_date       text NOT NULL,
	username        text NOT NULL,
	control_address text NOT NULL,
	test_name       text NOT NULL,
	result          text NOT NULL,
	comments        text,
	rtu_name        text NOT NULL,
	voltage_group   text,
	test_area       text,
	alias           text,
	PRIMARY KEY (testset, control_address, test_name)
)`)
	return err
}
