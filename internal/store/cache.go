package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"

	"scada-recon/internal/recon"
)

// Cache persists merged tables between runs, keyed by scope, so report
// regeneration does not have to re-read every source extract.
type Cache struct {
	db     *sql.DB
	logger *log.Logger
}

// NewCache constructs a cache over an open database handle.
func NewCache(db *sql.DB, logger *log.Logger) (*Cache, error) {
	if db == nil {
		return nil, errors.New("store: nil db")
	}
	if logger == nil {
		return nil, errors.New("store: logger is required")
	}
	return &Cache{db: db, logger: logger}, nil
}

// EnsureSchema creates the cache tables when they do not exist yet.
func (c *Cache) EnsureSchema(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS merged_tables (
	scope      text PRIMARY KEY,
	row_count  integer NOT NULL,
	created_at timestamptz NOT NULL DEFAULT now()
)`,
		`CREATE TABLE IF NOT EXISTS merged_columns (
	scope text NOT NULL,
	ord   integer NOT NULL,
	name  text NOT NULL,
	PRIMARY KEY (scope, ord)
)`,
		`CREATE TABLE IF NOT EXISTS merged_cells (
	scope   text NOT NULL,
	row_ix  integer NOT NULL,
	col_ord integer NOT NULL,
	kind    smallint NOT NULL,
	str_val text,
	num_val double precision,
	bool_val boolean,
	PRIMARY KEY (scope, row_ix, col_ord)
)`,
	}
	for _, s := range stmts {
		if _, err := c.db.ExecContext(ctx, s); err != nil {
			return fmt.Errorf("store: ensure schema: %w", err)
		}
	}
	return nil
}

// Save replaces the cached table for one scope. Null cells are not stored;
// Load restores them implicitly.
func (c *Cache) Save(ctx context.Context, scope string, t *recon.Table) error {
	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	for _, del := range []string{
		"DELETE FROM merged_cells WHERE scope = $1",
		"DELETE FROM merged_columns WHERE scope = $1",
		"DELETE FROM merged_tables WHERE scope = $1",
	} {
		if _, err := tx.ExecContext(ctx, del, scope); err != nil {
			_ = tx.Rollback()
			return err
		}
	}

	if _, err := tx.ExecContext(ctx,
		"INSERT INTO merged_tables (scope, row_count) VALUES ($1, $2)", scope, t.Len()); err != nil {
		_ = tx.Rollback()
		return err
	}
	cols := t.Columns()
	for i, name := range cols {
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO merged_columns (scope, ord, name) VALUES ($1, $2, $3)", scope, i, name); err != nil {
			_ = tx.Rollback()
			return err
		}
	}

	for r := 0; r < t.Len(); r++ {
		for i, name := range cols {
			v, err := t.At(r, name)
			if err != nil {
				_ = tx.Rollback()
				return err
			}
			if v.IsNull() {
				continue
			}
			var str sql.NullString
			var num sql.NullFloat64
			var b sql.NullBool
			switch v.Kind() {
			case recon.KindString:
				str = sql.NullString{String: v.Str(), Valid: true}
			case recon.KindNumber:
				n, _ := v.Num()
				num = sql.NullFloat64{Float64: n, Valid: true}
			case recon.KindBool:
				b = sql.NullBool{Bool: v.True(), Valid: true}
			}
			if _, err := tx.ExecContext(ctx, `
INSERT INTO merged_cells (scope, row_ix, col_ord, kind, str_val, num_val, bool_val)
VALUES ($1,$2,$3,$4,$5,$6,$7)`, scope, r, i, int(v.Kind()), str, num, b); err != nil {
				_ = tx.Rollback()
				return err
			}
		}
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	c.logger.Printf("store: cached %d rows for scope %s", t.Len(), scope)
	return nil
}

// Load restores the cached table for one scope. found is false when nothing
// was cached.
func (c *Cache) Load(ctx context.Context, scope string) (*recon.Table, bool, error) {
	var rowCount int
	err := c.db.QueryRowContext(ctx,
		"SELECT row_count FROM merged_tables WHERE scope = $1", scope).Scan(&rowCount)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}

	rows, err := c.db.QueryContext(ctx,
		"SELECT name FROM merged_columns WHERE scope = $1 ORDER BY ord ASC", scope)
	if err != nil {
		return nil, false, err
	}
	defer rows.Close()
	var cols []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, false, err
		}
		cols = append(cols, name)
	}
	if err := rows.Err(); err != nil {
		return nil, false, err
	}
	if len(cols) == 0 {
		return nil, false, fmt.Errorf("store: scope %s cached with no columns", scope)
	}

	t := recon.NewTable(cols...)
	empty := make([]recon.Value, len(cols))
	for r := 0; r < rowCount; r++ {
		if err := t.AppendRow(empty...); err != nil {
			return nil, false, err
		}
	}

	cells, err := c.db.QueryContext(ctx, `
SELECT row_ix, col_ord, kind, str_val, num_val, bool_val
FROM merged_cells WHERE scope = $1`, scope)
	if err != nil {
		return nil, false, err
	}
	defer cells.Close()
	for cells.Next() {
		var r, ord, kind int
		var str sql.NullString
		var num sql.NullFloat64
		var b sql.NullBool
		if err := cells.Scan(&r, &ord, &kind, &str, &num, &b); err != nil {
			return nil, false, err
		}
		if ord < 0 || ord >= len(cols) || r < 0 || r >= rowCount {
			return nil, false, fmt.Errorf("store: scope %s has cell outside table bounds", scope)
		}
		var v recon.Value
		switch recon.Kind(kind) {
		case recon.KindString:
			v = recon.String(str.String)
		case recon.KindNumber:
			v = recon.Number(num.Float64)
		case recon.KindBool:
			v = recon.Bool(b.Bool)
		default:
			return nil, false, fmt.Errorf("store: scope %s has cell with unknown kind %d", scope, kind)
		}
		if err := t.Set(r, cols[ord], v); err != nil {
			return nil, false, err
		}
	}
	if err := cells.Err(); err != nil {
		return nil, false, err
	}
	c.logger.Printf("store: restored %d rows for scope %s", rowCount, scope)
	return t, true, nil
}
