package store_test

import (
	"context"
	"database/sql"
	"io"
	"log"
	"os"
	"testing"

	_ "github.com/jackc/pgx/v5/stdlib"

	"scada-recon/internal/recon"
	"scada-recon/internal/sources"
	"scada-recon/internal/store"
)

func openDB(t *testing.T) *sql.DB {
	t.Helper()
	dsn := os.Getenv("PG_DSN")
	if dsn == "" {
		t.Skip("PG_DSN not set")
	}
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestCache_SaveAndLoadRoundTrip(t *testing.T) {
	db := openDB(t)
	ctx := context.Background()
	logger := log.New(io.Discard, "", 0)

	cache, err := store.NewCache(db, logger)
	if err != nil {
		t.Fatalf("new cache: %v", err)
	}
	if err := cache.EnsureSchema(ctx); err != nil {
		t.Fatalf("ensure schema: %v", err)
	}

	scope := "rtu:CACHETEST"
	tbl := recon.NewTable("GenericPointAddress", "NumControls", "ReportANY", "Empty")
	rows := [][]recon.Value{
		{recon.String("[(BUSB1:12):3:6- SD]"), recon.Number(2), recon.Bool(false), recon.Null()},
		{recon.String(""), recon.Number(0), recon.Bool(true), recon.Null()},
	}
	for _, r := range rows {
		if err := tbl.AppendRow(r...); err != nil {
			t.Fatalf("append row: %v", err)
		}
	}

	if err := cache.Save(ctx, scope, tbl); err != nil {
		t.Fatalf("save: %v", err)
	}
	restored, found, err := cache.Load(ctx, scope)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if !found {
		t.Fatal("expected cached table")
	}
	if !tbl.Equal(restored) {
		t.Error("restored table differs from saved table")
	}

	// Saving again replaces, not appends.
	if err := cache.Save(ctx, scope, tbl); err != nil {
		t.Fatalf("second save: %v", err)
	}
	restored, _, err = cache.Load(ctx, scope)
	if err != nil {
		t.Fatalf("second load: %v", err)
	}
	if restored.Len() != tbl.Len() {
		t.Errorf("second load has %d rows, want %d", restored.Len(), tbl.Len())
	}

	if _, found, err := cache.Load(ctx, "rtu:NOPE"); err != nil || found {
		t.Errorf("load of unknown scope = found %v err %v, want miss", found, err)
	}
}

func TestLoadCommissioning(t *testing.T) {
	db := openDB(t)
	ctx := context.Background()

	if err := store.EnsureCommissioningSchema(ctx, db); err != nil {
		t.Fatalf("ensure schema: %v", err)
	}
	_, _ = db.ExecContext(ctx, "DELETE FROM test_results WHERE testset = $1", "ts-store-test")

	for _, test := range []string{sources.TestVisualCheck, sources.TestControlSent, sources.TestActionVerified} {
		_, err := db.ExecContext(ctx, `
INSERT INTO test_results (testset, test_date, username, control_address, test_name, result, comments, rtu_name)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`,
			"ts-store-test", "2026-08-01", "engineer", "[(BUSB1:12):3:10-1 C]", test, "OK", "", "BUSB1_RTU")
		if err != nil {
			t.Fatalf("seed test_results: %v", err)
		}
	}

	rows, err := store.LoadCommissioning(ctx, db)
	if err != nil {
		t.Fatalf("load commissioning: %v", err)
	}
	seen := map[string]bool{}
	for _, r := range rows {
		if r.Testset != "ts-store-test" {
			continue
		}
		if r.ControlAddress != "[(BUSB1:12):3:10-1 C]" || r.Result != "OK" {
			t.Errorf("unexpected row %+v", r)
		}
		seen[r.TestName] = true
	}
	if len(seen) != 3 {
		t.Errorf("saw %d test names, want 3", len(seen))
	}
}
