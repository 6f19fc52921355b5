package recon

import (
	"errors"
	"testing"
)

func twoByTwo(t *testing.T) *Table {
	t.Helper()
	tbl := NewTable("a", "b")
	if err := tbl.AppendRow(String("r0a"), String("r0b")); err != nil {
		t.Fatalf("AppendRow: %v", err)
	}
	if err := tbl.AppendRow(String("r1a"), Null()); err != nil {
		t.Fatalf("AppendRow: %v", err)
	}
	return tbl
}

func TestTableUnknownColumn(t *testing.T) {
	tbl := twoByTwo(t)
	if _, err := tbl.At(0, "nope"); !errors.Is(err, ErrUnknownColumn) {
		t.Errorf("At: got %v, want ErrUnknownColumn", err)
	}
	if err := tbl.Set(0, "nope", Null()); !errors.Is(err, ErrUnknownColumn) {
		t.Errorf("Set: got %v, want ErrUnknownColumn", err)
	}
	if err := tbl.SortByColumn("nope"); !errors.Is(err, ErrUnknownColumn) {
		t.Errorf("SortByColumn: got %v, want ErrUnknownColumn", err)
	}
}

func TestTableAppendRowArity(t *testing.T) {
	tbl := twoByTwo(t)
	if err := tbl.AppendRow(String("only one")); err == nil {
		t.Error("expected arity error")
	}
}

func TestTableAddColumn(t *testing.T) {
	tbl := twoByTwo(t)
	if err := tbl.AddColumn("c", []Value{Number(1), Number(2)}); err != nil {
		t.Fatalf("AddColumn: %v", err)
	}
	if err := tbl.AddColumn("c", []Value{Number(1), Number(2)}); err == nil {
		t.Error("duplicate column should be rejected")
	}
	if err := tbl.AddColumn("d", []Value{Number(1)}); err == nil {
		t.Error("short column should be rejected")
	}
	v, err := tbl.At(1, "c")
	if err != nil {
		t.Fatalf("At: %v", err)
	}
	if n, _ := v.Num(); n != 2 {
		t.Errorf("At(1, c) = %v, want 2", n)
	}
}

func TestTableSortIsStable(t *testing.T) {
	tbl := NewTable("key", "ord")
	for i, k := range []string{"b", "a", "b", "a"} {
		if err := tbl.AppendRow(String(k), Number(float64(i))); err != nil {
			t.Fatalf("AppendRow: %v", err)
		}
	}
	if err := tbl.SortByColumn("key"); err != nil {
		t.Fatalf("SortByColumn: %v", err)
	}
	var order []float64
	for i := 0; i < tbl.Len(); i++ {
		v, _ := tbl.At(i, "ord")
		n, _ := v.Num()
		order = append(order, n)
	}
	want := []float64{1, 3, 0, 2}
	for i := range want {
		if order[i] != want[i] {
			t.Fatalf("sort order %v, want %v", order, want)
		}
	}
}

func TestTableFilter(t *testing.T) {
	tbl := twoByTwo(t)
	out := tbl.Filter(func(i int) bool {
		v, _ := tbl.At(i, "b")
		return !v.IsNull()
	})
	if out.Len() != 1 {
		t.Fatalf("filtered to %d rows, want 1", out.Len())
	}
	v, _ := out.At(0, "a")
	if v.Str() != "r0a" {
		t.Errorf("kept row %q, want r0a", v.Str())
	}
	// The source is untouched.
	if tbl.Len() != 2 {
		t.Errorf("source table mutated to %d rows", tbl.Len())
	}
}

func TestTableEqual(t *testing.T) {
	a, b := twoByTwo(t), twoByTwo(t)
	if !a.Equal(b) {
		t.Error("identical tables should be equal")
	}
	if err := b.Set(1, "b", String("x")); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if a.Equal(b) {
		t.Error("null vs value cell should differ")
	}
}
