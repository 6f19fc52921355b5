package defect

import (
	"fmt"
	"strings"

	"scada-recon/internal/recon"
)

// evalCriterion evaluates one leaf against one row. Null handling mirrors
// the comparison tooling exactly: equality never matches a null, inequality
// always does, and the blank-vs-null distinction is preserved.
func evalCriterion(t *recon.Table, row int, c Criterion) (bool, error) {
	switch c.Op {
	case OpEq:
		v, err := t.At(row, c.Columns)
		if err != nil {
			return false, err
		}
		return v.Equal(c.Value), nil

	case OpNe:
		v, err := t.At(row, c.Columns)
		if err != nil {
			return false, err
		}
		if v.IsNull() {
			return true, nil
		}
		return !v.Equal(c.Value), nil

	case OpIn:
		v, err := t.At(row, c.Columns)
		if err != nil {
			return false, err
		}
		for _, candidate := range c.Values {
			if v.Equal(candidate) {
				return true, nil
			}
		}
		return false, nil

	case OpEndsWith:
		v, err := t.At(row, c.Columns)
		if err != nil {
			return false, err
		}
		if v.IsNull() || v.Kind() != recon.KindString {
			return false, nil
		}
		return strings.HasSuffix(v.Str(), c.Value.Str()), nil

	case OpNotNA:
		v, err := t.At(row, c.Columns)
		if err != nil {
			return false, err
		}
		return !v.IsNull(), nil

	case OpNotNAOrBlank:
		v, err := t.At(row, c.Columns)
		if err != nil {
			return false, err
		}
		return !v.IsNull() && !v.IsBlank(), nil

	case OpIsNAOrBlank:
		v, err := t.At(row, c.Columns)
		if err != nil {
			return false, err
		}
		return v.IsNull() || v.IsBlank(), nil

	case OpIsNullOrZero:
		v, err := t.At(row, c.Columns)
		if err != nil {
			return false, err
		}
		return v.IsNull() || v.IsZero(), nil

	case OpAnyNotNA:
		vals, err := columnValues(t, row, c.Columns)
		if err != nil {
			return false, err
		}
		for _, v := range vals {
			if !v.IsNull() {
				return true, nil
			}
		}
		return false, nil

	case OpAllNull:
		vals, err := columnValues(t, row, c.Columns)
		if err != nil {
			return false, err
		}
		for _, v := range vals {
			if !v.IsNull() {
				return false, nil
			}
		}
		return true, nil

	case OpAnyZero:
		vals, err := columnValues(t, row, c.Columns)
		if err != nil {
			return false, err
		}
		for _, v := range vals {
			if v.IsZero() {
				return true, nil
			}
		}
		return false, nil

	case OpNoZeros:
		vals, err := columnValues(t, row, c.Columns)
		if err != nil {
			return false, err
		}
		for _, v := range vals {
			if v.IsZero() {
				return false, nil
			}
		}
		return true, nil

	case OpNotNAPair:
		for _, pair := range strings.Split(c.Columns, "|") {
			vals, err := columnValues(t, row, pair)
			if err != nil {
				return false, err
			}
			for _, v := range vals {
				if v.IsNull() {
					return false, nil
				}
			}
		}
		return true, nil

	case OpCtrlTestOK:
		for _, group := range strings.Split(c.Columns, "|") {
			cols := strings.Split(group, ",")
			if len(cols) != 3 {
				return false, fmt.Errorf("defect: ctrl_test_ok needs addr,health,result column triples, got %q", group)
			}
			addr, err := t.At(row, strings.TrimSpace(cols[0]))
			if err != nil {
				return false, err
			}
			health, err := t.At(row, strings.TrimSpace(cols[1]))
			if err != nil {
				return false, err
			}
			result, err := t.At(row, strings.TrimSpace(cols[2]))
			if err != nil {
				return false, err
			}
			if addr.IsNull() || !health.Equal(recon.String("GOOD")) || !result.Equal(recon.String("OK")) {
				return false, nil
			}
		}
		return true, nil

	case OpAlwaysFalse:
		return false, nil
	}

	return false, fmt.Errorf("defect: unknown operator %q", c.Op)
}

func columnValues(t *recon.Table, row int, cols string) ([]recon.Value, error) {
	names := strings.Split(cols, ",")
	out := make([]recon.Value, 0, len(names))
	for _, name := range names {
		v, err := t.At(row, strings.TrimSpace(name))
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}
