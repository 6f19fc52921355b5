package defect

import (
	"fmt"

	"scada-recon/internal/recon"
)

// Node is one element of a predicate tree: either a Criterion leaf or a
// nested Group.
type Node interface {
	node()
}

// Operator names one predicate operation over a row's columns.
type Operator string

const (
	OpEq           Operator = "=="
	OpNe           Operator = "!="
	OpIn           Operator = "in"
	OpEndsWith     Operator = "endswith"
	OpNotNA        Operator = "notna"
	OpNotNAOrBlank Operator = "notna_or_blank"
	OpIsNAOrBlank  Operator = "isna_or_blank"
	OpIsNullOrZero Operator = "isnull_or_zero"
	OpAnyNotNA     Operator = "any_notna"
	OpAllNull      Operator = "all_null"
	OpAnyZero      Operator = "any_zero"
	OpNoZeros      Operator = "no_zeros"
	OpNotNAPair    Operator = "notna_pair"
	OpCtrlTestOK   Operator = "ctrl_test_ok"
	OpAlwaysFalse  Operator = "always_false"
)

// Valid reports whether o is a known operator.
func (o Operator) Valid() bool {
	switch o {
	case OpEq, OpNe, OpIn, OpEndsWith, OpNotNA, OpNotNAOrBlank, OpIsNAOrBlank,
		OpIsNullOrZero, OpAnyNotNA, OpAllNull, OpAnyZero, OpNoZeros,
		OpNotNAPair, OpCtrlTestOK, OpAlwaysFalse:
		return true
	}
	return false
}

// Criterion is a predicate leaf: one operator over one column, or over a
// column list for the multi-column operators (comma-separated, with |
// separating groups for the paired operators). Value carries the literal
// for the comparison operators; Values carries the set for in.
type Criterion struct {
	Columns string
	Op      Operator
	Value   recon.Value
	Values  []recon.Value
}

func (Criterion) node() {}

// Combinator folds group children together.
type Combinator string

const (
	CombineAnd Combinator = "and"
	CombineOr  Combinator = "or"
)

// Valid reports whether c is a known combinator.
func (c Combinator) Valid() bool {
	return c == CombineAnd || c == CombineOr
}

// Group combines child nodes with one combinator. An empty group evaluates
// to the combinator's neutral element.
type Group struct {
	CombineWith Combinator
	Children    []Node
}

func (Group) node() {}

// Rule is one named defect predicate. Evaluation appends a boolean column
// named Name; columns on RequiredColumns are defaulted to blank when a
// source did not deliver them, instead of failing the run.
type Rule struct {
	Name            string
	Title           string
	RequiredColumns []string
	Root            Group
}

// Validate rejects unknown operators and combinators anywhere in the tree.
// Unknown operators are a programming error, not a data error, so this runs
// before any evaluation.
func (r Rule) Validate() error {
	if r.Name == "" {
		return fmt.Errorf("defect: rule with empty name")
	}
	return validateNode(r.Name, r.Root)
}

func validateNode(rule string, n Node) error {
	switch v := n.(type) {
	case Criterion:
		if !v.Op.Valid() {
			return fmt.Errorf("defect: rule %s: unknown operator %q", rule, v.Op)
		}
	case Group:
		if !v.CombineWith.Valid() {
			return fmt.Errorf("defect: rule %s: unknown combinator %q", rule, v.CombineWith)
		}
		for _, c := range v.Children {
			if err := validateNode(rule, c); err != nil {
				return err
			}
		}
	default:
		return fmt.Errorf("defect: rule %s: unknown node type %T", rule, n)
	}
	return nil
}
