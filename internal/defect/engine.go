package defect

import (
	"errors"
	"fmt"
	"log"

	"scada-recon/internal/recon"
)

// Option configures an Engine.
type Option func(*Engine)

// WithMatchObserver registers a callback invoked with the matched row count
// of each evaluated rule.
func WithMatchObserver(fn func(rule string, matches int)) Option {
	return func(e *Engine) { e.observe = fn }
}

// Engine evaluates a rule library over a merged table, appending one boolean
// column per rule.
type Engine struct {
	logger  *log.Logger
	observe func(rule string, matches int)
}

// NewEngine creates a rule engine.
func NewEngine(logger *log.Logger, opts ...Option) (*Engine, error) {
	if logger == nil {
		return nil, errors.New("defect: logger is required")
	}
	e := &Engine{logger: logger}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// Apply validates and evaluates the rules in order. Rules only read existing
// columns and append their own, so earlier rule columns are visible to later
// rules; the any-defect composition relies on this.
func (e *Engine) Apply(t *recon.Table, rules []Rule) error {
	for _, r := range rules {
		if err := r.Validate(); err != nil {
			return err
		}
	}
	for _, r := range rules {
		for _, col := range r.RequiredColumns {
			if t.HasColumn(col) {
				continue
			}
			e.logger.Printf("defect: rule %s expects column %q which no source delivered, defaulting to blank", r.Name, col)
			// Blank, not null: a source that carried the column but had
			// nothing to say would deliver empty strings, and null flips
			// the result of every inequality criterion.
			blanks := make([]recon.Value, t.Len())
			for i := range blanks {
				blanks[i] = recon.String("")
			}
			if err := t.AddColumn(col, blanks); err != nil {
				return err
			}
		}

		vals := make([]recon.Value, t.Len())
		matches := 0
		for i := 0; i < t.Len(); i++ {
			ok, err := evalNode(t, i, r.Root)
			if err != nil {
				return fmt.Errorf("defect: rule %s: %w", r.Name, err)
			}
			vals[i] = recon.Bool(ok)
			if ok {
				matches++
			}
		}
		if err := t.AddColumn(r.Name, vals); err != nil {
			return err
		}
		e.logger.Printf("defect: %s (%s): %d matching rows", r.Name, r.Title, matches)
		if e.observe != nil {
			e.observe(r.Name, matches)
		}
	}
	return nil
}

// evalNode evaluates one node depth-first. A group's result starts at the
// neutral element of its combinator and folds in each child.
func evalNode(t *recon.Table, row int, n Node) (bool, error) {
	switch v := n.(type) {
	case Criterion:
		return evalCriterion(t, row, v)
	case Group:
		result := v.CombineWith == CombineAnd
		for _, child := range v.Children {
			r, err := evalNode(t, row, child)
			if err != nil {
				return false, err
			}
			if v.CombineWith == CombineAnd {
				result = result && r
			} else {
				result = result || r
			}
		}
		return result, nil
	}
	return false, fmt.Errorf("defect: unknown node type %T", n)
}

// MatchCount re-counts the rows a previously evaluated rule matched.
func MatchCount(t *recon.Table, rule string) (int, error) {
	count := 0
	for i := 0; i < t.Len(); i++ {
		v, err := t.At(i, rule)
		if err != nil {
			return 0, err
		}
		if v.True() {
			count++
		}
	}
	return count, nil
}
