// Package filter parses nested metadata filter expressions and evaluates them
// against documents.
//
// Parsing is a normalization pass: every shorthand form (bare scalar => $eq,
// bare list => $in, mapping without a logical key => $and, list under a
// logical key => that operator over the list) is desugared into a canonical
// tree of logical nodes and comparison leaves before evaluation.
package filter

import (
	"fmt"
	"sort"
	"strings"

	"github.com/hyperjump/docstore/internal/models"
)

// Operator is a logical or comparison operator.
type Operator string

const (
	OpAnd Operator = "$and"
	OpOr  Operator = "$or"
	OpNot Operator = "$not"

	OpEq  Operator = "$eq"
	OpNe  Operator = "$ne"
	OpIn  Operator = "$in"
	OpNin Operator = "$nin"
	OpGt  Operator = "$gt"
	OpGte Operator = "$gte"
	OpLt  Operator = "$lt"
	OpLte Operator = "$lte"
)

// IsLogical reports whether op combines sub-expressions.
func (op Operator) IsLogical() bool {
	return op == OpAnd || op == OpOr || op == OpNot
}

// IsComparison reports whether op compares a field against an operand.
func (op Operator) IsComparison() bool {
	switch op {
	case OpEq, OpNe, OpIn, OpNin, OpGt, OpGte, OpLt, OpLte:
		return true
	default:
		return false
	}
}

func (op Operator) ordering() bool {
	return op == OpGt || op == OpGte || op == OpLt || op == OpLte
}

// Expression is a node of a canonical filter tree. Logical nodes carry
// Children; comparison leaves carry Field and Operand.
type Expression struct {
	Op       Operator
	Children []*Expression
	Field    string
	Operand  models.Value
}

// String renders the canonical form, mainly for logs and test failures.
func (e *Expression) String() string {
	if e == nil {
		return "<all>"
	}
	if e.Op.IsLogical() {
		parts := make([]string, len(e.Children))
		for i, c := range e.Children {
			parts[i] = c.String()
		}
		return string(e.Op) + "(" + strings.Join(parts, ", ") + ")"
	}
	return fmt.Sprintf("%s %s %s", e.Field, e.Op, e.Operand.String())
}

// Parse normalizes conditions into a canonical Expression. An empty or nil
// mapping yields a nil Expression, which matches every document.
func Parse(conditions map[string]any) (*Expression, error) {
	if len(conditions) == 0 {
		return nil, nil
	}
	children, err := parseEntries(conditions)
	if err != nil {
		return nil, err
	}
	if len(children) == 1 {
		return children[0], nil
	}
	return &Expression{Op: OpAnd, Children: children}, nil
}

// parseEntries parses each key of a mapping as one clause, in sorted key order.
func parseEntries(m map[string]any) ([]*Expression, error) {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make([]*Expression, 0, len(keys))
	for _, k := range keys {
		e, err := parseClause(k, m[k])
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, nil
}

func parseClause(key string, value any) (*Expression, error) {
	op := Operator(key)
	switch {
	case op.IsLogical():
		return parseLogical(op, value)
	case op.IsComparison():
		return nil, fmt.Errorf("%w: %s must be nested under a field name", models.ErrUnknownFilterOperator, key)
	case strings.HasPrefix(key, "$"):
		return nil, fmt.Errorf("%w: %s", models.ErrUnknownFilterOperator, key)
	default:
		return parseField(key, value)
	}
}

func parseLogical(op Operator, value any) (*Expression, error) {
	var children []*Expression
	switch v := value.(type) {
	case map[string]any:
		parsed, err := parseEntries(v)
		if err != nil {
			return nil, err
		}
		children = parsed
	case []any:
		children = make([]*Expression, 0, len(v))
		for i, item := range v {
			m, ok := item.(map[string]any)
			if !ok {
				return nil, models.InvalidInputf("%s list element %d must be a mapping, got %T", op, i, item)
			}
			sub, err := Parse(m)
			if err != nil {
				return nil, err
			}
			if sub == nil {
				sub = &Expression{Op: OpAnd}
			}
			children = append(children, sub)
		}
	case []map[string]any:
		items := make([]any, len(v))
		for i := range v {
			items[i] = v[i]
		}
		return parseLogical(op, items)
	default:
		return nil, models.InvalidInputf("%s expects a mapping or a list of mappings, got %T", op, value)
	}
	if op == OpNot {
		return &Expression{Op: OpNot, Children: []*Expression{{Op: OpAnd, Children: children}}}, nil
	}
	return &Expression{Op: op, Children: children}, nil
}

func parseField(field string, value any) (*Expression, error) {
	m, ok := value.(map[string]any)
	if !ok {
		operand, err := models.ValueOf(value)
		if err != nil {
			return nil, fmt.Errorf("field %q: %w", field, err)
		}
		if operand.Kind() == models.KindList {
			return &Expression{Op: OpIn, Field: field, Operand: operand}, nil
		}
		return &Expression{Op: OpEq, Field: field, Operand: operand}, nil
	}

	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	leaves := make([]*Expression, 0, len(keys))
	for _, k := range keys {
		op := Operator(k)
		if !op.IsComparison() {
			return nil, fmt.Errorf("%w: %s on field %q", models.ErrUnknownFilterOperator, k, field)
		}
		leaf, err := comparison(field, op, m[k])
		if err != nil {
			return nil, err
		}
		leaves = append(leaves, leaf)
	}
	if len(leaves) == 1 {
		return leaves[0], nil
	}
	return &Expression{Op: OpAnd, Children: leaves}, nil
}

func comparison(field string, op Operator, raw any) (*Expression, error) {
	operand, err := models.ValueOf(raw)
	if err != nil {
		return nil, fmt.Errorf("field %q %s: %w", field, op, err)
	}
	switch {
	case op == OpIn || op == OpNin:
		if operand.Kind() != models.KindList {
			operand = models.List(operand)
		}
	case op.ordering():
		if !operand.Orderable() {
			return nil, fmt.Errorf("%w: %s on field %q needs a number, string or date, got %s",
				models.ErrUnsupportedComparison, op, field, operand.Kind())
		}
	}
	return &Expression{Op: op, Field: field, Operand: operand}, nil
}
