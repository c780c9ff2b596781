package filter

import (
	"fmt"

	"github.com/hyperjump/docstore/internal/models"
)

// Match reports whether doc satisfies e. A nil Expression matches everything.
func (e *Expression) Match(doc *models.Document) (bool, error) {
	if e == nil {
		return true, nil
	}
	switch e.Op {
	case OpAnd:
		for _, c := range e.Children {
			ok, err := c.Match(doc)
			if err != nil || !ok {
				return false, err
			}
		}
		return true, nil
	case OpOr:
		for _, c := range e.Children {
			ok, err := c.Match(doc)
			if err != nil {
				return false, err
			}
			if ok {
				return true, nil
			}
		}
		return false, nil
	case OpNot:
		if len(e.Children) != 1 {
			return false, fmt.Errorf("%w: $not takes exactly one operand", models.ErrInvalidInput)
		}
		ok, err := e.Children[0].Match(doc)
		if err != nil {
			return false, err
		}
		return !ok, nil
	default:
		return e.compare(doc)
	}
}

// Match parses conditions and evaluates them against doc.
func Match(conditions map[string]any, doc *models.Document) (bool, error) {
	e, err := Parse(conditions)
	if err != nil {
		return false, err
	}
	return e.Match(doc)
}

func (e *Expression) compare(doc *models.Document) (bool, error) {
	value, ok := doc.Field(e.Field)
	if !ok {
		// A missing field only satisfies the negated operators.
		return e.Op == OpNe || e.Op == OpNin, nil
	}
	switch e.Op {
	case OpEq:
		return equals(value, e.Operand), nil
	case OpNe:
		return !equals(value, e.Operand), nil
	case OpIn:
		return in(value, e.Operand), nil
	case OpNin:
		return !in(value, e.Operand), nil
	case OpGt, OpGte, OpLt, OpLte:
		return e.order(value)
	default:
		return false, fmt.Errorf("%w: %s", models.ErrUnknownFilterOperator, e.Op)
	}
}

// equals compares a field value with an operand. A list-valued field equals a
// scalar operand when it contains it.
func equals(value, operand models.Value) bool {
	if items, ok := value.AsList(); ok && operand.Kind() != models.KindList {
		for _, item := range items {
			if item.Equal(operand) {
				return true
			}
		}
		return false
	}
	return value.Equal(operand)
}

// in reports set membership. A list-valued field is a member when any of its
// elements is.
func in(value, operand models.Value) bool {
	set, _ := operand.AsList()
	if items, ok := value.AsList(); ok {
		for _, item := range items {
			if contains(set, item) {
				return true
			}
		}
		return false
	}
	return contains(set, value)
}

func contains(set []models.Value, v models.Value) bool {
	for _, s := range set {
		if s.Equal(v) {
			return true
		}
	}
	return false
}

func (e *Expression) order(value models.Value) (bool, error) {
	if value.IsNull() {
		return false, nil
	}
	c, ok := value.Compare(e.Operand)
	if !ok {
		return false, fmt.Errorf("%w: cannot order field %q (%s) against %s operand",
			models.ErrUnsupportedComparison, e.Field, value.Kind(), e.Operand.Kind())
	}
	switch e.Op {
	case OpGt:
		return c > 0, nil
	case OpGte:
		return c >= 0, nil
	case OpLt:
		return c < 0, nil
	default:
		return c <= 0, nil
	}
}
