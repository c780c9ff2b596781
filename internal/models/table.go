package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
)

// Table is two-dimensional content: named columns and rows of stringified cells.
type Table struct {
	Columns []string   `json:"columns"`
	Rows    [][]string `json:"rows"`
}

// NewTable builds a Table from a header row and data rows.
func NewTable(columns []string, rows ...[]string) *Table {
	return &Table{Columns: columns, Rows: rows}
}

// Clone returns a deep copy of t.
func (t *Table) Clone() *Table {
	if t == nil {
		return nil
	}
	out := &Table{Columns: append([]string(nil), t.Columns...)}
	if t.Rows != nil {
		out.Rows = make([][]string, len(t.Rows))
		for i, row := range t.Rows {
			out.Rows[i] = append([]string(nil), row...)
		}
	}
	return out
}

// UnmarshalJSON accepts scalar cells of any JSON type and stores them as strings.
func (t *Table) UnmarshalJSON(data []byte) error {
	var raw struct {
		Columns []any   `json:"columns"`
		Rows    [][]any `json:"rows"`
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(&raw); err != nil {
		return err
	}
	cols := make([]string, len(raw.Columns))
	for i, c := range raw.Columns {
		s, err := cellString(c)
		if err != nil {
			return fmt.Errorf("column %d: %w", i, err)
		}
		cols[i] = s
	}
	rows := make([][]string, len(raw.Rows))
	for i, r := range raw.Rows {
		rows[i] = make([]string, len(r))
		for j, c := range r {
			s, err := cellString(c)
			if err != nil {
				return fmt.Errorf("row %d cell %d: %w", i, j, err)
			}
			rows[i][j] = s
		}
	}
	t.Columns = cols
	t.Rows = rows
	return nil
}

func cellString(c any) (string, error) {
	switch v := c.(type) {
	case nil:
		return "", nil
	case string:
		return v, nil
	case json.Number:
		return v.String(), nil
	case bool:
		return strconv.FormatBool(v), nil
	case float64:
		return strconv.FormatFloat(v, 'g', -1, 64), nil
	default:
		return "", fmt.Errorf("unsupported cell type %T", c)
	}
}
