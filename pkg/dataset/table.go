// Package dataset applies computed-column expressions to tabular rows.
package dataset

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/lemonberrylabs/exprtk/pkg/types"
)

// Column describes one column of a table.
type Column struct {
	Name string
	Type types.ValueType
}

// Table is an ordered set of columns and the rows holding their values.
// A row may omit a column; the missing cell reads as null.
type Table struct {
	Columns []Column
	Rows    []*types.OrderedMap
}

// Schema is a column name to type mapping.
type Schema map[string]types.ValueType

// Schema returns the table's column types.
func (t *Table) Schema() Schema {
	s := make(Schema, len(t.Columns))
	for _, c := range t.Columns {
		s[c.Name] = c.Type
	}
	return s
}

// MarshalJSON encodes the table as an array of row objects.
func (t *Table) MarshalJSON() ([]byte, error) {
	rows := make([]types.Value, len(t.Rows))
	for i, r := range t.Rows {
		rows[i] = types.NewMap(r)
	}
	return json.Marshal(rows)
}

// FromJSON decodes an array of JSON objects. Column order follows the keys
// of the first row, with keys first seen in later rows appended. A column's
// type is the type of its first non-null value.
func FromJSON(data []byte) (*Table, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	if err := expectDelim(dec, '['); err != nil {
		return nil, err
	}

	t := &Table{}
	index := make(map[string]int)
	for dec.More() {
		row, err := decodeRow(dec, len(t.Rows))
		if err != nil {
			return nil, err
		}
		for _, k := range row.Keys() {
			v, _ := row.Get(k)
			i, ok := index[k]
			if !ok {
				index[k] = len(t.Columns)
				t.Columns = append(t.Columns, Column{Name: k, Type: v.Type()})
				continue
			}
			if t.Columns[i].Type == types.TypeNull {
				t.Columns[i].Type = v.Type()
			}
		}
		t.Rows = append(t.Rows, row)
	}

	if err := expectDelim(dec, ']'); err != nil {
		return nil, err
	}
	return t, nil
}

// decodeRow reads one object, keeping its key order.
func decodeRow(dec *json.Decoder, n int) (*types.OrderedMap, error) {
	if err := expectDelim(dec, '{'); err != nil {
		return nil, fmt.Errorf("row %d: %w", n, err)
	}
	row := types.NewOrderedMap()
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", n, err)
		}
		key, ok := tok.(string)
		if !ok {
			return nil, fmt.Errorf("row %d: expected object key, got %v", n, tok)
		}
		var raw interface{}
		if err := dec.Decode(&raw); err != nil {
			return nil, fmt.Errorf("row %d, column %q: %w", n, key, err)
		}
		row.Set(key, types.ValueFromJSON(raw))
	}
	if err := expectDelim(dec, '}'); err != nil {
		return nil, fmt.Errorf("row %d: %w", n, err)
	}
	return row, nil
}

func expectDelim(dec *json.Decoder, want json.Delim) error {
	tok, err := dec.Token()
	if err != nil {
		return fmt.Errorf("reading rows: %w", err)
	}
	if d, ok := tok.(json.Delim); !ok || d != want {
		return fmt.Errorf("reading rows: expected %q, got %v", want, tok)
	}
	return nil
}
