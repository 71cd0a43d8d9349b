package dataset

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	"github.com/lemonberrylabs/exprtk/pkg/types"
)

// ParseDefinitions decodes either {"name": "source", ...}, applied in name
// order, or [{"name": ..., "expression": ...}, ...], applied in list order.
func ParseDefinitions(data []byte) ([]Definition, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil, errors.New("expressions is required")
	}

	if trimmed[0] == '[' {
		var defs []Definition
		if err := json.Unmarshal(trimmed, &defs); err != nil {
			return nil, fmt.Errorf("invalid expressions: %w", err)
		}
		return defs, nil
	}

	var byName map[string]string
	if err := json.Unmarshal(trimmed, &byName); err != nil {
		return nil, fmt.Errorf("invalid expressions: %w", err)
	}
	names := make([]string, 0, len(byName))
	for name := range byName {
		names = append(names, name)
	}
	sort.Strings(names)
	defs := make([]Definition, len(names))
	for i, name := range names {
		defs[i] = Definition{Name: name, Expression: byName[name]}
	}
	return defs, nil
}

// ParseSchema converts column type names such as "int" or "string".
func ParseSchema(names map[string]string) (Schema, error) {
	schema := make(Schema, len(names))
	for col, name := range names {
		typ, ok := types.ParseValueType(name)
		if !ok {
			return nil, fmt.Errorf("column %q has unknown type %q", col, name)
		}
		schema[col] = typ
	}
	return schema, nil
}

// AllValid reports whether no validation failed.
func AllValid(results []Validation) bool {
	for _, r := range results {
		if r.Error != nil {
			return false
		}
	}
	return true
}
