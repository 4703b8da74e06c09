package entities

import "strings"

// ColumnAliases maps a canonical column name to the other spellings under
// which upstream rows may carry it.
type ColumnAliases map[string][]string

// Normalize returns a copy of row keyed by canonical column names. For each
// canonical column the canonical name is tried first and then each alias in
// order; matching ignores case. Columns with no alias entry are copied
// unchanged.
func (a ColumnAliases) Normalize(row map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(row))
	claimed := make(map[string]bool)

	for column := range a {
		if v, key, ok := a.find(row, column); ok {
			out[column] = v
			claimed[key] = true
		}
	}
	for k, v := range row {
		if !claimed[k] {
			if _, exists := out[k]; !exists {
				out[k] = v
			}
		}
	}
	return out
}

func (a ColumnAliases) find(row map[string]interface{}, column string) (interface{}, string, bool) {
	for _, name := range append([]string{column}, a[column]...) {
		if v, ok := row[name]; ok {
			return v, name, true
		}
		for k, v := range row {
			if strings.EqualFold(k, name) {
				return v, k, true
			}
		}
	}
	return nil, "", false
}
