// Playlens - Game Telemetry Analytics and Behavioral Prediction
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/playlens

package dataset

// Row maps raw column names to tagged scalar values.
// Rows are immutable once loaded; extraction never mutates them.
type Row map[string]Value

// Get returns the value for a column, Null if absent.
func (r Row) Get(column string) Value {
	if column == "" {
		return Null
	}
	if v, ok := r[column]; ok {
		return v
	}
	return Null
}

// ColumnMapping binds a raw column name to a canonical semantic role.
type ColumnMapping struct {
	OriginalName  string `json:"original_name"`
	CanonicalName string `json:"canonical_name"`
}

// Dataset is an immutable snapshot of rows plus declared column mappings.
type Dataset struct {
	Rows     []Row           `json:"rows"`
	Mappings []ColumnMapping `json:"mappings"`
}

// Len returns the number of rows.
func (d *Dataset) Len() int {
	if d == nil {
		return 0
	}
	return len(d.Rows)
}

// Columns returns the column names of the first row, or nil for an empty
// dataset. Telemetry exports are rectangular in practice, so the first row
// is representative.
func (d *Dataset) Columns() []string {
	if d.Len() == 0 {
		return nil
	}
	cols := make([]string, 0, len(d.Rows[0]))
	for name := range d.Rows[0] {
		cols = append(cols, name)
	}
	return cols
}
