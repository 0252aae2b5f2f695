// Playlens - Game Telemetry Analytics and Behavioral Prediction
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/playlens

package dataset

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"

	"github.com/goccy/go-json"
)

// LoadCSV builds a dataset snapshot from CSV data. The first record is the
// header; cells are sniffed into their most specific value kind. Short
// records pad with Null, long records drop trailing cells.
func LoadCSV(r io.Reader, mappings []ColumnMapping) (*Dataset, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1 // tolerate ragged exports
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err == io.EOF {
		return &Dataset{Mappings: mappings}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read csv header: %w", err)
	}

	var rows []Row
	for {
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read csv record %d: %w", len(rows)+2, err)
		}
		row := make(Row, len(header))
		for i, col := range header {
			if i < len(record) {
				row[col] = Sniff(record[i])
			} else {
				row[col] = Null
			}
		}
		rows = append(rows, row)
	}

	return &Dataset{Rows: rows, Mappings: mappings}, nil
}

// jsonRow is the wire shape of a single row: column name to untyped scalar.
type jsonRow map[string]any

// jsonEnvelope is the object form of a JSON upload: rows plus declared
// column mappings.
type jsonEnvelope struct {
	Rows     []jsonRow       `json:"rows"`
	Mappings []ColumnMapping `json:"mappings"`
}

// LoadJSON builds a dataset snapshot from JSON data. Two shapes are
// accepted: a bare array of row objects, or an envelope object with
// "rows" and optional "mappings". Scalar types map directly; nested
// objects and arrays collapse to Null (telemetry rows are flat by
// contract).
//
// Caller-declared mappings are kept ahead of envelope mappings, so they
// win when both declare the same canonical role.
func LoadJSON(r io.Reader, mappings []ColumnMapping) (*Dataset, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read json body: %w", err)
	}

	var raw []jsonRow
	if isJSONObject(data) {
		var env jsonEnvelope
		if err := json.Unmarshal(data, &env); err != nil {
			return nil, fmt.Errorf("decode json envelope: %w", err)
		}
		raw = env.Rows
		mappings = append(mappings, env.Mappings...)
	} else {
		if err := json.Unmarshal(data, &raw); err != nil {
			return nil, fmt.Errorf("decode json rows: %w", err)
		}
	}

	rows := make([]Row, 0, len(raw))
	for _, jr := range raw {
		row := make(Row, len(jr))
		for col, val := range jr {
			row[col] = fromJSONScalar(val)
		}
		rows = append(rows, row)
	}

	return &Dataset{Rows: rows, Mappings: mappings}, nil
}

// isJSONObject reports whether the first JSON token is an object open.
func isJSONObject(data []byte) bool {
	for _, b := range data {
		switch b {
		case ' ', '\t', '\r', '\n':
			continue
		case '{':
			return true
		default:
			return false
		}
	}
	return false
}

// ParseMappingSpec parses a comma-separated list of original=canonical
// column mapping pairs, the wire form used by the dataset upload query
// parameter (e.g. "account_ref=user_id,logged_at=timestamp"). An empty
// spec yields no mappings.
func ParseMappingSpec(spec string) ([]ColumnMapping, error) {
	spec = strings.TrimSpace(spec)
	if spec == "" {
		return nil, nil
	}

	pairs := strings.Split(spec, ",")
	mappings := make([]ColumnMapping, 0, len(pairs))
	for _, pair := range pairs {
		original, canonical, ok := strings.Cut(pair, "=")
		original = strings.TrimSpace(original)
		canonical = strings.TrimSpace(canonical)
		if !ok || original == "" || canonical == "" {
			return nil, fmt.Errorf("invalid column mapping %q: want original=canonical", strings.TrimSpace(pair))
		}
		mappings = append(mappings, ColumnMapping{
			OriginalName:  original,
			CanonicalName: canonical,
		})
	}
	return mappings, nil
}

func fromJSONScalar(val any) Value {
	switch v := val.(type) {
	case nil:
		return Null
	case float64:
		return Number(v)
	case string:
		return String(v)
	case bool:
		return Bool(v)
	default:
		return Null
	}
}
