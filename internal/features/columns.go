// Playlens - Game Telemetry Analytics and Behavioral Prediction
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/playlens

package features

import (
	"strings"

	"github.com/tomtom215/playlens/internal/dataset"
)

// Canonical column roles the extractor understands.
const (
	RoleUserID    = "user_id"
	RoleTimestamp = "timestamp"
	RoleRevenue   = "revenue"
	RoleLevel     = "level"
	RoleDuration  = "duration"
	RoleEventType = "event_type"
	RoleResult    = "result"
)

// defaultAliases lists the raw column names commonly seen in game telemetry
// exports for each canonical role. Declared mappings always win over these.
var defaultAliases = map[string][]string{
	RoleUserID:    {"user_id", "userid", "player_id", "playerid", "uid", "user"},
	RoleTimestamp: {"timestamp", "ts", "time", "date", "event_time", "created_at"},
	RoleRevenue:   {"revenue", "amount", "price", "purchase_amount", "spend", "value"},
	RoleLevel:     {"level", "lvl", "stage", "world", "chapter"},
	RoleDuration:  {"duration", "session_length", "session_duration", "playtime", "length"},
	RoleEventType: {"event_type", "event", "type", "action", "event_name"},
	RoleResult:    {"result", "outcome", "status"},
}

// Resolver maps canonical roles to raw column names. It is built once per
// extractor instance and never mutated afterward.
type Resolver struct {
	// resolved caches role -> raw column name ("" when absent everywhere).
	resolved map[string]string
}

// NewResolver builds a resolver for the given dataset snapshot.
//
// Resolution order per role: declared mappings first, then the alias table,
// then a case-insensitive literal match against the first row's columns.
// A role with no matching column resolves to "".
func NewResolver(ds *dataset.Dataset) *Resolver {
	declared := make(map[string]string)
	if ds != nil {
		for _, m := range ds.Mappings {
			// First declaration for a role wins.
			if _, ok := declared[m.CanonicalName]; !ok && m.OriginalName != "" {
				declared[m.CanonicalName] = m.OriginalName
			}
		}
	}

	var columns []string
	lowered := make(map[string]string)
	if ds != nil {
		columns = ds.Columns()
		for _, c := range columns {
			if _, ok := lowered[strings.ToLower(c)]; !ok {
				lowered[strings.ToLower(c)] = c
			}
		}
	}

	resolved := make(map[string]string, len(defaultAliases))
	for role := range defaultAliases {
		resolved[role] = resolveRole(role, declared, lowered)
	}
	// Declared mappings may introduce roles outside the alias table.
	for role := range declared {
		if _, ok := resolved[role]; !ok {
			resolved[role] = resolveRole(role, declared, lowered)
		}
	}

	return &Resolver{resolved: resolved}
}

func resolveRole(role string, declared, lowered map[string]string) string {
	if raw, ok := declared[role]; ok {
		return raw
	}
	for _, alias := range defaultAliases[role] {
		if raw, ok := lowered[alias]; ok {
			return raw
		}
	}
	if raw, ok := lowered[strings.ToLower(role)]; ok {
		return raw
	}
	return ""
}

// Column returns the raw column name for a canonical role, "" when the role
// could not be resolved anywhere.
func (r *Resolver) Column(role string) string {
	return r.resolved[role]
}

// Has reports whether the role resolved to a real column.
func (r *Resolver) Has(role string) bool {
	return r.resolved[role] != ""
}
