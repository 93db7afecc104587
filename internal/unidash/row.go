// Package unidash models the "Manager and Recursive Reports" table
// scraped from the UniDash one-pager and the metrics derived from it.
package unidash

import (
	"encoding/json"
	"fmt"
	"os"
)

// UsageRow is one table row as extracted from the page. Usage keeps
// the literal cell text ("92%"); Headcount keeps the raw count cell.
// JSON field names match the in-page extraction script.
type UsageRow struct {
	Name      string `json:"name"`
	Pillar    string `json:"pillar"`
	Function  string `json:"func"`
	AllocArea string `json:"allocArea"`
	TeamGroup string `json:"teamGroup"`
	Usage     string `json:"l4_7"`
	Headcount string `json:"empCount"`
}

// SaveRows writes rows as JSON, for offline re-rendering.
func SaveRows(path string, rows []UsageRow) error {
	data, err := json.MarshalIndent(rows, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// LoadRows reads rows previously written by SaveRows.
func LoadRows(path string) ([]UsageRow, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var rows []UsageRow
	if err := json.Unmarshal(data, &rows); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return rows, nil
}
