package unidash

import (
	"errors"
	"strings"
)

// ErrNoRowsMatched reports that none of the tracked names were found in
// the scraped table.
var ErrNoRowsMatched = errors.New("no rows matched the tracked names")

// Filter keeps the rows for the tracked people, in the order of the
// names list. A row matches a name when either string contains the
// other, case-insensitively; the first matching row wins per name and
// its Name field is normalized to the canonical form. People absent
// from the input are simply skipped.
func Filter(rows []UsageRow, names []string) []UsageRow {
	filtered := make([]UsageRow, 0, len(names))
	for _, name := range names {
		want := strings.ToLower(name)
		for _, row := range rows {
			got := strings.ToLower(row.Name)
			if strings.Contains(got, want) || strings.Contains(want, got) {
				row.Name = name
				filtered = append(filtered, row)
				break
			}
		}
	}
	return filtered
}

// Names returns the display names of rows, in order.
func Names(rows []UsageRow) []string {
	names := make([]string, len(rows))
	for i, row := range rows {
		names[i] = row.Name
	}
	return names
}
