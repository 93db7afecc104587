package unidash

import (
	"fmt"
	"strings"
)

// Absent is the sentinel shown when a card has no backing row.
const Absent = "N/A"

// KPI holds the three summary cards: org-wide usage plus the highest
// and lowest rates among the non-manager rows.
type KPI struct {
	OrgPct       string
	OrgCount     string
	HighestPct   string
	HighestName  string
	HighestCount string
	LowestPct    string
	LowestName   string
	LowestCount  string
}

// ComputeKPI derives the summary cards. The org row is the first row
// whose name equals manager exactly; max and min run over the
// remaining rows, with unparsable percentages counting as 0. Missing
// data yields the Absent sentinel, never an error.
func ComputeKPI(rows []UsageRow, manager string) KPI {
	kpi := KPI{
		OrgPct: Absent, OrgCount: Absent,
		HighestPct: Absent, HighestName: Absent, HighestCount: Absent,
		LowestPct: Absent, LowestName: Absent, LowestCount: Absent,
	}

	var org *UsageRow
	var pdm []UsageRow
	for i := range rows {
		if rows[i].Name == manager {
			if org == nil {
				org = &rows[i]
			}
		} else {
			pdm = append(pdm, rows[i])
		}
	}

	if org != nil {
		kpi.OrgPct = org.Usage
		kpi.OrgCount = org.Headcount
	}

	if len(pdm) > 0 {
		hi, lo := pdm[0], pdm[0]
		for _, row := range pdm[1:] {
			if PercentOrZero(row.Usage) > PercentOrZero(hi.Usage) {
				hi = row
			}
			if PercentOrZero(row.Usage) < PercentOrZero(lo.Usage) {
				lo = row
			}
		}
		kpi.HighestPct = hi.Usage
		kpi.HighestName = hi.Name
		kpi.HighestCount = hi.Headcount
		kpi.LowestPct = lo.Usage
		kpi.LowestName = lo.Name
		kpi.LowestCount = lo.Headcount
	}

	return kpi
}

// BarSeries feeds the usage bar chart: one entry per row, manager
// included.
type BarSeries struct {
	Labels []string
	Values []int
	Colors []string
}

// Bars builds the bar-chart series. The " (Ads)" suffix breaks onto
// its own line so the label fits under the bar; unparsable
// percentages chart as 0.
func Bars(rows []UsageRow) BarSeries {
	s := BarSeries{
		Labels: make([]string, len(rows)),
		Values: make([]int, len(rows)),
		Colors: make([]string, len(rows)),
	}
	for i, row := range rows {
		s.Labels[i] = strings.ReplaceAll(row.Name, " (Ads)", "\n(Ads)")
		s.Values[i] = PercentOrZero(row.Usage)
		s.Colors[i] = ChartColor(row.Usage)
	}
	return s
}

// DoughnutSeries feeds the team-size chart: non-manager rows only.
type DoughnutSeries struct {
	Labels []string
	Values []int
}

// Doughnut builds the team-size series, labeling each slice
// "Name (count)". Non-numeric headcounts chart as 0.
func Doughnut(rows []UsageRow, manager string) DoughnutSeries {
	var s DoughnutSeries
	for _, row := range rows {
		if row.Name == manager {
			continue
		}
		s.Labels = append(s.Labels, fmt.Sprintf("%s (%s)", row.Name, row.Headcount))
		s.Values = append(s.Values, countOrZero(row.Headcount))
	}
	return s
}
