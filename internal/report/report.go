// Package report renders the static dashboard HTML from filtered
// usage rows and publishes it atomically.
package report

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/ai4p/usagedash/internal/unidash"
)

//go:embed templates/*.html
var templateFS embed.FS

// Data is everything one render needs.
type Data struct {
	Manager     string
	Rows        []TableRow
	KPI         unidash.KPI
	Bar         unidash.BarSeries
	Doughnut    unidash.DoughnutSeries
	RetrievedAt string
	DataAsOf    string
	LiveReload  bool
}

// TableRow is the per-row view model for the detail table.
type TableRow struct {
	unidash.UsageRow
	Manager   bool
	Indent    template.CSS // chain indentation, empty for the manager row
	PillClass string
	BarStyle  template.CSS
}

// Renderer turns usage rows into the published HTML report.
type Renderer struct {
	tmpl       *template.Template
	manager    string
	liveReload bool
}

// NewRenderer parses the embedded template. The manager name selects
// the highlighted org row; liveReload controls the reload-on-publish
// script in the page footer.
func NewRenderer(manager string, liveReload bool) (*Renderer, error) {
	tmpl, err := template.New("").ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("parse report templates: %w", err)
	}
	return &Renderer{tmpl: tmpl, manager: manager, liveReload: liveReload}, nil
}

// Build assembles the template data for a render at now.
func (r *Renderer) Build(rows []unidash.UsageRow, now time.Time) Data {
	retrievedAt, dataAsOf := Stamps(now)
	d := Data{
		Manager:     r.manager,
		KPI:         unidash.ComputeKPI(rows, r.manager),
		Bar:         unidash.Bars(rows),
		Doughnut:    unidash.Doughnut(rows, r.manager),
		RetrievedAt: retrievedAt,
		DataAsOf:    dataAsOf,
		LiveReload:  r.liveReload,
	}
	for _, row := range rows {
		d.Rows = append(d.Rows, r.tableRow(row))
	}
	return d
}

func (r *Renderer) tableRow(row unidash.UsageRow) TableRow {
	tr := TableRow{
		UsageRow:  row,
		Manager:   row.Name == r.manager,
		PillClass: unidash.PillClass(row.Usage),
		BarStyle: template.CSS(fmt.Sprintf("width:%s%%;background:%s;",
			unidash.BarWidth(row.Usage), unidash.BarColor(row.Usage))),
	}
	if !tr.Manager {
		// Vivian reports through Eleanor, one level deeper in the chain.
		if strings.Contains(row.Name, "Vivian") {
			tr.Indent = "padding-left:48px;"
		} else {
			tr.Indent = "padding-left:28px;"
		}
	}
	return tr
}

// Render writes the report HTML for d to w.
func (r *Renderer) Render(w io.Writer, d Data) error {
	return r.tmpl.ExecuteTemplate(w, "dashboard.html", d)
}

// Publish renders to path via a temp file and rename, so a failed
// render never clobbers the previously published report.
func (r *Renderer) Publish(path string, d Data) error {
	var buf bytes.Buffer
	if err := r.Render(&buf, d); err != nil {
		return fmt.Errorf("render report: %w", err)
	}

	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".report-*.html")
	if err != nil {
		return fmt.Errorf("create temp report: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(buf.Bytes()); err != nil {
		tmp.Close()
		return fmt.Errorf("write report: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close report: %w", err)
	}
	if err := os.Chmod(tmp.Name(), 0o644); err != nil {
		return fmt.Errorf("chmod report: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("publish report: %w", err)
	}
	return nil
}
