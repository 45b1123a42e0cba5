package report

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"html/template"
	"os"
	"path/filepath"
)

//go:embed report.html.tmpl
var reportTemplate string

var htmlTmpl = template.Must(template.New("report").Funcs(template.FuncMap{
	"f2": func(v float64) string { return fmt.Sprintf("%.2f", v) },
	"pct": func(v *float64) string {
		if v == nil {
			return ""
		}
		return fmt.Sprintf("%.2f%%", *v)
	},
}).Parse(reportTemplate))

type htmlData struct {
	Report *Report

	// Payload is the full report as JSON, embedded so the charts render
	// without a second request. Marked safe: it comes from json.Marshal of
	// our own structs.
	Payload template.JS
}

// WriteHTML renders the self-contained HTML report to <dir>/report.html.
func WriteHTML(r *Report, dir string) (string, error) {
	payload, err := json.Marshal(r)
	if err != nil {
		return "", fmt.Errorf("marshaling report payload: %w", err)
	}

	path := filepath.Join(dir, HTMLFileName)
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("creating %s: %w", path, err)
	}
	defer f.Close()

	if err := htmlTmpl.Execute(f, htmlData{Report: r, Payload: template.JS(payload)}); err != nil {
		return "", fmt.Errorf("rendering %s: %w", path, err)
	}
	return path, nil
}
