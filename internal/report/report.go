// Package report renders a run into an HTML report plus a machine-readable
// JSON dump, both written into a per-run output directory.
package report

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"html/template"
	"os"
	"path/filepath"
	"time"
)

//go:embed template.html
var reportTemplate string

const (
	htmlFilename = "test_report.html"
	jsonFilename = "test_data.json"
)

// RunDir returns the per-run output directory under base.
func RunDir(base string, start time.Time) string {
	return filepath.Join(base, "run_"+start.Format("20060102_150405"))
}

// Generator writes report artifacts into one output directory.
type Generator struct {
	dir  string
	tmpl *template.Template
}

// NewGenerator creates the output directory and parses the report template.
func NewGenerator(dir string) (*Generator, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create output directory: %w", err)
	}
	tmpl, err := template.New("report").Funcs(template.FuncMap{
		"fmtDuration": func(d time.Duration) string { return d.Round(time.Second).String() },
		"fmtTime":     func(t time.Time) string { return t.Format("2006-01-02 15:04:05") },
	}).Parse(reportTemplate)
	if err != nil {
		return nil, fmt.Errorf("parse report template: %w", err)
	}
	return &Generator{dir: dir, tmpl: tmpl}, nil
}

// Dir returns the output directory.
func (g *Generator) Dir() string { return g.dir }

// reportData is the template context.
type reportData struct {
	Session     *Session
	Modules     []ModuleSummary
	GeneratedAt time.Time
}

// WriteHTML renders the HTML report and returns its path. Screenshot paths
// are rewritten relative to the output directory so the report stays portable
// when the whole run directory is moved.
func (g *Generator) WriteHTML(session *Session) (string, error) {
	g.relativizeScreenshots(session)

	path := filepath.Join(g.dir, htmlFilename)
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("create report: %w", err)
	}
	defer f.Close()

	data := reportData{
		Session:     session,
		Modules:     Summarize(session),
		GeneratedAt: time.Now(),
	}
	if err := g.tmpl.Execute(f, data); err != nil {
		return "", fmt.Errorf("render report: %w", err)
	}
	return path, nil
}

// WriteJSON dumps the full session as indented JSON and returns its path.
func (g *Generator) WriteJSON(session *Session) (string, error) {
	data, err := json.MarshalIndent(session, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encode session: %w", err)
	}
	path := filepath.Join(g.dir, jsonFilename)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("write session data: %w", err)
	}
	return path, nil
}

func (g *Generator) relativizeScreenshots(session *Session) {
	rel := func(p string) string {
		if p == "" {
			return ""
		}
		r, err := filepath.Rel(g.dir, p)
		if err != nil {
			return p
		}
		return r
	}
	for i := range session.Pages {
		page := &session.Pages[i]
		page.Screenshot = rel(page.Screenshot)
		for j := range page.ElementTests {
			page.ElementTests[j].Screenshot = rel(page.ElementTests[j].Screenshot)
		}
		for j := range page.NetworkErrors {
			page.NetworkErrors[j].Screenshot = rel(page.NetworkErrors[j].Screenshot)
		}
		for j := range page.ConsoleErrors {
			page.ConsoleErrors[j].Screenshot = rel(page.ConsoleErrors[j].Screenshot)
		}
	}
}
