// Package grafana renders Grafana dashboards over the GreptimeDB export
// tables.
package grafana

import (
	"embed"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"text/template"

	"droneops-console/internal/config"
)

//go:embed templates/*.json.tmpl
var templates embed.FS

// Params are the values the dashboard templates can reference.
type Params struct {
	ClusterID       string
	Table           string
	TimelineTable   string
	AssignmentTable string
}

// ParamsFrom takes the table names from cfg.
func ParamsFrom(cfg *config.Config) Params {
	g := cfg.Export.Greptime
	return Params{
		ClusterID:       cfg.ClusterID,
		Table:           g.Table,
		TimelineTable:   g.TimelineTable,
		AssignmentTable: g.AssignmentTable,
	}
}

// Render executes every embedded template and writes the dashboards to
// outDir. The datasource uid comes from GREPTIMEDB_DATASOURCE_UID.
func Render(outDir string, p Params) ([]string, error) {
	funcMap := template.FuncMap{
		"env": func(key string) (string, error) {
			v := os.Getenv(key)
			if v == "" {
				return "", fmt.Errorf("environment variable %s not set", key)
			}
			return v, nil
		},
	}

	names, err := templates.ReadDir("templates")
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return nil, err
	}
	var written []string
	for _, e := range names {
		t, err := template.New(e.Name()).Funcs(funcMap).ParseFS(templates, "templates/"+e.Name())
		if err != nil {
			return written, err
		}
		var b strings.Builder
		if err := t.Execute(&b, p); err != nil {
			return written, fmt.Errorf("render %s: %w", e.Name(), err)
		}
		outPath := filepath.Join(outDir, strings.TrimSuffix(e.Name(), ".tmpl"))
		if err := os.WriteFile(outPath, []byte(b.String()), 0o644); err != nil {
			return written, err
		}
		written = append(written, outPath)
	}
	return written, nil
}
