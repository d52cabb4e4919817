package grafana

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"droneops-console/internal/config"
)

func TestRenderMissingEnv(t *testing.T) {
	t.Setenv("GREPTIMEDB_DATASOURCE_UID", "")
	if _, err := Render(t.TempDir(), ParamsFrom(config.Default())); err == nil {
		t.Fatalf("expected error for missing env vars")
	}
}

func TestRenderSuccess(t *testing.T) {
	t.Setenv("GREPTIMEDB_DATASOURCE_UID", "uid1")
	cfg := config.Default()
	cfg.ClusterID = "north-01"
	cfg.Export.Greptime.TimelineTable = "ops_timeline"

	dir := t.TempDir()
	written, err := Render(dir, ParamsFrom(cfg))
	if err != nil {
		t.Fatalf("render failed: %v", err)
	}
	if len(written) != 1 || filepath.Base(written[0]) != "grafana-console.json" {
		t.Fatalf("unexpected outputs %v", written)
	}

	b, err := os.ReadFile(filepath.Join(dir, "grafana-console.json"))
	if err != nil {
		t.Fatalf("read dashboard: %v", err)
	}
	for _, want := range []string{"uid1", "north-01", "FROM ops_timeline", "FROM drone_assignments", "FROM drone_telemetry"} {
		if !strings.Contains(string(b), want) {
			t.Fatalf("dashboard missing %q", want)
		}
	}
	var v map[string]any
	if err := json.Unmarshal(b, &v); err != nil {
		t.Fatalf("rendered dashboard is not valid JSON: %v", err)
	}
}
