package observability

import (
	"os"
	"path/filepath"
	"testing"

	"gopkg.in/yaml.v3"
)

type alertRule struct {
	Alert       string            `yaml:"alert"`
	Expr        string            `yaml:"expr"`
	For         string            `yaml:"for"`
	Labels      map[string]string `yaml:"labels"`
	Annotations map[string]string `yaml:"annotations"`
}

type alertGroup struct {
	Name  string      `yaml:"name"`
	Rules []alertRule `yaml:"rules"`
}

type alertFile struct {
	Groups []alertGroup `yaml:"groups"`
}

func TestKPIAlertRules(t *testing.T) {
	path := filepath.Join("..", "..", "deploy", "prometheus", "alerts", "kpi.yml")
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read alert file: %v", err)
	}

	var file alertFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		t.Fatalf("failed to unmarshal alert file: %v", err)
	}

	var kpiGroup *alertGroup
	for i := range file.Groups {
		if file.Groups[i].Name == "kpi" {
			kpiGroup = &file.Groups[i]
			break
		}
	}
	if kpiGroup == nil {
		t.Fatal("kpi alert group missing")
	}

	expected := map[string]struct {
		severity string
		runbook  string
	}{
		"DataSourceUnavailable": {severity: "critical", runbook: "docs/runbook-kpi.md#data-source-unavailable"},
		"WarmupFailing":         {severity: "warning", runbook: "docs/runbook-kpi.md#warmup-failing"},
		"CriticalBacklogHigh":   {severity: "warning", runbook: "docs/runbook-kpi.md#critical-backlog"},
	}

	if len(kpiGroup.Rules) != len(expected) {
		t.Fatalf("expected %d rules, got %d", len(expected), len(kpiGroup.Rules))
	}

	for _, rule := range kpiGroup.Rules {
		want, ok := expected[rule.Alert]
		if !ok {
			t.Fatalf("unexpected rule %q", rule.Alert)
		}
		if rule.Labels["severity"] != want.severity {
			t.Fatalf("rule %s severity mismatch: %s", rule.Alert, rule.Labels["severity"])
		}
		if rule.Annotations["runbook"] != want.runbook {
			t.Fatalf("rule %s runbook mismatch: %s", rule.Alert, rule.Annotations["runbook"])
		}
		if rule.Annotations["summary"] == "" || rule.Annotations["description"] == "" {
			t.Fatalf("rule %s must include summary and description annotations", rule.Alert)
		}
		if rule.Expr == "" || rule.For == "" {
			t.Fatalf("rule %s must define an expression and hold duration", rule.Alert)
		}
	}
}
