package harness

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/seamline/internal/engine"
)

func TestParseScenario_Valid(t *testing.T) {
	yaml := `
name: basic
description: "one scan"
order: {id: PO-1, order_no: NO-1, order_quantity: 10}
nodes:
  - {id: n1, name: 车缝, sub_processes: 1}
bundles:
  - {id: b1, quantity: 10}
steps:
  - scan: {bundle_id: b1, stage_label: 车缝, quantity: 10}
    request_id: r-1
  - advance: 30m
  - refresh: true
assertions:
  - type: node
    node: 车缝
    expect: {completed_qty: 10}
`
	s, err := ParseScenario([]byte(yaml))
	require.NoError(t, err)
	assert.Equal(t, "basic", s.Name)
	require.Len(t, s.Steps, 3)
	assert.Equal(t, ActionScan, s.Steps[0].Action())
	assert.Equal(t, "r-1", s.Steps[0].RequestID)
	assert.Equal(t, ActionAdvance, s.Steps[1].Action())
	assert.Equal(t, ActionRefresh, s.Steps[2].Action())
	assert.Equal(t, engine.DefaultPolicy(), s.EnginePolicy())
}

func TestParseScenario_Errors(t *testing.T) {
	tests := []struct {
		name    string
		yaml    string
		wantErr string
	}{
		{
			name:    "missing name",
			yaml:    "description: d\norder: {id: PO-1}\nsteps: [{refresh: true}]",
			wantErr: "name is required",
		},
		{
			name:    "missing description",
			yaml:    "name: x\norder: {id: PO-1}\nsteps: [{refresh: true}]",
			wantErr: "description is required",
		},
		{
			name:    "missing order id",
			yaml:    "name: x\ndescription: d\nsteps: [{refresh: true}]",
			wantErr: "order.id is required",
		},
		{
			name:    "no steps",
			yaml:    "name: x\ndescription: d\norder: {id: PO-1}",
			wantErr: "steps list is required",
		},
		{
			name:    "two actions in one step",
			yaml:    "name: x\ndescription: d\norder: {id: PO-1}\nsteps: [{refresh: true, close: {}}]",
			wantErr: "exactly one action",
		},
		{
			name:    "unknown expect status",
			yaml:    "name: x\ndescription: d\norder: {id: PO-1}\nsteps: [{refresh: true, expect: {status: ok}}]",
			wantErr: "unknown status",
		},
		{
			name:    "unknown assertion type",
			yaml:    "name: x\ndescription: d\norder: {id: PO-1}\nsteps: [{refresh: true}]\nassertions: [{type: trace, expect: {a: 1}}]",
			wantErr: "unknown type",
		},
		{
			name:    "node assertion without node",
			yaml:    "name: x\ndescription: d\norder: {id: PO-1}\nsteps: [{refresh: true}]\nassertions: [{type: node, expect: {percent: 1}}]",
			wantErr: "node is required",
		},
		{
			name:    "repair assertion without bundle",
			yaml:    "name: x\ndescription: d\norder: {id: PO-1}\nsteps: [{refresh: true}]\nassertions: [{type: repair, expect: {remaining: 1}}]",
			wantErr: "bundle is required",
		},
		{
			name:    "empty expect",
			yaml:    "name: x\ndescription: d\norder: {id: PO-1}\nsteps: [{refresh: true}]\nassertions: [{type: progress}]",
			wantErr: "expect is required",
		},
		{
			name:    "unknown strategy",
			yaml:    "name: x\ndescription: d\norder: {id: PO-1}\npolicy: {strategy: weighted}\nsteps: [{refresh: true}]",
			wantErr: "unknown strategy",
		},
		{
			name:    "unknown field",
			yaml:    "name: x\ndescription: d\nflow_token: t\norder: {id: PO-1}\nsteps: [{refresh: true}]",
			wantErr: "failed to parse YAML",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseScenario([]byte(tt.yaml))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestScenario_EnginePolicyOverrides(t *testing.T) {
	s := &Scenario{Policy: &PolicySpec{NodeCompleteRatio: 0.95, CloseTolerancePercent: 80, Strategy: "additive"}}
	p := s.EnginePolicy()
	assert.Equal(t, 0.95, p.NodeCompleteRatio)
	assert.Equal(t, 80, p.CloseTolerancePercent)
	assert.Equal(t, engine.Additive, p.Strategy)
}

func TestLoadScenario_ResolvesTemplatesPath(t *testing.T) {
	s, err := LoadScenario("testdata/scenarios/template_parent_stage.yaml")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join("testdata", "templates", "styles.cue"), filepath.Clean(s.Templates))
}

func TestLoadScenario_KeepsAbsoluteTemplatesPath(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "s.yaml")
	content := "name: x\ndescription: d\ntemplates: /etc/styles.cue\norder: {id: PO-1}\nsteps: [{refresh: true}]\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	s, err := LoadScenario(path)
	require.NoError(t, err)
	assert.Equal(t, "/etc/styles.cue", s.Templates)
}

func TestLoadScenario_MissingFile(t *testing.T) {
	_, err := LoadScenario(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read scenario file")
}
