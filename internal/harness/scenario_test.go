package harness

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadScenario_ValidFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.yaml")
	content := `
name: test_scenario
description: "Test scenario for validation"
setup:
  - action: component.add
    args: { name: Breadboard, category: Tools, stock: 4, cost: "8.50" }
flow:
  - invoke: cart.add
    args:
      component: id-1
      quantity: 1
assertions:
  - type: trace_contains
    action: cart.add
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	scenario, err := LoadScenario(path)
	require.NoError(t, err)

	assert.Equal(t, "test_scenario", scenario.Name)
	assert.Equal(t, "Test scenario for validation", scenario.Description)
	assert.Len(t, scenario.Setup, 1)
	assert.Len(t, scenario.Flow, 1)
	assert.Len(t, scenario.Assertions, 1)
	assert.Equal(t, "cart.add", scenario.Flow[0].Invoke)
	assert.Equal(t, "id-1", scenario.Flow[0].Args["component"])
	assert.Equal(t, 1, scenario.Flow[0].Args["quantity"])
}

func TestLoadScenario_MissingFile(t *testing.T) {
	_, err := LoadScenario("/nonexistent/scenario.yaml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read scenario file")
}

func TestLoadScenario_Fixtures(t *testing.T) {
	paths, err := filepath.Glob("testdata/scenarios/*.yaml")
	require.NoError(t, err)
	require.NotEmpty(t, paths)

	for _, path := range paths {
		t.Run(filepath.Base(path), func(t *testing.T) {
			_, err := LoadScenario(path)
			assert.NoError(t, err)
		})
	}
}

func TestParseScenario_Invalid(t *testing.T) {
	tests := map[string]struct {
		yaml string
		want string
	}{
		"missing name": {
			yaml: `
description: d
flow:
  - invoke: checkout
    args: {}
`,
			want: "name is required",
		},
		"missing description": {
			yaml: `
name: n
flow:
  - invoke: checkout
    args: {}
`,
			want: "description is required",
		},
		"empty flow": {
			yaml: `
name: n
description: d
flow: []
`,
			want: "flow list is required",
		},
		"unknown field": {
			yaml: `
name: n
description: d
flowz: []
`,
			want: "failed to parse YAML",
		},
		"unknown flow action": {
			yaml: `
name: n
description: d
flow:
  - invoke: cart.explode
    args: {}
`,
			want: `flow[0]: unknown action "cart.explode"`,
		},
		"unknown setup action": {
			yaml: `
name: n
description: d
setup:
  - action: component.clone
    args: {}
flow:
  - invoke: checkout
    args: {}
`,
			want: `setup[0]: unknown action "component.clone"`,
		},
		"missing args": {
			yaml: `
name: n
description: d
flow:
  - invoke: checkout
`,
			want: "flow[0]: args is required",
		},
		"expect without case": {
			yaml: `
name: n
description: d
flow:
  - invoke: checkout
    args: {}
    expect:
      result: { state: committed }
`,
			want: "flow[0].expect: case is required",
		},
		"unknown assertion type": {
			yaml: `
name: n
description: d
flow:
  - invoke: checkout
    args: {}
assertions:
  - type: trace_absent
`,
			want: `unknown assertion type "trace_absent"`,
		},
		"trace_order without actions": {
			yaml: `
name: n
description: d
flow:
  - invoke: checkout
    args: {}
assertions:
  - type: trace_order
`,
			want: "actions list is required for trace_order",
		},
		"trace_count without action": {
			yaml: `
name: n
description: d
flow:
  - invoke: checkout
    args: {}
assertions:
  - type: trace_count
    count: 1
`,
			want: "action is required for trace_count",
		},
		"final_state with unknown table": {
			yaml: `
name: n
description: d
flow:
  - invoke: checkout
    args: {}
assertions:
  - type: final_state
    table: suppliers
    expect: { id: x }
`,
			want: "table must be one of",
		},
		"final_state without expect": {
			yaml: `
name: n
description: d
flow:
  - invoke: checkout
    args: {}
assertions:
  - type: final_state
    table: components
`,
			want: "expect is required for final_state",
		},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := ParseScenario([]byte(tc.yaml))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.want)
		})
	}
}
