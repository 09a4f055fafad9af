package harness

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Scenario is a scripted run against a fresh Session.
type Scenario struct {
	// Name uniquely identifies this scenario and names its golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Setup runs before the flow. Every setup step must succeed.
	Setup []ActionStep `yaml:"setup,omitempty"`

	// Flow is the traced part of the scenario.
	Flow []FlowStep `yaml:"flow"`

	// Assertions validate the final trace and state.
	Assertions []Assertion `yaml:"assertions"`
}

// ActionStep is a setup action.
type ActionStep struct {
	Action string         `yaml:"action"`
	Args   map[string]any `yaml:"args"`
}

// FlowStep invokes an action and optionally checks its completion.
type FlowStep struct {
	Invoke string         `yaml:"invoke"`
	Args   map[string]any `yaml:"args"`

	// Expect is checked against the completion. Nil accepts any outcome.
	Expect *ExpectClause `yaml:"expect,omitempty"`
}

// ExpectClause specifies the expected completion.
type ExpectClause struct {
	// Case is "ok" or a domain error code.
	Case string `yaml:"case"`

	// Result is a subset match against the completion result.
	Result map[string]any `yaml:"result,omitempty"`
}

// Assertion validates the trace or the final state.
type Assertion struct {
	Type string `yaml:"type"`

	// Action is used by trace_contains and trace_count.
	Action string `yaml:"action,omitempty"`

	// Args is a subset match on invocation args (trace_contains).
	Args map[string]any `yaml:"args,omitempty"`

	// Table is components, cart, transactions or settings (final_state).
	Table string `yaml:"table,omitempty"`

	// Where selects rows by exact field values (final_state).
	Where map[string]any `yaml:"where,omitempty"`

	// Expect is a subset match on the selected row (final_state).
	Expect map[string]any `yaml:"expect,omitempty"`

	// Count is the expected number of invocations (trace_count).
	Count int `yaml:"count,omitempty"`

	// Actions is the expected invocation order (trace_order).
	Actions []string `yaml:"actions,omitempty"`
}

// Assertion type constants.
const (
	AssertTraceContains = "trace_contains"
	AssertTraceOrder    = "trace_order"
	AssertTraceCount    = "trace_count"
	AssertFinalState    = "final_state"
)

// StateTables are the tables final_state can query.
var StateTables = []string{"components", "cart", "transactions", "settings"}

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	return ParseScenario(data)
}

// ParseScenario parses scenario YAML with strict field checking.
func ParseScenario(data []byte) (*Scenario, error) {
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true) // Reject unknown fields
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}

	return &scenario, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}

	if s.Description == "" {
		return fmt.Errorf("description is required")
	}

	if len(s.Flow) == 0 {
		return fmt.Errorf("flow list is required and must be non-empty")
	}

	for i, step := range s.Setup {
		if step.Action == "" {
			return fmt.Errorf("setup[%d]: action is required", i)
		}
		if _, ok := actions[step.Action]; !ok {
			return fmt.Errorf("setup[%d]: unknown action %q", i, step.Action)
		}
		if step.Args == nil {
			return fmt.Errorf("setup[%d]: args is required (use empty map if no args)", i)
		}
	}

	for i, step := range s.Flow {
		if step.Invoke == "" {
			return fmt.Errorf("flow[%d]: invoke is required", i)
		}
		if _, ok := actions[step.Invoke]; !ok {
			return fmt.Errorf("flow[%d]: unknown action %q", i, step.Invoke)
		}
		if step.Args == nil {
			return fmt.Errorf("flow[%d]: args is required (use empty map if no args)", i)
		}
		if step.Expect != nil && step.Expect.Case == "" {
			return fmt.Errorf("flow[%d].expect: case is required", i)
		}
	}

	for i, assertion := range s.Assertions {
		if err := validateAssertion(i, &assertion); err != nil {
			return err
		}
	}

	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion) error {
	if a.Type == "" {
		return fmt.Errorf("assertions[%d]: type is required", index)
	}

	switch a.Type {
	case AssertTraceContains:
		if a.Action == "" {
			return fmt.Errorf("assertions[%d]: action is required for trace_contains", index)
		}
	case AssertTraceOrder:
		if len(a.Actions) == 0 {
			return fmt.Errorf("assertions[%d]: actions list is required for trace_order", index)
		}
	case AssertTraceCount:
		if a.Action == "" {
			return fmt.Errorf("assertions[%d]: action is required for trace_count", index)
		}
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for trace_count", index)
		}
	case AssertFinalState:
		if !isStateTable(a.Table) {
			return fmt.Errorf("assertions[%d]: table must be one of %v for final_state", index, StateTables)
		}
		if len(a.Expect) == 0 {
			return fmt.Errorf("assertions[%d]: expect is required for final_state", index)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}

	return nil
}

func isStateTable(name string) bool {
	for _, t := range StateTables {
		if t == name {
			return true
		}
	}
	return false
}
