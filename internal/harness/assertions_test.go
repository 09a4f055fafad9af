package harness

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleTrace() []TraceEvent {
	return []TraceEvent{
		{Type: EventInvocation, Action: "cart.add", Args: map[string]any{"component": "id-1", "quantity": json.Number("2")}, Seq: 1},
		{Type: EventCompletion, Action: "cart.add", Case: CaseOK, Seq: 2},
		{Type: EventInvocation, Action: "cart.add", Args: map[string]any{"component": "id-2", "quantity": json.Number("1")}, Seq: 3},
		{Type: EventCompletion, Action: "cart.add", Case: CaseOK, Seq: 4},
		{Type: EventInvocation, Action: "checkout", Seq: 5},
		{Type: EventCompletion, Action: "checkout", Case: CaseOK, Seq: 6},
	}
}

func sampleState() map[string]any {
	return map[string]any{
		"components": []any{
			map[string]any{"id": "id-1", "name": "Breadboard", "category": "Tools", "stock": json.Number("8"), "cost": "8.5"},
			map[string]any{"id": "id-2", "name": "Jumper Wires", "category": "Tools", "stock": json.Number("0"), "cost": "3"},
		},
		"cart": []any{},
		"settings": map[string]any{
			"currency":          "INR",
			"lowStockThreshold": json.Number("5"),
			"autoSync":          false,
		},
	}
}

func TestAssertTraceContains(t *testing.T) {
	trace := sampleTrace()

	tests := map[string]struct {
		assertion Assertion
		wantErr   bool
	}{
		"action only":      {assertion: Assertion{Action: "checkout"}},
		"matching args":    {assertion: Assertion{Action: "cart.add", Args: map[string]any{"component": "id-2"}}},
		"numeric args":     {assertion: Assertion{Action: "cart.add", Args: map[string]any{"quantity": 2}}},
		"args mismatch":    {assertion: Assertion{Action: "cart.add", Args: map[string]any{"component": "id-3"}}, wantErr: true},
		"missing action":   {assertion: Assertion{Action: "history"}, wantErr: true},
		"completions skip": {assertion: Assertion{Action: "cart.remove"}, wantErr: true},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			err := assertTraceContains(trace, tc.assertion)
			if tc.wantErr {
				var ae *AssertionError
				require.ErrorAs(t, err, &ae)
				assert.Equal(t, AssertTraceContains, ae.Type)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestAssertTraceOrder(t *testing.T) {
	trace := sampleTrace()

	assert.NoError(t, assertTraceOrder(trace, Assertion{Actions: []string{"cart.add", "checkout"}}))

	err := assertTraceOrder(trace, Assertion{Actions: []string{"checkout", "cart.add"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "checkout (pos 5) should be before cart.add (pos 1)")

	err = assertTraceOrder(trace, Assertion{Actions: []string{"cart.add", "history"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing action: history")
}

func TestAssertTraceCount(t *testing.T) {
	trace := sampleTrace()

	assert.NoError(t, assertTraceCount(trace, Assertion{Action: "cart.add", Count: 2}))
	assert.NoError(t, assertTraceCount(trace, Assertion{Action: "history", Count: 0}))

	err := assertTraceCount(trace, Assertion{Action: "checkout", Count: 2})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Expected: 2 occurrences of checkout")
	assert.Contains(t, err.Error(), "Actual: 1 occurrences")
}

func TestAssertFinalState(t *testing.T) {
	state := sampleState()

	tests := map[string]struct {
		assertion Assertion
		want      string
	}{
		"match by id": {
			assertion: Assertion{Table: "components", Where: map[string]any{"id": "id-1"}, Expect: map[string]any{"stock": 8, "cost": "8.50"}},
		},
		"settings rows": {
			assertion: Assertion{Table: "settings", Where: map[string]any{"key": "lowStockThreshold"}, Expect: map[string]any{"value": 5}},
		},
		"boolean setting": {
			assertion: Assertion{Table: "settings", Where: map[string]any{"key": "autoSync"}, Expect: map[string]any{"value": false}},
		},
		"row not found": {
			assertion: Assertion{Table: "components", Where: map[string]any{"id": "id-9"}, Expect: map[string]any{"stock": 1}},
			want:      "row not found",
		},
		"ambiguous": {
			assertion: Assertion{Table: "components", Where: map[string]any{"category": "Tools"}, Expect: map[string]any{"stock": 1}},
			want:      "2 rows matched",
		},
		"value mismatch": {
			assertion: Assertion{Table: "components", Where: map[string]any{"id": "id-2"}, Expect: map[string]any{"stock": 1}},
			want:      "to contain",
		},
		"empty table": {
			assertion: Assertion{Table: "cart", Expect: map[string]any{"quantity": 1}},
			want:      "row not found",
		},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			err := assertFinalState(state, tc.assertion)
			if tc.want == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.want)
		})
	}
}

func TestSubset(t *testing.T) {
	tests := map[string]struct {
		expected any
		actual   any
		want     bool
	}{
		"nested map":           {map[string]any{"a": map[string]any{"b": "x"}}, map[string]any{"a": map[string]any{"b": "x", "c": "y"}}, true},
		"missing key":          {map[string]any{"a": "x"}, map[string]any{"b": "x"}, false},
		"array same length":    {[]any{"x", "y"}, []any{"x", "y"}, true},
		"array length differs": {[]any{"x"}, []any{"x", "y"}, false},
		"decimal strings":      {"114.50", "114.5", true},
		"number vs string":     {json.Number("3"), "3.00", true},
		"different numbers":    {json.Number("3"), json.Number("4"), false},
		"plain strings":        {"id-1", "id-1", true},
		"bool":                 {true, true, true},
		"bool vs string":       {true, "true", false},
		"nil vs value":         {nil, "x", false},
		"both nil":             {nil, nil, true},
		"map vs scalar":        {map[string]any{"a": "x"}, "x", false},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, tc.want, subset(tc.expected, tc.actual))
		})
	}
}

func TestEvaluateAssertions(t *testing.T) {
	result := NewResult()
	result.Trace = sampleTrace()
	result.State = sampleState()

	errs := EvaluateAssertions(result, []Assertion{
		{Type: AssertTraceCount, Action: "cart.add", Count: 2},
		{Type: AssertTraceCount, Action: "checkout", Count: 3},
		{Type: AssertFinalState, Table: "components", Where: map[string]any{"id": "id-1"}, Expect: map[string]any{"stock": 8}},
		{Type: "trace_absent"},
	})

	require.Len(t, errs, 2)
	assert.Contains(t, errs[0], "3 occurrences of checkout")
	assert.Contains(t, errs[1], `unknown assertion type "trace_absent"`)
}
