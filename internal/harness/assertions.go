package harness

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/shopspring/decimal"
)

// AssertionError is returned when an assertion fails.
type AssertionError struct {
	Type     string
	Expected string
	Actual   string
	Trace    []TraceEvent
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	if len(e.Trace) > 0 {
		fmt.Fprintf(&buf, "\nFull trace:\n")
		for _, event := range e.Trace {
			if event.Type == EventInvocation {
				fmt.Fprintf(&buf, "  [%d] %s %v\n", event.Seq, event.Action, event.Args)
			}
		}
	}

	return buf.String()
}

// assertTraceContains checks for an invocation of the action whose args
// contain assertion.Args.
func assertTraceContains(trace []TraceEvent, assertion Assertion) error {
	expected, err := canonical(assertion.Args)
	if err != nil {
		return err
	}

	for _, event := range trace {
		if event.Type != EventInvocation || event.Action != assertion.Action {
			continue
		}
		if len(assertion.Args) == 0 || subset(expected, toAny(event.Args)) {
			return nil
		}
	}

	return &AssertionError{
		Type:     AssertTraceContains,
		Expected: fmt.Sprintf("action %s with args %v", assertion.Action, assertion.Args),
		Actual:   "not found in trace",
		Trace:    trace,
	}
}

// assertTraceOrder checks that the first invocations of the actions occur
// in the given order. Other invocations may come between them.
func assertTraceOrder(trace []TraceEvent, assertion Assertion) error {
	positions := make(map[string]int)
	for i, event := range trace {
		if event.Type != EventInvocation {
			continue
		}
		if _, seen := positions[event.Action]; !seen {
			positions[event.Action] = i + 1
		}
	}

	for _, action := range assertion.Actions {
		if positions[action] == 0 {
			return &AssertionError{
				Type:     AssertTraceOrder,
				Expected: fmt.Sprintf("all actions present: %v", assertion.Actions),
				Actual:   fmt.Sprintf("missing action: %s", action),
				Trace:    trace,
			}
		}
	}

	for i := 1; i < len(assertion.Actions); i++ {
		prev, curr := assertion.Actions[i-1], assertion.Actions[i]
		if positions[prev] >= positions[curr] {
			return &AssertionError{
				Type:     AssertTraceOrder,
				Expected: fmt.Sprintf("actions in order: %v", assertion.Actions),
				Actual: fmt.Sprintf("%s (pos %d) should be before %s (pos %d)",
					prev, positions[prev], curr, positions[curr]),
				Trace: trace,
			}
		}
	}

	return nil
}

// assertTraceCount checks the exact number of invocations of an action.
func assertTraceCount(trace []TraceEvent, assertion Assertion) error {
	count := 0
	for _, event := range trace {
		if event.Type == EventInvocation && event.Action == assertion.Action {
			count++
		}
	}

	if count != assertion.Count {
		return &AssertionError{
			Type:     AssertTraceCount,
			Expected: fmt.Sprintf("%d occurrences of %s", assertion.Count, assertion.Action),
			Actual:   fmt.Sprintf("%d occurrences", count),
			Trace:    trace,
		}
	}

	return nil
}

// assertFinalState selects exactly one row of the table matching Where and
// checks that it contains Expect.
func assertFinalState(state map[string]any, assertion Assertion) error {
	rows := stateRows(state, assertion.Table)

	where, err := canonical(assertion.Where)
	if err != nil {
		return err
	}
	expect, err := canonical(assertion.Expect)
	if err != nil {
		return err
	}

	var matched []any
	for _, row := range rows {
		if len(assertion.Where) == 0 || subset(where, row) {
			matched = append(matched, row)
		}
	}

	whereDesc := formatWhereClause(assertion.Where)
	switch len(matched) {
	case 0:
		return &AssertionError{
			Type:     AssertFinalState,
			Expected: fmt.Sprintf("row in %s where %s", assertion.Table, whereDesc),
			Actual:   "row not found",
		}
	case 1:
	default:
		return &AssertionError{
			Type:     AssertFinalState,
			Expected: fmt.Sprintf("exactly one row in %s where %s", assertion.Table, whereDesc),
			Actual:   fmt.Sprintf("%d rows matched (assertion is ambiguous)", len(matched)),
		}
	}

	if !subset(expect, matched[0]) {
		return &AssertionError{
			Type:     AssertFinalState,
			Expected: fmt.Sprintf("%s where %s to contain %v", assertion.Table, whereDesc, expect),
			Actual:   fmt.Sprintf("%v", matched[0]),
		}
	}
	return nil
}

// stateRows returns the rows of a state table. Settings are an object in
// the exported document and become {key, value} rows.
func stateRows(state map[string]any, table string) []any {
	if table == "settings" {
		settings, _ := state["settings"].(map[string]any)
		keys := make([]string, 0, len(settings))
		for k := range settings {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		rows := make([]any, 0, len(keys))
		for _, k := range keys {
			rows = append(rows, map[string]any{"key": k, "value": settings[k]})
		}
		return rows
	}

	rows, _ := state[table].([]any)
	return rows
}

func formatWhereClause(where map[string]any) string {
	if len(where) == 0 {
		return "(no conditions)"
	}

	keys := make([]string, 0, len(where))
	for k := range where {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s=%v", k, where[k]))
	}
	return strings.Join(parts, " AND ")
}

// subset reports whether expected is contained in actual. Objects match
// when every expected key matches; arrays match element-wise with equal
// length; numbers and numeric strings compare by decimal value.
func subset(expected, actual any) bool {
	switch exp := expected.(type) {
	case map[string]any:
		act, ok := actual.(map[string]any)
		if !ok {
			return false
		}
		for k, v := range exp {
			av, exists := act[k]
			if !exists || !subset(v, av) {
				return false
			}
		}
		return true
	case []any:
		act, ok := actual.([]any)
		if !ok || len(act) != len(exp) {
			return false
		}
		for i := range exp {
			if !subset(exp[i], act[i]) {
				return false
			}
		}
		return true
	default:
		return scalarEqual(expected, actual)
	}
}

func scalarEqual(expected, actual any) bool {
	if expected == nil || actual == nil {
		return expected == nil && actual == nil
	}

	if ed, ok := numeric(expected); ok {
		if ad, ok := numeric(actual); ok {
			return ed.Equal(ad)
		}
	}
	return expected == actual
}

func numeric(v any) (decimal.Decimal, bool) {
	var s string
	switch n := v.(type) {
	case json.Number:
		s = n.String()
	case string:
		s = n
	default:
		return decimal.Zero, false
	}
	d, err := decimal.NewFromString(s)
	return d, err == nil
}

func toAny(m map[string]any) any {
	if m == nil {
		return nil
	}
	return m
}

// EvaluateAssertions evaluates all assertions against the result and
// returns one message per failure.
func EvaluateAssertions(result *Result, assertions []Assertion) []string {
	var errors []string

	for i, assertion := range assertions {
		var err error

		switch assertion.Type {
		case AssertTraceContains:
			err = assertTraceContains(result.Trace, assertion)
		case AssertTraceOrder:
			err = assertTraceOrder(result.Trace, assertion)
		case AssertTraceCount:
			err = assertTraceCount(result.Trace, assertion)
		case AssertFinalState:
			err = assertFinalState(result.State, assertion)
		default:
			err = fmt.Errorf("assertion[%d]: unknown assertion type %q", i, assertion.Type)
		}

		if err != nil {
			errors = append(errors, err.Error())
		}
	}

	return errors
}
