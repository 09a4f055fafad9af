package harness

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/roach88/electromanage/internal/app"
	"github.com/roach88/electromanage/internal/config"
	"github.com/roach88/electromanage/internal/model"
	"github.com/roach88/electromanage/internal/testutil"
)

// IDPrefix prefixes every id generated during a scenario run.
const IDPrefix = "id"

// Harness executes one scenario against a Session.
type Harness struct {
	session *app.Session
	seq     int64
}

// Run executes a scenario and returns the result.
//
// Each scenario runs in a fresh database with deterministic ids and clock.
//
// Execution flow:
// 1. Open a Session over a temporary database
// 2. Execute setup steps (any failure aborts the run)
// 3. Execute flow steps with expect validation
// 4. Capture the final state and evaluate assertions
func Run(scenario *Scenario) (*Result, error) {
	dir, err := os.MkdirTemp("", "electromanage-scenario-*")
	if err != nil {
		return nil, fmt.Errorf("failed to create scenario dir: %w", err)
	}
	defer os.RemoveAll(dir)

	cfg := config.Default()
	cfg.Database.Path = filepath.Join(dir, "scenario.db")

	session, err := app.Open(app.Options{
		Config: cfg,
		Logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
		IDs:    testutil.NewSequentialIDs(IDPrefix),
		Clock:  testutil.NewStepClock(testutil.Epoch, time.Second),
		Origin: "harness",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open session: %w", err)
	}

	ctx := context.Background()
	defer session.Close(ctx)

	h := &Harness{session: session}
	result := NewResult()

	if err := h.executeSetup(ctx, scenario.Setup); err != nil {
		return nil, fmt.Errorf("failed to execute setup: %w", err)
	}

	if err := h.executeFlow(ctx, scenario.Flow, result); err != nil {
		return nil, fmt.Errorf("failed to execute flow: %w", err)
	}

	if result.State, err = h.captureState(ctx); err != nil {
		return nil, fmt.Errorf("failed to capture state: %w", err)
	}

	for _, msg := range EvaluateAssertions(result, scenario.Assertions) {
		result.AddError(msg)
	}

	return result, nil
}

func (h *Harness) executeSetup(ctx context.Context, setup []ActionStep) error {
	for i, step := range setup {
		a := newArgs(step.Args)
		if _, err := actions[step.Action](ctx, h.session, a); err != nil {
			return fmt.Errorf("setup[%d] %s: %w", i, step.Action, err)
		}
	}
	return nil
}

func (h *Harness) executeFlow(ctx context.Context, flow []FlowStep, result *Result) error {
	for i, step := range flow {
		fn, ok := actions[step.Invoke]
		if !ok {
			return fmt.Errorf("flow[%d]: unknown action %q", i, step.Invoke)
		}

		args, err := canonical(step.Args)
		if err != nil {
			return fmt.Errorf("flow[%d]: args: %w", i, err)
		}
		h.seq++
		argMap, _ := args.(map[string]any)
		result.AddInvocationTrace(step.Invoke, argMap, h.seq)

		a := newArgs(step.Args)
		value, err := fn(ctx, h.session, a)

		outputCase, out, err := h.complete(value, err)
		if err != nil {
			return fmt.Errorf("flow[%d] %s: %w", i, step.Invoke, err)
		}
		h.seq++
		result.AddCompletionTrace(step.Invoke, outputCase, out, h.seq)

		if step.Expect != nil {
			h.checkExpect(i, step, outputCase, out, result)
		}
	}
	return nil
}

// complete turns an action's return into a completion case and result.
// Errors that are not domain errors abort the run.
func (h *Harness) complete(value any, err error) (string, any, error) {
	if err != nil {
		var domain *model.Error
		if !errors.As(err, &domain) {
			return "", nil, err
		}
		return string(domain.Code), map[string]any{
			"entity":  domain.Entity,
			"message": domain.Message,
		}, nil
	}

	if value == nil {
		return CaseOK, nil, nil
	}
	out, err := canonical(value)
	if err != nil {
		return "", nil, err
	}
	return CaseOK, out, nil
}

func (h *Harness) checkExpect(i int, step FlowStep, outputCase string, out any, result *Result) {
	if outputCase != step.Expect.Case {
		result.AddError(fmt.Sprintf("flow[%d] %s: expected case %q, got %q (result %v)",
			i, step.Invoke, step.Expect.Case, outputCase, out))
		return
	}
	if len(step.Expect.Result) == 0 {
		return
	}

	expected, err := canonical(step.Expect.Result)
	if err != nil {
		result.AddError(fmt.Sprintf("flow[%d] %s: expect.result: %v", i, step.Invoke, err))
		return
	}
	if !subset(expected, out) {
		result.AddError(fmt.Sprintf("flow[%d] %s: expected result %v, got %v",
			i, step.Invoke, expected, out))
	}
}

// captureState exports the session and decodes the document generically.
func (h *Harness) captureState(ctx context.Context) (map[string]any, error) {
	var buf bytes.Buffer
	if err := h.session.Export(ctx, &buf); err != nil {
		return nil, err
	}

	var state map[string]any
	decoder := json.NewDecoder(&buf)
	decoder.UseNumber()
	if err := decoder.Decode(&state); err != nil {
		return nil, err
	}
	return state, nil
}

// canonical converts v into generic JSON values (maps, slices, strings,
// json.Number, bools).
func canonical(v any) (any, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}

	var out any
	decoder := json.NewDecoder(bytes.NewReader(data))
	decoder.UseNumber()
	if err := decoder.Decode(&out); err != nil {
		return nil, err
	}
	return out, nil
}
