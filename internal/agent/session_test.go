package agent

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hackgods/vitacare-orchestrator/internal/apperr"
	"github.com/hackgods/vitacare-orchestrator/internal/tools"
	"github.com/hackgods/vitacare-orchestrator/pkg/logging"
)

func testDispatcher(calls *[]string) *tools.Dispatcher {
	r := tools.NewRegistry()
	r.Register(tools.Spec{Name: "echo"}, func(_ context.Context, args map[string]any) (tools.Result, error) {
		*calls = append(*calls, fmt.Sprint(args["v"]))
		return tools.Result{"echo": args["v"], "status": tools.StatusSuccess}, nil
	})
	return tools.NewDispatcher(r, tools.DispatcherConfig{Logger: logging.Discard()})
}

// scripted returns the given steps in order and records each transcript.
func scripted(steps ...Step) (Planner, *[]Transcript) {
	var seen []Transcript
	i := 0
	return PlannerFunc(func(_ context.Context, t Transcript) (Step, error) {
		seen = append(seen, t)
		if i >= len(steps) {
			return Step{}, errors.New("script exhausted")
		}
		s := steps[i]
		i++
		return s, nil
	}), &seen
}

func TestSessionDispatchesUntilReply(t *testing.T) {
	var calls []string
	planner, seen := scripted(
		Step{Kind: StepToolCall, Call: tools.Call{Name: "echo", Args: map[string]any{"v": "a"}}},
		Step{Kind: StepToolCall, Call: tools.Call{Name: "missing"}},
		Step{Kind: StepReply, Reply: "done"},
	)
	s := NewSession(planner, testDispatcher(&calls), SessionConfig{Logger: logging.Discard()})

	resp := s.Run(context.Background(), "p-1", "hello", nil)
	assert.Equal(t, "done", resp.Reply)
	assert.Equal(t, []string{"a"}, calls)
	require.Len(t, resp.Logs, 2)
	assert.Equal(t, ToolLog{Tool: "echo", Args: map[string]any{"v": "a"}, Status: tools.StatusSuccess}, resp.Logs[0])
	assert.Equal(t, tools.StatusFailed, resp.Logs[1].Status)

	// The planner sees each result before choosing again.
	last := (*seen)[2]
	require.Len(t, last.Turns, 5)
	assert.Equal(t, "hello", last.Turns[0].Text)
	assert.Equal(t, "a", last.Turns[2].Result["echo"])
	assert.Contains(t, last.System, "p-1")
}

func TestSessionStopsAtToolBudget(t *testing.T) {
	var calls []string
	loop := PlannerFunc(func(context.Context, Transcript) (Step, error) {
		return Step{Kind: StepToolCall, Call: tools.Call{Name: "echo", Args: map[string]any{"v": "x"}}}, nil
	})
	s := NewSession(loop, testDispatcher(&calls), SessionConfig{MaxToolCalls: 3, Logger: logging.Discard()})

	resp := s.Run(context.Background(), "", "keep going", nil)
	assert.Equal(t, TooManyStepsReply, resp.Reply)
	assert.Len(t, calls, 3)
	assert.Len(t, resp.Logs, 3)
}

func TestSessionPlannerFailures(t *testing.T) {
	var calls []string
	busy := PlannerFunc(func(context.Context, Transcript) (Step, error) {
		return Step{}, apperr.New(apperr.Unavailable, "quota")
	})
	resp := NewSession(busy, testDispatcher(&calls), SessionConfig{Logger: logging.Discard()}).Run(context.Background(), "", "hi", nil)
	assert.Equal(t, tools.BusyMessage, resp.Reply)

	broken := PlannerFunc(func(context.Context, Transcript) (Step, error) {
		return Step{}, errors.New("unexpected EOF")
	})
	resp = NewSession(broken, testDispatcher(&calls), SessionConfig{Logger: logging.Discard()}).Run(context.Background(), "", "hi", nil)
	assert.Equal(t, FailureReply, resp.Reply)
	assert.NotContains(t, resp.Reply, "EOF")

	odd := PlannerFunc(func(context.Context, Transcript) (Step, error) {
		return Step{Kind: "dance"}, nil
	})
	resp = NewSession(odd, testDispatcher(&calls), SessionConfig{Logger: logging.Discard()}).Run(context.Background(), "", "hi", nil)
	assert.Equal(t, FailureReply, resp.Reply)
	assert.Empty(t, calls)
}

func TestEchoPlanner(t *testing.T) {
	var calls []string
	resp := NewSession(EchoPlanner{}, testDispatcher(&calls), SessionConfig{Logger: logging.Discard()}).
		Run(context.Background(), "", "book tomorrow", nil)
	assert.Equal(t, "[MOCK] I received your message: book tomorrow. (Please set GEMINI_API_KEY for real AI)", resp.Reply)
	assert.Empty(t, resp.Logs)
}
