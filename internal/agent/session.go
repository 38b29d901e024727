package agent

import (
	"context"
	"time"

	"github.com/hackgods/vitacare-orchestrator/internal/apperr"
	"github.com/hackgods/vitacare-orchestrator/internal/observability/metrics"
	"github.com/hackgods/vitacare-orchestrator/internal/tools"
	"github.com/hackgods/vitacare-orchestrator/pkg/logging"
)

const (
	TooManyStepsReply = "I'm sorry, I couldn't finish that request. Please try again with a simpler request."
	FailureReply      = "I'm sorry, something went wrong on my side. Please try again."
)

// ToolLog records one dispatched call for the client transcript.
type ToolLog struct {
	Tool   string         `json:"tool"`
	Args   map[string]any `json:"args"`
	Status string         `json:"status"`
}

type Response struct {
	Reply string    `json:"response"`
	Logs  []ToolLog `json:"logs"`
}

type SessionConfig struct {
	MaxToolCalls   int
	PlannerTimeout time.Duration
	Logger         *logging.Logger
	Metrics        *metrics.Metrics
}

// Session runs the plan-dispatch loop. It holds no per-conversation state
// and is safe for concurrent use.
type Session struct {
	planner        Planner
	dispatcher     *tools.Dispatcher
	maxToolCalls   int
	plannerTimeout time.Duration
	logger         *logging.Logger
	metrics        *metrics.Metrics
}

func NewSession(planner Planner, dispatcher *tools.Dispatcher, cfg SessionConfig) *Session {
	if cfg.MaxToolCalls <= 0 {
		cfg.MaxToolCalls = 5
	}
	if cfg.PlannerTimeout <= 0 {
		cfg.PlannerTimeout = 30 * time.Second
	}
	if cfg.Logger == nil {
		cfg.Logger = logging.Default()
	}
	return &Session{
		planner:        planner,
		dispatcher:     dispatcher,
		maxToolCalls:   cfg.MaxToolCalls,
		plannerTimeout: cfg.PlannerTimeout,
		logger:         cfg.Logger,
		metrics:        cfg.Metrics,
	}
}

// Run answers one user message. At most MaxToolCalls tools are dispatched;
// a planner that keeps asking after that gets cut off with a fixed reply.
// Planner failures become a reply too, so the caller always has something
// to show.
func (s *Session) Run(ctx context.Context, patientID, message string, history []Message) Response {
	transcript := Transcript{
		System:  systemPrompt(patientID),
		History: history,
		Turns:   []Turn{{Role: RoleUser, Text: message}},
	}
	resp := Response{Logs: []ToolLog{}}

	for calls := 0; ; {
		step, err := s.next(ctx, transcript)
		if err != nil {
			kind := apperr.KindOf(err)
			s.logger.Error("planner failed", "kind", kind, "tool_calls", calls, "error", err)
			s.metrics.ObservePlannerStep("error")
			if kind == apperr.Unavailable {
				resp.Reply = tools.BusyMessage
			} else {
				resp.Reply = FailureReply
			}
			return resp
		}
		s.metrics.ObservePlannerStep(string(step.Kind))

		if step.Kind == StepReply {
			resp.Reply = step.Reply
			return resp
		}

		if calls >= s.maxToolCalls {
			s.logger.Warn("tool call budget exhausted", "max", s.maxToolCalls, "requested", step.Call.Name)
			resp.Reply = TooManyStepsReply
			return resp
		}
		calls++

		call := step.Call
		result := s.dispatcher.Dispatch(ctx, call)
		resp.Logs = append(resp.Logs, ToolLog{Tool: call.Name, Args: call.Args, Status: result.Status()})
		transcript.Turns = append(transcript.Turns,
			Turn{Role: RoleModel, Call: &call},
			Turn{Role: RoleUser, Call: &call, Result: result},
		)
	}
}

func (s *Session) next(ctx context.Context, t Transcript) (Step, error) {
	ctx, cancel := context.WithTimeout(ctx, s.plannerTimeout)
	defer cancel()
	step, err := s.planner.Next(ctx, t)
	if err != nil {
		return Step{}, err
	}
	if step.Kind != StepReply && step.Kind != StepToolCall {
		return Step{}, apperr.New(apperr.Internal, "planner returned an unknown step")
	}
	return step, nil
}
