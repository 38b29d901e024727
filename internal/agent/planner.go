// Package agent drives a planner through the tool registry one call at a time.
package agent

import (
	"context"
	"fmt"
	"strings"

	"github.com/hackgods/vitacare-orchestrator/internal/tools"
)

const SystemPrompt = `You are VITA-Care, a healthcare coordination AI agent.
Your role is to assist with non-diagnostic healthcare workflows such as appointment booking, follow-ups, and reminders.

You must NEVER:
- Provide medical advice
- Diagnose conditions
- Suggest medications
If asked for medical advice, politely refuse and offer to schedule a consultation.

You must:
- Ask clarifying questions when required information is missing
- Confirm critical actions (booking, cancellation) before calling the tool
- Handle interruptions and corrections gracefully
- Use available tools to complete tasks
- Log every action transparently using log_interaction after a significant tool use.

If you need to book, always check availability first.`

type Role string

const (
	RoleUser  Role = "user"
	RoleModel Role = "model"
)

// Message is one prior conversational turn supplied by the client.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// Turn is one entry of the current exchange: the user's message, a tool call
// with its result, or the final reply.
type Turn struct {
	Role   Role
	Text   string
	Call   *tools.Call
	Result tools.Result
}

type Transcript struct {
	System  string
	History []Message
	Turns   []Turn
}

type StepKind string

const (
	StepToolCall StepKind = "tool_call"
	StepReply    StepKind = "reply"
)

type Step struct {
	Kind  StepKind
	Call  tools.Call
	Reply string
}

// Planner picks the next step given everything so far. Errors should carry
// an apperr kind; quota and timeout failures are Unavailable.
type Planner interface {
	Next(ctx context.Context, t Transcript) (Step, error)
}

// PlannerFunc adapts a function to Planner.
type PlannerFunc func(ctx context.Context, t Transcript) (Step, error)

func (f PlannerFunc) Next(ctx context.Context, t Transcript) (Step, error) {
	return f(ctx, t)
}

// EchoPlanner answers without calling tools. It stands in when no model API
// key is configured.
type EchoPlanner struct{}

func (EchoPlanner) Next(_ context.Context, t Transcript) (Step, error) {
	var last string
	for _, turn := range t.Turns {
		if turn.Role == RoleUser && turn.Call == nil && turn.Result == nil {
			last = turn.Text
		}
	}
	return Step{
		Kind:  StepReply,
		Reply: fmt.Sprintf("[MOCK] I received your message: %s. (Please set GEMINI_API_KEY for real AI)", last),
	}, nil
}

func systemPrompt(patientID string) string {
	if strings.TrimSpace(patientID) == "" {
		return SystemPrompt
	}
	return SystemPrompt + "\n\nThe current patient ID is " + patientID + ". Use it for every tool that needs patient_id."
}
