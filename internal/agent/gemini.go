package agent

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"github.com/hackgods/vitacare-orchestrator/internal/apperr"
	"github.com/hackgods/vitacare-orchestrator/internal/tools"
)

// GeminiPlanner asks Gemini for one step at a time. Function calling is
// driven by Session, never by the SDK.
type GeminiPlanner struct {
	client  *genai.Client
	modelID string
	tools   []*genai.Tool
}

func NewGeminiPlanner(ctx context.Context, apiKey, modelID string, specs []tools.Spec) (*GeminiPlanner, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, errors.New("agent: gemini api key is required")
	}
	if strings.TrimSpace(modelID) == "" {
		modelID = "gemini-2.5-flash"
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("agent: failed to create gemini client: %w", err)
	}

	return &GeminiPlanner{
		client:  client,
		modelID: modelID,
		tools:   []*genai.Tool{{FunctionDeclarations: functionDeclarations(specs)}},
	}, nil
}

func (p *GeminiPlanner) Next(ctx context.Context, t Transcript) (Step, error) {
	model := p.client.GenerativeModel(p.modelID)
	model.Tools = p.tools
	if strings.TrimSpace(t.System) != "" {
		model.SystemInstruction = genai.NewUserContent(genai.Text(t.System))
	}

	contents := buildContents(t)
	if len(contents) == 0 {
		return Step{}, apperr.New(apperr.InvalidInput, "empty conversation")
	}

	cs := model.StartChat()
	cs.History = contents[:len(contents)-1]
	last := contents[len(contents)-1]

	resp, err := cs.SendMessage(ctx, last.Parts...)
	if err != nil {
		return Step{}, classifyError(err)
	}
	return stepFromResponse(resp)
}

func (p *GeminiPlanner) Close() error {
	if p.client != nil {
		return p.client.Close()
	}
	return nil
}

func functionDeclarations(specs []tools.Spec) []*genai.FunctionDeclaration {
	decls := make([]*genai.FunctionDeclaration, 0, len(specs))
	for _, spec := range specs {
		schema := &genai.Schema{
			Type:       genai.TypeObject,
			Properties: make(map[string]*genai.Schema, len(spec.Params)),
		}
		for _, param := range spec.Params {
			schema.Properties[param.Name] = &genai.Schema{
				Type:        genai.TypeString,
				Description: param.Description,
			}
			if param.Required {
				schema.Required = append(schema.Required, param.Name)
			}
		}
		decls = append(decls, &genai.FunctionDeclaration{
			Name:        spec.Name,
			Description: spec.Description,
			Parameters:  schema,
		})
	}
	return decls
}

// buildContents flattens prior history and the current turns into Gemini
// contents, merging consecutive parts with the same role.
func buildContents(t Transcript) []*genai.Content {
	var out []*genai.Content
	appendPart := func(role string, part genai.Part) {
		if n := len(out); n > 0 && out[n-1].Role == role {
			out[n-1].Parts = append(out[n-1].Parts, part)
			return
		}
		out = append(out, &genai.Content{Role: role, Parts: []genai.Part{part}})
	}

	for _, msg := range t.History {
		content := strings.TrimSpace(msg.Content)
		if content == "" {
			continue
		}
		role := "user"
		if msg.Role == RoleModel {
			role = "model"
		}
		appendPart(role, genai.Text(content))
	}

	for _, turn := range t.Turns {
		switch {
		case turn.Result != nil && turn.Call != nil:
			appendPart("user", genai.FunctionResponse{Name: turn.Call.Name, Response: turn.Result})
		case turn.Call != nil:
			appendPart("model", genai.FunctionCall{Name: turn.Call.Name, Args: turn.Call.Args})
		case strings.TrimSpace(turn.Text) != "":
			role := "user"
			if turn.Role == RoleModel {
				role = "model"
			}
			appendPart(role, genai.Text(turn.Text))
		}
	}
	return out
}

func stepFromResponse(resp *genai.GenerateContentResponse) (Step, error) {
	if resp == nil || len(resp.Candidates) == 0 {
		return Step{}, apperr.New(apperr.Internal, "gemini returned no candidates")
	}
	candidate := resp.Candidates[0]
	if candidate.Content == nil || len(candidate.Content.Parts) == 0 {
		return Step{}, apperr.New(apperr.Internal, "gemini returned empty content")
	}

	var text strings.Builder
	for _, part := range candidate.Content.Parts {
		switch v := part.(type) {
		case genai.FunctionCall:
			return Step{Kind: StepToolCall, Call: tools.Call{Name: v.Name, Args: v.Args}}, nil
		case *genai.FunctionCall:
			return Step{Kind: StepToolCall, Call: tools.Call{Name: v.Name, Args: v.Args}}, nil
		case genai.Text:
			text.WriteString(string(v))
		}
	}

	reply := strings.TrimSpace(text.String())
	if reply == "" {
		return Step{}, apperr.New(apperr.Internal, "gemini returned no text or function call")
	}
	return Step{Kind: StepReply, Reply: reply}, nil
}

// classifyError maps SDK failures to apperr kinds at the source.
func classifyError(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return apperr.Wrap(apperr.Unavailable, "gemini timeout", err)
	}
	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		switch gerr.Code {
		case http.StatusTooManyRequests, http.StatusServiceUnavailable, http.StatusGatewayTimeout, http.StatusInternalServerError:
			return apperr.Wrap(apperr.Unavailable, "gemini unavailable", err)
		case http.StatusBadRequest:
			return apperr.Wrap(apperr.InvalidInput, "gemini rejected request", err)
		}
	}
	return apperr.Wrap(apperr.Internal, "gemini request failed", err)
}
