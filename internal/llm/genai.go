package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"google.golang.org/genai"
)

const defaultModel = "gemini-2.5-flash"

const systemPrompt = `You are the navigation planner of a guided coaching conversation.
Given the session position and recent exchanges, reply with a single JSON object:
{"decision": one of [clarify_goal, build_vision, explain_pattern, explore_problem,
deepen_body, assess_readiness, offer_menu, ask_permission],
"situation_type": one of [opening, vision, problem, body, readiness, uncertain,
redirect, relaxation, closing],
"retrieval_tag": short tag, "prompt": the next question to ask,
"reasoning": one sentence, "ready_for_next": boolean}.
Reply with the JSON object only.`

// GenAIConfig configures the Gemini-backed generator.
type GenAIConfig struct {
	APIKey  string
	Model   string
	Timeout time.Duration
}

// GenAIGenerator calls the Gemini API for decision fields.
type GenAIGenerator struct {
	client  *genai.Client
	model   string
	timeout time.Duration
}

// NewGenAIGenerator creates a Gemini-backed generator.
func NewGenAIGenerator(ctx context.Context, cfg GenAIConfig) (*GenAIGenerator, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("genai generator requires an API key")
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{APIKey: cfg.APIKey})
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}

	model := cfg.Model
	if model == "" {
		model = defaultModel
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 20 * time.Second
	}

	return &GenAIGenerator{client: client, model: model, timeout: timeout}, nil
}

// GenerateDecision implements Generator with a single attempt.
func (g *GenAIGenerator) GenerateDecision(ctx context.Context, pc PromptContext) (Fields, error) {
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	payload, err := json.Marshal(pc)
	if err != nil {
		return Fields{}, fmt.Errorf("marshal prompt context: %w", err)
	}

	contents := []*genai.Content{
		genai.NewContentFromText(string(payload), genai.RoleUser),
	}
	config := &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(systemPrompt, genai.RoleUser),
		ResponseMIMEType:  "application/json",
	}

	result, err := g.client.Models.GenerateContent(ctx, g.model, contents, config)
	if err != nil {
		return Fields{}, fmt.Errorf("generate decision: %w", err)
	}

	return ParseFields(result.Text())
}

// ParseFields decodes a model reply into Fields, tolerating code fences.
func ParseFields(text string) (Fields, error) {
	cleaned := strings.TrimSpace(text)
	cleaned = strings.TrimPrefix(cleaned, "```json")
	cleaned = strings.TrimPrefix(cleaned, "```")
	cleaned = strings.TrimSuffix(cleaned, "```")
	cleaned = strings.TrimSpace(cleaned)

	var f Fields
	if err := json.Unmarshal([]byte(cleaned), &f); err != nil {
		return Fields{}, fmt.Errorf("malformed generative response: %w", err)
	}
	return f, nil
}
