package ai

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/shared"

	"github.com/taskflow-ai/taskflow/internal/agenttools"
	"github.com/taskflow-ai/taskflow/internal/state"
)

// OpenAIProvider drives the chat completions API with the task tool schema.
type OpenAIProvider struct {
	client openai.Client
	cfg    Config
	tools  *agenttools.Toolkit
}

func NewOpenAIProvider(cfg Config, tools *agenttools.Toolkit) *OpenAIProvider {
	opts := []option.RequestOption{option.WithAPIKey(cfg.APIKey)}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	return &OpenAIProvider{client: openai.NewClient(opts...), cfg: cfg, tools: tools}
}

func (p *OpenAIProvider) Name() string { return "openai" }

func (p *OpenAIProvider) Respond(ctx context.Context, ownerID, message string, history []Message) (string, error) {
	messages := make([]openai.ChatCompletionMessageParamUnion, 0, len(history)+2)
	messages = append(messages, openai.SystemMessage(systemPrompt))
	for _, msg := range history {
		if msg.Role == state.RoleAssistant {
			messages = append(messages, openai.AssistantMessage(msg.Content))
		} else {
			messages = append(messages, openai.UserMessage(msg.Content))
		}
	}
	messages = append(messages, openai.UserMessage(message))

	resp, err := p.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model:    shared.ChatModel(p.cfg.Model),
		Messages: messages,
		Tools:    openAITools(),
	})
	if err != nil {
		return "", fmt.Errorf("openai completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("openai completion: no choices")
	}
	choice := resp.Choices[0].Message

	if len(choice.ToolCalls) == 0 {
		return choice.Content, nil
	}

	// One tool round per turn: execute every requested call, feed each
	// result back under its correlation id, then ask once for the final
	// answer with no tools offered.
	messages = append(messages, choice.ToParam())
	for _, call := range choice.ToolCalls {
		result := p.tools.Execute(ctx, ownerID, call.Function.Name, json.RawMessage(call.Function.Arguments))
		messages = append(messages, openai.ToolMessage(result.JSON(), call.ID))
	}

	final, err := p.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model:    shared.ChatModel(p.cfg.Model),
		Messages: messages,
	})
	if err != nil {
		return "", fmt.Errorf("openai final completion: %w", err)
	}
	if len(final.Choices) == 0 {
		return "", fmt.Errorf("openai final completion: no choices")
	}
	return final.Choices[0].Message.Content, nil
}

func openAITools() []openai.ChatCompletionToolParam {
	defs := agenttools.Definitions()
	out := make([]openai.ChatCompletionToolParam, 0, len(defs))
	for _, def := range defs {
		out = append(out, openai.ChatCompletionToolParam{
			Function: shared.FunctionDefinitionParam{
				Name:        def.Name,
				Description: openai.String(def.Description),
				Parameters:  shared.FunctionParameters(def.Parameters.JSONMap()),
			},
		})
	}
	return out
}
