package ai

import (
	"context"
	"fmt"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/taskflow-ai/taskflow/internal/agenttools"
	"github.com/taskflow-ai/taskflow/internal/state"
)

// AnthropicProvider drives the messages API, translating tool_use blocks
// into toolkit executions and feeding tool_result blocks back by id.
type AnthropicProvider struct {
	client anthropic.Client
	cfg    Config
	tools  *agenttools.Toolkit
}

func NewAnthropicProvider(cfg Config, tools *agenttools.Toolkit) *AnthropicProvider {
	opts := []option.RequestOption{option.WithAPIKey(cfg.APIKey)}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	return &AnthropicProvider{client: anthropic.NewClient(opts...), cfg: cfg, tools: tools}
}

func (p *AnthropicProvider) Name() string { return "anthropic" }

func (p *AnthropicProvider) Respond(ctx context.Context, ownerID, message string, history []Message) (string, error) {
	messages := make([]anthropic.MessageParam, 0, len(history)+1)
	for _, msg := range history {
		if msg.Role == state.RoleAssistant {
			messages = append(messages, anthropic.NewAssistantMessage(anthropic.NewTextBlock(msg.Content)))
		} else {
			messages = append(messages, anthropic.NewUserMessage(anthropic.NewTextBlock(msg.Content)))
		}
	}
	messages = append(messages, anthropic.NewUserMessage(anthropic.NewTextBlock(message)))

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(p.cfg.Model),
		MaxTokens: int64(p.cfg.MaxTokens),
		Messages:  messages,
		System:    []anthropic.TextBlockParam{{Text: systemPrompt, Type: "text"}},
		Tools:     anthropicTools(),
	}

	resp, err := p.client.Messages.New(ctx, params)
	if err != nil {
		return "", fmt.Errorf("anthropic message: %w", err)
	}
	if resp == nil || len(resp.Content) == 0 {
		return "", fmt.Errorf("anthropic message: empty response")
	}

	text, toolResults := p.consumeBlocks(ctx, ownerID, resp)
	if len(toolResults) == 0 {
		return text, nil
	}

	// One tool round per turn, then a single follow-up with no tools.
	messages = append(messages, resp.ToParam(), anthropic.NewUserMessage(toolResults...))
	final, err := p.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(p.cfg.Model),
		MaxTokens: int64(p.cfg.MaxTokens),
		Messages:  messages,
		System:    []anthropic.TextBlockParam{{Text: systemPrompt, Type: "text"}},
	})
	if err != nil {
		return "", fmt.Errorf("anthropic final message: %w", err)
	}
	if final == nil || len(final.Content) == 0 {
		return "", fmt.Errorf("anthropic final message: empty response")
	}
	finalText := ""
	for i := range final.Content {
		if final.Content[i].Type == "text" {
			finalText += final.Content[i].AsText().Text
		}
	}
	return finalText, nil
}

// consumeBlocks collects response text and executes any tool_use blocks,
// returning correlated tool_result blocks for the follow-up request.
func (p *AnthropicProvider) consumeBlocks(ctx context.Context, ownerID string, resp *anthropic.Message) (string, []anthropic.ContentBlockParamUnion) {
	var text string
	var toolResults []anthropic.ContentBlockParamUnion
	for i := range resp.Content {
		block := &resp.Content[i]
		switch block.Type {
		case "text":
			text += block.AsText().Text
		case "tool_use":
			use := block.AsToolUse()
			result := p.tools.Execute(ctx, ownerID, use.Name, use.Input)
			toolResults = append(toolResults, anthropic.NewToolResultBlock(use.ID, result.JSON(), !result.OK()))
		}
	}
	return text, toolResults
}

func anthropicTools() []anthropic.ToolUnionParam {
	defs := agenttools.Definitions()
	out := make([]anthropic.ToolUnionParam, 0, len(defs))
	for _, def := range defs {
		schema := def.Parameters.JSONMap()
		param := anthropic.ToolParam{
			Name:        def.Name,
			Description: anthropic.String(def.Description),
			InputSchema: anthropic.ToolInputSchemaParam{
				Type:       "object",
				Properties: schema["properties"],
				Required:   def.Parameters.Required,
			},
		}
		out = append(out, anthropic.ToolUnionParam{OfTool: &param})
	}
	return out
}
