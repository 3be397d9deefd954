// Package engine selects a response strategy for each chat turn from an
// ordered provider chain and guarantees the turn gets an answer.
package engine

import (
	"context"
	"log"

	"github.com/taskflow-ai/taskflow/internal/agenttools"
	"github.com/taskflow-ai/taskflow/internal/ai"
	"github.com/taskflow-ai/taskflow/internal/config"
)

// apologyText is the last-resort answer when every strategy in the chain
// has failed. It is returned as a normal turn response, never as an error.
const apologyText = "I'm sorry, I'm having trouble processing your request right now. Please try again later."

type Dispatcher struct {
	providers []ai.Provider
}

// NewDispatcher builds a dispatcher over an explicit chain. The chain is
// tried in order; the caller is expected to place an infallible strategy
// last.
func NewDispatcher(providers ...ai.Provider) *Dispatcher {
	return &Dispatcher{providers: providers}
}

// BuildChain assembles the provider chain from configuration, evaluated once
// at startup: OpenAI when its key is set, then Anthropic when its key is
// set, then always the keyword matcher.
func BuildChain(cfg config.Config, tools *agenttools.Toolkit) *Dispatcher {
	var providers []ai.Provider
	if cfg.OpenAIAPIKey != "" {
		providers = append(providers, ai.NewOpenAIProvider(ai.Config{
			APIKey:    cfg.OpenAIAPIKey,
			Model:     cfg.OpenAIModel,
			MaxTokens: cfg.MaxTokens,
		}, tools))
	}
	if cfg.AnthropicAPIKey != "" {
		providers = append(providers, ai.NewAnthropicProvider(ai.Config{
			APIKey:    cfg.AnthropicAPIKey,
			Model:     cfg.AnthropicModel,
			MaxTokens: cfg.MaxTokens,
		}, tools))
	}
	providers = append(providers, ai.NewMatcher(tools))
	return NewDispatcher(providers...)
}

// Respond runs the chain and always returns a response. A provider failure
// of any kind is logged and the next strategy is tried; there is no retry of
// the same provider.
func (d *Dispatcher) Respond(ctx context.Context, ownerID, message string, history []ai.Message) string {
	for _, provider := range d.providers {
		response, err := provider.Respond(ctx, ownerID, message, history)
		if err != nil {
			log.Printf("provider %s failed, trying next: %v", provider.Name(), err)
			continue
		}
		return response
	}
	return apologyText
}
