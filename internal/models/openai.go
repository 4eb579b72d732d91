// Package models provides the OpenAI-backed collaborator implementations.
package models

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"github.com/openai/openai-go/v3/shared"

	"github.com/phantomlink/phantom-link/internal/chat"
	"github.com/phantomlink/phantom-link/internal/types"
)

const (
	completionTemperature = 1
	completionMaxTokens   = 150
)

// Completion wraps the chat-completions endpoint as the turn processor's
// completion collaborator.
type Completion struct {
	client openai.Client
	model  string
}

// NewCompletion returns a Completion for the given model.
func NewCompletion(apiKey, model string) (*Completion, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("API key is required")
	}
	if model == "" {
		return nil, fmt.Errorf("model name cannot be empty")
	}
	return &Completion{
		client: openai.NewClient(option.WithAPIKey(apiKey)),
		model:  model,
	}, nil
}

// Complete sends the full ordered history and returns the reply text.
func (c *Completion) Complete(ctx context.Context, messages []types.Message) (string, error) {
	params := openai.ChatCompletionNewParams{
		Model:       shared.ChatModel(c.model),
		Messages:    toParams(messages),
		Temperature: openai.Float(completionTemperature),
		MaxTokens:   openai.Int(completionMaxTokens),
	}

	resp, err := c.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return "", classify(err)
	}
	if resp == nil || len(resp.Choices) == 0 {
		return "", fmt.Errorf("completion returned no choices")
	}
	return resp.Choices[0].Message.Content, nil
}

func toParams(messages []types.Message) []openai.ChatCompletionMessageParamUnion {
	params := make([]openai.ChatCompletionMessageParamUnion, 0, len(messages))
	for _, msg := range messages {
		switch msg.Role {
		case types.RoleSystem:
			params = append(params, openai.SystemMessage(msg.Content))
		case types.RoleAssistant:
			params = append(params, openai.AssistantMessage(msg.Content))
		default:
			params = append(params, openai.UserMessage(msg.Content))
		}
	}
	return params
}

// classify maps API failures onto the turn processor's error taxonomy.
func classify(err error) error {
	var apierr *openai.Error
	if errors.As(err, &apierr) {
		switch apierr.StatusCode {
		case http.StatusTooManyRequests:
			return chat.ErrRateLimited
		case http.StatusBadRequest:
			return &chat.InvalidRequestError{Message: apierr.Message}
		}
	}
	return fmt.Errorf("completion call failed: %w", err)
}
