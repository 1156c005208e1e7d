package llm

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/Caia-Tech/darija-corpus/pkg/pipeline"
	"github.com/Caia-Tech/darija-corpus/pkg/ratelimit"
	"github.com/sashabaranov/go-openai"
)

// ErrEmptyResponse is returned when the model answers without choices
var ErrEmptyResponse = errors.New("empty completion response")

// Request is a single system+user chat turn
type Request struct {
	System    string
	User      string
	MaxTokens int
	// Temperature zero requests deterministic sampling
	Temperature float32
}

// Completer produces a chat completion
type Completer interface {
	Complete(ctx context.Context, req Request) (string, error)
}

// OpenAIClient calls the chat completions endpoint, paced by a rate limiter
type OpenAIClient struct {
	client  *openai.Client
	model   string
	limiter *ratelimit.ServiceRateLimiter
}

// NewOpenAIClient creates a client from configuration. A nil limiter disables pacing.
func NewOpenAIClient(config *pipeline.OpenAIConfig, limiter *ratelimit.ServiceRateLimiter) *OpenAIClient {
	clientConfig := openai.DefaultConfig(config.APIKey)
	if config.BaseURL != "" {
		clientConfig.BaseURL = config.BaseURL
	}
	if limiter != nil {
		limiter.SetInterval(ratelimit.ServiceOpenAI, config.MinInterval)
	}

	return &OpenAIClient{
		client:  openai.NewClientWithConfig(clientConfig),
		model:   config.Model,
		limiter: limiter,
	}
}

// Complete sends the request and returns the trimmed content of the first choice
func (c *OpenAIClient) Complete(ctx context.Context, req Request) (string, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx, ratelimit.ServiceOpenAI); err != nil {
			return "", err
		}
	}

	messages := make([]openai.ChatCompletionMessage, 0, 2)
	if req.System != "" {
		messages = append(messages, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleSystem, Content: req.System})
	}
	messages = append(messages, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser, Content: req.User})

	// the client drops a zero temperature from the payload
	temperature := req.Temperature
	if temperature == 0 {
		temperature = math.SmallestNonzeroFloat32
	}

	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       c.model,
		Messages:    messages,
		MaxTokens:   req.MaxTokens,
		Temperature: temperature,
	})
	if err != nil {
		if c.limiter != nil {
			c.limiter.RecordError(ratelimit.ServiceOpenAI, err)
		}
		return "", fmt.Errorf("chat completion failed: %w", err)
	}
	if c.limiter != nil {
		c.limiter.RecordSuccess(ratelimit.ServiceOpenAI)
	}

	if len(resp.Choices) == 0 {
		return "", ErrEmptyResponse
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

// StripCodeFence removes a surrounding markdown code fence such as ```json ... ```
func StripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if nl := strings.IndexByte(s, '\n'); nl >= 0 {
		s = s[nl+1:]
	} else {
		s = strings.TrimPrefix(s, "json")
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
