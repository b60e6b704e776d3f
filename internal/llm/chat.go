package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"

	goopenai "github.com/sashabaranov/go-openai"
)

// ChatRunner sends the prompt to an OpenAI-compatible chat completions
// endpoint, such as the one Ollama serves next to its CLI.
type ChatRunner struct {
	client *goopenai.Client
}

// NewChatRunner creates a runner for serviceURL. A bare host such as
// http://localhost:11434 gets the /v1 API prefix appended.
func NewChatRunner(serviceURL, apiKey string) *ChatRunner {
	cfg := goopenai.DefaultConfig(apiKey)
	if serviceURL != "" {
		cfg.BaseURL = APIBase(serviceURL)
	}
	return &ChatRunner{client: goopenai.NewClientWithConfig(cfg)}
}

// APIBase normalizes a service URL to an OpenAI-compatible API base.
func APIBase(serviceURL string) string {
	u := strings.TrimRight(serviceURL, "/")
	if strings.HasSuffix(u, "/v1") {
		return u
	}
	return u + "/v1"
}

// RunModel returns the content of the first completion choice.
func (r *ChatRunner) RunModel(ctx context.Context, prompt, model string) (string, error) {
	resp, err := r.client.CreateChatCompletion(ctx, goopenai.ChatCompletionRequest{
		Model: model,
		Messages: []goopenai.ChatCompletionMessage{
			{Role: goopenai.ChatMessageRoleUser, Content: prompt},
		},
	})
	if err != nil {
		return "", fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("chat completion: no choices returned")
	}
	return resp.Choices[0].Message.Content, nil
}
