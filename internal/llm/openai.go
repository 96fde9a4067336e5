package llm

import (
	"context"
	"errors"
	"time"

	openai "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/shared"
)

// openAIGenerator serves OpenAI itself plus any OpenAI-compatible
// provider (DeepSeek, Gemini's compatibility gateway) via a custom base
// URL.
type openAIGenerator struct {
	client openai.Client
	model  string
}

func newOpenAIGenerator(apiKey, baseURL, model string) *openAIGenerator {
	opts := []option.RequestOption{option.WithAPIKey(apiKey)}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	return &openAIGenerator{
		client: openai.NewClient(opts...),
		model:  model,
	}
}

func (g *openAIGenerator) GenerateReply(ctx context.Context, history, promptText string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, 60*time.Second)
	defer cancel()

	resp, err := g.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: shared.ChatModel(g.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage(buildPrompt(history, promptText)),
		},
	})
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("empty completion response")
	}
	return resp.Choices[0].Message.Content, nil
}
