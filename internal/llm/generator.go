package llm

import (
	"context"
	"fmt"
	"strings"
	"sync"
)

// DefaultPrompt is used when an account has no prompt configured.
const DefaultPrompt = "Ты — менеджер по продажам."

// Generator produces a reply to a customer from the conversation
// history and a seller-side system prompt.
type Generator interface {
	GenerateReply(ctx context.Context, history, promptText string) (string, error)
}

// Factory builds and caches one Generator per provider/key pair.
type Factory struct {
	mu        sync.Mutex
	instances map[string]Generator
}

func NewFactory() *Factory {
	return &Factory{instances: map[string]Generator{}}
}

// Generator returns the cached generator for a provider id, creating it
// on first use. Unknown providers are a configuration error.
func (f *Factory) Generator(providerID, apiKey string) (Generator, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	name := strings.ToLower(providerID)
	key := name + ":" + apiKey
	if gen, ok := f.instances[key]; ok {
		return gen, nil
	}

	var gen Generator
	switch name {
	case "openai":
		gen = newOpenAIGenerator(apiKey, "", "gpt-4o")
	case "deepseek":
		// OpenAI-compatible endpoint
		gen = newOpenAIGenerator(apiKey, "https://api.deepseek.com", "deepseek-chat")
	case "gemini", "google":
		// Served through Google's OpenAI-compatible gateway
		gen = newOpenAIGenerator(apiKey, "https://generativelanguage.googleapis.com/v1beta/openai/", "gemini-1.5-flash")
	case "claude", "anthropic":
		gen = newClaudeGenerator(apiKey)
	default:
		return nil, fmt.Errorf("unknown AI provider %q", providerID)
	}
	f.instances[key] = gen
	return gen, nil
}

// buildPrompt composes the full generation request the way operator
// prompts expect: system prompt, task instruction, then the history.
func buildPrompt(history, promptText string) string {
	if promptText == "" {
		promptText = DefaultPrompt
	}
	return promptText +
		"\n\nНиже представлена история переписки с клиентом на Avito. " +
		"Последнее сообщение от клиента. Сгенерируй короткий, вежливый и релевантный ответ от лица продавца." +
		"\n\nИстория:\n" + history
}
