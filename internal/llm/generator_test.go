package llm

import (
	"strings"
	"testing"
)

func TestFactoryKnownProviders(t *testing.T) {
	f := NewFactory()

	for _, provider := range []string{"openai", "deepseek", "gemini", "google", "claude", "anthropic", "OpenAI"} {
		if _, err := f.Generator(provider, "key"); err != nil {
			t.Fatalf("provider %q rejected: %v", provider, err)
		}
	}
}

func TestFactoryUnknownProvider(t *testing.T) {
	f := NewFactory()
	if _, err := f.Generator("llama", "key"); err == nil {
		t.Fatalf("expected error for unknown provider")
	}
}

func TestFactoryCachesPerKey(t *testing.T) {
	f := NewFactory()

	a, err := f.Generator("openai", "key-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	b, err := f.Generator("openai", "key-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if a != b {
		t.Fatalf("expected cached instance for same provider/key")
	}

	c, err := f.Generator("openai", "key-2")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if a == c {
		t.Fatalf("expected distinct instance for different key")
	}
}

func TestBuildPrompt(t *testing.T) {
	got := buildPrompt("Клиент: привет\n", "Отвечай кратко.")
	if !strings.HasPrefix(got, "Отвечай кратко.") {
		t.Fatalf("prompt text not leading: %q", got)
	}
	if !strings.Contains(got, "Клиент: привет") {
		t.Fatalf("history missing: %q", got)
	}

	fallback := buildPrompt("история", "")
	if !strings.HasPrefix(fallback, DefaultPrompt) {
		t.Fatalf("expected default prompt fallback: %q", fallback)
	}
}
