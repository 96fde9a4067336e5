package formatter

import (
	"strings"
	"testing"

	appmodels "github.com/mixelka/avitorelay/pkg/models"
)

func TestFormatNewMessageEscapesHTML(t *testing.T) {
	f := NewTelegramFormatter()
	account := &appmodels.Account{Name: "Shop <b>"}
	conv := &appmodels.Conversation{
		ID:      "chat-1",
		Context: appmodels.ChatContext{Value: appmodels.ChatContextValue{Title: "Диван & кресло"}},
		Users:   []appmodels.ChatUser{{ID: 5, Name: "Иван"}},
	}
	msg := &appmodels.Message{
		Created: 1700000000,
		Content: appmodels.MessageContent{Text: "Цена < 1000?"},
	}

	got := f.FormatNewMessage(account, conv, msg)
	if strings.Contains(got, "Shop <b>") {
		t.Fatalf("account name not escaped: %q", got)
	}
	if !strings.Contains(got, "Диван &amp; кресло") {
		t.Fatalf("title not escaped: %q", got)
	}
	if !strings.Contains(got, "Цена &lt; 1000?") {
		t.Fatalf("text not escaped: %q", got)
	}
	if !strings.Contains(got, "Иван (5)") {
		t.Fatalf("author missing: %q", got)
	}
}

func TestFormatAutoReplyHeaders(t *testing.T) {
	f := NewTelegramFormatter()
	account := &appmodels.Account{Name: "Shop"}

	ai := f.FormatAutoReply(account, "ответ", appmodels.ReplyAI)
	if !strings.Contains(ai, "🤖") {
		t.Fatalf("expected AI header: %q", ai)
	}
	tpl := f.FormatAutoReply(account, "ответ", appmodels.ReplyTemplateAuto)
	if !strings.Contains(tpl, "📝") {
		t.Fatalf("expected template header: %q", tpl)
	}
}

func TestTruncateIsRuneSafe(t *testing.T) {
	f := NewTelegramFormatter()
	long := strings.Repeat("д", 5000)

	got := f.truncate(long, 4000)
	if !strings.HasSuffix(got, "(сообщение обрезано)") {
		t.Fatalf("expected truncation marker")
	}
	for _, r := range got {
		if r == '�' {
			t.Fatalf("truncation split a rune")
		}
	}
}

func TestCallbackRoundTrip(t *testing.T) {
	original := appmodels.CallbackData{
		Action:     appmodels.CallbackSendTemplate,
		AccountID:  7,
		ChatID:     "u2i-abcdef0123456789",
		TemplateID: 12,
	}

	encoded := EncodeCallback(original)
	// Telegram rejects callback payloads over 64 bytes.
	if len(encoded) > 64 {
		t.Fatalf("callback payload too long: %d bytes", len(encoded))
	}

	decoded, err := DecodeCallback(encoded)
	if err != nil {
		t.Fatalf("failed to decode: %v", err)
	}
	if decoded != original {
		t.Fatalf("round trip mismatch: %+v != %+v", decoded, original)
	}
}

func TestBuildChatKeyboardAIButton(t *testing.T) {
	chatID := "chat-1"

	plain := BuildChatKeyboard(&appmodels.Account{ID: 1, Mode: appmodels.ModeTemplateFull}, chatID)
	if len(plain.InlineKeyboard) != 2 {
		t.Fatalf("expected 2 rows without AI, got %d", len(plain.InlineKeyboard))
	}

	ai := BuildChatKeyboard(&appmodels.Account{ID: 1, Mode: appmodels.ModeAIFull}, chatID)
	if len(ai.InlineKeyboard) != 3 {
		t.Fatalf("expected 3 rows with AI, got %d", len(ai.InlineKeyboard))
	}
}

func TestFormatStats(t *testing.T) {
	f := NewTelegramFormatter()

	empty := f.FormatStats("день", nil)
	if !strings.Contains(empty, "Сообщений нет") {
		t.Fatalf("unexpected empty report: %q", empty)
	}

	stats := []appmodels.DeliveryStat{
		{AccountName: "Shop", Direction: appmodels.DirectionIn, Count: 3},
		{AccountName: "Shop", Direction: appmodels.DirectionOut, ReplyKind: appmodels.ReplyAI, Count: 2},
	}
	got := f.FormatStats("неделю", stats)
	if !strings.Contains(got, "входящие: 3") {
		t.Fatalf("inbound row missing: %q", got)
	}
	if !strings.Contains(got, "исходящие (ai): 2") {
		t.Fatalf("outbound row missing: %q", got)
	}
}
