package avito

import (
	"strings"
	"testing"

	"github.com/mixelka/avitorelay/pkg/models"
)

func msg(id, direction string, created int64, text string) models.Message {
	return models.Message{
		ID:        id,
		Direction: direction,
		Type:      models.MessageTypeText,
		Created:   created,
		Content:   models.MessageContent{Text: text},
	}
}

func TestRenderHistoryOrdersAndLabels(t *testing.T) {
	messages := []models.Message{
		msg("m2", models.DirectionOut, 200, "Добрый день"),
		msg("m1", models.DirectionIn, 100, "Здравствуйте"),
		msg("m3", models.DirectionIn, 300, "Ещё актуально?"),
	}

	got := RenderHistory(messages, 10)
	want := "Клиент: Здравствуйте\nВы: Добрый день\nКлиент: Ещё актуально?\n"
	if got != want {
		t.Fatalf("unexpected history:\n%q\nwant:\n%q", got, want)
	}
}

func TestRenderHistoryLimitKeepsTail(t *testing.T) {
	messages := []models.Message{
		msg("m1", models.DirectionIn, 100, "первое"),
		msg("m2", models.DirectionIn, 200, "второе"),
		msg("m3", models.DirectionIn, 300, "третье"),
	}

	got := RenderHistory(messages, 2)
	if strings.Contains(got, "первое") {
		t.Fatalf("oldest message should be dropped: %q", got)
	}
	if !strings.Contains(got, "второе") || !strings.Contains(got, "третье") {
		t.Fatalf("tail missing: %q", got)
	}
}

func TestRenderHistoryEmpty(t *testing.T) {
	if got := RenderHistory(nil, 10); got != "" {
		t.Fatalf("expected empty history, got %q", got)
	}
}
