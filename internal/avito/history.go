package avito

import (
	"sort"
	"strings"

	"github.com/mixelka/avitorelay/pkg/models"
)

// RenderHistory turns the tail of a conversation into the labeled text
// fed to the reply generator: oldest first, customer lines prefixed
// "Клиент:", seller lines "Вы:".
func RenderHistory(messages []models.Message, limit int) string {
	sorted := make([]models.Message, len(messages))
	copy(sorted, messages)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].Created < sorted[j].Created
	})

	if limit > 0 && len(sorted) > limit {
		sorted = sorted[len(sorted)-limit:]
	}

	var sb strings.Builder
	for _, msg := range sorted {
		prefix := "Вы:"
		if msg.Inbound() {
			prefix = "Клиент:"
		}
		sb.WriteString(prefix)
		sb.WriteString(" ")
		sb.WriteString(msg.Content.Text)
		sb.WriteString("\n")
	}
	return sb.String()
}
