package formatter

import (
	"encoding/json"

	"github.com/go-telegram/bot/models"

	appmodels "github.com/mixelka/avitorelay/pkg/models"
)

// BuildChatKeyboard creates the interaction keyboard attached to a
// new-message notification. The AI button only appears for accounts in
// an AI mode; fully autonomous sending still allows a manual trigger.
func BuildChatKeyboard(account *appmodels.Account, chatID string) *models.InlineKeyboardMarkup {
	rows := [][]models.InlineKeyboardButton{
		{
			{
				Text: "✏️ Ответить",
				CallbackData: EncodeCallback(appmodels.CallbackData{
					Action:    appmodels.CallbackManualReply,
					AccountID: account.ID,
					ChatID:    chatID,
				}),
			},
			{
				Text: "📜 История",
				CallbackData: EncodeCallback(appmodels.CallbackData{
					Action:    appmodels.CallbackHistory,
					AccountID: account.ID,
					ChatID:    chatID,
				}),
			},
		},
		{
			{
				Text: "📝 Шаблоны >",
				CallbackData: EncodeCallback(appmodels.CallbackData{
					Action:    appmodels.CallbackTemplates,
					AccountID: account.ID,
					ChatID:    chatID,
				}),
			},
		},
	}

	if account.Mode.AI() {
		rows = append(rows, []models.InlineKeyboardButton{
			{
				Text: "🤖 Ответить с AI",
				CallbackData: EncodeCallback(appmodels.CallbackData{
					Action:    appmodels.CallbackAIReply,
					AccountID: account.ID,
					ChatID:    chatID,
				}),
			},
		})
	}

	return &models.InlineKeyboardMarkup{InlineKeyboard: rows}
}

// BuildTemplatesKeyboard lists the canned responses of the account's
// default category, one button per template.
func BuildTemplatesKeyboard(account *appmodels.Account, chatID string, templates []appmodels.CannedResponse) *models.InlineKeyboardMarkup {
	var rows [][]models.InlineKeyboardButton
	for _, tpl := range templates {
		rows = append(rows, []models.InlineKeyboardButton{
			{
				Text: tpl.ShortName,
				CallbackData: EncodeCallback(appmodels.CallbackData{
					Action:     appmodels.CallbackSendTemplate,
					AccountID:  account.ID,
					ChatID:     chatID,
					TemplateID: tpl.ID,
				}),
			},
		})
	}
	return &models.InlineKeyboardMarkup{InlineKeyboard: rows}
}

// EncodeCallback encodes callback data to string
func EncodeCallback(data appmodels.CallbackData) string {
	b, _ := json.Marshal(data)
	return string(b)
}

// DecodeCallback decodes callback data from string
func DecodeCallback(data string) (appmodels.CallbackData, error) {
	var cb appmodels.CallbackData
	err := json.Unmarshal([]byte(data), &cb)
	return cb, err
}
