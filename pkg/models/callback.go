package models

// CallbackAction type of callback action
type CallbackAction string

const (
	CallbackManualReply  CallbackAction = "mr"
	CallbackHistory      CallbackAction = "h"
	CallbackTemplates    CallbackAction = "tl"
	CallbackSendTemplate CallbackAction = "ts"
	CallbackAIReply      CallbackAction = "ai"
)

// CallbackData structure for inline button callback
type CallbackData struct {
	Action     CallbackAction `json:"a"`
	AccountID  int64          `json:"ac"`
	ChatID     string         `json:"c"`           // Avito conversation id
	TemplateID int64          `json:"t,omitempty"` // Canned response id for ts
}
