package models

import "time"

// ReplyKind records the provenance of an outbound reply in the
// delivery log.
type ReplyKind string

const (
	ReplyNone         ReplyKind = ""
	ReplyManual       ReplyKind = "manual"
	ReplyCanned       ReplyKind = "canned"
	ReplyAI           ReplyKind = "ai"
	ReplyAIManual     ReplyKind = "ai_manual"
	ReplyTemplateAuto ReplyKind = "template_auto"
)

// DeliveryEntry is one immutable row of the delivery log: an inbound
// message surfaced to the operator or an outbound reply sent to Avito.
type DeliveryEntry struct {
	ID          int64     `db:"id"`
	AccountID   int64     `db:"account_id"`
	ChatID      string    `db:"chat_id"` // Avito conversation id
	Direction   string    `db:"direction"`
	ReplyKind   ReplyKind `db:"reply_kind"`
	MessageText string    `db:"message_text"`
	CreatedAt   time.Time `db:"created_at"`
}

// DeliveryStat is an aggregated delivery-log row for the stats report.
type DeliveryStat struct {
	AccountName string    `db:"account_name"`
	Direction   string    `db:"direction"`
	ReplyKind   ReplyKind `db:"reply_kind"`
	Count       int64     `db:"cnt"`
}
