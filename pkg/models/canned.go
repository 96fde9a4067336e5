package models

// ResponseCategory groups canned responses for the operator keyboard.
type ResponseCategory struct {
	ID   int64  `db:"id"`
	Name string `db:"name"`
}

// CannedResponse is a stored reply template.
type CannedResponse struct {
	ID           int64  `db:"id"`
	ShortName    string `db:"short_name"`
	ResponseText string `db:"response_text"`
	CategoryID   *int64 `db:"category_id"`
}

// Prompt is a stored system prompt for AI reply generation.
type Prompt struct {
	ID         int64  `db:"id"`
	Name       string `db:"name"`
	PromptText string `db:"prompt_text"`
}
