package types

import "dialog-agent/dialog"

// ReplyRequest is one line of player input addressed to a partner.
type ReplyRequest struct {
	Partner string `json:"partner" binding:"required"`
	Text    string `json:"text"`
}

// ReplyResponse carries one result per sentence of the input.
type ReplyResponse struct {
	Partner string          `json:"partner"`
	Replies []dialog.Result `json:"replies"`
	// HTML holds each reply rendered from markdown when rendering is enabled.
	HTML []string `json:"html,omitempty"`
}

type KeywordsRequest struct {
	Partner  string `json:"partner" binding:"required"`
	Sentence string `json:"sentence"`
}

type KeywordsResponse struct {
	Keywords []string `json:"keywords"`
}

// OptionsRequest asks for completions of partially typed input.
type OptionsRequest struct {
	Partner string `json:"partner" binding:"required"`
	Partial string `json:"partial"`
}

type OptionsResponse struct {
	Options []string `json:"options"`
}

type TablesResponse struct {
	Partner string   `json:"partner"`
	Tables  []string `json:"tables"`
}

type HealthResponse struct {
	Status        string `json:"status"`
	Tables        int    `json:"tables"`
	Words         int    `json:"words"`
	Relationships int    `json:"relationships"`
}
