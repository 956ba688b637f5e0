package models

import "time"

// ChatMessage is a single role/content pair of a conversation. Role is
// conventionally "system", "user" or "assistant", but isn't validated.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatPostRequest is the body of POST /api/chat, a bare JSON array.
type ChatPostRequest []ChatMessage

type ChatPostResponse struct {
	Reply string `json:"reply"`
}

type PingGetResponse struct {
	OK  bool      `json:"ok"`
	Now time.Time `json:"now"`
}
