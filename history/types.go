package history

import "time"

// Entry is one exported line of the transcript.
type Entry struct {
	ID          string   `json:"id"`
	Role        string   `json:"role"`
	Text        string   `json:"text"`
	Attachments []string `json:"attachments,omitempty"`
	TS          int64    `json:"ts"`
}

// Hit is a search match.
type Hit struct {
	MessageID string
	Role      string
	Text      string
	Preview   string
	CreatedAt time.Time
}
