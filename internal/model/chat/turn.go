package chat

import "time"

// Turn is one utterance/reply pair. Failed marks a reply that carries a
// formatted generation error instead of model output.
type Turn struct {
	UserUtterance  string    `json:"userUtterance"`
	AssistantReply string    `json:"assistantReply"`
	Failed         bool      `json:"failed,omitempty"`
	CreatedAt      time.Time `json:"createdAt"`
}
