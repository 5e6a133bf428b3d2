package event

import "github.com/openchad-ai/openchad/pkg/types"

// ConversationCreatedData is the data for conversation.created events.
type ConversationCreatedData struct {
	Info *types.Conversation `json:"info"`
}

// ConversationUpdatedData is the data for conversation.updated events.
type ConversationUpdatedData struct {
	Info *types.Conversation `json:"info"`
}

// ConversationDeletedData is the data for conversation.deleted events.
type ConversationDeletedData struct {
	ConversationID string `json:"conversationID"`
}

// ConversationSelectedData is the data for conversation.selected events.
type ConversationSelectedData struct {
	ConversationID string `json:"conversationID"`
}

// MessageCreatedData is the data for message.created events.
type MessageCreatedData struct {
	ConversationID string         `json:"conversationID"`
	Info           *types.Message `json:"info"`
}

// MessageUpdatedData is the data for message.updated events.
// Delta carries the streamed fragment when the update is a chunk append.
type MessageUpdatedData struct {
	ConversationID string         `json:"conversationID"`
	Info           *types.Message `json:"info"`
	Delta          string         `json:"delta,omitempty"`
}

// ThemeUpdatedData is the data for theme.updated events.
type ThemeUpdatedData struct {
	Theme string `json:"theme"`
}
