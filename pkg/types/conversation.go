// Package types provides the core data types for the OpenChad client.
package types

import "github.com/oklog/ulid/v2"

// Conversation is a single chat thread: an ordered list of messages plus
// the metadata shown in the sidebar.
type Conversation struct {
	ID        string     `json:"id"`
	Title     string     `json:"title"`
	Messages  []*Message `json:"messages"`
	CreatedAt int64      `json:"createdAt"`
}

// Clone returns a copy of the conversation with a copied message slice.
// The messages themselves are shared; callers must replace, not mutate,
// individual entries.
func (c *Conversation) Clone() *Conversation {
	cp := *c
	cp.Messages = make([]*Message, len(c.Messages))
	copy(cp.Messages, c.Messages)
	return &cp
}

// NewID generates a new ULID. ULIDs are lexicographically sortable by
// creation time, which keeps conversations and messages ordered.
func NewID() string {
	return ulid.Make().String()
}
