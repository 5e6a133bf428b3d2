// Package chat provides conversation state management and the send
// orchestration for the OpenChad client.
package chat

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/openchad-ai/openchad/internal/event"
	"github.com/openchad-ai/openchad/internal/logging"
	"github.com/openchad-ai/openchad/internal/storage"
	"github.com/openchad-ai/openchad/pkg/types"
)

// Storage keys. Conversations and the theme preference live under
// independent keys in the same namespace.
var (
	conversationsKey = []string{"chat", "conversations"}
	themeKey         = []string{"chat", "theme"}
)

// DefaultTheme is used when no theme preference has been persisted.
const DefaultTheme = "dark"

// Store owns the conversation collection, the active-conversation pointer,
// and persistence. Every mutation replaces the targeted conversation with an
// updated copy and then writes the whole collection back to storage;
// mutations targeting a conversation that no longer exists are silent no-ops
// so an in-flight stream cannot corrupt state after its conversation was
// deleted.
type Store struct {
	storage *storage.Storage

	mu            sync.Mutex
	conversations []*types.Conversation
	activeID      string
	theme         string
}

// NewStore creates a store backed by the given storage.
func NewStore(st *storage.Storage) *Store {
	return &Store{storage: st, theme: DefaultTheme}
}

// Load hydrates the store from persisted state. With no persisted state the
// collection starts with a single empty conversation.
func (s *Store) Load(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var saved []*types.Conversation
	err := s.storage.Get(ctx, conversationsKey, &saved)
	if err != nil && !errors.Is(err, storage.ErrNotFound) {
		return err
	}

	if len(saved) == 0 {
		fresh := newConversation()
		s.conversations = []*types.Conversation{fresh}
		s.activeID = fresh.ID
		if err := s.persistLocked(ctx); err != nil {
			return err
		}
	} else {
		s.conversations = saved
		s.activeID = saved[0].ID
	}

	var theme string
	if err := s.storage.Get(ctx, themeKey, &theme); err == nil && theme != "" {
		s.theme = theme
	}

	logging.Debug().Int("conversations", len(s.conversations)).Msg("store loaded")
	return nil
}

// Conversations returns a snapshot of the conversation collection.
func (s *Store) Conversations() []*types.Conversation {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]*types.Conversation, len(s.conversations))
	copy(out, s.conversations)
	return out
}

// Get returns the conversation with the given ID, or nil.
func (s *Store) Get(id string) *types.Conversation {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.findLocked(id)
}

// ActiveID returns the ID of the active conversation.
func (s *Store) ActiveID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.activeID
}

// Active returns the active conversation.
func (s *Store) Active() *types.Conversation {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.findLocked(s.activeID)
}

// Create appends a fresh empty conversation, selects it, and persists.
func (s *Store) Create(ctx context.Context) (*types.Conversation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	conv := newConversation()
	s.conversations = append(s.conversations, conv)
	s.activeID = conv.ID

	if err := s.persistLocked(ctx); err != nil {
		return nil, err
	}

	event.Publish(event.Event{
		Type: event.ConversationCreated,
		Data: event.ConversationCreatedData{Info: conv},
	})
	return conv, nil
}

// Select makes the given conversation active. Selecting an unknown ID is a
// no-op; selection is not persisted state, only the collection is.
func (s *Store) Select(id string) {
	s.mu.Lock()
	if s.findLocked(id) == nil {
		s.mu.Unlock()
		return
	}
	s.activeID = id
	s.mu.Unlock()

	event.Publish(event.Event{
		Type: event.ConversationSelected,
		Data: event.ConversationSelectedData{ConversationID: id},
	})
}

// Delete removes a conversation. The first remaining conversation becomes
// active; deleting the last one synthesizes a fresh empty conversation
// atomically, so the collection is never empty.
func (s *Store) Delete(ctx context.Context, id string) error {
	s.mu.Lock()

	idx := -1
	for i, conv := range s.conversations {
		if conv.ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		s.mu.Unlock()
		return nil
	}

	s.conversations = append(s.conversations[:idx], s.conversations[idx+1:]...)

	var created *types.Conversation
	if len(s.conversations) == 0 {
		created = newConversation()
		s.conversations = []*types.Conversation{created}
	}
	if s.activeID == id || s.findLocked(s.activeID) == nil {
		s.activeID = s.conversations[0].ID
	}

	err := s.persistLocked(ctx)
	s.mu.Unlock()
	if err != nil {
		return err
	}

	event.Publish(event.Event{
		Type: event.ConversationDeleted,
		Data: event.ConversationDeletedData{ConversationID: id},
	})
	if created != nil {
		event.Publish(event.Event{
			Type: event.ConversationCreated,
			Data: event.ConversationCreatedData{Info: created},
		})
	}
	return nil
}

// AppendMessage appends a message to a conversation and persists. The first
// user message fixes the conversation title; it is never recomputed. A
// missing conversation is a silent no-op.
func (s *Store) AppendMessage(ctx context.Context, convID string, msg *types.Message) {
	s.mu.Lock()

	conv := s.findLocked(convID)
	if conv == nil {
		s.mu.Unlock()
		logging.Debug().Str("conversation", convID).Msg("append to missing conversation ignored")
		return
	}

	updated := conv.Clone()
	updated.Messages = append(updated.Messages, msg)

	titled := false
	if msg.Sender == types.SenderUser && !hasUserMessage(conv) {
		updated.Title = deriveTitle(msg.Text)
		titled = true
	}

	s.replaceLocked(updated)
	err := s.persistLocked(ctx)
	s.mu.Unlock()
	if err != nil {
		logging.Error().Err(err).Msg("failed to persist conversation")
	}

	event.PublishSync(event.Event{
		Type: event.MessageCreated,
		Data: event.MessageCreatedData{ConversationID: convID, Info: msg},
	})
	if titled {
		event.Publish(event.Event{
			Type: event.ConversationUpdated,
			Data: event.ConversationUpdatedData{Info: updated},
		})
	}
}

// PatchMessage applies a partial update to a message by ID and persists.
// Delta, when non-empty, is forwarded on the update event so subscribers can
// render incrementally. Missing conversation or message: silent no-op.
func (s *Store) PatchMessage(ctx context.Context, convID, msgID string, patch types.MessagePatch, delta string) {
	s.mu.Lock()

	conv := s.findLocked(convID)
	if conv == nil {
		s.mu.Unlock()
		logging.Debug().Str("conversation", convID).Msg("patch on missing conversation ignored")
		return
	}

	updated := conv.Clone()
	var patched *types.Message
	for i, msg := range updated.Messages {
		if msg.ID == msgID {
			patched = patch.Apply(msg)
			updated.Messages[i] = patched
			break
		}
	}
	if patched == nil {
		s.mu.Unlock()
		return
	}

	s.replaceLocked(updated)
	err := s.persistLocked(ctx)
	s.mu.Unlock()
	if err != nil {
		logging.Error().Err(err).Msg("failed to persist conversation")
	}

	event.PublishSync(event.Event{
		Type: event.MessageUpdated,
		Data: event.MessageUpdatedData{ConversationID: convID, Info: patched, Delta: delta},
	})
}

// Theme returns the persisted theme preference.
func (s *Store) Theme() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.theme
}

// SetTheme persists a theme preference under its own storage key.
func (s *Store) SetTheme(ctx context.Context, theme string) error {
	s.mu.Lock()
	s.theme = theme
	err := s.storage.Put(ctx, themeKey, theme)
	s.mu.Unlock()
	if err != nil {
		return err
	}

	event.Publish(event.Event{
		Type: event.ThemeUpdated,
		Data: event.ThemeUpdatedData{Theme: theme},
	})
	return nil
}

// findLocked returns the conversation with the given ID. Caller holds mu.
func (s *Store) findLocked(id string) *types.Conversation {
	for _, conv := range s.conversations {
		if conv.ID == id {
			return conv
		}
	}
	return nil
}

// replaceLocked swaps in an updated conversation copy. Caller holds mu.
func (s *Store) replaceLocked(updated *types.Conversation) {
	for i, conv := range s.conversations {
		if conv.ID == updated.ID {
			s.conversations[i] = updated
			return
		}
	}
}

// persistLocked writes the whole collection to storage. Caller holds mu.
func (s *Store) persistLocked(ctx context.Context) error {
	return s.storage.Put(ctx, conversationsKey, s.conversations)
}

// newConversation builds an empty conversation with the default title.
func newConversation() *types.Conversation {
	return &types.Conversation{
		ID:        types.NewID(),
		Title:     defaultTitle,
		Messages:  []*types.Message{},
		CreatedAt: time.Now().UnixMilli(),
	}
}

// hasUserMessage reports whether the conversation already contains a user
// message.
func hasUserMessage(conv *types.Conversation) bool {
	for _, msg := range conv.Messages {
		if msg.Sender == types.SenderUser {
			return true
		}
	}
	return false
}
