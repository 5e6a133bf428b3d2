package chat

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openchad-ai/openchad/internal/event"
	"github.com/openchad-ai/openchad/internal/storage"
	"github.com/openchad-ai/openchad/pkg/types"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	t.Cleanup(event.Reset)

	s := NewStore(storage.New(t.TempDir()))
	require.NoError(t, s.Load(context.Background()))
	return s
}

func userMessage(text string) *types.Message {
	return &types.Message{
		ID:        types.NewID(),
		Text:      text,
		Sender:    types.SenderUser,
		Timestamp: time.Now().UnixMilli(),
	}
}

func TestStore_LoadCreatesInitialConversation(t *testing.T) {
	s := newTestStore(t)

	convs := s.Conversations()
	require.Len(t, convs, 1)
	assert.Equal(t, defaultTitle, convs[0].Title)
	assert.Empty(t, convs[0].Messages)
	assert.Equal(t, convs[0].ID, s.ActiveID())
}

func TestStore_CreateSelectsNewConversation(t *testing.T) {
	s := newTestStore(t)

	conv, err := s.Create(context.Background())
	require.NoError(t, err)

	assert.Len(t, s.Conversations(), 2)
	assert.Equal(t, conv.ID, s.ActiveID())
}

func TestStore_SelectUnknownIsNoOp(t *testing.T) {
	s := newTestStore(t)
	active := s.ActiveID()

	s.Select("no-such-id")
	assert.Equal(t, active, s.ActiveID())
}

func TestStore_DeleteLastSynthesizesFresh(t *testing.T) {
	s := newTestStore(t)
	old := s.ActiveID()

	require.NoError(t, s.Delete(context.Background(), old))

	convs := s.Conversations()
	require.Len(t, convs, 1)
	assert.NotEqual(t, old, convs[0].ID)
	assert.Equal(t, defaultTitle, convs[0].Title)
	assert.Equal(t, convs[0].ID, s.ActiveID())
}

func TestStore_DeleteActiveReselectsFirst(t *testing.T) {
	s := newTestStore(t)
	first := s.ActiveID()

	second, err := s.Create(context.Background())
	require.NoError(t, err)
	require.Equal(t, second.ID, s.ActiveID())

	require.NoError(t, s.Delete(context.Background(), second.ID))
	assert.Equal(t, first, s.ActiveID())
}

func TestStore_DeleteNonActiveKeepsSelection(t *testing.T) {
	s := newTestStore(t)
	first := s.ActiveID()

	second, err := s.Create(context.Background())
	require.NoError(t, err)
	third, err := s.Create(context.Background())
	require.NoError(t, err)
	require.Equal(t, third.ID, s.ActiveID())

	// Removing a conversation the user is not looking at must not yank
	// them to a different one.
	require.NoError(t, s.Delete(context.Background(), second.ID))
	assert.Equal(t, third.ID, s.ActiveID())

	require.NoError(t, s.Delete(context.Background(), first))
	assert.Equal(t, third.ID, s.ActiveID())
}

func TestStore_DeleteUnknownIsNoOp(t *testing.T) {
	s := newTestStore(t)

	require.NoError(t, s.Delete(context.Background(), "no-such-id"))
	assert.Len(t, s.Conversations(), 1)
}

func TestStore_TitleDerivedFromFirstUserMessage(t *testing.T) {
	s := newTestStore(t)
	id := s.ActiveID()

	s.AppendMessage(context.Background(), id, userMessage("hola, ¿cómo estás?"))
	assert.Equal(t, "hola, ¿cómo estás?", s.Get(id).Title)

	s.AppendMessage(context.Background(), id, userMessage("segundo mensaje mucho más largo"))
	assert.Equal(t, "hola, ¿cómo estás?", s.Get(id).Title, "title must not be recomputed")
}

func TestStore_TitleTruncated(t *testing.T) {
	s := newTestStore(t)
	id := s.ActiveID()

	long := strings.Repeat("á", 40)
	s.AppendMessage(context.Background(), id, userMessage(long))

	title := s.Get(id).Title
	assert.Equal(t, strings.Repeat("á", 30)+"...", title)
}

func TestStore_AssistantMessageDoesNotSetTitle(t *testing.T) {
	s := newTestStore(t)
	id := s.ActiveID()

	s.AppendMessage(context.Background(), id, &types.Message{
		ID:     types.NewID(),
		Text:   "respuesta",
		Sender: types.SenderAssistant,
	})
	assert.Equal(t, defaultTitle, s.Get(id).Title)
}

func TestStore_AppendToMissingConversationIgnored(t *testing.T) {
	s := newTestStore(t)

	s.AppendMessage(context.Background(), "no-such-id", userMessage("hola"))

	convs := s.Conversations()
	require.Len(t, convs, 1)
	assert.Empty(t, convs[0].Messages)
}

func TestStore_PatchMessage(t *testing.T) {
	s := newTestStore(t)
	id := s.ActiveID()

	msg := &types.Message{
		ID:          types.NewID(),
		Sender:      types.SenderAssistant,
		IsStreaming: true,
	}
	s.AppendMessage(context.Background(), id, msg)

	s.PatchMessage(context.Background(), id, msg.ID,
		types.MessagePatch{AppendText: types.String("hola")}, "hola")
	s.PatchMessage(context.Background(), id, msg.ID,
		types.MessagePatch{AppendText: types.String(" mundo"), IsStreaming: types.Bool(false)}, " mundo")

	got := s.Get(id).Messages[0]
	assert.Equal(t, "hola mundo", got.Text)
	assert.False(t, got.IsStreaming)
}

func TestStore_PatchOnMissingConversationIgnored(t *testing.T) {
	s := newTestStore(t)

	s.PatchMessage(context.Background(), "gone", "msg",
		types.MessagePatch{SetText: types.String("x")}, "")
}

func TestStore_PersistenceRoundTrip(t *testing.T) {
	t.Cleanup(event.Reset)
	dir := t.TempDir()

	s := NewStore(storage.New(dir))
	require.NoError(t, s.Load(context.Background()))

	id := s.ActiveID()
	s.AppendMessage(context.Background(), id, userMessage("hola"))
	second, err := s.Create(context.Background())
	require.NoError(t, err)

	reloaded := NewStore(storage.New(dir))
	require.NoError(t, reloaded.Load(context.Background()))

	convs := reloaded.Conversations()
	require.Len(t, convs, 2)
	assert.Equal(t, id, convs[0].ID)
	assert.Equal(t, "hola", convs[0].Title)
	require.Len(t, convs[0].Messages, 1)
	assert.Equal(t, "hola", convs[0].Messages[0].Text)
	assert.Equal(t, second.ID, convs[1].ID)
}

func TestStore_ThemeDefaultAndPersist(t *testing.T) {
	t.Cleanup(event.Reset)
	dir := t.TempDir()

	s := NewStore(storage.New(dir))
	require.NoError(t, s.Load(context.Background()))
	assert.Equal(t, DefaultTheme, s.Theme())

	require.NoError(t, s.SetTheme(context.Background(), "light"))

	reloaded := NewStore(storage.New(dir))
	require.NoError(t, reloaded.Load(context.Background()))
	assert.Equal(t, "light", reloaded.Theme())
}

func TestStore_TitleDerivationPublishesUpdate(t *testing.T) {
	s := newTestStore(t)
	id := s.ActiveID()

	titles := make(chan string, 2)
	unsub := event.Subscribe(event.ConversationUpdated, func(ev event.Event) {
		titles <- ev.Data.(event.ConversationUpdatedData).Info.Title
	})
	defer unsub()

	s.AppendMessage(context.Background(), id, userMessage("hola"))

	select {
	case title := <-titles:
		assert.Equal(t, "hola", title)
	case <-time.After(time.Second):
		t.Fatal("no conversation update after title derivation")
	}

	// Later messages leave the title alone and publish nothing.
	s.AppendMessage(context.Background(), id, userMessage("otro mensaje"))
	select {
	case title := <-titles:
		t.Fatalf("unexpected conversation update: %q", title)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestStore_MessageEventsCarryDelta(t *testing.T) {
	s := newTestStore(t)
	id := s.ActiveID()

	var deltas []string
	unsub := event.Subscribe(event.MessageUpdated, func(ev event.Event) {
		data := ev.Data.(event.MessageUpdatedData)
		deltas = append(deltas, data.Delta)
	})
	defer unsub()

	msg := &types.Message{ID: types.NewID(), Sender: types.SenderAssistant, IsStreaming: true}
	s.AppendMessage(context.Background(), id, msg)

	s.PatchMessage(context.Background(), id, msg.ID,
		types.MessagePatch{AppendText: types.String("a")}, "a")
	s.PatchMessage(context.Background(), id, msg.ID,
		types.MessagePatch{AppendText: types.String("b")}, "b")

	assert.Equal(t, []string{"a", "b"}, deltas)
}

func TestDeriveTitle(t *testing.T) {
	assert.Equal(t, defaultTitle, deriveTitle(""))
	assert.Equal(t, "corto", deriveTitle("corto"))
	assert.Equal(t, strings.Repeat("x", 30), deriveTitle(strings.Repeat("x", 30)))
	assert.Equal(t, strings.Repeat("x", 30)+"...", deriveTitle(strings.Repeat("x", 31)))
}
