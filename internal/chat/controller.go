package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/openchad-ai/openchad/internal/backend"
	"github.com/openchad-ai/openchad/internal/logging"
	"github.com/openchad-ai/openchad/pkg/types"
)

var (
	// ErrEmptyMessage is returned when a submission has no text, no
	// attachments, and no document. Nothing is created and no network
	// activity happens.
	ErrEmptyMessage = errors.New("empty message")

	// ErrBusy is returned when a send is attempted while another exchange
	// is still streaming. Sends are rejected, never queued.
	ErrBusy = errors.New("another response is still streaming")
)

// cancelledFallback is shown when an exchange is cancelled before any text
// arrived.
const cancelledFallback = "Respuesta cancelada."

// errorTextFormat is the user-facing diagnostic for failed exchanges.
const errorTextFormat = "Error: %s. Verifica que el backend esté corriendo y la API key esté configurada."

// Controller orchestrates one send at a time: it turns a user submission
// into a user message, a placeholder assistant message, and an outbound
// request, then applies the response stream to the store chunk by chunk.
// All terminal outcomes settle into store mutations; Send only returns an
// error for rejected submissions.
type Controller struct {
	store  *Store
	client *backend.Client

	mu        sync.Mutex
	streaming bool
	cancel    context.CancelFunc
}

// NewController creates a controller over the given store and backend client.
func NewController(store *Store, client *backend.Client) *Controller {
	return &Controller{store: store, client: client}
}

// IsStreaming reports whether an exchange is currently active.
func (c *Controller) IsStreaming() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.streaming
}

// Cancel requests cancellation of the active exchange, if any. It does not
// block; the exchange settles as cancelled when the stream terminates.
func (c *Controller) Cancel() {
	c.mu.Lock()
	cancel := c.cancel
	c.mu.Unlock()

	if cancel != nil {
		cancel()
	}
}

// Send submits a user message to the active conversation and blocks until
// the exchange settles. The stream keeps targeting the conversation that
// was active at send time, even if the user switches away mid-stream.
func (c *Controller) Send(ctx context.Context, text string, atts []*types.Attachment, doc *types.Document) error {
	if strings.TrimSpace(text) == "" && len(atts) == 0 && doc == nil {
		return ErrEmptyMessage
	}

	// The cancellation token is installed together with the streaming flag,
	// so Cancel observed after IsStreaming reports true is never lost, even
	// before the request has been built.
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	c.mu.Lock()
	if c.streaming {
		c.mu.Unlock()
		return ErrBusy
	}
	c.streaming = true
	c.cancel = cancel
	c.mu.Unlock()

	defer func() {
		c.mu.Lock()
		c.streaming = false
		c.cancel = nil
		c.mu.Unlock()
	}()

	// The conversation id is captured here; every later mutation targets it.
	convID := c.store.ActiveID()

	userMsg := &types.Message{
		ID:          types.NewID(),
		Text:        text,
		Sender:      types.SenderUser,
		Timestamp:   time.Now().UnixMilli(),
		Attachments: atts,
	}
	c.store.AppendMessage(ctx, convID, userMsg)

	placeholder := &types.Message{
		ID:          types.NewID(),
		Sender:      types.SenderAssistant,
		Timestamp:   time.Now().UnixMilli(),
		IsStreaming: true,
	}
	c.store.AppendMessage(ctx, convID, placeholder)

	req, err := c.client.BuildRequest(ctx, text, atts, doc)
	if err != nil {
		c.settleFailed(ctx, convID, placeholder.ID, err.Error())
		return nil
	}

	events, streamCancel := c.client.Stream(ctx, req)
	defer streamCancel()

	accumulated := 0
	for ev := range events {
		switch ev := ev.(type) {
		case backend.ChunkEvent:
			accumulated += len(ev.Text)
			c.store.PatchMessage(ctx, convID, placeholder.ID,
				types.MessagePatch{AppendText: types.String(ev.Text)}, ev.Text)

		case backend.DoneEvent:
			c.store.PatchMessage(ctx, convID, placeholder.ID,
				types.MessagePatch{IsStreaming: types.Bool(false)}, "")

		case backend.FailedEvent:
			c.settleFailed(ctx, convID, placeholder.ID, ev.Message)

		case backend.CancelledEvent:
			patch := types.MessagePatch{
				IsStreaming: types.Bool(false),
				IsCancelled: types.Bool(true),
			}
			if accumulated == 0 {
				patch.SetText = types.String(cancelledFallback)
			}
			c.store.PatchMessage(ctx, convID, placeholder.ID, patch, "")
			logging.Info().Str("conversation", convID).Msg("exchange cancelled")
		}
	}

	return nil
}

// settleFailed clears the placeholder's streaming flag without fabricating
// text beyond what already accumulated, and appends a separate error
// message carrying the user-facing diagnostic.
func (c *Controller) settleFailed(ctx context.Context, convID, placeholderID, message string) {
	c.store.PatchMessage(ctx, convID, placeholderID,
		types.MessagePatch{IsStreaming: types.Bool(false)}, "")

	errMsg := &types.Message{
		ID:        types.NewID(),
		Text:      fmt.Sprintf(errorTextFormat, message),
		Sender:    types.SenderAssistant,
		Timestamp: time.Now().UnixMilli(),
		IsError:   true,
	}
	c.store.AppendMessage(ctx, convID, errMsg)

	logging.Warn().Str("conversation", convID).Str("error", message).Msg("exchange failed")
}
