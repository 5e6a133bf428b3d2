package backend

import (
	"bufio"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"github.com/openchad-ai/openchad/internal/logging"
)

// StreamEvent represents an event decoded from the response stream.
type StreamEvent interface {
	streamEvent()
}

// ChunkEvent carries an incremental fragment of assistant output. Fragments
// are appended, never replaced.
type ChunkEvent struct {
	Text string
}

func (ChunkEvent) streamEvent() {}

// DoneEvent signals normal completion; no further chunks follow.
type DoneEvent struct{}

func (DoneEvent) streamEvent() {}

// FailedEvent signals that the server reported an error, or that the
// transport failed. Terminal.
type FailedEvent struct {
	Message string
}

func (FailedEvent) streamEvent() {}

// CancelledEvent signals that the exchange was aborted by the caller.
// Terminal; it replaces FailedEvent whenever cancellation was requested,
// regardless of how the underlying read actually failed.
type CancelledEvent struct{}

func (CancelledEvent) streamEvent() {}

// streamLine is one decoded "data:" record.
type streamLine struct {
	Chunk *string `json:"chunk"`
	Done  *bool   `json:"done"`
	Error *string `json:"error"`
}

// chatResponse is the non-streaming response variant.
type chatResponse struct {
	Success  bool   `json:"success"`
	Response string `json:"response"`
	Error    string `json:"error"`
}

// Stream executes the request and decodes the response into an ordered,
// finite event sequence. The returned cancel function aborts the exchange;
// after cancellation the sequence terminates with CancelledEvent and any
// data still arriving is discarded. The channel is closed after the
// terminal event.
func (c *Client) Stream(ctx context.Context, req *http.Request) (<-chan StreamEvent, context.CancelFunc) {
	ctx, cancel := context.WithCancel(ctx)
	events := make(chan StreamEvent)

	go func() {
		defer close(events)
		c.run(ctx, req.WithContext(ctx), events)
	}()

	return events, cancel
}

// run drives the exchange and emits events until a terminal outcome.
func (c *Client) run(ctx context.Context, req *http.Request, events chan<- StreamEvent) {
	resp, err := c.http.Do(req)
	if err != nil {
		c.emit(ctx, events, terminalFor(ctx, err))
		return
	}
	defer resp.Body.Close()

	// Non-streaming variant: a single JSON object. Failure bodies keep this
	// shape too, so status is judged by the success field, not the code.
	if strings.HasPrefix(resp.Header.Get("Content-Type"), "application/json") {
		c.runSingle(ctx, resp.Body, events)
		return
	}

	// An error status without a JSON body is outside the wire contract
	// (a proxy error page, an empty upstream failure). Reading it as a
	// stream would find no records and settle as a clean completion.
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		logging.Warn().Str("status", resp.Status).Msg("non-JSON error response")
		c.emit(ctx, events, FailedEvent{Message: resp.Status})
		return
	}

	c.runStream(ctx, resp.Body, events)
}

// runSingle handles the {success, response, error} response shape.
func (c *Client) runSingle(ctx context.Context, body io.Reader, events chan<- StreamEvent) {
	data, err := io.ReadAll(body)
	if err != nil {
		c.emit(ctx, events, terminalFor(ctx, err))
		return
	}

	var cr chatResponse
	if err := json.Unmarshal(data, &cr); err != nil {
		c.emit(ctx, events, terminalFor(ctx, err))
		return
	}

	if !cr.Success {
		msg := cr.Error
		if msg == "" {
			msg = "unknown server error"
		}
		c.emit(ctx, events, FailedEvent{Message: msg})
		return
	}

	if c.emit(ctx, events, ChunkEvent{Text: cr.Response}) {
		c.emit(ctx, events, DoneEvent{})
	}
}

// runStream decodes the newline-delimited "data: <json>" protocol. Text is
// buffered and split on line boundaries; a trailing partial line is retained
// by the reader until a newline completes it. A line that fails to parse is
// logged and skipped; only an explicit error record or a transport failure
// ends the stream abnormally.
func (c *Client) runStream(ctx context.Context, body io.Reader, events chan<- StreamEvent) {
	reader := bufio.NewReader(body)

	for {
		if ctx.Err() != nil {
			c.emit(ctx, events, CancelledEvent{})
			return
		}

		line, err := reader.ReadString('\n')

		// A partial final line (EOF with data) is still parsed.
		if done, terminal := c.handleLine(ctx, events, line); done {
			if terminal != nil {
				c.emit(ctx, events, terminal)
			}
			return
		}

		if err != nil {
			if err == io.EOF {
				// Stream ended without an explicit done record.
				c.emit(ctx, events, DoneEvent{})
			} else {
				c.emit(ctx, events, terminalFor(ctx, err))
			}
			return
		}
	}
}

// handleLine parses one line and emits the corresponding event. It returns
// done=true when the line is terminal, along with the terminal event to emit
// (nil when the terminal event was already emitted as part of handling).
func (c *Client) handleLine(ctx context.Context, events chan<- StreamEvent, line string) (done bool, terminal StreamEvent) {
	line = strings.TrimRight(line, "\r\n")
	if line == "" {
		return false, nil
	}

	payload, ok := strings.CutPrefix(line, "data:")
	if !ok {
		return false, nil
	}
	payload = strings.TrimSpace(payload)
	if payload == "" {
		return false, nil
	}

	var rec streamLine
	if err := json.Unmarshal([]byte(payload), &rec); err != nil {
		logging.Warn().Err(err).Str("line", payload).Msg("skipping malformed stream line")
		return false, nil
	}

	switch {
	case rec.Error != nil:
		return true, FailedEvent{Message: *rec.Error}
	case rec.Done != nil && *rec.Done:
		return true, DoneEvent{}
	case rec.Chunk != nil:
		if !c.emit(ctx, events, ChunkEvent{Text: *rec.Chunk}) {
			return true, nil
		}
	}

	return false, nil
}

// emit delivers an event unless cancellation won the race; chunks arriving
// after an abort are dropped in favor of a single CancelledEvent. Returns
// false when delivery was pre-empted by cancellation.
func (c *Client) emit(ctx context.Context, events chan<- StreamEvent, ev StreamEvent) bool {
	if _, isCancel := ev.(CancelledEvent); !isCancel && ctx.Err() != nil {
		events <- CancelledEvent{}
		return false
	}
	events <- ev
	return true
}

// terminalFor maps a transport error to its terminal event: CancelledEvent
// when the caller aborted, FailedEvent otherwise.
func terminalFor(ctx context.Context, err error) StreamEvent {
	if ctx.Err() != nil {
		return CancelledEvent{}
	}
	return FailedEvent{Message: err.Error()}
}
