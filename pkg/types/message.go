package types

// Sender identifies who produced a message.
type Sender string

const (
	SenderUser      Sender = "user"
	SenderAssistant Sender = "assistant"
)

// Message represents a user or assistant message in a conversation.
//
// An assistant message starts with empty Text and IsStreaming=true; its text
// grows by chunk concatenation until the exchange settles, after which the
// message is never mutated again.
type Message struct {
	ID          string        `json:"id"`
	Text        string        `json:"text"`
	Sender      Sender        `json:"sender"`
	Timestamp   int64         `json:"timestamp"`
	Attachments []*Attachment `json:"attachments,omitempty"`
	IsStreaming bool          `json:"isStreaming,omitempty"`
	IsCancelled bool          `json:"isCancelled,omitempty"`
	IsError     bool          `json:"isError,omitempty"`
}

// MessagePatch describes a partial update to a message. Nil fields are
// left untouched; AppendText concatenates rather than replaces.
type MessagePatch struct {
	AppendText  *string
	SetText     *string
	IsStreaming *bool
	IsCancelled *bool
	IsError     *bool
}

// Apply returns a copy of msg with the patch applied.
func (p MessagePatch) Apply(msg *Message) *Message {
	cp := *msg
	if p.SetText != nil {
		cp.Text = *p.SetText
	}
	if p.AppendText != nil {
		cp.Text += *p.AppendText
	}
	if p.IsStreaming != nil {
		cp.IsStreaming = *p.IsStreaming
	}
	if p.IsCancelled != nil {
		cp.IsCancelled = *p.IsCancelled
	}
	if p.IsError != nil {
		cp.IsError = *p.IsError
	}
	return &cp
}

// Bool returns a pointer to b, for use in MessagePatch literals.
func Bool(b bool) *bool { return &b }

// String returns a pointer to s, for use in MessagePatch literals.
func String(s string) *string { return &s }
