package types

// AttachmentType classifies an attachment's payload.
type AttachmentType string

const (
	AttachmentImage AttachmentType = "image"
	AttachmentText  AttachmentType = "text"
)

// Attachment is a file attached to an outgoing user message. For images,
// Data holds a data URL (base64) suitable for inline display and for
// decoding back into binary when the request is built. For text files,
// Data holds the decoded content.
type Attachment struct {
	ID        string         `json:"id"`
	Type      AttachmentType `json:"type"`
	Name      string         `json:"name"`
	MediaType string         `json:"mediaType"`
	Data      string         `json:"data"`
}

// Document is a named binary (typically a PDF) sent alongside a message.
type Document struct {
	Name string
	Data []byte
}
