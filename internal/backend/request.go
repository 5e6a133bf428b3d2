package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strings"

	"github.com/openchad-ai/openchad/internal/attachment"
	"github.com/openchad-ai/openchad/pkg/types"
)

// chatRequest is the JSON body for the plain-text path.
type chatRequest struct {
	Message string `json:"message"`
}

// BuildRequest composes the outbound POST /chat request.
//
// If any attachment is an image, or a document is present, the request is
// multipart: a "message" text field, one "images" binary part per image, and
// an optional "pdf" part. Otherwise the request is plain JSON, with the
// content of text attachments appended to the message under an
// "[Archivo: <name>]" marker. Text attachments are not carried on the
// multipart path.
func (c *Client) BuildRequest(ctx context.Context, text string, atts []*types.Attachment, doc *types.Document) (*http.Request, error) {
	hasImages := false
	for _, att := range atts {
		if att.Type == types.AttachmentImage {
			hasImages = true
			break
		}
	}

	if hasImages || doc != nil {
		return c.buildMultipartRequest(ctx, text, atts, doc)
	}
	return c.buildJSONRequest(ctx, text, atts)
}

func (c *Client) buildJSONRequest(ctx context.Context, text string, atts []*types.Attachment) (*http.Request, error) {
	var sb strings.Builder
	sb.WriteString(text)
	for _, att := range atts {
		if att.Type != types.AttachmentText {
			continue
		}
		sb.WriteString("\n\n[Archivo: ")
		sb.WriteString(att.Name)
		sb.WriteString("]\n")
		sb.WriteString(att.Data)
	}

	body, err := json.Marshal(chatRequest{Message: sb.String()})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	return req, nil
}

func (c *Client) buildMultipartRequest(ctx context.Context, text string, atts []*types.Attachment, doc *types.Document) (*http.Request, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	if err := w.WriteField("message", text); err != nil {
		return nil, fmt.Errorf("failed to write message field: %w", err)
	}

	for _, att := range atts {
		if att.Type != types.AttachmentImage {
			continue
		}
		mediaType, data, err := attachment.DecodeDataURL(att.Data)
		if err != nil {
			return nil, fmt.Errorf("failed to decode image %s: %w", att.Name, err)
		}
		part, err := createFormFile(w, "images", att.Name, mediaType)
		if err != nil {
			return nil, fmt.Errorf("failed to create image part: %w", err)
		}
		if _, err := part.Write(data); err != nil {
			return nil, fmt.Errorf("failed to write image part: %w", err)
		}
	}

	if doc != nil {
		part, err := createFormFile(w, "pdf", doc.Name, "application/pdf")
		if err != nil {
			return nil, fmt.Errorf("failed to create pdf part: %w", err)
		}
		if _, err := part.Write(doc.Data); err != nil {
			return nil, fmt.Errorf("failed to write pdf part: %w", err)
		}
	}

	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("failed to finalize multipart body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat", &buf)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", w.FormDataContentType())

	return req, nil
}

// createFormFile is multipart.Writer.CreateFormFile with an explicit part
// content type instead of application/octet-stream.
func createFormFile(w *multipart.Writer, fieldname, filename, contentType string) (io.Writer, error) {
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name=%q; filename=%q`, fieldname, filename))
	h.Set("Content-Type", contentType)
	return w.CreatePart(h)
}
