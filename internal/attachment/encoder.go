// Package attachment converts user-supplied files into transmittable
// attachment records.
package attachment

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/openchad-ai/openchad/internal/logging"
	"github.com/openchad-ai/openchad/pkg/types"
)

// ErrUnsupportedType is returned for files that are neither images nor text.
var ErrUnsupportedType = errors.New("unsupported attachment type")

// plainTextExtensions are file extensions treated as text when the declared
// media type is missing or unhelpful (e.g. application/octet-stream).
var plainTextExtensions = map[string]bool{
	".txt":  true,
	".md":   true,
	".csv":  true,
	".json": true,
	".xml":  true,
	".yaml": true,
	".yml":  true,
	".log":  true,
	".html": true,
	".css":  true,
	".js":   true,
	".py":   true,
	".go":   true,
}

// File is a user-supplied file pending encoding.
type File struct {
	Name      string
	MediaType string
	Reader    io.Reader
}

// Encoder converts raw files into attachments. It is stateless; attachments
// are not retained across sends.
type Encoder struct{}

// NewEncoder creates a new Encoder.
func NewEncoder() *Encoder {
	return &Encoder{}
}

// Encode reads the file and produces an attachment record. Image files
// become a self-describing data URL; text files carry their decoded
// content. Any other file yields ErrUnsupportedType.
func (e *Encoder) Encode(ctx context.Context, f File) (*types.Attachment, error) {
	switch {
	case strings.HasPrefix(f.MediaType, "image/"):
		data, err := io.ReadAll(f.Reader)
		if err != nil {
			return nil, fmt.Errorf("failed to read image %s: %w", f.Name, err)
		}
		return &types.Attachment{
			ID:        types.NewID(),
			Type:      types.AttachmentImage,
			Name:      f.Name,
			MediaType: f.MediaType,
			Data:      EncodeDataURL(f.MediaType, data),
		}, nil

	case strings.HasPrefix(f.MediaType, "text/") || plainTextExtensions[strings.ToLower(filepath.Ext(f.Name))]:
		data, err := io.ReadAll(f.Reader)
		if err != nil {
			return nil, fmt.Errorf("failed to read text file %s: %w", f.Name, err)
		}
		return &types.Attachment{
			ID:        types.NewID(),
			Type:      types.AttachmentText,
			Name:      f.Name,
			MediaType: f.MediaType,
			Data:      string(data),
		}, nil

	default:
		return nil, ErrUnsupportedType
	}
}

// EncodeAll encodes a batch of files, silently dropping unsupported ones.
func (e *Encoder) EncodeAll(ctx context.Context, files []File) []*types.Attachment {
	var atts []*types.Attachment
	for _, f := range files {
		att, err := e.Encode(ctx, f)
		if err != nil {
			if errors.Is(err, ErrUnsupportedType) {
				logging.Debug().Str("file", f.Name).Str("mediaType", f.MediaType).Msg("dropping unsupported attachment")
				continue
			}
			logging.Warn().Err(err).Str("file", f.Name).Msg("failed to encode attachment")
			continue
		}
		atts = append(atts, att)
	}
	return atts
}

// EncodeDataURL builds a data URL from a media type and raw bytes.
func EncodeDataURL(mediaType string, data []byte) string {
	return "data:" + mediaType + ";base64," + base64.StdEncoding.EncodeToString(data)
}

// DecodeDataURL reconstructs the media type and raw bytes from a data URL
// produced by EncodeDataURL.
func DecodeDataURL(url string) (mediaType string, data []byte, err error) {
	rest, ok := strings.CutPrefix(url, "data:")
	if !ok {
		return "", nil, fmt.Errorf("not a data URL")
	}

	meta, payload, ok := strings.Cut(rest, ",")
	if !ok {
		return "", nil, fmt.Errorf("malformed data URL")
	}

	mediaType = strings.TrimSuffix(meta, ";base64")
	data, err = base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return "", nil, fmt.Errorf("failed to decode data URL payload: %w", err)
	}

	return mediaType, data, nil
}
