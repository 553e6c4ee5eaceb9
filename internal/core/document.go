package core

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

const (
	DocumentPhoto DocumentType = "photo"
	DocumentFile  DocumentType = "document"
)

// MaxDocumentBytes bounds the stored file of one document.
const MaxDocumentBytes = 10 << 20

var (
	ErrEmptyDocument   = errors.New("document has no file")
	ErrDocumentTooBig  = errors.New("document file too large")
	ErrInvalidDocument = errors.New("invalid document type")
)

type (
	DocumentType string

	// Document is a stored file such as a receipt photo or a signed contract.
	Document struct {
		ID        int64        `json:"id"`
		Title     string       `json:"title"`
		Type      DocumentType `json:"type"`
		MimeType  string       `json:"mimeType,omitempty"`
		Data      []byte       `json:"data"`
		Date      time.Time    `json:"date"`
		Tags      []string     `json:"tags,omitempty"`
		CreatedAt time.Time    `json:"createdAt"`
		UpdatedAt time.Time    `json:"updatedAt"`
	}
)

// DocumentTypeFor classifies a file by its MIME type: images are photos,
// everything else is a document.
func DocumentTypeFor(mime string) DocumentType {
	if strings.HasPrefix(strings.ToLower(strings.TrimSpace(mime)), "image/") {
		return DocumentPhoto
	}
	return DocumentFile
}

func (d Document) Validate() error {
	if strings.TrimSpace(d.Title) == "" {
		return ErrEmptyTitle
	}
	switch d.Type {
	case DocumentPhoto, DocumentFile:
	default:
		return fmt.Errorf("%w: %q", ErrInvalidDocument, d.Type)
	}
	if d.Date.IsZero() {
		return ErrZeroDate
	}
	if len(d.Data) == 0 {
		return ErrEmptyDocument
	}
	if len(d.Data) > MaxDocumentBytes {
		return fmt.Errorf("%w: %d bytes (max %d)", ErrDocumentTooBig, len(d.Data), MaxDocumentBytes)
	}
	return nil
}
