package document

import (
	"errors"
	"time"
)

// Document is an opaque attachment owned by exactly one project. Only the
// metadata is modeled here; byte storage belongs to a collaborator.
type Document struct {
	ID         string    `json:"id"`
	ProjectID  string    `json:"projectId"`
	Name       string    `json:"name"`
	SizeBytes  int64     `json:"sizeBytes"`
	MimeType   string    `json:"mimeType"`
	UploadedBy string    `json:"uploadedBy"`
	CreatedAt  time.Time `json:"createdAt"`
}

var ErrNotFound = errors.New("document not found")

type CreateDocumentRequest struct {
	Name      string `json:"name" binding:"required,min=1,max=255"`
	SizeBytes int64  `json:"sizeBytes" binding:"required,min=1"`
	MimeType  string `json:"mimeType" binding:"required,max=120"`
}
