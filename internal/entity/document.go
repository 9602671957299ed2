package entity

import (
	"strconv"

	"github.com/joseph-ayodele/subscriptions-tracker/constants"
)

// DocumentInput is one submitted document. Binary content is base64 on the wire.
type DocumentInput struct {
	Kind     constants.DocumentKind `json:"kind" validate:"required,oneof=text binary"`
	Content  string                 `json:"content"`
	MimeType string                 `json:"mimeType,omitempty" validate:"required_if=Kind binary"`
	Filename string                 `json:"filename,omitempty"`
}

// DisplayName is the label used in prompt markers and logs.
func (d DocumentInput) DisplayName(index int) string {
	if d.Filename != "" {
		return d.Filename
	}
	return "document-" + strconv.Itoa(index+1)
}
