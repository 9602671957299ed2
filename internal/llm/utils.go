package llm

import (
	"strings"

	"github.com/joseph-ayodele/subscriptions-tracker/constants"
)

// DataURL wraps base64 content as a data: URL for providers that take images that way.
func DataURL(mimeType, b64 string) string {
	mt := strings.TrimSpace(mimeType)
	if mt == "" {
		mt = "application/octet-stream"
	}
	return "data:" + mt + ";base64," + b64
}

// IsImagePart reports whether a binary part should be sent as an image.
func IsImagePart(p Part) bool {
	return p.Kind == PartBinary && constants.IsImageMime(p.MimeType)
}

// TextLength sums the text carried by a request, for logging.
func TextLength(req Request) int {
	n := len(req.System)
	for _, p := range req.Parts {
		n += len(p.Text)
	}
	return n
}
