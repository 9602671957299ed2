package constants

import (
	"mime"
	"strings"
)

// DocumentKind is how a document's content travels: inline text or base64 bytes.
type DocumentKind string

const (
	KindText   DocumentKind = "text"
	KindBinary DocumentKind = "binary"
)

// AllowedExtensions holds the file extensions the batch loader picks up, mapped to their kind.
var AllowedExtensions = map[string]DocumentKind{
	"pdf":  KindBinary,
	"jpg":  KindBinary,
	"jpeg": KindBinary,
	"png":  KindBinary,
	"webp": KindBinary,
	"gif":  KindBinary,
	"txt":  KindText,
	"csv":  KindText,
	"md":   KindText,
	"eml":  KindText,
}

// NormalizeExt lowercases and trims the dot from a file extension.
func NormalizeExt(ext string) string {
	return strings.ToLower(strings.TrimPrefix(strings.TrimSpace(ext), "."))
}

// MimeTypeForExt returns a mime type for a bare or dotted extension.
func MimeTypeForExt(ext string) string {
	e := NormalizeExt(ext)
	switch e {
	case "pdf":
		return "application/pdf"
	case "jpg", "jpeg":
		return "image/jpeg"
	case "png":
		return "image/png"
	case "webp":
		return "image/webp"
	case "gif":
		return "image/gif"
	case "csv":
		return "text/csv"
	case "txt", "md":
		return "text/plain"
	case "eml":
		return "message/rfc822"
	}
	if mt := mime.TypeByExtension("." + e); mt != "" {
		return mt
	}
	return "application/octet-stream"
}

// IsPDFOrImage reports whether a content type or filename points at a PDF or an image.
func IsPDFOrImage(contentType, filename string) bool {
	ct := strings.ToLower(strings.TrimSpace(contentType))
	if i := strings.Index(ct, ";"); i >= 0 {
		ct = strings.TrimSpace(ct[:i])
	}
	if ct == "application/pdf" || strings.HasPrefix(ct, "image/") {
		return true
	}
	dot := strings.LastIndex(filename, ".")
	if dot < 0 {
		return false
	}
	switch NormalizeExt(filename[dot:]) {
	case "pdf", "jpg", "jpeg", "png", "webp", "gif", "heic", "heif", "tif", "tiff", "bmp":
		return true
	}
	return false
}

// IsImageMime reports whether mt is an image/* type.
func IsImageMime(mt string) bool {
	return strings.HasPrefix(strings.ToLower(strings.TrimSpace(mt)), "image/")
}
