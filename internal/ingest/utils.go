package ingest

import (
	"path/filepath"
	"strings"

	"github.com/joseph-ayodele/subscriptions-tracker/constants"
)

// AllowedExt reports whether ext (with or without the dot) is a loadable document type.
func AllowedExt(ext string) bool {
	_, ok := constants.AllowedExtensions[constants.NormalizeExt(ext)]
	return ok
}

// IsHidden checks if a file or directory is hidden (starts with '.').
func IsHidden(path string) bool {
	base := filepath.Base(path)
	return strings.HasPrefix(base, ".") && base != "." && base != ".."
}
