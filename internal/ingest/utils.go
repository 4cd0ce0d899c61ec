package ingest

import (
	"path/filepath"
	"strings"

	"github.com/joseph-ayodele/paperia/constants"
)

// AllowedExt reports whether files with ext may enter the pipeline.
func AllowedExt(ext string, allowPDF bool) bool {
	return constants.AllowedUpload(constants.NormalizeExt(ext), allowPDF)
}

// IsHidden checks if a file or directory is hidden (starts with '.').
func IsHidden(path string) bool {
	base := filepath.Base(path)
	return strings.HasPrefix(base, ".") && base != "." && base != ".."
}
