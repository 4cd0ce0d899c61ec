package constants

import "strings"

// Source formats understood by the OCR layer.
const (
	PDF   = "PDF"
	IMAGE = "IMAGE"
)

// ImageExtensions holds the extensions accepted by the upload form.
var ImageExtensions = map[string]struct{}{
	"png":  {},
	"jpg":  {},
	"jpeg": {},
}

// NormalizeExt lowercases and trims the dot from a file extension.
func NormalizeExt(ext string) string {
	return strings.ToLower(strings.TrimPrefix(ext, "."))
}

// MapExtToFormat returns PDF, IMAGE or "" for unsupported extensions.
func MapExtToFormat(ext string) string {
	ext = NormalizeExt(ext)
	if ext == "pdf" {
		return PDF
	}
	if _, ok := ImageExtensions[ext]; ok {
		return IMAGE
	}
	return ""
}

// AllowedUpload reports whether ext may be uploaded. PDFs are accepted only
// when allowPDF is set.
func AllowedUpload(ext string, allowPDF bool) bool {
	switch MapExtToFormat(ext) {
	case IMAGE:
		return true
	case PDF:
		return allowPDF
	default:
		return false
	}
}
