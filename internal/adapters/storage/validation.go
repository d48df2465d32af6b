package storage

import (
	"fmt"
	"sort"
	"strings"
)

const fallbackContentType = "application/octet-stream"

// allowedContentTypes is fixed at init and never written afterwards.
var allowedContentTypes = map[string]struct{}{
	"image/jpeg": {},
	"image/png":  {},
	"image/gif":  {},
	"image/webp": {},
	"image/heif": {},
	"image/heic": {},
}

// AllowedContentTypes returns the accepted upload MIME types, sorted.
// Useful for frontend validation.
func AllowedContentTypes() []string {
	types := make([]string, 0, len(allowedContentTypes))
	for ct := range allowedContentTypes {
		types = append(types, ct)
	}
	sort.Strings(types)
	return types
}

// ResolveContentType lower-cases the declared type. Blank input resolves to
// application/octet-stream, which is never allowed.
func ResolveContentType(declared string) string {
	trimmed := strings.TrimSpace(declared)
	if trimmed == "" {
		return fallbackContentType
	}
	return strings.ToLower(trimmed)
}

// ValidateUpload rejects empty payloads and content types outside the allow-list.
func ValidateUpload(file Upload) error {
	if file.Body == nil || file.Size <= 0 {
		return invalidUpload("empty file cannot be uploaded")
	}
	contentType := ResolveContentType(file.ContentType)
	if _, ok := allowedContentTypes[contentType]; !ok {
		return invalidUpload(fmt.Sprintf("unsupported content type: %s", contentType)).
			WithDetails(map[string]interface{}{"allowedContentTypes": AllowedContentTypes()})
	}
	return nil
}
