package utils

import (
	"path/filepath"
	"strings"
	"unicode"

	"github.com/google/uuid"
)

const maxOriginalNameLength = 255

// UploadPolicy holds the static upload rules.
type UploadPolicy struct {
	MaxFileSize       int64
	AllowedExtensions map[string]struct{}
}

func NewUploadPolicy(maxFileSize int64, allowed []string) *UploadPolicy {
	exts := make(map[string]struct{}, len(allowed))
	for _, ext := range allowed {
		ext = strings.ToLower(strings.TrimPrefix(strings.TrimSpace(ext), "."))
		if ext != "" {
			exts[ext] = struct{}{}
		}
	}
	return &UploadPolicy{
		MaxFileSize:       maxFileSize,
		AllowedExtensions: exts,
	}
}

// IsAllowedExtension checks ext (without dot) against the allow-list.
func (p *UploadPolicy) IsAllowedExtension(ext string) bool {
	_, ok := p.AllowedExtensions[strings.ToLower(ext)]
	return ok
}

// SanitizeFilename reduces a client supplied name to a display-safe base
// name: directory parts are dropped, whitespace becomes underscores and
// anything outside letters, digits, dot, dash and underscore is removed.
func SanitizeFilename(name string) string {
	name = strings.ReplaceAll(name, "\\", "/")
	if i := strings.LastIndex(name, "/"); i >= 0 {
		name = name[i+1:]
	}

	var b strings.Builder
	for _, r := range name {
		switch {
		case unicode.IsSpace(r):
			b.WriteRune('_')
		case r == '.' || r == '-' || r == '_':
			b.WriteRune(r)
		case r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r)):
			b.WriteRune(r)
		}
	}

	result := b.String()
	// Remove multiple consecutive underscores
	for strings.Contains(result, "__") {
		result = strings.ReplaceAll(result, "__", "_")
	}
	result = strings.TrimLeft(result, "._")

	if len(result) > maxOriginalNameLength {
		ext := filepath.Ext(result)
		if len(ext) >= maxOriginalNameLength {
			ext = ""
		}
		result = result[:maxOriginalNameLength-len(ext)] + ext
	}
	return result
}

// FileExtension returns the lower-cased extension of name without the dot,
// or "" when there is none.
func FileExtension(name string) string {
	ext := filepath.Ext(name)
	if ext == "" || ext == "." {
		return ""
	}
	return strings.ToLower(ext[1:])
}

// GenerateStoredName returns a collision resistant internal name that keeps
// only the extension of the original.
func GenerateStoredName(ext string) string {
	if ext == "" {
		return uuid.New().String()
	}
	return uuid.New().String() + "." + ext
}
