package staging

import (
	"context"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"fleetdocs/internal/model"
	"fleetdocs/internal/remote"
)

const (
	// DefaultMaxUploadMB applies when neither the caller nor the backend sets a limit.
	DefaultMaxUploadMB = 10
	// SystemConfigMaxUploadKey is the backend system-configuration key holding the limit.
	SystemConfigMaxUploadKey = "max_upload_size_mb"
)

// ResolveMaxUploadMB picks the upload limit: explicit value, then the
// backend system configuration, then fallback, then DefaultMaxUploadMB.
func ResolveMaxUploadMB(ctx context.Context, explicit int, api remote.DocumentAPI, fallback int) int {
	if explicit > 0 {
		return explicit
	}
	if api != nil {
		if v, err := api.SystemConfigValue(ctx, SystemConfigMaxUploadKey); err == nil {
			if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil && n > 0 {
				return n
			}
		}
	}
	if fallback > 0 {
		return fallback
	}
	return DefaultMaxUploadMB
}

func normalizeExt(ext string) string {
	return strings.ToLower(strings.TrimPrefix(strings.TrimSpace(ext), "."))
}

// canonicalExt normalizes ext and maps it through aliases.
func canonicalExt(ext string, aliases map[string]string) string {
	ext = normalizeExt(ext)
	if to, ok := aliases[ext]; ok {
		return normalizeExt(to)
	}
	return ext
}

// extAllowed matches ext against allowed either verbatim or with both
// sides mapped through aliases.
func extAllowed(ext string, allowed []string, aliases map[string]string) bool {
	canon := canonicalExt(ext, aliases)
	for _, want := range allowed {
		w := normalizeExt(want)
		if w == ext || canonicalExt(w, aliases) == canon {
			return true
		}
	}
	return false
}

// validateFile checks extension and size. An empty allowed list accepts any extension.
func validateFile(a model.DocumentTypeAssignment, f model.FileHandle, maxMB int, aliases map[string]string) error {
	allowed := a.DocumentType.AllowedExtensions
	if len(allowed) > 0 {
		ext := normalizeExt(filepath.Ext(f.Name))
		if !extAllowed(ext, allowed, aliases) {
			return NewValidationError(f.Name, ErrExtensionNotAllowed,
				fmt.Sprintf("files of type .%s are not accepted for %s (allowed: %s)",
					ext, a.DisplayName(), strings.Join(allowed, ", ")))
		}
	}

	if maxMB > 0 && f.Size > int64(maxMB)*1024*1024 {
		return NewValidationError(f.Name, ErrFileTooLarge,
			fmt.Sprintf("file is larger than the %d MB limit", maxMB))
	}
	return nil
}
