package secrets

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

// FilePrefix marks a reference to a file holding the credential.
const FilePrefix = "file:"

// FileProvider reads credentials from files, Kubernetes secret mount style:
// one secret per file, surrounding whitespace trimmed.
type FileProvider struct {
	// Strict rejects files readable by group or others instead of warning.
	Strict bool
}

// NewFileProvider creates a file provider.
func NewFileProvider(strict bool) *FileProvider {
	return &FileProvider{Strict: strict}
}

// GetSecret reads the referenced file.
func (p *FileProvider) GetSecret(_ context.Context, ref string) (string, error) {
	path := filepath.Clean(strings.TrimSpace(strings.TrimPrefix(ref, FilePrefix)))
	if path == "." || path == "" {
		return "", fmt.Errorf("empty path in %q", ref)
	}

	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", fmt.Errorf("%w: %s", ErrSecretNotFound, path)
		}
		return "", fmt.Errorf("failed to stat secret file: %w", err)
	}
	if !info.Mode().IsRegular() {
		return "", fmt.Errorf("secret path is not a regular file: %s", path)
	}

	if perm := info.Mode().Perm(); perm&0o077 != 0 {
		if p.Strict {
			return "", fmt.Errorf("insecure permissions on %s: %o (expected 0600 or 0400)", path, perm)
		}
		slog.Warn("secret file is readable by group or others", "path", path, "mode", fmt.Sprintf("%o", perm))
	}

	// #nosec G304 - the path comes from operator configuration
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read secret file: %w", err)
	}

	value := strings.TrimSpace(string(data))
	if value == "" {
		return "", fmt.Errorf("%w: %s is empty", ErrSecretNotFound, path)
	}
	return value, nil
}

// Provider returns the provider name.
func (p *FileProvider) Provider() string {
	return "file"
}

// Supports reports whether ref names a file.
func (p *FileProvider) Supports(ref string) bool {
	return strings.HasPrefix(ref, FilePrefix)
}
