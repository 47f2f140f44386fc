package drive

import (
	"errors"
	"strings"
)

// Drive content types with special handling.
const (
	MimeTypeFolder   = "application/vnd.google-apps.folder"
	MimeTypeShortcut = "application/vnd.google-apps.shortcut"
	nativePrefix     = "application/vnd.google-apps."
)

// MaxExportSize is the default cap for exported or downloaded content (10MB).
const MaxExportSize = 10 * 1024 * 1024

// DefaultPageSize is the listing page size.
const DefaultPageSize = 100

// Config holds Google Drive corpus configuration.
type Config struct {
	// FolderID is the corpus root. "root" is the user's My Drive.
	FolderID string
	// Recursive descends into sub-folders.
	Recursive bool
	// SharedDrives includes items that live in shared drives.
	SharedDrives bool
	// PageSize is the page size for list requests.
	PageSize int64
	// MaxContentSize caps exported and downloaded content in bytes.
	MaxContentSize int64
}

// DefaultConfig returns the default configuration.
func DefaultConfig() Config {
	return Config{
		FolderID:       "root",
		SharedDrives:   true,
		PageSize:       DefaultPageSize,
		MaxContentSize: MaxExportSize,
	}
}

// Validate checks the configuration and fills zero values with defaults.
func (c *Config) Validate() error {
	c.FolderID = strings.TrimSpace(c.FolderID)
	if c.FolderID == "" {
		return errors.New("drive: folder id is required")
	}
	if c.PageSize <= 0 || c.PageSize > 1000 {
		c.PageSize = DefaultPageSize
	}
	if c.MaxContentSize <= 0 {
		c.MaxContentSize = MaxExportSize
	}
	return nil
}

// IsNative reports whether a content type is a Google Workspace type that has
// no stored bytes and must be exported.
func IsNative(contentType string) bool {
	return strings.HasPrefix(contentType, nativePrefix)
}
