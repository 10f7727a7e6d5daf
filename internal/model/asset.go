// Package model defines the core domain models used throughout the application.
package model

import (
	"path/filepath"
	"strings"
	"time"
)

// Asset is a media file exported from the legacy platform.
// FileName is its identity within a run.
type Asset struct {
	UploadedAt    *time.Time
	FileName      string
	DeclaredTitle string
	SourceURL     string
}

// IdentityKey returns the stable key used to find an already uploaded copy
// of the asset in the content store: the file name without its extension.
func (a Asset) IdentityKey() string {
	return IdentityKey(a.FileName)
}

// IdentityKey strips directory and extension from a file name.
func IdentityKey(fileName string) string {
	base := filepath.Base(strings.TrimSpace(fileName))
	if base == "." || base == "/" {
		return ""
	}
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// AssetHandle references a media file stored in the content store.
type AssetHandle struct {
	ID   string
	Name string
	URL  string
}
