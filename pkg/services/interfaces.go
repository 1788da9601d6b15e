package services

import (
	"context"

	"github.com/deploymenttheory/go-macfiles/internal/alias"
	"github.com/deploymenttheory/go-macfiles/internal/bookmark"
	"github.com/deploymenttheory/go-macfiles/internal/dsstore"
	"github.com/deploymenttheory/go-macfiles/internal/types"
)

// StoreService provides high-level operations on .DS_Store files
type StoreService interface {
	// OpenStore opens the store at path and describes it
	OpenStore(ctx context.Context, path string, writable bool) (StoreInfo, error)

	// ListRecords returns the records of a store in key order.
	// A non-empty filename restricts the listing to that entry.
	ListRecords(ctx context.Context, path string, filename string) ([]RecordInfo, error)

	// GetValue returns a single record
	GetValue(ctx context.Context, path string, filename string, property types.FourCC) (RecordInfo, error)

	// SetValue parses a typed argument such as "long:1" and stores it
	SetValue(ctx context.Context, path string, filename string, property types.FourCC, arg string) error

	// PutRecords stores prepared records, replacing existing ones with the same key
	PutRecords(ctx context.Context, path string, records []*dsstore.Record) error

	// DeleteValue removes a record. Deleting a missing record is not an error.
	DeleteValue(ctx context.Context, path string, filename string, property types.FourCC) error

	// Close closes all open stores
	Close() error
}

// MetadataService builds and reads alias and bookmark records
type MetadataService interface {
	// AliasFor builds an alias to the file at path
	AliasFor(ctx context.Context, path string) (*alias.Alias, error)

	// BookmarkFor builds a bookmark to the file at path, resolving relative paths against cwd
	BookmarkFor(ctx context.Context, path string, cwd string) (*bookmark.Bookmark, error)

	// ReadAlias decodes a raw alias record stored in a file
	ReadAlias(ctx context.Context, path string) (*alias.Alias, error)

	// ReadBookmark decodes a raw bookmark stored in a file
	ReadBookmark(ctx context.Context, path string) (*bookmark.Bookmark, error)
}

// StoreInfo describes an open store
type StoreInfo struct {
	Path       string             `json:"path" yaml:"path"`
	Mode       string             `json:"mode" yaml:"mode"`
	SuperBlock dsstore.SuperBlock `json:"super_block" yaml:"super_block"`
	Blocks     int                `json:"blocks" yaml:"blocks"`
	Entries    map[string]int     `json:"entries" yaml:"entries"`
}

// RecordInfo is a record prepared for display
type RecordInfo struct {
	Filename    string       `json:"filename" yaml:"filename"`
	Property    types.FourCC `json:"property" yaml:"property"`
	Description string       `json:"description" yaml:"description"`
	Type        types.FourCC `json:"type" yaml:"type"`
	Value       any          `json:"value" yaml:"value"`
	Display     string       `json:"-" yaml:"-"`
}
