package services

import (
	"context"
	"fmt"
	"os"

	"github.com/deploymenttheory/go-macfiles/internal/alias"
	"github.com/deploymenttheory/go-macfiles/internal/bookmark"
	"github.com/deploymenttheory/go-macfiles/internal/metadata"
)

// metadataService implements the MetadataService interface
type metadataService struct {
	source metadata.Source
}

// NewMetadataService creates a metadata service reading filesystem facts from source
func NewMetadataService(source metadata.Source) MetadataService {
	return &metadataService{source: source}
}

func (ms *metadataService) AliasFor(ctx context.Context, path string) (*alias.Alias, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	a, err := metadata.AliasForFile(ms.source, path)
	if err != nil {
		return nil, fmt.Errorf("failed to build alias to %s: %w", path, err)
	}
	return a, nil
}

func (ms *metadataService) BookmarkFor(ctx context.Context, path string, cwd string) (*bookmark.Bookmark, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	b, err := metadata.BookmarkForFile(ms.source, path, cwd)
	if err != nil {
		return nil, fmt.Errorf("failed to build bookmark to %s: %w", path, err)
	}
	return b, nil
}

func (ms *metadataService) ReadAlias(ctx context.Context, path string) (*alias.Alias, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	a, err := alias.Decode(data)
	if err != nil {
		return nil, fmt.Errorf("failed to decode alias in %s: %w", path, err)
	}
	return a, nil
}

func (ms *metadataService) ReadBookmark(ctx context.Context, path string) (*bookmark.Bookmark, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	b, err := bookmark.Decode(data)
	if err != nil {
		return nil, fmt.Errorf("failed to decode bookmark in %s: %w", path, err)
	}
	return b, nil
}
