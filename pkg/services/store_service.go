package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/deploymenttheory/go-macfiles/internal/buddy"
	"github.com/deploymenttheory/go-macfiles/internal/dsstore"
	"github.com/deploymenttheory/go-macfiles/internal/logger"
	"github.com/deploymenttheory/go-macfiles/internal/types"
)

// storeService implements the StoreService interface
type storeService struct {
	pageSize   int
	openStores map[string]*storeHandle
}

// storeHandle represents an open store
type storeHandle struct {
	path     string
	mode     buddy.FileMode
	store    *dsstore.Store
	openedAt time.Time
}

// NewStoreService creates a store service. New files get nodes bounded by pageSize.
func NewStoreService(pageSize int) StoreService {
	if pageSize <= 0 {
		pageSize = dsstore.DefaultPageSize
	}
	return &storeService{
		pageSize:   pageSize,
		openStores: make(map[string]*storeHandle),
	}
}

// handle returns an open store, reopening read-only handles when write access is needed
func (ss *storeService) handle(path string, writable bool) (*storeHandle, error) {
	mode := buddy.ReadOnly
	if writable {
		mode = buddy.ReadWrite
	}
	if h, exists := ss.openStores[path]; exists {
		if h.mode == buddy.ReadWrite || !writable {
			return h, nil
		}
		if err := h.store.Close(); err != nil {
			return nil, fmt.Errorf("failed to close %s: %w", path, err)
		}
		delete(ss.openStores, path)
	}

	store, err := dsstore.OpenWithPageSize(path, mode, ss.pageSize)
	if err != nil {
		return nil, fmt.Errorf("failed to open store %s: %w", path, err)
	}
	h := &storeHandle{path: path, mode: mode, store: store, openedAt: time.Now()}
	ss.openStores[path] = h
	logger.LogDebug("opened store", map[string]interface{}{"path": path, "mode": mode.String()})
	return h, nil
}

// OpenStore opens the store at path and describes it
func (ss *storeService) OpenStore(ctx context.Context, path string, writable bool) (StoreInfo, error) {
	if err := ctx.Err(); err != nil {
		return StoreInfo{}, err
	}
	h, err := ss.handle(path, writable)
	if err != nil {
		return StoreInfo{}, err
	}

	blocks := 0
	for _, addr := range h.store.Buddy().BlockAddresses() {
		if addr != 0 {
			blocks++
		}
	}
	return StoreInfo{
		Path:       path,
		Mode:       h.mode.String(),
		SuperBlock: h.store.SuperBlock(),
		Blocks:     blocks,
		Entries:    h.store.Buddy().Entries(),
	}, nil
}

// ListRecords returns the records of a store in key order
func (ss *storeService) ListRecords(ctx context.Context, path string, filename string) ([]RecordInfo, error) {
	h, err := ss.handle(path, false)
	if err != nil {
		return nil, err
	}

	records := []RecordInfo{}
	err = h.store.Walk(func(rec *dsstore.Record) (bool, error) {
		if err := ctx.Err(); err != nil {
			return false, err
		}
		if filename != "" && !strings.EqualFold(rec.Filename, filename) {
			return true, nil
		}
		info, err := recordInfo(rec)
		if err != nil {
			return false, err
		}
		records = append(records, info)
		return true, nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list records of %s: %w", path, err)
	}
	return records, nil
}

// GetValue returns a single record
func (ss *storeService) GetValue(ctx context.Context, path string, filename string, property types.FourCC) (RecordInfo, error) {
	if err := ctx.Err(); err != nil {
		return RecordInfo{}, err
	}
	h, err := ss.handle(path, false)
	if err != nil {
		return RecordInfo{}, err
	}
	rec, err := h.store.Find(dsstore.RecordKey{Filename: filename, PropertyID: property})
	if err != nil {
		return RecordInfo{}, err
	}
	if rec == nil {
		return RecordInfo{}, fmt.Errorf("%w: no %s record for %q", types.ErrKeyNotFound, property, filename)
	}
	return recordInfo(rec)
}

// SetValue parses a typed argument and stores it
func (ss *storeService) SetValue(ctx context.Context, path string, filename string, property types.FourCC, arg string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	value, err := ParseValue(arg)
	if err != nil {
		return err
	}
	h, err := ss.handle(path, true)
	if err != nil {
		return err
	}
	if err := h.store.Set(filename, property, value); err != nil {
		return fmt.Errorf("failed to set %s of %q: %w", property, filename, err)
	}
	if err := h.store.Flush(); err != nil {
		return fmt.Errorf("failed to flush %s: %w", path, err)
	}
	logger.LogDebug("set record", map[string]interface{}{"path": path, "filename": filename, "property": property.String()})
	return nil
}

// PutRecords stores prepared records and flushes once
func (ss *storeService) PutRecords(ctx context.Context, path string, records []*dsstore.Record) error {
	h, err := ss.handle(path, true)
	if err != nil {
		return err
	}
	for _, rec := range records {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := h.store.InsertOrReplace(rec); err != nil {
			return fmt.Errorf("failed to store %s of %q: %w", rec.PropertyID, rec.Filename, err)
		}
	}
	if err := h.store.Flush(); err != nil {
		return fmt.Errorf("failed to flush %s: %w", path, err)
	}
	logger.LogDebug("stored records", map[string]interface{}{"path": path, "count": len(records)})
	return nil
}

// DeleteValue removes a record
func (ss *storeService) DeleteValue(ctx context.Context, path string, filename string, property types.FourCC) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	h, err := ss.handle(path, true)
	if err != nil {
		return err
	}
	if err := h.store.DeleteProperty(filename, property); err != nil {
		return fmt.Errorf("failed to delete %s of %q: %w", property, filename, err)
	}
	if err := h.store.Flush(); err != nil {
		return fmt.Errorf("failed to flush %s: %w", path, err)
	}
	return nil
}

// Close closes all open stores
func (ss *storeService) Close() error {
	var errs []error
	for path, h := range ss.openStores {
		if err := h.store.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close %s: %w", path, err))
		}
		delete(ss.openStores, path)
	}
	return errors.Join(errs...)
}

func recordInfo(rec *dsstore.Record) (RecordInfo, error) {
	value, err := rec.DecodeValue()
	if err != nil {
		return RecordInfo{}, err
	}
	return RecordInfo{
		Filename:    rec.Filename,
		Property:    rec.PropertyID,
		Description: types.DescribeProperty(rec.PropertyID),
		Type:        rec.TypeID,
		Value:       presentValue(value),
		Display:     FormatValue(value),
	}, nil
}
