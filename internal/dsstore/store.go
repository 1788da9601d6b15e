package dsstore

import (
	"errors"
	"fmt"

	"github.com/deploymenttheory/go-macfiles/internal/buddy"
	"github.com/deploymenttheory/go-macfiles/internal/logger"
	"github.com/deploymenttheory/go-macfiles/internal/types"
)

// RecordVisitor is called for each record in key order. Returning false stops the walk.
type RecordVisitor func(rec *Record) (bool, error)

// Store is a .DS_Store file: a B-tree of records on top of a buddy file.
// A Store is not safe for concurrent use.
type Store struct {
	file       *buddy.File
	superBlock int
	sb         SuperBlock
}

// mutation collects the bookkeeping of a single insert or delete
type mutation struct {
	defunct   []int
	allocated []int
	splits    int
	removed   int
}

// Open opens a store with the default page size for new files
func Open(path string, mode buddy.FileMode) (*Store, error) {
	return OpenWithPageSize(path, mode, DefaultPageSize)
}

// OpenWithPageSize opens a store. In read-write mode a file without a tree
// gets an empty one whose nodes are bounded by pageSize.
func OpenWithPageSize(path string, mode buddy.FileMode, pageSize int) (*Store, error) {
	f, err := buddy.Open(path, mode)
	if err != nil {
		return nil, err
	}
	s, err := newStore(f, mode, pageSize)
	if err != nil {
		return nil, errors.Join(err, f.Close())
	}
	return s, nil
}

func newStore(f *buddy.File, mode buddy.FileMode, pageSize int) (*Store, error) {
	if !f.HasEntry(superBlockKey) {
		if mode != buddy.ReadWrite {
			return nil, fmt.Errorf("%w: no %s entry in table of contents", types.ErrFormat, superBlockKey)
		}
		if err := initialise(f, pageSize); err != nil {
			return nil, fmt.Errorf("failed to create empty tree: %w", err)
		}
	}

	block, err := f.Entry(superBlockKey)
	if err != nil {
		return nil, err
	}
	data, err := f.ReadBlock(block)
	if err != nil {
		return nil, fmt.Errorf("failed to read super-block: %w", err)
	}
	sb, err := decodeSuperBlock(data)
	if err != nil {
		return nil, err
	}
	return &Store{file: f, superBlock: block, sb: sb}, nil
}

func initialise(f *buddy.File, pageSize int) error {
	if pageSize < 32 {
		return fmt.Errorf("%w: page size %d too small", types.ErrFormat, pageSize)
	}
	sbBlock, err := f.AllocateEntry(superBlockKey, superBlockSize)
	if err != nil {
		return err
	}
	root, err := f.Allocate(pageSize)
	if err != nil {
		return err
	}
	// An all-zero page decodes as an empty leaf
	if err := f.WriteBlock(root, make([]byte, pageSize)); err != nil {
		return err
	}
	sb := SuperBlock{RootBlock: root, LevelCount: 0, RecordCount: 0, NodeCount: 1, PageSize: pageSize}
	return f.WriteBlock(sbBlock, sb.encode())
}

// SuperBlock returns the current tree description
func (s *Store) SuperBlock() SuperBlock { return s.sb }

// Buddy exposes the underlying allocator for inspection
func (s *Store) Buddy() *buddy.File { return s.file }

// Flush writes pending allocator state
func (s *Store) Flush() error { return s.file.Flush() }

// Close flushes and releases the file
func (s *Store) Close() error { return s.file.Close() }

func (s *Store) readNode(block int) (*node, error) {
	data, err := s.file.ReadBlock(block)
	if err != nil {
		return nil, err
	}
	n, err := decodeNode(data)
	if err != nil {
		return nil, fmt.Errorf("failed to decode node %d: %w", block, err)
	}
	return n, nil
}

func (s *Store) writeNode(n *node, m *mutation) (int, error) {
	size := n.calculateSize()
	if size > s.sb.PageSize {
		return 0, fmt.Errorf("%w: node of %d bytes exceeds page size %d", types.ErrOutOfRange, size, s.sb.PageSize)
	}
	data, err := n.encode()
	if err != nil {
		return 0, fmt.Errorf("failed to encode node: %w", err)
	}
	block, err := s.file.AllocateAndWrite(data)
	if err != nil {
		return 0, err
	}
	m.allocated = append(m.allocated, block)
	return block, nil
}

// updateNode writes n in place of the node at old. A node that outgrew the
// page is written as two halves and the pivot is handed back to the caller.
func (s *Store) updateNode(n *node, old int, m *mutation) (subtree, error) {
	m.defunct = append(m.defunct, old)
	if n.calculateSize() <= s.sb.PageSize {
		block, err := s.writeNode(n, m)
		return subtree{block: block}, err
	}

	before, pivot, after := n.split()
	left, err := s.writeNode(before, m)
	if err != nil {
		return subtree{}, err
	}
	right, err := s.writeNode(after, m)
	if err != nil {
		return subtree{}, err
	}
	m.splits++
	logger.LogDebug("split node", map[string]interface{}{"block": old, "pivot": pivot.Filename})
	return subtree{block: left, pivot: pivot, right: right}, nil
}

// installRoot returns the block of the new root, adding a level when the old root split
func (s *Store) installRoot(t subtree, m *mutation) (int, bool, error) {
	if !t.isSplit() {
		return t.block, false, nil
	}
	block, err := s.writeNode(newBranch([]*Record{t.pivot}, []int{t.block, t.right}), m)
	if err != nil {
		return 0, false, err
	}
	return block, true, nil
}

// commit installs the new super-block, then releases superseded blocks
func (s *Store) commit(sb SuperBlock, m *mutation) error {
	if err := s.file.WriteBlock(s.superBlock, sb.encode()); err != nil {
		return fmt.Errorf("failed to write super-block: %w", err)
	}
	s.sb = sb
	for _, block := range m.defunct {
		if err := s.file.Release(block); err != nil {
			return fmt.Errorf("failed to release block %d: %w", block, err)
		}
	}
	return nil
}

// rollback frees blocks written by a failed mutation
func (s *Store) rollback(m *mutation, cause error) error {
	errs := []error{cause}
	for _, block := range m.allocated {
		errs = append(errs, s.file.Release(block))
	}
	return errors.Join(errs...)
}

// Find returns the record with the given key, or nil if there is none
func (s *Store) Find(key RecordKey) (*Record, error) {
	var path ancestors
	block := s.sb.RootBlock
	for {
		var err error
		if path, err = path.enter(block); err != nil {
			return nil, err
		}
		n, err := s.readNode(block)
		if err != nil {
			return nil, err
		}
		i, found := findRecord(n.records, key)
		if found {
			return n.records[i], nil
		}
		if n.isLeaf() {
			return nil, nil
		}
		block = n.children[i]
	}
}

// Get returns the decoded value for a filename and property, or nil if absent
func (s *Store) Get(filename string, propertyID types.FourCC) (any, error) {
	rec, err := s.Find(RecordKey{Filename: filename, PropertyID: propertyID})
	if err != nil || rec == nil {
		return nil, err
	}
	return rec.DecodeValue()
}

// Set stores value for a filename and property, replacing any existing value
func (s *Store) Set(filename string, propertyID types.FourCC, value any) error {
	rec, err := NewRecord(filename, propertyID, value)
	if err != nil {
		return err
	}
	return s.InsertOrReplace(rec)
}

// Walk visits every record in key order, reading nodes as it reaches them
func (s *Store) Walk(visit RecordVisitor) error {
	_, err := s.walk(s.sb.RootBlock, visit, nil)
	return err
}

func (s *Store) walk(block int, visit RecordVisitor, path ancestors) (bool, error) {
	path, err := path.enter(block)
	if err != nil {
		return false, err
	}
	n, err := s.readNode(block)
	if err != nil {
		return false, err
	}
	for i, rec := range n.records {
		if !n.isLeaf() {
			if cont, err := s.walk(n.children[i], visit, path); err != nil || !cont {
				return cont, err
			}
		}
		if cont, err := visit(rec); err != nil || !cont {
			return cont, err
		}
	}
	if !n.isLeaf() {
		return s.walk(n.children[len(n.children)-1], visit, path)
	}
	return true, nil
}

// Records returns every record in key order
func (s *Store) Records() ([]*Record, error) {
	var records []*Record
	err := s.Walk(func(rec *Record) (bool, error) {
		records = append(records, rec)
		return true, nil
	})
	return records, err
}

// InsertOrReplace stores rec, replacing a record with the same key
func (s *Store) InsertOrReplace(rec *Record) error {
	rec, err := checkRecord(rec)
	if err != nil {
		return err
	}
	m := &mutation{}
	t, inserted, err := s.insertInner(s.sb.RootBlock, rec.Key(), rec, m, nil)
	if err != nil {
		return s.rollback(m, err)
	}
	root, grew, err := s.installRoot(t, m)
	if err != nil {
		return s.rollback(m, err)
	}

	sb := s.sb
	sb.RootBlock = root
	sb.NodeCount += m.splits
	if grew {
		sb.NodeCount++
		sb.LevelCount++
	}
	if inserted {
		sb.RecordCount++
	}
	return s.commit(sb, m)
}

func (s *Store) insertInner(block int, key RecordKey, rec *Record, m *mutation, path ancestors) (t subtree, inserted bool, err error) {
	if path, err = path.enter(block); err != nil {
		return subtree{}, false, err
	}
	n, err := s.readNode(block)
	if err != nil {
		return subtree{}, false, err
	}

	var updated *node
	i, found := findRecord(n.records, key)
	switch {
	case found:
		updated = n.withRecordReplaced(i, rec)
	case n.isLeaf():
		updated = n.withRecordInserted(i, rec)
		inserted = true
	default:
		child, childInserted, err := s.insertInner(n.children[i], key, rec, m, path)
		if err != nil {
			return subtree{}, false, err
		}
		updated = n.withSubtree(i, child)
		inserted = childInserted
	}

	t, err = s.updateNode(updated, block, m)
	return t, inserted, err
}

// Delete removes the record with the given key. A missing key is not an error.
func (s *Store) Delete(key RecordKey) error {
	m := &mutation{}
	t, changed, err := s.deleteInner(s.sb.RootBlock, key, m, nil)
	if err != nil {
		return s.rollback(m, err)
	}
	if !changed {
		return nil
	}
	root, grew, err := s.installRoot(t, m)
	if err != nil {
		return s.rollback(m, err)
	}

	sb := s.sb
	sb.RootBlock = root
	sb.NodeCount += m.splits - m.removed
	if grew {
		sb.NodeCount++
		sb.LevelCount++
	}
	if sb.RecordCount > 0 {
		sb.RecordCount--
	}
	return s.commit(sb, m)
}

// DeleteProperty removes the value for a filename and property
func (s *Store) DeleteProperty(filename string, propertyID types.FourCC) error {
	return s.Delete(RecordKey{Filename: filename, PropertyID: propertyID})
}

func (s *Store) deleteInner(block int, key RecordKey, m *mutation, path ancestors) (subtree, bool, error) {
	path, err := path.enter(block)
	if err != nil {
		return subtree{}, false, err
	}
	n, err := s.readNode(block)
	if err != nil {
		return subtree{}, false, err
	}

	var updated *node
	i, found := findRecord(n.records, key)
	switch {
	case n.isLeaf():
		if !found {
			return subtree{}, false, nil
		}
		updated = n.withRecordDeleted(i)

	case found:
		// Steal the smallest record of the right subtree to fill the gap
		next := n.children[i+1]
		first, err := s.findFirstRecord(next, path)
		if err != nil {
			return subtree{}, false, err
		}
		if first == nil {
			if err := s.collectSubtree(next, m, path); err != nil {
				return subtree{}, false, err
			}
			updated = n.withRecordAndNextChildDeleted(i)
		} else {
			child, changed, err := s.deleteInner(next, first.Key(), m, path)
			if err != nil {
				return subtree{}, false, err
			}
			if !changed {
				return subtree{}, false, fmt.Errorf("%w: record %q vanished from subtree %d", types.ErrFormat, first.Filename, next)
			}
			updated = n.withRecordReplaced(i, first).withSubtree(i+1, child)
		}

	default:
		child, changed, err := s.deleteInner(n.children[i], key, m, path)
		if err != nil || !changed {
			return subtree{}, false, err
		}
		updated = n.withSubtree(i, child)
	}

	t, err := s.updateNode(updated, block, m)
	if err != nil {
		return subtree{}, false, err
	}
	return t, true, nil
}

// findFirstRecord returns the smallest record of a subtree, or nil if it holds none
func (s *Store) findFirstRecord(block int, path ancestors) (*Record, error) {
	path, err := path.enter(block)
	if err != nil {
		return nil, err
	}
	n, err := s.readNode(block)
	if err != nil {
		return nil, err
	}
	if n.isLeaf() {
		if len(n.records) == 0 {
			return nil, nil
		}
		return n.records[0], nil
	}
	first, err := s.findFirstRecord(n.children[0], path)
	if err != nil || first != nil {
		return first, err
	}
	if len(n.records) > 0 {
		return n.records[0], nil
	}
	// A branch without records has only its first child
	return nil, nil
}

// collectSubtree schedules every block of an empty subtree for release
func (s *Store) collectSubtree(block int, m *mutation, path ancestors) error {
	path, err := path.enter(block)
	if err != nil {
		return err
	}
	n, err := s.readNode(block)
	if err != nil {
		return err
	}
	for _, child := range n.children {
		if err := s.collectSubtree(child, m, path); err != nil {
			return err
		}
	}
	m.defunct = append(m.defunct, block)
	m.removed++
	return nil
}
