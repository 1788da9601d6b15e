package dsstore

import (
	"encoding/binary"
	"fmt"
	"slices"

	"github.com/deploymenttheory/go-macfiles/internal/types"
)

// node is a B-tree page. A leaf has no children; a branch has one more
// child than it has records, with children[i] holding keys below records[i].
type node struct {
	records  []*Record
	children []int
}

func newLeaf(records []*Record) *node {
	return &node{records: records}
}

func newBranch(records []*Record, children []int) *node {
	return &node{records: records, children: children}
}

func (n *node) isLeaf() bool { return len(n.children) == 0 }

func (n *node) calculateSize() int {
	size := 8
	for _, r := range n.records {
		size += r.CalculateSize()
	}
	if !n.isLeaf() {
		size += 4 * len(n.records)
	}
	return size
}

// encode writes the node: the last child (0 for a leaf), the record count,
// then records, each preceded by its left child in a branch.
func (n *node) encode() ([]byte, error) {
	w := types.NewBinaryWriter(make([]byte, n.calculateSize()), binary.BigEndian)
	last := 0
	if !n.isLeaf() {
		last = n.children[len(n.children)-1]
	}
	if err := w.WriteUint32(uint32(last)); err != nil {
		return nil, err
	}
	if err := w.WriteUint32(uint32(len(n.records))); err != nil {
		return nil, err
	}
	for i, r := range n.records {
		if !n.isLeaf() {
			if err := w.WriteUint32(uint32(n.children[i])); err != nil {
				return nil, err
			}
		}
		if err := r.encode(w); err != nil {
			return nil, err
		}
	}
	return w.Bytes(), nil
}

func decodeNode(data []byte) (*node, error) {
	r := types.NewBinaryReader(data, binary.BigEndian)
	last, err := r.ReadUint32()
	if err != nil {
		return nil, fmt.Errorf("failed to read node header: %w", err)
	}
	count, err := r.ReadUint32()
	if err != nil {
		return nil, fmt.Errorf("failed to read node header: %w", err)
	}
	if int64(count)*12 > int64(r.Remaining()) {
		return nil, fmt.Errorf("%w: node claims %d records in %d bytes", types.ErrFormat, count, len(data))
	}

	n := &node{records: make([]*Record, 0, count)}
	if last != 0 {
		n.children = make([]int, 0, count+1)
	}
	for i := uint32(0); i < count; i++ {
		if last != 0 {
			child, err := r.ReadUint32()
			if err != nil {
				return nil, fmt.Errorf("failed to read child %d: %w", i, err)
			}
			n.children = append(n.children, int(child))
		}
		rec, err := decodeRecord(r)
		if err != nil {
			return nil, fmt.Errorf("failed to read record %d: %w", i, err)
		}
		n.records = append(n.records, rec)
	}
	if last != 0 {
		n.children = append(n.children, int(last))
	}
	return n, nil
}

// findRecord returns the index of key and true, or the index of the first
// record greater than key and false.
func findRecord(records []*Record, key RecordKey) (int, bool) {
	for i, r := range records {
		c := r.CompareKey(key)
		if c == 0 {
			return i, true
		}
		if c > 0 {
			return i, false
		}
	}
	return len(records), false
}

// split divides the node around the first record at which the running size
// passes half the total. The pivot moves up; it is in neither half.
func (n *node) split() (before *node, pivot *Record, after *node) {
	half := n.calculateSize() / 2
	size := 8
	p := len(n.records) - 1
	for i, r := range n.records {
		size += r.CalculateSize()
		if !n.isLeaf() {
			size += 4
		}
		if size > half {
			p = i
			break
		}
	}

	pivot = n.records[p]
	if n.isLeaf() {
		return newLeaf(slices.Clone(n.records[:p])), pivot, newLeaf(slices.Clone(n.records[p+1:]))
	}
	return newBranch(slices.Clone(n.records[:p]), slices.Clone(n.children[:p+1])),
		pivot,
		newBranch(slices.Clone(n.records[p+1:]), slices.Clone(n.children[p+1:]))
}

func (n *node) withRecordReplaced(i int, r *Record) *node {
	records := slices.Clone(n.records)
	records[i] = r
	return &node{records: records, children: n.children}
}

func (n *node) withRecordInserted(i int, r *Record) *node {
	return &node{records: slices.Insert(slices.Clone(n.records), i, r), children: n.children}
}

func (n *node) withRecordDeleted(i int) *node {
	return &node{records: slices.Delete(slices.Clone(n.records), i, i+1), children: n.children}
}

func (n *node) withChildReplaced(i int, child int) *node {
	children := slices.Clone(n.children)
	children[i] = child
	return &node{records: n.records, children: children}
}

// withRecordAndNextChildReplaced swaps records[i] and children[i+1]
func (n *node) withRecordAndNextChildReplaced(i int, r *Record, child int) *node {
	records := slices.Clone(n.records)
	records[i] = r
	children := slices.Clone(n.children)
	children[i+1] = child
	return &node{records: records, children: children}
}

// withRecordAndNextChildDeleted drops records[i] and children[i+1]
func (n *node) withRecordAndNextChildDeleted(i int) *node {
	return &node{
		records:  slices.Delete(slices.Clone(n.records), i, i+1),
		children: slices.Delete(slices.Clone(n.children), i+1, i+2),
	}
}

// withChildSplit puts left, pivot and right where children[i] was
func (n *node) withChildSplit(i int, left int, pivot *Record, right int) *node {
	children := slices.Clone(n.children)
	children[i] = left
	return &node{
		records:  slices.Insert(slices.Clone(n.records), i, pivot),
		children: slices.Insert(children, i+1, right),
	}
}

// subtree is a rewritten node: one block, or two halves around a pivot when it split
type subtree struct {
	block int
	pivot *Record
	right int
}

func (t subtree) isSplit() bool { return t.pivot != nil }

// withSubtree installs t as children[i], absorbing the pivot of a split child
func (n *node) withSubtree(i int, t subtree) *node {
	if t.isSplit() {
		return n.withChildSplit(i, t.block, t.pivot, t.right)
	}
	return n.withChildReplaced(i, t.block)
}

// ancestors is the chain of blocks from the root to the node being visited
type ancestors []int

// enter extends the chain with block, failing if block is already on it
func (a ancestors) enter(block int) (ancestors, error) {
	if slices.Contains(a, block) {
		return nil, fmt.Errorf("%w: node %d is its own ancestor", types.ErrFormat, block)
	}
	return append(a, block), nil
}
