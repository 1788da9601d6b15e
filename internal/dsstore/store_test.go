package dsstore

import (
	"fmt"
	"math/rand"
	"path/filepath"
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/deploymenttheory/go-macfiles/internal/buddy"
	"github.com/deploymenttheory/go-macfiles/internal/types"
)

// smallPageSize forces multi-level trees with a few dozen records
const smallPageSize = 512

func createTestStore(t *testing.T, pageSize int) (*Store, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), ".DS_Store")
	s, err := OpenWithPageSize(path, buddy.ReadWrite, pageSize)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s, path
}

func reopen(t *testing.T, s *Store, path string, mode buddy.FileMode) *Store {
	t.Helper()
	require.NoError(t, s.Close())
	reopened, err := Open(path, mode)
	require.NoError(t, err)
	t.Cleanup(func() { _ = reopened.Close() })
	return reopened
}

func fileNames(n int) []string {
	names := make([]string, n)
	for i := range names {
		names[i] = fmt.Sprintf("file%d", i)
	}
	return names
}

func assertSorted(t *testing.T, s *Store) []*Record {
	t.Helper()
	records, err := s.Records()
	require.NoError(t, err)
	for i := 1; i < len(records); i++ {
		assert.Negative(t, CompareKeys(records[i-1].Key(), records[i].Key()),
			"%q before %q", records[i-1].Filename, records[i].Filename)
	}
	assert.Len(t, records, s.SuperBlock().RecordCount)
	return records
}

func TestOpenCreatesEmptyTree(t *testing.T) {
	s, path := createTestStore(t, DefaultPageSize)
	sb := s.SuperBlock()
	assert.Equal(t, 0, sb.LevelCount)
	assert.Equal(t, 0, sb.RecordCount)
	assert.Equal(t, 1, sb.NodeCount)
	assert.Equal(t, DefaultPageSize, sb.PageSize)
	assert.True(t, s.Buddy().HasEntry("DSDB"))

	records, err := s.Records()
	require.NoError(t, err)
	assert.Empty(t, records)

	s = reopen(t, s, path, buddy.ReadOnly)
	assert.Equal(t, sb, s.SuperBlock())
}

func TestOpenReadOnlyWithoutTree(t *testing.T) {
	path := filepath.Join(t.TempDir(), "plain.buddy")
	f, err := buddy.Open(path, buddy.ReadWrite)
	require.NoError(t, err)
	require.NoError(t, f.Close())

	_, err = Open(path, buddy.ReadOnly)
	assert.ErrorIs(t, err, types.ErrFormat)

	_, err = Open(filepath.Join(t.TempDir(), "missing"), buddy.ReadOnly)
	assert.Error(t, err)
}

func TestOpenRejectsTinyPage(t *testing.T) {
	_, err := OpenWithPageSize(filepath.Join(t.TempDir(), ".DS_Store"), buddy.ReadWrite, 16)
	assert.ErrorIs(t, err, types.ErrFormat)
}

func TestTrivialStore(t *testing.T) {
	points := map[string]types.IntPoint{
		"bam": {X: 104, Y: 116},
		"bar": {X: 256, Y: 235},
		"baz": {X: 454, Y: 124},
	}
	orders := [][]string{
		{"bam", "bar", "baz"},
		{"baz", "bar", "bam"},
		{"bar", "baz", "bam"},
	}

	for _, order := range orders {
		t.Run(fmt.Sprint(order), func(t *testing.T) {
			s, path := createTestStore(t, DefaultPageSize)
			for _, name := range order {
				require.NoError(t, s.Set(name, types.PropIconLocation, points[name]))
			}
			s = reopen(t, s, path, buddy.ReadOnly)

			records := assertSorted(t, s)
			names := make([]string, 0, len(records))
			for _, rec := range records {
				names = append(names, rec.Filename)
			}
			assert.Equal(t, []string{"bam", "bar", "baz"}, names)

			for name, want := range points {
				got, err := s.Get(name, types.PropIconLocation)
				require.NoError(t, err)
				assert.Equal(t, want, got, name)
			}
		})
	}
}

func TestGetMissing(t *testing.T) {
	s, _ := createTestStore(t, DefaultPageSize)
	require.NoError(t, s.Set("bam", types.PropComments, "hello"))

	v, err := s.Get("bam", types.PropIconLocation)
	require.NoError(t, err)
	assert.Nil(t, v)

	rec, err := s.Find(RecordKey{Filename: "nope", PropertyID: types.PropComments})
	require.NoError(t, err)
	assert.Nil(t, rec)

	v, err = s.Get("BAM", types.PropComments)
	require.NoError(t, err)
	assert.Equal(t, "hello", v)
}

func TestInsertIsIdempotent(t *testing.T) {
	s, _ := createTestStore(t, DefaultPageSize)
	require.NoError(t, s.Set("Foo", types.PropComments, "first"))
	require.NoError(t, s.Set("Foo", types.PropComments, "first"))
	assert.Equal(t, 1, s.SuperBlock().RecordCount)

	// Filenames match without regard to case, so this replaces
	require.NoError(t, s.Set("foo", types.PropComments, "second"))
	assert.Equal(t, 1, s.SuperBlock().RecordCount)
	rec, err := s.Find(RecordKey{Filename: "FOO", PropertyID: types.PropComments})
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.Equal(t, "second", rec.Value)

	require.NoError(t, s.Set("foo", types.PropViewStyle, types.ViewStyleIcon))
	assert.Equal(t, 2, s.SuperBlock().RecordCount)
}

func TestInsertNilRecord(t *testing.T) {
	s, _ := createTestStore(t, DefaultPageSize)
	assert.ErrorIs(t, s.InsertOrReplace(nil), types.ErrFormat)
}

func TestSplitKeepsRecordsFindable(t *testing.T) {
	s, path := createTestStore(t, DefaultPageSize)
	for i, name := range fileNames(100) {
		require.NoError(t, s.Set(name, types.PropIconLocation, types.IntPoint{X: int32(i), Y: int32(i)}))
	}

	sb := s.SuperBlock()
	assert.Equal(t, 100, sb.RecordCount)
	assert.GreaterOrEqual(t, sb.LevelCount, 1)
	assert.Greater(t, sb.NodeCount, 1)

	root, err := s.readNode(sb.RootBlock)
	require.NoError(t, err)
	assert.False(t, root.isLeaf())

	s = reopen(t, s, path, buddy.ReadOnly)
	assertSorted(t, s)
	for i, name := range fileNames(100) {
		got, err := s.Get(name, types.PropIconLocation)
		require.NoError(t, err)
		assert.Equal(t, types.IntPoint{X: int32(i), Y: int32(i)}, got, name)
	}
}

func TestInsertOrders(t *testing.T) {
	names := fileNames(60)
	shuffled := slices.Clone(names)
	rand.New(rand.NewSource(7)).Shuffle(len(shuffled), func(i, j int) {
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	})
	descending := slices.Clone(names)
	slices.Reverse(descending)

	testCases := []struct {
		name  string
		order []string
	}{
		{"ascending", names},
		{"descending", descending},
		{"shuffled", shuffled},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			s, path := createTestStore(t, smallPageSize)
			for _, name := range tc.order {
				require.NoError(t, s.Set(name, types.PropComments, "comment for "+name))
			}
			s = reopen(t, s, path, buddy.ReadWrite)

			records := assertSorted(t, s)
			assert.Len(t, records, len(names))
			for _, name := range names {
				got, err := s.Get(name, types.PropComments)
				require.NoError(t, err)
				assert.Equal(t, "comment for "+name, got)
			}
		})
	}
}

func TestWalkStopsEarly(t *testing.T) {
	s, _ := createTestStore(t, smallPageSize)
	for _, name := range fileNames(40) {
		require.NoError(t, s.Set(name, types.PropDirectoryVersion, int32(1)))
	}

	var seen []string
	err := s.Walk(func(rec *Record) (bool, error) {
		seen = append(seen, rec.Filename)
		return len(seen) < 5, nil
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"file0", "file1", "file10", "file11", "file12"}, seen)

	// Each walk starts afresh
	records, err := s.Records()
	require.NoError(t, err)
	assert.Len(t, records, 40)

	boom := fmt.Errorf("boom")
	err = s.Walk(func(*Record) (bool, error) { return false, boom })
	assert.ErrorIs(t, err, boom)
}

func TestDeleteSeparator(t *testing.T) {
	s, path := createTestStore(t, smallPageSize)
	for i, name := range fileNames(100) {
		require.NoError(t, s.Set(name, types.PropIconLocation, types.IntPoint{X: int32(i), Y: int32(-i)}))
	}

	root, err := s.readNode(s.SuperBlock().RootBlock)
	require.NoError(t, err)
	require.False(t, root.isLeaf())
	separator := root.records[0]

	before := assertSorted(t, s)
	pos := slices.IndexFunc(before, func(r *Record) bool { return r.Key() == separator.Key() })
	require.Greater(t, pos, 0)
	require.Less(t, pos, len(before)-1)
	prev, next := before[pos-1], before[pos+1]

	require.NoError(t, s.Delete(separator.Key()))
	s = reopen(t, s, path, buddy.ReadOnly)

	gone, err := s.Find(separator.Key())
	require.NoError(t, err)
	assert.Nil(t, gone)

	for _, neighbour := range []*Record{prev, next} {
		got, err := s.Find(neighbour.Key())
		require.NoError(t, err)
		require.NotNil(t, got, neighbour.Filename)
		assert.Equal(t, neighbour.Value, got.Value)
	}

	after := assertSorted(t, s)
	assert.Len(t, after, 99)
}

func TestDeleteMissingIsNoop(t *testing.T) {
	s, _ := createTestStore(t, DefaultPageSize)
	require.NoError(t, s.Set("a", types.PropComments, "x"))
	sb := s.SuperBlock()

	key := RecordKey{Filename: "b", PropertyID: types.PropComments}
	require.NoError(t, s.Delete(key))
	require.NoError(t, s.Delete(key))
	assert.Equal(t, sb, s.SuperBlock())

	require.NoError(t, s.DeleteProperty("a", types.PropComments))
	require.NoError(t, s.DeleteProperty("a", types.PropComments))
	assert.Equal(t, 0, s.SuperBlock().RecordCount)
}

func TestDeleteAll(t *testing.T) {
	s, path := createTestStore(t, smallPageSize)
	names := fileNames(80)
	for _, name := range names {
		require.NoError(t, s.Set(name, types.PropComments, name))
	}

	order := slices.Clone(names)
	rand.New(rand.NewSource(42)).Shuffle(len(order), func(i, j int) {
		order[i], order[j] = order[j], order[i]
	})

	for i, name := range order {
		require.NoError(t, s.DeleteProperty(name, types.PropComments), name)
		if i%10 == 0 {
			records := assertSorted(t, s)
			assert.Len(t, records, len(names)-i-1)
			for _, remaining := range order[i+1:] {
				rec, err := s.Find(RecordKey{Filename: remaining, PropertyID: types.PropComments})
				require.NoError(t, err)
				assert.NotNil(t, rec, remaining)
			}
		}
	}

	s = reopen(t, s, path, buddy.ReadWrite)
	records, err := s.Records()
	require.NoError(t, err)
	assert.Empty(t, records)
	assert.Equal(t, 0, s.SuperBlock().RecordCount)

	// The emptied tree still takes inserts
	require.NoError(t, s.Set("again", types.PropComments, "back"))
	got, err := s.Get("again", types.PropComments)
	require.NoError(t, err)
	assert.Equal(t, "back", got)
}

func TestReleasedBlocksAreReused(t *testing.T) {
	s, _ := createTestStore(t, DefaultPageSize)
	require.NoError(t, s.Set("a", types.PropComments, "x"))
	live := countBlocks(s)

	for i := 0; i < 20; i++ {
		require.NoError(t, s.Set("a", types.PropComments, fmt.Sprintf("x%d", i)))
	}
	assert.Equal(t, live, countBlocks(s))
}

func countBlocks(s *Store) int {
	n := 0
	for _, addr := range s.Buddy().BlockAddresses() {
		if addr != 0 {
			n++
		}
	}
	return n
}

func TestPageOverflow(t *testing.T) {
	s, _ := createTestStore(t, 64)
	err := s.Set("a", types.PropComments, types.Blob(make([]byte, 200)))
	assert.ErrorIs(t, err, types.ErrOutOfRange)

	records, err := s.Records()
	require.NoError(t, err)
	assert.Empty(t, records)
}

// checkTree walks every node, checking that all leaves sit at the same
// depth and that the super-block counts match the tree
func checkTree(t *testing.T, s *Store) {
	t.Helper()
	sb := s.SuperBlock()
	nodes := 0
	var visit func(block, level int)
	visit = func(block, level int) {
		n, err := s.readNode(block)
		require.NoError(t, err)
		nodes++
		if n.isLeaf() {
			assert.Equal(t, sb.LevelCount, level, "leaf %d", block)
			return
		}
		for _, child := range n.children {
			visit(child, level+1)
		}
	}
	visit(sb.RootBlock, 0)
	assert.Equal(t, sb.NodeCount, nodes)
}

func iconPoint(i int) types.IntPoint {
	return types.IntPoint{X: int32(i % 977), Y: int32(i / 977)}
}

func TestLargeInsertSequences(t *testing.T) {
	const count = 5000
	names := make([]string, count)
	for i := range names {
		names[i] = fmt.Sprintf("file%05d", i)
	}
	indexes := make([]int, count)
	for i := range indexes {
		indexes[i] = i
	}
	descending := slices.Clone(indexes)
	slices.Reverse(descending)
	shuffled := slices.Clone(indexes)
	rand.New(rand.NewSource(11)).Shuffle(len(shuffled), func(i, j int) {
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	})

	testCases := []struct {
		name  string
		order []int
	}{
		{"ascending", indexes},
		{"descending", descending},
		{"shuffled", shuffled},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			s, path := createTestStore(t, DefaultPageSize)
			for _, i := range tc.order {
				require.NoError(t, s.Set(names[i], types.PropIconLocation, iconPoint(i)), names[i])
			}

			sb := s.SuperBlock()
			assert.Equal(t, count, sb.RecordCount)
			assert.GreaterOrEqual(t, sb.LevelCount, 1)
			assert.LessOrEqual(t, sb.LevelCount, 3)
			checkTree(t, s)

			s = reopen(t, s, path, buddy.ReadOnly)
			records := assertSorted(t, s)
			require.Len(t, records, count)
			for i, name := range names {
				assert.Equal(t, name, records[i].Filename)
				got, err := s.Get(name, types.PropIconLocation)
				require.NoError(t, err)
				assert.Equal(t, iconPoint(i), got, name)
			}
		})
	}
}

func TestLargeDeleteSequence(t *testing.T) {
	const count = 5000
	s, path := createTestStore(t, DefaultPageSize)
	for i := 0; i < count; i++ {
		require.NoError(t, s.Set(fmt.Sprintf("file%05d", i), types.PropIconLocation, iconPoint(i)))
	}

	evens := make([]int, 0, count/2)
	for i := 0; i < count; i += 2 {
		evens = append(evens, i)
	}
	rand.New(rand.NewSource(5)).Shuffle(len(evens), func(i, j int) {
		evens[i], evens[j] = evens[j], evens[i]
	})
	for _, i := range evens {
		require.NoError(t, s.DeleteProperty(fmt.Sprintf("file%05d", i), types.PropIconLocation))
	}
	checkTree(t, s)

	s = reopen(t, s, path, buddy.ReadWrite)
	assert.Len(t, assertSorted(t, s), count/2)
	for i := 0; i < count; i++ {
		rec, err := s.Find(RecordKey{Filename: fmt.Sprintf("file%05d", i), PropertyID: types.PropIconLocation})
		require.NoError(t, err)
		if i%2 == 0 {
			assert.Nil(t, rec, i)
		} else {
			assert.NotNil(t, rec, i)
		}
	}
}

func TestInsertRejectsMismatchedRecords(t *testing.T) {
	testCases := []struct {
		name string
		rec  *Record
	}{
		{"string as blob", &Record{Filename: "a", PropertyID: types.PropComments, TypeID: TypeBlob, Value: "text"}},
		{"int as long", &Record{Filename: "a", PropertyID: types.PropComments, TypeID: TypeLong, Value: 5}},
		{"int32 as bool", &Record{Filename: "a", PropertyID: types.PropComments, TypeID: TypeBool, Value: int32(1)}},
		{"int64 as date", &Record{Filename: "a", PropertyID: types.PropComments, TypeID: TypeDateUTC, Value: int64(1)}},
		{"unknown type", &Record{Filename: "a", PropertyID: types.PropComments, TypeID: "xxxx", Value: int32(1)}},
		{"missing type", &Record{Filename: "a", PropertyID: types.PropComments, Value: int32(1)}},
		{"nil value", &Record{Filename: "a", PropertyID: types.PropComments, TypeID: TypeBlob}},
		{"bad property", &Record{Filename: "a", PropertyID: "toolong", TypeID: TypeLong, Value: int32(1)}},
	}

	s, _ := createTestStore(t, DefaultPageSize)
	sb := s.SuperBlock()
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.ErrorIs(t, s.InsertOrReplace(tc.rec), types.ErrFormat)
			if tc.rec.PropertyID.Valid() {
				_, err := tc.rec.Encode()
				assert.ErrorIs(t, err, types.ErrFormat)
			}
		})
	}
	assert.Equal(t, sb, s.SuperBlock())

	// Byte slices are accepted as blobs
	require.NoError(t, s.InsertOrReplace(&Record{Filename: "a", PropertyID: types.PropComments, TypeID: TypeBlob, Value: []byte{1, 2}}))
	rec, err := s.Find(RecordKey{Filename: "a", PropertyID: types.PropComments})
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.Equal(t, types.Blob{1, 2}, rec.Value)
}

func TestChildCycleIsRejected(t *testing.T) {
	s, _ := createTestStore(t, DefaultPageSize)
	block, err := s.Buddy().Allocate(DefaultPageSize)
	require.NoError(t, err)
	looped := newBranch(testRecords(t, "m"), []int{block, block})
	data, err := looped.encode()
	require.NoError(t, err)
	require.NoError(t, s.Buddy().WriteBlock(block, data))
	s.sb.RootBlock = block

	_, err = s.Find(RecordKey{Filename: "a", PropertyID: types.PropDirectoryVersion})
	assert.ErrorIs(t, err, types.ErrFormat)
	assert.ErrorIs(t, s.Walk(func(*Record) (bool, error) { return true, nil }), types.ErrFormat)
	assert.ErrorIs(t, s.Set("z", types.PropDirectoryVersion, int32(2)), types.ErrFormat)
	assert.ErrorIs(t, s.DeleteProperty("a", types.PropDirectoryVersion), types.ErrFormat)
}
