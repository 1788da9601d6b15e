package bookmark

import "maps"

// PrimaryTOC is the id of the TOC that Builder.Put writes to
const PrimaryTOC uint32 = 1

// Builder assembles a Bookmark
type Builder struct {
	primary map[TocKey]any
	extra   map[uint32]map[TocKey]any
}

// NewBuilder creates an empty bookmark builder
func NewBuilder() *Builder {
	return &Builder{
		primary: make(map[TocKey]any),
		extra:   make(map[uint32]map[TocKey]any),
	}
}

// Put sets a value in the primary TOC
func (b *Builder) Put(key TocKey, value any) *Builder {
	b.primary[key] = value
	return b
}

// ExtraTOC adds a TOC with the given id, filled in by fn
func (b *Builder) ExtraTOC(id uint32, fn func(t *TOCBuilder)) *Builder {
	t := &TOCBuilder{toc: make(map[TocKey]any)}
	fn(t)
	b.extra[id] = t.toc
	return b
}

// Build returns the bookmark. The primary TOC replaces any extra TOC
// registered under the same id.
func (b *Builder) Build() *Bookmark {
	tocs := make(map[uint32]map[TocKey]any, len(b.extra)+1)
	for id, toc := range b.extra {
		tocs[id] = maps.Clone(toc)
	}
	tocs[PrimaryTOC] = maps.Clone(b.primary)
	return &Bookmark{TOCs: tocs}
}

// TOCBuilder fills in a single extra TOC
type TOCBuilder struct {
	toc map[TocKey]any
}

// Put sets a value in the TOC
func (t *TOCBuilder) Put(key TocKey, value any) *TOCBuilder {
	t.toc[key] = value
	return t
}
