// Package hierarchy builds an in-memory, queryable index of a three-level
// classification hierarchy: broad groups (level 5), labels (level 6) and
// example titles (level 7).
//
// The index is an explicit value: built once from reference rows, read-only
// afterwards, and rebuilt wholesale when the source rows change. Staleness is
// the caller's responsibility; there is no hidden caching tied to process
// lifetime.
package hierarchy

import (
	"sort"

	"github.com/taxonaut/concord/pkg/concord/internalerr"
)

// Hierarchy levels, in decreasing order of abstraction.
const (
	LevelGroup   = 5 // broad classification group ("context")
	LevelLabel   = 6 // specific occupation label
	LevelExample = 7 // most granular example title
)

// Row is one flat reference row as supplied by the surrounding pipeline.
type Row struct {
	Level      int
	ID         string
	ParentID   string // level-5 context id; empty for level-5 rows
	Label      string
	Definition string // nullable in source data, empty when absent
}

// Label is a level-6 node inside a context.
type Label struct {
	ID   string
	Text string
}

// Example is a level-7 example title inside a context.
type Example struct {
	ID   string
	Text string
}

// Context is the queryable view of one level-5 group: its labels, its
// example titles, and whether it carries exactly one label (the
// no-ambiguity case the resolver short-circuits on).
type Context struct {
	ID            string
	Definition    string
	Labels        []Label
	Examples      []Example
	IsSingleLabel bool
}

// Index is the built lookup structure. Safe for concurrent reads; never
// mutated after Build returns.
type Index struct {
	contexts map[string]*Context
}

// Build constructs an index from flat reference rows in a single pass per
// level. It returns a MalformedHierarchyError if any level-6/7 row
// references a parent id absent from the level-5 rows.
func Build(rows []Row) (*Index, error) {
	contexts := make(map[string]*Context)

	for _, r := range rows {
		if r.Level != LevelGroup {
			continue
		}
		contexts[r.ID] = &Context{
			ID:         r.ID,
			Definition: r.Definition,
		}
	}

	for _, r := range rows {
		switch r.Level {
		case LevelGroup:
			continue
		case LevelLabel:
			ctx, ok := contexts[r.ParentID]
			if !ok {
				return nil, &internalerr.MalformedHierarchyError{Level: r.Level, ID: r.ID, ParentID: r.ParentID}
			}
			ctx.Labels = append(ctx.Labels, Label{ID: r.ID, Text: r.Label})
		case LevelExample:
			ctx, ok := contexts[r.ParentID]
			if !ok {
				return nil, &internalerr.MalformedHierarchyError{Level: r.Level, ID: r.ID, ParentID: r.ParentID}
			}
			ctx.Examples = append(ctx.Examples, Example{ID: r.ID, Text: r.Label})
		}
	}

	for _, ctx := range contexts {
		ctx.IsSingleLabel = len(ctx.Labels) == 1
	}

	return &Index{contexts: contexts}, nil
}

// Context returns the view for one level-5 context id. It returns a
// ContextNotFoundError when the id is absent from the index.
func (ix *Index) Context(id string) (*Context, error) {
	ctx, ok := ix.contexts[id]
	if !ok {
		return nil, &internalerr.ContextNotFoundError{ContextID: id}
	}
	return ctx, nil
}

// ContextIDs returns all context ids in ascending order, for deterministic
// iteration over the whole index.
func (ix *Index) ContextIDs() []string {
	ids := make([]string, 0, len(ix.contexts))
	for id := range ix.contexts {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Len reports the number of level-5 contexts in the index.
func (ix *Index) Len() int {
	return len(ix.contexts)
}
