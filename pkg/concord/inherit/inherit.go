// Package inherit attaches attribute values from a resolved hierarchy level
// to entities that lack native values of their own, tagging each materialized
// value with its provenance.
package inherit

import (
	"fmt"
	"time"

	"github.com/taxonaut/concord/pkg/concord/resolve"
)

// Provenance distinguishes how an attribute value came to be on an entity.
type Provenance int

const (
	Native    Provenance = iota // directly observed on the entity
	Inherited                   // carried unchanged from a hierarchical ancestor
	Imputed                     // derived; not directly observed anywhere
)

func (p Provenance) String() string {
	switch p {
	case Native:
		return "NATIVE"
	case Inherited:
		return "INHERITED"
	case Imputed:
		return "IMPUTED"
	}
	return fmt.Sprintf("Provenance(%d)", int(p))
}

// ParseProvenance maps a stored provenance tag back to its Provenance.
// Unknown tags report ok=false.
func ParseProvenance(s string) (Provenance, bool) {
	switch s {
	case "NATIVE":
		return Native, true
	case "INHERITED":
		return Inherited, true
	case "IMPUTED":
		return Imputed, true
	}
	return Imputed, false
}

// AttributeRow is one attribute value keyed by a level-5/6 identifier, as
// supplied by the surrounding pipeline.
type AttributeRow struct {
	OwnerID string // level-5 or level-6 natural key the value belongs to
	Level   int
	Name    string
	Value   string
}

// ImputedAttribute is a materialized attribute value on an entity.
type ImputedAttribute struct {
	AttributeName    string
	Value            string
	SourceLevel      int
	SourceIdentifier string
	Provenance       Provenance
	Confidence       float64
	ImputedAt        time.Time
}

// Entity is a minimal entity for batch inheritance.
type Entity struct {
	ID    string
	Title string
}

// BatchRow joins one entity to one inherited attribute.
type BatchRow struct {
	EntityID string
	ImputedAttribute
}

// DefaultBatchConfidence is the confidence stamped on batch-mode rows. It is
// the context-dominant value: batch mode assumes the common single-label
// case instead of resolving per entity.
const DefaultBatchConfidence = 0.85

// Options configures an Inheritor.
type Options struct {
	// Now supplies timestamps; defaults to time.Now.
	Now func() time.Time
}

// Inheritor materializes inherited attributes. Stateless apart from its
// clock; safe for concurrent use.
type Inheritor struct {
	now func() time.Time
}

// New creates an Inheritor.
func New(opts Options) *Inheritor {
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &Inheritor{now: now}
}

// Single attaches attribute rows to one resolved entity. Rows are looked up
// by the resolution's source identifier first; when the resolved level has
// no direct rows, the lookup falls back to the context id. Every returned
// value carries Inherited provenance and the resolution's own confidence.
func (in *Inheritor) Single(res resolve.Result, rows []AttributeRow) []ImputedAttribute {
	matched := rowsFor(rows, res.SourceIdentifier)
	sourceID := res.SourceIdentifier
	level := res.LevelUsed
	if len(matched) == 0 && res.SourceIdentifier != res.ContextID {
		matched = rowsFor(rows, res.ContextID)
		sourceID = res.ContextID
		level = 5
	}

	out := make([]ImputedAttribute, 0, len(matched))
	ts := in.now()
	for _, r := range matched {
		out = append(out, ImputedAttribute{
			AttributeName:    r.Name,
			Value:            r.Value,
			SourceLevel:      level,
			SourceIdentifier: sourceID,
			Provenance:       Inherited,
			Confidence:       res.Confidence,
			ImputedAt:        ts,
		})
	}
	return out
}

// Batch joins a whole entity set to context-level attributes in one pass,
// without per-entity resolution.
//
// Trade-off: every row carries defaultConfidence (pass 0 for
// DefaultBatchConfidence) rather than a per-entity resolved confidence.
// Batch confidence is a pragmatic assumption about the common case, not
// equal in meaning to resolved confidence. Callers needing the real value
// must run Single per entity.
func (in *Inheritor) Batch(entities []Entity, contextID string, rows []AttributeRow, defaultConfidence float64) []BatchRow {
	if defaultConfidence == 0 {
		defaultConfidence = DefaultBatchConfidence
	}
	ctxRows := rowsFor(rows, contextID)
	out := make([]BatchRow, 0, len(entities)*len(ctxRows))
	ts := in.now()
	for _, e := range entities {
		for _, r := range ctxRows {
			out = append(out, BatchRow{
				EntityID: e.ID,
				ImputedAttribute: ImputedAttribute{
					AttributeName:    r.Name,
					Value:            r.Value,
					SourceLevel:      5,
					SourceIdentifier: contextID,
					Provenance:       Inherited,
					Confidence:       defaultConfidence,
					ImputedAt:        ts,
				},
			})
		}
	}
	return out
}

func rowsFor(rows []AttributeRow, ownerID string) []AttributeRow {
	var matched []AttributeRow
	for _, r := range rows {
		if r.OwnerID == ownerID {
			matched = append(matched, r)
		}
	}
	return matched
}
