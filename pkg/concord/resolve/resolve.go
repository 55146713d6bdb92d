// Package resolve maps one free-text occupational title to a position within
// one hierarchy context using a deterministic five-branch cascade. The first
// applicable branch wins; later branches are never evaluated.
//
// "No good match" is a normal outcome here, not an error: the final branch
// always applies, so every resolution call returns a tagged, explained
// result. The only error is a request against an unknown context id.
package resolve

import (
	"fmt"
	"time"

	"github.com/taxonaut/concord/pkg/concord/hierarchy"
	"github.com/taxonaut/concord/pkg/concord/similarity"
)

// Method identifies which cascade branch produced a resolution. The set is
// closed; Confidences.For switches exhaustively over it.
type Method int

const (
	ContextDominant Method = iota // single-label context, no ambiguity to resolve
	DirectMatch                   // normalized equality with a label
	ExampleMatch                  // normalized equality with an example title
	LabelImputation               // fuzzy similarity to a label above threshold
	ContextImputation             // fallback to the context itself
)

// String returns the stable tag used in persisted output.
func (m Method) String() string {
	switch m {
	case ContextDominant:
		return "CONTEXT_DOMINANT"
	case DirectMatch:
		return "DIRECT_MATCH"
	case ExampleMatch:
		return "EXAMPLE_MATCH"
	case LabelImputation:
		return "LABEL_IMPUTATION"
	case ContextImputation:
		return "CONTEXT_IMPUTATION"
	}
	return fmt.Sprintf("Method(%d)", int(m))
}

// ParseMethod maps a stored method tag back to its Method. Unknown tags
// report ok=false.
func ParseMethod(s string) (Method, bool) {
	switch s {
	case "CONTEXT_DOMINANT":
		return ContextDominant, true
	case "DIRECT_MATCH":
		return DirectMatch, true
	case "EXAMPLE_MATCH":
		return ExampleMatch, true
	case "LABEL_IMPUTATION":
		return LabelImputation, true
	case "CONTEXT_IMPUTATION":
		return ContextImputation, true
	}
	return ContextImputation, false
}

// Confidences fixes the confidence value per resolution method. Confidence
// is a pure function of method; resolutions never set it independently.
type Confidences struct {
	ContextDominant   float64 `yaml:"context_dominant"`
	DirectMatch       float64 `yaml:"direct_match"`
	ExampleMatch      float64 `yaml:"example_match"`
	LabelImputation   float64 `yaml:"label_imputation"`
	ContextImputation float64 `yaml:"context_imputation"`
}

// DefaultConfidences returns the calibrated defaults.
func DefaultConfidences() Confidences {
	return Confidences{
		ContextDominant:   0.85,
		DirectMatch:       1.00,
		ExampleMatch:      0.95,
		LabelImputation:   0.60,
		ContextImputation: 0.40,
	}
}

// For returns the confidence for a method.
func (c Confidences) For(m Method) float64 {
	switch m {
	case ContextDominant:
		return c.ContextDominant
	case DirectMatch:
		return c.DirectMatch
	case ExampleMatch:
		return c.ExampleMatch
	case LabelImputation:
		return c.LabelImputation
	case ContextImputation:
		return c.ContextImputation
	}
	return 0
}

// Result is one immutable resolution outcome.
type Result struct {
	EntityTitle      string
	ContextID        string
	LevelUsed        int
	Method           Method
	Confidence       float64
	SourceIdentifier string
	MatchedText      string // empty when no specific text was matched
	Rationale        string
	ResolvedAt       time.Time
}

// Options configures a Resolver.
type Options struct {
	// Confidences overrides the per-method confidence values.
	// Zero value means DefaultConfidences.
	Confidences Confidences

	// AcceptThreshold is the minimum raw similarity for fuzzy label
	// imputation. Zero means the default of 0.70. An empirical value; may
	// need recalibration for other hierarchies.
	AcceptThreshold float64

	// Now supplies timestamps; defaults to time.Now. Injectable for
	// reproducible output.
	Now func() time.Time
}

// Resolver resolves titles against a built hierarchy index. Read-only after
// construction, safe for concurrent use.
type Resolver struct {
	index     *hierarchy.Index
	conf      Confidences
	threshold float64
	now       func() time.Time
}

// DefaultAcceptThreshold is the fuzzy label imputation cutoff on raw
// similarity (not confidence).
const DefaultAcceptThreshold = 0.70

// New creates a Resolver over a built index.
func New(index *hierarchy.Index, opts Options) *Resolver {
	conf := opts.Confidences
	if conf == (Confidences{}) {
		conf = DefaultConfidences()
	}
	threshold := opts.AcceptThreshold
	if threshold == 0 {
		threshold = DefaultAcceptThreshold
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &Resolver{index: index, conf: conf, threshold: threshold, now: now}
}

// Resolve runs the cascade for one title within one context. It returns a
// ContextNotFoundError only when the context id is absent from the index;
// every other input yields a result, the weakest being ContextImputation.
func (r *Resolver) Resolve(title, contextID string) (Result, error) {
	ctx, err := r.index.Context(contextID)
	if err != nil {
		return Result{}, err
	}

	res := Result{
		EntityTitle: title,
		ContextID:   contextID,
		ResolvedAt:  r.now(),
	}

	// Branch 1: context dominance. A context with exactly one possible
	// label carries no ambiguity, regardless of how the title is worded.
	if ctx.IsSingleLabel {
		lbl := ctx.Labels[0]
		res.Method = ContextDominant
		res.LevelUsed = hierarchy.LevelLabel
		res.SourceIdentifier = lbl.ID
		res.MatchedText = lbl.Text
		res.Rationale = fmt.Sprintf("context %s has a single label %q; assigned without textual comparison", contextID, lbl.Text)
		return r.seal(res), nil
	}

	norm := similarity.Normalize(title)

	// Branch 2: direct label match on normalized equality.
	for _, lbl := range ctx.Labels {
		if similarity.Normalize(lbl.Text) == norm {
			res.Method = DirectMatch
			res.LevelUsed = hierarchy.LevelLabel
			res.SourceIdentifier = lbl.ID
			res.MatchedText = lbl.Text
			res.Rationale = fmt.Sprintf("title equals label %q after normalization", lbl.Text)
			return r.seal(res), nil
		}
	}

	// Branch 3: example title match on normalized equality.
	for _, ex := range ctx.Examples {
		if similarity.Normalize(ex.Text) == norm {
			res.Method = ExampleMatch
			res.LevelUsed = hierarchy.LevelExample
			res.SourceIdentifier = ex.ID
			res.MatchedText = ex.Text
			res.Rationale = fmt.Sprintf("title equals example title %q after normalization", ex.Text)
			return r.seal(res), nil
		}
	}

	// Branch 4: fuzzy label imputation. Ties keep the earliest label so the
	// cascade stays deterministic.
	bestScore := -1.0
	var bestLabel hierarchy.Label
	for _, lbl := range ctx.Labels {
		if s := similarity.Score(title, lbl.Text); s > bestScore {
			bestScore = s
			bestLabel = lbl
		}
	}
	if bestScore >= r.threshold {
		res.Method = LabelImputation
		res.LevelUsed = hierarchy.LevelLabel
		res.SourceIdentifier = bestLabel.ID
		res.MatchedText = bestLabel.Text
		res.Rationale = fmt.Sprintf("fuzzy match to label %q (similarity %.2f >= %.2f)", bestLabel.Text, bestScore, r.threshold)
		return r.seal(res), nil
	}

	// Branch 5: context fallback. Always reachable.
	res.Method = ContextImputation
	res.LevelUsed = hierarchy.LevelGroup
	res.SourceIdentifier = contextID
	if ctx.Definition != "" {
		res.Rationale = fmt.Sprintf("no label or example matched; assigned to context %s: %s", contextID, ctx.Definition)
	} else {
		res.Rationale = fmt.Sprintf("no label or example matched; assigned to context %s", contextID)
	}
	return r.seal(res), nil
}

// seal stamps the method-determined confidence.
func (r *Resolver) seal(res Result) Result {
	res.Confidence = r.conf.For(res.Method)
	return res
}
