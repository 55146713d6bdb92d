// Package bridge materializes a full concordance run (every source entity
// matched against a candidate pool) into a ranked, audit-ready bridge
// relation. The output is a snapshot: rebuilding produces a new batch under a
// fresh batch id, never in-place row edits.
package bridge

import (
	"context"
	"crypto/rand"
	"io"
	"time"

	"github.com/oklog/ulid/v2"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/taxonaut/concord/pkg/concord/internalerr"
	"github.com/taxonaut/concord/pkg/concord/match"
)

// Row is the persisted form of a match plus its 1-based dense rank within
// its source entity.
type Row struct {
	BatchID string
	Rank    int
	match.Match
}

// Skipped is a diagnostic for a source entity that produced no rows. It is
// returned alongside rows, never raised: individual entities must not fail a
// whole build.
type Skipped struct {
	SourceID string
	Reason   string
}

// Result is one complete bridge build.
type Result struct {
	BatchID string
	Rows    []Row
	Skipped []Skipped
}

// Options configures a Builder.
type Options struct {
	// Matcher scores and ranks candidates. Required.
	Matcher *match.Matcher

	// TopN is the number of ranked matches kept per source entity.
	// Zero means the default of 5.
	TopN int

	// Workers bounds the parallel source-entity loop. Zero means 4.
	// Matching is pure over read-only inputs, so workers share nothing
	// mutable; output order is fixed by source order regardless of which
	// worker produced which row.
	Workers int

	// Logger is optional; nil disables logging.
	Logger *zap.SugaredLogger

	// Now and Entropy feed batch id generation and are injectable so two
	// builds over identical inputs can be byte-identical.
	Now     func() time.Time
	Entropy io.Reader
}

// DefaultTopN is the ranked matches kept per source entity.
const DefaultTopN = 5

// Builder runs bridge builds. Read-only after construction apart from its
// monotonic ULID entropy, which is only touched once per build.
type Builder struct {
	matcher *match.Matcher
	topN    int
	workers int
	logger  *zap.SugaredLogger
	now     func() time.Time
	entropy io.Reader
}

// New creates a Builder.
func New(opts Options) *Builder {
	topN := opts.TopN
	if topN <= 0 {
		topN = DefaultTopN
	}
	workers := opts.Workers
	if workers <= 0 {
		workers = 4
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	entropy := opts.Entropy
	if entropy == nil {
		entropy = ulid.Monotonic(rand.Reader, 0)
	}
	return &Builder{
		matcher: opts.Matcher,
		topN:    topN,
		workers: workers,
		logger:  opts.Logger,
		now:     now,
		entropy: entropy,
	}
}

// Build matches every source entity against the candidate pool and flattens
// the ranked results in source order. It returns an EmptyCandidatePoolError
// when the pool is empty for a non-empty source set. Source entities with
// fully empty text are recorded as Skipped diagnostics; entities with
// unusable text still receive a best-guess row.
//
// The context is checked between source-entity iterations; on cancellation
// the rows already computed are returned together with the context error.
func (b *Builder) Build(ctx context.Context, sources, candidates []match.Entity) (Result, error) {
	if len(candidates) == 0 && len(sources) > 0 {
		return Result{}, &internalerr.EmptyCandidatePoolError{SourceCount: len(sources)}
	}

	res := Result{
		BatchID: ulid.MustNew(ulid.Timestamp(b.now()), b.entropy).String(),
	}

	perSource := make([][]match.Match, len(sources))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(b.workers)

	cancelled := false
	for i, src := range sources {
		if gctx.Err() != nil {
			cancelled = true
			break
		}
		if src.Text == "" {
			res.Skipped = append(res.Skipped, Skipped{SourceID: src.ID, Reason: "empty text"})
			continue
		}
		i, src := i, src
		g.Go(func() error {
			perSource[i] = b.matcher.Match(src, candidates, b.topN)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return res, err
	}

	for _, matches := range perSource {
		for rank, m := range matches {
			res.Rows = append(res.Rows, Row{BatchID: res.BatchID, Rank: rank + 1, Match: m})
		}
	}

	if b.logger != nil {
		b.logger.Infow("bridge build complete",
			"batch_id", res.BatchID,
			"sources", len(sources),
			"candidates", len(candidates),
			"rows", len(res.Rows),
			"skipped", len(res.Skipped),
		)
	}

	if cancelled || ctx.Err() != nil {
		return res, ctx.Err()
	}
	return res, nil
}
