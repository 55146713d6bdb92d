// Package concord resolves free-text occupational titles into a fixed
// classification hierarchy and reconciles entities across classification
// systems that have no official correspondence. Every outcome is ranked,
// confidence-scored and explained; "no good match" is a tagged result, never
// a silent failure or an empty answer.
package concord

import (
	"context"

	"go.uber.org/zap"

	"github.com/taxonaut/concord/pkg/concord/bridge"
	"github.com/taxonaut/concord/pkg/concord/config"
	"github.com/taxonaut/concord/pkg/concord/hierarchy"
	"github.com/taxonaut/concord/pkg/concord/inherit"
	"github.com/taxonaut/concord/pkg/concord/internalerr"
	"github.com/taxonaut/concord/pkg/concord/match"
	"github.com/taxonaut/concord/pkg/concord/resolve"
	"github.com/taxonaut/concord/pkg/concord/similarity"
	"github.com/taxonaut/concord/pkg/concord/store"
)

// Engine is the main facade wiring the hierarchy index, title resolver,
// attribute inheritance, concordance matcher and bridge builder.
type Engine struct {
	index     *hierarchy.Index
	resolver  *resolve.Resolver
	inheritor *inherit.Inheritor
	matcher   *match.Matcher
	builder   *bridge.Builder
	store     store.Store
	cfg       config.File
}

// Options configures an Engine.
type Options struct {
	// Hierarchy supplies the reference rows the index is built from. May be
	// empty when only concordance matching is used.
	Hierarchy []hierarchy.Row

	// Config holds thresholds, tiers and confidences. Zero value means
	// config.Default().
	Config config.File

	// Boost is the keyword-boost dictionary; empty disables boosting.
	Boost similarity.BoostTable

	// Store receives persisted output; nil disables persistence helpers.
	Store store.Store

	// Logger is optional; nil disables logging.
	Logger *zap.SugaredLogger
}

// New builds the hierarchy index and wires all components.
func New(opts Options) (*Engine, error) {
	cfg := opts.Config
	if cfg == (config.File{}) {
		cfg = config.Default()
	}

	index, err := hierarchy.Build(opts.Hierarchy)
	if err != nil {
		return nil, err
	}

	matcher := match.New(match.Options{
		Tiers:            cfg.Tiers,
		Boost:            opts.Boost,
		AlgorithmVersion: cfg.Matching.AlgorithmVersion,
	})

	return &Engine{
		index: index,
		resolver: resolve.New(index, resolve.Options{
			Confidences:     cfg.Confidence,
			AcceptThreshold: cfg.AcceptThreshold,
		}),
		inheritor: inherit.New(inherit.Options{}),
		matcher:   matcher,
		builder: bridge.New(bridge.Options{
			Matcher: matcher,
			TopN:    cfg.Matching.TopN,
			Workers: cfg.Matching.Workers,
			Logger:  opts.Logger,
		}),
		store: opts.Store,
		cfg:   cfg,
	}, nil
}

// Close cleanly shuts down the engine's store, when one is attached.
func (e *Engine) Close() error {
	if e.store == nil {
		return nil
	}
	return e.store.Close()
}

// Index exposes the built hierarchy index.
func (e *Engine) Index() *hierarchy.Index {
	return e.index
}

// Rebuild replaces the hierarchy index wholesale from fresh reference rows.
// Not safe to call concurrently with Resolve.
func (e *Engine) Rebuild(rows []hierarchy.Row) error {
	index, err := hierarchy.Build(rows)
	if err != nil {
		return err
	}
	e.index = index
	e.resolver = resolve.New(index, resolve.Options{
		Confidences:     e.cfg.Confidence,
		AcceptThreshold: e.cfg.AcceptThreshold,
	})
	return nil
}

// Resolve runs the title resolution cascade for one title in one context.
func (e *Engine) Resolve(title, contextID string) (resolve.Result, error) {
	return e.resolver.Resolve(title, contextID)
}

// InheritSingle attaches attribute rows to one resolved entity.
func (e *Engine) InheritSingle(res resolve.Result, rows []inherit.AttributeRow) []inherit.ImputedAttribute {
	return e.inheritor.Single(res, rows)
}

// InheritBatch joins an entity set to context-level attributes with the
// batch default confidence.
func (e *Engine) InheritBatch(entities []inherit.Entity, contextID string, rows []inherit.AttributeRow) []inherit.BatchRow {
	return e.inheritor.Batch(entities, contextID, rows, 0)
}

// Match ranks candidates for one source entity.
func (e *Engine) Match(source match.Entity, candidates []match.Entity, topN int) []match.Match {
	return e.matcher.Match(source, candidates, topN)
}

// BuildBridge runs a full concordance build.
func (e *Engine) BuildBridge(ctx context.Context, sources, candidates []match.Entity) (bridge.Result, error) {
	return e.builder.Build(ctx, sources, candidates)
}

// SaveBridge persists a build snapshot to the attached store. It returns
// ErrNoStore when the engine was built without one.
func (e *Engine) SaveBridge(ctx context.Context, res bridge.Result) error {
	if e.store == nil {
		return internalerr.ErrNoStore
	}
	return e.store.SaveBridge(ctx, res)
}
