// Package store defines persistence for the engine's outputs: bridge
// snapshots, resolution results, and imputed attributes. The engine itself
// performs no I/O; stores are called by the surrounding pipeline before and
// after the pure core runs.
package store

import (
	"context"

	"github.com/taxonaut/concord/pkg/concord/bridge"
	"github.com/taxonaut/concord/pkg/concord/inherit"
	"github.com/taxonaut/concord/pkg/concord/resolve"
)

// Store persists and queries engine output.
type Store interface {
	Close() error

	// Bridge snapshots. Each build is written whole under its batch id;
	// rebuilding writes a new batch, never edits rows in place.
	SaveBridge(ctx context.Context, res bridge.Result) error
	GetBridgeRows(ctx context.Context, batchID string) ([]bridge.Row, error)
	GetRowsForSource(ctx context.Context, batchID, sourceID string) ([]bridge.Row, error)
	GetSkipped(ctx context.Context, batchID string) ([]bridge.Skipped, error)
	LatestBatchID(ctx context.Context) (string, bool, error)

	// Resolutions
	SaveResolutions(ctx context.Context, results []resolve.Result) error
	GetResolutions(ctx context.Context, contextID string) ([]resolve.Result, error)

	// Imputed attributes
	SaveImputedAttributes(ctx context.Context, rows []inherit.BatchRow) error
	GetImputedAttributes(ctx context.Context, entityID string) ([]inherit.BatchRow, error)
}
