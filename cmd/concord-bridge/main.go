// concord-bridge runs a full concordance build: every source entity matched
// against a candidate pool, with ranked results persisted as a bridge table
// snapshot in SQLite.
//
// Input files:
//   - sources CSV:    id,text
//   - candidates CSV: id,text
//   - boost YAML:     keyword-boost dictionary (optional)
//   - config YAML:    engine configuration (optional)
package main

import (
	"context"
	"encoding/csv"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"

	"go.uber.org/zap"

	"github.com/taxonaut/concord/pkg/concord"
	"github.com/taxonaut/concord/pkg/concord/config"
	"github.com/taxonaut/concord/pkg/concord/match"
	"github.com/taxonaut/concord/pkg/concord/store/sqlite"
)

func main() {
	var (
		sourcesPath    = flag.String("sources", "", "Source entities CSV: id,text (required)")
		candidatesPath = flag.String("candidates", "", "Candidate entities CSV: id,text (required)")
		boostPath      = flag.String("boost", "", "Optional keyword-boost YAML")
		configPath     = flag.String("config", "", "Optional engine config YAML")
		dbPath         = flag.String("db", "concord.db", "SQLite path for the bridge snapshot")
		topN           = flag.Int("top", 0, "Ranked matches per source (overrides config)")
	)
	flag.Parse()

	if *sourcesPath == "" {
		log.Fatal("--sources required")
	}
	if *candidatesPath == "" {
		log.Fatal("--candidates required")
	}

	zl, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("init logger: %v", err)
	}
	defer zl.Sync()
	logger := zl.Sugar()

	// Cancel the build cleanly on interrupt; partial results stay valid but
	// are not persisted.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	loader := config.Loader{ConfigPath: *configPath, BoostPath: *boostPath}
	components, err := loader.Load()
	if err != nil {
		logger.Fatalw("load config", "err", err)
	}
	if *topN > 0 {
		components.File.Matching.TopN = *topN
	}

	sources, err := loadEntities(*sourcesPath)
	if err != nil {
		logger.Fatalw("load sources", "err", err)
	}
	candidates, err := loadEntities(*candidatesPath)
	if err != nil {
		logger.Fatalw("load candidates", "err", err)
	}

	st, err := sqlite.Open(ctx, *dbPath)
	if err != nil {
		logger.Fatalw("open store", "err", err)
	}

	engine, err := concord.New(concord.Options{
		Config: components.File,
		Boost:  components.Boost,
		Store:  st,
		Logger: logger,
	})
	if err != nil {
		logger.Fatalw("init engine", "err", err)
	}
	defer engine.Close()

	res, err := engine.BuildBridge(ctx, sources, candidates)
	if err != nil {
		logger.Fatalw("bridge build", "err", err)
	}

	if err := engine.SaveBridge(ctx, res); err != nil {
		logger.Fatalw("save bridge", "err", err)
	}

	logger.Infow("bridge snapshot persisted",
		"batch_id", res.BatchID,
		"rows", len(res.Rows),
		"skipped", len(res.Skipped),
		"db", *dbPath,
	)
	for _, sk := range res.Skipped {
		logger.Warnw("source entity skipped", "source_id", sk.SourceID, "reason", sk.Reason)
	}
}

// loadEntities reads a headerless id,text CSV.
func loadEntities(path string) ([]match.Entity, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	records, err := r.ReadAll()
	if err != nil {
		return nil, err
	}

	entities := make([]match.Entity, 0, len(records))
	for i, rec := range records {
		if len(rec) < 2 {
			return nil, fmt.Errorf("row %d: expected id,text", i+1)
		}
		entities = append(entities, match.Entity{ID: rec[0], Text: rec[1]})
	}
	return entities, nil
}
