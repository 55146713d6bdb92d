// concord-resolve resolves free-text occupational titles against a
// classification hierarchy and prints the results as JSON, optionally
// persisting them to a SQLite store.
//
// Input files:
//   - hierarchy CSV: level,id,parent_id,label,definition
//   - titles CSV:    title,context_id
//   - attrs CSV:     owner_id,level,name,value (optional)
package main

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"strconv"

	"github.com/taxonaut/concord/pkg/concord"
	"github.com/taxonaut/concord/pkg/concord/config"
	"github.com/taxonaut/concord/pkg/concord/hierarchy"
	"github.com/taxonaut/concord/pkg/concord/inherit"
	"github.com/taxonaut/concord/pkg/concord/resolve"
	"github.com/taxonaut/concord/pkg/concord/store/sqlite"
)

type output struct {
	Title            string  `json:"title"`
	ContextID        string  `json:"context_id"`
	LevelUsed        int     `json:"level_used"`
	Method           string  `json:"method"`
	Confidence       float64 `json:"confidence"`
	SourceIdentifier string  `json:"source_identifier"`
	MatchedText      string  `json:"matched_text,omitempty"`
	Rationale        string  `json:"rationale"`
	Attributes       int     `json:"attributes_inherited"`
}

func main() {
	var (
		hierarchyPath = flag.String("hierarchy", "", "Hierarchy reference CSV (required)")
		titlesPath    = flag.String("titles", "", "Titles CSV: title,context_id (required)")
		attrsPath     = flag.String("attrs", "", "Optional attribute rows CSV: owner_id,level,name,value")
		configPath    = flag.String("config", "", "Optional engine config YAML")
		dbPath        = flag.String("db", "", "Optional SQLite path to persist resolutions")
	)
	flag.Parse()

	if *hierarchyPath == "" {
		log.Fatal("--hierarchy required")
	}
	if *titlesPath == "" {
		log.Fatal("--titles required")
	}

	ctx := context.Background()

	rows, err := loadHierarchy(*hierarchyPath)
	if err != nil {
		log.Fatalf("load hierarchy: %v", err)
	}

	loader := config.Loader{ConfigPath: *configPath}
	components, err := loader.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	engine, err := concord.New(concord.Options{
		Hierarchy: rows,
		Config:    components.File,
	})
	if err != nil {
		log.Fatalf("build index: %v", err)
	}

	var attrs []inherit.AttributeRow
	if *attrsPath != "" {
		attrs, err = loadAttributes(*attrsPath)
		if err != nil {
			log.Fatalf("load attributes: %v", err)
		}
	}

	titles, err := readCSV(*titlesPath, 2)
	if err != nil {
		log.Fatalf("load titles: %v", err)
	}

	var results []resolve.Result
	var outputs []output
	for _, rec := range titles {
		res, err := engine.Resolve(rec[0], rec[1])
		if err != nil {
			log.Fatalf("resolve %q in context %q: %v", rec[0], rec[1], err)
		}
		inherited := engine.InheritSingle(res, attrs)
		results = append(results, res)
		outputs = append(outputs, output{
			Title:            res.EntityTitle,
			ContextID:        res.ContextID,
			LevelUsed:        res.LevelUsed,
			Method:           res.Method.String(),
			Confidence:       res.Confidence,
			SourceIdentifier: res.SourceIdentifier,
			MatchedText:      res.MatchedText,
			Rationale:        res.Rationale,
			Attributes:       len(inherited),
		})
	}

	if *dbPath != "" {
		st, err := sqlite.Open(ctx, *dbPath)
		if err != nil {
			log.Fatalf("open store: %v", err)
		}
		defer st.Close()
		if err := st.SaveResolutions(ctx, results); err != nil {
			log.Fatalf("save resolutions: %v", err)
		}
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(outputs); err != nil {
		log.Fatalf("encode output: %v", err)
	}
}

func loadHierarchy(path string) ([]hierarchy.Row, error) {
	records, err := readCSV(path, 5)
	if err != nil {
		return nil, err
	}
	rows := make([]hierarchy.Row, 0, len(records))
	for i, rec := range records {
		level, err := strconv.Atoi(rec[0])
		if err != nil {
			return nil, fmt.Errorf("row %d: bad level %q", i+1, rec[0])
		}
		rows = append(rows, hierarchy.Row{
			Level:      level,
			ID:         rec[1],
			ParentID:   rec[2],
			Label:      rec[3],
			Definition: rec[4],
		})
	}
	return rows, nil
}

func loadAttributes(path string) ([]inherit.AttributeRow, error) {
	records, err := readCSV(path, 4)
	if err != nil {
		return nil, err
	}
	rows := make([]inherit.AttributeRow, 0, len(records))
	for i, rec := range records {
		level, err := strconv.Atoi(rec[1])
		if err != nil {
			return nil, fmt.Errorf("row %d: bad level %q", i+1, rec[1])
		}
		rows = append(rows, inherit.AttributeRow{
			OwnerID: rec[0],
			Level:   level,
			Name:    rec[2],
			Value:   rec[3],
		})
	}
	return rows, nil
}

// readCSV reads a headerless CSV and enforces a minimum field count.
func readCSV(path string, fields int) ([][]string, error) {
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
	for i, rec := range records {
		if len(rec) < fields {
			return nil, fmt.Errorf("row %d: expected %d fields, got %d", i+1, fields, len(rec))
		}
	}
	return records, nil
}
