package concord

import (
	"context"
	"errors"
	"testing"

	"github.com/taxonaut/concord/pkg/concord/hierarchy"
	"github.com/taxonaut/concord/pkg/concord/inherit"
	"github.com/taxonaut/concord/pkg/concord/internalerr"
	"github.com/taxonaut/concord/pkg/concord/match"
	"github.com/taxonaut/concord/pkg/concord/resolve"
	"github.com/taxonaut/concord/pkg/concord/store/memstore"
)

func referenceRows() []hierarchy.Row {
	return []hierarchy.Row{
		{Level: hierarchy.LevelGroup, ID: "21700", Label: "Software developers and programmers", Definition: "Develop and maintain software systems"},
		{Level: hierarchy.LevelLabel, ID: "21231", ParentID: "21700", Label: "Software engineers"},
		{Level: hierarchy.LevelLabel, ID: "21232", ParentID: "21700", Label: "Web designers"},
		{Level: hierarchy.LevelExample, ID: "21700-1", ParentID: "21700", Label: "Full stack developer"},
		{Level: hierarchy.LevelGroup, ID: "62201", Label: "Bakers", Definition: "Prepare bread and pastry"},
		{Level: hierarchy.LevelLabel, ID: "Bakers", ParentID: "62201", Label: "Bakers"},
	}
}

func newTestEngine(t *testing.T) *Engine {
	t.Helper()
	eng, err := New(Options{
		Hierarchy: referenceRows(),
		Store:     memstore.New(),
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { eng.Close() })
	return eng
}

func TestEngine_ResolveCascade(t *testing.T) {
	eng := newTestEngine(t)

	cases := []struct {
		title   string
		context string
		method  resolve.Method
		conf    float64
	}{
		{"anything at all", "62201", resolve.ContextDominant, 0.85},
		{"software engineers", "21700", resolve.DirectMatch, 1.00},
		{"Full Stack Developer", "21700", resolve.ExampleMatch, 0.95},
		{"software enginer", "21700", resolve.LabelImputation, 0.60},
		{"zzzz", "21700", resolve.ContextImputation, 0.40},
	}
	for _, c := range cases {
		got, err := eng.Resolve(c.title, c.context)
		if err != nil {
			t.Fatalf("Resolve(%q, %s): %v", c.title, c.context, err)
		}
		if got.Method != c.method || got.Confidence != c.conf {
			t.Errorf("Resolve(%q, %s) = %s/%.2f, want %s/%.2f",
				c.title, c.context, got.Method, got.Confidence, c.method, c.conf)
		}
	}
}

func TestEngine_ResolveUnknownContext(t *testing.T) {
	eng := newTestEngine(t)
	if _, err := eng.Resolve("anything", "00000"); err == nil {
		t.Error("expected error for unknown context id")
	}
}

func TestEngine_InheritFollowsResolution(t *testing.T) {
	eng := newTestEngine(t)

	res, err := eng.Resolve("software engineers", "21700")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}

	rows := []inherit.AttributeRow{
		{OwnerID: "21231", Level: 6, Name: "teer_category", Value: "1"},
		{OwnerID: "21700", Level: 5, Name: "skill_type", Value: "applied sciences"},
	}
	attrs := eng.InheritSingle(res, rows)
	if len(attrs) != 1 {
		t.Fatalf("expected 1 label-level attribute, got %d", len(attrs))
	}
	if attrs[0].SourceIdentifier != "21231" || attrs[0].Confidence != 1.00 {
		t.Errorf("unexpected attribute: %+v", attrs[0])
	}
}

func TestEngine_InheritBatchDefaultConfidence(t *testing.T) {
	eng := newTestEngine(t)

	rows := []inherit.AttributeRow{
		{OwnerID: "21700", Level: 5, Name: "teer_category", Value: "1"},
	}
	entities := []inherit.Entity{{ID: "e1", Title: "Coder"}, {ID: "e2", Title: "Hacker"}}
	batch := eng.InheritBatch(entities, "21700", rows)
	if len(batch) != 2 {
		t.Fatalf("expected 2 batch rows, got %d", len(batch))
	}
	for _, r := range batch {
		if r.Confidence != inherit.DefaultBatchConfidence {
			t.Errorf("confidence = %f, want batch default", r.Confidence)
		}
	}
}

func TestEngine_BridgeRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := memstore.New()
	eng, err := New(Options{Store: store})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer eng.Close()

	sources := []match.Entity{
		{ID: "s1", Text: "Software engineers"},
		{ID: "s2", Text: "Bread bakers"},
	}
	candidates := []match.Entity{
		{ID: "IT", Text: "software engineers"},
		{ID: "FOOD", Text: "bakers"},
	}

	res, err := eng.BuildBridge(ctx, sources, candidates)
	if err != nil {
		t.Fatalf("BuildBridge: %v", err)
	}
	if res.BatchID == "" {
		t.Fatal("batch id must be assigned")
	}
	if err := eng.SaveBridge(ctx, res); err != nil {
		t.Fatalf("SaveBridge: %v", err)
	}

	rows, err := store.GetRowsForSource(ctx, res.BatchID, "s1")
	if err != nil {
		t.Fatalf("GetRowsForSource: %v", err)
	}
	if len(rows) == 0 || rows[0].TargetID != "IT" || rows[0].Tier != match.Exact {
		t.Errorf("unexpected persisted rows for s1: %+v", rows)
	}

	id, ok, err := store.LatestBatchID(ctx)
	if err != nil || !ok || id != res.BatchID {
		t.Errorf("latest batch = %q/%v/%v, want %q", id, ok, err, res.BatchID)
	}
}

func TestEngine_SaveBridgeWithoutStore(t *testing.T) {
	ctx := context.Background()
	eng, err := New(Options{})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer eng.Close()

	res, err := eng.BuildBridge(ctx,
		[]match.Entity{{ID: "s1", Text: "baker"}},
		[]match.Entity{{ID: "FOOD", Text: "bakers"}},
	)
	if err != nil {
		t.Fatalf("BuildBridge: %v", err)
	}
	if err := eng.SaveBridge(ctx, res); !errors.Is(err, internalerr.ErrNoStore) {
		t.Errorf("SaveBridge without store = %v, want ErrNoStore", err)
	}
}

func TestEngine_MatchDirect(t *testing.T) {
	eng := newTestEngine(t)
	got := eng.Match(
		match.Entity{ID: "s", Text: "baker"},
		[]match.Entity{{ID: "FOOD", Text: "bakers"}, {ID: "IT", Text: "software"}},
		2,
	)
	if len(got) == 0 || got[0].TargetID != "FOOD" {
		t.Fatalf("unexpected ranking: %+v", got)
	}
}

func TestEngine_Rebuild(t *testing.T) {
	eng := newTestEngine(t)

	fresh := []hierarchy.Row{
		{Level: hierarchy.LevelGroup, ID: "70010", Label: "Construction managers"},
		{Level: hierarchy.LevelLabel, ID: "70010-a", ParentID: "70010", Label: "Construction managers"},
	}
	if err := eng.Rebuild(fresh); err != nil {
		t.Fatalf("Rebuild: %v", err)
	}
	if _, err := eng.Resolve("anything", "21700"); err == nil {
		t.Error("old context must be gone after rebuild")
	}
	got, err := eng.Resolve("construction managers", "70010")
	if err != nil {
		t.Fatalf("Resolve after rebuild: %v", err)
	}
	if got.Method != resolve.ContextDominant {
		t.Errorf("method = %s, want CONTEXT_DOMINANT for single-label context", got.Method)
	}
}
