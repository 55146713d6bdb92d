package match

import (
	"strings"
	"testing"
	"time"

	"github.com/taxonaut/concord/pkg/concord/similarity"
)

func fixedNow() time.Time {
	return time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
}

func newMatcher(boost similarity.BoostTable) *Matcher {
	return New(Options{Boost: boost, Now: fixedNow})
}

func TestClassify_TierBoundaries(t *testing.T) {
	tiers := DefaultTiers()
	cases := []struct {
		score float64
		tier  Tier
		conf  float64
	}{
		{1.00, Exact, 1.00},
		{0.95, Exact, 1.00},
		{0.94, High, 0.85},
		{0.90, High, 0.85},
		{0.89, Medium, 0.70},
		{0.80, Medium, 0.70},
		{0.79, Low, 0.50},
		{0.70, Low, 0.50},
		{0.69, BestGuess, 0.30},
		{0.00, BestGuess, 0.30},
	}
	for _, c := range cases {
		tier, conf := tiers.Classify(c.score)
		if tier != c.tier || conf != c.conf {
			t.Errorf("Classify(%.2f) = %s/%.2f, want %s/%.2f", c.score, tier, conf, c.tier, c.conf)
		}
	}
}

func TestClassify_Monotone(t *testing.T) {
	tiers := DefaultTiers()
	prev := Exact
	for s := 1.0; s >= 0; s -= 0.01 {
		tier, _ := tiers.Classify(s)
		if tier > prev {
			t.Fatalf("tier increased as score decreased at %.2f", s)
		}
		prev = tier
	}
}

func TestMatch_NeverEmpty(t *testing.T) {
	m := newMatcher(similarity.BoostTable{})
	candidates := []Entity{
		{ID: "A", Text: "quantum mechanics"},
		{ID: "B", Text: "financial accounting"},
	}
	got := m.Match(Entity{ID: "S", Text: "zebra"}, candidates, 5)
	if len(got) == 0 {
		t.Fatal("non-empty candidate pool must never yield an empty result")
	}
}

func TestMatch_AllWeakReturnsSingleBestGuess(t *testing.T) {
	m := newMatcher(similarity.BoostTable{})
	candidates := []Entity{
		{ID: "A", Text: "quantum mechanics"},
		{ID: "B", Text: "financial accounting"},
		{ID: "C", Text: "deep sea welding"},
	}
	got := m.Match(Entity{ID: "S", Text: "zzzz"}, candidates, 5)
	if len(got) != 1 {
		t.Fatalf("expected exactly 1 best-guess row, got %d", len(got))
	}
	if got[0].Tier != BestGuess || got[0].Method != MethodBestGuess {
		t.Errorf("got %s/%s, want BEST_GUESS/BEST_GUESS", got[0].Tier, got[0].Method)
	}
	if got[0].Confidence != 0.30 {
		t.Errorf("confidence = %f, want 0.30", got[0].Confidence)
	}
}

func TestMatch_ExactEquality(t *testing.T) {
	m := newMatcher(similarity.BoostTable{})
	candidates := []Entity{
		{ID: "A", Text: "Software Engineers"},
		{ID: "B", Text: "Web Designers"},
	}
	got := m.Match(Entity{ID: "S", Text: "software engineers"}, candidates, 5)
	top := got[0]
	if top.TargetID != "A" || top.Tier != Exact || top.Method != MethodExact {
		t.Errorf("got %s %s/%s, want A EXACT/EXACT", top.TargetID, top.Tier, top.Method)
	}
	if !strings.HasPrefix(top.Rationale, "Exact match:") {
		t.Errorf("unexpected rationale %q", top.Rationale)
	}
}

func TestMatch_ExactEqualityWithBoost(t *testing.T) {
	// A boost firing on texts that are already equal must not demote the
	// method tag from EXACT to FUZZY_WITH_KEYWORD_BOOST.
	boost := similarity.BoostTable{
		Keywords: map[string]map[string]float64{
			"software": {"A": 0.6},
		},
	}
	m := newMatcher(boost)
	got := m.Match(Entity{ID: "S", Text: "Software Engineers"}, []Entity{
		{ID: "A", Text: "software engineers"},
	}, 1)
	top := got[0]
	if top.Tier != Exact || top.Method != MethodExact {
		t.Errorf("got %s/%s, want EXACT/EXACT", top.Tier, top.Method)
	}
	if !strings.HasPrefix(top.Rationale, "Exact match:") {
		t.Errorf("unexpected rationale %q", top.Rationale)
	}
}

func TestMatch_KeywordBoostOverridesLexical(t *testing.T) {
	// Raw lexical similarity favors the supervisors entry; the boost must
	// put Information Technology on top.
	boost := similarity.BoostTable{
		Keywords: map[string]map[string]float64{
			"software":   {"IT": 0.6},
			"programmer": {"IT": 0.6},
		},
	}
	m := newMatcher(boost)
	candidates := []Entity{
		{ID: "IT", Text: "Information Technology"},
		{ID: "SR", Text: "Ship Repair - Electrical and Electronics Production Supervisors"},
	}
	got := m.Match(Entity{ID: "21230", Text: "software developers and programmers"}, candidates, 5)

	top := got[0]
	if top.TargetID != "IT" {
		t.Fatalf("top target = %s, want IT", top.TargetID)
	}
	if top.Tier < High {
		t.Errorf("top tier = %s, want at least HIGH", top.Tier)
	}
	if top.Method != MethodFuzzyWithKeywordBoost {
		t.Errorf("method = %s, want FUZZY_WITH_KEYWORD_BOOST", top.Method)
	}
	if !strings.Contains(top.Rationale, "keyword boost: programmer+software") {
		t.Errorf("rationale %q should name the fired keywords", top.Rationale)
	}
}

func TestMatch_BoostNeverExceedsOne(t *testing.T) {
	boost := similarity.BoostTable{
		Keywords: map[string]map[string]float64{
			"software": {"IT": 5.0},
		},
	}
	m := newMatcher(boost)
	got := m.Match(Entity{ID: "S", Text: "software"}, []Entity{{ID: "IT", Text: "anything"}}, 1)
	if got[0].Score > 1.0 {
		t.Errorf("combined score %f exceeds 1.0", got[0].Score)
	}
}

func TestMatch_TopNTruncation(t *testing.T) {
	m := newMatcher(similarity.BoostTable{})
	var candidates []Entity
	for _, id := range []string{"A", "B", "C", "D", "E", "F"} {
		candidates = append(candidates, Entity{ID: id, Text: "software engineer"})
	}
	got := m.Match(Entity{ID: "S", Text: "software engineer"}, candidates, 3)
	if len(got) != 3 {
		t.Fatalf("expected top 3, got %d", len(got))
	}
}

func TestMatch_TieBrokenByTargetID(t *testing.T) {
	m := newMatcher(similarity.BoostTable{})
	candidates := []Entity{
		{ID: "B", Text: "software engineer"},
		{ID: "A", Text: "software engineer"},
	}
	got := m.Match(Entity{ID: "S", Text: "software engineer"}, candidates, 2)
	if got[0].TargetID != "A" || got[1].TargetID != "B" {
		t.Errorf("ties must break by target id ascending, got %s then %s", got[0].TargetID, got[1].TargetID)
	}
}

func TestMatch_OrderingMonotone(t *testing.T) {
	m := newMatcher(similarity.BoostTable{})
	candidates := []Entity{
		{ID: "far", Text: "zzz unrelated qqq"},
		{ID: "near", Text: "software engineers"},
		{ID: "mid", Text: "hardware engineer"},
	}
	got := m.Match(Entity{ID: "S", Text: "software engineer"}, candidates, 3)
	for i := 1; i < len(got); i++ {
		if got[i].Tier > got[i-1].Tier {
			t.Errorf("tier order violated at %d: %s after %s", i, got[i].Tier, got[i-1].Tier)
		}
		if got[i].Tier == got[i-1].Tier && got[i].Score > got[i-1].Score {
			t.Errorf("score order violated at %d", i)
		}
	}
}

func TestMatch_EmptyPool(t *testing.T) {
	m := newMatcher(similarity.BoostTable{})
	if got := m.Match(Entity{ID: "S", Text: "x"}, nil, 5); got != nil {
		t.Errorf("empty pool should yield nil, got %v", got)
	}
}

func TestMatch_StampsVersionAndTime(t *testing.T) {
	m := newMatcher(similarity.BoostTable{})
	got := m.Match(Entity{ID: "S", Text: "x"}, []Entity{{ID: "A", Text: "x"}}, 1)
	if got[0].AlgorithmVersion != DefaultAlgorithmVersion {
		t.Errorf("algorithm version = %q, want default", got[0].AlgorithmVersion)
	}
	if !got[0].MatchedAt.Equal(fixedNow()) {
		t.Errorf("matched at = %v, want fixed clock", got[0].MatchedAt)
	}
}

func TestTierString_RoundTrip(t *testing.T) {
	for _, tier := range []Tier{Exact, High, Medium, Low, BestGuess} {
		parsed, ok := ParseTier(tier.String())
		if !ok || parsed != tier {
			t.Errorf("ParseTier(%q) = %v/%v", tier.String(), parsed, ok)
		}
	}
	for _, m := range []Method{MethodExact, MethodFuzzy, MethodFuzzyWithKeywordBoost, MethodBestGuess} {
		parsed, ok := ParseMethod(m.String())
		if !ok || parsed != m {
			t.Errorf("ParseMethod(%q) = %v/%v", m.String(), parsed, ok)
		}
	}
}
