// Package match produces ranked, confidence-tiered, explained concordance
// matches between one source entity and a finite pool of target candidates
// from another classification system.
//
// The contract is "always provide a suggestion": given a non-empty pool the
// result is never empty. Weak matches are tagged BEST_GUESS, not dropped.
package match

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/taxonaut/concord/pkg/concord/similarity"
)

// Tier is a discrete confidence band a continuous score maps into. Ordered
// ascending so tier comparison is numeric.
type Tier int

const (
	BestGuess Tier = iota
	Low
	Medium
	High
	Exact
)

func (t Tier) String() string {
	switch t {
	case Exact:
		return "EXACT"
	case High:
		return "HIGH"
	case Medium:
		return "MEDIUM"
	case Low:
		return "LOW"
	case BestGuess:
		return "BEST_GUESS"
	}
	return fmt.Sprintf("Tier(%d)", int(t))
}

// ParseTier maps a stored tier tag back to its Tier. Unknown tags report
// ok=false.
func ParseTier(s string) (Tier, bool) {
	switch s {
	case "EXACT":
		return Exact, true
	case "HIGH":
		return High, true
	case "MEDIUM":
		return Medium, true
	case "LOW":
		return Low, true
	case "BEST_GUESS":
		return BestGuess, true
	}
	return BestGuess, false
}

// Method tags how a match was produced.
type Method int

const (
	MethodExact Method = iota
	MethodFuzzy
	MethodFuzzyWithKeywordBoost
	MethodBestGuess
)

func (m Method) String() string {
	switch m {
	case MethodExact:
		return "EXACT"
	case MethodFuzzy:
		return "FUZZY"
	case MethodFuzzyWithKeywordBoost:
		return "FUZZY_WITH_KEYWORD_BOOST"
	case MethodBestGuess:
		return "BEST_GUESS"
	}
	return fmt.Sprintf("Method(%d)", int(m))
}

// ParseMethod maps a stored method tag back to its Method. Unknown tags
// report ok=false.
func ParseMethod(s string) (Method, bool) {
	switch s {
	case "EXACT":
		return MethodExact, true
	case "FUZZY":
		return MethodFuzzy, true
	case "FUZZY_WITH_KEYWORD_BOOST":
		return MethodFuzzyWithKeywordBoost, true
	case "BEST_GUESS":
		return MethodBestGuess, true
	}
	return MethodBestGuess, false
}

// Band couples a tier's score threshold with the confidence it reports.
type Band struct {
	Threshold  float64 `yaml:"threshold"`
	Confidence float64 `yaml:"confidence"`
}

// Tiers is the full tier configuration. Thresholds were calibrated against
// one reference concordance and are defaults, not invariants; override per
// source/target pair as needed.
type Tiers struct {
	Exact  Band `yaml:"exact"`
	High   Band `yaml:"high"`
	Medium Band `yaml:"medium"`
	Low    Band `yaml:"low"`

	// BestGuessConfidence is reported for scores below the Low threshold.
	BestGuessConfidence float64 `yaml:"best_guess_confidence"`

	// BestGuessFloor, when positive, would let callers refuse suggestions
	// below it. Left at zero: the mandated behavior is to always return the
	// top candidate no matter how weak.
	BestGuessFloor float64 `yaml:"best_guess_floor"`
}

// DefaultTiers returns the calibrated tier defaults.
func DefaultTiers() Tiers {
	return Tiers{
		Exact:               Band{Threshold: 0.95, Confidence: 1.00},
		High:                Band{Threshold: 0.90, Confidence: 0.85},
		Medium:              Band{Threshold: 0.80, Confidence: 0.70},
		Low:                 Band{Threshold: 0.70, Confidence: 0.50},
		BestGuessConfidence: 0.30,
	}
}

// Classify maps a combined score to its tier and tier confidence.
func (t Tiers) Classify(score float64) (Tier, float64) {
	switch {
	case score >= t.Exact.Threshold:
		return Exact, t.Exact.Confidence
	case score >= t.High.Threshold:
		return High, t.High.Confidence
	case score >= t.Medium.Threshold:
		return Medium, t.Medium.Confidence
	case score >= t.Low.Threshold:
		return Low, t.Low.Confidence
	}
	return BestGuess, t.BestGuessConfidence
}

// Entity is one source or candidate entity: a natural key plus display text.
type Entity struct {
	ID   string
	Text string
}

// Match is one scored, tiered, explained source→target pairing.
type Match struct {
	SourceID         string
	TargetID         string
	Tier             Tier
	Confidence       float64 // tier confidence
	Score            float64 // combined similarity, pre-tiering
	Method           Method
	Rationale        string
	AlgorithmVersion string
	MatchedAt        time.Time
}

// DefaultAlgorithmVersion identifies the scoring configuration stamped on
// matches when none is supplied.
const DefaultAlgorithmVersion = "concord-match/1"

// Options configures a Matcher.
type Options struct {
	Tiers            Tiers                 // zero value means DefaultTiers
	Boost            similarity.BoostTable // keyword-boost dictionary; empty disables boosting
	AlgorithmVersion string                // stamped on every match
	Now              func() time.Time      // defaults to time.Now
}

// Matcher ranks candidates for source entities. Read-only after
// construction, safe for concurrent use.
type Matcher struct {
	tiers   Tiers
	boost   similarity.BoostTable
	version string
	now     func() time.Time
}

// New creates a Matcher.
func New(opts Options) *Matcher {
	tiers := opts.Tiers
	if tiers == (Tiers{}) {
		tiers = DefaultTiers()
	}
	version := opts.AlgorithmVersion
	if version == "" {
		version = DefaultAlgorithmVersion
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &Matcher{tiers: tiers, boost: opts.Boost, version: version, now: now}
}

// Match scores every candidate against the source and returns the top topN
// matches ordered by (tier desc, score desc, target id asc). Candidates
// below the Low threshold stay eligible as BEST_GUESS entries; when every
// candidate falls below it, exactly the single best one is returned. The
// result is empty only when the candidate pool is empty.
func (m *Matcher) Match(source Entity, candidates []Entity, topN int) []Match {
	if len(candidates) == 0 {
		return nil
	}
	if topN <= 0 {
		topN = 1
	}

	ts := m.now()
	matches := make([]Match, 0, len(candidates))
	allBestGuess := true
	for _, cand := range candidates {
		combined := m.boost.Combined(source.Text, cand.Text, cand.ID)
		tier, conf := m.tiers.Classify(combined)
		if tier != BestGuess {
			allBestGuess = false
		}
		method := m.method(source, cand, tier)
		matches = append(matches, Match{
			SourceID:         source.ID,
			TargetID:         cand.ID,
			Tier:             tier,
			Confidence:       conf,
			Score:            combined,
			Method:           method,
			Rationale:        m.rationale(source, cand, tier, method, combined),
			AlgorithmVersion: m.version,
			MatchedAt:        ts,
		})
	}

	sort.SliceStable(matches, func(i, j int) bool {
		if matches[i].Tier != matches[j].Tier {
			return matches[i].Tier > matches[j].Tier
		}
		if matches[i].Score != matches[j].Score {
			return matches[i].Score > matches[j].Score
		}
		return matches[i].TargetID < matches[j].TargetID
	})

	if allBestGuess {
		return matches[:1]
	}
	if len(matches) > topN {
		matches = matches[:topN]
	}
	return matches
}

func (m *Matcher) method(source, cand Entity, tier Tier) Method {
	switch {
	case tier == BestGuess:
		return MethodBestGuess
	// Equal texts are exact regardless of any boost that also fires.
	case similarity.Normalize(source.Text) == similarity.Normalize(cand.Text):
		return MethodExact
	case m.boost.Boost(source.Text, cand.ID) > 0:
		return MethodFuzzyWithKeywordBoost
	case tier == Exact:
		return MethodExact
	}
	return MethodFuzzy
}

// rationale renders the fixed explanation template for a match method.
func (m *Matcher) rationale(source, cand Entity, tier Tier, method Method, combined float64) string {
	switch method {
	case MethodExact:
		return fmt.Sprintf("Exact match: '%s' → '%s' (score: %.2f)", source.Text, cand.Text, combined)
	case MethodFuzzyWithKeywordBoost:
		fired := m.boost.FiredKeywords(source.Text, cand.ID)
		return fmt.Sprintf("Fuzzy match (%s): '%s' → '%s' (score: %.2f, keyword boost: %s)",
			tier, source.Text, cand.Text, combined, strings.Join(fired, "+"))
	case MethodBestGuess:
		return fmt.Sprintf("Best guess: '%s' → '%s' (score: %.2f, below acceptance threshold)", source.Text, cand.Text, combined)
	}
	return fmt.Sprintf("Fuzzy match (%s): '%s' → '%s' (score: %.2f)", tier, source.Text, cand.Text, combined)
}
