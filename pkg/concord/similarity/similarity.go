// Package similarity computes normalized string similarity between
// occupational titles, plus the domain keyword-boost correction layered on
// top of it.
//
// Score takes the maximum of several independent strategies rather than an
// average: different strategies catch different kinds of near-matches
// (reordering, abbreviation, partial overlap), and one strategy's blind spot
// should not suppress a strong signal from another.
package similarity

import (
	"sort"
	"strings"

	"github.com/agnivade/levenshtein"
	"github.com/antzucaro/matchr"
)

// Normalize case-folds, trims, and collapses internal whitespace. All
// equality and similarity comparisons in the engine operate on normalized
// text.
func Normalize(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}

// Tokens returns the whitespace-separated tokens of the normalized string.
func Tokens(s string) []string {
	return strings.Fields(strings.ToLower(s))
}

// Score returns the best-of-strategies similarity between a and b in [0,1].
// Strategies: direct character ratio (Levenshtein), order-insensitive
// token-sort ratio, and prefix-weighted Jaro-Winkler.
func Score(a, b string) float64 {
	na, nb := Normalize(a), Normalize(b)
	if na == "" || nb == "" {
		return 0
	}
	if na == nb {
		return 1
	}

	best := charRatio(na, nb)
	if s := charRatio(tokenSort(na), tokenSort(nb)); s > best {
		best = s
	}
	if s := matchr.JaroWinkler(na, nb, false); s > best {
		best = s
	}
	return clamp01(best)
}

// charRatio converts Levenshtein edit distance to a similarity ratio.
func charRatio(a, b string) float64 {
	longest := len([]rune(a))
	if l := len([]rune(b)); l > longest {
		longest = l
	}
	if longest == 0 {
		return 0
	}
	d := levenshtein.ComputeDistance(a, b)
	return 1 - float64(d)/float64(longest)
}

// tokenSort rebuilds the string with its tokens in ascending order, so
// reordered titles ("engineer, software" vs "software engineer") compare as
// near-equal.
func tokenSort(s string) string {
	toks := strings.Fields(s)
	sort.Strings(toks)
	return strings.Join(toks, " ")
}

// BoostTable maps a lowercase keyword to per-target additive corrections.
// It is domain data, not algorithm logic, and loads from an external YAML
// artifact (see the config package).
type BoostTable struct {
	// Cap bounds the combined score after boosting. Zero means the default
	// cap of 1.0.
	Cap float64

	// Keywords maps keyword -> target id -> additive amount.
	Keywords map[string]map[string]float64
}

func (t BoostTable) cap() float64 {
	if t.Cap > 0 {
		return t.Cap
	}
	return 1.0
}

// Boost returns the summed additive correction for the given source text and
// target id: every keyword present as a substring of the normalized source
// contributes its configured amount for that target. Returns 0 when nothing
// fires.
func (t BoostTable) Boost(source, targetID string) float64 {
	if len(t.Keywords) == 0 {
		return 0
	}
	ns := Normalize(source)
	total := 0.0
	for kw, targets := range t.Keywords {
		if !strings.Contains(ns, kw) {
			continue
		}
		total += targets[targetID]
	}
	return total
}

// FiredKeywords returns the keywords that contributed a non-zero boost for
// the given source text and target id, in ascending order. Used to build
// audit rationales.
func (t BoostTable) FiredKeywords(source, targetID string) []string {
	if len(t.Keywords) == 0 {
		return nil
	}
	ns := Normalize(source)
	var fired []string
	for kw, targets := range t.Keywords {
		if targets[targetID] == 0 {
			continue
		}
		if strings.Contains(ns, kw) {
			fired = append(fired, kw)
		}
	}
	sort.Strings(fired)
	return fired
}

// Combined returns Score(source, target) plus the keyword boost for the
// target id, capped at the table's ceiling. The boost is a deliberate,
// auditable override layer on top of lexical similarity, never a
// replacement for it.
func (t BoostTable) Combined(source, targetText, targetID string) float64 {
	s := Score(source, targetText) + t.Boost(source, targetID)
	if c := t.cap(); s > c {
		return c
	}
	return s
}

func clamp01(f float64) float64 {
	switch {
	case f < 0:
		return 0
	case f > 1:
		return 1
	}
	return f
}
