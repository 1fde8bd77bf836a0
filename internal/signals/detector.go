package signals

import (
	"math"
	"strings"

	"github.com/leadscout/leadscout/internal/models"
)

// Component caps for the additive relevance formula.
const (
	keywordWeight   = 40.0
	intentPerMatch  = 12.5
	intentCap       = 25.0
	painPerMatch    = 10.0
	painCap         = 20.0
	competitorBonus = 15.0
	competitorCap   = 15.0
)

// Detect computes deterministic keyword signals for a post. Matching is
// case-insensitive substring containment over title plus body; partial-word
// hits count ("cat" matches "category").
func Detect(post models.Post, criteria models.SearchCriteria) models.Signals {
	content := strings.ToLower(post.Title + " " + post.Body)

	matched := matchAll(content, criteria.Keywords)
	intent := matchAll(content, criteria.IntentKeywords)
	pain := matchAll(content, criteria.PainKeywords)
	competitors := matchAll(content, criteria.Competitors)

	return models.Signals{
		MatchedKeywords:       matched,
		MatchedIntentKeywords: intent,
		MatchedPainKeywords:   pain,
		MatchedCompetitors:    competitors,
		RelevanceScore:        score(len(matched), len(intent), len(pain), len(competitors), len(criteria.Keywords)),
	}
}

// matchAll always returns a non-nil slice so empty match lists marshal as
// JSON arrays, not null.
func matchAll(content string, terms []string) []string {
	hits := []string{}
	for _, term := range terms {
		if term == "" {
			continue
		}
		if strings.Contains(content, strings.ToLower(term)) {
			hits = append(hits, term)
		}
	}
	return hits
}

// score sums the four capped components and clamps to 100. The keyword
// denominator is never allowed below 1 so empty criteria cannot divide by
// zero.
func score(keywords, intent, pain, competitors, totalKeywords int) int {
	denom := totalKeywords
	if denom < 1 {
		denom = 1
	}

	sum := float64(keywords) / float64(denom) * keywordWeight
	sum += math.Min(float64(intent)*intentPerMatch, intentCap)
	sum += math.Min(float64(pain)*painPerMatch, painCap)
	sum += math.Min(float64(competitors)*competitorBonus, competitorCap)

	return int(math.Round(math.Min(sum, 100)))
}
