package search

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/leadscout/leadscout/internal/models"
	"github.com/leadscout/leadscout/internal/sources"
)

// Scorer is the slice of the intent scorer the orchestrator depends on.
type Scorer interface {
	Enabled() bool
	ScoreBatch(ctx context.Context, posts []models.Post, product *models.ProductContext) []models.Post
}

// AIOptions controls the triage step of SearchWithAI. Only posts at or above
// MinRelevanceScore are sent to the scorer, capped at MaxToScore, to bound
// LLM spend per request. Non-positive fields fall back to DefaultAIOptions.
type AIOptions struct {
	ProductContext    *models.ProductContext
	MinRelevanceScore int
	MaxToScore        int
}

// DefaultAIOptions returns the standard triage thresholds.
func DefaultAIOptions() AIOptions {
	return AIOptions{MinRelevanceScore: 30, MaxToScore: 20}
}

// Orchestrator fans search criteria out across registered platform sources,
// merges and ranks the results, and optionally triages the best posts
// through the intent scorer. It holds no per-request state.
type Orchestrator struct {
	registry *sources.Registry
	scorer   Scorer
}

func New(registry *sources.Registry, scorer Scorer) *Orchestrator {
	return &Orchestrator{registry: registry, scorer: scorer}
}

// Search queries the requested platforms concurrently (all registered ones
// when platforms is empty). Per-source failures land in Errors; they never
// abort the other sources. Result order follows the requested platform
// order, not completion order.
func (o *Orchestrator) Search(ctx context.Context, criteria models.SearchCriteria, platforms []string) *models.MultiSearchResult {
	ids := platforms
	if len(ids) == 0 {
		ids = o.registry.IDs()
	}

	logrus.Infof("Fanning out search to %d platforms", len(ids))

	results := make([]models.SearchResult, len(ids))
	var wg sync.WaitGroup
	for i, id := range ids {
		src, ok := o.registry.Get(id)
		if !ok {
			results[i] = unknownPlatformResult(id)
			continue
		}

		wg.Add(1)
		go func(i int, src sources.Source) {
			defer wg.Done()
			results[i] = src.Search(ctx, criteria)
		}(i, src)
	}
	wg.Wait()

	out := &models.MultiSearchResult{
		ID:         uuid.NewString(),
		Results:    results,
		ByPlatform: make(map[string]int, len(results)),
	}
	for _, res := range results {
		if !res.Success {
			out.Errors = append(out.Errors, models.PlatformError{Platform: res.Platform, Error: res.Error})
			continue
		}
		out.ByPlatform[res.Platform] = len(res.Posts)
		out.TotalPosts += len(res.Posts)
	}
	out.Success = len(out.Errors) == 0

	logrus.Infof("Search %s found %d posts across %d platforms (%d errors)",
		out.ID, out.TotalPosts, len(ids), len(out.Errors))
	return out
}

// SearchRanked merges posts from all requested platforms into a single list
// sorted by relevance score, highest first. Ties keep source-arrival order.
// The list is truncated to the criteria's result cap.
func (o *Orchestrator) SearchRanked(ctx context.Context, criteria models.SearchCriteria, platforms []string) *models.RankedResult {
	multi := o.Search(ctx, criteria, platforms)

	var posts []models.Post
	for _, res := range multi.Results {
		posts = append(posts, res.Posts...)
	}

	sort.SliceStable(posts, func(i, j int) bool {
		return posts[i].RelevanceScore() > posts[j].RelevanceScore()
	})
	if limit := criteria.Limit(); len(posts) > limit {
		posts = posts[:limit]
	}

	return &models.RankedResult{
		ID:         multi.ID,
		Success:    multi.Success,
		TotalFound: len(posts),
		ByPlatform: multi.ByPlatform,
		Posts:      posts,
		Errors:     multi.Errors,
	}
}

// SearchWithAI runs a ranked search, sends the most relevant posts through
// the intent scorer, and re-ranks: AI-scored posts first by intent score,
// then unscored posts by relevance. Posts below the relevance threshold are
// never sent to the scorer.
func (o *Orchestrator) SearchWithAI(ctx context.Context, criteria models.SearchCriteria, platforms []string, opts AIOptions) *models.AIRankedResult {
	if opts.MinRelevanceScore <= 0 {
		opts.MinRelevanceScore = DefaultAIOptions().MinRelevanceScore
	}
	if opts.MaxToScore <= 0 {
		opts.MaxToScore = DefaultAIOptions().MaxToScore
	}

	ranked := o.SearchRanked(ctx, criteria, platforms)

	var toScore, toSkip []models.Post
	for _, post := range ranked.Posts {
		if post.RelevanceScore() >= opts.MinRelevanceScore && len(toScore) < opts.MaxToScore {
			toScore = append(toScore, post)
		} else {
			toSkip = append(toSkip, post)
		}
	}

	logrus.Infof("AI triage for search %s: scoring %d posts, skipping %d", ranked.ID, len(toScore), len(toSkip))
	scored := o.scorer.ScoreBatch(ctx, toScore, opts.ProductContext)

	merged := append(append([]models.Post{}, scored...), toSkip...)

	var withAI, withoutAI []models.Post
	for _, post := range merged {
		if post.IntentAnalysis.Scored() {
			withAI = append(withAI, post)
		} else {
			withoutAI = append(withoutAI, post)
		}
	}
	sort.SliceStable(withAI, func(i, j int) bool {
		return *withAI[i].IntentAnalysis.Score > *withAI[j].IntentAnalysis.Score
	})
	sort.SliceStable(withoutAI, func(i, j int) bool {
		return withoutAI[i].RelevanceScore() > withoutAI[j].RelevanceScore()
	})
	final := append(withAI, withoutAI...)

	groups := groupByLevel(final)

	return &models.AIRankedResult{
		ID:         ranked.ID,
		Success:    ranked.Success,
		TotalFound: len(final),
		ByPlatform: ranked.ByPlatform,
		Posts:      final,
		Groups:     groups,
		HotLeads:   groups[string(models.LevelHigh)],
		AIScoring: models.AIScoringSummary{
			Enabled:           o.scorer.Enabled(),
			Scored:            len(withAI),
			Skipped:           len(toSkip),
			MinRelevanceScore: opts.MinRelevanceScore,
			MaxToScore:        opts.MaxToScore,
		},
		Errors: ranked.Errors,
	}
}

// SearchPlatform queries one platform directly. An unregistered id comes
// back as a structured failure result, not an error.
func (o *Orchestrator) SearchPlatform(ctx context.Context, criteria models.SearchCriteria, platform string) models.SearchResult {
	src, ok := o.registry.Get(platform)
	if !ok {
		return unknownPlatformResult(platform)
	}
	return src.Search(ctx, criteria)
}

// Platforms lists the registered platforms for discovery.
func (o *Orchestrator) Platforms() []models.PlatformInfo {
	return o.registry.Info()
}

func unknownPlatformResult(platform string) models.SearchResult {
	return models.SearchResult{
		Platform: platform,
		Error:    fmt.Sprintf("unknown platform: %s", platform),
	}
}

func groupByLevel(posts []models.Post) map[string][]models.Post {
	groups := map[string][]models.Post{
		string(models.LevelHigh):   {},
		string(models.LevelMedium): {},
		string(models.LevelLow):    {},
		string(models.LevelNone):   {},
		models.GroupUnscored:       {},
	}
	for _, post := range posts {
		key := models.GroupUnscored
		if post.IntentAnalysis.Scored() {
			key = string(post.IntentAnalysis.Level)
		}
		groups[key] = append(groups[key], post)
	}
	return groups
}
