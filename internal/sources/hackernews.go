package sources

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/sirupsen/logrus"

	"github.com/leadscout/leadscout/internal/models"
	"github.com/leadscout/leadscout/internal/signals"
)

const hackerNewsPlatformID = "hackernews"

// HackerNewsSource searches Hacker News through the Algolia API. Unlike the
// Reddit source it issues a single query per search, expressing story type
// and engagement thresholds as tag and numeric filters.
type HackerNewsSource struct {
	client  *resty.Client
	limiter *rateLimiter
	baseURL string
}

// hnFilters is the hackernews entry of SearchCriteria.PlatformFilters.
type hnFilters struct {
	StoryType   string `json:"storyType,omitempty"` // story, ask, show
	MinPoints   int    `json:"minPoints,omitempty"`
	MinComments int    `json:"minComments,omitempty"`
}

type algoliaResponse struct {
	Hits []algoliaHit `json:"hits"`
}

type algoliaHit struct {
	ObjectID    string   `json:"objectID"`
	Title       string   `json:"title"`
	URL         string   `json:"url"`
	Author      string   `json:"author"`
	Points      int      `json:"points"`
	NumComments int      `json:"num_comments"`
	CreatedAtI  int64    `json:"created_at_i"`
	StoryText   string   `json:"story_text"`
	Tags        []string `json:"_tags"`
}

// storyTypeTags maps the filter's story type to Algolia tag expressions.
var storyTypeTags = map[string]string{
	"":      "(story,ask_hn,show_hn)",
	"story": "story",
	"ask":   "ask_hn",
	"show":  "show_hn",
}

// NewHackerNewsSource creates a Hacker News source with the given per-minute
// request budget.
func NewHackerNewsSource(ratePerMinute int) *HackerNewsSource {
	return &HackerNewsSource{
		client: resty.New().
			SetTimeout(15 * time.Second).
			SetHeader("User-Agent", "LeadScout/1.0"),
		limiter: newRateLimiter(ratePerMinute),
		baseURL: "https://hn.algolia.com/api/v1",
	}
}

func (h *HackerNewsSource) Name() string {
	return hackerNewsPlatformID
}

func (h *HackerNewsSource) Info() models.PlatformInfo {
	return models.PlatformInfo{ID: hackerNewsPlatformID, DisplayName: "Hacker News"}
}

func (h *HackerNewsSource) Search(ctx context.Context, criteria models.SearchCriteria) models.SearchResult {
	result := models.SearchResult{Platform: hackerNewsPlatformID}

	filters := h.decodeFilters(criteria)
	query := buildQuery(criteria.Keywords, criteria.IntentKeywords, criteria.Competitors)

	if err := h.limiter.Wait(ctx); err != nil {
		result.Error = err.Error()
		return result
	}

	searchURL := fmt.Sprintf("%s/search?%s", h.baseURL, h.buildParams(query, criteria, filters).Encode())
	resp, err := h.client.R().SetContext(ctx).Get(searchURL)
	if err != nil {
		result.Error = fmt.Sprintf("hacker news search failed: %v", err)
		return result
	}
	if resp.StatusCode() != 200 {
		result.Error = fmt.Sprintf("hacker news API returned status %d", resp.StatusCode())
		return result
	}

	var search algoliaResponse
	if err := json.Unmarshal(resp.Body(), &search); err != nil {
		result.Error = fmt.Sprintf("hacker news payload malformed: %v", err)
		return result
	}

	var posts []models.Post
	for _, hit := range search.Hits {
		post, ok := h.normalize(hit, criteria)
		if !ok {
			continue
		}
		posts = append(posts, post)
	}

	sort.SliceStable(posts, func(i, j int) bool {
		return posts[i].RelevanceScore() > posts[j].RelevanceScore()
	})
	if limit := criteria.Limit(); len(posts) > limit {
		posts = posts[:limit]
	}

	result.Success = true
	result.Posts = posts
	result.TotalFound = len(posts)
	return result
}

func (h *HackerNewsSource) decodeFilters(criteria models.SearchCriteria) hnFilters {
	var filters hnFilters
	if raw, ok := criteria.FilterFor(hackerNewsPlatformID); ok {
		if err := json.Unmarshal(raw, &filters); err != nil {
			logrus.Warnf("Ignoring malformed hackernews filters: %v", err)
		}
	}
	return filters
}

func (h *HackerNewsSource) buildParams(query string, criteria models.SearchCriteria, filters hnFilters) url.Values {
	params := url.Values{}
	params.Set("query", query)
	params.Set("hitsPerPage", "100")

	tags, ok := storyTypeTags[filters.StoryType]
	if !ok {
		logrus.Warnf("Unknown hackernews story type %q, searching all story types", filters.StoryType)
		tags = storyTypeTags[""]
	}
	params.Set("tags", tags)

	var numeric []string
	if cutoff := criteria.TimeRange.Cutoff(time.Now()); !cutoff.IsZero() {
		numeric = append(numeric, fmt.Sprintf("created_at_i>%d", cutoff.Unix()))
	}
	if filters.MinPoints > 0 {
		numeric = append(numeric, fmt.Sprintf("points>=%d", filters.MinPoints))
	}
	if filters.MinComments > 0 {
		numeric = append(numeric, fmt.Sprintf("num_comments>=%d", filters.MinComments))
	}
	if len(numeric) > 0 {
		params.Set("numericFilters", strings.Join(numeric, ","))
	}

	return params
}

func (h *HackerNewsSource) normalize(hit algoliaHit, criteria models.SearchCriteria) (models.Post, bool) {
	// Comments and job postings carry no title; neither is a lead.
	if hit.Title == "" || hasTag(hit.Tags, "job") {
		return models.Post{}, false
	}

	createdAt := time.Unix(hit.CreatedAtI, 0).UTC()
	if criteria.TimeRange != nil && !criteria.TimeRange.To.IsZero() && createdAt.After(criteria.TimeRange.To) {
		return models.Post{}, false
	}

	itemURL := hit.URL
	if itemURL == "" {
		itemURL = "https://news.ycombinator.com/item?id=" + hit.ObjectID
	}

	post := models.Post{
		ID:       "hackernews_" + hit.ObjectID,
		Platform: hackerNewsPlatformID,
		Title:    hit.Title,
		Body:     stripHTML(hit.StoryText),
		URL:      itemURL,
		Author: models.Author{
			Username:   hit.Author,
			ProfileURL: "https://news.ycombinator.com/user?id=" + hit.Author,
		},
		Metrics: models.Metrics{
			Points:   hit.Points,
			Comments: hit.NumComments,
		},
		CreatedAt: createdAt,
		StoryType: storyType(hit.Tags),
	}

	sig := signals.Detect(post, criteria)
	if sig.RelevanceScore == 0 {
		return models.Post{}, false
	}
	post.Signals = &sig
	return post, true
}

func hasTag(tags []string, tag string) bool {
	for _, t := range tags {
		if t == tag {
			return true
		}
	}
	return false
}

func storyType(tags []string) string {
	switch {
	case hasTag(tags, "ask_hn"):
		return "ask"
	case hasTag(tags, "show_hn"):
		return "show"
	default:
		return "story"
	}
}

var htmlTagRe = regexp.MustCompile(`<[^>]+>`)

// stripHTML removes the simple HTML Algolia returns in story_text.
func stripHTML(s string) string {
	s = htmlTagRe.ReplaceAllString(s, " ")
	replacer := strings.NewReplacer(
		"&quot;", `"`,
		"&#x27;", "'",
		"&amp;", "&",
		"&lt;", "<",
		"&gt;", ">",
	)
	return strings.Join(strings.Fields(replacer.Replace(s)), " ")
}
