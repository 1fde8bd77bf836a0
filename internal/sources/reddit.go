package sources

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/sirupsen/logrus"

	"github.com/leadscout/leadscout/internal/models"
	"github.com/leadscout/leadscout/internal/signals"
)

const redditPlatformID = "reddit"

// defaultSubreddits is searched when the caller supplies no subreddit filter.
var defaultSubreddits = []string{"all"}

// RedditSource searches Reddit submissions. With client credentials it uses
// the OAuth API; without them it falls back to the public JSON endpoint so
// the source stays usable in development.
type RedditSource struct {
	clientID     string
	clientSecret string
	userAgent    string
	client       *resty.Client
	limiter      *rateLimiter

	authURL   string
	oauthAPI  string
	publicAPI string

	// mu guards accessToken; one source instance serves concurrent searches.
	mu          sync.Mutex
	accessToken string
}

// redditFilters is the reddit entry of SearchCriteria.PlatformFilters.
type redditFilters struct {
	Subreddits  []string `json:"subreddits,omitempty"`
	Sort        string   `json:"sort,omitempty"`
	MinUpvotes  int      `json:"minUpvotes,omitempty"`
	MinComments int      `json:"minComments,omitempty"`
}

type redditTokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int    `json:"expires_in"`
}

type redditListing struct {
	Data struct {
		Children []struct {
			Data redditSubmission `json:"data"`
		} `json:"children"`
	} `json:"data"`
}

type redditSubmission struct {
	ID          string  `json:"id"`
	Title       string  `json:"title"`
	Selftext    string  `json:"selftext"`
	Author      string  `json:"author"`
	Subreddit   string  `json:"subreddit"`
	Permalink   string  `json:"permalink"`
	Created     float64 `json:"created_utc"`
	Score       int     `json:"score"`
	NumComments int     `json:"num_comments"`
	Stickied    bool    `json:"stickied"`
	Over18      bool    `json:"over_18"`
}

// NewRedditSource creates a Reddit source. ratePerMinute caps outbound
// requests inside a fixed one-minute window.
func NewRedditSource(clientID, clientSecret, userAgent string, ratePerMinute int) *RedditSource {
	if userAgent == "" {
		userAgent = "LeadScout/1.0"
	}
	return &RedditSource{
		clientID:     clientID,
		clientSecret: clientSecret,
		userAgent:    userAgent,
		client:       resty.New().SetTimeout(15 * time.Second),
		limiter:      newRateLimiter(ratePerMinute),
		authURL:      "https://www.reddit.com/api/v1/access_token",
		oauthAPI:     "https://oauth.reddit.com",
		publicAPI:    "https://www.reddit.com",
	}
}

func (r *RedditSource) Name() string {
	return redditPlatformID
}

func (r *RedditSource) Info() models.PlatformInfo {
	return models.PlatformInfo{ID: redditPlatformID, DisplayName: "Reddit"}
}

// Search runs the criteria against every configured subreddit, isolating
// per-subreddit failures. The result is tagged unsuccessful only when every
// sub-query failed.
func (r *RedditSource) Search(ctx context.Context, criteria models.SearchCriteria) models.SearchResult {
	result := models.SearchResult{Platform: redditPlatformID}

	filters := r.decodeFilters(criteria)
	query := buildQuery(criteria.Keywords, criteria.IntentKeywords, criteria.Competitors)

	if r.authenticated() {
		if err := r.authenticate(ctx); err != nil {
			result.Error = fmt.Sprintf("reddit authentication failed: %v", err)
			return result
		}
	}

	subreddits := filters.Subreddits
	if len(subreddits) == 0 {
		subreddits = defaultSubreddits
	}

	var posts []models.Post
	var subErrors []string

	for _, subreddit := range subreddits {
		found, err := r.searchSubreddit(ctx, subreddit, query, criteria, filters)
		if err != nil {
			logrus.Errorf("Failed to search r/%s: %v", subreddit, err)
			subErrors = append(subErrors, fmt.Sprintf("r/%s: %v", subreddit, err))
			continue
		}
		posts = append(posts, found...)
	}

	if len(subErrors) == len(subreddits) {
		result.Error = strings.Join(subErrors, "; ")
		return result
	}

	posts = dedupePosts(posts)

	// Re-sort locally: multiple subreddit listings arrive in platform order,
	// not relevance order.
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

func (r *RedditSource) decodeFilters(criteria models.SearchCriteria) redditFilters {
	var filters redditFilters
	if raw, ok := criteria.FilterFor(redditPlatformID); ok {
		if err := json.Unmarshal(raw, &filters); err != nil {
			logrus.Warnf("Ignoring malformed reddit filters: %v", err)
		}
	}
	return filters
}

func (r *RedditSource) authenticated() bool {
	return r.clientID != "" && r.clientSecret != ""
}

func (r *RedditSource) authenticate(ctx context.Context) error {
	if err := r.limiter.Wait(ctx); err != nil {
		return err
	}

	resp, err := r.client.R().
		SetContext(ctx).
		SetHeader("User-Agent", r.userAgent).
		SetBasicAuth(r.clientID, r.clientSecret).
		SetFormData(map[string]string{"grant_type": "client_credentials"}).
		Post(r.authURL)
	if err != nil {
		return err
	}
	if resp.StatusCode() != 200 {
		return fmt.Errorf("token endpoint returned status %d", resp.StatusCode())
	}

	var token redditTokenResponse
	if err := json.Unmarshal(resp.Body(), &token); err != nil {
		return err
	}
	if token.AccessToken == "" {
		return fmt.Errorf("token endpoint returned no access token")
	}

	r.mu.Lock()
	r.accessToken = token.AccessToken
	r.mu.Unlock()
	return nil
}

func (r *RedditSource) token() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.accessToken
}

func (r *RedditSource) searchSubreddit(ctx context.Context, subreddit, query string, criteria models.SearchCriteria, filters redditFilters) ([]models.Post, error) {
	if err := r.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	sortOrder := filters.Sort
	if sortOrder == "" {
		sortOrder = "relevance"
	}

	params := url.Values{}
	params.Set("q", query)
	params.Set("restrict_sr", "1")
	params.Set("sort", sortOrder)
	params.Set("limit", "100")
	if criteria.TimeRange != nil && criteria.TimeRange.Preset != "" {
		params.Set("t", string(criteria.TimeRange.Preset))
	}

	base := r.publicAPI
	req := r.client.R().
		SetContext(ctx).
		SetHeader("User-Agent", r.userAgent)
	if token := r.token(); token != "" {
		base = r.oauthAPI
		req.SetHeader("Authorization", "Bearer "+token)
	}

	searchURL := fmt.Sprintf("%s/r/%s/search.json?%s", base, url.PathEscape(subreddit), params.Encode())
	resp, err := req.Get(searchURL)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode() != 200 {
		return nil, fmt.Errorf("reddit API returned status %d", resp.StatusCode())
	}

	var listing redditListing
	if err := json.Unmarshal(resp.Body(), &listing); err != nil {
		return nil, err
	}

	var posts []models.Post
	for _, child := range listing.Data.Children {
		post, ok := r.normalize(child.Data, criteria, filters)
		if !ok {
			continue
		}
		posts = append(posts, post)
	}
	return posts, nil
}

// normalize converts a raw submission into a Post, applying the exclusion
// and engagement rules and dropping anything without a relevance signal.
func (r *RedditSource) normalize(sub redditSubmission, criteria models.SearchCriteria, filters redditFilters) (models.Post, bool) {
	if sub.Stickied || sub.Over18 {
		return models.Post{}, false
	}
	if sub.Score < filters.MinUpvotes || sub.NumComments < filters.MinComments {
		return models.Post{}, false
	}

	createdAt := time.Unix(int64(sub.Created), 0).UTC()
	if !withinRange(createdAt, criteria.TimeRange) {
		return models.Post{}, false
	}

	post := models.Post{
		ID:       "reddit_" + sub.ID,
		Platform: redditPlatformID,
		Title:    sub.Title,
		Body:     sub.Selftext,
		URL:      "https://www.reddit.com" + sub.Permalink,
		Author: models.Author{
			Username:   sub.Author,
			ProfileURL: "https://www.reddit.com/user/" + sub.Author,
		},
		Metrics: models.Metrics{
			Upvotes:  sub.Score,
			Comments: sub.NumComments,
		},
		CreatedAt: createdAt,
		Subreddit: sub.Subreddit,
	}

	sig := signals.Detect(post, criteria)
	if sig.RelevanceScore == 0 {
		return models.Post{}, false
	}
	post.Signals = &sig
	return post, true
}

// withinRange checks the time window client-side. Preset windows are also
// applied by the platform's own t= filter; explicit from/to ranges are only
// enforced here.
func withinRange(createdAt time.Time, tr *models.TimeRange) bool {
	if tr == nil {
		return true
	}
	if cutoff := tr.Cutoff(time.Now()); !cutoff.IsZero() && createdAt.Before(cutoff) {
		return false
	}
	if !tr.To.IsZero() && createdAt.After(tr.To) {
		return false
	}
	return true
}

func dedupePosts(posts []models.Post) []models.Post {
	seen := make(map[string]bool, len(posts))
	var unique []models.Post
	for _, post := range posts {
		if seen[post.ID] {
			continue
		}
		seen[post.ID] = true
		unique = append(unique, post)
	}
	return unique
}
