package models

import (
	"encoding/json"
	"fmt"
	"time"
)

// TimePreset names a relative search window understood by every platform.
type TimePreset string

const (
	PresetHour  TimePreset = "hour"
	PresetDay   TimePreset = "day"
	PresetWeek  TimePreset = "week"
	PresetMonth TimePreset = "month"
	PresetYear  TimePreset = "year"
)

// presetDurations translates a named preset into a lookback duration.
var presetDurations = map[TimePreset]time.Duration{
	PresetHour:  time.Hour,
	PresetDay:   24 * time.Hour,
	PresetWeek:  7 * 24 * time.Hour,
	PresetMonth: 30 * 24 * time.Hour,
	PresetYear:  365 * 24 * time.Hour,
}

// TimeRange is either a named preset or an explicit from/to pair.
// It unmarshals from a bare JSON string ("week") or an object
// ({"from": "...", "to": "..."}).
type TimeRange struct {
	Preset TimePreset `json:"preset,omitempty"`
	From   time.Time  `json:"from,omitempty"`
	To     time.Time  `json:"to,omitempty"`
}

func (t *TimeRange) UnmarshalJSON(data []byte) error {
	var preset string
	if err := json.Unmarshal(data, &preset); err == nil {
		t.Preset = TimePreset(preset)
		return nil
	}

	type timeRange TimeRange
	var tr timeRange
	if err := json.Unmarshal(data, &tr); err != nil {
		return fmt.Errorf("time range must be a preset string or a from/to object: %w", err)
	}
	*t = TimeRange(tr)
	return nil
}

// Cutoff returns the earliest creation time a post may have to fall inside
// the range. The zero time means no lower bound.
func (t *TimeRange) Cutoff(now time.Time) time.Time {
	if t == nil {
		return time.Time{}
	}
	if d, ok := presetDurations[t.Preset]; ok {
		return now.Add(-d)
	}
	return t.From
}

// SearchCriteria describes what the caller is prospecting for.
// Keywords is the only required field; platform filters are opaque to the
// core and decoded by the owning source.
type SearchCriteria struct {
	Keywords        []string                   `json:"keywords"`
	IntentKeywords  []string                   `json:"intentKeywords,omitempty"`
	PainKeywords    []string                   `json:"painKeywords,omitempty"`
	Competitors     []string                   `json:"competitors,omitempty"`
	PlatformFilters map[string]json.RawMessage `json:"platformFilters,omitempty"`
	TimeRange       *TimeRange                 `json:"timeRange,omitempty"`
	MaxResults      int                        `json:"maxResults,omitempty"`
}

// DefaultMaxResults applies when the caller leaves MaxResults unset.
const DefaultMaxResults = 25

// Limit returns the effective result cap for the criteria.
func (c SearchCriteria) Limit() int {
	if c.MaxResults > 0 {
		return c.MaxResults
	}
	return DefaultMaxResults
}

// FilterFor returns the raw platform filter payload for a platform id.
func (c SearchCriteria) FilterFor(platform string) (json.RawMessage, bool) {
	raw, ok := c.PlatformFilters[platform]
	return raw, ok
}

// Author identifies who wrote a post.
type Author struct {
	Username   string `json:"username"`
	ProfileURL string `json:"profileUrl,omitempty"`
}

// Metrics carries platform-specific engagement counts. Reddit fills Upvotes,
// Hacker News fills Points; both fill Comments.
type Metrics struct {
	Upvotes  int `json:"upvotes,omitempty"`
	Points   int `json:"points,omitempty"`
	Comments int `json:"comments"`
}

// Engagement returns the dominant vote-style count for the post.
func (m Metrics) Engagement() int {
	if m.Points > m.Upvotes {
		return m.Points
	}
	return m.Upvotes
}

// Signals is the deterministic keyword-match metadata attached to a post by
// the signal detector. Posts with RelevanceScore == 0 never leave a source.
type Signals struct {
	MatchedKeywords       []string `json:"matchedKeywords"`
	MatchedIntentKeywords []string `json:"matchedIntentKeywords"`
	MatchedPainKeywords   []string `json:"matchedPainKeywords"`
	MatchedCompetitors    []string `json:"matchedCompetitors"`
	RelevanceScore        int      `json:"relevanceScore"`
}

// IntentLevel buckets an AI intent score.
type IntentLevel string

const (
	LevelHigh   IntentLevel = "HIGH"
	LevelMedium IntentLevel = "MEDIUM"
	LevelLow    IntentLevel = "LOW"
	LevelNone   IntentLevel = "NONE"
)

// Urgency describes how soon the author appears ready to buy.
type Urgency string

const (
	UrgencyImmediate Urgency = "IMMEDIATE"
	UrgencyShortTerm Urgency = "SHORT_TERM"
	UrgencyExploring Urgency = "EXPLORING"
	UrgencyNone      Urgency = "NONE"
)

// Action is the recommended follow-up for a lead.
type Action string

const (
	ActionContactNow Action = "CONTACT_NOW"
	ActionNurture    Action = "NURTURE"
	ActionMonitor    Action = "MONITOR"
	ActionSkip       Action = "SKIP"
)

// Degraded-result tags for IntentAnalysis.Error.
const (
	AIDisabled = "AI_DISABLED"
	AIError    = "AI_ERROR"
)

// IntentAnalysis is the structured LLM judgment of buying intent for a post.
// Score is nil exactly when the scorer was disabled or failed; Summary then
// carries the explanation and Error the tag.
type IntentAnalysis struct {
	Score             *int        `json:"score"`
	Level             IntentLevel `json:"level,omitempty"`
	Confidence        *float64    `json:"confidence,omitempty"`
	BuyingSignals     []string    `json:"buyingSignals,omitempty"`
	PainPoints        []string    `json:"painPoints,omitempty"`
	Urgency           Urgency     `json:"urgency,omitempty"`
	RecommendedAction Action      `json:"recommendedAction,omitempty"`
	Summary           string      `json:"summary"`
	Error             string      `json:"error,omitempty"`
}

// Scored reports whether the analysis carries a usable AI score.
func (a *IntentAnalysis) Scored() bool {
	return a != nil && a.Score != nil
}

// Post is a normalized social-media item from one platform.
type Post struct {
	ID        string    `json:"id"`
	Platform  string    `json:"platform"`
	Title     string    `json:"title"`
	Body      string    `json:"body,omitempty"`
	URL       string    `json:"url"`
	Author    Author    `json:"author"`
	Metrics   Metrics   `json:"metrics"`
	CreatedAt time.Time `json:"createdAt"`

	// Platform-specific optional fields.
	Subreddit string `json:"subreddit,omitempty"`
	StoryType string `json:"storyType,omitempty"`

	Signals        *Signals        `json:"signals,omitempty"`
	IntentAnalysis *IntentAnalysis `json:"intentAnalysis,omitempty"`
}

// RelevanceScore returns the detected relevance, 0 when signals are absent.
func (p Post) RelevanceScore() int {
	if p.Signals == nil {
		return 0
	}
	return p.Signals.RelevanceScore
}

// PlatformInfo describes a registered platform for discovery endpoints.
type PlatformInfo struct {
	ID          string `json:"id"`
	DisplayName string `json:"displayName"`
}

// SearchResult is one platform's answer to a search. Sources never raise;
// remote failure comes back as Success == false with the cause in Error.
type SearchResult struct {
	Platform   string `json:"platform"`
	Success    bool   `json:"success"`
	Error      string `json:"error,omitempty"`
	Posts      []Post `json:"posts"`
	TotalFound int    `json:"totalFound"`
}

// PlatformError records a source-level failure inside a merged result.
type PlatformError struct {
	Platform string `json:"platform"`
	Error    string `json:"error"`
}

// MultiSearchResult is the raw fan-out outcome, one entry per requested
// platform in request order.
type MultiSearchResult struct {
	ID         string          `json:"id"`
	Success    bool            `json:"success"`
	TotalPosts int             `json:"totalPosts"`
	Results    []SearchResult  `json:"results"`
	ByPlatform map[string]int  `json:"byPlatform"`
	Errors     []PlatformError `json:"errors,omitempty"`
}

// RankedResult is the merged, relevance-sorted view across all platforms.
type RankedResult struct {
	ID         string          `json:"id"`
	Success    bool            `json:"success"`
	TotalFound int             `json:"totalFound"`
	ByPlatform map[string]int  `json:"byPlatform"`
	Posts      []Post          `json:"posts"`
	Errors     []PlatformError `json:"errors,omitempty"`
}

// ProductContext gives the intent scorer background on what is being sold.
type ProductContext struct {
	Name        string   `json:"name"`
	Type        string   `json:"type,omitempty"`
	Problems    []string `json:"problems,omitempty"`
	Competitors []string `json:"competitors,omitempty"`
}

// AIScoringSummary is the bookkeeping block of an AI-ranked result.
type AIScoringSummary struct {
	Enabled           bool `json:"enabled"`
	Scored            int  `json:"scored"`
	Skipped           int  `json:"skipped"`
	MinRelevanceScore int  `json:"minRelevanceScore"`
	MaxToScore        int  `json:"maxToScore"`
}

// GroupUnscored keys posts that never received a usable AI score in
// AIRankedResult.Groups, alongside the four intent levels.
const GroupUnscored = "UNSCORED"

// AIRankedResult is the final triaged view: AI-scored posts first (by intent
// score), then the rest by relevance, grouped by intent level.
type AIRankedResult struct {
	ID         string            `json:"id"`
	Success    bool              `json:"success"`
	TotalFound int               `json:"totalFound"`
	ByPlatform map[string]int    `json:"byPlatform"`
	Posts      []Post            `json:"posts"`
	Groups     map[string][]Post `json:"groups"`
	HotLeads   []Post            `json:"hotLeads"`
	AIScoring  AIScoringSummary  `json:"aiScoring"`
	Errors     []PlatformError   `json:"errors,omitempty"`
}
