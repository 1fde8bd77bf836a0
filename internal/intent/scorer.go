package intent

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/leadscout/leadscout/internal/models"
)

const (
	defaultModel   = "gpt-4o-mini"
	requestTimeout = 30 * time.Second
)

// BatchPolicy paces batch scoring: groups of GroupSize posts run
// concurrently, with a fixed Pause between groups. This is deliberate
// fixed-window pacing, not adaptive backoff.
type BatchPolicy struct {
	GroupSize int
	Pause     time.Duration
}

// DefaultBatchPolicy matches typical chat-completion throughput limits.
func DefaultBatchPolicy() BatchPolicy {
	return BatchPolicy{GroupSize: 3, Pause: 200 * time.Millisecond}
}

// Config configures the scorer's backing model. An empty APIKey disables
// scoring entirely: every call degrades to an AI_DISABLED result without
// touching the network.
type Config struct {
	APIKey  string
	Model   string
	BaseURL string
}

// completionClient is the slice of the OpenAI client the scorer uses,
// narrowed so tests can substitute it.
type completionClient interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// Scorer produces structured buying-intent judgments for posts.
type Scorer struct {
	client completionClient
	model  string
	policy BatchPolicy
}

// NewScorer builds a scorer from config. A missing API key yields a disabled
// scorer, which is still safe to call.
func NewScorer(cfg Config, policy BatchPolicy) *Scorer {
	if policy.GroupSize <= 0 {
		policy.GroupSize = DefaultBatchPolicy().GroupSize
	}
	if policy.Pause < 0 {
		policy.Pause = 0
	}

	s := &Scorer{policy: policy}
	if cfg.APIKey == "" {
		return s
	}

	if cfg.BaseURL != "" {
		cc := openai.DefaultConfig(cfg.APIKey)
		cc.BaseURL = cfg.BaseURL
		s.client = openai.NewClientWithConfig(cc)
	} else {
		s.client = openai.NewClient(cfg.APIKey)
	}

	s.model = cfg.Model
	if s.model == "" {
		s.model = defaultModel
	}
	return s
}

// Enabled reports whether a backing model is configured.
func (s *Scorer) Enabled() bool {
	return s.client != nil
}

// ScoreOne scores a single post. It never returns an error: transport and
// parse failures degrade to an AI_ERROR analysis so sibling posts in a batch
// are unaffected.
func (s *Scorer) ScoreOne(ctx context.Context, post models.Post, product *models.ProductContext) *models.IntentAnalysis {
	if !s.Enabled() {
		return disabledAnalysis()
	}

	ctx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()

	resp, err := s.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: s.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: buildUserPrompt(post, product)},
		},
		Temperature: 0.2,
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
	})
	if err != nil {
		logrus.Errorf("Intent scoring failed for %s: %v", post.ID, err)
		return errorAnalysis(err)
	}
	if len(resp.Choices) == 0 {
		return errorAnalysis(fmt.Errorf("model returned no choices"))
	}

	return parseAnalysis(resp.Choices[0].Message.Content)
}

// ScoreBatch scores posts in sequential groups of policy.GroupSize, pausing
// policy.Pause between groups; group n+1 never starts before group n
// finishes. Safe on an empty slice; when disabled it tags every post
// AI_DISABLED without network calls.
func (s *Scorer) ScoreBatch(ctx context.Context, posts []models.Post, product *models.ProductContext) []models.Post {
	if len(posts) == 0 {
		return posts
	}

	scored := make([]models.Post, len(posts))
	copy(scored, posts)

	if !s.Enabled() {
		for i := range scored {
			scored[i].IntentAnalysis = disabledAnalysis()
		}
		return scored
	}

	logrus.Infof("Scoring %d posts in groups of %d", len(scored), s.policy.GroupSize)

	for start := 0; start < len(scored); start += s.policy.GroupSize {
		end := start + s.policy.GroupSize
		if end > len(scored) {
			end = len(scored)
		}

		g := new(errgroup.Group)
		for i := start; i < end; i++ {
			i := i
			g.Go(func() error {
				scored[i].IntentAnalysis = s.ScoreOne(ctx, scored[i], product)
				return nil
			})
		}
		_ = g.Wait()

		if end < len(scored) && s.policy.Pause > 0 {
			select {
			case <-ctx.Done():
				for i := end; i < len(scored); i++ {
					scored[i].IntentAnalysis = errorAnalysis(ctx.Err())
				}
				return scored
			case <-time.After(s.policy.Pause):
			}
		}
	}

	return scored
}

// rawAnalysis mirrors the JSON object the model is instructed to emit.
// Every field is treated as untrusted and normalized before use.
type rawAnalysis struct {
	Score             *float64 `json:"score"`
	Level             string   `json:"level"`
	Confidence        *float64 `json:"confidence"`
	BuyingSignals     []string `json:"buyingSignals"`
	PainPoints        []string `json:"painPoints"`
	Urgency           string   `json:"urgency"`
	RecommendedAction string   `json:"recommendedAction"`
	Summary           string   `json:"summary"`
}

// parseAnalysis validates the model output field by field, substituting safe
// defaults instead of failing the call. Only a completely unparseable reply
// degrades to AI_ERROR.
func parseAnalysis(content string) *models.IntentAnalysis {
	content = stripCodeFence(content)

	var raw rawAnalysis
	if err := json.Unmarshal([]byte(content), &raw); err != nil {
		logrus.Warnf("Unparseable intent analysis: %v", err)
		return errorAnalysis(fmt.Errorf("unparseable model response: %w", err))
	}

	score := 0
	if raw.Score != nil {
		score = int(math.Round(*raw.Score))
	}
	if score < 0 {
		score = 0
	}
	if score > 100 {
		score = 100
	}

	level := models.IntentLevel(strings.ToUpper(raw.Level))
	switch level {
	case models.LevelHigh, models.LevelMedium, models.LevelLow, models.LevelNone:
	default:
		level = levelForScore(score)
	}

	confidence := 0.5
	if raw.Confidence != nil {
		confidence = math.Max(0, math.Min(1, *raw.Confidence))
	}

	urgency := models.Urgency(strings.ToUpper(raw.Urgency))
	switch urgency {
	case models.UrgencyImmediate, models.UrgencyShortTerm, models.UrgencyExploring, models.UrgencyNone:
	default:
		urgency = models.UrgencyNone
	}

	action := models.Action(strings.ToUpper(raw.RecommendedAction))
	switch action {
	case models.ActionContactNow, models.ActionNurture, models.ActionMonitor, models.ActionSkip:
	default:
		action = models.ActionMonitor
	}

	summary := strings.TrimSpace(raw.Summary)
	if summary == "" {
		summary = "No summary provided."
	}

	return &models.IntentAnalysis{
		Score:             &score,
		Level:             level,
		Confidence:        &confidence,
		BuyingSignals:     raw.BuyingSignals,
		PainPoints:        raw.PainPoints,
		Urgency:           urgency,
		RecommendedAction: action,
		Summary:           summary,
	}
}

// levelForScore is the deterministic fallback when the model's label is
// missing or outside the closed set.
func levelForScore(score int) models.IntentLevel {
	switch {
	case score >= 80:
		return models.LevelHigh
	case score >= 50:
		return models.LevelMedium
	case score >= 20:
		return models.LevelLow
	default:
		return models.LevelNone
	}
}

func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

func disabledAnalysis() *models.IntentAnalysis {
	return &models.IntentAnalysis{
		Summary: "AI scoring disabled: no API key configured",
		Error:   models.AIDisabled,
	}
}

func errorAnalysis(err error) *models.IntentAnalysis {
	return &models.IntentAnalysis{
		Summary: fmt.Sprintf("AI scoring failed: %v", err),
		Error:   models.AIError,
	}
}
