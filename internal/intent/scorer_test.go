package intent

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leadscout/leadscout/internal/models"
)

// stubClient scripts chat-completion replies and records call pressure.
type stubClient struct {
	mu        sync.Mutex
	calls     int
	inFlight  int
	maxFlight int
	reply     string
	err       error
}

func (c *stubClient) CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error) {
	c.mu.Lock()
	c.calls++
	c.inFlight++
	if c.inFlight > c.maxFlight {
		c.maxFlight = c.inFlight
	}
	c.mu.Unlock()

	time.Sleep(5 * time.Millisecond)

	c.mu.Lock()
	c.inFlight--
	c.mu.Unlock()

	if c.err != nil {
		return openai.ChatCompletionResponse{}, c.err
	}
	return openai.ChatCompletionResponse{
		Choices: []openai.ChatCompletionChoice{
			{Message: openai.ChatCompletionMessage{Content: c.reply}},
		},
	}, nil
}

func enabledScorer(client completionClient, policy BatchPolicy) *Scorer {
	s := NewScorer(Config{}, policy)
	s.client = client
	s.model = "test-model"
	return s
}

const validReply = `{
	"score": 85,
	"level": "HIGH",
	"confidence": 0.9,
	"buyingSignals": ["asking for recommendations"],
	"painPoints": ["manual spreadsheets"],
	"urgency": "SHORT_TERM",
	"recommendedAction": "CONTACT_NOW",
	"summary": "Author is actively shopping for a CRM."
}`

func TestScorer_DisabledShortCircuits(t *testing.T) {
	scorer := NewScorer(Config{}, DefaultBatchPolicy())
	require.False(t, scorer.Enabled())

	analysis := scorer.ScoreOne(context.Background(), models.Post{ID: "p1"}, nil)
	require.NotNil(t, analysis)
	assert.Nil(t, analysis.Score)
	assert.Equal(t, models.AIDisabled, analysis.Error)
	assert.NotEmpty(t, analysis.Summary)
}

func TestScorer_DisabledBatchShortCircuits(t *testing.T) {
	scorer := NewScorer(Config{}, DefaultBatchPolicy())
	posts := []models.Post{{ID: "p1"}, {ID: "p2"}, {ID: "p3"}}

	scored := scorer.ScoreBatch(context.Background(), posts, nil)

	require.Len(t, scored, 3)
	for _, post := range scored {
		require.NotNil(t, post.IntentAnalysis)
		assert.Nil(t, post.IntentAnalysis.Score)
		assert.Equal(t, models.AIDisabled, post.IntentAnalysis.Error)
	}
}

func TestScorer_ScoreOne(t *testing.T) {
	client := &stubClient{reply: validReply}
	scorer := enabledScorer(client, DefaultBatchPolicy())

	analysis := scorer.ScoreOne(context.Background(), models.Post{ID: "p1", Title: "Looking for a CRM"}, &models.ProductContext{Name: "Acme CRM"})

	require.NotNil(t, analysis)
	require.NotNil(t, analysis.Score)
	assert.Equal(t, 85, *analysis.Score)
	assert.Equal(t, models.LevelHigh, analysis.Level)
	assert.Equal(t, models.UrgencyShortTerm, analysis.Urgency)
	assert.Equal(t, models.ActionContactNow, analysis.RecommendedAction)
	assert.Empty(t, analysis.Error)
	assert.Equal(t, 1, client.calls)
}

func TestScorer_TransportErrorDegrades(t *testing.T) {
	client := &stubClient{err: fmt.Errorf("connection refused")}
	scorer := enabledScorer(client, DefaultBatchPolicy())

	analysis := scorer.ScoreOne(context.Background(), models.Post{ID: "p1"}, nil)

	require.NotNil(t, analysis)
	assert.Nil(t, analysis.Score)
	assert.Equal(t, models.AIError, analysis.Error)
	assert.Contains(t, analysis.Summary, "connection refused")
}

func TestScorer_BatchBoundsConcurrency(t *testing.T) {
	client := &stubClient{reply: validReply}
	scorer := enabledScorer(client, BatchPolicy{GroupSize: 2, Pause: time.Millisecond})

	posts := make([]models.Post, 5)
	for i := range posts {
		posts[i] = models.Post{ID: fmt.Sprintf("p%d", i)}
	}

	scored := scorer.ScoreBatch(context.Background(), posts, nil)

	require.Len(t, scored, 5)
	assert.Equal(t, 5, client.calls)
	assert.LessOrEqual(t, client.maxFlight, 2)
	for _, post := range scored {
		assert.True(t, post.IntentAnalysis.Scored())
	}
}

func TestScorer_BatchEmptyIsNoop(t *testing.T) {
	client := &stubClient{reply: validReply}
	scorer := enabledScorer(client, DefaultBatchPolicy())

	assert.Empty(t, scorer.ScoreBatch(context.Background(), nil, nil))
	assert.Zero(t, client.calls)
}

func TestParseAnalysis_FieldNormalization(t *testing.T) {
	tests := []struct {
		name     string
		reply    string
		expected func(t *testing.T, a *models.IntentAnalysis)
	}{
		{
			name:  "Overflowing score clamps to 100 and invalid level falls back",
			reply: `{"score": 150, "level": "URGENT", "summary": "hot"}`,
			expected: func(t *testing.T, a *models.IntentAnalysis) {
				assert.Equal(t, 100, *a.Score)
				assert.Equal(t, models.LevelHigh, a.Level)
			},
		},
		{
			name:  "Negative score clamps to 0",
			reply: `{"score": -5, "summary": "cold"}`,
			expected: func(t *testing.T, a *models.IntentAnalysis) {
				assert.Equal(t, 0, *a.Score)
				assert.Equal(t, models.LevelNone, a.Level)
			},
		},
		{
			name:  "Invalid urgency and action default",
			reply: `{"score": 60, "level": "MEDIUM", "urgency": "YESTERDAY", "recommendedAction": "CALL_THE_CEO", "summary": "s"}`,
			expected: func(t *testing.T, a *models.IntentAnalysis) {
				assert.Equal(t, models.UrgencyNone, a.Urgency)
				assert.Equal(t, models.ActionMonitor, a.RecommendedAction)
			},
		},
		{
			name:  "Confidence clamps to unit interval",
			reply: `{"score": 40, "confidence": 3.5, "summary": "s"}`,
			expected: func(t *testing.T, a *models.IntentAnalysis) {
				assert.Equal(t, 1.0, *a.Confidence)
			},
		},
		{
			name:  "Missing fields get safe defaults",
			reply: `{}`,
			expected: func(t *testing.T, a *models.IntentAnalysis) {
				assert.Equal(t, 0, *a.Score)
				assert.Equal(t, models.LevelNone, a.Level)
				assert.Equal(t, 0.5, *a.Confidence)
				assert.Equal(t, models.UrgencyNone, a.Urgency)
				assert.Equal(t, models.ActionMonitor, a.RecommendedAction)
				assert.NotEmpty(t, a.Summary)
			},
		},
		{
			name:  "Lowercase enums are accepted",
			reply: `{"score": 55, "level": "medium", "urgency": "exploring", "recommendedAction": "nurture", "summary": "s"}`,
			expected: func(t *testing.T, a *models.IntentAnalysis) {
				assert.Equal(t, models.LevelMedium, a.Level)
				assert.Equal(t, models.UrgencyExploring, a.Urgency)
				assert.Equal(t, models.ActionNurture, a.RecommendedAction)
			},
		},
		{
			name:  "Fenced JSON is unwrapped",
			reply: "```json\n{\"score\": 30, \"summary\": \"s\"}\n```",
			expected: func(t *testing.T, a *models.IntentAnalysis) {
				assert.Equal(t, 30, *a.Score)
				assert.Equal(t, models.LevelLow, a.Level)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			analysis := parseAnalysis(tt.reply)
			require.NotNil(t, analysis)
			require.True(t, analysis.Scored(), "normalized analysis should carry a score")
			assert.Empty(t, analysis.Error)
			tt.expected(t, analysis)
		})
	}
}

func TestParseAnalysis_UnparseableDegrades(t *testing.T) {
	analysis := parseAnalysis("I think this lead looks promising!")

	require.NotNil(t, analysis)
	assert.Nil(t, analysis.Score)
	assert.Equal(t, models.AIError, analysis.Error)
}

func TestLevelForScore(t *testing.T) {
	tests := []struct {
		score    int
		expected models.IntentLevel
	}{
		{100, models.LevelHigh},
		{80, models.LevelHigh},
		{79, models.LevelMedium},
		{50, models.LevelMedium},
		{49, models.LevelLow},
		{20, models.LevelLow},
		{19, models.LevelNone},
		{0, models.LevelNone},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, levelForScore(tt.score), "score %d", tt.score)
	}
}
