package sources

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/leadscout/leadscout/internal/models"
)

func TestBuildQuery(t *testing.T) {
	tests := []struct {
		name           string
		keywords       []string
		intentKeywords []string
		competitors    []string
		expected       string
	}{
		{
			name:     "Single keyword",
			keywords: []string{"CRM"},
			expected: "CRM",
		},
		{
			name:     "Multi-word terms are quoted",
			keywords: []string{"project management"},
			expected: `"project management"`,
		},
		{
			name:           "Keywords, intent and competitors joined with OR",
			keywords:       []string{"CRM"},
			intentKeywords: []string{"looking for"},
			competitors:    []string{"Salesforce"},
			expected:       `CRM OR "looking for" OR Salesforce`,
		},
		{
			name:           "Only first three intent keywords widen the query",
			keywords:       []string{"CRM"},
			intentKeywords: []string{"a", "b", "c", "d"},
			expected:       "CRM OR a OR b OR c",
		},
		{
			name:     "Blank terms are skipped",
			keywords: []string{"CRM", "", "  "},
			expected: "CRM",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, buildQuery(tt.keywords, tt.intentKeywords, tt.competitors))
		})
	}
}

func TestRegistry(t *testing.T) {
	reddit := NewRedditSource("", "", "", 30)
	hn := NewHackerNewsSource(100)
	registry := NewRegistry(reddit, hn)

	assert.Equal(t, []string{"reddit", "hackernews"}, registry.IDs())

	src, ok := registry.Get("reddit")
	assert.True(t, ok)
	assert.Equal(t, "reddit", src.Name())

	_, ok = registry.Get("linkedin")
	assert.False(t, ok)

	infos := registry.Info()
	assert.Equal(t, []models.PlatformInfo{
		{ID: "reddit", DisplayName: "Reddit"},
		{ID: "hackernews", DisplayName: "Hacker News"},
	}, infos)
}

func TestRegistry_DuplicateRegistrationKeepsFirst(t *testing.T) {
	first := NewHackerNewsSource(10)
	second := NewHackerNewsSource(20)
	registry := NewRegistry(first, second)

	assert.Equal(t, []string{"hackernews"}, registry.IDs())
	src, _ := registry.Get("hackernews")
	assert.Same(t, first, src)
}

func TestStripHTML(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "Tags removed",
			input:    "<p>We need a <i>better</i> tool</p>",
			expected: "We need a better tool",
		},
		{
			name:     "Entities unescaped",
			input:    "cheap &amp; cheerful &quot;CRM&quot;",
			expected: `cheap & cheerful "CRM"`,
		},
		{
			name:     "Plain text untouched",
			input:    "no markup here",
			expected: "no markup here",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, stripHTML(tt.input))
		})
	}
}
