package intent

import (
	"fmt"
	"strings"

	"github.com/leadscout/leadscout/internal/models"
)

// systemPrompt fixes the scoring rubric. The response format is pinned to a
// JSON object so the reply stays machine-parseable.
const systemPrompt = `You are a B2B lead-qualification analyst. You judge social media posts for buying intent: how likely is the author to purchase a product that solves the problem they describe?

Score each post from 0 to 100:
- 80-100 (HIGH): actively evaluating or asking for product recommendations, ready to buy
- 50-79 (MEDIUM): clear pain point or dissatisfaction with a current tool, open to solutions
- 20-49 (LOW): discusses the problem space without an expressed need
- 0-19 (NONE): no buying intent

Buying signal categories to look for: asking for recommendations, comparing alternatives, complaining about a current tool, describing a workflow pain, mentioning budget or pricing, mentioning a competitor by name, urgency language ("need this now", "deadline").

Respond with a single JSON object and nothing else, using exactly these keys:
{
  "score": <integer 0-100>,
  "level": "HIGH" | "MEDIUM" | "LOW" | "NONE",
  "confidence": <number 0.0-1.0>,
  "buyingSignals": [<strings>],
  "painPoints": [<strings>],
  "urgency": "IMMEDIATE" | "SHORT_TERM" | "EXPLORING" | "NONE",
  "recommendedAction": "CONTACT_NOW" | "NURTURE" | "MONITOR" | "SKIP",
  "summary": "<one or two sentences>"
}`

// maxBodyChars bounds the post body embedded in the prompt to keep token
// usage predictable.
const maxBodyChars = 1500

func buildUserPrompt(post models.Post, product *models.ProductContext) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Platform: %s\n", post.Platform)
	fmt.Fprintf(&b, "Title: %s\n", post.Title)

	body := strings.TrimSpace(post.Body)
	if len([]rune(body)) > maxBodyChars {
		body = string([]rune(body)[:maxBodyChars])
	}
	if body != "" {
		fmt.Fprintf(&b, "Body: %s\n", body)
	}

	fmt.Fprintf(&b, "Engagement: %d votes, %d comments\n", post.Metrics.Engagement(), post.Metrics.Comments)

	if sig := post.Signals; sig != nil {
		fmt.Fprintf(&b, "Keyword pre-screen (relevance %d/100):\n", sig.RelevanceScore)
		writeMatches(&b, "matched keywords", sig.MatchedKeywords)
		writeMatches(&b, "intent phrases", sig.MatchedIntentKeywords)
		writeMatches(&b, "pain phrases", sig.MatchedPainKeywords)
		writeMatches(&b, "competitors mentioned", sig.MatchedCompetitors)
	}

	if product != nil {
		b.WriteString("\nProduct being sold:\n")
		fmt.Fprintf(&b, "- name: %s\n", product.Name)
		if product.Type != "" {
			fmt.Fprintf(&b, "- type: %s\n", product.Type)
		}
		if len(product.Problems) > 0 {
			fmt.Fprintf(&b, "- problems it solves: %s\n", strings.Join(product.Problems, ", "))
		}
		if len(product.Competitors) > 0 {
			fmt.Fprintf(&b, "- competitors: %s\n", strings.Join(product.Competitors, ", "))
		}
	}

	b.WriteString("\nJudge this post's buying intent.")
	return b.String()
}

func writeMatches(b *strings.Builder, label string, matches []string) {
	if len(matches) == 0 {
		return
	}
	fmt.Fprintf(b, "- %s: %s\n", label, strings.Join(matches, ", "))
}
