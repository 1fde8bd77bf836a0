package sources

import "strings"

// maxIntentTermsInQuery bounds how many intent phrases widen the remote
// query; the rest still count during local signal detection.
const maxIntentTermsInQuery = 3

// buildQuery assembles a platform-native OR query from the criteria's
// keywords, the first few intent keywords, and competitor names.
// Multi-word terms are quoted so platforms treat them as phrases.
func buildQuery(keywords, intentKeywords, competitors []string) string {
	intent := intentKeywords
	if len(intent) > maxIntentTermsInQuery {
		intent = intent[:maxIntentTermsInQuery]
	}

	var terms []string
	for _, group := range [][]string{keywords, intent, competitors} {
		for _, term := range group {
			term = strings.TrimSpace(term)
			if term == "" {
				continue
			}
			if strings.Contains(term, " ") {
				term = `"` + term + `"`
			}
			terms = append(terms, term)
		}
	}

	return strings.Join(terms, " OR ")
}
