// Package search finds posts by fuzzy matching their content and remembers
// recent queries per channel.
package search

import (
	"strings"

	"github.com/sahilm/fuzzy"
	"github.com/tloncorp/chatscroller/internal/message"
)

type Result struct {
	Post  message.Post
	Score int
	// Matched holds the byte offsets of the matched characters in the
	// searched text.
	Matched []int
}

type postSource []message.Post

func (s postSource) String(i int) string {
	return searchText(s[i])
}

func (s postSource) Len() int {
	return len(s)
}

func searchText(p message.Post) string {
	return p.Author + " " + p.Content
}

// Find returns up to limit posts matching query, best match first. Ties keep
// the newer post first. A limit of zero or less returns every match.
func Find(posts []message.Post, query string, limit int) []Result {
	query = strings.TrimSpace(query)
	if query == "" || len(posts) == 0 {
		return nil
	}
	// Newest first so the stable sort prefers recent posts on equal scores.
	newest := make(postSource, len(posts))
	for i, p := range posts {
		newest[len(posts)-1-i] = p
	}
	matches := fuzzy.FindFrom(query, newest)
	if limit > 0 && len(matches) > limit {
		matches = matches[:limit]
	}
	results := make([]Result, len(matches))
	for i, m := range matches {
		results[i] = Result{
			Post:    newest[m.Index],
			Score:   m.Score,
			Matched: m.MatchedIndexes,
		}
	}
	return results
}
