package search

import (
	"encoding/json"
	"strconv"
	"strings"
)

// Article is one fact-check entry.
type Article struct {
	ID          ArticleID `json:"id"`
	Title       string    `json:"title,omitempty"`
	Summary     string    `json:"summary,omitempty"`
	Description string    `json:"description,omitempty"`
	Content     string    `json:"content,omitempty"`
	URL         string    `json:"url,omitempty"`
	Source      string    `json:"source,omitempty"`
	PublishedAt string    `json:"published_at,omitempty"`
}

// ArticleID accepts string or integer identifiers and renders as a string.
type ArticleID string

// UnmarshalJSON implements json.Unmarshaler.
func (id *ArticleID) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*id = ArticleID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*id = ArticleID(n.String())
	return nil
}

// Result is an article with its similarity to the query.
type Result struct {
	Article
	SimilarityScore float64 `json:"similarity_score"`
}

// document joins the searchable fields, falling back to the identifier.
func (a Article) document(content string) string {
	var parts []string
	for _, part := range []string{a.Title, a.Summary, a.Description, content} {
		if part = strings.TrimSpace(part); part != "" {
			parts = append(parts, part)
		}
	}
	if len(parts) == 0 {
		return "Article " + strconv.Quote(string(a.ID))
	}
	return strings.Join(parts, " ")
}
