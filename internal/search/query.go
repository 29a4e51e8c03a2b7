package search

import (
	"context"
	"fmt"
	"strings"
	"unicode"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/search/query"

	"github.com/contactlyapp/contactly-server/internal/domain"
)

// DefaultCandidateLimit caps FindCandidates when the caller passes no limit.
const DefaultCandidateLimit = 50

// minFuzzyTokenLen keeps very short name tokens ("jo", "li") from fuzzy
// matching half the index.
const minFuzzyTokenLen = 3

// Candidate is a record the index considers a possible duplicate.
type Candidate struct {
	ID    string  `json:"id"`
	Score float64 `json:"score"` // Bleve relevance, not a dedupe score
}

// FindCandidates returns records of the same entity type sharing the
// probe's email or phone, or whose name tokens are within one edit of the
// probe's. The probe itself is never returned.
func (c *CandidateIndex) FindCandidates(ctx context.Context, entityType domain.EntityType, probe *domain.Record, limit int) ([]Candidate, error) {
	if limit <= 0 {
		limit = DefaultCandidateLimit
	}

	keys := buildKeyQuery(NewCandidateDocument(probe))
	if keys == nil {
		return []Candidate{}, nil
	}

	typeQuery := bleve.NewTermQuery(string(entityType))
	typeQuery.SetField("entity_type")

	q := bleve.NewConjunctionQuery(typeQuery, keys)
	if probe.ID != "" {
		self := bleve.NewDocIDQuery([]string{probe.ID})
		bq := bleve.NewBooleanQuery()
		bq.AddMust(q)
		bq.AddMustNot(self)
		return c.run(ctx, bq, limit)
	}
	return c.run(ctx, q, limit)
}

func (c *CandidateIndex) run(ctx context.Context, q query.Query, limit int) ([]Candidate, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	req := bleve.NewSearchRequestOptions(q, limit, 0, false)
	res, err := c.index.SearchInContext(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("execute candidate search: %w", err)
	}

	out := make([]Candidate, 0, len(res.Hits))
	for _, hit := range res.Hits {
		out = append(out, Candidate{ID: hit.ID, Score: hit.Score})
	}
	return out, nil
}

// buildKeyQuery ORs every usable key of the document. Returns nil when the
// document has none.
func buildKeyQuery(doc *CandidateDocument) query.Query {
	var keys []query.Query

	if doc.Email != "" {
		tq := bleve.NewTermQuery(doc.Email)
		tq.SetField("email")
		tq.SetBoost(3.0)
		keys = append(keys, tq)
	}
	if doc.Phone != "" {
		tq := bleve.NewTermQuery(doc.Phone)
		tq.SetField("phone")
		tq.SetBoost(2.0)
		keys = append(keys, tq)
	}
	for _, token := range nameTokens(doc.Name) {
		if len([]rune(token)) < minFuzzyTokenLen {
			continue
		}
		fq := bleve.NewFuzzyQuery(token)
		fq.SetField("name")
		fq.SetFuzziness(1)
		keys = append(keys, fq)
	}

	if len(keys) == 0 {
		return nil
	}
	return bleve.NewDisjunctionQuery(keys...)
}

// nameTokens splits the way the simple analyzer does: lowercase runs of letters.
func nameTokens(name string) []string {
	return strings.FieldsFunc(strings.ToLower(name), func(r rune) bool {
		return !unicode.IsLetter(r)
	})
}
