package reranker

import (
	"context"
	"sort"
	"strings"
	"unicode"

	"docrag/internal/port"
)

// Lexical scores candidates by the fraction of query terms they
// contain. It needs no model or network and keeps reranking
// deterministic.
type Lexical struct{}

func NewLexical() Lexical {
	return Lexical{}
}

// Rerank orders documents by query-term overlap, descending. Equal
// scores keep the original candidate order. A query with no usable
// terms returns the candidates in their incoming order.
func (Lexical) Rerank(_ context.Context, query string, documents []string) ([]port.RerankedResult, error) {
	queryTerms := tokenize(query)

	results := make([]port.RerankedResult, len(documents))
	if len(queryTerms) == 0 {
		for i := range documents {
			results[i] = port.RerankedResult{Index: i, Score: 1.0 - float64(i)*0.01}
		}
		return results, nil
	}

	for i, doc := range documents {
		results[i] = port.RerankedResult{
			Index: i,
			Score: termOverlap(queryTerms, doc),
		}
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})

	return results, nil
}

func (Lexical) ModelName() string {
	return "lexical-overlap"
}

// tokenize splits text into lowercase word terms of at least two runes.
func tokenize(text string) map[string]struct{} {
	terms := make(map[string]struct{})
	words := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	for _, w := range words {
		if len(w) >= 2 {
			terms[w] = struct{}{}
		}
	}
	return terms
}

// termOverlap returns the fraction of query terms present in doc.
func termOverlap(queryTerms map[string]struct{}, doc string) float64 {
	docTerms := tokenize(doc)
	if len(docTerms) == 0 {
		return 0
	}

	matches := 0
	for term := range queryTerms {
		if _, ok := docTerms[term]; ok {
			matches++
		}
	}

	return float64(matches) / float64(len(queryTerms))
}
