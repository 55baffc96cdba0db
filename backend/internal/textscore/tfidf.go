// Package textscore ranks short documents against a query with TF-IDF
// weighted cosine similarity. It is a pure function of its inputs.
package textscore

import (
	"math"
	"sort"
	"strings"
	"unicode"
)

// Document is one entry of the corpus being scored
type Document struct {
	ID   string
	Text string
}

// Result is a scored document
type Result struct {
	ID    string
	Score float64
}

var defaultStopWords = []string{
	"a", "an", "and", "are", "as", "at", "be", "by", "for", "from", "has", "in",
	"is", "it", "its", "of", "on", "or", "that", "the", "to", "was", "we", "with",
	"our", "you", "your", "this", "i", "my", "me",
}

// Scorer holds tokenizer settings. The zero value is not usable; call NewScorer.
type Scorer struct {
	stopWords   map[string]struct{}
	minTokenLen int
}

// NewScorer creates a scorer with an English stop word list
func NewScorer() *Scorer {
	stop := make(map[string]struct{}, len(defaultStopWords))
	for _, w := range defaultStopWords {
		stop[w] = struct{}{}
	}
	return &Scorer{stopWords: stop, minTokenLen: 2}
}

// Tokenize lowercases text and splits it on anything that is not a letter or digit
func (s *Scorer) Tokenize(text string) []string {
	fields := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	tokens := fields[:0]
	for _, f := range fields {
		if len([]rune(f)) < s.minTokenLen {
			continue
		}
		if _, stop := s.stopWords[f]; stop {
			continue
		}
		tokens = append(tokens, f)
	}
	return tokens
}

// Rank scores every corpus document against query and returns the top limit
// results with a positive score, ordered by score descending then ID ascending.
// A non-positive limit returns every positive result.
func (s *Scorer) Rank(query string, corpus []Document, limit int) []Result {
	queryTerms := termFrequencies(s.Tokenize(query))
	if len(queryTerms) == 0 || len(corpus) == 0 {
		return nil
	}

	docTerms := make([]map[string]float64, len(corpus))
	docFreq := make(map[string]int)
	for i, doc := range corpus {
		tf := termFrequencies(s.Tokenize(doc.Text))
		docTerms[i] = tf
		for term := range tf {
			docFreq[term]++
		}
	}

	idf := func(term string) float64 {
		// smoothed so terms present in every document keep a small weight
		return math.Log(float64(1+len(corpus))/float64(1+docFreq[term])) + 1
	}

	queryVec := make(map[string]float64, len(queryTerms))
	var queryNorm float64
	for term, tf := range queryTerms {
		w := tf * idf(term)
		queryVec[term] = w
		queryNorm += w * w
	}
	queryNorm = math.Sqrt(queryNorm)

	results := make([]Result, 0, len(corpus))
	for i, doc := range corpus {
		var dot, docNorm float64
		for term, tf := range docTerms[i] {
			w := tf * idf(term)
			docNorm += w * w
			if qw, ok := queryVec[term]; ok {
				dot += qw * w
			}
		}
		if dot == 0 || docNorm == 0 {
			continue
		}
		results = append(results, Result{
			ID:    doc.ID,
			Score: dot / (queryNorm * math.Sqrt(docNorm)),
		})
	}

	sort.Slice(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return results[i].ID < results[j].ID
	})

	if limit > 0 && len(results) > limit {
		results = results[:limit]
	}
	return results
}

func termFrequencies(tokens []string) map[string]float64 {
	if len(tokens) == 0 {
		return nil
	}
	counts := make(map[string]float64, len(tokens))
	for _, t := range tokens {
		counts[t]++
	}
	total := float64(len(tokens))
	for t, c := range counts {
		counts[t] = c / total
	}
	return counts
}
