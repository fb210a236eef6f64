package categorize

import (
	"math"
	"sort"
	"strings"
	"unicode/utf8"

	"gonum.org/v1/gonum/floats"
)

// vectorizer holds a fitted TF-IDF vocabulary.
type vectorizer struct {
	vocab []string
	index map[string]int
	idf   []float64
	stop  map[string]struct{}
}

// tokenize splits normalized text into terms of at least two runes, skipping stop words.
func tokenize(doc string, stop map[string]struct{}) []string {
	fields := strings.Fields(doc)
	out := fields[:0]
	for _, tok := range fields {
		if utf8.RuneCountInString(tok) < 2 {
			continue
		}
		if _, skip := stop[tok]; skip {
			continue
		}
		out = append(out, tok)
	}
	return out
}

// fitVectorizer keeps terms found in at least minDF documents. The vocabulary
// is sorted so that column order does not depend on map iteration.
// IDF is smoothed: ln((1+n)/(1+df)) + 1.
func fitVectorizer(docs []string, minDF int, stop map[string]struct{}) *vectorizer {
	df := map[string]int{}
	for _, doc := range docs {
		seen := map[string]struct{}{}
		for _, tok := range tokenize(doc, stop) {
			if _, ok := seen[tok]; ok {
				continue
			}
			seen[tok] = struct{}{}
			df[tok]++
		}
	}

	vocab := make([]string, 0, len(df))
	for term, count := range df {
		if count >= minDF {
			vocab = append(vocab, term)
		}
	}
	sort.Strings(vocab)

	v := &vectorizer{
		vocab: vocab,
		index: make(map[string]int, len(vocab)),
		idf:   make([]float64, len(vocab)),
		stop:  stop,
	}
	n := float64(len(docs))
	for i, term := range vocab {
		v.index[term] = i
		v.idf[i] = math.Log((1+n)/(1+float64(df[term]))) + 1
	}
	return v
}

// transform returns the L2 normalized TF-IDF row of doc. Documents without
// vocabulary terms map to the zero vector.
func (v *vectorizer) transform(doc string) []float64 {
	row := make([]float64, len(v.vocab))
	for _, tok := range tokenize(doc, v.stop) {
		if i, ok := v.index[tok]; ok {
			row[i]++
		}
	}
	floats.Mul(row, v.idf)
	if norm := floats.Norm(row, 2); norm > 0 {
		floats.Scale(1/norm, row)
	}
	return row
}

func (v *vectorizer) transformAll(docs []string) [][]float64 {
	out := make([][]float64, len(docs))
	for i, doc := range docs {
		out[i] = v.transform(doc)
	}
	return out
}
