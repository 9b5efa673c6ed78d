package engine

import (
	"errors"
	"math"
	"sort"
	"strings"
	"unicode"
)

// Vector space defaults: unigrams+bigrams, vocabulary capped at 500 terms,
// terms present in over 80% of documents dropped as uninformative.
const (
	maxVocabulary  = 500
	maxDocFreq     = 0.8
	minTokenLength = 2
)

var errNoDocuments = errors.New("no documents to fit")

// vectorSpace is a fitted term-weighting (tf-idf) model. It is immutable
// after fitting and safe for concurrent use.
type vectorSpace struct {
	vocab map[string]int // term -> vector index
	idf   []float64
}

// fitVectorSpace builds the vocabulary and inverse document frequencies
// from the corpus. Vocabulary selection keeps the highest-frequency terms,
// with an alphabetical tie-break so fitting is deterministic.
func fitVectorSpace(docs []string) (*vectorSpace, error) {
	if len(docs) == 0 {
		return nil, errNoDocuments
	}

	docFreq := make(map[string]int)
	termFreq := make(map[string]int)
	for _, doc := range docs {
		counts := termCounts(doc)
		for term, count := range counts {
			docFreq[term]++
			termFreq[term] += count
		}
	}

	dfCeiling := int(maxDocFreq * float64(len(docs)))
	if dfCeiling < 1 {
		dfCeiling = 1
	}

	type termStat struct {
		term string
		freq int
	}
	kept := make([]termStat, 0, len(termFreq))
	for term, freq := range termFreq {
		if docFreq[term] > dfCeiling {
			continue
		}
		kept = append(kept, termStat{term, freq})
	}
	sort.Slice(kept, func(i, j int) bool {
		if kept[i].freq != kept[j].freq {
			return kept[i].freq > kept[j].freq
		}
		return kept[i].term < kept[j].term
	})
	if len(kept) > maxVocabulary {
		kept = kept[:maxVocabulary]
	}

	vs := &vectorSpace{
		vocab: make(map[string]int, len(kept)),
		idf:   make([]float64, len(kept)),
	}
	// Index terms alphabetically for a stable layout.
	sort.Slice(kept, func(i, j int) bool { return kept[i].term < kept[j].term })
	n := float64(len(docs))
	for i, stat := range kept {
		vs.vocab[stat.term] = i
		// Smoothed idf keeps weights finite for terms in every document.
		vs.idf[i] = math.Log((1+n)/(1+float64(docFreq[stat.term]))) + 1
	}
	return vs, nil
}

// Vectorize maps a document to a fixed-length, L2-normalized tf-idf vector.
// Terms outside the fitted vocabulary are ignored.
func (vs *vectorSpace) Vectorize(doc string) []float64 {
	vec := make([]float64, len(vs.idf))
	for term, count := range termCounts(doc) {
		if idx, ok := vs.vocab[term]; ok {
			vec[idx] = float64(count) * vs.idf[idx]
		}
	}
	normalize(vec)
	return vec
}

// Size returns the fitted vocabulary size.
func (vs *vectorSpace) Size() int {
	return len(vs.vocab)
}

// cosine computes the similarity of two L2-normalized vectors.
func cosine(a, b []float64) float64 {
	var dot float64
	for i := range a {
		dot += a[i] * b[i]
	}
	return dot
}

func normalize(vec []float64) {
	var sum float64
	for _, v := range vec {
		sum += v * v
	}
	if sum == 0 {
		return
	}
	norm := math.Sqrt(sum)
	for i := range vec {
		vec[i] /= norm
	}
}

// termCounts tokenizes a document and counts unigrams and bigrams, with
// stop words removed before bigram formation.
func termCounts(doc string) map[string]int {
	tokens := tokenize(doc)
	counts := make(map[string]int, len(tokens)*2)
	for i, tok := range tokens {
		counts[tok]++
		if i > 0 {
			counts[tokens[i-1]+" "+tok]++
		}
	}
	return counts
}

func tokenize(doc string) []string {
	var tokens []string
	var current strings.Builder
	flush := func() {
		if current.Len() >= minTokenLength {
			tok := current.String()
			if !stopWords[tok] {
				tokens = append(tokens, tok)
			}
		}
		current.Reset()
	}
	for _, r := range strings.ToLower(doc) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			current.WriteRune(r)
		} else {
			flush()
		}
	}
	flush()
	return tokens
}

// stopWords is a compact English stop-word list covering the terms that
// appear in generated topic descriptions.
var stopWords = map[string]bool{
	"a": true, "about": true, "above": true, "after": true, "again": true,
	"all": true, "an": true, "and": true, "any": true, "are": true,
	"as": true, "at": true, "be": true, "because": true, "been": true,
	"before": true, "being": true, "below": true, "between": true,
	"both": true, "but": true, "by": true, "can": true, "could": true,
	"did": true, "do": true, "does": true, "down": true, "during": true,
	"each": true, "few": true, "for": true, "from": true, "further": true,
	"had": true, "has": true, "have": true, "he": true, "her": true,
	"here": true, "him": true, "his": true, "how": true, "if": true,
	"in": true, "into": true, "is": true, "it": true, "its": true,
	"just": true, "more": true, "most": true, "no": true, "not": true,
	"of": true, "off": true, "on": true, "once": true, "only": true,
	"or": true, "other": true, "our": true, "out": true, "over": true,
	"own": true, "same": true, "she": true, "should": true, "so": true,
	"some": true, "such": true, "than": true, "that": true, "the": true,
	"their": true, "them": true, "then": true, "there": true, "these": true,
	"they": true, "this": true, "those": true, "through": true, "to": true,
	"too": true, "under": true, "until": true, "up": true, "very": true,
	"was": true, "we": true, "were": true, "what": true, "when": true,
	"where": true, "which": true, "while": true, "who": true, "why": true,
	"will": true, "with": true, "would": true, "you": true, "your": true,
}
