// Package keyword provides the lexical side of retrieval: content
// normalization, regex tokenization and BM25 scorer variants.
package keyword

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/hyperjump/docstore/internal/models"
)

// Algorithm names a BM25 variant.
type Algorithm string

const (
	// AlgorithmOkapi is classic BM25 with an epsilon floor for negative idf.
	AlgorithmOkapi Algorithm = "BM25Okapi"
	// AlgorithmL is BM25L, which shifts term frequency to avoid over-penalizing long documents.
	AlgorithmL Algorithm = "BM25L"
	// AlgorithmPlus is BM25+, which lower-bounds each matching term's contribution.
	AlgorithmPlus Algorithm = "BM25Plus"
)

// Algorithms lists the supported variants.
var Algorithms = []Algorithm{AlgorithmOkapi, AlgorithmL, AlgorithmPlus}

// ParseAlgorithm resolves a variant name case-insensitively. The empty name
// selects AlgorithmOkapi.
func ParseAlgorithm(name string) (Algorithm, error) {
	if name == "" {
		return AlgorithmOkapi, nil
	}
	for _, a := range Algorithms {
		if strings.EqualFold(name, string(a)) {
			return a, nil
		}
	}
	return "", fmt.Errorf("%w: %q (supported: BM25Okapi, BM25L, BM25Plus)", models.ErrUnknownAlgorithm, name)
}

// Parameters holds algorithm-specific settings: k1, b, and epsilon (Okapi)
// or delta (L, Plus). Missing keys take the variant's defaults.
type Parameters map[string]float64

// Scorer scores a tokenized query against the corpus it was built from.
type Scorer interface {
	// Scores returns one score per corpus document, in corpus order.
	Scores(query []string) []float64
}

type settings struct {
	k1, b, epsilon, delta float64
}

func defaults(alg Algorithm) settings {
	switch alg {
	case AlgorithmL:
		return settings{k1: 1.5, b: 0.75, delta: 0.5}
	case AlgorithmPlus:
		return settings{k1: 1.5, b: 0.75, delta: 1}
	default:
		return settings{k1: 1.5, b: 0.75, epsilon: 0.25}
	}
}

// ValidateParameters checks params against alg without building a scorer.
func ValidateParameters(alg Algorithm, params Parameters) error {
	_, err := resolve(alg, params)
	return err
}

func resolve(alg Algorithm, params Parameters) (settings, error) {
	s := defaults(alg)
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		v := params[k]
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return s, models.InvalidInputf("%s parameter %s must be finite", alg, k)
		}
		switch {
		case k == "k1":
			if v < 0 {
				return s, models.InvalidInputf("%s parameter k1 must be non-negative, got %g", alg, v)
			}
			s.k1 = v
		case k == "b":
			if v < 0 || v > 1 {
				return s, models.InvalidInputf("%s parameter b must be within [0, 1], got %g", alg, v)
			}
			s.b = v
		case k == "epsilon" && alg == AlgorithmOkapi:
			s.epsilon = v
		case k == "delta" && (alg == AlgorithmL || alg == AlgorithmPlus):
			if v < 0 {
				return s, models.InvalidInputf("%s parameter delta must be non-negative, got %g", alg, v)
			}
			s.delta = v
		default:
			return s, models.InvalidInputf("%s does not accept parameter %q", alg, k)
		}
	}
	return s, nil
}

// NewScorer builds a scorer of the given variant over a tokenized corpus.
func NewScorer(alg Algorithm, corpus [][]string, params Parameters) (Scorer, error) {
	s, err := resolve(alg, params)
	if err != nil {
		return nil, err
	}
	c := newCorpus(corpus)
	switch alg {
	case AlgorithmOkapi:
		return newOkapi(c, s), nil
	case AlgorithmL:
		return newBM25L(c, s), nil
	case AlgorithmPlus:
		return newBM25Plus(c, s), nil
	default:
		return nil, fmt.Errorf("%w: %q", models.ErrUnknownAlgorithm, alg)
	}
}

// corpus holds the per-document term frequencies and collection statistics
// shared by every variant.
type corpus struct {
	size     int
	avgdl    float64
	docLens  []float64
	termFreq []map[string]int
	// docFreq counts the documents containing each term.
	docFreq map[string]int
}

func newCorpus(docs [][]string) *corpus {
	c := &corpus{
		size:     len(docs),
		docLens:  make([]float64, len(docs)),
		termFreq: make([]map[string]int, len(docs)),
		docFreq:  make(map[string]int),
	}
	total := 0
	for i, tokens := range docs {
		tf := make(map[string]int, len(tokens))
		for _, t := range tokens {
			tf[t]++
		}
		for t := range tf {
			c.docFreq[t]++
		}
		c.termFreq[i] = tf
		c.docLens[i] = float64(len(tokens))
		total += len(tokens)
	}
	if c.size > 0 {
		c.avgdl = float64(total) / float64(c.size)
	}
	return c
}

// lengthNorm is 1 - b + b*dl/avgdl; an all-empty corpus counts as average length.
func (c *corpus) lengthNorm(i int, b float64) float64 {
	ratio := 1.0
	if c.avgdl > 0 {
		ratio = c.docLens[i] / c.avgdl
	}
	return 1 - b + b*ratio
}

// sortedTerms returns the corpus vocabulary in a fixed order so float sums
// over it do not depend on map iteration.
func (c *corpus) sortedTerms() []string {
	terms := make([]string, 0, len(c.docFreq))
	for t := range c.docFreq {
		terms = append(terms, t)
	}
	sort.Strings(terms)
	return terms
}
