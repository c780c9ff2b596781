package keyword

import (
	"regexp"
	"strings"

	bleveregexp "github.com/blevesearch/bleve/v2/analysis/tokenizer/regexp"
	"github.com/hyperjump/docstore/internal/models"
)

// DefaultPattern matches runs of two or more word characters. It is the RE2
// spelling of the Unicode-aware `(?u)\b\w\w+\b`.
const DefaultPattern = `[\p{L}\p{M}\p{N}_]{2,}`

// wordClass is the Unicode word character set; RE2's \w is ASCII only.
const wordClass = `\p{L}\p{M}\p{N}_`

// wordRunPatterns spell "a maximal run of two or more word characters".
var wordRunPatterns = map[string]bool{
	`\b\w\w+\b`:  true,
	`\w\w+`:      true,
	`\w{2,}`:     true,
	`\b\w{2,}\b`: true,
}

// Tokenizer splits normalized text into terms with a regular expression.
// It is safe for concurrent use.
type Tokenizer struct {
	pattern string
	re      *bleveregexp.RegexpTokenizer
}

// NewTokenizer compiles pattern into a Tokenizer. An empty pattern selects
// DefaultPattern. Patterns follow Unicode word semantics: a leading (?u) flag
// is accepted, the word-run spellings of the default map to DefaultPattern,
// and \w or \W elsewhere expand to the Unicode word class. \b keeps RE2's
// ASCII meaning.
func NewTokenizer(pattern string) (*Tokenizer, error) {
	pattern = strings.TrimPrefix(pattern, "(?u)")
	if pattern == "" || wordRunPatterns[pattern] {
		pattern = DefaultPattern
	} else {
		pattern = unicodeWords(pattern)
	}
	compiled, err := regexp.Compile(pattern)
	if err != nil {
		return nil, models.InvalidInputf("tokenization pattern %q: %v", pattern, err)
	}
	return &Tokenizer{pattern: pattern, re: bleveregexp.NewRegexpTokenizer(compiled)}, nil
}

// unicodeWords rewrites \w and \W to the Unicode word class. Inside a
// bracket expression \w expands in place; \W is left to RE2 there.
func unicodeWords(pattern string) string {
	var b strings.Builder
	inClass := false
	for i := 0; i < len(pattern); i++ {
		c := pattern[i]
		switch {
		case c == '\\' && i+1 < len(pattern):
			i++
			switch next := pattern[i]; {
			case next == 'w' && inClass:
				b.WriteString(wordClass)
			case next == 'w':
				b.WriteString("[" + wordClass + "]")
			case next == 'W' && !inClass:
				b.WriteString("[^" + wordClass + "]")
			default:
				b.WriteByte(c)
				b.WriteByte(next)
			}
		case c == '[' && !inClass:
			inClass = true
			b.WriteByte(c)
			// A leading ] or ^] is a literal member, not the end of the class.
			if i+1 < len(pattern) && pattern[i+1] == '^' {
				i++
				b.WriteByte('^')
			}
			if i+1 < len(pattern) && pattern[i+1] == ']' {
				i++
				b.WriteByte(']')
			}
		case c == ']' && inClass:
			inClass = false
			b.WriteByte(c)
		default:
			b.WriteByte(c)
		}
	}
	return b.String()
}

// Pattern returns the compiled pattern.
func (t *Tokenizer) Pattern() string { return t.pattern }

// Tokenize returns the terms of text in order of appearance.
func (t *Tokenizer) Tokenize(text string) []string {
	stream := t.re.Tokenize([]byte(text))
	terms := make([]string, 0, len(stream))
	for _, tok := range stream {
		terms = append(terms, string(tok.Term))
	}
	return terms
}
