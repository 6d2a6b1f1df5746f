package corpus

import (
	"strings"
	"unicode"
)

// CharDelimiter splits a line into one symbol per character.
const CharDelimiter = "char"

// Tokenizer splits one line of text into symbols.
type Tokenizer struct {
	delimiter string
	lowercase bool
}

// NewTokenizer creates a Tokenizer. An empty delimiter splits on runs of
// whitespace; CharDelimiter splits into characters.
func NewTokenizer(delimiter string, lowercase bool) *Tokenizer {
	return &Tokenizer{
		delimiter: delimiter,
		lowercase: lowercase,
	}
}

// Tokenize returns the symbols of line. Empty symbols are dropped.
func (t *Tokenizer) Tokenize(line string) []string {
	if t.lowercase {
		line = strings.ToLower(line)
	}

	var parts []string
	switch t.delimiter {
	case "":
		parts = strings.FieldsFunc(line, unicode.IsSpace)
	case CharDelimiter:
		for _, r := range line {
			if !unicode.IsSpace(r) {
				parts = append(parts, string(r))
			}
		}
	default:
		parts = strings.Split(line, t.delimiter)
	}

	symbols := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		symbols = append(symbols, p)
	}
	return symbols
}
