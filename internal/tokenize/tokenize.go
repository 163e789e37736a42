// Package tokenize splits a command line into an argument vector.
//
// Whitespace separates tokens. A span enclosed in a matched pair of double
// or single quotes is a single token with the quotes removed, so either quote
// character can appear inside a span delimited by the other one:
//
//	this 'is "an example"' of mixing quotes
//
// becomes [this, is "an example", of, mixing, quotes]. There is no backslash
// escaping and no variable or glob expansion. A quote without a matching
// partner is not a delimiter and is dropped.
package tokenize

import (
	"regexp"
	"strings"
)

var tokenRx = regexp.MustCompile(`[^\s"']+|"([^"]*)"|'([^']*)'`)

// Tokenize returns the tokens of input in order. Empty or blank input
// returns an empty slice.
func Tokenize(input string) []string {
	matches := tokenRx.FindAllStringSubmatchIndex(input, -1)
	tokens := make([]string, 0, len(matches))
	for _, m := range matches {
		switch {
		case m[2] >= 0:
			tokens = append(tokens, input[m[2]:m[3]])
		case m[4] >= 0:
			tokens = append(tokens, input[m[4]:m[5]])
		default:
			tokens = append(tokens, input[m[0]:m[1]])
		}
	}
	return tokens
}

// Join is the inverse of Tokenize for tokens without whitespace or quote
// characters. Tokens containing whitespace are wrapped in double quotes, or
// in single quotes when they already contain a double quote. A token holding
// both quote characters and whitespace has no representation.
func Join(tokens []string) string {
	quoted := make([]string, len(tokens))
	for i, tok := range tokens {
		switch {
		case tok == "":
			quoted[i] = `""`
		case !strings.ContainsAny(tok, " \t\n\v\f\r\"'"):
			quoted[i] = tok
		case !strings.Contains(tok, `"`):
			quoted[i] = `"` + tok + `"`
		default:
			quoted[i] = "'" + tok + "'"
		}
	}
	return strings.Join(quoted, " ")
}
