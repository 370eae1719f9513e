// Package osm moves schedules between the structured representation in
// internal/schedule and the terse opening_hours textual grammar used by the
// open geodata ecosystem.
//
// The package supports a deliberate subset of the grammar: weekday ranges
// and lists with optional occurrence brackets, PH/SH modifiers, explicit
// dates and date ranges, time-range bodies and the off/closed sentinel.
// Anything outside the subset is rejected with a MalformedOsmError rather
// than best-effort parsed.
package osm

import (
	"strings"
	"time"
)

// tokenKind discriminates lexer output.
type tokenKind int

const (
	tokenWord tokenKind = iota
	tokenNumber
	tokenColon
	tokenDash
	tokenComma
	tokenLBracket
	tokenRBracket
	tokenEOF
)

func (k tokenKind) String() string {
	switch k {
	case tokenWord:
		return "word"
	case tokenNumber:
		return "number"
	case tokenColon:
		return "':'"
	case tokenDash:
		return "'-'"
	case tokenComma:
		return "','"
	case tokenLBracket:
		return "'['"
	case tokenRBracket:
		return "']'"
	case tokenEOF:
		return "end of rule"
	}
	return "?"
}

// token is one lexeme of a rule, with its offset into the full input.
type token struct {
	kind tokenKind
	text string
	off  int
}

// lex splits a single rule into typed tokens. base is the rule's offset
// within the full opening_hours string, so token offsets stay absolute.
func lex(rule string, base int) ([]token, *MalformedOsmError) {
	var toks []token
	i := 0
	for i < len(rule) {
		c := rule[i]
		switch {
		case c == ' ' || c == '\t':
			i++
		case c == ':':
			toks = append(toks, token{tokenColon, ":", base + i})
			i++
		case c == '-':
			toks = append(toks, token{tokenDash, "-", base + i})
			i++
		case c == ',':
			toks = append(toks, token{tokenComma, ",", base + i})
			i++
		case c == '[':
			toks = append(toks, token{tokenLBracket, "[", base + i})
			i++
		case c == ']':
			toks = append(toks, token{tokenRBracket, "]", base + i})
			i++
		case c >= '0' && c <= '9':
			j := i
			for j < len(rule) && rule[j] >= '0' && rule[j] <= '9' {
				j++
			}
			toks = append(toks, token{tokenNumber, rule[i:j], base + i})
			i = j
		case isLetter(c):
			j := i
			for j < len(rule) && isLetter(rule[j]) {
				j++
			}
			toks = append(toks, token{tokenWord, rule[i:j], base + i})
			i = j
		default:
			return nil, malformedf(rule, base+i, "unexpected character %q", string(c))
		}
	}
	toks = append(toks, token{tokenEOF, "", base + len(rule)})
	return toks, nil
}

func isLetter(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

// monthAbbrevs maps grammar month tokens to calendar months.
var monthAbbrevs = map[string]time.Month{
	"Jan": time.January, "Feb": time.February, "Mar": time.March,
	"Apr": time.April, "May": time.May, "Jun": time.June,
	"Jul": time.July, "Aug": time.August, "Sep": time.September,
	"Oct": time.October, "Nov": time.November, "Dec": time.December,
}

func monthAbbrev(m time.Month) string {
	return m.String()[:3]
}

// isModifierWord reports whether the word is a supported condition modifier.
func isModifierWord(w string) bool {
	return w == "PH" || w == "SH"
}

// isClosedWord reports whether the word is the closed body sentinel.
func isClosedWord(w string) bool {
	lw := strings.ToLower(w)
	return lw == "off" || lw == "closed"
}
