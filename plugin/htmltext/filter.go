package htmltext

import (
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

// DefaultKeywords match the heading vocabulary French public facilities use
// for opening hours.
var DefaultKeywords = []string{
	"horaire",
	"ouverture",
	"ouvert",
	"fermeture",
	"ferme",
	"accueil",
	"permanence",
	"acces",
	"contact",
}

// FilterResult is the outcome of section filtering.
type FilterResult struct {
	Text string
	// Matched reports whether any heading matched; when false, Text is the
	// whole document and the caller may want to cap its size.
	Matched bool
}

// Filter keeps the Markdown sections whose heading mentions one of the
// keywords. A section runs from its heading to the next heading of the same
// or a higher level. With no matching heading the full document is returned,
// flagged unmatched.
func Filter(markdown string, keywords []string) FilterResult {
	if len(keywords) == 0 {
		keywords = DefaultKeywords
	}
	source := []byte(markdown)
	doc := goldmark.New().Parser().Parse(text.NewReader(source))

	type section struct {
		level      int
		start, end int
		matched    bool
	}
	var sections []section

	for n := doc.FirstChild(); n != nil; n = n.NextSibling() {
		h, ok := n.(*ast.Heading)
		if !ok || h.Lines().Len() == 0 {
			continue
		}
		start := lineStart(source, h.Lines().At(0).Start)
		for i := range sections {
			if sections[i].end == 0 && sections[i].level >= h.Level {
				sections[i].end = start
			}
		}
		sections = append(sections, section{
			level:   h.Level,
			start:   start,
			matched: headingMatches(string(h.Text(source)), keywords),
		})
	}

	if len(sections) == 0 {
		return FilterResult{Text: markdown}
	}

	var kept []string
	lastEnd := 0
	for i := range sections {
		if sections[i].end == 0 {
			sections[i].end = len(source)
		}
		// A matched subsection inside an already-kept section is covered.
		if sections[i].matched && sections[i].start >= lastEnd {
			kept = append(kept, strings.TrimSpace(string(source[sections[i].start:sections[i].end])))
			lastEnd = sections[i].end
		}
	}
	if len(kept) == 0 {
		return FilterResult{Text: markdown}
	}
	return FilterResult{Text: strings.Join(kept, "\n\n"), Matched: true}
}

// lineStart backs off to the beginning of the line holding off, so a kept
// section includes its heading marker.
func lineStart(source []byte, off int) int {
	for off > 0 && source[off-1] != '\n' {
		off--
	}
	return off
}

func headingMatches(heading string, keywords []string) bool {
	folded := foldAccents(strings.ToLower(heading))
	for _, kw := range keywords {
		if strings.Contains(folded, kw) {
			return true
		}
	}
	return false
}

var accentFolder = strings.NewReplacer(
	"é", "e", "è", "e", "ê", "e", "ë", "e",
	"à", "a", "â", "a", "î", "i", "ï", "i",
	"ô", "o", "ö", "o", "ù", "u", "û", "u", "ü", "u",
	"ç", "c",
)

func foldAccents(s string) string {
	return accentFolder.Replace(s)
}
