package pickcolor

import (
	"regexp"
	"strings"
)

const (
	// colorComponent is a signed decimal number with an optional unit.
	colorComponent = `[+-]?(?:\d+(?:\.\d*)?|\.\d+)(?:%|deg|grad|rad|turn)?`
	// colorSeparator separates functional components: commas, slashes or plain whitespace.
	colorSeparator = `(?:\s*[,/]\s*|\s+)`

	hexColor        = `#(?:[0-9a-fA-F]{8}|[0-9a-fA-F]{6}|[0-9a-fA-F]{3,4})\b`
	functionalColor = `(?:rgba?|hsla?)\(\s*` + colorComponent +
		`(?:` + colorSeparator + colorComponent + `){2,3}\s*\)`
)

var (
	// ColorPattern matches a single color literal: #RGB, #RGBA, #RRGGBB, #RRGGBBAA, or
	// rgb()/rgba()/hsl()/hsla() with three components and an optional alpha.
	ColorPattern = regexp.MustCompile(hexColor + `|` + functionalColor)

	wholeColorPattern = regexp.MustCompile(`^(?:` + hexColor + `|` + functionalColor + `)$`)
)

// IsColor reports whether s, as a whole, is one color literal.
func IsColor(s string) bool {
	return wholeColorPattern.MatchString(s)
}

// WordRangeAt returns the range of the color literal under offset in text. Matching is done
// per line; the first literal on the cursor's line whose span contains offset wins.
func WordRangeAt(text string, offset int) (Range, bool) {
	if offset < 0 || offset > len(text) {
		return Range{}, false
	}

	lineStart := strings.LastIndexByte(text[:offset], '\n') + 1
	lineEnd := len(text)
	if i := strings.IndexByte(text[offset:], '\n'); i >= 0 {
		lineEnd = offset + i
	}

	for _, loc := range ColorPattern.FindAllStringIndex(text[lineStart:lineEnd], -1) {
		r := Range{Start: lineStart + loc[0], End: lineStart + loc[1]}
		if r.Contains(offset) {
			return r, true
		}
		if r.Start > offset {
			break
		}
	}
	return Range{}, false
}

// FindColors returns the ranges of every color literal in text, in document order. Like
// WordRangeAt, literals never span lines.
func FindColors(text string) []Range {
	var ranges []Range
	lineStart := 0
	for lineStart <= len(text) {
		lineEnd := len(text)
		if i := strings.IndexByte(text[lineStart:], '\n'); i >= 0 {
			lineEnd = lineStart + i
		}
		for _, loc := range ColorPattern.FindAllStringIndex(text[lineStart:lineEnd], -1) {
			ranges = append(ranges, Range{Start: lineStart + loc[0], End: lineStart + loc[1]})
		}
		lineStart = lineEnd + 1
	}
	return ranges
}
