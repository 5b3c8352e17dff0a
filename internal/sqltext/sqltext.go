// Package sqltext holds the text-level transformations applied to model output
// before it is executed: fence extraction, semicolon stripping and the default
// row limit.
package sqltext

import (
	"fmt"
	"regexp"
	"strings"
)

var (
	// Fenced block, optionally tagged sql, spanning lines
	fencedBlockRe = regexp.MustCompile("(?is)```(?:sql)?\\s*\\n(.*?)\\n```")
	limitRe       = regexp.MustCompile(`(?i)\bLIMIT\b`)
)

// ExtractSQL returns the trimmed interior of the first fenced code block in
// text, or the trimmed text when no block is present.
func ExtractSQL(text string) string {
	if m := fencedBlockRe.FindStringSubmatch(text); m != nil {
		return strings.TrimSpace(m[1])
	}
	return strings.TrimSpace(text)
}

// StripTrailingSemicolon removes trailing semicolons and surrounding whitespace
func StripTrailingSemicolon(sql string) string {
	return strings.TrimSpace(strings.TrimRight(strings.TrimSpace(sql), ";"))
}

// HasLimit reports whether sql mentions the LIMIT keyword anywhere. This is a
// text search, not a parse: a LIMIT inside a subquery counts.
func HasLimit(sql string) bool {
	return limitRe.MatchString(sql)
}

// EnsureLimit appends "LIMIT maxRows" when sql has no LIMIT keyword
func EnsureLimit(sql string, maxRows int) string {
	if HasLimit(sql) {
		return sql
	}
	return fmt.Sprintf("%s LIMIT %d", sql, maxRows)
}
