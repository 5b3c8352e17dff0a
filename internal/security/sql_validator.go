package security

import (
	"regexp"
	"strings"
)

var (
	selectPrefixRe = regexp.MustCompile(`(?i)^\s*SELECT\b`)

	// Mutations, DDL, privilege changes and procedure calls. Matched as whole
	// words anywhere, including inside subqueries and CTEs.
	forbiddenKeywordRe = regexp.MustCompile(
		`(?i)\b(INSERT|UPDATE|DELETE|DROP|ALTER|TRUNCATE|CREATE|GRANT|REVOKE|MERGE|EXEC|CALL|EXECUTE)\b`,
	)
)

// SQLValidator is a lexical gate: it accepts only a single SELECT statement
// without forbidden keywords. It does not prove a query is cheap or harmless
// to read.
type SQLValidator struct{}

func NewSQLValidator() *SQLValidator {
	return &SQLValidator{}
}

// Validate returns the reason sql is rejected, or empty string if it passes
func (v *SQLValidator) Validate(sql string) string {
	if !selectPrefixRe.MatchString(sql) {
		return "only SELECT queries are allowed"
	}

	if kw := forbiddenKeywordRe.FindString(sql); kw != "" {
		return "forbidden keyword: " + strings.ToUpper(kw)
	}

	body := strings.TrimSpace(sql)
	body = strings.TrimSpace(strings.TrimSuffix(body, ";"))
	if strings.Contains(body, ";") {
		return "multiple statements are not allowed"
	}

	return ""
}

// IsSafe reports whether sql passes every validation rule
func (v *SQLValidator) IsSafe(sql string) bool {
	return v.Validate(sql) == ""
}

// IsSafe runs the default validator
func IsSafe(sql string) bool {
	return NewSQLValidator().IsSafe(sql)
}
