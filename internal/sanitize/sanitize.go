package sanitize

import (
	"fmt"
	"regexp"
)

// Rule is the sanitizer's own rule type. Columns limits the rule to the named
// fields; empty means every sanitized field.
type Rule struct {
	Pattern     string
	Replacement string
	Columns     []string
}

type compiledRule struct {
	pattern     *regexp.Regexp
	replacement string
	columns     map[string]bool
}

func (r compiledRule) appliesTo(column string) bool {
	return len(r.columns) == 0 || r.columns[column]
}

// Sanitizer applies regex-based redaction to text values of catalog rows,
// e.g. secrets embedded in function bodies or policy expressions.
type Sanitizer struct {
	rules []compiledRule
}

// NewSanitizer creates a new Sanitizer. Returns an error on invalid regex patterns.
func NewSanitizer(rules []Rule) (*Sanitizer, error) {
	compiled := make([]compiledRule, len(rules))
	for i, r := range rules {
		re, err := regexp.Compile(r.Pattern)
		if err != nil {
			return nil, fmt.Errorf("sanitize: invalid regex pattern %q: %v", r.Pattern, err)
		}
		var cols map[string]bool
		if len(r.Columns) > 0 {
			cols = make(map[string]bool, len(r.Columns))
			for _, c := range r.Columns {
				cols[c] = true
			}
		}
		compiled[i] = compiledRule{pattern: re, replacement: r.Replacement, columns: cols}
	}
	return &Sanitizer{rules: compiled}, nil
}

// HasRules returns true if the sanitizer has any rules configured.
func (s *Sanitizer) HasRules() bool {
	return len(s.rules) > 0
}

// SanitizeRows applies sanitization in place to rows and returns rows. fields
// maps a row key to the field name rules are matched against; keys missing
// from fields are never touched. Array values ([]any, []string) are sanitized
// element-wise.
func (s *Sanitizer) SanitizeRows(rows []map[string]any, fields map[string]string) []map[string]any {
	if !s.HasRules() || len(fields) == 0 {
		return rows
	}
	for _, row := range rows {
		for key, field := range fields {
			if v, ok := row[key]; ok {
				row[key] = s.sanitizeValue(field, v)
			}
		}
	}
	return rows
}

// SanitizeString applies the rules that cover column to a single value.
func (s *Sanitizer) SanitizeString(column, value string) string {
	for _, rule := range s.rules {
		if rule.appliesTo(column) {
			value = rule.pattern.ReplaceAllString(value, rule.replacement)
		}
	}
	return value
}

func (s *Sanitizer) sanitizeValue(column string, v any) any {
	switch val := v.(type) {
	case string:
		return s.SanitizeString(column, val)
	case []any:
		for i, item := range val {
			val[i] = s.sanitizeValue(column, item)
		}
		return val
	case []string:
		for i, item := range val {
			val[i] = s.SanitizeString(column, item)
		}
		return val
	default:
		// bool, int64, nil
		return v
	}
}
