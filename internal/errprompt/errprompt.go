package errprompt

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
)

// Rule is the error prompt matcher's own rule type. A rule matches when
// Pattern matches the error message, or when Code equals the SQLSTATE of a
// wrapped PostgreSQL error. At least one of Pattern and Code must be set.
type Rule struct {
	Pattern string
	Code    string
	Message string
}

type compiledRule struct {
	pattern *regexp.Regexp
	code    string
	message string
}

// Matcher checks errors against rules and returns guidance prompts for agents.
type Matcher struct {
	rules []compiledRule
}

// DefaultRules cover the failures an agent can act on without reading the
// server log.
func DefaultRules() []Rule {
	return []Rule{
		{Code: "42501", Message: "The database role lacks privileges on this catalog object. Try a narrower schema_name or ask the user to grant access."},
		{Code: "57014", Message: "The catalog query timed out. Retry with a specific schema_name or table_name instead of 'all'."},
		{Code: "25006", Message: "The connection is read-only. Only introspection is supported."},
		{Pattern: `(?i)database not configured`, Message: "Ask the user to set SUPABASE_DB_HOST, SUPABASE_DB_USER and SUPABASE_DB_PASSWORD (run 'sbschemamcp configure') and restart the server."},
	}
}

// NewMatcher creates a new Matcher. Returns an error on invalid regex patterns.
func NewMatcher(rules []Rule) (*Matcher, error) {
	compiled := make([]compiledRule, len(rules))
	for i, r := range rules {
		if r.Pattern == "" && r.Code == "" {
			return nil, fmt.Errorf("errprompt: rule %d needs a pattern or a code", i)
		}
		var re *regexp.Regexp
		if r.Pattern != "" {
			var err error
			re, err = regexp.Compile(r.Pattern)
			if err != nil {
				return nil, fmt.Errorf("errprompt: invalid regex pattern %q: %v", r.Pattern, err)
			}
		}
		compiled[i] = compiledRule{pattern: re, code: r.Code, message: r.Message}
	}
	return &Matcher{rules: compiled}, nil
}

// Match checks an error message against all pattern rules (top to bottom).
// Returns all matching prompt messages joined with newline separators.
// Returns empty string if no match.
func (m *Matcher) Match(errMsg string) string {
	return m.match(errMsg, "")
}

// MatchError is Match plus SQLSTATE matching on a wrapped *pgconn.PgError.
func (m *Matcher) MatchError(err error) string {
	if err == nil {
		return ""
	}
	code := ""
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		code = pgErr.Code
	}
	return m.match(err.Error(), code)
}

func (m *Matcher) match(errMsg, code string) string {
	var matches []string
	for _, rule := range m.rules {
		if rule.code != "" && rule.code == code {
			matches = append(matches, rule.message)
			continue
		}
		if rule.pattern != nil && rule.pattern.MatchString(errMsg) {
			matches = append(matches, rule.message)
		}
	}
	return strings.Join(matches, "\n")
}
