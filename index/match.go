package index

import (
	"fmt"
	"regexp"
	"strings"
)

// MatchPolicy decides whether a catalog index expression covers a field.
type MatchPolicy int

const (
	// MatchExact parses the expression into its indexed field terms and
	// compares names exactly.
	MatchExact MatchPolicy = iota
	// MatchSubstring reports a match whenever the field name occurs anywhere
	// in the expression text. An index on LicensePlateNumber therefore also
	// satisfies a request for Number.
	MatchSubstring
)

func (p MatchPolicy) String() string {
	if p == MatchSubstring {
		return "substring"
	}
	return "exact"
}

// ParseMatchPolicy accepts "exact" or "substring". Empty means exact.
func ParseMatchPolicy(s string) (MatchPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "exact":
		return MatchExact, nil
	case "substring":
		return MatchSubstring, nil
	}
	return MatchExact, fmt.Errorf("unknown match policy %q", s)
}

func (p MatchPolicy) matches(expr, field string) bool {
	if p == MatchSubstring {
		return strings.Contains(expr, field)
	}
	for _, term := range ExprTerms(expr) {
		if term == field {
			return true
		}
	}
	return false
}

// trailing clauses that follow the key column list in a DDL index definition
var trailer = regexp.MustCompile(`(?i)\s+(WHERE|INCLUDE|WITH|TABLESPACE)\b`)

// ExprTerms extracts the plain field names an index expression is built
// over. It understands the ledger form "[VIN]" as well as full DDL such as
// `CREATE INDEX i ON public."Person" USING btree ("GovId")`. Computed terms
// like lower(x) yield nothing, whether bare or inside the key list.
func ExprTerms(expr string) []string {
	s := strings.TrimSpace(expr)
	if s == "" {
		return nil
	}

	var inner string
	switch {
	case strings.HasPrefix(s, "[") && strings.HasSuffix(s, "]"):
		inner = s[1 : len(s)-1]
	default:
		if loc := trailer.FindStringIndex(s); loc != nil && strings.Contains(s[:loc[0]], "(") {
			s = strings.TrimSpace(s[:loc[0]])
		}
		if !strings.HasSuffix(s, ")") {
			if strings.Contains(s, "(") {
				return nil
			}
			inner = s
			break
		}
		open := matchingOpen(s, len(s)-1)
		if open < 0 {
			return nil
		}
		// outside DDL, text before the list makes the whole thing a call
		if !isDDL(s) && strings.TrimSpace(s[:open]) != "" {
			return nil
		}
		inner = s[open+1 : len(s)-1]
	}

	var terms []string
	for _, part := range splitTopLevel(inner) {
		if name, ok := leadingName(strings.TrimSpace(part)); ok {
			terms = append(terms, name)
		}
	}
	return terms
}

func isDDL(s string) bool {
	return len(s) >= 6 && strings.EqualFold(s[:6], "CREATE")
}

// matchingOpen walks back from the ')' at end to its '('.
func matchingOpen(s string, end int) int {
	depth := 0
	inQuote := false
	for i := end; i >= 0; i-- {
		switch c := s[i]; {
		case c == '"':
			inQuote = !inQuote
		case inQuote:
		case c == ')':
			depth++
		case c == '(':
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}

func splitTopLevel(s string) []string {
	var (
		parts   []string
		depth   int
		inQuote bool
		start   int
	)
	for i := 0; i < len(s); i++ {
		switch c := s[i]; {
		case c == '"':
			inQuote = !inQuote
		case inQuote:
		case c == '(':
			depth++
		case c == ')':
			depth--
		case c == ',' && depth == 0:
			parts = append(parts, s[start:i])
			start = i + 1
		}
	}
	return append(parts, s[start:])
}

// leadingName returns the column name a key term starts with, dropping
// ordering and operator-class suffixes. Quoted names are unquoted.
func leadingName(term string) (string, bool) {
	if term == "" {
		return "", false
	}
	switch term[0] {
	case '"', '`':
		q := term[0]
		var b strings.Builder
		for i := 1; i < len(term); i++ {
			if term[i] == q {
				if i+1 < len(term) && term[i+1] == q {
					b.WriteByte(q)
					i++
					continue
				}
				return b.String(), b.Len() > 0
			}
			b.WriteByte(term[i])
		}
		return "", false
	case '[':
		if end := strings.IndexByte(term, ']'); end > 1 {
			return term[1:end], true
		}
		return "", false
	}

	end := strings.IndexAny(term, " \t\n(")
	if end < 0 {
		return term, true
	}
	if term[end] == '(' {
		return "", false
	}
	return term[:end], true
}
