package route

import (
	"errors"
	"net/http"
)

// Matcher classifies paths against an ordered list of patterns. A path
// matches when any pattern matches. The zero value and an empty list match
// nothing.
type Matcher struct {
	patterns []*Pattern
}

// NewMatcher compiles every pattern with the given options.
func NewMatcher(patterns []string, opts ...Option) (*Matcher, error) {
	o := buildOptions(opts)
	m := &Matcher{patterns: make([]*Pattern, 0, len(patterns))}
	for _, raw := range patterns {
		p, err := compile(raw, o)
		if err != nil {
			return nil, err
		}
		m.patterns = append(m.patterns, p)
	}
	return m, nil
}

// MustMatcher is like [NewMatcher] but panics on error.
func MustMatcher(patterns []string, opts ...Option) *Matcher {
	m, err := NewMatcher(patterns, opts...)
	if err != nil {
		panic(err)
	}
	return m
}

// MatchErr reports whether any pattern matches path. Patterns are tried in
// order; a timeout in one pattern does not stop later patterns from
// matching, but is returned when nothing matched.
func (m *Matcher) MatchErr(path string) (bool, error) {
	if m == nil {
		return false, nil
	}

	var errs []error
	for _, p := range m.patterns {
		ok, err := p.Match(path)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if ok {
			return true, nil
		}
	}
	return false, errors.Join(errs...)
}

// Match is [Matcher.MatchErr] with evaluation errors treated as no match.
func (m *Matcher) Match(path string) bool {
	ok, _ := m.MatchErr(path)
	return ok
}

// MatchRequest matches the request's URL path.
func (m *Matcher) MatchRequest(r *http.Request) bool {
	if r == nil || r.URL == nil {
		return false
	}
	return m.Match(r.URL.Path)
}

// Patterns returns the source patterns in match order.
func (m *Matcher) Patterns() []string {
	if m == nil {
		return nil
	}
	out := make([]string, len(m.patterns))
	for i, p := range m.patterns {
		out[i] = p.source
	}
	return out
}

// Len returns the number of compiled patterns.
func (m *Matcher) Len() int {
	if m == nil {
		return 0
	}
	return len(m.patterns)
}
