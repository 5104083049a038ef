package route

import (
	"fmt"
	"strings"
	"time"

	"github.com/dlclark/regexp2"
)

const (
	// DefaultMatchTimeout bounds a single pattern evaluation.
	DefaultMatchTimeout = 100 * time.Millisecond

	segmentPattern = `[^/#?]+?`
	trailingSuffix = `[/#?]?$`
)

type options struct {
	caseSensitive bool
	timeout       time.Duration
}

// Option customizes pattern compilation.
type Option func(*options)

// CaseSensitive controls whether literal text is matched case-sensitively.
// Patterns are case-insensitive unless this option is set.
func CaseSensitive(enabled bool) Option {
	return func(o *options) {
		o.caseSensitive = enabled
	}
}

// MatchTimeout overrides [DefaultMatchTimeout]. Non-positive values are ignored.
func MatchTimeout(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.timeout = d
		}
	}
}

func buildOptions(opts []Option) options {
	o := options{timeout: DefaultMatchTimeout}
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}
	return o
}

// Pattern is a compiled route pattern. It is immutable and safe for
// concurrent use.
type Pattern struct {
	source string
	expr   string
	re     *regexp2.Regexp
}

// Compile translates pattern into an anchored expression and compiles it.
func Compile(pattern string, opts ...Option) (*Pattern, error) {
	return compile(pattern, buildOptions(opts))
}

// MustCompile is like [Compile] but panics on error. Intended for
// package-level pattern tables.
func MustCompile(pattern string, opts ...Option) *Pattern {
	p, err := Compile(pattern, opts...)
	if err != nil {
		panic(err)
	}
	return p
}

func compile(pattern string, o options) (*Pattern, error) {
	expr, err := translate(pattern)
	if err != nil {
		return nil, err
	}

	flags := regexp2.RegexOptions(regexp2.ECMAScript)
	if !o.caseSensitive {
		flags |= regexp2.IgnoreCase
	}

	re, err := regexp2.Compile(expr, flags)
	if err != nil {
		return nil, fmt.Errorf("%w: %q: %v", ErrInvalidPattern, pattern, err)
	}
	re.MatchTimeout = o.timeout

	return &Pattern{source: pattern, expr: expr, re: re}, nil
}

// String returns the pattern as written.
func (p *Pattern) String() string {
	if p == nil {
		return ""
	}
	return p.source
}

// Expr returns the compiled regular expression source.
func (p *Pattern) Expr() string {
	if p == nil {
		return ""
	}
	return p.expr
}

// Match reports whether path matches the pattern. An error is returned only
// when evaluation exceeds the match timeout.
func (p *Pattern) Match(path string) (bool, error) {
	if p == nil || p.re == nil {
		return false, nil
	}
	if path == "" {
		path = "/"
	}

	ok, err := p.re.MatchString(path)
	if err != nil {
		return false, fmt.Errorf("%w: %q: %v", ErrMatchTimeout, p.source, err)
	}
	return ok, nil
}

type tokenKind uint8

const (
	tokenLiteral tokenKind = iota
	tokenGroup
)

type token struct {
	kind     tokenKind
	text     string // literal text, or the group body without parentheses
	modifier byte
}

func translate(pattern string) (string, error) {
	tokens, err := lex(pattern)
	if err != nil {
		return "", err
	}

	var b strings.Builder
	b.Grow(len(pattern)*2 + len(trailingSuffix) + 1)
	b.WriteByte('^')

	for i, tok := range tokens {
		if tok.kind == tokenLiteral {
			text := tok.text
			// A "/" directly before an optional or repeated group belongs to
			// the group, so "/users/:id?" also matches "/users".
			if next := i + 1; next < len(tokens) && tokens[next].kind == tokenGroup &&
				tokens[next].modifier != 0 && strings.HasSuffix(text, "/") {
				text = strings.TrimSuffix(text, "/")
			}
			writeLiteral(&b, text)
			continue
		}

		prefixed := i > 0 && tokens[i-1].kind == tokenLiteral &&
			tok.modifier != 0 && strings.HasSuffix(tokens[i-1].text, "/")
		writeGroup(&b, tok, prefixed)
	}

	b.WriteString(trailingSuffix)
	return b.String(), nil
}

func writeGroup(b *strings.Builder, tok token, prefixed bool) {
	if !prefixed {
		b.WriteByte('(')
		b.WriteString(tok.text)
		b.WriteByte(')')
		if tok.modifier != 0 {
			b.WriteByte(tok.modifier)
		}
		return
	}

	switch tok.modifier {
	case '?':
		b.WriteString(`(?:/(` + tok.text + `))?`)
	case '*':
		b.WriteString(`(?:/((?:` + tok.text + `)(?:/(?:` + tok.text + `))*))?`)
	case '+':
		b.WriteString(`(?:/((?:` + tok.text + `)(?:/(?:` + tok.text + `))*))`)
	}
}

func writeLiteral(b *strings.Builder, text string) {
	for i := 0; i < len(text); i++ {
		c := text[i]
		if strings.IndexByte(`\.+*?^$()[]{}|`, c) >= 0 {
			b.WriteByte('\\')
		}
		b.WriteByte(c)
	}
}

func lex(pattern string) ([]token, error) {
	if pattern == "" {
		return nil, fmt.Errorf("%w: empty pattern", ErrInvalidPattern)
	}
	if pattern[0] != '/' {
		return nil, fmt.Errorf("%w: %q must start with '/'", ErrInvalidPattern, pattern)
	}

	var (
		tokens  []token
		literal strings.Builder
	)
	flush := func() {
		if literal.Len() > 0 {
			tokens = append(tokens, token{kind: tokenLiteral, text: literal.String()})
			literal.Reset()
		}
	}

	for i := 0; i < len(pattern); {
		c := pattern[i]
		switch {
		case c == '\\':
			if i+1 >= len(pattern) {
				return nil, fmt.Errorf("%w: %q ends with an escape", ErrInvalidPattern, pattern)
			}
			literal.WriteByte(pattern[i+1])
			i += 2

		case c == '(':
			end, err := groupEnd(pattern, i)
			if err != nil {
				return nil, err
			}
			flush()
			tok := token{kind: tokenGroup, text: pattern[i+1 : end]}
			i = end + 1
			tok.modifier, i = readModifier(pattern, i)
			tokens = append(tokens, tok)

		case c == ':':
			j := i + 1
			for j < len(pattern) && isNameChar(pattern[j]) {
				j++
			}
			if j == i+1 {
				return nil, fmt.Errorf("%w: %q: missing parameter name at %d", ErrInvalidPattern, pattern, i)
			}
			flush()
			tok := token{kind: tokenGroup, text: segmentPattern}
			if j < len(pattern) && pattern[j] == '(' {
				end, err := groupEnd(pattern, j)
				if err != nil {
					return nil, err
				}
				tok.text = pattern[j+1 : end]
				j = end + 1
			}
			tok.modifier, i = readModifier(pattern, j)
			tokens = append(tokens, tok)

		case c == '?' || c == '*' || c == '+':
			return nil, fmt.Errorf("%w: %q: unexpected %q at %d", ErrInvalidPattern, pattern, c, i)

		default:
			literal.WriteByte(c)
			i++
		}
	}
	flush()

	return tokens, nil
}

func readModifier(pattern string, i int) (byte, int) {
	if i < len(pattern) {
		switch pattern[i] {
		case '?', '*', '+':
			return pattern[i], i + 1
		}
	}
	return 0, i
}

// groupEnd returns the index of the parenthesis closing the group opened at
// start, skipping escapes and character classes.
func groupEnd(pattern string, start int) (int, error) {
	depth := 0
	for i := start; i < len(pattern); i++ {
		switch pattern[i] {
		case '\\':
			i++
		case '[':
			end := classEnd(pattern, i)
			if end < 0 {
				return 0, fmt.Errorf("%w: %q: unterminated character class at %d", ErrInvalidPattern, pattern, i)
			}
			i = end
		case '(':
			depth++
		case ')':
			depth--
			if depth == 0 {
				if i == start+1 {
					return 0, fmt.Errorf("%w: %q: empty group at %d", ErrInvalidPattern, pattern, start)
				}
				return i, nil
			}
		}
	}
	return 0, fmt.Errorf("%w: %q: unbalanced group at %d", ErrInvalidPattern, pattern, start)
}

func classEnd(pattern string, start int) int {
	i := start + 1
	if i < len(pattern) && pattern[i] == '^' {
		i++
	}
	if i < len(pattern) && pattern[i] == ']' {
		i++
	}
	for ; i < len(pattern); i++ {
		switch pattern[i] {
		case '\\':
			i++
		case ']':
			return i
		}
	}
	return -1
}

func isNameChar(c byte) bool {
	return c == '_' ||
		(c >= 'a' && c <= 'z') ||
		(c >= 'A' && c <= 'Z') ||
		(c >= '0' && c <= '9')
}
