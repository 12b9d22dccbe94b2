// Package pathmatch provides dotted-path addressing for nested map and
// list structures, plus a small glob language for matching those paths.
//
// A path names one location in a document: map descent uses '.', list
// positions use '[i]'. Keys containing separator characters are escaped
// with a backslash, so the annotation key "meta.helm.sh/release-name"
// renders as `meta\.helm\.sh/release-name`.
//
// Patterns extend paths with wildcards: '[*]' matches any list index,
// '*' matches exactly one segment, '**' matches any run of segments
// including none, and a trailing '*' on a key matches keys by prefix.
package pathmatch

import (
	"fmt"
	"strconv"
	"strings"
)

// Segment is one step in a parsed path: a map key or a list index.
type Segment struct {
	Key     string
	Index   int
	IsIndex bool
}

// Key returns a map-key segment.
func Key(k string) Segment { return Segment{Key: k} }

// Index returns a list-index segment.
func Index(i int) Segment { return Segment{Index: i, IsIndex: true} }

func (s Segment) String() string {
	if s.IsIndex {
		return "[" + strconv.Itoa(s.Index) + "]"
	}
	return escapeKey(s.Key)
}

// Child appends a map key to a path, escaping separator characters in
// the key. An empty path yields the key alone.
func Child(path, key string) string {
	ek := escapeKey(key)
	if path == "" {
		return ek
	}
	return path + "." + ek
}

// Element appends a list index to a path.
func Element(path string, index int) string {
	return fmt.Sprintf("%s[%d]", path, index)
}

func escapeKey(k string) string {
	if !strings.ContainsAny(k, `\.[*`) {
		return k
	}
	var b strings.Builder
	b.Grow(len(k) + 2)
	for i := 0; i < len(k); i++ {
		switch k[i] {
		case '\\', '.', '[', '*':
			b.WriteByte('\\')
		}
		b.WriteByte(k[i])
	}
	return b.String()
}

// ParsePath splits a concrete path into segments, honoring backslash
// escapes. Wildcard characters are rejected; use Compile for patterns.
func ParsePath(path string) ([]Segment, error) {
	toks, err := scan(path)
	if err != nil {
		return nil, err
	}
	segs := make([]Segment, 0, len(toks))
	for _, t := range toks {
		switch t.kind {
		case tokKey:
			segs = append(segs, Segment{Key: t.key})
		case tokIndex:
			segs = append(segs, Segment{Index: t.index, IsIndex: true})
		default:
			return nil, fmt.Errorf("wildcard not allowed in concrete path %q", path)
		}
	}
	return segs, nil
}

// Pattern is a compiled path expression.
type Pattern struct {
	raw  string
	toks []token
}

// Compile parses a path expression into a Pattern.
func Compile(expr string) (Pattern, error) {
	toks, err := scan(expr)
	if err != nil {
		return Pattern{}, err
	}
	return Pattern{raw: expr, toks: toks}, nil
}

// MustCompile is Compile for expressions known to be valid at build
// time. It panics on error.
func MustCompile(expr string) Pattern {
	p, err := Compile(expr)
	if err != nil {
		panic(err)
	}
	return p
}

func (p Pattern) String() string { return p.raw }

// Matches reports whether the pattern matches the whole concrete path.
func (p Pattern) Matches(path string) bool {
	segs, err := ParsePath(path)
	if err != nil {
		return false
	}
	return p.MatchesSegments(segs)
}

// MatchesSegments reports whether the pattern matches the whole
// segment sequence.
func (p Pattern) MatchesSegments(segs []Segment) bool {
	return matchTokens(p.toks, segs)
}

// Set matches a path against any of several compiled patterns.
type Set struct {
	patterns []Pattern
}

// CompileSet compiles every expression and collects the patterns. The
// first invalid expression aborts compilation.
func CompileSet(exprs []string) (*Set, error) {
	s := &Set{patterns: make([]Pattern, 0, len(exprs))}
	for _, e := range exprs {
		p, err := Compile(e)
		if err != nil {
			return nil, err
		}
		s.patterns = append(s.patterns, p)
	}
	return s, nil
}

// Add appends patterns to the set.
func (s *Set) Add(patterns ...Pattern) {
	s.patterns = append(s.patterns, patterns...)
}

// Matches reports whether any pattern in the set matches the path. A
// nil set matches nothing.
func (s *Set) Matches(path string) bool {
	if s == nil || len(s.patterns) == 0 {
		return false
	}
	segs, err := ParsePath(path)
	if err != nil {
		return false
	}
	return s.MatchesSegments(segs)
}

// MatchesSegments reports whether any pattern in the set matches the
// segment sequence. A nil set matches nothing.
func (s *Set) MatchesSegments(segs []Segment) bool {
	if s == nil {
		return false
	}
	for _, p := range s.patterns {
		if p.MatchesSegments(segs) {
			return true
		}
	}
	return false
}

type tokKind int

const (
	tokKey tokKind = iota
	tokKeyPrefix
	tokIndex
	tokAnyIndex
	tokStar
	tokDoubleStar
)

type token struct {
	kind  tokKind
	key   string
	index int
}

func scan(expr string) ([]token, error) {
	if expr == "" {
		return nil, fmt.Errorf("empty path expression")
	}
	var toks []token
	i, n := 0, len(expr)
	expectSegment := true
	for i < n {
		switch expr[i] {
		case '.':
			if expectSegment {
				return nil, fmt.Errorf("empty segment at offset %d in %q", i, expr)
			}
			i++
			expectSegment = true
		case '[':
			end := strings.IndexByte(expr[i:], ']')
			if end < 0 {
				return nil, fmt.Errorf("unterminated index in %q", expr)
			}
			inner := expr[i+1 : i+end]
			if inner == "*" {
				toks = append(toks, token{kind: tokAnyIndex})
			} else {
				idx, err := strconv.Atoi(inner)
				if err != nil || idx < 0 {
					return nil, fmt.Errorf("invalid index %q in %q", inner, expr)
				}
				toks = append(toks, token{kind: tokIndex, index: idx})
			}
			i += end + 1
			expectSegment = false
		default:
			if !expectSegment {
				return nil, fmt.Errorf("missing separator at offset %d in %q", i, expr)
			}
			tok, next, err := scanKey(expr, i)
			if err != nil {
				return nil, err
			}
			toks = append(toks, tok)
			i = next
			expectSegment = false
		}
	}
	if expectSegment {
		return nil, fmt.Errorf("trailing separator in %q", expr)
	}
	return toks, nil
}

func scanKey(expr string, start int) (token, int, error) {
	var b strings.Builder
	starred := false
	i, n := start, len(expr)
	for i < n && expr[i] != '.' && expr[i] != '[' {
		c := expr[i]
		if c == '\\' {
			if i+1 >= n {
				return token{}, 0, fmt.Errorf("trailing escape in %q", expr)
			}
			b.WriteByte(expr[i+1])
			i += 2
			continue
		}
		if c == '*' {
			starred = true
		}
		b.WriteByte(c)
		i++
	}
	seg := b.String()
	switch {
	case seg == "**":
		return token{kind: tokDoubleStar}, i, nil
	case seg == "*":
		return token{kind: tokStar}, i, nil
	case starred:
		prefix, ok := strings.CutSuffix(seg, "*")
		if !ok || strings.Contains(prefix, "*") {
			return token{}, 0, fmt.Errorf("'*' only allowed as a whole segment or segment suffix in %q", expr)
		}
		return token{kind: tokKeyPrefix, key: prefix}, i, nil
	default:
		return token{kind: tokKey, key: seg}, i, nil
	}
}

func matchTokens(toks []token, segs []Segment) bool {
	if len(toks) == 0 {
		return len(segs) == 0
	}
	t := toks[0]
	if t.kind == tokDoubleStar {
		for skip := 0; skip <= len(segs); skip++ {
			if matchTokens(toks[1:], segs[skip:]) {
				return true
			}
		}
		return false
	}
	if len(segs) == 0 {
		return false
	}
	s := segs[0]
	var ok bool
	switch t.kind {
	case tokKey:
		ok = !s.IsIndex && s.Key == t.key
	case tokKeyPrefix:
		ok = !s.IsIndex && strings.HasPrefix(s.Key, t.key)
	case tokIndex:
		ok = s.IsIndex && s.Index == t.index
	case tokAnyIndex:
		ok = s.IsIndex
	case tokStar:
		ok = true
	}
	return ok && matchTokens(toks[1:], segs[1:])
}
