// Package glob implements the restricted glob language used for group-name
// filtering. Patterns match a whole string, case-sensitively, with no path
// semantics. Supported: `*`, `?`, `[abc]`, `[a-z]`, `[!...]`/`[^...]`, and
// `\x` escapes. Recursive `**`, brace expansion, and extglobs are rejected
// at compile time.
package glob

import "fmt"

// CompileError describes an invalid pattern. Position is a zero-based byte
// offset into the pattern.
type CompileError struct {
	Pattern  string
	Position int
	Reason   string
}

func (e *CompileError) Error() string {
	return fmt.Sprintf("invalid pattern %q at offset %d: %s", e.Pattern, e.Position, e.Reason)
}

type tokenKind int

const (
	tokenLiteral tokenKind = iota
	tokenAny               // ?
	tokenStar              // *
	tokenClass             // [...]
)

type token struct {
	kind    tokenKind
	literal rune
	class   *charClass
}

type charClass struct {
	negated bool
	singles []rune
	ranges  [][2]rune
}

func (c *charClass) matches(r rune) bool {
	found := false
	for _, s := range c.singles {
		if s == r {
			found = true
			break
		}
	}
	if !found {
		for _, rg := range c.ranges {
			if r >= rg[0] && r <= rg[1] {
				found = true
				break
			}
		}
	}
	if c.negated {
		return !found
	}
	return found
}

// Pattern is a compiled glob pattern.
type Pattern struct {
	source string
	tokens []token
}

// String returns the original pattern text.
func (p *Pattern) String() string { return p.source }

// Compile parses a pattern into a token stream. It returns a *CompileError
// for any construct outside the restricted language.
func Compile(pattern string) (*Pattern, error) {
	runes := []rune(pattern)
	tokens := make([]token, 0, len(runes))

	for i := 0; i < len(runes); i++ {
		r := runes[i]
		switch r {
		case '*':
			if i+1 < len(runes) && runes[i+1] == '*' {
				return nil, &CompileError{Pattern: pattern, Position: i, Reason: "recursive '**' is not supported"}
			}
			// Extglob *(...)
			if i+1 < len(runes) && runes[i+1] == '(' {
				return nil, &CompileError{Pattern: pattern, Position: i, Reason: "extglob '*(' is not supported"}
			}
			tokens = append(tokens, token{kind: tokenStar})
		case '?':
			if i+1 < len(runes) && runes[i+1] == '(' {
				return nil, &CompileError{Pattern: pattern, Position: i, Reason: "extglob '?(' is not supported"}
			}
			tokens = append(tokens, token{kind: tokenAny})
		case '{':
			return nil, &CompileError{Pattern: pattern, Position: i, Reason: "brace expansion is not supported"}
		case '@', '+', '!':
			if i+1 < len(runes) && runes[i+1] == '(' {
				return nil, &CompileError{Pattern: pattern, Position: i, Reason: fmt.Sprintf("extglob '%c(' is not supported", r)}
			}
			tokens = append(tokens, token{kind: tokenLiteral, literal: r})
		case '\\':
			if i+1 >= len(runes) {
				return nil, &CompileError{Pattern: pattern, Position: i, Reason: "trailing backslash"}
			}
			i++
			tokens = append(tokens, token{kind: tokenLiteral, literal: runes[i]})
		case '[':
			class, next, err := parseClass(pattern, runes, i)
			if err != nil {
				return nil, err
			}
			tokens = append(tokens, token{kind: tokenClass, class: class})
			i = next
		default:
			tokens = append(tokens, token{kind: tokenLiteral, literal: r})
		}
	}

	return &Pattern{source: pattern, tokens: tokens}, nil
}

// parseClass parses a character class starting at runes[start] == '['.
// Returns the class and the index of the closing ']'.
func parseClass(pattern string, runes []rune, start int) (*charClass, int, error) {
	i := start + 1
	class := &charClass{}

	if i < len(runes) && (runes[i] == '!' || runes[i] == '^') {
		class.negated = true
		i++
	}

	empty := true
	for ; i < len(runes); i++ {
		r := runes[i]
		if r == ']' && !empty {
			return class, i, nil
		}
		if r == ']' && empty {
			return nil, 0, &CompileError{Pattern: pattern, Position: start, Reason: "empty character class"}
		}
		if r == '\\' {
			if i+1 >= len(runes) {
				return nil, 0, &CompileError{Pattern: pattern, Position: i, Reason: "trailing backslash"}
			}
			i++
			r = runes[i]
		}
		// Range a-z, unless '-' is the last char before ']'.
		if i+2 < len(runes) && runes[i+1] == '-' && runes[i+2] != ']' {
			lo, hi := r, runes[i+2]
			if hi == '\\' {
				if i+3 >= len(runes) {
					return nil, 0, &CompileError{Pattern: pattern, Position: i + 2, Reason: "trailing backslash"}
				}
				hi = runes[i+3]
				i++
			}
			if lo > hi {
				return nil, 0, &CompileError{Pattern: pattern, Position: i, Reason: fmt.Sprintf("invalid range %c-%c", lo, hi)}
			}
			class.ranges = append(class.ranges, [2]rune{lo, hi})
			i += 2
		} else {
			class.singles = append(class.singles, r)
		}
		empty = false
	}

	return nil, 0, &CompileError{Pattern: pattern, Position: start, Reason: "unclosed character class"}
}

// Match reports whether s matches the compiled pattern, backtracking on '*'.
func (p *Pattern) Match(s string) bool {
	return matchTokens(p.tokens, []rune(s))
}

func matchTokens(tokens []token, s []rune) bool {
	if len(tokens) == 0 {
		return len(s) == 0
	}
	t := tokens[0]
	switch t.kind {
	case tokenStar:
		// Try each suffix split, longest consumption last.
		for skip := 0; skip <= len(s); skip++ {
			if matchTokens(tokens[1:], s[skip:]) {
				return true
			}
		}
		return false
	case tokenAny:
		return len(s) > 0 && matchTokens(tokens[1:], s[1:])
	case tokenClass:
		return len(s) > 0 && t.class.matches(s[0]) && matchTokens(tokens[1:], s[1:])
	default:
		return len(s) > 0 && s[0] == t.literal && matchTokens(tokens[1:], s[1:])
	}
}

// Match compiles pattern and matches it against s in one call.
func Match(pattern, s string) (bool, error) {
	p, err := Compile(pattern)
	if err != nil {
		return false, err
	}
	return p.Match(s), nil
}
