package policy

import (
	"errors"
	"unicode/utf8"
)

// ErrBadPattern reports a resource pattern segment with broken glob syntax
var ErrBadPattern = errors.New("syntax error in resource pattern")

// ValidatePattern checks the glob syntax of every segment of a resource pattern
func ValidatePattern(pattern string) error {
	for _, seg := range splitSegments(pattern) {
		if err := validateSegment(seg); err != nil {
			return err
		}
	}
	return nil
}

// matchSegment matches a single segment against one glob segment.
//
//	'*'         any run of characters, including '/'
//	'?'         any single character
//	'[' ']'     character class with ranges; '^' or '!' negates
//	'\' c       the literal c
//
// Wildcards never reach past the segment they sit in.
func matchSegment(pattern, name string) bool {
	if validateSegment(pattern) != nil {
		return false
	}

	p, s := 0, 0
	starP, starS := -1, 0
	for s < len(name) {
		r, width := utf8.DecodeRuneInString(name[s:])
		if p < len(pattern) {
			switch pattern[p] {
			case '*':
				starP, starS = p, s
				p++
				continue
			case '?':
				p++
				s += width
				continue
			case '[':
				matched, next, _ := matchClass(pattern, p, r)
				if matched {
					p = next
					s += width
					continue
				}
			case '\\':
				lit, litWidth := utf8.DecodeRuneInString(pattern[p+1:])
				if lit == r {
					p += 1 + litWidth
					s += width
					continue
				}
			default:
				lit, litWidth := utf8.DecodeRuneInString(pattern[p:])
				if lit == r {
					p += litWidth
					s += width
					continue
				}
			}
		}
		if starP < 0 {
			return false
		}
		// let the last star absorb one more character and retry
		_, skip := utf8.DecodeRuneInString(name[starS:])
		starS += skip
		s = starS
		p = starP + 1
	}

	for p < len(pattern) && pattern[p] == '*' {
		p++
	}
	return p == len(pattern)
}

func validateSegment(pattern string) error {
	for p := 0; p < len(pattern); {
		switch pattern[p] {
		case '\\':
			if p+1 >= len(pattern) {
				return ErrBadPattern
			}
			_, width := utf8.DecodeRuneInString(pattern[p+1:])
			p += 1 + width
		case '[':
			_, next, err := matchClass(pattern, p, utf8.RuneError)
			if err != nil {
				return err
			}
			p = next
		default:
			p++
		}
	}
	return nil
}

// matchClass evaluates the class opening at pattern[start] against r and
// returns the index just past its closing ']'
func matchClass(pattern string, start int, r rune) (bool, int, error) {
	i := start + 1
	negated := false
	if i < len(pattern) && (pattern[i] == '^' || pattern[i] == '!') {
		negated = true
		i++
	}

	matched := false
	ranges := 0
	for {
		if i >= len(pattern) {
			return false, 0, ErrBadPattern
		}
		if pattern[i] == ']' {
			if ranges == 0 {
				return false, 0, ErrBadPattern
			}
			i++
			break
		}

		lo, next, err := classChar(pattern, i)
		if err != nil {
			return false, 0, err
		}
		i = next
		hi := lo
		if i+1 < len(pattern) && pattern[i] == '-' && pattern[i+1] != ']' {
			hi, i, err = classChar(pattern, i+1)
			if err != nil {
				return false, 0, err
			}
			if hi < lo {
				return false, 0, ErrBadPattern
			}
		}
		if lo <= r && r <= hi {
			matched = true
		}
		ranges++
	}
	return matched != negated, i, nil
}

func classChar(pattern string, i int) (rune, int, error) {
	if pattern[i] == '\\' {
		i++
		if i >= len(pattern) {
			return 0, 0, ErrBadPattern
		}
	}
	r, width := utf8.DecodeRuneInString(pattern[i:])
	return r, i + width, nil
}
