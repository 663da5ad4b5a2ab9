package irtext

import (
	"fmt"
	"strconv"
	"strings"
)

// scanner walks one line of IR text. Errors it produces carry the line
// number so module-level diagnostics stay attributable.
type scanner struct {
	src  string
	pos  int
	line int
}

func newScanner(src string, line int) *scanner {
	return &scanner{src: src, line: line}
}

func (s *scanner) errorf(format string, args ...any) error {
	return fmt.Errorf("line %d: %s", s.line, fmt.Sprintf(format, args...))
}

func (s *scanner) skipSpace() {
	for s.pos < len(s.src) && (s.src[s.pos] == ' ' || s.src[s.pos] == '\t') {
		s.pos++
	}
}

func (s *scanner) eof() bool {
	s.skipSpace()
	return s.pos >= len(s.src)
}

// peekLit reports whether the literal comes next, without consuming it.
func (s *scanner) peekLit(lit string) bool {
	s.skipSpace()
	return strings.HasPrefix(s.src[s.pos:], lit)
}

// accept consumes the literal if it comes next.
func (s *scanner) accept(lit string) bool {
	if !s.peekLit(lit) {
		return false
	}
	s.pos += len(lit)
	return true
}

// expect consumes the literal or fails.
func (s *scanner) expect(lit string) error {
	if !s.accept(lit) {
		return s.errorf("expected %q near %q", lit, s.remainder())
	}
	return nil
}

func (s *scanner) remainder() string {
	r := s.src[s.pos:]
	if len(r) > 24 {
		r = r[:24] + "..."
	}
	return r
}

func isWordByte(b byte) bool {
	return b >= 'a' && b <= 'z' || b >= 'A' && b <= 'Z' ||
		b >= '0' && b <= '9' || b == '_' || b == '.' || b == '$' || b == '-'
}

// word reads an identifier-like token: names, keywords, plain numbers.
func (s *scanner) word() (string, error) {
	s.skipSpace()
	start := s.pos
	for s.pos < len(s.src) && isWordByte(s.src[s.pos]) {
		s.pos++
	}
	if s.pos == start {
		return "", s.errorf("expected a name near %q", s.remainder())
	}
	return s.src[start:s.pos], nil
}

// number reads an integer or float literal, signs and exponents
// included.
func (s *scanner) number() (string, error) {
	s.skipSpace()
	start := s.pos
	for s.pos < len(s.src) {
		b := s.src[s.pos]
		if b >= '0' && b <= '9' || b == '.' || b == '-' || b == '+' || b == 'e' || b == 'E' {
			s.pos++
			continue
		}
		break
	}
	if s.pos == start {
		return "", s.errorf("expected a number near %q", s.remainder())
	}
	return s.src[start:s.pos], nil
}

func (s *scanner) uint32Lit() (uint32, error) {
	w, err := s.number()
	if err != nil {
		return 0, err
	}
	n, err := strconv.ParseUint(w, 10, 32)
	if err != nil {
		return 0, s.errorf("bad count %q", w)
	}
	return uint32(n), nil
}

// stringLit reads the body of a c"..." constant, decoding \XX escapes.
// The scanner is positioned just after the opening quote.
func (s *scanner) stringLit() (string, error) {
	var sb strings.Builder
	for s.pos < len(s.src) {
		b := s.src[s.pos]
		if b == '"' {
			s.pos++
			return sb.String(), nil
		}
		if b == '\\' {
			if s.pos+2 >= len(s.src) {
				return "", s.errorf("truncated escape in string constant")
			}
			n, err := strconv.ParseUint(s.src[s.pos+1:s.pos+3], 16, 8)
			if err != nil {
				return "", s.errorf("bad escape in string constant")
			}
			sb.WriteByte(byte(n))
			s.pos += 3
			continue
		}
		sb.WriteByte(b)
		s.pos++
	}
	return "", s.errorf("unterminated string constant")
}
