package script

import "strings"

// kwPrefix marks keyword literals after preprocessing.
const kwPrefix = "__kw_"

// preprocessSource rewrites facility source into plain zygomys:
//
//   - :keyword becomes the string "__kw_keyword", so keywords need no
//     global symbol registration.
//   - kebab-case identifiers become snake_case (device-type -> device_type);
//     zygomys reads a bare hyphen as subtraction.
//   - ; comments become // comments.
//
// String literals are copied verbatim.
func preprocessSource(source string) string {
	s := &scanner{src: source}
	s.out.Grow(len(source) + len(source)/4)
	for !s.done() {
		switch c := s.peek(0); {
		case c == '"':
			s.copyString('"', true)
		case c == '`':
			s.copyString('`', false)
		case c == ';':
			s.comment()
		case c == ':' && s.peek(1) == '=':
			s.emit(2)
		case c == ':' && isLetter(s.peek(1)):
			s.keyword()
		case c == '-' && s.pos > 0 && isIdentChar(s.src[s.pos-1]) && isLetter(s.peek(1)):
			s.out.WriteByte('_')
			s.pos++
		default:
			s.emit(1)
		}
	}
	return s.out.String()
}

type scanner struct {
	src string
	pos int
	out strings.Builder
}

func (s *scanner) done() bool { return s.pos >= len(s.src) }

// peek returns the byte at pos+off, or 0 past the end.
func (s *scanner) peek(off int) byte {
	if i := s.pos + off; i < len(s.src) {
		return s.src[i]
	}
	return 0
}

func (s *scanner) emit(n int) {
	end := min(s.pos+n, len(s.src))
	s.out.WriteString(s.src[s.pos:end])
	s.pos = end
}

// copyString copies a literal delimited by quote, honoring backslash
// escapes when escapes is set.
func (s *scanner) copyString(quote byte, escapes bool) {
	s.emit(1)
	for !s.done() && s.peek(0) != quote {
		if escapes && s.peek(0) == '\\' {
			s.emit(2)
			continue
		}
		s.emit(1)
	}
	s.emit(1)
}

func (s *scanner) comment() {
	for s.peek(0) == ';' {
		s.pos++
	}
	s.out.WriteString("//")
	for !s.done() && s.peek(0) != '\n' {
		s.emit(1)
	}
}

func (s *scanner) keyword() {
	s.pos++ // ':'
	start := s.pos
	for !s.done() && isKWChar(s.peek(0)) {
		s.pos++
	}
	s.out.WriteByte('"')
	s.out.WriteString(kwPrefix)
	s.out.WriteString(s.src[start:s.pos])
	s.out.WriteByte('"')
}

func isLetter(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }

func isKWChar(c byte) bool {
	return isLetter(c) || isDigit(c) || c == '-' || c == '_'
}

func isIdentChar(c byte) bool {
	return isLetter(c) || isDigit(c) || c == '_'
}
