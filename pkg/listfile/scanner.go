// Package listfile reads the command invocations out of CMake listfiles.
package listfile

import (
	"strings"

	"github.com/rotisserie/eris"
)

// Pos is a 1-based line and column.
type Pos struct {
	Line int
	Col  int
}

type ArgKind int

const (
	Unquoted ArgKind = iota
	Quoted
	Bracket
	// Paren marks the "(" and ")" tokens of nested parentheses.
	Paren
)

// Arg is one argument of an invocation.
type Arg struct {
	Value string
	Kind  ArgKind
	Pos   Pos
}

// Invocation is a single command call, i.e. cc_library(foo STATIC SRCS foo.c).
type Invocation struct {
	Name string
	Args []Arg
	Pos  Pos
}

// Tokens returns the argument values without the nested parentheses.
func (inv Invocation) Tokens() []string {
	result := make([]string, 0, len(inv.Args))
	for _, arg := range inv.Args {
		if arg.Kind != Paren {
			result = append(result, arg.Value)
		}
	}
	return result
}

type scanner struct {
	name string
	src  []byte
	off  int
	line int
	col  int
}

func (s *scanner) pos() Pos {
	return Pos{Line: s.line, Col: s.col}
}

func (s *scanner) eof() bool {
	return s.off >= len(s.src)
}

func (s *scanner) peek() byte {
	if s.eof() {
		return 0
	}
	return s.src[s.off]
}

func (s *scanner) next() byte {
	c := s.src[s.off]
	s.off++
	if c == '\n' {
		s.line++
		s.col = 1
	} else {
		s.col++
	}
	return c
}

func (s *scanner) errorf(pos Pos, format string, args ...interface{}) error {
	return eris.Wrapf(eris.Errorf(format, args...), "%s:%d:%d", s.name, pos.Line, pos.Col)
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\r' || c == '\n'
}

func isIdentStart(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isIdent(c byte) bool {
	return isIdentStart(c) || (c >= '0' && c <= '9')
}

// Scan returns all command invocations found in src. name is only used in error messages.
func Scan(name string, src []byte) ([]Invocation, error) {
	s := &scanner{name: name, src: src, line: 1, col: 1}
	result := make([]Invocation, 0)

	for {
		if err := s.skipSpaceAndComments(); err != nil {
			return nil, err
		}
		if s.eof() {
			return result, nil
		}

		pos := s.pos()
		if !isIdentStart(s.peek()) {
			return nil, s.errorf(pos, "expected a command invocation but found %q", s.peek())
		}

		start := s.off
		for !s.eof() && isIdent(s.peek()) {
			s.next()
		}
		inv := Invocation{Name: string(s.src[start:s.off]), Pos: pos}

		for !s.eof() && (s.peek() == ' ' || s.peek() == '\t') {
			s.next()
		}
		if s.peek() != '(' {
			return nil, s.errorf(s.pos(), "expected ( after %s", inv.Name)
		}
		s.next()

		args, err := s.scanArgs(pos)
		if err != nil {
			return nil, err
		}
		inv.Args = args
		result = append(result, inv)
	}
}

func (s *scanner) skipSpaceAndComments() error {
	for !s.eof() {
		c := s.peek()
		switch {
		case isSpace(c):
			s.next()
		case c == '#':
			if err := s.skipComment(); err != nil {
				return err
			}
		default:
			return nil
		}
	}
	return nil
}

func (s *scanner) skipComment() error {
	pos := s.pos()
	s.next()

	if s.peek() == '[' {
		if level, ok := s.bracketLevel(); ok {
			_, err := s.scanBracketContent(pos, level)
			return err
		}
	}

	for !s.eof() && s.peek() != '\n' {
		s.next()
	}
	return nil
}

// bracketLevel checks for an opening bracket ([[, [=[, [==[, ...) at the current position and consumes it.
func (s *scanner) bracketLevel() (int, bool) {
	level := 0
	off := s.off + 1
	for off < len(s.src) && s.src[off] == '=' {
		level++
		off++
	}
	if off >= len(s.src) || s.src[off] != '[' {
		return 0, false
	}

	for s.off <= off {
		s.next()
	}
	return level, true
}

func (s *scanner) scanBracketContent(start Pos, level int) (string, error) {
	closing := "]" + strings.Repeat("=", level) + "]"
	end := strings.Index(string(s.src[s.off:]), closing)
	if end < 0 {
		return "", s.errorf(start, "unterminated bracket")
	}

	content := string(s.src[s.off : s.off+end])
	for idx := 0; idx < end+len(closing); idx++ {
		s.next()
	}

	// a newline directly after the opening bracket is not part of the content
	content = strings.TrimPrefix(content, "\r\n")
	content = strings.TrimPrefix(content, "\n")
	return content, nil
}

func (s *scanner) scanArgs(start Pos) ([]Arg, error) {
	args := make([]Arg, 0)
	depth := 0

	for {
		if err := s.skipSpaceAndComments(); err != nil {
			return nil, err
		}
		if s.eof() {
			return nil, s.errorf(start, "unterminated command invocation")
		}

		pos := s.pos()
		switch c := s.peek(); {
		case c == '(':
			s.next()
			depth++
			args = append(args, Arg{Value: "(", Kind: Paren, Pos: pos})
		case c == ')':
			s.next()
			if depth == 0 {
				return args, nil
			}
			depth--
			args = append(args, Arg{Value: ")", Kind: Paren, Pos: pos})
		case c == '"':
			value, err := s.scanQuoted(pos)
			if err != nil {
				return nil, err
			}
			args = append(args, Arg{Value: value, Kind: Quoted, Pos: pos})
		case c == '[':
			if level, ok := s.bracketLevel(); ok {
				value, err := s.scanBracketContent(pos, level)
				if err != nil {
					return nil, err
				}
				args = append(args, Arg{Value: value, Kind: Bracket, Pos: pos})
				continue
			}
			fallthrough
		default:
			args = append(args, Arg{Value: s.scanUnquoted(), Kind: Unquoted, Pos: pos})
		}
	}
}

func (s *scanner) scanQuoted(start Pos) (string, error) {
	var b strings.Builder
	s.next()

	for !s.eof() {
		c := s.next()
		switch c {
		case '"':
			return b.String(), nil
		case '\\':
			if s.eof() {
				return "", s.errorf(start, "unterminated quoted argument")
			}
			b.WriteString(unescape(s.next()))
		default:
			b.WriteByte(c)
		}
	}

	return "", s.errorf(start, "unterminated quoted argument")
}

func (s *scanner) scanUnquoted() string {
	var b strings.Builder
	for !s.eof() {
		c := s.peek()
		if isSpace(c) || c == '(' || c == ')' || c == '#' || c == '"' {
			break
		}

		s.next()
		if c == '\\' && !s.eof() {
			b.WriteString(unescape(s.next()))
			continue
		}
		b.WriteByte(c)
	}
	return b.String()
}

func unescape(c byte) string {
	switch c {
	case 'n':
		return "\n"
	case 't':
		return "\t"
	case 'r':
		return "\r"
	case '\n':
		// line continuation
		return ""
	case ';':
		return "\\;"
	}
	return string(c)
}
