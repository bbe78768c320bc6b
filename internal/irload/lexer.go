package irload

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"
)

// Lexer splits a single type or expression string into tokens. Columns
// are 1-based rune offsets into the input.
type Lexer struct {
	input        string
	position     int  // current position in input (points to current char)
	readPosition int  // current reading position in input (after current char)
	ch           rune // current char under examination
	column       int
}

func NewLexer(input string) *Lexer {
	l := &Lexer{input: input}
	l.readChar()
	return l
}

func (l *Lexer) readChar() {
	if l.readPosition >= len(l.input) {
		l.ch = 0
		l.position = l.readPosition
		l.readPosition++
		l.column++
		return
	}
	r, w := utf8.DecodeRuneInString(l.input[l.readPosition:])
	l.ch = r
	l.position = l.readPosition
	l.readPosition += w
	l.column++
}

func (l *Lexer) NextToken() Token {
	var tok Token

	l.skipWhitespace()

	switch l.ch {
	case '.':
		tok = newToken(DOT, l.ch, l.column)
	case ',':
		tok = newToken(COMMA, l.ch, l.column)
	case ':':
		tok = newToken(COLON, l.ch, l.column)
	case '?':
		tok = newToken(QUESTION, l.ch, l.column)
	case '*':
		tok = newToken(STAR, l.ch, l.column)
	case '=':
		tok = newToken(ASSIGN, l.ch, l.column)
	case '(':
		tok = newToken(LPAREN, l.ch, l.column)
	case ')':
		tok = newToken(RPAREN, l.ch, l.column)
	case '<':
		tok = newToken(LT, l.ch, l.column)
	case '>':
		tok = newToken(GT, l.ch, l.column)
	case '-':
		if l.peekChar() == '>' {
			col := l.column
			l.readChar()
			tok = Token{Type: ARROW, Lexeme: "->", Literal: "->", Column: col}
		} else if isDigit(l.peekChar()) {
			return l.readNumber()
		} else {
			tok = newToken(ILLEGAL, l.ch, l.column)
		}
	case '"':
		col := l.column
		s, err := l.readString()
		if err != nil {
			return Token{Type: ILLEGAL, Lexeme: s, Literal: err.Error(), Column: col}
		}
		tok = Token{Type: STRING, Lexeme: s, Literal: s, Column: col}
	case '\'':
		col := l.column
		c, err := l.readCharLiteral()
		if err != nil {
			return Token{Type: ILLEGAL, Lexeme: "'", Literal: err.Error(), Column: col}
		}
		tok = Token{Type: CHAR, Lexeme: string(c), Literal: c, Column: col}
	case '`':
		col := l.column
		l.readChar()
		start := l.position
		for l.ch != '`' && l.ch != 0 {
			l.readChar()
		}
		if l.ch == 0 {
			return Token{Type: ILLEGAL, Lexeme: l.input[start:], Literal: "unterminated quoted identifier", Column: col}
		}
		name := l.input[start:l.position]
		tok = Token{Type: IDENT, Lexeme: name, Literal: name, Column: col}
	case 0:
		tok = Token{Type: EOF, Column: l.column}
		return tok
	default:
		if isLetter(l.ch) {
			col := l.column
			ident := l.readIdentifier()
			return Token{Type: LookupIdent(ident), Lexeme: ident, Literal: ident, Column: col}
		} else if isDigit(l.ch) {
			return l.readNumber()
		}
		tok = newToken(ILLEGAL, l.ch, l.column)
	}

	l.readChar()
	return tok
}

// Tokens returns every token of the input up to and including EOF.
func (l *Lexer) Tokens() []Token {
	var out []Token
	for {
		tok := l.NextToken()
		out = append(out, tok)
		if tok.Type == EOF {
			return out
		}
	}
}

func (l *Lexer) readString() (string, error) {
	var sb strings.Builder
	for {
		l.readChar()
		switch l.ch {
		case 0:
			return sb.String(), fmt.Errorf("unterminated string literal")
		case '"':
			return sb.String(), nil
		case '\\':
			l.readChar()
			r, err := l.escape()
			if err != nil {
				return sb.String(), err
			}
			sb.WriteRune(r)
		default:
			sb.WriteRune(l.ch)
		}
	}
}

func (l *Lexer) readCharLiteral() (rune, error) {
	l.readChar() // skip opening '
	if l.ch == '\'' {
		return 0, fmt.Errorf("empty character literal")
	}
	c := l.ch
	if l.ch == '\\' {
		l.readChar()
		r, err := l.escape()
		if err != nil {
			return 0, err
		}
		c = r
	}
	l.readChar()
	if l.ch != '\'' {
		return 0, fmt.Errorf("unterminated character literal, expected '")
	}
	return c, nil
}

// escape decodes the escape sequence whose first char is under the cursor
// and leaves the cursor on its last char.
func (l *Lexer) escape() (rune, error) {
	switch l.ch {
	case 'n':
		return '\n', nil
	case 't':
		return '\t', nil
	case 'r':
		return '\r', nil
	case 'b':
		return '\b', nil
	case '0':
		return 0, nil
	case '\\', '\'', '"', '$':
		return l.ch, nil
	case 'u':
		start := l.readPosition
		if start+4 > len(l.input) {
			return 0, fmt.Errorf("invalid unicode escape sequence \\uXXXX")
		}
		v, err := strconv.ParseUint(l.input[start:start+4], 16, 32)
		if err != nil {
			return 0, fmt.Errorf("invalid unicode escape sequence \\uXXXX")
		}
		for range 4 {
			l.readChar()
		}
		return rune(v), nil
	}
	return 0, fmt.Errorf("unknown escape sequence \\%c", l.ch)
}

func (l *Lexer) readIdentifier() string {
	position := l.position
	for isLetter(l.ch) || isDigit(l.ch) {
		l.readChar()
	}
	return l.input[position:l.position]
}

// readNumber reads Int, Long (L suffix) and Double literals. Hex and binary
// prefixes are accepted for integers.
func (l *Lexer) readNumber() Token {
	col := l.column
	position := l.position
	if l.ch == '-' {
		l.readChar()
	}
	base := 10
	if l.ch == '0' {
		switch l.peekChar() {
		case 'x', 'X':
			l.readChar()
			l.readChar()
			base = 16
		case 'b', 'B':
			l.readChar()
			l.readChar()
			base = 2
		}
	}
	for isDigit(l.ch) || l.ch == '_' || (base == 16 && isHexDigit(l.ch)) {
		l.readChar()
	}

	isFloat := false
	if base == 10 && l.ch == '.' && isDigit(l.peekChar()) {
		isFloat = true
		l.readChar() // .
		for isDigit(l.ch) || l.ch == '_' {
			l.readChar()
		}
	}
	if base == 10 && (l.ch == 'e' || l.ch == 'E') {
		isFloat = true
		l.readChar()
		if l.ch == '+' || l.ch == '-' {
			l.readChar()
		}
		for isDigit(l.ch) {
			l.readChar()
		}
	}

	isLong := false
	if l.ch == 'L' && !isFloat {
		isLong = true
		l.readChar()
	}

	lexeme := l.input[position:l.position]
	text := strings.ReplaceAll(strings.TrimSuffix(lexeme, "L"), "_", "")

	if isFloat {
		v, err := strconv.ParseFloat(text, 64)
		if err != nil {
			return Token{Type: ILLEGAL, Lexeme: lexeme, Literal: err.Error(), Column: col}
		}
		return Token{Type: DOUBLE, Lexeme: lexeme, Literal: v, Column: col}
	}
	if isLong {
		v, err := strconv.ParseInt(text, 0, 64)
		if err != nil {
			return Token{Type: ILLEGAL, Lexeme: lexeme, Literal: "the value is out of range", Column: col}
		}
		return Token{Type: LONG, Lexeme: lexeme, Literal: v, Column: col}
	}
	v, err := strconv.ParseInt(text, 0, 32)
	if err != nil {
		return Token{Type: ILLEGAL, Lexeme: lexeme, Literal: "the value is out of range for Int (use the L suffix)", Column: col}
	}
	return Token{Type: INT, Lexeme: lexeme, Literal: int32(v), Column: col}
}

func isHexDigit(ch rune) bool {
	return isDigit(ch) || ('a' <= ch && ch <= 'f') || ('A' <= ch && ch <= 'F')
}

func isLetter(ch rune) bool {
	return 'a' <= ch && ch <= 'z' || 'A' <= ch && ch <= 'Z' || ch == '_' || (ch >= 0x80 && unicode.IsLetter(ch))
}

func isDigit(ch rune) bool {
	return '0' <= ch && ch <= '9'
}

func (l *Lexer) peekChar() rune {
	if l.readPosition >= len(l.input) {
		return 0
	}
	r, _ := utf8.DecodeRuneInString(l.input[l.readPosition:])
	return r
}

func newToken(tokenType TokenType, ch rune, col int) Token {
	literal := string(ch)
	return Token{Type: tokenType, Lexeme: literal, Literal: literal, Column: col}
}

func (l *Lexer) skipWhitespace() {
	for l.ch == ' ' || l.ch == '\t' || l.ch == '\r' || l.ch == '\n' {
		l.readChar()
	}
}
