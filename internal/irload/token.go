package irload

import "fmt"

type TokenType int

const (
	ILLEGAL TokenType = iota
	EOF

	IDENT
	INT
	LONG
	DOUBLE
	STRING
	CHAR

	DOT
	COMMA
	COLON
	QUESTION
	STAR
	ASSIGN
	ARROW
	LPAREN
	RPAREN
	LT
	GT

	// Keywords
	NULL
	TRUE
	FALSE
	THIS
	SUPER
	RETURN
	VAL
	VAR
	IN
	OUT
	SUSPEND
	DYNAMIC
	REIFIED
	AS
)

var tokenNames = map[TokenType]string{
	ILLEGAL:  "ILLEGAL",
	EOF:      "end of input",
	IDENT:    "identifier",
	INT:      "integer",
	LONG:     "long",
	DOUBLE:   "double",
	STRING:   "string",
	CHAR:     "char",
	DOT:      "'.'",
	COMMA:    "','",
	COLON:    "':'",
	QUESTION: "'?'",
	STAR:     "'*'",
	ASSIGN:   "'='",
	ARROW:    "'->'",
	LPAREN:   "'('",
	RPAREN:   "')'",
	LT:       "'<'",
	GT:       "'>'",
	NULL:     "null",
	TRUE:     "true",
	FALSE:    "false",
	THIS:     "this",
	SUPER:    "super",
	RETURN:   "return",
	VAL:      "val",
	VAR:      "var",
	IN:       "in",
	OUT:      "out",
	SUSPEND:  "suspend",
	DYNAMIC:  "dynamic",
	REIFIED:  "reified",
	AS:       "as",
}

func (t TokenType) String() string {
	if s, ok := tokenNames[t]; ok {
		return s
	}
	return fmt.Sprintf("token(%d)", int(t))
}

var keywords = map[string]TokenType{
	"null":    NULL,
	"true":    TRUE,
	"false":   FALSE,
	"this":    THIS,
	"super":   SUPER,
	"return":  RETURN,
	"val":     VAL,
	"var":     VAR,
	"in":      IN,
	"out":     OUT,
	"suspend": SUSPEND,
	"dynamic": DYNAMIC,
	"reified": REIFIED,
	"as":      AS,
}

// LookupIdent returns the keyword token of ident, or IDENT.
func LookupIdent(ident string) TokenType {
	if tok, ok := keywords[ident]; ok {
		return tok
	}
	return IDENT
}

// Token is a lexeme of a type or expression string. Literal holds the
// decoded value of literals and the text of everything else.
type Token struct {
	Type    TokenType
	Lexeme  string
	Literal any
	Column  int
}
