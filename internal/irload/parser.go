package irload

import (
	"fmt"

	"github.com/funvibe/semcore/internal/diagnostics"
	"github.com/funvibe/semcore/internal/ir"
	"github.com/funvibe/semcore/internal/names"
	"github.com/funvibe/semcore/internal/typesystem"
)

const (
	_ int = iota
	LOWEST
	POSTFIX // a.b, f(x)
)

var precedences = map[TokenType]int{
	DOT:    POSTFIX,
	LPAREN: POSTFIX,
}

type (
	prefixParseFn func() ir.Expression
	infixParseFn  func(ir.Expression) ir.Expression
)

// Parser reads one type, expression or statement string. Positions are
// reported relative to base, the position of the string in its file.
type Parser struct {
	ld     *loader
	base   diagnostics.Position
	tokens []Token
	pos    int

	curToken  Token
	peekToken Token

	errors []*diagnostics.DiagnosticError

	prefixParseFns map[TokenType]prefixParseFn
	infixParseFns  map[TokenType]infixParseFn
}

func newParser(ld *loader, base diagnostics.Position, input string) *Parser {
	p := &Parser{ld: ld, base: base, tokens: NewLexer(input).Tokens()}

	p.prefixParseFns = map[TokenType]prefixParseFn{
		INT:    p.parseLiteral,
		LONG:   p.parseLiteral,
		DOUBLE: p.parseLiteral,
		STRING: p.parseLiteral,
		CHAR:   p.parseLiteral,
		TRUE:   p.parseLiteral,
		FALSE:  p.parseLiteral,
		NULL:   p.parseLiteral,
		IDENT:  p.parseName,
		THIS:   p.parseName,
		LPAREN: p.parseGroupedExpression,
	}
	p.infixParseFns = map[TokenType]infixParseFn{
		DOT:    p.parseMemberExpression,
		LPAREN: p.parseInvokeExpression,
	}

	p.nextToken()
	p.nextToken()
	return p
}

func (p *Parser) nextToken() {
	p.curToken = p.peekToken
	if p.pos < len(p.tokens) {
		p.peekToken = p.tokens[p.pos]
		p.pos++
	}
}

func (p *Parser) curTokenIs(t TokenType) bool  { return p.curToken.Type == t }
func (p *Parser) peekTokenIs(t TokenType) bool { return p.peekToken.Type == t }

func (p *Parser) expectPeek(t TokenType) bool {
	if p.peekTokenIs(t) {
		p.nextToken()
		return true
	}
	p.errorf(p.peekToken, "expected %s, got %s", t, describe(p.peekToken))
	return false
}

func (p *Parser) peekPrecedence() int {
	if pr, ok := precedences[p.peekToken.Type]; ok {
		return pr
	}
	return LOWEST
}

func (p *Parser) at(tok Token) diagnostics.Position {
	pos := p.base
	pos.Column += tok.Column - 1
	return pos
}

func (p *Parser) errorf(tok Token, format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	if tok.Type == ILLEGAL {
		if s, ok := tok.Literal.(string); ok && s != tok.Lexeme {
			msg = s
		}
	}
	p.errors = append(p.errors, diagnostics.NewError(diagnostics.ErrP002, p.at(tok), msg))
}

func describe(tok Token) string {
	switch tok.Type {
	case EOF:
		return tok.Type.String()
	case ILLEGAL:
		return fmt.Sprintf("%q", tok.Lexeme)
	}
	return fmt.Sprintf("%s %q", tok.Type, tok.Lexeme)
}

// finish reports trailing input after a complete construct.
func (p *Parser) finish() {
	if !p.peekTokenIs(EOF) {
		p.errorf(p.peekToken, "unexpected %s", describe(p.peekToken))
	}
}

// Types

// ParseType parses a type:
//
//	a.b.C<T, out U, *>?   (A, B) -> C   R.(A) -> C   suspend () -> Unit   dynamic
func (p *Parser) ParseType() ir.TypeRef {
	t := p.parseType()
	p.finish()
	return t
}

func (p *Parser) parseType() ir.TypeRef {
	if p.curTokenIs(SUSPEND) {
		start := p.curToken
		p.nextToken()
		t := p.parseType()
		fn, ok := t.(*ir.FunctionTypeRef)
		if !ok {
			p.errorf(start, "suspend applies to function types only")
			return t
		}
		fn.Source = p.at(start)
		fn.Suspend = true
		return fn
	}

	switch p.curToken.Type {
	case DYNAMIC:
		return &ir.DynamicTypeRef{Source: p.at(p.curToken)}
	case LPAREN:
		return p.parseParenthesizedType(nil)
	case IDENT:
		return p.parseUserType()
	}
	p.errorf(p.curToken, "expected a type, got %s", describe(p.curToken))
	return &ir.ErrorTypeRef{Source: p.at(p.curToken), Reason: "syntax error"}
}

func (p *Parser) parseUserType() ir.TypeRef {
	start := p.curToken
	ref := &ir.UserTypeRef{Source: p.at(start), Qualifier: []names.Name{names.Name(p.curToken.Lexeme)}}
	for p.peekTokenIs(DOT) {
		p.nextToken()
		if p.peekTokenIs(LPAREN) {
			p.nextToken()
			return p.parseParenthesizedType(ref)
		}
		if !p.expectPeek(IDENT) {
			return ref
		}
		ref.Qualifier = append(ref.Qualifier, names.Name(p.curToken.Lexeme))
	}
	if p.peekTokenIs(LT) {
		p.nextToken()
		ref.Arguments = p.parseTypeArguments()
	}
	if p.peekTokenIs(QUESTION) {
		p.nextToken()
		ref.Nullable = true
	}
	if p.peekTokenIs(DOT) {
		p.nextToken()
		if p.expectPeek(LPAREN) {
			return p.parseParenthesizedType(ref)
		}
	}
	return ref
}

// parseTypeArguments parses the list after '<' up to and including '>'.
func (p *Parser) parseTypeArguments() []ir.TypeArgument {
	var args []ir.TypeArgument
	for {
		p.nextToken()
		switch p.curToken.Type {
		case STAR:
			args = append(args, ir.TypeArgument{Variance: typesystem.Star})
		case IN, OUT:
			v := typesystem.In
			if p.curTokenIs(OUT) {
				v = typesystem.Out
			}
			p.nextToken()
			args = append(args, ir.TypeArgument{Variance: v, Type: p.parseType()})
		default:
			args = append(args, ir.TypeArgument{Variance: typesystem.Invariant, Type: p.parseType()})
		}
		if !p.peekTokenIs(COMMA) {
			break
		}
		p.nextToken()
	}
	p.expectPeek(GT)
	return args
}

// parseParenthesizedType parses from '(' either a function type with the
// given receiver or, without a receiver, a parenthesized type.
func (p *Parser) parseParenthesizedType(receiver ir.TypeRef) ir.TypeRef {
	start := p.curToken
	var params []ir.TypeRef
	if !p.peekTokenIs(RPAREN) {
		for {
			p.nextToken()
			// Parameter names are allowed and ignored: (x: Int) -> Unit.
			if p.curTokenIs(IDENT) && p.peekTokenIs(COLON) {
				p.nextToken()
				p.nextToken()
			}
			params = append(params, p.parseType())
			if !p.peekTokenIs(COMMA) {
				break
			}
			p.nextToken()
		}
	}
	if !p.expectPeek(RPAREN) {
		return &ir.ErrorTypeRef{Source: p.at(start), Reason: "syntax error"}
	}

	if !p.peekTokenIs(ARROW) {
		if receiver != nil || len(params) != 1 {
			p.expectPeek(ARROW)
			return &ir.ErrorTypeRef{Source: p.at(start), Reason: "syntax error"}
		}
		inner := params[0]
		if p.peekTokenIs(QUESTION) {
			p.nextToken()
			switch t := inner.(type) {
			case *ir.UserTypeRef:
				t.Nullable = true
			case *ir.FunctionTypeRef:
				t.Nullable = true
			}
		}
		return inner
	}
	p.nextToken()
	p.nextToken()
	fn := &ir.FunctionTypeRef{Source: p.at(start), Receiver: receiver, Parameters: params}
	fn.Return = p.parseType()
	if receiver != nil {
		fn.Source = receiver.Pos()
	}
	return fn
}

// Expressions

func (p *Parser) ParseExpression() ir.Expression {
	e := p.parseExpression(LOWEST)
	p.finish()
	return e
}

func (p *Parser) parseExpression(precedence int) ir.Expression {
	prefix := p.prefixParseFns[p.curToken.Type]
	if prefix == nil {
		p.errorf(p.curToken, "expected an expression, got %s", describe(p.curToken))
		return ir.NewErrorExpression(p.at(p.curToken), "syntax error")
	}
	leftExp := prefix()

	for precedence < p.peekPrecedence() {
		infix := p.infixParseFns[p.peekToken.Type]
		if infix == nil {
			return leftExp
		}
		p.nextToken()
		leftExp = infix(leftExp)
	}
	return leftExp
}

func (p *Parser) parseLiteral() ir.Expression {
	pos := p.at(p.curToken)
	switch p.curToken.Type {
	case INT:
		return ir.NewConst(pos, ir.ConstInt, p.curToken.Literal)
	case LONG:
		return ir.NewConst(pos, ir.ConstLong, p.curToken.Literal)
	case DOUBLE:
		return ir.NewConst(pos, ir.ConstDouble, p.curToken.Literal)
	case STRING:
		return ir.NewConst(pos, ir.ConstString, p.curToken.Literal)
	case CHAR:
		return ir.NewConst(pos, ir.ConstChar, p.curToken.Literal)
	case TRUE, FALSE:
		return ir.NewConst(pos, ir.ConstBoolean, p.curTokenIs(TRUE))
	}
	return ir.NewConst(pos, ir.ConstNull, nil)
}

// parseName parses a simple name, this, or a call by name.
func (p *Parser) parseName() ir.Expression {
	tok := p.curToken
	name := names.Name(tok.Lexeme)
	if tok.Type == IDENT && p.peekTokenIs(LPAREN) {
		p.nextToken()
		return ir.NewFunctionCall(p.at(tok), nil, name, p.parseCallArguments()...)
	}
	return ir.NewQualifiedAccess(p.at(tok), nil, name)
}

func (p *Parser) parseGroupedExpression() ir.Expression {
	p.nextToken()
	exp := p.parseExpression(LOWEST)
	if !p.expectPeek(RPAREN) {
		return ir.NewErrorExpression(exp.Pos(), "syntax error")
	}
	return exp
}

func (p *Parser) parseMemberExpression(receiver ir.Expression) ir.Expression {
	if !p.expectPeek(IDENT) {
		return ir.NewErrorExpression(p.at(p.curToken), "syntax error")
	}
	tok := p.curToken
	name := names.Name(tok.Lexeme)
	if p.peekTokenIs(LPAREN) {
		p.nextToken()
		return ir.NewFunctionCall(p.at(tok), receiver, name, p.parseCallArguments()...)
	}
	return ir.NewQualifiedAccess(p.at(tok), receiver, name)
}

// parseInvokeExpression handles a call on a parenthesized expression.
// Only named calls are representable.
func (p *Parser) parseInvokeExpression(callee ir.Expression) ir.Expression {
	p.errorf(p.curToken, "a call needs a name, e.g. f(x) or a.f(x)")
	p.parseCallArguments()
	return ir.NewErrorExpression(callee.Pos(), "syntax error")
}

// parseCallArguments parses from '(' up to and including ')'.
func (p *Parser) parseCallArguments() []ir.Expression {
	var args []ir.Expression
	if p.peekTokenIs(RPAREN) {
		p.nextToken()
		return args
	}
	for {
		p.nextToken()
		args = append(args, p.parseExpression(LOWEST))
		if !p.peekTokenIs(COMMA) {
			break
		}
		p.nextToken()
	}
	p.expectPeek(RPAREN)
	return args
}

// Statements

// ParseStatement parses `return [expr]`, `val|var name[: Type] [= expr]`
// or an expression.
func (p *Parser) ParseStatement() ir.Statement {
	var s ir.Statement
	switch p.curToken.Type {
	case RETURN:
		s = p.parseReturn()
	case VAL, VAR:
		s = p.parseLocalProperty()
	default:
		s = p.parseExpression(LOWEST)
	}
	p.finish()
	return s
}

func (p *Parser) parseReturn() ir.Statement {
	pos := p.at(p.curToken)
	if p.peekTokenIs(EOF) {
		return ir.NewReturn(pos, nil)
	}
	p.nextToken()
	return ir.NewReturn(pos, p.parseExpression(LOWEST))
}

func (p *Parser) parseLocalProperty() ir.Statement {
	start := p.curToken
	isVar := p.curTokenIs(VAR)
	if !p.expectPeek(IDENT) {
		return ir.NewErrorExpression(p.at(start), "syntax error")
	}
	name := names.Name(p.curToken.Lexeme)
	var typ ir.TypeRef
	if p.peekTokenIs(COLON) {
		p.nextToken()
		p.nextToken()
		typ = p.parseType()
	}
	var init ir.Expression
	if p.peekTokenIs(ASSIGN) {
		p.nextToken()
		p.nextToken()
		init = p.parseExpression(LOWEST)
	}
	return ir.PropertyBuilder{
		CallableBuilder: ir.CallableBuilder{
			Source:        p.at(start),
			Session:       p.ld.session,
			CallableID:    names.CallableID{Package: p.ld.pkg, Callable: name},
			Status:        ir.RawStatus(0),
			ReturnTypeRef: typ,
		},
		IsVar:       isVar,
		IsLocal:     true,
		Initializer: init,
	}.Build()
}

// Declaration headers

const starImport names.Name = "*"

// typeParameterHeader is `[reified] [in|out] T [: Bound]`.
type typeParameterHeader struct {
	name     names.Name
	variance typesystem.Variance
	reified  bool
	bound    ir.TypeRef
}

func (p *Parser) ParseTypeParameter() typeParameterHeader {
	var h typeParameterHeader
	if p.curTokenIs(REIFIED) {
		h.reified = true
		p.nextToken()
	}
	switch p.curToken.Type {
	case IN:
		h.variance = typesystem.In
		p.nextToken()
	case OUT:
		h.variance = typesystem.Out
		p.nextToken()
	}
	if !p.curTokenIs(IDENT) {
		p.errorf(p.curToken, "expected a type parameter name, got %s", describe(p.curToken))
		return h
	}
	h.name = names.Name(p.curToken.Lexeme)
	if p.peekTokenIs(COLON) {
		p.nextToken()
		p.nextToken()
		h.bound = p.parseType()
	}
	p.finish()
	return h
}

// parameterHeader is `[modifiers] [val|var] name: Type [= default]`.
type parameterHeader struct {
	pos          diagnostics.Position
	name         names.Name
	modifiers    ir.ModifierSet
	property     bool
	isVar        bool
	typ          ir.TypeRef
	defaultValue ir.Expression
}

func (p *Parser) ParseParameter() parameterHeader {
	h := parameterHeader{pos: p.at(p.curToken)}
	for p.curTokenIs(IDENT) && (p.peekTokenIs(IDENT) || p.peekTokenIs(VAL) || p.peekTokenIs(VAR)) {
		m, ok := ir.ParseModifier(p.curToken.Lexeme)
		if !ok {
			p.errorf(p.curToken, "unknown modifier %q", p.curToken.Lexeme)
		}
		h.modifiers = h.modifiers.With(m)
		p.nextToken()
	}
	if p.curTokenIs(VAL) || p.curTokenIs(VAR) {
		h.property = true
		h.isVar = p.curTokenIs(VAR)
		p.nextToken()
	}
	if !p.curTokenIs(IDENT) {
		p.errorf(p.curToken, "expected a parameter name, got %s", describe(p.curToken))
		return h
	}
	h.pos = p.at(p.curToken)
	h.name = names.Name(p.curToken.Lexeme)
	if p.peekTokenIs(COLON) {
		p.nextToken()
		p.nextToken()
		h.typ = p.parseType()
	}
	if p.peekTokenIs(ASSIGN) {
		p.nextToken()
		p.nextToken()
		h.defaultValue = p.parseExpression(LOWEST)
	}
	p.finish()
	return h
}

// importHeader is `a.b.C [as D]` or `a.b.*`.
func (p *Parser) ParseImport() ir.Import {
	var segs []names.Name
	var imp ir.Import
	for {
		switch {
		case p.curTokenIs(IDENT):
			segs = append(segs, names.Name(p.curToken.Lexeme))
		case p.curTokenIs(STAR) && len(segs) > 0:
			imp.FqName = names.FqNameOf(segs...).Child(starImport)
			p.finish()
			return imp
		default:
			p.errorf(p.curToken, "expected a name, got %s", describe(p.curToken))
			return imp
		}
		if !p.peekTokenIs(DOT) {
			break
		}
		p.nextToken()
		p.nextToken()
	}
	imp.FqName = names.FqNameOf(segs...)
	if p.peekTokenIs(AS) {
		p.nextToken()
		if p.expectPeek(IDENT) {
			imp.Alias = names.Name(p.curToken.Lexeme)
		}
	}
	p.finish()
	return imp
}

// ParseAnnotation parses `a.b.Name[(args)]`.
func (p *Parser) ParseAnnotation() *ir.Annotation {
	start := p.curToken
	if !p.curTokenIs(IDENT) {
		p.errorf(p.curToken, "expected an annotation name, got %s", describe(p.curToken))
		return ir.NewAnnotation(p.at(start), &ir.ErrorTypeRef{Source: p.at(start), Reason: "syntax error"})
	}
	ref := &ir.UserTypeRef{Source: p.at(start), Qualifier: []names.Name{names.Name(start.Lexeme)}}
	for p.peekTokenIs(DOT) {
		p.nextToken()
		if !p.expectPeek(IDENT) {
			break
		}
		ref.Qualifier = append(ref.Qualifier, names.Name(p.curToken.Lexeme))
	}
	var args []ir.Expression
	if p.peekTokenIs(LPAREN) {
		p.nextToken()
		args = p.parseCallArguments()
	}
	p.finish()
	return ir.NewAnnotation(p.at(start), ref, args...)
}

// ParseDelegation parses the delegated constructor call `this(args)` or
// `super(args)`.
func (p *Parser) ParseDelegation() *ir.DelegatedConstructorCall {
	start := p.curToken
	if !p.curTokenIs(THIS) && !p.curTokenIs(SUPER) {
		p.errorf(p.curToken, "expected this(...) or super(...), got %s", describe(p.curToken))
		return nil
	}
	if !p.expectPeek(LPAREN) {
		return nil
	}
	args := p.parseCallArguments()
	p.finish()
	return ir.NewDelegatedConstructorCall(p.at(start), nil, start.Type == SUPER, args...)
}
