package fluxion

import (
	"fmt"
	"strconv"
	"strings"
	"text/scanner"
)

// lexSource turns playbook source into a flat token stream. Newlines never
// become tokens; instead each token records whether a newline preceded it,
// which is what statement termination and command detection key off.
func lexSource(src, file string) ([]tokenInfo, error) {
	var s scanner.Scanner
	s.Init(strings.NewReader(src))
	s.Filename = file
	s.Mode = scanner.ScanIdents | scanner.ScanInts | scanner.ScanFloats |
		scanner.ScanStrings | scanner.ScanComments | scanner.SkipComments
	s.Whitespace = 1<<'\t' | 1<<'\r' | 1<<' '

	var scanErr error
	s.Error = func(sc *scanner.Scanner, msg string) {
		if scanErr == nil {
			scanErr = &ParseError{
				Message: msg,
				File:    file,
				Line:    sc.Position.Line,
				Column:  sc.Position.Column,
			}
		}
	}

	var tokens []tokenInfo
	nlPending := false
	push := func(typ Token, value string, pos scanner.Position, isFloat bool) {
		tokens = append(tokens, tokenInfo{
			typ:      typ,
			value:    value,
			line:     pos.Line,
			col:      pos.Column,
			nlBefore: nlPending,
			isFloat:  isFloat,
		})
		nlPending = false
	}

	for {
		r := s.Scan()
		if scanErr != nil {
			return nil, scanErr
		}
		if r == scanner.EOF {
			break
		}
		pos := s.Position
		text := s.TokenText()
		switch r {
		case '\n':
			nlPending = true
		case '#':
			for s.Peek() != '\n' && s.Peek() != scanner.EOF {
				s.Next()
			}
		case scanner.Ident:
			switch {
			case text == "true" || text == "false":
				push(BOOL, text, pos, false)
			case text == "null":
				push(NULL, text, pos, false)
			default:
				if _, ok := keywords[text]; ok {
					push(KEYWORD, text, pos, false)
				} else {
					push(IDENT, text, pos, false)
				}
			}
		case scanner.Int:
			push(NUMBER, text, pos, false)
		case scanner.Float:
			push(NUMBER, text, pos, true)
		case scanner.String:
			unquoted, err := strconv.Unquote(text)
			if err != nil {
				return nil, &ParseError{
					Message: fmt.Sprintf("malformed string literal %s", text),
					File:    file,
					Line:    pos.Line,
					Column:  pos.Column,
				}
			}
			push(STRING, unquoted, pos, false)
		case '=':
			if s.Peek() == '=' {
				s.Next()
				push(OPERATOR, "==", pos, false)
			} else {
				push(ASSIGN, "=", pos, false)
			}
		case '!':
			if s.Peek() == '=' {
				s.Next()
				push(OPERATOR, "!=", pos, false)
			} else {
				push(OPERATOR, "!", pos, false)
			}
		case '<':
			if s.Peek() == '=' {
				s.Next()
				push(OPERATOR, "<=", pos, false)
			} else {
				push(OPERATOR, "<", pos, false)
			}
		case '>':
			if s.Peek() == '=' {
				s.Next()
				push(OPERATOR, ">=", pos, false)
			} else {
				push(OPERATOR, ">", pos, false)
			}
		case '&':
			if s.Peek() != '&' {
				return nil, &ParseError{Message: "unexpected character '&'", File: file, Line: pos.Line, Column: pos.Column}
			}
			s.Next()
			push(OPERATOR, "&&", pos, false)
		case '|':
			if s.Peek() != '|' {
				return nil, &ParseError{Message: "unexpected character '|'", File: file, Line: pos.Line, Column: pos.Column}
			}
			s.Next()
			push(OPERATOR, "||", pos, false)
		case '?':
			if s.Peek() == '?' {
				s.Next()
				push(OPERATOR, "??", pos, false)
			} else {
				push(OPERATOR, "?", pos, false)
			}
		case '+', '-', '*', '/', '%':
			push(OPERATOR, string(r), pos, false)
		case '{':
			push(LBRACE, text, pos, false)
		case '}':
			push(RBRACE, text, pos, false)
		case '[':
			push(LBRACKET, text, pos, false)
		case ']':
			push(RBRACKET, text, pos, false)
		case '(':
			push(LPAREN, text, pos, false)
		case ')':
			push(RPAREN, text, pos, false)
		case ',':
			push(COMMA, text, pos, false)
		case ':':
			push(COLON, text, pos, false)
		case '.':
			push(DOT, text, pos, false)
		default:
			return nil, &ParseError{
				Message: fmt.Sprintf("unexpected character %q", r),
				File:    file,
				Line:    pos.Line,
				Column:  pos.Column,
			}
		}
	}
	last := scanner.Position{Line: s.Position.Line, Column: s.Position.Column}
	tokens = append(tokens, tokenInfo{typ: EOF, line: last.Line, col: last.Column, nlBefore: nlPending})
	return tokens, nil
}

type parser struct {
	tokens []tokenInfo
	pos    int
	file   string
	lines  []string
}

func newParser(src, file string) (*parser, error) {
	tokens, err := lexSource(src, file)
	if err != nil {
		return nil, err
	}
	return &parser{tokens: tokens, file: file, lines: strings.Split(src, "\n")}, nil
}

// parseSource is the parse entry point; the result may still contain
// CommandNode statements and must go through Desugar before evaluation.
func parseSource(src, file string) ([]Node, error) {
	p, err := newParser(src, file)
	if err != nil {
		return nil, err
	}
	var stmts []Node
	for p.cur().typ != EOF {
		stmt, err := p.parseStatement()
		if err != nil {
			return nil, err
		}
		stmts = append(stmts, stmt)
	}
	return stmts, nil
}

func (p *parser) cur() tokenInfo { return p.tokens[p.pos] }

func (p *parser) peek(n int) tokenInfo {
	if p.pos+n >= len(p.tokens) {
		return p.tokens[len(p.tokens)-1]
	}
	return p.tokens[p.pos+n]
}

func (p *parser) advance() tokenInfo {
	tok := p.tokens[p.pos]
	if p.pos < len(p.tokens)-1 {
		p.pos++
	}
	return tok
}

func (p *parser) errorf(tok tokenInfo, format string, args ...any) error {
	ctx := ""
	if tok.line-1 >= 0 && tok.line-1 < len(p.lines) {
		ctx = strings.TrimRight(p.lines[tok.line-1], "\r")
	}
	return &ParseError{
		Message: fmt.Sprintf(format, args...),
		File:    p.file,
		Line:    tok.line,
		Column:  tok.col,
		Context: ctx,
	}
}

func (p *parser) expect(typ Token) (tokenInfo, error) {
	tok := p.cur()
	if tok.typ != typ {
		return tok, p.errorf(tok, "expected %s, found %s %q", typ, tok.typ, tok.value)
	}
	return p.advance(), nil
}

func (p *parser) parseStatement() (Node, error) {
	tok := p.cur()
	switch tok.typ {
	case KEYWORD:
		switch tok.value {
		case "let":
			return p.parseLet()
		case "return":
			return p.parseReturn()
		case "if":
			return p.parseIf()
		case "for":
			return p.parseFor()
		case "func", "fn":
			return p.parseFunc()
		case "else", "in":
			return nil, p.errorf(tok, "unexpected keyword %q", tok.value)
		}
	case IDENT:
		next := p.peek(1)
		if next.typ == ASSIGN {
			return p.parseAssign()
		}
		// "name key=..." on one line is the bare-command shorthand.
		if next.typ == IDENT && !next.nlBefore && p.peek(2).typ == ASSIGN {
			return p.parseCommand()
		}
	}
	return p.parseExpression()
}

func (p *parser) parseLet() (Node, error) {
	p.advance()
	name, err := p.expect(IDENT)
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(ASSIGN); err != nil {
		return nil, err
	}
	value, err := p.parseExpression()
	if err != nil {
		return nil, err
	}
	return &LetNode{Name: name.value, Value: value}, nil
}

func (p *parser) parseAssign() (Node, error) {
	name := p.advance()
	p.advance() // =
	value, err := p.parseExpression()
	if err != nil {
		return nil, err
	}
	return &AssignNode{Name: name.value, Value: value, position: position{name.line, name.col}}, nil
}

func (p *parser) parseReturn() (Node, error) {
	p.advance()
	next := p.cur()
	// A bare return ends at the line break or the enclosing brace.
	if next.typ == EOF || next.typ == RBRACE || next.nlBefore {
		return &ReturnNode{}, nil
	}
	value, err := p.parseExpression()
	if err != nil {
		return nil, err
	}
	return &ReturnNode{Value: value}, nil
}

func (p *parser) parseIf() (Node, error) {
	p.advance()
	cond, err := p.parseExpression()
	if err != nil {
		return nil, err
	}
	then, err := p.parseBlock()
	if err != nil {
		return nil, err
	}
	node := &IfNode{Condition: cond, Then: then}
	if p.cur().typ == KEYWORD && p.cur().value == "else" {
		p.advance()
		if p.cur().typ == KEYWORD && p.cur().value == "if" {
			elseIf, err := p.parseIf()
			if err != nil {
				return nil, err
			}
			node.Else = elseIf
		} else {
			elseBlock, err := p.parseBlock()
			if err != nil {
				return nil, err
			}
			node.Else = elseBlock
		}
	}
	return node, nil
}

func (p *parser) parseFor() (Node, error) {
	kw := p.advance()
	name, err := p.expect(IDENT)
	if err != nil {
		return nil, err
	}
	tok := p.cur()
	if tok.typ != KEYWORD || tok.value != "in" {
		return nil, p.errorf(tok, "expected \"in\", found %q", tok.value)
	}
	p.advance()
	iter, err := p.parseExpression()
	if err != nil {
		return nil, err
	}
	body, err := p.parseBlock()
	if err != nil {
		return nil, err
	}
	return &ForNode{Var: name.value, Iterable: iter, Body: body, position: position{kw.line, kw.col}}, nil
}

func (p *parser) parseFunc() (Node, error) {
	p.advance()
	name, err := p.expect(IDENT)
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(LPAREN); err != nil {
		return nil, err
	}
	var params []string
	for p.cur().typ != RPAREN {
		param, err := p.expect(IDENT)
		if err != nil {
			return nil, err
		}
		params = append(params, param.value)
		if p.cur().typ == COMMA {
			p.advance()
		} else if p.cur().typ != RPAREN {
			return nil, p.errorf(p.cur(), "expected \",\" or \")\" in parameter list")
		}
	}
	p.advance()
	body, err := p.parseBlock()
	if err != nil {
		return nil, err
	}
	return &FuncNode{Name: name.value, Params: params, Body: body}, nil
}

func (p *parser) parseBlock() (*BlockNode, error) {
	if _, err := p.expect(LBRACE); err != nil {
		return nil, err
	}
	var stmts []Node
	for p.cur().typ != RBRACE {
		if p.cur().typ == EOF {
			return nil, p.errorf(p.cur(), "unterminated block, expected \"}\"")
		}
		stmt, err := p.parseStatement()
		if err != nil {
			return nil, err
		}
		stmts = append(stmts, stmt)
	}
	p.advance()
	return &BlockNode{Stmts: stmts}, nil
}

// parseCommand reads "name k1=v1, k2=v2". Pairs may be separated by commas
// or plain spaces; a newline ends the command.
func (p *parser) parseCommand() (Node, error) {
	name := p.advance()
	cmd := &CommandNode{Name: name.value, position: position{name.line, name.col}}
	for {
		key, err := p.expect(IDENT)
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(ASSIGN); err != nil {
			return nil, err
		}
		value, err := p.parseExpression()
		if err != nil {
			return nil, err
		}
		cmd.Pairs = append(cmd.Pairs, MapEntry{Key: key.value, Value: value})
		if p.cur().typ == COMMA {
			p.advance()
			continue
		}
		next := p.cur()
		if next.typ == IDENT && !next.nlBefore && p.peek(1).typ == ASSIGN {
			continue
		}
		break
	}
	return cmd, nil
}

func (p *parser) parseExpression() (Node, error) {
	expr, err := p.parseBinary(1)
	if err != nil {
		return nil, err
	}
	tok := p.cur()
	if tok.typ == OPERATOR && tok.value == "?" && !tok.nlBefore {
		p.advance()
		trueExpr, err := p.parseExpression()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(COLON); err != nil {
			return nil, err
		}
		falseExpr, err := p.parseExpression()
		if err != nil {
			return nil, err
		}
		return &TernaryNode{Condition: expr, TrueExpr: trueExpr, FalseExpr: falseExpr}, nil
	}
	return expr, nil
}

func (p *parser) parseBinary(minPrec int) (Node, error) {
	left, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	for {
		tok := p.cur()
		if tok.nlBefore {
			return left, nil
		}
		if tok.typ == DOT {
			p.advance()
			name := p.cur()
			if name.typ != IDENT && !(name.typ == NUMBER && !name.isFloat) {
				return nil, p.errorf(name, "expected field name after \".\", found %s %q", name.typ, name.value)
			}
			p.advance()
			left = &DotNode{Left: left, Name: name.value, position: position{name.line, name.col}}
			continue
		}
		// "r.0" lexes the ".0" tail as one float token; reinterpret it as
		// list element access.
		if tok.typ == NUMBER && tok.isFloat && strings.HasPrefix(tok.value, ".") && isDigits(tok.value[1:]) {
			p.advance()
			left = &DotNode{Left: left, Name: tok.value[1:], position: position{tok.line, tok.col}}
			continue
		}
		if tok.typ != OPERATOR {
			return left, nil
		}
		prec := getPrecedence(tok.value)
		if prec == 0 || prec < minPrec {
			return left, nil
		}
		p.advance()
		right, err := p.parseBinary(prec + 1)
		if err != nil {
			return nil, err
		}
		if tok.value == "??" {
			left = &CoalesceNode{Left: left, Right: right}
		} else {
			left = &BinaryNode{Op: tok.value, Left: left, Right: right, position: position{tok.line, tok.col}}
		}
	}
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

func (p *parser) parseUnary() (Node, error) {
	tok := p.cur()
	if tok.typ == OPERATOR && (tok.value == "-" || tok.value == "!") {
		p.advance()
		child, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return &UnaryNode{Op: tok.value, Child: child, position: position{tok.line, tok.col}}, nil
	}
	return p.parsePrimary()
}

func (p *parser) parsePrimary() (Node, error) {
	tok := p.cur()
	switch tok.typ {
	case NUMBER:
		p.advance()
		if tok.isFloat {
			f, err := strconv.ParseFloat(tok.value, 64)
			if err != nil {
				return nil, p.errorf(tok, "invalid number %q", tok.value)
			}
			return &LiteralNode{Value: f}, nil
		}
		n, err := strconv.Atoi(tok.value)
		if err != nil {
			return nil, p.errorf(tok, "invalid number %q", tok.value)
		}
		return &LiteralNode{Value: n}, nil
	case STRING:
		p.advance()
		return p.parseStringLiteral(tok)
	case BOOL:
		p.advance()
		return &LiteralNode{Value: tok.value == "true"}, nil
	case NULL:
		p.advance()
		return &LiteralNode{Value: nil}, nil
	case IDENT:
		next := p.peek(1)
		if next.typ == LPAREN && !next.nlBefore {
			return p.parseCall()
		}
		p.advance()
		return &IdentifierNode{Name: tok.value, position: position{tok.line, tok.col}}, nil
	case LPAREN:
		p.advance()
		inner, err := p.parseExpression()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(RPAREN); err != nil {
			return nil, err
		}
		return &GroupNode{Child: inner}, nil
	case LBRACKET:
		return p.parseList()
	case LBRACE:
		return p.parseMap()
	}
	return nil, p.errorf(tok, "unexpected token %s %q", tok.typ, tok.value)
}

func (p *parser) parseCall() (Node, error) {
	name := p.advance()
	p.advance() // (
	call := &CallNode{Name: name.value, position: position{name.line, name.col}}
	for p.cur().typ != RPAREN {
		if p.cur().typ == EOF {
			return nil, p.errorf(p.cur(), "unterminated call to %s", name.value)
		}
		if p.cur().typ == IDENT && p.peek(1).typ == ASSIGN {
			key := p.advance()
			p.advance() // =
			value, err := p.parseExpression()
			if err != nil {
				return nil, err
			}
			call.Kwargs = append(call.Kwargs, KwArg{Name: key.value, Value: value})
		} else {
			if len(call.Kwargs) > 0 {
				return nil, p.errorf(p.cur(), "positional argument after named argument in call to %s", name.value)
			}
			value, err := p.parseExpression()
			if err != nil {
				return nil, err
			}
			call.Args = append(call.Args, value)
		}
		if p.cur().typ == COMMA {
			p.advance()
		} else if p.cur().typ != RPAREN {
			return nil, p.errorf(p.cur(), "expected \",\" or \")\" in call to %s", name.value)
		}
	}
	p.advance()
	return call, nil
}

func (p *parser) parseList() (Node, error) {
	p.advance()
	list := &ListNode{}
	for p.cur().typ != RBRACKET {
		if p.cur().typ == EOF {
			return nil, p.errorf(p.cur(), "unterminated list, expected \"]\"")
		}
		el, err := p.parseExpression()
		if err != nil {
			return nil, err
		}
		list.Elements = append(list.Elements, el)
		if p.cur().typ == COMMA {
			p.advance()
		} else if p.cur().typ != RBRACKET {
			return nil, p.errorf(p.cur(), "expected \",\" or \"]\" in list")
		}
	}
	p.advance()
	return list, nil
}

func (p *parser) parseMap() (Node, error) {
	p.advance()
	m := &MapNode{}
	for p.cur().typ != RBRACE {
		if p.cur().typ == EOF {
			return nil, p.errorf(p.cur(), "unterminated map, expected \"}\"")
		}
		keyTok := p.cur()
		if keyTok.typ != IDENT && keyTok.typ != STRING {
			return nil, p.errorf(keyTok, "expected map key, found %s %q", keyTok.typ, keyTok.value)
		}
		p.advance()
		if _, err := p.expect(COLON); err != nil {
			return nil, err
		}
		value, err := p.parseExpression()
		if err != nil {
			return nil, err
		}
		m.Entries = append(m.Entries, MapEntry{Key: keyTok.value, Value: value})
		if p.cur().typ == COMMA {
			p.advance()
		} else if p.cur().typ != RBRACE {
			return nil, p.errorf(p.cur(), "expected \",\" or \"}\" in map")
		}
	}
	p.advance()
	return m, nil
}

// parseStringLiteral splits a string token into literal text and embedded
// ${...} expressions. Braces inside an interpolation are counted so map
// literals like "${ {a: 1} }" terminate at the matching brace.
func (p *parser) parseStringLiteral(tok tokenInfo) (Node, error) {
	raw := tok.value
	if !strings.Contains(raw, "${") {
		return &LiteralNode{Value: raw}, nil
	}
	var parts []Node
	rest := raw
	for {
		idx := strings.Index(rest, "${")
		if idx < 0 {
			if rest != "" {
				parts = append(parts, &LiteralNode{Value: rest})
			}
			break
		}
		if idx > 0 {
			parts = append(parts, &LiteralNode{Value: rest[:idx]})
		}
		rest = rest[idx+2:]
		depth := 1
		end := -1
		for i, r := range rest {
			if r == '{' {
				depth++
			} else if r == '}' {
				depth--
				if depth == 0 {
					end = i
					break
				}
			}
		}
		if end < 0 {
			return nil, p.errorf(tok, "unterminated ${...} interpolation")
		}
		exprSrc := rest[:end]
		rest = rest[end+1:]
		expr, err := parseInterpExpr(exprSrc, p.file, tok)
		if err != nil {
			return nil, err
		}
		parts = append(parts, expr)
	}
	if len(parts) == 1 {
		if _, ok := parts[0].(*LiteralNode); ok {
			return parts[0], nil
		}
	}
	return &InterpNode{Parts: parts}, nil
}

func parseInterpExpr(src, file string, tok tokenInfo) (Node, error) {
	if strings.TrimSpace(src) == "" {
		return nil, &ParseError{
			Message: "empty ${} interpolation",
			File:    file,
			Line:    tok.line,
			Column:  tok.col,
		}
	}
	sub, err := newParser(src, file)
	if err != nil {
		return nil, err
	}
	expr, err := sub.parseExpression()
	if err != nil {
		return nil, err
	}
	if sub.cur().typ != EOF {
		return nil, &ParseError{
			Message: fmt.Sprintf("unexpected %q after interpolated expression", sub.cur().value),
			File:    file,
			Line:    tok.line,
			Column:  tok.col,
		}
	}
	return expr, nil
}
