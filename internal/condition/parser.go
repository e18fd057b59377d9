package condition

import "fmt"

// parser is a recursive descent parser over the token stream:
//
//	expr    := and { "||" and }
//	and     := unary { "&&" unary }
//	unary   := "!" unary | compare
//	compare := operand [ ("==" | "!=") operand ]
//	operand := path | string | number | true | false | null | "(" expr ")"
//	path    := root { "." ident }
type parser struct {
	tokens []token
	pos    int
}

func parse(src string) (node, error) {
	tokens, err := lex(src)
	if err != nil {
		return nil, err
	}
	p := &parser{tokens: tokens}
	n, err := p.parseOr()
	if err != nil {
		return nil, err
	}
	if tok := p.peek(); tok.kind != tokEOF {
		return nil, fmt.Errorf("unexpected %s at offset %d", tok.kind, tok.pos)
	}
	return n, nil
}

func (p *parser) peek() token {
	return p.tokens[p.pos]
}

func (p *parser) next() token {
	tok := p.tokens[p.pos]
	if tok.kind != tokEOF {
		p.pos++
	}
	return tok
}

func (p *parser) parseOr() (node, error) {
	left, err := p.parseAnd()
	if err != nil {
		return nil, err
	}
	for p.peek().kind == tokOr {
		p.next()
		right, err := p.parseAnd()
		if err != nil {
			return nil, err
		}
		left = &logicalNode{left: left, right: right}
	}
	return left, nil
}

func (p *parser) parseAnd() (node, error) {
	left, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	for p.peek().kind == tokAnd {
		p.next()
		right, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		left = &logicalNode{and: true, left: left, right: right}
	}
	return left, nil
}

func (p *parser) parseUnary() (node, error) {
	if p.peek().kind == tokNot {
		p.next()
		operand, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return &notNode{operand: operand}, nil
	}
	return p.parseCompare()
}

func (p *parser) parseCompare() (node, error) {
	left, err := p.parseOperand()
	if err != nil {
		return nil, err
	}
	switch p.peek().kind {
	case tokEq, tokNeq:
		op := p.next()
		right, err := p.parseOperand()
		if err != nil {
			return nil, err
		}
		return &compareNode{negate: op.kind == tokNeq, left: left, right: right}, nil
	}
	return left, nil
}

func (p *parser) parseOperand() (node, error) {
	tok := p.next()
	switch tok.kind {
	case tokString:
		return &literalNode{v: tok.text}, nil
	case tokNumber:
		return &literalNode{v: tok.num}, nil
	case tokLParen:
		inner, err := p.parseOr()
		if err != nil {
			return nil, err
		}
		if closing := p.next(); closing.kind != tokRParen {
			return nil, fmt.Errorf("expected ')' at offset %d, found %s", closing.pos, closing.kind)
		}
		return inner, nil
	case tokIdent:
		switch tok.text {
		case "true":
			return &literalNode{v: true}, nil
		case "false":
			return &literalNode{v: false}, nil
		case "null":
			return &literalNode{v: nil}, nil
		case RootResource, RootUser, RootAction:
			return p.parsePath(tok.text)
		}
		return nil, fmt.Errorf("unknown root %q at offset %d", tok.text, tok.pos)
	}
	return nil, fmt.Errorf("unexpected %s at offset %d", tok.kind, tok.pos)
}

func (p *parser) parsePath(root string) (node, error) {
	path := &pathNode{root: root}
	for p.peek().kind == tokDot {
		p.next()
		seg := p.next()
		if seg.kind != tokIdent {
			return nil, fmt.Errorf("expected attribute name at offset %d, found %s", seg.pos, seg.kind)
		}
		path.segments = append(path.segments, seg.text)
	}
	return path, nil
}
