package liquid

import (
	"strconv"
	"strings"
)

// Expression scanner and parser for tag content: literals, variable paths,
// operators by dialect precedence, and filter pipelines.

type exprTokenKind int

const (
	eEOF exprTokenKind = iota
	eIdent
	eNumber
	eString
	ePunct
)

type exprToken struct {
	kind exprTokenKind
	text string
	pos  int // absolute byte offset in template source
}

func isIdentStart(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isIdentPart(c byte) bool {
	return isIdentStart(c) || (c >= '0' && c <= '9')
}

func scanExpression(s string, base int) ([]exprToken, error) {
	var toks []exprToken
	i := 0
	for i < len(s) {
		c := s[i]
		switch {
		case c == ' ' || c == '\t' || c == '\r' || c == '\n':
			i++
		case isIdentStart(c):
			start := i
			for i < len(s) && isIdentPart(s[i]) {
				i++
			}
			toks = append(toks, exprToken{kind: eIdent, text: s[start:i], pos: base + start})
		case c >= '0' && c <= '9':
			start := i
			for i < len(s) && s[i] >= '0' && s[i] <= '9' {
				i++
			}
			if i+1 < len(s) && s[i] == '.' && s[i+1] >= '0' && s[i+1] <= '9' {
				i++
				for i < len(s) && s[i] >= '0' && s[i] <= '9' {
					i++
				}
			}
			toks = append(toks, exprToken{kind: eNumber, text: s[start:i], pos: base + start})
		case c == '\'' || c == '"':
			end := strings.IndexByte(s[i+1:], c)
			if end < 0 {
				return nil, Errorf(ErrParse, "unterminated string literal")
			}
			toks = append(toks, exprToken{kind: eString, text: s[i+1 : i+1+end], pos: base + i})
			i += end + 2
		default:
			if i+1 < len(s) {
				two := s[i : i+2]
				if two == "==" || two == "!=" || two == "<=" || two == ">=" {
					toks = append(toks, exprToken{kind: ePunct, text: two, pos: base + i})
					i += 2
					continue
				}
			}
			switch c {
			case '<', '>', '+', '-', '*', '/', '%', '|', '.', ':', ',', '(', ')', '[', ']':
				toks = append(toks, exprToken{kind: ePunct, text: string(c), pos: base + i})
				i++
			default:
				return nil, Errorf(ErrParse, "unexpected character %q in expression", string(c))
			}
		}
	}
	toks = append(toks, exprToken{kind: eEOF, pos: base + len(s)})
	return toks, nil
}

type exprParser struct {
	p    *Parser
	toks []exprToken
	i    int
}

func (ep *exprParser) peek() exprToken { return ep.toks[ep.i] }

func (ep *exprParser) next() exprToken {
	t := ep.toks[ep.i]
	if t.kind != eEOF {
		ep.i++
	}
	return t
}

func (ep *exprParser) accept(text string) bool {
	if t := ep.peek(); t.kind == ePunct && t.text == text {
		ep.i++
		return true
	}
	return false
}

func (ep *exprParser) expect(text string) error {
	if !ep.accept(text) {
		return ep.errorf(ep.peek().pos, "expected %q", text)
	}
	return nil
}

func (ep *exprParser) errorf(pos int, format string, args ...any) error {
	return ep.p.errorAt(pos, format, args...)
}

func (ep *exprParser) leaf(v Variant, pos int) *Node {
	line, col := ep.p.l.position(pos)
	return Leaf(v).At(line, col)
}

// parsePipeline parses an expression followed by zero or more filters.
func (ep *exprParser) parsePipeline() (*Node, error) {
	n, err := ep.parseBinary(1)
	if err != nil {
		return nil, err
	}
	for ep.accept("|") {
		name := ep.next()
		if name.kind != eIdent {
			return nil, ep.errorf(name.pos, "expected filter name")
		}
		t := ep.p.Dialect.Filter(name.text)
		if t == nil {
			return nil, ep.errorf(name.pos, "unknown filter %q", name.text)
		}
		var args []*Node
		if ep.accept(":") {
			args, err = ep.parseList()
			if err != nil {
				return nil, err
			}
		}
		block, err := ep.p.makeNode(ep.p.Dialect.Arguments, name.pos, args...)
		if err != nil {
			return nil, err
		}
		n, err = ep.p.makeNode(t, name.pos, n, block)
		if err != nil {
			return nil, err
		}
	}
	return n, nil
}

// parseList parses comma-separated expressions, stopping after the last
// one so trailing pipes or brackets stay for the caller.
func (ep *exprParser) parseList() ([]*Node, error) {
	var out []*Node
	for {
		n, err := ep.parseBinary(1)
		if err != nil {
			return nil, err
		}
		out = append(out, n)
		if !ep.accept(",") {
			return out, nil
		}
	}
}

func (ep *exprParser) parseBinary(minPrec int) (*Node, error) {
	left, err := ep.parseUnary()
	if err != nil {
		return nil, err
	}
	for {
		t := ep.peek()
		if t.kind != ePunct && t.kind != eIdent {
			return left, nil
		}
		prec, ok := ep.p.Dialect.operatorPrecedence(t.text)
		if !ok || prec < minPrec {
			return left, nil
		}
		ep.next()
		right, err := ep.parseBinary(prec + 1)
		if err != nil {
			return nil, err
		}
		left, err = ep.p.makeNode(ep.p.Dialect.Operator(t.text), t.pos, left, right)
		if err != nil {
			return nil, err
		}
	}
}

func (ep *exprParser) parseUnary() (*Node, error) {
	t := ep.peek()
	if (t.kind == ePunct || t.kind == eIdent) && ep.p.Dialect.UnaryOperator(t.text) != nil {
		ep.next()
		operand, err := ep.parseUnary()
		if err != nil {
			return nil, err
		}
		return ep.p.makeNode(ep.p.Dialect.UnaryOperator(t.text), t.pos, operand)
	}
	return ep.parsePrimary()
}

func (ep *exprParser) parsePrimary() (*Node, error) {
	t := ep.next()
	switch t.kind {
	case eNumber:
		if strings.Contains(t.text, ".") {
			f, err := strconv.ParseFloat(t.text, 64)
			if err != nil {
				return nil, ep.errorf(t.pos, "bad number %q", t.text)
			}
			return ep.leaf(Float(f), t.pos), nil
		}
		i, err := strconv.ParseInt(t.text, 10, 64)
		if err != nil {
			return nil, ep.errorf(t.pos, "bad number %q", t.text)
		}
		return ep.leaf(Int(i), t.pos), nil
	case eString:
		return ep.leaf(String(t.text), t.pos), nil
	case eIdent:
		switch t.text {
		case "true":
			return ep.leaf(Bool(true), t.pos), nil
		case "false":
			return ep.leaf(Bool(false), t.pos), nil
		case "nil", "null":
			return ep.leaf(Variant{}, t.pos), nil
		}
		return ep.parsePath(t)
	case ePunct:
		switch t.text {
		case "(":
			inner, err := ep.parsePipeline()
			if err != nil {
				return nil, err
			}
			if err := ep.expect(")"); err != nil {
				return nil, err
			}
			return ep.p.makeNode(ep.p.Dialect.Group, t.pos, inner)
		case "[":
			var items []*Node
			if !ep.accept("]") {
				var err error
				items, err = ep.parseList()
				if err != nil {
					return nil, err
				}
				if err := ep.expect("]"); err != nil {
					return nil, err
				}
			}
			return ep.p.makeNode(ep.p.Dialect.ArrayLiteral, t.pos, items...)
		}
	}
	return nil, ep.errorf(t.pos, "unexpected %q in expression", t.text)
}

// parsePath parses a dotted/indexed variable path. A trailing component
// that names a registered dot filter wraps the path instead of extending
// it: items.size applies the size filter to items.
func (ep *exprParser) parsePath(first exprToken) (*Node, error) {
	children := []*Node{ep.leaf(String(first.text), first.pos)}
	var dotFilter *exprToken
	for {
		if ep.accept(".") {
			name := ep.next()
			if name.kind != eIdent {
				return nil, ep.errorf(name.pos, "expected name after '.'")
			}
			terminal := ep.peek().kind != ePunct || (ep.peek().text != "." && ep.peek().text != "[")
			if terminal && ep.p.Dialect.DotFilter(name.text) != nil {
				dotFilter = &name
				break
			}
			children = append(children, ep.leaf(String(name.text), name.pos))
			continue
		}
		if t := ep.peek(); t.kind == ePunct && t.text == "[" {
			ep.next()
			inner, err := ep.parseBinary(1)
			if err != nil {
				return nil, err
			}
			if err := ep.expect("]"); err != nil {
				return nil, err
			}
			deref, err := ep.p.makeNode(ep.p.Dialect.Dereference, t.pos, inner)
			if err != nil {
				return nil, err
			}
			children = append(children, deref)
			continue
		}
		break
	}
	path, err := ep.p.makeNode(ep.p.Dialect.Path, first.pos, children...)
	if err != nil {
		return nil, err
	}
	if dotFilter == nil {
		return path, nil
	}
	block, err := ep.p.makeNode(ep.p.Dialect.Arguments, dotFilter.pos)
	if err != nil {
		return nil, err
	}
	return ep.p.makeNode(ep.p.Dialect.DotFilter(dotFilter.text), dotFilter.pos, path, block)
}
