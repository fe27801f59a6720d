package liquid

import (
	"strconv"
	"strings"
)

// Parser turns template source into a Node tree whose branch nodes
// reference the dialect's shared NodeType instances. Every constructed
// branch is validated through its type at parse time.
type Parser struct {
	Dialect *Dialect

	l *lexer
}

// NewParser returns a parser over the given dialect.
func NewParser(d *Dialect) *Parser { return &Parser{Dialect: d} }

// Parse is shorthand for NewParser(d).Parse(src).
func Parse(d *Dialect, src string) (*Node, error) {
	return NewParser(d).Parse(src)
}

// Parse parses template source into a document tree.
func (p *Parser) Parse(src string) (*Node, error) {
	p.l = newLexer([]byte(src))
	nodes, end, _, err := p.parseNodes(nil)
	if err != nil {
		return nil, err
	}
	if end != "" {
		return nil, Errorf(ErrParse, "unexpected {%% %s %%}", end)
	}
	return p.makeNode(p.Dialect.Document, 0, nodes...)
}

// makeNode builds a branch, stamps the source position of pos onto it and
// validates it through its type.
func (p *Parser) makeNode(t *NodeType, pos int, children ...*Node) (*Node, error) {
	n := Branch(t, children...)
	n.Line, n.Column = p.l.position(pos)
	if !t.Validate(p, n) {
		return nil, &Error{Kind: ErrParse, Line: n.Line, Column: n.Column,
			Message: "malformed " + t.Kind.String() + " " + strconv.Quote(t.Symbol)}
	}
	return n, nil
}

// parseNodes parses until one of the statement names in `until` closes the
// current block, or EOF when until is nil.
func (p *Parser) parseNodes(until map[string]bool) (nodes []*Node, endTag, endArgs string, err error) {
	for {
		tok := p.l.nextTokenOutside()
		switch tok.kind {
		case tokEOF:
			return nodes, "", "", nil
		case tokText:
			if tok.val != "" {
				line, col := p.l.position(tok.pos)
				nodes = append(nodes, Leaf(String(tok.val)).At(line, col))
			}
		case tokVarStart:
			base := p.l.i
			content, ok := p.l.readInside("}}")
			if !ok {
				return nil, "", "", p.errorAt(tok.pos, "unterminated {{ ... }}")
			}
			expr, err := p.parseExpressionString(content, base)
			if err != nil {
				return nil, "", "", err
			}
			out, err := p.makeNode(p.Dialect.Output, tok.pos, expr)
			if err != nil {
				return nil, "", "", err
			}
			nodes = append(nodes, out)
		case tokStmtStart:
			base := p.l.i
			content, ok := p.l.readInside("%}")
			if !ok {
				return nil, "", "", p.errorAt(tok.pos, "unterminated {%% ... %%}")
			}
			name, args := splitNameArgs(content)
			if until != nil && until[name] {
				return nodes, name, args, nil
			}
			n, err := p.parseStatement(tok.pos, base, name, args)
			if err != nil {
				return nil, "", "", err
			}
			if n != nil {
				nodes = append(nodes, n)
			}
		}
	}
}

func (p *Parser) errorAt(pos int, format string, args ...any) error {
	e := Errorf(ErrParse, format, args...)
	e.Line, e.Column = p.l.position(pos)
	return e
}

func splitNameArgs(s string) (name, args string) {
	s = strings.TrimSpace(s)
	if i := strings.IndexAny(s, " \t\r\n"); i >= 0 {
		return s[:i], strings.TrimSpace(s[i:])
	}
	return s, ""
}

// parseStatement handles one {% name args %}. Block statements consume
// their body up to the matching end tag.
func (p *Parser) parseStatement(pos, base int, name, args string) (*Node, error) {
	switch name {
	case "assign":
		return p.parseAssign(pos, base, args)
	case "if":
		return p.parseIf(pos, base, args)
	case "for":
		return p.parseFor(pos, base, args)
	case "raw":
		text, ok := p.readRawBody("endraw")
		if !ok {
			return nil, p.errorAt(pos, "missing {%% endraw %%}")
		}
		line, col := p.l.position(pos)
		return Leaf(String(text)).At(line, col), nil
	case "comment":
		if _, ok := p.readRawBody("endcomment"); !ok {
			return nil, p.errorAt(pos, "missing {%% endcomment %%}")
		}
		return nil, nil
	}
	// Host-registered inline tag.
	if t := p.Dialect.Tag(name); t != nil {
		argNodes, err := p.parseArgumentList(args, base)
		if err != nil {
			return nil, err
		}
		block, err := p.makeNode(p.Dialect.Arguments, pos, argNodes...)
		if err != nil {
			return nil, err
		}
		return p.makeNode(t, pos, block)
	}
	return nil, p.errorAt(pos, "unknown tag %q", name)
}

func (p *Parser) parseAssign(pos, base int, args string) (*Node, error) {
	t := p.Dialect.Tag("assign")
	if t == nil {
		return nil, p.errorAt(pos, "assign tag not registered")
	}
	eq := strings.Index(args, "=")
	if eq < 0 {
		return nil, p.errorAt(pos, "assign expects name = value")
	}
	name := strings.TrimSpace(args[:eq])
	if name == "" {
		return nil, p.errorAt(pos, "assign expects a target name")
	}
	expr, err := p.parseExpressionString(args[eq+1:], base+eq+1)
	if err != nil {
		return nil, err
	}
	block, err := p.makeNode(p.Dialect.Arguments, pos, expr)
	if err != nil {
		return nil, err
	}
	line, col := p.l.position(pos)
	return p.makeNode(t, pos, Leaf(String(name)).At(line, col), block)
}

func (p *Parser) parseIf(pos, base int, args string) (*Node, error) {
	t := p.Dialect.Tag("if")
	if t == nil {
		return nil, p.errorAt(pos, "if tag not registered")
	}
	cond, err := p.parseExpressionString(args, base)
	if err != nil {
		return nil, err
	}
	body, end, endArgs, err := p.parseNodes(map[string]bool{"elsif": true, "else": true, "endif": true})
	if err != nil {
		return nil, err
	}
	then, err := p.makeNode(p.Dialect.Scope, pos, body...)
	if err != nil {
		return nil, err
	}
	children := []*Node{then}
	switch end {
	case "elsif":
		// Desugar into a nested if inside the else scope.
		nested, err := p.parseIf(p.l.i, p.l.i, endArgs)
		if err != nil {
			return nil, err
		}
		alt, err := p.makeNode(p.Dialect.Scope, pos, nested)
		if err != nil {
			return nil, err
		}
		children = append(children, alt)
	case "else":
		body, end, _, err := p.parseNodes(map[string]bool{"endif": true})
		if err != nil {
			return nil, err
		}
		if end != "endif" {
			return nil, p.errorAt(pos, "missing {%% endif %%}")
		}
		alt, err := p.makeNode(p.Dialect.Scope, pos, body...)
		if err != nil {
			return nil, err
		}
		children = append(children, alt)
	case "endif":
	default:
		return nil, p.errorAt(pos, "missing {%% endif %%}")
	}
	block, err := p.makeNode(p.Dialect.Arguments, pos, cond)
	if err != nil {
		return nil, err
	}
	return p.makeNode(t, pos, append(children, block)...)
}

func (p *Parser) parseFor(pos, base int, args string) (*Node, error) {
	t := p.Dialect.Tag("for")
	if t == nil {
		return nil, p.errorAt(pos, "for tag not registered")
	}
	target, rest := splitNameArgs(args)
	kw, iter := splitNameArgs(rest)
	if target == "" || kw != "in" || iter == "" {
		return nil, p.errorAt(pos, "for expects: for target in iterable")
	}
	expr, err := p.parseExpressionString(iter, base+strings.Index(args, iter))
	if err != nil {
		return nil, err
	}
	body, end, _, err := p.parseNodes(map[string]bool{"endfor": true})
	if err != nil {
		return nil, err
	}
	if end != "endfor" {
		return nil, p.errorAt(pos, "missing {%% endfor %%}")
	}
	scope, err := p.makeNode(p.Dialect.Scope, pos, body...)
	if err != nil {
		return nil, err
	}
	block, err := p.makeNode(p.Dialect.Arguments, pos, expr)
	if err != nil {
		return nil, err
	}
	line, col := p.l.position(pos)
	return p.makeNode(t, pos, Leaf(String(target)).At(line, col), scope, block)
}

// readRawBody consumes source verbatim until {% end %} for the given end
// tag name.
func (p *Parser) readRawBody(end string) (string, bool) {
	l := p.l
	trimLeft := l.trimNext
	l.trimNext = false
	start := l.i
	for l.i < l.n {
		if l.at("{%") {
			mark := l.i
			l.i += 2
			trimRight := false
			if l.i < l.n && l.src[l.i] == '-' {
				l.i++
				trimRight = true
			}
			content, ok := l.readInside("%}")
			if ok {
				name, _ := splitNameArgs(content)
				if name == end {
					body := string(l.src[start:mark])
					if trimLeft {
						body = strings.TrimLeft(body, " \t\r\n")
					}
					if trimRight {
						body = strings.TrimRight(body, " \t\r\n")
					}
					return body, true
				}
			}
			// Tag-like text inside the raw body stays verbatim; drop any
			// trim it would have scheduled.
			l.trimNext = false
			continue
		}
		l.i++
	}
	return "", false
}

// parseArgumentList parses a comma-separated expression list.
func (p *Parser) parseArgumentList(s string, base int) ([]*Node, error) {
	if strings.TrimSpace(s) == "" {
		return nil, nil
	}
	toks, err := scanExpression(s, base)
	if err != nil {
		return nil, p.wrapExprError(err)
	}
	ep := &exprParser{p: p, toks: toks}
	args, err := ep.parseList()
	if err != nil {
		return nil, err
	}
	if ep.peek().kind != eEOF {
		return nil, p.errorAt(ep.peek().pos, "unexpected %q", ep.peek().text)
	}
	return args, nil
}

// parseExpressionString parses one full expression, including any filter
// pipeline.
func (p *Parser) parseExpressionString(s string, base int) (*Node, error) {
	toks, err := scanExpression(s, base)
	if err != nil {
		return nil, p.wrapExprError(err)
	}
	ep := &exprParser{p: p, toks: toks}
	n, err := ep.parsePipeline()
	if err != nil {
		return nil, err
	}
	if ep.peek().kind != eEOF {
		return nil, p.errorAt(ep.peek().pos, "unexpected %q", ep.peek().text)
	}
	return n, nil
}

func (p *Parser) wrapExprError(err error) error {
	if e, ok := err.(*Error); ok && e.Line == 0 {
		e.Line, e.Column = 1, 1
	}
	return err
}
