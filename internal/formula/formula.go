// Copyright 2026 The switchAILocal Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package formula implements a sandboxed arithmetic expression evaluator
// for derived PEG definitions. Per spec.md §4.2 and §9's design note, this
// is a small hand-rolled recursive-descent parser over a fixed token set
// (numeric literals, identifiers, '+ - * / ( )'): it builds an explicit
// AST and rejects any other construct (function calls, indexing,
// comparisons, assignment) at parse time, rather than embedding a general
// expression language that would need to be sandboxed after the fact.
package formula

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/traylinx/pegcompare/internal/errs"
)

type tokenKind int

const (
	tokNumber tokenKind = iota
	tokIdent
	tokPlus
	tokMinus
	tokStar
	tokSlash
	tokLParen
	tokRParen
	tokEOF
)

type token struct {
	kind tokenKind
	text string
	pos  int
}

func lex(expr string) ([]token, error) {
	var toks []token
	runes := []rune(expr)
	i := 0
	for i < len(runes) {
		c := runes[i]
		switch {
		case unicode.IsSpace(c):
			i++
		case c == '+':
			toks = append(toks, token{tokPlus, "+", i})
			i++
		case c == '-':
			toks = append(toks, token{tokMinus, "-", i})
			i++
		case c == '*':
			toks = append(toks, token{tokStar, "*", i})
			i++
		case c == '/':
			toks = append(toks, token{tokSlash, "/", i})
			i++
		case c == '(':
			toks = append(toks, token{tokLParen, "(", i})
			i++
		case c == ')':
			toks = append(toks, token{tokRParen, ")", i})
			i++
		case unicode.IsDigit(c) || c == '.':
			start := i
			seenDot := c == '.'
			i++
			for i < len(runes) && (unicode.IsDigit(runes[i]) || (runes[i] == '.' && !seenDot)) {
				if runes[i] == '.' {
					seenDot = true
				}
				i++
			}
			toks = append(toks, token{tokNumber, string(runes[start:i]), start})
		case unicode.IsLetter(c) || c == '_':
			start := i
			i++
			for i < len(runes) && (unicode.IsLetter(runes[i]) || unicode.IsDigit(runes[i]) || runes[i] == '_') {
				i++
			}
			toks = append(toks, token{tokIdent, string(runes[start:i]), start})
		default:
			return nil, errs.Newf(errs.FormulaSyntax, "unexpected character %q", c).
				WithDetails(map[string]any{"expression": expr, "position": i})
		}
	}
	toks = append(toks, token{tokEOF, "", len(runes)})
	return toks, nil
}

// node is the expression AST. Only arithmetic node kinds exist — there is
// no call/index/compare/assign variant to evaluate, so the grammar itself
// enforces the sandbox.
type node interface {
	eval(bindings map[string]float64) (float64, bool, error)
}

type numberNode float64

func (n numberNode) eval(map[string]float64) (float64, bool, error) { return float64(n), false, nil }

type identNode string

func (n identNode) eval(bindings map[string]float64) (float64, bool, error) {
	v, ok := bindings[string(n)]
	if !ok {
		return 0, false, errs.Newf(errs.FormulaUnknownRef, "unknown reference %q", string(n)).
			WithDetails(map[string]any{"name": string(n)})
	}
	return v, false, nil
}

type unaryNode struct{ operand node }

func (n unaryNode) eval(bindings map[string]float64) (float64, bool, error) {
	v, w, err := n.operand.eval(bindings)
	return -v, w, err
}

type binOp int

const (
	opAdd binOp = iota
	opSub
	opMul
	opDiv
)

type binaryNode struct {
	op          binOp
	left, right node
}

func (n binaryNode) eval(bindings map[string]float64) (float64, bool, error) {
	l, lw, err := n.left.eval(bindings)
	if err != nil {
		return 0, lw, err
	}
	r, rw, err := n.right.eval(bindings)
	if err != nil {
		return 0, lw || rw, err
	}
	warned := lw || rw
	switch n.op {
	case opAdd:
		return l + r, warned, nil
	case opSub:
		return l - r, warned, nil
	case opMul:
		return l * r, warned, nil
	case opDiv:
		if r == 0 {
			// Division by zero yields 0 and a warning, per spec.md §4.2 —
			// it never fails the analysis.
			return 0, true, nil
		}
		return l / r, warned, nil
	}
	return 0, warned, errs.New(errs.Internal, "unknown binary operator")
}

// parser is a standard Pratt/recursive-descent parser with precedence:
// unary minus > * / > + -, left-associative.
type parser struct {
	toks []token
	pos  int
	expr string
}

func (p *parser) peek() token  { return p.toks[p.pos] }
func (p *parser) advance() token {
	t := p.toks[p.pos]
	if p.pos < len(p.toks)-1 {
		p.pos++
	}
	return t
}

func (p *parser) parseExpr() (node, error) {
	left, err := p.parseTerm()
	if err != nil {
		return nil, err
	}
	for {
		switch p.peek().kind {
		case tokPlus:
			p.advance()
			right, err := p.parseTerm()
			if err != nil {
				return nil, err
			}
			left = binaryNode{opAdd, left, right}
		case tokMinus:
			p.advance()
			right, err := p.parseTerm()
			if err != nil {
				return nil, err
			}
			left = binaryNode{opSub, left, right}
		default:
			return left, nil
		}
	}
}

func (p *parser) parseTerm() (node, error) {
	left, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	for {
		switch p.peek().kind {
		case tokStar:
			p.advance()
			right, err := p.parseUnary()
			if err != nil {
				return nil, err
			}
			left = binaryNode{opMul, left, right}
		case tokSlash:
			p.advance()
			right, err := p.parseUnary()
			if err != nil {
				return nil, err
			}
			left = binaryNode{opDiv, left, right}
		default:
			return left, nil
		}
	}
}

func (p *parser) parseUnary() (node, error) {
	if p.peek().kind == tokMinus {
		p.advance()
		operand, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return unaryNode{operand}, nil
	}
	if p.peek().kind == tokPlus {
		p.advance()
		return p.parseUnary()
	}
	return p.parsePrimary()
}

func (p *parser) parsePrimary() (node, error) {
	t := p.peek()
	switch t.kind {
	case tokNumber:
		p.advance()
		var v float64
		if _, err := fmt.Sscanf(t.text, "%g", &v); err != nil {
			return nil, errs.Newf(errs.FormulaSyntax, "invalid numeric literal %q", t.text).
				WithDetails(map[string]any{"expression": p.expr, "position": t.pos})
		}
		return numberNode(v), nil
	case tokIdent:
		p.advance()
		return identNode(t.text), nil
	case tokLParen:
		p.advance()
		inner, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		if p.peek().kind != tokRParen {
			return nil, errs.Newf(errs.FormulaSyntax, "expected ')'").
				WithDetails(map[string]any{"expression": p.expr, "position": p.peek().pos})
		}
		p.advance()
		return inner, nil
	default:
		return nil, errs.Newf(errs.FormulaSyntax, "unexpected token %q", t.text).
			WithDetails(map[string]any{"expression": p.expr, "position": t.pos})
	}
}

// Parse compiles expr into an AST without evaluating it, rejecting any
// non-arithmetic construct.
func Parse(expr string) (*Program, error) {
	if strings.TrimSpace(expr) == "" {
		return nil, errs.New(errs.FormulaSyntax, "empty expression")
	}
	toks, err := lex(expr)
	if err != nil {
		return nil, err
	}
	p := &parser{toks: toks, expr: expr}
	root, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	if p.peek().kind != tokEOF {
		return nil, errs.Newf(errs.FormulaSyntax, "unexpected trailing token %q", p.peek().text).
			WithDetails(map[string]any{"expression": expr, "position": p.peek().pos})
	}
	return &Program{root: root, source: expr}, nil
}

// Program is a compiled, side-effect-free expression ready for repeated
// evaluation against different bindings.
type Program struct {
	root   node
	source string
}

// Eval evaluates the program against bindings. It is a pure function of
// (program, bindings): no process state, environment, or time is
// consulted. DivByZero is true when any division-by-zero occurred during
// evaluation (the caller records a warning but the analysis still
// succeeds).
func (pr *Program) Eval(bindings map[string]float64) (value float64, divByZero bool, err error) {
	return pr.root.eval(bindings)
}

// Eval is a convenience one-shot parse+evaluate, used by callers that do
// not need to reuse a compiled Program.
func Eval(expr string, bindings map[string]float64) (float64, bool, error) {
	prog, err := Parse(expr)
	if err != nil {
		return 0, false, err
	}
	return prog.Eval(bindings)
}
