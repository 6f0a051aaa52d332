// Package formula parses and evaluates the restricted arithmetic expressions
// used by unit conversion rules. The grammar admits decimal literals, the
// variable x, the four arithmetic operators, unary minus and parentheses.
// Anything else is rejected at parse time; expressions are never handed to
// a general-purpose evaluator.
package formula

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"unicode"
)

// Expr is a parsed conversion expression in the single variable x.
type Expr struct {
	root    node
	src     string
	usesVar bool
}

// Source returns the original expression text.
func (e *Expr) Source() string { return e.src }

// ReferencesVar reports whether the expression mentions x at all. A formula
// that ignores its input is almost certainly a data-entry mistake.
func (e *Expr) ReferencesVar() bool { return e.usesVar }

// Eval evaluates the expression at x. Division by zero yields an error
// rather than an infinity.
func (e *Expr) Eval(x float64) (float64, error) {
	v, err := e.root.eval(x)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("formula %q: result is not finite at x=%v", e.src, x)
	}
	return v, nil
}

type node interface {
	eval(x float64) (float64, error)
}

type literal float64

func (l literal) eval(float64) (float64, error) { return float64(l), nil }

type variable struct{}

func (variable) eval(x float64) (float64, error) { return x, nil }

type unary struct{ operand node }

func (u unary) eval(x float64) (float64, error) {
	v, err := u.operand.eval(x)
	return -v, err
}

type binary struct {
	op          byte
	left, right node
}

func (b binary) eval(x float64) (float64, error) {
	l, err := b.left.eval(x)
	if err != nil {
		return 0, err
	}
	r, err := b.right.eval(x)
	if err != nil {
		return 0, err
	}
	switch b.op {
	case '+':
		return l + r, nil
	case '-':
		return l - r, nil
	case '*':
		return l * r, nil
	case '/':
		if r == 0 {
			return 0, fmt.Errorf("division by zero")
		}
		return l / r, nil
	}
	return 0, fmt.Errorf("unknown operator %q", b.op)
}

// Parse compiles src into an Expr or returns a descriptive error.
func Parse(src string) (*Expr, error) {
	p := &parser{src: src, input: []rune(strings.TrimSpace(src))}
	if len(p.input) == 0 {
		return nil, fmt.Errorf("empty formula")
	}
	root, err := p.parseSum()
	if err != nil {
		return nil, err
	}
	p.skipSpace()
	if p.pos < len(p.input) {
		return nil, fmt.Errorf("formula %q: unexpected character %q at position %d", src, p.input[p.pos], p.pos)
	}
	return &Expr{root: root, src: src, usesVar: p.sawVar}, nil
}

type parser struct {
	src    string
	input  []rune
	pos    int
	sawVar bool
}

func (p *parser) skipSpace() {
	for p.pos < len(p.input) && unicode.IsSpace(p.input[p.pos]) {
		p.pos++
	}
}

func (p *parser) peek() rune {
	if p.pos < len(p.input) {
		return p.input[p.pos]
	}
	return 0
}

// parseSum handles + and - at the lowest precedence.
func (p *parser) parseSum() (node, error) {
	left, err := p.parseProduct()
	if err != nil {
		return nil, err
	}
	for {
		p.skipSpace()
		op := p.peek()
		if op != '+' && op != '-' {
			return left, nil
		}
		p.pos++
		right, err := p.parseProduct()
		if err != nil {
			return nil, err
		}
		left = binary{op: byte(op), left: left, right: right}
	}
}

func (p *parser) parseProduct() (node, error) {
	left, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	for {
		p.skipSpace()
		op := p.peek()
		if op != '*' && op != '/' {
			return left, nil
		}
		p.pos++
		right, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		left = binary{op: byte(op), left: left, right: right}
	}
}

func (p *parser) parseUnary() (node, error) {
	p.skipSpace()
	if p.peek() == '-' {
		p.pos++
		operand, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return unary{operand: operand}, nil
	}
	if p.peek() == '+' {
		p.pos++
		return p.parseUnary()
	}
	return p.parsePrimary()
}

func (p *parser) parsePrimary() (node, error) {
	p.skipSpace()
	if p.pos >= len(p.input) {
		return nil, fmt.Errorf("formula %q: unexpected end of input", p.src)
	}
	c := p.input[p.pos]
	switch {
	case c == '(':
		p.pos++
		inner, err := p.parseSum()
		if err != nil {
			return nil, err
		}
		p.skipSpace()
		if p.peek() != ')' {
			return nil, fmt.Errorf("formula %q: missing closing parenthesis", p.src)
		}
		p.pos++
		return inner, nil
	case c == 'x' || c == 'X':
		p.pos++
		if p.pos < len(p.input) && (unicode.IsLetter(p.input[p.pos]) || unicode.IsDigit(p.input[p.pos])) {
			return nil, fmt.Errorf("formula %q: unknown identifier at position %d", p.src, p.pos-1)
		}
		p.sawVar = true
		return variable{}, nil
	case unicode.IsDigit(c) || c == '.':
		return p.parseNumber()
	default:
		return nil, fmt.Errorf("formula %q: unexpected character %q at position %d", p.src, c, p.pos)
	}
}

func (p *parser) parseNumber() (node, error) {
	start := p.pos
	seenDot := false
	for p.pos < len(p.input) {
		c := p.input[p.pos]
		if unicode.IsDigit(c) {
			p.pos++
			continue
		}
		if c == '.' && !seenDot {
			seenDot = true
			p.pos++
			continue
		}
		break
	}
	text := string(p.input[start:p.pos])
	v, err := strconv.ParseFloat(text, 64)
	if err != nil {
		return nil, fmt.Errorf("formula %q: invalid number %q", p.src, text)
	}
	return literal(v), nil
}

// RoundTripError parses a forward and inverse formula pair and returns the
// worst absolute round-trip deviation |inverse(forward(x)) - x| over a small
// set of probe values. Conversion rule pairs are expected to invert each
// other to within a tight tolerance.
func RoundTripError(forward, inverse string, probes ...float64) (float64, error) {
	fwd, err := Parse(forward)
	if err != nil {
		return 0, err
	}
	inv, err := Parse(inverse)
	if err != nil {
		return 0, err
	}
	if len(probes) == 0 {
		probes = []float64{0.5, 1, 10, 100}
	}
	var worst float64
	for _, x := range probes {
		y, err := fwd.Eval(x)
		if err != nil {
			return 0, err
		}
		back, err := inv.Eval(y)
		if err != nil {
			return 0, err
		}
		if d := math.Abs(back - x); d > worst {
			worst = d
		}
	}
	return worst, nil
}
