// Package alerting pkg/alerting/expr.go implements the expression rule
// dialect: boolean expressions over $field references, parsed once at rule
// load and evaluated per change.
package alerting

import (
	"fmt"
	"strconv"
	"strings"
)

// exprNode is a parsed expression evaluated against a change's field map.
type exprNode interface {
	eval(fields map[string]interface{}) bool
}

type orNode struct{ left, right exprNode }

func (n *orNode) eval(fields map[string]interface{}) bool {
	return n.left.eval(fields) || n.right.eval(fields)
}

type andNode struct{ left, right exprNode }

func (n *andNode) eval(fields map[string]interface{}) bool {
	return n.left.eval(fields) && n.right.eval(fields)
}

type notNode struct{ inner exprNode }

func (n *notNode) eval(fields map[string]interface{}) bool {
	return !n.inner.eval(fields)
}

// Operand kinds.
const (
	operandField = iota
	operandNumber
	operandString
	operandBool
)

type operand struct {
	kind  int
	field string
	num   float64
	str   string
	b     bool
}

// resolve returns the operand's value for one change, or false when a field
// reference is absent from the change.
func (o *operand) resolve(fields map[string]interface{}) (interface{}, bool) {
	switch o.kind {
	case operandField:
		v, ok := fields[o.field]
		return v, ok
	case operandNumber:
		return o.num, true
	case operandString:
		return o.str, true
	default:
		return o.b, true
	}
}

type cmpNode struct {
	left  operand
	op    string
	right operand
}

// eval compares two resolved operands. Comparisons against a missing field
// are false, so a rule never fires on data the change does not carry.
func (n *cmpNode) eval(fields map[string]interface{}) bool {
	left, okLeft := n.left.resolve(fields)
	right, okRight := n.right.resolve(fields)

	if !okLeft || !okRight {
		return false
	}

	if ln, lok := toNumber(left); lok {
		if rn, rok := toNumber(right); rok {
			return compareNumbers(ln, n.op, rn)
		}
	}

	switch n.op {
	case "==":
		return fmt.Sprint(left) == fmt.Sprint(right)
	case "!=":
		return fmt.Sprint(left) != fmt.Sprint(right)
	default:
		// Ordering is only defined for numbers.
		return false
	}
}

func toNumber(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	default:
		return 0, false
	}
}

func compareNumbers(left float64, op string, right float64) bool {
	switch op {
	case "==":
		return left == right
	case "!=":
		return left != right
	case ">":
		return left > right
	case ">=":
		return left >= right
	case "<":
		return left < right
	case "<=":
		return left <= right
	default:
		return false
	}
}

// parseExpression parses the expression dialect:
//
//	$severity == 'critical' && ($change_percent > 20 || $is_degradation == true)
//
// Word forms and/or/not are accepted alongside &&/||/!.
func parseExpression(expression string) (exprNode, error) {
	tokens, err := tokenize(expression)
	if err != nil {
		return nil, err
	}

	if len(tokens) == 0 {
		return nil, errEmptyExpression
	}

	p := &parser{tokens: tokens}

	node, err := p.parseOr()
	if err != nil {
		return nil, err
	}

	if !p.done() {
		return nil, fmt.Errorf("%w: %q", errTrailingInput, p.peek())
	}

	return node, nil
}

type parser struct {
	tokens []string
	pos    int
}

func (p *parser) done() bool {
	return p.pos >= len(p.tokens)
}

func (p *parser) peek() string {
	if p.done() {
		return ""
	}

	return p.tokens[p.pos]
}

func (p *parser) next() string {
	tok := p.peek()
	p.pos++

	return tok
}

func (p *parser) parseOr() (exprNode, error) {
	left, err := p.parseAnd()
	if err != nil {
		return nil, err
	}

	for p.peek() == "||" || p.peek() == "or" {
		p.next()

		right, err := p.parseAnd()
		if err != nil {
			return nil, err
		}

		left = &orNode{left: left, right: right}
	}

	return left, nil
}

func (p *parser) parseAnd() (exprNode, error) {
	left, err := p.parseNot()
	if err != nil {
		return nil, err
	}

	for p.peek() == "&&" || p.peek() == "and" {
		p.next()

		right, err := p.parseNot()
		if err != nil {
			return nil, err
		}

		left = &andNode{left: left, right: right}
	}

	return left, nil
}

func (p *parser) parseNot() (exprNode, error) {
	if p.peek() == "!" || p.peek() == "not" {
		p.next()

		inner, err := p.parseNot()
		if err != nil {
			return nil, err
		}

		return &notNode{inner: inner}, nil
	}

	return p.parsePrimary()
}

func (p *parser) parsePrimary() (exprNode, error) {
	if p.peek() == "(" {
		p.next()

		node, err := p.parseOr()
		if err != nil {
			return nil, err
		}

		if p.next() != ")" {
			return nil, errUnbalancedParens
		}

		return node, nil
	}

	left, err := p.parseOperand()
	if err != nil {
		return nil, err
	}

	op := p.next()
	switch op {
	case "==", "!=", ">", ">=", "<", "<=":
	default:
		return nil, fmt.Errorf("%w, got %q", errExpectedComparison, op)
	}

	right, err := p.parseOperand()
	if err != nil {
		return nil, err
	}

	return &cmpNode{left: left, op: op, right: right}, nil
}

func (p *parser) parseOperand() (operand, error) {
	tok := p.next()

	switch {
	case tok == "":
		return operand{}, fmt.Errorf("%w: expression ended early", errUnexpectedToken)
	case strings.HasPrefix(tok, "$"):
		return operand{kind: operandField, field: tok[1:]}, nil
	case strings.HasPrefix(tok, "'"):
		return operand{kind: operandString, str: strings.Trim(tok, "'")}, nil
	case tok == "true" || tok == "false":
		return operand{kind: operandBool, b: tok == "true"}, nil
	default:
		num, err := strconv.ParseFloat(tok, 64)
		if err != nil {
			return operand{}, fmt.Errorf("%w: %q", errUnexpectedToken, tok)
		}

		return operand{kind: operandNumber, num: num}, nil
	}
}

// tokenize splits the expression into tokens. String literals are returned
// with their surrounding quotes intact so the parser can tell them from
// identifiers.
func tokenize(expression string) ([]string, error) {
	var tokens []string

	i := 0
	for i < len(expression) {
		c := expression[i]

		switch {
		case c == ' ' || c == '\t' || c == '\n':
			i++
		case c == '(' || c == ')':
			tokens = append(tokens, string(c))
			i++
		case c == '\'':
			end := strings.IndexByte(expression[i+1:], '\'')
			if end < 0 {
				return nil, errUnterminatedString
			}

			tokens = append(tokens, expression[i:i+end+2])
			i += end + 2
		case strings.HasPrefix(expression[i:], "&&"), strings.HasPrefix(expression[i:], "||"),
			strings.HasPrefix(expression[i:], "=="), strings.HasPrefix(expression[i:], "!="),
			strings.HasPrefix(expression[i:], ">="), strings.HasPrefix(expression[i:], "<="):
			tokens = append(tokens, expression[i:i+2])
			i += 2
		case c == '>' || c == '<' || c == '!':
			tokens = append(tokens, string(c))
			i++
		default:
			start := i
			for i < len(expression) && isWordByte(expression[i]) {
				i++
			}

			if i == start {
				return nil, fmt.Errorf("%w: %q", errUnexpectedToken, string(c))
			}

			tokens = append(tokens, expression[start:i])
		}
	}

	return tokens, nil
}

func isWordByte(c byte) bool {
	return c == '$' || c == '_' || c == '.' || c == '-' ||
		(c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9')
}
