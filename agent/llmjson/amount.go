package llmjson

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

var (
	ErrInvalidAmount = errors.New("invalid amount")

	currencySuffixPattern = regexp.MustCompile(`(?i)\s*(dhs?|mad|dirhams?|درهم)\s*$`)
	// Accepts digits, whitespace, decimal points, operators, and parentheses.
	amountExpressionPattern = regexp.MustCompile(`^[\d\s\+\-\*/\(\)\.]+$`)
)

// ParseAmount reads an amount the classifier returned as a JSON number, a
// numeric string or a small arithmetic expression such as "3x12+5" or
// "12,5 dh". The result is rounded to centimes.
func ParseAmount(raw json.RawMessage) (decimal.Decimal, error) {
	var n json.Number
	if err := json.Unmarshal(raw, &n); err == nil {
		d, err := decimal.NewFromString(n.String())
		if err != nil {
			return decimal.Zero, fmt.Errorf("%w: %v", ErrInvalidAmount, err)
		}
		return d.Round(2), nil
	}

	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return decimal.Zero, fmt.Errorf("%w: not a number or string", ErrInvalidAmount)
	}
	return EvaluateAmount(s)
}

func EvaluateAmount(expression string) (decimal.Decimal, error) {
	expression = normalizeExpression(expression)
	if err := validateAmountExpression(expression); err != nil {
		return decimal.Zero, fmt.Errorf("%w: %v", ErrInvalidAmount, err)
	}

	p := &amountParser{input: expression}
	value, err := p.parseExpr()
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %v", ErrInvalidAmount, err)
	}
	p.skipSpaces()
	if p.hasNext() {
		return decimal.Zero, fmt.Errorf("%w: unexpected token at position %d", ErrInvalidAmount, p.pos)
	}
	return value.Round(2), nil
}

func normalizeExpression(s string) string {
	s = strings.TrimSpace(s)
	s = currencySuffixPattern.ReplaceAllString(s, "")
	return strings.NewReplacer(
		",", ".",
		"x", "*",
		"X", "*",
		"×", "*",
		"÷", "/",
	).Replace(s)
}

func validateAmountExpression(expression string) error {
	if expression == "" {
		return fmt.Errorf("expression is empty")
	}
	if !amountExpressionPattern.MatchString(expression) {
		return fmt.Errorf("expression contains invalid characters")
	}

	balance := 0
	for _, ch := range expression {
		switch ch {
		case '(':
			balance++
		case ')':
			balance--
			if balance < 0 {
				return fmt.Errorf("expression has unbalanced parentheses")
			}
		}
	}
	if balance != 0 {
		return fmt.Errorf("expression has unbalanced parentheses")
	}
	return nil
}

type amountParser struct {
	input string
	pos   int
}

func (p *amountParser) parseExpr() (decimal.Decimal, error) {
	left, err := p.parseTerm()
	if err != nil {
		return decimal.Zero, err
	}

	for {
		p.skipSpaces()
		switch {
		case p.match('+'):
			right, err := p.parseTerm()
			if err != nil {
				return decimal.Zero, err
			}
			left = left.Add(right)
		case p.match('-'):
			right, err := p.parseTerm()
			if err != nil {
				return decimal.Zero, err
			}
			left = left.Sub(right)
		default:
			return left, nil
		}
	}
}

func (p *amountParser) parseTerm() (decimal.Decimal, error) {
	left, err := p.parseUnary()
	if err != nil {
		return decimal.Zero, err
	}

	for {
		p.skipSpaces()
		switch {
		case p.match('*'):
			right, err := p.parseUnary()
			if err != nil {
				return decimal.Zero, err
			}
			left = left.Mul(right)
		case p.match('/'):
			right, err := p.parseUnary()
			if err != nil {
				return decimal.Zero, err
			}
			if right.IsZero() {
				return decimal.Zero, fmt.Errorf("division by zero")
			}
			left = left.Div(right)
		default:
			return left, nil
		}
	}
}

func (p *amountParser) parseUnary() (decimal.Decimal, error) {
	p.skipSpaces()
	if p.match('+') {
		return p.parseUnary()
	}
	if p.match('-') {
		value, err := p.parseUnary()
		if err != nil {
			return decimal.Zero, err
		}
		return value.Neg(), nil
	}
	return p.parsePrimary()
}

func (p *amountParser) parsePrimary() (decimal.Decimal, error) {
	p.skipSpaces()
	if p.match('(') {
		value, err := p.parseExpr()
		if err != nil {
			return decimal.Zero, err
		}
		p.skipSpaces()
		if !p.match(')') {
			return decimal.Zero, fmt.Errorf("missing closing parenthesis at position %d", p.pos)
		}
		return value, nil
	}
	return p.parseNumber()
}

func (p *amountParser) parseNumber() (decimal.Decimal, error) {
	p.skipSpaces()
	start := p.pos
	hasDigit := false
	hasDot := false

	for p.hasNext() {
		ch := p.peek()
		if ch >= '0' && ch <= '9' {
			hasDigit = true
			p.pos++
			continue
		}
		if ch == '.' {
			if hasDot {
				return decimal.Zero, fmt.Errorf("invalid number format at position %d", p.pos)
			}
			hasDot = true
			p.pos++
			continue
		}
		break
	}

	if !hasDigit {
		return decimal.Zero, fmt.Errorf("expected number at position %d", start)
	}

	raw := p.input[start:p.pos]
	value, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid number %q: %w", raw, err)
	}
	return value, nil
}

func (p *amountParser) skipSpaces() {
	for p.hasNext() && (p.peek() == ' ' || p.peek() == '\t') {
		p.pos++
	}
}

func (p *amountParser) hasNext() bool {
	return p.pos < len(p.input)
}

func (p *amountParser) peek() byte {
	return p.input[p.pos]
}

func (p *amountParser) match(expected byte) bool {
	if p.hasNext() && p.peek() == expected {
		p.pos++
		return true
	}
	return false
}
