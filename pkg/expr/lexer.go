package expr

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/lemonberrylabs/bodmas-calculator/pkg/types"
)

const (
	// AllowedChars is the full character set accepted after whitespace removal.
	AllowedChars = "0123456789().*/+-^"

	// Precision is the number of fractional digits kept from a literal.
	Precision = 8

	boundaryChars = "./+-*"
	chainedOps    = "+-*/"
)

// Lexer validates and tokenizes an arithmetic expression.
type Lexer struct {
	input  string
	pos    int
	tokens []Token
}

// NewLexer creates a new lexer for the given input. Surrounding whitespace
// and internal spaces are removed before scanning.
func NewLexer(input string) *Lexer {
	return &Lexer{input: Normalize(input)}
}

// Normalize trims surrounding whitespace and removes the spaces inside s.
// Other whitespace inside the expression is left for validation to reject.
func Normalize(s string) string {
	return strings.ReplaceAll(strings.TrimSpace(s), " ", "")
}

// Tokenize validates and tokenizes raw in one call.
func Tokenize(raw string) ([]Token, error) {
	return NewLexer(raw).Tokenize()
}

// Tokenize scans the entire input and returns the validated token sequence.
// Checks run in a fixed order and the first violation is returned.
func (l *Lexer) Tokenize() ([]Token, error) {
	if l.input == "" {
		return nil, types.NewInvalidExpression("empty expression")
	}
	first, last := l.input[0], l.input[len(l.input)-1]
	if strings.IndexByte(boundaryChars, first) >= 0 || strings.IndexByte(boundaryChars, last) >= 0 {
		return nil, types.NewInvalidExpression("must not start or end with an operator")
	}
	for _, r := range l.input {
		if !strings.ContainsRune(AllowedChars, r) {
			return nil, types.NewInvalidExpression(fmt.Sprintf(
				"unsupported character: `%s`. Supported characters: `%s`", string(r), AllowedChars))
		}
	}

	prevNum, prevOp := false, false
	for l.pos < len(l.input) {
		ch := l.input[l.pos]

		if isDigit(ch) || ch == '.' {
			tok, err := l.readNumber()
			if err != nil {
				return nil, err
			}
			l.tokens = append(l.tokens, tok)
			prevNum, prevOp = true, false
			continue
		}

		if prevOp && strings.IndexByte(chainedOps, ch) >= 0 {
			return nil, types.NewInvalidExpression("operator followed by operator")
		}
		if prevNum && ch == '(' {
			return nil, types.NewInvalidExpression("digit must not be followed by `(`")
		}

		l.tokens = append(l.tokens, symbolToken(ch, l.pos))
		prevNum = false
		prevOp = strings.IndexByte(chainedOps, ch) >= 0
		l.pos++
	}

	if err := checkBalance(l.tokens); err != nil {
		return nil, err
	}
	if len(l.tokens)%2 == 0 {
		return nil, types.NewInvalidExpression("uneven expression")
	}
	return l.tokens, nil
}

// readNumber merges a run of digits and dots into one literal, keeping at
// most Precision fractional digits. Excess digits are dropped, not rounded.
func (l *Lexer) readNumber() (Token, error) {
	start := l.pos
	for l.pos < len(l.input) && (isDigit(l.input[l.pos]) || l.input[l.pos] == '.') {
		l.pos++
	}
	raw := l.input[start:l.pos]

	// A literal must begin with a digit; a leading dot after an operator
	// or parenthesis has no token form.
	if raw[0] == '.' || strings.Count(raw, ".") > 1 {
		return Token{}, types.NewInvalidExpression(fmt.Sprintf("invalid number in expression: %s", raw))
	}

	text := raw
	if dot := strings.IndexByte(text, '.'); dot >= 0 {
		if len(text) > dot+Precision+1 {
			text = text[:dot+Precision+1]
		}
		if text[len(text)-1] == '.' {
			text += "0"
		}
	}

	// Out-of-range literals keep the ±Inf that ParseFloat returns.
	f, err := strconv.ParseFloat(text, 64)
	if err != nil && !errors.Is(err, strconv.ErrRange) {
		return Token{}, types.NewInvalidExpression(fmt.Sprintf("invalid number in expression: %s", raw))
	}
	return Token{Type: TokenNumber, Value: text, Num: f, Pos: start}, nil
}

func symbolToken(ch byte, pos int) Token {
	switch ch {
	case '(':
		return Token{Type: TokenLParen, Value: "(", Pos: pos}
	case ')':
		return Token{Type: TokenRParen, Value: ")", Pos: pos}
	default:
		return Token{Type: TokenOperator, Value: string(ch), Op: Operator(string(ch)), Pos: pos}
	}
}

// checkBalance verifies parentheses with a stack; every close must match
// an open that is still pending.
func checkBalance(tokens []Token) error {
	var stack []int
	for i, tok := range tokens {
		switch tok.Type {
		case TokenLParen:
			stack = append(stack, i)
		case TokenRParen:
			if len(stack) == 0 {
				return types.NewInvalidExpression("imbalanced parentheses")
			}
			stack = stack[:len(stack)-1]
		}
	}
	if len(stack) > 0 {
		return types.NewInvalidExpression("imbalanced parentheses")
	}
	return nil
}

func isDigit(ch byte) bool {
	return ch >= '0' && ch <= '9'
}
