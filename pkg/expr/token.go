// Package expr validates and evaluates infix arithmetic expressions.
// It handles decimal literals, parentheses and the operators + - * / ^,
// reducing a token sequence by precedence tier until one value remains.
package expr

// TokenType represents the type of a lexical token.
type TokenType int

const (
	TokenNumber   TokenType = iota // decimal literal
	TokenOperator                  // + - * / ^
	TokenLParen                    // (
	TokenRParen                    // )
)

// Operator is one of the five binary operators.
type Operator string

const (
	OpAdd Operator = "+"
	OpSub Operator = "-"
	OpMul Operator = "*"
	OpDiv Operator = "/"
	OpPow Operator = "^"
)

// Operators lists every operator in the fixed order used wherever
// operators are scanned, such as most-used tie-breaks.
var Operators = []Operator{OpAdd, OpSub, OpMul, OpDiv, OpPow}

// Token represents a single lexical token.
type Token struct {
	Type  TokenType
	Value string   // canonical string form
	Num   float64  // parsed value (for TokenNumber)
	Op    Operator // operator (for TokenOperator)
	Pos   int      // position in the normalized input
}

// String returns a debug-friendly representation of the token type.
func (t TokenType) String() string {
	switch t {
	case TokenNumber:
		return "NUMBER"
	case TokenOperator:
		return "OPERATOR"
	case TokenLParen:
		return "LPAREN"
	case TokenRParen:
		return "RPAREN"
	default:
		return "UNKNOWN"
	}
}

// IsNumber reports whether the token is a numeric literal or reduced value.
func (t Token) IsNumber() bool {
	return t.Type == TokenNumber
}

// IsParen reports whether the token is an open or close parenthesis.
func (t Token) IsParen() bool {
	return t.Type == TokenLParen || t.Type == TokenRParen
}

// Usage counts how many times each operator was applied.
type Usage map[Operator]int

// NewUsage returns a Usage with every operator present at zero.
func NewUsage() Usage {
	u := make(Usage, len(Operators))
	for _, op := range Operators {
		u[op] = 0
	}
	return u
}

// Add accumulates other into u.
func (u Usage) Add(other Usage) {
	for op, n := range other {
		u[op] += n
	}
}

// Total returns the number of operator applications.
func (u Usage) Total() int {
	total := 0
	for _, n := range u {
		total += n
	}
	return total
}

// Canonical returns the string form of every token, in order.
func Canonical(tokens []Token) []string {
	out := make([]string, len(tokens))
	for i, tok := range tokens {
		out[i] = tok.Value
	}
	return out
}
