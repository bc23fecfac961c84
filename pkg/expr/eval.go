package expr

import (
	"github.com/lemonberrylabs/bodmas-calculator/pkg/types"
)

// Reducer collapses a validated token sequence to a single value.
// Each Reducer owns a private copy of the tokens and its usage counts.
type Reducer struct {
	tokens []Token
	usage  Usage
}

// NewReducer creates a reducer over a copy of tokens.
func NewReducer(tokens []Token) *Reducer {
	return &Reducer{
		tokens: append([]Token(nil), tokens...),
		usage:  NewUsage(),
	}
}

// Evaluate reduces tokens to a number and reports how often each operator
// was applied. The input slice is not modified.
func Evaluate(tokens []Token) (float64, Usage, error) {
	return NewReducer(tokens).Reduce()
}

// Eval validates, tokenizes and evaluates raw.
func Eval(raw string) (float64, Usage, error) {
	tokens, err := Tokenize(raw)
	if err != nil {
		return 0, nil, err
	}
	return Evaluate(tokens)
}

// Reduce runs the reduction loop until one token remains. Every iteration
// either strips parentheses around a bare number or applies one operator
// from the tightest tier that has work; an iteration that does neither
// means the sequence was malformed.
func (r *Reducer) Reduce() (float64, Usage, error) {
	if len(r.tokens) == 0 {
		return 0, nil, types.NewInvalidExpression("empty expression")
	}

	for len(r.tokens) != 1 {
		if r.collapseParens() {
			continue
		}

		applied := false
		for _, tier := range tiers {
			ok, err := r.reduceTier(tier)
			if err != nil {
				return 0, nil, err
			}
			if ok {
				applied = true
				break
			}
		}
		if !applied {
			return 0, nil, types.NewInvalidExpression("malformed expression")
		}
	}

	if !r.tokens[0].IsNumber() {
		return 0, nil, types.NewInvalidExpression("malformed expression")
	}
	return r.tokens[0].Num, r.usage, nil
}

// collapseParens replaces every "( number )" window with the number.
func (r *Reducer) collapseParens() bool {
	collapsed := false
	for i := 0; i+2 < len(r.tokens); i++ {
		if r.tokens[i].Type == TokenLParen && r.tokens[i+1].IsNumber() && r.tokens[i+2].Type == TokenRParen {
			r.replace(i, i+3, r.tokens[i+1])
			collapsed = true
		}
	}
	return collapsed
}

// reduceTier applies the leftmost ready operator of tier, if any.
func (r *Reducer) reduceTier(tier Tier) (bool, error) {
	for i := 1; i+1 < len(r.tokens); i++ {
		tok := r.tokens[i]
		if tok.Type != TokenOperator || tok.Op.Tier() != tier || !r.ready(i) {
			continue
		}

		left, right := r.tokens[i-1], r.tokens[i+1]
		v, err := Apply(tok.Op, left.Num, right.Num)
		if err != nil {
			return false, err
		}
		r.usage[tok.Op]++
		r.replace(i-1, i+2, Token{Type: TokenNumber, Value: FormatNumber(v), Num: v, Pos: left.Pos})
		return true, nil
	}
	return false, nil
}

// ready reports whether the operator at i can be applied now: both
// operands are bare numbers (not bordering an unresolved group), the left
// operand is not owed to an operator of the same or a tighter tier on its
// left, and the right operand is not claimed by a tighter operator.
func (r *Reducer) ready(i int) bool {
	if !r.tokens[i-1].IsNumber() || !r.tokens[i+1].IsNumber() {
		return false
	}
	tier := r.tokens[i].Op.Tier()
	if i-2 >= 0 && r.tokens[i-2].Type == TokenOperator && r.tokens[i-2].Op.Tier() >= tier {
		return false
	}
	if i+2 < len(r.tokens) && r.tokens[i+2].Type == TokenOperator && r.tokens[i+2].Op.Tier() > tier {
		return false
	}
	return true
}

// replace swaps tokens[from:to] for tok.
func (r *Reducer) replace(from, to int, tok Token) {
	r.tokens[from] = tok
	r.tokens = append(r.tokens[:from+1], r.tokens[to:]...)
}
