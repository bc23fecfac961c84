package expr

import (
	"math"
	"strconv"
	"strings"

	"github.com/lemonberrylabs/bodmas-calculator/pkg/types"
)

// Tier is a precedence group of operators reduced together.
type Tier int

const (
	TierAddSub Tier = iota + 1
	TierMulDiv
	TierPow
)

// tiers lists the precedence groups from tightest to loosest binding.
var tiers = []Tier{TierPow, TierMulDiv, TierAddSub}

// Tier returns the precedence group of op.
func (op Operator) Tier() Tier {
	switch op {
	case OpPow:
		return TierPow
	case OpMul, OpDiv:
		return TierMulDiv
	case OpAdd, OpSub:
		return TierAddSub
	default:
		return 0
	}
}

// Apply computes a op b in floating point. Division by an exact zero is
// the only failure; overflow and NaN follow native float64 behavior.
func Apply(op Operator, a, b float64) (float64, error) {
	switch op {
	case OpAdd:
		return a + b, nil
	case OpSub:
		return a - b, nil
	case OpMul:
		return a * b, nil
	case OpDiv:
		if b == 0 {
			return 0, types.NewZeroDivisionError()
		}
		return a / b, nil
	case OpPow:
		return math.Pow(a, b), nil
	default:
		return 0, types.NewInvalidExpression("unsupported operator: " + string(op))
	}
}

// FormatNumber renders f the way results are shown to users: always with
// a fractional part, switching to exponent form for very large or small
// magnitudes.
func FormatNumber(f float64) string {
	switch {
	case math.IsInf(f, 1):
		return "inf"
	case math.IsInf(f, -1):
		return "-inf"
	case math.IsNaN(f):
		return "nan"
	}
	abs := math.Abs(f)
	if abs != 0 && (abs < 1e-4 || abs >= 1e16) {
		return strconv.FormatFloat(f, 'e', -1, 64)
	}
	s := strconv.FormatFloat(f, 'f', -1, 64)
	if !strings.ContainsRune(s, '.') {
		s += ".0"
	}
	return s
}
