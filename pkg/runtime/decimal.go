package runtime

import (
	"errors"
	"math/big"

	"github.com/shopspring/decimal"
)

var ErrDivisionByZero = errors.New("division by zero")

var bigTen = big.NewInt(10)

// FormatDecimal prints d at its own scale, so 1.50 stays "1.50".
func FormatDecimal(d decimal.Decimal) string {
	if exp := d.Exponent(); exp < 0 {
		return d.StringFixed(-exp)
	}
	return d.StringFixed(0)
}

// DivideDecimal divides a by b, producing a result at a's scale rounded
// half to even.
func DivideDecimal(a, b decimal.Decimal) (decimal.Decimal, error) {
	if b.IsZero() {
		return decimal.Decimal{}, ErrDivisionByZero
	}
	ua, sa := unscaled(a)
	ub, sb := unscaled(b)

	num := new(big.Int).Mul(ua, new(big.Int).Exp(bigTen, big.NewInt(int64(sb)), nil))
	quo, rem := new(big.Int).QuoRem(num, ub, new(big.Int))
	if rem.Sign() != 0 {
		twice := new(big.Int).Abs(rem)
		twice.Lsh(twice, 1)
		switch twice.Cmp(new(big.Int).Abs(ub)) {
		case 1:
			bumpAwayFromZero(quo, num.Sign()*ub.Sign())
		case 0:
			if quo.Bit(0) == 1 {
				bumpAwayFromZero(quo, num.Sign()*ub.Sign())
			}
		}
	}
	return decimal.NewFromBigInt(quo, -sa), nil
}

// unscaled returns the coefficient and non-negative scale of d.
func unscaled(d decimal.Decimal) (*big.Int, int32) {
	coef := d.Coefficient()
	exp := d.Exponent()
	if exp >= 0 {
		scaled := new(big.Int).Mul(coef, new(big.Int).Exp(bigTen, big.NewInt(int64(exp)), nil))
		return scaled, 0
	}
	return coef, -exp
}

func bumpAwayFromZero(n *big.Int, sign int) {
	if sign < 0 {
		n.Sub(n, big.NewInt(1))
		return
	}
	n.Add(n, big.NewInt(1))
}

// DivideInteger truncates toward zero.
func DivideInteger(a, b *big.Int) (*big.Int, error) {
	if b.Sign() == 0 {
		return nil, ErrDivisionByZero
	}
	return new(big.Int).Quo(a, b), nil
}
