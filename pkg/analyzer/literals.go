package analyzer

import (
	"math"
	"math/big"

	"github.com/shopspring/decimal"

	"plc/interpreter-go/pkg/ast"
	"plc/interpreter-go/pkg/runtime"
)

var (
	minInteger = big.NewInt(math.MinInt32)
	maxInteger = big.NewInt(math.MaxInt32)
	maxDecimal = decimal.NewFromFloat(math.MaxFloat64)
)

func (a *Analyzer) checkLiteral(lit ast.Literal) (*runtime.Type, error) {
	switch l := lit.(type) {
	case *ast.NilLiteral:
		return runtime.TypeNil, nil
	case *ast.BooleanLiteral:
		return runtime.TypeBoolean, nil
	case *ast.IntegerLiteral:
		if l.Value.Cmp(minInteger) < 0 || l.Value.Cmp(maxInteger) > 0 {
			return nil, typeErrorf("Integer literal %s is out of range", l.Value)
		}
		return runtime.TypeInteger, nil
	case *ast.DecimalLiteral:
		if l.Value.Abs().GreaterThan(maxDecimal) {
			return nil, typeErrorf("Decimal literal %s is out of range", runtime.FormatDecimal(l.Value))
		}
		return runtime.TypeDecimal, nil
	case *ast.CharacterLiteral:
		return runtime.TypeCharacter, nil
	case *ast.StringLiteral:
		return runtime.TypeString, nil
	}
	return nil, typeErrorf("unsupported literal %s", lit.NodeType())
}
