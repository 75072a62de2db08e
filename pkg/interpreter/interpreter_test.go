package interpreter

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"testing"

	"github.com/MakeNowJust/heredoc"

	"plc/interpreter-go/pkg/analyzer"
	"plc/interpreter-go/pkg/ast"
	"plc/interpreter-go/pkg/parser"
	"plc/interpreter-go/pkg/runtime"
)

type harness struct {
	base  *runtime.Scope
	types *runtime.TypeTable
	out   *bytes.Buffer
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{base: runtime.NewScope(), types: runtime.NewTypeTable(), out: &bytes.Buffer{}}
	h.define(t, &runtime.Function{
		Name:       "print",
		ParamTypes: []*runtime.Type{runtime.TypeAny},
		ReturnType: runtime.TypeNil,
		Invoke: func(args []runtime.Value) (runtime.Value, error) {
			fmt.Fprintln(h.out, runtime.Display(args[0]))
			return runtime.NilValue{}, nil
		},
	})
	h.define(t, &runtime.Function{
		Name:       "range",
		ParamTypes: []*runtime.Type{runtime.TypeInteger, runtime.TypeInteger},
		ReturnType: runtime.TypeIntegerIterable,
		Invoke: func(args []runtime.Value) (runtime.Value, error) {
			start := args[0].(runtime.IntegerValue)
			end := args[1].(runtime.IntegerValue)
			return &runtime.RangeValue{Start: start.Val, End: end.Val}, nil
		},
	})
	return h
}

func (h *harness) define(t *testing.T, fn *runtime.Function) {
	t.Helper()
	if err := h.base.DefineFunction(fn); err != nil {
		t.Fatalf("define %s: %v", fn.Name, err)
	}
}

func (h *harness) prepare(t *testing.T, src string) *ast.Source {
	t.Helper()
	tree, err := parser.ParseText(src)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if err := analyzer.New(h.base, analyzer.WithTypes(h.types)).Analyze(tree); err != nil {
		t.Fatalf("analyze: %v", err)
	}
	return tree
}

func (h *harness) run(t *testing.T, src string, opts ...Option) (runtime.Value, error) {
	t.Helper()
	tree := h.prepare(t, src)
	return New(h.base, opts...).Run(context.Background(), tree)
}

func mustRun(t *testing.T, src string) (runtime.Value, string) {
	t.Helper()
	h := newHarness(t)
	val, err := h.run(t, src)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	return val, h.out.String()
}

func expectRuntimeError(t *testing.T, err error, fragment string) {
	t.Helper()
	var rtErr *RuntimeError
	if !errors.As(err, &rtErr) {
		t.Fatalf("expected RuntimeError, got %v", err)
	}
	if !strings.Contains(rtErr.Message, fragment) {
		t.Fatalf("message %q does not mention %q", rtErr.Message, fragment)
	}
}

func expectInteger(t *testing.T, val runtime.Value, want string) {
	t.Helper()
	iv, ok := val.(runtime.IntegerValue)
	if !ok {
		t.Fatalf("expected integer result, got %#v", val)
	}
	if iv.Val.String() != want {
		t.Fatalf("result = %s, want %s", iv.Val, want)
	}
}

func TestRunWhileLoop(t *testing.T) {
	val, _ := mustRun(t, "DEF main() DO LET i = 0; WHILE i < 3 DO i = i + 1; END RETURN i; END")
	expectInteger(t, val, "3")
}

func TestRunDivisionByZero(t *testing.T) {
	h := newHarness(t)
	val, err := h.run(t, "DEF main() DO RETURN 1 / 0; END")
	expectRuntimeError(t, err, "Division by zero")
	if val != nil {
		t.Fatalf("expected no value, got %v", val)
	}
	_, err = newHarness(t).run(t, "DEF main() DO RETURN 1.0 / 0.0; END")
	expectRuntimeError(t, err, "Division by zero")
}

func TestRunHelloWorld(t *testing.T) {
	val, out := mustRun(t, `DEF main() DO print("Hello, World!"); END`)
	if _, ok := val.(runtime.NilValue); !ok {
		t.Fatalf("main without RETURN should yield nil, got %#v", val)
	}
	if out != "Hello, World!\n" {
		t.Fatalf("unexpected output %q", out)
	}
}

func TestRunArithmetic(t *testing.T) {
	cases := []struct {
		expr string
		want string
	}{
		{"1 + 2 * 3", "7"},
		{"(1 + 2) * 3", "9"},
		{"10 - 4 - 3", "3"},
		{"-7 / 2", "-3"},
		{"7 / -2", "-3"},
		{"2147483647 * 2147483647 * 2147483647", "9903520300447984150353281023"},
		{"1.0 / 3.0", "0.3"},
		{"0.5 / 2.0", "0.2"},
		{"1.5 + 2.25", "3.75"},
		{"1.5 * 2.0", "3.00"},
		{"2.50 - 0.5", "2.00"},
		{"\"n=\" + 1", "n=1"},
		{"\"d=\" + 1.50", "d=1.50"},
		{"'c' + \"har\"", "char"},
		{"\"\" + TRUE + NIL", "truenil"},
	}
	for _, tc := range cases {
		t.Run(tc.expr, func(t *testing.T) {
			_, out := mustRun(t, "DEF main() DO print("+tc.expr+"); END")
			if out != tc.want+"\n" {
				t.Fatalf("%s printed %q, want %q", tc.expr, out, tc.want)
			}
		})
	}
}

func TestRunComparisons(t *testing.T) {
	cases := []struct {
		expr string
		want string
	}{
		{"1 < 2", "true"},
		{"2 <= 2", "true"},
		{"3 > 4", "false"},
		{"1.0 == 1.00", "true"},
		{"\"abc\" < \"abd\"", "true"},
		{"'b' >= 'a'", "true"},
		{"1 == \"1\"", "false"},
		{"1 != 1.0", "true"},
		{"\"x\" == \"x\"", "true"},
	}
	for _, tc := range cases {
		t.Run(tc.expr, func(t *testing.T) {
			_, out := mustRun(t, "DEF main() DO print("+tc.expr+"); END")
			if out != tc.want+"\n" {
				t.Fatalf("%s printed %q, want %q", tc.expr, out, tc.want)
			}
		})
	}
	_, err := newHarness(t).run(t, "DEF main() DO print(1 < \"a\"); END")
	expectRuntimeError(t, err, "cannot compare")
}

func TestRunAndEvaluatesBothSidesAndComparesThem(t *testing.T) {
	cases := []struct{ expr, want string }{
		{"TRUE AND TRUE", "true"},
		{"TRUE AND FALSE", "false"},
		{"FALSE AND TRUE", "false"},
		{"FALSE AND FALSE", "true"},
	}
	for _, tc := range cases {
		_, out := mustRun(t, "DEF main() DO print("+tc.expr+"); END")
		if out != tc.want+"\n" {
			t.Fatalf("%s printed %q, want %q", tc.expr, out, tc.want)
		}
	}

	_, out := mustRun(t, heredoc.Doc(`
		DEF noisy(label: String, result: Boolean): Boolean DO
		    print(label);
		    RETURN result;
		END
		DEF main() DO
		    print(noisy("left", FALSE) AND noisy("right", TRUE));
		END
	`))
	if out != "left\nright\nfalse\n" {
		t.Fatalf("AND should evaluate both operands, got %q", out)
	}
}

func TestRunOrShortCircuits(t *testing.T) {
	_, out := mustRun(t, heredoc.Doc(`
		DEF noisy(label: String, result: Boolean): Boolean DO
		    print(label);
		    RETURN result;
		END
		DEF main() DO
		    print(noisy("a", TRUE) OR noisy("b", FALSE));
		    print(noisy("c", FALSE) OR noisy("d", TRUE));
		    print(FALSE OR FALSE);
		END
	`))
	if out != "a\ntrue\nc\nd\ntrue\nfalse\n" {
		t.Fatalf("unexpected output %q", out)
	}
}

func TestRunIfEvaluatesOnlyChosenBranch(t *testing.T) {
	_, out := mustRun(t, heredoc.Doc(`
		DEF main() DO
		    IF 1 < 2 DO
		        print("then");
		    ELSE
		        print(1 / 0);
		    END
		    IF FALSE DO
		        print(1 / 0);
		    END
		END
	`))
	if out != "then\n" {
		t.Fatalf("unexpected output %q", out)
	}
}

func TestRunForLoop(t *testing.T) {
	val, out := mustRun(t, heredoc.Doc(`
		DEF main() DO
		    LET total = 0;
		    FOR i IN range(0, 5) DO
		        LET doubled = i * 2;
		        total = total + doubled;
		    END
		    FOR i IN range(3, 3) DO
		        print("never");
		    END
		    RETURN total;
		END
	`))
	expectInteger(t, val, "20")
	if out != "" {
		t.Fatalf("empty range should not run its body, got %q", out)
	}
}

func TestRunReturnStopsLoopsAndMethod(t *testing.T) {
	val, out := mustRun(t, heredoc.Doc(`
		DEF find(limit: Integer): Integer DO
		    FOR i IN range(0, 100) DO
		        IF i * i > limit DO
		            RETURN i;
		        END
		    END
		    RETURN -1;
		END
		DEF main() DO
		    LET n = 0;
		    WHILE TRUE DO
		        n = n + 1;
		        IF n == 4 DO
		            RETURN find(50);
		        END
		    END
		    print("unreachable");
		END
	`))
	expectInteger(t, val, "8")
	if out != "" {
		t.Fatalf("statements after RETURN ran: %q", out)
	}
}

func TestRunRecursion(t *testing.T) {
	val, _ := mustRun(t, heredoc.Doc(`
		DEF fact(n: Integer): Integer DO
		    IF n <= 1 DO
		        RETURN 1;
		    END
		    RETURN n * fact(n - 1);
		END
		DEF main() DO
		    RETURN fact(25);
		END
	`))
	expectInteger(t, val, "15511210043330985984000000")
}

func TestRunFieldsAndShadowing(t *testing.T) {
	_, out := mustRun(t, heredoc.Doc(`
		LET counter: Integer = 10;
		LET label: String = "count";
		DEF bump() DO
		    counter = counter + 1;
		END
		DEF show(label: String) DO
		    print(label + ": " + counter);
		END
		DEF main() DO
		    bump();
		    bump();
		    show("local");
		    LET counter = 0;
		    print(counter);
		    print(label);
		END
	`))
	if out != "local: 12\n0\ncount\n" {
		t.Fatalf("unexpected output %q", out)
	}
}

func TestRunOverloadByArity(t *testing.T) {
	_, out := mustRun(t, heredoc.Doc(`
		DEF greet() DO print("hi"); END
		DEF greet(name: String) DO print("hi " + name); END
		DEF main() DO
		    greet();
		    greet("bo");
		END
	`))
	if out != "hi\nhi bo\n" {
		t.Fatalf("unexpected output %q", out)
	}
}

func TestRunStructValues(t *testing.T) {
	h := newHarness(t)
	point := runtime.NewStructType("Point")
	if err := point.Fields.DefineVariable(&runtime.Variable{Name: "x", Type: runtime.TypeInteger}); err != nil {
		t.Fatalf("define field: %v", err)
	}
	bump := &runtime.Function{
		Name:       "bump",
		ParamTypes: []*runtime.Type{point, runtime.TypeInteger},
		ReturnType: runtime.TypeInteger,
		Invoke: func(args []runtime.Value) (runtime.Value, error) {
			self := args[0].(*runtime.StructValue)
			x, err := self.Scope.LookupVariable("x")
			if err != nil {
				return nil, err
			}
			sum := new(big.Int).Add(x.Value.(runtime.IntegerValue).Val, args[1].(runtime.IntegerValue).Val)
			x.Value = runtime.IntegerValue{Val: sum}
			return x.Value, nil
		},
	}
	if err := point.Methods.DefineFunction(bump); err != nil {
		t.Fatalf("define method: %v", err)
	}
	if err := h.types.Register(point); err != nil {
		t.Fatalf("register: %v", err)
	}
	h.define(t, &runtime.Function{
		Name:       "origin",
		ReturnType: point,
		Invoke: func([]runtime.Value) (runtime.Value, error) {
			return runtime.NewStruct(point)
		},
	})

	val, err := h.run(t, heredoc.Doc(`
		DEF main(): Integer DO
		    LET p: Point = origin();
		    LET q: Point = origin();
		    p.x = 5;
		    q.x = 100;
		    p.bump(2);
		    RETURN p.x + p.bump(1);
		END
	`))
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	expectInteger(t, val, "15")
}

func TestRunStackErrorFrames(t *testing.T) {
	h := newHarness(t)
	_, err := h.run(t, heredoc.Doc(`
		DEF inner(n: Integer): Integer DO
		    RETURN 10 / n;
		END
		DEF outer(): Integer DO
		    RETURN inner(0);
		END
		DEF main() DO
		    RETURN outer();
		END
	`))
	var stackErr *StackError
	if !errors.As(err, &stackErr) {
		t.Fatalf("expected StackError, got %v", err)
	}
	if strings.Join(stackErr.Frames, ",") != "inner,outer,main" {
		t.Fatalf("unexpected frames %v", stackErr.Frames)
	}
	want := "  at inner\n  at outer\n  at main"
	if got := strings.Join(stackErr.Trace(), "\n"); got != want {
		t.Fatalf("unexpected trace:\n%s", got)
	}
	expectRuntimeError(t, err, "Division by zero")
}

func TestRunMaxCallDepth(t *testing.T) {
	h := newHarness(t)
	_, err := h.run(t, heredoc.Doc(`
		DEF loop(n: Integer): Integer DO
		    RETURN loop(n + 1);
		END
		DEF main() DO
		    RETURN loop(0);
		END
	`), WithMaxCallDepth(50))
	expectRuntimeError(t, err, "maximum call depth 50 exceeded")
}

func TestRunHonoursCancellation(t *testing.T) {
	h := newHarness(t)
	tree := h.prepare(t, "DEF main() DO WHILE TRUE DO END END")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := New(h.base).Run(ctx, tree)
	expectRuntimeError(t, err, "interrupted")
}

func TestRunReleasesFrames(t *testing.T) {
	h := newHarness(t)
	arena := h.base.Arena()
	before := arena.Live()

	if _, err := h.run(t, "DEF main() DO FOR i IN range(0, 3) DO IF i == 1 DO RETURN i; END END END"); err != nil {
		t.Fatalf("run: %v", err)
	}
	if arena.Live() != before {
		t.Fatalf("frames leaked: %d live, want %d", arena.Live(), before)
	}

	h2 := newHarness(t)
	arena2 := h2.base.Arena()
	before2 := arena2.Live()
	_, err := h2.run(t, "DEF f(n: Integer) DO WHILE TRUE DO LET x = 1 / n; END END DEF main() DO f(0); END")
	expectRuntimeError(t, err, "Division by zero")
	if arena2.Live() != before2 {
		t.Fatalf("frames leaked after error: %d live, want %d", arena2.Live(), before2)
	}
}

func TestRunRequiresAnalysis(t *testing.T) {
	tree, err := parser.ParseText("DEF main() DO END")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	_, err = New(nil).Run(context.Background(), tree)
	expectRuntimeError(t, err, "has not been analyzed")
}

func TestRunIsDeterministic(t *testing.T) {
	src := heredoc.Doc(`
		DEF main() DO
		    LET acc = "";
		    FOR i IN range(0, 4) DO
		        acc = acc + i + ",";
		    END
		    print(acc);
		    print(10.0 / 4.0);
		END
	`)
	_, first := mustRun(t, src)
	_, second := mustRun(t, src)
	if first != second || first != "0,1,2,3,\n2.5\n" {
		t.Fatalf("outputs differ or are wrong: %q vs %q", first, second)
	}
}

func TestRunOperandOrder(t *testing.T) {
	pairs := [][2]string{{"7", "3"}, {"7.5", "2.5"}}
	for _, p := range pairs {
		_, out := mustRun(t, fmt.Sprintf(heredoc.Doc(`
			DEF main() DO
			    print(%[1]s + %[2]s == %[2]s + %[1]s);
			    print(%[1]s * %[2]s == %[2]s * %[1]s);
			    print(%[1]s - %[2]s == %[2]s - %[1]s);
			    print(%[1]s / %[2]s == %[2]s / %[1]s);
			END
		`), p[0], p[1]))
		if out != "true\ntrue\nfalse\nfalse\n" {
			t.Fatalf("operand order for %v: %q", p, out)
		}
	}
}
