package fluxion

import (
	"context"
	"errors"
	"testing"
)

func runSrc(t *testing.T, src string, vars map[string]any) *Result {
	t.Helper()
	res, err := NewRunner(nil).RunText(src, "test.flx", vars)
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}
	return res
}

func runErr(t *testing.T, src string) error {
	t.Helper()
	_, err := NewRunner(nil).RunText(src, "test.flx", nil)
	if err == nil {
		t.Fatalf("expected error for %q", src)
	}
	return err
}

func evalKind(t *testing.T, err error) ErrorKind {
	t.Helper()
	var ee *EvalError
	if !errors.As(err, &ee) {
		t.Fatalf("expected EvalError, got %T: %v", err, err)
	}
	return ee.Kind
}

func TestArithmetic(t *testing.T) {
	tests := []struct {
		src  string
		want any
	}{
		{"return 1 + 2", 3},
		{"return 1 + 2.0", 3.0},
		{"return 2 * 3 + 4", 10},
		{"return 10 / 4", 2.5},
		{"return 7 % 3", 1},
		{"return -3 * 2", -6},
		{`return "a" + "b"`, "ab"},
		{"return 2 < 3", true},
		{"return 3 <= 3", true},
		{`return "abc" < "abd"`, true},
		{"return 1 == 1.0", true},
		{"return 1 != 2", true},
		{`return "a" == 1`, false},
		{"return [1, 2] == [1, 2]", true},
		{"return {a: 1} == {a: 1}", true},
		{"return !0", true},
		{"return !\"x\"", false},
	}
	for _, tt := range tests {
		res := runSrc(t, tt.src, nil)
		if !equalValues(res.Return, tt.want) {
			t.Errorf("%q: got %v (%T), want %v", tt.src, res.Return, res.Return, tt.want)
		}
	}
}

func TestArithmeticErrors(t *testing.T) {
	tests := []struct {
		src  string
		kind ErrorKind
	}{
		{"return 1 / 0", ErrDivisionByZero},
		{"return 5 % 0", ErrDivisionByZero},
		{`return "a" + 1`, ErrType},
		{`return [1] - 2`, ErrType},
		{"return missing", ErrUnknownVariable},
		{"boom()", ErrUnknownFunction},
		{"ghost = 1", ErrUnknownVariable},
	}
	for _, tt := range tests {
		err := runErr(t, tt.src)
		if kind := evalKind(t, err); kind != tt.kind {
			t.Errorf("%q: kind = %v, want %v", tt.src, kind, tt.kind)
		}
	}
}

func TestTruthiness(t *testing.T) {
	tests := []struct {
		val  any
		want string
	}{
		{nil, "f"},
		{false, "f"},
		{0, "f"},
		{0.0, "f"},
		{"", "f"},
		{[]any{}, "f"},
		{NewMap(), "f"},
		{1, "t"},
		{"no", "t"},
		{[]any{0}, "t"},
		{true, "t"},
	}
	for _, tt := range tests {
		res := runSrc(t, `return x ? "t" : "f"`, map[string]any{"x": tt.val})
		if res.Return != tt.want {
			t.Errorf("truthy(%#v): got %v, want %q", tt.val, res.Return, tt.want)
		}
	}
}

func TestShortCircuit(t *testing.T) {
	res := runSrc(t, "return false && boom()", nil)
	if res.Return != false {
		t.Errorf("got %v, want false", res.Return)
	}
	res = runSrc(t, "return true || boom()", nil)
	if res.Return != true {
		t.Errorf("got %v, want true", res.Return)
	}
	res = runSrc(t, `return "fallback" || boom()`, nil)
	if res.Return != "fallback" {
		t.Errorf("got %v, want the deciding operand", res.Return)
	}
}

func TestCoalesce(t *testing.T) {
	res := runSrc(t, "let a = null\nreturn a ?? 5", nil)
	if res.Return != 5 {
		t.Errorf("got %v, want 5", res.Return)
	}
	res = runSrc(t, "let a = 0\nreturn a ?? 5", nil)
	if res.Return != 0 {
		t.Errorf("?? must only trigger on null, got %v", res.Return)
	}
}

func TestReturnUnwindsNestedControlFlow(t *testing.T) {
	src := `func find(items) {
 for i in items {
  if i > 2 {
   return i
  }
 }
 return -1
}
return find([1, 2, 3, 4])`
	res := runSrc(t, src, nil)
	if res.Return != 3 {
		t.Errorf("got %v, want 3", res.Return)
	}
}

func TestFunctionWithoutReturnYieldsNull(t *testing.T) {
	src := "func setup() {\n let a = 1\n}\nreturn setup()"
	res := runSrc(t, src, nil)
	if res.Return != nil {
		t.Errorf("got %v, want null", res.Return)
	}
}

func TestArityMismatch(t *testing.T) {
	src := "func add(a, b) {\n return a + b\n}\n"
	for _, call := range []string{"return add(1)", "return add(1, 2, 3)"} {
		err := runErr(t, src+call)
		if kind := evalKind(t, err); kind != ErrArity {
			t.Errorf("%q: kind = %v, want ErrArity", call, kind)
		}
	}
	res := runSrc(t, src+"return add(1, 2)", nil)
	if res.Return != 3 {
		t.Errorf("got %v, want 3", res.Return)
	}
}

func TestUserFunctionRejectsNamedArguments(t *testing.T) {
	err := runErr(t, "func f(a) {\n return a\n}\nreturn f(a=1)")
	if kind := evalKind(t, err); kind != ErrType {
		t.Errorf("kind = %v, want ErrType", kind)
	}
}

func TestLexicalScoping(t *testing.T) {
	src := `let x = 1
func get() {
 return x
}
func shadow() {
 let x = 99
 return get()
}
return shadow()`
	res := runSrc(t, src, nil)
	if res.Return != 1 {
		t.Errorf("closure read caller's scope: got %v, want 1", res.Return)
	}
}

func TestLetRebindsInCurrentScope(t *testing.T) {
	res := runSrc(t, "let a = 1\nlet a = 2\nreturn a", nil)
	if res.Return != 2 {
		t.Errorf("got %v, want 2", res.Return)
	}
}

func TestLoopVariableNotVisibleAfterLoop(t *testing.T) {
	res := runSrc(t, "for p in [1, 2] {\n let q = p\n}", nil)
	if _, ok := res.Vars["p"]; ok {
		t.Error("loop variable leaked into the root scope")
	}
	if _, ok := res.Vars["q"]; ok {
		t.Error("loop body binding leaked into the root scope")
	}
}

func TestLetShadowsThenAssignMutatesOuter(t *testing.T) {
	src := `let n = 1
if true {
 n = 2
}
return n`
	res := runSrc(t, src, nil)
	if res.Return != 2 {
		t.Errorf("assignment did not reach outer binding: got %v", res.Return)
	}
}

func TestForOverMapIteratesValuesInOrder(t *testing.T) {
	res := runSrc(t, "for v in {a: 1, b: 2, c: 3} {\n echo v=v\n}", nil)
	want := []string{"v=1", "v=2", "v=3"}
	if len(res.Echoes) != len(want) {
		t.Fatalf("echoes = %v", res.Echoes)
	}
	for i, e := range want {
		if res.Echoes[i] != e {
			t.Errorf("echo %d = %q, want %q", i, res.Echoes[i], e)
		}
	}
}

func TestForOverNonIterableFails(t *testing.T) {
	err := runErr(t, "for x in 5 {\n echo x=x\n}")
	if kind := evalKind(t, err); kind != ErrType {
		t.Errorf("kind = %v, want ErrType", kind)
	}
}

func TestInterpolation(t *testing.T) {
	tests := []struct {
		src  string
		want string
	}{
		{"let p = 443\nreturn \"port ${p} open\"", "port 443 open"},
		{`return "sum=${1 + 1}"`, "sum=2"},
		{`return "f=${3.50}"`, "f=3.5"},
		{`return "b=${1 == 1}"`, "b=true"},
		{"let n = null\nreturn \"v=${n}\"", "v="},
		{`return "l=${[1, 2]}"`, `l=[1,2]`},
	}
	for _, tt := range tests {
		res := runSrc(t, tt.src, nil)
		if res.Return != tt.want {
			t.Errorf("%q: got %q, want %q", tt.src, res.Return, tt.want)
		}
	}
}

func TestDotAccess(t *testing.T) {
	src := "let r = {a: {b: 2}}\nreturn r.a.b"
	res := runSrc(t, src, nil)
	if res.Return != 2 {
		t.Errorf("got %v, want 2", res.Return)
	}
	res = runSrc(t, "let r = {a: 1}\nreturn r.missing ?? \"x\"", nil)
	if res.Return != "x" {
		t.Errorf("missing key should yield null: got %v", res.Return)
	}
	err := runErr(t, "let r = 5\nreturn r.field")
	if kind := evalKind(t, err); kind != ErrType {
		t.Errorf("kind = %v, want ErrType", kind)
	}
}

func TestDotAccessOnList(t *testing.T) {
	src := "let r = [10, 20, 30]\nreturn r.1"
	res := runSrc(t, src, nil)
	if res.Return != 20 {
		t.Errorf("got %v, want 20", res.Return)
	}
	res = runSrc(t, "let r = [[\"a\", \"b\"]]\nreturn r.0.1", nil)
	if res.Return != "b" {
		t.Errorf("chained index: got %v", res.Return)
	}
	res = runSrc(t, "let r = [10]\nreturn r.9 ?? \"none\"", nil)
	if res.Return != "none" {
		t.Errorf("out-of-range index should yield null: got %v", res.Return)
	}
	err := runErr(t, "let r = [10]\nreturn r.field")
	if kind := evalKind(t, err); kind != ErrType {
		t.Errorf("kind = %v, want ErrType", kind)
	}
}

func TestTopLevelFunctionsCallableBeforeDeclaration(t *testing.T) {
	src := "let r = double(4)\nfunc double(n) {\n return n * 2\n}\nreturn r"
	res := runSrc(t, src, nil)
	if res.Return != 8 {
		t.Errorf("got %v, want 8", res.Return)
	}
}

func TestStatementHookSeesEveryStatement(t *testing.T) {
	count := 0
	hook := WithStatementHook(func(stmt Node, env *Environment) { count++ })
	r := NewRunner(nil, hook)
	if _, err := r.RunText("let a = 1\nfor i in [1, 2] {\n let b = i\n}", "test.flx", nil); err != nil {
		t.Fatalf("run failed: %v", err)
	}
	// 1 let + 1 for + 2 loop-body lets
	if count != 4 {
		t.Errorf("hook ran %d times, want 4", count)
	}
}

func TestContextCancellationStopsRun(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	r := NewRunner(nil, WithContext(ctx))
	_, err := r.RunText("let a = 1", "test.flx", nil)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("got %v, want context.Canceled", err)
	}
}
