package fluxion

import (
	"strings"
	"testing"
)

func TestMarshalASTCanonicalForm(t *testing.T) {
	prog, err := Compile("probe url=\"x\", timeout=5\nlet a = 1 + 2", "test.flx")
	if err != nil {
		t.Fatalf("Compile failed: %v", err)
	}
	got := MarshalAST(prog.Stmts)
	want := "probe({url: \"x\", timeout: 5})\nlet a = 1 + 2\n"
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestMarshalASTReparses(t *testing.T) {
	src := `func check(host) {
 let r = http_get(url=host)
 if r.ok {
  return r.status
 }
 return 0
}
for h in hosts {
 echo status=check(h)
}`
	prog, err := Compile(src, "test.flx")
	if err != nil {
		t.Fatalf("Compile failed: %v", err)
	}
	printed := MarshalAST(prog.Stmts)
	reparsed, err := Compile(printed, "printed.flx")
	if err != nil {
		t.Fatalf("printed form does not reparse: %v\n%s", err, printed)
	}
	if again := MarshalAST(reparsed.Stmts); again != printed {
		t.Errorf("printing is not stable:\nfirst:  %s\nsecond: %s", printed, again)
	}
}

func TestMarshalValue(t *testing.T) {
	m := NewMap()
	m.Set("name", "scan")
	m.Set("ports", []any{80, 443})
	tests := []struct {
		in   any
		want string
	}{
		{nil, "null"},
		{true, "true"},
		{42, "42"},
		{2.5, "2.5"},
		{"a\"b", `"a\"b"`},
		{[]any{1, "x"}, `[1, "x"]`},
		{m, `{name: "scan", ports: [80, 443]}`},
	}
	for _, tt := range tests {
		if got := MarshalValue(tt.in); got != tt.want {
			t.Errorf("MarshalValue(%#v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestMarshalValueReparsesAsLiteral(t *testing.T) {
	m := NewMap()
	m.Set("depth", 3)
	src := "return " + MarshalValue(m)
	res := runSrc(t, src, nil)
	rm, ok := res.Return.(*Map)
	if !ok {
		t.Fatalf("got %T", res.Return)
	}
	if v, _ := rm.Get("depth"); v != 3 {
		t.Errorf("depth = %v", v)
	}
}

func TestInterpolationPrintsBack(t *testing.T) {
	prog, err := Compile(`let msg = "port ${p} open"`, "test.flx")
	if err != nil {
		t.Fatalf("Compile failed: %v", err)
	}
	printed := MarshalAST(prog.Stmts)
	if !strings.Contains(printed, "${p}") {
		t.Errorf("interpolation lost in printing: %q", printed)
	}
}
