package fluxion

import "testing"

// Test data for benchmarks
var (
	smallScript = `let x = 3
let y = x * 2 + 1
return y`

	mediumScript = `func classify(status) {
 if status < 300 {
  return "ok"
 } else if status < 400 {
  return "redirect"
 }
 return "error"
}
let report = []
for s in [200, 301, 404, 500] {
 echo status=s, class=classify(s)
}
return "done"`

	interpScript = `let host = "edge-1"
let port = 443
return "probing ${host}:${port} at depth ${2 + 3}"`
)

func BenchmarkParseSmall(b *testing.B) {
	for i := 0; i < b.N; i++ {
		if _, err := Parse(smallScript, "bench.flx"); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkCompileMedium(b *testing.B) {
	for i := 0; i < b.N; i++ {
		if _, err := Compile(mediumScript, "bench.flx"); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkEvaluateSmall(b *testing.B) {
	prog, err := Compile(smallScript, "bench.flx")
	if err != nil {
		b.Fatal(err)
	}
	ev := NewEvaluator(NewStdRegistry())
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := ev.Evaluate(prog, nil); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkRunMedium(b *testing.B) {
	r := NewRunner(nil)
	prog, err := Compile(mediumScript, "bench.flx")
	if err != nil {
		b.Fatal(err)
	}
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := r.RunProgram(prog, nil); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkInterpolation(b *testing.B) {
	r := NewRunner(nil)
	prog, err := Compile(interpScript, "bench.flx")
	if err != nil {
		b.Fatal(err)
	}
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := r.RunProgram(prog, nil); err != nil {
			b.Fatal(err)
		}
	}
}
