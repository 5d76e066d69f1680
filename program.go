package fluxion

import "fmt"

// Program is a parsed, desugared playbook ready for evaluation. Funcs
// indexes top-level function declarations by name so calls can resolve
// before their declaration statement has executed.
type Program struct {
	Stmts []Node
	Funcs map[string]*FuncNode
}

// Parse parses playbook source into raw statements. The result may contain
// bare-command shorthand; use Compile for the full pipeline.
func Parse(src, file string) ([]Node, error) {
	return parseSource(src, file)
}

// BuildProgram finalizes a desugared statement list into a Program. It
// verifies no command shorthand survived desugaring and collects top-level
// function declarations.
func BuildProgram(stmts []Node) (*Program, error) {
	prog := &Program{Stmts: stmts, Funcs: make(map[string]*FuncNode)}
	for _, stmt := range stmts {
		if cmd, ok := stmt.(*CommandNode); ok {
			return nil, &DesugarError{Message: fmt.Sprintf("command %s survived desugaring", cmd.Name)}
		}
		if fn, ok := stmt.(*FuncNode); ok {
			prog.Funcs[fn.Name] = fn
		}
	}
	return prog, nil
}

// Compile runs parse, desugar and program construction in one step.
func Compile(src, file string) (*Program, error) {
	stmts, err := Parse(src, file)
	if err != nil {
		return nil, err
	}
	desugared, err := Desugar(stmts)
	if err != nil {
		return nil, err
	}
	return BuildProgram(desugared)
}
