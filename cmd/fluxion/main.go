package main

import (
	"fmt"
	"os"

	"github.com/alecthomas/kong"

	fluxion "github.com/kriptokasim/FluxionDSL"
)

var cli struct {
	Run struct {
		Script string   `short:"s" required:"" type:"existingfile" help:"Playbook file to execute."`
		Define []string `short:"D" placeholder:"name=value" help:"Initial variable binding; a bare name binds true. Repeatable."`
	} `cmd:"" help:"Execute a playbook and print its result as JSON."`

	Fmt struct {
		Script string `short:"s" required:"" type:"existingfile" help:"Playbook file to print."`
	} `cmd:"" help:"Parse a playbook and print its canonical desugared form."`

	Builtins struct{} `cmd:"" help:"List the registered builtin functions."`
}

func main() {
	ctx := kong.Parse(&cli,
		kong.Name("fluxion"),
		kong.Description("Run Fluxion probing playbooks."),
		kong.UsageOnError(),
	)
	var err error
	switch ctx.Command() {
	case "run":
		err = runScript(cli.Run.Script, cli.Run.Define)
	case "fmt":
		err = formatScript(cli.Fmt.Script)
	case "builtins":
		for _, name := range fluxion.DefaultRegistry().List() {
			fmt.Println(name)
		}
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, "fluxion:", err)
		os.Exit(1)
	}
}

func runScript(path string, defines []string) error {
	vars, err := fluxion.ParseDefines(defines)
	if err != nil {
		return err
	}
	runner := fluxion.NewRunner(nil)
	result, err := runner.RunFile(path, vars)
	if err != nil {
		return err
	}
	out := fluxion.NewMap()
	out.Set("return", result.Return)
	out.Set("vars", result.Vars)
	echoes := make([]any, len(result.Echoes))
	for i, e := range result.Echoes {
		echoes[i] = e
	}
	out.Set("echoes", echoes)
	encoded, err := fluxion.MarshalJSON(out)
	if err != nil {
		return err
	}
	fmt.Println(string(encoded))
	return nil
}

func formatScript(path string) error {
	src, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	prog, err := fluxion.Compile(string(src), path)
	if err != nil {
		return err
	}
	fmt.Print(fluxion.MarshalAST(prog.Stmts))
	return nil
}
