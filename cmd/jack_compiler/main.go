package main

import (
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/nandtools/n2t/pkg/hack"
	"github.com/nandtools/n2t/pkg/jack"
	"github.com/nandtools/n2t/pkg/vm"
	"github.com/pkg/errors"

	"github.com/teris-io/cli"
)

var Description = strings.ReplaceAll(`
The Jack Compiler compiles programs (composed of multiple classes/files) written in
the Jack language into VM modules that can be further elaborated. The Jack language
is a higher-level OOP language tailored for use with the Hack computer architecture.
`, "\n", " ")

var JackCompiler = cli.New(Description).
	// 'AsOptional()' allows to have more than one input .jack file
	WithArg(cli.NewArg("inputs", "The source (.jack) files to be compiled").
		AsOptional().WithType(cli.TypeString)).
	WithOption(cli.NewOption("stdlib", "Resolves calls against the built-in standard library ABI").
		WithType(cli.TypeBool)).
	WithOption(cli.NewOption("typecheck", "Does a full type check of source code before emitting any output").
		WithType(cli.TypeBool)).
	WithAction(Handler)

func Handler(args []string, options map[string]string) int {
	if len(args) < 1 {
		fmt.Printf("ERROR: Not enough arguments provided, use --help\n")
		return -1
	}

	// TUs is the flattened set of .jack file paths found by walking every input
	// argument (a file or a directory, recursed); one VM module is produced per TU.
	var TUs []string
	for _, input := range args {
		filepath.Walk(input, func(p string, info fs.FileInfo, err error) error {
			if err != nil {
				return err
			}
			if info.IsDir() || filepath.Ext(p) != ".jack" {
				return nil
			}
			TUs = append(TUs, p)
			return nil
		})
	}

	sources := map[string][]byte{}
	for _, tu := range TUs {
		content, err := os.ReadFile(tu)
		if err != nil {
			report(hack.ParseError{Stage: "read", File: tu, Message: err.Error()})
			return -1
		}
		sources[moduleName(tu)] = content
	}

	if _, enabled := options["typecheck"]; enabled {
		registry := jack.Registry{}
		for name, source := range sources {
			_, sigs, err := jack.ScanSignatures(source)
			if err != nil {
				report(errors.Wrap(hack.ParseError{Stage: "typecheck", File: name, Message: err.Error()}, "signature scan"))
				return -1
			}
			registry[name] = sigs
		}
		if _, enabled := options["stdlib"]; enabled {
			for name, sigs := range jack.StandardLibraryABI {
				registry[name] = sigs
			}
		}

		for name, source := range sources {
			checker, err := jack.NewTypeChecker(source, registry)
			if err != nil {
				report(errors.Wrap(hack.ParseError{Stage: "typecheck", File: name, Message: err.Error()}, "jack compiler"))
				return -1
			}
			if err := checker.Check(); err != nil {
				report(errors.Wrap(hack.ParseError{Stage: "typecheck", File: name, Message: err.Error()}, "jack compiler"))
				return -1
			}
		}
	}

	program := vm.Program{}
	for _, tu := range TUs {
		name := moduleName(tu)

		module, err := jack.CompileClass(sources[name])
		if err != nil {
			report(errors.Wrap(hack.ParseError{Stage: "compile", File: name, Message: err.Error()}, "jack compiler"))
			return -1
		}
		program = append(program, vm.NamedModule{Name: name, Module: module})
	}

	codegen := vm.NewCodeGenerator(program)
	compiled, err := codegen.Generate()
	if err != nil {
		report(errors.Wrap(hack.ParseError{Stage: "codegen", Message: err.Error()}, "jack compiler"))
		return -1
	}

	for _, tu := range TUs {
		name := moduleName(tu)
		lines, ok := compiled[name]
		if !ok {
			report(hack.ParseError{Stage: "codegen", File: tu, Message: "no compiled module produced for this class file"})
			return -1
		}

		extension := path.Ext(tu)
		output, err := os.Create(strings.TrimSuffix(tu, extension) + ".vm")
		if err != nil {
			report(hack.ParseError{Stage: "open-output", File: tu, Message: err.Error()})
			return -1
		}
		defer output.Close()

		for _, line := range lines {
			output.Write([]byte(line + "\n"))
		}
	}

	return 0
}

func report(err error) { fmt.Printf("ERROR: %s\n", err) }

// moduleName strips the directory and extension from a .jack path to recover
// the class name it declares (e.g. "src/Main.jack" -> "Main").
func moduleName(tu string) string {
	filename, extension := path.Base(tu), path.Ext(tu)
	return strings.TrimSuffix(filename, extension)
}

func main() { os.Exit(JackCompiler.Run(os.Args, os.Stdout)) }
