package main

import (
	"bytes"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/nandtools/n2t/pkg/asm"
	"github.com/nandtools/n2t/pkg/hack"
	"github.com/nandtools/n2t/pkg/vm"
	"github.com/pkg/errors"

	"github.com/teris-io/cli"
)

var Description = strings.ReplaceAll(`
The VM Translator translates programs (composed of multiple modules/files) written in
the VM language into Hack assembly code that can be further elaborated. The VM language
is a higher-level (bytecode'like) language tailored for use with the Hack computer arch.
`, "\n", " ")

var VmTranslator = cli.New(Description).
	// 'AsOptional()' allows to have more than one input .vm file, or a single
	// directory walked recursively for '*.vm' files.
	WithArg(cli.NewArg("inputs", "The bytecode (.vm) file(s) or directory to be compiled").
		AsOptional().WithType(cli.TypeString)).
	WithOption(cli.NewOption("output", "The compiled binary output (.asm)").
		WithType(cli.TypeString)).
	WithOption(cli.NewOption("bootstrap", "Forces inclusion (or, with 'false', exclusion) of the bootstrap sequence").
		WithType(cli.TypeString)).
	WithAction(Handler)

func Handler(args []string, options map[string]string) int {
	if len(args) < 1 {
		fmt.Printf("ERROR: Not enough arguments provided, use --help\n")
		return -1
	}

	var TUs []string
	for _, input := range args {
		info, err := os.Stat(input)
		if err != nil {
			report(hack.ParseError{Stage: "stat", File: input, Message: err.Error()})
			return -1
		}

		if !info.IsDir() {
			TUs = append(TUs, input)
			continue
		}

		filepath.Walk(input, func(p string, info fs.FileInfo, err error) error {
			if err != nil {
				return err
			}
			if info.IsDir() || filepath.Ext(p) != ".vm" {
				return nil
			}
			TUs = append(TUs, p)
			return nil
		})
	}

	outputPath := options["output"]
	if outputPath == "" {
		if len(args) == 1 && !isDir(args[0]) {
			outputPath = strings.TrimSuffix(args[0], filepath.Ext(args[0])) + ".asm"
		} else {
			// Directory mode places D/D.asm, matching the original vmtranslator.py.
			dir := strings.TrimRight(args[0], string(filepath.Separator))
			outputPath = filepath.Join(dir, path.Base(dir)+".asm")
		}
	}

	names := map[string]bool{}
	hasSys := false
	for _, tu := range TUs {
		name := moduleName(tu)
		if names[name] {
			report(hack.ParseError{Stage: "lowering", File: tu, Message: fmt.Sprintf("module name '%s' collides with another input, static variables would collide", name)})
			return -1
		}
		names[name] = true
		if name == "Sys" {
			hasSys = true
		}
	}

	program := vm.Program{}
	for _, tu := range TUs {
		content, err := os.ReadFile(tu)
		if err != nil {
			report(hack.ParseError{Stage: "read", File: tu, Message: err.Error()})
			return -1
		}

		parser := vm.NewParser(bytes.NewReader(content))
		module, err := parser.Parse()
		if err != nil {
			report(errors.Wrap(hack.ParseError{Stage: "parsing", File: tu, Message: err.Error()}, "vm translator"))
			return -1
		}
		program = append(program, vm.NamedModule{Name: moduleName(tu), Module: module})
	}

	bootstrap := len(TUs) > 1 || hasSys
	if raw, set := options["bootstrap"]; set {
		bootstrap = raw != "false"
	}

	lowerer := vm.NewLowerer(program, bootstrap)
	asmProgram, err := lowerer.Lower()
	if err != nil {
		report(errors.Wrap(hack.ParseError{Stage: "lowering", Message: err.Error()}, "vm translator"))
		return -1
	}

	codegen := asm.NewCodeGenerator(asmProgram)
	compiled, err := codegen.Generate()
	if err != nil {
		report(errors.Wrap(hack.ParseError{Stage: "codegen", Message: err.Error()}, "vm translator"))
		return -1
	}

	output, err := os.Create(outputPath)
	if err != nil {
		report(hack.ParseError{Stage: "open-output", File: outputPath, Message: err.Error()})
		return -1
	}
	defer output.Close()

	for _, line := range compiled {
		output.Write([]byte(line + "\n"))
	}

	return 0
}

func report(err error) { fmt.Printf("ERROR: %s\n", err) }

func isDir(p string) bool {
	info, err := os.Stat(p)
	return err == nil && info.IsDir()
}

// moduleName strips the directory and extension from a .vm path to recover the
// module name it's namespaced under (static variables, Sys.vm detection).
func moduleName(tu string) string {
	filename, extension := path.Base(tu), path.Ext(tu)
	return strings.TrimSuffix(filename, extension)
}

func main() { os.Exit(VmTranslator.Run(os.Args, os.Stdout)) }
