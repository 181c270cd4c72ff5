package main

import (
	"bytes"
	"fmt"
	"os"
	"strings"

	"github.com/nandtools/n2t/pkg/asm"
	"github.com/nandtools/n2t/pkg/hack"
	"github.com/pkg/errors"
	"github.com/teris-io/cli"
)

var Description = strings.ReplaceAll(`
The Hack Assembler takes assembly language code written in the Hack assembly language
and translates it into machine code that can be executed by the Hack computer. The process
involves parsing the assembly code, resolving symbols, and generating machine code.
`, "\n", " ")

var HackAssembler = cli.New(Description).
	WithArg(cli.NewArg("input", "The assembler (.asm) file to be compiled")).
	WithArg(cli.NewArg("output", "The compiled binary output (.hack)")).
	WithAction(Handler)

func Handler(args []string, options map[string]string) int {
	input, err := os.ReadFile(args[0])
	if err != nil {
		report(hack.ParseError{Stage: "read", File: args[0], Message: err.Error()})
		return -1
	}

	// Instantiate a parser for the Asm program
	parser := asm.NewParser(bytes.NewReader(input))
	// Parses the input file content and extract an AST (as a 'asm.Program') from it.
	asmProgram, err := parser.Parse()
	if err != nil {
		report(errors.Wrap(hack.ParseError{Stage: "parsing", File: args[0], Message: err.Error()}, "assembler"))
		return -1
	}

	// Instantiate a lowerer to convert the program from Asm to Hack
	lowerer := asm.NewLowerer(asmProgram)
	// Lowers the asm.Program to an in-memory/IR representation of its Hack counterpart 'hack.Program'.
	hackProgram, table, err := lowerer.Lower()
	if err != nil {
		report(errors.Wrap(hack.ParseError{Stage: "lowering", File: args[0], Message: err.Error()}, "assembler"))
		return -1
	}

	// Now, instantiates a code generator for the Hack (compiled) program
	codegen := hack.NewCodeGenerator(hackProgram, table)
	// Iterates over each instruction and spits out the relative textual representation.
	compiled, err := codegen.Generate()
	if err != nil {
		report(errors.Wrap(hack.ParseError{Stage: "codegen", File: args[0], Message: err.Error()}, "assembler"))
		return -1
	}

	// The output file is only created once the whole program has been translated.
	output, err := os.Create(args[1])
	if err != nil {
		report(hack.ParseError{Stage: "open-output", File: args[1], Message: err.Error()})
		return -1
	}
	defer output.Close()

	for _, comp := range compiled {
		line := fmt.Sprintf("%s\n", comp)
		output.Write([]byte(line))
	}

	return 0
}

func report(err error) { fmt.Printf("ERROR: %s\n", err) }

func main() { os.Exit(HackAssembler.Run(os.Args, os.Stdout)) }
