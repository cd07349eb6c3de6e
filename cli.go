package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/strager/goldscorpion/m68k"
)

func showUsage() {
	fmt.Fprintf(os.Stderr, `gsc - the GoldScorpion compiler for the Motorola 68000

Usage:
    gsc <command> [arguments]

Commands:
    build <files...>  Compile .gs files to 68000 assembly
    check <file>      Parse and type-check a .gs file
    eval <expr>       Compile and evaluate a single expression
    run <file>        Compile a .gs file, run it in the emulator and print its globals
    help              Show this help message

Examples:
    gsc build -o out main.gs
    gsc eval '3 + 4 * 2'
    gsc run examples/points.gs

Flag defaults can be set with GOLD_VERBOSE, GOLD_PRINT_LEX, GOLD_PRINT_AST,
GOLD_PRINT_MEMORY and GOLD_OUT_DIR.

Use "gsc <command> -h" for more information about a command.
`)
}

// settingsFlags registers the flags shared by the compiling commands.
func settingsFlags(fs *flag.FlagSet, settings *Settings) {
	fs.BoolVar(&settings.Verbose, "v", settings.Verbose, "Show verbose compilation details")
	fs.BoolVar(&settings.PrintLex, "lex", settings.PrintLex, "Print the token stream")
	fs.BoolVar(&settings.PrintAst, "ast", settings.PrintAst, "Print the parsed program")
	fs.BoolVar(&settings.PrintMemory, "memory", settings.PrintMemory, "Print the memory layout")
}

func buildCommand(args []string) {
	settings := DefaultSettings()
	fs := flag.NewFlagSet("build", flag.ExitOnError)
	fs.StringVar(&settings.OutDir, "o", settings.OutDir, "Output directory (default: beside each source file)")
	settingsFlags(fs, &settings)
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: gsc build [-o dir] [-v] [-lex] [-ast] [-memory] <files...>\n")
		fmt.Fprintf(os.Stderr, "Compile .gs files and their imports to 68000 assembly\n\n")
		fmt.Fprintf(os.Stderr, "Flags:\n")
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}

	if fs.NArg() == 0 {
		fmt.Fprintf(os.Stderr, "Error: expected at least one file argument\n")
		fs.Usage()
		os.Exit(1)
	}

	units, err := CompileFiles(fs.Args(), settings)
	failed := err != nil
	if err != nil {
		fmt.Fprintf(os.Stderr, "Compilation failed:\n%v\n", err)
	}

	for _, unit := range units {
		if unit.Errors.HasErrors() {
			continue
		}
		outputFile := OutputPath(unit.Path, settings)
		if err := os.WriteFile(outputFile, []byte(unit.Assembly.Listing()), 0644); err != nil {
			fmt.Fprintf(os.Stderr, "Error writing %s: %v\n", outputFile, err)
			failed = true
			continue
		}
		if settings.Verbose {
			fmt.Printf("Generated %s (%d instructions)\n", outputFile, len(unit.Assembly.Code()))
		}
	}

	if failed {
		os.Exit(1)
	}
}

func checkCommand(args []string) {
	settings := DefaultSettings()
	fs := flag.NewFlagSet("check", flag.ExitOnError)
	settingsFlags(fs, &settings)
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: gsc check [-v] [-lex] [-ast] [-memory] <file>\n")
		fmt.Fprintf(os.Stderr, "Parse and type-check a .gs file\n\n")
		fmt.Fprintf(os.Stderr, "Flags:\n")
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}

	if fs.NArg() != 1 {
		fmt.Fprintf(os.Stderr, "Error: expected exactly one file argument\n")
		fs.Usage()
		os.Exit(1)
	}

	filename := fs.Arg(0)
	if _, err := CompileFile(filename, settings, NewFileSet()); err != nil {
		fmt.Printf("%v\n", err)
		os.Exit(1)
	}
	fmt.Printf("%s: no errors found\n", filename)
}

func evalCommand(args []string) {
	fs := flag.NewFlagSet("eval", flag.ExitOnError)
	verbose := fs.Bool("v", false, "Show the generated code")
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: gsc eval [-v] <expression>\n")
		fmt.Fprintf(os.Stderr, "Compile and evaluate a single expression\n\n")
		fmt.Fprintf(os.Stderr, "Flags:\n")
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}

	if fs.NArg() != 1 {
		fmt.Fprintf(os.Stderr, "Error: expected exactly one expression argument\n")
		fs.Usage()
		os.Exit(1)
	}

	source := fs.Arg(0)
	if *verbose {
		expr, err := ParseExpression(source)
		if err == nil {
			fmt.Printf("AST: %s\n", ToSExpr(expr))
			if code, err := NewGenerator(NewMemoryTracker()).GenerateExpression(expr); err == nil {
				fmt.Print(m68k.Listing(code))
			}
		}
	}

	result, err := EvalExpression(source)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Evaluation failed: %v\n", err)
		os.Exit(1)
	}
	fmt.Println(result)
}

func runCommand(args []string) {
	settings := DefaultSettings()
	fs := flag.NewFlagSet("run", flag.ExitOnError)
	settingsFlags(fs, &settings)
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: gsc run [-v] [-lex] [-ast] [-memory] <file>\n")
		fmt.Fprintf(os.Stderr, "Compile a .gs file, execute its top-level statements and print its globals\n\n")
		fmt.Fprintf(os.Stderr, "Flags:\n")
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}

	if fs.NArg() != 1 {
		fmt.Fprintf(os.Stderr, "Error: expected exactly one file argument\n")
		fs.Usage()
		os.Exit(1)
	}

	filename := fs.Arg(0)
	source, err := os.ReadFile(filename)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error reading file %s: %v\n", filename, err)
		os.Exit(1)
	}

	unit, err := CompileSource(filename, string(source), settings)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Compilation failed: %v\n", err)
		os.Exit(1)
	}

	machine, err := Run(unit.Assembly)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Execution failed: %v\n", err)
		os.Exit(1)
	}
	if settings.Verbose {
		fmt.Printf("Executed %d instructions\n", machine.Steps)
	}

	globals, err := FormatGlobals(machine, unit.Memory)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Reading globals failed: %v\n", err)
		os.Exit(1)
	}
	fmt.Print(globals)
}

func main() {
	if len(os.Args) < 2 {
		showUsage()
		os.Exit(1)
	}

	command := os.Args[1]
	args := os.Args[2:]

	switch command {
	case "build":
		buildCommand(args)
	case "check":
		checkCommand(args)
	case "eval":
		evalCommand(args)
	case "run":
		runCommand(args)
	case "help", "-h", "--help":
		showUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", command)
		showUsage()
		os.Exit(1)
	}
}
