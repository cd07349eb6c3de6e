package main

import "github.com/xyproto/env/v2"

// DefaultSettings reads the defaults for command line flags from the
// environment:
//
//	GOLD_VERBOSE       print progress
//	GOLD_PRINT_LEX     dump tokens
//	GOLD_PRINT_AST     dump the parsed program
//	GOLD_PRINT_MEMORY  dump the memory layout
//	GOLD_OUT_DIR       directory for generated .asm files
func DefaultSettings() Settings {
	return Settings{
		Verbose:     env.Bool("GOLD_VERBOSE"),
		PrintLex:    env.Bool("GOLD_PRINT_LEX"),
		PrintAst:    env.Bool("GOLD_PRINT_AST"),
		PrintMemory: env.Bool("GOLD_PRINT_MEMORY"),
		OutDir:      env.Str("GOLD_OUT_DIR", ""),
	}
}
