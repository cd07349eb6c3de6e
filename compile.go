package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// Settings controls a compilation run.
type Settings struct {
	Verbose     bool
	PrintLex    bool
	PrintAst    bool
	PrintMemory bool
	OutDir      string    // where build writes .asm files; empty means beside the source
	Out         io.Writer // progress and dumps; nil means stdout
}

var outMu sync.Mutex

// printf writes to the settings' output. Files compiled concurrently share
// it, so writes are serialized.
func (s Settings) printf(format string, args ...any) {
	outMu.Lock()
	defer outMu.Unlock()
	w := s.Out
	if w == nil {
		w = os.Stdout
	}
	fmt.Fprintf(w, format, args...)
}

// Unit is the result of compiling one source file.
type Unit struct {
	Path     string
	Tokens   []Token
	Program  *Program
	Memory   *MemoryTracker
	Assembly *Assembly
	Imports  []string
	Errors   ErrorCollection
}

// FileSet records which files have been compiled so that imports are
// processed once even when they form a cycle. It is safe for concurrent use.
type FileSet struct {
	mu   sync.Mutex
	seen map[string]bool
}

func NewFileSet() *FileSet {
	return &FileSet{seen: map[string]bool{}}
}

// Claim marks path as compiled and reports whether it was new.
func (s *FileSet) Claim(path string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.seen[path] {
		return false
	}
	s.seen[path] = true
	return true
}

// CompileSource compiles source text. Diagnostics are collected in the
// unit; the error is non-nil when there were any, or when lexing failed or
// the compiler hit an internal error.
func CompileSource(path, source string, settings Settings) (unit *Unit, err error) {
	defer func() {
		if r := recover(); r != nil {
			ie, ok := r.(InternalError)
			if !ok {
				panic(r)
			}
			unit = nil
			err = fmt.Errorf("%s: %w", path, ie)
		}
	}()

	tokens, err := Lex(source)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	unit = &Unit{Path: path, Tokens: tokens}
	if settings.PrintLex {
		var sb strings.Builder
		for _, tok := range tokens {
			sb.WriteString(tok.String())
			sb.WriteString(" ")
		}
		settings.printf("%s tokens:\n%s\n", path, sb.String())
	}

	parser := NewParser(tokens)
	unit.Program = parser.ParseProgram()
	unit.Errors.Merge(parser.Errors)
	if settings.PrintAst {
		settings.printf("%s ast:\n%s\n", path, ProgramToSExpr(unit.Program))
	}
	for _, stmt := range unit.Program.Statements {
		if imp, ok := stmt.(*ImportStatement); ok {
			unit.Imports = append(unit.Imports, imp.Path)
		}
	}

	unit.Memory = NewMemoryTracker()
	generator := NewGenerator(unit.Memory)
	unit.Assembly = generator.GenerateProgram(unit.Program)
	unit.Errors.Merge(generator.Errors)
	if settings.PrintMemory {
		settings.printf("%s memory:\n%s", path, unit.Memory.String())
	}

	if unit.Errors.HasErrors() {
		return unit, fmt.Errorf("%s: %d errors:\n%s", path, unit.Errors.Count(), unit.Errors.String())
	}
	return unit, nil
}

// CompileFile compiles path and, first, every file it imports that files
// has not seen. Imports are resolved relative to the importing file. The
// returned units are in dependency order.
func CompileFile(path string, settings Settings, files *FileSet) ([]*Unit, error) {
	path = filepath.Clean(path)
	if !files.Claim(path) {
		return nil, nil
	}
	if settings.Verbose {
		settings.printf("compiling %s\n", path)
	}
	source, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	unit, err := CompileSource(path, string(source), settings)
	if unit == nil {
		return nil, err
	}

	var units []*Unit
	errs := []error{}
	for _, imp := range unit.Imports {
		imported, importErr := CompileFile(filepath.Join(filepath.Dir(path), imp), settings, files)
		units = append(units, imported...)
		if importErr != nil {
			errs = append(errs, importErr)
		}
	}
	units = append(units, unit)
	if err != nil {
		errs = append(errs, err)
	}
	return units, errors.Join(errs...)
}

// CompileFiles compiles each path concurrently. Each file gets its own
// tracker; only the FileSet is shared.
func CompileFiles(paths []string, settings Settings) ([]*Unit, error) {
	files := NewFileSet()
	results := make([][]*Unit, len(paths))
	errs := make([]error, len(paths))

	var wg sync.WaitGroup
	for i, path := range paths {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results[i], errs[i] = CompileFile(path, settings, files)
		}()
	}
	wg.Wait()

	var units []*Unit
	for _, r := range results {
		units = append(units, r...)
	}
	return units, errors.Join(errs...)
}

// OutputPath returns where build writes the assembly for a source file.
func OutputPath(source string, settings Settings) string {
	name := strings.TrimSuffix(filepath.Base(source), filepath.Ext(source)) + ".asm"
	if settings.OutDir != "" {
		return filepath.Join(settings.OutDir, name)
	}
	return filepath.Join(filepath.Dir(source), name)
}
