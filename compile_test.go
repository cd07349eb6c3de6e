package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/nalgeon/be"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	be.Err(t, os.WriteFile(path, []byte(content), 0644), nil)
	return path
}

func TestCompileSource(t *testing.T) {
	unit, err := CompileSource("main.gs", "def x as u8 = 1\ndef y as u16 = x + 2\n", Settings{})
	be.Err(t, err, nil)
	be.Equal(t, unit.Path, "main.gs")
	be.Equal(t, len(unit.Program.Statements), 2)
	be.Equal(t, unit.Assembly.DataSize, 3)
	be.True(t, !unit.Errors.HasErrors())
}

func TestCompileSourceCollectsErrors(t *testing.T) {
	source := `def a as u8 = missing
def b as u8 = 1
def b as u8 = 2
def c as = 3
`
	unit, err := CompileSource("bad.gs", source, Settings{})
	be.Err(t, err, "bad.gs: 3 errors:")
	be.Equal(t, unit.Errors.Count(), 3)

	lines := []int{}
	for _, e := range unit.Errors.Errors() {
		lines = append(lines, e.Line)
	}
	// Parse errors are reported before semantic errors.
	be.Equal(t, lines, []int{4, 1, 3})

	_, ok := unit.Memory.Find("b", false)
	be.True(t, ok)
	_, ok = unit.Memory.Find("a", false)
	be.True(t, !ok)
}

func TestCompileSourceLexError(t *testing.T) {
	unit, err := CompileSource("bad.gs", "def x as u8 = $", Settings{})
	be.Err(t, err, "bad.gs: line 1: unexpected character")
	be.True(t, unit == nil)
}

func TestCompileSourceDumps(t *testing.T) {
	var out bytes.Buffer
	settings := Settings{PrintLex: true, PrintAst: true, PrintMemory: true, Out: &out}
	_, err := CompileSource("dump.gs", "def x as u8 = 1", settings)
	be.Err(t, err, nil)

	dump := out.String()
	be.True(t, strings.Contains(dump, "dump.gs tokens:\ndef IDENT(x) as u8 = INT(1) EOF"))
	be.True(t, strings.Contains(dump, `dump.gs ast:`+"\n"+`[(var-decl "x" "u8" (integer 1))]`))
	be.True(t, strings.Contains(dump, "dump.gs memory:\ndata (1 bytes):"))
}

func TestCompileFileFollowsImports(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "util.gs", "import \"main.gs\"\ndef shared as u8 = 1\n")
	writeFile(t, dir, "lib.gs", "import \"util.gs\"\ndef lib as u8 = 2\n")
	main := writeFile(t, dir, "main.gs", "import \"lib.gs\"\nimport \"util.gs\"\ndef x as u8 = 3\n")

	files := NewFileSet()
	units, err := CompileFile(main, Settings{}, files)
	be.Err(t, err, nil)
	be.Equal(t, len(units), 3)
	be.Equal(t, filepath.Base(units[0].Path), "util.gs")
	be.Equal(t, filepath.Base(units[1].Path), "lib.gs")
	be.Equal(t, filepath.Base(units[2].Path), "main.gs")
	be.Equal(t, units[2].Imports, []string{"lib.gs", "util.gs"})

	// Already compiled files are skipped.
	units, err = CompileFile(main, Settings{}, files)
	be.Err(t, err, nil)
	be.Equal(t, len(units), 0)
}

func TestCompileFileReportsImportErrors(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "broken.gs", "def y as u8 = nope\n")
	main := writeFile(t, dir, "main.gs", "import \"broken.gs\"\nimport \"absent.gs\"\ndef x as u8 = 1\n")

	units, err := CompileFile(main, Settings{}, NewFileSet())
	be.Err(t, err, "undefined variable nope")
	be.Err(t, err, "absent.gs")
	be.Equal(t, len(units), 2)
	be.True(t, units[0].Errors.HasErrors())
	be.True(t, !units[1].Errors.HasErrors())
}

func TestCompileFiles(t *testing.T) {
	dir := t.TempDir()
	common := writeFile(t, dir, "common.gs", "def c as u8 = 1\n")
	var paths []string
	for _, name := range []string{"a.gs", "b.gs", "c.gs", "d.gs"} {
		paths = append(paths, writeFile(t, dir, name, "import \"common.gs\"\ndef v as u16 = 300\n"))
	}
	paths = append(paths, common)

	var out bytes.Buffer
	units, err := CompileFiles(paths, Settings{Verbose: true, Out: &out})
	be.Err(t, err, nil)
	be.Equal(t, len(units), 5)
	be.Equal(t, strings.Count(out.String(), "compiling "), 5)
	be.Equal(t, strings.Count(out.String(), "common.gs"), 1)
}

func TestFileSetClaim(t *testing.T) {
	files := NewFileSet()
	var wg sync.WaitGroup
	claimed := make([]bool, 16)
	for i := range claimed {
		wg.Add(1)
		go func() {
			defer wg.Done()
			claimed[i] = files.Claim("same.gs")
		}()
	}
	wg.Wait()

	count := 0
	for _, ok := range claimed {
		if ok {
			count++
		}
	}
	be.Equal(t, count, 1)
	be.True(t, files.Claim("other.gs"))
}

func TestOutputPath(t *testing.T) {
	be.Equal(t, OutputPath(filepath.Join("src", "game.gs"), Settings{}), filepath.Join("src", "game.asm"))
	be.Equal(t, OutputPath(filepath.Join("src", "game.gs"), Settings{OutDir: "build"}), filepath.Join("build", "game.asm"))
}

func TestDefaultSettings(t *testing.T) {
	t.Setenv("GOLD_VERBOSE", "1")
	t.Setenv("GOLD_PRINT_AST", "true")
	t.Setenv("GOLD_PRINT_LEX", "")
	t.Setenv("GOLD_OUT_DIR", "out")

	settings := DefaultSettings()
	be.True(t, settings.Verbose)
	be.True(t, settings.PrintAst)
	be.True(t, !settings.PrintLex)
	be.Equal(t, settings.OutDir, "out")
}
