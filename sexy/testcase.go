package sexy

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

// InputType represents the type of input code fence in a Sexy test
type InputType string

const (
	InputTypeGoldExpr    InputType = "gold-expr"
	InputTypeGoldProgram InputType = "gold-program"
)

// AssertionType represents the type of assertion code fence in a Sexy test
type AssertionType string

const (
	AssertionTypeAST          AssertionType = "ast"
	AssertionTypeType         AssertionType = "type"
	AssertionTypeAsm          AssertionType = "asm"
	AssertionTypeExecute      AssertionType = "execute"
	AssertionTypeCompileError AssertionType = "compile-error"
	AssertionTypeMemory       AssertionType = "memory"
)

// Assertion represents a single assertion in a Sexy test
type Assertion struct {
	Type       AssertionType
	Content    string // fence body without the trailing newline
	ParsedSexy *Node  // set for ast assertions only
}

// TestCase is one "Test: name" section: a single input fence followed by
// one or more assertion fences.
type TestCase struct {
	Name       string
	Input      string
	InputType  InputType
	Line       int // line of the heading
	Assertions []Assertion
}

// collector accumulates test cases while the document is walked.
type collector struct {
	source  []byte
	cases   []TestCase
	current *TestCase
}

// ExtractTestCases parses a Markdown document and extracts all Sexy test
// cases. A fence with a language outside a test section is an error;
// fences without a language are prose.
func ExtractTestCases(markdownContent string) ([]TestCase, error) {
	c := &collector{source: []byte(markdownContent)}
	doc := goldmark.New().Parser().Parse(text.NewReader(c.source))

	err := ast.Walk(doc, func(node ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		var err error
		switch n := node.(type) {
		case *ast.Heading:
			err = c.heading(n)
		case *ast.FencedCodeBlock:
			err = c.fence(n)
		}
		if err != nil {
			return ast.WalkStop, err
		}
		return ast.WalkContinue, nil
	})
	if err != nil {
		return nil, fmt.Errorf("error walking markdown AST: %w", err)
	}
	if err := c.finish(); err != nil {
		return nil, err
	}
	return c.cases, nil
}

func (c *collector) heading(n *ast.Heading) error {
	title := nodeText(n, c.source)
	if !strings.HasPrefix(title, "Test: ") {
		return nil
	}
	if err := c.finish(); err != nil {
		return err
	}
	c.current = &TestCase{
		Name: strings.TrimPrefix(title, "Test: "),
		Line: lineOf(n, c.source),
	}
	return nil
}

func (c *collector) fence(n *ast.FencedCodeBlock) error {
	language := string(n.Language(c.source))
	line := lineOf(n, c.source)
	if language == "" {
		return nil
	}
	known := isInputFence(language) || isAssertionFence(language)
	if c.current == nil {
		if known {
			return fmt.Errorf("line %d: %s fence found outside of test case", line, language)
		}
		return fmt.Errorf("line %d: unknown fence language '%s' found outside of test case", line, language)
	}
	if !known {
		return fmt.Errorf("line %d: unknown fence language '%s' in test '%s'", line, language, c.current.Name)
	}

	content := strings.TrimRight(fenceContent(n, c.source), "\n")
	if isInputFence(language) {
		if c.current.Input != "" {
			return fmt.Errorf("line %d: multiple input fences found in test '%s'", line, c.current.Name)
		}
		c.current.Input = content
		c.current.InputType = InputType(language)
		return nil
	}

	assertion := Assertion{Type: AssertionType(language), Content: content}
	if assertion.Type == AssertionTypeAST {
		parsed, err := Parse(content)
		if err != nil {
			return fmt.Errorf("line %d: failed to parse Sexy assertion in test '%s': %w", line, c.current.Name, err)
		}
		assertion.ParsedSexy = parsed
	}
	c.current.Assertions = append(c.current.Assertions, assertion)
	return nil
}

// finish validates and stores the open test case, if any.
func (c *collector) finish() error {
	if c.current == nil {
		return nil
	}
	if c.current.Input == "" {
		return fmt.Errorf("test '%s' has no input fence", c.current.Name)
	}
	if len(c.current.Assertions) == 0 {
		return fmt.Errorf("test '%s' has no assertion fences", c.current.Name)
	}
	c.cases = append(c.cases, *c.current)
	c.current = nil
	return nil
}

// nodeText concatenates the text segments below node.
func nodeText(node ast.Node, source []byte) string {
	var buf bytes.Buffer
	ast.Walk(node, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if t, ok := n.(*ast.Text); ok && entering {
			buf.Write(t.Segment.Value(source))
		}
		return ast.WalkContinue, nil
	})
	return buf.String()
}

func fenceContent(block *ast.FencedCodeBlock, source []byte) string {
	var buf bytes.Buffer
	lines := block.Lines()
	for i := 0; i < lines.Len(); i++ {
		line := lines.At(i)
		buf.Write(line.Value(source))
	}
	return buf.String()
}

func isInputFence(language string) bool {
	return language == string(InputTypeGoldExpr) || language == string(InputTypeGoldProgram)
}

func isAssertionFence(language string) bool {
	switch AssertionType(language) {
	case AssertionTypeAST, AssertionTypeType, AssertionTypeAsm, AssertionTypeExecute,
		AssertionTypeCompileError, AssertionTypeMemory:
		return true
	}
	return false
}

// lineOf returns the 1-based line a node starts on. Headings and fences
// are located by their first content line.
func lineOf(node ast.Node, source []byte) int {
	if node.Lines().Len() == 0 {
		return 1
	}
	start := node.Lines().At(0).Start
	return bytes.Count(source[:min(start, len(source))], []byte("\n")) + 1
}
