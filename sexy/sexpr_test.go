package sexy

import (
	"testing"

	"github.com/nalgeon/be"
)

func TestParseAtoms(t *testing.T) {
	tests := []struct {
		input    string
		nodeType NodeType
		text     string
	}{
		{"hello", NodeSymbol, "hello"},
		{"var-decl", NodeSymbol, "var-decl"},
		{"_", NodeSymbol, "_"},
		{"+", NodeSymbol, "+"},
		{"42", NodeInteger, "42"},
		{"-128", NodeInteger, "-128"},
		{`"hello world"`, NodeString, "hello world"},
		{`"test\"quote"`, NodeString, `test"quote`},
		{`"test\\backslash"`, NodeString, `test\backslash`},
	}

	for _, test := range tests {
		t.Run(test.input, func(t *testing.T) {
			result, err := Parse(test.input)
			be.Err(t, err, nil)
			be.Equal(t, result.Type, test.nodeType)
			be.Equal(t, result.Text, test.text)
			be.Equal(t, result.String(), test.input)
		})
	}
}

func TestParseNested(t *testing.T) {
	result, err := Parse(`(binary "+" (integer 1) [(ident "x") ...])`)
	be.Err(t, err, nil)
	be.Equal(t, result.Type, NodeList)
	be.Equal(t, len(result.Items), 4)
	be.Equal(t, result.Items[0].Text, "binary")
	be.Equal(t, result.Items[3].Type, NodeArray)
	be.Equal(t, result.Items[3].Items[1].Type, NodeEllipsis)
	be.Equal(t, result.String(), `(binary "+" (integer 1) [(ident "x") ...])`)
}

func TestParseComments(t *testing.T) {
	result, err := Parse("; leading comment\n(a ; trailing\n b)")
	be.Err(t, err, nil)
	be.Equal(t, result.String(), "(a b)")
}

func TestParseErrors(t *testing.T) {
	tests := []string{
		"",
		"(a b",
		"[a",
		`"unterminated`,
		"a b",
		"(a . b)",
		"(a @)",
		")",
	}
	for _, input := range tests {
		t.Run(input, func(t *testing.T) {
			_, err := Parse(input)
			be.True(t, err != nil)
		})
	}
}

func TestMatch(t *testing.T) {
	tests := []struct {
		pattern string
		actual  string
		ok      bool
	}{
		{`(integer 3)`, `(integer 3)`, true},
		{`(integer 3)`, `(integer 4)`, false},
		{`(binary "+" _ (integer 4))`, `(binary "+" (ident "x") (integer 4))`, true},
		{`(call (ident "f") ...)`, `(call (ident "f") (integer 1) (integer 2))`, true},
		{`(call (ident "f") ...)`, `(call (ident "f"))`, true},
		{`[(integer 1)]`, `[(integer 1) (integer 2)]`, false},
		{`[(integer 1) (integer 2)]`, `[(integer 1)]`, false},
		{`(this)`, `[this]`, false},
		{`(ident "x")`, `(ident x)`, false},
	}
	for _, test := range tests {
		t.Run(test.pattern+" "+test.actual, func(t *testing.T) {
			pattern, err := Parse(test.pattern)
			be.Err(t, err, nil)
			actual, err := Parse(test.actual)
			be.Err(t, err, nil)
			err = Match(pattern, actual)
			be.Equal(t, err == nil, test.ok)
		})
	}
}

func TestMatchReportsPath(t *testing.T) {
	pattern, _ := Parse(`(binary "+" (integer 1) (integer 2))`)
	actual, _ := Parse(`(binary "+" (integer 1) (integer 3))`)
	err := Match(pattern, actual)
	be.Err(t, err, "root[3][1]")
}
