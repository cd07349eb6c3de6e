package main

import "fmt"

// TokenType is the type of token (keyword, symbol, literal, identifier).
type TokenType string

// Definition of token types
const (
	// Special tokens
	EOF     TokenType = "EOF"
	NEWLINE TokenType = "NEWLINE"

	// Identifiers + literals
	IDENT          TokenType = "IDENT"
	LITERAL_INT    TokenType = "INT"
	LITERAL_STRING TokenType = "STRING"

	// Type keywords
	U8        TokenType = "u8"
	U16       TokenType = "u16"
	U32       TokenType = "u32"
	S8        TokenType = "s8"
	S16       TokenType = "s16"
	S32       TokenType = "s32"
	STRING_KW TokenType = "string"

	// Operators
	PLUS          TokenType = "+"
	MINUS         TokenType = "-"
	ASTERISK      TokenType = "*"
	FORWARD_SLASH TokenType = "/"
	DOT           TokenType = "."
	ASSIGN        TokenType = "="
	EQ            TokenType = "=="
	NOT_EQ        TokenType = "!="
	GT            TokenType = ">"
	LT            TokenType = "<"
	GE            TokenType = ">="
	LE            TokenType = "<="
	SHR           TokenType = ">>"
	SHL           TokenType = "<<"

	// Delimiters
	LPAREN   TokenType = "("
	RPAREN   TokenType = ")"
	LBRACKET TokenType = "["
	RBRACKET TokenType = "]"
	COMMA    TokenType = ","

	// Keywords
	DEF      TokenType = "def"
	AS       TokenType = "as"
	NOT      TokenType = "not"
	AND      TokenType = "and"
	OR       TokenType = "or"
	XOR      TokenType = "xor"
	THEN     TokenType = "then"
	FUNCTION TokenType = "function"
	END      TokenType = "end"
	TYPE     TokenType = "type"
	RETURN   TokenType = "return"
	IMPORT   TokenType = "import"
	ASM      TokenType = "asm"
	THIS     TokenType = "this"
	SUPER    TokenType = "super"
	BYREF    TokenType = "byref"
	IF       TokenType = "if"
	ELSE     TokenType = "else"
	FOR      TokenType = "for"
	WHILE    TokenType = "while"
	TO       TokenType = "to"
	EVERY    TokenType = "every"
	BREAK    TokenType = "break"
	CONTINUE TokenType = "continue"
)

// keywords maps reserved words to their token types. Anything alphanumeric
// that is not in this table lexes as IDENT.
var keywords = map[string]TokenType{
	"def":      DEF,
	"as":       AS,
	"u8":       U8,
	"u16":      U16,
	"u32":      U32,
	"s8":       S8,
	"s16":      S16,
	"s32":      S32,
	"string":   STRING_KW,
	"not":      NOT,
	"and":      AND,
	"or":       OR,
	"xor":      XOR,
	"then":     THEN,
	"function": FUNCTION,
	"end":      END,
	"type":     TYPE,
	"return":   RETURN,
	"import":   IMPORT,
	"asm":      ASM,
	"this":     THIS,
	"super":    SUPER,
	"byref":    BYREF,
	"if":       IF,
	"else":     ELSE,
	"for":      FOR,
	"while":    WHILE,
	"to":       TO,
	"every":    EVERY,
	"break":    BREAK,
	"continue": CONTINUE,
}

// symbols lists every operator and delimiter, longest first so a run of
// symbol characters can be split greedily.
var symbols = []TokenType{
	EQ, NOT_EQ, GE, LE, SHR, SHL,
	PLUS, MINUS, ASTERISK, FORWARD_SLASH, DOT, ASSIGN, GT, LT,
	LPAREN, RPAREN, LBRACKET, RBRACKET, COMMA,
}

// Token is a classified lexical unit. Integer carries the payload of
// LITERAL_INT tokens; Text carries identifiers and string literals.
type Token struct {
	Type    TokenType
	Integer int64
	Text    string
	Line    int
}

func (t Token) String() string {
	switch t.Type {
	case LITERAL_INT:
		return fmt.Sprintf("INT(%d)", t.Integer)
	case LITERAL_STRING:
		return fmt.Sprintf("STRING(%q)", t.Text)
	case IDENT:
		return fmt.Sprintf("IDENT(%s)", t.Text)
	default:
		return string(t.Type)
	}
}

// typeKeywordIDs maps primitive type keywords to type ids.
var typeKeywordIDs = map[TokenType]string{
	U8:        "u8",
	U16:       "u16",
	U32:       "u32",
	S8:        "s8",
	S16:       "s16",
	S32:       "s32",
	STRING_KW: "string",
}

// TokenToTypeID extracts a type id from a type keyword or a UDT identifier.
func TokenToTypeID(t Token) (string, bool) {
	if id, ok := typeKeywordIDs[t.Type]; ok {
		return id, true
	}
	if t.Type == IDENT && t.Text != "" {
		return t.Text, true
	}
	return "", false
}
