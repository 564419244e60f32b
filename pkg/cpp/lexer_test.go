package cpp

import "testing"

func TestTokenKindString(t *testing.T) {
	tests := []struct {
		k    TokenKind
		want string
	}{
		{PP_EOI, "EOI"},
		{PP_IDENTIFIER, "IDENTIFIER"},
		{PP_INT_LITERAL, "INT_LITERAL"},
		{PP_FLOAT_LITERAL, "FLOAT_LITERAL"},
		{PP_CHAR_CONST, "CHAR_CONST"},
		{PP_STRING_LITERAL, "STRING_LITERAL"},
		{PP_PUNCTUATOR, "PUNCTUATOR"},
		{PP_HASH, "HASH"},
		{PP_HASHHASH, "HASHHASH"},
		{PP_NEWLINE, "NEWLINE"},
		{PP_WHITESPACE, "WHITESPACE"},
		{PP_HEADER_NAME, "HEADER_NAME"},
		{PP_PLACEHOLDER, "PLACEHOLDER"},
		{TokenKind(999), "UNKNOWN"},
	}
	for _, tc := range tests {
		if got := tc.k.String(); got != tc.want {
			t.Errorf("TokenKind(%d).String() = %q, want %q", tc.k, got, tc.want)
		}
	}
}

func lexAll(t *testing.T, source string) []Token {
	t.Helper()
	s := newIncludeState("test.c", source, 1, nil, false)
	s.reportWhitespace = true
	var tokens []Token
	for {
		tok := s.NextToken()
		if tok.Kind == PP_EOI {
			break
		}
		tokens = append(tokens, tok)
	}
	return tokens
}

func TestLexerIdentifier(t *testing.T) {
	tokens := lexAll(t, "foo _bar123 __MACRO")
	var idents []string
	for _, tok := range tokens {
		if tok.Kind == PP_IDENTIFIER {
			idents = append(idents, tok.Text)
		}
	}
	want := []string{"foo", "_bar123", "__MACRO"}
	if len(idents) != len(want) {
		t.Fatalf("got %d identifiers, want %d: %v", len(idents), len(want), idents)
	}
	for i := range want {
		if idents[i] != want[i] {
			t.Errorf("identifier %d = %q, want %q", i, idents[i], want[i])
		}
	}
}

func TestLexerNumber(t *testing.T) {
	tests := []struct {
		input string
		kind  TokenKind
	}{
		{"42", PP_INT_LITERAL},
		{"3.14", PP_FLOAT_LITERAL},
		{".5", PP_FLOAT_LITERAL},
		{"0x1F", PP_INT_LITERAL},
		{"1e10", PP_FLOAT_LITERAL},
		{"1E-5", PP_FLOAT_LITERAL},
		{"123ULL", PP_INT_LITERAL},
		{"1.5f", PP_FLOAT_LITERAL},
	}
	for _, tc := range tests {
		s := newIncludeState("test.c", tc.input, 1, nil, false)
		tok := s.NextToken()
		if tok.Kind != tc.kind || tok.Text != tc.input {
			t.Errorf("input %q: got %v %q, want %v %q", tc.input, tok.Kind, tok.Text, tc.kind, tc.input)
		}
	}
}

func TestLexerString(t *testing.T) {
	tests := []string{`"hello"`, `"with \"escape\""`, `"multi word string"`}
	for _, input := range tests {
		s := newIncludeState("test.c", input, 1, nil, false)
		tok := s.NextToken()
		if tok.Kind != PP_STRING_LITERAL || tok.Text != input {
			t.Errorf("input %q: got %v %q", input, tok.Kind, tok.Text)
		}
	}
}

func TestLexerCharConst(t *testing.T) {
	tests := []string{`'a'`, `'\n'`, `'\0'`, `'\x41'`}
	for _, input := range tests {
		s := newIncludeState("test.c", input, 1, nil, false)
		tok := s.NextToken()
		if tok.Kind != PP_CHAR_CONST || tok.Text != input {
			t.Errorf("input %q: got %v %q", input, tok.Kind, tok.Text)
		}
	}
}

func TestLexerDirectiveHash(t *testing.T) {
	s := newIncludeState("test.c", "#define FOO 1", 1, nil, false)
	tok := s.NextToken()
	if tok.Kind != PP_HASH {
		t.Fatalf("got %v, want PP_HASH", tok.Kind)
	}
	tok = s.NextToken()
	if tok.Kind != PP_DEFINE || tok.Text != "define" {
		t.Fatalf("got %v %q, want PP_DEFINE", tok.Kind, tok.Text)
	}
}

func TestLexerHashHash(t *testing.T) {
	s := newIncludeState("test.c", "a ## b", 1, nil, false)
	s.NextToken() // 'a'
	s.reportWhitespace = false
	tok := s.NextToken()
	if tok.Kind != PP_HASHHASH {
		t.Fatalf("got %v, want PP_HASHHASH", tok.Kind)
	}
}

func TestLexerLineComment(t *testing.T) {
	tokens := lexAll(t, "foo // a comment\nbar")
	var idents []string
	for _, tok := range tokens {
		if tok.Kind == PP_IDENTIFIER {
			idents = append(idents, tok.Text)
		}
	}
	if len(idents) != 2 || idents[0] != "foo" || idents[1] != "bar" {
		t.Errorf("got %v, want [foo bar]", idents)
	}
}

func TestLexerBlockComment(t *testing.T) {
	tokens := lexAll(t, "foo /* comment\nspanning lines */ bar")
	var idents []string
	for _, tok := range tokens {
		if tok.Kind == PP_IDENTIFIER {
			idents = append(idents, tok.Text)
		}
	}
	if len(idents) != 2 || idents[0] != "foo" || idents[1] != "bar" {
		t.Errorf("got %v, want [foo bar]", idents)
	}
}

func TestLexerIncompleteBlockComment(t *testing.T) {
	s := newIncludeState("test.c", "/* never closed", 1, nil, false)
	tok := s.NextToken()
	if tok.Kind != PP_INCOMPLETE_COMMENT {
		t.Fatalf("got %v, want PP_INCOMPLETE_COMMENT", tok.Kind)
	}
}

func TestLexerPunctuators(t *testing.T) {
	tests := []string{"<<=", ">>=", "<<", ">>", "<=", ">=", "==", "!=", "&&", "||", "->"}
	for _, input := range tests {
		s := newIncludeState("test.c", input, 1, nil, false)
		tok := s.NextToken()
		if tok.Kind != PP_PUNCTUATOR || tok.Text != input {
			t.Errorf("input %q: got %v %q", input, tok.Kind, tok.Text)
		}
	}
}

func TestIsIdentifier(t *testing.T) {
	tests := []struct {
		s    string
		want bool
	}{
		{"foo", true},
		{"_bar", true},
		{"__X123", true},
		{"1abc", false},
		{"", false},
		{"a-b", false},
	}
	for _, tc := range tests {
		if got := IsIdentifier(tc.s); got != tc.want {
			t.Errorf("IsIdentifier(%q) = %v, want %v", tc.s, got, tc.want)
		}
	}
}

func TestTokensToString(t *testing.T) {
	tokens := []Token{
		{Kind: PP_IDENTIFIER, Text: "foo"},
		{Kind: PP_PUNCTUATOR, Text: "("},
		{Kind: PP_INT_LITERAL, Text: "1"},
		{Kind: PP_PUNCTUATOR, Text: ")"},
	}
	if got := TokensToString(tokens); got != "foo(1)" {
		t.Errorf("TokensToString = %q, want %q", got, "foo(1)")
	}
}
