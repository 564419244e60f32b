package cpp

import "testing"

func expandSource(t *testing.T, defines map[string]string, funcs map[string]struct {
	params []string
	body   string
}, src string) string {
	t.Helper()
	mt := NewMacroTable()
	for name, body := range defines {
		if err := mt.DefineObject(name, tokenizeExpr(t, body)); err != nil {
			t.Fatalf("DefineObject(%s): %v", name, err)
		}
	}
	for name, f := range funcs {
		if err := mt.DefineFunction(name, f.params, tokenizeExpr(t, f.body)); err != nil {
			t.Fatalf("DefineFunction(%s): %v", name, err)
		}
	}
	e := NewExpander(mt)
	out, err := e.ExpandString(src)
	if err != nil {
		t.Fatalf("ExpandString(%q): %v", src, err)
	}
	return out
}

func TestExpandObjectMacro(t *testing.T) {
	got := expandSource(t, map[string]string{"FOO": "42"}, nil, "FOO + 1")
	if got != "42 + 1" {
		t.Errorf("got %q, want %q", got, "42 + 1")
	}
}

func TestExpandFunctionMacro(t *testing.T) {
	funcs := map[string]struct {
		params []string
		body   string
	}{
		"ADD": {params: []string{"a", "b"}, body: "a + b"},
	}
	got := expandSource(t, nil, funcs, "ADD(1, 2)")
	if got != "1 + 2" {
		t.Errorf("got %q, want %q", got, "1 + 2")
	}
}

func TestExpandRecursiveGuard(t *testing.T) {
	mt := NewMacroTable()
	if err := mt.DefineObject("A", tokenizeExpr(t, "B")); err != nil {
		t.Fatal(err)
	}
	if err := mt.DefineObject("B", tokenizeExpr(t, "A")); err != nil {
		t.Fatal(err)
	}
	e := NewExpander(mt)
	if _, err := e.ExpandString("A"); err == nil {
		t.Errorf("expected mutual recursion to hit the recursion cap and error")
	}
}

func TestExpandArgCountMismatch(t *testing.T) {
	mt := NewMacroTable()
	if err := mt.DefineFunction("ADD", []string{"a", "b"}, tokenizeExpr(t, "a + b")); err != nil {
		t.Fatal(err)
	}
	e := NewExpander(mt)
	if _, err := e.ExpandString("ADD(1)"); err == nil {
		t.Errorf("expected error for wrong argument count")
	}
}

func TestStringifyOperator(t *testing.T) {
	mt := NewMacroTable()
	if err := mt.DefineFunction("STR", []string{"x"}, []Token{
		{Kind: PP_HASH, Text: "#"},
		{Kind: PP_IDENTIFIER, Text: "x"},
	}); err != nil {
		t.Fatal(err)
	}
	e := NewExpander(mt)
	out, err := e.ExpandString("STR(hello)")
	if err != nil {
		t.Fatal(err)
	}
	if out != `"hello"` {
		t.Errorf("got %q, want %q", out, `"hello"`)
	}
}

func TestTokenPasteOperator(t *testing.T) {
	mt := NewMacroTable()
	if err := mt.DefineFunction("CAT", []string{"a", "b"}, []Token{
		{Kind: PP_IDENTIFIER, Text: "a"},
		{Kind: PP_HASHHASH, Text: "##"},
		{Kind: PP_IDENTIFIER, Text: "b"},
	}); err != nil {
		t.Fatal(err)
	}
	e := NewExpander(mt)
	out, err := e.ExpandString("CAT(foo, bar)")
	if err != nil {
		t.Fatal(err)
	}
	if out != "foobar" {
		t.Errorf("got %q, want %q", out, "foobar")
	}
}

func TestFileAndLineBuiltins(t *testing.T) {
	mt := NewMacroTable()
	e := NewExpander(mt)
	out, err := e.ExpandString("__LINE__")
	if err != nil {
		t.Fatal(err)
	}
	if out != "1" {
		t.Errorf("got %q, want __LINE__ expansion of the source's first line", out)
	}

	out, err = e.ExpandString("__FILE__")
	if err != nil {
		t.Fatal(err)
	}
	if out != `"<string>"` {
		t.Errorf("got %q, want __FILE__ expansion of the quoted source name", out)
	}
}

func TestDuplicateDefinitionSameBodyRejected(t *testing.T) {
	mt := NewMacroTable()
	if err := mt.DefineObject("FOO", tokenizeExpr(t, "1")); err != nil {
		t.Fatal(err)
	}
	if err := mt.DefineObject("FOO", tokenizeExpr(t, "1")); err == nil {
		t.Errorf("expected error redefining FOO, even with an identical body")
	}
}

func TestDuplicateDefinitionDifferentBodyRejected(t *testing.T) {
	mt := NewMacroTable()
	if err := mt.DefineObject("FOO", tokenizeExpr(t, "1")); err != nil {
		t.Fatal(err)
	}
	if err := mt.DefineObject("FOO", tokenizeExpr(t, "2")); err == nil {
		t.Errorf("expected error redefining FOO with a different body")
	}
}

func TestUndefRemovesMacro(t *testing.T) {
	mt := NewMacroTable()
	if err := mt.DefineObject("FOO", tokenizeExpr(t, "1")); err != nil {
		t.Fatal(err)
	}
	mt.Undefine("FOO")
	if mt.IsDefined("FOO") {
		t.Errorf("expected FOO to be undefined")
	}
}
