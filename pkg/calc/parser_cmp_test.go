package calc

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestParserEquivalentSpellingsSameAST(t *testing.T) {
	a := parseExpr(t, "1+2*3")
	b := parseExpr(t, "1 + 2 * 3")

	if diff := cmp.Diff(a, b); diff != "" {
		t.Errorf("differently-spaced input produced different ASTs (-want +got):\n%s", diff)
	}
}

func TestParserAssociativityMatchesExpected(t *testing.T) {
	got := parseExpr(t, "10 - 3 - 2")
	want := &Binary{
		Op:   OpSub,
		Left: &Binary{Op: OpSub, Left: &IntLit{Value: 10}, Right: &IntLit{Value: 3}},
		Right: &IntLit{Value: 2},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("left-associative subtraction AST mismatch (-want +got):\n%s", diff)
	}
}
