package cpp

import (
	"os"
	"testing"

	"gopkg.in/yaml.v3"
)

// ExpandTestSpec is one macro-expansion case loaded from testdata/expand.yaml.
type ExpandTestSpec struct {
	Name    string            `yaml:"name"`
	Defines map[string]string `yaml:"defines"`
	Source  string            `yaml:"source"`
	Want    string            `yaml:"want"`
}

// ExpandTestFile mirrors the top-level shape of testdata/expand.yaml.
type ExpandTestFile struct {
	Tests []ExpandTestSpec `yaml:"tests"`
}

func TestExpandGolden(t *testing.T) {
	data, err := os.ReadFile("testdata/expand.yaml")
	if err != nil {
		t.Fatalf("failed to read expand.yaml: %v", err)
	}

	var testFile ExpandTestFile
	if err := yaml.Unmarshal(data, &testFile); err != nil {
		t.Fatalf("failed to parse expand.yaml: %v", err)
	}

	for _, tc := range testFile.Tests {
		t.Run(tc.Name, func(t *testing.T) {
			mt := NewMacroTable()
			for name, body := range tc.Defines {
				if err := mt.DefineObject(name, tokenizeExpr(t, body)); err != nil {
					t.Fatalf("DefineObject(%s): %v", name, err)
				}
			}
			e := NewExpander(mt)
			got, err := e.ExpandString(tc.Source)
			if err != nil {
				t.Fatalf("ExpandString(%q): %v", tc.Source, err)
			}
			if got != tc.Want {
				t.Errorf("%s: got %q, want %q", tc.Name, got, tc.Want)
			}
		})
	}
}

func TestExpandFunctionMacroSpacing(t *testing.T) {
	mt := NewMacroTable()
	if err := mt.DefineFunction("SQ", []string{"x"}, tokenizeExpr(t, "((x)*(x))")); err != nil {
		t.Fatalf("DefineFunction: %v", err)
	}
	e := NewExpander(mt)
	got, err := e.ExpandString("SQ(1+2)")
	if err != nil {
		t.Fatalf("ExpandString: %v", err)
	}
	want := "( ( 1 + 2 ) * ( 1 + 2 ) )"
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestExpandRecursionCap(t *testing.T) {
	mt := NewMacroTable()
	if err := mt.DefineObject("A", tokenizeExpr(t, "A")); err != nil {
		t.Fatalf("DefineObject: %v", err)
	}
	e := NewExpander(mt)
	_, err := e.ExpandString("A")
	if err == nil {
		t.Fatalf("expected recursion cap error, got nil")
	}
}
