package preproc

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeTempSource(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "in.c")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	return path
}

func TestPreprocessObjectMacro(t *testing.T) {
	path := writeTempSource(t, "FOO + 1\n")
	out, err := Preprocess(path, &Options{Defines: map[string]string{"FOO": "42"}})
	if err != nil {
		t.Fatalf("Preprocess: %v", err)
	}
	if !strings.Contains(out, "42 + 1") {
		t.Errorf("output %q does not contain expanded macro", out)
	}
}

func TestPreprocessConditional(t *testing.T) {
	path := writeTempSource(t, "#ifdef FOO\nyes\n#else\nno\n#endif\n")
	out, err := Preprocess(path, nil)
	if err != nil {
		t.Fatalf("Preprocess: %v", err)
	}
	if !strings.Contains(out, "no") || strings.Contains(out, "yes") {
		t.Errorf("expected inactive branch dropped, got %q", out)
	}
}

func TestPreprocessStringRoundTrip(t *testing.T) {
	out, err := PreprocessString("A + B\n", "in.c", &Options{Defines: map[string]string{"A": "1", "B": "2"}})
	if err != nil {
		t.Fatalf("PreprocessString: %v", err)
	}
	if !strings.Contains(out, "1 + 2") {
		t.Errorf("output %q does not contain expansion", out)
	}
}

func TestNeedsPreprocessing(t *testing.T) {
	if NeedsPreprocessing("foo.i") {
		t.Errorf("expected .i file to not need preprocessing")
	}
	if NeedsPreprocessing("foo.p") {
		t.Errorf("expected .p file to not need preprocessing")
	}
	if !NeedsPreprocessing("foo.c") {
		t.Errorf("expected .c file to need preprocessing")
	}
}

func TestPreprocessErrorDirective(t *testing.T) {
	path := writeTempSource(t, "#error boom\n")
	_, err := Preprocess(path, nil)
	if err == nil {
		t.Errorf("expected error from #error directive")
	}
}
