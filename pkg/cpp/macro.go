package cpp

import "fmt"

// MacroKind distinguishes the three forms a Define can take.
type MacroKind int

const (
	MacroObject MacroKind = iota
	MacroFunction
	MacroBuiltin
)

// Define is a single macro definition: its name, parameter list (for
// function-like macros), and replacement token list. __FILE__ and
// __LINE__ are modeled as MacroBuiltin entries whose value is
// re-materialized at every expansion site instead of stored statically.
type Define struct {
	Name        string
	Kind        MacroKind
	Params      []string
	Replacement []Token
	BuiltinFunc func(filename string, line int) []Token
}

// macroBucket is one slot of the MacroTable's fixed hash table: a
// singly-linked chain of definitions whose names hash to the same slot.
type macroBucket struct {
	def  *Define
	next *macroBucket
}

const macroTableBuckets = 256

// MacroTable is the active set of macro definitions, keyed by name in a
// fixed-size hash table. Hashing is unified to djb2-xor over the full
// name regardless of length, so a lookup and a definition always agree
// on which bucket a name lives in.
type MacroTable struct {
	buckets [macroTableBuckets]*macroBucket
}

// NewMacroTable creates an empty macro table seeded with the built-in
// __FILE__ and __LINE__ pseudo-macros.
func NewMacroTable() *MacroTable {
	t := &MacroTable{}
	t.defineBuiltin("__FILE__", func(filename string, _ int) []Token {
		return []Token{{Kind: PP_STRING_LITERAL, Text: `"` + filename + `"`, Filename: filename}}
	})
	t.defineBuiltin("__LINE__", func(filename string, line int) []Token {
		return []Token{{Kind: PP_INT_LITERAL, Text: fmt.Sprintf("%d", line), Filename: filename, Line: line}}
	})
	return t
}

func (t *MacroTable) bucketFor(name string) int {
	return int(djb2Hash(name) % macroTableBuckets)
}

func (t *MacroTable) defineBuiltin(name string, fn func(string, int) []Token) {
	d := getDefine()
	d.Name = name
	d.Kind = MacroBuiltin
	d.BuiltinFunc = fn
	t.insert(d)
}

// Lookup returns the definition for name, or nil if it is not currently
// defined.
func (t *MacroTable) Lookup(name string) *Define {
	for b := t.buckets[t.bucketFor(name)]; b != nil; b = b.next {
		if b.def.Name == name {
			return b.def
		}
	}
	return nil
}

// IsDefined reports whether name currently has a definition.
func (t *MacroTable) IsDefined(name string) bool {
	return t.Lookup(name) != nil
}

func (t *MacroTable) insert(d *Define) {
	idx := t.bucketFor(d.Name)
	t.buckets[idx] = &macroBucket{def: d, next: t.buckets[idx]}
}

// DefineObject installs an object-like macro. Redefining any name that
// already has a live definition is rejected outright, even when the new
// replacement is textually identical to the old one: add_define treats
// redefinition itself as the error, not a divergence in the replacement.
func (t *MacroTable) DefineObject(name string, replacement []Token) error {
	if t.Lookup(name) != nil {
		return fmt.Errorf("redefinition of macro %q", name)
	}
	d := getDefine()
	d.Name = name
	d.Kind = MacroObject
	d.Replacement = replacement
	t.insert(d)
	return nil
}

// DefineFunction installs a function-like macro, subject to the same
// no-redefinition rule as DefineObject.
func (t *MacroTable) DefineFunction(name string, params []string, replacement []Token) error {
	if t.Lookup(name) != nil {
		return fmt.Errorf("redefinition of macro %q", name)
	}
	d := getDefine()
	d.Name = name
	d.Kind = MacroFunction
	d.Params = params
	d.Replacement = replacement
	t.insert(d)
	return nil
}

// DefineSimple installs an object-like macro from raw text, as used for
// command-line -D definitions ("NAME" or "NAME=value").
func (t *MacroTable) DefineSimple(nameAndValue string) error {
	name := nameAndValue
	value := "1"
	for i := 0; i < len(nameAndValue); i++ {
		if nameAndValue[i] == '=' {
			name = nameAndValue[:i]
			value = nameAndValue[i+1:]
			break
		}
	}
	tokens := lexReplacementText(value, "<command-line>")
	return t.DefineObject(name, tokens)
}

// Undefine removes name's definition, if any. Undefining a name with no
// definition is a no-op, matching #undef semantics.
func (t *MacroTable) Undefine(name string) {
	idx := t.bucketFor(name)
	var prev *macroBucket
	for b := t.buckets[idx]; b != nil; b = b.next {
		if b.def.Name == name {
			if prev == nil {
				t.buckets[idx] = b.next
			} else {
				prev.next = b.next
			}
			putDefine(b.def)
			return
		}
		prev = b
	}
}

// ApplyCmdlineDefines applies -D and -U options in the order a real
// preprocessor invocation would: all defines first, then undefines, so
// a trailing -U always wins over an earlier -D of the same name.
func (t *MacroTable) ApplyCmdlineDefines(defines, undefines []string) error {
	for _, d := range defines {
		if err := t.DefineSimple(d); err != nil {
			return err
		}
	}
	for _, u := range undefines {
		t.Undefine(u)
	}
	return nil
}

// GetFileToken materializes the current __FILE__ token for loc.
func (t *MacroTable) GetFileToken(filename string, line int) []Token {
	return []Token{{Kind: PP_STRING_LITERAL, Text: `"` + filename + `"`, Filename: filename, Line: line}}
}

// GetLineToken materializes the current __LINE__ token for loc.
func (t *MacroTable) GetLineToken(filename string, line int) []Token {
	return []Token{{Kind: PP_INT_LITERAL, Text: fmt.Sprintf("%d", line), Filename: filename, Line: line}}
}

// lexReplacementText tokenizes a short stretch of source text (used for
// -D NAME=value and for ## token-pasting results) without going through
// the include-stack machinery.
func lexReplacementText(text, filename string) []Token {
	if text == "" {
		return nil
	}
	s := newIncludeState(filename, text, 1, nil, false)
	s.reportWhitespace = true
	defer putIncludeState(s)
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
