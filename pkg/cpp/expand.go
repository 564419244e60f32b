// expand.go implements macro expansion including argument substitution,
// stringification, and token pasting.
package cpp

import (
	"fmt"
	"strings"
)

// MaxExpansionRecursion bounds how many macro frames may be active at
// once during a single expansion. Each object-like or function-like
// macro entered pushes a frame; exceeding the cap is a hard failure
// rather than a silent truncation, matching a real preprocessor's
// expansion-depth limit.
const MaxExpansionRecursion = 256

// Expander handles macro expansion. Unlike a hideset/"blue paint"
// design, re-entering a macro isn't tracked by name: every macro
// entered increments depth for the duration of its own expansion (and
// everything nested inside it), and depth is the only thing checked
// before a new frame is pushed. This makes mutual and self recursion
// fail the same way: by tripping the cap, not by silently stopping at
// the macro's own name.
type Expander struct {
	macros   *MacroTable
	depth    int    // active macro expansion frames
	filename string // current expansion location for __FILE__/__LINE__
	line     int
}

// NewExpander creates a new macro expander.
func NewExpander(macros *MacroTable) *Expander {
	return &Expander{macros: macros}
}

// Expand expands all macros in the token stream and reassembles the
// result with exactly one space between each surviving token.
func (e *Expander) Expand(tokens []Token) ([]Token, error) {
	result, err := e.expandTokens(tokens)
	if err != nil {
		return nil, err
	}
	return joinSpaced(result), nil
}

// ExpandWithLoc expands tokens, using the given location for
// __FILE__/__LINE__, and reassembles the result the same way Expand
// does.
func (e *Expander) ExpandWithLoc(tokens []Token, filename string, line int) ([]Token, error) {
	e.filename, e.line = filename, line
	result, err := e.expandTokens(tokens)
	if err != nil {
		return nil, err
	}
	return joinSpaced(result), nil
}

// expandTokens expands macros in a token stream. It never joins
// spacing itself — only the public Expand/ExpandWithLoc entry points
// do that — so nested calls made while substituting a macro's own
// replacement don't get spaced prematurely.
func (e *Expander) expandTokens(tokens []Token) ([]Token, error) {
	var result []Token
	i := 0

	for i < len(tokens) {
		tok := tokens[i]

		if tok.Kind != PP_IDENTIFIER {
			result = append(result, tok)
			i++
			continue
		}

		macro := e.macros.Lookup(tok.Text)
		if macro == nil {
			result = append(result, tok)
			i++
			continue
		}

		if macro.Kind == MacroBuiltin {
			expanded, err := e.expandBuiltin(macro, tok.Filename, tok.Line)
			if err != nil {
				return nil, err
			}
			result = append(result, expanded...)
			i++
			continue
		}

		if macro.Kind == MacroFunction {
			parenIdx := i + 1
			for parenIdx < len(tokens) && tokens[parenIdx].Kind == PP_WHITESPACE {
				parenIdx++
			}

			if parenIdx >= len(tokens) || tokens[parenIdx].Kind != PP_PUNCTUATOR || tokens[parenIdx].Text != "(" {
				result = append(result, tok)
				i++
				continue
			}

			args, endIdx, err := e.parseArguments(tokens, parenIdx, macro)
			if err != nil {
				return nil, fmt.Errorf("%s:%d: %w", tok.Filename, tok.Line, err)
			}

			expanded, err := e.expandFunctionMacro(macro, args, tok.Filename, tok.Line)
			if err != nil {
				return nil, err
			}

			result = append(result, expanded...)
			i = endIdx + 1
			continue
		}

		expanded, err := e.expandObjectMacro(macro, tok.Filename, tok.Line)
		if err != nil {
			return nil, err
		}
		result = append(result, expanded...)
		i++
	}

	return result, nil
}

func (e *Expander) expandBuiltin(macro *Define, filename string, line int) ([]Token, error) {
	useFile, useLine := filename, line
	if e.filename != "" {
		useFile, useLine = e.filename, e.line
	}

	switch macro.Name {
	case "__FILE__":
		return e.macros.GetFileToken(useFile, useLine), nil
	case "__LINE__":
		return e.macros.GetLineToken(useFile, useLine), nil
	default:
		if macro.BuiltinFunc != nil {
			return macro.BuiltinFunc(useFile, useLine), nil
		}
		return nil, fmt.Errorf("built-in macro %s has no implementation", macro.Name)
	}
}

// expandObjectMacro pushes a synthetic source frame over the macro's
// definition: the replacement is copied, token-pasted, and then run
// back through expandTokens as if it were itself a line of source.
func (e *Expander) expandObjectMacro(macro *Define, filename string, line int) ([]Token, error) {
	if e.depth >= MaxExpansionRecursion {
		return nil, fmt.Errorf("macro expansion recursion cap (%d) exceeded expanding %q", MaxExpansionRecursion, macro.Name)
	}
	e.depth++
	defer func() { e.depth-- }()

	replacement := make([]Token, len(macro.Replacement))
	for i, tok := range macro.Replacement {
		replacement[i] = tok
		replacement[i].Filename = filename
		replacement[i].Line = line
	}

	replacement, err := e.handleTokenPasting(replacement)
	if err != nil {
		return nil, err
	}

	return e.expandTokens(replacement)
}

func (e *Expander) expandFunctionMacro(macro *Define, args [][]Token, filename string, line int) ([]Token, error) {
	if e.depth >= MaxExpansionRecursion {
		return nil, fmt.Errorf("macro expansion recursion cap (%d) exceeded expanding %q", MaxExpansionRecursion, macro.Name)
	}
	e.depth++
	defer func() { e.depth-- }()

	paramMap := make(map[string][]Token)
	for i, param := range macro.Params {
		if i < len(args) {
			paramMap[param] = args[i]
		} else {
			paramMap[param] = nil
		}
	}

	var result []Token
	i := 0
	replacement := macro.Replacement

	for i < len(replacement) {
		tok := replacement[i]

		if (tok.Kind == PP_PUNCTUATOR && tok.Text == "#") || tok.Kind == PP_HASH {
			nextIdx := i + 1
			for nextIdx < len(replacement) && replacement[nextIdx].Kind == PP_WHITESPACE {
				nextIdx++
			}
			if nextIdx < len(replacement) && replacement[nextIdx].Kind == PP_IDENTIFIER {
				paramName := replacement[nextIdx].Text
				if paramTokens, ok := paramMap[paramName]; ok {
					stringified := e.stringify(paramTokens, filename, line)
					result = append(result, stringified)
					i = nextIdx + 1
					continue
				}
			}
		}

		if tok.Kind == PP_IDENTIFIER {
			if paramTokens, ok := paramMap[tok.Text]; ok {
				beforePaste := i > 0 && isPasteOp(replacement[i-1])
				afterPaste := i+1 < len(replacement) && isPasteOp(replacement[i+1])

				if beforePaste || afterPaste {
					for _, pt := range paramTokens {
						pt.Filename, pt.Line = filename, line
						result = append(result, pt)
					}
				} else {
					expanded, err := e.expandTokens(paramTokens)
					if err != nil {
						return nil, err
					}
					for _, pt := range expanded {
						pt.Filename, pt.Line = filename, line
						result = append(result, pt)
					}
				}
				i++
				continue
			}
		}

		newTok := tok
		newTok.Filename, newTok.Line = filename, line
		result = append(result, newTok)
		i++
	}

	result, err := e.handleTokenPasting(result)
	if err != nil {
		return nil, err
	}

	return e.expandTokens(result)
}

// parseArguments parses the arguments to a function-like macro invocation.
// Returns the list of argument token lists and the index of the closing paren.
func (e *Expander) parseArguments(tokens []Token, startIdx int, macro *Define) ([][]Token, int, error) {
	i := startIdx + 1
	var args [][]Token
	var currentArg []Token
	parenDepth := 1

	for i < len(tokens) {
		tok := tokens[i]

		if tok.Kind == PP_PUNCTUATOR {
			switch tok.Text {
			case "(":
				parenDepth++
				currentArg = append(currentArg, tok)
			case ")":
				parenDepth--
				if parenDepth == 0 {
					if len(currentArg) > 0 || len(args) > 0 {
						args = append(args, trimWhitespace(currentArg))
					}
					if err := e.validateArgCount(macro, args); err != nil {
						return nil, 0, err
					}
					return args, i, nil
				}
				currentArg = append(currentArg, tok)
			case ",":
				if parenDepth == 1 {
					args = append(args, trimWhitespace(currentArg))
					currentArg = nil
				} else {
					currentArg = append(currentArg, tok)
				}
			default:
				currentArg = append(currentArg, tok)
			}
		} else {
			currentArg = append(currentArg, tok)
		}
		i++
	}

	return nil, 0, fmt.Errorf("unterminated macro argument list")
}

func (e *Expander) validateArgCount(macro *Define, args [][]Token) error {
	expected := len(macro.Params)
	if len(args) != expected {
		return fmt.Errorf("macro %s requires %d arguments, got %d", macro.Name, expected, len(args))
	}
	return nil
}

// stringify converts tokens to a string literal (the # operator).
func (e *Expander) stringify(tokens []Token, filename string, line int) Token {
	var sb strings.Builder
	sb.WriteByte('"')

	lastWasSpace := true
	for _, tok := range tokens {
		if tok.Kind == PP_WHITESPACE || tok.Kind == PP_NEWLINE {
			if !lastWasSpace {
				sb.WriteByte(' ')
				lastWasSpace = true
			}
			continue
		}
		lastWasSpace = false

		if tok.Kind == PP_STRING_LITERAL || tok.Kind == PP_CHAR_CONST {
			for _, c := range tok.Text {
				if c == '"' || c == '\\' {
					sb.WriteByte('\\')
				}
				sb.WriteRune(c)
			}
		} else {
			sb.WriteString(tok.Text)
		}
	}

	str := sb.String()
	if strings.HasSuffix(str, " ") {
		str = str[:len(str)-1]
	}
	str += "\""

	return Token{Kind: PP_STRING_LITERAL, Text: str, Filename: filename, Line: line}
}

// handleTokenPasting handles the ## operator.
func (e *Expander) handleTokenPasting(tokens []Token) ([]Token, error) {
	var result []Token
	i := 0

	for i < len(tokens) {
		tok := tokens[i]

		if tok.Kind == PP_HASHHASH {
			if len(result) == 0 {
				return nil, fmt.Errorf("## cannot appear at start of replacement list")
			}
			if i+1 >= len(tokens) {
				return nil, fmt.Errorf("## cannot appear at end of replacement list")
			}

			nextIdx := i + 1
			for nextIdx < len(tokens) && tokens[nextIdx].Kind == PP_WHITESPACE {
				nextIdx++
			}
			if nextIdx >= len(tokens) {
				return nil, fmt.Errorf("## cannot appear at end of replacement list")
			}

			leftTok := result[len(result)-1]
			rightTok := tokens[nextIdx]

			result = result[:len(result)-1]

			if leftTok.Kind == PP_PLACEHOLDER {
				result = append(result, rightTok)
				i = nextIdx + 1
				continue
			}
			if rightTok.Kind == PP_PLACEHOLDER {
				result = append(result, leftTok)
				i = nextIdx + 1
				continue
			}

			pastedText := leftTok.Text + rightTok.Text
			pastedTokens := retokenize(pastedText, leftTok.Filename, leftTok.Line)
			if len(pastedTokens) == 0 {
				result = append(result, Token{Kind: PP_PLACEHOLDER, Text: "", Filename: leftTok.Filename, Line: leftTok.Line})
			} else {
				result = append(result, pastedTokens...)
			}

			i = nextIdx + 1
			continue
		}

		result = append(result, tok)
		i++
	}

	var filtered []Token
	for _, tok := range result {
		if tok.Kind != PP_PLACEHOLDER {
			filtered = append(filtered, tok)
		}
	}

	return filtered, nil
}

// retokenize tokenizes a pasted string.
func retokenize(text, filename string, line int) []Token {
	if text == "" {
		return nil
	}
	tokens := lexReplacementText(text, filename)
	for i := range tokens {
		tokens[i].Filename, tokens[i].Line = filename, line
	}
	return tokens
}

func isPasteOp(tok Token) bool {
	return tok.Kind == PP_HASHHASH
}

func trimWhitespace(tokens []Token) []Token {
	start := 0
	for start < len(tokens) && tokens[start].Kind == PP_WHITESPACE {
		start++
	}
	end := len(tokens)
	for end > start && tokens[end-1].Kind == PP_WHITESPACE {
		end--
	}
	if start >= end {
		return nil
	}
	return tokens[start:end]
}

// ExpandString is a convenience function to expand macros in a string.
func (e *Expander) ExpandString(input string) (string, error) {
	tokens := lexReplacementText(input, "<string>")
	expanded, err := e.Expand(tokens)
	if err != nil {
		return "", err
	}
	return TokensToString(expanded), nil
}
