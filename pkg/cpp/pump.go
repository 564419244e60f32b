package cpp

import (
	"fmt"
	"strings"
)

// NextToken pulls the next preprocessed token from the active source
// stack, descending into #include files as they're encountered and
// popping back out at end-of-file. Returns a token of kind PP_EOI once
// every pushed source has been exhausted.
//
// Once SimulateOOM has been called, NextToken returns a single
// PP_PREPROCESSING_ERROR token and then PP_EOI forever: this is the only
// sticky failure mode. Every other error (bad directive, unterminated
// macro argument list, #error) surfaces as a PP_PREPROCESSING_ERROR token
// inline and the pump keeps running afterward.
func (c *Context) NextToken() Token {
	if c.oom {
		if c.err == nil || c.err.Kind != ErrOutOfMemory {
			c.err = newError(ErrOutOfMemory, "", 0, "out of memory")
			return Token{Kind: PP_PREPROCESSING_ERROR, Text: c.err.Error()}
		}
		return Token{Kind: PP_EOI}
	}

	for {
		if len(c.output) > 0 {
			tok := c.output[0]
			c.output = c.output[1:]
			return tok
		}
		if !c.fillLine() {
			return Token{Kind: PP_EOI}
		}
	}
}

// fillLine reads one logical source line from the active source,
// processes it (directive dispatch or macro-expanded passthrough), and
// appends any resulting tokens to the output queue. Returns false only
// once the entire source stack is exhausted.
func (c *Context) fillLine() bool {
	cur := c.current()
	if cur == nil {
		return false
	}

	var lineTokens []Token
	for {
		if len(lineTokens) == 2 && lineTokens[0].Kind == PP_HASH && lineTokens[1].Kind == PP_INCLUDE {
			header := cur.ScanHeaderName()
			if header.Kind == PP_NEWLINE || header.Kind == PP_EOI {
				cur.Pushback(header)
			} else {
				lineTokens = append(lineTokens, header)
			}
		}
		// Keep the space between a #define'd name and '(' so the
		// directive parser can tell "A (x)" (object-like) from "A(x)".
		if len(lineTokens) == 3 && lineTokens[0].Kind == PP_HASH && lineTokens[1].Kind == PP_DEFINE &&
			lineTokens[2].Kind == PP_IDENTIFIER && cur.isWhitespace(cur.peek()) {
			lineTokens = append(lineTokens, Token{Kind: PP_WHITESPACE, Text: " ", Filename: cur.Filename, Line: cur.line})
		}

		tok := cur.NextToken()

		if tok.Kind == PP_EOI {
			if len(lineTokens) > 0 {
				c.processLine(lineTokens)
			}
			c.popSource()
			if resumed := c.current(); resumed != nil {
				c.emitLineMarker(resumed.Filename, resumed.line)
			}
			return true
		}
		if tok.Kind == PP_NEWLINE {
			c.processLine(lineTokens)
			return true
		}
		if tok.Kind == PP_WHITESPACE {
			continue
		}
		lineTokens = append(lineTokens, tok)
	}
}

func (c *Context) processLine(tokens []Token) {
	if len(tokens) == 0 {
		return
	}

	if tokens[0].Kind == PP_HASH {
		c.processDirective(tokens)
		return
	}

	if !c.conditional.IsActive() {
		return
	}

	expanded, err := c.expander.ExpandWithLoc(tokens, tokens[0].Filename, tokens[0].Line)
	if err != nil {
		c.raise(ErrMacro, tokens[0].Filename, tokens[0].Line, "%s", err.Error())
		return
	}
	c.output = append(c.output, expanded...)
	c.output = append(c.output, Token{Kind: PP_NEWLINE, Text: "\n", Filename: tokens[0].Filename, Line: tokens[0].Line})
}

func (c *Context) processDirective(tokens []Token) {
	filename, line := tokens[0].Filename, tokens[0].Line

	dir, err := ParseDirectiveFromTokens(tokens[1:], filename, line)
	if err != nil {
		if c.conditional.IsActive() {
			c.raise(ErrDirective, filename, line, "%s", err.Error())
		}
		return
	}

	switch dir.Kind {
	case DirIf:
		if err := c.conditional.ProcessIf(dir.Expression); err != nil {
			c.raise(ErrDirective, filename, line, "%s", err.Error())
		}
		return
	case DirIfdef:
		if err := c.conditional.ProcessIfdef(dir.Identifier); err != nil {
			c.raise(ErrDirective, filename, line, "%s", err.Error())
		}
		return
	case DirIfndef:
		if err := c.conditional.ProcessIfndef(dir.Identifier); err != nil {
			c.raise(ErrDirective, filename, line, "%s", err.Error())
		}
		return
	case DirElif:
		if err := c.conditional.ProcessElif(dir.Expression); err != nil {
			c.raise(ErrDirective, filename, line, "%s", err.Error())
		}
		return
	case DirElse:
		if err := c.conditional.ProcessElse(); err != nil {
			c.raise(ErrDirective, filename, line, "%s", err.Error())
		}
		return
	case DirEndif:
		if err := c.conditional.ProcessEndif(); err != nil {
			c.raise(ErrDirective, filename, line, "%s", err.Error())
		}
		return
	case DirEmpty:
		return
	}

	if !c.conditional.IsActive() {
		return
	}

	switch dir.Kind {
	case DirInclude:
		c.processInclude(dir, filename, line)
	case DirDefine:
		var err error
		if dir.IsFunction {
			err = c.macros.DefineFunction(dir.Identifier, dir.ParamNames, dir.Expression)
		} else {
			err = c.macros.DefineObject(dir.Identifier, dir.Expression)
		}
		if err != nil {
			c.raise(ErrMacro, filename, line, "%s", err.Error())
		}
	case DirUndef:
		c.macros.Undefine(dir.Identifier)
	case DirLine:
		cur := c.current()
		if cur != nil {
			cur.line = dir.LineNum
			if dir.LineFile != "" {
				cur.Filename = c.strs.Intern(dir.LineFile)
			}
		}
	case DirError:
		c.raise(ErrUserError, filename, line, "#error %s", dir.Message)
	case DirPragma:
		c.processPragma(dir, filename)
	default:
		c.raise(ErrDirective, filename, line, "unhandled directive")
	}
}

func (c *Context) processInclude(dir *Directive, currentFile string, line int) {
	headerName := dir.HeaderName
	if headerName == "" && len(dir.Expression) > 0 {
		expanded, err := c.expander.Expand(dir.Expression)
		if err != nil {
			c.raise(ErrInclude, currentFile, line, "expanding include: %v", err)
			return
		}
		headerName = strings.TrimSpace(TokensToString(expanded))
	}
	if headerName == "" {
		c.raise(ErrInclude, currentFile, line, "empty include file name")
		return
	}

	var fileName string
	var kind IncludeKind
	switch {
	case strings.HasPrefix(headerName, "<") && strings.HasSuffix(headerName, ">"):
		fileName = headerName[1 : len(headerName)-1]
		kind = IncludeSystem
	case strings.HasPrefix(headerName, "\"") && strings.HasSuffix(headerName, "\""):
		fileName = headerName[1 : len(headerName)-1]
		kind = IncludeLocal
	default:
		fileName = headerName
		kind = IncludeLocal
	}

	path, data, closeFn, ok := c.openFn(kind, fileName, currentFile)
	if !ok {
		c.raise(ErrInclude, currentFile, line, "#include %s: file not found", headerName)
		return
	}

	// From here on every return path must invoke closeFn exactly once,
	// whether or not the file actually ends up pushed onto the source
	// stack.
	if c.resolver.IsAlreadyIncluded(path) {
		closeFn()
		return
	}
	if guardMacro, ok := c.guards[path]; ok && c.macros.IsDefined(guardMacro) {
		closeFn()
		return
	}
	if c.resolver.IncludeDepth() >= MaxIncludeDepth {
		closeFn()
		c.raise(ErrInclude, currentFile, line, "#include nested too deeply")
		return
	}
	if err := c.resolver.PushFile(path); err != nil {
		closeFn()
		c.raise(ErrInclude, currentFile, line, "%v", err)
		return
	}

	c.pushSource(path, string(data), func() {
		c.resolver.PopFile()
		closeFn()
	})

	if guard := detectIncludeGuard(c.current().buf); guard != "" {
		c.guards[path] = guard
	}
	c.emitLineMarker(c.current().Filename, c.current().line)
}

// emitLineMarker appends a GCC-style "# <line> \"<file>\"" marker to the
// output queue when the caller requested LineMarkers. It's tagged
// PP_WHITESPACE so it round-trips through TokensToString but is ignored
// by anything (like pkg/calc's parser) that treats whitespace as
// insignificant.
func (c *Context) emitLineMarker(filename string, line int) {
	if !c.opts.LineMarkers {
		return
	}
	text := fmt.Sprintf("# %d %q\n", line, filename)
	c.output = append(c.output, Token{Kind: PP_WHITESPACE, Text: text, Filename: filename, Line: line})
}

// processPragma handles #pragma once (suppressing re-inclusion of the
// current file) and otherwise passes the directive through opaquely:
// the '#', "pragma", the pragma body, and a trailing newline are all
// emitted to the consumer rather than swallowed, since this
// preprocessor has no other pragmas of its own to interpret.
func (c *Context) processPragma(dir *Directive, filename string) {
	if len(dir.PragmaTokens) == 0 {
		return
	}
	if dir.PragmaTokens[0].Kind == PP_IDENTIFIER && dir.PragmaTokens[0].Text == "once" {
		c.resolver.MarkPragmaOnce(filename)
		return
	}

	line := dir.Line
	passthrough := append([]Token{
		{Kind: PP_HASH, Text: "#", Filename: filename, Line: line},
		{Kind: PP_PRAGMA, Text: "pragma", Filename: filename, Line: line},
	}, dir.PragmaTokens...)
	c.output = append(c.output, joinSpaced(passthrough)...)
	c.output = append(c.output, Token{Kind: PP_NEWLINE, Text: "\n", Filename: filename, Line: line})
}

func (c *Context) raise(kind ErrorKind, filename string, line int, format string, args ...any) {
	e := newError(kind, filename, line, format, args...)
	c.err = e
	c.output = append(c.output, Token{Kind: PP_PREPROCESSING_ERROR, Text: e.Error(), Filename: filename, Line: line})
}

// detectIncludeGuard checks whether raw source text opens with the
// #ifndef GUARD / #define GUARD pattern, as an optimization to skip
// re-reading files that have already satisfied their guard once.
func detectIncludeGuard(source string) string {
	s := newIncludeState("<guard-scan>", source, 1, nil, false)
	defer putIncludeState(s)

	var tokens []Token
	for len(tokens) <= 6 {
		tok := s.NextToken()
		if tok.Kind == PP_EOI {
			break
		}
		if tok.Kind == PP_WHITESPACE || tok.Kind == PP_NEWLINE {
			continue
		}
		tokens = append(tokens, tok)
	}

	if len(tokens) < 3 {
		return ""
	}
	if tokens[0].Kind == PP_HASH && tokens[1].Kind == PP_IFNDEF && tokens[2].Kind == PP_IDENTIFIER {
		guard := tokens[2].Text
		if len(tokens) >= 6 && tokens[3].Kind == PP_HASH && tokens[4].Kind == PP_DEFINE &&
			tokens[5].Kind == PP_IDENTIFIER && tokens[5].Text == guard {
			return guard
		}
	}
	return ""
}
