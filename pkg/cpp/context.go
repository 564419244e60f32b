package cpp

import (
	"os"
	"path/filepath"
)

// Options configures a Context.
type Options struct {
	Defines      []string // -D definitions
	Undefines    []string // -U undefinitions
	IncludePaths []string // -I directories
	SystemPaths  []string // -isystem directories
	LineMarkers  bool     // emit # <line> "<file>" markers in the output stream
	AsmComments  bool     // treat ';' as an end-of-line comment (asm-style input)

	// Open overrides how #include resolves and reads files. Left nil,
	// Context uses the IncludeResolver's own filesystem-backed Open,
	// searching IncludePaths/SystemPaths against the including file's
	// directory. Supplying one lets a caller serve includes from
	// something other than the local filesystem (an archive, a virtual
	// tree of in-memory sources) while still getting the pump's cycle
	// detection, #pragma once, and include-guard bookkeeping for free.
	Open OpenFunc
}

// Context is the streaming preprocessor: a pull-based token pump layered
// over an include stack, a macro table, and a conditional-compilation
// stack. Callers drive it with repeated calls to NextToken until it
// reports PP_EOI.
type Context struct {
	macros      *MacroTable
	conditional *ConditionalProcessor
	expander    *Expander
	resolver    *IncludeResolver
	strs        *strCache
	opts        Options

	sources []*IncludeState // include stack; last element is the active source
	output  []Token         // queued tokens ready to return from NextToken
	guards  map[string]string
	openFn  OpenFunc // resolves #include files; see Options.Open

	oom bool
	err *Error
}

// NewContext creates a Context ready to have a source pushed onto it.
func NewContext(opts Options) (*Context, error) {
	macros := NewMacroTable()
	if err := macros.ApplyCmdlineDefines(opts.Defines, opts.Undefines); err != nil {
		return nil, err
	}

	resolver := NewIncludeResolver()
	for _, p := range opts.IncludePaths {
		resolver.AddUserPath(p)
	}
	for _, p := range opts.SystemPaths {
		resolver.AddSystemPath(p)
	}

	openFn := opts.Open
	if openFn == nil {
		openFn = resolver.Open
	}

	return &Context{
		macros:      macros,
		conditional: NewConditionalProcessor(macros),
		expander:    NewExpander(macros),
		resolver:    resolver,
		strs:        newStrCache(),
		opts:        opts,
		guards:      make(map[string]string),
		openFn:      openFn,
	}, nil
}

// PushFile opens filename and pushes it onto the source stack.
func (c *Context) PushFile(filename string) error {
	absPath, err := filepath.Abs(filename)
	if err != nil {
		absPath = filename
	}
	content, err := os.ReadFile(absPath)
	if err != nil {
		return newError(ErrInclude, filename, 0, "reading %s: %v", filename, err)
	}
	c.resolver.SetCurrentFile(absPath)
	if err := c.resolver.PushFile(absPath); err != nil {
		return err
	}
	c.pushSource(absPath, string(content), func() { c.resolver.PopFile() })
	return nil
}

// PushString pushes an in-memory source (used for the REPL and for
// string-form macro-expansion requests) with a synthetic filename.
func (c *Context) PushString(filename, content string) {
	c.pushSource(filename, content, nil)
}

func (c *Context) pushSource(filename, content string, closeFn func()) {
	s := newIncludeState(c.strs.Intern(filename), content, 1, closeFn, c.opts.AsmComments)
	c.sources = append(c.sources, s)
}

func (c *Context) popSource() {
	if len(c.sources) == 0 {
		return
	}
	s := c.sources[len(c.sources)-1]
	c.sources = c.sources[:len(c.sources)-1]
	if s.closeFn != nil {
		s.closeFn()
	}
	putIncludeState(s)
}

func (c *Context) current() *IncludeState {
	if len(c.sources) == 0 {
		return nil
	}
	return c.sources[len(c.sources)-1]
}

// Depth returns the current include-stack depth.
func (c *Context) Depth() int {
	return len(c.sources)
}

// Macros exposes the active macro table for inspection and for the
// command-line -D/-U wiring done before the first PushFile.
func (c *Context) Macros() *MacroTable {
	return c.macros
}

// SimulateOOM flips the Context into its sticky out-of-memory state: all
// subsequent NextToken calls return a single PP_PREPROCESSING_ERROR token
// and then PP_EOI. Go has no failing allocator to hook, so this models
// the C implementation's out_of_memory global as an explicit, externally
// triggered circuit breaker instead (see the module's design notes).
func (c *Context) SimulateOOM() {
	c.oom = true
}

// OutOfMemory reports whether SimulateOOM has been triggered.
func (c *Context) OutOfMemory() bool {
	return c.oom
}

// Err returns the last sticky error raised by the pump, if any.
func (c *Context) Err() *Error {
	return c.err
}

// Close releases every source still on the stack, invoking each one's
// close callback.
func (c *Context) Close() {
	for len(c.sources) > 0 {
		c.popSource()
	}
}
