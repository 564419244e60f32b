// Package calc implements the expression calculator described in the
// module's specification: macro-expanded arithmetic expressions parsed
// with a shunting-yard algorithm and reduced to a single result.
package calc

import (
	"fmt"

	"github.com/raymyers/ralphcpp/pkg/cpp"
)

// Evaluate preprocesses expr through ctx (so any macros already #defined
// on ctx, and any __FILE__/__LINE__ references, are expanded first),
// parses the resulting token stream, and evaluates it against env.
func Evaluate(ctx *cpp.Context, expr string, env Environment) (float64, error) {
	ctx.PushString("<calc>", expr)
	parser := NewParser(ctx)
	ast, err := parser.Parse()
	if err != nil {
		return 0, fmt.Errorf("parsing %q: %w", expr, err)
	}
	if cerr := ctx.Err(); cerr != nil {
		return 0, fmt.Errorf("preprocessing %q: %w", expr, cerr)
	}
	return Eval(ast, env)
}

// EvaluateString is a convenience wrapper for one-off evaluations that
// need no macro definitions beyond the builtins, e.g. driving the
// calculator from a single REPL line.
func EvaluateString(expr string, env Environment) (float64, error) {
	ctx, err := cpp.NewContext(cpp.Options{})
	if err != nil {
		return 0, err
	}
	defer ctx.Close()
	return Evaluate(ctx, expr, env)
}
