package calc

import (
	"fmt"

	"github.com/raymyers/ralphcpp/pkg/cpp"
)

// TokenSource is anything that can be driven one token at a time, the
// contract pkg/cpp's Context.NextToken satisfies. The parser pulls the
// whole expression through this interface before building its AST; it
// never reaches back into the source's internals.
type TokenSource interface {
	NextToken() cpp.Token
}

// Parser builds a calculator AST from a preprocessed token stream using
// a genuine two-stack shunting-yard reduction: an operator stack and an
// output stack of already-built Expr nodes, following the same
// precedence table the preprocessor's #if evaluator uses. This stands in
// for an externally generated LALR parser table, which this module does
// not vendor; the one-token-at-a-time driving contract is preserved so a
// real generated parser could be substituted without changing callers.
type Parser struct {
	tokens []cpp.Token
	pos    int
}

// NewParser drains src until PP_EOI and returns a Parser ready to parse
// a single expression from the collected tokens.
func NewParser(src TokenSource) *Parser {
	var tokens []cpp.Token
	for {
		tok := src.NextToken()
		if tok.Kind == cpp.PP_EOI {
			break
		}
		if tok.Kind == cpp.PP_WHITESPACE || tok.Kind == cpp.PP_NEWLINE {
			continue
		}
		tokens = append(tokens, tok)
	}
	return &Parser{tokens: tokens}
}

// NewParserFromTokens builds a Parser directly from an in-memory token
// slice that has already been collected, without draining a TokenSource.
func NewParserFromTokens(tokens []cpp.Token) *Parser {
	return &Parser{tokens: tokens}
}

// Parse consumes the entire token stream as one expression.
func (p *Parser) Parse() (Expr, error) {
	if len(p.tokens) == 0 {
		return nil, fmt.Errorf("empty expression")
	}
	expr, err := p.parseTernary(p.tokens)
	if err != nil {
		return nil, err
	}
	return expr, nil
}

var binPrecedence = map[string]int{
	"||": 0,
	"&&": 1,
	"|":  2,
	"^":  3,
	"&":  4,
	"!=": 5,
	"==": 6,
	"<":  7,
	">":  7,
	"<=": 7,
	">=": 7,
	"<<": 8,
	">>": 8,
	"+":  9,
	"-":  9,
	"*":  10,
	"/":  10,
	"%":  10,
}

var binOpOf = map[string]BinaryOp{
	"+": OpAdd, "-": OpSub, "*": OpMul, "/": OpDiv, "%": OpMod,
	"<": OpLt, "<=": OpLe, ">": OpGt, ">=": OpGe,
	"==": OpEq, "!=": OpNe,
	"&&": OpAnd, "||": OpOr,
	"&": OpBitAnd, "|": OpBitOr, "^": OpBitXor,
	"<<": OpShl, ">>": OpShr,
}

var unaryOpOf = map[string]UnaryOp{
	"-": OpNeg, "+": OpPos, "!": OpNot, "~": OpBitNot,
}

// shuntEntry is an operator-stack entry: either a binary operator, a
// unary operator, or an open paren marker (text == "(").
type shuntEntry struct {
	text    string
	isUnary bool
}

// parseTernary splits "cond ? then : else" at the top-level ?/: before
// handing each part to the shunting-yard binary/unary reducer, since the
// conditional operator is ternary and doesn't fit a two-operand
// precedence climb.
func (p *Parser) parseTernary(tokens []cpp.Token) (Expr, error) {
	qIdx, colonIdx := findTernarySplit(tokens)
	if qIdx == -1 {
		return shuntingYardAST(tokens)
	}
	cond, err := p.parseTernary(tokens[:qIdx])
	if err != nil {
		return nil, err
	}
	then, err := p.parseTernary(tokens[qIdx+1 : colonIdx])
	if err != nil {
		return nil, err
	}
	els, err := p.parseTernary(tokens[colonIdx+1:])
	if err != nil {
		return nil, err
	}
	return &Ternary{Cond: cond, Then: then, Else: els}, nil
}

func findTernarySplit(tokens []cpp.Token) (int, int) {
	depth := 0
	qIdx := -1
	for i, tok := range tokens {
		if tok.Kind != cpp.PP_PUNCTUATOR {
			continue
		}
		switch tok.Text {
		case "(":
			depth++
		case ")":
			depth--
		case "?":
			if depth == 0 && qIdx == -1 {
				qIdx = i
			}
		}
	}
	if qIdx == -1 {
		return -1, -1
	}
	depth = 0
	for i := qIdx + 1; i < len(tokens); i++ {
		tok := tokens[i]
		if tok.Kind != cpp.PP_PUNCTUATOR {
			continue
		}
		switch tok.Text {
		case "(":
			depth++
		case ")":
			depth--
		case ":":
			if depth == 0 {
				return qIdx, i
			}
		}
	}
	return -1, -1
}

// shuntingYardAST runs the two-stack shunting-yard algorithm directly
// over Expr nodes: the output stack holds already-reduced Expr values
// instead of raw numbers, so popping an operator builds a Binary or
// Unary node from the top of that stack rather than computing a value.
func shuntingYardAST(tokens []cpp.Token) (Expr, error) {
	var output []Expr
	var ops []shuntEntry
	expectOperand := true

	reduceOne := func(e shuntEntry) error {
		if e.isUnary {
			if len(output) < 1 {
				return fmt.Errorf("malformed expression")
			}
			operand := output[len(output)-1]
			output = output[:len(output)-1]
			op, ok := unaryOpOf[e.text]
			if !ok {
				return fmt.Errorf("unknown unary operator %q", e.text)
			}
			output = append(output, &Unary{Op: op, Operand: operand})
			return nil
		}
		if len(output) < 2 {
			return fmt.Errorf("malformed expression")
		}
		right := output[len(output)-1]
		left := output[len(output)-2]
		output = output[:len(output)-2]
		op, ok := binOpOf[e.text]
		if !ok {
			return fmt.Errorf("unknown operator %q", e.text)
		}
		output = append(output, &Binary{Op: op, Left: left, Right: right})
		return nil
	}

	popHigher := func(text string) error {
		curPrec, _ := binPrecedence[text]
		for len(ops) > 0 {
			top := ops[len(ops)-1]
			if top.text == "(" {
				break
			}
			topPrec := 11
			if !top.isUnary {
				topPrec = binPrecedence[top.text]
			}
			if topPrec >= curPrec {
				if err := reduceOne(top); err != nil {
					return err
				}
				ops = ops[:len(ops)-1]
				continue
			}
			break
		}
		return nil
	}

	for i := 0; i < len(tokens); i++ {
		tok := tokens[i]
		switch {
		case tok.Kind == cpp.PP_INT_LITERAL:
			v, err := parseIntLiteral(tok.Text)
			if err != nil {
				return nil, err
			}
			output = append(output, &IntLit{Value: v})
			expectOperand = false

		case tok.Kind == cpp.PP_FLOAT_LITERAL:
			v, err := parseFloatLiteral(tok.Text)
			if err != nil {
				return nil, err
			}
			output = append(output, &FloatLit{Value: v})
			expectOperand = false

		case tok.Kind == cpp.PP_STRING_LITERAL:
			text := tok.Text
			if len(text) >= 2 {
				text = text[1 : len(text)-1]
			}
			output = append(output, &StrLit{Value: text})
			expectOperand = false

		case tok.Kind == cpp.PP_IDENTIFIER:
			output = append(output, &Ident{Name: tok.Text})
			expectOperand = false

		case tok.Kind == cpp.PP_PUNCTUATOR && tok.Text == "(":
			ops = append(ops, shuntEntry{text: "("})
			expectOperand = true

		case tok.Kind == cpp.PP_PUNCTUATOR && tok.Text == ")":
			found := false
			for len(ops) > 0 {
				top := ops[len(ops)-1]
				ops = ops[:len(ops)-1]
				if top.text == "(" {
					found = true
					break
				}
				if err := reduceOne(top); err != nil {
					return nil, err
				}
			}
			if !found {
				return nil, fmt.Errorf("unbalanced parentheses in expression")
			}
			expectOperand = false

		case tok.Kind == cpp.PP_PUNCTUATOR && expectOperand && (tok.Text == "+" || tok.Text == "-" || tok.Text == "!" || tok.Text == "~"):
			ops = append(ops, shuntEntry{text: tok.Text, isUnary: true})
			expectOperand = true

		case tok.Kind == cpp.PP_PUNCTUATOR:
			if _, ok := binPrecedence[tok.Text]; !ok {
				return nil, fmt.Errorf("unexpected token in expression: %s", tok.Text)
			}
			if err := popHigher(tok.Text); err != nil {
				return nil, err
			}
			ops = append(ops, shuntEntry{text: tok.Text})
			expectOperand = true

		default:
			return nil, fmt.Errorf("unexpected token in expression: %s (%s)", tok.Text, tok.Kind)
		}
	}

	for len(ops) > 0 {
		top := ops[len(ops)-1]
		ops = ops[:len(ops)-1]
		if top.text == "(" {
			return nil, fmt.Errorf("unbalanced parentheses in expression")
		}
		if err := reduceOne(top); err != nil {
			return nil, err
		}
	}

	if len(output) != 1 {
		return nil, fmt.Errorf("malformed expression")
	}
	return output[0], nil
}
