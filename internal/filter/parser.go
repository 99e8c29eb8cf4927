package filter

import "strconv"

// Parser for the operator filter language.
//
// Grammar (EBNF):
//
//	filter  = or EOF
//	or      = and ( "|" and )*
//	and     = unary ( "&"? unary )*     ; adjacent atoms are implicitly AND-ed
//	unary   = "!" unary | primary
//	primary = "(" or ")" | "~" CODE [arg] | REGEX   ; bare regex matches URL
//	arg     = REGEX | INT               ; per the flag's type
//	REGEX   = bareword | quoted string with backslash escapes
//
// Precedence (highest to lowest):
//  1. Parentheses
//  2. ! (prefix, right-associative)
//  3. AND (implicit or explicit &)
//  4. | (OR)
//
// Binary operators are left-associative. Implicit AND binds exactly like
// explicit &, so "~marked ~c 200 | ~c 201" parses as
// "(~marked & ~c 200) | ~c 201".
type parser struct {
	lex *Lexer
	cur Token
}

// Parse parses filter text into an AST root. Empty input is a ParseError;
// callers that treat empty text as "match all" check before parsing.
func Parse(input string) (Node, error) {
	p := &parser{lex: NewLexer(input)}
	if err := p.advance(); err != nil {
		return nil, err
	}

	if p.cur.Kind == TokEOF {
		return nil, newParseError(0, ErrEmptyFilter, "empty filter")
	}

	node, err := p.parseOr()
	if err != nil {
		return nil, err
	}

	if p.cur.Kind != TokEOF {
		if p.cur.Kind == TokRParen {
			return nil, newParseError(p.cur.Pos, ErrUnmatchedParen, "unmatched ')'")
		}
		return nil, newParseError(p.cur.Pos, ErrUnexpectedToken, "unexpected token %q", p.cur.Lit)
	}
	return node, nil
}

func (p *parser) advance() error {
	tok, err := p.lex.Next()
	if err != nil {
		return err
	}
	p.cur = tok
	return nil
}

func (p *parser) parseOr() (Node, error) {
	left, err := p.parseAnd()
	if err != nil {
		return nil, err
	}

	for p.cur.Kind == TokOr {
		if err := p.advance(); err != nil {
			return nil, err
		}
		right, err := p.parseAnd()
		if err != nil {
			return nil, err
		}
		left = flattenOr(left, right)
	}
	return left, nil
}

func (p *parser) parseAnd() (Node, error) {
	left, err := p.parseUnary()
	if err != nil {
		return nil, err
	}

	for p.isAndStart() {
		if p.cur.Kind == TokAnd {
			if err := p.advance(); err != nil {
				return nil, err
			}
		}
		right, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		left = flattenAnd(left, right)
	}
	return left, nil
}

// isAndStart reports whether the current token begins another AND operand:
// an explicit &, or any token that can start an atom (implicit AND).
func (p *parser) isAndStart() bool {
	switch p.cur.Kind {
	case TokAnd, TokBang, TokFlag, TokWord, TokLParen:
		return true
	default:
		return false
	}
}

func (p *parser) parseUnary() (Node, error) {
	if p.cur.Kind == TokBang {
		if err := p.advance(); err != nil {
			return nil, err
		}
		child, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return Not{Child: child}, nil
	}
	return p.parsePrimary()
}

func (p *parser) parsePrimary() (Node, error) {
	switch p.cur.Kind {
	case TokLParen:
		openPos := p.cur.Pos
		if err := p.advance(); err != nil {
			return nil, err
		}
		node, err := p.parseOr()
		if err != nil {
			return nil, err
		}
		if p.cur.Kind != TokRParen {
			return nil, newParseError(openPos, ErrUnmatchedParen, "unmatched '('")
		}
		if err := p.advance(); err != nil {
			return nil, err
		}
		return node, nil

	case TokFlag:
		return p.parseFlag()

	case TokWord:
		// A naked regex is a URL regex.
		node := RegexMatch{Code: "u", Pattern: p.cur.Lit, clause: urlField.clause}
		if err := p.advance(); err != nil {
			return nil, err
		}
		return node, nil

	case TokEOF:
		return nil, newParseError(p.cur.Pos, ErrUnexpectedToken, "unexpected end of filter")

	default:
		return nil, newParseError(p.cur.Pos, ErrUnexpectedToken, "unexpected token %q", p.cur.Lit)
	}
}

func (p *parser) parseFlag() (Node, error) {
	tok := p.cur
	spec, ok := fields[tok.Lit]
	if !ok {
		return nil, newParseError(tok.Pos, ErrUnknownFlag, "unknown filter flag ~%s", tok.Lit)
	}
	if err := p.advance(); err != nil {
		return nil, err
	}

	switch spec.kind {
	case atomUnary:
		return Unary{Code: tok.Lit, clause: spec.clause}, nil

	case atomRegex:
		if p.cur.Kind != TokWord {
			return nil, newParseError(tok.Pos, ErrMissingArgument,
				"flag ~%s requires a regex argument", tok.Lit)
		}
		node := RegexMatch{Code: tok.Lit, Pattern: p.cur.Lit, clause: spec.clause}
		if err := p.advance(); err != nil {
			return nil, err
		}
		return node, nil

	case atomInt:
		if p.cur.Kind != TokWord {
			return nil, newParseError(tok.Pos, ErrMissingArgument,
				"flag ~%s requires an integer argument", tok.Lit)
		}
		value, err := strconv.Atoi(p.cur.Lit)
		if err != nil || value < 0 {
			return nil, newParseError(p.cur.Pos, ErrInvalidInt,
				"flag ~%s: %q is not an integer", tok.Lit, p.cur.Lit)
		}
		node := IntCompare{Code: tok.Lit, Value: value, clause: spec.clause}
		if err := p.advance(); err != nil {
			return nil, err
		}
		return node, nil

	default:
		return nil, newParseError(tok.Pos, ErrUnknownFlag, "unknown flag kind for ~%s", tok.Lit)
	}
}

// flattenAnd combines two nodes into an And, flattening a nested left And so
// "a b c" builds And{a,b,c} rather than And{And{a,b},c}.
func flattenAnd(left, right Node) Node {
	if a, ok := left.(And); ok {
		return And{Children: append(a.Children, right)}
	}
	return And{Children: []Node{left, right}}
}

func flattenOr(left, right Node) Node {
	if o, ok := left.(Or); ok {
		return Or{Children: append(o.Children, right)}
	}
	return Or{Children: []Node{left, right}}
}
