package filter

import "strings"

// TokenKind identifies the type of lexical token.
type TokenKind int

const (
	TokEOF    TokenKind = iota
	TokFlag             // ~code (literal holds the code without the tilde)
	TokWord             // bareword or quoted string (quotes stripped, escapes processed)
	TokBang             // !
	TokAnd              // &
	TokOr               // |
	TokLParen           // (
	TokRParen           // )
)

func (k TokenKind) String() string {
	switch k {
	case TokEOF:
		return "EOF"
	case TokFlag:
		return "FLAG"
	case TokWord:
		return "WORD"
	case TokBang:
		return "!"
	case TokAnd:
		return "&"
	case TokOr:
		return "|"
	case TokLParen:
		return "("
	case TokRParen:
		return ")"
	default:
		return "UNKNOWN"
	}
}

// Token represents a lexical token.
type Token struct {
	Kind TokenKind
	Lit  string // for quoted strings: unescaped content without quotes
	Pos  int    // byte offset in input for error reporting
}

// Lexer tokenizes filter text.
type Lexer struct {
	input string
	pos   int
}

// NewLexer creates a lexer for the given input.
func NewLexer(input string) *Lexer {
	return &Lexer{input: input}
}

// Next returns the next token.
func (l *Lexer) Next() (Token, error) {
	l.skipWhitespace()

	if l.pos >= len(l.input) {
		return Token{Kind: TokEOF, Pos: l.pos}, nil
	}

	startPos := l.pos
	ch := l.input[l.pos]

	switch ch {
	case '!':
		l.pos++
		return Token{Kind: TokBang, Lit: "!", Pos: startPos}, nil
	case '&':
		l.pos++
		return Token{Kind: TokAnd, Lit: "&", Pos: startPos}, nil
	case '|':
		l.pos++
		return Token{Kind: TokOr, Lit: "|", Pos: startPos}, nil
	case '(':
		l.pos++
		return Token{Kind: TokLParen, Lit: "(", Pos: startPos}, nil
	case ')':
		l.pos++
		return Token{Kind: TokRParen, Lit: ")", Pos: startPos}, nil
	case '"', '\'':
		return l.scanQuotedString(ch)
	case '~':
		return l.scanFlag()
	}

	return l.scanBareword()
}

func (l *Lexer) skipWhitespace() {
	for l.pos < len(l.input) {
		switch l.input[l.pos] {
		case ' ', '\t', '\n', '\r':
			l.pos++
		default:
			return
		}
	}
}

// scanFlag scans ~ followed by the whole flag code. The code runs to the
// next delimiter, so a short code can never shadow a longer one sharing its
// prefix: "~marked" lexes as the single code "marked", never "~m" + "arked".
func (l *Lexer) scanFlag() (Token, error) {
	startPos := l.pos
	l.pos++ // skip '~'

	codeStart := l.pos
	for l.pos < len(l.input) && isBarewordChar(l.input[l.pos]) {
		l.pos++
	}
	return Token{Kind: TokFlag, Lit: l.input[codeStart:l.pos], Pos: startPos}, nil
}

// scanQuotedString scans a quoted atom, processing backslash escapes. Only
// the backslash and the quote characters are unescapable; any other
// backslash sequence passes through untouched so regex metacharacters like
// \d survive quoting.
func (l *Lexer) scanQuotedString(quote byte) (Token, error) {
	startPos := l.pos
	l.pos++ // skip opening quote

	var sb strings.Builder
	for l.pos < len(l.input) {
		ch := l.input[l.pos]

		if ch == quote {
			l.pos++ // skip closing quote
			return Token{Kind: TokWord, Lit: sb.String(), Pos: startPos}, nil
		}

		if ch == '\\' {
			if l.pos+1 >= len(l.input) {
				return Token{}, newParseError(l.pos, ErrUnterminatedString,
					"unterminated string: escape at end of input")
			}
			next := l.input[l.pos+1]
			switch next {
			case '\\', '"', '\'':
				sb.WriteByte(next)
			default:
				sb.WriteByte('\\')
				sb.WriteByte(next)
			}
			l.pos += 2
			continue
		}

		sb.WriteByte(ch)
		l.pos++
	}

	return Token{}, newParseError(startPos, ErrUnterminatedString,
		"unterminated string starting at position %d", startPos)
}

// scanBareword scans an unquoted atom, which runs until a delimiter.
func (l *Lexer) scanBareword() (Token, error) {
	startPos := l.pos
	for l.pos < len(l.input) && isBarewordChar(l.input[l.pos]) {
		l.pos++
	}
	return Token{Kind: TokWord, Lit: l.input[startPos:l.pos], Pos: startPos}, nil
}

// isBarewordChar reports whether ch can be part of an unquoted atom or flag
// code. Delimiters are whitespace, parentheses, quotes, the tilde, and the
// boolean operators.
func isBarewordChar(ch byte) bool {
	switch ch {
	case ' ', '\t', '\n', '\r':
		return false
	case '(', ')', '~', '\'', '"', '!', '&', '|':
		return false
	default:
		return true
	}
}
