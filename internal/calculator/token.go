package calculator

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"
)

type TokenKind int

const (
	NumLit TokenKind = iota
	Ident
	Plus
	Minus
	Ast
	AstAst
	Slash
	Percent
	LParen
	RParen
	Comma
	Equal
)

var tokenKindNames = map[TokenKind]string{
	NumLit:  "number",
	Ident:   "identifier",
	Plus:    "+",
	Minus:   "-",
	Ast:     "*",
	AstAst:  "**",
	Slash:   "/",
	Percent: "%",
	LParen:  "(",
	RParen:  ")",
	Comma:   ",",
	Equal:   "=",
}

func (k TokenKind) String() string {
	if name, ok := tokenKindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("TokenKind(%d)", int(k))
}

// Token is a lexeme of the input. Text is only set for NumLit and Ident.
type Token struct {
	Kind   TokenKind
	Text   string
	Offset int
}

var symbols = map[byte]TokenKind{
	'+': Plus,
	'-': Minus,
	'/': Slash,
	'%': Percent,
	'(': LParen,
	')': RParen,
	',': Comma,
	'=': Equal,
}

// Tokenize splits s into tokens, skipping ASCII whitespace.
func Tokenize(s string) ([]Token, error) {
	var tokens []Token
	pos := 0
	for pos < len(s) {
		c := s[pos]
		switch {
		case c >= '0' && c <= '9':
			end := pos + 1
			for end < len(s) && s[end] >= '0' && s[end] <= '9' {
				end++
			}
			tokens = append(tokens, Token{Kind: NumLit, Text: s[pos:end], Offset: pos})
			pos = end
		case c == '*':
			if strings.HasPrefix(s[pos:], "**") {
				tokens = append(tokens, Token{Kind: AstAst, Offset: pos})
				pos += 2
			} else {
				tokens = append(tokens, Token{Kind: Ast, Offset: pos})
				pos++
			}
		case isASCIISpace(c):
			pos++
		default:
			if kind, ok := symbols[c]; ok {
				tokens = append(tokens, Token{Kind: kind, Offset: pos})
				pos++
				continue
			}
			r, size := utf8.DecodeRuneInString(s[pos:])
			if !isIdentStart(r) {
				return nil, parseErrorAt(pos, ErrUnexpectedToken)
			}
			end := pos + size
			for end < len(s) {
				r, size := utf8.DecodeRuneInString(s[end:])
				if !isIdentContinue(r) {
					break
				}
				end += size
			}
			tokens = append(tokens, Token{Kind: Ident, Text: s[pos:end], Offset: pos})
			pos = end
		}
	}
	return tokens, nil
}

func isASCIISpace(c byte) bool {
	switch c {
	case ' ', '\t', '\n', '\r', '\f':
		return true
	}
	return false
}

// isIdentStart approximates Unicode XID_Start.
func isIdentStart(r rune) bool {
	if r == utf8.RuneError {
		return false
	}
	return unicode.IsLetter(r) || unicode.Is(unicode.Nl, r)
}

// isIdentContinue approximates Unicode XID_Continue.
func isIdentContinue(r rune) bool {
	if isIdentStart(r) {
		return true
	}
	return unicode.IsDigit(r) ||
		unicode.In(r, unicode.Mn, unicode.Mc, unicode.Nd, unicode.Pc)
}

// tokenStream is a cursor over a token slice. end is the input length,
// used as the offset of end-of-input errors.
type tokenStream struct {
	tokens []Token
	end    int
}

func (ts *tokenStream) peek() (Token, error) {
	if len(ts.tokens) == 0 {
		return Token{}, parseErrorAt(ts.end, ErrUnexpectedEndOfInput)
	}
	return ts.tokens[0], nil
}

func (ts *tokenStream) consume() (Token, error) {
	tok, err := ts.peek()
	if err != nil {
		return Token{}, err
	}
	ts.tokens = ts.tokens[1:]
	return tok, nil
}

func (ts *tokenStream) eof() error {
	if len(ts.tokens) != 0 {
		return parseErrorAt(ts.tokens[0].Offset, ErrUnexpectedToken)
	}
	return nil
}
