package parser

import (
	"fmt"
)

type TokenKind int

const (
	TokenKindKeyword TokenKind = iota
	TokenKindLiteral
	TokenKindQueryField

	TokenKindColon
	TokenKindOpeningParenthesis
	TokenKindClosingParenthesis

	TokenKindEndOfInput
	TokenKindIllegal // Never created by the lexer, reserved for stricter grammars.
)

func (k TokenKind) String() string {
	switch k {
	case TokenKindKeyword:
		return "TokenKindKeyword"
	case TokenKindLiteral:
		return "TokenKindLiteral"
	case TokenKindQueryField:
		return "TokenKindQueryField"
	case TokenKindColon:
		return "TokenKindColon"
	case TokenKindOpeningParenthesis:
		return "TokenKindOpeningParenthesis"
	case TokenKindClosingParenthesis:
		return "TokenKindClosingParenthesis"
	case TokenKindEndOfInput:
		return "TokenKindEndOfInput"
	case TokenKindIllegal:
		return "TokenKindIllegal"
	}
	return fmt.Sprintf("!! INVALID TOKEN KIND %d !!", k)
}

func (k TokenKind) Lexeme() string {
	switch k {
	case TokenKindKeyword:
		return "keyword"
	case TokenKindLiteral:
		return "literal"
	case TokenKindQueryField:
		return "query field"
	case TokenKindColon:
		return ":"
	case TokenKindOpeningParenthesis:
		return "("
	case TokenKindClosingParenthesis:
		return ")"
	case TokenKindEndOfInput:
		return "end of input"
	case TokenKindIllegal:
		return "ILLEGAL"
	}
	return fmt.Sprintf("!! INVALID TOKEN KIND %d !!", k)
}

// Token is one classified piece of a query string. Start and End form the half-open rune span of the token within the
// query, including any quote characters around a literal.
type Token struct {
	Kind  TokenKind
	Data  string // Empty for punctuation and the end-of-input token.
	Start int
	End   int
}

// text returns what should be shown to a user when talking about this token.
func (t *Token) text() string {
	if t.Data != "" {
		return t.Data
	}
	return t.Kind.Lexeme()
}

func (t *Token) isKeyword(keyword string) bool {
	return t.Kind == TokenKindKeyword && t.Data == keyword
}
