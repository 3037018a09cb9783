package parser

import (
	"fmt"
	"github.com/hauke96/sigolo/v2"
	"strings"
	"tagsearch/common"
	"unicode"
)

// endOfInput is the sentinel returned for every position outside the input.
const endOfInput rune = 0

var (
	keywords    = []string{"AND", "OR", "NOT"}
	queryFields = []string{"mediatype", "filetype", "path", "tag", "tag_id", "special"}
)

// Lexer turns a query string into tokens. It always looks at two characters: the current one and the one after it.
type Lexer struct {
	input           []rune
	currentPosition int
	nextPosition    int
	currentChar     rune
	nextChar        rune
}

func NewLexer(query string) *Lexer {
	l := &Lexer{
		input: []rune(query),
	}
	l.readChar()
	return l
}

// Tokenize returns all tokens of the given query string. The final end-of-input token is not part of the result.
func Tokenize(query string) []*Token {
	l := NewLexer(query)

	var tokens []*Token
	for {
		token := l.nextToken()
		if token.Kind == TokenKindEndOfInput || token.Kind == TokenKindIllegal {
			break
		}
		tokens = append(tokens, token)
	}

	sigolo.Tracef("Found %d token", len(tokens))
	return tokens
}

func (l *Lexer) charAt(position int) rune {
	if position < 0 || position >= len(l.input) {
		return endOfInput
	}
	return l.input[position]
}

// readChar moves the lexer one rune forward. Once the end is reached, the position stays right behind the last rune.
func (l *Lexer) readChar() {
	if l.nextPosition > len(l.input) {
		return
	}
	l.currentPosition = l.nextPosition
	l.nextPosition++
	l.currentChar = l.charAt(l.currentPosition)
	l.nextChar = l.charAt(l.nextPosition)
}

func (l *Lexer) nextToken() *Token {
	for {
		l.skipWhitespace()
		l.tracef("Process next char")

		switch l.currentChar {
		case endOfInput:
			return &Token{
				Kind:  TokenKindEndOfInput,
				Start: l.currentPosition,
				End:   l.currentPosition,
			}
		case ':':
			return l.currentSingleCharToken(TokenKindColon)
		case '(':
			return l.currentSingleCharToken(TokenKindOpeningParenthesis)
		case ')':
			return l.currentSingleCharToken(TokenKindClosingParenthesis)
		}

		if isIdentifierChar(l.currentChar) || isNumericChar(l.currentChar) || isQuoteChar(l.currentChar) {
			return l.currentIdentifierToken()
		}

		// Characters outside the grammar are dropped without producing a token.
		l.tracef("Drop unexpected character")
		l.readChar()
	}
}

func (l *Lexer) skipWhitespace() {
	for l.currentChar != endOfInput && unicode.IsSpace(l.currentChar) {
		l.readChar()
	}
}

func (l *Lexer) currentSingleCharToken(tokenKind TokenKind) *Token {
	token := &Token{
		Kind:  tokenKind,
		Start: l.currentPosition,
		End:   l.currentPosition + 1,
	}
	l.readChar()
	return token
}

// currentIdentifierToken reads the identifier starting at the current position and classifies it as keyword, query
// field or literal. Quoted identifiers are always literals, so "AND" in quotes is no keyword.
func (l *Lexer) currentIdentifierToken() *Token {
	start := l.currentPosition
	data, quoted := l.nextIdentifier()
	token := &Token{
		Kind:  TokenKindLiteral,
		Data:  data,
		Start: start,
		End:   l.currentPosition,
	}

	if !quoted {
		if upper := strings.ToUpper(data); common.Contains(keywords, upper) {
			token.Kind = TokenKindKeyword
			token.Data = upper
		} else if lower := strings.ToLower(data); common.Contains(queryFields, lower) {
			token.Kind = TokenKindQueryField
			token.Data = lower
		}
	}

	l.tracef("Found token kind=%s, start=%d, end=%d, data=%q", token.Kind.String(), token.Start, token.End, token.Data)
	return token
}

// nextIdentifier collects identifier and numeric characters. A quote character starts a literal run in which every
// character is kept until the same quote character appears again. The quote characters themselves are not part of the
// returned string. The boolean is true when at least one quoted run was read.
func (l *Lexer) nextIdentifier() (string, bool) {
	var sb strings.Builder
	var openQuote rune
	quoted := false

	for l.currentChar != endOfInput {
		char := l.currentChar

		if openQuote != 0 {
			if char == openQuote {
				openQuote = 0
			} else {
				sb.WriteRune(char)
			}
			l.readChar()
			continue
		}

		if isQuoteChar(char) {
			openQuote = char
			quoted = true
			l.readChar()
			continue
		}

		if !isIdentifierChar(char) && !isNumericChar(char) {
			break
		}

		sb.WriteRune(char)
		l.readChar()
	}

	return sb.String(), quoted
}

func isIdentifierChar(char rune) bool {
	return char >= 'a' && char <= 'z' ||
		char >= 'A' && char <= 'Z' ||
		char == '_' || char == '"' || char == '/' || char == '*'
}

func isNumericChar(char rune) bool {
	return char >= '0' && char <= '9'
}

func isQuoteChar(char rune) bool {
	return char == '"' || char == '\''
}

func (l *Lexer) tracef(format string, args ...any) {
	if !sigolo.ShouldLogTrace() {
		return
	}
	formattedMessage := format
	if len(args) > 0 {
		formattedMessage = fmt.Sprintf(format, args...)
	}
	sigolo.Traceb(1, "[%d, %q] %s", l.currentPosition, l.currentChar, formattedMessage)
}
