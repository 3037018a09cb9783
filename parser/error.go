package parser

import (
	"fmt"
	"github.com/pkg/errors"
	"runtime"
	"strings"
)

type stack *[]uintptr

// getCurrentStack creates a new stack without the last three frames, because they are from the internal calls (e.g. to
// this function) and therefore irrelevant to the function creating the error.
func getCurrentStack() stack {
	const depth = 32
	var pcs [depth]uintptr
	n := runtime.Callers(3, pcs[:])
	var st = pcs[0:n]
	return &st
}

func getPrintableStackTrace(stack stack) string {
	var sb strings.Builder

	for _, pc := range *stack {
		f := runtime.FuncForPC(pc)
		file, line := f.FileLine(pc)
		sb.WriteString(fmt.Sprintf("%s\n\t%s:%d\n", f.Name(), file, line))
	}

	return sb.String()
}

// ParsingError is the only error the parser produces. Start and End are the half-open rune span of the offending part
// of the query, so a caller can underline query[Start:End].
type ParsingError struct {
	Start   int    `json:"start"`
	End     int    `json:"end"`
	Message string `json:"message"`
	stack   stack
}

func newParsingError(start int, end int, format string, args ...any) *ParsingError {
	return &ParsingError{
		Start:   start,
		End:     end,
		Message: "Syntax Error: " + fmt.Sprintf(format, args...),
		stack:   getCurrentStack(),
	}
}

// ParsingErrorExpectedButFound models a typical "Expected foo but found bar" kind of error.
func ParsingErrorExpectedButFound(expectedMessage string, token *Token) *ParsingError {
	return newParsingError(token.Start, token.End, "Expected %s at position %d but found '%s' of kind %s.", expectedMessage, token.Start, token.text(), token.Kind.String())
}

// ParsingErrorExpectedTokenKind models a "Expected ':' but found ..." kind of error for a specific wanted token kind.
// The span is the one of the given context token, which is the token that needed the missing one.
func ParsingErrorExpectedTokenKind(expectedKind TokenKind, contextToken *Token, currentToken *Token) *ParsingError {
	return newParsingError(contextToken.Start, contextToken.End, "Expected '%s' (%s) after '%s' at position %d but found '%s' of kind %s.", expectedKind.Lexeme(), expectedKind.String(), contextToken.text(), currentToken.Start, currentToken.text(), currentToken.Kind.String())
}

// ParsingErrorMissingOperand is used when the query ended right after an operator like AND or NOT.
func ParsingErrorMissingOperand(operatorToken *Token) *ParsingError {
	return newParsingError(operatorToken.Start, operatorToken.End, "Query ended at position %d, expected expression after '%s'.", operatorToken.End, operatorToken.text())
}

// ParsingErrorUnterminatedParenthesis spans from the opening parenthesis to the end of the query.
func ParsingErrorUnterminatedParenthesis(openingToken *Token, endToken *Token) *ParsingError {
	return newParsingError(openingToken.Start, endToken.End, "Parenthesis opened at position %d is never closed.", openingToken.Start)
}

// ParsingErrorEmptyLiteral is used for literals like "" which would result in an empty constraint value.
func ParsingErrorEmptyLiteral(token *Token) *ParsingError {
	return newParsingError(token.Start, token.End, "Empty literal at position %d.", token.Start)
}

func (e *ParsingError) Format(s fmt.State, verb rune) {
	switch verb {
	case 'v':
		fmt.Fprintf(s, "%s\n%s", e.Error(), getPrintableStackTrace(e.stack))
	case 's':
		fmt.Fprintf(s, "%s", e.Error())
	}
}

func (e *ParsingError) Error() string {
	return e.Message
}

// AsParsingError returns the parsing error within the given error chain or nil if there is none.
func AsParsingError(err error) *ParsingError {
	var parsingError *ParsingError
	if errors.As(err, &parsingError) {
		return parsingError
	}
	return nil
}
