package parser

import (
	"github.com/hauke96/sigolo/v2"
	"tagsearch/query"
)

/*
Grammar:

	query       := or_list
	or_list     := and_list ("OR" and_list)*
	and_list    := unary ("AND"? unary)*
	unary       := "NOT" unary | primary
	primary     := "(" or_list ")" | QUERY_FIELD ":" LITERAL | LITERAL

Lists with a single element are not wrapped, the element is returned directly.
*/

// Parser is a recursive descent parser reading one token at a time from its lexer. A parser is used for exactly one
// query and must not be shared between goroutines.
type Parser struct {
	lexer   *Lexer
	current *Token
}

// ParseQueryString parses the given query. An empty query (or one consisting of whitespace only) results in a nil node
// and no error, which evaluators treat as "match everything". All errors are of type *ParsingError.
func ParseQueryString(queryString string) (query.Node, error) {
	parser := &Parser{
		lexer: NewLexer(queryString),
	}
	parser.moveToNextToken()

	node, err := parser.parse()
	if err != nil {
		sigolo.Debugf("Parsing query %q failed: %s", queryString, err.Error())
		return nil, err
	}

	query.Print(node)
	return node, nil
}

func (p *Parser) currentToken() *Token {
	return p.current
}

func (p *Parser) moveToNextToken() *Token {
	p.current = p.lexer.nextToken()
	sigolo.Traceb(1, "Moved to next token: %+v", p.current)
	return p.current
}

func (p *Parser) parse() (query.Node, error) {
	if p.currentToken().Kind == TokenKindEndOfInput {
		return nil, nil
	}

	node, err := p.parseOrList()
	if err != nil {
		return nil, err
	}

	// Everything that's left, like a ")" without "(", is an error.
	token := p.currentToken()
	if token.Kind != TokenKindEndOfInput {
		return nil, ParsingErrorExpectedButFound("'AND', 'OR' or end of query", token)
	}

	return node, nil
}

func (p *Parser) parseOrList() (query.Node, error) {
	element, err := p.parseAndList()
	if err != nil {
		return nil, err
	}
	elements := []query.Node{element}

	for p.currentToken().isKeyword("OR") {
		operatorToken := p.currentToken()
		if p.moveToNextToken().Kind == TokenKindEndOfInput {
			return nil, ParsingErrorMissingOperand(operatorToken)
		}

		element, err = p.parseAndList()
		if err != nil {
			return nil, err
		}
		elements = append(elements, element)
	}

	if len(elements) == 1 {
		return elements[0], nil
	}
	return query.NewORList(elements...), nil
}

func (p *Parser) parseAndList() (query.Node, error) {
	term, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	terms := []query.Node{term}

	for {
		token := p.currentToken()
		if token.isKeyword("AND") {
			if p.moveToNextToken().Kind == TokenKindEndOfInput {
				return nil, ParsingErrorMissingOperand(token)
			}
		} else if !startsUnary(token) {
			// Neither explicit nor implicit AND
			break
		}

		term, err = p.parseUnary()
		if err != nil {
			return nil, err
		}
		terms = append(terms, term)
	}

	if len(terms) == 1 {
		return terms[0], nil
	}
	return query.NewANDList(terms...), nil
}

// startsUnary returns true for tokens that can be the first token of a unary expression. Two of such expressions next
// to each other are implicitly combined with AND.
func startsUnary(token *Token) bool {
	switch token.Kind {
	case TokenKindLiteral, TokenKindQueryField, TokenKindOpeningParenthesis:
		return true
	case TokenKindKeyword:
		return token.Data == "NOT"
	}
	return false
}

func (p *Parser) parseUnary() (query.Node, error) {
	token := p.currentToken()
	if !token.isKeyword("NOT") {
		return p.parsePrimary()
	}

	if p.moveToNextToken().Kind == TokenKindEndOfInput {
		return nil, ParsingErrorMissingOperand(token)
	}

	child, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	return query.NewNot(child), nil
}

func (p *Parser) parsePrimary() (query.Node, error) {
	token := p.currentToken()

	switch token.Kind {
	case TokenKindOpeningParenthesis:
		return p.parseParenthesizedExpression()
	case TokenKindQueryField:
		return p.parseFieldConstraint()
	case TokenKindLiteral:
		if token.Data == "" {
			return nil, ParsingErrorEmptyLiteral(token)
		}
		p.moveToNextToken()
		return query.NewImplicitConstraint(token.Data), nil
	}

	return nil, ParsingErrorExpectedButFound("expression", token)
}

func (p *Parser) parseParenthesizedExpression() (query.Node, error) {
	openingToken := p.currentToken()

	if p.moveToNextToken().Kind == TokenKindEndOfInput {
		return nil, ParsingErrorUnterminatedParenthesis(openingToken, p.currentToken())
	}

	node, err := p.parseOrList()
	if err != nil {
		return nil, err
	}

	token := p.currentToken()
	switch token.Kind {
	case TokenKindClosingParenthesis:
		p.moveToNextToken()
		return node, nil
	case TokenKindEndOfInput:
		return nil, ParsingErrorUnterminatedParenthesis(openingToken, token)
	}

	return nil, ParsingErrorExpectedButFound("')'", token)
}

// parseFieldConstraint parses expressions like "tag:green". Only literals are allowed as value, a parenthesized group
// like "tag:(green)" is rejected.
func (p *Parser) parseFieldConstraint() (query.Node, error) {
	fieldToken := p.currentToken()
	constraintType, ok := query.ParseConstraintType(fieldToken.Data)
	if !ok {
		return nil, ParsingErrorExpectedButFound("known query field", fieldToken)
	}

	colonToken := p.moveToNextToken()
	if colonToken.Kind != TokenKindColon {
		return nil, ParsingErrorExpectedTokenKind(TokenKindColon, fieldToken, colonToken)
	}

	valueToken := p.moveToNextToken()
	if valueToken.Kind != TokenKindLiteral {
		return nil, ParsingErrorExpectedTokenKind(TokenKindLiteral, colonToken, valueToken)
	}
	if valueToken.Data == "" {
		return nil, ParsingErrorEmptyLiteral(valueToken)
	}

	p.moveToNextToken()
	return query.NewConstraint(constraintType, valueToken.Data), nil
}
