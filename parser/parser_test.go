package parser

import (
	"github.com/hauke96/sigolo/v2"
	"strings"
	"tagsearch/query"
	"tagsearch/util"
	"testing"
)

// treeVisitor renders a tree as nested function calls like "OR(AND(a,b),c)", which shows the grouping explicitly.
type treeVisitor struct{}

func (v treeVisitor) join(name string, nodes []query.Node) (string, error) {
	children, err := query.VisitAll[string](v, nodes)
	if err != nil {
		return "", err
	}
	return name + "(" + strings.Join(children, ",") + ")", nil
}

func (v treeVisitor) VisitANDList(list *query.ANDList) (string, error) {
	return v.join("AND", list.Terms)
}

func (v treeVisitor) VisitORList(list *query.ORList) (string, error) {
	return v.join("OR", list.Elements)
}

func (v treeVisitor) VisitConstraint(constraint *query.Constraint) (string, error) {
	if constraint.Implicit {
		return constraint.Value, nil
	}
	return constraint.Type.String() + "=" + constraint.Value, nil
}

func (v treeVisitor) VisitProperty(property *query.Property) (string, error) {
	return property.Key + "=" + property.Value, nil
}

func (v treeVisitor) VisitNot(not *query.Not) (string, error) {
	return v.join("NOT", []query.Node{not.Child})
}

func parseToTree(t *testing.T, queryString string) string {
	node, err := ParseQueryString(queryString)
	util.AssertNil(t, err)
	util.AssertNotNil(t, node)
	if node == nil {
		return ""
	}
	tree, err := query.Visit[string](treeVisitor{}, node)
	util.AssertNil(t, err)
	return tree
}

func assertParsingError(t *testing.T, queryString string, expectedStart int, expectedEnd int) *ParsingError {
	node, err := ParseQueryString(queryString)
	util.AssertNil(t, node)
	util.AssertNotNil(t, err)

	parsingError := AsParsingError(err)
	util.AssertNotNil(t, parsingError)
	if parsingError == nil {
		return nil
	}
	util.AssertEqual(t, expectedStart, parsingError.Start)
	util.AssertEqual(t, expectedEnd, parsingError.End)
	util.AssertMatch(t, "^Syntax Error: ", parsingError.Error())
	return parsingError
}

func TestParser_currentAndNextToken(t *testing.T) {
	// Arrange
	sigolo.SetDefaultLogLevel(sigolo.LOG_TRACE)
	parser := &Parser{
		lexer: NewLexer("tag:green"),
	}

	// Act & Assert
	token := parser.moveToNextToken()
	util.AssertEqual(t, &Token{Kind: TokenKindQueryField, Data: "tag", Start: 0, End: 3}, token)
	util.AssertEqual(t, token, parser.currentToken())

	token = parser.moveToNextToken()
	util.AssertEqual(t, TokenKindColon, token.Kind)

	token = parser.moveToNextToken()
	util.AssertEqual(t, TokenKindLiteral, token.Kind)

	token = parser.moveToNextToken()
	util.AssertEqual(t, TokenKindEndOfInput, token.Kind)
}

func TestParser_parseFieldConstraint(t *testing.T) {
	// Arrange
	sigolo.SetDefaultLogLevel(sigolo.LOG_TRACE)
	parser := &Parser{
		lexer: NewLexer("tag_id:5 foo"),
	}
	parser.moveToNextToken()

	// Act
	node, err := parser.parseFieldConstraint()

	// Assert
	util.AssertNil(t, err)
	constraint, isConstraint := node.(*query.Constraint)
	util.AssertTrue(t, isConstraint)
	util.AssertEqual(t, query.ConstraintTypeTagID, constraint.Type)
	util.AssertEqual(t, "5", constraint.Value)
	util.AssertFalse(t, constraint.Implicit)
	util.AssertEqual(t, 0, len(constraint.Properties))
	util.AssertEqual(t, "foo", parser.currentToken().Data)
}

func TestParser_bareLiteral(t *testing.T) {
	// Arrange
	sigolo.SetDefaultLogLevel(sigolo.LOG_TRACE)

	// Act
	node, err := ParseQueryString("circle")

	// Assert
	util.AssertNil(t, err)
	constraint, isConstraint := node.(*query.Constraint)
	util.AssertTrue(t, isConstraint)
	util.AssertEqual(t, query.ConstraintTypeTag, constraint.Type)
	util.AssertEqual(t, "circle", constraint.Value)
	util.AssertTrue(t, constraint.Implicit)
	util.AssertNil(t, constraint.Parent())
}

func TestParser_emptyQueryMatchesEverything(t *testing.T) {
	for _, q := range []string{"", "   ", "\t\n"} {
		node, err := ParseQueryString(q)
		util.AssertNil(t, err)
		util.AssertNil(t, node)
	}
}

func TestParser_implicitAnd(t *testing.T) {
	util.AssertEqual(t, "AND(circle,square)", parseToTree(t, "circle square"))
	util.AssertEqual(t, parseToTree(t, "circle AND square"), parseToTree(t, "circle square"))
	util.AssertEqual(t, "AND(a,b,c)", parseToTree(t, "a b AND c"))
}

func TestParser_keywordsAreCaseInsensitive(t *testing.T) {
	expected := parseToTree(t, "circle AND square")
	util.AssertEqual(t, expected, parseToTree(t, "circle aND square"))
	util.AssertEqual(t, expected, parseToTree(t, "circle and square"))
	util.AssertEqual(t, "OR(circle,square)", parseToTree(t, "circle or square"))
}

func TestParser_precedence(t *testing.T) {
	// Arrange
	sigolo.SetDefaultLogLevel(sigolo.LOG_TRACE)

	// Act
	node, err := ParseQueryString("a b OR c")

	// Assert
	util.AssertNil(t, err)
	orList, isOrList := node.(*query.ORList)
	util.AssertTrue(t, isOrList)
	util.AssertEqual(t, 2, len(orList.Elements))
	andList, isAndList := orList.Elements[0].(*query.ANDList)
	util.AssertTrue(t, isAndList)
	util.AssertEqual(t, 2, len(andList.Terms))
	util.AssertEqual(t, "OR(AND(a,b),c)", parseToTree(t, "a b OR c"))
	util.AssertEqual(t, "OR(a,AND(b,c))", parseToTree(t, "a OR b AND c"))
}

func TestParser_notBindsToNextTerm(t *testing.T) {
	util.AssertEqual(t, "AND(NOT(a),b)", parseToTree(t, "NOT a b"))
	util.AssertEqual(t, "NOT(NOT(path=*))", parseToTree(t, "NOT NOT path:*"))
	util.AssertEqual(t, "OR(NOT(a),b)", parseToTree(t, "not a or b"))
}

func TestParser_parentheses(t *testing.T) {
	util.AssertEqual(t, "AND(a,OR(b,c))", parseToTree(t, "a (b OR c)"))
	util.AssertEqual(t, "NOT(OR(square,green))", parseToTree(t, "(not ((square) OR (green)))"))
	util.AssertEqual(t, "AND(OR(a,b),OR(c,d))", parseToTree(t, "(a OR b) AND (c OR d)"))
}

func TestParser_redundantParenthesesAreCollapsed(t *testing.T) {
	util.AssertEqual(t, parseToTree(t, "tag_id:5"), parseToTree(t, "(((tag_id:5)))"))
	util.AssertEqual(t, "tag_id=5", parseToTree(t, "(((tag_id:5)))"))
}

func TestParser_allQueryFields(t *testing.T) {
	util.AssertEqual(t,
		"AND(tag=green,tag_id=12,mediatype=image,filetype=png,path=photos/*,special=untagged)",
		parseToTree(t, `tag:green tag_id:12 mediatype:image filetype:png path:"photos/*" special:untagged`))
}

func TestParser_quotedLiteralKeepsSpaces(t *testing.T) {
	util.AssertEqual(t, "AND(tag=red apple,pie)", parseToTree(t, `tag:"red apple" pie`))
}

func TestParser_parentPointers(t *testing.T) {
	// Arrange
	sigolo.SetDefaultLogLevel(sigolo.LOG_TRACE)

	// Act
	node, err := ParseQueryString("a OR NOT b")

	// Assert
	util.AssertNil(t, err)
	orList := node.(*query.ORList)
	util.AssertNil(t, orList.Parent())
	util.AssertTrue(t, orList.Elements[0].Parent() == query.Node(orList))
	not := orList.Elements[1].(*query.Not)
	util.AssertTrue(t, not.Parent() == query.Node(orList))
	util.AssertTrue(t, not.Child.Parent() == query.Node(not))
}

func TestParser_formatRoundTrip(t *testing.T) {
	for _, q := range []string{
		"circle AND square",
		"(a OR b) AND NOT (c OR d)",
		`tag:"red apple" OR path:"*.png"`,
		"NOT NOT path:*",
		`"AND" OR 'tag'`,
	} {
		node, err := ParseQueryString(q)
		util.AssertNil(t, err)

		reparsed, err := ParseQueryString(query.Format(node))
		util.AssertNil(t, err)
		util.AssertEqual(t, query.Format(node), query.Format(reparsed))
	}
}

func TestParser_formatRoundTripKeepsValue(t *testing.T) {
	for _, value := range []string{`a'"`, `"it's"`, `x"'y`, `''""`, "red apple", "AND", "tag"} {
		// Arrange
		formatted := query.Format(query.NewConstraint(query.ConstraintTypeTag, value))

		// Act
		node, err := ParseQueryString(formatted)

		// Assert
		util.AssertNil(t, err)
		constraint := node.(*query.Constraint)
		util.AssertEqual(t, query.ConstraintTypeTag, constraint.Type)
		util.AssertEqual(t, value, constraint.Value)
	}
}

func TestParser_errorTrailingAnd(t *testing.T) {
	err := assertParsingError(t, "asd AND", 4, 7)
	util.AssertMatch(t, "'AND'", err.Message)
}

func TestParser_errorTrailingOrAndNot(t *testing.T) {
	assertParsingError(t, "asd OR", 4, 6)
	assertParsingError(t, "asd NOT", 4, 7)
	assertParsingError(t, "NOT", 0, 3)
}

func TestParser_errorFieldWithGroup(t *testing.T) {
	// The colon is the offending token since a literal has to follow it.
	assertParsingError(t, "tag:(", 3, 4)
	assertParsingError(t, "tag:(green)", 3, 4)
}

func TestParser_errorUnterminatedParenthesis(t *testing.T) {
	assertParsingError(t, "(asd", 0, 4)
	assertParsingError(t, "a (b (c)", 2, 8)
	assertParsingError(t, "(", 0, 1)
}

func TestParser_errorStrayClosingParenthesis(t *testing.T) {
	assertParsingError(t, "a)", 1, 2)
	assertParsingError(t, ")", 0, 1)
	assertParsingError(t, "()", 1, 2)
}

func TestParser_errorColon(t *testing.T) {
	assertParsingError(t, ":", 0, 1)
	// "foo" is no query field, so the colon has no field before it.
	assertParsingError(t, "foo:bar", 3, 4)
}

func TestParser_errorFieldWithoutColon(t *testing.T) {
	assertParsingError(t, "tag green", 0, 3)
	assertParsingError(t, "path", 0, 4)
}

func TestParser_errorFieldWithoutValue(t *testing.T) {
	assertParsingError(t, "tag:", 3, 4)
	assertParsingError(t, "tag: AND", 3, 4)
}

func TestParser_errorEmptyLiteral(t *testing.T) {
	assertParsingError(t, `""`, 0, 2)
	assertParsingError(t, `tag:''`, 4, 6)
}

func TestParser_errorOperatorWithoutOperand(t *testing.T) {
	assertParsingError(t, "AND a", 0, 3)
	assertParsingError(t, "a AND OR b", 6, 8)
	assertParsingError(t, "a OR", 2, 4)
}
