package query

import (
	"fmt"
	"github.com/hauke96/sigolo/v2"
	"strings"
)

// Format returns the canonical query string of the given tree. Two trees are structurally equal exactly when their
// formatted strings are equal. A nil node (the empty query) is formatted as empty string.
func Format(node Node) string {
	if node == nil {
		return ""
	}
	formatted, _ := Visit[string](formatter{}, node)
	return formatted
}

type formatter struct{}

func (f formatter) VisitANDList(list *ANDList) (string, error) {
	terms, err := VisitAll[string](f, list.Terms)
	if err != nil {
		return "", err
	}
	for i, term := range list.Terms {
		if _, isOrList := term.(*ORList); isOrList {
			terms[i] = "(" + terms[i] + ")"
		}
	}
	return strings.Join(terms, " AND "), nil
}

func (f formatter) VisitORList(list *ORList) (string, error) {
	elements, err := VisitAll[string](f, list.Elements)
	if err != nil {
		return "", err
	}
	return strings.Join(elements, " OR "), nil
}

func (f formatter) VisitConstraint(constraint *Constraint) (string, error) {
	var sb strings.Builder

	if !constraint.Implicit {
		sb.WriteString(constraint.Type.String())
		sb.WriteString(":")
	}
	sb.WriteString(quoteIfNeeded(constraint.Value))

	if len(constraint.Properties) > 0 {
		properties := make([]string, len(constraint.Properties))
		for i, property := range constraint.Properties {
			formattedProperty, err := f.VisitProperty(property)
			if err != nil {
				return "", err
			}
			properties[i] = formattedProperty
		}
		sb.WriteString("[" + strings.Join(properties, ", ") + "]")
	}

	return sb.String(), nil
}

func (f formatter) VisitProperty(property *Property) (string, error) {
	return quoteIfNeeded(property.Key) + "=" + quoteIfNeeded(property.Value), nil
}

func (f formatter) VisitNot(not *Not) (string, error) {
	child, err := Visit[string](f, not.Child)
	if err != nil {
		return "", err
	}
	switch not.Child.(type) {
	case *ANDList, *ORList:
		child = "(" + child + ")"
	}
	return "NOT " + child, nil
}

// quoteIfNeeded wraps the value in quotes when it would otherwise not be read back as one single literal.
func quoteIfNeeded(value string) string {
	needsQuotes := value == ""
	for _, r := range value {
		isPlain := r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r >= '0' && r <= '9' || r == '_' || r == '/' || r == '*'
		if !isPlain {
			needsQuotes = true
			break
		}
	}

	switch strings.ToUpper(value) {
	case "AND", "OR", "NOT":
		needsQuotes = true
	}
	if _, isQueryField := ParseConstraintType(value); isQueryField {
		needsQuotes = true
	}

	if !needsQuotes {
		return value
	}
	if !strings.Contains(value, `"`) {
		return `"` + value + `"`
	}
	if !strings.Contains(value, "'") {
		return "'" + value + "'"
	}

	// Both quote characters occur: adjacent quoted runs are read as one literal, so each run uses the quote character
	// not contained in it.
	var sb strings.Builder
	var quote rune
	for _, r := range value {
		if quote == 0 || r == quote {
			if quote != 0 {
				sb.WriteRune(quote)
			}
			quote = '"'
			if r == '"' {
				quote = '\''
			}
			sb.WriteRune(quote)
		}
		sb.WriteRune(r)
	}
	sb.WriteRune(quote)
	return sb.String()
}

// Print logs the tree on debug level, one node per line.
func Print(node Node) {
	if sigolo.GetCurrentLogLevel() > sigolo.LOG_DEBUG {
		return
	}
	if node == nil {
		sigolo.Debug("<empty query>")
		return
	}
	_, _ = Visit[struct{}](&printer{}, node)
}

type printer struct {
	indent int
}

func (p *printer) line(text string, children ...Node) (struct{}, error) {
	sigolo.Debugf("%s%s", strings.Repeat(" ", p.indent), text)
	p.indent += 2
	_, err := VisitAll[struct{}](p, children)
	p.indent -= 2
	return struct{}{}, err
}

func (p *printer) VisitANDList(list *ANDList) (struct{}, error) {
	return p.line("AND", list.Terms...)
}

func (p *printer) VisitORList(list *ORList) (struct{}, error) {
	return p.line("OR", list.Elements...)
}

func (p *printer) VisitConstraint(constraint *Constraint) (struct{}, error) {
	properties := make([]Node, len(constraint.Properties))
	for i, property := range constraint.Properties {
		properties[i] = property
	}
	if constraint.Implicit {
		return p.line(fmt.Sprintf("Constraint: %q (implicit)", constraint.Value), properties...)
	}
	return p.line(fmt.Sprintf("Constraint: %s=%q", constraint.Type.String(), constraint.Value), properties...)
}

func (p *printer) VisitProperty(property *Property) (struct{}, error) {
	return p.line("Property: " + property.Key + "=" + property.Value)
}

func (p *printer) VisitNot(not *Not) (struct{}, error) {
	return p.line("NOT", not.Child)
}
