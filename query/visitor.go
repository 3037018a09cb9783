package query

import (
	"tagsearch/util"
)

// Visitor interprets a query tree. T is the result type chosen by the implementation, e.g. a set of entry IDs for an
// evaluator or a string for a formatter. Implementations call Visit on child nodes themselves, which allows them to
// decide on the traversal order and on early exits.
type Visitor[T any] interface {
	VisitANDList(list *ANDList) (T, error)
	VisitORList(list *ORList) (T, error)
	VisitConstraint(constraint *Constraint) (T, error)
	VisitProperty(property *Property) (T, error)
	VisitNot(not *Not) (T, error)
}

// Visit calls the method of the visitor matching the given node.
func Visit[T any](visitor Visitor[T], node Node) (T, error) {
	switch n := node.(type) {
	case *ANDList:
		return visitor.VisitANDList(n)
	case *ORList:
		return visitor.VisitORList(n)
	case *Constraint:
		return visitor.VisitConstraint(n)
	case *Property:
		return visitor.VisitProperty(n)
	case *Not:
		return visitor.VisitNot(n)
	}

	// Node is a closed interface, so this can only happen for nil or a forgotten case above.
	util.LogFatalBug("Visit called with unsupported node %#v", node)
	var zero T
	return zero, nil
}

// VisitAll visits the given nodes in order and stops at the first error.
func VisitAll[T any](visitor Visitor[T], nodes []Node) ([]T, error) {
	results := make([]T, 0, len(nodes))
	for _, node := range nodes {
		result, err := Visit(visitor, node)
		if err != nil {
			return nil, err
		}
		results = append(results, result)
	}
	return results, nil
}
