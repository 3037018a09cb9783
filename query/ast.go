package query

// Node is one element of a parsed query. The set of implementations is closed: ANDList, ORList, Constraint, Property
// and Not. Consumers traverse nodes with a Visitor instead of inspecting their type.
//
// Nodes are immutable once created and can therefore be shared between goroutines.
type Node interface {
	// Parent returns the node owning this node or nil for the root. It's only meant for error context.
	Parent() Node

	setParent(parent Node)
}

type baseNode struct {
	parent Node
}

func (n *baseNode) Parent() Node {
	return n.parent
}

func (n *baseNode) setParent(parent Node) {
	n.parent = parent
}

// ANDList holds when all of its terms hold. It always has at least two terms when created by the parser.
type ANDList struct {
	baseNode
	Terms []Node
}

func NewANDList(terms ...Node) *ANDList {
	list := &ANDList{Terms: terms}
	for _, term := range terms {
		term.setParent(list)
	}
	return list
}

// ORList holds when at least one of its elements holds. It always has at least two elements when created by the
// parser.
type ORList struct {
	baseNode
	Elements []Node
}

func NewORList(elements ...Node) *ORList {
	list := &ORList{Elements: elements}
	for _, element := range elements {
		element.setParent(list)
	}
	return list
}

// Constraint is a single predicate like "tag:green". Implicit constraints come from bare literals without query
// field, they have the type ConstraintTypeTag but evaluators match them against tags, paths and file types.
type Constraint struct {
	baseNode
	Type       ConstraintType
	Value      string
	Implicit   bool
	Properties []*Property
}

func NewConstraint(constraintType ConstraintType, value string, properties ...*Property) *Constraint {
	constraint := &Constraint{
		Type:       constraintType,
		Value:      value,
		Properties: properties,
	}
	for _, property := range properties {
		property.setParent(constraint)
	}
	return constraint
}

func NewImplicitConstraint(value string) *Constraint {
	constraint := NewConstraint(ConstraintTypeTag, value)
	constraint.Implicit = true
	return constraint
}

// Property refines a constraint with a key/value modifier.
type Property struct {
	baseNode
	Key   string
	Value string
}

func NewProperty(key string, value string) *Property {
	return &Property{Key: key, Value: value}
}

// Not negates its child.
type Not struct {
	baseNode
	Child Node
}

func NewNot(child Node) *Not {
	not := &Not{Child: child}
	child.setParent(not)
	return not
}
