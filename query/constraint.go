package query

import (
	"fmt"
	"strings"
)

type ConstraintType int

const (
	ConstraintTypeTag ConstraintType = iota
	ConstraintTypeTagID
	ConstraintTypeMediaType
	ConstraintTypeFileType
	ConstraintTypePath
	ConstraintTypeSpecial
)

var constraintTypeNames = map[string]ConstraintType{
	"tag":       ConstraintTypeTag,
	"tag_id":    ConstraintTypeTagID,
	"mediatype": ConstraintTypeMediaType,
	"filetype":  ConstraintTypeFileType,
	"path":      ConstraintTypePath,
	"special":   ConstraintTypeSpecial,
}

// ParseConstraintType maps a query field name like "tag_id" to its constraint type. The lookup is case-insensitive.
// The boolean is false for unknown names.
func ParseConstraintType(name string) (ConstraintType, bool) {
	constraintType, ok := constraintTypeNames[strings.ToLower(name)]
	return constraintType, ok
}

// String returns the query field name of this type, so ParseConstraintType(t.String()) == t.
func (t ConstraintType) String() string {
	switch t {
	case ConstraintTypeTag:
		return "tag"
	case ConstraintTypeTagID:
		return "tag_id"
	case ConstraintTypeMediaType:
		return "mediatype"
	case ConstraintTypeFileType:
		return "filetype"
	case ConstraintTypePath:
		return "path"
	case ConstraintTypeSpecial:
		return "special"
	}
	return fmt.Sprintf("[!UNKNOWN ConstraintType %d]", t)
}
