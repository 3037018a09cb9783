package library

import (
	"context"
	"github.com/hauke96/sigolo/v2"
	"github.com/pkg/errors"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"sync"
	"tagsearch/query"
	"time"
)

// MemoryLibrary keeps all entries and tags in maps. It has an internal locking mechanism and can be used in concurrent
// goroutines.
type MemoryLibrary struct {
	entries map[int]*Entry
	tags    map[int]*Tag

	tagsByName  map[string][]int // Helper map: lower case name or alias -> tag IDs
	childTagIDs map[int][]int    // Helper map: parent tag ID -> IDs of its direct children

	nextEntryID int
	nextTagID   int
	mutex       *sync.RWMutex
}

func NewMemoryLibrary() *MemoryLibrary {
	return &MemoryLibrary{
		entries:     map[int]*Entry{},
		tags:        map[int]*Tag{},
		tagsByName:  map[string][]int{},
		childTagIDs: map[int][]int{},
		nextEntryID: 1,
		nextTagID:   1,
		mutex:       &sync.RWMutex{},
	}
}

func (l *MemoryLibrary) AddTag(ctx context.Context, tag *Tag) (*Tag, error) {
	l.mutex.Lock()
	defer l.mutex.Unlock()

	if tag.Name == "" {
		return nil, errors.New("Tag name must not be empty")
	}
	if tag.ID == 0 {
		tag.ID = l.nextTagID
	}
	if _, exists := l.tags[tag.ID]; exists {
		return nil, errors.Errorf("Tag with ID %d already exists", tag.ID)
	}
	for _, parentID := range tag.ParentIDs {
		if _, exists := l.tags[parentID]; !exists {
			return nil, errors.Errorf("Parent tag %d of tag '%s' does not exist", parentID, tag.Name)
		}
	}

	l.tags[tag.ID] = tag
	for _, name := range tag.Names() {
		key := strings.ToLower(name)
		l.tagsByName[key] = append(l.tagsByName[key], tag.ID)
	}
	for _, parentID := range tag.ParentIDs {
		l.childTagIDs[parentID] = append(l.childTagIDs[parentID], tag.ID)
	}
	if tag.ID >= l.nextTagID {
		l.nextTagID = tag.ID + 1
	}

	return tag, nil
}

func (l *MemoryLibrary) AddEntry(ctx context.Context, entry *Entry) (*Entry, error) {
	l.mutex.Lock()
	defer l.mutex.Unlock()

	if entry.ID == 0 {
		entry.ID = l.nextEntryID
	}
	if _, exists := l.entries[entry.ID]; exists {
		return nil, errors.Errorf("Entry with ID %d already exists", entry.ID)
	}
	for _, existingEntry := range l.entries {
		if existingEntry.Path == entry.Path {
			return nil, errors.Errorf("Entry with path '%s' already exists", entry.Path)
		}
	}
	for _, tagID := range entry.TagIDs {
		if _, exists := l.tags[tagID]; !exists {
			return nil, errors.Errorf("Tag %d of entry '%s' does not exist", tagID, entry.Path)
		}
	}

	l.entries[entry.ID] = entry
	if entry.ID >= l.nextEntryID {
		l.nextEntryID = entry.ID + 1
	}

	return entry, nil
}

func (l *MemoryLibrary) Tags(ctx context.Context) ([]*Tag, error) {
	l.mutex.RLock()
	defer l.mutex.RUnlock()

	tags := make([]*Tag, 0, len(l.tags))
	for _, tag := range l.tags {
		tags = append(tags, tag)
	}
	sort.Slice(tags, func(i, j int) bool {
		return tags[i].ID < tags[j].ID
	})
	return tags, nil
}

func (l *MemoryLibrary) Search(ctx context.Context, node query.Node) ([]*Entry, error) {
	l.mutex.RLock()
	defer l.mutex.RUnlock()

	sigolo.Debug("Start search in memory library")
	searchStartTime := time.Now()

	var ids idSet
	if node == nil {
		ids = l.universe()
	} else {
		var err error
		ids, err = query.Visit[idSet](&memoryEvaluator{library: l}, node)
		if err != nil {
			return nil, err
		}
	}

	result := make([]*Entry, 0, len(ids))
	for id := range ids {
		result = append(result, l.entries[id])
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].ID < result[j].ID
	})

	sigolo.Debugf("Found %d entries in %s", len(result), time.Since(searchStartTime))
	return result, nil
}

func (l *MemoryLibrary) Close() error {
	return nil
}

func (l *MemoryLibrary) universe() idSet {
	ids := idSet{}
	for id := range l.entries {
		ids[id] = struct{}{}
	}
	return ids
}

// tagWithDescendants returns the given tag IDs together with the IDs of all their (transitive) child tags.
func (l *MemoryLibrary) tagWithDescendants(tagIDs []int) idSet {
	result := idSet{}
	queue := append([]int{}, tagIDs...)
	for len(queue) > 0 {
		tagID := queue[0]
		queue = queue[1:]
		if _, seen := result[tagID]; seen {
			continue
		}
		result[tagID] = struct{}{}
		queue = append(queue, l.childTagIDs[tagID]...)
	}
	return result
}

// entriesWhere returns the IDs of all entries fulfilling the given predicate.
func (l *MemoryLibrary) entriesWhere(predicate func(entry *Entry) bool) idSet {
	result := idSet{}
	for id, entry := range l.entries {
		if predicate(entry) {
			result[id] = struct{}{}
		}
	}
	return result
}

func (l *MemoryLibrary) entriesWithAnyTag(tagIDs idSet) idSet {
	return l.entriesWhere(func(entry *Entry) bool {
		for _, tagID := range entry.TagIDs {
			if _, ok := tagIDs[tagID]; ok {
				return true
			}
		}
		return false
	})
}

type idSet map[int]struct{}

func (s idSet) intersect(other idSet) idSet {
	result := idSet{}
	for id := range s {
		if _, ok := other[id]; ok {
			result[id] = struct{}{}
		}
	}
	return result
}

func (s idSet) union(other idSet) idSet {
	result := idSet{}
	for id := range s {
		result[id] = struct{}{}
	}
	for id := range other {
		result[id] = struct{}{}
	}
	return result
}

func (s idSet) without(other idSet) idSet {
	result := idSet{}
	for id := range s {
		if _, ok := other[id]; !ok {
			result[id] = struct{}{}
		}
	}
	return result
}

// memoryEvaluator turns each node into the set of matching entry IDs. The caller must hold the read lock.
type memoryEvaluator struct {
	library *MemoryLibrary
}

func (e *memoryEvaluator) VisitANDList(list *query.ANDList) (idSet, error) {
	var result idSet
	for i, term := range list.Terms {
		termResult, err := query.Visit[idSet](e, term)
		if err != nil {
			return nil, err
		}
		if i == 0 {
			result = termResult
		} else {
			result = result.intersect(termResult)
		}
	}
	return result, nil
}

func (e *memoryEvaluator) VisitORList(list *query.ORList) (idSet, error) {
	result := idSet{}
	for _, element := range list.Elements {
		elementResult, err := query.Visit[idSet](e, element)
		if err != nil {
			return nil, err
		}
		result = result.union(elementResult)
	}
	return result, nil
}

func (e *memoryEvaluator) VisitNot(not *query.Not) (idSet, error) {
	childResult, err := query.Visit[idSet](e, not.Child)
	if err != nil {
		return nil, err
	}
	return e.library.universe().without(childResult), nil
}

func (e *memoryEvaluator) VisitProperty(property *query.Property) (idSet, error) {
	return nil, errors.Errorf("Unsupported property '%s=%s'", property.Key, property.Value)
}

func (e *memoryEvaluator) VisitConstraint(constraint *query.Constraint) (idSet, error) {
	for _, property := range constraint.Properties {
		if _, err := query.Visit[idSet](e, property); err != nil {
			return nil, err
		}
	}

	l := e.library
	value := constraint.Value

	if constraint.Implicit {
		pattern, err := globToRegexp(pathPattern(value))
		if err != nil {
			return nil, err
		}
		fileType := normalizeFileType(value)
		return e.tagsByName(value).union(l.entriesWhere(func(entry *Entry) bool {
			return pattern.MatchString(entry.Path) || entry.FileType == fileType
		})), nil
	}

	switch constraint.Type {
	case query.ConstraintTypeTag:
		return e.tagsByName(value), nil
	case query.ConstraintTypeTagID:
		tagID, err := strconv.Atoi(value)
		if err != nil {
			return nil, errors.Wrapf(err, "Invalid tag ID '%s'", value)
		}
		return l.entriesWithAnyTag(l.tagWithDescendants([]int{tagID})), nil
	case query.ConstraintTypeMediaType:
		mediaType := strings.ToLower(value)
		return l.entriesWhere(func(entry *Entry) bool {
			return entry.MediaType == mediaType
		}), nil
	case query.ConstraintTypeFileType:
		fileType := normalizeFileType(value)
		return l.entriesWhere(func(entry *Entry) bool {
			return entry.FileType == fileType
		}), nil
	case query.ConstraintTypePath:
		pattern, err := globToRegexp(pathPattern(value))
		if err != nil {
			return nil, err
		}
		return l.entriesWhere(func(entry *Entry) bool {
			return pattern.MatchString(entry.Path)
		}), nil
	case query.ConstraintTypeSpecial:
		switch strings.ToLower(value) {
		case specialUntagged:
			return l.entriesWhere(func(entry *Entry) bool {
				return len(entry.TagIDs) == 0
			}), nil
		}
		return nil, errors.Errorf("Unknown special constraint '%s'", value)
	}

	return nil, errors.Errorf("Constraint type %s not supported", constraint.Type.String())
}

func (e *memoryEvaluator) tagsByName(name string) idSet {
	tagIDs := e.library.tagsByName[strings.ToLower(name)]
	return e.library.entriesWithAnyTag(e.library.tagWithDescendants(tagIDs))
}

// globToRegexp converts a glob pattern into an anchored regular expression. A "*" matches any sequence of characters
// including "/" and a "?" matches exactly one character.
func globToRegexp(pattern string) (*regexp.Regexp, error) {
	var sb strings.Builder
	sb.WriteString("(?s)^")
	for _, r := range pattern {
		switch r {
		case '*':
			sb.WriteString(".*")
		case '?':
			sb.WriteString(".")
		default:
			sb.WriteString(regexp.QuoteMeta(string(r)))
		}
	}
	sb.WriteString("$")

	compiled, err := regexp.Compile(sb.String())
	if err != nil {
		return nil, errors.Wrapf(err, "Invalid path pattern '%s'", pattern)
	}
	return compiled, nil
}
