package library

import (
	"context"
	"path"
	"strings"
	"tagsearch/query"
)

// Library stores tagged entries and evaluates parsed queries against them.
type Library interface {
	// AddTag stores the given tag. A tag with ID 0 gets the next free ID. All parent tags must already exist.
	AddTag(ctx context.Context, tag *Tag) (*Tag, error)

	// AddEntry stores the given entry. An entry with ID 0 gets the next free ID. All tags must already exist.
	AddEntry(ctx context.Context, entry *Entry) (*Entry, error)

	// Tags returns all tags ordered by their ID.
	Tags(ctx context.Context) ([]*Tag, error)

	// Search returns all entries matching the given query ordered by their ID. A nil node matches all entries.
	Search(ctx context.Context, node query.Node) ([]*Entry, error)

	Close() error
}

type Entry struct {
	ID        int
	Path      string // Slash separated path relative to the library root.
	FileType  string // Lower case file extension without dot, e.g. "png".
	MediaType string // Category of the file type, e.g. "image".
	TagIDs    []int
}

// NewEntry creates an entry with file and media type derived from the extension of the given path.
func NewEntry(entryPath string, tagIDs ...int) *Entry {
	fileType := strings.ToLower(strings.TrimPrefix(path.Ext(entryPath), "."))
	return &Entry{
		Path:      entryPath,
		FileType:  fileType,
		MediaType: MediaTypeForFileType(fileType),
		TagIDs:    tagIDs,
	}
}

type Tag struct {
	ID        int
	Name      string
	Aliases   []string
	ParentIDs []int // Entries with this tag also match queries for any of the parent tags.
}

// Names returns the name and all aliases of the tag.
func (t *Tag) Names() []string {
	return append([]string{t.Name}, t.Aliases...)
}

const (
	specialUntagged = "untagged"
)

// normalizeFileType makes "PNG" and ".png" match the file type "png".
func normalizeFileType(value string) string {
	return strings.TrimPrefix(strings.ToLower(value), ".")
}

// pathPattern returns the glob pattern used for path constraints. Values without wildcards match anywhere in the path.
func pathPattern(value string) string {
	if strings.ContainsAny(value, "*?") {
		return value
	}
	return "*" + value + "*"
}
