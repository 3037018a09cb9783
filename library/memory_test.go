package library

import (
	"context"
	"github.com/hauke96/sigolo/v2"
	"tagsearch/query"
	"tagsearch/util"
	"testing"
)

func newFixtureMemoryLibrary(t *testing.T) *MemoryLibrary {
	sigolo.SetDefaultLogLevel(sigolo.LOG_TRACE)
	library := NewMemoryLibrary()
	fillFixtureLibrary(t, library)
	return library
}

func TestMemoryLibrary_search(t *testing.T) {
	runSearchScenarios(t, newFixtureMemoryLibrary(t))
}

func TestMemoryLibrary_searchErrors(t *testing.T) {
	runSearchErrorScenarios(t, newFixtureMemoryLibrary(t))
}

func TestMemoryLibrary_doubleNegation(t *testing.T) {
	library := newFixtureMemoryLibrary(t)
	assertSameEntries(t, library, "NOT NOT path:*", "path:*")
	assertSameEntries(t, library, "NOT NOT circle", "circle")
}

func TestMemoryLibrary_searchReturnsEntryData(t *testing.T) {
	// Arrange
	library := newFixtureMemoryLibrary(t)

	// Act
	entries, err := library.Search(context.Background(), query.NewConstraint(query.ConstraintTypeTag, "orange"))

	// Assert
	util.AssertNil(t, err)
	util.AssertEqual(t, []int{1, 12, 19, 20}, entryIDs(entries))
	util.AssertEqual(t, "images/item_00.png", entries[0].Path)
	util.AssertEqual(t, "png", entries[0].FileType)
	util.AssertEqual(t, "image", entries[0].MediaType)
	util.AssertEqual(t, []int{tagCircle, tagSquare, tagOrange}, entries[0].TagIDs)
}

func TestMemoryLibrary_propertiesAreNotSupported(t *testing.T) {
	// Arrange
	library := newFixtureMemoryLibrary(t)
	node := query.NewConstraint(query.ConstraintTypeTag, "circle", query.NewProperty("depth", "1"))

	// Act
	entries, err := library.Search(context.Background(), node)

	// Assert
	util.AssertNil(t, entries)
	util.AssertNotNil(t, err)
	util.AssertMatch(t, "Unsupported property 'depth=1'", err.Error())
}

func TestMemoryLibrary_tags(t *testing.T) {
	// Arrange
	library := newFixtureMemoryLibrary(t)

	// Act
	tags, err := library.Tags(context.Background())

	// Assert
	util.AssertNil(t, err)
	util.AssertLen(t, 5, tags)
	util.AssertEqual(t, "circle", tags[0].Name)
	util.AssertEqual(t, "shape", tags[4].Name)
}

func TestMemoryLibrary_addEntryWithUnknownTag(t *testing.T) {
	// Arrange
	library := NewMemoryLibrary()

	// Act
	entry, err := library.AddEntry(context.Background(), NewEntry("a.png", 42))

	// Assert
	util.AssertNil(t, entry)
	util.AssertNotNil(t, err)
}

func TestMemoryLibrary_addEntryWithExistingPath(t *testing.T) {
	// Arrange
	library := NewMemoryLibrary()
	_, err := library.AddEntry(context.Background(), NewEntry("a.png"))
	util.AssertNil(t, err)

	// Act
	entry, err := library.AddEntry(context.Background(), NewEntry("a.png"))

	// Assert
	util.AssertNil(t, entry)
	util.AssertError(t, "Entry with path 'a.png' already exists", err)
}

func TestMemoryLibrary_addTagAssignsIDs(t *testing.T) {
	// Arrange
	library := NewMemoryLibrary()
	ctx := context.Background()

	// Act
	first, err := library.AddTag(ctx, &Tag{Name: "a"})
	util.AssertNil(t, err)
	second, err := library.AddTag(ctx, &Tag{Name: "b", ParentIDs: []int{first.ID}})
	util.AssertNil(t, err)
	_, err = library.AddTag(ctx, &Tag{Name: "c", ParentIDs: []int{99}})

	// Assert
	util.AssertEqual(t, 1, first.ID)
	util.AssertEqual(t, 2, second.ID)
	util.AssertNotNil(t, err)
}

func TestNewEntry(t *testing.T) {
	entry := NewEntry("music/Song.FLAC", 3)
	util.AssertEqual(t, "flac", entry.FileType)
	util.AssertEqual(t, "audio", entry.MediaType)
	util.AssertEqual(t, []int{3}, entry.TagIDs)

	entry = NewEntry("README")
	util.AssertEmptyString(t, entry.FileType)
	util.AssertEqual(t, MediaTypeUnknown, entry.MediaType)
}

func TestGlobToRegexp(t *testing.T) {
	pattern, err := globToRegexp("images/*.p?g")
	util.AssertNil(t, err)
	util.AssertTrue(t, pattern.MatchString("images/a/b.png"))
	util.AssertTrue(t, pattern.MatchString("images/.pjg"))
	util.AssertFalse(t, pattern.MatchString("images/a.pngx"))
	util.AssertFalse(t, pattern.MatchString("x/images/a.png"))

	pattern, err = globToRegexp(pathPattern("a+b"))
	util.AssertNil(t, err)
	util.AssertTrue(t, pattern.MatchString("x/a+b/y"))
	util.AssertFalse(t, pattern.MatchString("x/aab/y"))
}
