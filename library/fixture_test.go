package library

import (
	"context"
	"fmt"
	"tagsearch/parser"
	"tagsearch/util"
	"testing"
)

const (
	tagCircle = 1
	tagSquare = 2
	tagGreen  = 3
	tagOrange = 4
	tagShape  = 10
)

var fixtureExtensions = []string{"png", "jpg", "mp4", "txt", "pdf"}
var fixtureFolders = map[string]string{"png": "images", "jpg": "images", "mp4": "videos", "txt": "docs", "pdf": "docs"}

// fillFixtureLibrary creates 29 entries:
//
//	 0 -  4: circle, square (0 also orange)
//	 5 - 10: circle (5 and 6 also green)
//	11 - 16: square (11 also orange)
//	17     : green
//	18, 19 : orange
//	20 - 28: untagged
//
// The shape tag is the parent of circle and square, green has the alias "verde".
func fillFixtureLibrary(t *testing.T, library Library) {
	ctx := context.Background()

	for _, tag := range []*Tag{
		{ID: tagShape, Name: "shape"},
		{ID: tagCircle, Name: "circle", ParentIDs: []int{tagShape}},
		{ID: tagSquare, Name: "square", ParentIDs: []int{tagShape}},
		{ID: tagGreen, Name: "green", Aliases: []string{"verde"}},
		{ID: tagOrange, Name: "orange"},
	} {
		_, err := library.AddTag(ctx, tag)
		util.AssertNil(t, err)
	}

	for i := 0; i < 29; i++ {
		var tagIDs []int
		switch {
		case i <= 4:
			tagIDs = []int{tagCircle, tagSquare}
		case i <= 10:
			tagIDs = []int{tagCircle}
		case i <= 16:
			tagIDs = []int{tagSquare}
		case i == 17:
			tagIDs = []int{tagGreen}
		case i <= 19:
			tagIDs = []int{tagOrange}
		}
		if i == 5 || i == 6 {
			tagIDs = append(tagIDs, tagGreen)
		}
		if i == 0 || i == 11 {
			tagIDs = append(tagIDs, tagOrange)
		}

		extension := fixtureExtensions[i%len(fixtureExtensions)]
		entry := NewEntry(fmt.Sprintf("%s/item_%02d.%s", fixtureFolders[extension], i, extension), tagIDs...)
		entry.ID = i + 1

		_, err := library.AddEntry(ctx, entry)
		util.AssertNil(t, err)
	}
}

type searchScenario struct {
	query         string
	expectedCount int
}

var searchScenarios = []searchScenario{
	{"", 29},
	{"circle AND square", 5},
	{"circle square", 5},
	{"square or circle", 17},
	{"not circle", 18},
	{"(not ((square) OR (green)))", 15},
	{"path:*", 29},
	{"NOT NOT path:*", 29},
	{"tag:circle", 11},
	{"tag:CIRCLE", 11},
	{"tag_id:1", 11},
	{"tag:shape", 17},
	{"tag_id:10", 17},
	{"shape", 17},
	{"tag:verde", 3},
	{"tag:unknown", 0},
	{"filetype:png", 6},
	{`filetype:".PNG"`, 6},
	{"mediatype:image", 12},
	{"mediatype:video", 6},
	{"path:videos/*", 6},
	{"path:\"*/item_0?.png\"", 2},
	{"path:images", 12},
	{"png", 6},
	{"item_2", 9},
	{"special:untagged", 9},
	{"NOT special:untagged", 20},
	{"orange OR green", 7},
	{"tag:circle AND filetype:png", 3},
	{"(circle OR orange) NOT square", 8},
	{"circle AND NOT circle", 0},
}

func runSearchScenarios(t *testing.T, library Library) {
	ctx := context.Background()
	for _, scenario := range searchScenarios {
		t.Run(scenario.query, func(t *testing.T) {
			// Arrange
			node, err := parser.ParseQueryString(scenario.query)
			util.AssertNil(t, err)

			// Act
			entries, err := library.Search(ctx, node)

			// Assert
			util.AssertNil(t, err)
			util.AssertEqual(t, scenario.expectedCount, len(entries))
			for i := 1; i < len(entries); i++ {
				util.AssertTrue(t, entries[i-1].ID < entries[i].ID)
			}
		})
	}
}

func runSearchErrorScenarios(t *testing.T, library Library) {
	ctx := context.Background()
	for _, q := range []string{"special:foo", "tag_id:abc", "circle OR tag_id:x"} {
		t.Run(q, func(t *testing.T) {
			node, err := parser.ParseQueryString(q)
			util.AssertNil(t, err)

			entries, err := library.Search(ctx, node)

			util.AssertNotNil(t, err)
			util.AssertNil(t, entries)
		})
	}
}

// Double negation must select exactly the same entries as the plain expression.
func assertSameEntries(t *testing.T, library Library, queryA string, queryB string) {
	ctx := context.Background()

	nodeA, err := parser.ParseQueryString(queryA)
	util.AssertNil(t, err)
	nodeB, err := parser.ParseQueryString(queryB)
	util.AssertNil(t, err)

	entriesA, err := library.Search(ctx, nodeA)
	util.AssertNil(t, err)
	entriesB, err := library.Search(ctx, nodeB)
	util.AssertNil(t, err)

	util.AssertEqual(t, entryIDs(entriesA), entryIDs(entriesB))
}

func entryIDs(entries []*Entry) []int {
	ids := make([]int, len(entries))
	for i, entry := range entries {
		ids[i] = entry.ID
	}
	return ids
}
