package io

import (
	"bytes"
	"github.com/hauke96/sigolo/v2"
	"tagsearch/library"
	"tagsearch/util"
	"testing"
)

func TestWriteEntriesAsJson(t *testing.T) {
	// Arrange
	sigolo.SetDefaultLogLevel(sigolo.LOG_TRACE)
	tags := []*library.Tag{
		{ID: 1, Name: "photo 10"},
		{ID: 2, Name: "photo 9"},
		{ID: 3, Name: "Apple"},
	}
	entries := []*library.Entry{
		library.NewEntry("images/a.png", 1, 2, 3),
		library.NewEntry("README", 7),
	}
	entries[0].ID = 4
	entries[1].ID = 5
	buffer := &bytes.Buffer{}

	// Act
	err := WriteEntriesAsJson(entries, tags, buffer)

	// Assert
	util.AssertNil(t, err)
	util.AssertEqual(t, `[{"id":4,"path":"images/a.png","filetype":"png","mediatype":"image","tags":["Apple","photo 9","photo 10"]},{"id":5,"path":"README","filetype":"","mediatype":"unknown","tags":[7]}]`, buffer.String())
}

func TestWriteEntriesAsJson_noEntries(t *testing.T) {
	// Arrange
	sigolo.SetDefaultLogLevel(sigolo.LOG_TRACE)
	buffer := &bytes.Buffer{}

	// Act
	err := WriteEntriesAsJson(nil, nil, buffer)

	// Assert
	util.AssertNil(t, err)
	util.AssertEqual(t, "[]", buffer.String())
}

func TestWriteTagsAsJson(t *testing.T) {
	// Arrange
	sigolo.SetDefaultLogLevel(sigolo.LOG_TRACE)
	tags := []*library.Tag{
		{ID: 1, Name: "circle", ParentIDs: []int{10}},
		{ID: 3, Name: "green", Aliases: []string{"verde", "vert"}},
	}
	buffer := &bytes.Buffer{}

	// Act
	err := WriteTagsAsJson(tags, buffer)

	// Assert
	util.AssertNil(t, err)
	util.AssertEqual(t, `[{"id":1,"name":"circle","aliases":[],"parents":[10]},{"id":3,"name":"green","aliases":["verde","vert"],"parents":[]}]`, buffer.String())
}
