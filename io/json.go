package io

import (
	"github.com/hauke96/sigolo/v2"
	"github.com/pkg/errors"
	"github.com/valyala/fastjson"
	"io"
	"os"
	"tagsearch/common"
	"tagsearch/library"
	"time"
)

func WriteEntriesAsJsonFile(entries []*library.Entry, tags []*library.Tag) error {
	file, err := os.Create("output.json")
	if err != nil {
		return err
	}

	defer func() {
		err = file.Close()
		sigolo.FatalCheck(errors.Wrapf(err, "Unable to close file handle for JSON file %s", file.Name()))
	}()

	return WriteEntriesAsJson(entries, tags, file)
}

// WriteEntriesAsJson writes the entries as JSON array. Tag IDs are resolved to the tag names, which are sorted
// naturally. Tag IDs without known tag are written as number.
func WriteEntriesAsJson(entries []*library.Entry, tags []*library.Tag, writer io.Writer) error {
	sigolo.Debug("Write entries to JSON")
	writeStartTime := time.Now()

	tagNames := map[int]string{}
	for _, tag := range tags {
		tagNames[tag.ID] = tag.Name
	}

	arena := &fastjson.Arena{}
	entryArray := arena.NewArray()
	for i, entry := range entries {
		entryObject := arena.NewObject()
		entryObject.Set("id", arena.NewNumberInt(entry.ID))
		entryObject.Set("path", arena.NewString(entry.Path))
		entryObject.Set("filetype", arena.NewString(entry.FileType))
		entryObject.Set("mediatype", arena.NewString(entry.MediaType))

		var names []string
		var unknownTagIDs []int
		for _, tagID := range entry.TagIDs {
			if name, ok := tagNames[tagID]; ok {
				names = append(names, name)
			} else {
				unknownTagIDs = append(unknownTagIDs, tagID)
			}
		}

		tagArray := arena.NewArray()
		tagIndex := 0
		for _, name := range common.Sort(names) {
			tagArray.SetArrayItem(tagIndex, arena.NewString(name))
			tagIndex++
		}
		for _, tagID := range unknownTagIDs {
			sigolo.Debugf("Tag %d of entry %d is unknown", tagID, entry.ID)
			tagArray.SetArrayItem(tagIndex, arena.NewNumberInt(tagID))
			tagIndex++
		}
		entryObject.Set("tags", tagArray)

		entryArray.SetArrayItem(i, entryObject)
	}

	_, err := writer.Write(entryArray.MarshalTo(nil))
	if err != nil {
		return errors.Wrap(err, "Unable to write entries")
	}

	sigolo.Debugf("Finished writing %d entries in %s", len(entries), time.Since(writeStartTime))
	return nil
}

// WriteTagsAsJson writes the tags as JSON array of objects with name, aliases and parent tag IDs.
func WriteTagsAsJson(tags []*library.Tag, writer io.Writer) error {
	arena := &fastjson.Arena{}
	tagArray := arena.NewArray()
	for i, tag := range tags {
		tagObject := arena.NewObject()
		tagObject.Set("id", arena.NewNumberInt(tag.ID))
		tagObject.Set("name", arena.NewString(tag.Name))

		aliasArray := arena.NewArray()
		for j, alias := range tag.Aliases {
			aliasArray.SetArrayItem(j, arena.NewString(alias))
		}
		tagObject.Set("aliases", aliasArray)

		parentArray := arena.NewArray()
		for j, parentID := range tag.ParentIDs {
			parentArray.SetArrayItem(j, arena.NewNumberInt(parentID))
		}
		tagObject.Set("parents", parentArray)

		tagArray.SetArrayItem(i, tagObject)
	}

	_, err := writer.Write(tagArray.MarshalTo(nil))
	return errors.Wrap(err, "Unable to write tags")
}
