package importing

import (
	"bufio"
	"context"
	"github.com/hauke96/sigolo/v2"
	"github.com/pkg/errors"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"tagsearch/common"
	"tagsearch/library"
	"time"
)

// Import adds every regular file below the given directory as entry to the library. When a tag file is given, its
// tags are assigned to the entries. Lines of the tag file have the form "relative/path=tag1|tag2" where "|", "=" and
// newlines within tag names are written as $$PIPE$$, $$EQUAL$$ and $$NEWLINE$$. Unknown tags are created. Files
// already in the library are skipped, so an interrupted import can be repeated. The number of new entries is returned.
func Import(ctx context.Context, directory string, tagFile string, lib library.Library) (int, error) {
	sigolo.Infof("Import directory %s", directory)
	importStartTime := time.Now()

	tagsOfPath := map[string][]string{}
	if tagFile != "" {
		file, err := os.Open(tagFile)
		if err != nil {
			return 0, errors.Wrapf(err, "Unable to open tag file %s", tagFile)
		}
		defer file.Close()

		tagsOfPath, err = ReadTagFile(file)
		if err != nil {
			return 0, errors.Wrapf(err, "Unable to read tag file %s", tagFile)
		}
		sigolo.Debugf("Read tags for %d paths from %s", len(tagsOfPath), tagFile)
	}

	tagIDs, err := existingTagIDs(ctx, lib)
	if err != nil {
		return 0, err
	}

	knownPaths, err := existingPaths(ctx, lib)
	if err != nil {
		return 0, err
	}

	entryCounter := 0
	err = filepath.WalkDir(directory, func(filePath string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if !d.Type().IsRegular() {
			return nil
		}

		relativePath, err := filepath.Rel(directory, filePath)
		if err != nil {
			return errors.Wrapf(err, "Unable to determine relative path of %s", filePath)
		}
		relativePath = filepath.ToSlash(relativePath)

		if knownPaths[relativePath] {
			sigolo.Debugf("Skip %s, it is already in the library", relativePath)
			delete(tagsOfPath, relativePath)
			return nil
		}

		var entryTagIDs []int
		for _, tagName := range tagsOfPath[relativePath] {
			tagID, err := getOrCreateTag(ctx, lib, tagIDs, tagName)
			if err != nil {
				return err
			}
			// Names differing only in case refer to the same tag.
			if !common.Contains(entryTagIDs, tagID) {
				entryTagIDs = append(entryTagIDs, tagID)
			}
		}
		delete(tagsOfPath, relativePath)

		_, err = lib.AddEntry(ctx, library.NewEntry(relativePath, entryTagIDs...))
		if err != nil {
			return err
		}

		sigolo.Tracef("Imported %s with %d tags", relativePath, len(entryTagIDs))
		knownPaths[relativePath] = true
		entryCounter++
		return nil
	})
	if err != nil {
		return entryCounter, errors.Wrapf(err, "Unable to import directory %s", directory)
	}

	for unknownPath := range tagsOfPath {
		sigolo.Warnf("Tag file contains path %s which is not in directory %s", unknownPath, directory)
	}

	sigolo.Infof("Imported %d entries in %s", entryCounter, time.Since(importStartTime))
	return entryCounter, nil
}

// ReadTagFile reads lines of the form "path=tag1|tag2". Empty lines are ignored.
func ReadTagFile(reader io.Reader) (map[string][]string, error) {
	tagsOfPath := map[string][]string{}

	scanner := bufio.NewScanner(reader)
	scanner.Buffer(make([]byte, 64*1024), 16*1024*1024)
	lineCounter := 0
	for scanner.Scan() {
		lineCounter++
		line := strings.TrimRight(scanner.Text(), "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}

		splitLine := strings.SplitN(line, "=", 2)
		if len(splitLine) != 2 {
			lineStart := line
			if len(lineStart) > 100 {
				lineStart = lineStart[0:100]
			}
			return nil, errors.Errorf("Wrong format of line %d: '=' expected separating path and tag list. Start of line was: %s", lineCounter, lineStart)
		}

		entryPath := filepath.ToSlash(strings.TrimSpace(splitLine[0]))
		for _, tagName := range strings.Split(splitLine[1], "|") {
			tagName = unescape(strings.TrimSpace(tagName))
			if tagName != "" {
				tagsOfPath[entryPath] = append(tagsOfPath[entryPath], tagName)
			}
		}
	}

	return tagsOfPath, errors.Wrap(scanner.Err(), "Error reading tag file")
}

func unescape(value string) string {
	value = strings.ReplaceAll(value, "$$NEWLINE$$", "\n")
	value = strings.ReplaceAll(value, "$$EQUAL$$", "=")
	return strings.ReplaceAll(value, "$$PIPE$$", "|")
}

// existingTagIDs returns a map from lower case tag name to tag ID.
func existingTagIDs(ctx context.Context, lib library.Library) (map[string]int, error) {
	tags, err := lib.Tags(ctx)
	if err != nil {
		return nil, err
	}

	tagIDs := map[string]int{}
	for _, tag := range tags {
		tagIDs[strings.ToLower(tag.Name)] = tag.ID
	}
	return tagIDs, nil
}

// existingPaths returns the paths of all entries already in the library.
func existingPaths(ctx context.Context, lib library.Library) (map[string]bool, error) {
	entries, err := lib.Search(ctx, nil)
	if err != nil {
		return nil, err
	}

	paths := map[string]bool{}
	for _, entry := range entries {
		paths[entry.Path] = true
	}
	return paths, nil
}

func getOrCreateTag(ctx context.Context, lib library.Library, tagIDs map[string]int, tagName string) (int, error) {
	key := strings.ToLower(tagName)
	if tagID, ok := tagIDs[key]; ok {
		return tagID, nil
	}

	tag, err := lib.AddTag(ctx, &library.Tag{Name: tagName})
	if err != nil {
		return 0, err
	}
	sigolo.Debugf("Created tag '%s' with ID %d", tag.Name, tag.ID)

	tagIDs[key] = tag.ID
	return tag.ID, nil
}
