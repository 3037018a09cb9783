package common

import (
	"sort"
	"strings"
	"unicode"
)

// sortableString splits a string into text and number chunks, so that "photo 10" sorts behind "photo 9".
type sortableString struct {
	value  string
	chunks []chunk
}

type chunk struct {
	text     string
	isNumber bool
}

func (this sortableString) isLessThan(other sortableString) bool {
	for i := 0; i < len(this.chunks) && i < len(other.chunks); i++ {
		a := this.chunks[i]
		b := other.chunks[i]

		if a.isNumber && b.isNumber {
			if compared := compareNumberChunks(a.text, b.text); compared != 0 {
				return compared < 0
			}
			continue
		}

		aText := strings.ToLower(a.text)
		bText := strings.ToLower(b.text)
		if aText != bText {
			return aText < bText
		}
	}

	if len(this.chunks) != len(other.chunks) {
		return len(this.chunks) < len(other.chunks)
	}

	// Equal when ignoring case, so fall back to the plain value to get a stable order.
	return this.value < other.value
}

// compareNumberChunks compares two strings of digits by their numerical value without parsing them, which means there
// is no overflow for long digit sequences.
func compareNumberChunks(a string, b string) int {
	a = strings.TrimLeft(a, "0")
	b = strings.TrimLeft(b, "0")
	if len(a) != len(b) {
		return len(a) - len(b)
	}
	return strings.Compare(a, b)
}

func toSortableString(s string) sortableString {
	sortableStringObj := sortableString{
		value: s,
	}

	var current []rune
	currentIsNumber := false
	for i, r := range []rune(s) {
		isDigit := unicode.IsDigit(r)
		if i > 0 && isDigit != currentIsNumber {
			sortableStringObj.chunks = append(sortableStringObj.chunks, chunk{text: string(current), isNumber: currentIsNumber})
			current = nil
		}
		current = append(current, r)
		currentIsNumber = isDigit
	}
	if len(current) > 0 {
		sortableStringObj.chunks = append(sortableStringObj.chunks, chunk{text: string(current), isNumber: currentIsNumber})
	}

	return sortableStringObj
}

// Sort returns a naturally sorted copy of the given values. Letters are compared case-insensitive and digit sequences
// by their numerical value.
func Sort(values []string) []string {
	sortableStrings := make([]sortableString, len(values))
	for i, s := range values {
		sortableStrings[i] = toSortableString(s)
	}

	sort.SliceStable(sortableStrings, func(i, j int) bool {
		return sortableStrings[i].isLessThan(sortableStrings[j])
	})

	sortedStrings := make([]string, len(sortableStrings))
	for i, s := range sortableStrings {
		sortedStrings[i] = s.value
	}

	return sortedStrings
}

// IsLessThan returns true if s1 is less than s2, i.e. if s1 appears before s2 in a sorted list.
func IsLessThan(s1, s2 string) bool {
	return toSortableString(s1).isLessThan(toSortableString(s2))
}
