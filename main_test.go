package main

import (
	"tagsearch/util"
	"testing"
)

func TestUnderline(t *testing.T) {
	util.AssertEqual(t, "    ^^^", underline("asd AND", 4, 7))
	util.AssertEqual(t, "^", underline("(", 0, 1))
	util.AssertEqual(t, "\t  ^^", underline("\tä b\"", 3, 5))
	util.AssertEqual(t, "^", underline("", 0, 0))
}
