package main

import (
	"os"
	"sort"
	"strings"
)

// lineIndex converts byte offsets to 1-based lines and columns.
type lineIndex struct {
	starts []int
	size   int
}

func newLineIndex(text string) lineIndex {
	li := lineIndex{starts: []int{0}, size: len(text)}
	for i := 0; i < len(text); i++ {
		if text[i] == '\n' {
			li.starts = append(li.starts, i+1)
		}
	}
	return li
}

// position returns the line and column of off. Columns count bytes.
func (li lineIndex) position(off int) (line, col int) {
	if off < 0 {
		off = 0
	}
	if off > li.size {
		off = li.size
	}
	i := sort.SearchInts(li.starts, off+1) - 1
	return i + 1, off - li.starts[i] + 1
}

// offset is the inverse of position.
func (li lineIndex) offset(line, col int) (int, bool) {
	if line < 1 || line > len(li.starts) || col < 1 {
		return 0, false
	}
	end := li.size
	if line < len(li.starts) {
		end = li.starts[line] - 1
	}
	off := li.starts[line-1] + col - 1
	if off > end {
		return 0, false
	}
	return off, true
}

// span converts [from, to) in the file at path.
func (li lineIndex) span(path string, from, to int) *CLILocation {
	l, c := li.position(from)
	el, ec := li.position(to)
	return &CLILocation{File: path, Line: l, Col: c, EndLine: el, EndCol: ec}
}

// readLines returns the lines of the file at path, or none when it cannot be
// read.
func readLines(path string) []string {
	b, err := os.ReadFile(path)
	if err != nil {
		return []string{}
	}
	return strings.Split(string(b), "\n")
}
