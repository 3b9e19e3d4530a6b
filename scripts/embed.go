// Package scripts holds the rule scripts shipped with meadow.
package scripts

import (
	"embed"
	"io/fs"
)

//go:embed rules/*.risor
var files embed.FS

// FS is the directory of shipped rule scripts.
var FS fs.FS = mustSub(files, "rules")

func mustSub(fsys fs.FS, dir string) fs.FS {
	sub, err := fs.Sub(fsys, dir)
	if err != nil {
		panic(err)
	}
	return sub
}
