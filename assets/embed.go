// Package assets embeds the SQL migrations and the default word pack.
package assets

import (
	"embed"
	"io"
	"io/fs"
)

//go:embed sql/*.sql words.txt
var FS embed.FS

// Migrations returns the migration scripts rooted at their directory.
func Migrations() fs.FS {
	sub, err := fs.Sub(FS, "sql")
	if err != nil {
		panic(err) // the directory is embedded at build time
	}
	return sub
}

// OpenWordList opens the embedded default word pack, one word per line.
func OpenWordList() (io.ReadCloser, error) {
	return FS.Open("words.txt")
}
