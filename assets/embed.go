// Package assets embeds the default region list and SQL migrations.
package assets

import (
	"bufio"
	"embed"
	"io/fs"
	"strings"
)

//go:embed regions.txt sql/*.sql
var FS embed.FS

func readLines(name string) ([]string, error) {
	f, err := FS.Open(name)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var out []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		s := strings.TrimSpace(sc.Text())
		if s == "" || strings.HasPrefix(s, "#") {
			continue
		}
		out = append(out, s)
	}
	return out, sc.Err()
}

// RegionNames returns the embedded default region dataset (the 50 US states).
func RegionNames() ([]string, error) {
	return readLines("regions.txt")
}

// Migrations returns the embedded migration directory rooted at "sql".
func Migrations() fs.FS {
	sub, err := fs.Sub(FS, "sql")
	if err != nil {
		// "sql" is a compile-time embed pattern; Sub only fails on invalid names.
		panic(err)
	}
	return sub
}
