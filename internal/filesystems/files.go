package filesystems

import (
	"errors"
	"strings"
)

var errFound = errors.New("found")

// FindFile walks root and returns the first regular file (in lexical walk
// order) whose name matches filename case-insensitively and for which accept
// returns true. Directories named in skip are not descended into. An empty
// result means nothing matched.
func FindFile(filesystem FileSystem, root, filename string, accept func(path string) bool, skip ...string) (string, error) {
	skipped := make(map[string]bool, len(skip))
	for _, name := range skip {
		skipped[name] = true
	}

	var found string
	err := filesystem.Walk(root, func(path string, info FileInfo, err error) error {
		if err != nil {
			if info != nil && info.IsDir() {
				return SkipDir
			}
			return nil
		}
		if info.IsDir() {
			if path != root && skipped[info.Name()] {
				return SkipDir
			}
			return nil
		}
		if strings.EqualFold(info.Name(), filename) && (accept == nil || accept(path)) {
			found = path
			return errFound
		}
		return nil
	})
	if err == errFound {
		err = nil
	}
	return found, err
}
