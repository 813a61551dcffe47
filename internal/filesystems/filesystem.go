// Package filesystems gives discovery a view of a source tree that works the
// same on disk and in memory.
package filesystems

import (
	"io/fs"
	"iter"
	"time"
)

// FileSystem is the read-only surface the recipe scan uses. Paths are in the
// backend's own syntax; use Join, Dir, Base and Rel rather than path/filepath.
type FileSystem interface {
	ReadFile(name string) ([]byte, error)
	// ReadDir yields entries sorted by name.
	ReadDir(name string) iter.Seq2[DirEntry, error]
	Stat(name string) (FileInfo, error)
	// Walk visits root and everything below it in lexical order. Returning
	// SkipDir for a directory prunes it.
	Walk(root string, fn WalkFunc) error

	Join(elem ...string) string
	Base(path string) string
	Dir(path string) string
	Rel(basepath, targpath string) (string, error)
}

type DirEntry interface {
	Name() string
	IsDir() bool
	Type() fs.FileMode
	Info() (FileInfo, error)
}

type FileInfo interface {
	Name() string
	Size() int64
	Mode() fs.FileMode
	ModTime() time.Time
	IsDir() bool
	Sys() interface{}
}

// WalkFunc receives a nil info when err is set.
type WalkFunc func(path string, info FileInfo, err error) error

var SkipDir = fs.SkipDir

func IsDir(filesystem FileSystem, name string) bool {
	info, err := filesystem.Stat(name)
	return err == nil && info.IsDir()
}

func IsFile(filesystem FileSystem, name string) bool {
	info, err := filesystem.Stat(name)
	return err == nil && !info.IsDir()
}
