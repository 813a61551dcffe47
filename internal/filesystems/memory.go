package filesystems

import (
	"fmt"
	"io/fs"
	"iter"
	"path"
	"slices"
	"strings"
	"time"
)

// MemoryFS is an in-memory FileSystem. Paths are slash separated and may be
// absolute ("/src/pods/front") or relative; parents are created implicitly.
type MemoryFS struct {
	files    map[string][]byte
	children map[string]map[string]bool
}

// NewMemoryFS creates an empty MemoryFS
func NewMemoryFS() *MemoryFS {
	return &MemoryFS{
		files:    make(map[string][]byte),
		children: make(map[string]map[string]bool),
	}
}

// AddFile adds a file, creating parent directories as needed
func (mfs *MemoryFS) AddFile(name string, content []byte) {
	name = path.Clean(name)
	mfs.files[name] = content
	mfs.link(name)
}

// AddDir adds an (possibly empty) directory
func (mfs *MemoryFS) AddDir(name string) {
	name = path.Clean(name)
	if _, ok := mfs.children[name]; !ok {
		mfs.children[name] = make(map[string]bool)
	}
	mfs.link(name)
}

// link registers name with every ancestor up to the root.
func (mfs *MemoryFS) link(name string) {
	for {
		parent := path.Dir(name)
		if parent == name {
			return
		}
		if mfs.children[parent] == nil {
			mfs.children[parent] = make(map[string]bool)
		}
		mfs.children[parent][path.Base(name)] = true
		if parent == "." || parent == "/" {
			return
		}
		name = parent
	}
}

func (mfs *MemoryFS) isDir(name string) bool {
	_, ok := mfs.children[name]
	return ok
}

func (mfs *MemoryFS) ReadFile(name string) ([]byte, error) {
	content, ok := mfs.files[path.Clean(name)]
	if !ok {
		return nil, fmt.Errorf("open %s: %w", name, fs.ErrNotExist)
	}
	return content, nil
}

func (mfs *MemoryFS) ReadDir(name string) iter.Seq2[DirEntry, error] {
	return func(yield func(DirEntry, error) bool) {
		dir := path.Clean(name)
		kids, ok := mfs.children[dir]
		if !ok {
			yield(nil, fmt.Errorf("open %s: %w", name, fs.ErrNotExist))
			return
		}

		names := make([]string, 0, len(kids))
		for kid := range kids {
			names = append(names, kid)
		}
		slices.Sort(names)

		for _, kid := range names {
			full := path.Join(dir, kid)
			if !yield(&memoryDirEntry{info: mfs.info(full)}, nil) {
				return
			}
		}
	}
}

func (mfs *MemoryFS) Stat(name string) (FileInfo, error) {
	clean := path.Clean(name)
	if _, ok := mfs.files[clean]; !ok && !mfs.isDir(clean) {
		return nil, fmt.Errorf("stat %s: %w", name, fs.ErrNotExist)
	}
	return mfs.info(clean), nil
}

func (mfs *MemoryFS) info(name string) *memoryFileInfo {
	if mfs.isDir(name) {
		return &memoryFileInfo{name: path.Base(name), mode: fs.ModeDir | 0o755}
	}
	return &memoryFileInfo{name: path.Base(name), size: int64(len(mfs.files[name])), mode: 0o644}
}

// Walk visits root and its descendants in lexical order, honouring SkipDir.
func (mfs *MemoryFS) Walk(root string, fn WalkFunc) error {
	info, err := mfs.Stat(root)
	if err != nil {
		return fn(root, nil, err)
	}
	err = mfs.walk(path.Clean(root), info, fn)
	if err == SkipDir {
		return nil
	}
	return err
}

func (mfs *MemoryFS) walk(name string, info FileInfo, fn WalkFunc) error {
	if err := fn(name, info, nil); err != nil {
		return err
	}
	if !info.IsDir() {
		return nil
	}
	for entry, err := range mfs.ReadDir(name) {
		if err != nil {
			return err
		}
		child := path.Join(name, entry.Name())
		childInfo, _ := entry.Info()
		if err := mfs.walk(child, childInfo, fn); err != nil {
			if err == SkipDir && childInfo.IsDir() {
				continue
			}
			return err
		}
	}
	return nil
}

func (mfs *MemoryFS) Join(elem ...string) string {
	return path.Join(elem...)
}

func (mfs *MemoryFS) Base(p string) string {
	return path.Base(p)
}

func (mfs *MemoryFS) Dir(p string) string {
	return path.Dir(p)
}

func (mfs *MemoryFS) Rel(basepath, targpath string) (string, error) {
	base := path.Clean(basepath)
	target := path.Clean(targpath)

	if base == target {
		return ".", nil
	}
	prefix := strings.TrimSuffix(base, "/") + "/"
	if strings.HasPrefix(target, prefix) {
		return strings.TrimPrefix(target, prefix), nil
	}
	return "", fmt.Errorf("rel: %s is not under %s", targpath, basepath)
}

type memoryDirEntry struct {
	info *memoryFileInfo
}

func (e *memoryDirEntry) Name() string { return e.info.name }
func (e *memoryDirEntry) IsDir() bool { return e.info.IsDir() }
func (e *memoryDirEntry) Type() fs.FileMode { return e.info.mode.Type() }
func (e *memoryDirEntry) Info() (FileInfo, error) { return e.info, nil }

type memoryFileInfo struct {
	name string
	size int64
	mode fs.FileMode
}

func (fi *memoryFileInfo) Name() string { return fi.name }
func (fi *memoryFileInfo) Size() int64 { return fi.size }
func (fi *memoryFileInfo) Mode() fs.FileMode { return fi.mode }
func (fi *memoryFileInfo) ModTime() time.Time { return time.Time{} }
func (fi *memoryFileInfo) IsDir() bool { return fi.mode.IsDir() }
func (fi *memoryFileInfo) Sys() interface{} { return nil }
