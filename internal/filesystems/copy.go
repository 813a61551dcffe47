package filesystems

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// CopyFile copies a regular file on the host filesystem, keeping its mode.
// Parent directories of dst are created as needed.
func CopyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	info, err := in.Stat()
	if err != nil {
		return err
	}
	if info.IsDir() {
		return fmt.Errorf("copy %s: is a directory", src)
	}

	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return err
	}
	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, info.Mode().Perm())
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return fmt.Errorf("copy %s: %w", src, err)
	}
	return out.Close()
}

// CopyDir copies the tree at src into dst, replacing files and links dst
// already has at the same paths. Symlinks are recreated, not followed.
// Directories whose name is in skip are left out.
func CopyDir(src, dst string, skip ...string) error {
	skipped := make(map[string]bool, len(skip))
	for _, name := range skip {
		skipped[name] = true
	}

	return filepath.WalkDir(src, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}
		target := filepath.Join(dst, rel)

		switch {
		case d.IsDir():
			if rel != "." && skipped[d.Name()] {
				return SkipDir
			}
			if err := removeUnless(target, os.ModeDir); err != nil {
				return err
			}
			return os.MkdirAll(target, 0o755)
		case d.Type()&os.ModeSymlink != 0:
			link, err := os.Readlink(path)
			if err != nil {
				return err
			}
			if err := os.RemoveAll(target); err != nil {
				return err
			}
			return os.Symlink(link, target)
		case d.Type().IsRegular():
			if err := removeUnless(target, 0); err != nil {
				return err
			}
			return CopyFile(path, target)
		}
		// sockets, devices and pipes have no place in a build context
		return nil
	})
}

// removeUnless removes whatever is at target unless its type bits equal
// keep. A zero keep keeps regular files.
func removeUnless(target string, keep os.FileMode) error {
	info, err := os.Lstat(target)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return err
	}
	if info.Mode().Type() == keep {
		return nil
	}
	return os.RemoveAll(target)
}

// Copy copies src to dst whether it is a file or a directory.
func Copy(src, dst string, skip ...string) error {
	info, err := os.Stat(src)
	if err != nil {
		return err
	}
	if info.IsDir() {
		return CopyDir(src, dst, skip...)
	}
	return CopyFile(src, dst)
}
