// Package overrides maintains the image override file (.images.conf): plain
// KEY=value lines the orchestrator reads as an env file.
package overrides

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/joho/godotenv"
)

// DefaultFile is the override file name inside the deploy directory.
const DefaultFile = ".images.conf"

var keyPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// Entry is one override assignment.
type Entry struct {
	Key   string
	Value string
}

func (e Entry) String() string {
	return e.Key + "=" + e.Value
}

// Writer appends overrides to a file that was truncated when the writer was
// created.
type Writer struct {
	path    string
	entries []Entry
}

// Reset truncates (or creates) the file at path and returns a writer for it.
func Reset(path string) (*Writer, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create override dir: %w", err)
	}
	if err := os.WriteFile(path, nil, 0o644); err != nil {
		return nil, fmt.Errorf("truncate %s: %w", path, err)
	}
	return &Writer{path: path}, nil
}

func (w *Writer) Path() string { return w.path }

// Entries returns what has been written so far, in order.
func (w *Writer) Entries() []Entry {
	return append([]Entry{}, w.entries...)
}

// Append writes one KEY=value line. Values cannot span lines.
func (w *Writer) Append(key, value string) error {
	if !keyPattern.MatchString(key) {
		return fmt.Errorf("invalid override key %q", key)
	}
	if strings.ContainsAny(value, "\r\n") {
		return fmt.Errorf("override %s: value contains a newline", key)
	}

	f, err := os.OpenFile(w.path, os.O_APPEND|os.O_WRONLY|os.O_CREATE, 0o644)
	if err != nil {
		return err
	}
	entry := Entry{Key: key, Value: value}
	if _, err := fmt.Fprintln(f, entry.String()); err != nil {
		f.Close()
		return fmt.Errorf("write %s: %w", w.path, err)
	}
	if err := f.Close(); err != nil {
		return err
	}
	w.entries = append(w.entries, entry)
	return nil
}

// Read parses an override (or any env) file, keeping file order. A missing
// file yields no entries.
func Read(path string) ([]Entry, error) {
	values, err := godotenv.Read(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	order, err := keyOrder(path)
	if err != nil {
		return nil, err
	}

	entries := make([]Entry, 0, len(values))
	for _, key := range order {
		if value, ok := values[key]; ok {
			entries = append(entries, Entry{Key: key, Value: value})
			delete(values, key)
		}
	}
	return entries, nil
}

// Lookup returns the value of key in entries.
func Lookup(entries []Entry, key string) (string, bool) {
	for _, e := range entries {
		if e.Key == key {
			return e.Value, true
		}
	}
	return "", false
}

func keyOrder(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var keys []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		line = strings.TrimPrefix(line, "export ")
		key, _, found := strings.Cut(line, "=")
		if !found {
			key, _, found = strings.Cut(line, ":")
		}
		if found {
			keys = append(keys, strings.TrimSpace(key))
		}
	}
	return keys, scanner.Err()
}
