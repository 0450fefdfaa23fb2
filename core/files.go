package core

import (
	"bytes"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/adrg/frontmatter"
)

// File is one entry of the file collection threaded through the plugin chain
type File struct {
	Contents []byte
	Mode     os.FileMode
	ModTime  time.Time

	// Front matter plus any fields added by plugins
	Metadata map[string]interface{}
}

// NewFile creates a file with the given contents and empty metadata
func NewFile(contents []byte) *File {
	return &File{
		Contents: contents,
		Mode:     0644,
		Metadata: make(map[string]interface{}),
	}
}

// Get returns a metadata field
func (f *File) Get(key string) (interface{}, bool) {
	if f == nil || f.Metadata == nil {
		return nil, false
	}
	v, ok := f.Metadata[key]
	return v, ok
}

// GetString returns a metadata field as string, or "" if missing or not a string
func (f *File) GetString(key string) string {
	v, _ := f.Get(key)
	s, _ := v.(string)
	return s
}

// Set sets a metadata field, allocating the map if needed
func (f *File) Set(key string, value interface{}) {
	if f.Metadata == nil {
		f.Metadata = make(map[string]interface{})
	}
	f.Metadata[key] = value
}

// Files maps slash separated paths (relative to the source directory) to files
type Files map[string]*File

// Paths returns all paths in lexical order
func (files Files) Paths() []string {
	paths := make([]string, 0, len(files))
	for p := range files {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths
}

// Rename moves a file to a new path, replacing whatever was stored there
func (files Files) Rename(from, to string) {
	file, ok := files[from]
	if !ok || from == to {
		return
	}
	delete(files, from)
	files[to] = file
}

// Returns true if a path should be ignored (hidden files, symlinks, etc.)
func IgnoreFile(path string, info os.FileInfo) bool {
	if info == nil {
		return true
	}

	baseName := filepath.Base(path)

	// Skip hidden files and directories
	if strings.HasPrefix(baseName, ".") && baseName != "." {
		return true
	}

	// Skip symlinks
	if info.Mode()&os.ModeSymlink != 0 {
		return true
	}

	// Avoid .bak, .tmp, and other temporary files
	tmpSuffixes := []string{".bak", ".tmp", "~", ".swp", ".lock"}
	for _, suffix := range tmpSuffixes {
		if strings.HasSuffix(baseName, suffix) {
			return true
		}
	}

	return false
}

// ReadFiles walks root and loads every file into a collection. YAML front
// matter is moved from the contents into the metadata.
func ReadFiles(root string) (Files, error) {
	info, err := os.Stat(root)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrSourceNotFound, root)
		}
		return nil, NewFileError("stat", root, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%w: %s is not a directory", ErrSourceNotFound, root)
	}

	files := make(Files)
	err = filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}

		if path != root && IgnoreFile(info.Name(), info) {
			if info.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if info.IsDir() {
			return nil
		}

		relPath, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}

		file, err := readFile(path, info)
		if err != nil {
			return err
		}
		files[filepath.ToSlash(relPath)] = file
		return nil
	})
	if err != nil {
		return nil, err
	}

	return files, nil
}

func readFile(path string, info os.FileInfo) (*File, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, NewFileError("read", path, err)
	}

	metadata := make(map[string]interface{})
	rest, err := frontmatter.Parse(bytes.NewReader(content), &metadata)
	if err != nil {
		return nil, NewFileError("parse front matter", path, err)
	}

	return &File{
		Contents: rest,
		Mode:     info.Mode().Perm(),
		ModTime:  info.ModTime(),
		Metadata: normalizeMap(metadata),
	}, nil
}

// yaml.v2 decodes nested maps with interface{} keys, which encoding/json and
// html/template handle poorly
func normalizeMap(m map[string]interface{}) map[string]interface{} {
	for k, v := range m {
		m[k] = normalizeValue(v)
	}
	return m
}

func normalizeValue(v interface{}) interface{} {
	switch t := v.(type) {
	case map[interface{}]interface{}:
		out := make(map[string]interface{}, len(t))
		for k, val := range t {
			out[fmt.Sprint(k)] = normalizeValue(val)
		}
		return out
	case map[string]interface{}:
		return normalizeMap(t)
	case []interface{}:
		for i, val := range t {
			t[i] = normalizeValue(val)
		}
		return t
	default:
		return v
	}
}

// WriteFiles writes the collection below root, creating directories as needed
func WriteFiles(root string, files Files) error {
	for _, p := range files.Paths() {
		file := files[p]
		if file == nil {
			return NewFileError("write", p, ErrMalformedFile)
		}
		if !fs.ValidPath(p) {
			return NewFileError("write", p, ErrInvalidFilePath)
		}

		outPath := filepath.Join(root, filepath.FromSlash(p))
		if err := os.MkdirAll(filepath.Dir(outPath), 0755); err != nil {
			return NewFileError("mkdir", filepath.Dir(outPath), err)
		}

		mode := file.Mode
		if mode == 0 {
			mode = 0644
		}
		if err := os.WriteFile(outPath, file.Contents, mode); err != nil {
			return NewFileError("write", outPath, err)
		}
	}
	return nil
}
