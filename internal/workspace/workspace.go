// Package workspace mutates the workspace definition file: a JSON
// document listing the folder set an editor session is built from.
package workspace

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// Folder is one workspace folder entry.
type Folder struct {
	Path string `json:"path"`
}

// Definition mirrors the workspace definition file layout. Unknown
// fields are dropped on rewrite; the tool owns this file.
type Definition struct {
	Folders []Folder `json:"folders"`
}

// File is a handle to one workspace definition file.
type File struct {
	path string
}

// NewFile creates a handle. The file need not exist yet.
func NewFile(path string) *File {
	if path == "" {
		panic("path is required")
	}
	return &File{path: path}
}

// Path returns the definition file location.
func (f *File) Path() string { return f.path }

// Load reads the current definition. A missing file yields an empty
// definition, not an error.
func (f *File) Load() (*Definition, error) {
	data, err := os.ReadFile(f.path)
	if err != nil {
		if os.IsNotExist(err) {
			return &Definition{}, nil
		}
		return nil, fmt.Errorf("read workspace file: %w", err)
	}
	var def Definition
	if err := json.Unmarshal(data, &def); err != nil {
		return nil, fmt.Errorf("parse workspace file %s: %w", f.path, err)
	}
	return &def, nil
}

// Attach adds the given directories to the folder set, skipping ones
// already present, and writes the definition back. It returns how many
// folders were actually added.
func (f *File) Attach(dirs []string) (int, error) {
	def, err := f.Load()
	if err != nil {
		return 0, err
	}

	present := make(map[string]bool, len(def.Folders))
	for _, folder := range def.Folders {
		present[folder.Path] = true
	}

	added := 0
	for _, dir := range dirs {
		if present[dir] {
			continue
		}
		def.Folders = append(def.Folders, Folder{Path: dir})
		present[dir] = true
		added++
	}
	if added == 0 {
		return 0, nil
	}
	return added, f.save(def)
}

// Replace swaps the folder set wholesale.
func (f *File) Replace(dirs []string) error {
	def := &Definition{Folders: make([]Folder, 0, len(dirs))}
	for _, dir := range dirs {
		def.Folders = append(def.Folders, Folder{Path: dir})
	}
	return f.save(def)
}

func (f *File) save(def *Definition) error {
	data, err := json.MarshalIndent(def, "", "  ")
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(f.path), 0o750); err != nil {
		return fmt.Errorf("create workspace directory: %w", err)
	}
	// Write-then-rename so a crash never leaves a torn definition.
	tmp, err := os.CreateTemp(filepath.Dir(f.path), ".workspace-*")
	if err != nil {
		return fmt.Errorf("write workspace file: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("write workspace file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("write workspace file: %w", err)
	}
	if err := os.Rename(tmpName, f.path); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("write workspace file: %w", err)
	}
	return nil
}
