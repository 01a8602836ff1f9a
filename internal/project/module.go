// Package project detects the Go module a quill run operates in.
package project

import (
	"fmt"
	"os"
	"path"
	"path/filepath"

	"golang.org/x/mod/modfile"
)

// ModuleInfo contains information from go.mod
type ModuleInfo struct {
	Path      string // Module path (e.g., "github.com/user/repo")
	GoVersion string // Go version requirement (e.g., "1.21")
	Dir       string // Directory containing go.mod
}

// DetectModule reads go.mod in rootPath and returns module information.
// Returns an error if go.mod doesn't exist or is invalid.
func DetectModule(rootPath string) (*ModuleInfo, error) {
	modPath := filepath.Join(rootPath, "go.mod")
	data, err := os.ReadFile(modPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("go.mod not found in %s: %w", rootPath, err)
		}
		return nil, fmt.Errorf("failed to read go.mod: %w", err)
	}

	modFile, err := modfile.Parse(modPath, data, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to parse go.mod: %w", err)
	}
	if modFile.Module == nil {
		return nil, fmt.Errorf("%s has no module directive", modPath)
	}

	info := &ModuleInfo{
		Path: modFile.Module.Mod.Path,
		Dir:  rootPath,
	}
	if modFile.Go != nil {
		info.GoVersion = modFile.Go.Version
	}
	return info, nil
}

// FindModule looks for go.mod in dir and its parents
func FindModule(dir string) (*ModuleInfo, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, err
	}

	for current := abs; ; {
		if _, err := os.Stat(filepath.Join(current, "go.mod")); err == nil {
			return DetectModule(current)
		}
		parent := filepath.Dir(current)
		if parent == current {
			return nil, fmt.Errorf("go.mod not found in %s or any parent directory: %w", abs, os.ErrNotExist)
		}
		current = parent
	}
}

// ImportPath returns the import path of dir, which must lie inside the module
func (m *ModuleInfo) ImportPath(dir string) (string, error) {
	root, err := filepath.Abs(m.Dir)
	if err != nil {
		return "", err
	}
	target, err := filepath.Abs(dir)
	if err != nil {
		return "", err
	}

	rel, err := filepath.Rel(root, target)
	if err != nil {
		return "", err
	}
	rel = filepath.ToSlash(rel)
	if rel == ".." || len(rel) > 2 && rel[:3] == "../" {
		return "", fmt.Errorf("%s is outside module %s", dir, m.Path)
	}
	if rel == "." {
		return m.Path, nil
	}
	return path.Join(m.Path, rel), nil
}
