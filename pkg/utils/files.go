package utils

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

func GetPathInfo(relPath string) (fullPath string, parentDir string, err error) {
	// Convert to absolute path (resolves ../../ and cleans the path)
	fullPath, err = filepath.Abs(relPath)
	if err != nil {
		return "", "", err
	}

	// Get the directory containing the file
	parentDir = filepath.Dir(fullPath)

	return fullPath, parentDir, nil
}

// SourcePaths resolves path to the source files a stage should read. A
// file must carry ext; a directory yields every ext file directly inside
// it, sorted by name.
func SourcePaths(path, ext string) ([]string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		if filepath.Ext(path) != ext {
			return nil, fmt.Errorf("%s: expected a %s file", path, ext)
		}
		return []string{path}, nil
	}

	entries, err := os.ReadDir(path)
	if err != nil {
		return nil, err
	}
	var out []string
	for _, e := range entries {
		if !e.IsDir() && filepath.Ext(e.Name()) == ext {
			out = append(out, filepath.Join(path, e.Name()))
		}
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("%s: no %s files", path, ext)
	}
	sort.Strings(out)
	return out, nil
}

// UnitName is the base name of path without its extension.
func UnitName(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// OutputPath swaps the extension of a source file for outExt. For a
// directory the output lives inside it and is named after it, so
// Prog/ becomes Prog/Prog.asm.
func OutputPath(path string, isDir bool, outExt string) string {
	if isDir {
		clean := filepath.Clean(path)
		if full, _, err := GetPathInfo(clean); err == nil {
			return filepath.Join(clean, filepath.Base(full)+outExt)
		}
		return filepath.Join(clean, filepath.Base(clean)+outExt)
	}
	return strings.TrimSuffix(path, filepath.Ext(path)) + outExt
}
