/*
 * Copyright (c) 2025 Hardiyanto Y -Ebiet.
 * This software is part of the HDX (Hardix Audio) project.
 * This code is provided "as is", without warranty of any kind.
 */

package main

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"sort"
	"strings"

	"drmeter/internal/codec"
)

// collectFiles expands target into the files to analyze. A file is returned
// as is, so an unsupported one is reported rather than silently dropped. A
// directory yields its decodable files sorted by path; exts narrows that set.
func collectFiles(target string, recursive bool, exts []string) ([]string, error) {
	info, err := os.Stat(target)
	if err != nil {
		return nil, fmt.Errorf("file or directory %q does not exist", target)
	}
	if !info.IsDir() {
		return []string{target}, nil
	}

	wanted := func(path string) bool {
		if !codec.Supported(path) {
			return false
		}
		if len(exts) == 0 {
			return true
		}
		return slices.Contains(exts, strings.ToLower(filepath.Ext(path)))
	}

	var files []string
	err = filepath.WalkDir(target, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if path != target && !recursive {
				return filepath.SkipDir
			}
			return nil
		}
		if wanted(path) {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scan %s: %w", target, err)
	}
	sort.Strings(files)
	return files, nil
}
