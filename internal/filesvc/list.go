package filesvc

import (
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/unkn0wn-root/httpoutline/internal/errdef"
)

const extHTTP = ".http"

type FileEntry struct {
	Name string
	Path string
}

// IsRequestFile matches the literal .http extension only.
func IsRequestFile(path string) bool {
	return filepath.Ext(path) == extHTTP
}

func ListRequestFiles(root string, recursive bool) ([]FileEntry, error) {
	if !recursive {
		dirEntries, err := os.ReadDir(root)
		if err != nil {
			return nil, errdef.Wrap(errdef.CodeFilesystem, err, "list %s", root)
		}
		var entries []FileEntry
		for _, entry := range dirEntries {
			if entry.IsDir() || !IsRequestFile(entry.Name()) {
				continue
			}
			entries = append(entries, FileEntry{
				Name: entry.Name(),
				Path: filepath.Join(root, entry.Name()),
			})
		}
		sortEntries(entries)
		return entries, nil
	}
	return Match(root, []string{"**/*" + extHTTP}, nil)
}

// Match walks root and returns the request files whose slash-separated
// relative path matches an include pattern and no exclude pattern.
// Hidden directories are skipped.
func Match(root string, includes, excludes []string) ([]FileEntry, error) {
	if len(includes) == 0 {
		includes = []string{"**/*" + extHTTP}
	}
	for _, p := range append(append([]string{}, includes...), excludes...) {
		if !doublestar.ValidatePattern(p) {
			return nil, errdef.New(errdef.CodeConfig, "invalid pattern %q", p)
		}
	}

	var entries []FileEntry
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, relErr := filepath.Rel(root, path)
		if relErr != nil {
			return relErr
		}
		rel = filepath.ToSlash(rel)
		if d.IsDir() {
			if path == root {
				return nil
			}
			if strings.HasPrefix(d.Name(), ".") || matchAny(excludes, rel+"/") {
				return filepath.SkipDir
			}
			return nil
		}
		if !IsRequestFile(d.Name()) {
			return nil
		}
		if matchAny(includes, rel) && !matchAny(excludes, rel) {
			entries = append(entries, FileEntry{Name: rel, Path: path})
		}
		return nil
	})
	if err != nil {
		return nil, errdef.Wrap(errdef.CodeFilesystem, err, "walk %s", root)
	}
	sortEntries(entries)
	return entries, nil
}

func matchAny(patterns []string, path string) bool {
	for _, pattern := range patterns {
		if ok, err := doublestar.Match(pattern, path); err == nil && ok {
			return true
		}
	}
	return false
}

func sortEntries(entries []FileEntry) {
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Name < entries[j].Name
	})
}
