package steam

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/andygrunwald/vdf"
)

// ParseLibraryFolders reads libraryfolders.vdf content and returns the library
// paths in index order. Both the current nested format ("0" { "path" "..." })
// and the legacy flat format ("1" "/path") are understood.
func ParseLibraryFolders(r io.Reader) ([]string, error) {
	root, err := vdf.NewParser(r).Parse()
	if err != nil {
		return nil, fmt.Errorf("parsing libraryfolders: %w", err)
	}
	return getLibraryPaths(normalizeVDFKeys(root)), nil
}

// normalizeVDFKeys lowercases all keys in a parsed VDF tree. VDF keys are
// case-insensitive but Go map lookups are not.
func normalizeVDFKeys(m map[string]any) map[string]any {
	result := make(map[string]any, len(m))
	for k, v := range m {
		if nested, ok := v.(map[string]any); ok {
			v = normalizeVDFKeys(nested)
		}
		result[strings.ToLower(k)] = v
	}
	return result
}

// getLibraryPaths extracts library paths from a parsed libraryfolders.vdf root.
// Expects structure: libraryfolders -> "0","1",... -> path
func getLibraryPaths(root map[string]any) []string {
	lf, ok := root["libraryfolders"].(map[string]any)
	if !ok {
		return nil
	}
	var paths []string
	for i := 0; ; i++ {
		entry, ok := lf[strconv.Itoa(i)]
		if !ok {
			if i == 0 {
				// Legacy files start numbering at 1
				continue
			}
			break
		}
		switch e := entry.(type) {
		case map[string]any:
			if p, ok := e["path"].(string); ok && p != "" {
				paths = append(paths, p)
			}
		case string:
			if e != "" {
				paths = append(paths, e)
			}
		}
	}
	return paths
}
