package store

import (
	"fmt"
	"os"
	"sort"
	"strings"
)

// LoadCatalog returns the known command names, trimmed, deduplicated
// and sorted case-insensitively. An absent catalog file yields an
// empty catalog, never an error.
func (s *Store) LoadCatalog() ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loadCatalogLocked()
}

func (s *Store) loadCatalogLocked() ([]string, error) {
	data, err := os.ReadFile(s.path(catalogFile))
	if err != nil {
		if os.IsNotExist(err) {
			return []string{}, nil
		}
		return nil, fmt.Errorf("load catalog: %w", err)
	}
	return ParseCatalog(string(data)), nil
}

// ParseCatalog parses a comma-delimited command list.
func ParseCatalog(raw string) []string {
	seen := map[string]bool{}
	names := []string{}
	for _, part := range strings.Split(raw, ",") {
		name := strings.TrimSpace(part)
		if name == "" || seen[name] {
			continue
		}
		seen[name] = true
		names = append(names, name)
	}
	sort.SliceStable(names, func(i, j int) bool {
		return strings.ToLower(names[i]) < strings.ToLower(names[j])
	})
	return names
}
