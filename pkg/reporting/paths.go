package reporting

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// DefaultResultsRoot is where reports go unless configured otherwise
const DefaultResultsRoot = "results"

// DefaultOutputDir returns <root>/<SYMBOL>_<interval>
func DefaultOutputDir(root, symbol, interval string) string {
	s := strings.ToUpper(strings.TrimSpace(symbol))
	i := strings.ToLower(strings.TrimSpace(interval))
	if s == "" {
		s = "UNKNOWN"
	}
	if i == "" {
		i = "unknown"
	}
	if root == "" {
		root = DefaultResultsRoot
	}
	return filepath.Join(root, fmt.Sprintf("%s_%s", s, i))
}

// EnsureDirectoryExists creates the parent directory of path
func EnsureDirectoryExists(path string) error {
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		return os.MkdirAll(dir, 0755)
	}
	return nil
}
