package reporting

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
)

// FormatJSON renders any result as indented JSON
func FormatJSON(v interface{}) ([]byte, error) {
	return json.MarshalIndent(v, "", "  ")
}

// PrintJSON writes v as indented JSON followed by a newline
func PrintJSON(w io.Writer, v interface{}) error {
	data, err := FormatJSON(v)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, string(data))
	return err
}

// WriteJSON writes v as indented JSON to path, creating parent directories
func WriteJSON(v interface{}, path string) error {
	data, err := FormatJSON(v)
	if err != nil {
		return err
	}
	if err := EnsureDirectoryExists(path); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}
