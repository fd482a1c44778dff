package config

import (
	"strings"

	"github.com/google/go-cmp/cmp"
)

// DiffSerialized returns a line diff between two serialized configuration
// payloads, used to explain why a reload was rejected.
func DiffSerialized(previous, current []byte) string {
	return cmp.Diff(splitLines(previous), splitLines(current))
}

func splitLines(data []byte) []string {
	if len(data) == 0 {
		return nil
	}
	text := strings.ReplaceAll(string(data), "\r\n", "\n")
	text = strings.TrimSuffix(text, "\n")
	if text == "" {
		return []string{""}
	}
	return strings.Split(text, "\n")
}
