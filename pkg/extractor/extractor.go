// Package extractor reads values out of loosely shaped source documents.
// Every lookup is total: a missing key, a nil level or a level of the wrong
// type resolves to nil instead of an error.
package extractor

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Extract resolves a dot/bracket path against nested data.
// Supported syntax:
// - Simple path: "name", "metadata.dateDownloaded", "json.sizechart.rows"
// - Array access: "images[0].url"
// - Wildcard: "images[*].url" returns the first non-nil match
func Extract(data any, path string) any {
	if path == "" {
		return data
	}

	current := data
	for _, part := range parsePath(path) {
		if part.isWildcard {
			arr, ok := toArray(lookupKey(current, part.key))
			if !ok {
				return nil
			}
			rest := remainder(path, part)
			for _, item := range arr {
				if v := Extract(item, rest); v != nil {
					return v
				}
			}
			return nil
		}

		current = extractPart(current, part)
		if current == nil {
			return nil
		}
	}

	return current
}

// ExtractString resolves a path and renders the value as a string.
// Returns nil when nothing is found.
func ExtractString(data any, path string) *string {
	value := Extract(data, path)
	if value == nil {
		return nil
	}
	s := toString(value)
	return &s
}

// ExtractAll resolves a path where wildcards expand to every element
func ExtractAll(data any, path string) []any {
	if path == "" {
		return []any{data}
	}

	results := []any{data}
	for _, part := range parsePath(path) {
		var next []any
		for _, current := range results {
			if current == nil {
				continue
			}
			if part.isWildcard {
				if arr, ok := toArray(lookupKey(current, part.key)); ok {
					next = append(next, arr...)
				}
				continue
			}
			if value := extractPart(current, part); value != nil {
				next = append(next, value)
			}
		}
		results = next
	}

	return results
}

type pathPart struct {
	key        string
	raw        string
	isArray    bool
	arrayIndex int
	isWildcard bool
}

func parsePath(path string) []pathPart {
	var parts []pathPart

	for _, seg := range splitPath(path) {
		part := pathPart{key: seg, raw: seg}

		if idx := strings.Index(seg, "["); idx != -1 && strings.HasSuffix(seg, "]") {
			part.key = seg[:idx]
			indexPart := seg[idx+1 : len(seg)-1]

			if indexPart == "*" {
				part.isWildcard = true
				part.isArray = true
			} else if i, err := strconv.Atoi(indexPart); err == nil {
				part.isArray = true
				part.arrayIndex = i
			}
		}

		parts = append(parts, part)
	}

	return parts
}

// splitPath cuts the path at dots that sit outside brackets. Empty segments are dropped.
func splitPath(path string) []string {
	var segments []string

	depth, from := 0, 0
	for i := 0; i < len(path); i++ {
		switch path[i] {
		case '[':
			depth++
		case ']':
			if depth > 0 {
				depth--
			}
		case '.':
			if depth == 0 {
				if i > from {
					segments = append(segments, path[from:i])
				}
				from = i + 1
			}
		}
	}
	if from < len(path) {
		segments = append(segments, path[from:])
	}

	return segments
}

// remainder returns the path that follows a wildcard segment
func remainder(path string, part pathPart) string {
	idx := strings.Index(path, part.raw)
	if idx == -1 {
		return ""
	}
	return strings.TrimPrefix(path[idx+len(part.raw):], ".")
}

func extractPart(data any, part pathPart) any {
	value := data
	if part.key != "" {
		value = lookupKey(data, part.key)
		if value == nil {
			return nil
		}
	}

	if part.isArray && !part.isWildcard {
		arr, ok := toArray(value)
		if !ok || part.arrayIndex < 0 || part.arrayIndex >= len(arr) {
			return nil
		}
		return arr[part.arrayIndex]
	}

	return value
}

func lookupKey(data any, key string) any {
	if key == "" {
		return data
	}
	switch v := data.(type) {
	case map[string]any:
		return v[key]
	case map[string]string:
		if s, ok := v[key]; ok {
			return s
		}
	}
	return nil
}

func toArray(v any) ([]any, bool) {
	switch arr := v.(type) {
	case []any:
		return arr, true
	case []string:
		result := make([]any, len(arr))
		for i, s := range arr {
			result[i] = s
		}
		return result, true
	case []map[string]any:
		result := make([]any, len(arr))
		for i, m := range arr {
			result[i] = m
		}
		return result, true
	default:
		return nil, false
	}
}

func toString(v any) string {
	switch val := v.(type) {
	case string:
		return val
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case int:
		return strconv.Itoa(val)
	case int64:
		return strconv.FormatInt(val, 10)
	case bool:
		return strconv.FormatBool(val)
	case nil:
		return ""
	default:
		b, err := json.Marshal(v)
		if err != nil {
			return fmt.Sprintf("%v", v)
		}
		return string(b)
	}
}
