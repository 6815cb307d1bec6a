package flowengine

import (
	"strconv"
	"strings"
)

// Project evaluates a JSONPath subset against body: "$" returns the whole
// body; a leading "$." is optional; the remainder is split on "."; each
// segment is a key name, optionally suffixed with "[n]" to index into an
// array. A traversal through nil/missing/mismatched-type yields
// (nil, false) — "undefined".
//
// The same function serves both the Block Dispatcher's output projection
// and the flow-level Output Projector, since both need identical "dotted
// path with optional indices against a map[string]any/[]any tree"
// semantics.
func Project(body any, path string) (any, bool) {
	path = strings.TrimSpace(path)
	if path == "$" || path == "" {
		return body, true
	}
	path = strings.TrimPrefix(path, "$.")
	path = strings.TrimPrefix(path, "$")
	path = strings.TrimPrefix(path, ".")

	segments := strings.Split(path, ".")
	current := body
	for _, seg := range segments {
		if seg == "" {
			continue
		}
		key, indices := splitSegment(seg)

		if key != "" {
			m, ok := current.(map[string]any)
			if !ok {
				return nil, false
			}
			v, exists := m[key]
			if !exists {
				return nil, false
			}
			current = v
		}

		for _, idx := range indices {
			arr, ok := current.([]any)
			if !ok {
				return nil, false
			}
			if idx < 0 || idx >= len(arr) {
				return nil, false
			}
			current = arr[idx]
		}

		if current == nil {
			return nil, false
		}
	}
	return current, true
}

// splitSegment splits "items[0][1]" into ("items", [0, 1]) and "[0]" into
// ("", [0]).
func splitSegment(seg string) (string, []int) {
	var indices []int
	key := seg

	for {
		open := strings.LastIndex(key, "[")
		if open == -1 || !strings.HasSuffix(key, "]") {
			break
		}
		numStr := key[open+1 : len(key)-1]
		n, err := strconv.Atoi(numStr)
		if err != nil {
			break
		}
		indices = append([]int{n}, indices...)
		key = key[:open]
	}

	return key, indices
}
