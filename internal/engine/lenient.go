package engine

import (
	"encoding/json"
	"fmt"
	"strings"
)

// ParseLenientArray parses a JSON array of objects out of batch
// generation output, tolerating markdown fences and a truncated tail.
// Repair rules, applied in order:
//  1. strip surrounding markdown code fences
//  2. slice from the first '[' (prose preamble is common)
//  3. try a straight parse
//  4. on failure, trim back to the last complete '}' and re-close the
//     array, dropping the incomplete trailing element
//
// A reply that still fails after repair is a hard error; the caller
// decides whether that is fatal.
func ParseLenientArray(raw string, out interface{}) error {
	text := strings.TrimSpace(stripCodeFences(raw))

	start := strings.IndexByte(text, '[')
	if start < 0 {
		// Some models wrap the array in an object like {"locations": [...]}.
		if obj := strings.IndexByte(text, '{'); obj >= 0 {
			if inner, ok := arrayFromWrapper(text[obj:]); ok {
				text = inner
				start = 0
			}
		}
		if start < 0 {
			return fmt.Errorf("no JSON array found in response")
		}
	}
	text = text[start:]

	if err := json.Unmarshal([]byte(text), out); err == nil {
		return nil
	}

	repaired, ok := repairTruncatedArray(text)
	if !ok {
		return fmt.Errorf("unparsable JSON array and no repair possible")
	}
	if err := json.Unmarshal([]byte(repaired), out); err != nil {
		return fmt.Errorf("parsing repaired JSON array: %w", err)
	}
	return nil
}

// arrayFromWrapper pulls the first array value out of a wrapper object.
func arrayFromWrapper(s string) (string, bool) {
	var wrapper map[string]json.RawMessage
	if err := json.Unmarshal([]byte(s), &wrapper); err != nil {
		return "", false
	}
	for _, v := range wrapper {
		t := strings.TrimSpace(string(v))
		if strings.HasPrefix(t, "[") {
			return t, true
		}
	}
	return "", false
}

// repairTruncatedArray trims a truncated array back to its last complete
// element and re-closes it. Returns false when not even one complete
// element survives.
func repairTruncatedArray(s string) (string, bool) {
	lastComplete := -1
	depth := 0
	inString := false
	escaped := false
	for i := 0; i < len(s); i++ {
		c := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{', '[':
			depth++
		case '}':
			depth--
			// depth 1 means we just closed a top-level element of the array.
			if depth == 1 {
				lastComplete = i
			}
		case ']':
			depth--
		}
	}
	if lastComplete < 0 {
		return "", false
	}
	return s[:lastComplete+1] + "]", true
}
