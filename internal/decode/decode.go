// Package decode parses the module-list JSON a model returns. Responses
// arrive wrapped in prose, truncated, or littered with chat-template
// artifacts, so decoding runs a ladder of repair strategies before giving
// up: strict parse, textual fixes, balanced-object extraction, bare-key
// quoting, and closer completion. Repair is pure string work with no side
// effects, so the same input always decodes the same way.
package decode

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/quarrylabs/reqspan/internal/core/domain"
	"github.com/quarrylabs/reqspan/internal/logger"
)

// Error reports an irrecoverable decode after all repair strategies, keeping
// both the original payload and the last repaired attempt for diagnosis.
type Error struct {
	Raw        string
	LastRepair string
	Err        error
}

func (e *Error) Error() string {
	return fmt.Sprintf("decode module list: %v", e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

var (
	// Chat-template markers like <|im_end|> and their broken open forms.
	markerPattern     = regexp.MustCompile(`<\|[^|]*\|>`)
	markerOpenPattern = regexp.MustCompile(`<[｜|][^>":\n]*`)

	// Key names the markers tend to mangle mid-token.
	exactKeyPattern    = regexp.MustCompile(`"exact[^":]*":`)
	exactBrokenPattern = regexp.MustCompile(`"exact>\s*:`)
	exactPlainPattern  = regexp.MustCompile(`"exact"\s*:`)

	trailingCommaPattern  = regexp.MustCompile(`,(\s*[}\]])`)
	singleQuoteKeyPattern = regexp.MustCompile(`'([^']*)':\s*`)
	singleQuoteValPattern = regexp.MustCompile(`:(\s*)'([^']*)'(\s*[,}\]])`)
	controlCharPattern    = regexp.MustCompile(`[\x00-\x1f\x7f-\x9f]`)
	bareKeyPattern        = regexp.MustCompile(`([{,]\s*)([a-zA-Z_][a-zA-Z0-9_]*)\s*:`)
)

// ModuleList decodes a module-list payload, repairing malformed JSON where
// possible. The returned error is always a *Error when decoding fails.
func ModuleList(payload string) (domain.ModuleList, error) {
	var list domain.ModuleList
	if err := json.Unmarshal([]byte(payload), &list); err == nil {
		return list, nil
	}

	fixed := applyTextualFixes(payload)
	if err := json.Unmarshal([]byte(fixed), &list); err == nil {
		return list, nil
	}

	for _, candidate := range balancedObjects(fixed) {
		if err := json.Unmarshal([]byte(candidate), &list); err == nil {
			return list, nil
		}
	}

	fixed = bareKeyPattern.ReplaceAllString(fixed, `$1"$2":`)
	if err := json.Unmarshal([]byte(fixed), &list); err == nil {
		return list, nil
	}

	if closed, changed := appendClosers(fixed); changed {
		if err := json.Unmarshal([]byte(closed), &list); err == nil {
			return list, nil
		}
	}

	err := json.Unmarshal([]byte(fixed), &list)
	logger.Warn("module list JSON unrecoverable after repair: %v", err)
	return domain.ModuleList{}, &Error{Raw: payload, LastRepair: fixed, Err: err}
}

// ExtractObject locates the outermost JSON object embedded in a prose
// response. When the object is truncated, the slice runs to the last closing
// brace so the repair ladder can complete it.
func ExtractObject(response string) (string, bool) {
	start := strings.IndexByte(response, '{')
	if start < 0 {
		return "", false
	}

	depth := 0
	for i := start; i < len(response); i++ {
		switch response[i] {
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return response[start : i+1], true
			}
		}
	}

	end := strings.LastIndexByte(response, '}')
	if end <= start {
		// No closer at all: hand back the tail and let closer completion
		// repair it.
		return response[start:], true
	}
	return response[start : end+1], true
}

// applyTextualFixes repairs the recurring malformations in model output:
// chat markers, mangled key names, trailing commas, single-quoted
// keys/values, escaped quotes, and raw control characters.
func applyTextualFixes(payload string) string {
	fixed := markerPattern.ReplaceAllString(payload, "")
	fixed = markerOpenPattern.ReplaceAllString(fixed, "")

	fixed = exactKeyPattern.ReplaceAllString(fixed, `"exact_phrases":`)
	fixed = exactBrokenPattern.ReplaceAllString(fixed, `"exact_phrases":`)
	fixed = exactPlainPattern.ReplaceAllString(fixed, `"exact_phrases":`)

	fixed = trailingCommaPattern.ReplaceAllString(fixed, `$1`)
	fixed = singleQuoteKeyPattern.ReplaceAllString(fixed, `"$1": `)
	fixed = singleQuoteValPattern.ReplaceAllString(fixed, `:$1"$2"$3`)
	fixed = strings.ReplaceAll(fixed, `\"`, `"`)
	fixed = controlCharPattern.ReplaceAllString(fixed, "")
	return fixed
}

// balancedObjects returns every top-level brace-balanced substring, in
// order. Braces inside string values skew the count; a skewed candidate just
// fails its parse attempt.
func balancedObjects(payload string) []string {
	var candidates []string
	depth := 0
	start := -1
	for i := 0; i < len(payload); i++ {
		switch payload[i] {
		case '{':
			if depth == 0 {
				start = i
			}
			depth++
		case '}':
			depth--
			if depth == 0 && start >= 0 {
				candidates = append(candidates, payload[start:i+1])
				start = -1
			}
		}
	}
	return candidates
}

// appendClosers completes a truncated payload by appending the missing
// array closers, then the missing object closers.
func appendClosers(payload string) (string, bool) {
	braces := strings.Count(payload, "{") - strings.Count(payload, "}")
	brackets := strings.Count(payload, "[") - strings.Count(payload, "]")
	if braces <= 0 && brackets <= 0 {
		return payload, false
	}

	closed := strings.TrimRight(payload, " \t\r\n")
	if brackets > 0 {
		closed += strings.Repeat("]", brackets)
	}
	if braces > 0 {
		closed += strings.Repeat("}", braces)
	}
	return closed, true
}
