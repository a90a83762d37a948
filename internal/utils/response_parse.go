package utils

import (
	"errors"
	"strings"
)

// ErrEmptyOutput is returned when a model produced no usable text.
var ErrEmptyOutput = errors.New("empty model output")

// CleanGeneratedText strips wrappers models tend to add around a rewrite:
// a surrounding code fence and a leading "Rewritten text:" style label.
func CleanGeneratedText(raw string) (string, error) {
	clean := strings.TrimSpace(raw)

	if strings.HasPrefix(clean, "```") {
		clean = strings.TrimPrefix(clean, "```")
		if nl := strings.IndexByte(clean, '\n'); nl >= 0 {
			// drop the language tag line
			clean = clean[nl+1:]
		}
		clean = strings.TrimSuffix(strings.TrimSpace(clean), "```")
		clean = strings.TrimSpace(clean)
	}

	if head, rest, ok := strings.Cut(clean, "\n"); ok {
		label := strings.ToLower(strings.TrimSpace(head))
		for _, prefix := range []string{"rewritten text:", "rewrite:", "result:"} {
			if label == prefix {
				clean = strings.TrimSpace(rest)
				break
			}
		}
	}

	if clean == "" {
		return "", ErrEmptyOutput
	}
	return clean, nil
}
