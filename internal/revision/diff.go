package revision

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"

	"github.com/easeaico/style-echo/internal/types"
)

// Summary describes what a revision changed.
type Summary struct {
	PreviousHash string `json:"previous_hash"`
	ContentHash  string `json:"content_hash"`
	Changed      bool   `json:"changed"`
	LinesAdded   int    `json:"lines_added"`
	LinesRemoved int    `json:"lines_removed"`
}

// Diff summarizes a revision. Hashes ignore whitespace-only edits; line
// counts compare lines as multisets, so moved lines are not counted.
func Diff(rev types.Revision) Summary {
	s := Summary{
		PreviousHash: ContentHash(rev.PreviousContent),
		ContentHash:  ContentHash(rev.Content),
	}
	s.Changed = s.PreviousHash != s.ContentHash

	counts := make(map[string]int)
	for _, line := range splitLines(rev.PreviousContent) {
		counts[line]++
	}
	for _, line := range splitLines(rev.Content) {
		if counts[line] > 0 {
			counts[line]--
			continue
		}
		s.LinesAdded++
	}
	for _, n := range counts {
		s.LinesRemoved += n
	}
	return s
}

// NormalizeForDiff collapses whitespace to stabilise hash comparisons.
func NormalizeForDiff(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// ContentHash computes a SHA-256 hash for the normalised content.
func ContentHash(content string) string {
	sum := sha256.Sum256([]byte(NormalizeForDiff(content)))
	return hex.EncodeToString(sum[:])
}

func splitLines(s string) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	lines := strings.Split(strings.ReplaceAll(s, "\r\n", "\n"), "\n")
	out := lines[:0]
	for _, line := range lines {
		if line = NormalizeForDiff(line); line != "" {
			out = append(out, line)
		}
	}
	return out
}
