package revision

import (
	"testing"

	"github.com/easeaico/style-echo/internal/types"
)

func TestDiff(t *testing.T) {
	tests := []struct {
		name           string
		prev, content  string
		changed        bool
		added, removed int
	}{
		{name: "identical", prev: "a\nb", content: "a\nb", changed: false},
		{name: "whitespace only", prev: "a  b\n", content: "a b", changed: false},
		{name: "line added", prev: "a\nb", content: "a\nb\nc", changed: true, added: 1},
		{name: "line replaced", prev: "a\nb\nc", content: "a\nB\nc", changed: true, added: 1, removed: 1},
		{name: "from empty", prev: "", content: "a\nb", changed: true, added: 2},
		{name: "duplicate lines", prev: "x\nx", content: "x", changed: true, removed: 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Diff(types.Revision{PreviousContent: tt.prev, Content: tt.content})
			if got.Changed != tt.changed || got.LinesAdded != tt.added || got.LinesRemoved != tt.removed {
				t.Fatalf("Diff = %+v, want changed=%v +%d -%d", got, tt.changed, tt.added, tt.removed)
			}
			if len(got.ContentHash) != 64 {
				t.Fatalf("unexpected hash %q", got.ContentHash)
			}
		})
	}
}
