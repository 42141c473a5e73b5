package sync

import (
	"strings"
	"testing"
)

func TestNormalize(t *testing.T) {
	n := NewBodyNormalizer()

	tests := []struct {
		name string
		body string
		want string
	}{
		{"empty", "", ""},
		{"plain text", "just text", "just text"},
		{"strips tags", "<p>Hello</p><p>World</p>", "Hello\nWorld"},
		{"drops style and script", "<style>p{color:red}</style><script>x()</script><p>Kept</p>", "Kept"},
		{"list items on own lines", "<ul><li>one</li><li>two</li></ul>", "one\ntwo"},
		{"collapses whitespace", "<div>a   b\t c</div>", "a b c"},
		{"zero width space removed", "a​b", "ab"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := n.Normalize(tt.body)
			if err != nil {
				t.Fatalf("Normalize() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("Normalize(%q) = %q, want %q", tt.body, got, tt.want)
			}
		})
	}
}

func TestNormalize_LimitsBlankRuns(t *testing.T) {
	n := NewBodyNormalizer()
	got, err := n.Normalize("<p>a</p><br><br><br><br><p>b</p>")
	if err != nil {
		t.Fatal(err)
	}
	if strings.Contains(got, "\n\n\n") {
		t.Errorf("more than two consecutive newlines survived: %q", got)
	}
}
