package strings

import (
	"testing"
	"unicode/utf8"
)

func TestTruncate(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		maxLen   int
		expected string
	}{
		{
			name:     "short string unchanged",
			input:    "hello",
			maxLen:   10,
			expected: "hello",
		},
		{
			name:     "exact length unchanged",
			input:    "hello",
			maxLen:   5,
			expected: "hello",
		},
		{
			name:     "long image reference truncated",
			input:    "registry.example.com/team/app:1.2.3",
			maxLen:   20,
			expected: "registry.example....",
		},
		{
			name:     "multi-line description flattened",
			input:    "Web frontend\n  behind the proxy",
			maxLen:   40,
			expected: "Web frontend behind the proxy",
		},
		{
			name:     "tabs and repeated spaces collapsed",
			input:    "  a\t\tb    c  ",
			maxLen:   20,
			expected: "a b c",
		},
		{
			name:     "unicode truncation safe",
			input:    "日本語テスト文字列",
			maxLen:   6,
			expected: "日本語...",
		},
		{
			name:     "empty string",
			input:    "",
			maxLen:   10,
			expected: "",
		},
		{
			name:     "maxLen below minimum clamped",
			input:    "hello",
			maxLen:   0,
			expected: "h...",
		},
		{
			name:     "short string with small maxLen unchanged",
			input:    "hi",
			maxLen:   3,
			expected: "hi",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := Truncate(tt.input, tt.maxLen)
			if result != tt.expected {
				t.Errorf("Truncate(%q, %d) = %q, want %q", tt.input, tt.maxLen, result, tt.expected)
			}
			if n := utf8.RuneCountInString(result); n > tt.maxLen && tt.maxLen >= MinTruncateLen {
				t.Errorf("result has %d runes, limit %d", n, tt.maxLen)
			}
		})
	}
}

func TestTruncatePath(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		maxLen   int
		expected string
	}{
		{
			name:     "fits",
			input:    "/srv/units/web.container",
			maxLen:   40,
			expected: "/srv/units/web.container",
		},
		{
			name:     "keeps whole trailing components",
			input:    "/srv/quadlets/team/web.container",
			maxLen:   24,
			expected: ".../team/web.container",
		},
		{
			name:     "file name longer than limit",
			input:    "/srv/a-very-long-unit-name.container",
			maxLen:   12,
			expected: "...container",
		},
		{
			name:     "no separators",
			input:    "abcdefghij",
			maxLen:   6,
			expected: "...hij",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := TruncatePath(tt.input, tt.maxLen)
			if result != tt.expected {
				t.Errorf("TruncatePath(%q, %d) = %q, want %q", tt.input, tt.maxLen, result, tt.expected)
			}
		})
	}
}
