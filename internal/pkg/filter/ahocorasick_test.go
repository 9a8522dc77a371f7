package filter

import (
	"strconv"
	"testing"
)

func TestStripInvisible(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "plain text",
			input:    "hello world",
			expected: "hello world",
		},
		{
			name:     "zero width space",
			input:    "he\u200bllo",
			expected: "hello",
		},
		{
			name:     "byte order mark",
			input:    "\ufeffhi",
			expected: "hi",
		},
		{
			name:     "case preserved",
			input:    "HeLLo",
			expected: "HeLLo",
		},
		{
			name:     "empty string",
			input:    "",
			expected: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := StripInvisible(tt.input)
			if result != tt.expected {
				t.Errorf("StripInvisible(%q) = %q; want %q", tt.input, result, tt.expected)
			}
		})
	}
}

func TestIsBlank(t *testing.T) {
	tests := []struct {
		input    string
		expected bool
	}{
		{"", true},
		{"   ", true},
		{"\t\n", true},
		{"\u200b \u200d", true},
		{" a ", false},
		{"0", false},
	}

	for _, tt := range tests {
		if result := IsBlank(tt.input); result != tt.expected {
			t.Errorf("IsBlank(%q) = %v; want %v", tt.input, result, tt.expected)
		}
	}
}

func TestSplitKeywords(t *testing.T) {
	got := SplitKeywords("a,,b")
	if len(got) != 3 || got[0] != "a" || got[1] != "" || got[2] != "b" {
		t.Errorf("SplitKeywords(\"a,,b\") = %q", got)
	}
	if got := SplitKeywords(""); len(got) != 1 || got[0] != "" {
		t.Errorf("SplitKeywords(\"\") = %q", got)
	}
}

func has(ac *AhoCorasick, text, word string) bool {
	_, ok := ac.Contained(text)[word]
	return ok
}

func TestAhoCorasick_Build(t *testing.T) {
	ac := NewAhoCorasick()
	ac.Build([]string{"bad", "word", "badword", "bad", ""})

	if ac.Len() != 3 {
		t.Errorf("Len() = %d; want 3", ac.Len())
	}
	if !has(ac, "this contains bad content", "bad") {
		t.Error("Expected to find 'bad' in text")
	}
	if !has(ac, "this contains word", "word") {
		t.Error("Expected to find 'word' in text")
	}
	found := ac.Contained("this contains badword")
	if len(found) != 3 {
		t.Errorf("Expected bad, word and badword inside 'badword', got %v", found)
	}

	ac.Build([]string{"other"})
	if has(ac, "bad", "bad") || ac.Len() != 1 {
		t.Error("Expected Build to replace the previous patterns")
	}
}

func TestAhoCorasick_Contained(t *testing.T) {
	ac := NewAhoCorasick()
	ac.Build([]string{"he", "she", "his", "hers"})

	tests := []struct {
		name     string
		text     string
		expected []string
	}{
		{
			name:     "single match",
			text:     "he is here",
			expected: []string{"he"},
		},
		{
			name:     "overlapping matches",
			text:     "she",
			expected: []string{"he", "she"},
		},
		{
			name:     "multiple different matches",
			text:     "she said his name",
			expected: []string{"he", "she", "his"},
		},
		{
			name:     "suffix inside word",
			text:     "ushers",
			expected: []string{"he", "she", "hers"},
		},
		{
			name:     "partial match not counted",
			text:     "hi",
			expected: nil,
		},
		{
			name:     "empty text",
			text:     "",
			expected: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			found := ac.Contained(tt.text)
			if len(found) != len(tt.expected) {
				t.Fatalf("Contained(%q) = %v; want %v", tt.text, found, tt.expected)
			}
			for _, word := range tt.expected {
				if _, ok := found[word]; !ok {
					t.Errorf("Contained(%q) is missing %q", tt.text, word)
				}
			}
		})
	}
}

func TestAhoCorasick_ContainedMultibyte(t *testing.T) {
	ac := NewAhoCorasick()
	ac.Build([]string{"天气", "好", "hello", "lo"})

	found := ac.Contained("今天天气真好 hello")
	for _, want := range []string{"天气", "好", "hello", "lo"} {
		if _, ok := found[want]; !ok {
			t.Errorf("Expected %q to be contained", want)
		}
	}

	found = ac.Contained("天")
	if len(found) != 0 {
		t.Errorf("Expected nothing for partial multibyte keyword, got %v", found)
	}
}

func TestAhoCorasick_CaseSensitive(t *testing.T) {
	ac := NewAhoCorasick()
	ac.Build([]string{"Hello"})

	tests := []struct {
		text     string
		expected bool
	}{
		{"say Hello", true},
		{"say hello", false},
		{"say HELLO", false},
	}

	for _, tt := range tests {
		if result := has(ac, tt.text, "Hello"); result != tt.expected {
			t.Errorf("Contained(%q) has Hello = %v; want %v", tt.text, result, tt.expected)
		}
	}
}

func BenchmarkAhoCorasick_Contained(b *testing.B) {
	ac := NewAhoCorasick()
	patterns := make([]string, 1000)
	for i := 0; i < 1000; i++ {
		patterns[i] = "pattern" + strconv.Itoa(i)
	}
	ac.Build(patterns)

	text := "This is a long text that contains pattern1 and pattern42 and some other content that needs to be searched."

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		ac.Contained(text)
	}
}
