package text

import (
	"reflect"
	"testing"
)

func TestSplit(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		maxRunes int
		want     []string
	}{
		{"sentences", "Hello world. How are you? Fine!", 0, []string{"Hello world.", "How are you?", "Fine!"}},
		{"decimal point", "Pi is 3.14 today. Yes", 0, []string{"Pi is 3.14 today.", "Yes"}},
		{"trailing period", "Done.", 0, []string{"Done."}},
		{"newlines", "one\n\ntwo", 0, []string{"one", "two"}},
		{"cjk", "你好。今天天气很好！", 0, []string{"你好。", "今天天气很好！"}},
		{"max runes", "abcdefghij", 4, []string{"abcd", "efgh", "ij"}},
		{"empty", "", 0, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Split(tt.input, tt.maxRunes); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Split(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestSegmenter_StreamedChunks(t *testing.T) {
	s := NewSegmenter(0)
	var got []string
	for _, chunk := range []string{"The value is 2", ".5 units", ". Next sen", "tence? tail"} {
		got = append(got, s.Feed(chunk)...)
	}
	if last := s.Flush(); last != "" {
		got = append(got, last)
	}
	want := []string{"The value is 2.5 units.", "Next sentence?", "tail"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("segments = %q, want %q", got, want)
	}
}

func TestPlain(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"plain", "Hello world", "Hello world"},
		{"bold", "**bold** text", "bold text"},
		{"underscore bold", "__bold__ text", "bold text"},
		{"italic", "*italic* text", "italic text"},
		{"strike", "~~gone~~ text", "gone text"},
		{"inline code", "run `make` now", "run make now"},
		{"code block", "before ```x := 1``` after", "before  after"},
		{"heading", "# Title\n## Sub", "Title\nSub"},
		{"link", "see [docs](https://example.com)", "see docs"},
		{"image", "![a cat](cat.png)", "a cat"},
		{"html", "a <b>b</b> c", "a b c"},
		{"quote", "> quoted", "quoted"},
		{"list", "- one\n2. two", "one\ntwo"},
		{"rule", "a\n\n---\n\nb", "a\n\nb"},
		{"footnote", "claim[^1]", "claim"},
		{"snake case kept", "use snake_case_name", "use snake_case_name"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Plain(tt.input); got != tt.want {
				t.Errorf("Plain(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}
