// Package text prepares written text for speech synthesis.
package text

import (
	"strings"
	"unicode"
)

// Segmenter cuts streamed text into sentences. A period only ends a
// sentence when followed by whitespace, so "3.14" stays intact.
type Segmenter struct {
	MaxRunes int

	buffer     []rune
	afterPoint bool
}

func NewSegmenter(maxRunes int) *Segmenter {
	return &Segmenter{MaxRunes: maxRunes}
}

// Feed appends text and returns the sentences it completed.
func (s *Segmenter) Feed(text string) []string {
	var outputs []string
	for _, r := range text {
		if s.afterPoint {
			s.afterPoint = false
			if unicode.IsSpace(r) {
				outputs = appendSentence(outputs, s.flushBuffer())
				continue
			}
		}
		s.buffer = append(s.buffer, r)
		switch {
		case isSentenceBoundary(r):
			outputs = appendSentence(outputs, s.flushBuffer())
		case r == '.':
			s.afterPoint = true
		case s.MaxRunes > 0 && len(s.buffer) >= s.MaxRunes:
			outputs = appendSentence(outputs, s.flushBuffer())
		}
	}
	return outputs
}

// Flush returns whatever is buffered.
func (s *Segmenter) Flush() string {
	s.afterPoint = false
	return s.flushBuffer()
}

// Split segments a complete text.
func Split(text string, maxRunes int) []string {
	s := NewSegmenter(maxRunes)
	return appendSentence(s.Feed(text), s.Flush())
}

func (s *Segmenter) flushBuffer() string {
	if len(s.buffer) == 0 {
		return ""
	}
	sentence := strings.TrimSpace(string(s.buffer))
	s.buffer = s.buffer[:0]
	return sentence
}

func appendSentence(out []string, sentence string) []string {
	if sentence == "" {
		return out
	}
	return append(out, sentence)
}

func isSentenceBoundary(r rune) bool {
	switch r {
	case '\n', '!', '?', ';', '。', '！', '？', '；', '…':
		return true
	default:
		return false
	}
}
