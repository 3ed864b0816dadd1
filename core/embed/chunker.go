package embed

import (
	"fmt"
	"strings"
)

// ChunkFunc splits a long text into pieces small enough to embed and store
// individually.
type ChunkFunc func(text string) ([]string, error)

// SentenceChunker creates a chunker that groups consecutive sentences.
func SentenceChunker(maxSentencesPerChunk int) ChunkFunc {
	return func(text string) ([]string, error) {
		if maxSentencesPerChunk <= 0 {
			return nil, fmt.Errorf("max sentences per chunk must be positive")
		}

		sentences := splitSentences(text)
		if len(sentences) == 0 {
			return []string{}, nil
		}

		var chunks []string
		var current []string
		for _, sentence := range sentences {
			current = append(current, sentence)
			if len(current) >= maxSentencesPerChunk {
				chunks = append(chunks, strings.Join(current, " "))
				current = nil
			}
		}
		if len(current) > 0 {
			chunks = append(chunks, strings.Join(current, " "))
		}

		return chunks, nil
	}
}

// ParagraphChunker creates a chunker that splits on blank lines.
func ParagraphChunker() ChunkFunc {
	return func(text string) ([]string, error) {
		var chunks []string
		for _, paragraph := range strings.Split(text, "\n\n") {
			paragraph = strings.TrimSpace(paragraph)
			if paragraph != "" {
				chunks = append(chunks, paragraph)
			}
		}
		return chunks, nil
	}
}

func splitSentences(text string) []string {
	text = strings.ReplaceAll(text, "! ", "!|")
	text = strings.ReplaceAll(text, "? ", "?|")
	text = strings.ReplaceAll(text, ". ", ".|")

	var sentences []string
	for _, s := range strings.Split(text, "|") {
		s = strings.TrimSpace(s)
		if s != "" {
			sentences = append(sentences, s)
		}
	}
	return sentences
}
