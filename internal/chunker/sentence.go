package chunker

import (
	"log/slog"
	"regexp"
	"strings"

	"webqa/internal/domain"
)

// SentenceChunker packs whole sentences into chunks of at most size characters.
type SentenceChunker struct {
	splitter *regexp.Regexp
	m        merger
}

func NewSentenceChunker(size, overlap int, logger *slog.Logger) *SentenceChunker {
	if size <= 0 {
		size = 1024
	}
	if overlap < 0 || overlap >= size {
		overlap = 0
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &SentenceChunker{
		splitter: regexp.MustCompile(`[^.!?\n]+(?:[.!?]+|\n|$)`),
		m:        merger{size: size, overlap: overlap, joiner: " ", logger: logger},
	}
}

func (c *SentenceChunker) Chunk(document domain.Document) ([]domain.Chunk, error) {
	var sentences []string
	for _, s := range c.splitter.FindAllString(document.Content, -1) {
		if s = strings.TrimSpace(s); s != "" {
			sentences = append(sentences, s)
		}
	}
	return toChunks(document, c.m.merge(sentences)), nil
}
