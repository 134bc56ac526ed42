package chunker

import (
	"log/slog"
	"strings"

	"webqa/internal/domain"
)

// CharacterChunker splits on a separator and greedily merges the pieces back
// up to a character budget. A piece longer than the budget is kept whole.
type CharacterChunker struct {
	separator string
	m         merger
}

func NewCharacterChunker(size, overlap int, separator string, logger *slog.Logger) *CharacterChunker {
	if size <= 0 {
		size = 1024
	}
	if overlap < 0 || overlap >= size {
		overlap = 0
	}
	if separator == "" {
		separator = "\n\n"
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &CharacterChunker{
		separator: separator,
		m:         merger{size: size, overlap: overlap, joiner: separator, logger: logger},
	}
}

func (c *CharacterChunker) Chunk(document domain.Document) ([]domain.Chunk, error) {
	var pieces []string
	for _, p := range strings.Split(document.Content, c.separator) {
		if strings.TrimSpace(p) != "" {
			pieces = append(pieces, p)
		}
	}
	return toChunks(document, c.m.merge(pieces)), nil
}
