// Package chunker splits documents into retrieval-sized pieces.
package chunker

import (
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"unicode/utf8"

	"webqa/internal/config"
	"webqa/internal/domain"
)

// New builds the chunker selected by cfg.Type.
func New(cfg config.ChunkerConfig, logger *slog.Logger) (domain.Chunker, error) {
	switch cfg.Type {
	case "", "character":
		return NewCharacterChunker(cfg.Size, cfg.Overlap, cfg.Separator, logger), nil
	case "sentence":
		return NewSentenceChunker(cfg.Size, cfg.Overlap, logger), nil
	default:
		return nil, fmt.Errorf("unknown chunker type: %s", cfg.Type)
	}
}

// merger packs pieces into chunks no longer than size, carrying up to overlap
// characters of trailing pieces into the next chunk.
type merger struct {
	size    int
	overlap int
	joiner  string
	logger  *slog.Logger
}

func (m merger) merge(pieces []string) []string {
	sepLen := utf8.RuneCountInString(m.joiner)
	var (
		out     []string
		current []string
		total   int
	)
	joined := func(n int) int {
		if n > 0 {
			return sepLen
		}
		return 0
	}

	for _, p := range pieces {
		plen := utf8.RuneCountInString(p)
		if total+plen+joined(len(current)) > m.size {
			if len(current) > 0 {
				if text := strings.TrimSpace(strings.Join(current, m.joiner)); text != "" {
					out = append(out, text)
				}
				for total > m.overlap || (total > 0 && total+plen+joined(len(current)) > m.size) {
					total -= utf8.RuneCountInString(current[0]) + joined(len(current)-1)
					current = current[1:]
				}
			}
		}
		current = append(current, p)
		total += plen + joined(len(current)-1)
		if plen > m.size {
			m.logger.Warn("chunk_oversized",
				slog.Int("length", plen),
				slog.Int("size", m.size))
		}
	}
	if text := strings.TrimSpace(strings.Join(current, m.joiner)); text != "" {
		out = append(out, text)
	}
	return out
}

func toChunks(doc domain.Document, texts []string) []domain.Chunk {
	if len(texts) == 0 {
		return nil
	}
	chunks := make([]domain.Chunk, len(texts))
	for i, text := range texts {
		chunks[i] = domain.Chunk{
			DocumentID: doc.ID,
			ChunkID:    doc.ID + ":" + strconv.Itoa(i),
			Source:     doc.Source,
			Title:      doc.Title,
			Text:       text,
			Index:      i,
		}
	}
	return chunks
}
