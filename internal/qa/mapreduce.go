package qa

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"golang.org/x/sync/errgroup"

	"webqa/internal/domain"
)

// MapReduceConfig tunes the synthesizer.
type MapReduceConfig struct {
	Concurrency     int
	MaxCombineChars int
	MaxCollapses    int
}

// MapReduce extracts relevant text from each chunk, then combines the
// extracts into one answer with sources.
type MapReduce struct {
	model  domain.Completer
	cfg    MapReduceConfig
	logger *slog.Logger
}

type partial struct {
	text   string
	source string
}

func NewMapReduce(model domain.Completer, cfg MapReduceConfig, logger *slog.Logger) *MapReduce {
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 4
	}
	if cfg.MaxCombineChars <= 0 {
		cfg.MaxCombineChars = 12000
	}
	if cfg.MaxCollapses <= 0 {
		cfg.MaxCollapses = 3
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &MapReduce{model: model, cfg: cfg, logger: logger}
}

// Synthesize returns the reduced answer. With no relevant extracts it returns
// an empty Answer.
func (m *MapReduce) Synthesize(ctx context.Context, question string, results []domain.SearchResult) (domain.Answer, error) {
	partials, err := m.mapStep(ctx, question, results)
	if err != nil {
		return domain.Answer{}, err
	}
	if len(partials) == 0 {
		return domain.Answer{}, nil
	}

	partials, err = m.collapse(ctx, question, partials)
	if err != nil {
		return domain.Answer{}, err
	}

	out, err := m.model.Complete(ctx, reducePrompt(question, partials))
	if err != nil {
		return domain.Answer{}, fmt.Errorf("reduce: %w", err)
	}
	return ParseAnswer(out), nil
}

func (m *MapReduce) mapStep(ctx context.Context, question string, results []domain.SearchResult) ([]partial, error) {
	outs := make([]string, len(results))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(m.cfg.Concurrency)
	for i, r := range results {
		g.Go(func() error {
			out, err := m.model.Complete(gctx, mapPrompt(question, r.Chunk.Text))
			if err != nil {
				return fmt.Errorf("map chunk %d: %w", i, err)
			}
			outs[i] = out
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	partials := make([]partial, 0, len(outs))
	for i, out := range outs {
		out = strings.TrimSpace(out)
		if out == "" || strings.EqualFold(out, noRelevantText) {
			continue
		}
		partials = append(partials, partial{text: out, source: results[i].Chunk.Source})
	}
	m.logger.Debug("map_complete",
		slog.Int("chunks", len(results)),
		slog.Int("relevant", len(partials)))
	return partials, nil
}

// collapse merges partials batch by batch until their joined length fits
// MaxCombineChars or MaxCollapses rounds have run.
func (m *MapReduce) collapse(ctx context.Context, question string, partials []partial) ([]partial, error) {
	for round := 0; round < m.cfg.MaxCollapses && joinedLen(partials) > m.cfg.MaxCombineChars; round++ {
		groups := groupPartials(partials, m.cfg.MaxCombineChars)
		next := make([]partial, 0, len(groups))
		for _, grp := range groups {
			out, err := m.model.Complete(ctx, collapsePrompt(question, grp))
			if err != nil {
				return nil, fmt.Errorf("collapse: %w", err)
			}
			next = append(next, partial{text: strings.TrimSpace(out), source: joinSources(grp)})
		}
		m.logger.Debug("collapse_round",
			slog.Int("round", round+1),
			slog.Int("before", len(partials)),
			slog.Int("after", len(next)))
		partials = next
	}
	return partials, nil
}

func joinedLen(partials []partial) int {
	return len(formatPartials(partials))
}

// groupPartials packs partials greedily into groups whose formatted length
// stays under limit. A partial over the limit forms its own group.
func groupPartials(partials []partial, limit int) [][]partial {
	var groups [][]partial
	var current []partial
	for _, p := range partials {
		if len(current) > 0 && joinedLen(append(current[:len(current):len(current)], p)) > limit {
			groups = append(groups, current)
			current = nil
		}
		current = append(current, p)
	}
	if len(current) > 0 {
		groups = append(groups, current)
	}
	return groups
}

func joinSources(partials []partial) string {
	seen := make(map[string]bool)
	var out []string
	for _, p := range partials {
		for _, s := range strings.Split(p.source, ",") {
			s = strings.TrimSpace(s)
			if s != "" && !seen[s] {
				seen[s] = true
				out = append(out, s)
			}
		}
	}
	return strings.Join(out, ", ")
}

var sourcesMarkerRe = regexp.MustCompile(`(?i)sources:`)

// ParseAnswer splits model output at the last "SOURCES:" marker.
func ParseAnswer(out string) domain.Answer {
	out = strings.TrimSpace(out)
	matches := sourcesMarkerRe.FindAllStringIndex(out, -1)
	if len(matches) == 0 {
		return domain.Answer{Text: out}
	}
	last := matches[len(matches)-1]
	ans := domain.Answer{Text: strings.TrimSpace(out[:last[0]])}
	for _, s := range strings.Split(out[last[1]:], ",") {
		if s = strings.TrimSpace(s); s != "" {
			ans.Sources = append(ans.Sources, s)
		}
	}
	return ans
}
