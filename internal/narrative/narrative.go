// Package narrative turns the game's event log into a serialized novel,
// chapter by chapter, with a deterministic fallback when no language model
// is available.
package narrative

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/nobodyrpg/nobody/internal/event"
	"github.com/nobodyrpg/nobody/internal/llm"
	"github.com/nobodyrpg/nobody/internal/prompt"
	"github.com/nobodyrpg/nobody/internal/validate"
)

// Chapter is one generated chapter and the events it was drawn from.
type Chapter struct {
	Index          uint32   `json:"index"`
	Title          string   `json:"title"`
	Content        string   `json:"content"`
	SourceEventIDs []uint64 `json:"source_event_ids"`
}

// Novel is the full generated work.
type Novel struct {
	Title       string    `json:"title"`
	Chapters    []Chapter `json:"chapters"`
	TotalEvents int       `json:"total_events"`
}

// Generation parameters.
const (
	DefaultBatchSize = 8

	chapterPromptBudget = 600
	chapterMaxTokens    = 500
	chapterTemperature  = 0.8
	chapterConcurrency  = 4
)

// Generator builds novels from event history. A nil language model means
// every chapter uses the rule-based fallback.
type Generator struct {
	gen       llm.Generator
	builder   *prompt.Builder
	batchSize int
}

// GeneratorOption configures a Generator.
type GeneratorOption func(*Generator)

// WithGenerator enables LLM-backed chapter prose.
func WithGenerator(gen llm.Generator) GeneratorOption {
	return func(g *Generator) { g.gen = gen }
}

// WithBatchSize sets how many events feed each chapter (min 1).
func WithBatchSize(n int) GeneratorOption {
	return func(g *Generator) {
		if n < 1 {
			n = 1
		}
		g.batchSize = n
	}
}

// NewGenerator returns a generator with the default batch size.
func NewGenerator(opts ...GeneratorOption) *Generator {
	g := &Generator{
		builder:   prompt.NewDefaultBuilder(),
		batchSize: DefaultBatchSize,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// GenerateNovel produces a novel from events, sorted by timestamp then id
// and batched into chapters. An empty history yields a single placeholder
// chapter. Chapters are generated concurrently but returned in order.
func (g *Generator) GenerateNovel(ctx context.Context, title string, events []event.Event) (*Novel, error) {
	ordered := make([]event.Event, len(events))
	copy(ordered, events)
	sort.Slice(ordered, func(i, j int) bool {
		if ordered[i].Timestamp != ordered[j].Timestamp {
			return ordered[i].Timestamp < ordered[j].Timestamp
		}
		return ordered[i].ID < ordered[j].ID
	})

	if len(ordered) == 0 {
		return &Novel{
			Title: title,
			Chapters: []Chapter{{
				Index:   1,
				Title:   "第1章：静水初澜",
				Content: "尚无重大事件发生，你的修行旅程正等待展开。",
			}},
		}, nil
	}

	var batches [][]event.Event
	for start := 0; start < len(ordered); start += g.batchSize {
		end := start + g.batchSize
		if end > len(ordered) {
			end = len(ordered)
		}
		batches = append(batches, ordered[start:end])
	}

	chapters := make([]Chapter, len(batches))
	grp, gctx := errgroup.WithContext(ctx)
	grp.SetLimit(chapterConcurrency)
	for i, batch := range batches {
		grp.Go(func() error {
			ch, err := g.GenerateChapter(gctx, uint32(i+1), batch)
			if err != nil {
				return err
			}
			chapters[i] = ch
			return nil
		})
	}
	if err := grp.Wait(); err != nil {
		return nil, err
	}

	return &Novel{Title: title, Chapters: chapters, TotalEvents: len(ordered)}, nil
}

// GenerateChapter produces one chapter from a batch of events, preferring
// the language model and falling back to the deterministic rendition.
func (g *Generator) GenerateChapter(ctx context.Context, index uint32, events []event.Event) (Chapter, error) {
	ids := make([]uint64, len(events))
	for i, e := range events {
		ids[i] = e.ID
	}

	ch := Chapter{
		Index:          index,
		Title:          fmt.Sprintf("第%d章：命途流转", index),
		SourceEventIDs: ids,
	}

	if g.gen != nil {
		if content, err := g.chapterWithLLM(ctx, index, events); err == nil {
			ch.Content = content
			return ch, nil
		} else {
			slog.Debug("chapter generation fell back to rules", "chapter", index, "error", err)
		}
	}

	ch.Content = g.chapterFallback(events)
	return ch, nil
}

func (g *Generator) chapterWithLLM(ctx context.Context, index uint32, events []event.Event) (string, error) {
	lines := make([]string, len(events))
	for i, e := range events {
		lines[i] = fmt.Sprintf("[t=%d] %s: %s", e.Timestamp, e.Type, e.Description)
	}

	p := g.builder.BuildWithTokenLimit(prompt.PlotGeneration,
		&prompt.Context{
			Scene:               fmt.Sprintf("请根据时间线事件生成第 %d 章小说正文", index),
			ActorName:           "player",
			HistoryEvents:       []string{strings.Join(lines, "\n")},
			WorldSettingSummary: "修仙小说文风，保留事件顺序，章节结尾留出后续发展空间",
		},
		&prompt.Constraints{
			NumericalRules: []string{"保持时间顺序，不可颠倒因果"},
			WorldRules: []string{
				"仅输出中文纯文本",
				"字数控制在 300-700 字",
				"叙事风格接近连载网文",
			},
		},
		chapterPromptBudget)

	maxTokens := chapterMaxTokens
	temperature := chapterTemperature
	resp, err := g.gen.Generate(ctx, llm.Request{
		Prompt:      p,
		MaxTokens:   &maxTokens,
		Temperature: &temperature,
	})
	if err != nil {
		return "", err
	}

	if err := validate.Response(resp, validate.Constraints{}); err != nil {
		return "", err
	}
	return strings.TrimSpace(resp.Text), nil
}

func (g *Generator) chapterFallback(events []event.Event) string {
	if len(events) == 0 {
		return "这一章尚未掀起波澜，主角在平静中积蓄力量。"
	}

	lines := make([]string, 0, len(events)+2)
	lines = append(lines, "修行之路在以下片段中继续推进：")
	for _, e := range events {
		lines = append(lines, fmt.Sprintf("第%d日：%s（%s）", e.Timestamp, e.Description, e.Type))
	}
	lines = append(lines, "故事尚未结束，你的下一次选择将决定后续走向。")
	return strings.Join(lines, "\n")
}

// Export writes a plain-text rendition of the novel to path, creating
// parent directories as needed.
func Export(novel *Novel, path string) error {
	if parent := filepath.Dir(path); parent != "." {
		if err := os.MkdirAll(parent, 0o755); err != nil {
			return err
		}
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s\n\n", novel.Title)
	fmt.Fprintf(&b, "事件总数：%d\n\n", novel.TotalEvents)
	for _, ch := range novel.Chapters {
		fmt.Fprintf(&b, "第%d章 - %s\n", ch.Index, ch.Title)
		b.WriteString(ch.Content)
		b.WriteString("\n\n")
	}

	return os.WriteFile(path, []byte(b.String()), 0o644) //nolint:gosec // exported novel is not sensitive
}
