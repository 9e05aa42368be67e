package narrative

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/nobodyrpg/nobody/internal/llm"
	"github.com/nobodyrpg/nobody/internal/prompt"
	"github.com/nobodyrpg/nobody/internal/validate"
)

// DefaultImportTitle names an imported novel whose file has no usable stem.
const DefaultImportTitle = "导入小说"

// Import extraction parameters.
const (
	parseMaxKeyEvents = 20
	parseSummaryRunes = 220
	parseExcerptRunes = 1200
	parsePromptBudget = 700
	parseMaxTokens    = 350
	parseTemperature  = 0.2
	parseTimeout      = 18 * time.Second
)

// keyEventMarkers flag a line as a key event when any of them occurs in it.
var keyEventMarkers = []string{"battle", "breakthrough", "duel", "战", "突破"}

// ParsedNovel is the metadata extracted from an imported novel text.
type ParsedNovel struct {
	Title        string   `json:"title"`
	WorldSummary string   `json:"world_summary"`
	Characters   []string `json:"characters"`
	Locations    []string `json:"locations"`
	KeyEvents    []string `json:"key_events"`
}

// Parser extracts novel metadata. Rule-based extraction always runs; when a
// language model is configured its refinement replaces the rule-based result
// wholesale, and any refinement failure keeps the rule-based result.
type Parser struct {
	gen     llm.Generator
	builder *prompt.Builder
}

// NewParser returns a parser. A nil generator disables LLM refinement.
func NewParser(gen llm.Generator) *Parser {
	return &Parser{
		gen:     gen,
		builder: prompt.NewDefaultBuilder(),
	}
}

// ParseFile reads a novel from path and parses it. The title is taken from
// the file name without its extension.
func (p *Parser) ParseFile(ctx context.Context, path string) (*ParsedNovel, error) {
	data, err := os.ReadFile(path) //nolint:gosec // user-provided path
	if err != nil {
		return nil, fmt.Errorf("read novel: %w", err)
	}

	title := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	if title == "" || title == "." {
		title = DefaultImportTitle
	}
	return p.Parse(ctx, title, string(data))
}

// Parse extracts metadata from the novel content under the given title.
// Empty content is an error.
func (p *Parser) Parse(ctx context.Context, title, content string) (*ParsedNovel, error) {
	if strings.TrimSpace(content) == "" {
		return nil, errors.New("novel content is empty")
	}

	parsed := parseWithRules(title, content)
	if p.gen != nil {
		if refined, err := p.parseWithLLM(ctx, title, content); err == nil {
			return refined, nil
		} else {
			slog.Debug("novel parse fell back to rules", "title", title, "error", err)
		}
	}
	return parsed, nil
}

// parseWithRules runs the deterministic extraction: prefixed character and
// location lines, keyword-marked key events and a world summary line.
func parseWithRules(title, content string) *ParsedNovel {
	parsed := &ParsedNovel{
		Title:      title,
		Characters: extractPrefixed(content, "Character:", "角色："),
		Locations:  extractPrefixed(content, "Location:", "地点："),
	}

	for _, line := range strings.Split(content, "\n") {
		if len(parsed.KeyEvents) >= parseMaxKeyEvents {
			break
		}
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		for _, marker := range keyEventMarkers {
			if strings.Contains(line, marker) {
				parsed.KeyEvents = append(parsed.KeyEvents, line)
				break
			}
		}
	}

	parsed.WorldSummary = extractWorldSummary(content)
	return parsed
}

// extractPrefixed collects the values of lines starting with any of the
// prefixes, deduplicated and sorted.
func extractPrefixed(content string, prefixes ...string) []string {
	seen := make(map[string]struct{})
	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(line)
		for _, prefix := range prefixes {
			rest, ok := strings.CutPrefix(line, prefix)
			if !ok {
				continue
			}
			if rest = strings.TrimSpace(rest); rest != "" {
				seen[rest] = struct{}{}
			}
			break
		}
	}

	items := make([]string, 0, len(seen))
	for item := range seen {
		items = append(items, item)
	}
	sort.Strings(items)
	return items
}

// extractWorldSummary prefers an explicit world-setting line and otherwise
// summarizes the opening of the text.
func extractWorldSummary(content string) string {
	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(line)
		for _, prefix := range []string{"World:", "世界观："} {
			if rest, ok := strings.CutPrefix(line, prefix); ok {
				return strings.TrimSpace(rest)
			}
		}
	}
	return firstRunes(content, parseSummaryRunes)
}

func (p *Parser) parseWithLLM(ctx context.Context, title, content string) (*ParsedNovel, error) {
	ctx, cancel := context.WithTimeout(ctx, parseTimeout)
	defer cancel()

	pr := p.builder.BuildWithTokenLimit(prompt.ScriptGeneration,
		&prompt.Context{
			Scene:               "请解析小说元信息：" + title,
			HistoryEvents:       []string{firstRunes(content, parseExcerptRunes)},
			WorldSettingSummary: "提取角色、地点、世界观摘要、关键事件，输出 JSON",
		},
		&prompt.Constraints{
			WorldRules: []string{
				"只输出严格 JSON，不要 markdown",
				"字段必须包含: world_summary,characters,locations,key_events",
				"所有字段内容用中文",
			},
			OutputSchemaHint: `{"world_summary":"string","characters":["string"],"locations":["string"],"key_events":["string"]}`,
		},
		parsePromptBudget)

	maxTokens := parseMaxTokens
	temperature := parseTemperature
	resp, err := p.gen.Generate(ctx, llm.Request{
		Prompt:      pr,
		MaxTokens:   &maxTokens,
		Temperature: &temperature,
	})
	if err != nil {
		return nil, err
	}

	if err := validate.Response(resp, validate.Constraints{RequireJSON: true}); err != nil {
		return nil, err
	}
	doc, err := validate.ParseJSON(resp.Text)
	if err != nil {
		return nil, err
	}

	summary, ok := doc["world_summary"].(string)
	if !ok {
		return nil, fmt.Errorf("novel metadata missing world_summary")
	}
	characters, err := stringList(doc, "characters")
	if err != nil {
		return nil, err
	}
	locations, err := stringList(doc, "locations")
	if err != nil {
		return nil, err
	}
	keyEvents, err := stringList(doc, "key_events")
	if err != nil {
		return nil, err
	}

	return &ParsedNovel{
		Title:        title,
		WorldSummary: summary,
		Characters:   characters,
		Locations:    locations,
		KeyEvents:    keyEvents,
	}, nil
}

// stringList reads a JSON array field, keeping only its string elements.
func stringList(doc map[string]any, key string) ([]string, error) {
	raw, ok := doc[key].([]any)
	if !ok {
		return nil, fmt.Errorf("novel metadata missing %s", key)
	}
	out := make([]string, 0, len(raw))
	for _, v := range raw {
		if s, ok := v.(string); ok {
			out = append(out, s)
		}
	}
	return out, nil
}

// firstRunes takes at most n runes from the start of s.
func firstRunes(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
