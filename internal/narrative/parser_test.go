package narrative_test

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nobodyrpg/nobody/internal/llm"
	"github.com/nobodyrpg/nobody/internal/narrative"
)

const sampleNovel = `World: A sect-ruled continent where spiritual roots decide fate.
Character: Lin Feng
Character: Elder Mo
角色：苏晚晴
Location: Azure Cloud Sect
地点：青云山
Lin Feng won the duel at the outer gate.
林风在洞府中突破到筑基期。
An ordinary morning passed without incident.
`

func TestParse_RuleBasedExtraction(t *testing.T) {
	p := narrative.NewParser(nil)

	parsed, err := p.Parse(context.Background(), "Azure Road", sampleNovel)
	require.NoError(t, err)

	assert.Equal(t, "Azure Road", parsed.Title)
	assert.Equal(t, []string{"Elder Mo", "Lin Feng", "苏晚晴"}, parsed.Characters)
	assert.Equal(t, []string{"Azure Cloud Sect", "青云山"}, parsed.Locations)
	assert.Equal(t, "A sect-ruled continent where spiritual roots decide fate.", parsed.WorldSummary)
	require.Len(t, parsed.KeyEvents, 2)
	assert.Contains(t, parsed.KeyEvents[0], "duel")
	assert.Contains(t, parsed.KeyEvents[1], "突破")
}

func TestParse_DuplicateNamesCollapse(t *testing.T) {
	p := narrative.NewParser(nil)
	content := "Character: Lin Feng\nCharacter: Lin Feng\nCharacter:\nplain line\n"

	parsed, err := p.Parse(context.Background(), "t", content)
	require.NoError(t, err)
	assert.Equal(t, []string{"Lin Feng"}, parsed.Characters)
}

func TestParse_WorldSummaryFallsBackToOpening(t *testing.T) {
	p := narrative.NewParser(nil)
	content := strings.Repeat("云", 300)

	parsed, err := p.Parse(context.Background(), "t", content)
	require.NoError(t, err)
	assert.Equal(t, strings.Repeat("云", 220), parsed.WorldSummary)
}

func TestParse_KeyEventsCapped(t *testing.T) {
	p := narrative.NewParser(nil)
	var sb strings.Builder
	for i := 0; i < 30; i++ {
		fmt.Fprintf(&sb, "第%d场大战爆发。\n", i)
	}

	parsed, err := p.Parse(context.Background(), "t", sb.String())
	require.NoError(t, err)
	assert.Len(t, parsed.KeyEvents, 20)
}

func TestParse_EmptyContent(t *testing.T) {
	p := narrative.NewParser(nil)

	_, err := p.Parse(context.Background(), "t", "   \n\t")
	assert.ErrorContains(t, err, "empty")
}

func TestParse_LLMRefinementReplacesRules(t *testing.T) {
	mock := llm.NewMockGenerator(llm.MockResult{Response: &llm.Response{
		Text: `{"world_summary":"灵根决定命运的修仙大陆","characters":["林风","莫长老"],"locations":["青云宗"],"key_events":["外门比武夺魁"]}`,
	}})
	p := narrative.NewParser(mock)

	parsed, err := p.Parse(context.Background(), "Azure Road", sampleNovel)
	require.NoError(t, err)

	assert.Equal(t, "灵根决定命运的修仙大陆", parsed.WorldSummary)
	assert.Equal(t, []string{"林风", "莫长老"}, parsed.Characters)
	assert.Equal(t, []string{"青云宗"}, parsed.Locations)
	assert.Equal(t, []string{"外门比武夺魁"}, parsed.KeyEvents)

	calls := mock.Calls()
	require.Len(t, calls, 1)
	assert.Contains(t, calls[0].Prompt, "请解析小说元信息：Azure Road")
	require.NotNil(t, calls[0].MaxTokens)
	assert.Equal(t, 350, *calls[0].MaxTokens)
}

func TestParse_LLMFailureKeepsRuleResult(t *testing.T) {
	cases := map[string]llm.MockResult{
		"generator error": {Err: errors.New("backend down")},
		"not json":        {Response: &llm.Response{Text: "这不是 JSON"}},
		"missing field":   {Response: &llm.Response{Text: `{"world_summary":"x"}`}},
		"wrong type":      {Response: &llm.Response{Text: `{"world_summary":"x","characters":"not a list","locations":[],"key_events":[]}`}},
	}

	for name, result := range cases {
		t.Run(name, func(t *testing.T) {
			p := narrative.NewParser(llm.NewMockGenerator(result))

			parsed, err := p.Parse(context.Background(), "Azure Road", sampleNovel)
			require.NoError(t, err)
			assert.Equal(t, []string{"Elder Mo", "Lin Feng", "苏晚晴"}, parsed.Characters)
		})
	}
}

func TestParseFile_TitleFromFileName(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "凡人修仙.txt")
	require.NoError(t, os.WriteFile(path, []byte(sampleNovel), 0o600))

	p := narrative.NewParser(nil)
	parsed, err := p.ParseFile(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, "凡人修仙", parsed.Title)
	assert.NotEmpty(t, parsed.Characters)
}

func TestParseFile_MissingFile(t *testing.T) {
	p := narrative.NewParser(nil)

	_, err := p.ParseFile(context.Background(), filepath.Join(t.TempDir(), "missing.txt"))
	assert.ErrorContains(t, err, "read novel")
}
