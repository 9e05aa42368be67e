// Copyright 2026 The Nobody Authors
// SPDX-License-Identifier: MIT

// Package prompt assembles bounded LLM prompts from structured narrative
// context. When a prompt exceeds its token budget it is degraded in a fixed
// order: history breadth first, then per-field depth, then a last-resort hard
// truncation.
package prompt

import (
	"fmt"
	"strings"

	"github.com/nobodyrpg/nobody/internal/tokens"
)

// DefaultMaxHistoryItems caps how many history events a prompt starts with.
const DefaultMaxHistoryItems = 12

// Template selects the task instruction at the top of a prompt.
type Template string

const (
	ScriptGeneration Template = "script_generation"
	OptionGeneration Template = "option_generation"
	NPCDecision      Template = "npc_decision"
	PlotGeneration   Template = "plot_generation"
)

// instruction returns the fixed task header for the template.
func (t Template) instruction() string {
	switch t {
	case ScriptGeneration:
		return "Generate a complete cultivation world script with coherent settings."
	case OptionGeneration:
		return "Generate 2 to 5 actionable player options for the current scene."
	case NPCDecision:
		return "Generate an NPC decision consistent with personality and memory."
	case PlotGeneration:
		return "Generate novel-style plot text that follows from the latest events."
	default:
		return "Generate narrative content for the current scene."
	}
}

// Context carries the optional narrative fields rendered into a prompt.
type Context struct {
	Scene               string
	Location            string
	ActorName           string
	ActorRealm          string
	ActorCombatPower    uint64
	HasActorCombatPower bool
	HistoryEvents       []string
	WorldSettingSummary string
}

// Constraints carries free-text rules and an optional output schema hint.
type Constraints struct {
	NumericalRules   []string
	WorldRules       []string
	OutputSchemaHint string
}

// Builder renders prompts for a fixed maximum history size.
type Builder struct {
	maxHistoryItems int
}

// NewBuilder returns a Builder keeping at most maxHistoryItems history
// events. Values below 1 are raised to 1.
func NewBuilder(maxHistoryItems int) *Builder {
	if maxHistoryItems < 1 {
		maxHistoryItems = 1
	}
	return &Builder{maxHistoryItems: maxHistoryItems}
}

// NewDefaultBuilder returns a Builder with DefaultMaxHistoryItems.
func NewDefaultBuilder() *Builder {
	return NewBuilder(DefaultMaxHistoryItems)
}

// Build renders the prompt without a token budget.
func (b *Builder) Build(tmpl Template, ctx *Context, cons *Constraints) string {
	return b.BuildWithTokenLimit(tmpl, ctx, cons, int(^uint(0)>>1))
}

// BuildWithTokenLimit renders the prompt and degrades it until
// tokens.Estimate(prompt) <= max(maxPromptTokens, 1).
//
// Degradation order: drop the oldest remaining history item; once history is
// empty, truncate long fields to 256 characters, then 128; finally hard
// truncate the rendered text to maxPromptTokens*4 runes. The hard truncation
// is the one path that does not re-establish the token bound; it exists so a
// pathological context still yields a usable prompt instead of an error.
func (b *Builder) BuildWithTokenLimit(tmpl Template, ctx *Context, cons *Constraints, maxPromptTokens int) string {
	limit := maxPromptTokens
	if limit < 1 {
		limit = 1
	}

	historyCount := len(ctx.HistoryEvents)
	if historyCount > b.maxHistoryItems {
		historyCount = b.maxHistoryItems
	}
	textLimit := int(^uint(0) >> 1)

	for {
		rendered := b.render(tmpl, ctx, cons, historyCount, textLimit)
		if tokens.Estimate(rendered) <= limit {
			return rendered
		}

		switch {
		case historyCount > 0:
			historyCount--
		case textLimit > 256:
			textLimit = 256
		case textLimit > 128:
			textLimit = 128
		default:
			return truncateRunes(rendered, limit*4)
		}
	}
}

// EstimateTokens reports the token estimate the builder degrades against.
func (b *Builder) EstimateTokens(prompt string) int {
	return tokens.Estimate(prompt)
}

func (b *Builder) render(tmpl Template, ctx *Context, cons *Constraints, historyCount, textLimit int) string {
	var sb strings.Builder

	sb.WriteString("[Task]\n")
	sb.WriteString(tmpl.instruction())
	sb.WriteString("\n\n")

	sb.WriteString("[Context]\n")
	if ctx.Scene != "" {
		fmt.Fprintf(&sb, "Scene: %s\n", truncateField(ctx.Scene, textLimit))
	}
	if ctx.Location != "" {
		fmt.Fprintf(&sb, "Location: %s\n", truncateField(ctx.Location, textLimit))
	}
	if ctx.ActorName != "" {
		fmt.Fprintf(&sb, "Actor: %s\n", truncateField(ctx.ActorName, textLimit))
	}
	if ctx.ActorRealm != "" {
		fmt.Fprintf(&sb, "Realm: %s\n", truncateField(ctx.ActorRealm, textLimit))
	}
	if ctx.HasActorCombatPower {
		fmt.Fprintf(&sb, "CombatPower: %d\n", ctx.ActorCombatPower)
	}
	if ctx.WorldSettingSummary != "" {
		fmt.Fprintf(&sb, "WorldSetting: %s\n", truncateField(ctx.WorldSettingSummary, textLimit))
	}

	sb.WriteString("RecentHistory:\n")
	start := len(ctx.HistoryEvents) - historyCount
	for _, event := range ctx.HistoryEvents[start:] {
		sb.WriteString("- ")
		sb.WriteString(truncateField(event, textLimit))
		sb.WriteByte('\n')
	}
	if historyCount == 0 {
		sb.WriteString("- none\n")
	}
	sb.WriteByte('\n')

	sb.WriteString("[Constraints]\n")
	writeRuleList(&sb, "NumericalRules:", cons.NumericalRules)
	writeRuleList(&sb, "WorldRules:", cons.WorldRules)

	sb.WriteString("\n[OutputRequirements]\n")
	if cons.OutputSchemaHint != "" {
		sb.WriteString(cons.OutputSchemaHint)
		sb.WriteByte('\n')
	} else {
		sb.WriteString("Return valid JSON with deterministic fields when possible.\n")
	}
	sb.WriteString("Do not violate any numerical or world constraints.\n")

	return sb.String()
}

func writeRuleList(sb *strings.Builder, header string, rules []string) {
	sb.WriteString(header)
	sb.WriteByte('\n')
	if len(rules) == 0 {
		sb.WriteString("- none\n")
		return
	}
	for _, rule := range rules {
		sb.WriteString("- ")
		sb.WriteString(rule)
		sb.WriteByte('\n')
	}
}

// truncateField shortens a context field to limit runes, appending an
// ellipsis marker when anything was cut.
func truncateField(text string, limit int) string {
	runes := []rune(text)
	if len(runes) <= limit {
		return text
	}
	return string(runes[:limit]) + "..."
}

// truncateRunes cuts text to at most n runes with no marker.
func truncateRunes(text string, n int) string {
	runes := []rune(text)
	if len(runes) <= n {
		return text
	}
	return string(runes[:n])
}
