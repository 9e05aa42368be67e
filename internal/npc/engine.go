// Copyright 2026 The Nobody Authors
// SPDX-License-Identifier: MIT

package npc

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/nobodyrpg/nobody/internal/llm"
	"github.com/nobodyrpg/nobody/internal/prompt"
	"github.com/nobodyrpg/nobody/internal/validate"
)

// Event is something that happened in the world that NPCs react to.
// An empty InvolvedNPCIDs list means every registered NPC is affected.
type Event struct {
	Timestamp       uint64   `json:"timestamp"`
	Description     string   `json:"description"`
	InvolvedNPCIDs  []string `json:"involved_npc_ids"`
	Importance      float64  `json:"importance"`
	EmotionalImpact float64  `json:"emotional_impact"`
	AffinityImpact  int      `json:"affinity_impact"`
	TrustImpact     int      `json:"trust_impact"`
}

// Decision is what an NPC chose to do and why.
type Decision struct {
	NPCID  string `json:"npc_id"`
	Action string `json:"action"`
	Reason string `json:"reason"`
}

// Budgets for LLM-backed decisions.
const (
	decisionPromptBudget = 400
	decisionMaxTokens    = 200
	decisionTemperature  = 0.6
)

// Engine holds the NPC registry and drives reactions and decisions.
// Decisions go through the LLM when a generator is configured and fall
// back to deterministic rules otherwise, then pass a personality
// consistency check either way.
type Engine struct {
	npcs    map[string]*NPC
	memory  *MemoryManager
	gen     llm.Generator
	builder *prompt.Builder
}

// EngineOption configures an Engine.
type EngineOption func(*Engine)

// WithGenerator enables LLM-backed decisions.
func WithGenerator(gen llm.Generator) EngineOption {
	return func(e *Engine) { e.gen = gen }
}

// WithMemoryManager overrides the default memory limits.
func WithMemoryManager(m *MemoryManager) EngineOption {
	return func(e *Engine) { e.memory = m }
}

// NewEngine returns an empty engine.
func NewEngine(opts ...EngineOption) *Engine {
	e := &Engine{
		npcs:    make(map[string]*NPC),
		memory:  NewDefaultMemoryManager(),
		builder: prompt.NewDefaultBuilder(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Insert registers an NPC, replacing any previous NPC with the same id.
func (e *Engine) Insert(n *NPC) {
	if n.Relationships == nil {
		n.Relationships = make(map[string]*Relationship)
	}
	e.npcs[n.ID] = n
}

// Get returns the registered NPC with the given id.
func (e *Engine) Get(id string) (*NPC, bool) {
	n, ok := e.npcs[id]
	return n, ok
}

// ProcessEvent updates the memory of every affected NPC, collects their
// reaction decisions and applies pairwise relationship updates between
// the involved NPCs. Decisions are ordered by NPC id.
func (e *Engine) ProcessEvent(event Event) []Decision {
	affected := event.InvolvedNPCIDs
	if len(affected) == 0 {
		affected = make([]string, 0, len(e.npcs))
		for id := range e.npcs {
			affected = append(affected, id)
		}
	}
	sort.Strings(affected)

	var decisions []Decision
	for _, id := range affected {
		n, ok := e.npcs[id]
		if !ok {
			continue
		}
		e.remember(n, event)
		decisions = append(decisions, e.reaction(n, event))
	}

	e.applyPairwiseRelationships(event)
	return decisions
}

// UpdateRelationship applies affinity and trust deltas from npcID toward
// targetID, clamped to [-100,100], and appends an interaction record.
// Unknown NPC ids are ignored.
func (e *Engine) UpdateRelationship(npcID, targetID string, affinityDelta, trustDelta int, eventDesc string, timestamp uint64) {
	n, ok := e.npcs[npcID]
	if !ok {
		return
	}

	rel, ok := n.Relationships[targetID]
	if !ok {
		rel = &Relationship{TargetID: targetID}
		n.Relationships[targetID] = rel
	}

	rel.Affinity = clamp(rel.Affinity+affinityDelta, -100, 100)
	rel.Trust = clamp(rel.Trust+trustDelta, -100, 100)
	rel.History = append(rel.History, InteractionRecord{
		Timestamp:      timestamp,
		Event:          eventDesc,
		AffinityChange: affinityDelta,
		TrustChange:    trustDelta,
	})
}

// AutonomousActions produces one decision per registered NPC with no
// player input, ordered by NPC id.
func (e *Engine) AutonomousActions(ctx context.Context) []Decision {
	ids := make([]string, 0, len(e.npcs))
	for id := range e.npcs {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	decisions := make([]Decision, 0, len(ids))
	for _, id := range ids {
		d, err := e.Decide(ctx, id, "no player input")
		if err != nil {
			d = e.fallbackDecision(id, "no player input")
		}
		decisions = append(decisions, d)
	}
	return decisions
}

// Decide produces a decision for the NPC in the given situation. The LLM
// path is used when a generator is configured; any failure there falls
// back to the rule-based decision. The result always passes the
// personality consistency pass.
func (e *Engine) Decide(ctx context.Context, npcID, situation string) (Decision, error) {
	n, ok := e.npcs[npcID]
	if !ok {
		return Decision{}, fmt.Errorf("npc not found: %s", npcID)
	}

	decision := e.fallbackDecision(npcID, situation)
	if e.gen != nil {
		if d, err := e.decideWithLLM(ctx, n, situation); err == nil {
			decision = d
		} else {
			slog.Debug("npc decision fell back to rules", "npc", npcID, "error", err)
		}
	}

	return e.applyPersonality(n, decision), nil
}

func (e *Engine) decideWithLLM(ctx context.Context, n *NPC, situation string) (Decision, error) {
	history := make([]string, 0, 5)
	for i := len(n.Memory.ShortTerm) - 1; i >= 0 && len(history) < 5; i-- {
		history = append(history, n.Memory.ShortTerm[i].Event)
	}

	pctx := prompt.Context{
		Scene:               situation,
		ActorName:           n.Name,
		ActorRealm:          n.Realm,
		ActorCombatPower:    n.CombatPower,
		HasActorCombatPower: true,
		HistoryEvents:       history,
		WorldSettingSummary: "Cultivation world with strict numerical rules",
	}
	cons := prompt.Constraints{
		NumericalRules: []string{
			"action must not violate combat power realism",
			"decision should be executable in current realm",
		},
		WorldRules: []string{
			"respond in strict JSON only",
			"json keys: action, reason",
		},
		OutputSchemaHint: `{"action":"string","reason":"string"}`,
	}

	p := e.builder.BuildWithTokenLimit(prompt.NPCDecision, &pctx, &cons, decisionPromptBudget)

	maxTokens := decisionMaxTokens
	temperature := decisionTemperature
	resp, err := e.gen.Generate(ctx, llm.Request{
		Prompt:      p,
		MaxTokens:   &maxTokens,
		Temperature: &temperature,
	})
	if err != nil {
		return Decision{}, err
	}

	if err := validate.Response(resp, validate.Constraints{RequireJSON: true}); err != nil {
		return Decision{}, err
	}

	doc, err := validate.ParseJSON(resp.Text)
	if err != nil {
		return Decision{}, err
	}
	action, ok := doc["action"].(string)
	if !ok {
		return Decision{}, fmt.Errorf("llm decision missing action")
	}
	reason, ok := doc["reason"].(string)
	if !ok {
		return Decision{}, fmt.Errorf("llm decision missing reason")
	}

	return Decision{NPCID: n.ID, Action: action, Reason: reason}, nil
}

func (e *Engine) fallbackDecision(npcID, situation string) Decision {
	lower := strings.ToLower(situation)
	action := "observe_and_plan"
	switch {
	case strings.Contains(lower, "combat") || strings.Contains(lower, "battle"):
		action = "prepare_defense"
	case strings.Contains(lower, "resource") || strings.Contains(lower, "treasure"):
		action = "secure_resource"
	}

	return Decision{
		NPCID:  npcID,
		Action: action,
		Reason: fmt.Sprintf("Fallback decision for situation: %s", situation),
	}
}

func (e *Engine) applyPersonality(n *NPC, d Decision) Decision {
	if n.Personality.HasTrait(Cautious) && strings.Contains(d.Action, "reckless") {
		d.Action = "observe_and_plan"
		d.Reason += " | adjusted for cautious personality"
	}
	if n.Personality.HasTrait(Aggressive) && d.Action == "observe_and_plan" {
		d.Action = "intervene"
		d.Reason += " | adjusted for aggressive personality"
	}
	return d
}

func (e *Engine) reaction(n *NPC, event Event) Decision {
	aggressive := n.Personality.HasTrait(Aggressive)
	cautious := n.Personality.HasTrait(Cautious)

	var action string
	switch {
	case event.Importance >= 0.8 && aggressive:
		action = "intervene"
	case event.Importance >= 0.8 && cautious:
		action = "observe_carefully"
	case event.Importance >= 0.8:
		action = "respond"
	case cautious:
		action = "observe"
	default:
		action = "acknowledge"
	}

	return Decision{
		NPCID:  n.ID,
		Action: action,
		Reason: fmt.Sprintf("Reaction to event: %s", event.Description),
	}
}

func (e *Engine) remember(n *NPC, event Event) {
	e.memory.Add(&n.Memory, MemoryEntry{
		Timestamp:       event.Timestamp,
		Event:           event.Description,
		Importance:      clampFloat(event.Importance, 0, 1),
		EmotionalImpact: clampFloat(event.EmotionalImpact, -1, 1),
	})
}

func (e *Engine) applyPairwiseRelationships(event Event) {
	involved := event.InvolvedNPCIDs
	for i := range involved {
		for j := range involved {
			if i == j {
				continue
			}
			e.UpdateRelationship(involved[i], involved[j],
				event.AffinityImpact, event.TrustImpact,
				event.Description, event.Timestamp)
		}
	}
}

func clamp(v, min, max int) int {
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}

func clampFloat(v, min, max float64) float64 {
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}
