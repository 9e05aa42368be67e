// Copyright 2026 The Nobody Authors
// SPDX-License-Identifier: MIT

package npc_test

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nobodyrpg/nobody/internal/llm"
	"github.com/nobodyrpg/nobody/internal/npc"
)

func testNPC(id string, traits ...npc.Trait) *npc.NPC {
	if len(traits) == 0 {
		traits = []npc.Trait{npc.Calm}
	}
	return &npc.NPC{
		ID:          id,
		Name:        "NPC " + id,
		Realm:       "Qi Condensation",
		RealmLevel:  1,
		CombatPower: 120,
		Age:         20,
		Personality: npc.Personality{
			Traits: traits,
			Goals:  []npc.Goal{{Description: "survive", Priority: 7}},
			Values: []npc.CoreValue{{Name: "self-preservation", Weight: 0.9}},
		},
	}
}

func TestProcessEvent_GeneratesDecisionsForInvolvedNPCs(t *testing.T) {
	e := npc.NewEngine()
	e.Insert(testNPC("a", npc.Aggressive))
	e.Insert(testNPC("b", npc.Calm, npc.Cautious))

	decisions := e.ProcessEvent(npc.Event{
		Timestamp:       1,
		Description:     "A demonic beast appears",
		InvolvedNPCIDs:  []string{"a", "b"},
		Importance:      0.9,
		EmotionalImpact: 0.7,
		AffinityImpact:  5,
		TrustImpact:     3,
	})

	require.Len(t, decisions, 2)
	assert.Equal(t, "a", decisions[0].NPCID)
	assert.Equal(t, "intervene", decisions[0].Action)
	assert.Equal(t, "b", decisions[1].NPCID)
	assert.Equal(t, "observe_carefully", decisions[1].Action)
}

func TestProcessEvent_EmptyInvolvedMeansEveryone(t *testing.T) {
	rng := rand.New(rand.NewSource(31))
	for iter := 0; iter < 20; iter++ {
		e := npc.NewEngine()
		count := 1 + rng.Intn(6)
		for i := 0; i < count; i++ {
			e.Insert(testNPC(fmt.Sprintf("n%d", i)))
		}

		decisions := e.ProcessEvent(npc.Event{
			Timestamp:       1,
			Description:     "a comet crosses the sky",
			Importance:      rng.Float64(),
			EmotionalImpact: rng.Float64()*2 - 1,
		})
		assert.Len(t, decisions, count)
	}
}

func TestProcessEvent_UnknownIDsSkipped(t *testing.T) {
	e := npc.NewEngine()
	e.Insert(testNPC("a"))

	decisions := e.ProcessEvent(npc.Event{
		Timestamp:      1,
		Description:    "duel",
		InvolvedNPCIDs: []string{"a", "ghost"},
		Importance:     0.5,
	})
	require.Len(t, decisions, 1)
	assert.Equal(t, "a", decisions[0].NPCID)
}

func TestProcessEvent_UpdatesMemory(t *testing.T) {
	e := npc.NewEngine()
	e.Insert(testNPC("a"))

	e.ProcessEvent(npc.Event{
		Timestamp:      5,
		Description:    "witnessed a breakthrough",
		InvolvedNPCIDs: []string{"a"},
		Importance:     0.9,
	})

	n, ok := e.Get("a")
	require.True(t, ok)
	require.NotEmpty(t, n.Memory.ShortTerm)
	assert.Equal(t, "witnessed a breakthrough", n.Memory.ShortTerm[0].Event)
	assert.NotEmpty(t, n.Memory.Important)
}

func TestProcessEvent_ClampsMemoryImpacts(t *testing.T) {
	e := npc.NewEngine()
	e.Insert(testNPC("a"))

	e.ProcessEvent(npc.Event{
		Timestamp:       1,
		Description:     "overwhelming tribulation",
		InvolvedNPCIDs:  []string{"a"},
		Importance:      7.5,
		EmotionalImpact: -9.0,
	})

	n, _ := e.Get("a")
	require.NotEmpty(t, n.Memory.ShortTerm)
	assert.Equal(t, 1.0, n.Memory.ShortTerm[0].Importance)
	assert.Equal(t, -1.0, n.Memory.ShortTerm[0].EmotionalImpact)
}

func TestUpdateRelationship_ClampsValues(t *testing.T) {
	e := npc.NewEngine()
	e.Insert(testNPC("a"))

	e.UpdateRelationship("a", "b", 200, -200, "conflict", 1)

	n, _ := e.Get("a")
	rel := n.Relationships["b"]
	require.NotNil(t, rel)
	assert.Equal(t, 100, rel.Affinity)
	assert.Equal(t, -100, rel.Trust)
	assert.Len(t, rel.History, 1)
}

func TestUpdateRelationship_DeltasAccumulate(t *testing.T) {
	rng := rand.New(rand.NewSource(14))
	for iter := 0; iter < 50; iter++ {
		e := npc.NewEngine()
		e.Insert(testNPC("n1"))

		affinity := rng.Intn(41) - 20
		trust := rng.Intn(41) - 20
		e.UpdateRelationship("n1", "n2", affinity, trust, "interaction", 1)

		n, _ := e.Get("n1")
		rel := n.Relationships["n2"]
		require.NotNil(t, rel)
		assert.Equal(t, affinity, rel.Affinity)
		assert.Equal(t, trust, rel.Trust)
		assert.Len(t, rel.History, 1)
	}
}

func TestProcessEvent_PairwiseRelationshipUpdates(t *testing.T) {
	e := npc.NewEngine()
	e.Insert(testNPC("a"))
	e.Insert(testNPC("b"))

	e.ProcessEvent(npc.Event{
		Timestamp:      1,
		Description:    "joint expedition",
		InvolvedNPCIDs: []string{"a", "b"},
		Importance:     0.5,
		AffinityImpact: 5,
		TrustImpact:    3,
	})

	a, _ := e.Get("a")
	b, _ := e.Get("b")
	require.NotNil(t, a.Relationships["b"])
	require.NotNil(t, b.Relationships["a"])
	assert.Equal(t, 5, a.Relationships["b"].Affinity)
	assert.Equal(t, 3, b.Relationships["a"].Trust)
}

func TestDecide_FallbackByKeyword(t *testing.T) {
	e := npc.NewEngine()
	e.Insert(testNPC("a"))

	cases := map[string]string{
		"combat in the outer sect":     "prepare_defense",
		"a hidden treasure is rumored": "secure_resource",
		"quiet morning at the temple":  "observe_and_plan",
	}
	for situation, want := range cases {
		d, err := e.Decide(context.Background(), "a", situation)
		require.NoError(t, err)
		assert.Equal(t, want, d.Action, "situation %q", situation)
		assert.NotEmpty(t, d.Reason)
	}
}

func TestDecide_UnknownNPC(t *testing.T) {
	e := npc.NewEngine()
	_, err := e.Decide(context.Background(), "ghost", "anything")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "npc not found")
}

func TestDecide_LLMPathParsesActionAndReason(t *testing.T) {
	gen := llm.NewMockGenerator(llm.MockResult{Response: &llm.Response{
		Text: `{"action":"retreat_to_mountain","reason":"outmatched"}`,
	}})
	e := npc.NewEngine(npc.WithGenerator(gen))
	e.Insert(testNPC("a"))

	d, err := e.Decide(context.Background(), "a", "rival sect invasion")
	require.NoError(t, err)
	assert.Equal(t, "retreat_to_mountain", d.Action)
	assert.Equal(t, "outmatched", d.Reason)

	calls := gen.Calls()
	require.Len(t, calls, 1)
	assert.Contains(t, calls[0].Prompt, "rival sect invasion")
	assert.Contains(t, calls[0].Prompt, "NPC a")
}

func TestDecide_LLMFailureFallsBackToRules(t *testing.T) {
	for _, result := range []llm.MockResult{
		{Err: errors.New("backend down")},
		{Response: &llm.Response{Text: "not json at all"}},
		{Response: &llm.Response{Text: `{"reason":"no action key"}`}},
	} {
		gen := llm.NewMockGenerator(result)
		e := npc.NewEngine(npc.WithGenerator(gen))
		e.Insert(testNPC("a"))

		d, err := e.Decide(context.Background(), "a", "combat at the gate")
		require.NoError(t, err)
		assert.Equal(t, "prepare_defense", d.Action)
	}
}

func TestDecide_CautiousOverridesRecklessAction(t *testing.T) {
	gen := llm.NewMockGenerator(llm.MockResult{Response: &llm.Response{
		Text: `{"action":"reckless_assault","reason":"glory"}`,
	}})
	e := npc.NewEngine(npc.WithGenerator(gen))
	e.Insert(testNPC("a", npc.Cautious))

	d, err := e.Decide(context.Background(), "a", "duel invitation")
	require.NoError(t, err)
	assert.Equal(t, "observe_and_plan", d.Action)
	assert.Contains(t, d.Reason, "adjusted for cautious personality")
}

func TestDecide_AggressiveNeverObservesAndPlans(t *testing.T) {
	e := npc.NewEngine()
	e.Insert(testNPC("a", npc.Aggressive))

	d, err := e.Decide(context.Background(), "a", "quiet morning")
	require.NoError(t, err)
	assert.Equal(t, "intervene", d.Action)
	assert.Contains(t, d.Reason, "adjusted for aggressive personality")
}

func TestAutonomousActions_OnePerNPC(t *testing.T) {
	e := npc.NewEngine()
	e.Insert(testNPC("a"))
	e.Insert(testNPC("b", npc.Aggressive))
	e.Insert(testNPC("c", npc.Cautious))

	actions := e.AutonomousActions(context.Background())
	require.Len(t, actions, 3)
	for i, id := range []string{"a", "b", "c"} {
		assert.Equal(t, id, actions[i].NPCID)
		assert.NotEmpty(t, actions[i].Action)
	}
}
