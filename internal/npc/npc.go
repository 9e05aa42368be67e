// Copyright 2026 The Nobody Authors
// SPDX-License-Identifier: MIT

// Package npc models non-player characters: personality, layered memory
// and relationships, plus the decision engine that reacts to game events.
package npc

// Trait is a personality trait.
type Trait string

const (
	Calm       Trait = "calm"
	Aggressive Trait = "aggressive"
	Cautious   Trait = "cautious"
	Ambitious  Trait = "ambitious"
	Righteous  Trait = "righteous"
	Scheming   Trait = "scheming"
)

// Goal is something an NPC wants, with a 0-10 priority.
type Goal struct {
	Description string `json:"description"`
	Priority    int    `json:"priority"`
}

// CoreValue is a weighted principle an NPC holds.
type CoreValue struct {
	Name   string  `json:"name"`
	Weight float64 `json:"weight"`
}

// Personality groups an NPC's traits, goals and values.
type Personality struct {
	Traits []Trait     `json:"traits"`
	Goals  []Goal      `json:"goals"`
	Values []CoreValue `json:"values"`
}

// HasTrait reports whether the personality carries the given trait.
func (p Personality) HasTrait(t Trait) bool {
	for _, have := range p.Traits {
		if have == t {
			return true
		}
	}
	return false
}

// MemoryEntry is a single remembered event. Importance is in [0,1],
// emotional impact in [-1,1].
type MemoryEntry struct {
	Timestamp       uint64  `json:"timestamp"`
	Event           string  `json:"event"`
	Importance      float64 `json:"importance"`
	EmotionalImpact float64 `json:"emotional_impact"`
}

// Memory holds the three memory layers. Important entries are mirrored
// into both long-term and the important list.
type Memory struct {
	ShortTerm []MemoryEntry `json:"short_term"`
	LongTerm  []MemoryEntry `json:"long_term"`
	Important []MemoryEntry `json:"important_events"`
}

// InteractionRecord is one entry in a relationship's history.
type InteractionRecord struct {
	Timestamp      uint64 `json:"timestamp"`
	Event          string `json:"event"`
	AffinityChange int    `json:"affinity_change"`
	TrustChange    int    `json:"trust_change"`
}

// Relationship tracks how an NPC feels about another character.
// Affinity and trust are clamped to [-100,100].
type Relationship struct {
	TargetID string              `json:"target_id"`
	Affinity int                 `json:"affinity"`
	Trust    int                 `json:"trust"`
	History  []InteractionRecord `json:"history"`
}

// NPC is a non-player character.
type NPC struct {
	ID            string                   `json:"id"`
	Name          string                   `json:"name"`
	Realm         string                   `json:"realm"`
	RealmLevel    int                      `json:"realm_level"`
	CombatPower   uint64                   `json:"combat_power"`
	Age           int                      `json:"age"`
	Personality   Personality              `json:"personality"`
	Memory        Memory                   `json:"memory"`
	Relationships map[string]*Relationship `json:"relationships"`
}
