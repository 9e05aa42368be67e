// Copyright 2026 The Nobody Authors
// SPDX-License-Identifier: MIT

package npc

import (
	"sort"
	"strings"
)

// Defaults for the memory manager.
const (
	DefaultShortTermLimit     = 20
	DefaultLongTermLimit      = 200
	DefaultImportantThreshold = 0.75
)

// MemoryManager bounds and compresses NPC memory. Entries at or above the
// important threshold are mirrored into long-term and the important list.
type MemoryManager struct {
	shortTermLimit     int
	longTermLimit      int
	importantThreshold float64
}

// NewMemoryManager builds a manager; limits below 1 are raised to 1.
func NewMemoryManager(shortTermLimit, longTermLimit int, importantThreshold float64) *MemoryManager {
	if shortTermLimit < 1 {
		shortTermLimit = 1
	}
	if longTermLimit < 1 {
		longTermLimit = 1
	}
	return &MemoryManager{
		shortTermLimit:     shortTermLimit,
		longTermLimit:      longTermLimit,
		importantThreshold: importantThreshold,
	}
}

// NewDefaultMemoryManager returns a manager with the standard limits.
func NewDefaultMemoryManager() *MemoryManager {
	return NewMemoryManager(DefaultShortTermLimit, DefaultLongTermLimit, DefaultImportantThreshold)
}

// Add records an entry and compresses the memory back under its limits.
func (m *MemoryManager) Add(mem *Memory, entry MemoryEntry) {
	if entry.Importance >= m.importantThreshold {
		mem.Important = append(mem.Important, entry)
		mem.LongTerm = append(mem.LongTerm, entry)
	}

	mem.ShortTerm = append(mem.ShortTerm, entry)
	m.Compress(mem)
}

// Compress enforces the layer limits. Short-term overflow spills into
// long-term by importance; long-term is truncated by importance; long-term
// and important entries are deduped on (timestamp, event).
func (m *MemoryManager) Compress(mem *Memory) {
	if len(mem.ShortTerm) > m.shortTermLimit {
		sortByImportance(mem.ShortTerm)
		overflow := mem.ShortTerm[m.shortTermLimit:]
		mem.LongTerm = append(mem.LongTerm, overflow...)
		mem.ShortTerm = mem.ShortTerm[:m.shortTermLimit]
	}

	if len(mem.LongTerm) > m.longTermLimit {
		sortByImportance(mem.LongTerm)
		mem.LongTerm = mem.LongTerm[:m.longTermLimit]
	}

	sortByImportance(mem.LongTerm)
	mem.LongTerm = dedupAdjacent(mem.LongTerm)

	sortByImportance(mem.Important)
	mem.Important = dedupAdjacent(mem.Important)
}

// RetrieveRelevant returns up to maxResults entries across all layers,
// ranked by importance with a boost for entries mentioning keyword.
func (m *MemoryManager) RetrieveRelevant(mem *Memory, keyword string, maxResults int) []MemoryEntry {
	if maxResults < 1 {
		maxResults = 1
	}

	merged := make([]MemoryEntry, 0, len(mem.ShortTerm)+len(mem.LongTerm)+len(mem.Important))
	merged = append(merged, mem.ShortTerm...)
	merged = append(merged, mem.LongTerm...)
	merged = append(merged, mem.Important...)

	lower := strings.ToLower(keyword)
	score := func(e MemoryEntry) float64 {
		if strings.Contains(strings.ToLower(e.Event), lower) {
			impact := e.EmotionalImpact
			if impact < 0 {
				impact = -impact
			}
			return e.Importance + impact
		}
		return e.Importance * 0.5
	}
	sort.SliceStable(merged, func(i, j int) bool {
		return score(merged[i]) > score(merged[j])
	})

	if len(merged) > maxResults {
		merged = merged[:maxResults]
	}
	return merged
}

func sortByImportance(entries []MemoryEntry) {
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Importance > entries[j].Importance
	})
}

func dedupAdjacent(entries []MemoryEntry) []MemoryEntry {
	out := entries[:0]
	for _, e := range entries {
		if len(out) > 0 {
			last := out[len(out)-1]
			if last.Timestamp == e.Timestamp && last.Event == e.Event {
				continue
			}
		}
		out = append(out, e)
	}
	return out
}
