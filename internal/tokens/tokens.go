// Package tokens provides the token estimation heuristic shared by the
// prompt builder and the LLM client.
package tokens

import (
	"strings"
	"unicode/utf8"
)

// Estimate returns a rough token count for text.
//
// If the text contains at least one whitespace-separated word, the word count
// is the estimate. Otherwise (a single unbroken run of characters) the
// estimate is ceil(runes/4). The asymmetry is deliberate: the prompt
// degradation loop relies on shorter text always producing a smaller or equal
// estimate, so this heuristic must not be "improved" in isolation.
func Estimate(text string) int {
	if words := len(strings.Fields(text)); words > 0 {
		return words
	}
	return (utf8.RuneCountInString(text) + 3) / 4
}
