// Package expertise decides which expert personas should answer a user message.
package expertise

import (
	"strings"

	"github.com/zhouzirui/expert-panel/backend/internal/model/persona"
)

// Classifier evaluates its rules in priority order; the first match wins.
type Classifier struct {
	rules []Rule
}

// New builds the standard rule chain: direct mentions, roll call, keyword
// scan, then the zero-hit fallback.
func New(personas []persona.Persona) *Classifier {
	return NewWithRules(
		NewMentionRule(personas),
		RollCallRule{},
		KeywordRule{},
		FallbackRule{},
	)
}

// NewWithRules builds a classifier over a custom rule chain.
func NewWithRules(rules ...Rule) *Classifier {
	return &Classifier{rules: rules}
}

// Classify returns the experts to invoke, deduplicated, in invocation order.
// Blank input yields nil.
func (c *Classifier) Classify(text string) []persona.Expertise {
	experts, _ := c.Explain(text)
	return experts
}

// Explain is Classify plus the name of the rule that decided.
func (c *Classifier) Explain(text string) ([]persona.Expertise, string) {
	if strings.TrimSpace(text) == "" {
		return nil, ""
	}

	msg := NewMessage(text)
	for _, rule := range c.rules {
		if experts, ok := rule.Match(msg); ok {
			return dedupe(experts), rule.Name()
		}
	}
	return nil, ""
}
