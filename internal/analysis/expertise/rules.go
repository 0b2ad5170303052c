package expertise

import (
	"fmt"
	"strings"

	"github.com/zhouzirui/expert-panel/backend/internal/model/persona"
)

// Message is the normalised form every rule inspects.
type Message struct {
	Raw     string
	Lower   string
	Trimmed string // lower-cased, surrounding whitespace removed
}

// NewMessage normalises raw user text.
func NewMessage(raw string) Message {
	lower := strings.ToLower(raw)
	return Message{Raw: raw, Lower: lower, Trimmed: strings.TrimSpace(lower)}
}

// Rule selects experts for a message. ok=false hands the message to the next rule.
type Rule interface {
	Name() string
	Match(msg Message) (experts []persona.Expertise, ok bool)
}

// MentionRule answers with exactly the experts the user addressed by name.
type MentionRule struct {
	personas []persona.Persona
}

// NewMentionRule builds a MentionRule over the registry.
func NewMentionRule(personas []persona.Persona) *MentionRule {
	return &MentionRule{personas: append([]persona.Persona(nil), personas...)}
}

func (r *MentionRule) Name() string { return "mention" }

func (r *MentionRule) Match(msg Message) ([]persona.Expertise, bool) {
	var found []persona.Expertise

	for _, p := range r.personas {
		if strings.Contains(msg.Lower, strings.ToLower(p.Name)) {
			found = append(found, p.Expertise)
		}
	}
	for _, p := range r.personas {
		name := strings.ToLower(p.Name)
		for _, pattern := range mentionPatterns {
			if strings.Contains(msg.Lower, fmt.Sprintf(pattern, name)) {
				found = append(found, p.Expertise)
				break
			}
		}
	}

	if len(found) == 0 {
		return nil, false
	}
	return dedupe(found), true
}

// RollCallRule answers with the whole technical panel.
type RollCallRule struct{}

func (RollCallRule) Name() string { return "roll_call" }

func (RollCallRule) Match(msg Message) ([]persona.Expertise, bool) {
	if !containsAny(msg.Lower, rollCallPhrases) {
		return nil, false
	}
	return append([]persona.Expertise(nil), rollCall...), true
}

// KeywordRule answers with experts whose keywords occur in the message.
// A lone technical hit gets one complementary colleague; several hits are capped.
type KeywordRule struct{}

func (KeywordRule) Name() string { return "keywords" }

func (KeywordRule) Match(msg Message) ([]persona.Expertise, bool) {
	hits := keywordHits(msg)
	switch {
	case len(hits) == 0:
		return nil, false
	case len(hits) == 1:
		if !isGeneric(msg) {
			if extra := complementary[hits[0]]; len(extra) > 0 {
				hits = append(hits, extra[0])
			}
		}
		return hits, true
	default:
		if len(hits) > maxMultiExperts {
			hits = hits[:maxMultiExperts]
		}
		return hits, true
	}
}

// FallbackRule resolves messages without keyword hits. It always matches.
type FallbackRule struct{}

func (FallbackRule) Name() string { return "fallback" }

func (FallbackRule) Match(msg Message) ([]persona.Expertise, bool) {
	if !isGeneric(msg) {
		return append([]persona.Expertise(nil), defaultTeam[:maxDefaultExperts]...), true
	}

	switch {
	case isPureGreeting(msg):
		return []persona.Expertise{greetingExpert}, true
	case isAcknowledgment(msg):
		return []persona.Expertise{acknowledgmentExpert}, true
	default:
		return []persona.Expertise{genericExpert}, true
	}
}

func keywordHits(msg Message) []persona.Expertise {
	var hits []persona.Expertise
	for _, bucket := range keywordBuckets {
		if containsAny(msg.Lower, bucket.Keywords) {
			hits = append(hits, bucket.Expertise)
		}
	}
	return hits
}

// isGeneric separates small talk from technical questions. Precedence matters:
// greetings and acknowledgments win over technical words, technical words win
// over generic words and short length.
func isGeneric(msg Message) bool {
	if isPureGreeting(msg) || isAcknowledgment(msg) {
		return true
	}
	if containsAny(msg.Lower, technicalIndicators) {
		return false
	}
	return containsAny(msg.Lower, genericIndicators) || len(strings.Fields(msg.Trimmed)) <= shortMessageWords
}

func isPureGreeting(msg Message) bool {
	for _, greeting := range pureGreetings {
		if msg.Trimmed == greeting {
			return true
		}
	}
	return false
}

func isAcknowledgment(msg Message) bool {
	return containsAny(msg.Trimmed, acknowledgmentStatements)
}

func containsAny(text string, needles []string) bool {
	for _, needle := range needles {
		if strings.Contains(text, needle) {
			return true
		}
	}
	return false
}

func dedupe(items []persona.Expertise) []persona.Expertise {
	seen := make(map[persona.Expertise]struct{}, len(items))
	out := make([]persona.Expertise, 0, len(items))
	for _, item := range items {
		if _, ok := seen[item]; ok {
			continue
		}
		seen[item] = struct{}{}
		out = append(out, item)
	}
	return out
}
