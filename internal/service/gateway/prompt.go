package gateway

import (
	"fmt"
	"strings"

	"github.com/zhouzirui/expert-panel/backend/internal/model/persona"
)

var identityRules = []string{
	"Your name is exactly %[1]s and your expertise is exactly %[2]s",
	"When introducing yourself say \"I'm %[1]s\" and never use another expert's name",
	"Questions that mention %[1]s are addressed to you",
}

var behaviourRules = []string{
	"Speak in the first person and never refer to yourself by name",
	"Answer only what the current message asks; do not bring up technologies, projects or topics the user did not mention",
	"If the user says they have no questions about something, acknowledge it briefly and stop",
	"Read what the other experts said and do not repeat it; add a different angle or a concrete detail",
	"Build on other experts by name when you agree with them",
	"Skip greetings and openers like \"Great question!\"; get straight to the point",
	"Keep answers focused, usually two to four sentences",
}

var formattingRules = []string{
	"Use markdown",
	"Use **bold** for key points",
	"Use numbered or bulleted lists for steps",
	"Use `code` for inline commands and fenced code blocks for multi-line examples",
}

// SystemPrompt assembles the system instruction for one persona turn. The
// discussion block is included only when non-empty.
func SystemPrompt(p persona.Persona, discussion string) string {
	var builder strings.Builder
	builder.WriteString(p.Prompt)

	builder.WriteString("\n\n**Your identity:**\n")
	for _, rule := range identityRules {
		builder.WriteString("- ")
		builder.WriteString(fmt.Sprintf(rule, p.Name, string(p.Expertise)))
		builder.WriteString("\n")
	}

	if discussion != "" {
		builder.WriteString("\n**Previous Conversation Context:**\n")
		builder.WriteString(discussion)
		builder.WriteString("\n")
	}

	builder.WriteString("\n**Discussion rules:**\n- ")
	builder.WriteString(strings.Join(behaviourRules, "\n- "))
	builder.WriteString("\n\n**Formatting:**\n- ")
	builder.WriteString(strings.Join(formattingRules, "\n- "))

	return builder.String()
}
