package expertise

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zhouzirui/expert-panel/backend/internal/model/persona"
)

func newClassifier() *Classifier {
	return New(persona.Seed())
}

func TestClassifyGreeting(t *testing.T) {
	c := newClassifier()
	for _, text := range []string{"Hello", "  HEY! ", "good morning"} {
		experts, rule := c.Explain(text)
		assert.Equal(t, []persona.Expertise{persona.Backend}, experts, text)
		assert.Equal(t, "fallback", rule, text)
	}
}

func TestClassifyKeywordDetectionOrder(t *testing.T) {
	c := newClassifier()
	got := c.Classify("Hi there, how do I deploy with Docker and also need React component help")
	assert.Equal(t, []persona.Expertise{persona.DevOps, persona.Frontend}, got)
}

func TestClassifyDirectMentionWinsOverKeywords(t *testing.T) {
	c := newClassifier()

	got := c.Classify("Zubair Lutfullah, how should I wire Kubernetes into my React and GraphQL app?")
	assert.Equal(t, []persona.Expertise{persona.DevOps}, got)

	got = c.Classify("Sarah Chen, can all experts weigh in?")
	assert.Equal(t, []persona.Expertise{persona.ProductManager}, got)
}

func TestClassifyMultipleMentionsFollowRegistryOrder(t *testing.T) {
	c := newClassifier()
	got := c.Classify("ashar khan and NOREEN JAMIL: thoughts on indexes?")
	assert.Equal(t, []persona.Expertise{persona.Frontend, persona.Database}, got)
}

func TestClassifyRollCall(t *testing.T) {
	c := newClassifier()
	got, rule := c.Explain("Can all experts introduce yourselves and talk about kubernetes?")
	assert.Equal(t, "roll_call", rule)
	assert.Equal(t, []persona.Expertise{
		persona.Backend, persona.Frontend, persona.ReactNative, persona.DevOps, persona.Mobile,
		persona.AIML, persona.Database, persona.Security, persona.Architecture, persona.Cloud,
	}, got)
}

func TestClassifySingleTechnicalHitAddsComplement(t *testing.T) {
	c := newClassifier()
	got := c.Classify("How can I speed up my slow postgres joins?")
	assert.Equal(t, []persona.Expertise{persona.Database, persona.Backend}, got)
}

func TestClassifySingleGenericHitStaysAlone(t *testing.T) {
	c := newClassifier()
	got := c.Classify("tell me about docker")
	assert.Equal(t, []persona.Expertise{persona.DevOps}, got)
}

func TestClassifyMultiHitTruncatesToFour(t *testing.T) {
	c := newClassifier()
	got := c.Classify("We need docker, react, graphql, postgres and jwt")
	assert.Equal(t, []persona.Expertise{
		persona.DevOps, persona.Frontend, persona.Backend, persona.Database,
	}, got)
}

func TestClassifyZeroHitResolution(t *testing.T) {
	c := newClassifier()

	cases := map[string][]persona.Expertise{
		"I don't have any questions about it": {persona.Backend},
		"what's up?":                          {persona.Backend},
		"???":                                 {persona.Backend},
		"How do I debug this strange error?":  {persona.Backend, persona.Frontend},
	}
	for text, want := range cases {
		assert.Equal(t, want, c.Classify(text), text)
	}
}

func TestClassifyBlankInput(t *testing.T) {
	c := newClassifier()
	assert.Nil(t, c.Classify(""))
	assert.Nil(t, c.Classify(" \n\t "))
}

func TestClassifyAlwaysNonEmptyAndDeduplicated(t *testing.T) {
	c := newClassifier()
	inputs := []string{
		"x", "!!!", "deploy deploy deploy", "app store publishing for mobile",
		"I'm good with the plan", "what is a roadmap", "hello world api",
	}
	for _, text := range inputs {
		got := c.Classify(text)
		require.NotEmpty(t, got, text)
		assert.Equal(t, dedupe(got), got, text)
		assert.LessOrEqual(t, len(got), len(rollCall), text)
	}
}

func TestIsGenericPrecedence(t *testing.T) {
	assert.True(t, isGeneric(NewMessage("hello")))
	assert.True(t, isGeneric(NewMessage("i'm good with the api setup")), "acknowledgment beats technical words")
	assert.False(t, isGeneric(NewMessage("thanks, but the build fails")), "technical beats generic words")
	assert.True(t, isGeneric(NewMessage("one two three four")))
	assert.False(t, isGeneric(NewMessage("one two three four five")))
}

type fixedRule struct {
	name    string
	experts []persona.Expertise
	ok      bool
}

func (r fixedRule) Name() string { return r.name }

func (r fixedRule) Match(Message) ([]persona.Expertise, bool) { return r.experts, r.ok }

func TestCustomRuleChainStopsAtFirstMatch(t *testing.T) {
	c := NewWithRules(
		fixedRule{name: "skip"},
		fixedRule{name: "dupes", experts: []persona.Expertise{persona.Cloud, persona.Cloud, persona.Mobile}, ok: true},
		fixedRule{name: "never", experts: []persona.Expertise{persona.Security}, ok: true},
	)

	got, rule := c.Explain("anything")
	assert.Equal(t, "dupes", rule)
	assert.Equal(t, []persona.Expertise{persona.Cloud, persona.Mobile}, got)
}
