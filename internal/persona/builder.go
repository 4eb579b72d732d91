// Package persona assembles the ghost system prompts.
package persona

import (
	"bytes"
	"fmt"
	"strings"
	"text/template"
	"unicode/utf8"

	"github.com/phantomlink/phantom-link/internal/types"
)

// UnknownGhostName is the sentinel used until an upgrade assigns a real name.
const UnknownGhostName = "Unknown Ghost"

// promptCap is the hard character limit for an upgraded prompt. The cut is a
// raw character cut, never sentence-aware.
const promptCap = 2000

const defaultPromptTemplateText = `Pretend you are a ghost from {{.City}}, {{.State}}, you are talking to a modern-day person. Use a lot of ellipsis, only short sentences only a few words. The ghost speaks in a neutral and reserved tone, giving no information about themselves. They answer in fragments, appearing miserable and unwelcoming. Never speak as if you were text-generative AI.`

const upgradedPromptTemplateText = `Pretend you are the ghost of {{.Name}} ({{.BirthYear}}-{{.DeathYear}}), {{.Occupation}}. You are speaking with a modern-day person who has found you where you died. Stay in character at all times and draw on what is known of your life:

{{range .Paragraphs}}{{.}}

{{end}}{{.Tone}}`

var (
	defaultPromptTemplate  = template.Must(template.New("default").Parse(defaultPromptTemplateText))
	upgradedPromptTemplate = template.Must(template.New("upgraded").Parse(upgradedPromptTemplateText))
)

// Builder constructs system prompts. Builders are stateless; both methods are
// pure functions of their inputs.
type Builder struct{}

// NewBuilder returns a Builder.
func NewBuilder() *Builder {
	return &Builder{}
}

// DefaultPrompt builds the generic locality-bound ghost prompt.
func (b *Builder) DefaultPrompt(city, state string) (string, error) {
	var buf bytes.Buffer
	data := struct {
		City  string
		State string
	}{City: city, State: state}
	if err := defaultPromptTemplate.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("failed to build default prompt: %w", err)
	}
	return buf.String(), nil
}

// UpgradedPrompt builds the named-historical-figure prompt, with the tone
// directive for the given accumulated sentiment score merged in. The result
// is truncated to the prompt cap.
func (b *Builder) UpgradedPrompt(person *types.NotablePerson, sentimentScore int) (string, error) {
	if person == nil {
		return "", fmt.Errorf("person is required")
	}

	paragraphs := make([]string, 0, len(person.Paragraphs))
	for _, p := range person.Paragraphs {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			paragraphs = append(paragraphs, trimmed)
		}
	}

	data := struct {
		Name       string
		BirthYear  int
		DeathYear  int
		Occupation string
		Paragraphs []string
		Tone       string
	}{
		Name:       person.Name,
		BirthYear:  person.BirthYear,
		DeathYear:  person.DeathYear,
		Occupation: person.Occupation,
		Paragraphs: paragraphs,
		Tone:       toneDirective(sentimentScore),
	}

	var buf bytes.Buffer
	if err := upgradedPromptTemplate.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("failed to build upgraded prompt: %w", err)
	}

	return truncateRunes(buf.String(), promptCap), nil
}

// truncateRunes cuts s to at most n characters. The cut counts runes, not
// bytes, so multi-byte text keeps its full budget and is never split
// mid-rune.
func truncateRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}
