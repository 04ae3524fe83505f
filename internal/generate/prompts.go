package generate

import (
	"fmt"
	"maps"
	"slices"
	"strings"
)

// Prompt templates for the three pipeline calls plus the variation flow.
// Each asks for machine-readable output in the shape its parser expects;
// the parsers still tolerate prose and fences around the payload.

const clarifyPromptFmt = `A user wants a UI component built. Before generating, ask at most %d short clarifying questions that would change the result (layout, tone, interactivity). Each question needs 2-4 selectable options.

Return ONLY a JSON array of objects: [{"id": "q1", "question": "...", "options": ["...", "..."]}]
If nothing needs clarifying, return [].

Request: %s%s`

const planPromptFmt = `A user wants a UI component built. Propose exactly %d distinct visual directions for it — short human-readable style labels like "Minimal & Clean" or "Bold Gradient". Make them clearly different from each other.

Return ONLY a JSON array of %d strings.

Request: %s%s%s`

const generatePromptFmt = `Generate a single self-contained HTML file implementing this UI component. Inline all CSS in a <style> tag. No external assets, no JavaScript frameworks. Return ONLY the HTML, no commentary.

Component request: %s%s%s

Visual direction: %s`

const variationsPromptFmt = `Here is an existing HTML implementation of a UI component. Produce 3 variations of it — same structure, different visual treatments (colors, spacing, typography).

Stream your answer as a sequence of JSON objects, one per variation, each on its own: {"name": "short label", "html": "<complete html>"}. No other output.

Original request: %s

Current HTML:
%s`

func clarifyPrompt(prompt string, styleTags []string) string {
	return fmt.Sprintf(clarifyPromptFmt, maxClarifyingQuestions, prompt, styleTagClause(styleTags))
}

func planPrompt(prompt string, variants int, answers map[string]string, styleTags []string) string {
	return fmt.Sprintf(planPromptFmt, variants, variants, prompt, answersClause(answers), styleTagClause(styleTags))
}

func generatePrompt(prompt, style string, answers map[string]string, styleTags []string) string {
	return fmt.Sprintf(generatePromptFmt, prompt, answersClause(answers), styleTagClause(styleTags), style)
}

func variationsPrompt(prompt, html string) string {
	return fmt.Sprintf(variationsPromptFmt, prompt, html)
}

func styleTagClause(tags []string) string {
	if len(tags) == 0 {
		return ""
	}
	return "\nActive style presets: " + strings.Join(tags, ", ")
}

func answersClause(answers map[string]string) string {
	if len(answers) == 0 {
		return ""
	}
	var sb strings.Builder
	sb.WriteString("\nUser clarifications:")
	for _, id := range slices.Sorted(maps.Keys(answers)) {
		sb.WriteString("\n- ")
		sb.WriteString(id)
		sb.WriteString(": ")
		sb.WriteString(answers[id])
	}
	return sb.String()
}
