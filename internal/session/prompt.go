package session

import (
	"bytes"
	"fmt"
	"text/template"

	"github.com/zulandar/ratchet/internal/ratchet"
)

// ciFixTemplate is the prompt for a fixer session dispatched on a CI failure.
const ciFixTemplate = `CI is failing on pull request #{{ .PRNumber }} ({{ .PRURL }}) for branch {{ .Branch }}.

Investigate the failing checks, reproduce the failure locally where possible, and push a fix to the same branch.

Rules:
- Work only in this worktree; do not touch other branches.
- Keep the fix minimal: address the failing checks, nothing else.
- Run the project's test suite before pushing.
- Push to {{ .Branch }} so the existing PR updates.
{{ if .Detail }}
Context: {{ .Detail }}
{{ end }}`

// reviewFixTemplate is the prompt for a fixer session dispatched on a
// blocking review.
const reviewFixTemplate = `Pull request #{{ .PRNumber }} ({{ .PRURL }}) on branch {{ .Branch }} has a review requesting changes.

Read every unresolved review comment on the PR, address each one, and push the updates to the same branch.

Rules:
- Address all reviewer comments; reply on the PR where a comment needs discussion rather than a code change.
- Keep changes scoped to what the review asks for.
- Run the project's test suite before pushing.
- Push to {{ .Branch }} so the existing PR updates.
{{ if .Detail }}
Context: {{ .Detail }}
{{ end }}`

// PromptData feeds the fixer prompt templates.
type PromptData struct {
	PRNumber int
	PRURL    string
	Branch   string
	Detail   string
}

// BuildFixerPrompt renders the prompt for the given fix reason.
func BuildFixerPrompt(reason ratchet.FixerReason, data PromptData) (string, error) {
	var text string
	switch reason {
	case ratchet.FixCIFailure:
		text = ciFixTemplate
	case ratchet.FixReviewComments:
		text = reviewFixTemplate
	default:
		return "", fmt.Errorf("session: unknown fixer reason %q", reason)
	}

	tmpl, err := template.New("fixer").Parse(text)
	if err != nil {
		return "", fmt.Errorf("session: parse prompt template: %w", err)
	}
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("session: render prompt: %w", err)
	}
	return buf.String(), nil
}
