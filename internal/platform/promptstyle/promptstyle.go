package promptstyle

import "strings"

const marker = "REQMATCH_PROMPT_STYLE_V1"

// ApplySystem prepends a short guidance block to system prompts.
// Prompts that already carry the marker are returned unchanged.
func ApplySystem(system string, mode string) string {
	base := strings.TrimSpace(system)
	if base == "" || strings.Contains(base, marker) {
		return base
	}

	var b strings.Builder
	b.WriteString(marker)
	b.WriteString("\nYou are a careful document reviewer.")
	b.WriteString("\nFollow the system and user instructions precisely.")
	b.WriteString("\nUse only the provided excerpts as grounding; never invent content, quotes, or citations.")
	switch strings.ToLower(strings.TrimSpace(mode)) {
	case "json":
		b.WriteString("\nReturn a single JSON object with no surrounding prose and no extra keys.")
	default:
		b.WriteString("\nBe concise.")
	}
	b.WriteString("\n---\n")
	b.WriteString(base)
	return b.String()
}
