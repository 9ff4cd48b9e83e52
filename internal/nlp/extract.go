package nlp

import (
	"regexp"
	"strings"
)

var (
	phonePattern = regexp.MustCompile(`[+]?\d{10,15}`)
	emailPattern = regexp.MustCompile(`[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}`)
	namePattern  = regexp.MustCompile(`[A-Z][a-z]+\s[A-Z][a-z]+`)
)

// fillEntityGaps supplements model output with regex extraction for the
// fields the model most often misses. Existing values are left alone.
func fillEntityGaps(entities map[string]string, message string) map[string]string {
	if entities == nil {
		entities = make(map[string]string)
	}
	if entities["number"] == "" {
		if match := phonePattern.FindString(message); match != "" {
			entities["number"] = match
		}
	}
	if entities["email"] == "" {
		if match := emailPattern.FindString(message); match != "" {
			entities["email"] = match
		}
	}
	if entities["name"] == "" {
		if match := namePattern.FindString(message); match != "" {
			entities["name"] = match
		}
	}
	return entities
}

// dropNullEntities removes empty values and the literal "null" strings
// language models like to emit.
func dropNullEntities(entities map[string]string) map[string]string {
	cleaned := make(map[string]string, len(entities))
	for key, value := range entities {
		value = strings.TrimSpace(value)
		if value == "" || strings.EqualFold(value, "null") {
			continue
		}
		cleaned[key] = value
	}
	return cleaned
}

// extractJSONFromMarkdown strips the ```json fences models wrap their
// output in.
func extractJSONFromMarkdown(text string) string {
	text = strings.TrimSpace(text)
	if strings.HasPrefix(text, "```json") && strings.HasSuffix(text, "```") {
		text = strings.TrimPrefix(text, "```json")
		text = strings.TrimSuffix(text, "```")
		return strings.TrimSpace(text)
	}
	if strings.HasPrefix(text, "```") && strings.HasSuffix(text, "```") {
		text = strings.TrimPrefix(text, "```")
		text = strings.TrimSuffix(text, "```")
		return strings.TrimSpace(text)
	}
	return text
}
