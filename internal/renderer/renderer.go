// Package renderer fills prompt templates with input variables.
package renderer

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Render substitutes {name}-style placeholders in content with the matching
// values from vars. Placeholders without a matching variable are left intact
// so partially-bound templates stay inspectable.
func Render(content string, vars map[string]string) string {
	if len(vars) == 0 {
		return content
	}
	pairs := make([]string, 0, len(vars)*2)
	for key, value := range vars {
		pairs = append(pairs, "{"+key+"}", value)
	}
	return strings.NewReplacer(pairs...).Replace(content)
}

// Message represents a chat message for LLM APIs
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// RenderJSON renders the filled prompt as a JSON message array for LLM APIs.
func RenderJSON(content string, vars map[string]string) (string, error) {
	messages := []Message{
		{
			Role:    "user",
			Content: Render(content, vars),
		},
	}

	jsonBytes, err := json.MarshalIndent(messages, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal to JSON: %w", err)
	}

	return string(jsonBytes), nil
}
