package utils

import (
	"fmt"
	"os"
	"strings"
)

// LoadPrompt loads a prompt (persona) text from an exact file path
func LoadPrompt(filePath string) (string, error) {
	content, err := os.ReadFile(filePath)
	if err != nil {
		if os.IsNotExist(err) {
			return "", fmt.Errorf("file does not exist: %s", filePath)
		}
		return "", fmt.Errorf("failed to read file %s: %w", filePath, err)
	}

	prompt := strings.TrimSpace(string(content))
	if prompt == "" {
		return "", fmt.Errorf("prompt file %s is empty", filePath)
	}

	return prompt, nil
}

// LoadPromptWithFallback loads a prompt from filePath, returning fallback when
// no path is configured. A configured path that cannot be read is an error
func LoadPromptWithFallback(filePath, fallback string) (string, error) {
	if filePath == "" {
		return fallback, nil
	}
	return LoadPrompt(filePath)
}
