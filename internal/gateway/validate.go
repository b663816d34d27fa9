package gateway

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/flynn-ai/genai/internal/errors"
)

// MinImagePromptLength is the shortest accepted image prompt, in characters.
const MinImagePromptLength = 5

// ValidateChat returns the trimmed prompt or a KindInvalidInput error.
func ValidateChat(text string) (string, error) {
	prompt := strings.TrimSpace(text)
	if prompt == "" {
		return "", errors.InvalidInput(errors.CodeMissingPrompt, "Prompt is required",
			"Provide a non-empty prompt")
	}
	return prompt, nil
}

// ValidateImage returns the trimmed prompt or a KindInvalidInput error
// when it is shorter than MinImagePromptLength.
func ValidateImage(text string) (string, error) {
	prompt := strings.TrimSpace(text)
	if utf8.RuneCountInString(prompt) < MinImagePromptLength {
		return "", errors.InvalidInput(errors.CodeInvalidPrompt,
			fmt.Sprintf("Prompt must be at least %d characters", MinImagePromptLength),
			"Describe the image in a few words")
	}
	return prompt, nil
}
