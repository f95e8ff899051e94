package embedding

import "strings"

func validateText(text string) error {
	if strings.TrimSpace(text) == "" {
		return invalidInput("text cannot be empty or whitespace-only")
	}
	return nil
}

func validateTexts(texts []string) error {
	if len(texts) == 0 {
		return invalidInput("texts list cannot be empty")
	}
	for i, text := range texts {
		if strings.TrimSpace(text) == "" {
			return invalidInput("text at index %d cannot be empty or whitespace-only", i)
		}
	}
	return nil
}
