package errors

import "unicode"

// Limits applied to ingested items.
const (
	MaxPhraseLength = 1024
	MaxTokenLength  = 128
	MaxTokens       = 64
)

// ValidatePhrase validates the display text of an item. The phrase is
// optional; when present it must be printable and reasonably short.
func ValidatePhrase(phrase string) error {
	if len(phrase) > MaxPhraseLength {
		return New(ErrCodeInvalidInput, "phrase too long (max %d characters)", MaxPhraseLength)
	}
	for _, r := range phrase {
		if unicode.IsControl(r) {
			return New(ErrCodeInvalidInput, "phrase contains invalid control characters")
		}
	}
	return nil
}

// ValidateToken validates a single token.
//
// The rules are intentionally conservative:
//   - No empty tokens
//   - No whitespace or control characters
//   - Maximum length of MaxTokenLength bytes
func ValidateToken(token string) error {
	if token == "" {
		return New(ErrCodeInvalidTokens, "token cannot be empty")
	}
	if len(token) > MaxTokenLength {
		return New(ErrCodeInvalidTokens, "token too long (max %d characters): %.16q...", MaxTokenLength, token)
	}
	for _, r := range token {
		if unicode.IsControl(r) || unicode.IsSpace(r) {
			return New(ErrCodeInvalidTokens, "token contains whitespace or control characters: %q", token)
		}
	}
	return nil
}

// ValidateTokens validates a token list of one item. Order and repetition
// are not checked: ingestion sorts the list and repeated tokens are allowed.
func ValidateTokens(tokens []string) error {
	if len(tokens) == 0 {
		return New(ErrCodeInvalidTokens, "token list cannot be empty")
	}
	if len(tokens) > MaxTokens {
		return New(ErrCodeInvalidTokens, "too many tokens (%d, max %d)", len(tokens), MaxTokens)
	}
	for _, t := range tokens {
		if err := ValidateToken(t); err != nil {
			return err
		}
	}
	return nil
}

// ValidatePath validates a file system path given on the command line or in
// the configuration file.
//
// Validation rules:
//   - Path cannot be empty
//   - Maximum length of 4096 characters
//   - No null bytes or control characters
func ValidatePath(path string) error {
	if path == "" {
		return New(ErrCodeInvalidPath, "path cannot be empty")
	}

	const maxPathLength = 4096
	if len(path) > maxPathLength {
		return New(ErrCodeInvalidPath, "path too long (max %d characters)", maxPathLength)
	}

	for _, r := range path {
		if r == '\x00' || unicode.IsControl(r) {
			return New(ErrCodeInvalidPath, "path contains invalid characters")
		}
	}

	return nil
}
