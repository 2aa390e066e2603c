// Text-source resolution for the pipeline: exactly one of a literal string or
// a UTF-8 text file path must be supplied.
package pipeline

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"
)

// Static errors.
var (
	ErrNoTextSource    = errors.New("either text or a text file must be provided")
	ErrBothTextSources = errors.New("cannot provide both text and a text file")
	ErrTextFileMissing = errors.New("text file does not exist")
	ErrTextFileNotUTF8 = errors.New("text file is not valid UTF-8")
	ErrResolvedEmpty   = errors.New("no usable text content was provided")
)

// ResolveText resolves the mutually exclusive text sources into the string the
// pipeline will speak. File content is trimmed of surrounding whitespace;
// literal text is passed through as given. An empty result is an error either
// way.
func ResolveText(literal, textFilePath string) (string, error) {
	if literal == "" && textFilePath == "" {
		return "", ErrNoTextSource
	}

	if literal != "" && textFilePath != "" {
		return "", ErrBothTextSources
	}

	text := literal

	if textFilePath != "" {
		resolved, readErr := readTextFile(textFilePath)
		if readErr != nil {
			return "", readErr
		}

		text = resolved
	}

	if text == "" {
		return "", ErrResolvedEmpty
	}

	return text, nil
}

func readTextFile(path string) (string, error) {
	absolutePath, absErr := filepath.Abs(path)
	if absErr != nil {
		return "", fmt.Errorf("could not resolve absolute path for %q: %w", path, absErr)
	}

	_, statErr := os.Stat(absolutePath)
	if statErr != nil {
		if os.IsNotExist(statErr) {
			return "", fmt.Errorf("%w: %s", ErrTextFileMissing, absolutePath)
		}

		return "", fmt.Errorf("could not access text file %s: %w", absolutePath, statErr)
	}

	content, readErr := os.ReadFile(absolutePath)
	if readErr != nil {
		return "", fmt.Errorf("could not read text file %s: %w", absolutePath, readErr)
	}

	if !utf8.Valid(content) {
		return "", fmt.Errorf("%w: %s", ErrTextFileNotUTF8, absolutePath)
	}

	return strings.TrimSpace(string(content)), nil
}
