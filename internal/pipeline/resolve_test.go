// Package pipeline_test tests text-source resolution.
package pipeline_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/book-expert/tts-cli/internal/pipeline"
)

func TestResolveText_Literal(t *testing.T) {
	t.Parallel()

	text, err := pipeline.ResolveText("Hello World, this is a test.", "")
	require.NoError(t, err)

	assert.Equal(t, "Hello World, this is a test.", text)
}

func TestResolveText_NeitherSource(t *testing.T) {
	t.Parallel()

	_, err := pipeline.ResolveText("", "")
	require.ErrorIs(t, err, pipeline.ErrNoTextSource)
}

func TestResolveText_BothSources(t *testing.T) {
	t.Parallel()

	_, err := pipeline.ResolveText("some text", "some-file.txt")
	require.ErrorIs(t, err, pipeline.ErrBothTextSources)
}

func TestResolveText_MissingFile(t *testing.T) {
	t.Parallel()

	missingPath := filepath.Join(t.TempDir(), "does-not-exist.txt")

	_, err := pipeline.ResolveText("", missingPath)
	require.ErrorIs(t, err, pipeline.ErrTextFileMissing)
}

func TestResolveText_FileContentIsTrimmed(t *testing.T) {
	t.Parallel()

	textFile := filepath.Join(t.TempDir(), "input.txt")

	err := os.WriteFile(textFile, []byte("  spaced out text \n\n"), 0o600)
	require.NoError(t, err)

	text, resolveErr := pipeline.ResolveText("", textFile)
	require.NoError(t, resolveErr)

	assert.Equal(t, "spaced out text", text)
}

func TestResolveText_FileWithOnlyWhitespaceIsEmpty(t *testing.T) {
	t.Parallel()

	textFile := filepath.Join(t.TempDir(), "blank.txt")

	err := os.WriteFile(textFile, []byte(" \n\t \n"), 0o600)
	require.NoError(t, err)

	_, resolveErr := pipeline.ResolveText("", textFile)
	require.ErrorIs(t, resolveErr, pipeline.ErrResolvedEmpty)
}

func TestResolveText_FileMustBeUTF8(t *testing.T) {
	t.Parallel()

	textFile := filepath.Join(t.TempDir(), "binary.txt")

	err := os.WriteFile(textFile, []byte{0xFF, 0xFE, 0x00, 0xC1}, 0o600)
	require.NoError(t, err)

	_, resolveErr := pipeline.ResolveText("", textFile)
	require.ErrorIs(t, resolveErr, pipeline.ErrTextFileNotUTF8)
}
