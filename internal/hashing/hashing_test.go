package hashing

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTempFile(t *testing.T, name, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestFile_Deterministic(t *testing.T) {
	path := writeTempFile(t, "a.txt", "hello")

	h1, err := File(path)
	require.NoError(t, err)

	h2, err := File(path)
	require.NoError(t, err)

	assert.Equal(t, h1, h2)
	// sha256("hello")
	assert.Equal(t, "2cf24dba5fb0a30e26e83b2ac5b9e29e1b161e5c1fa7425e73043362938b9824", h1)
}

func TestFile_NameIndependent(t *testing.T) {
	p1 := writeTempFile(t, "a.txt", "same content")
	p2 := writeTempFile(t, "совсем-другое-имя.bin", "same content")

	h1, err := File(p1)
	require.NoError(t, err)

	h2, err := File(p2)
	require.NoError(t, err)

	assert.Equal(t, h1, h2)
}

func TestFile_ContentSensitive(t *testing.T) {
	p1 := writeTempFile(t, "a.txt", "content one")
	p2 := writeTempFile(t, "a2.txt", "content two")

	h1, err := File(p1)
	require.NoError(t, err)

	h2, err := File(p2)
	require.NoError(t, err)

	assert.NotEqual(t, h1, h2)
}

func TestFile_Unreadable(t *testing.T) {
	_, err := File(filepath.Join(t.TempDir(), "missing.txt"))
	assert.Error(t, err)
}

func TestReader_MatchesFile(t *testing.T) {
	path := writeTempFile(t, "a.txt", "stream me")

	fromFile, err := File(path)
	require.NoError(t, err)

	fromReader, err := Reader(strings.NewReader("stream me"))
	require.NoError(t, err)

	assert.Equal(t, fromFile, fromReader)
}
